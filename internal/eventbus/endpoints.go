package eventbus

import "sync"

// Endpoints tracks the event ingress of each known peer node. The
// coordinator learns actor endpoints from greetings; entries are never
// expired, mirroring the running-jobs table.
type Endpoints struct {
	mu    sync.RWMutex
	dests map[string]Destination
}

// NewEndpoints creates an empty endpoint registry.
func NewEndpoints() *Endpoints {
	return &Endpoints{dests: make(map[string]Destination)}
}

// Set records or replaces a peer's destination.
func (e *Endpoints) Set(id string, dest Destination) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dests[id] = dest
}

// Get returns a peer's destination.
func (e *Endpoints) Get(id string) (Destination, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	dest, ok := e.dests[id]
	return dest, ok
}

// Len returns the number of known peers.
func (e *Endpoints) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.dests)
}

// RouteDispatch builds a RouteFunc that sends per-actor dispatch events to
// the actor endpoints registered in e. Other kinds have no route.
func RouteDispatch(e *Endpoints) RouteFunc {
	return func(ev Event) (Destination, bool) {
		if ev.Kind != KindDispatch || ev.Job == nil {
			return Destination{}, false
		}
		return e.Get(ev.Job.ActorID)
	}
}
