package league

import (
	"sort"
	"sync"
)

// Outcome of a single finished job, from the home player's perspective.
type Outcome int

const (
	Win Outcome = iota
	Draw
	Loss
)

type pairKey struct {
	home string
	away string
}

type record struct {
	wins   int64
	draws  int64
	losses int64
}

func (r *record) games() int64 {
	return r.wins + r.draws + r.losses
}

// winRate treats a draw as half a win. Returns 0.5 for an empty record so
// unplayed pairings look maximally uncertain to the matchmaker.
func (r *record) winRate() float64 {
	games := r.games()
	if games == 0 {
		return 0.5
	}
	return (float64(r.wins) + 0.5*float64(r.draws)) / float64(games)
}

// PayoffTable accumulates win/draw/loss counts per ordered (home, away)
// pairing. Safe for concurrent use.
type PayoffTable struct {
	mu      sync.RWMutex
	records map[pairKey]*record
}

// NewPayoffTable creates an empty payoff table.
func NewPayoffTable() *PayoffTable {
	return &PayoffTable{records: make(map[pairKey]*record)}
}

// AddOutcome records one finished game between home and away.
func (p *PayoffTable) AddOutcome(home, away string, outcome Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := pairKey{home: home, away: away}
	rec, ok := p.records[key]
	if !ok {
		rec = &record{}
		p.records[key] = rec
	}

	switch outcome {
	case Win:
		rec.wins++
	case Draw:
		rec.draws++
	case Loss:
		rec.losses++
	}
}

// WinRate returns home's win rate against away, 0.5 when they never played.
func (p *PayoffTable) WinRate(home, away string) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	rec, ok := p.records[pairKey{home: home, away: away}]
	if !ok {
		return 0.5
	}
	return rec.winRate()
}

// Games returns the number of recorded games between home and away.
func (p *PayoffTable) Games(home, away string) int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	rec, ok := p.records[pairKey{home: home, away: away}]
	if !ok {
		return 0
	}
	return rec.games()
}

// Entry is one row of a payoff table snapshot.
type Entry struct {
	Home    string  `json:"home"`
	Away    string  `json:"away"`
	Wins    int64   `json:"wins"`
	Draws   int64   `json:"draws"`
	Losses  int64   `json:"losses"`
	WinRate float64 `json:"winRate"`
}

// Snapshot returns all pairings sorted by (home, away) for stable reporting.
func (p *PayoffTable) Snapshot() []Entry {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entries := make([]Entry, 0, len(p.records))
	for key, rec := range p.records {
		entries = append(entries, Entry{
			Home:    key.home,
			Away:    key.away,
			Wins:    rec.wins,
			Draws:   rec.draws,
			Losses:  rec.losses,
			WinRate: rec.winRate(),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Home != entries[j].Home {
			return entries[i].Home < entries[j].Home
		}
		return entries[i].Away < entries[j].Away
	})
	return entries
}
