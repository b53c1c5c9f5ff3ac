// Package league maintains the pool of competing player policies: active
// players advanced by learners, historical snapshots used as opponents, and
// the payoff table that drives matchmaking.
package league

// League is the model the coordinator schedules against.
//
// Implementations must be safe for concurrent use: the coordinator calls
// GetJobInfo under its dispatch lock while payoff and meta updates arrive
// from other event handlers.
type League interface {
	// ActivePlayerIDs returns the ids of players currently being trained,
	// in stable order.
	ActivePlayerIDs() []string

	// GetJobInfo creates a job descriptor for the given active player,
	// choosing an opponent via payoff-based matchmaking.
	GetJobInfo(playerID string) (*Job, error)

	// UpdateActivePlayer records a new checkpoint for an active player.
	// Repeated calls with the same meta are idempotent.
	UpdateActivePlayer(meta PlayerMeta) error

	// CreateHistoricalPlayer optionally snapshots the meta into the
	// opponent pool. Snapshot policy is the league's; repeated calls with
	// the same meta are idempotent.
	CreateHistoricalPlayer(meta PlayerMeta) error

	// UpdatePayoff reconciles a finished job's outcome into the payoff
	// table. Jobs without a result are ignored.
	UpdatePayoff(job *Job) error
}
