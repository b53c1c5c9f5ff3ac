package league

// Job is one unit of actor work: collect (or evaluate) trajectories for the
// launching player against a chosen opponent.
//
// Lifecycle: created by the league on request, annotated by the coordinator
// (sequence number, actor id, eval flag) before dispatch, executed by an
// actor, returned with a result, then consumed once by UpdatePayoff.
type Job struct {
	SeqNo          int64             `json:"seqNo"`
	ActorID        string            `json:"actorId,omitempty"`
	LaunchPlayerID string            `json:"launchPlayerId"`
	PlayerIDs      []string          `json:"playerIds"` // participants, launching player first
	IsEval         bool              `json:"isEval,omitempty"`
	Result         map[string]string `json:"result,omitempty"` // filled by the actor: "winner" or "draw"
}

// OpponentID returns the non-launching participant, or the launching player
// itself for pure self-play jobs.
func (j *Job) OpponentID() string {
	for _, id := range j.PlayerIDs {
		if id != j.LaunchPlayerID {
			return id
		}
	}
	return j.LaunchPlayerID
}

// Result keys written by actors.
const (
	ResultWinner = "winner"
	ResultDraw   = "draw"
)

// PlayerMeta identifies a trained policy version. Immutable once emitted by
// a learner.
type PlayerMeta struct {
	PlayerID   string `json:"playerId"`
	Checkpoint string `json:"checkpoint"`
	TrainStep  int64  `json:"trainStep"`
}

// Trajectory is one episode of collected experience. The coordinator only
// counts trajectories; the experience payload is opaque to it.
type Trajectory struct {
	Steps int    `json:"steps,omitempty"`
	Ref   string `json:"ref,omitempty"` // storage reference for the episode data
}

// EnvTrajectories groups the trajectories collected by one environment.
type EnvTrajectories struct {
	EnvID        int          `json:"envId"`
	Trajectories []Trajectory `json:"trajectories"`
}

// TrajectoryBatch is one data shipment from an actor for a single player.
type TrajectoryBatch struct {
	PlayerID string            `json:"playerId"`
	Envs     []EnvTrajectories `json:"envs"`
}

// Count returns the number of trajectories across all environment groups.
func (b *TrajectoryBatch) Count() int {
	n := 0
	for _, env := range b.Envs {
		n += len(env.Trajectories)
	}
	return n
}
