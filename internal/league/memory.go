package league

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"leaguecoord/internal/apperrors"
)

// MemoryLeague is an in-memory League backed by a payoff table.
//
// Active players come from the roster; historical players are snapshotted
// from learner metas at most once per SnapshotInterval training steps.
// Opponent choice prefers the pairing whose win rate is closest to 0.5,
// i.e. the most informative match.
type MemoryLeague struct {
	mu               sync.RWMutex
	activeIDs        []string // stable roster order
	active           map[string]PlayerMeta
	historical       []PlayerMeta
	historicalSet    map[string]bool
	lastSnapshotStep map[string]int64
	snapshotInterval int64

	payoff *PayoffTable
	logger *slog.Logger
}

// NewMemory creates a league from a roster.
func NewMemory(roster *Roster) *MemoryLeague {
	l := &MemoryLeague{
		active:           make(map[string]PlayerMeta, len(roster.Players)),
		historicalSet:    make(map[string]bool),
		lastSnapshotStep: make(map[string]int64),
		snapshotInterval: roster.SnapshotInterval,
		payoff:           NewPayoffTable(),
		logger:           slog.With("component", "league"),
	}
	for _, p := range roster.Players {
		l.activeIDs = append(l.activeIDs, p.ID)
		l.active[p.ID] = PlayerMeta{PlayerID: p.ID, Checkpoint: p.Checkpoint}
	}
	return l
}

// ActivePlayerIDs returns the active player ids in roster order.
func (l *MemoryLeague) ActivePlayerIDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := make([]string, len(l.activeIDs))
	copy(ids, l.activeIDs)
	return ids
}

// GetJobInfo creates a job for the given active player against the most
// informative available opponent.
func (l *MemoryLeague) GetJobInfo(playerID string) (*Job, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if _, ok := l.active[playerID]; !ok {
		return nil, apperrors.NotFound("player", playerID)
	}

	opponent := l.chooseOpponentLocked(playerID)
	return &Job{
		LaunchPlayerID: playerID,
		PlayerIDs:      []string{playerID, opponent},
	}, nil
}

// chooseOpponentLocked picks among historical snapshots and the other active
// players. With nobody else in the pool the player self-plays.
func (l *MemoryLeague) chooseOpponentLocked(playerID string) string {
	var candidates []string
	for _, meta := range l.historical {
		candidates = append(candidates, meta.PlayerID)
	}
	for _, id := range l.activeIDs {
		if id != playerID {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return playerID
	}

	best := candidates[0]
	bestDist := math.Abs(l.payoff.WinRate(playerID, best) - 0.5)
	bestGames := l.payoff.Games(playerID, best)
	for _, cand := range candidates[1:] {
		dist := math.Abs(l.payoff.WinRate(playerID, cand) - 0.5)
		games := l.payoff.Games(playerID, cand)
		if dist < bestDist || (dist == bestDist && games < bestGames) {
			best, bestDist, bestGames = cand, dist, games
		}
	}
	return best
}

// UpdateActivePlayer records a new checkpoint for an active player.
func (l *MemoryLeague) UpdateActivePlayer(meta PlayerMeta) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, ok := l.active[meta.PlayerID]
	if !ok {
		return apperrors.NotFound("player", meta.PlayerID)
	}
	if meta.TrainStep < current.TrainStep {
		// Out-of-order meta from an at-least-once bus; keep the newer one.
		return nil
	}
	l.active[meta.PlayerID] = meta
	return nil
}

// CreateHistoricalPlayer snapshots the meta into the opponent pool when the
// player has advanced at least SnapshotInterval steps since its last
// snapshot. Idempotent per (player, step).
func (l *MemoryLeague) CreateHistoricalPlayer(meta PlayerMeta) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.active[meta.PlayerID]; !ok {
		return apperrors.NotFound("player", meta.PlayerID)
	}

	histID := fmt.Sprintf("%s.hist.%d", meta.PlayerID, meta.TrainStep)
	if l.historicalSet[histID] {
		return nil
	}
	if last, ok := l.lastSnapshotStep[meta.PlayerID]; ok && meta.TrainStep-last < l.snapshotInterval {
		return nil
	}

	l.historicalSet[histID] = true
	l.lastSnapshotStep[meta.PlayerID] = meta.TrainStep
	l.historical = append(l.historical, PlayerMeta{
		PlayerID:   histID,
		Checkpoint: meta.Checkpoint,
		TrainStep:  meta.TrainStep,
	})
	l.logger.Info("Historical player created", "player", histID, "pool", len(l.historical))
	return nil
}

// UpdatePayoff reconciles a finished job's outcome. Jobs without a result
// are logged and skipped.
func (l *MemoryLeague) UpdatePayoff(job *Job) error {
	if job == nil {
		return apperrors.Internal("league.updatePayoff", fmt.Errorf("nil job"))
	}
	if len(job.Result) == 0 {
		l.logger.Warn("Finished job carries no result", "seqNo", job.SeqNo, "player", job.LaunchPlayerID)
		return nil
	}

	home := job.LaunchPlayerID
	away := job.OpponentID()

	switch {
	case job.Result[ResultDraw] == "true":
		l.payoff.AddOutcome(home, away, Draw)
	case job.Result[ResultWinner] == home:
		l.payoff.AddOutcome(home, away, Win)
	case job.Result[ResultWinner] == away:
		l.payoff.AddOutcome(home, away, Loss)
	default:
		l.logger.Warn("Unknown winner in job result",
			"seqNo", job.SeqNo, "winner", job.Result[ResultWinner], "home", home, "away", away)
	}
	return nil
}

// Standing is one row of the league player listing.
type Standing struct {
	PlayerID   string `json:"playerId"`
	Checkpoint string `json:"checkpoint,omitempty"`
	TrainStep  int64  `json:"trainStep"`
	Historical bool   `json:"historical"`
}

// Standings returns active players in roster order followed by historical
// snapshots in creation order.
func (l *MemoryLeague) Standings() []Standing {
	l.mu.RLock()
	defer l.mu.RUnlock()

	standings := make([]Standing, 0, len(l.activeIDs)+len(l.historical))
	for _, id := range l.activeIDs {
		meta := l.active[id]
		standings = append(standings, Standing{
			PlayerID:   meta.PlayerID,
			Checkpoint: meta.Checkpoint,
			TrainStep:  meta.TrainStep,
		})
	}
	for _, meta := range l.historical {
		standings = append(standings, Standing{
			PlayerID:   meta.PlayerID,
			Checkpoint: meta.Checkpoint,
			TrainStep:  meta.TrainStep,
			Historical: true,
		})
	}
	return standings
}

// Payoff exposes the payoff table for reporting.
func (l *MemoryLeague) Payoff() *PayoffTable {
	return l.payoff
}

// Ready reports whether the league can produce jobs.
func (l *MemoryLeague) Ready(ctx context.Context) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.activeIDs) == 0 {
		return apperrors.Config("no active players in league")
	}
	return nil
}

// Verify MemoryLeague implements League
var _ League = (*MemoryLeague)(nil)
