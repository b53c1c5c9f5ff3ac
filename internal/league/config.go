package league

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const defaultSnapshotInterval = 1000

// RosterPlayer is one active player declared in the roster file.
type RosterPlayer struct {
	ID         string `yaml:"id"`
	Checkpoint string `yaml:"checkpoint"`
}

// Roster is the league bootstrap configuration.
type Roster struct {
	Players []RosterPlayer `yaml:"players"`
	// SnapshotInterval is the minimum number of training steps between
	// historical snapshots of the same player.
	SnapshotInterval int64 `yaml:"snapshotInterval"`
}

// ParseRoster parses YAML content into a Roster.
func ParseRoster(data []byte) (*Roster, error) {
	var roster Roster
	if err := yaml.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("failed to parse roster: %w", err)
	}
	if err := roster.validate(); err != nil {
		return nil, err
	}
	if roster.SnapshotInterval <= 0 {
		roster.SnapshotInterval = defaultSnapshotInterval
	}
	return &roster, nil
}

// LoadRoster reads a roster YAML file.
func LoadRoster(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster: %w", err)
	}
	return ParseRoster(data)
}

func (r *Roster) validate() error {
	seen := make(map[string]bool, len(r.Players))
	for i, p := range r.Players {
		if p.ID == "" {
			return fmt.Errorf("roster player %d has no id", i)
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate roster player id %q", p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}
