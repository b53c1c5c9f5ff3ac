package coordinator

import (
	"time"

	"leaguecoord/internal/config"
)

const (
	defaultEvalFrequency   = 10
	defaultTickInterval    = time.Second
	defaultStatusInterval  = 10 * time.Minute
	defaultMetaLogInterval = 5 * time.Second
)

// Config holds coordinator configuration.
type Config struct {
	// NodeID identifies this coordinator in logs and event sources.
	NodeID string

	// EvalFrequency marks every Nth dispatched job as an evaluation job.
	EvalFrequency int64

	// EventKey signs dispatch events relayed to actor endpoints.
	EventKey string

	// TickInterval is the heartbeat period.
	TickInterval time.Duration

	// StatusInterval is how often the heartbeat logs the running-jobs table.
	StatusInterval time.Duration

	// MetaLogInterval throttles learner meta log lines.
	MetaLogInterval time.Duration
}

// LoadConfigFromEnv loads coordinator configuration from environment
// variables.
func LoadConfigFromEnv() Config {
	return Config{
		NodeID:          config.GetEnv("NODE_ID", "coordinator-0"),
		EvalFrequency:   int64(config.GetIntEnv("COORDINATOR_EVAL_FREQUENCY", defaultEvalFrequency)),
		EventKey:        config.GetEnv("EVENT_KEY", ""),
		TickInterval:    config.GetDurationEnv("COORDINATOR_TICK_INTERVAL", defaultTickInterval),
		StatusInterval:  config.GetDurationEnv("COORDINATOR_STATUS_INTERVAL", defaultStatusInterval),
		MetaLogInterval: config.GetDurationEnv("COORDINATOR_META_LOG_INTERVAL", defaultMetaLogInterval),
	}
}

func (c Config) withDefaults() Config {
	if c.NodeID == "" {
		c.NodeID = "coordinator-0"
	}
	if c.EvalFrequency <= 0 {
		c.EvalFrequency = defaultEvalFrequency
	}
	if c.TickInterval <= 0 {
		c.TickInterval = defaultTickInterval
	}
	if c.StatusInterval <= 0 {
		c.StatusInterval = defaultStatusInterval
	}
	if c.MetaLogInterval <= 0 {
		c.MetaLogInterval = defaultMetaLogInterval
	}
	return c
}
