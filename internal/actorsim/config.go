package actorsim

import (
	"time"

	"leaguecoord/internal/config"
)

// Config holds configuration for the actor simulator.
type Config struct {
	ActorID        string
	CoordinatorURL string // coordinator event ingress
	ListenAddr     string // own event ingress bind address
	AdvertiseURL   string // reply URL sent in greetings
	EventKey       string
	SendTimeout    time.Duration

	JobDuration    time.Duration // base simulated job duration
	DurationJitter float64       // fraction of JobDuration randomized per job
	WinProbability float64       // chance the launching player wins
	EnvCount       int           // environment groups per data batch
	TrajPerEnv     int           // trajectories per environment group
	MaxJobs        int           // stop after this many jobs; 0 means run forever
}

// LoadConfigFromEnv loads simulator configuration from environment variables.
func LoadConfigFromEnv() *Config {
	return &Config{
		ActorID:        config.GetEnv("ACTOR_ID", "actor-0"),
		CoordinatorURL: config.GetEnv("COORDINATOR_URL", "http://localhost:8080/v1/events"),
		ListenAddr:     config.GetEnv("LISTEN_ADDR", ":8081"),
		AdvertiseURL:   config.GetEnv("ADVERTISE_URL", "http://localhost:8081/v1/events"),
		EventKey:       config.GetEnv("EVENT_KEY", ""),
		SendTimeout:    config.GetDurationEnv("SEND_TIMEOUT", 10*time.Second),
		JobDuration:    config.GetDurationEnv("JOB_DURATION", 2*time.Second),
		DurationJitter: config.GetFloatEnv("DURATION_JITTER", 0.5),
		WinProbability: config.GetFloatEnv("WIN_PROBABILITY", 0.5),
		EnvCount:       config.GetIntEnv("ENV_COUNT", 2),
		TrajPerEnv:     config.GetIntEnv("TRAJ_PER_ENV", 4),
		MaxJobs:        config.GetIntEnv("MAX_JOBS", 0),
	}
}

func (c *Config) withDefaults() *Config {
	if c.ActorID == "" {
		c.ActorID = "actor-0"
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 10 * time.Second
	}
	if c.EnvCount <= 0 {
		c.EnvCount = 1
	}
	if c.TrajPerEnv <= 0 {
		c.TrajPerEnv = 1
	}
	if c.WinProbability < 0 || c.WinProbability > 1 {
		c.WinProbability = 0.5
	}
	return c
}
