// Package config provides configuration loading from environment variables.
package config

import (
	"time"
)

// ServiceConfig holds configuration for the coordinator service.
type ServiceConfig struct {
	NodeID            string        // coordinator node identifier, appears in logs and event sources
	Port              string        // HTTP ingress port
	MetricsPort       string        // Prometheus metrics port
	APIKey            string        // bearer token for the read API, empty disables auth
	EventKey          string        // HMAC key for cross-node events, empty disables signing
	RosterPath        string        // league roster YAML file
	ShutdownDrainWait time.Duration // time to wait for load balancer to drain (0 to skip)
}

// LoadServiceConfig loads service configuration from environment variables.
func LoadServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		NodeID:            GetEnv("NODE_ID", "coordinator-0"),
		Port:              GetEnv("PORT", "8080"),
		MetricsPort:       GetEnv("METRICS_PORT", "9090"),
		APIKey:            getSecret("API_KEY"),
		EventKey:          getSecret("EVENT_KEY"),
		RosterPath:        GetEnv("LEAGUE_ROSTER", "league.yaml"),
		ShutdownDrainWait: GetDurationEnv("SHUTDOWN_DRAIN_WAIT", 5*time.Second),
	}
}

// getSecret reads <key>_FILE (Docker/K8s mounted secrets) and falls back to
// the plain environment variable.
func getSecret(key string) string {
	if value := GetSecretFile(GetEnv(key+"_FILE", "")); value != "" {
		return value
	}
	return GetEnv(key, "")
}
