// internal/workers/contract-qa/run-turn/config.go
package runturn

import "time"

type Config struct {
	// Timeout bounds a whole turn, all stages included.
	Timeout    time.Duration
	SessionTTL time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout:    120 * time.Second,
		SessionTTL: 24 * time.Hour,
	}
}
