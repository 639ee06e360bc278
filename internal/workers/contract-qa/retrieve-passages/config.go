// internal/workers/contract-qa/retrieve-passages/config.go
package retrievepassages

import "time"

type Config struct {
	TopK          int
	SearchTimeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		TopK:          12,
		SearchTimeout: 5 * time.Second,
	}
}
