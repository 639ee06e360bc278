// internal/workers/contract-qa/summarize-contract/config.go
package summarizecontract

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 60 * time.Second,
	}
}
