// internal/workers/contract-qa/analyze-contract/config.go
package analyzecontract

import "time"

type Config struct {
	Timeout time.Duration
	// CustomerFilter drops passages of other customers when the question
	// names exactly one of KnownCustomers.
	CustomerFilter bool
	KnownCustomers []string
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
