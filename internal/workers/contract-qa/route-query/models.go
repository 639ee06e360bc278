// internal/workers/contract-qa/route-query/models.go
package routequery

import "contract-qa/internal/models"

type Input struct {
	Message string `json:"message"`
}

type Output struct {
	Decision models.Decision `json:"decision"`
	// RawReply is the model's reply before normalization; empty when the
	// model call failed.
	RawReply string `json:"rawReply"`
	Fallback bool   `json:"fallback"`
}
