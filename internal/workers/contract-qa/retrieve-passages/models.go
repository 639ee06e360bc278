// internal/workers/contract-qa/retrieve-passages/models.go
package retrievepassages

import "contract-qa/internal/models"

type Input struct {
	Query string `json:"query"`
}

type Output struct {
	Retrieval *models.Retrieval `json:"retrieval"`
	// Retrieved is the rendered text handed to the next stage.
	Retrieved   string   `json:"retrieved"`
	Customers   []string `json:"customers"`
	Fingerprint string   `json:"fingerprint"`
}
