// internal/workers/contract-qa/analyze-contract/models.go
package analyzecontract

import "contract-qa/internal/models"

type Input struct {
	Question  string            `json:"question"`
	Retrieval *models.Retrieval `json:"retrieval"`
}

type Output struct {
	Answer string `json:"answer"`
	// Evidence is the number of passages shown to the model.
	Evidence int `json:"evidence"`
}
