// internal/workers/contract-qa/summarize-contract/models.go
package summarizecontract

type Input struct {
	Text string `json:"text"`
}

type Output struct {
	Summary string `json:"summary"`
}
