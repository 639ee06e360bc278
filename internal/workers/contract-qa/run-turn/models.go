// internal/workers/contract-qa/run-turn/models.go
package runturn

import "contract-qa/internal/models"

type Input struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

type Output struct {
	Answer    string          `json:"answer"`
	Decision  models.Decision `json:"decision"`
	SessionID string          `json:"sessionId"`
	TurnCount int             `json:"turnCount"`
}

// Result is the outcome of one run of the state machine.
type Result struct {
	Transcript models.Transcript `json:"transcript"`
	Decision   models.Decision   `json:"decision"`
	// Retrieval is set when the retriever ran during this turn.
	Retrieval *models.Retrieval `json:"retrieval,omitempty"`
	// Answer is the content of the last turn appended by a responder; empty
	// for DecisionEnd.
	Answer string `json:"answer"`
	// Start is the index of this turn's user message in Transcript.
	Start int `json:"start"`
}

// Appended returns the turns added after the user message.
func (r *Result) Appended(before int) []models.Turn {
	if before+1 >= len(r.Transcript) {
		return nil
	}
	return r.Transcript[before+1:]
}

// Turns returns this turn's messages, starting with the user message.
func (r *Result) Turns() []models.Turn {
	return r.Transcript[r.Start:]
}
