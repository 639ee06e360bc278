package models

import "strings"

// Decision is the routing label chosen for a turn.
type Decision string

const (
	DecisionRetriever  Decision = "retriever"
	DecisionAnalyst    Decision = "analyst"
	DecisionSummarizer Decision = "summarizer"
	DecisionEnd        Decision = "end"
)

// Decisions lists the labels in the order the router prompt presents them.
var Decisions = []Decision{DecisionRetriever, DecisionAnalyst, DecisionSummarizer, DecisionEnd}

// ParseDecision normalizes a router reply. Only surrounding whitespace and
// case are forgiven: a reply that is not exactly one label, punctuation
// included, maps to DecisionRetriever with ok false.
func ParseDecision(raw string) (d Decision, ok bool) {
	label := strings.ToLower(strings.TrimSpace(raw))
	switch Decision(label) {
	case DecisionRetriever, DecisionAnalyst, DecisionSummarizer, DecisionEnd:
		return Decision(label), true
	}
	return DecisionRetriever, false
}

func (d Decision) String() string {
	return string(d)
}
