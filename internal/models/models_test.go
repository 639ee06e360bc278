package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecision(t *testing.T) {
	tests := []struct {
		raw    string
		want   Decision
		wantOK bool
	}{
		{"retriever", DecisionRetriever, true},
		{"  Analyst\n", DecisionAnalyst, true},
		{"SUMMARIZER", DecisionSummarizer, true},
		{"summarizer.", DecisionRetriever, false},
		{"\"end\"", DecisionRetriever, false},
		{"**analyst**", DecisionRetriever, false},
		{"`end`", DecisionRetriever, false},
		{"banana", DecisionRetriever, false},
		{"", DecisionRetriever, false},
		{"analyst, then summarizer", DecisionRetriever, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseDecision(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestProvenanceAnnotation(t *testing.T) {
	p := Provenance{CustomerTag: "Tesla", SourceFile: "tesla_rates.xlsx", SheetName: "Rates"}
	assert.Equal(t, "[Customer: Tesla | File: tesla_rates.xlsx | Sheet: Rates]", p.Annotation())

	p.SheetName = ""
	assert.Equal(t, "[Customer: Tesla | File: tesla_rates.xlsx]", p.Annotation())
}

func TestPassageNormalize(t *testing.T) {
	p := Passage{Text: "  body  "}
	require.True(t, p.Normalize())
	assert.Equal(t, "body", p.Text)
	assert.Equal(t, UnknownCustomer, p.CustomerTag)
	assert.Equal(t, UnknownCustomer, p.SourceFile)

	empty := Passage{Text: " \n "}
	assert.False(t, empty.Normalize())
}

func TestRetrievalRender(t *testing.T) {
	r := &Retrieval{
		Status: RetrievalOK,
		Passages: []ScoredPassage{
			{Passage: Passage{ID: "1", Text: "98% on-time", Provenance: Provenance{CustomerTag: "Tesla", SourceFile: "a.pdf"}}, Score: 0.9},
			{Passage: Passage{ID: "2", Text: "95% on-time", Provenance: Provenance{CustomerTag: "Barry Callebaut", SourceFile: "b.xlsx", SheetName: "KPI"}}, Score: 0.8},
		},
	}

	out := r.Render()
	assert.Equal(t,
		"[Customer: Tesla | File: a.pdf]\n98% on-time\n\n[Customer: Barry Callebaut | File: b.xlsx | Sheet: KPI]\n95% on-time",
		out)
	assert.Equal(t, []string{"Tesla", "Barry Callebaut"}, r.Customers())

	assert.Equal(t, NoContractsLoaded, (&Retrieval{Status: RetrievalNotReady}).Render())
	assert.Equal(t, NoRelevantPassages, (&Retrieval{Status: RetrievalEmpty}).Render())
	assert.Equal(t, "Error retrieving information: boom", (&Retrieval{Status: RetrievalFailed, Error: "boom"}).Render())
}

func TestRetrievalFingerprint(t *testing.T) {
	a := &Retrieval{Status: RetrievalOK, Passages: []ScoredPassage{{Passage: Passage{ID: "1", Text: "x"}}}}
	b := &Retrieval{Status: RetrievalOK, Passages: []ScoredPassage{{Passage: Passage{ID: "1", Text: "x"}}}}
	c := &Retrieval{Status: RetrievalOK, Passages: []ScoredPassage{{Passage: Passage{ID: "2", Text: "x"}}}}

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestTranscript(t *testing.T) {
	var tr Transcript
	next := tr.Append(UserTurn("hi"))
	assert.Len(t, tr, 0)
	require.Len(t, next, 1)

	r := &Retrieval{Status: RetrievalOK, Passages: []ScoredPassage{{Passage: Passage{ID: "1", Text: "x", Provenance: Provenance{CustomerTag: "Tesla", SourceFile: "t.pdf"}}}}}
	next = next.Append(RetrievalTurn(r), AssistantTurn("answer"), UserTurn("again"))

	assert.Equal(t, "again", next.LatestUserMessage())
	turn, ok := next.LatestRetrieval()
	require.True(t, ok)
	assert.Equal(t, RetrievedInfoHeader+"[Customer: Tesla | File: t.pdf]\nx", turn.Content)
	assert.Same(t, r, turn.Retrieval)

	last, ok := next.Last()
	require.True(t, ok)
	assert.Equal(t, RoleUser, last.Role)
}

func TestRetrievalTurnSentinel(t *testing.T) {
	turn := RetrievalTurn(&Retrieval{Status: RetrievalNotReady})
	assert.Equal(t, NoContractsLoaded, turn.Content)
	assert.True(t, turn.IsRetrieval())
}
