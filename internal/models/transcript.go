package models

import "strings"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversation. Retrieval is set only on turns
// produced by the retriever stage and carries the same passages that
// Content renders.
type Turn struct {
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	Retrieval *Retrieval `json:"retrieval,omitempty"`
}

func UserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content}
}

func AssistantTurn(content string) Turn {
	return Turn{Role: RoleAssistant, Content: content}
}

// RetrievalTurn renders r into the transcript form consumed by later stages.
func RetrievalTurn(r *Retrieval) Turn {
	content := r.Render()
	if r.HasEvidence() {
		content = RetrievedInfoHeader + content
	}
	return Turn{Role: RoleAssistant, Content: content, Retrieval: r}
}

// IsRetrieval reports whether the turn was produced by the retriever.
func (t Turn) IsRetrieval() bool {
	if t.Retrieval != nil {
		return true
	}
	return t.Role == RoleAssistant && strings.HasPrefix(t.Content, RetrievedInfoHeader)
}

// Transcript is an ordered, append-only conversation.
type Transcript []Turn

// Append returns a new transcript; the receiver is never mutated.
func (t Transcript) Append(turns ...Turn) Transcript {
	out := make(Transcript, 0, len(t)+len(turns))
	out = append(out, t...)
	return append(out, turns...)
}

func (t Transcript) Last() (Turn, bool) {
	if len(t) == 0 {
		return Turn{}, false
	}
	return t[len(t)-1], true
}

// LatestUserMessage returns the content of the most recent user turn.
func (t Transcript) LatestUserMessage() string {
	for i := len(t) - 1; i >= 0; i-- {
		if t[i].Role == RoleUser {
			return t[i].Content
		}
	}
	return ""
}

// LatestRetrieval returns the most recent retriever turn.
func (t Transcript) LatestRetrieval() (Turn, bool) {
	for i := len(t) - 1; i >= 0; i-- {
		if t[i].IsRetrieval() {
			return t[i], true
		}
	}
	return Turn{}, false
}
