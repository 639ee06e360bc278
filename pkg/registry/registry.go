// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
)

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Validate rejects activities without a task type and duplicate task types.
func (r *ActivityRegistry) Validate() error {
	seen := make(map[string]bool)
	for i, a := range r.Activities {
		if a.TaskType == "" {
			return fmt.Errorf("activity %d (%s) has no taskType", i, a.ID)
		}
		if seen[a.TaskType] {
			return fmt.Errorf("duplicate taskType %s", a.TaskType)
		}
		seen[a.TaskType] = true
	}
	return nil
}

func (r *ActivityRegistry) Find(taskType string) (Activity, bool) {
	for _, a := range r.Activities {
		if a.TaskType == taskType {
			return a, true
		}
	}
	return Activity{}, false
}

func (r *ActivityRegistry) TaskTypes() []string {
	out := make([]string, len(r.Activities))
	for i, a := range r.Activities {
		out[i] = a.TaskType
	}
	return out
}

func str(maxLen int) map[string]interface{} {
	s := map[string]interface{}{"type": "string", "minLength": 1}
	if maxLen > 0 {
		s["maxLength"] = maxLen
	}
	return s
}

func object(required []string, props map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{"type": "object", "properties": props, "required": required}
}

// Default lists the job types served by the contract QA workers.
func Default() *ActivityRegistry {
	return &ActivityRegistry{
		Version:     "1.0.0",
		LastUpdated: "2026-10-01",
		Activities: []Activity{
			{
				ID:           "contract-qa-turn",
				DisplayName:  "Run Contract QA Turn",
				Description:  "Runs one conversation turn against the contract store and saves the session",
				Category:     "contract-qa",
				Version:      "1.0.0",
				TaskType:     "contract-qa-turn",
				InputSchema:  object([]string{"sessionId", "message"}, map[string]interface{}{"sessionId": str(128), "message": str(8000)}),
				OutputSchema: object(nil, map[string]interface{}{"answer": str(0), "decision": str(0), "sessionId": str(0), "turnCount": map[string]interface{}{"type": "integer"}}),
				ErrorCodes:   []string{"INVALID_REQUEST", "SESSION_STORE_FAILED"},
				Timeout:      "120s",
				Retries:      2,
				Tags:         []string{"orchestrator"},
			},
			{
				ID:           "contract-qa-route",
				DisplayName:  "Route Contract Query",
				Description:  "Classifies a message as retriever, analyst, summarizer or end",
				Category:     "contract-qa",
				Version:      "1.0.0",
				TaskType:     "contract-qa-route",
				InputSchema:  object([]string{"message"}, map[string]interface{}{"message": str(8000)}),
				OutputSchema: object(nil, map[string]interface{}{"decision": str(0), "fallback": map[string]interface{}{"type": "boolean"}}),
				ErrorCodes:   []string{"MALFORMED_ROUTER_OUTPUT"},
				Timeout:      "30s",
				Retries:      3,
				Tags:         []string{"llm"},
			},
			{
				ID:           "contract-qa-retrieve",
				DisplayName:  "Retrieve Contract Passages",
				Description:  "Searches the passage store and returns ranked passages with provenance",
				Category:     "contract-qa",
				Version:      "1.0.0",
				TaskType:     "contract-qa-retrieve",
				InputSchema:  object([]string{"query"}, map[string]interface{}{"query": str(8000)}),
				OutputSchema: object(nil, map[string]interface{}{"retrieved": str(0), "fingerprint": str(0)}),
				ErrorCodes:   []string{"STORE_NOT_READY", "SEARCH_FAILED", "SEARCH_TIMEOUT"},
				Timeout:      "10s",
				Retries:      3,
				Tags:         []string{"search"},
			},
			{
				ID:           "contract-qa-analyze",
				DisplayName:  "Analyze Contract Evidence",
				Description:  "Answers a question from retrieved passages only",
				Category:     "contract-qa",
				Version:      "1.0.0",
				TaskType:     "contract-qa-analyze",
				InputSchema:  object([]string{"question"}, map[string]interface{}{"question": str(8000)}),
				OutputSchema: object(nil, map[string]interface{}{"answer": str(0)}),
				ErrorCodes:   []string{"LLM_TIMEOUT", "LLM_GENERATION_FAILED"},
				Timeout:      "30s",
				Retries:      3,
				Tags:         []string{"llm"},
			},
			{
				ID:           "contract-qa-summarize",
				DisplayName:  "Summarize Contract",
				Description:  "Summarizes contract text in one model call",
				Category:     "contract-qa",
				Version:      "1.0.0",
				TaskType:     "contract-qa-summarize",
				InputSchema:  object([]string{"text"}, map[string]interface{}{"text": str(0)}),
				OutputSchema: object(nil, map[string]interface{}{"summary": str(0)}),
				ErrorCodes:   []string{"LLM_TIMEOUT", "LLM_GENERATION_FAILED"},
				Timeout:      "60s",
				Retries:      3,
				Tags:         []string{"llm"},
			},
		},
	}
}
