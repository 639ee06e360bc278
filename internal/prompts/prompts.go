// Package prompts builds the instructions sent to the language model by each
// pipeline stage.
package prompts

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"contract-qa/internal/models"

	"gopkg.in/yaml.v3"
)

// Set holds one template per stage. Empty fields in an override file keep
// the defaults.
type Set struct {
	Supervisor string `yaml:"supervisor" json:"supervisor"`
	Retriever  string `yaml:"retriever" json:"retriever"`
	Analyst    string `yaml:"analyst" json:"analyst"`
	Summarizer string `yaml:"summarizer" json:"summarizer"`
}

func Defaults() Set {
	return Set{
		Supervisor: defaultSupervisor,
		Retriever:  defaultRetriever,
		Analyst:    defaultAnalyst,
		Summarizer: defaultSummarizer,
	}
}

// Load reads a YAML override file on top of the defaults. An empty path
// returns the defaults.
func Load(path string) (Set, error) {
	set := Defaults()
	if path == "" {
		return set, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return set, fmt.Errorf("read prompts file: %w", err)
	}

	var override Set
	if err := yaml.Unmarshal(data, &override); err != nil {
		return set, fmt.Errorf("parse prompts file: %w", err)
	}

	if s := strings.TrimSpace(override.Supervisor); s != "" {
		set.Supervisor = s
	}
	if s := strings.TrimSpace(override.Retriever); s != "" {
		set.Retriever = s
	}
	if s := strings.TrimSpace(override.Analyst); s != "" {
		set.Analyst = s
	}
	if s := strings.TrimSpace(override.Summarizer); s != "" {
		set.Summarizer = s
	}
	return set, nil
}

// WithSummaryWordLimit rewrites the advisory length line of the summarizer
// template.
func (s Set) WithSummaryWordLimit(words int) Set {
	if words > 0 {
		s.Summarizer = strings.ReplaceAll(s.Summarizer, "Keep under 500 words", "Keep under "+strconv.Itoa(words)+" words")
	}
	return s
}

// RouterPrompt embeds the latest message into the classification instruction.
func (s Set) RouterPrompt(message string) string {
	var b strings.Builder
	b.WriteString(s.Supervisor)
	b.WriteString("\n\nUser query: ")
	b.WriteString(message)
	b.WriteString("\n\nBased on the query, decide which agent should handle this:\n")
	b.WriteString("- \"retriever\" - for finding information in contracts\n")
	b.WriteString("- \"analyst\" - for analyzing contract terms\n")
	b.WriteString("- \"summarizer\" - for summarizing contracts\n")
	b.WriteString("- \"end\" - if the query has been fully answered\n\n")
	labels := make([]string, len(models.Decisions))
	for i, d := range models.Decisions {
		labels[i] = d.String()
	}
	b.WriteString("Respond with ONLY the agent name (" + strings.Join(labels, "/") + ").")
	return b.String()
}

func (s Set) AnalystPrompt(question, retrieved string) string {
	return s.Analyst + "\n\nUser's Question: " + question +
		"\n\nRetrieved Contract Information:\n" + retrieved +
		"\n\nAnswer the user's question directly and concisely based on the retrieved information above."
}

func (s Set) SummarizerPrompt(text string) string {
	return s.Summarizer + "\n\nContract Text:\n" + text +
		"\n\nPlease provide a comprehensive yet concise summary of this contract."
}
