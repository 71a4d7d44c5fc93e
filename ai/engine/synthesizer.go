package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hrygo/deepsearch/ai/core/llm"
	"github.com/hrygo/deepsearch/ai/models"
	"github.com/hrygo/deepsearch/ai/prompts"
	"github.com/hrygo/deepsearch/ai/session"
)

// Synthesizer turns gathered search evidence into the final cited answer.
type Synthesizer struct {
	gateway llm.Service
}

// NewSynthesizer creates a Synthesizer over the given gateway.
func NewSynthesizer(gateway llm.Service) *Synthesizer {
	return &Synthesizer{gateway: gateway}
}

// Synthesize produces the answer text. It always returns something usable:
// with no evidence it says so, and when the gateway fails it concatenates
// the raw evidence instead of losing the task.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, results []session.SearchResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("No information could be found for: %s\n\nAll search attempts failed or returned nothing. Try rephrasing the question or lowering its scope.", query)
	}

	summaries := make([]string, 0, len(results))
	for _, r := range results {
		var cites []string
		for i, c := range r.Citations {
			if i >= 3 {
				break
			}
			cites = append(cites, fmt.Sprintf("%s: %s", c.Title, c.URL))
		}
		summaries = append(summaries, prompts.SearchSummary(r.Query, r.Content, cites))
	}

	result, err := s.gateway.Generate(ctx, models.RoleAnswer, prompts.AnswerSynthesis(query, summaries), llm.Options{})
	if err != nil || strings.TrimSpace(result.Text) == "" {
		slog.Warn("engine: answer synthesis failed, returning raw evidence", "error", err)
		return s.fallbackAnswer(query, results)
	}

	return result.Text
}

// fallbackAnswer renders the evidence directly when synthesis is
// unavailable.
func (s *Synthesizer) fallbackAnswer(query string, results []session.SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Research Results for: %s\n\n", query)
	b.WriteString("The answer model was unavailable; the collected evidence follows.\n")

	for _, r := range results {
		b.WriteString("\n---\n\n")
		fmt.Fprintf(&b, "## %s\n\n", r.Query)
		b.WriteString(r.Content)
		b.WriteString("\n")
		for _, c := range r.Citations {
			fmt.Fprintf(&b, "- [%s](%s)\n", c.Title, c.URL)
		}
	}
	return b.String()
}
