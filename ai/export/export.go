// Package export renders finished research tasks as portable artifacts:
// a stable JSON form for machine consumers and a Markdown report for
// humans. Serialization is lossless so results survive a round trip.
package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hrygo/deepsearch/ai/core/llm"
	"github.com/hrygo/deepsearch/ai/session"
)

// TaskResult is the exportable outcome of one research task.
type TaskResult struct {
	TaskID      string             `json:"task_id"`
	TraceID     string             `json:"trace_id,omitempty"`
	UserQuery   string             `json:"user_query"`
	Status      session.TaskStatus `json:"status"`
	FinalAnswer string             `json:"final_answer,omitempty"`
	FailReason  string             `json:"fail_reason,omitempty"`
	Citations   []llm.Citation     `json:"citations,omitempty"`
	SourceURLs  []string           `json:"source_urls,omitempty"`
	Rounds      int                `json:"rounds"`
	SearchCount int                `json:"search_count"`
	DurationMs  int64              `json:"duration_ms"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// FromTask builds a TaskResult from a terminal task snapshot. Citations and
// URLs are aggregated across all successful searches.
func FromTask(t *session.Task, traceID string) *TaskResult {
	r := &TaskResult{
		TaskID:      t.ID,
		TraceID:     traceID,
		UserQuery:   t.Query,
		Status:      t.Status,
		FinalAnswer: t.FinalAnswer,
		FailReason:  t.FailReason,
		Rounds:      t.Rounds,
		SearchCount: len(t.Results),
		GeneratedAt: time.Now(),
	}
	if !t.FinishedAt.IsZero() {
		r.DurationMs = t.FinishedAt.Sub(t.CreatedAt).Milliseconds()
	}

	seen := make(map[string]struct{})
	for _, sr := range t.Results {
		if !sr.Success {
			continue
		}
		r.Citations = append(r.Citations, sr.Citations...)
		for _, u := range sr.URLs {
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			r.SourceURLs = append(r.SourceURLs, u)
		}
	}
	return r
}

// Serialize renders the result as indented JSON.
func (r *TaskResult) Serialize() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serialize task result: %w", err)
	}
	return data, nil
}

// Deserialize parses a serialized TaskResult.
func Deserialize(data []byte) (*TaskResult, error) {
	var r TaskResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("deserialize task result: %w", err)
	}
	return &r, nil
}

// MarkdownReport renders the result as a human-readable report with a
// source list and generation timestamp.
func MarkdownReport(r *TaskResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Research Report\n\n")
	fmt.Fprintf(&b, "**Question:** %s\n\n", r.UserQuery)
	fmt.Fprintf(&b, "**Status:** %s | **Rounds:** %d | **Searches:** %d\n\n", r.Status, r.Rounds, r.SearchCount)

	b.WriteString("## Answer\n\n")
	switch {
	case r.FinalAnswer != "":
		b.WriteString(r.FinalAnswer)
		b.WriteString("\n")
	case r.FailReason != "":
		fmt.Fprintf(&b, "_Task did not complete: %s_\n", r.FailReason)
	default:
		b.WriteString("_No answer was produced._\n")
	}

	if len(r.SourceURLs) > 0 {
		b.WriteString("\n## Sources\n\n")
		titles := make(map[string]string, len(r.Citations))
		for _, c := range r.Citations {
			if _, ok := titles[c.URL]; !ok && c.Title != "" {
				titles[c.URL] = c.Title
			}
		}
		for i, u := range r.SourceURLs {
			title := titles[u]
			if title == "" {
				title = u
			}
			fmt.Fprintf(&b, "%d. [%s](%s)\n", i+1, title, u)
		}
	}

	fmt.Fprintf(&b, "\n---\n\nGenerated at %s\n", r.GeneratedAt.Format(time.RFC3339))
	return b.String()
}

// SessionExport is a full dump of session state for archival.
type SessionExport struct {
	Statistics session.Statistics `json:"statistics"`
	Active     *session.Task      `json:"active_task,omitempty"`
	History    []*session.Task    `json:"history,omitempty"`
	ExportedAt time.Time          `json:"exported_at"`
}

// FromSession snapshots the whole session.
func FromSession(s *session.Session) *SessionExport {
	return &SessionExport{
		Statistics: s.Stats(),
		Active:     s.ActiveSnapshot(),
		History:    s.History(),
		ExportedAt: time.Now(),
	}
}

// Serialize renders the session export as indented JSON.
func (e *SessionExport) Serialize() ([]byte, error) {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serialize session export: %w", err)
	}
	return data, nil
}
