package export

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/deepsearch/ai/core/llm"
	"github.com/hrygo/deepsearch/ai/session"
)

func sampleTask() *session.Task {
	created := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	return &session.Task{
		ID:          "task-1",
		Query:       "quantum computing progress",
		Status:      session.StatusCompleted,
		FinalAnswer: "Answer with [IBM](https://ibm.com/q) citation.",
		Rounds:      2,
		CreatedAt:   created,
		FinishedAt:  created.Add(90 * time.Second),
		Results: []session.SearchResult{
			{
				Query:     "quantum hardware 2026",
				Content:   "content a",
				Success:   true,
				Citations: []llm.Citation{{Title: "IBM", URL: "https://ibm.com/q"}},
				URLs:      []string{"https://ibm.com/q"},
			},
			{
				Query:   "failed query",
				Success: false,
				Error:   "timeout",
				URLs:    []string{"https://should-not-appear.example"},
			},
			{
				Query:     "error correction advances",
				Content:   "content b",
				Success:   true,
				Citations: []llm.Citation{{Title: "Nature", URL: "https://nature.com/ec"}},
				URLs:      []string{"https://nature.com/ec", "https://ibm.com/q"},
			},
		},
	}
}

func TestFromTaskAggregates(t *testing.T) {
	r := FromTask(sampleTask(), "trace-xyz")

	assert.Equal(t, "task-1", r.TaskID)
	assert.Equal(t, "trace-xyz", r.TraceID)
	assert.Equal(t, 3, r.SearchCount)
	assert.Equal(t, 2, r.Rounds)
	assert.Equal(t, int64(90000), r.DurationMs)
	// Failed results contribute nothing; URLs deduplicate in order.
	assert.Equal(t, []string{"https://ibm.com/q", "https://nature.com/ec"}, r.SourceURLs)
	assert.Len(t, r.Citations, 2)
}

func TestSerializeRoundTrip(t *testing.T) {
	orig := FromTask(sampleTask(), "trace-xyz")

	data, err := orig.Serialize()
	require.NoError(t, err)

	restored, err := Deserialize(data)
	require.NoError(t, err)

	again, err := restored.Serialize()
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))

	assert.Equal(t, orig.TaskID, restored.TaskID)
	assert.Equal(t, orig.FinalAnswer, restored.FinalAnswer)
	assert.Equal(t, orig.SourceURLs, restored.SourceURLs)
}

func TestDeserializeRejectsGarbage(t *testing.T) {
	_, err := Deserialize([]byte("not json at all"))
	require.Error(t, err)
}

func TestMarkdownReport(t *testing.T) {
	r := FromTask(sampleTask(), "")
	report := MarkdownReport(r)

	assert.True(t, strings.HasPrefix(report, "# Research Report"))
	assert.Contains(t, report, "quantum computing progress")
	assert.Contains(t, report, "[IBM](https://ibm.com/q)")
	assert.Contains(t, report, "[Nature](https://nature.com/ec)")
	assert.Contains(t, report, "Generated at ")
}

func TestMarkdownReportFailedTask(t *testing.T) {
	task := sampleTask()
	task.Status = session.StatusFailed
	task.FinalAnswer = ""
	task.FailReason = "provider unavailable"

	report := MarkdownReport(FromTask(task, ""))
	assert.Contains(t, report, "provider unavailable")
}

func TestFromSession(t *testing.T) {
	s := session.NewSession()
	_, err := s.StartTask("q1")
	require.NoError(t, err)
	s.CompleteTask("a1")
	_, err = s.StartTask("q2")
	require.NoError(t, err)

	dump := FromSession(s)
	require.NotNil(t, dump.Active)
	assert.Equal(t, "q2", dump.Active.Query)
	require.Len(t, dump.History, 1)
	assert.Equal(t, "q1", dump.History[0].Query)

	_, err = dump.Serialize()
	require.NoError(t, err)
}
