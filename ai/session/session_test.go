package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartTaskRejectsWhileActive(t *testing.T) {
	s := NewSession()

	id, err := s.StartTask("first question")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	_, err = s.StartTask("second question")
	var active *ErrTaskActive
	require.ErrorAs(t, err, &active)
	assert.Equal(t, id, active.TaskID)
}

func TestStartTaskArchivesTerminalTask(t *testing.T) {
	s := NewSession()

	first, err := s.StartTask("q1")
	require.NoError(t, err)
	s.CompleteTask("answer one")

	second, err := s.StartTask("q2")
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	archived, ok := s.TaskByID(first)
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, archived.Status)
	assert.Equal(t, "answer one", archived.FinalAnswer)
}

func TestTerminalStatusIsExclusive(t *testing.T) {
	s := NewSession()
	_, err := s.StartTask("q")
	require.NoError(t, err)

	s.CompleteTask("done")
	s.FailTask("too late")
	s.CancelTask()
	s.SetStatus(StatusSearching)

	task := s.ActiveSnapshot()
	require.NotNil(t, task)
	assert.Equal(t, StatusCompleted, task.Status)
	assert.Empty(t, task.FailReason)
}

func TestStatisticsAccumulate(t *testing.T) {
	s := NewSession()

	_, err := s.StartTask("q1")
	require.NoError(t, err)
	s.AddSearchResult(SearchResult{Query: "a", Content: "x", Success: true, Round: 1})
	s.AddSearchResult(SearchResult{Query: "b", Success: false, Round: 1})
	s.CompleteTask("fine")

	_, err = s.StartTask("q2")
	require.NoError(t, err)
	s.FailTask("provider down")

	stats := s.Stats()
	assert.Equal(t, 2, stats.TotalTasks)
	assert.Equal(t, 1, stats.SuccessfulTasks)
	assert.Equal(t, 2, stats.TotalSearches)
}

func TestContentLengthCountsOnlySuccesses(t *testing.T) {
	s := NewSession()
	_, err := s.StartTask("q")
	require.NoError(t, err)

	s.AddSearchResult(SearchResult{Content: "12345", Success: true, Round: 1})
	s.AddSearchResult(SearchResult{Content: "ignored", Success: false, Round: 1})
	s.AddSearchResult(SearchResult{Content: "678", Success: true, Round: 2})

	assert.Equal(t, 8, s.ContentLength())
	assert.Len(t, s.SuccessfulResults(), 2)

	task := s.ActiveSnapshot()
	assert.Equal(t, 2, task.Rounds)
}

func TestUniqueURLsPreserveOrder(t *testing.T) {
	s := NewSession()
	_, err := s.StartTask("q")
	require.NoError(t, err)

	s.AddSearchResult(SearchResult{Success: true, URLs: []string{"https://a", "https://b"}})
	s.AddSearchResult(SearchResult{Success: true, URLs: []string{"https://b", "https://c"}})

	assert.Equal(t, []string{"https://a", "https://b", "https://c"}, s.UniqueURLs())
}

func TestHistoryBounded(t *testing.T) {
	s := NewSession()

	for i := 0; i < maxHistory+5; i++ {
		_, err := s.StartTask("q")
		require.NoError(t, err)
		s.CompleteTask("a")
	}
	// Active task is the last one; history holds the rest, capped.
	_, err := s.StartTask("final")
	require.NoError(t, err)
	s.CancelTask()

	assert.LessOrEqual(t, len(s.History()), maxHistory)
}

func TestClearRefusesWhileRunning(t *testing.T) {
	s := NewSession()
	_, err := s.StartTask("q")
	require.NoError(t, err)

	require.Error(t, s.Clear())

	s.CancelTask()
	require.NoError(t, s.Clear())
	assert.Nil(t, s.ActiveSnapshot())
	assert.Equal(t, 0, s.Stats().TotalTasks)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewSession()
	_, err := s.StartTask("q")
	require.NoError(t, err)
	s.AddSearchResult(SearchResult{Query: "a", Success: true})

	snap := s.ActiveSnapshot()
	snap.Results[0].Query = "mutated"
	snap.Status = StatusFailed

	fresh := s.ActiveSnapshot()
	assert.Equal(t, "a", fresh.Results[0].Query)
	assert.Equal(t, StatusPending, fresh.Status)
}

func TestStepProgress(t *testing.T) {
	s := NewSession()
	_, err := s.StartTask("q")
	require.NoError(t, err)

	s.SetTotalSteps(3)
	s.SetStep("generate_queries")

	snap := s.ActiveSnapshot()
	assert.Equal(t, "generate_queries", snap.CurrentStep)
	assert.Equal(t, 0, snap.CompletedSteps)
	assert.Equal(t, 3, snap.TotalSteps)

	s.SetStep("execute_search")
	snap = s.ActiveSnapshot()
	assert.Equal(t, "execute_search", snap.CurrentStep)
	assert.Equal(t, 1, snap.CompletedSteps)

	s.CompleteTask("done")
	snap = s.ActiveSnapshot()
	assert.Empty(t, snap.CurrentStep)
	assert.Equal(t, 2, snap.CompletedSteps)
}

func TestStepProgressAbandonedOnCancel(t *testing.T) {
	s := NewSession()
	_, err := s.StartTask("q")
	require.NoError(t, err)

	s.SetTotalSteps(3)
	s.SetStep("generate_queries")
	s.CancelTask()

	snap := s.ActiveSnapshot()
	assert.Empty(t, snap.CurrentStep)
	assert.Equal(t, 0, snap.CompletedSteps, "an interrupted step is not completed")

	// Terminal tasks ignore further step updates.
	s.SetStep("execute_search")
	assert.Empty(t, s.ActiveSnapshot().CurrentStep)
}
