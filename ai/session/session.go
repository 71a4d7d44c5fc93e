// Package session holds the in-memory state of a research session: the
// active task, its accumulated search evidence and reflections, a bounded
// history of finished tasks, and running statistics.
//
// The engine is the only writer. HTTP handlers and exporters read through
// snapshot accessors; nothing here touches the network or disk.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hrygo/deepsearch/ai/core/llm"
)

// TaskStatus is the lifecycle state of a research task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusAnalyzing  TaskStatus = "analyzing"
	StatusSearching  TaskStatus = "searching"
	StatusReflecting TaskStatus = "reflecting"
	StatusGenerating TaskStatus = "generating"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
	StatusCancelled  TaskStatus = "cancelled"
)

// Terminal reports whether the status is final. A task reaches exactly one
// terminal status.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// TaskProfile is the classification result that shaped the workflow.
type TaskProfile struct {
	TaskType               string `json:"task_type"`
	Complexity             string `json:"complexity"`
	RequiresSearch         bool   `json:"requires_search"`
	RequiresMultipleRounds bool   `json:"requires_multiple_rounds"`
	EstimatedSteps         int    `json:"estimated_steps"`
	EstimatedTime          string `json:"estimated_time,omitempty"`
	Reasoning              string `json:"reasoning,omitempty"`
	Fallback               bool   `json:"fallback,omitempty"`
}

// SearchResult is the outcome of one search query within a round.
// Failed queries are recorded too; they carry Error and no content.
type SearchResult struct {
	Query        string         `json:"query"`
	Content      string         `json:"content"`
	Citations    []llm.Citation `json:"citations,omitempty"`
	URLs         []string       `json:"urls,omitempty"`
	HasGrounding bool           `json:"has_grounding"`
	Round        int            `json:"round"`
	Success      bool           `json:"success"`
	Error        string         `json:"error,omitempty"`
	DurationMs   int64          `json:"duration_ms"`
	Timestamp    time.Time      `json:"timestamp"`
}

// ReflectionVerdict is one sufficiency judgment over the evidence so far.
type ReflectionVerdict struct {
	IsSufficient    bool     `json:"is_sufficient"`
	KnowledgeGap    string   `json:"knowledge_gap,omitempty"`
	FollowUpQueries []string `json:"follow_up_queries,omitempty"`
	Round           int      `json:"round"`
}

// Task is one research task from submission to terminal status.
type Task struct {
	ID          string              `json:"id"`
	Query       string              `json:"query"`
	Status      TaskStatus          `json:"status"`
	Profile     *TaskProfile        `json:"profile,omitempty"`
	Results     []SearchResult      `json:"results,omitempty"`
	Reflections []ReflectionVerdict `json:"reflections,omitempty"`
	FinalAnswer string              `json:"final_answer,omitempty"`
	FailReason  string              `json:"fail_reason,omitempty"`
	Rounds      int                 `json:"rounds"`

	// Workflow progress. CurrentStep is empty on terminal tasks.
	CurrentStep    string `json:"current_step,omitempty"`
	CompletedSteps int    `json:"completed_steps"`
	TotalSteps     int    `json:"total_steps"`

	CreatedAt  time.Time `json:"created_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}

// Statistics summarizes the session across tasks.
type Statistics struct {
	TotalTasks        int       `json:"total_tasks"`
	SuccessfulTasks   int       `json:"successful_tasks"`
	TotalSearches     int       `json:"total_searches"`
	AvgTaskDurationMs int64     `json:"average_task_duration_ms"`
	SessionStart      time.Time `json:"session_start_time"`
}

// maxHistory bounds the archived-task list.
const maxHistory = 20

// Session owns one active task and a bounded history. All methods are safe
// for concurrent use.
type Session struct {
	mu      sync.Mutex
	active  *Task
	history []*Task
	stats   Statistics
}

// NewSession creates an empty session.
func NewSession() *Session {
	return &Session{
		stats: Statistics{SessionStart: time.Now()},
	}
}

// ErrTaskActive is returned by StartTask while a non-terminal task exists.
type ErrTaskActive struct {
	TaskID string
}

func (e *ErrTaskActive) Error() string {
	return "a research task is already active: " + e.TaskID
}

// StartTask creates a new pending task and makes it active. The previous
// task, if terminal, is archived to history; if it is still running,
// StartTask refuses.
func (s *Session) StartTask(query string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil && !s.active.Status.Terminal() {
		return "", &ErrTaskActive{TaskID: s.active.ID}
	}

	if s.active != nil {
		s.archiveLocked(s.active)
	}

	s.active = &Task{
		ID:        uuid.NewString(),
		Query:     query,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
	return s.active.ID, nil
}

func (s *Session) archiveLocked(t *Task) {
	s.history = append(s.history, t)
	if len(s.history) > maxHistory {
		s.history = s.history[len(s.history)-maxHistory:]
	}
}

// SetProfile records the classification result on the active task.
func (s *Session) SetProfile(p *TaskProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		s.active.Profile = p
	}
}

// SetTotalSteps records how many workflow steps the plan holds.
func (s *Session) SetTotalSteps(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		s.active.TotalSteps = n
	}
}

// SetStep marks the workflow step the active task is entering. The step it
// leaves counts as completed.
func (s *Session) SetStep(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil || s.active.Status.Terminal() {
		return
	}
	if s.active.CurrentStep != "" {
		s.active.CompletedSteps++
	}
	s.active.CurrentStep = name
}

// SetStatus moves the active task to a non-terminal phase. Terminal
// transitions go through CompleteTask/FailTask/CancelTask so statistics
// stay consistent.
func (s *Session) SetStatus(status TaskStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil || s.active.Status.Terminal() {
		return
	}
	s.active.Status = status
}

// AddSearchResult appends a result to the active task and bumps the search
// counter.
func (s *Session) AddSearchResult(r SearchResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return
	}
	s.active.Results = append(s.active.Results, r)
	if r.Round > s.active.Rounds {
		s.active.Rounds = r.Round
	}
	s.stats.TotalSearches++
}

// AddReflection appends a reflection verdict to the active task.
func (s *Session) AddReflection(v ReflectionVerdict) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return
	}
	s.active.Reflections = append(s.active.Reflections, v)
}

// CompleteTask finishes the active task successfully.
func (s *Session) CompleteTask(answer string) {
	s.finish(StatusCompleted, func(t *Task) {
		t.FinalAnswer = answer
		s.stats.SuccessfulTasks++
	})
}

// FailTask finishes the active task with an error.
func (s *Session) FailTask(reason string) {
	s.finish(StatusFailed, func(t *Task) {
		t.FailReason = reason
	})
}

// CancelTask finishes the active task as cancelled.
func (s *Session) CancelTask() {
	s.finish(StatusCancelled, nil)
}

func (s *Session) finish(status TaskStatus, apply func(*Task)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil || s.active.Status.Terminal() {
		return
	}

	t := s.active
	t.Status = status
	t.FinishedAt = time.Now()
	if t.CurrentStep != "" {
		// Only a completed run finishes its last step; cancellation and
		// failure abandon it.
		if status == StatusCompleted {
			t.CompletedSteps++
		}
		t.CurrentStep = ""
	}
	if apply != nil {
		apply(t)
	}

	s.stats.TotalTasks++
	duration := t.FinishedAt.Sub(t.CreatedAt).Milliseconds()
	n := int64(s.stats.TotalTasks)
	s.stats.AvgTaskDurationMs = (s.stats.AvgTaskDurationMs*(n-1) + duration) / n
}

// ActiveSnapshot returns a copy of the active task, or nil.
func (s *Session) ActiveSnapshot() *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneTask(s.active)
}

// TaskByID returns a copy of the task with the given ID, searching the
// active task first, then history.
func (s *Session) TaskByID(id string) (*Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil && s.active.ID == id {
		return cloneTask(s.active), true
	}
	for _, t := range s.history {
		if t.ID == id {
			return cloneTask(t), true
		}
	}
	return nil, false
}

func cloneTask(t *Task) *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.Results = append([]SearchResult(nil), t.Results...)
	c.Reflections = append([]ReflectionVerdict(nil), t.Reflections...)
	if t.Profile != nil {
		p := *t.Profile
		c.Profile = &p
	}
	return &c
}

// SuccessfulResults returns copies of the active task's successful search
// results in arrival order.
func (s *Session) SuccessfulResults() []SearchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil
	}

	var out []SearchResult
	for _, r := range s.active.Results {
		if r.Success {
			out = append(out, r)
		}
	}
	return out
}

// ContentLength returns the total character count of successful search
// content, the quantity the loop's safety-net thresholds measure.
func (s *Session) ContentLength() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return 0
	}

	total := 0
	for _, r := range s.active.Results {
		if r.Success {
			total += len(r.Content)
		}
	}
	return total
}

// AllCitations returns every citation gathered by the active task.
func (s *Session) AllCitations() []llm.Citation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil
	}

	var out []llm.Citation
	for _, r := range s.active.Results {
		out = append(out, r.Citations...)
	}
	return out
}

// UniqueURLs returns the deduplicated source URLs of the active task,
// preserving first-seen order.
func (s *Session) UniqueURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil
	}

	seen := make(map[string]struct{})
	var out []string
	for _, r := range s.active.Results {
		for _, u := range r.URLs {
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			out = append(out, u)
		}
	}
	return out
}

// Stats returns a copy of the session statistics.
func (s *Session) Stats() Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// History returns copies of archived tasks, oldest first.
func (s *Session) History() []*Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Task, 0, len(s.history))
	for _, t := range s.history {
		out = append(out, cloneTask(t))
	}
	return out
}

// Clear drops all tasks and resets statistics. Refuses while a task runs.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil && !s.active.Status.Terminal() {
		return &ErrTaskActive{TaskID: s.active.ID}
	}

	s.active = nil
	s.history = nil
	s.stats = Statistics{SessionStart: time.Now()}
	return nil
}
