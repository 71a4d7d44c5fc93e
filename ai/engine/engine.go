// Package engine runs research tasks: it classifies the query, executes
// bounded rounds of web-grounded search with reflection between rounds,
// and synthesizes a cited answer. One task runs at a time per session;
// callers observe it through a TaskHandle.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"golang.org/x/time/rate"

	"github.com/hrygo/deepsearch/ai/core/llm"
	"github.com/hrygo/deepsearch/ai/export"
	"github.com/hrygo/deepsearch/ai/metrics"
	"github.com/hrygo/deepsearch/ai/planner"
	"github.com/hrygo/deepsearch/ai/session"
)

// Config tunes an Engine.
type Config struct {
	// SearchesPerSecond throttles grounded search calls across a task.
	// Zero means one search per second.
	SearchesPerSecond float64

	// EventBuffer is the per-task event channel capacity. Zero means 256.
	EventBuffer int
}

// Engine orchestrates research tasks over one session.
type Engine struct {
	gateway     llm.Service
	planner     *planner.Planner
	synthesizer *Synthesizer
	session     *session.Session
	exporter    *metrics.PrometheusExporter // optional
	limiter     *rate.Limiter
	cfg         Config

	mu      sync.Mutex
	handles map[string]*TaskHandle
}

// New creates an Engine. exporter may be nil when metrics are not wired.
func New(gateway llm.Service, sess *session.Session, exporter *metrics.PrometheusExporter, cfg Config) *Engine {
	rps := cfg.SearchesPerSecond
	if rps <= 0 {
		rps = 1
	}
	gateway = instrument(gateway, exporter)
	return &Engine{
		gateway:     gateway,
		planner:     planner.NewPlanner(gateway),
		synthesizer: NewSynthesizer(gateway),
		session:     sess,
		exporter:    exporter,
		limiter:     rate.NewLimiter(rate.Limit(rps), 1),
		cfg:         cfg,
		handles:     make(map[string]*TaskHandle),
	}
}

// StartOptions configure one research task.
type StartOptions struct {
	// Effort selects the search budget. Empty means medium.
	Effort EffortLevel

	// MaxRounds overrides the budget's round ceiling when positive.
	MaxRounds int

	// QueriesPerRound overrides the per-round query cap when positive.
	QueriesPerRound int
}

// TaskHandle is the caller's view of one running task.
type TaskHandle struct {
	TaskID  string
	TraceID string

	cancel context.CancelFunc
	sink   *eventSink
	done   chan struct{}

	mu     sync.Mutex
	result *export.TaskResult
}

// Cancel requests cooperative cancellation. The loop observes it at step
// boundaries; the task finishes as cancelled without an answer.
func (h *TaskHandle) Cancel() {
	h.cancel()
}

// Events returns the task's progress stream. The channel is closed when the
// task reaches a terminal status.
func (h *TaskHandle) Events() <-chan Event {
	return h.sink.ch
}

// Result returns the task result, or nil while the task is running.
func (h *TaskHandle) Result() *export.TaskResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result
}

// Wait blocks until the task is terminal or ctx expires.
func (h *TaskHandle) Wait(ctx context.Context) (*export.TaskResult, error) {
	select {
	case <-h.done:
		return h.Result(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// DroppedEvents reports how many progress events were lost to a slow
// consumer.
func (h *TaskHandle) DroppedEvents() int64 {
	return h.sink.Dropped()
}

func (h *TaskHandle) setResult(r *export.TaskResult) {
	h.mu.Lock()
	h.result = r
	h.mu.Unlock()
}

// StartResearch begins a task for the query and returns its handle. It
// refuses while another task is active. The task outlives the caller's ctx;
// only Cancel stops it early.
func (e *Engine) StartResearch(ctx context.Context, query string, opts StartOptions) (*TaskHandle, error) {
	if query == "" {
		return nil, fmt.Errorf("research query is empty")
	}

	taskID, err := e.session.StartTask(query)
	if err != nil {
		return nil, err
	}

	budget := BudgetFor(opts.Effort).withOverrides(opts.MaxRounds, opts.QueriesPerRound)

	var onDrop func()
	if e.exporter != nil {
		onDrop = e.exporter.EventDropped
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	h := &TaskHandle{
		TaskID:  taskID,
		TraceID: shortuuid.New(),
		cancel:  cancel,
		sink:    newEventSink(e.cfg.EventBuffer, onDrop),
		done:    make(chan struct{}),
	}

	// A handle lives exactly as long as its task is findable in the session;
	// when the bounded history evicts a task, its handle goes too.
	e.mu.Lock()
	for id := range e.handles {
		if _, ok := e.session.TaskByID(id); !ok {
			delete(e.handles, id)
		}
	}
	e.handles[taskID] = h
	e.mu.Unlock()

	if e.exporter != nil {
		e.exporter.TaskStarted()
	}

	slog.Info("engine: research task started",
		"task_id", taskID,
		"trace_id", h.TraceID,
		"effort", opts.Effort,
		"max_rounds", budget.MaxRounds,
		"queries_per_round", budget.QueriesPerRound,
	)

	go e.run(runCtx, h, query, opts.Effort, budget)

	return h, nil
}

// Handle returns the handle for a task ID.
func (e *Engine) Handle(taskID string) (*TaskHandle, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	h, ok := e.handles[taskID]
	return h, ok
}

// Session exposes the engine's session for read-side consumers.
func (e *Engine) Session() *session.Session {
	return e.session
}

// finish records the terminal state, publishes the result, and closes the
// event stream. Exactly one finish call wins per task.
func (e *Engine) finish(h *TaskHandle, status session.TaskStatus, answer, failReason string, start time.Time) {
	switch status {
	case session.StatusCompleted:
		e.session.CompleteTask(answer)
	case session.StatusFailed:
		e.session.FailTask(failReason)
	case session.StatusCancelled:
		e.session.CancelTask()
	}

	task, ok := e.session.TaskByID(h.TaskID)
	if ok {
		h.setResult(export.FromTask(task, h.TraceID))
	}

	duration := time.Since(start)
	rounds := 0
	if task != nil {
		rounds = task.Rounds
	}
	if e.exporter != nil {
		e.exporter.TaskFinished(string(status), duration, rounds)
	}

	h.sink.emit(Event{Type: EventResult, Message: string(status)})
	h.sink.close()
	close(h.done)

	slog.Info("engine: research task finished",
		"task_id", h.TaskID,
		"status", status,
		"rounds", rounds,
		"duration_ms", duration.Milliseconds(),
		"dropped_events", h.sink.Dropped(),
	)
}
