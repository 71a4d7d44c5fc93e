package v1

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/deepsearch/ai/engine"
	"github.com/hrygo/deepsearch/ai/export"
	"github.com/hrygo/deepsearch/ai/session"
)

type CreateResearchRequest struct {
	Query string `json:"query"`

	// Effort selects the search budget: low, medium, high. Empty uses the
	// server default.
	Effort string `json:"effort,omitempty"`

	// MaxRounds and QueriesPerRound override the budget when positive.
	MaxRounds       int `json:"max_rounds,omitempty"`
	QueriesPerRound int `json:"queries_per_round,omitempty"`
}

type CreateResearchResponse struct {
	TaskID  string `json:"task_id"`
	TraceID string `json:"trace_id"`
	Status  string `json:"status"`
	Effort  string `json:"effort"`
}

// ResearchTaskView is the task snapshot returned by GetResearch. Search
// content is omitted; the result endpoint carries the full outcome.
type ResearchTaskView struct {
	ID              string               `json:"id"`
	Query           string               `json:"query"`
	Status          session.TaskStatus   `json:"status"`
	Profile         *session.TaskProfile `json:"profile,omitempty"`
	Rounds          int                  `json:"rounds"`
	CurrentStep     string               `json:"current_step,omitempty"`
	CompletedSteps  int                  `json:"completed_steps"`
	TotalSteps      int                  `json:"total_steps"`
	SearchCount     int                  `json:"search_count"`
	ReflectionCount int                  `json:"reflection_count"`
	FailReason      string               `json:"fail_reason,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	FinishedAt      time.Time            `json:"finished_at,omitzero"`
}

type ResearchEventsResponse struct {
	Events []engine.Event `json:"events"`
	// Dropped counts events lost to a slow consumer since the task started.
	Dropped int64 `json:"dropped"`
	// Done is true once the stream is closed and fully drained.
	Done bool `json:"done"`
}

// CreateResearch starts a research task. Only one task runs at a time; a
// second submission is rejected with 409 until the active task finishes.
func (s *APIV1Service) CreateResearch(c echo.Context) error {
	req := &CreateResearchRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body").SetInternal(err)
	}
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}

	effort := req.Effort
	if effort == "" {
		effort = s.defaultEffort
	}

	handle, err := s.Engine.StartResearch(c.Request().Context(), req.Query, engine.StartOptions{
		Effort:          engine.EffortLevel(effort),
		MaxRounds:       req.MaxRounds,
		QueriesPerRound: req.QueriesPerRound,
	})
	if err != nil {
		var active *session.ErrTaskActive
		if errors.As(err, &active) {
			return echo.NewHTTPError(http.StatusConflict, "another research task is active").SetInternal(err)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to start research").SetInternal(err)
	}

	return c.JSON(http.StatusOK, &CreateResearchResponse{
		TaskID:  handle.TaskID,
		TraceID: handle.TraceID,
		Status:  string(session.StatusPending),
		Effort:  effort,
	})
}

// GetResearch returns the task snapshot without search content.
func (s *APIV1Service) GetResearch(c echo.Context) error {
	task, ok := s.Engine.Session().TaskByID(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "task not found")
	}

	return c.JSON(http.StatusOK, &ResearchTaskView{
		ID:              task.ID,
		Query:           task.Query,
		Status:          task.Status,
		Profile:         task.Profile,
		Rounds:          task.Rounds,
		CurrentStep:     task.CurrentStep,
		CompletedSteps:  task.CompletedSteps,
		TotalSteps:      task.TotalSteps,
		SearchCount:     len(task.Results),
		ReflectionCount: len(task.Reflections),
		FailReason:      task.FailReason,
		CreatedAt:       task.CreatedAt,
		FinishedAt:      task.FinishedAt,
	})
}

// CancelResearch requests cooperative cancellation. The loop observes it at
// the next step boundary, so the task may stay running briefly.
func (s *APIV1Service) CancelResearch(c echo.Context) error {
	id := c.Param("id")
	handle, ok := s.Engine.Handle(id)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "task not found")
	}

	if task, ok := s.Engine.Session().TaskByID(id); ok && task.Status.Terminal() {
		return c.JSON(http.StatusOK, map[string]string{"status": string(task.Status)})
	}

	handle.Cancel()
	return c.JSON(http.StatusOK, map[string]string{"status": "cancelling"})
}

// GetResearchEvents drains buffered progress events without blocking.
// Clients poll until Done is true.
func (s *APIV1Service) GetResearchEvents(c echo.Context) error {
	handle, ok := s.Engine.Handle(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "task not found")
	}

	resp := &ResearchEventsResponse{Events: []engine.Event{}}
drain:
	for {
		select {
		case ev, open := <-handle.Events():
			if !open {
				resp.Done = true
				break drain
			}
			resp.Events = append(resp.Events, ev)
		default:
			break drain
		}
	}
	resp.Dropped = handle.DroppedEvents()

	return c.JSON(http.StatusOK, resp)
}

// GetResearchResult returns the exportable result. 404 until the task is
// terminal.
func (s *APIV1Service) GetResearchResult(c echo.Context) error {
	result, err := s.taskResult(c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// GetResearchReport renders the result as a Markdown report.
func (s *APIV1Service) GetResearchReport(c echo.Context) error {
	result, err := s.taskResult(c.Param("id"))
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "text/markdown; charset=utf-8", []byte(export.MarkdownReport(result)))
}

func (s *APIV1Service) taskResult(id string) (*export.TaskResult, error) {
	task, ok := s.Engine.Session().TaskByID(id)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusNotFound, "task not found")
	}
	if !task.Status.Terminal() {
		return nil, echo.NewHTTPError(http.StatusNotFound, "task not finished")
	}

	// The handle carries the result with its trace ID; fall back to a fresh
	// export for tasks whose handle is gone.
	if handle, ok := s.Engine.Handle(id); ok {
		if result := handle.Result(); result != nil {
			return result, nil
		}
	}
	return export.FromTask(task, ""), nil
}

func (s *APIV1Service) GetSessionStatistics(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Engine.Session().Stats())
}

// ExportSession returns the session history with results.
func (s *APIV1Service) ExportSession(c echo.Context) error {
	return c.JSON(http.StatusOK, export.FromSession(s.Engine.Session()))
}

// ClearSession drops the session history. Refused while a task is active.
func (s *APIV1Service) ClearSession(c echo.Context) error {
	if err := s.Engine.Session().Clear(); err != nil {
		var active *session.ErrTaskActive
		if errors.As(err, &active) {
			return echo.NewHTTPError(http.StatusConflict, "a research task is active").SetInternal(err)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to clear session").SetInternal(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "cleared"})
}
