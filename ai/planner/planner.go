// Package planner classifies a user query into a task profile and expands
// it into workflow steps. Classification goes through the LLM once; any
// failure degrades to a deep-research fallback profile so a flaky
// classifier can never block a task.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hrygo/deepsearch/ai/core/llm"
	"github.com/hrygo/deepsearch/ai/models"
	"github.com/hrygo/deepsearch/ai/prompts"
	"github.com/hrygo/deepsearch/ai/session"
)

// Task type catalog understood by the classifier.
const (
	TaskTypeDeepResearch  = "Deep Research"
	TaskTypeQA            = "Q&A System"
	TaskTypeCodeGen       = "Code Generation"
	TaskTypeDataAnalysis  = "Data Analysis"
	TaskTypeDocWriting    = "Document Writing"
	TaskTypeComprehensive = "Comprehensive Task"
)

// Planner turns a user query into a task profile plus workflow steps.
type Planner struct {
	gateway llm.Service
}

// NewPlanner creates a Planner over the given gateway.
func NewPlanner(gateway llm.Service) *Planner {
	return &Planner{gateway: gateway}
}

// analysisResponse mirrors the JSON the classification prompt asks for.
type analysisResponse struct {
	TaskType               string `json:"task_type"`
	Complexity             string `json:"complexity"`
	RequiresSearch         bool   `json:"requires_search"`
	RequiresMultipleRounds bool   `json:"requires_multiple_rounds"`
	EstimatedSteps         int    `json:"estimated_steps"`
	EstimatedTime          string `json:"estimated_time"`
	Reasoning              string `json:"reasoning"`
}

// Plan classifies the query and expands the workflow. It returns an error
// only for quota exhaustion, where continuing would burn the remaining
// budget; every other failure yields the fallback profile.
func (p *Planner) Plan(ctx context.Context, userQuery string) (*session.TaskProfile, []StepKind, error) {
	result, err := p.gateway.Generate(ctx, models.RoleTaskAnalysis, prompts.TaskAnalysis(userQuery), llm.Options{})
	if err != nil {
		if llm.IsQuotaExhausted(err) {
			return nil, nil, err
		}
		slog.Warn("planner: classification call failed, using fallback profile", "error", err)
		profile := FallbackProfile()
		return profile, StepsFor(profile), nil
	}

	profile, err := parseAnalysis(result.Text)
	if err != nil {
		slog.Warn("planner: classification response unusable, using fallback profile", "error", err)
		profile = FallbackProfile()
	}

	slog.Info("planner: task classified",
		"task_type", profile.TaskType,
		"complexity", profile.Complexity,
		"requires_search", profile.RequiresSearch,
		"multiple_rounds", profile.RequiresMultipleRounds,
		"fallback", profile.Fallback,
	)

	return profile, StepsFor(profile), nil
}

func parseAnalysis(text string) (*session.TaskProfile, error) {
	raw := ExtractJSON(text)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in classification response")
	}

	var resp analysisResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("unmarshal classification: %w", err)
	}
	if resp.TaskType == "" {
		return nil, fmt.Errorf("classification missing task_type")
	}
	if !validTaskType(resp.TaskType) {
		return nil, fmt.Errorf("unknown task type %q", resp.TaskType)
	}

	if resp.EstimatedSteps <= 0 {
		resp.EstimatedSteps = 2
		if resp.TaskType == TaskTypeDeepResearch {
			resp.EstimatedSteps = 5
		}
	}

	return &session.TaskProfile{
		TaskType:               resp.TaskType,
		Complexity:             resp.Complexity,
		RequiresSearch:         resp.RequiresSearch,
		RequiresMultipleRounds: resp.RequiresMultipleRounds,
		EstimatedSteps:         resp.EstimatedSteps,
		EstimatedTime:          resp.EstimatedTime,
		Reasoning:              resp.Reasoning,
	}, nil
}

func validTaskType(t string) bool {
	switch t {
	case TaskTypeDeepResearch, TaskTypeQA, TaskTypeCodeGen,
		TaskTypeDataAnalysis, TaskTypeDocWriting, TaskTypeComprehensive:
		return true
	}
	return false
}

// FallbackProfile is the profile used when classification fails: assume the
// heaviest workflow so no research need goes unserved.
func FallbackProfile() *session.TaskProfile {
	return &session.TaskProfile{
		TaskType:               TaskTypeDeepResearch,
		Complexity:             "Medium",
		RequiresSearch:         true,
		RequiresMultipleRounds: true,
		EstimatedSteps:         5,
		EstimatedTime:          "3-8 minutes",
		Reasoning:              "Task analysis unavailable; defaulting to deep research workflow",
		Fallback:               true,
	}
}
