package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/hrygo/deepsearch/ai/core/llm"
	"github.com/hrygo/deepsearch/ai/models"
	"github.com/hrygo/deepsearch/ai/session"
)

type mockGateway struct {
	generateFunc func(ctx context.Context, role models.Role, prompt string, opts llm.Options) (*llm.GenResult, error)
}

func (m *mockGateway) Generate(ctx context.Context, role models.Role, prompt string, opts llm.Options) (*llm.GenResult, error) {
	return m.generateFunc(ctx, role, prompt, opts)
}

func (m *mockGateway) Warmup(ctx context.Context) {}

func TestPlanParsesClassification(t *testing.T) {
	gw := &mockGateway{
		generateFunc: func(_ context.Context, role models.Role, _ string, _ llm.Options) (*llm.GenResult, error) {
			if role != models.RoleTaskAnalysis {
				t.Errorf("role = %s, want task_analysis", role)
			}
			return &llm.GenResult{Text: "Here is the analysis:\n```json\n" +
				`{"task_type": "Q&A System", "complexity": "Low", "requires_search": true,
				  "requires_multiple_rounds": false, "estimated_steps": 2,
				  "estimated_time": "1 minute", "reasoning": "direct question"}` +
				"\n```"}, nil
		},
	}

	profile, steps, err := NewPlanner(gw).Plan(context.Background(), "what is the capital of France")
	if err != nil {
		t.Fatalf("Plan error: %v", err)
	}
	if profile.TaskType != TaskTypeQA {
		t.Errorf("task type = %q", profile.TaskType)
	}
	if profile.Fallback {
		t.Error("fallback flagged on successful classification")
	}
	wantSteps := []StepKind{StepSimpleSearch, StepGenerateAnswer}
	if len(steps) != len(wantSteps) {
		t.Fatalf("steps = %v, want %v", steps, wantSteps)
	}
	for i := range wantSteps {
		if steps[i] != wantSteps[i] {
			t.Errorf("step[%d] = %s, want %s", i, steps[i], wantSteps[i])
		}
	}
}

func TestPlanFallbackOnGatewayError(t *testing.T) {
	gw := &mockGateway{
		generateFunc: func(_ context.Context, _ models.Role, _ string, _ llm.Options) (*llm.GenResult, error) {
			return nil, errors.New("connection refused")
		},
	}

	profile, steps, err := NewPlanner(gw).Plan(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Plan error: %v", err)
	}
	assertFallback(t, profile)
	if len(steps) != 5 {
		t.Errorf("got %d steps, want 5 for deep research", len(steps))
	}
}

func TestPlanFallbackOnGarbageResponse(t *testing.T) {
	for _, text := range []string{
		"I cannot help with that.",
		`{"task_type": "Poetry"}`,
		"```json\n{broken\n```",
	} {
		gw := &mockGateway{
			generateFunc: func(_ context.Context, _ models.Role, _ string, _ llm.Options) (*llm.GenResult, error) {
				return &llm.GenResult{Text: text}, nil
			},
		}
		profile, _, err := NewPlanner(gw).Plan(context.Background(), "q")
		if err != nil {
			t.Fatalf("Plan error: %v", err)
		}
		assertFallback(t, profile)
	}
}

func TestPlanPropagatesQuotaError(t *testing.T) {
	gw := &mockGateway{
		generateFunc: func(_ context.Context, _ models.Role, _ string, _ llm.Options) (*llm.GenResult, error) {
			return nil, errors.New("quota exceeded for project")
		},
	}

	_, _, err := NewPlanner(gw).Plan(context.Background(), "q")
	if err == nil {
		t.Fatal("expected quota error to propagate")
	}
	if !llm.IsQuotaExhausted(err) {
		t.Errorf("error not classified as quota: %v", err)
	}
}

func assertFallback(t *testing.T, p *session.TaskProfile) {
	t.Helper()
	if !p.Fallback {
		t.Error("profile not flagged as fallback")
	}
	if p.TaskType != TaskTypeDeepResearch {
		t.Errorf("fallback task type = %q", p.TaskType)
	}
	if !p.RequiresSearch || !p.RequiresMultipleRounds {
		t.Error("fallback must require multi-round search")
	}
}

func TestStepsForNilProfile(t *testing.T) {
	steps := StepsFor(nil)
	if len(steps) != 5 {
		t.Errorf("nil profile steps = %v", steps)
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`},
		{"fenced", "prose\n```json\n{\"a\": 1}\n```\nmore", `{"a": 1}`},
		{"nested", `{"a": {"b": "}"}}`, `{"a": {"b": "}"}}`},
		{"escaped quote", `{"a": "say \"hi\" {now}"}`, `{"a": "say \"hi\" {now}"}`},
		{"no object", "nothing here", ""},
		{"unbalanced", `{"a": 1`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSON(tt.in); got != tt.want {
				t.Errorf("ExtractJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
