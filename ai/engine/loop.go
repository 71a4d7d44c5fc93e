package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hrygo/deepsearch/ai/planner"
	"github.com/hrygo/deepsearch/ai/session"
)

// run drives one task from classification to a terminal status. It is the
// only goroutine mutating the session while the task lives.
func (e *Engine) run(ctx context.Context, h *TaskHandle, query string, effort EffortLevel, budget EffortBudget) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("engine: task panicked", "task_id", h.TaskID, "panic", r)
			e.finish(h, session.StatusFailed, "", fmt.Sprintf("internal error: %v", r), start)
		}
	}()

	quotaHit := false

	// Classification. Failures degrade to the deep-research fallback; a
	// quota error additionally arms the fast stop.
	e.session.SetStatus(session.StatusAnalyzing)
	h.sink.progress("Analyzing task", 5)

	profile, steps, err := e.planner.Plan(ctx, query)
	if err != nil {
		slog.Warn("engine: quota exhausted during classification", "task_id", h.TaskID, "error", err)
		quotaHit = true
		profile = planner.FallbackProfile()
		steps = planner.StepsFor(profile)
	}
	e.session.SetProfile(profile)
	e.session.SetTotalSteps(len(steps))
	h.sink.step("task_analysis", fmt.Sprintf("Task classified as %s (%s)", profile.TaskType, profile.Complexity), 0)

	var queries []string
	var verdict *session.ReflectionVerdict

	for _, step := range steps {
		if ctx.Err() != nil {
			e.finish(h, session.StatusCancelled, "", "", start)
			return
		}
		e.session.SetStep(step.String())

		switch step {
		case planner.StepSimpleSearch:
			e.session.SetStatus(session.StatusSearching)
			h.sink.progress("Searching", 30)
			quotaHit = e.executeRound(ctx, h, []string{query}, 1) || quotaHit

		case planner.StepGenerateQueries:
			e.session.SetStatus(session.StatusSearching)
			h.sink.progress("Generating search queries", 15)
			queries = e.generateQueries(ctx, query, budget.QueriesPerRound)

		case planner.StepExecuteSearch:
			h.sink.progress("Executing initial search round", 30)
			quotaHit = e.executeRound(ctx, h, queries, 1) || quotaHit

		case planner.StepAnalyzeResults:
			var vQuota bool
			verdict, vQuota = e.reflect(ctx, h, query, effort, 1, budget.MaxRounds)
			quotaHit = quotaHit || vQuota
			if quotaHit {
				verdict.IsSufficient = true
			}

		case planner.StepSupplementarySearch:
			verdict, quotaHit = e.supplementaryLoop(ctx, h, query, effort, budget, verdict, quotaHit)

		case planner.StepGenerateAnswer:
			e.session.SetStatus(session.StatusGenerating)
			h.sink.progress("Generating final answer", 90)

			answer := e.synthesizer.Synthesize(ctx, query, e.session.SuccessfulResults())
			if ctx.Err() != nil {
				e.finish(h, session.StatusCancelled, "", "", start)
				return
			}
			e.finish(h, session.StatusCompleted, answer, "", start)
			return
		}
	}

	// Step lists always end in answer generation; reaching here means the
	// planner produced a malformed list.
	e.finish(h, session.StatusFailed, "", "workflow ended without answer generation", start)
}

// supplementaryLoop runs additional search rounds until the evidence is
// sufficient, the budget is exhausted, or a safety net fires. The first
// round and its reflection have already happened.
func (e *Engine) supplementaryLoop(ctx context.Context, h *TaskHandle, query string, effort EffortLevel, budget EffortBudget, verdict *session.ReflectionVerdict, quotaHit bool) (*session.ReflectionVerdict, bool) {
	round := 1

	for round < budget.MaxRounds {
		if ctx.Err() != nil {
			return verdict, quotaHit
		}
		if quotaHit {
			// Quota exhaustion overrides the default-rounds obligation.
			h.sink.step("supplementary_search", "Provider quota exhausted, stopping search", round)
			break
		}

		sufficient := verdict != nil && verdict.IsSufficient
		if round >= budget.DefaultRounds {
			if sufficient {
				h.sink.step("supplementary_search", "Evidence sufficient, stopping search", round)
				break
			}
			contentLen := e.session.ContentLength()
			if forceStop(effort, round, contentLen) {
				slog.Info("engine: safety net stopped search loop",
					"task_id", h.TaskID, "round", round, "content_chars", contentLen, "effort", effort)
				h.sink.step("supplementary_search", "Gathered enough material, stopping search", round)
				break
			}
			h.sink.step("supplementary_search",
				fmt.Sprintf("Completed %d default rounds, evidence still thin, continuing", budget.DefaultRounds), round)
		} else if sufficient {
			// Sufficiency is only honored once the default rounds ran.
			h.sink.step("supplementary_search",
				fmt.Sprintf("Evidence sufficient but below %d default rounds, continuing", budget.DefaultRounds), round)
		}

		round++
		h.sink.progress(fmt.Sprintf("Supplementary search round %d/%d", round, budget.MaxRounds), 60+(round-1)*15)

		followUps := e.supplementaryQueries(ctx, query, verdict, budget.QueriesPerRound)
		quotaHit = e.executeRound(ctx, h, followUps, round) || quotaHit

		var vQuota bool
		verdict, vQuota = e.reflect(ctx, h, query, effort, round, budget.MaxRounds)
		quotaHit = quotaHit || vQuota
		if quotaHit {
			// Quota exhaustion forces sufficiency: a degraded answer now
			// beats burning the rest of the budget on failing calls.
			verdict.IsSufficient = true
		}
	}

	if round >= budget.MaxRounds && (verdict == nil || !verdict.IsSufficient) {
		h.sink.step("supplementary_search",
			fmt.Sprintf("Reached maximum search rounds (%d), stopping", budget.MaxRounds), round)
	}

	return verdict, quotaHit
}
