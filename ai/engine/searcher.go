package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hrygo/deepsearch/ai/core/llm"
	"github.com/hrygo/deepsearch/ai/internal/strutil"
	"github.com/hrygo/deepsearch/ai/models"
	"github.com/hrygo/deepsearch/ai/planner"
	"github.com/hrygo/deepsearch/ai/prompts"
	"github.com/hrygo/deepsearch/ai/session"
)

// generateQueries asks the LLM for diverse search queries. Any failure
// degrades to searching the user's query verbatim.
func (e *Engine) generateQueries(ctx context.Context, query string, n int) []string {
	result, err := e.gateway.Generate(ctx, models.RoleQueryGeneration, prompts.QueryGeneration(query, n), llm.Options{})
	if err != nil {
		slog.Warn("engine: query generation failed, searching user query directly", "error", err)
		return []string{query}
	}

	var parsed struct {
		Rationale string   `json:"rationale"`
		Query     []string `json:"query"`
	}
	raw := planner.ExtractJSON(result.Text)
	if raw == "" || json.Unmarshal([]byte(raw), &parsed) != nil || len(parsed.Query) == 0 {
		slog.Warn("engine: query generation response unusable, searching user query directly")
		return []string{query}
	}

	if len(parsed.Query) > n {
		parsed.Query = parsed.Query[:n]
	}
	slog.Debug("engine: search queries generated", "count", len(parsed.Query), "rationale", parsed.Rationale)
	return parsed.Query
}

// executeRound runs one round of grounded searches concurrently. Each query
// is rate limited; failures become failed SearchResults and never abort the
// round. Returns true when any query died of quota exhaustion.
func (e *Engine) executeRound(ctx context.Context, h *TaskHandle, queries []string, round int) bool {
	e.session.SetStatus(session.StatusSearching)

	var mu sync.Mutex
	quotaHit := false

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(queries))

	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			if err := e.limiter.Wait(gctx); err != nil {
				return nil
			}

			h.sink.step("execute_search", fmt.Sprintf("Query %d/%d: %s", i+1, len(queries), strutil.Truncate(q, 60)), round)

			started := time.Now()
			result, err := e.gateway.Generate(gctx, models.RoleSearch, q, llm.Options{WebSearch: true})

			sr := session.SearchResult{
				Query:      q,
				Round:      round,
				DurationMs: time.Since(started).Milliseconds(),
				Timestamp:  time.Now(),
			}
			if err != nil {
				sr.Error = err.Error()
				slog.Warn("engine: search query failed", "query", q, "round", round, "error", err)
				if llm.IsQuotaExhausted(err) {
					mu.Lock()
					quotaHit = true
					mu.Unlock()
				}
			} else {
				sr.Success = true
				sr.Content = result.Text
				sr.Citations = result.Citations
				sr.URLs = result.SourceURLs
				sr.HasGrounding = result.HasGrounding
			}
			e.session.AddSearchResult(sr)
			return nil
		})
	}

	// Workers only return nil; the join is a barrier before reflection.
	_ = g.Wait()

	return quotaHit
}

// reflectResponse mirrors the JSON the reflection prompt asks for.
type reflectResponse struct {
	IsSufficient    bool     `json:"is_sufficient"`
	KnowledgeGap    string   `json:"knowledge_gap"`
	FollowUpQueries []string `json:"follow_up_queries"`
}

// reflect judges whether the gathered evidence answers the query. It never
// fails: quota errors force a sufficient verdict (and report quota=true),
// other errors fall back to a length heuristic.
func (e *Engine) reflect(ctx context.Context, h *TaskHandle, query string, effort EffortLevel, round, maxRounds int) (*session.ReflectionVerdict, bool) {
	e.session.SetStatus(session.StatusReflecting)
	h.sink.step("analyze_results", fmt.Sprintf("Analyzing round %d results", round), round)

	summaries := e.recentSummaries(5)
	verdict := &session.ReflectionVerdict{Round: round}
	quotaHit := false

	result, err := e.gateway.Generate(ctx, models.RoleReflection, prompts.Reflection(query, summaries), llm.Options{})
	switch {
	case err != nil && llm.IsQuotaExhausted(err):
		slog.Warn("engine: quota exhausted during reflection, forcing stop", "round", round)
		verdict.IsSufficient = true
		verdict.KnowledgeGap = "provider quota exhausted, cannot analyze further"
		quotaHit = true

	case err != nil:
		contentLen := e.session.ContentLength()
		threshold := fallbackThreshold(effort, round)
		verdict.IsSufficient = contentLen > threshold || round >= maxRounds
		verdict.KnowledgeGap = "reflection unavailable, judged by evidence volume"
		if !verdict.IsSufficient {
			verdict.FollowUpQueries = []string{query + " additional information"}
		}
		slog.Warn("engine: reflection failed, using length heuristic",
			"round", round, "content_chars", contentLen, "threshold", threshold, "error", err)

	default:
		var parsed reflectResponse
		raw := planner.ExtractJSON(result.Text)
		if raw == "" || json.Unmarshal([]byte(raw), &parsed) != nil {
			// Unparseable verdict: call it sufficient once two rounds of
			// evidence exist.
			verdict.IsSufficient = len(e.session.SuccessfulResults()) >= 2
			verdict.KnowledgeGap = "reflection response unusable"
			verdict.FollowUpQueries = []string{
				query + " detailed analysis",
				query + " latest developments",
			}
		} else {
			verdict.IsSufficient = parsed.IsSufficient
			verdict.KnowledgeGap = parsed.KnowledgeGap
			verdict.FollowUpQueries = parsed.FollowUpQueries
		}
	}

	e.session.AddReflection(*verdict)

	if verdict.IsSufficient {
		h.sink.step("analyze_results", fmt.Sprintf("Round %d: evidence sufficient", round), round)
	} else {
		h.sink.step("analyze_results", fmt.Sprintf("Round %d: %s", round, verdict.KnowledgeGap), round)
	}

	return verdict, quotaHit
}

// supplementaryQueries picks the next round's queries: the verdict's
// follow-ups, else contextually regenerated ones, else canned variations of
// the user query.
func (e *Engine) supplementaryQueries(ctx context.Context, query string, verdict *session.ReflectionVerdict, n int) []string {
	var followUps []string
	if verdict != nil {
		followUps = verdict.FollowUpQueries
	}

	if len(followUps) == 0 {
		if prev := e.recentSummaries(5); len(prev) > 0 {
			followUps = e.regenerateQueries(ctx, query, prev, n)
		}
	}

	if len(followUps) == 0 {
		followUps = []string{
			query + " detailed analysis",
			query + " latest developments",
			query + " related case studies",
		}
	}

	if len(followUps) > n {
		followUps = followUps[:n]
	}
	return followUps
}

// regenerateQueries builds follow-up queries from the evidence gathered so
// far when the reflection named a gap but no queries.
func (e *Engine) regenerateQueries(ctx context.Context, query string, previous []string, n int) []string {
	prompt := prompts.SupplementaryQueryGeneration(query, previous, n)

	temp := float32(0.7)
	result, err := e.gateway.Generate(ctx, models.RoleQueryGeneration, prompt, llm.Options{Temperature: &temp, MaxTokens: 500})
	if err != nil {
		slog.Warn("engine: follow-up query regeneration failed", "error", err)
		return nil
	}

	var queries []string
	for _, line := range strings.Split(result.Text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*0123456789. "))
		if line != "" {
			queries = append(queries, line)
		}
	}
	if len(queries) > n {
		queries = queries[:n]
	}
	return queries
}

// recentSummaries formats the latest successful results for prompting,
// truncating each to keep the context window sane.
func (e *Engine) recentSummaries(limit int) []string {
	results := e.session.SuccessfulResults()
	if len(results) > limit {
		results = results[len(results)-limit:]
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
		summaries = append(summaries, prompts.SearchSummary(r.Query, strutil.Truncate(r.Content, 2000), cites))
	}
	return summaries
}
