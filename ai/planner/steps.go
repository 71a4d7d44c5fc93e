package planner

import "github.com/hrygo/deepsearch/ai/session"

// StepKind identifies one phase of a research workflow. The set is closed;
// the engine dispatches on it with an exhaustive switch.
type StepKind int

const (
	StepGenerateQueries StepKind = iota
	StepExecuteSearch
	StepAnalyzeResults
	StepSupplementarySearch
	StepGenerateAnswer
	StepSimpleSearch
)

// String returns the step name used in progress events and logs.
func (k StepKind) String() string {
	switch k {
	case StepGenerateQueries:
		return "generate_queries"
	case StepExecuteSearch:
		return "execute_search"
	case StepAnalyzeResults:
		return "analyze_results"
	case StepSupplementarySearch:
		return "supplementary_search"
	case StepGenerateAnswer:
		return "generate_answer"
	case StepSimpleSearch:
		return "simple_search"
	default:
		return "unknown"
	}
}

// deepResearchSteps is the full multi-round workflow.
var deepResearchSteps = []StepKind{
	StepGenerateQueries,
	StepExecuteSearch,
	StepAnalyzeResults,
	StepSupplementarySearch,
	StepGenerateAnswer,
}

// simpleSteps is the single-shot workflow for direct questions.
var simpleSteps = []StepKind{
	StepSimpleSearch,
	StepGenerateAnswer,
}

// StepsFor maps a task profile to its workflow steps. Deep-research tasks
// and anything needing multiple search rounds get the full loop; everything
// else answers off a single search.
func StepsFor(p *session.TaskProfile) []StepKind {
	if p == nil {
		return append([]StepKind(nil), deepResearchSteps...)
	}
	if p.TaskType == TaskTypeDeepResearch || (p.RequiresSearch && p.RequiresMultipleRounds) {
		return append([]StepKind(nil), deepResearchSteps...)
	}
	return append([]StepKind(nil), simpleSteps...)
}
