package engine

// EffortLevel selects how much searching a task may spend.
type EffortLevel string

const (
	EffortLow    EffortLevel = "low"
	EffortMedium EffortLevel = "medium"
	EffortHigh   EffortLevel = "high"
)

// EffortBudget bounds the research loop. MaxRounds is the hard ceiling on
// search rounds, DefaultRounds is how many rounds run before sufficiency
// may stop the loop, QueriesPerRound caps concurrent queries per round.
type EffortBudget struct {
	MaxRounds       int
	DefaultRounds   int
	QueriesPerRound int
}

// Safety-net content thresholds, in characters of accumulated successful
// search content. They stop runaway loops when reflection keeps asking for
// more; tune with care, lowering them degrades answer depth.
const (
	// LowEffortContentCap stops low-effort tasks past round 2.
	LowEffortContentCap = 800
	// ForceStopContentCap stops any task past round 3.
	ForceStopContentCap = 1200
)

// BudgetFor returns the preset budget for an effort level. Unknown levels
// get the medium budget.
func BudgetFor(level EffortLevel) EffortBudget {
	switch level {
	case EffortLow:
		return EffortBudget{MaxRounds: 3, DefaultRounds: 1, QueriesPerRound: 3}
	case EffortHigh:
		return EffortBudget{MaxRounds: 5, DefaultRounds: 5, QueriesPerRound: 10}
	default:
		return EffortBudget{MaxRounds: 3, DefaultRounds: 3, QueriesPerRound: 5}
	}
}

// withOverrides applies explicit per-task overrides. Overrides always win
// over the preset; values are clamped to at least 1 and DefaultRounds never
// exceeds MaxRounds.
func (b EffortBudget) withOverrides(maxRounds, queriesPerRound int) EffortBudget {
	if maxRounds > 0 {
		b.MaxRounds = maxRounds
	}
	if queriesPerRound > 0 {
		b.QueriesPerRound = queriesPerRound
	}
	if b.MaxRounds < 1 {
		b.MaxRounds = 1
	}
	if b.QueriesPerRound < 1 {
		b.QueriesPerRound = 1
	}
	if b.DefaultRounds < 1 {
		b.DefaultRounds = 1
	}
	if b.DefaultRounds > b.MaxRounds {
		b.DefaultRounds = b.MaxRounds
	}
	return b
}

// forceStop reports whether the safety net ends the loop after
// completedRounds with contentLen characters of evidence gathered.
func forceStop(level EffortLevel, completedRounds, contentLen int) bool {
	if level == EffortLow && completedRounds >= 2 && contentLen > LowEffortContentCap {
		return true
	}
	return completedRounds >= 3 && contentLen > ForceStopContentCap
}

// fallbackThreshold is the content length above which a failed reflection
// counts the evidence as sufficient. Thresholds loosen with effort and
// round so a broken reflector cannot spin the loop.
func fallbackThreshold(level EffortLevel, completedRounds int) int {
	switch level {
	case EffortLow:
		if completedRounds >= 2 {
			return 600
		}
		return 1000
	case EffortHigh:
		if completedRounds >= 3 {
			return 1500
		}
		return 2000
	default:
		if completedRounds >= 2 {
			return 1000
		}
		return 1500
	}
}
