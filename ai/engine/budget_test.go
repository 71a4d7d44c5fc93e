package engine

import "testing"

func TestBudgetPresets(t *testing.T) {
	tests := []struct {
		level   EffortLevel
		want    EffortBudget
	}{
		{EffortLow, EffortBudget{MaxRounds: 3, DefaultRounds: 1, QueriesPerRound: 3}},
		{EffortMedium, EffortBudget{MaxRounds: 3, DefaultRounds: 3, QueriesPerRound: 5}},
		{EffortHigh, EffortBudget{MaxRounds: 5, DefaultRounds: 5, QueriesPerRound: 10}},
		{EffortLevel(""), EffortBudget{MaxRounds: 3, DefaultRounds: 3, QueriesPerRound: 5}},
		{EffortLevel("extreme"), EffortBudget{MaxRounds: 3, DefaultRounds: 3, QueriesPerRound: 5}},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			if got := BudgetFor(tt.level); got != tt.want {
				t.Errorf("BudgetFor(%s) = %+v, want %+v", tt.level, got, tt.want)
			}
		})
	}
}

func TestBudgetOverrides(t *testing.T) {
	b := BudgetFor(EffortHigh).withOverrides(2, 4)
	if b.MaxRounds != 2 {
		t.Errorf("MaxRounds = %d, want 2", b.MaxRounds)
	}
	if b.QueriesPerRound != 4 {
		t.Errorf("QueriesPerRound = %d, want 4", b.QueriesPerRound)
	}
	// DefaultRounds must follow the lowered ceiling.
	if b.DefaultRounds != 2 {
		t.Errorf("DefaultRounds = %d, want 2", b.DefaultRounds)
	}

	// Zero overrides keep the preset.
	b = BudgetFor(EffortLow).withOverrides(0, 0)
	if b != BudgetFor(EffortLow) {
		t.Errorf("zero overrides changed budget: %+v", b)
	}
}

func TestForceStop(t *testing.T) {
	tests := []struct {
		name    string
		level   EffortLevel
		rounds  int
		content int
		want    bool
	}{
		{"low under cap", EffortLow, 2, LowEffortContentCap, false},
		{"low over cap", EffortLow, 2, LowEffortContentCap + 1, true},
		{"low too early", EffortLow, 1, 5000, false},
		{"medium round2 over low cap", EffortMedium, 2, 1000, false},
		{"any round3 over hard cap", EffortMedium, 3, ForceStopContentCap + 1, true},
		{"any round3 under hard cap", EffortHigh, 3, ForceStopContentCap, false},
		{"high round4 over hard cap", EffortHigh, 4, 5000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := forceStop(tt.level, tt.rounds, tt.content); got != tt.want {
				t.Errorf("forceStop(%s, %d, %d) = %v, want %v", tt.level, tt.rounds, tt.content, got, tt.want)
			}
		})
	}
}

func TestFallbackThreshold(t *testing.T) {
	tests := []struct {
		level  EffortLevel
		rounds int
		want   int
	}{
		{EffortLow, 1, 1000},
		{EffortLow, 2, 600},
		{EffortMedium, 1, 1500},
		{EffortMedium, 2, 1000},
		{EffortHigh, 2, 2000},
		{EffortHigh, 3, 1500},
	}

	for _, tt := range tests {
		if got := fallbackThreshold(tt.level, tt.rounds); got != tt.want {
			t.Errorf("fallbackThreshold(%s, %d) = %d, want %d", tt.level, tt.rounds, got, tt.want)
		}
	}
}
