package scoring

import (
	"testing"
	"time"

	"crm_pipeline_backend/internal/pipeline/domain"
)

var now = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func dealIn(stage domain.Stage, created, entered time.Time) domain.Deal {
	return domain.Deal{
		ID:        "d1",
		Stage:     stage,
		CreatedAt: created,
		StageHistory: []domain.StageChange{
			{FromStage: domain.StageNone, ToStage: domain.StageProspecto, Timestamp: created},
			{FromStage: domain.StageProspecto, ToStage: stage, Timestamp: entered},
		},
	}
}

func activityAt(id string, at time.Time) domain.Activity {
	return domain.Activity{ID: id, Owner: domain.DealOwner("d1"), Type: "llamada", Date: at}
}

func TestLevelForThresholds(t *testing.T) {
	tests := []struct {
		score int
		want  Level
	}{
		{100, LevelHot},
		{HotThreshold, LevelHot},
		{HotThreshold - 1, LevelWarm},
		{WarmThreshold, LevelWarm},
		{WarmThreshold - 1, LevelCold},
		{0, LevelCold},
	}
	for _, tc := range tests {
		if got := LevelFor(tc.score); got != tc.want {
			t.Fatalf("LevelFor(%d) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestLevelForMonotonic(t *testing.T) {
	rank := map[Level]int{LevelCold: 0, LevelWarm: 1, LevelHot: 2}
	prev := rank[LevelFor(0)]
	for score := 1; score <= 100; score++ {
		cur := rank[LevelFor(score)]
		if cur < prev {
			t.Fatalf("level decreased at score %d", score)
		}
		prev = cur
	}
}

func TestComputeScoreTerminalStages(t *testing.T) {
	created := now.AddDate(0, -1, 0)
	won := ComputeScore(dealIn(domain.StageCerrado, created, created), nil, nil, now, DefaultRules())
	if won.Score != 100 || won.Level != LevelHot {
		t.Fatalf("expected 100/hot for won deal, got %+v", won)
	}
	lost := ComputeScore(dealIn(domain.StagePerdido, created, created), nil, nil, now, DefaultRules())
	if lost.Score != 0 || lost.Level != LevelCold {
		t.Fatalf("expected 0/cold for lost deal, got %+v", lost)
	}
}

func TestComputeScoreMonotonicInRecency(t *testing.T) {
	created := now.AddDate(0, 0, -60)
	deal := dealIn(domain.StageDiagnostico, created, now.AddDate(0, 0, -3))
	rules := DefaultRules()

	prev := -1
	for daysAgo := 90; daysAgo >= 0; daysAgo-- {
		acts := []domain.Activity{activityAt("a1", now.AddDate(0, 0, -daysAgo))}
		got := ComputeScore(deal, acts, nil, now, rules).Score
		if got < prev {
			t.Fatalf("score decreased from %d to %d when last activity moved to %d days ago", prev, got, daysAgo)
		}
		prev = got
	}
}

func TestComputeScoreStaysInRange(t *testing.T) {
	rules := DefaultRules()
	created := now.AddDate(-1, 0, 0)

	fresh := dealIn(domain.StageContacto, now, now)
	var many []domain.Activity
	for i := 0; i < 50; i++ {
		many = append(many, activityAt("a", now))
	}
	tasks := []domain.Task{{Owner: domain.DealOwner("d1"), DueDate: now.Add(time.Hour)}}
	best := ComputeScore(fresh, many, tasks, now, rules)
	if best.Score < 0 || best.Score > 100 {
		t.Fatalf("score out of range: %d", best.Score)
	}
	if best.Level != LevelHot {
		t.Fatalf("expected hot for busy fresh deal, got %+v", best)
	}

	worst := ComputeScore(dealIn(domain.StagePiloto, created, created), nil, nil, now, rules)
	if worst.Score != 0 || worst.Level != LevelCold {
		t.Fatalf("expected 0/cold for abandoned deal, got %+v", worst)
	}
}

func TestComputeScoreIgnoresOtherOwners(t *testing.T) {
	deal := dealIn(domain.StageContacto, now.AddDate(0, 0, -10), now.AddDate(0, 0, -1))
	foreign := []domain.Activity{{ID: "x", Owner: domain.DealOwner("other"), Date: now}}

	with := ComputeScore(deal, foreign, nil, now, DefaultRules())
	without := ComputeScore(deal, nil, nil, now, DefaultRules())
	if with.Score != without.Score {
		t.Fatalf("foreign activity changed score: %d vs %d", with.Score, without.Score)
	}
}

func TestComputeScoreFollowUpBonus(t *testing.T) {
	deal := dealIn(domain.StageContacto, now.AddDate(0, 0, -10), now.AddDate(0, 0, -1))
	future := []domain.Task{{ID: "t1", Owner: domain.DealOwner("d1"), DueDate: now.AddDate(0, 0, 2)}}
	done := []domain.Task{{ID: "t1", Owner: domain.DealOwner("d1"), DueDate: now.AddDate(0, 0, 2), Completed: true}}

	bonus := ComputeScore(deal, nil, future, now, DefaultRules())
	none := ComputeScore(deal, nil, done, now, DefaultRules())
	if bonus.Score-none.Score != int(followUpBonus) {
		t.Fatalf("expected bonus of %v, got %d vs %d", followUpBonus, bonus.Score, none.Score)
	}
	if _, ok := bonus.Factors["follow_up"]; !ok {
		t.Fatalf("expected follow_up factor, got %v", bonus.Factors)
	}
}
