package domain

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

const fmtExpectedStage = "expected stage=%q, got %q"

var allowedPairs = map[Stage][]Stage{
	StageProspecto:   {StageContacto, StagePerdido},
	StageContacto:    {StageDiagnostico, StageProspecto, StagePerdido},
	StageDiagnostico: {StagePiloto, StageNegociacion, StageContacto, StagePerdido},
	StagePiloto:      {StageNegociacion, StageDiagnostico, StagePerdido},
	StageNegociacion: {StageCerrado, StagePiloto, StagePerdido},
	StageCerrado:     {StageNegociacion},
	StagePerdido:     {StageProspecto, StageContacto},
}

func estimate(v float64) *float64 { return &v }

func completeDeal(stage Stage) Deal {
	return Deal{
		ID:             "deal-1",
		Stage:          stage,
		EstimatedValue: estimate(5000),
		Service:        "Consulting",
		ContactName:    "Ana",
		Company:        "Acme",
	}
}

func TestCanTransitionMatchesGraph(t *testing.T) {
	for _, from := range AllStages {
		allowed := map[Stage]bool{}
		for _, to := range allowedPairs[from] {
			allowed[to] = true
		}
		for _, to := range AllStages {
			if got := CanTransition(from, to); got != allowed[to] {
				t.Errorf("CanTransition(%q, %q) = %v, want %v", from, to, got, allowed[to])
			}
		}
	}
}

func TestValidateTransitionRejectsEveryPairOutsideGraph(t *testing.T) {
	for _, from := range AllStages {
		for _, to := range AllStages {
			if CanTransition(from, to) {
				continue
			}
			deal := completeDeal(from)
			err := ValidateTransition(deal, to, true)
			var invalid *InvalidTransitionError
			if !errors.As(err, &invalid) {
				t.Fatalf("%s -> %s: expected InvalidTransitionError, got %v", from, to, err)
			}
			if deal.Stage != from {
				t.Fatalf(fmtExpectedStage, from, deal.Stage)
			}
		}
	}
}

func TestValidateTransitionSelfTransitionAlwaysInvalid(t *testing.T) {
	for _, s := range AllStages {
		err := ValidateTransition(completeDeal(s), s, true)
		var invalid *InvalidTransitionError
		if !errors.As(err, &invalid) {
			t.Fatalf("%s -> %s: expected InvalidTransitionError, got %v", s, s, err)
		}
	}
}

func TestValidateTransitionUnknownTargetIsInvalid(t *testing.T) {
	err := ValidateTransition(completeDeal(StageProspecto), Stage("ganado"), true)
	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
}

func TestMissingPrerequisitesExactFields(t *testing.T) {
	tests := []struct {
		name        string
		deal        Deal
		target      Stage
		hasActivity bool
		want        []string
	}{
		{
			name:   "contacto needs name or email",
			deal:   Deal{Stage: StageProspecto},
			target: StageContacto,
			want:   []string{FieldContacto},
		},
		{
			name:   "contacto satisfied by email only",
			deal:   Deal{Stage: StageProspecto, ContactEmail: "ana@acme.test"},
			target: StageContacto,
			want:   []string{},
		},
		{
			name:   "diagnostico needs servicio",
			deal:   Deal{Stage: StageContacto, ContactName: "Ana"},
			target: StageDiagnostico,
			want:   []string{FieldServicio},
		},
		{
			name:   "piloto needs servicio",
			deal:   Deal{Stage: StageDiagnostico, Service: "   "},
			target: StagePiloto,
			want:   []string{FieldServicio},
		},
		{
			name:   "negociacion needs estimate and servicio",
			deal:   Deal{Stage: StageDiagnostico},
			target: StageNegociacion,
			want:   []string{FieldValorEstimado, FieldServicio},
		},
		{
			name:   "cerrado reports all four in fixed order",
			deal:   Deal{Stage: StageNegociacion},
			target: StageCerrado,
			want:   []string{FieldValorEstimado, FieldServicio, FieldContacto, FieldActividad},
		},
		{
			name:        "cerrado only activity missing",
			deal:        completeDeal(StageNegociacion),
			target:      StageCerrado,
			hasActivity: false,
			want:        []string{FieldActividad},
		},
		{
			name:   "zero estimate counts as present",
			deal:   Deal{Stage: StageDiagnostico, EstimatedValue: estimate(0), Service: "x"},
			target: StageNegociacion,
			want:   []string{},
		},
		{
			name:   "perdido has no prerequisites",
			deal:   Deal{Stage: StageNegociacion},
			target: StagePerdido,
			want:   []string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := MissingPrerequisites(tc.deal, tc.target, tc.hasActivity)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestValidateTransitionReportsMissingPrerequisite(t *testing.T) {
	deal := Deal{Stage: StageDiagnostico, Service: "Consulting"}

	err := ValidateTransition(deal, StageNegociacion, false)
	var missing *MissingPrerequisiteError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingPrerequisiteError, got %v", err)
	}
	if !reflect.DeepEqual(missing.Fields, []string{FieldValorEstimado}) {
		t.Fatalf("expected [valorEstimado], got %v", missing.Fields)
	}
}

func TestWithStageAppendsHistoryWithoutTouchingInput(t *testing.T) {
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	deal := NewDeal(Deal{ID: "d1"}, "u1", at)
	if deal.Stage != StageProspecto {
		t.Fatalf(fmtExpectedStage, StageProspecto, deal.Stage)
	}
	if len(deal.StageHistory) != 1 || deal.StageHistory[0].FromStage != StageNone {
		t.Fatalf("expected creation entry from empty stage, got %+v", deal.StageHistory)
	}

	moved := WithStage(deal, StageContacto, "u2", at.Add(time.Hour))
	if len(deal.StageHistory) != 1 {
		t.Fatalf("input history mutated: %+v", deal.StageHistory)
	}
	if moved.Stage != StageContacto {
		t.Fatalf(fmtExpectedStage, StageContacto, moved.Stage)
	}
	last := moved.StageHistory[len(moved.StageHistory)-1]
	if last.FromStage != StageProspecto || last.ToStage != StageContacto || last.ActorID != "u2" {
		t.Fatalf("unexpected history entry %+v", last)
	}
	if !moved.StageEnteredAt().Equal(at.Add(time.Hour)) {
		t.Fatalf("expected stage entered at %s, got %s", at.Add(time.Hour), moved.StageEnteredAt())
	}
}

func TestAllowedTargetsOrdered(t *testing.T) {
	got := AllowedTargets(StageDiagnostico)
	want := []Stage{StageContacto, StagePiloto, StageNegociacion, StagePerdido}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestParseStage(t *testing.T) {
	if _, err := ParseStage("piloto"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseStage("Piloto"); err == nil {
		t.Fatal("expected error for unknown stage")
	}
	if _, err := ParseStage(""); err == nil {
		t.Fatal("expected error for empty stage")
	}
}
