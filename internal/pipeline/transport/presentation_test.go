package transport

import (
	"encoding/json"
	"testing"

	"crm_pipeline_backend/internal/pipeline/scoring"
)

func TestColorTagCoversEveryLevel(t *testing.T) {
	seen := map[string]bool{}
	for _, level := range []scoring.Level{scoring.LevelHot, scoring.LevelWarm, scoring.LevelCold} {
		tag := ColorTag(level)
		if seen[tag] {
			t.Fatalf("color %q reused for level %q", tag, level)
		}
		seen[tag] = true
	}
}

func TestToSuggestionViewNil(t *testing.T) {
	if ToSuggestionView(nil) != nil {
		t.Fatal("expected nil view for nil suggestion")
	}
	view := ToSuggestionView(&scoring.Suggestion{Action: scoring.ActionEscalate, Rationale: "x"})
	if view.IconTag != "alert-triangle" {
		t.Fatalf("unexpected icon %q", view.IconTag)
	}
}

func TestOptionalFloatDistinguishesNullFromAbsent(t *testing.T) {
	var absent UpdateDealRequest
	if err := json.Unmarshal([]byte(`{"empresa":"Acme"}`), &absent); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if absent.EstimatedValue.Set {
		t.Fatal("expected estimate not set")
	}

	var cleared UpdateDealRequest
	if err := json.Unmarshal([]byte(`{"valorEstimado":null}`), &cleared); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !cleared.EstimatedValue.Set || cleared.EstimatedValue.Value != nil {
		t.Fatalf("expected explicit null, got %+v", cleared.EstimatedValue)
	}

	var set UpdateDealRequest
	if err := json.Unmarshal([]byte(`{"valorEstimado":2500.5}`), &set); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if set.EstimatedValue.Value == nil || *set.EstimatedValue.Value != 2500.5 {
		t.Fatalf("expected 2500.5, got %+v", set.EstimatedValue)
	}
}
