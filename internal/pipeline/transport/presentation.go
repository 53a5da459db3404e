package transport

import (
	"crm_pipeline_backend/internal/pipeline/scoring"
)

// ColorTag maps a health level to the badge color clients render.
func ColorTag(level scoring.Level) string {
	switch level {
	case scoring.LevelHot:
		return "red"
	case scoring.LevelWarm:
		return "orange"
	default:
		return "blue"
	}
}

// IconTag maps a suggested action to the icon clients render.
func IconTag(action scoring.Action) string {
	switch action {
	case scoring.ActionFirstContact:
		return "phone-outgoing"
	case scoring.ActionFollowUpCall:
		return "phone"
	case scoring.ActionCompleteTask:
		return "check-square"
	case scoring.ActionEscalate:
		return "alert-triangle"
	default:
		return "info"
	}
}

func ToScoreView(r scoring.Result) ScoreView {
	return ScoreView{
		Score:    r.Score,
		Level:    string(r.Level),
		ColorTag: ColorTag(r.Level),
		Factors:  r.Factors,
	}
}

func ToSuggestionView(s *scoring.Suggestion) *SuggestionView {
	if s == nil {
		return nil
	}
	return &SuggestionView{
		Action:    string(s.Action),
		Rationale: s.Rationale,
		TaskID:    s.TaskID,
		IconTag:   IconTag(s.Action),
	}
}
