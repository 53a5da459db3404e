package service

import (
	"sort"
	"time"

	"crm_pipeline_backend/internal/pipeline/domain"
	"crm_pipeline_backend/internal/pipeline/scoring"
	"crm_pipeline_backend/internal/pipeline/transport"
)

// dealHistory is the activity and task lists scoring reads, resolved once per
// request through Snapshot.DealActivities and DealTasks.
type dealHistory struct {
	activities []domain.Activity
	tasks      []domain.Task
}

func (s *Service) historyLocked() dealHistory {
	return dealHistory{activities: s.snap.DealActivities(), tasks: s.snap.DealTasks()}
}

// viewLocked builds the read model of one deal. Callers hold s.mu.
func (s *Service) viewLocked(deal domain.Deal, now time.Time, h dealHistory) transport.DealView {
	activities, tasks := h.activities, h.tasks

	view := transport.DealView{
		Deal:          deal,
		Score:         transport.ToScoreView(scoring.ComputeScore(deal, activities, tasks, now, s.scoring)),
		Suggestion:    transport.ToSuggestionView(scoring.SuggestedAction(deal, activities, tasks, now, s.scoring)),
		AllowedStages: domain.AllowedTargets(deal.Stage),
	}
	if acc, ok := s.snap.AccountForDeal(deal.ID); ok {
		view.AccountID = acc.ID
	}
	return view
}

func sortViews(views []transport.DealView) {
	sort.SliceStable(views, func(i, j int) bool {
		if views[i].Score.Score != views[j].Score.Score {
			return views[i].Score.Score > views[j].Score.Score
		}
		return views[i].ID < views[j].ID
	})
}
