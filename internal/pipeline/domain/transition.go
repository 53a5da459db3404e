package domain

import "time"

// MissingPrerequisites returns the fields target requires that deal lacks,
// in the order valorEstimado, servicio, contacto, actividad.
// hasActivity tells whether at least one activity is owned by the deal.
func MissingPrerequisites(deal Deal, target Stage, hasActivity bool) []string {
	var needEstimate, needService, needContact, needActivity bool
	switch target {
	case StageContacto:
		needContact = true
	case StageDiagnostico, StagePiloto:
		needService = true
	case StageNegociacion:
		needEstimate, needService = true, true
	case StageCerrado:
		needEstimate, needService, needContact, needActivity = true, true, true, true
	}

	missing := make([]string, 0, 4)
	if needEstimate && !deal.HasEstimate() {
		missing = append(missing, FieldValorEstimado)
	}
	if needService && !deal.HasService() {
		missing = append(missing, FieldServicio)
	}
	if needContact && !deal.HasContact() {
		missing = append(missing, FieldContacto)
	}
	if needActivity && !hasActivity {
		missing = append(missing, FieldActividad)
	}
	return missing
}

// ValidateTransition checks the stage graph and then the target's prerequisites.
// It returns *InvalidTransitionError or *MissingPrerequisiteError.
func ValidateTransition(deal Deal, target Stage, hasActivity bool) error {
	if !CanTransition(deal.Stage, target) {
		return &InvalidTransitionError{From: deal.Stage, To: target}
	}
	if missing := MissingPrerequisites(deal, target, hasActivity); len(missing) > 0 {
		return &MissingPrerequisiteError{Target: target, Fields: missing}
	}
	return nil
}

// WithStage returns a copy of deal moved to target with one history entry appended.
// It does not validate; callers run ValidateTransition first.
func WithStage(deal Deal, target Stage, actorID string, at time.Time) Deal {
	out := deal.Clone()
	out.StageHistory = append(out.StageHistory, StageChange{
		FromStage: deal.Stage,
		ToStage:   target,
		Timestamp: at,
		ActorID:   actorID,
	})
	out.Stage = target
	return out
}

// NewDeal places a fresh deal in prospecto with its creation history entry.
func NewDeal(deal Deal, actorID string, at time.Time) Deal {
	deal.Stage = StageNone
	deal.StageHistory = nil
	deal.CreatedAt = at
	return WithStage(deal, StageProspecto, actorID, at)
}
