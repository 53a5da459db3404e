package service

import (
	"errors"

	"crm_pipeline_backend/internal/pipeline/domain"
	"crm_pipeline_backend/internal/pipeline/engine"
	"crm_pipeline_backend/internal/pipeline/reversal"
	"crm_pipeline_backend/platform/apperr"
)

const (
	msgDealNotFound     = "deal not found"
	msgTaskNotFound     = "task not found"
	msgReminderNotFound = "reminder not found"
)

// translate maps pipeline errors onto application error kinds. The original
// error stays in the chain so errors.As still finds domain error types.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperr.As(err); ok {
		return err
	}

	var invalid *domain.InvalidTransitionError
	var missing *domain.MissingPrerequisiteError
	switch {
	case errors.As(err, &invalid):
		return apperr.Wrap(apperr.KindConflict, invalid.Error(), err).
			WithOp(op).
			WithDetails(map[string]any{"from": invalid.From, "to": invalid.To, "allowed": domain.AllowedTargets(invalid.From)})
	case errors.As(err, &missing):
		return apperr.Wrap(apperr.KindValidation, missing.Error(), err).
			WithOp(op).
			WithDetails(map[string]any{"missing": missing.Fields})
	case errors.Is(err, engine.ErrDealNotFound):
		return apperr.Wrap(apperr.KindNotFound, msgDealNotFound, err).WithOp(op)
	case errors.Is(err, engine.ErrDealWonAgain):
		return apperr.Wrap(apperr.KindConflict, "deal was won again; reversal no longer applies", err).WithOp(op)
	case errors.Is(err, reversal.ErrTokenNotFound):
		return apperr.Wrap(apperr.KindNotFound, "reversal token not found or already used", err).WithOp(op)
	default:
		return apperr.Wrap(apperr.KindInternal, "pipeline operation failed", err).WithOp(op)
	}
}
