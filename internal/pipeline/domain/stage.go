// Package domain provides core business rules for the pipeline bounded context.
package domain

import "fmt"

// Stage is a position of a deal in the sales pipeline.
type Stage string

const (
	StageProspecto   Stage = "prospecto"
	StageContacto    Stage = "contacto"
	StageDiagnostico Stage = "diagnostico"
	StagePiloto      Stage = "piloto"
	StageNegociacion Stage = "negociacion"
	StageCerrado     Stage = "cerrado"
	StagePerdido     Stage = "perdido"

	// StageNone is the from-stage of the history entry recorded at creation.
	StageNone Stage = ""
)

// AllStages lists the stages in pipeline order.
var AllStages = []Stage{
	StageProspecto,
	StageContacto,
	StageDiagnostico,
	StagePiloto,
	StageNegociacion,
	StageCerrado,
	StagePerdido,
}

// transitions is the directed stage graph. Forward moves never skip a stage;
// cerrado can only revert and perdido can only recover.
var transitions = map[Stage]map[Stage]bool{
	StageProspecto:   {StageContacto: true, StagePerdido: true},
	StageContacto:    {StageDiagnostico: true, StageProspecto: true, StagePerdido: true},
	StageDiagnostico: {StagePiloto: true, StageNegociacion: true, StageContacto: true, StagePerdido: true},
	StagePiloto:      {StageNegociacion: true, StageDiagnostico: true, StagePerdido: true},
	StageNegociacion: {StageCerrado: true, StagePiloto: true, StagePerdido: true},
	StageCerrado:     {StageNegociacion: true},
	StagePerdido:     {StageProspecto: true, StageContacto: true},
}

// Valid reports whether s is a member of the stage set.
func (s Stage) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal is true for won and lost deals.
func (s Stage) IsTerminal() bool {
	return s == StageCerrado || s == StagePerdido
}

// IsActive is true for deals still being worked.
func (s Stage) IsActive() bool {
	return s.Valid() && !s.IsTerminal()
}

// ParseStage converts raw input into a Stage.
func ParseStage(raw string) (Stage, error) {
	s := Stage(raw)
	if !s.Valid() {
		return StageNone, fmt.Errorf("unknown stage %q", raw)
	}
	return s, nil
}

// CanTransition reports whether the graph has an edge from -> to.
// A stage never transitions to itself.
func CanTransition(from, to Stage) bool {
	return transitions[from][to]
}

// AllowedTargets returns the stages reachable from s, in pipeline order.
func AllowedTargets(s Stage) []Stage {
	out := make([]Stage, 0, len(transitions[s]))
	for _, candidate := range AllStages {
		if transitions[s][candidate] {
			out = append(out, candidate)
		}
	}
	return out
}
