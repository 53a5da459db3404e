package domain

import (
	"fmt"
	"strings"
)

// Prerequisite field names, in the order they are reported.
const (
	FieldValorEstimado = "valorEstimado"
	FieldServicio      = "servicio"
	FieldContacto      = "contacto"
	FieldActividad     = "actividad"
)

// InvalidTransitionError means the target stage is unreachable from the current one.
type InvalidTransitionError struct {
	From Stage
	To   Stage
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %q to %q", e.From, e.To)
}

// MissingPrerequisiteError lists the fields the target stage requires but the deal lacks.
type MissingPrerequisiteError struct {
	Target Stage
	Fields []string
}

func (e *MissingPrerequisiteError) Error() string {
	return fmt.Sprintf("missing prerequisites for %q: %s", e.Target, strings.Join(e.Fields, ", "))
}
