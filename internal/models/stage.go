package models

import "fmt"

// Stage is a named pipeline completion state. It replaces the opaque numeric
// "stage completed" marker: a run at stage S may skip every stage at or
// before S on re-invocation. Transitions only move forward.
type Stage string

const (
	StagePending             Stage = "Pending"
	StageValidated           Stage = "Validated"
	StageOcrComplete         Stage = "OcrComplete"
	StageAssemblyComplete    Stage = "AssemblyComplete"
	StageEnhancementComplete Stage = "EnhancementComplete"
)

var stageOrder = map[Stage]int{
	StagePending:             0,
	StageValidated:           1,
	StageOcrComplete:         2,
	StageAssemblyComplete:    3,
	StageEnhancementComplete: 4,
}

// Valid reports whether s is a known stage name.
func (s Stage) Valid() bool {
	_, ok := stageOrder[s]
	return ok
}

// Reached reports whether s is at or past other.
func (s Stage) Reached(other Stage) bool {
	return stageOrder[s] >= stageOrder[other]
}

// Next returns the stage that follows s.
// The terminal stage returns itself.
func (s Stage) Next() Stage {
	switch s {
	case StagePending:
		return StageValidated
	case StageValidated:
		return StageOcrComplete
	case StageOcrComplete:
		return StageAssemblyComplete
	case StageAssemblyComplete:
		return StageEnhancementComplete
	default:
		return s
	}
}

// Advance validates a forward transition from s to next.
func (s Stage) Advance(next Stage) (Stage, error) {
	if !next.Valid() {
		return s, fmt.Errorf("unknown stage %q", next)
	}
	if stageOrder[next] != stageOrder[s]+1 {
		return s, fmt.Errorf("invalid transition %s -> %s", s, next)
	}
	return next, nil
}
