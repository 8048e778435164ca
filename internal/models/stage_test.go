package models

import "testing"

func TestStageAdvance(t *testing.T) {
	s := StagePending
	order := []Stage{StageValidated, StageOcrComplete, StageAssemblyComplete, StageEnhancementComplete}
	for _, next := range order {
		var err error
		s, err = s.Advance(next)
		if err != nil {
			t.Fatalf("Advance to %s: %v", next, err)
		}
	}
	if s != StageEnhancementComplete {
		t.Errorf("final stage = %s", s)
	}
}

func TestStageAdvance_rejectsSkipAndBackward(t *testing.T) {
	if _, err := StagePending.Advance(StageOcrComplete); err == nil {
		t.Error("skipping Validated should fail")
	}
	if _, err := StageOcrComplete.Advance(StageValidated); err == nil {
		t.Error("backward transition should fail")
	}
	if _, err := StagePending.Advance(Stage("Bogus")); err == nil {
		t.Error("unknown stage should fail")
	}
}

func TestStageReached(t *testing.T) {
	if !StageOcrComplete.Reached(StageValidated) {
		t.Error("OcrComplete should have reached Validated")
	}
	if StageValidated.Reached(StageAssemblyComplete) {
		t.Error("Validated should not have reached AssemblyComplete")
	}
}

func TestStageNext_terminal(t *testing.T) {
	if StageEnhancementComplete.Next() != StageEnhancementComplete {
		t.Error("terminal stage Next should be itself")
	}
}
