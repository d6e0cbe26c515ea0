package fold

import (
	"testing"

	"github.com/MuriData/kontor-por/pkg/witness"
)

func TestInitRejectsNonPositiveNumSteps(t *testing.T) {
	if _, err := Init(0, witness.StepWitness{}); err == nil {
		t.Fatal("expected error for numSteps == 0")
	}
	if _, err := Init(-1, witness.StepWitness{}); err == nil {
		t.Fatal("expected error for negative numSteps")
	}
}

func TestProveStepFirstCallIsNoOp(t *testing.T) {
	r, err := Init(3, witness.StepWitness{})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := r.ProveStep(witness.StepWitness{}); err != nil {
		t.Fatalf("first ProveStep should be a no-op, got error: %v", err)
	}
	if len(r.steps) != 1 {
		t.Fatalf("after the no-op call, expected 1 collected step, got %d", len(r.steps))
	}
}

func TestProveStepSequentialContract(t *testing.T) {
	r, err := Init(3, witness.StepWitness{})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := r.ProveStep(witness.StepWitness{}); err != nil { // no-op
		t.Fatalf("call 1: %v", err)
	}
	if err := r.ProveStep(witness.StepWitness{}); err != nil { // real step 1
		t.Fatalf("call 2: %v", err)
	}
	if err := r.ProveStep(witness.StepWitness{}); err != nil { // real step 2
		t.Fatalf("call 3: %v", err)
	}

	steps, err := r.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if len(steps) != 3 {
		t.Fatalf("got %d steps, want 3", len(steps))
	}
}

func TestProveStepRejectsExtraCalls(t *testing.T) {
	r, err := Init(2, witness.StepWitness{})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := r.ProveStep(witness.StepWitness{}); err != nil { // no-op
		t.Fatalf("call 1: %v", err)
	}
	if err := r.ProveStep(witness.StepWitness{}); err != nil { // real step 1, fills numSteps=2
		t.Fatalf("call 2: %v", err)
	}
	if err := r.ProveStep(witness.StepWitness{}); err == nil {
		t.Fatal("expected error calling ProveStep beyond numSteps")
	}
}

func TestFinalizeRejectsTooFewCalls(t *testing.T) {
	r, err := Init(3, witness.StepWitness{})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := r.ProveStep(witness.StepWitness{}); err != nil { // no-op only
		t.Fatalf("ProveStep: %v", err)
	}
	if _, err := r.Finalize(); err == nil {
		t.Fatal("expected error finalizing before enough calls were made")
	}
}
