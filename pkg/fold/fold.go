// Package fold implements the folding accumulator contract of spec.md
// §4.I/§9: "the underlying library semantics are such that the first
// prove_step is a no-op (step 0 was already synthesized by
// initialization); subsequent calls each fold one real step... N calls
// total, first is no-op, regardless of which folding library is used."
//
// No Nova/arecibo-style recursive-SNARK library exists anywhere in the
// example pack (confirmed by exhaustive grep across every repo and
// other_examples/ — see DESIGN.md). RecursiveSNARK here is therefore a
// thin bookkeeping accumulator that enforces the call-count contract and
// collects per-step witnesses for circuits/por.FoldedCircuit, which
// performs the actual (unrolled, Groth16-backed) constraint synthesis.
package fold

import (
	"github.com/MuriData/kontor-por/pkg/porerr"
	"github.com/MuriData/kontor-por/pkg/witness"
)

// RecursiveSNARK accumulates step witnesses for one Prove call, enforcing
// that ProveStep is invoked exactly NumSteps times with the first call
// being a no-op.
type RecursiveSNARK struct {
	numSteps int
	steps    []witness.StepWitness
	calls    int
}

// Init initializes the accumulator with step 0's witness (already
// synthesized, per the folding library's contract) and the target number
// of folding steps this Prove call must perform.
func Init(numSteps int, step0 witness.StepWitness) (*RecursiveSNARK, error) {
	if numSteps <= 0 {
		return nil, porerr.New(porerr.InvalidChallengeCount, "num_challenges must be positive, got %d", numSteps)
	}
	return &RecursiveSNARK{numSteps: numSteps, steps: []witness.StepWitness{step0}}, nil
}

// ProveStep folds one step. The first call after Init is a no-op: step 0
// was already captured by Init, matching the "N calls total, first is
// no-op" contract of spec.md §9. Every subsequent call appends next as the
// witness for the next chained step.
func (r *RecursiveSNARK) ProveStep(next witness.StepWitness) error {
	r.calls++
	if r.calls == 1 {
		return nil
	}
	if len(r.steps) >= r.numSteps {
		return porerr.New(porerr.InvalidInput, "prove_step called %d times, expected exactly %d", r.calls, r.numSteps)
	}
	r.steps = append(r.steps, next)
	return nil
}

// Finalize validates that exactly numSteps calls were made and exactly
// numSteps witnesses were collected, then returns them in step order.
func (r *RecursiveSNARK) Finalize() ([]witness.StepWitness, error) {
	if r.calls != r.numSteps {
		return nil, porerr.New(porerr.InvalidInput,
			"expected exactly %d prove_step calls (including the initializing no-op), got %d", r.numSteps, r.calls)
	}
	if len(r.steps) != r.numSteps {
		return nil, porerr.New(porerr.InvalidInput, "collected %d step witnesses, want %d", len(r.steps), r.numSteps)
	}
	return r.steps, nil
}
