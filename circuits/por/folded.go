package por

import (
	"github.com/MuriData/kontor-por/pkg/field"
	"github.com/MuriData/kontor-por/pkg/fieldhash"
	"github.com/MuriData/kontor-por/pkg/plan"
	"github.com/MuriData/kontor-por/pkg/witness"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/frontend"
)

// FoldedCircuit is the per-Prove/Verify-call circuit that chains NumSteps
// invocations of the uniform step relation (spec.md §4.G) into a single
// Groth16 constraint system. No Nova/arecibo-style recursive-SNARK library
// exists anywhere in the example pack (see DESIGN.md "pkg/fold"), so this
// module's folding contract ("the same circuit folded N times", spec.md
// §1/§9) is realized as N unrolled copies of synthesizeStep compiled,
// proved, and verified once per call, rather than as true incremental
// folding. The fields that spec.md §4.E says are carried unchanged through
// every step (AggRoot, Ledger, Depth, Seed) appear exactly once here — they
// ARE z0's values, threaded by synthesizeStep rather than re-exposed at
// every step boundary.
type FoldedCircuit struct {
	FilesPerStep        int `gnark:"-"`
	FileTreeDepth        int `gnark:"-"`
	AggregatedTreeDepth int `gnark:"-"`
	NumSteps            int `gnark:"-"`

	AggRoot frontend.Variable   `gnark:",public"`
	Ledger  []frontend.Variable `gnark:",public"`
	Depth   []frontend.Variable `gnark:",public"`
	Seed    []frontend.Variable `gnark:",public"`

	StateIn    frontend.Variable `gnark:",public"`
	StateFinal frontend.Variable `gnark:",public"`

	// LeafOutputs[s][i] is step s's public leaf output for slot i (spec.md
	// §4.G output vector's "leaf_outputs..." section, once per step since
	// there is no external folding accumulator collapsing it for us).
	LeafOutputs [][]frontend.Variable `gnark:",public"`

	// Steps[s][i] is step s's private witness for slot i.
	Steps [][]SlotWitnessVars
}

func (c *FoldedCircuit) shape() Shape {
	return Shape{FilesPerStep: c.FilesPerStep, FileTreeDepth: c.FileTreeDepth, AggregatedTreeDepth: c.AggregatedTreeDepth}
}

// Define chains NumSteps calls to synthesizeStep, threading state from one
// step's output into the next step's input.
func (c *FoldedCircuit) Define(api frontend.API) error {
	h, err := newHasher(api)
	if err != nil {
		return err
	}

	shape := c.shape()
	state := c.StateIn
	for s := 0; s < c.NumSteps; s++ {
		state = synthesizeStep(api, h, shape, c.AggRoot, state, c.Ledger, c.Depth, c.Seed, c.Steps[s], c.LeafOutputs[s])
	}
	api.AssertIsEqual(c.StateFinal, state)
	return nil
}

// NewFoldedCircuit builds an unassigned FoldedCircuit template sized for
// frontend.Compile. Shape and numSteps alone determine every slice length.
func NewFoldedCircuit(shape Shape, numSteps int) *FoldedCircuit {
	c := &FoldedCircuit{
		FilesPerStep:        shape.FilesPerStep,
		FileTreeDepth:        shape.FileTreeDepth,
		AggregatedTreeDepth: shape.AggregatedTreeDepth,
		NumSteps:            numSteps,
		Ledger:              make([]frontend.Variable, shape.FilesPerStep),
		Depth:               make([]frontend.Variable, shape.FilesPerStep),
		Seed:                make([]frontend.Variable, shape.FilesPerStep),
		LeafOutputs:         make([][]frontend.Variable, numSteps),
		Steps:               make([][]SlotWitnessVars, numSteps),
	}
	for s := 0; s < numSteps; s++ {
		c.LeafOutputs[s] = make([]frontend.Variable, shape.FilesPerStep)
		c.Steps[s] = make([]SlotWitnessVars, shape.FilesPerStep)
		for i := range c.Steps[s] {
			c.Steps[s][i] = newSlotWitnessVars(shape)
		}
	}
	return c
}

// AssignFoldedCircuit builds a fully-valued FoldedCircuit assignment from a
// Plan and the sequence of per-step witnesses produced by pkg/witness (one
// entry per folding step, per spec.md §4.H). It recomputes the same public
// leaf-output and final-state values the circuit itself will derive, since
// Groth16 (unlike true Nova) requires the verifier to be handed the
// complete public witness, including the prover's claimed outputs — see
// DESIGN.md "pkg/proof" for how those outputs travel to the
// verifier.
func AssignFoldedCircuit(shape Shape, p *plan.Plan, steps []witness.StepWitness) (*FoldedCircuit, fr.Element, error) {
	numSteps := len(steps)
	c := &FoldedCircuit{
		FilesPerStep:        shape.FilesPerStep,
		FileTreeDepth:        shape.FileTreeDepth,
		AggregatedTreeDepth: shape.AggregatedTreeDepth,
		NumSteps:            numSteps,
		AggRoot:             toVar(p.AggregatedRoot),
		Ledger:              toVars(indicesToElements(p.LedgerIndices)),
		Depth:               toVars(indicesToElements(p.Depths)),
		Seed:                toVars(p.Seeds),
		StateIn:             toVar(field.Zero()),
		LeafOutputs:         make([][]frontend.Variable, numSteps),
		Steps:               make([][]SlotWitnessVars, numSteps),
	}

	state := field.Zero()
	for s, step := range steps {
		c.Steps[s] = make([]SlotWitnessVars, shape.FilesPerStep)
		c.LeafOutputs[s] = make([]frontend.Variable, shape.FilesPerStep)
		for i, slot := range step.Slots {
			c.Steps[s][i] = assignSlot(shape, slot.Leaf, slot.Siblings, slot.ActiveFlags, slot.AggSiblings)

			if p.Depths[i] > 0 {
				c.LeafOutputs[s][i] = toVar(slot.Leaf)
				state = fieldhash.StateUpdate(state, slot.Leaf)
			} else {
				c.LeafOutputs[s][i] = toVar(field.Zero())
			}
		}
	}
	c.StateFinal = toVar(state)

	return c, state, nil
}

// PublicOnlyTemplate builds a FoldedCircuit assignment carrying every public
// value a verifier needs (from the Plan and the prover's claimed outputs)
// plus zero-valued private slots of the correct shape, so that
// frontend.NewWitness followed by Witness.Public() yields the public witness
// groth16.Verify needs — without requiring the verifier to ever see, let
// alone recompute, the private per-slot siblings.
func PublicOnlyTemplate(shape Shape, numSteps int, p *plan.Plan, leafOutputs [][]fr.Element, stateFinal fr.Element) *FoldedCircuit {
	c := &FoldedCircuit{
		FilesPerStep:        shape.FilesPerStep,
		FileTreeDepth:        shape.FileTreeDepth,
		AggregatedTreeDepth: shape.AggregatedTreeDepth,
		NumSteps:            numSteps,
		AggRoot:             toVar(p.AggregatedRoot),
		Ledger:              toVars(indicesToElements(p.LedgerIndices)),
		Depth:               toVars(indicesToElements(p.Depths)),
		Seed:                toVars(p.Seeds),
		StateIn:             toVar(field.Zero()),
		StateFinal:          toVar(stateFinal),
		LeafOutputs:         make([][]frontend.Variable, numSteps),
		Steps:               make([][]SlotWitnessVars, numSteps),
	}
	for s := 0; s < numSteps; s++ {
		c.LeafOutputs[s] = toVars(leafOutputs[s])
		c.Steps[s] = make([]SlotWitnessVars, shape.FilesPerStep)
		for i := range c.Steps[s] {
			c.Steps[s][i] = newSlotWitnessVars(shape)
		}
	}
	return c
}

func indicesToElements(idx []int) []fr.Element {
	out := make([]fr.Element, len(idx))
	for i, v := range idx {
		out[i] = field.FromUint64(uint64(v))
	}
	return out
}
