package por

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/frontend"
)

// StepCircuit is the standalone, arity-(2+4*FilesPerStep) uniform step
// circuit of spec.md §4.G: one full input vector z_in, one full output
// vector z_out, and the private per-slot witness. Its own existence (as
// opposed to only ever appearing unrolled inside FoldedCircuit) is what
// spec.md §8's uniformity property is tested against: two StepCircuit
// instances built from the same Shape but different witness values must
// compile to byte-identical R1CS structure.
type StepCircuit struct {
	FilesPerStep        int `gnark:"-"`
	FileTreeDepth        int `gnark:"-"`
	AggregatedTreeDepth int `gnark:"-"`

	AggRootIn frontend.Variable   `gnark:",public"`
	StateIn   frontend.Variable   `gnark:",public"`
	LedgerIn  []frontend.Variable `gnark:",public"`
	DepthIn   []frontend.Variable `gnark:",public"`
	SeedIn    []frontend.Variable `gnark:",public"`
	LeafIn    []frontend.Variable `gnark:",public"`

	AggRootOut frontend.Variable   `gnark:",public"`
	StateOut   frontend.Variable   `gnark:",public"`
	LedgerOut  []frontend.Variable `gnark:",public"`
	DepthOut   []frontend.Variable `gnark:",public"`
	SeedOut    []frontend.Variable `gnark:",public"`
	LeafOut    []frontend.Variable `gnark:",public"`

	Slots []SlotWitnessVars
}

func (c *StepCircuit) shape() Shape {
	return Shape{FilesPerStep: c.FilesPerStep, FileTreeDepth: c.FileTreeDepth, AggregatedTreeDepth: c.AggregatedTreeDepth}
}

// Define synthesizes exactly one step of spec.md §4.G, asserting the
// carried-forward public fields are unchanged and that the declared
// StateOut/LeafOut match the computed relation.
func (c *StepCircuit) Define(api frontend.API) error {
	h, err := newHasher(api)
	if err != nil {
		return err
	}

	shape := c.shape()
	api.AssertIsEqual(c.AggRootOut, c.AggRootIn)
	for i := 0; i < shape.FilesPerStep; i++ {
		api.AssertIsEqual(c.LedgerOut[i], c.LedgerIn[i])
		api.AssertIsEqual(c.DepthOut[i], c.DepthIn[i])
		api.AssertIsEqual(c.SeedOut[i], c.SeedIn[i])
	}

	stateOut := synthesizeStep(api, h, shape, c.AggRootIn, c.StateIn, c.LedgerIn, c.DepthIn, c.SeedIn, c.Slots, c.LeafOut)
	api.AssertIsEqual(c.StateOut, stateOut)
	return nil
}

// NewStepCircuit builds an unassigned StepCircuit template of the given
// shape, sized correctly for frontend.Compile. Compiling two templates of
// the same Shape (regardless of the witness values later assigned) must
// yield identical constraint-system structure.
func NewStepCircuit(shape Shape) *StepCircuit {
	c := &StepCircuit{
		FilesPerStep:        shape.FilesPerStep,
		FileTreeDepth:        shape.FileTreeDepth,
		AggregatedTreeDepth: shape.AggregatedTreeDepth,
		LedgerIn:            make([]frontend.Variable, shape.FilesPerStep),
		DepthIn:             make([]frontend.Variable, shape.FilesPerStep),
		SeedIn:              make([]frontend.Variable, shape.FilesPerStep),
		LeafIn:              make([]frontend.Variable, shape.FilesPerStep),
		LedgerOut:           make([]frontend.Variable, shape.FilesPerStep),
		DepthOut:            make([]frontend.Variable, shape.FilesPerStep),
		SeedOut:             make([]frontend.Variable, shape.FilesPerStep),
		LeafOut:             make([]frontend.Variable, shape.FilesPerStep),
		Slots:               make([]SlotWitnessVars, shape.FilesPerStep),
	}
	for i := range c.Slots {
		c.Slots[i] = newSlotWitnessVars(shape)
	}
	return c
}

// toVar renders a field element as the *big.Int gnark's witness assignment
// expects, matching the teacher's own field.Bytes2Field/Field2Bytes
// *big.Int boundary (pkg/field here keeps fr.Element as the canonical
// out-of-circuit type; this is the one place it crosses into gnark's
// witness-assignment world).
func toVar(e fr.Element) *big.Int {
	var b big.Int
	e.BigInt(&b)
	return &b
}

func toVars(es []fr.Element) []frontend.Variable {
	out := make([]frontend.Variable, len(es))
	for i, e := range es {
		out[i] = toVar(e)
	}
	return out
}

func boolVars(flags []bool) []frontend.Variable {
	out := make([]frontend.Variable, len(flags))
	for i, f := range flags {
		if f {
			out[i] = 1
		} else {
			out[i] = 0
		}
	}
	return out
}

func assignSlot(shape Shape, leaf fr.Element, siblings []fr.Element, activeFlags []bool, aggSiblings []fr.Element) SlotWitnessVars {
	sv := SlotWitnessVars{
		Siblings:    toVars(siblings),
		ActiveFlags: boolVars(activeFlags),
		Leaf:        toVar(leaf),
	}
	if shape.AggregatedTreeDepth > 0 {
		sv.AggSiblings = toVars(aggSiblings)
	} else {
		sv.AggSiblings = []frontend.Variable{}
	}
	return sv
}
