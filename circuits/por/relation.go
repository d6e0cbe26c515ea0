package por

import (
	"math/bits"

	"github.com/MuriData/kontor-por/pkg/fieldhash"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash"
)

// Shape is the triple that determines a folded circuit's structure (spec.md
// GLOSSARY "Shape"). Every compile-time array/slice length in this package
// is a pure function of Shape (and, for the folded wrapper, NumSteps) —
// never of witness values — which is the folding uniformity requirement of
// spec.md §4.F.
type Shape struct {
	FilesPerStep        int
	FileTreeDepth        int
	AggregatedTreeDepth int
}

// SlotWitnessVars is the private per-slot circuit witness: the sibling path
// into the file tree, the depth-binding active flags, the sibling path into
// the aggregation tree (empty when AggregatedTreeDepth == 0), and the
// challenged leaf byte-value.
type SlotWitnessVars struct {
	Siblings    []frontend.Variable
	ActiveFlags []frontend.Variable
	AggSiblings []frontend.Variable
	Leaf        frontend.Variable
}

// newSlotWitnessVars allocates a zero-valued slot of the given shape. Zero
// values are enough for both a compile-only template (frontend.Compile only
// needs slice lengths) and a throwaway private assignment (e.g. the
// public-only witness a verifier builds just to extract the public
// component), so this single constructor serves both.
func newSlotWitnessVars(shape Shape) SlotWitnessVars {
	sv := SlotWitnessVars{
		Siblings:    make([]frontend.Variable, shape.FileTreeDepth),
		ActiveFlags: make([]frontend.Variable, shape.FileTreeDepth),
		Leaf:        frontend.Variable(0),
	}
	for i := range sv.Siblings {
		sv.Siblings[i] = frontend.Variable(0)
	}
	for i := range sv.ActiveFlags {
		sv.ActiveFlags[i] = frontend.Variable(0)
	}
	if shape.AggregatedTreeDepth > 0 {
		sv.AggSiblings = make([]frontend.Variable, shape.AggregatedTreeDepth)
		for i := range sv.AggSiblings {
			sv.AggSiblings[i] = frontend.Variable(0)
		}
	} else {
		sv.AggSiblings = []frontend.Variable{}
	}
	return sv
}

// orBits ORs together a non-empty slice of already-Boolean variables.
func orBits(api frontend.API, vals []frontend.Variable) frontend.Variable {
	acc := vals[0]
	for _, v := range vals[1:] {
		acc = api.Or(acc, v)
	}
	return acc
}

// bitsFor returns the number of bits needed to represent values in [0, n].
func bitsFor(n int) int {
	if n <= 0 {
		return 1
	}
	return bits.Len(uint(n))
}

// synthesizeStep implements the per-step relation of spec.md §4.G for one
// step of the fold: the same function is invoked once per step by both the
// standalone StepCircuit (§4.G as its own arity-2+4F unit, used by the
// uniformity/structural-fingerprint test of spec.md §8) and by
// FoldedCircuit (which unrolls NumSteps calls, since no Nova/arecibo
// folding library exists anywhere in the example pack — see DESIGN.md).
//
// aggRoot, ledgerIn, depthIn, seedIn are carried unchanged through every
// step (spec.md §9 "state threading through folding": only state and
// leaf_outputs actually evolve). leafOut receives this step's per-slot
// leaf outputs. The function returns the chained state after this step.
func synthesizeStep(
	api frontend.API,
	h hash.FieldHasher,
	shape Shape,
	aggRoot frontend.Variable,
	stateIn frontend.Variable,
	ledgerIn, depthIn, seedIn []frontend.Variable,
	slots []SlotWitnessVars,
	leafOut []frontend.Variable,
) frontend.Variable {
	state := stateIn
	depthBitWidth := bitsFor(shape.FileTreeDepth)

	for i := 0; i < shape.FilesPerStep; i++ {
		depthBits := api.ToBinary(depthIn[i], depthBitWidth)
		gate := orBits(api, depthBits)

		chI := hashTagged(api, h, fieldhash.TagChallenge, seedIn[i], state)
		chPrime := chI
		if shape.AggregatedTreeDepth > 0 {
			chPrime = hashTagged(api, h, fieldhash.TagChallengePerFile, chI, frontend.Variable(i))
		}
		// chPrime is a Poseidon output spanning the full field, not a value
		// known to be < 2^FileTreeDepth: decomposing straight to
		// FileTreeDepth bits would over-constrain it. Decompose to the full
		// field width and take only the low FileTreeDepth bits, matching
		// the teacher's randBitsFull idiom and
		// original_source/src/circuit/synth.rs's to_bits_le().take(...).
		allBits := api.ToBinary(chPrime, api.Compiler().FieldBitLen())
		pathBits := allBits[:shape.FileTreeDepth]

		slot := slots[i]

		// Depth binding: active_flags[j] must be Boolean, monotonically
		// descending (once 0, stays 0 — mirrors the teacher's
		// circuits/poi/circuit.go sibling-zero monotonicity check), and
		// sum to the publicly declared depth_i.
		sumActive := frontend.Variable(0)
		prevActive := frontend.Variable(1)
		for j := 0; j < shape.FileTreeDepth; j++ {
			api.AssertIsBoolean(slot.ActiveFlags[j])
			violatesMonotonicity := api.Mul(api.Sub(1, prevActive), slot.ActiveFlags[j])
			api.AssertIsEqual(violatesMonotonicity, 0)
			prevActive = slot.ActiveFlags[j]
			sumActive = api.Add(sumActive, slot.ActiveFlags[j])
		}
		api.AssertIsEqual(sumActive, depthIn[i])

		fileRoot := gatedMerklePath(api, h, slot.Leaf, slot.Siblings, pathBits, slot.ActiveFlags)
		rc := hashTagged(api, h, fieldhash.TagRootCommitment, fileRoot, depthIn[i])

		if shape.AggregatedTreeDepth > 0 {
			aggBits := api.ToBinary(ledgerIn[i], shape.AggregatedTreeDepth)
			aggRootComputed := gatedMerklePath(api, h, rc, slot.AggSiblings, aggBits, nil)
			api.AssertIsEqual(api.Mul(gate, api.Sub(aggRootComputed, aggRoot)), 0)
		} else {
			api.AssertIsEqual(api.Mul(gate, api.Sub(fileRoot, aggRoot)), 0)
		}

		stateNext := hashTagged(api, h, fieldhash.TagStateUpdate, state, slot.Leaf)
		state = conditionalSelect(api, gate, state, stateNext)

		leafOut[i] = conditionalSelect(api, gate, 0, slot.Leaf)
	}

	return state
}
