package por

import (
	"bytes"
	"testing"

	"github.com/MuriData/kontor-por/pkg/field"
	"github.com/MuriData/kontor-por/pkg/fileprep"
	"github.com/MuriData/kontor-por/pkg/ledger"
	"github.com/MuriData/kontor-por/pkg/plan"
	"github.com/MuriData/kontor-por/pkg/setup"
	"github.com/MuriData/kontor-por/pkg/witness"
	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
)

// TestStepCircuitUniformity checks spec.md §8's structural-fingerprint
// property: two StepCircuit instances of the same Shape, assigned different
// witness values, must compile to byte-identical R1CS structure, since
// frontend.Compile only traces the Define method symbolically and never
// evaluates assigned values.
func TestStepCircuitUniformity(t *testing.T) {
	shape := Shape{FilesPerStep: 2, FileTreeDepth: 3, AggregatedTreeDepth: 2}

	a := NewStepCircuit(shape)
	fillStepCircuit(a, 1)
	b := NewStepCircuit(shape)
	fillStepCircuit(b, 99)

	ccsA, err := setup.CompileCircuit(a)
	if err != nil {
		t.Fatalf("compile a: %v", err)
	}
	ccsB, err := setup.CompileCircuit(b)
	if err != nil {
		t.Fatalf("compile b: %v", err)
	}

	if ccsA.GetNbConstraints() != ccsB.GetNbConstraints() {
		t.Errorf("constraint count differs: %d vs %d", ccsA.GetNbConstraints(), ccsB.GetNbConstraints())
	}
	if ccsA.GetNbPublicVariables() != ccsB.GetNbPublicVariables() {
		t.Errorf("public variable count differs: %d vs %d", ccsA.GetNbPublicVariables(), ccsB.GetNbPublicVariables())
	}
	if ccsA.GetNbSecretVariables() != ccsB.GetNbSecretVariables() {
		t.Errorf("secret variable count differs: %d vs %d", ccsA.GetNbSecretVariables(), ccsB.GetNbSecretVariables())
	}

	var bufA, bufB bytes.Buffer
	if _, err := ccsA.WriteTo(&bufA); err != nil {
		t.Fatalf("serialize ccsA: %v", err)
	}
	if _, err := ccsB.WriteTo(&bufB); err != nil {
		t.Fatalf("serialize ccsB: %v", err)
	}
	if !bytes.Equal(bufA.Bytes(), bufB.Bytes()) {
		t.Error("compiled R1CS differs between two witness assignments of the same shape")
	}
}

// fillStepCircuit assigns every variable field of a StepCircuit template to
// a distinct, deterministic value derived from seed, for the uniformity
// test above: the actual values are irrelevant to compiled structure.
func fillStepCircuit(c *StepCircuit, seed uint64) {
	c.AggRootIn = toVar(field.FromUint64(seed))
	c.StateIn = toVar(field.FromUint64(seed + 1))
	c.AggRootOut = c.AggRootIn
	c.StateOut = toVar(field.FromUint64(seed + 2))
	for i := range c.LedgerIn {
		c.LedgerIn[i] = toVar(field.FromUint64(seed + uint64(i) + 10))
		c.DepthIn[i] = toVar(field.FromUint64(seed + uint64(i) + 20))
		c.SeedIn[i] = toVar(field.FromUint64(seed + uint64(i) + 30))
		c.LeafIn[i] = toVar(field.FromUint64(seed + uint64(i) + 40))
		c.LedgerOut[i] = c.LedgerIn[i]
		c.DepthOut[i] = c.DepthIn[i]
		c.SeedOut[i] = c.SeedIn[i]
		c.LeafOut[i] = toVar(field.FromUint64(seed + uint64(i) + 50))
	}
}

// TestFoldedCircuitEndToEnd compiles a small FoldedCircuit, runs a dev
// setup, assigns it from a real single-file plan and witness chain, proves,
// and verifies, the same compile/setup/prove/verify sequence the teacher's
// circuit tests follow.
func TestFoldedCircuitEndToEnd(t *testing.T) {
	data := bytes.Repeat([]byte{0x7a}, 200)
	pf, meta, err := fileprep.Prepare(data, "f.bin")
	if err != nil {
		t.Fatalf("fileprep.Prepare: %v", err)
	}

	l := ledger.New()
	numChallenges := 2
	challenge := plan.Challenge{
		FileMetadata:  *meta,
		BlockHeight:   1,
		NumChallenges: numChallenges,
		Seed:          field.FromUint64(123),
		ProverID:      "prover-1",
	}

	p, err := plan.Build([]plan.Challenge{challenge}, l)
	if err != nil {
		t.Fatalf("plan.Build: %v", err)
	}
	shape := Shape{FilesPerStep: p.FilesPerStep, FileTreeDepth: p.FileTreeDepth, AggregatedTreeDepth: p.AggregatedTreeDepth}

	files := map[string]*fileprep.PreparedFile{meta.ID: pf}
	wb := witness.NewBuilder(p, files, l)

	steps := make([]witness.StepWitness, 0, numChallenges)
	state := field.Zero()
	for s := 0; s < numChallenges; s++ {
		step, nextState, err := wb.BuildStep(state)
		if err != nil {
			t.Fatalf("BuildStep %d: %v", s, err)
		}
		steps = append(steps, step)
		state = nextState
	}

	assignment, _, err := AssignFoldedCircuit(shape, p, steps)
	if err != nil {
		t.Fatalf("AssignFoldedCircuit: %v", err)
	}

	circuit := NewFoldedCircuit(shape, numChallenges)
	ccs, err := setup.CompileCircuit(circuit)
	if err != nil {
		t.Fatalf("compile circuit: %v", err)
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		t.Fatalf("groth16 setup: %v", err)
	}

	fullWitness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		t.Fatalf("create witness: %v", err)
	}
	publicWitness, err := fullWitness.Public()
	if err != nil {
		t.Fatalf("extract public witness: %v", err)
	}

	proof, err := groth16.Prove(ccs, pk, fullWitness)
	if err != nil {
		t.Fatalf("prove: %v", err)
	}
	if err := groth16.Verify(proof, vk, publicWitness); err != nil {
		t.Fatalf("verify: %v", err)
	}
}
