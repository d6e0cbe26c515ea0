package proof

import (
	"bytes"
	"math/big"

	"github.com/MuriData/kontor-por/circuits/por"
	"github.com/MuriData/kontor-por/pkg/config"
	"github.com/MuriData/kontor-por/pkg/field"
	"github.com/MuriData/kontor-por/pkg/fileprep"
	"github.com/MuriData/kontor-por/pkg/fold"
	"github.com/MuriData/kontor-por/pkg/ledger"
	"github.com/MuriData/kontor-por/pkg/plan"
	"github.com/MuriData/kontor-por/pkg/porerr"
	"github.com/MuriData/kontor-por/pkg/setup"
	"github.com/MuriData/kontor-por/pkg/telemetry"
	"github.com/MuriData/kontor-por/pkg/witness"
	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
)

// shapeOf derives both the circuit Shape and the param-cache ShapeKey for a
// plan, the key additionally carrying NumSteps (see pkg/setup.ShapeKey doc).
func shapeOf(p *plan.Plan) (por.Shape, setup.ShapeKey) {
	shape := por.Shape{
		FilesPerStep:        p.FilesPerStep,
		FileTreeDepth:       p.FileTreeDepth,
		AggregatedTreeDepth: p.AggregatedTreeDepth,
	}
	key := setup.ShapeKey{
		FilesPerStep:        p.FilesPerStep,
		FileTreeDepth:       p.FileTreeDepth,
		AggregatedTreeDepth: p.AggregatedTreeDepth,
		NumSteps:            p.NumChallenges,
	}
	return shape, key
}

// validateChallenges checks the resource bounds of spec.md §7 before any
// expensive work begins.
func validateChallenges(challenges []plan.Challenge) error {
	if len(challenges) == 0 {
		return porerr.New(porerr.InvalidInput, "prove requires at least one challenge")
	}
	if len(challenges) > config.PracticalMaxFiles {
		return porerr.New(porerr.TooManyFiles, "got %d challenges, max %d", len(challenges), config.PracticalMaxFiles)
	}
	n := challenges[0].NumChallenges
	if n <= 0 || n > config.MaxNumChallenges {
		return porerr.New(porerr.InvalidChallengeCount, "num_challenges %d out of range [1, %d]", n, config.MaxNumChallenges)
	}
	return nil
}

// Prove runs the full pipeline of spec.md §4.I: plan derivation, per-step
// witness construction folded via pkg/fold's accumulator contract, folded
// circuit assignment, and a single Groth16 proof over the unrolled circuit.
func Prove(challenges []plan.Challenge, files map[string]*fileprep.PreparedFile, l *ledger.FileLedger) (*Proof, error) {
	log := telemetry.Logger()
	log.Info().Int("num_files", len(challenges)).Msg("prove: starting")

	if err := validateChallenges(challenges); err != nil {
		return nil, err
	}

	for _, c := range challenges {
		pf, ok := files[c.FileMetadata.ID]
		if !ok {
			return nil, porerr.New(porerr.FileNotFound, "file_id %q not supplied to Prove", c.FileMetadata.ID)
		}
		if err := fileprep.VerifyMetadataMatchesTree(pf, &c.FileMetadata); err != nil {
			return nil, err
		}
	}

	p, err := plan.Build(challenges, l)
	if err != nil {
		return nil, err
	}
	shape, key := shapeOf(p)

	wb := witness.NewBuilder(p, files, l)
	step0, state, err := wb.BuildStep(field.Zero())
	if err != nil {
		return nil, err
	}

	rs, err := fold.Init(p.NumChallenges, step0)
	if err != nil {
		return nil, err
	}
	// ProveStep's first call is always a no-op (step0 is already
	// captured by Init); every subsequent call folds the next step,
	// built from the state the previous step chained out.
	if err := rs.ProveStep(witness.StepWitness{}); err != nil {
		return nil, err
	}
	for s := 1; s < p.NumChallenges; s++ {
		stepW, nextState, err := wb.BuildStep(state)
		if err != nil {
			return nil, err
		}
		if err := rs.ProveStep(stepW); err != nil {
			return nil, err
		}
		state = nextState
	}

	steps, err := rs.Finalize()
	if err != nil {
		return nil, err
	}

	circuit := por.NewFoldedCircuit(shape, p.NumChallenges)
	assignment, finalState, err := por.AssignFoldedCircuit(shape, p, steps)
	if err != nil {
		return nil, err
	}

	params, err := setup.ParamsForShape(key, circuit)
	if err != nil {
		return nil, porerr.Wrap(porerr.Snark, err, "preparing circuit parameters for shape %+v", key)
	}

	fullWitness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, porerr.Wrap(porerr.Snark, err, "building witness")
	}

	grothProof, err := groth16.Prove(params.CCS, params.PK, fullWitness)
	if err != nil {
		return nil, porerr.Wrap(porerr.Snark, err, "groth16 prove")
	}

	var proofBuf bytes.Buffer
	if _, err := grothProof.WriteTo(&proofBuf); err != nil {
		return nil, porerr.Wrap(porerr.Serialization, err, "serializing groth16 proof")
	}

	ids := make([]plan.ChallengeID, len(challenges))
	for i, c := range challenges {
		ids[i] = c.ID()
	}

	log.Info().Int("num_steps", p.NumChallenges).Int("proof_bytes", proofBuf.Len()).Msg("prove: completed")

	return &Proof{
		CompressedSNARK: proofBuf.Bytes(),
		ChallengeIDs:    ids,
		publicOutputs:   encodePublicOutputs(assignment.LeafOutputs, finalState),
	}, nil
}

// Verify checks a Proof against the challenges it claims to answer and the
// ledger they were pinned against. A false, nil result means the proof was
// soundly rejected (wrong challenge set, or the SNARK itself failed to
// verify); a non-nil error means verification could not even be attempted
// (missing cached parameters, malformed witness data).
func Verify(p *Proof, challenges []plan.Challenge, l *ledger.FileLedger) (bool, error) {
	log := telemetry.Logger()
	log.Info().Int("num_files", len(challenges)).Msg("verify: starting")

	if err := validateChallenges(challenges); err != nil {
		return false, err
	}
	if len(p.ChallengeIDs) != len(challenges) {
		return false, nil
	}
	for i, c := range challenges {
		if c.ID() != p.ChallengeIDs[i] {
			return false, nil
		}
	}

	plnd, err := plan.Build(challenges, l)
	if err != nil {
		return false, err
	}
	shape, key := shapeOf(plnd)

	// Trust boundary (spec.md §9): a ledger index a malicious prover
	// points at must actually lie within the aggregation tree the
	// verifier itself derived; plan.Build already enforces file_id ->
	// canonical index consistency, so this is a width sanity check.
	if plnd.AggregatedTreeDepth > 0 {
		bound := 1 << uint(plnd.AggregatedTreeDepth)
		for _, idx := range plnd.LedgerIndices {
			if idx < 0 || idx >= bound {
				return false, nil
			}
		}
	}

	numSteps := plnd.NumChallenges
	leafOutputs, finalState, err := decodePublicOutputs(p.publicOutputs, numSteps, plnd.FilesPerStep)
	if err != nil {
		return false, err
	}

	params, ok := setup.CachedParams(key)
	if !ok {
		return false, porerr.New(porerr.Snark, "no cached parameters for shape %+v: verifier must share a process with a prover that built them", key)
	}

	grothProof := groth16.NewProof(ecc.BN254)
	if _, err := grothProof.ReadFrom(bytes.NewReader(p.CompressedSNARK)); err != nil {
		return false, porerr.Wrap(porerr.Serialization, err, "decoding groth16 proof")
	}

	template := por.PublicOnlyTemplate(shape, numSteps, plnd, leafOutputs, finalState)
	fullWitness, err := frontend.NewWitness(template, ecc.BN254.ScalarField())
	if err != nil {
		return false, porerr.Wrap(porerr.Snark, err, "building verifier witness")
	}
	publicWitness, err := fullWitness.Public()
	if err != nil {
		return false, porerr.Wrap(porerr.Snark, err, "extracting public witness")
	}

	if err := groth16.Verify(grothProof, params.VK, publicWitness); err != nil {
		log.Info().Msg("verify: rejected")
		return false, nil
	}
	log.Info().Msg("verify: accepted")
	return true, nil
}

// encodePublicOutputs renders the prover's claimed per-step leaf outputs and
// final state as canonical 32-byte big-endian field-element encodings, one
// step's worth of slots at a time followed by the final state.
func encodePublicOutputs(leafOutputs [][]frontend.Variable, finalState fr.Element) [][]byte {
	out := make([][]byte, 0, 1)
	for _, row := range leafOutputs {
		for _, v := range row {
			e := elementFromVariable(v)
			b := e.Bytes()
			out = append(out, b[:])
		}
	}
	b := finalState.Bytes()
	out = append(out, b[:])
	return out
}

// elementFromVariable recovers the fr.Element a *big.Int-valued
// frontend.Variable carries, the inverse of circuits/por's toVar.
func elementFromVariable(v frontend.Variable) fr.Element {
	var e fr.Element
	e.SetBigInt(v.(*big.Int))
	return e
}

// decodePublicOutputs is the inverse of encodePublicOutputs.
func decodePublicOutputs(raw [][]byte, numSteps, filesPerStep int) ([][]fr.Element, fr.Element, error) {
	want := numSteps*filesPerStep + 1
	if len(raw) != want {
		return nil, fr.Element{}, porerr.New(porerr.Serialization,
			"proof public outputs: got %d entries, want %d", len(raw), want)
	}

	leafOutputs := make([][]fr.Element, numSteps)
	k := 0
	for s := 0; s < numSteps; s++ {
		leafOutputs[s] = make([]fr.Element, filesPerStep)
		for i := 0; i < filesPerStep; i++ {
			var e fr.Element
			e.SetBytes(raw[k])
			leafOutputs[s][i] = e
			k++
		}
	}

	var finalState fr.Element
	finalState.SetBytes(raw[k])

	return leafOutputs, finalState, nil
}
