// Command porctl drives the PoR engine end to end: preparing files,
// maintaining a ledger, and producing/checking proofs. Modeled on the
// teacher's cmd/compile, cmd/export, and cmd/test: one binary, a small
// switch on os.Args, log.Fatal on any error.
package main

import (
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/MuriData/kontor-por/circuits/por"
	"github.com/MuriData/kontor-por/pkg/fileprep"
	"github.com/MuriData/kontor-por/pkg/ledger"
	"github.com/MuriData/kontor-por/pkg/plan"
	"github.com/MuriData/kontor-por/pkg/proof"
	"github.com/MuriData/kontor-por/pkg/setup"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "prep":
		err = cmdPrep(os.Args[2:])
	case "ledger-init":
		err = cmdLedgerInit(os.Args[2:])
	case "ledger-add":
		err = cmdLedgerAdd(os.Args[2:])
	case "dev-setup":
		err = cmdDevSetup(os.Args[2:])
	case "ceremony-p1-init":
		err = cmdCeremonyP1Init(os.Args[2:])
	case "ceremony-p1-contribute":
		err = setup.CeremonyP1Contribute()
	case "ceremony-p1-verify":
		err = cmdCeremonyP1Verify(os.Args[2:])
	case "ceremony-p2-init":
		err = cmdCeremonyP2Init(os.Args[2:])
	case "ceremony-p2-contribute":
		err = setup.CeremonyP2Contribute()
	case "ceremony-p2-verify":
		err = cmdCeremonyP2Verify(os.Args[2:])
	case "prove":
		err = cmdProve(os.Args[2:])
	case "verify":
		err = cmdVerify(os.Args[2:])
	default:
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func printUsage() {
	fmt.Println(`Usage:
  porctl prep OUT.prep INPUT              Reed-Solomon encode INPUT and write its prepared tree
  porctl ledger-init LEDGER                Create an empty ledger
  porctl ledger-add LEDGER PREP...          Add one or more prepared files to a ledger
  porctl dev-setup FILES_PER_STEP FILE_TREE_DEPTH AGG_TREE_DEPTH NUM_STEPS
                                            Single-party Groth16 dev setup for an explicit shape (NOT for production)
  porctl ceremony-p1-init FILES_PER_STEP FILE_TREE_DEPTH AGG_TREE_DEPTH NUM_STEPS
                                            Start a Phase 1 (powers of tau) MPC ceremony for a shape
  porctl ceremony-p1-contribute             Add a Phase 1 contribution
  porctl ceremony-p1-verify FILES_PER_STEP FILE_TREE_DEPTH AGG_TREE_DEPTH NUM_STEPS BEACON_HEX
                                            Verify Phase 1 contributions and seal with a random beacon
  porctl ceremony-p2-init FILES_PER_STEP FILE_TREE_DEPTH AGG_TREE_DEPTH NUM_STEPS
                                            Start a Phase 2 (circuit-specific) MPC ceremony for a shape
  porctl ceremony-p2-contribute             Add a Phase 2 contribution
  porctl ceremony-p2-verify FILES_PER_STEP FILE_TREE_DEPTH AGG_TREE_DEPTH NUM_STEPS BEACON_HEX
                                            Verify Phase 2 contributions, seal, and export production Groth16 keys
  porctl prove LEDGER PROOF_OUT NUM_CHALLENGES SEED_HEX [--keys=DIR] PREP...
                                            Prove NUM_CHALLENGES folding steps against the given prepared files.
                                            --keys=DIR loads a dev-setup/ceremony-sealed Groth16 keypair for the
                                            derived shape instead of running an ad hoc in-process setup.
  porctl verify LEDGER PROOF NUM_CHALLENGES SEED_HEX [--keys=DIR] PREP...
                                            Verify a proof against the same challenge set. --keys=DIR loads the
                                            same keypair the prover used instead of relying on an in-process cache hit.`)
}

func cmdPrep(args []string) error {
	if len(args) != 2 {
		printUsage()
		os.Exit(1)
	}
	data, err := os.ReadFile(args[1])
	if err != nil {
		return err
	}
	prepared, metadata, err := fileprep.Prepare(data, args[1])
	if err != nil {
		return err
	}
	if err := fileprep.SavePrepared(args[0], prepared, metadata); err != nil {
		return err
	}
	fmt.Printf("file_id=%s padded_len=%d original_size=%d\n", metadata.ID, metadata.PaddedLen, metadata.OriginalSize)
	return nil
}

func cmdLedgerInit(args []string) error {
	if len(args) != 1 {
		printUsage()
		os.Exit(1)
	}
	return ledger.New().Save(args[0])
}

func cmdLedgerAdd(args []string) error {
	if len(args) < 2 {
		printUsage()
		os.Exit(1)
	}
	l, err := ledger.Load(args[0])
	if err != nil {
		return err
	}
	entries := make([]ledger.Entry, 0, len(args)-1)
	for _, prepPath := range args[1:] {
		_, metadata, err := fileprep.LoadPrepared(prepPath)
		if err != nil {
			return err
		}
		entries = append(entries, *metadata)
	}
	if err := l.AddFiles(entries); err != nil {
		return err
	}
	return l.Save(args[0])
}

// parseShapeArgs parses the FILES_PER_STEP FILE_TREE_DEPTH AGG_TREE_DEPTH
// NUM_STEPS quadruple shared by every setup/ceremony subcommand and builds
// the matching unrolled FoldedCircuit template plus a stable shape name for
// key/ceremony filenames.
func parseShapeArgs(args []string) (shape por.Shape, numSteps int, name string, err error) {
	if len(args) != 4 {
		return por.Shape{}, 0, "", fmt.Errorf("want FILES_PER_STEP FILE_TREE_DEPTH AGG_TREE_DEPTH NUM_STEPS, got %d args", len(args))
	}
	vals := make([]int, 4)
	for i, a := range args {
		v, perr := strconv.Atoi(a)
		if perr != nil {
			return por.Shape{}, 0, "", perr
		}
		vals[i] = v
	}
	shape = por.Shape{FilesPerStep: vals[0], FileTreeDepth: vals[1], AggregatedTreeDepth: vals[2]}
	numSteps = vals[3]
	name = fmt.Sprintf("por-%dx%dx%d-%d", shape.FilesPerStep, shape.FileTreeDepth, shape.AggregatedTreeDepth, numSteps)
	return shape, numSteps, name, nil
}

func cmdDevSetup(args []string) error {
	shape, numSteps, name, err := parseShapeArgs(args)
	if err != nil {
		printUsage()
		os.Exit(1)
	}
	circuit := por.NewFoldedCircuit(shape, numSteps)
	return setup.DevSetup(circuit, ".", name)
}

func cmdCeremonyP1Init(args []string) error {
	shape, numSteps, _, err := parseShapeArgs(args)
	if err != nil {
		printUsage()
		os.Exit(1)
	}
	return setup.CeremonyP1Init(por.NewFoldedCircuit(shape, numSteps))
}

func cmdCeremonyP1Verify(args []string) error {
	if len(args) != 5 {
		printUsage()
		os.Exit(1)
	}
	shape, numSteps, _, err := parseShapeArgs(args[:4])
	if err != nil {
		return err
	}
	return setup.CeremonyP1Verify(por.NewFoldedCircuit(shape, numSteps), args[4])
}

func cmdCeremonyP2Init(args []string) error {
	shape, numSteps, _, err := parseShapeArgs(args)
	if err != nil {
		printUsage()
		os.Exit(1)
	}
	return setup.CeremonyP2Init(por.NewFoldedCircuit(shape, numSteps))
}

func cmdCeremonyP2Verify(args []string) error {
	if len(args) != 5 {
		printUsage()
		os.Exit(1)
	}
	shape, numSteps, name, err := parseShapeArgs(args[:4])
	if err != nil {
		return err
	}
	return setup.CeremonyP2Verify(por.NewFoldedCircuit(shape, numSteps), args[4], ".", name)
}

// extractKeysDir pulls an optional "--keys=DIR" argument out of args,
// returning the remaining positional arguments and the keys directory
// (empty string if the flag was not given).
func extractKeysDir(args []string) ([]string, string) {
	rest := make([]string, 0, len(args))
	keysDir := ""
	for _, a := range args {
		if strings.HasPrefix(a, "--keys=") {
			keysDir = strings.TrimPrefix(a, "--keys=")
			continue
		}
		rest = append(rest, a)
	}
	return rest, keysDir
}

// seedParamsFromDisk derives the shape the given challenges fold into,
// loads a Groth16 keypair a prior dev-setup or sealed ceremony wrote for
// that shape under keysDir (same "por-%dx%dx%d-%d" naming parseShapeArgs
// uses), and seeds the process-wide parameter cache with it so
// proof.Prove/proof.Verify consume the real trusted-setup output instead of
// ParamsForShape's own ad hoc in-process groth16.Setup.
func seedParamsFromDisk(challenges []plan.Challenge, l *ledger.FileLedger, keysDir string) error {
	pl, err := plan.Build(challenges, l)
	if err != nil {
		return err
	}
	shape := por.Shape{
		FilesPerStep:        pl.FilesPerStep,
		FileTreeDepth:       pl.FileTreeDepth,
		AggregatedTreeDepth: pl.AggregatedTreeDepth,
	}
	key := setup.ShapeKey{
		FilesPerStep:        pl.FilesPerStep,
		FileTreeDepth:       pl.FileTreeDepth,
		AggregatedTreeDepth: pl.AggregatedTreeDepth,
		NumSteps:            pl.NumChallenges,
	}
	name := fmt.Sprintf("por-%dx%dx%d-%d", shape.FilesPerStep, shape.FileTreeDepth, shape.AggregatedTreeDepth, pl.NumChallenges)

	ccs, err := setup.CompileCircuit(por.NewFoldedCircuit(shape, pl.NumChallenges))
	if err != nil {
		return err
	}
	pk, vk, err := setup.LoadKeys(keysDir, name)
	if err != nil {
		return fmt.Errorf("loading keys for shape %s from %s: %w", name, keysDir, err)
	}
	setup.SeedParams(key, ccs, pk, vk)
	fmt.Printf("seeded Groth16 parameters for shape %s from %s\n", name, keysDir)
	return nil
}

// buildChallenges reconstructs the public Challenge list shared by prove and
// verify: one per prep file, all sharing the same seed and num_challenges.
// In a real deployment the verifier issues these; this CLI takes the seed on
// the command line so a single-machine prove/verify round trip is
// reproducible without a side channel.
func buildChallenges(numChallenges int, seedHex string, prepPaths []string) ([]plan.Challenge, map[string]*fileprep.PreparedFile, error) {
	seedBytes, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, nil, err
	}
	var seed fr.Element
	seed.SetBytes(seedBytes)

	challenges := make([]plan.Challenge, 0, len(prepPaths))
	files := make(map[string]*fileprep.PreparedFile, len(prepPaths))
	for _, prepPath := range prepPaths {
		prepared, metadata, err := fileprep.LoadPrepared(prepPath)
		if err != nil {
			return nil, nil, err
		}
		files[metadata.ID] = prepared
		challenges = append(challenges, plan.Challenge{
			FileMetadata:  *metadata,
			BlockHeight:   0,
			NumChallenges: numChallenges,
			Seed:          seed,
			ProverID:      "porctl",
		})
	}
	return challenges, files, nil
}

func cmdProve(args []string) error {
	if len(args) < 5 {
		printUsage()
		os.Exit(1)
	}
	ledgerPath, proofOut, numChallengesStr, seedHex := args[0], args[1], args[2], args[3]
	numChallenges, err := strconv.Atoi(numChallengesStr)
	if err != nil {
		return err
	}

	prepPaths, keysDir := extractKeysDir(args[4:])

	l, err := ledger.Load(ledgerPath)
	if err != nil {
		return err
	}
	challenges, files, err := buildChallenges(numChallenges, seedHex, prepPaths)
	if err != nil {
		return err
	}

	if keysDir != "" {
		if err := seedParamsFromDisk(challenges, l, keysDir); err != nil {
			return err
		}
	}

	p, err := proof.Prove(challenges, files, l)
	if err != nil {
		return err
	}
	encoded, err := p.MarshalBinary()
	if err != nil {
		return err
	}
	if err := os.WriteFile(proofOut, encoded, 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %d-byte proof answering %d challenges to %s\n", len(encoded), len(challenges), proofOut)
	return nil
}

func cmdVerify(args []string) error {
	if len(args) < 5 {
		printUsage()
		os.Exit(1)
	}
	ledgerPath, proofPath, numChallengesStr, seedHex := args[0], args[1], args[2], args[3]
	numChallenges, err := strconv.Atoi(numChallengesStr)
	if err != nil {
		return err
	}

	prepPaths, keysDir := extractKeysDir(args[4:])

	l, err := ledger.Load(ledgerPath)
	if err != nil {
		return err
	}
	challenges, _, err := buildChallenges(numChallenges, seedHex, prepPaths)
	if err != nil {
		return err
	}

	if keysDir != "" {
		if err := seedParamsFromDisk(challenges, l, keysDir); err != nil {
			return err
		}
	}

	encoded, err := os.ReadFile(proofPath)
	if err != nil {
		return err
	}
	p, err := proof.UnmarshalProof(encoded)
	if err != nil {
		return err
	}

	ok, err := proof.Verify(p, challenges, l)
	if err != nil {
		return err
	}
	if ok {
		fmt.Println("VALID")
	} else {
		fmt.Println("INVALID")
		os.Exit(1)
	}
	return nil
}
