package plan

import (
	"sort"

	"github.com/MuriData/kontor-por/pkg/field"
	"github.com/MuriData/kontor-por/pkg/fieldhash"
	"github.com/MuriData/kontor-por/pkg/ledger"
	"github.com/MuriData/kontor-por/pkg/merkle"
	"github.com/MuriData/kontor-por/pkg/porerr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// DeriveShape computes the uniform circuit shape from two public counts,
// ported from original_source/src/config.rs derive_shape.
func DeriveShape(numFiles, maxDepth int) (filesPerStep, fileTreeDepth int) {
	n := numFiles
	if n < 1 {
		n = 1
	}
	filesPerStep = merkle.NextPowerOfTwo(n)
	fileTreeDepth = maxDepth
	if fileTreeDepth < 1 {
		fileTreeDepth = 1
	}
	return
}

// IOLayout centralizes the public-input index arithmetic instead of
// scattering hand-computed offsets through the witness builder and
// circuit. Ported from original_source/src/config.rs PublicIOLayout.
type IOLayout struct {
	FilesPerStep int
}

// Fixed is the number of fixed public-input fields (aggregated_root, state_in).
const Fixed = 2

// Arity is the total public-input/output vector length.
func (l IOLayout) Arity() int { return Fixed + 4*l.FilesPerStep }

func (l IOLayout) IdxAggRoot() int { return 0 }
func (l IOLayout) IdxStateIn() int { return 1 }

func (l IOLayout) sectionStart(section int) int { return Fixed + section*l.FilesPerStep }

func (l IOLayout) IdxLedger(i int) int { return l.sectionStart(0) + i }
func (l IOLayout) IdxDepth(i int) int  { return l.sectionStart(1) + i }
func (l IOLayout) IdxSeed(i int) int   { return l.sectionStart(2) + i }
func (l IOLayout) IdxLeaf(i int) int   { return l.sectionStart(3) + i }

func (l IOLayout) LedgerIndicesRange() (int, int) { return l.sectionStart(0), l.sectionStart(1) }
func (l IOLayout) DepthsRange() (int, int)         { return l.sectionStart(1), l.sectionStart(2) }
func (l IOLayout) SeedsRange() (int, int)           { return l.sectionStart(2), l.sectionStart(3) }
func (l IOLayout) LeafOutputsRange() (int, int)     { return l.sectionStart(3), l.sectionStart(4) }

// Plan is the immutable derivation both prover and verifier produce
// identically from the same (challenges, ledger) inputs (spec.md §4.E).
type Plan struct {
	AggregatedRoot      fr.Element
	AggregatedTreeDepth int
	FilesPerStep        int
	FileTreeDepth       int
	NumChallenges       int
	Sorted              []Challenge
	LedgerIndices       []int
	Depths              []int
	Seeds               []fr.Element
}

// Build derives a Plan from a slice of Challenges and the ledger they were
// pinned against.
func Build(challenges []Challenge, l *ledger.FileLedger) (*Plan, error) {
	if len(challenges) == 0 {
		return nil, porerr.New(porerr.InvalidInput, "plan requires at least one challenge")
	}

	numChallenges := challenges[0].NumChallenges
	for _, c := range challenges {
		if c.NumChallenges != numChallenges {
			return nil, porerr.New(porerr.ChallengeMismatch, "num_challenges")
		}
	}

	sorted := make([]Challenge, len(challenges))
	copy(sorted, challenges)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].FileMetadata.ID != sorted[j].FileMetadata.ID {
			return sorted[i].FileMetadata.ID < sorted[j].FileMetadata.ID
		}
		a, b := sorted[i].ID(), sorted[j].ID()
		for k := range a {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return false
	})

	var aggRoot fr.Element
	var aggDepth int
	if len(sorted) == 1 {
		aggRoot = sorted[0].FileMetadata.RootValue
		aggDepth = 0
	} else {
		aggRoot = l.Root()
		aggDepth = l.Depth()
	}

	maxDepth := 0
	for _, c := range sorted {
		if d := c.FileMetadata.Depth(); d > maxDepth {
			maxDepth = d
		}
	}
	filesPerStep, fileTreeDepth := DeriveShape(len(sorted), maxDepth)

	ledgerIndices := make([]int, filesPerStep)
	depths := make([]int, filesPerStep)
	seeds := make([]fr.Element, filesPerStep)
	for i := range seeds {
		seeds[i] = field.Zero()
	}

	for i, c := range sorted {
		if aggDepth > 0 {
			rc := fieldhash.RootCommitment(c.FileMetadata.RootValue, uint64(c.FileMetadata.Depth()))
			idx, ok := l.CanonicalIndexForRC(rc)
			if !ok {
				return nil, porerr.New(porerr.FileNotInLedger, "file_id %q", c.FileMetadata.ID)
			}
			ledgerIndices[i] = idx
		} else {
			ledgerIndices[i] = 0
		}
		depths[i] = c.FileMetadata.Depth()
		seeds[i] = c.Seed
	}

	return &Plan{
		AggregatedRoot:      aggRoot,
		AggregatedTreeDepth: aggDepth,
		FilesPerStep:        filesPerStep,
		FileTreeDepth:       fileTreeDepth,
		NumChallenges:       numChallenges,
		Sorted:              sorted,
		LedgerIndices:       ledgerIndices,
		Depths:              depths,
		Seeds:               seeds,
	}, nil
}

// Layout returns this plan's public-input layout helper.
func (p *Plan) Layout() IOLayout { return IOLayout{FilesPerStep: p.FilesPerStep} }

// BuildZ0 constructs the initial public-input vector (spec.md §4.E layout).
func (p *Plan) BuildZ0() []fr.Element {
	layout := p.Layout()
	z0 := make([]fr.Element, layout.Arity())
	z0[layout.IdxAggRoot()] = p.AggregatedRoot
	z0[layout.IdxStateIn()] = field.Zero()
	for i := 0; i < p.FilesPerStep; i++ {
		z0[layout.IdxLedger(i)] = field.FromUint64(uint64(p.LedgerIndices[i]))
		z0[layout.IdxDepth(i)] = field.FromUint64(uint64(p.Depths[i]))
		z0[layout.IdxSeed(i)] = p.Seeds[i]
		z0[layout.IdxLeaf(i)] = field.Zero()
	}
	return z0
}
