package witness

import (
	"testing"

	"github.com/MuriData/kontor-por/pkg/field"
	"github.com/MuriData/kontor-por/pkg/fileprep"
	"github.com/MuriData/kontor-por/pkg/ledger"
	"github.com/MuriData/kontor-por/pkg/plan"
)

func prepareFile(t *testing.T, data []byte, name string) (*fileprep.PreparedFile, *fileprep.FileMetadata) {
	t.Helper()
	pf, meta, err := fileprep.Prepare(data, name)
	if err != nil {
		t.Fatalf("fileprep.Prepare(%s): %v", name, err)
	}
	return pf, meta
}

func newChallenge(meta *fileprep.FileMetadata, seedVal uint64) plan.Challenge {
	return plan.Challenge{
		FileMetadata:  *meta,
		BlockHeight:   1,
		NumChallenges: 1,
		Seed:          field.FromUint64(seedVal),
		ProverID:      "prover-1",
	}
}

func TestBuildStepSingleFile(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog, repeated for symbol padding")
	pf, meta := prepareFile(t, data, "f.bin")

	l := ledger.New()
	p, err := plan.Build([]plan.Challenge{newChallenge(meta, 1)}, l)
	if err != nil {
		t.Fatalf("plan.Build: %v", err)
	}

	files := map[string]*fileprep.PreparedFile{meta.ID: pf}
	b := NewBuilder(p, files, l)

	step, stateOut, err := b.BuildStep(field.Zero())
	if err != nil {
		t.Fatalf("BuildStep: %v", err)
	}
	if len(step.Slots) != p.FilesPerStep {
		t.Fatalf("got %d slots, want %d", len(step.Slots), p.FilesPerStep)
	}
	if field.Equal(stateOut, field.Zero()) {
		t.Error("state should advance past field-zero after a real slot")
	}
	real := step.Slots[0]
	if len(real.Siblings) != p.FileTreeDepth {
		t.Fatalf("real slot has %d siblings, want %d", len(real.Siblings), p.FileTreeDepth)
	}
	if field.IsZero(real.Leaf) && meta.OriginalSize > 0 {
		// not a hard invariant (the leaf value could legitimately be zero),
		// but catches a totally unpopulated slot in the common case.
		t.Log("warning: real slot leaf is field-zero")
	}
}

func TestBuildStepPaddingSlotsAreZero(t *testing.T) {
	data := []byte("small file")
	pf, meta := prepareFile(t, data, "f.bin")

	l := ledger.New()
	p, err := plan.Build([]plan.Challenge{newChallenge(meta, 5)}, l)
	if err != nil {
		t.Fatalf("plan.Build: %v", err)
	}
	files := map[string]*fileprep.PreparedFile{meta.ID: pf}
	b := NewBuilder(p, files, l)

	step, _, err := b.BuildStep(field.Zero())
	if err != nil {
		t.Fatalf("BuildStep: %v", err)
	}
	for i := 1; i < len(step.Slots); i++ {
		slot := step.Slots[i]
		if !field.IsZero(slot.Leaf) {
			t.Errorf("padding slot %d leaf should be field-zero", i)
		}
		for _, s := range slot.Siblings {
			if !field.IsZero(s) {
				t.Errorf("padding slot %d sibling should be field-zero", i)
			}
		}
		for _, flag := range slot.ActiveFlags {
			if flag {
				t.Errorf("padding slot %d should have all active flags false", i)
			}
		}
	}
}

func TestBuildStepMultipleFilesChainsState(t *testing.T) {
	pfA, metaA := prepareFile(t, []byte("file A contents, long enough to pad"), "a.bin")
	pfB, metaB := prepareFile(t, []byte("file B contents, different from A"), "b.bin")

	l := ledger.New()
	if err := l.AddFiles([]ledger.Entry{*metaA, *metaB}); err != nil {
		t.Fatalf("AddFiles: %v", err)
	}

	p, err := plan.Build([]plan.Challenge{newChallenge(metaA, 1), newChallenge(metaB, 2)}, l)
	if err != nil {
		t.Fatalf("plan.Build: %v", err)
	}

	files := map[string]*fileprep.PreparedFile{metaA.ID: pfA, metaB.ID: pfB}
	b := NewBuilder(p, files, l)

	step, stateOut, err := b.BuildStep(field.Zero())
	if err != nil {
		t.Fatalf("BuildStep: %v", err)
	}
	if len(step.Slots) != p.FilesPerStep {
		t.Fatalf("got %d slots, want %d", len(step.Slots), p.FilesPerStep)
	}
	if field.Equal(stateOut, field.Zero()) {
		t.Error("state should have advanced through two real slots")
	}
	for i := 0; i < 2; i++ {
		if len(step.Slots[i].AggSiblings) != p.AggregatedTreeDepth {
			t.Errorf("real slot %d: got %d agg siblings, want %d", i, len(step.Slots[i].AggSiblings), p.AggregatedTreeDepth)
		}
	}
}

func TestBuildStepUnknownFileErrors(t *testing.T) {
	_, meta := prepareFile(t, []byte("data"), "f.bin")

	l := ledger.New()
	p, err := plan.Build([]plan.Challenge{newChallenge(meta, 1)}, l)
	if err != nil {
		t.Fatalf("plan.Build: %v", err)
	}

	b := NewBuilder(p, map[string]*fileprep.PreparedFile{}, l)
	if _, _, err := b.BuildStep(field.Zero()); err == nil {
		t.Fatal("expected error when the prepared file is missing")
	}
}
