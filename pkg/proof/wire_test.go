package proof

import (
	"bytes"
	"testing"

	"github.com/MuriData/kontor-por/pkg/config"
	"github.com/MuriData/kontor-por/pkg/plan"
)

func sampleProof() *Proof {
	return &Proof{
		CompressedSNARK: []byte{0x01, 0x02, 0x03, 0x04},
		ChallengeIDs:    []plan.ChallengeID{{1, 2, 3}, {4, 5, 6}},
		publicOutputs:   [][]byte{bytes.Repeat([]byte{0xaa}, 32), bytes.Repeat([]byte{0xbb}, 32)},
	}
}

func TestProofMarshalUnmarshalRoundTrip(t *testing.T) {
	p := sampleProof()
	data, err := p.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}

	got, err := UnmarshalProof(data)
	if err != nil {
		t.Fatalf("UnmarshalProof: %v", err)
	}
	if !bytes.Equal(got.CompressedSNARK, p.CompressedSNARK) {
		t.Error("CompressedSNARK mismatch after round trip")
	}
	if len(got.ChallengeIDs) != len(p.ChallengeIDs) {
		t.Fatalf("got %d challenge ids, want %d", len(got.ChallengeIDs), len(p.ChallengeIDs))
	}
	for i := range p.ChallengeIDs {
		if got.ChallengeIDs[i] != p.ChallengeIDs[i] {
			t.Errorf("challenge id %d mismatch", i)
		}
	}
	if len(got.publicOutputs) != len(p.publicOutputs) {
		t.Fatalf("got %d public outputs, want %d", len(got.publicOutputs), len(p.publicOutputs))
	}
	for i := range p.publicOutputs {
		if !bytes.Equal(got.publicOutputs[i], p.publicOutputs[i]) {
			t.Errorf("public output %d mismatch", i)
		}
	}
}

func TestUnmarshalProofRejectsBadMagic(t *testing.T) {
	p := sampleProof()
	data, err := p.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	tampered := append([]byte(nil), data...)
	tampered[0] ^= 0xff
	if _, err := UnmarshalProof(tampered); err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestUnmarshalProofRejectsUnsupportedVersion(t *testing.T) {
	p := sampleProof()
	data, err := p.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	tampered := append([]byte(nil), data...)
	tampered[4] ^= 0xff
	tampered[5] ^= 0xff
	if _, err := UnmarshalProof(tampered); err == nil {
		t.Fatal("expected error for unsupported version")
	}
}

func TestUnmarshalProofRejectsLengthMismatch(t *testing.T) {
	p := sampleProof()
	data, err := p.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	truncated := data[:len(data)-1]
	if _, err := UnmarshalProof(truncated); err == nil {
		t.Fatal("expected error for truncated payload")
	}
}

func TestUnmarshalProofRejectsHeaderTruncation(t *testing.T) {
	if _, err := UnmarshalProof([]byte{0x01, 0x02}); err == nil {
		t.Fatal("expected error for a header shorter than the minimum length")
	}
}

func TestMarshalBinaryMagicAndVersion(t *testing.T) {
	p := sampleProof()
	data, err := p.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	if string(data[:4]) != config.ProofMagic {
		t.Errorf("magic = %q, want %q", data[:4], config.ProofMagic)
	}
}
