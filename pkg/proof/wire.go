// Package proof implements the Proof wire format and Prove/Verify
// orchestration of spec.md §4.I/§6.
package proof

import (
	"encoding/binary"

	"github.com/MuriData/kontor-por/pkg/config"
	"github.com/MuriData/kontor-por/pkg/plan"
	"github.com/MuriData/kontor-por/pkg/porerr"
	"github.com/fxamacker/cbor/v2"
)

// Proof is the immutable output of Prove: a compressed SNARK plus the
// ordered list of ChallengeIDs it claims to answer (spec.md §3).
//
// publicOutputs carries the folded circuit's claimed final-state and
// per-step leaf-output values. spec.md's Proof is logically just
// {compressed_snark, challenge_ids}; this module's Groth16-over-an-
// unrolled-circuit substitute for true Nova folding (see DESIGN.md
// "pkg/fold") requires the verifier to be handed the complete public
// witness to call groth16.Verify, and those prover-computed outputs are
// part of it. A true Nova CompressedSNARK::verify only needs z0 because
// the folding scheme commits to zi internally; ours does not have that
// luxury, so the outputs travel alongside the proof on the wire instead.
type Proof struct {
	CompressedSNARK []byte
	ChallengeIDs    []plan.ChallengeID
	publicOutputs   [][]byte // canonical 32-byte BE field-element encodings
}

type wirePayload struct {
	CompressedSNARK []byte
	ChallengeIDs    [][32]byte
	PublicOutputs   [][]byte
}

// MarshalBinary serializes a Proof per spec.md §6:
//
//	magic "NPOR" | version u16 LE | length u32 LE | payload
//
// The header fields are fixed-width little-endian. The payload is encoded
// with github.com/fxamacker/cbor/v2 (SPEC_FULL.md domain-stack: cbor is used
// for the ledger and proof formats specifically, both versioned structured
// cross-process documents); CBOR writes integers and lengths big-endian and
// variable-width, so the payload is not a fixed-width little-endian encoding.
func (p *Proof) MarshalBinary() ([]byte, error) {
	ids := make([][32]byte, len(p.ChallengeIDs))
	for i, id := range p.ChallengeIDs {
		ids[i] = id
	}

	payload, err := cbor.Marshal(wirePayload{
		CompressedSNARK: p.CompressedSNARK,
		ChallengeIDs:    ids,
		PublicOutputs:   p.publicOutputs,
	})
	if err != nil {
		return nil, porerr.Wrap(porerr.Serialization, err, "encoding proof payload")
	}

	out := make([]byte, 0, 4+2+4+len(payload))
	out = append(out, []byte(config.ProofMagic)...)

	var ver [2]byte
	binary.LittleEndian.PutUint16(ver[:], config.ProofFormatVersion)
	out = append(out, ver[:]...)

	var ln [4]byte
	binary.LittleEndian.PutUint32(ln[:], uint32(len(payload)))
	out = append(out, ln[:]...)

	return append(out, payload...), nil
}

// UnmarshalProof decodes bytes written by MarshalBinary, rejecting a wrong
// magic, an unsupported version, truncation, or trailing bytes.
func UnmarshalProof(data []byte) (*Proof, error) {
	const headerLen = 4 + 2 + 4
	if len(data) < headerLen {
		return nil, porerr.New(porerr.Serialization, "proof header truncated: %d bytes", len(data))
	}
	if string(data[:4]) != config.ProofMagic {
		return nil, porerr.New(porerr.Serialization, "bad magic %q", data[:4])
	}
	version := binary.LittleEndian.Uint16(data[4:6])
	if version != config.ProofFormatVersion {
		return nil, porerr.New(porerr.Serialization, "unsupported proof version %d", version)
	}
	length := binary.LittleEndian.Uint32(data[6:10])
	if uint32(len(data)-headerLen) != length {
		return nil, porerr.New(porerr.Serialization,
			"proof length mismatch: header says %d, have %d trailing bytes", length, len(data)-headerLen)
	}

	var wp wirePayload
	if err := cbor.Unmarshal(data[headerLen:], &wp); err != nil {
		return nil, porerr.Wrap(porerr.Serialization, err, "decoding proof payload")
	}

	ids := make([]plan.ChallengeID, len(wp.ChallengeIDs))
	for i, id := range wp.ChallengeIDs {
		ids[i] = id
	}

	return &Proof{CompressedSNARK: wp.CompressedSNARK, ChallengeIDs: ids, publicOutputs: wp.PublicOutputs}, nil
}
