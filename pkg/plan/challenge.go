// Package plan implements the challenge/shape planner from spec.md §4.E:
// Challenge, ChallengeID, canonical ordering, shape derivation, and the
// public-input layout both prover and verifier derive identically.
package plan

import (
	"encoding/binary"

	"github.com/MuriData/kontor-por/pkg/field"
	"github.com/MuriData/kontor-por/pkg/fieldhash"
	"github.com/MuriData/kontor-por/pkg/fileprep"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"golang.org/x/crypto/blake2b"
)

// Challenge is a public request to answer one or more folding steps against
// a specific file (spec.md §3).
type Challenge struct {
	FileMetadata  fileprep.FileMetadata
	BlockHeight   uint64
	NumChallenges int
	Seed          fr.Element
	ProverID      string
}

// ChallengeID is the 32-byte digest binding every field of a Challenge
// (spec.md §3, §6). It pins the exact set of challenges a Proof claims to
// answer.
type ChallengeID [32]byte

// ID derives a Challenge's ChallengeID per spec.md §6:
//
//	32-byte LE tag | block_height (8B LE) | 32-byte LE seed | file_id bytes |
//	32-byte LE root | depth (8B LE) | num_challenges (8B LE) | prover_id bytes
//
// blake2b-256 is used as the concatenation hash (already wired via
// pkg/fileprep's file_id derivation; spec.md leaves the exact digest
// function unspecified beyond "32-byte digest... collision-resistant").
func (c Challenge) ID() ChallengeID {
	var buf []byte

	tagBytes := field.ElementToBytesLE(field.FromUint64(uint64(fieldhash.TagChallengeIDDigest)), 32)
	buf = append(buf, tagBytes...)

	var bh [8]byte
	binary.LittleEndian.PutUint64(bh[:], c.BlockHeight)
	buf = append(buf, bh[:]...)

	buf = append(buf, field.ElementToBytesLE(c.Seed, 32)...)
	buf = append(buf, []byte(c.FileMetadata.ID)...)
	buf = append(buf, field.ElementToBytesLE(c.FileMetadata.RootValue, 32)...)

	var depth [8]byte
	binary.LittleEndian.PutUint64(depth[:], uint64(c.FileMetadata.Depth()))
	buf = append(buf, depth[:]...)

	var numCh [8]byte
	binary.LittleEndian.PutUint64(numCh[:], uint64(c.NumChallenges))
	buf = append(buf, numCh[:]...)

	buf = append(buf, []byte(c.ProverID)...)

	return blake2b.Sum256(buf)
}
