// Package field converts between raw bytes and BN254 scalar field elements.
//
// Grounded on the teacher's pkg/field/field.go (Bytes2Field/Field2Bytes),
// adapted in two ways required by spec.md §3/§4.C:
//
//  1. Byte order is little-endian, not big-endian: spec.md §4.C's
//     get_leaf_hash "interpret[s] bytes as a little-endian integer". The
//     teacher's Bytes2Field uses big.Int.SetBytes, which is big-endian.
//  2. Values are gnark-crypto's fr.Element (BN254 scalar field) directly,
//     not *big.Int boxed as frontend.Variable, so every out-of-circuit
//     field operation (Merkle hashing, rc derivation, challenge indices)
//     works over the same canonical representation used inside the
//     circuit's witness assignment.
package field

import (
	"github.com/MuriData/kontor-por/pkg/config"
	"github.com/MuriData/kontor-por/pkg/porerr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Zero returns the additive identity of the field.
func Zero() fr.Element {
	var z fr.Element
	return z
}

// FromUint64 lifts a small integer into the field.
func FromUint64(v uint64) fr.Element {
	var e fr.Element
	e.SetUint64(v)
	return e
}

// reverse returns a newly allocated, byte-reversed copy of b.
func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}

// BytesToElementLE injects at most config.SymbolSize bytes into a field
// element, interpreting them as a little-endian integer. Empty input maps
// to the zero element. Longer input is a PoR-critical size violation.
func BytesToElementLE(data []byte) (fr.Element, error) {
	var e fr.Element
	if len(data) == 0 {
		return e, nil
	}
	if len(data) > config.SymbolSize {
		return e, porerr.New(porerr.InvalidChunkEncoding,
			"chunk size %d bytes exceeds maximum %d bytes", len(data), config.SymbolSize)
	}
	e.SetBytes(reverse(data))
	return e, nil
}

// ElementToBytesLE renders a field element back to a little-endian byte
// slice of exactly size bytes (zero-padded or truncated on the high end,
// matching the teacher's Field2Bytes truncation-on-overflow behavior but in
// LE order).
func ElementToBytesLE(e fr.Element, size int) []byte {
	be := e.Bytes() // canonical 32-byte big-endian representation
	full := reverse(be[:])
	out := make([]byte, size)
	n := size
	if n > len(full) {
		n = len(full)
	}
	copy(out, full[:n])
	return out
}

// SymbolsToElements splits data into numChunks little-endian field elements
// of config.SymbolSize bytes each, zero-padding any elements past the end
// of data. It returns no error: every slice it injects is at most
// config.SymbolSize bytes by construction.
func SymbolsToElements(data []byte, numChunks int) []fr.Element {
	elements := make([]fr.Element, numChunks)
	for i := 0; i < numChunks; i++ {
		start := i * config.SymbolSize
		if start >= len(data) {
			elements[i] = Zero()
			continue
		}
		end := start + config.SymbolSize
		if end > len(data) {
			end = len(data)
		}
		el, err := BytesToElementLE(data[start:end])
		if err != nil {
			// Unreachable: slices are always <= config.SymbolSize by
			// construction of start/end above.
			panic(err)
		}
		elements[i] = el
	}
	return elements
}

// ElementsToBytes concatenates elements back into bytes (config.SymbolSize
// bytes per element) and truncates to originalSize.
func ElementsToBytes(elements []fr.Element, originalSize int) []byte {
	out := make([]byte, 0, len(elements)*config.SymbolSize)
	for _, e := range elements {
		out = append(out, ElementToBytesLE(e, config.SymbolSize)...)
	}
	if originalSize >= 0 && originalSize < len(out) {
		out = out[:originalSize]
	}
	return out
}

// Equal reports whether two elements are the same field value.
func Equal(a, b fr.Element) bool {
	return a.Equal(&b)
}

// IsZero reports whether e is the additive identity.
func IsZero(e fr.Element) bool {
	return e.IsZero()
}
