// Package config centralizes the fixed shape and bound constants shared by
// every layer of the PoR engine, the way the teacher's config package and
// per-circuit config.go files centralize their own constants.
package config

// SymbolSize is the fundamental unit: chunk = symbol = shard = leaf payload,
// in bytes. 31 bytes keeps every symbol injectable into one BN254 scalar
// field element without reduction (field modulus > 2^248).
const SymbolSize = 31

// Reed-Solomon codeword shape: systematic RS(231,255) over GF(2^8).
const (
	DataSymbolsPerCodeword   = 231
	ParitySymbolsPerCodeword = 24
	TotalSymbolsPerCodeword  = DataSymbolsPerCodeword + ParitySymbolsPerCodeword
)

// Resource bounds (original_source/src/config.rs: PRACTICAL_MAX_FILES,
// MAX_NUM_CHALLENGES). Kept verbatim since spec.md references these bounds
// by name without giving values.
const (
	PracticalMaxFiles = 1024
	MaxNumChallenges  = 10_000
)

// MaxLedgerSizeBytes bounds serialized ledger size on both save and load
// (original_source/src/ledger.rs checks this on both paths).
const MaxLedgerSizeBytes = 100 * 1024 * 1024

// LedgerFormatVersion is the current on-disk ledger format version.
const LedgerFormatVersion uint16 = 1

// ProofFormatVersion is the current wire-format version for Proof.
const ProofFormatVersion uint16 = 1

// ProofMagic is the 4-byte ASCII magic prefixing every serialized Proof.
const ProofMagic = "NPOR"

// ParamCacheCapacity bounds the process-wide circuit-parameter cache, which
// evicts its oldest-inserted entry on overflow.
const ParamCacheCapacity = 50

// CircuitCostPerDepth is the cost multiplier C_IVC = CircuitCostPerDepth *
// depth used by operators to estimate proving cost before compiling a shape
// (original_source/src/config.rs CIRCUIT_COST_PER_DEPTH).
const CircuitCostPerDepth = 100
