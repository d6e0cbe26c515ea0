package ledger

import (
	"os"

	"github.com/MuriData/kontor-por/pkg/config"
	"github.com/MuriData/kontor-por/pkg/porerr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/fxamacker/cbor/v2"
)

// wireEntry is the cbor-serializable form of FileLedgerEntry. fr.Element is
// stored as its canonical 32-byte big-endian encoding (fr.Element.Bytes()),
// distinct from the little-endian symbol encoding in pkg/field: this is an
// internal wire format for opaque field values, not a PoR leaf injection.
type wireEntry struct {
	Root  [32]byte
	Depth int
	RC    [32]byte
}

type wireLedger struct {
	Version uint16
	Files   map[string]wireEntry
	Root    [32]byte
}

func elementToWire(e fr.Element) [32]byte { return e.Bytes() }

func elementFromWire(b [32]byte) fr.Element {
	var e fr.Element
	e.SetBytes(b[:])
	return e
}

// Save serializes the ledger with github.com/fxamacker/cbor/v2, matching
// original_source/src/ledger.rs's {version, files, stored_root} wrapper.
// Rejects (before writing) a ledger that would exceed config.MaxLedgerSizeBytes.
func (l *FileLedger) Save(path string) error {
	wl := wireLedger{
		Version: config.LedgerFormatVersion,
		Files:   make(map[string]wireEntry, len(l.files)),
		Root:    elementToWire(l.Root()),
	}
	for id, e := range l.files {
		wl.Files[id] = wireEntry{Root: elementToWire(e.Root), Depth: e.Depth, RC: elementToWire(e.RC)}
	}

	encoded, err := cbor.Marshal(wl)
	if err != nil {
		return porerr.Wrap(porerr.Serialization, err, "encoding ledger")
	}
	if len(encoded) > config.MaxLedgerSizeBytes {
		return porerr.New(porerr.InvalidInput,
			"serialized ledger size %d bytes exceeds maximum %d bytes", len(encoded), config.MaxLedgerSizeBytes)
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return porerr.Wrap(porerr.IO, err, "writing ledger to %s", path)
	}
	return nil
}

// Load deserializes a ledger previously written by Save, rebuilds the
// aggregation tree, and rejects the load if the recomputed root disagrees
// with the stored one.
func Load(path string) (*FileLedger, error) {
	encoded, err := os.ReadFile(path)
	if err != nil {
		return nil, porerr.Wrap(porerr.IO, err, "reading ledger from %s", path)
	}
	if len(encoded) > config.MaxLedgerSizeBytes {
		return nil, porerr.New(porerr.InvalidInput,
			"ledger file size %d bytes exceeds maximum %d bytes", len(encoded), config.MaxLedgerSizeBytes)
	}

	var wl wireLedger
	if err := cbor.Unmarshal(encoded, &wl); err != nil {
		return nil, porerr.Wrap(porerr.Serialization, err, "decoding ledger")
	}
	if wl.Version != config.LedgerFormatVersion {
		return nil, porerr.New(porerr.InvalidInput,
			"ledger format version %d is not compatible with current version %d", wl.Version, config.LedgerFormatVersion)
	}

	l := &FileLedger{files: make(map[string]FileLedgerEntry, len(wl.Files))}
	for id, e := range wl.Files {
		l.files[id] = FileLedgerEntry{Root: elementFromWire(e.Root), Depth: e.Depth, RC: elementFromWire(e.RC)}
	}
	l.rebuildTree()

	if !l.Root().Equal(ptr(elementFromWire(wl.Root))) {
		return nil, porerr.New(porerr.LedgerValidation, "computed root does not match stored root")
	}
	return l, nil
}

func ptr(e fr.Element) *fr.Element { return &e }
