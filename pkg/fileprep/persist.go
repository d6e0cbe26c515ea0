package fileprep

import (
	"os"

	"github.com/MuriData/kontor-por/pkg/config"
	"github.com/MuriData/kontor-por/pkg/merkle"
	"github.com/MuriData/kontor-por/pkg/porerr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/fxamacker/cbor/v2"
)

// wirePreparedFile is the cbor-serializable form of a PreparedFile. Only the
// leaf layer is stored; every other layer is recomputed from it, matching
// how pkg/ledger persists rc values rather than whole tree layers.
type wirePreparedFile struct {
	FileID       string
	Leaves       [][32]byte
	OriginalSize int
	Filename     string
}

// SavePrepared writes a PreparedFile plus the metadata fields not otherwise
// recoverable from the tree (original size, filename) to path, for a prover
// that needs the same private tree available across separate process
// invocations of the CLI.
func SavePrepared(path string, p *PreparedFile, m *FileMetadata) error {
	leaves := p.Tree.Layers[0]
	wp := wirePreparedFile{
		FileID:       p.FileID,
		Leaves:       make([][32]byte, len(leaves)),
		OriginalSize: m.OriginalSize,
		Filename:     m.Filename,
	}
	for i, l := range leaves {
		wp.Leaves[i] = l.Bytes()
	}

	encoded, err := cbor.Marshal(wp)
	if err != nil {
		return porerr.Wrap(porerr.Serialization, err, "encoding prepared file")
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return porerr.Wrap(porerr.IO, err, "writing prepared file to %s", path)
	}
	return nil
}

// LoadPrepared reads a PreparedFile previously written by SavePrepared and
// rebuilds its tree and metadata.
func LoadPrepared(path string) (*PreparedFile, *FileMetadata, error) {
	encoded, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, porerr.Wrap(porerr.IO, err, "reading prepared file from %s", path)
	}
	if len(encoded) > config.MaxLedgerSizeBytes {
		return nil, nil, porerr.New(porerr.InvalidInput,
			"prepared file size %d bytes exceeds maximum %d bytes", len(encoded), config.MaxLedgerSizeBytes)
	}

	var wp wirePreparedFile
	if err := cbor.Unmarshal(encoded, &wp); err != nil {
		return nil, nil, porerr.Wrap(porerr.Serialization, err, "decoding prepared file")
	}

	leaves := make([]fr.Element, len(wp.Leaves))
	for i, b := range wp.Leaves {
		leaves[i].SetBytes(b[:])
	}
	tree := merkle.BuildTreeFromLeaves(leaves)
	root := tree.Root()

	prepared := &PreparedFile{FileID: wp.FileID, Root: root, Tree: tree}
	metadata := &FileMetadata{
		RootValue:    root,
		ID:           wp.FileID,
		PaddedLen:    len(leaves),
		OriginalSize: wp.OriginalSize,
		Filename:     wp.Filename,
	}
	return prepared, metadata, nil
}
