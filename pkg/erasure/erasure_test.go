package erasure

import (
	"bytes"
	"testing"

	"github.com/MuriData/kontor-por/pkg/config"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []int{1, 30, 31, 32, 100, config.SymbolSize * config.DataSymbolsPerCodeword, config.SymbolSize*config.DataSymbolsPerCodeword + 17}
	for _, size := range cases {
		data := bytes.Repeat([]byte{0x5a}, size)
		symbols, err := Encode(data)
		if err != nil {
			t.Fatalf("size %d: Encode: %v", size, err)
		}
		numData := NumDataSymbols(size)
		numCodewords := NumCodewords(numData)
		if len(symbols) != numCodewords*config.TotalSymbolsPerCodeword {
			t.Fatalf("size %d: got %d symbols, want %d", size, len(symbols), numCodewords*config.TotalSymbolsPerCodeword)
		}
		back, err := Decode(symbols, numCodewords, size)
		if err != nil {
			t.Fatalf("size %d: Decode: %v", size, err)
		}
		if !bytes.Equal(back, data) {
			t.Fatalf("size %d: round trip mismatch", size)
		}
	}
}

func TestEncodeRejectsEmpty(t *testing.T) {
	if _, err := Encode(nil); err == nil {
		t.Fatal("expected error for empty input")
	}
	if _, err := Encode([]byte{}); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestDecodeReconstructsWithErasures(t *testing.T) {
	size := config.SymbolSize*config.DataSymbolsPerCodeword + 50
	data := bytes.Repeat([]byte{0x11, 0x22, 0x33}, size/3+1)[:size]

	symbols, err := Encode(data)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	numData := NumDataSymbols(size)
	numCodewords := NumCodewords(numData)

	// erase up to ParitySymbolsPerCodeword symbols from the first codeword
	erased := make([]Symbol, len(symbols))
	copy(erased, symbols)
	for i := 0; i < config.ParitySymbolsPerCodeword; i++ {
		erased[i] = nil
	}

	back, err := Decode(erased, numCodewords, size)
	if err != nil {
		t.Fatalf("Decode with erasures: %v", err)
	}
	if !bytes.Equal(back, data) {
		t.Fatal("reconstruction mismatch")
	}
}

func TestDecodeFailsWithTooManyErasures(t *testing.T) {
	size := config.SymbolSize * config.DataSymbolsPerCodeword
	data := bytes.Repeat([]byte{0x99}, size)

	symbols, err := Encode(data)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	numCodewords := NumCodewords(NumDataSymbols(size))

	erased := make([]Symbol, len(symbols))
	copy(erased, symbols)
	for i := 0; i < config.ParitySymbolsPerCodeword+1; i++ {
		erased[i] = nil
	}

	if _, err := Decode(erased, numCodewords, size); err == nil {
		t.Fatal("expected reconstruction failure with too many missing symbols")
	}
}

func TestNumCodewordsZero(t *testing.T) {
	if got := NumCodewords(0); got != 0 {
		t.Fatalf("NumCodewords(0) = %d, want 0", got)
	}
}
