// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package dscsfmt

import (
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"

	"github.com/suprsokr/dscsfmt/internal/doboz"
)

// Decompressor turns a compressed entry payload into its decompressed form.
// Implementations validate whatever header their algorithm embeds against
// expectedSize before trusting the result (spec §4.7).
type Decompressor interface {
	Decompress(input []byte, expectedSize int) ([]byte, error)
}

// stored reports whether input is already the uncompressed payload, per the
// decompressor contract's first rule: len(input) == expectedSize means the
// entry was stored verbatim.
func stored(input []byte, expectedSize int) bool {
	return len(input) == expectedSize
}

// lz4Decompressor wraps github.com/pierrec/lz4/v4's block codec for the
// HLTLDA archive variant.
type lz4Decompressor struct{}

func (lz4Decompressor) Decompress(input []byte, expectedSize int) ([]byte, error) {
	if stored(input, expectedSize) {
		return input, nil
	}

	out := make([]byte, expectedSize)
	n, err := lz4.UncompressBlock(input, out)
	if err != nil {
		return nil, &kindError{FormatError, fmt.Errorf("lz4 decompress: %w", err)}
	}
	if n != expectedSize {
		return nil, &kindError{FormatError, fmt.Errorf("lz4 decompress: got %d bytes, want %d", n, expectedSize)}
	}
	return out, nil
}

// dobozDecompressor wraps the self-contained Doboz codec for the DSCS
// archive variant.
type dobozDecompressor struct{}

func (dobozDecompressor) Decompress(input []byte, expectedSize int) ([]byte, error) {
	if stored(input, expectedSize) {
		return input, nil
	}

	out, err := doboz.Decompress(input, expectedSize)
	if err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, &kindError{FormatError, fmt.Errorf("doboz decompress: truncated stream")}
		}
		return nil, &kindError{FormatError, fmt.Errorf("doboz decompress: %w", err)}
	}
	return out, nil
}
