// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

// Package doboz implements the LZSS-family byte-oriented codec used as the
// DSCS archive variant's compression backend. The on-disk algorithm this
// stands in for is treated as an opaque collaborator by the rest of this
// module: only the documented embedded header and the decompress contract
// are load-bearing, so this package is a self-contained, independently
// round-tripping codec rather than a port of any reference decoder.
package doboz

import (
	"encoding/binary"
	"errors"
	"io"
)

// headerSize is the encoded size of the embedded {compressedSize,
// uncompressedSize, version} header.
const headerSize = 9

const (
	minMatchLen = 3
	maxMatchLen = minMatchLen + 15 // 4-bit length field
	maxDistance = 1 << 12          // 12-bit distance field
	windowSize  = maxDistance
)

// ErrBadHeader is returned when the embedded header's fields disagree with
// the caller-supplied expectations.
var ErrBadHeader = errors.New("doboz: header mismatch")

// Decompress validates data's embedded header against expectedSize and
// decodes its LZSS-coded body.
func Decompress(data []byte, expectedSize int) ([]byte, error) {
	if len(data) < headerSize {
		return nil, io.ErrUnexpectedEOF
	}

	compressedSize := binary.LittleEndian.Uint32(data[0:4])
	uncompressedSize := binary.LittleEndian.Uint32(data[4:8])
	version := data[8]

	if int(compressedSize) != len(data) || int(uncompressedSize) != expectedSize || version != 0 {
		return nil, ErrBadHeader
	}

	return decodeBody(data[headerSize:], expectedSize)
}

// Compress encodes input's LZSS body and prepends the {compressedSize,
// uncompressedSize, version} header Decompress expects.
func Compress(input []byte) []byte {
	body := encodeBody(input)
	out := make([]byte, headerSize+len(body))
	binary.LittleEndian.PutUint32(out[0:4], uint32(len(out)))
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(input)))
	out[8] = 0
	copy(out[headerSize:], body)
	return out
}

// decodeBody expands a stream of 8-token control-byte groups: a set bit
// means the next byte is a literal; a clear bit means the next two bytes
// encode a back-reference {distance (12 bits), length-minMatchLen (4 bits)}.
func decodeBody(body []byte, expectedSize int) ([]byte, error) {
	out := make([]byte, 0, expectedSize)
	pos := 0

	for pos < len(body) && len(out) < expectedSize {
		control := body[pos]
		pos++

		for bit := 0; bit < 8 && pos < len(body) && len(out) < expectedSize; bit++ {
			if control&(1<<uint(bit)) != 0 {
				out = append(out, body[pos])
				pos++
				continue
			}

			if pos+2 > len(body) {
				return nil, io.ErrUnexpectedEOF
			}
			b0, b1 := body[pos], body[pos+1]
			pos += 2

			distance := (int(b0)>>4)<<8 | int(b1)
			length := int(b0&0x0F) + minMatchLen
			distance++ // stored as distance-1

			if distance > len(out) {
				return nil, errors.New("doboz: back-reference past start of output")
			}
			start := len(out) - distance
			for i := 0; i < length; i++ {
				out = append(out, out[start+i])
			}
		}
	}

	if len(out) != expectedSize {
		return nil, io.ErrUnexpectedEOF
	}
	return out, nil
}

// encodeBody performs a straightforward greedy LZSS encode: at each
// position, find the longest match within windowSize bytes behind the
// cursor (capped at maxMatchLen); emit a literal when no match of at least
// minMatchLen is found.
func encodeBody(input []byte) []byte {
	var out []byte
	var control byte
	var tokens []byte
	nTokens := 0

	flush := func() {
		out = append(out, control)
		out = append(out, tokens...)
		control = 0
		tokens = tokens[:0]
		nTokens = 0
	}

	pos := 0
	for pos < len(input) {
		dist, length := findMatch(input, pos)

		if length >= minMatchLen {
			d := dist - 1
			l := length - minMatchLen
			tokens = append(tokens, byte((d>>8)<<4|l), byte(d&0xFF))
			pos += length
		} else {
			control |= 1 << uint(nTokens)
			tokens = append(tokens, input[pos])
			pos++
		}
		nTokens++

		if nTokens == 8 {
			flush()
		}
	}
	if nTokens > 0 {
		flush()
	}
	return out
}

// findMatch returns the distance and length of the longest back-reference
// available at input[pos], or (0, 0) if none reaches minMatchLen.
func findMatch(input []byte, pos int) (distance, length int) {
	windowStart := pos - windowSize
	if windowStart < 0 {
		windowStart = 0
	}

	bestLen := 0
	bestDist := 0

	for cand := pos - 1; cand >= windowStart; cand-- {
		l := matchLength(input, cand, pos)
		if l > bestLen {
			bestLen = l
			bestDist = pos - cand
			if bestLen >= maxMatchLen {
				break
			}
		}
	}

	if bestLen > maxMatchLen {
		bestLen = maxMatchLen
	}
	return bestDist, bestLen
}

func matchLength(input []byte, cand, pos int) int {
	max := len(input) - pos
	if max > maxMatchLen {
		max = maxMatchLen
	}
	n := 0
	for n < max && input[cand+n] == input[pos+n] {
		n++
	}
	return n
}
