// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package dscsfmt

import (
	"encoding/binary"
	"fmt"
)

// padFill is written into alignment padding and unused row bytes, matching
// the original tool's debug-friendly 0xCC fill.
const padFill = 0xCC

// ceilTo returns the smallest multiple of n not less than x. n must be a
// power of two in {2, 4, 8}; callers only ever pass the alignments EXPA
// defines.
func ceilTo(x, n uint32) uint32 {
	if n == 0 {
		return x
	}
	return (x + n - 1) &^ (n - 1)
}

// cursorWriter accumulates a byte stream with little-endian scalar writes and
// alignment padding, mirroring the teacher's io.Writer-based header encoder
// but tracking its own position so callers can align without seeking.
type cursorWriter struct {
	buf []byte
}

func (w *cursorWriter) Len() int { return len(w.buf) }

func (w *cursorWriter) Bytes() []byte { return w.buf }

func (w *cursorWriter) WriteBytes(b []byte) { w.buf = append(w.buf, b...) }

func (w *cursorWriter) WriteU32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// Align pads with padFill until the stream length is a multiple of n.
func (w *cursorWriter) Align(n uint32) {
	target := ceilTo(uint32(len(w.buf)), n)
	for uint32(len(w.buf)) < target {
		w.buf = append(w.buf, padFill)
	}
}

// cursorReader walks a fully-buffered byte slice with little-endian scalar
// reads and alignment skips. EXPA requires whole-file residency (rows are
// decoded only after the CHNK section that follows them has been read, and
// CHNK payloads are slices of this same buffer), so there is no streaming
// reader counterpart.
type cursorReader struct {
	buf []byte
	pos uint32
}

func newCursorReader(buf []byte) *cursorReader { return &cursorReader{buf: buf} }

func (r *cursorReader) Pos() uint32 { return r.pos }

func (r *cursorReader) Remaining() int { return len(r.buf) - int(r.pos) }

func (r *cursorReader) require(n uint32) error {
	if uint64(r.pos)+uint64(n) > uint64(len(r.buf)) {
		return fmt.Errorf("unexpected end of stream at offset %d, need %d more bytes", r.pos, n)
	}
	return nil
}

func (r *cursorReader) ReadBytes(n uint32) ([]byte, error) {
	if err := r.require(n); err != nil {
		return nil, err
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *cursorReader) ReadU32() (uint32, error) {
	b, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Align advances the read cursor to the next multiple of n.
func (r *cursorReader) Align(n uint32) error {
	target := ceilTo(r.pos, n)
	if target > uint32(len(r.buf)) {
		return fmt.Errorf("alignment past end of stream: %d > %d", target, len(r.buf))
	}
	r.pos = target
	return nil
}

// Seek moves the read cursor to an absolute offset.
func (r *cursorReader) Seek(pos uint32) error {
	if pos > uint32(len(r.buf)) {
		return fmt.Errorf("seek past end of stream: %d > %d", pos, len(r.buf))
	}
	r.pos = pos
	return nil
}

// ReadBytesAt returns n bytes starting at the absolute offset, without
// disturbing the read cursor. Used for the row-decode pass, which revisits
// offsets already skipped over during the table directory scan.
func (r *cursorReader) ReadBytesAt(offset, n uint32) ([]byte, error) {
	if uint64(offset)+uint64(n) > uint64(len(r.buf)) {
		return nil, fmt.Errorf("unexpected end of stream at offset %d, need %d more bytes", offset, n)
	}
	return r.buf[offset : offset+n], nil
}
