// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package dscsfmt

import (
	"encoding/binary"
	"fmt"
	"math"
)

// CHNKEntry is a single side-table record: the absolute file offset of an
// 8-byte row slot, and the out-of-line payload that slot must point at once
// the file is loaded (spec §3, §9 "pointer patch-up").
type CHNKEntry struct {
	Offset uint32
	Value  []byte
}

// colLayout is one column's resolved position within a row, computed by
// layoutColumns and shared by the row reader, writer, and size routines so
// all three stay bit-exact (spec §9's "one routine, an emit callback").
type colLayout struct {
	offset      uint32
	bit         uint32 // bit index within the packed BOOL word; 0 for non-BOOL columns
	flushBefore bool   // a pending BOOL word must be written at flushOffset before this column
	flushOffset uint32
}

// layoutColumns walks entries once, resolving each column's byte offset and
// (for BOOL) bit index, per the packed-bool state machine in spec §4.4.
func layoutColumns(entries []StructureEntry) (cols []colLayout, trailingFlushOffset uint32, hasTrailingFlush bool, rowSize uint32) {
	cols = make([]colLayout, len(entries))
	var o, b uint32

	for i, e := range entries {
		var flush bool
		var flushOffset uint32
		if e.Type == BOOL {
			switch b {
			case 0:
				// entering a fresh run: the word itself still needs aligning,
				// even though there's nothing pending to flush yet.
				o = ceilTo(o, alignmentOf(BOOL))
			case 32:
				flush = true
				flushOffset = o
				o += 4
				b = 0
				o = ceilTo(o, alignmentOf(BOOL))
			}
		} else {
			if b > 0 {
				flush = true
				flushOffset = o
				o += 4
				b = 0
			}
			o = ceilTo(o, alignmentOf(e.Type))
		}

		cols[i] = colLayout{offset: o, bit: b, flushBefore: flush, flushOffset: flushOffset}

		if e.Type == BOOL {
			b++
		} else {
			o += sizeOf(e.Type)
		}
	}

	if b > 0 {
		hasTrailingFlush = true
		trailingFlushOffset = o
		o += 4
	}
	rowSize = o
	return
}

// rowSize returns the structure's getEXPASize(): the exact encoded byte
// count before stride rounding. Empty structures size to zero.
func rowSize(s Structure) uint32 {
	if s.Len() == 0 {
		return 0
	}
	_, _, _, size := layoutColumns(s.entries)
	return size
}

// rowStride returns the per-row on-disk byte count: rowSize rounded up to 8,
// per spec §4.4's canonical rule (always round, regardless of column count
// parity — see DESIGN.md for the rejected alternative).
func rowStride(s Structure) uint32 {
	return ceilTo(rowSize(s), 8)
}

// cstringPayload renders s as a CHNK string payload: NUL-terminated, padded
// to a 4-byte multiple with at least one NUL of slack beyond the terminator
// (spec §3, §9: "+2 then round up").
func cstringPayload(s string) []byte {
	n := ceilTo(uint32(len(s)+2), 4)
	buf := make([]byte, n)
	copy(buf, s)
	return buf
}

// intArrayPayload renders a CHNK int-array payload: the raw little-endian
// int32 sequence.
func intArrayPayload(values []int32) []byte {
	buf := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(v))
	}
	return buf
}

// writeRow encodes row into data (which must be at least rowStride(s) bytes,
// pre-filled with padFill) using base as the row's absolute file offset, and
// returns the CHNK entries produced for its out-of-line payloads. Entries
// are returned in column order, matching spec §4.5's row-major,
// column-major CHNK emission order.
func writeRow(s Structure, base uint32, data []byte, row []EntryValue) ([]CHNKEntry, error) {
	entries := s.entries
	if len(row) != len(entries) {
		return nil, &kindError{ValueError, fmt.Errorf("row has %d values, structure has %d columns", len(row), len(entries))}
	}

	cols, trailingOffset, hasTrailing, _ := layoutColumns(entries)
	var chnk []CHNKEntry
	var boolWord uint32

	for i, e := range entries {
		col := cols[i]
		if col.flushBefore {
			binary.LittleEndian.PutUint32(data[col.flushOffset:], boolWord)
			boolWord = 0
		}

		if err := checkValueTag(e.Type, row[i]); err != nil {
			return nil, fmt.Errorf("column %q: %w", e.Name, err)
		}

		switch e.Type {
		case EMPTY, UNK0, UNK1:
			// nothing encoded
		case BOOL:
			if v, _ := row[i].Bool(); v {
				boolWord |= 1 << col.bit
			}
		case INT8:
			v, _ := row[i].Int8()
			data[col.offset] = byte(v)
		case INT16:
			v, _ := row[i].Int16()
			binary.LittleEndian.PutUint16(data[col.offset:], uint16(v))
		case INT32:
			v, _ := row[i].Int32()
			binary.LittleEndian.PutUint32(data[col.offset:], uint32(v))
		case FLOAT:
			v, _ := row[i].Float32()
			binary.LittleEndian.PutUint32(data[col.offset:], math.Float32bits(v))
		case STRING, STRING2, STRING3:
			// the slot is written as 8 zero bytes over the padFill scratch;
			// it is only ever non-zero once CHNK patch-up runs.
			clearSlot(data, col.offset, 8)
			str, _ := row[i].String()
			if str != "" {
				chnk = append(chnk, CHNKEntry{Offset: base + col.offset, Value: cstringPayload(str)})
			}
		case INT_ARRAY:
			arr, _ := row[i].IntArray()
			binary.LittleEndian.PutUint32(data[col.offset:], uint32(len(arr)))
			clearSlot(data, col.offset+4, 4)
			clearSlot(data, col.offset+8, 8)
			if len(arr) > 0 {
				chnk = append(chnk, CHNKEntry{Offset: base + col.offset + 8, Value: intArrayPayload(arr)})
			}
		}
	}

	if hasTrailing {
		binary.LittleEndian.PutUint32(data[trailingOffset:], boolWord)
	}

	return chnk, nil
}

// clearSlot zeroes n bytes at offset, overriding the padFill scratch fill.
func clearSlot(data []byte, offset, n uint32) {
	for i := uint32(0); i < n; i++ {
		data[offset+i] = 0
	}
}

// readRow decodes a row from data (the row's raw bytes) given base, the
// row's absolute file offset, and patches, a slotOffset→payload map built
// from the CHNK section (spec §9's portable stand-in for pointer patch-up).
func readRow(s Structure, data []byte, base uint32, patches map[uint32][]byte) ([]EntryValue, error) {
	entries := s.entries
	if len(entries) == 0 {
		return nil, nil
	}

	cols, _, _, _ := layoutColumns(entries)
	values := make([]EntryValue, len(entries))

	for i, e := range entries {
		col := cols[i]
		switch e.Type {
		case EMPTY, UNK0, UNK1:
			values[i] = Absent()
		case BOOL:
			word := binary.LittleEndian.Uint32(data[col.offset:])
			values[i] = BoolValue((word>>col.bit)&1 == 1)
		case INT8:
			values[i] = Int8Value(int8(data[col.offset]))
		case INT16:
			values[i] = Int16Value(int16(binary.LittleEndian.Uint16(data[col.offset:])))
		case INT32:
			values[i] = Int32Value(int32(binary.LittleEndian.Uint32(data[col.offset:])))
		case FLOAT:
			values[i] = FloatValue(math.Float32frombits(binary.LittleEndian.Uint32(data[col.offset:])))
		case STRING, STRING2, STRING3:
			payload, ok := patches[base+col.offset]
			if !ok {
				values[i] = StringValue("")
				continue
			}
			values[i] = StringValue(decodeCString(payload))
		case INT_ARRAY:
			count := binary.LittleEndian.Uint32(data[col.offset:])
			if count == 0 {
				values[i] = IntArrayValue(nil)
				continue
			}
			payload, ok := patches[base+col.offset+8]
			if !ok || uint32(len(payload)) < count*4 {
				return nil, &kindError{FormatError, fmt.Errorf("column %q: missing or short int-array payload", e.Name)}
			}
			ints := make([]int32, count)
			for j := range ints {
				ints[j] = int32(binary.LittleEndian.Uint32(payload[j*4:]))
			}
			values[i] = IntArrayValue(ints)
		default:
			values[i] = Absent()
		}
	}

	return values, nil
}

// decodeCString returns the NUL-terminated string stored in payload, or the
// whole payload if no terminator is present.
func decodeCString(payload []byte) string {
	for i, b := range payload {
		if b == 0 {
			return string(payload[:i])
		}
	}
	return string(payload)
}
