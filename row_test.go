// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package dscsfmt

import (
	"encoding/binary"
	"testing"
)

func TestRowSizeEmptyStructure(t *testing.T) {
	if got := rowSize(Structure{}); got != 0 {
		t.Errorf("rowSize(empty) = %d, want 0", got)
	}
}

func TestLayoutColumnsPackedBoolShortRun(t *testing.T) {
	entries := []StructureEntry{
		{Name: "a", Type: INT32},
		{Name: "b1", Type: BOOL},
		{Name: "b2", Type: BOOL},
		{Name: "b3", Type: BOOL},
		{Name: "c", Type: INT32},
	}
	cols, _, hasTrailing, size := layoutColumns(entries)

	if cols[1].offset != 4 || cols[2].offset != 4 || cols[3].offset != 4 {
		t.Errorf("bool run should share one packed word offset, got %v %v %v", cols[1].offset, cols[2].offset, cols[3].offset)
	}
	if cols[1].bit != 0 || cols[2].bit != 1 || cols[3].bit != 2 {
		t.Errorf("bool bits should be sequential, got %d %d %d", cols[1].bit, cols[2].bit, cols[3].bit)
	}
	if !cols[4].flushBefore {
		t.Error("the column after a bool run should flush the packed word first")
	}
	if hasTrailing {
		t.Error("a run terminated by a following non-bool column should not need a trailing flush")
	}
	// a(4) + boolword(4) + c(4) = 12 (the stride, rounded to 8, would be 16)
	if size != 12 {
		t.Errorf("rowSize = %d, want 12", size)
	}
}

// TestLayoutColumnsPackedBoolEntryAlignment covers spec.md's S2 scenario: a
// BOOL run starting right after a column that doesn't already leave the
// cursor 4-aligned (INT8 ends at offset 1). The packed word must still land
// on the next 4-aligned offset, not at the unaligned offset the preceding
// column left behind.
func TestLayoutColumnsPackedBoolEntryAlignment(t *testing.T) {
	entries := []StructureEntry{
		{Name: "a", Type: INT8},
		{Name: "b1", Type: BOOL},
		{Name: "b2", Type: BOOL},
		{Name: "b3", Type: BOOL},
		{Name: "c", Type: INT32},
	}
	cols, _, hasTrailing, size := layoutColumns(entries)

	if cols[0].offset != 0 {
		t.Errorf("cols[0].offset = %d, want 0", cols[0].offset)
	}
	if cols[1].offset != 4 || cols[2].offset != 4 || cols[3].offset != 4 {
		t.Errorf("bool word should align to offset 4 after a 1-byte INT8, got %v %v %v", cols[1].offset, cols[2].offset, cols[3].offset)
	}
	if cols[1].bit != 0 || cols[2].bit != 1 || cols[3].bit != 2 {
		t.Errorf("bool bits should be sequential, got %d %d %d", cols[1].bit, cols[2].bit, cols[3].bit)
	}
	if !cols[4].flushBefore || cols[4].offset != 8 {
		t.Errorf("c should flush the bool word and land at offset 8, got flushBefore=%v offset=%d", cols[4].flushBefore, cols[4].offset)
	}
	if hasTrailing {
		t.Error("a run terminated by a following non-bool column should not need a trailing flush")
	}
	// a(1, padded to 4) + boolword(4) + c(4) = 12
	if size != 12 {
		t.Errorf("rowSize = %d, want 12", size)
	}
}

func TestLayoutColumnsPackedBoolOverflow(t *testing.T) {
	entries := make([]StructureEntry, 40)
	for i := range entries {
		entries[i] = StructureEntry{Name: "b", Type: BOOL}
	}
	cols, trailingOffset, hasTrailing, _ := layoutColumns(entries)

	if cols[32].offset != 4 {
		t.Errorf("the 33rd bool should start a second packed word at offset 4, got %d", cols[32].offset)
	}
	if cols[32].bit != 0 {
		t.Errorf("the 33rd bool should reset to bit 0 of the new word, got %d", cols[32].bit)
	}
	if !hasTrailing || trailingOffset != 4 {
		t.Errorf("a run of 40 bools should leave a trailing 8-bool word at offset 4, got hasTrailing=%v offset=%d", hasTrailing, trailingOffset)
	}
}

func TestWriteReadRowRoundTrip(t *testing.T) {
	structure := NewStructure([]StructureEntry{
		{Name: "id", Type: INT32},
		{Name: "flag1", Type: BOOL},
		{Name: "flag2", Type: BOOL},
		{Name: "label", Type: STRING},
		{Name: "empty_label", Type: STRING},
		{Name: "tags", Type: INT_ARRAY},
	})

	row := []EntryValue{
		Int32Value(7),
		BoolValue(true),
		BoolValue(false),
		StringValue("hello"),
		StringValue(""),
		IntArrayValue([]int32{1, 2, 3}),
	}

	stride := rowStride(structure)
	base := uint32(0x40)
	data := make([]byte, stride)
	for i := range data {
		data[i] = padFill
	}

	chnk, err := writeRow(structure, base, data, row)
	if err != nil {
		t.Fatalf("writeRow: %v", err)
	}

	patches := make(map[uint32][]byte)
	for _, e := range chnk {
		patches[e.Offset] = e.Value
	}

	got, err := readRow(structure, data, base, patches)
	if err != nil {
		t.Fatalf("readRow: %v", err)
	}

	if v, _ := got[0].Int32(); v != 7 {
		t.Errorf("id = %d, want 7", v)
	}
	if v, _ := got[1].Bool(); !v {
		t.Error("flag1 should round-trip true")
	}
	if v, _ := got[2].Bool(); v {
		t.Error("flag2 should round-trip false")
	}
	if v, _ := got[3].String(); v != "hello" {
		t.Errorf("label = %q, want hello", v)
	}
	if v, _ := got[4].String(); v != "" {
		t.Errorf("empty_label = %q, want empty", v)
	}
	if v, _ := got[5].IntArray(); len(v) != 3 || v[0] != 1 || v[2] != 3 {
		t.Errorf("tags = %v, want [1 2 3]", v)
	}
}

func TestWriteRowSkipsEmptyPayloads(t *testing.T) {
	structure := NewStructure([]StructureEntry{
		{Name: "s", Type: STRING},
		{Name: "arr", Type: INT_ARRAY},
	})
	row := []EntryValue{StringValue(""), IntArrayValue(nil)}

	data := make([]byte, rowStride(structure))
	chnk, err := writeRow(structure, 0, data, row)
	if err != nil {
		t.Fatalf("writeRow: %v", err)
	}
	if len(chnk) != 0 {
		t.Errorf("empty string/array cells should not emit CHNK entries, got %d", len(chnk))
	}
	if binary.LittleEndian.Uint32(data[8:]) != 0 {
		t.Error("an empty INT_ARRAY's count field should be zero")
	}
}

func TestWriteRowRejectsWrongArity(t *testing.T) {
	structure := NewStructure([]StructureEntry{{Name: "a", Type: INT32}})
	_, err := writeRow(structure, 0, make([]byte, 8), []EntryValue{})
	if err == nil {
		t.Fatal("expected an error for a row with the wrong number of cells")
	}
	if !IsValueError(err) {
		t.Errorf("expected a ValueError, got %v", err)
	}
}

func TestWriteRowRejectsMismatchedTag(t *testing.T) {
	structure := NewStructure([]StructureEntry{{Name: "a", Type: INT32}})
	_, err := writeRow(structure, 0, make([]byte, 8), []EntryValue{StringValue("nope")})
	if !IsValueError(err) {
		t.Errorf("expected a ValueError for a string value in an INT32 column, got %v", err)
	}
}

func TestCstringPayloadPadding(t *testing.T) {
	// len=5 -> +2 = 7 -> round to 4 => 8
	p := cstringPayload("hello")
	if len(p) != 8 {
		t.Errorf("cstringPayload(hello) length = %d, want 8", len(p))
	}
	if p[5] != 0 {
		t.Error("cstringPayload should NUL-terminate immediately after the string content")
	}
}
