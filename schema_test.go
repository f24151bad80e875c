// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package dscsfmt

import "testing"

func TestParseTypeNameSynonyms(t *testing.T) {
	cases := map[string]EntryType{
		"byte":      INT8,
		"int8":      INT8,
		"short":     INT16,
		"int16":     INT16,
		"int":       INT32,
		"int32":     INT32,
		"int array": INT_ARRAY,
		"bool":      BOOL,
		"nonsense":  EMPTY,
	}
	for name, want := range cases {
		if got := parseTypeName(name); got != want {
			t.Errorf("parseTypeName(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestTypeNameRoundTrip(t *testing.T) {
	types := []EntryType{UNK0, UNK1, INT32, INT16, INT8, FLOAT, STRING3, STRING, STRING2, BOOL, EMPTY, INT_ARRAY}
	for _, ty := range types {
		name := typeName(ty)
		if name == "invalid" {
			t.Errorf("typeName(%v) reported invalid", ty)
		}
		if got := parseTypeName(name); got != ty {
			t.Errorf("parseTypeName(typeName(%v)) = %v, want %v", ty, got, ty)
		}
	}
}

func TestSameLayout(t *testing.T) {
	a := NewStructure([]StructureEntry{{Name: "a", Type: INT32}, {Name: "b", Type: BOOL}})
	b := NewStructure([]StructureEntry{{Name: "x", Type: INT32}, {Name: "y", Type: BOOL}})
	c := NewStructure([]StructureEntry{{Name: "a", Type: INT32}, {Name: "b", Type: FLOAT}})

	if !a.sameLayout(b) {
		t.Error("structures with matching types but different names should have the same layout")
	}
	if a.sameLayout(c) {
		t.Error("structures with different types should not have the same layout")
	}
}

func TestAlignmentAndSize(t *testing.T) {
	if alignmentOf(INT32) != 4 || sizeOf(INT32) != 4 {
		t.Error("INT32 should be 4-byte aligned, 4 bytes")
	}
	if alignmentOf(STRING) != 8 || sizeOf(STRING) != 8 {
		t.Error("STRING should be 8-byte aligned, 8 bytes (a pointer slot)")
	}
	if alignmentOf(INT_ARRAY) != 8 || sizeOf(INT_ARRAY) != 16 {
		t.Error("INT_ARRAY should be 8-byte aligned, 16 bytes (count + pad + pointer)")
	}
}
