// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package dscsfmt

import "fmt"

// EntryType is the closed tag set of EXPA column types. Values are the
// stable integer codes stored on disk; do not renumber.
type EntryType uint32

const (
	UNK0      EntryType = 0
	UNK1      EntryType = 1
	INT32     EntryType = 2
	INT16     EntryType = 3
	INT8      EntryType = 4
	FLOAT     EntryType = 5
	STRING3   EntryType = 6
	STRING    EntryType = 7
	STRING2   EntryType = 8
	BOOL      EntryType = 9
	EMPTY     EntryType = 10
	INT_ARRAY EntryType = 100
)

// alignmentOf returns the byte alignment a column of type t requires within
// a row, per spec §3.
func alignmentOf(t EntryType) uint32 {
	switch t {
	case INT32, FLOAT, BOOL:
		return 4
	case INT16:
		return 2
	case INT8:
		return 1
	case STRING3, STRING, STRING2, INT_ARRAY:
		return 8
	default: // UNK0, UNK1, EMPTY
		return 0
	}
}

// sizeOf returns the on-disk size in bytes of a column of type t, per
// spec §3. BOOL's packed size is handled by the row walker, not here.
func sizeOf(t EntryType) uint32 {
	switch t {
	case INT32, FLOAT, BOOL:
		return 4
	case INT16:
		return 2
	case INT8:
		return 1
	case STRING3, STRING, STRING2:
		return 8
	case INT_ARRAY:
		return 16
	default: // UNK0, UNK1, EMPTY
		return 0
	}
}

// typeName renders the canonical textual form of t, used by the embedded
// EXPA64 schema's generated column names and by CSV headers.
func typeName(t EntryType) string {
	switch t {
	case UNK0:
		return "unk0"
	case UNK1:
		return "unk1"
	case INT32:
		return "int32"
	case INT16:
		return "int16"
	case INT8:
		return "int8"
	case FLOAT:
		return "float"
	case STRING3:
		return "string3"
	case STRING:
		return "string"
	case STRING2:
		return "string2"
	case BOOL:
		return "bool"
	case EMPTY:
		return "empty"
	case INT_ARRAY:
		return "int array"
	default:
		return "invalid"
	}
}

// parseTypeName resolves a type name, including the synonyms byte=INT8,
// short=INT16, int=INT32, "int array"=INT_ARRAY. Unknown names resolve to
// EMPTY, matching the original tool's lookup-map-with-default behavior.
func parseTypeName(name string) EntryType {
	switch name {
	case "byte", "int8":
		return INT8
	case "short", "int16":
		return INT16
	case "int", "int32":
		return INT32
	case "float":
		return FLOAT
	case "bool":
		return BOOL
	case "empty":
		return EMPTY
	case "string":
		return STRING
	case "string2":
		return STRING2
	case "string3":
		return STRING3
	case "int array":
		return INT_ARRAY
	case "unk0":
		return UNK0
	case "unk1":
		return UNK1
	default:
		return EMPTY
	}
}

// StructureEntry names one column of a Structure.
type StructureEntry struct {
	Name string
	Type EntryType
}

// Structure is an ordered, immutable column schema. Two structures are
// layout-equivalent iff their type sequences match element-wise; names do
// not affect layout.
type Structure struct {
	entries []StructureEntry
}

// NewStructure builds a Structure from an ordered entry list. The slice is
// copied so the returned Structure is independent of further mutation.
func NewStructure(entries []StructureEntry) Structure {
	cp := make([]StructureEntry, len(entries))
	copy(cp, entries)
	return Structure{entries: cp}
}

// Entries returns the structure's columns in order. The returned slice must
// not be mutated by the caller.
func (s Structure) Entries() []StructureEntry { return s.entries }

// Len returns the number of columns.
func (s Structure) Len() int { return len(s.entries) }

// sameLayout reports whether s and other have identical type sequences.
func (s Structure) sameLayout(other Structure) bool {
	if len(s.entries) != len(other.entries) {
		return false
	}
	for i := range s.entries {
		if s.entries[i].Type != other.entries[i].Type {
			return false
		}
	}
	return true
}

func (s Structure) String() string {
	return fmt.Sprintf("Structure(%d columns)", len(s.entries))
}
