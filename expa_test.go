// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package dscsfmt

import (
	"path/filepath"
	"testing"
)

func sampleTableFile() *TableFile {
	structure := NewStructure([]StructureEntry{
		{Name: "int32 0", Type: INT32},
		{Name: "bool 1", Type: BOOL},
		{Name: "string 2", Type: STRING},
		{Name: "int array 3", Type: INT_ARRAY},
	})
	return &TableFile{
		Tables: []Table{
			{
				Name:      "Enemies",
				Structure: structure,
				Rows: [][]EntryValue{
					{Int32Value(1), BoolValue(true), StringValue("Slime"), IntArrayValue([]int32{10, 20})},
					{Int32Value(2), BoolValue(false), StringValue(""), IntArrayValue(nil)},
				},
			},
			{
				Name:      "Empty",
				Structure: Structure{},
				Rows:      [][]EntryValue{},
			},
		},
	}
}

func TestWriteReadEXPA64RoundTrip(t *testing.T) {
	file := sampleTableFile()
	path := filepath.Join(t.TempDir(), "test.mbe")

	if err := WriteEXPA(EXPA64, file, path); err != nil {
		t.Fatalf("WriteEXPA: %v", err)
	}

	got, err := ReadEXPA(EXPA64, path, nil)
	if err != nil {
		t.Fatalf("ReadEXPA: %v", err)
	}

	if len(got.Tables) != 2 {
		t.Fatalf("got %d tables, want 2", len(got.Tables))
	}
	table := got.Tables[0]
	if table.Name != "Enemies" {
		t.Errorf("table name = %q, want Enemies", table.Name)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(table.Rows))
	}
	if v, _ := table.Rows[0][0].Int32(); v != 1 {
		t.Errorf("row 0 col 0 = %d, want 1", v)
	}
	if v, _ := table.Rows[0][2].String(); v != "Slime" {
		t.Errorf("row 0 col 2 = %q, want Slime", v)
	}
	if v, _ := table.Rows[0][3].IntArray(); len(v) != 2 || v[1] != 20 {
		t.Errorf("row 0 col 3 = %v, want [10 20]", v)
	}
	if v, _ := table.Rows[1][2].String(); v != "" {
		t.Errorf("row 1 col 2 = %q, want empty", v)
	}
}

func TestWriteReadEXPA32RequiresOverlay(t *testing.T) {
	structure := NewStructure([]StructureEntry{{Name: "id", Type: INT32}})
	file := &TableFile{Tables: []Table{{Name: "T", Structure: structure, Rows: [][]EntryValue{{Int32Value(5)}}}}}

	dir := t.TempDir()
	path := filepath.Join(dir, "test.mbp")
	if err := WriteEXPA(EXPA32, file, path); err != nil {
		t.Fatalf("WriteEXPA: %v", err)
	}

	// No resolver: EXPA32 tables decode with an empty structure, and the
	// entrySize check must fail since the file's rows aren't zero-width.
	if _, err := ReadEXPA(EXPA32, path, nil); !IsFormatError(err) {
		t.Errorf("expected a FormatError reading EXPA32 without a schema overlay, got %v", err)
	}

	writeFixture(t, dir, "structures/structure.json", `{".*": "format.json"}`)
	writeFixture(t, dir, "structures/format.json", `{"T": {"id": "int32"}}`)

	got, err := ReadEXPA(EXPA32, path, NewResolver(dir))
	if err != nil {
		t.Fatalf("ReadEXPA with overlay: %v", err)
	}
	if v, _ := got.Tables[0].Rows[0][0].Int32(); v != 5 {
		t.Errorf("row 0 col 0 = %d, want 5", v)
	}
}

func TestReadEXPARejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.mbe")
	if err := writeFileAtomic(path, []byte{0, 0, 0, 0}); err != nil {
		t.Fatalf("writeFileAtomic: %v", err)
	}
	if _, err := ReadEXPA(EXPA64, path, nil); !IsFormatError(err) {
		t.Errorf("expected a FormatError for a bad magic, got %v", err)
	}
}
