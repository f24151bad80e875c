// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package dscsfmt

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFixture(t *testing.T, root string, rel string, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestResolverMissingStructuresDir(t *testing.T) {
	r := NewResolver(t.TempDir())
	s, err := r.Resolve("battle/formation.mbe", "FormationTable")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if s.Len() != 0 {
		t.Error("a missing structures/ root should resolve to an empty Structure")
	}
}

func TestResolverRegexFileThenExactTable(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "structures/structure.json", `{
		"battle/.*\\.mbe$": "battle.json",
		".*": "default.json"
	}`)
	writeFixture(t, root, "structures/battle.json", `{
		"FormationTable": {
			"id": "int32",
			"active": "bool",
			"name": "string"
		}
	}`)

	r := NewResolver(root)
	s, err := r.Resolve("battle/formation.mbe", "FormationTable")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if s.Len() != 3 {
		t.Fatalf("expected 3 columns, got %d", s.Len())
	}
	entries := s.Entries()
	if entries[0].Name != "id" || entries[0].Type != INT32 {
		t.Errorf("column 0 = %+v, want id/int32", entries[0])
	}
	if entries[2].Name != "name" || entries[2].Type != STRING {
		t.Errorf("column 2 = %+v, want name/string", entries[2])
	}
}

func TestResolverTableNameRegexFallback(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "structures/structure.json", `{".*": "format.json"}`)
	writeFixture(t, root, "structures/format.json", `{
		"Enemy.*": {"hp": "int32"}
	}`)

	r := NewResolver(root)
	s, err := r.Resolve("any/path.mbe", "EnemyStats")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if s.Len() != 1 || s.Entries()[0].Type != INT32 {
		t.Errorf("expected table-name regex match to resolve hp:int32, got %+v", s.Entries())
	}
}

func TestResolverNoMatchingTable(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "structures/structure.json", `{".*": "format.json"}`)
	writeFixture(t, root, "structures/format.json", `{"SomethingElse": {"x": "int32"}}`)

	r := NewResolver(root)
	s, err := r.Resolve("any/path.mbe", "Unrelated")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if s.Len() != 0 {
		t.Error("an unmatched table name should resolve to an empty Structure")
	}
}

func TestWrapFullMatch(t *testing.T) {
	if wrapFullMatch("Foo") != "^(?:Foo)$" {
		t.Errorf("wrapFullMatch(Foo) = %q", wrapFullMatch("Foo"))
	}
}
