// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package dscsfmt

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Resolver locates JSON schema overlays under a structures/ root per spec
// §4.3. Merging the result with an embedded or CSV-header schema is done by
// ReadEXPA and ImportCSV, not here.
//
// The original tool reads structures/ from the process's working directory;
// spec §9 flags that as a surprising default, so Resolver takes an explicit
// root. DefaultResolver preserves the legacy behavior for callers that want
// it.
type Resolver struct {
	root string
}

// NewResolver returns a Resolver that looks for structures/ under root.
func NewResolver(root string) *Resolver {
	return &Resolver{root: root}
}

// DefaultResolver resolves structures/ relative to the process's working
// directory, matching the original tool's implicit behavior.
var DefaultResolver = NewResolver(".")

// overlayPair is one entry of an order-preserving JSON object: structure.json
// maps a regex to a format filename; a format file's table entry maps a
// column name to a type name. Both need the same shape.
type overlayPair struct {
	Key   string
	Value *yaml.Node
}

// Resolve returns the Structure registered for tableName in the overlay
// selected by filePath, or an empty Structure if no structures/ root,
// structure.json, matching regex, or matching table entry is found — per
// spec §4.3 step 1–3, a miss at any of those steps is not an error. A format
// file that structure.json names but that cannot be read or parsed is
// reported as an IOError.
func (r *Resolver) Resolve(filePath, tableName string) (Structure, error) {
	structuresDir := filepath.Join(r.root, "structures")
	if info, err := os.Stat(structuresDir); err != nil || !info.IsDir() {
		return Structure{}, nil
	}

	structureFile := filepath.Join(structuresDir, "structure.json")
	structurePairs, err := loadOrderedObject(structureFile)
	if err != nil {
		if os.IsNotExist(err) {
			return Structure{}, nil
		}
		return Structure{}, &kindError{IOError, fmt.Errorf("read %s: %w", structureFile, err)}
	}

	var formatFile string
	for _, pair := range structurePairs {
		re, err := regexp.Compile(pair.Key)
		if err != nil {
			continue // an unparsable regex key never matches; skip it
		}
		if re.MatchString(filePath) {
			formatFile = scalarString(pair.Value)
			break
		}
	}
	if formatFile == "" {
		return Structure{}, nil
	}

	formatPairs, err := loadOrderedObject(filepath.Join(structuresDir, formatFile))
	if err != nil {
		return Structure{}, &kindError{IOError, fmt.Errorf("read format file %s: %w", formatFile, err)}
	}

	tableNode := findTableEntry(formatPairs, tableName)
	if tableNode == nil {
		return Structure{}, nil
	}

	columnPairs, err := orderedPairs(tableNode)
	if err != nil {
		return Structure{}, &kindError{SchemaError, fmt.Errorf("table %q: %w", tableName, err)}
	}

	entries := make([]StructureEntry, len(columnPairs))
	for i, pair := range columnPairs {
		entries[i] = StructureEntry{Name: pair.Key, Type: parseTypeName(scalarString(pair.Value))}
	}
	return NewStructure(entries), nil
}

// findTableEntry selects tableName's value node: an exact key match first,
// then the first entry whose key, wrapped as a full-string regex, matches
// tableName (spec §4.3 step 3).
func findTableEntry(pairs []overlayPair, tableName string) *yaml.Node {
	for _, pair := range pairs {
		if pair.Key == tableName {
			return pair.Value
		}
	}
	for _, pair := range pairs {
		re, err := regexp.Compile(wrapFullMatch(pair.Key))
		if err != nil {
			continue
		}
		if re.MatchString(tableName) {
			return pair.Value
		}
	}
	return nil
}

// wrapFullMatch wraps pattern so it must match the whole candidate string,
// per spec §4.3's "wrapped as a full-string match" table-name regex rule.
func wrapFullMatch(pattern string) string {
	return "^(?:" + pattern + ")$"
}

// loadOrderedObject reads a JSON file and returns its top-level object's
// members in declaration order.
func loadOrderedObject(path string) ([]overlayPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &kindError{SchemaError, fmt.Errorf("parse %s: %w", path, err)}
	}
	if len(doc.Content) == 0 {
		return nil, &kindError{SchemaError, fmt.Errorf("%s: empty document", path)}
	}
	return orderedPairs(doc.Content[0])
}

// orderedPairs extracts a mapping node's key/value members in document
// order. This is the order-preservation trick spec §9 calls for: JSON object
// syntax parses as YAML flow mappings, and yaml.Node keeps members in the
// sequence they appeared in the source, unlike map[string]T.
func orderedPairs(node *yaml.Node) ([]overlayPair, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected a JSON object, got kind %d", node.Kind)
	}
	pairs := make([]overlayPair, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		pairs = append(pairs, overlayPair{Key: node.Content[i].Value, Value: node.Content[i+1]})
	}
	return pairs, nil
}

// scalarString returns node's scalar string value, or "" if node is nil or
// not a scalar.
func scalarString(node *yaml.Node) string {
	if node == nil || node.Kind != yaml.ScalarNode {
		return ""
	}
	return node.Value
}
