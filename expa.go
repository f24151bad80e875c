// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package dscsfmt

import (
	"fmt"
	"os"
)

const (
	expaMagic uint32 = 0x41505845 // "EXPA"
	chnkMagic uint32 = 0x4B4E4843 // "CHNK"
)

// Variant selects an EXPA sub-format's alignment step and whether tables
// carry an embedded column-type schema. EXPA32 and EXPA64 are the two
// concrete instances; spec §9 models this as a capability set rather than
// the original's compile-time template parameter.
type Variant struct {
	alignStep         uint32
	hasEmbeddedSchema bool
	name              string
}

// EXPA32 files carry no embedded schema; every table's structure comes from
// a JSON overlay (or is empty).
var EXPA32 = Variant{alignStep: 4, hasEmbeddedSchema: false, name: "EXPA32"}

// EXPA64 files carry an embedded column-type sequence per table, optionally
// overridden by a matching JSON overlay.
var EXPA64 = Variant{alignStep: 8, hasEmbeddedSchema: true, name: "EXPA64"}

func (v Variant) String() string { return v.name }

// tableHandle is the bookkeeping ReadEXPA keeps per table between the
// directory scan and the row-decode pass.
type tableHandle struct {
	name       string
	structure  Structure
	rowsOffset uint32
	entryCount uint32
	entrySize  uint32
}

// ReadEXPA parses an EXPA/CHNK file at path under the given variant. resolver
// supplies the JSON schema overlay (see Resolver); a nil resolver behaves as
// if no structures/ root exists, so EXPA32 tables decode to empty structures
// and EXPA64 tables always use their embedded schema.
//
// The whole file is buffered in memory: CHNK patch-up must see the complete
// row area before any row is decoded (spec §5).
func ReadEXPA(variant Variant, path string, resolver *Resolver) (*TableFile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &kindError{IOError, fmt.Errorf("read %s: %w", path, err)}
	}

	r := newCursorReader(content)

	magic, err := r.ReadU32()
	if err != nil {
		return nil, &kindError{FormatError, fmt.Errorf("%s: %w", path, err)}
	}
	if magic != expaMagic {
		return nil, &kindError{FormatError, fmt.Errorf("%s: lacks EXPA header", path)}
	}
	tableCount, err := r.ReadU32()
	if err != nil {
		return nil, &kindError{FormatError, fmt.Errorf("%s: %w", path, err)}
	}

	handles := make([]tableHandle, 0, tableCount)

	for i := uint32(0); i < tableCount; i++ {
		if err := r.Align(variant.alignStep); err != nil {
			return nil, &kindError{FormatError, err}
		}

		nameLen, err := r.ReadU32()
		if err != nil {
			return nil, &kindError{FormatError, fmt.Errorf("table %d: %w", i, err)}
		}
		nameBytes, err := r.ReadBytes(nameLen)
		if err != nil {
			return nil, &kindError{FormatError, fmt.Errorf("table %d: %w", i, err)}
		}
		name := decodeCString(nameBytes)

		var embedded Structure
		if variant.hasEmbeddedSchema {
			embedded, err = readEmbeddedSchema(r)
			if err != nil {
				return nil, &kindError{FormatError, fmt.Errorf("table %q: %w", name, err)}
			}
		}

		entrySize, err := r.ReadU32()
		if err != nil {
			return nil, &kindError{FormatError, fmt.Errorf("table %q: %w", name, err)}
		}
		entryCount, err := r.ReadU32()
		if err != nil {
			return nil, &kindError{FormatError, fmt.Errorf("table %q: %w", name, err)}
		}
		if err := r.Align(8); err != nil {
			return nil, &kindError{FormatError, err}
		}

		structure := resolveTableStructure(variant, resolver, path, name, embedded)

		rowsOffset := r.Pos()
		stride := ceilTo(entrySize, 8)
		if err := r.Seek(rowsOffset + entryCount*stride); err != nil {
			return nil, &kindError{FormatError, fmt.Errorf("table %q: %w", name, err)}
		}

		if got := rowSize(structure); got != entrySize {
			return nil, &kindError{FormatError, fmt.Errorf("table %q: structure size %d doesn't match entry size %d", name, got, entrySize)}
		}

		handles = append(handles, tableHandle{
			name:       name,
			structure:  structure,
			rowsOffset: rowsOffset,
			entryCount: entryCount,
			entrySize:  entrySize,
		})
	}

	if err := r.Align(variant.alignStep); err != nil {
		return nil, &kindError{FormatError, err}
	}

	chunkMagic, err := r.ReadU32()
	if err != nil {
		return nil, &kindError{FormatError, fmt.Errorf("%s: %w", path, err)}
	}
	if chunkMagic != chnkMagic {
		return nil, &kindError{FormatError, fmt.Errorf("%s: lacks CHNK header", path)}
	}
	chunkCount, err := r.ReadU32()
	if err != nil {
		return nil, &kindError{FormatError, fmt.Errorf("%s: %w", path, err)}
	}

	patches := make(map[uint32][]byte, chunkCount)
	for i := uint32(0); i < chunkCount; i++ {
		slot, err := r.ReadU32()
		if err != nil {
			return nil, &kindError{FormatError, fmt.Errorf("chnk entry %d: %w", i, err)}
		}
		size, err := r.ReadU32()
		if err != nil {
			return nil, &kindError{FormatError, fmt.Errorf("chnk entry %d: %w", i, err)}
		}
		payload, err := r.ReadBytes(size)
		if err != nil {
			return nil, &kindError{FormatError, fmt.Errorf("chnk entry %d: %w", i, err)}
		}
		patches[slot] = payload
	}

	tables := make([]Table, len(handles))
	for i, h := range handles {
		stride := ceilTo(h.entrySize, 8)
		rows := make([][]EntryValue, h.entryCount)
		offset := h.rowsOffset
		for j := uint32(0); j < h.entryCount; j++ {
			rowData, err := r.ReadBytesAt(offset, stride)
			if err != nil {
				return nil, &kindError{FormatError, fmt.Errorf("table %q row %d: %w", h.name, j, err)}
			}
			row, err := readRow(h.structure, rowData, offset, patches)
			if err != nil {
				return nil, fmt.Errorf("table %q row %d: %w", h.name, j, err)
			}
			rows[j] = row
			offset += stride
		}
		tables[i] = Table{Name: h.name, Structure: h.structure, Rows: rows}
	}

	return &TableFile{Tables: tables}, nil
}

// readEmbeddedSchema reads an EXPA64 table's embedded column-type sequence
// and names each column "<typeName> <index>", per spec §4.5.
func readEmbeddedSchema(r *cursorReader) (Structure, error) {
	count, err := r.ReadU32()
	if err != nil {
		return Structure{}, err
	}
	entries := make([]StructureEntry, count)
	for i := range entries {
		code, err := r.ReadU32()
		if err != nil {
			return Structure{}, err
		}
		t := EntryType(code)
		entries[i] = StructureEntry{Name: fmt.Sprintf("%s %d", typeName(t), i), Type: t}
	}
	return NewStructure(entries), nil
}

// resolveTableStructure applies spec §4.5's schema priority rules: EXPA32
// prefers the overlay outright (or is empty); EXPA64 prefers the overlay
// only when it agrees with the embedded schema's column count and types.
func resolveTableStructure(variant Variant, resolver *Resolver, path, name string, embedded Structure) Structure {
	var overlay Structure
	if resolver != nil {
		if s, err := resolver.Resolve(path, name); err == nil {
			overlay = s
		}
	}

	if !variant.hasEmbeddedSchema {
		return overlay
	}
	if overlay.Len() == 0 {
		return embedded
	}
	if !embedded.sameLayout(overlay) {
		return embedded
	}
	return overlay
}
