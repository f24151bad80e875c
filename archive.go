// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package dscsfmt

import (
	"encoding/binary"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// mdb1Magic is the 4-byte "MDB1" signature common to both archive variants.
const mdb1Magic = 0x3142444D // "MDB1"

const maxDataID = 0xFFFFFFFF // a tree entry's dataId sentinel for "structural node"

// ArchiveVariant parametrizes MDB1 over its two concrete shapes: DSCS
// (32-bit widths, Doboz) and HLTLDA (64-bit widths, LZ4). Field widths and
// the compressor are the only things that differ between them (spec §4.7).
type ArchiveVariant struct {
	name          string
	headerSize    int
	treeEntrySize int
	nameEntrySize int
	dataEntrySize int
	decompressor  Decompressor
}

// DSCS is the original archive variant: Doboz-compressed, 32-bit fields.
var DSCS = ArchiveVariant{
	name:          "DSCS",
	headerSize:    0x14,
	treeEntrySize: 0x08,
	nameEntrySize: 0x40,
	dataEntrySize: 0x0C,
	decompressor:  dobozDecompressor{},
}

// HLTLDA is the 64-bit archive variant: LZ4-compressed.
var HLTLDA = ArchiveVariant{
	name:          "HLTLDA",
	headerSize:    0x20,
	treeEntrySize: 0x10,
	nameEntrySize: 0x80,
	dataEntrySize: 0x18,
	decompressor:  lz4Decompressor{},
}

func (v ArchiveVariant) String() string { return v.name }

// archiveFileEntry is one leaf of the parsed tree/name/data triplet: a
// resolved path plus the slice of the archive's data section it decompresses
// from.
type archiveFileEntry struct {
	path             string
	dataOffset       uint64
	compressedSize   uint64
	fullSize         uint64
}

// Archive is an opened, fully-indexed MDB1 bundle. Entries are read lazily
// by Extract; opening only parses the tree, name, and data index sections.
type Archive struct {
	file    *os.File
	variant ArchiveVariant
	entries []archiveFileEntry
}

// OpenArchive opens and indexes the MDB1 archive at path under variant. The
// returned Archive holds the file open until Close; call Extract to
// decompress its contents.
func OpenArchive(variant ArchiveVariant, path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &kindError{IOError, fmt.Errorf("open %s: %w", path, err)}
	}

	header, err := os.ReadFile(path)
	if err != nil {
		f.Close()
		return nil, &kindError{IOError, fmt.Errorf("read %s: %w", path, err)}
	}

	entries, err := parseMDB1(variant, header)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &Archive{file: f, variant: variant, entries: entries}, nil
}

// Close releases the archive's file handle.
func (a *Archive) Close() error {
	return a.file.Close()
}

// Len returns the number of extractable entries the archive indexed.
func (a *Archive) Len() int { return len(a.entries) }

// Paths returns every entry's resolved path, in tree-entry index order.
func (a *Archive) Paths() []string {
	paths := make([]string, len(a.entries))
	for i, e := range a.entries {
		paths[i] = e.path
	}
	return paths
}

// Extract decompresses every entry into targetDir, recreating its path's
// directory structure. A per-entry read or decompression failure is logged
// to logger and skipped; it does not abort the remaining entries (spec
// §4.7). A nil logger discards these messages.
func (a *Archive) Extract(targetDir string, logger *log.Logger) error {
	if logger == nil {
		logger = log.New(discardWriter{}, "", 0)
	}

	for _, e := range a.entries {
		if err := a.extractOne(targetDir, e); err != nil {
			logger.Printf("skipping %s: %v", e.path, err)
		}
	}
	return nil
}

func (a *Archive) extractOne(targetDir string, e archiveFileEntry) error {
	compressed := make([]byte, e.compressedSize)
	if _, err := a.file.ReadAt(compressed, int64(e.dataOffset)); err != nil {
		return fmt.Errorf("read: %w", err)
	}

	data, err := a.variant.decompressor.Decompress(compressed, int(e.fullSize))
	if err != nil {
		return fmt.Errorf("decompress: %w", err)
	}

	outPath := filepath.Join(targetDir, filepath.FromSlash(e.path))
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// parseMDB1 reads the header, tree, name, and data sections and resolves
// every non-structural tree node to a path and data range.
func parseMDB1(variant ArchiveVariant, buf []byte) ([]archiveFileEntry, error) {
	r := newCursorReader(buf)

	magic, err := r.ReadU32()
	if err != nil {
		return nil, &kindError{FormatError, err}
	}
	if magic != mdb1Magic {
		return nil, &kindError{FormatError, fmt.Errorf("lacks MDB1 header")}
	}

	var fileEntryCount, fileNameCount, dataEntryCount uint32
	var dataStart, totalSize uint64

	if variant.treeEntrySize == DSCS.treeEntrySize {
		var c1, c2 uint16
		var dc, ds, ts uint32
		c1, err = r.readU16()
		if err == nil {
			c2, err = r.readU16()
		}
		if err == nil {
			dc, err = r.ReadU32()
		}
		if err == nil {
			ds, err = r.ReadU32()
		}
		if err == nil {
			ts, err = r.ReadU32()
		}
		if err != nil {
			return nil, &kindError{FormatError, err}
		}
		fileEntryCount, fileNameCount, dataEntryCount = uint32(c1), uint32(c2), dc
		dataStart, totalSize = uint64(ds), uint64(ts)
	} else {
		var ds, ts uint64
		fileEntryCount, err = r.ReadU32()
		if err == nil {
			fileNameCount, err = r.ReadU32()
		}
		if err == nil {
			dataEntryCount, err = r.ReadU32()
		}
		if err == nil {
			ds, err = r.readU64()
		}
		if err == nil {
			ts, err = r.readU64()
		}
		if err != nil {
			return nil, &kindError{FormatError, err}
		}
		dataStart, totalSize = ds, ts
		_ = totalSize
	}

	if fileEntryCount != fileNameCount {
		return nil, &kindError{FormatError, fmt.Errorf("fileEntryCount %d != fileNameCount %d", fileEntryCount, fileNameCount)}
	}

	if err := r.Seek(uint32(variant.headerSize)); err != nil {
		return nil, &kindError{FormatError, err}
	}

	dataIDs := make([]uint32, fileEntryCount)
	for i := range dataIDs {
		id, err := readTreeDataID(r, variant)
		if err != nil {
			return nil, &kindError{FormatError, fmt.Errorf("tree entry %d: %w", i, err)}
		}
		dataIDs[i] = id
	}

	names := make([]string, fileNameCount)
	for i := range names {
		name, err := readNameEntry(r, variant)
		if err != nil {
			return nil, &kindError{FormatError, fmt.Errorf("name entry %d: %w", i, err)}
		}
		names[i] = name
	}

	type dataRange struct {
		offset, compressedSize, fullSize uint64
	}
	dataRanges := make([]dataRange, dataEntryCount)
	for i := range dataRanges {
		off, comp, full, err := readDataEntry(r, variant)
		if err != nil {
			return nil, &kindError{FormatError, fmt.Errorf("data entry %d: %w", i, err)}
		}
		dataRanges[i] = dataRange{off, comp, full}
	}

	entries := make([]archiveFileEntry, 0, fileEntryCount)
	for i, dataID := range dataIDs {
		if dataID == maxDataID {
			continue // structural tree node, no payload
		}
		if int(dataID) >= len(dataRanges) {
			return nil, &kindError{FormatError, fmt.Errorf("entry %d: dataId %d out of range", i, dataID)}
		}
		dr := dataRanges[dataID]
		entries = append(entries, archiveFileEntry{
			path:           normalizeArchivePath(names[i]),
			dataOffset:     dataStart + dr.offset,
			compressedSize: dr.compressedSize,
			fullSize:       dr.fullSize,
		})
	}
	return entries, nil
}

// readTreeDataID reads a tree entry ({compareBit, dataId, left, right}) and
// returns its dataId field, the only field Extract needs; the remaining
// fields describe the tree's branching structure and aren't needed once the
// name/data arrays are resolved positionally.
func readTreeDataID(r *cursorReader, variant ArchiveVariant) (uint32, error) {
	start := r.Pos()
	var id uint32
	var err error
	if variant.treeEntrySize == DSCS.treeEntrySize {
		if _, err = r.readU16(); err != nil { // compareBit
			return 0, err
		}
		var lo uint16
		lo, err = r.readU16()
		id = uint32(lo)
		if lo == 0xFFFF {
			id = maxDataID
		}
	} else {
		if _, err = r.ReadU32(); err != nil { // compareBit
			return 0, err
		}
		id, err = r.ReadU32()
	}
	if err != nil {
		return 0, err
	}
	return id, r.Seek(start + uint32(variant.treeEntrySize))
}

// readNameEntry reads a fixed-width {extension, name} record — extension
// stored first on disk — and assembles "<name>.<ext>", trimming each field
// at its first NUL or space (spec §4.7).
func readNameEntry(r *cursorReader, variant ArchiveVariant) (string, error) {
	start := r.Pos()
	extLen := 4
	stemLen := variant.nameEntrySize - extLen

	extRaw, err := r.ReadBytes(uint32(extLen))
	if err != nil {
		return "", err
	}
	ext := trimNameField(extRaw)

	raw, err := r.ReadBytes(uint32(stemLen))
	if err != nil {
		return "", err
	}
	stem := trimNameField(raw)

	if err := r.Seek(start + uint32(variant.nameEntrySize)); err != nil {
		return "", err
	}
	if ext == "" {
		return stem, nil
	}
	return stem + "." + ext, nil
}

// trimNameField trims b at the first NUL or space byte.
func trimNameField(b []byte) string {
	for i, c := range b {
		if c == 0 || c == ' ' {
			return string(b[:i])
		}
	}
	return string(b)
}

// readDataEntry reads a {offset, fullSize, compressedSize} record.
func readDataEntry(r *cursorReader, variant ArchiveVariant) (offset, compressedSize, fullSize uint64, err error) {
	start := r.Pos()
	if variant.dataEntrySize == DSCS.dataEntrySize {
		var o, f, c uint32
		o, err = r.ReadU32()
		if err == nil {
			f, err = r.ReadU32()
		}
		if err == nil {
			c, err = r.ReadU32()
		}
		offset, compressedSize, fullSize = uint64(o), uint64(c), uint64(f)
	} else {
		offset, err = r.readU64()
		if err == nil {
			fullSize, err = r.readU64()
		}
		if err == nil {
			compressedSize, err = r.readU64()
		}
	}
	if err != nil {
		return 0, 0, 0, err
	}
	return offset, compressedSize, fullSize, r.Seek(start + uint32(variant.dataEntrySize))
}

// normalizeArchivePath converts backslashes to forward slashes, matching
// the extraction-time path normalization the original tool performs.
func normalizeArchivePath(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func (r *cursorReader) readU16() (uint16, error) {
	b, err := r.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *cursorReader) readU64() (uint64, error) {
	b, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}
