// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package dscsfmt

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteEXPA encodes file under variant and writes it to path. The output is
// built in memory and then moved into place via a temp-file-and-rename, the
// same atomicity pattern the teacher's archive writer uses for its own
// single-file output (spec §7 calls this recommended, not mandatory, but
// there is no reason to do otherwise).
func WriteEXPA(variant Variant, file *TableFile, path string) error {
	for i := range file.Tables {
		if err := file.Tables[i].validate(); err != nil {
			return err
		}
	}

	w := &cursorWriter{}
	w.WriteU32(expaMagic)
	w.WriteU32(uint32(len(file.Tables)))

	var chnk []CHNKEntry

	for _, t := range file.Tables {
		w.Align(variant.alignStep)

		nameSize := ceilTo(uint32(len(t.Name)+1), 4)
		nameBuf := make([]byte, nameSize)
		copy(nameBuf, t.Name)
		w.WriteU32(nameSize)
		w.WriteBytes(nameBuf)

		if variant.hasEmbeddedSchema {
			w.WriteU32(uint32(t.Structure.Len()))
			for _, e := range t.Structure.Entries() {
				w.WriteU32(uint32(e.Type))
			}
		}

		size := rowSize(t.Structure)
		w.WriteU32(size)
		w.WriteU32(uint32(len(t.Rows)))
		w.Align(8)

		stride := ceilTo(size, 8)
		for i, row := range t.Rows {
			base := uint32(w.Len())
			data := make([]byte, stride)
			for j := range data {
				data[j] = padFill
			}
			entries, err := writeRow(t.Structure, base, data, row)
			if err != nil {
				return fmt.Errorf("table %q row %d: %w", t.Name, i, err)
			}
			chnk = append(chnk, entries...)
			w.WriteBytes(data)
		}
	}

	w.Align(variant.alignStep)
	w.WriteU32(chnkMagic)
	w.WriteU32(uint32(len(chnk)))
	for _, entry := range chnk {
		w.WriteU32(entry.Offset)
		w.WriteU32(uint32(len(entry.Value)))
		w.WriteBytes(entry.Value)
	}

	return writeFileAtomic(path, w.Bytes())
}

// writeFileAtomic writes data to a temp file in dir's directory and renames
// it over path, so a crash or interrupted write never leaves a truncated
// file at path. Mirrors the teacher's Close(), which does the same for its
// archive output.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".dscsfmt-*.tmp")
	if err != nil {
		return &kindError{IOError, fmt.Errorf("create temp file in %s: %w", dir, err)}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &kindError{IOError, fmt.Errorf("write %s: %w", tmpName, err)}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &kindError{IOError, fmt.Errorf("close %s: %w", tmpName, err)}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &kindError{IOError, fmt.Errorf("rename %s to %s: %w", tmpName, path, err)}
	}
	return nil
}
