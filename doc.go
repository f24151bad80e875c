// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

/*
Package dscsfmt provides pure Go support for reading a game's EXPA/CHNK table
files and MDB1 bundle archives.

EXPA is a container format for named, schema-bearing tables of fixed-layout
rows. Variable-length payloads (strings, int arrays) live out-of-line in an
auxiliary CHNK section and are patched back into the row area when the file
is loaded. MDB1 is a read-only indexed archive format: entries are located
through a small binary tree and their payloads are compressed per-entry with
one of two backends depending on the archive variant.

# Features

  - Pure Go implementation for both formats
  - Read and write EXPA/CHNK table files (EXPA32 and EXPA64 variants)
  - Read and extract MDB1 archives (DSCS/Doboz and HLTLDA/LZ4 variants)
  - A schema resolver that merges an embedded, a JSON-overlay, and a
    CSV-header schema source under a documented priority
  - A CSV bridge for inspecting and editing table contents as text

# Basic usage

Reading an EXPA table file:

	file, err := dscsfmt.ReadEXPA(dscsfmt.EXPA64, "battle_formation.mbe", nil)
	if err != nil {
		log.Fatal(err)
	}
	for _, table := range file.Tables {
		fmt.Println(table.Name, len(table.Rows))
	}

Writing one back out:

	err = dscsfmt.WriteEXPA(dscsfmt.EXPA64, file, "battle_formation.mbe")

Extracting an MDB1 archive:

	archive, err := dscsfmt.OpenArchive(dscsfmt.DSCS, "DSDBP.decrypt.bin")
	if err != nil {
		log.Fatal(err)
	}
	defer archive.Close()

	err = archive.Extract("output/", log.Default())

# Schema resolution

EXPA32 files carry no embedded schema and rely entirely on a JSON overlay
under a `structures/` root (see [Resolver]). EXPA64 files carry an embedded
column-type sequence and prefer a matching overlay only when its column
count and types agree element-wise; otherwise the embedded schema is used.

# Limitations

This package focuses on the subset of functionality needed to inspect and
rebuild these archives:

  - No MDB1 archive writing (the format is treated as read-only)
  - No streaming EXPA decode (CHNK patch-up requires whole-file residency)
  - Doboz and LZ4 are treated as opaque decompression backends
*/
package dscsfmt
