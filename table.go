// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package dscsfmt

import "fmt"

// Table is a named, schema-bearing sequence of rows. Every row's length
// must equal structure.Len(), and each cell's tag must be compatible with
// its column's type (spec §3).
type Table struct {
	Name      string
	Structure Structure
	Rows      [][]EntryValue
}

// validate checks that every row has Structure.Len() cells, without
// mutating the table. Cell tags are not checked here; writeRow checks them
// column by column.
func (t *Table) validate() error {
	n := t.Structure.Len()
	for i, row := range t.Rows {
		if len(row) != n {
			return &kindError{ValueError, fmt.Errorf("table %q row %d has %d cells, structure has %d columns", t.Name, i, len(row), n)}
		}
	}
	return nil
}

// TableFile is an ordered sequence of Tables. Order is significant and
// round-trips through ReadEXPA/WriteEXPA. Duplicate table names are
// permitted.
type TableFile struct {
	Tables []Table
}
