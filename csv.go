// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package dscsfmt

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ExportCSV renders file as one CSV per table under targetDir, named
// "<NNN>_<tableName>.csv" with a zero-padded table index (spec §4.6). The
// header row is "<columnName> <typeName>"; this is the format ImportCSV
// expects back. ImportCSV takes the type from after the last space, so an
// "int array" column's header reads back as EMPTY unless a matching overlay
// supplies its type.
func ExportCSV(file *TableFile, targetDir string) error {
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return &kindError{IOError, fmt.Errorf("create %s: %w", targetDir, err)}
	}

	for i, t := range file.Tables {
		name := fmt.Sprintf("%03d_%s.csv", i, t.Name)
		if err := writeTableCSV(filepath.Join(targetDir, name), t); err != nil {
			return fmt.Errorf("table %q: %w", t.Name, err)
		}
	}
	return nil
}

// writeTableCSV renders t as CSV by hand rather than through encoding/csv's
// Writer: getCSVString (EXPA.cpp:167-169) quotes every STRING cell
// unconditionally, which csv.Writer's default "quote only if the field needs
// it" heuristic can't express without double-escaping a pre-quoted field.
func writeTableCSV(path string, t Table) error {
	f, err := os.Create(path)
	if err != nil {
		return &kindError{IOError, fmt.Errorf("create %s: %w", path, err)}
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	entries := t.Structure.Entries()

	header := make([]string, len(entries))
	for i, e := range entries {
		header[i] = fmt.Sprintf("%s %s", e.Name, typeName(e.Type))
	}
	if err := writeCSVRecord(bw, header, nil); err != nil {
		return &kindError{IOError, err}
	}

	for _, row := range t.Rows {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = renderCell(v)
		}
		if err := writeCSVRecord(bw, record, entries); err != nil {
			return &kindError{IOError, err}
		}
	}
	return bw.Flush()
}

// writeCSVRecord writes one CSV line, forcing quotes (RFC-4180 style, `"` as
// both quote and escape character) on every STRING-typed cell regardless of
// content, matching getCSVString's unconditional std::quoted (EXPA.cpp:167-
// 169). Other cells are quoted only when their content requires it. entries
// is nil for the header row, where no column is force-quoted.
func writeCSVRecord(w *bufio.Writer, fields []string, entries []StructureEntry) error {
	for i, field := range fields {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		forceQuote := entries != nil && isStringType(entries[i].Type)
		if _, err := w.WriteString(encodeCSVField(field, forceQuote)); err != nil {
			return err
		}
	}
	return w.WriteByte('\n')
}

// encodeCSVField quotes s when forceQuote is set or when its content
// requires it (a comma, quote, or newline, per RFC 4180), doubling any
// embedded `"`.
func encodeCSVField(s string, forceQuote bool) string {
	if !forceQuote && !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return "\"" + strings.ReplaceAll(s, "\"", "\"\"") + "\""
}

func isStringType(t EntryType) bool {
	switch t {
	case STRING, STRING2, STRING3:
		return true
	default:
		return false
	}
}

// renderCell renders a cell per spec §4.6: scalars in default decimal form,
// bools as true/false, strings as themselves (writeCSVRecord force-quotes
// STRING columns), int arrays as space-separated decimals, absent cells as
// "".
func renderCell(v EntryValue) string {
	if v.IsAbsent() {
		return ""
	}
	if b, ok := v.Bool(); ok {
		if b {
			return "true"
		}
		return "false"
	}
	if i, ok := v.Int8(); ok {
		return strconv.Itoa(int(i))
	}
	if i, ok := v.Int16(); ok {
		return strconv.Itoa(int(i))
	}
	if i, ok := v.Int32(); ok {
		return strconv.Itoa(int(i))
	}
	if f, ok := v.Float32(); ok {
		return strconv.FormatFloat(float64(f), 'g', -1, 32)
	}
	if s, ok := v.String(); ok {
		return s
	}
	if arr, ok := v.IntArray(); ok {
		parts := make([]string, len(arr))
		for i, n := range arr {
			parts[i] = strconv.Itoa(int(n))
		}
		return strings.Join(parts, " ")
	}
	return ""
}

// ImportCSV parses every regular file in sourceDir (lexicographic order) as
// one table. The table name is the filename stem with its 4-character
// "NNN_" prefix stripped. A schema overlay from resolver, if present and
// matching the header's column count, takes priority over the header-derived
// structure (spec §4.5 "Schema priority (CSV import)"); a nil resolver, or
// a mismatched overlay, falls back to the header.
func ImportCSV(sourceDir string, resolver *Resolver) (*TableFile, error) {
	dirEntries, err := os.ReadDir(sourceDir)
	if err != nil {
		return nil, &kindError{IOError, fmt.Errorf("read %s: %w", sourceDir, err)}
	}

	names := make([]string, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.Type().IsRegular() {
			names = append(names, de.Name())
		}
	}
	sort.Strings(names)

	tables := make([]Table, 0, len(names))
	for _, name := range names {
		path := filepath.Join(sourceDir, name)
		table, err := readTableCSV(path, stemTableName(name), resolver)
		if err != nil {
			return nil, fmt.Errorf("file %q: %w", name, err)
		}
		tables = append(tables, *table)
	}
	return &TableFile{Tables: tables}, nil
}

// stemTableName strips the extension and a leading "NNN_" index prefix from
// a CSV filename.
func stemTableName(filename string) string {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	if len(stem) > 4 && stem[3] == '_' {
		if _, err := strconv.Atoi(stem[:3]); err == nil {
			return stem[4:]
		}
	}
	return stem
}

func readTableCSV(path, tableName string, resolver *Resolver) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &kindError{IOError, fmt.Errorf("open %s: %w", path, err)}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, &kindError{FormatError, fmt.Errorf("parse %s: %w", path, err)}
	}
	if len(records) == 0 {
		return nil, &kindError{FormatError, fmt.Errorf("%s: missing header row", path)}
	}

	header := records[0]
	headerStruct := structureFromHeader(header)

	structure := headerStruct
	if resolver != nil {
		if overlay, err := resolver.Resolve(path, tableName); err == nil && overlay.Len() == headerStruct.Len() && overlay.Len() > 0 {
			structure = overlay
		}
	}

	entries := structure.Entries()
	rows := make([][]EntryValue, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) != len(entries) {
			return nil, &kindError{ValueError, fmt.Errorf("%s: row %d has %d fields, structure has %d columns", path, i, len(record), len(entries))}
		}
		row := make([]EntryValue, len(entries))
		for j, field := range record {
			v, err := parseCell(entries[j].Type, field)
			if err != nil {
				return nil, fmt.Errorf("%s: row %d column %q: %w", path, i, entries[j].Name, err)
			}
			row[j] = v
		}
		rows = append(rows, row)
	}

	return &Table{Name: tableName, Structure: structure, Rows: rows}, nil
}

// structureFromHeader builds a Structure from a CSV header row, where each
// cell is "<name> <type>" and the type is the substring after the last
// space (spec §4.5).
func structureFromHeader(header []string) Structure {
	entries := make([]StructureEntry, len(header))
	for i, cell := range header {
		idx := strings.LastIndex(cell, " ")
		if idx < 0 {
			entries[i] = StructureEntry{Name: cell, Type: EMPTY}
			continue
		}
		entries[i] = StructureEntry{Name: cell[:idx], Type: parseTypeName(cell[idx+1:])}
	}
	return NewStructure(entries)
}

// parseCell coerces a CSV field to an EntryValue per col's type. bool
// accepts "true" as true and anything else as false (spec §4.6).
func parseCell(col EntryType, field string) (EntryValue, error) {
	switch col {
	case EMPTY, UNK0, UNK1:
		return Absent(), nil
	case BOOL:
		return BoolValue(field == "true"), nil
	case INT8:
		n, err := strconv.ParseInt(field, 10, 8)
		if err != nil {
			return EntryValue{}, &kindError{ValueError, err}
		}
		return Int8Value(int8(n)), nil
	case INT16:
		n, err := strconv.ParseInt(field, 10, 16)
		if err != nil {
			return EntryValue{}, &kindError{ValueError, err}
		}
		return Int16Value(int16(n)), nil
	case INT32:
		n, err := strconv.ParseInt(field, 10, 32)
		if err != nil {
			return EntryValue{}, &kindError{ValueError, err}
		}
		return Int32Value(int32(n)), nil
	case FLOAT:
		f, err := strconv.ParseFloat(field, 32)
		if err != nil {
			return EntryValue{}, &kindError{ValueError, err}
		}
		return FloatValue(float32(f)), nil
	case STRING, STRING2, STRING3:
		return StringValue(field), nil
	case INT_ARRAY:
		if field == "" {
			return IntArrayValue(nil), nil
		}
		parts := strings.Fields(field)
		ints := make([]int32, len(parts))
		for i, p := range parts {
			n, err := strconv.ParseInt(p, 10, 32)
			if err != nil {
				return EntryValue{}, &kindError{ValueError, err}
			}
			ints[i] = int32(n)
		}
		return IntArrayValue(ints), nil
	default:
		return Absent(), nil
	}
}
