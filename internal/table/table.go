/*
 * Copyright 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package table holds the in-memory tabular model shared by every pipeline
// stage and the generic row/column operations built on it.
//
// A cell is nil, a string or a float64. Every operation returns a new Table
// and leaves its input untouched.
package table

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Table is an ordered set of named columns over ordered rows.
type Table struct {
	columns []string
	rows    [][]any
}

// New builds a table from column names and rows. Rows shorter than the header
// are padded with nil; longer rows are truncated. Values are normalised with
// Normalize.
func New(columns []string, rows [][]any) *Table {
	t := &Table{columns: append([]string(nil), columns...)}
	t.rows = make([][]any, 0, len(rows))
	for _, r := range rows {
		row := make([]any, len(columns))
		for i := 0; i < len(columns) && i < len(r); i++ {
			row[i] = Normalize(r[i])
		}
		t.rows = append(t.rows, row)
	}
	return t
}

// Empty returns a table with the given columns and no rows.
func Empty(columns ...string) *Table {
	return New(columns, nil)
}

// Columns returns a copy of the column names.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.columns) }

// ColumnIndex returns the position of an exactly named column or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the table has an exactly named column.
func (t *Table) HasColumn(name string) bool { return t.ColumnIndex(name) >= 0 }

// FindFold returns the first column equal to name ignoring case.
func (t *Table) FindFold(name string) (string, bool) {
	for _, c := range t.columns {
		if strings.EqualFold(c, name) {
			return c, true
		}
	}
	return "", false
}

// Row returns a copy of row i.
func (t *Table) Row(i int) []any {
	return append([]any(nil), t.rows[i]...)
}

// Record returns row i as a column-name keyed map.
func (t *Table) Record(i int) map[string]any {
	m := make(map[string]any, len(t.columns))
	for j, c := range t.columns {
		m[c] = t.rows[i][j]
	}
	return m
}

// At returns the cell at row i, column index j.
func (t *Table) At(i, j int) any { return t.rows[i][j] }

// Value returns the cell at row i of the named column. Unknown columns yield nil.
func (t *Table) Value(i int, col string) any {
	j := t.ColumnIndex(col)
	if j < 0 {
		return nil
	}
	return t.rows[i][j]
}

// Column returns a copy of every value in the named column.
func (t *Table) Column(name string) ([]any, error) {
	j := t.ColumnIndex(name)
	if j < 0 {
		return nil, &ColumnNotFoundError{Columns: []string{name}}
	}
	out := make([]any, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[j]
	}
	return out, nil
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	c := &Table{columns: t.Columns(), rows: make([][]any, len(t.rows))}
	for i, r := range t.rows {
		c.rows[i] = append([]any(nil), r...)
	}
	return c
}

// Builder mutates a private copy of a table. Operations use it to assemble
// their result before handing it back as an immutable Table.
type Builder struct {
	t *Table
}

// NewBuilder starts from a deep copy of t. A nil t starts from an empty table.
func NewBuilder(t *Table) *Builder {
	if t == nil {
		return &Builder{t: &Table{}}
	}
	return &Builder{t: t.Clone()}
}

// Len returns the current row count.
func (b *Builder) Len() int { return len(b.t.rows) }

// Set stores a value at row i of the named column.
func (b *Builder) Set(i int, col string, v any) error {
	j := b.t.ColumnIndex(col)
	if j < 0 {
		return &ColumnNotFoundError{Columns: []string{col}}
	}
	b.t.rows[i][j] = Normalize(v)
	return nil
}

// Get reads a value at row i of the named column.
func (b *Builder) Get(i int, col string) any { return b.t.Value(i, col) }

// AddColumn appends a column filled with v.
func (b *Builder) AddColumn(name string, v any) error {
	if b.t.HasColumn(name) {
		return &ColumnAlreadyExistsError{Column: name}
	}
	b.t.columns = append(b.t.columns, name)
	v = Normalize(v)
	for i := range b.t.rows {
		b.t.rows[i] = append(b.t.rows[i], v)
	}
	return nil
}

// SetColumn replaces or appends a column with the given values.
func (b *Builder) SetColumn(name string, values []any) error {
	if len(values) != len(b.t.rows) {
		return &InvalidConfigurationError{Msg: fmt.Sprintf("column %q has %d values for %d rows", name, len(values), len(b.t.rows))}
	}
	j := b.t.ColumnIndex(name)
	if j < 0 {
		b.t.columns = append(b.t.columns, name)
		for i := range b.t.rows {
			b.t.rows[i] = append(b.t.rows[i], Normalize(values[i]))
		}
		return nil
	}
	for i := range b.t.rows {
		b.t.rows[i][j] = Normalize(values[i])
	}
	return nil
}

// DropColumns removes the named columns; unknown names are ignored.
func (b *Builder) DropColumns(names ...string) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	keep := make([]int, 0, len(b.t.columns))
	for j, c := range b.t.columns {
		if !drop[c] {
			keep = append(keep, j)
		}
	}
	b.t = b.t.project(keep)
}

// RenameColumnAt renames the column at index j.
func (b *Builder) RenameColumnAt(j int, name string) {
	b.t.columns[j] = name
}

// AppendRow adds a row given in column order.
func (b *Builder) AppendRow(values ...any) {
	row := make([]any, len(b.t.columns))
	for j := 0; j < len(row) && j < len(values); j++ {
		row[j] = Normalize(values[j])
	}
	b.t.rows = append(b.t.rows, row)
}

// AppendRecord adds a row from a column-name keyed map. Unknown keys are ignored.
func (b *Builder) AppendRecord(rec map[string]any) {
	row := make([]any, len(b.t.columns))
	for j, c := range b.t.columns {
		row[j] = Normalize(rec[c])
	}
	b.t.rows = append(b.t.rows, row)
}

// KeepRows retains rows whose index is in keep, in the order given.
func (b *Builder) KeepRows(keep []int) {
	rows := make([][]any, 0, len(keep))
	for _, i := range keep {
		rows = append(rows, b.t.rows[i])
	}
	b.t.rows = rows
}

// Table returns the assembled table. The builder must not be used afterwards.
func (b *Builder) Table() *Table {
	t := b.t
	b.t = nil
	return t
}

func (t *Table) project(idx []int) *Table {
	out := &Table{columns: make([]string, len(idx)), rows: make([][]any, len(t.rows))}
	for k, j := range idx {
		out.columns[k] = t.columns[j]
	}
	for i, r := range t.rows {
		row := make([]any, len(idx))
		for k, j := range idx {
			row[k] = r[j]
		}
		out.rows[i] = row
	}
	return out
}

// Select returns a table with only the given rows, in the given order.
func (t *Table) Select(rows []int) *Table {
	b := NewBuilder(t)
	b.KeepRows(rows)
	return b.Table()
}

// Concat appends the rows of other, matched by column name, to a copy of t.
// Columns only present in other are ignored.
func (t *Table) Concat(other *Table) *Table {
	b := NewBuilder(t)
	for i := 0; i < other.Len(); i++ {
		b.AppendRecord(other.Record(i))
	}
	return b.Table()
}

// String renders the table for debugging.
func (t *Table) String() string {
	var sb strings.Builder
	sb.WriteString(strings.Join(t.columns, " | "))
	for _, r := range t.rows {
		sb.WriteString("\n")
		parts := make([]string, len(r))
		for j, v := range r {
			parts[j] = Text(v)
		}
		sb.WriteString(strings.Join(parts, " | "))
	}
	return sb.String()
}

type tableJSON struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// MarshalJSON encodes the table as its column names and row arrays.
func (t *Table) MarshalJSON() ([]byte, error) {
	rows := t.rows
	if rows == nil {
		rows = [][]any{}
	}
	return json.Marshal(tableJSON{Columns: t.columns, Rows: rows})
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (t *Table) UnmarshalJSON(data []byte) error {
	var v tableJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*t = *New(v.Columns, v.Rows)
	return nil
}
