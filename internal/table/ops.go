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
package table

import (
	"fmt"
	"math"
	"strings"
)

// DefaultSparseThreshold is the empty ratio at which TrimSparse drops a row or column.
const DefaultSparseThreshold = 0.9

// TrimOptions configures TrimSparse.
type TrimOptions struct {
	Rows      bool
	Cols      bool
	Threshold float64
}

// TrimSparse drops rows, then columns, whose fraction of empty cells is at
// least Threshold. Column sparsity is measured on the row-trimmed table.
func TrimSparse(t *Table, opts TrimOptions) (*Table, error) {
	if math.IsNaN(opts.Threshold) || opts.Threshold <= 0 {
		return nil, &InvalidConfigurationError{Msg: fmt.Sprintf("sparse threshold must be positive, got %v", opts.Threshold)}
	}
	out := t.Clone()
	if opts.Rows && out.Width() > 0 {
		keep := make([]int, 0, out.Len())
		for i, r := range out.rows {
			empty := 0
			for _, v := range r {
				if IsEmpty(v) {
					empty++
				}
			}
			if float64(empty)/float64(len(r)) < opts.Threshold {
				keep = append(keep, i)
			}
		}
		out = out.Select(keep)
	}
	if opts.Cols && out.Len() > 0 {
		keep := make([]int, 0, out.Width())
		for j := range out.columns {
			empty := 0
			for _, r := range out.rows {
				if IsEmpty(r[j]) {
					empty++
				}
			}
			if float64(empty)/float64(out.Len()) < opts.Threshold {
				keep = append(keep, j)
			}
		}
		out = out.project(keep)
	}
	return out, nil
}

// RequireNonEmpty keeps only rows where every listed column is non-empty.
func RequireNonEmpty(t *Table, cols ...string) (*Table, error) {
	if err := t.requireColumns("require non-empty", cols...); err != nil {
		return nil, err
	}
	idx := make([]int, len(cols))
	for k, c := range cols {
		idx[k] = t.ColumnIndex(c)
	}
	keep := make([]int, 0, t.Len())
	for i, r := range t.rows {
		ok := true
		for _, j := range idx {
			if IsEmpty(r[j]) {
				ok = false
				break
			}
		}
		if ok {
			keep = append(keep, i)
		}
	}
	return t.Select(keep), nil
}

// ReorderColumns places the named columns first. Remaining columns follow in
// their original order when includeRemaining is set, otherwise they are dropped.
func ReorderColumns(t *Table, order []string, includeRemaining bool) (*Table, error) {
	if err := t.requireColumns("reorder columns", order...); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(order))
	idx := make([]int, 0, t.Width())
	for _, c := range order {
		if seen[c] {
			continue
		}
		seen[c] = true
		idx = append(idx, t.ColumnIndex(c))
	}
	if includeRemaining {
		for j, c := range t.columns {
			if !seen[c] {
				idx = append(idx, j)
			}
		}
	}
	return t.project(idx), nil
}

// Field is a named constant column value.
type Field struct {
	Name  string
	Value any
}

// AddStaticFields appends constant columns in the given order.
func AddStaticFields(t *Table, fields ...Field) (*Table, error) {
	b := NewBuilder(t)
	for _, f := range fields {
		if err := b.AddColumn(f.Name, f.Value); err != nil {
			return nil, err
		}
	}
	return b.Table(), nil
}

// PrefixFormat makes every value in col start with prefix. Values are trimmed
// first. Null cells are kept when skipNull is set, otherwise they become prefix.
func PrefixFormat(t *Table, col, prefix string, skipNull bool) (*Table, error) {
	if err := t.requireColumns("prefix format", col); err != nil {
		return nil, err
	}
	j := t.ColumnIndex(col)
	out := t.Clone()
	for _, r := range out.rows {
		r[j] = WithPrefix(r[j], prefix, skipNull)
	}
	return out, nil
}

// WithPrefix applies the PrefixFormat rule to a single value.
func WithPrefix(v any, prefix string, skipNull bool) any {
	if v == nil {
		if skipNull {
			return nil
		}
		return prefix
	}
	s := strings.TrimSpace(Text(v))
	if strings.HasPrefix(s, prefix) {
		return s
	}
	return prefix + s
}

// RenameAfter renames the column immediately to the right of the first column
// matching anchor (case-insensitive). It reports whether a rename happened.
func RenameAfter(t *Table, anchor, name string) (*Table, bool) {
	for j, c := range t.columns {
		if strings.EqualFold(c, anchor) {
			if j+1 >= len(t.columns) {
				return t.Clone(), false
			}
			b := NewBuilder(t)
			b.RenameColumnAt(j+1, name)
			return b.Table(), true
		}
	}
	return t.Clone(), false
}

// DropEmptyRows removes rows where every cell is empty.
func DropEmptyRows(t *Table) *Table {
	keep := make([]int, 0, t.Len())
	for i, r := range t.rows {
		for _, v := range r {
			if !IsEmpty(v) {
				keep = append(keep, i)
				break
			}
		}
	}
	return t.Select(keep)
}

// MoveColumnToEnd moves the named column to the last position.
func MoveColumnToEnd(t *Table, col string) (*Table, error) {
	if err := t.requireColumns("move column", col); err != nil {
		return nil, err
	}
	idx := make([]int, 0, t.Width())
	last := t.ColumnIndex(col)
	for j := range t.columns {
		if j != last {
			idx = append(idx, j)
		}
	}
	return t.project(append(idx, last)), nil
}
