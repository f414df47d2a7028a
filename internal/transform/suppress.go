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

// Package transform holds the row reshaping operators used by the
// reconciliation pipeline and the projectors.
package transform

import (
	"github.com/spraygospel/BoQ-Excel-Converter/internal/table"
)

// Suppressor blanks values that repeat the previous row inside a group, the
// way a spreadsheet shows vertically merged cells.
type Suppressor struct {
	Columns []string
	// GroupBy defaults to Columns.
	GroupBy []string
	// Replacement is written over suppressed cells. Nil means "".
	Replacement any
	// Sort stable-sorts by GroupBy before suppressing.
	Sort bool
}

// NewSuppressor returns a sorting suppressor grouped by its own columns.
func NewSuppressor(columns ...string) *Suppressor {
	return &Suppressor{Columns: columns, Sort: true}
}

// Transform returns a copy of t with repeated values suppressed. The first
// row of every run is kept.
func (s *Suppressor) Transform(t *table.Table) (*table.Table, error) {
	groupBy := s.GroupBy
	if len(groupBy) == 0 {
		groupBy = s.Columns
	}
	if err := t.RequireColumns("suppress columns", s.Columns...); err != nil {
		return nil, err
	}
	if err := t.RequireColumns("suppress group", groupBy...); err != nil {
		return nil, err
	}
	if t.Len() <= 1 {
		return t.Clone(), nil
	}

	src := t
	if s.Sort {
		sorted, err := table.Sort(t, table.SortOptions{Columns: groupBy})
		if err != nil {
			return nil, err
		}
		src = sorted
	}

	replacement := s.Replacement
	if replacement == nil {
		replacement = ""
	}
	numeric := make(map[string]bool, len(s.Columns))
	if replacement == "" {
		for _, c := range s.Columns {
			numeric[c] = src.IsNumericColumn(c)
		}
	}

	b := table.NewBuilder(src)
	for i := 1; i < src.Len(); i++ {
		if !sameValues(src, i, i-1, groupBy) {
			continue
		}
		for _, c := range s.Columns {
			cur, prev := src.Value(i, c), src.Value(i-1, c)
			if cur == nil || prev == nil || !table.Equal(cur, prev) {
				continue
			}
			v := replacement
			if numeric[c] {
				v = nil
			}
			if err := b.Set(i, c, v); err != nil {
				return nil, err
			}
		}
	}
	return b.Table(), nil
}

// sameValues compares two rows over cols with null-aware equality.
func sameValues(t *table.Table, a, b int, cols []string) bool {
	for _, c := range cols {
		if !table.Equal(t.Value(a, c), t.Value(b, c)) {
			return false
		}
	}
	return true
}
