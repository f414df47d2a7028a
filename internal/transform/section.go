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
package transform

import (
	"github.com/spraygospel/BoQ-Excel-Converter/internal/table"
)

// SectionEmptyRatio is the minimum share of empty cells in a section header row.
const SectionEmptyRatio = 0.7

// SectionExtractor labels rows with the nearest section header above them.
type SectionExtractor struct {
	Indicator     string
	Target        string
	RemoveHeaders bool
}

// Extract stamps Target on every row with the current section. A header row
// has a non-empty Indicator cell, empty cells directly left and right of it
// and at least SectionEmptyRatio of its cells empty. Target is added (or
// cleared) before rows are inspected, so it counts as an empty cell.
func (s SectionExtractor) Extract(t *table.Table) (*table.Table, error) {
	if err := t.RequireColumns("section indicator", s.Indicator); err != nil {
		return nil, err
	}

	b := table.NewBuilder(t)
	if err := b.SetColumn(s.Target, make([]any, t.Len())); err != nil {
		return nil, err
	}
	work := b.Table()

	ind := work.ColumnIndex(s.Indicator)
	width := work.Width()
	out := table.NewBuilder(work)
	var current any
	keep := make([]int, 0, work.Len())
	for i := 0; i < work.Len(); i++ {
		header := isSectionHeader(work, i, ind, width)
		if header {
			current = work.At(i, ind)
		}
		if err := out.Set(i, s.Target, current); err != nil {
			return nil, err
		}
		if !header || !s.RemoveHeaders {
			keep = append(keep, i)
		}
	}
	out.KeepRows(keep)
	return out.Table(), nil
}

func isSectionHeader(t *table.Table, i, ind, width int) bool {
	if table.IsEmpty(t.At(i, ind)) {
		return false
	}
	if ind > 0 && !table.IsEmpty(t.At(i, ind-1)) {
		return false
	}
	if ind < width-1 && !table.IsEmpty(t.At(i, ind+1)) {
		return false
	}
	empty := 0
	for j := 0; j < width; j++ {
		if table.IsEmpty(t.At(i, j)) {
			empty++
		}
	}
	return float64(empty) >= float64(width)*SectionEmptyRatio
}
