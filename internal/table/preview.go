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

import "sort"

// Preview summarises a table for display.
type Preview struct {
	TotalRows    int                      `json:"total_rows"`
	TotalColumns int                      `json:"total_columns"`
	Columns      []string                 `json:"columns"`
	Rows         []map[string]any         `json:"preview_data"`
	Numeric      map[string]NumericStats  `json:"numeric,omitempty"`
	Categorical  map[string]CategoryStats `json:"categorical,omitempty"`
}

// NumericStats describes a column of numbers.
type NumericStats struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
}

// CategoryStats describes a non-numeric column.
type CategoryStats struct {
	UniqueCount    int          `json:"unique_count"`
	NullCount      int          `json:"null_count"`
	NullPercentage float64      `json:"null_percentage"`
	TopValues      []ValueCount `json:"top_values"`
	UniqueSamples  []string     `json:"unique_samples"`
}

// ValueCount is a value and how often it occurs.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

const previewTopN = 5

// BuildPreview returns the first maxRows rows and, when withStats is set,
// per-column statistics.
func BuildPreview(t *Table, maxRows int, withStats bool) Preview {
	p := Preview{TotalRows: t.Len(), TotalColumns: t.Width(), Columns: t.Columns()}
	if t.Len() == 0 {
		return p
	}
	n := maxRows
	if n <= 0 || n > t.Len() {
		n = t.Len()
	}
	for i := 0; i < n; i++ {
		p.Rows = append(p.Rows, t.Record(i))
	}
	if !withStats {
		return p
	}
	p.Numeric = map[string]NumericStats{}
	p.Categorical = map[string]CategoryStats{}
	for j, c := range t.columns {
		if t.isNumericColumn(j) {
			p.Numeric[c] = numericStats(t, j)
			continue
		}
		p.Categorical[c] = categoryStats(t, j)
	}
	return p
}

func numericStats(t *Table, j int) NumericStats {
	var s NumericStats
	sum := 0.0
	for _, r := range t.rows {
		f, ok := r[j].(float64)
		if !ok {
			continue
		}
		if s.Count == 0 || f < s.Min {
			s.Min = f
		}
		if s.Count == 0 || f > s.Max {
			s.Max = f
		}
		sum += f
		s.Count++
	}
	if s.Count > 0 {
		s.Mean = sum / float64(s.Count)
	}
	return s
}

func categoryStats(t *Table, j int) CategoryStats {
	var s CategoryStats
	counts := map[string]int{}
	var order []string
	for _, r := range t.rows {
		if r[j] == nil {
			s.NullCount++
			continue
		}
		v := Text(r[j])
		if _, ok := counts[v]; !ok {
			order = append(order, v)
		}
		counts[v]++
	}
	s.UniqueCount = len(order)
	s.NullPercentage = float64(s.NullCount) / float64(t.Len()) * 100
	for k := 0; k < len(order) && k < previewTopN; k++ {
		s.UniqueSamples = append(s.UniqueSamples, order[k])
	}
	top := make([]ValueCount, 0, len(order))
	for _, v := range order {
		top = append(top, ValueCount{Value: v, Count: counts[v]})
	}
	sort.SliceStable(top, func(a, b int) bool { return top[a].Count > top[b].Count })
	if len(top) > previewTopN {
		top = top[:previewTopN]
	}
	s.TopValues = top
	return s
}
