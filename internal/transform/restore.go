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
	"sort"
	"strings"

	"github.com/spraygospel/BoQ-Excel-Converter/internal/table"
)

// Restorer fills gaps with the last non-empty value seen before them. It is
// the inverse of Suppressor.
//
// With GroupBy set, rows are partitioned by their group key and each group
// carries its own last values; a gap with no earlier value in its group stays
// empty. A gap in a key column that is also being restored takes the key of
// the row above, so keys blanked by a Suppressor are recovered. Other empty
// keys form one null group.
// Without GroupBy the whole column is one stream in row order, and gaps
// before the first value take that first value.
type Restorer struct {
	Columns []string
	GroupBy []string
	// ConsiderEmptyAsNull treats whitespace-only strings as gaps. When false
	// only nil cells are filled.
	ConsiderEmptyAsNull bool
	// Sort orders rows by group key before filling. Ignored without GroupBy.
	Sort bool
}

// NewRestorer returns an ungrouped restorer that treats blank strings as gaps.
func NewRestorer(columns ...string) *Restorer {
	return &Restorer{Columns: columns, ConsiderEmptyAsNull: true}
}

// Transform returns a copy of t with gaps in Columns filled.
func (r *Restorer) Transform(t *table.Table) (*table.Table, error) {
	if err := t.RequireColumns("restore columns", r.Columns...); err != nil {
		return nil, err
	}
	if err := t.RequireColumns("restore group", r.GroupBy...); err != nil {
		return nil, err
	}
	if t.Len() == 0 {
		return t.Clone(), nil
	}
	if len(r.GroupBy) == 0 {
		return r.restoreStream(t)
	}
	return r.restoreGroups(t)
}

func (r *Restorer) isGap(v any) bool {
	if r.ConsiderEmptyAsNull {
		return table.IsEmpty(v)
	}
	return v == nil
}

func (r *Restorer) restoreStream(t *table.Table) (*table.Table, error) {
	b := table.NewBuilder(t)
	for _, c := range r.Columns {
		var last any
		for i := 0; i < t.Len(); i++ {
			v := t.Value(i, c)
			if !r.isGap(v) {
				if last == nil {
					for j := 0; j < i; j++ {
						if err := b.Set(j, c, v); err != nil {
							return nil, err
						}
					}
				}
				last = v
				continue
			}
			if last != nil {
				if err := b.Set(i, c, last); err != nil {
					return nil, err
				}
			}
		}
	}
	return b.Table(), nil
}

func (r *Restorer) restoreGroups(t *table.Table) (*table.Table, error) {
	keys := r.groupKeys(t)
	src := t
	if r.Sort {
		order := make([]int, t.Len())
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return compareKeys(keys[order[a]], keys[order[b]]) < 0
		})
		sortedKeys := make([][]any, len(order))
		for k, i := range order {
			sortedKeys[k] = keys[i]
		}
		src, keys = t.Select(order), sortedKeys
	}

	b := table.NewBuilder(src)
	last := map[string]map[string]any{}
	for i := 0; i < src.Len(); i++ {
		k := encodeKey(keys[i])
		seen, ok := last[k]
		if !ok {
			seen = map[string]any{}
			last[k] = seen
		}
		for _, c := range r.Columns {
			v := src.Value(i, c)
			if !r.isGap(v) {
				seen[c] = v
				continue
			}
			if prev, ok := seen[c]; ok {
				if err := b.Set(i, c, prev); err != nil {
					return nil, err
				}
			}
		}
	}
	return b.Table(), nil
}

// groupKeys returns the effective group key of every row. A gap in a key
// column that is restored inherits the value from the row above; any other
// gap is the nil key.
func (r *Restorer) groupKeys(t *table.Table) [][]any {
	restored := make(map[string]bool, len(r.Columns))
	for _, c := range r.Columns {
		restored[c] = true
	}
	keys := make([][]any, t.Len())
	carried := make([]any, len(r.GroupBy))
	for i := 0; i < t.Len(); i++ {
		key := make([]any, len(r.GroupBy))
		for k, c := range r.GroupBy {
			v := t.Value(i, c)
			if r.isGap(v) {
				v = nil
				if restored[c] {
					v = carried[k]
				}
			}
			carried[k] = v
			key[k] = v
		}
		keys[i] = key
	}
	return keys
}

func compareKeys(a, b []any) int {
	for k := range a {
		ea, eb := table.IsEmpty(a[k]), table.IsEmpty(b[k])
		switch {
		case ea && eb:
			continue
		case ea:
			return 1
		case eb:
			return -1
		}
		if c := table.Compare(a[k], b[k]); c != 0 {
			return c
		}
	}
	return 0
}

func encodeKey(key []any) string {
	parts := make([]string, len(key))
	for k, v := range key {
		switch x := v.(type) {
		case nil:
			parts[k] = "\x01"
		case float64:
			parts[k] = "n:" + table.Text(x)
		default:
			parts[k] = "s:" + table.Text(x)
		}
	}
	return strings.Join(parts, "\x00")
}
