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
	"sort"
	"strings"
)

// Null placement for Sort.
const (
	NullsFirst = "first"
	NullsLast  = "last"
)

// SortOptions configures Sort.
type SortOptions struct {
	Columns []string
	// Ascending is either empty (all ascending), a single value applied to
	// every column, or one value per column.
	Ascending    []bool
	NullPosition string
	// CustomOrders ranks the values of a column by their position in the list.
	CustomOrders map[string][]any
}

// SortKey is one column passed to SortByKeys.
type SortKey struct {
	Column       string
	Descending   bool
	NullPosition string
	CustomOrder  []any
}

// Sort performs a stable multi-column sort. Empty cells are placed according
// to NullPosition. Custom orders only affect ranking; cell values are kept.
func Sort(t *Table, opts SortOptions) (*Table, error) {
	if err := validateSort(t, &opts); err != nil {
		return nil, err
	}

	idx := make([]int, len(opts.Columns))
	for k, c := range opts.Columns {
		idx[k] = t.ColumnIndex(c)
	}
	ranks := make(map[int]map[string]int, len(opts.CustomOrders))
	for col, order := range opts.CustomOrders {
		j := t.ColumnIndex(col)
		r := make(map[string]int, len(order))
		for pos, v := range order {
			key := rankKey(Normalize(v))
			if _, dup := r[key]; !dup {
				r[key] = pos
			}
		}
		ranks[j] = r
		for _, row := range t.rows {
			if IsEmpty(row[j]) {
				continue
			}
			if _, ok := r[rankKey(row[j])]; !ok {
				return nil, &InvalidCustomOrderError{Column: col, Value: row[j]}
			}
		}
	}

	nullsFirst := opts.NullPosition == NullsFirst
	order := make([]int, t.Len())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := t.rows[order[a]], t.rows[order[b]]
		for k, j := range idx {
			va, vb := ra[j], rb[j]
			ea, eb := IsEmpty(va), IsEmpty(vb)
			if ea || eb {
				if ea && eb {
					continue
				}
				return ea == nullsFirst
			}
			var c int
			if r, ok := ranks[j]; ok {
				c = compareInt(r[rankKey(va)], r[rankKey(vb)])
			} else {
				c = Compare(va, vb)
			}
			if c == 0 {
				continue
			}
			if !opts.Ascending[k] {
				c = -c
			}
			return c < 0
		}
		return false
	})
	return t.Select(order), nil
}

// SortByKeys sorts with per-column settings. The null position of the last key
// that sets one applies to the whole sort; the default is last.
func SortByKeys(t *Table, keys []SortKey) (*Table, error) {
	opts := SortOptions{NullPosition: NullsLast, CustomOrders: map[string][]any{}}
	for _, k := range keys {
		opts.Columns = append(opts.Columns, k.Column)
		opts.Ascending = append(opts.Ascending, !k.Descending)
		if k.CustomOrder != nil {
			opts.CustomOrders[k.Column] = k.CustomOrder
		}
		if k.NullPosition != "" {
			opts.NullPosition = k.NullPosition
		}
	}
	return Sort(t, opts)
}

func validateSort(t *Table, opts *SortOptions) error {
	if len(opts.Columns) == 0 {
		return &InvalidConfigurationError{Msg: "sort requires at least one column"}
	}
	switch len(opts.Ascending) {
	case 0:
		opts.Ascending = make([]bool, len(opts.Columns))
		for i := range opts.Ascending {
			opts.Ascending[i] = true
		}
	case 1:
		v := opts.Ascending[0]
		opts.Ascending = make([]bool, len(opts.Columns))
		for i := range opts.Ascending {
			opts.Ascending[i] = v
		}
	case len(opts.Columns):
	default:
		return &InvalidConfigurationError{Msg: fmt.Sprintf("sort has %d columns but %d directions", len(opts.Columns), len(opts.Ascending))}
	}
	if opts.NullPosition == "" {
		opts.NullPosition = NullsLast
	}
	if opts.NullPosition != NullsFirst && opts.NullPosition != NullsLast {
		return &InvalidConfigurationError{Msg: fmt.Sprintf("null position must be %q or %q, got %q", NullsFirst, NullsLast, opts.NullPosition)}
	}
	if err := t.requireColumns("sort", opts.Columns...); err != nil {
		return err
	}
	custom := make([]string, 0, len(opts.CustomOrders))
	for c := range opts.CustomOrders {
		custom = append(custom, c)
	}
	sort.Strings(custom)
	return t.requireColumns("sort custom order", custom...)
}

// Compare orders two non-empty cells: numbers before strings, numbers
// numerically, strings lexically.
func Compare(a, b any) int {
	af, aNum := a.(float64)
	bf, bNum := b.(float64)
	switch {
	case aNum && bNum:
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	case aNum:
		return -1
	case bNum:
		return 1
	}
	return strings.Compare(Text(a), Text(b))
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// rankKey distinguishes numbers from strings so 1 and "1" rank separately.
func rankKey(v any) string {
	if f, ok := v.(float64); ok {
		return "n:" + Text(f)
	}
	return "s:" + Text(v)
}
