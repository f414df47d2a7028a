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
	"fmt"

	"github.com/spraygospel/BoQ-Excel-Converter/internal/table"
)

// JoinType selects which unmatched rows survive a join.
type JoinType string

// Supported join types.
const (
	LeftJoin  JoinType = "left"
	RightJoin JoinType = "right"
	InnerJoin JoinType = "inner"
	OuterJoin JoinType = "outer"
)

// RightSuffix is appended to right-hand column names that collide with a
// left-hand column.
const RightSuffix = "_right"

// Joiner brings columns of a right table onto a left table by key.
type Joiner struct {
	LeftKey  string
	RightKey string
	// Type defaults to LeftJoin.
	Type JoinType
	// ColumnsToAdd limits the right columns brought across. Empty means all.
	ColumnsToAdd []string
	// Rename renames right columns before joining.
	Rename map[string]string
	// MatchCase compares keys exactly. Otherwise keys match on their trimmed
	// lower-cased text.
	MatchCase bool
}

// Join merges left and right. Rows multiply on multiple matches. Empty keys
// never match. The output keeps the left key column only; for right rows
// without a left partner the left key takes the right key value.
//
// Row order: left and inner joins follow the left table, right joins follow
// the right table, outer joins follow the left table and then append
// unmatched right rows in their order.
func (j Joiner) Join(left, right *table.Table) (*table.Table, error) {
	jt := j.Type
	if jt == "" {
		jt = LeftJoin
	}
	switch jt {
	case LeftJoin, RightJoin, InnerJoin, OuterJoin:
	default:
		return nil, &table.InvalidConfigurationError{Msg: fmt.Sprintf("unknown join type %q", jt)}
	}
	if err := left.RequireColumns("join left key", j.LeftKey); err != nil {
		return nil, err
	}
	if err := right.RequireColumns("join right key", j.RightKey); err != nil {
		return nil, err
	}
	if err := right.RequireColumns("join columns to add", j.ColumnsToAdd...); err != nil {
		return nil, err
	}

	// Right-hand columns to carry, by index, and their output names.
	var carry []int
	var names []string
	used := map[string]bool{}
	for _, c := range left.Columns() {
		used[c] = true
	}
	pick := func(idx int) {
		name := right.Columns()[idx]
		if n, ok := j.Rename[name]; ok {
			name = n
		}
		if used[name] {
			name += RightSuffix
		}
		used[name] = true
		carry = append(carry, idx)
		names = append(names, name)
	}
	rk := right.ColumnIndex(j.RightKey)
	if len(j.ColumnsToAdd) > 0 {
		seen := map[int]bool{rk: true}
		for _, c := range j.ColumnsToAdd {
			idx := right.ColumnIndex(c)
			if !seen[idx] {
				seen[idx] = true
				pick(idx)
			}
		}
	} else {
		for idx := range right.Columns() {
			if idx != rk {
				pick(idx)
			}
		}
	}

	lk := left.ColumnIndex(j.LeftKey)
	index := map[string][]int{}
	for r := 0; r < right.Len(); r++ {
		if k, ok := j.key(right.At(r, rk)); ok {
			index[k] = append(index[k], r)
		}
	}

	out := table.NewBuilder(table.Empty(append(left.Columns(), names...)...))
	emit := func(l, r int) {
		row := make([]any, 0, left.Width()+len(carry))
		if l >= 0 {
			row = append(row, left.Row(l)...)
		} else {
			row = append(row, make([]any, left.Width())...)
			row[lk] = right.At(r, rk)
		}
		for _, idx := range carry {
			if r >= 0 {
				row = append(row, right.At(r, idx))
			} else {
				row = append(row, nil)
			}
		}
		out.AppendRow(row...)
	}

	if jt == RightJoin {
		leftIndex := map[string][]int{}
		for l := 0; l < left.Len(); l++ {
			if k, ok := j.key(left.At(l, lk)); ok {
				leftIndex[k] = append(leftIndex[k], l)
			}
		}
		for r := 0; r < right.Len(); r++ {
			k, ok := j.key(right.At(r, rk))
			matches := leftIndex[k]
			if !ok || len(matches) == 0 {
				emit(-1, r)
				continue
			}
			for _, l := range matches {
				emit(l, r)
			}
		}
		return out.Table(), nil
	}

	matchedRight := make([]bool, right.Len())
	for l := 0; l < left.Len(); l++ {
		k, ok := j.key(left.At(l, lk))
		matches := index[k]
		if !ok || len(matches) == 0 {
			if jt != InnerJoin {
				emit(l, -1)
			}
			continue
		}
		for _, r := range matches {
			matchedRight[r] = true
			emit(l, r)
		}
	}
	if jt == OuterJoin {
		for r, m := range matchedRight {
			if !m {
				emit(-1, r)
			}
		}
	}
	return out.Table(), nil
}

func (j Joiner) key(v any) (string, bool) {
	if table.IsEmpty(v) {
		return "", false
	}
	if j.MatchCase {
		return encodeKey([]any{v}), true
	}
	return table.Fold(v), true
}
