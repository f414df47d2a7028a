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
	"strconv"
	"strings"
)

// Normalize converts a Go value into one of the three cell kinds.
// Integers become float64, NaN becomes nil, anything else is formatted as text.
func Normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return x
	case float64:
		if math.IsNaN(x) {
			return nil
		}
		return x
	case float32:
		return Normalize(float64(x))
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case bool:
		return strconv.FormatBool(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// IsNull reports whether v is an absent cell.
func IsNull(v any) bool { return v == nil }

// IsEmpty reports whether v is nil or a whitespace-only string.
func IsEmpty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// Equal compares two cells with null-aware equality: two nils are equal,
// nil and non-nil are not.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	af, aNum := a.(float64)
	bf, bNum := b.(float64)
	if aNum && bNum {
		return af == bf
	}
	if aNum != bNum {
		return false
	}
	return a == b
}

// Text renders a cell as a string. Nil renders as "", whole numbers without
// a decimal point.
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// Fold returns the trimmed, lower-cased text of a cell for case-insensitive
// comparison.
func Fold(v any) string {
	return strings.ToLower(strings.TrimSpace(Text(v)))
}

// Number returns the numeric value of a cell. Strings are parsed after
// trimming; anything unparsable reports false.
func Number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// ParseValue turns raw spreadsheet text into a cell: empty text becomes nil,
// numeric text becomes float64, everything else stays a string.
func ParseValue(s string) any {
	if s == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}
	return s
}

// isNumericColumn reports whether every non-null cell at column j is a number
// and at least one such cell exists.
func (t *Table) isNumericColumn(j int) bool {
	seen := false
	for _, r := range t.rows {
		switch r[j].(type) {
		case nil:
		case float64:
			seen = true
		default:
			return false
		}
	}
	return seen
}

// IsNumericColumn reports whether the named column holds only numbers and nulls.
func (t *Table) IsNumericColumn(name string) bool {
	j := t.ColumnIndex(name)
	if j < 0 {
		return false
	}
	return t.isNumericColumn(j)
}
