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

// Package projector turns the reconciled BoQ table into the fixed import
// layouts of the back-office system. Output column names and order are part
// of the import contract.
package projector

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/spraygospel/BoQ-Excel-Converter/internal/table"
)

// VariantPrefix marks catalog names created from BoQ descriptions.
const VariantPrefix = "V - "

// Input column names shared by the projectors.
const (
	ColDescription   = "Description - Item yang Ditawarkan"
	ColProduct       = "Product"
	ColQuantity      = "Qty."
	ColUoM           = "Unit of Measure"
	ColUoMAlias      = "UoM"
	ColLineTotal     = "Line Total"
	ColUnitPrice     = "Unit Price"
	ColSingleProduct = "Single Product"
	ColInternalRef   = "Internal References"
	ColSupplier      = "Supplier"
	ColVN            = "VN"
	ColItem          = "Item"
)

// ModalUnitAliases are the names the unit cost column goes by, most specific
// first.
var ModalUnitAliases = []string{"Modal Unit", "Modal", "Unit Cost", "Unit Modal", "Cost per Unit", "Price Unit"}

// parseAmount reads a spreadsheet amount. Text amounts have their thousand
// and decimal separators stripped and must then be all digits; anything else
// counts as zero.
func parseAmount(v any) decimal.Decimal {
	switch x := v.(type) {
	case float64:
		return decimal.NewFromFloat(x)
	case string:
		s := strings.TrimSpace(strings.NewReplacer(",", "", ".", "").Replace(x))
		if s == "" || strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
			return decimal.Zero
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}

// parseCost reads a unit cost, keeping only digits and the decimal point of
// text values. ok is false when nothing numeric is left.
func parseCost(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		var b strings.Builder
		for _, r := range x {
			if (r >= '0' && r <= '9') || r == '.' {
				b.WriteRune(r)
			}
		}
		d, err := decimal.NewFromString(b.String())
		if err != nil {
			return 0, false
		}
		return d.InexactFloat64(), true
	default:
		return 0, false
	}
}

// lookup resolves a column by name, preferring a case-insensitive match of
// any name over a looser match of an earlier one. The returned getter yields
// nil for every row when the column is absent.
func lookup(t *table.Table, names ...string) func(i int) any {
	for _, n := range names {
		if col, ok := t.FindFold(n); ok {
			return column(t, col)
		}
	}
	col, ok := table.ResolveAny(t, names...)
	if !ok {
		return func(int) any { return nil }
	}
	return column(t, col)
}

func column(t *table.Table, col string) func(i int) any {
	j := t.ColumnIndex(col)
	return func(i int) any { return t.At(i, j) }
}

// orEmpty replaces nil with "".
func orEmpty(v any) any {
	if v == nil {
		return ""
	}
	return v
}

// exact resolves a column by case-insensitive name only.
func exact(t *table.Table, name string) func(i int) any {
	col, ok := t.FindFold(name)
	if !ok {
		return func(int) any { return nil }
	}
	return column(t, col)
}

// sortedBy returns t stably sorted by the named column when it exists.
func sortedBy(t *table.Table, name string) (*table.Table, error) {
	col, ok := t.FindFold(name)
	if !ok {
		return t, nil
	}
	return table.Sort(t, table.SortOptions{Columns: []string{col}})
}
