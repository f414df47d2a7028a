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
package projector

import (
	"github.com/shopspring/decimal"

	"github.com/spraygospel/BoQ-Excel-Converter/internal/table"
)

// SalesOrderColumns is the sales order line import layout.
var SalesOrderColumns = []string{"Product", "Description", "Ordered Qty", "Unit of Measure", "Unit Price", "Taxes"}

// DefaultTax is applied to every sales order line.
const DefaultTax = "11% PPN Sale"

// SalesOrder projects BoQ lines into sales order lines.
type SalesOrder struct {
	// Tax overrides DefaultTax when set.
	Tax string
}

// Project emits one line per product carrying the summed line totals, then
// one line per BoQ row marked as a single product.
func (p SalesOrder) Project(base *table.Table) (*table.Table, error) {
	tax := p.Tax
	if tax == "" {
		tax = DefaultTax
	}
	sorted, err := sortedBy(base, ColProduct)
	if err != nil {
		return nil, err
	}
	product := exact(sorted, ColProduct)
	lineTotal := exact(sorted, ColLineTotal)

	var order []string
	names := map[string]any{}
	totals := map[string]decimal.Decimal{}
	for i := 0; i < sorted.Len(); i++ {
		prod := product(i)
		if table.IsEmpty(prod) {
			continue
		}
		key := table.Text(prod)
		if _, seen := totals[key]; !seen {
			order = append(order, key)
			names[key] = prod
		}
		totals[key] = totals[key].Add(parseAmount(lineTotal(i)))
	}

	b := table.NewBuilder(table.Empty(SalesOrderColumns...))
	for _, key := range order {
		b.AppendRow(names[key], names[key], 1.0, "", totals[key].InexactFloat64(), tax)
	}

	single := exact(sorted, ColSingleProduct)
	desc := exact(sorted, ColDescription)
	qty := exact(sorted, ColQuantity)
	price := exact(sorted, ColUnitPrice)
	for i := 0; i < sorted.Len(); i++ {
		if table.IsEmpty(single(i)) {
			continue
		}
		d := table.WithPrefix(desc(i), VariantPrefix, true)
		b.AppendRow(d, d, parseAmount(qty(i)).InexactFloat64(), "", parseAmount(price(i)).InexactFloat64(), tax)
	}
	return b.Table(), nil
}
