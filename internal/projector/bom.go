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
	"github.com/spraygospel/BoQ-Excel-Converter/internal/table"
)

// BOMColumns is the bill-of-materials import layout.
var BOMColumns = []string{
	"Sequence", "Product", "Product Variant", "Quantity", "BoM Type",
	"Company", "Unit of Measure", "BoM Lines/Component", "BoM Lines/Quantity",
}

// BOMKitType is the BoM type of every generated bill.
const BOMKitType = "Kit"

// BOM projects BoQ lines into kit bills of materials, one bill per product.
type BOM struct {
	Company string
}

// Project builds one bill line per BoQ row with a product. Rows are ordered
// by product and the seven bill header cells are shown on the first line of
// each bill only; later lines always carry blank headers, even when a value
// such as the unit of measure differs.
func (p BOM) Project(base *table.Table) (*table.Table, error) {
	sorted, err := sortedBy(base, ColProduct)
	if err != nil {
		return nil, err
	}
	product := exact(sorted, ColProduct)
	desc := exact(sorted, ColDescription)
	qty := exact(sorted, ColQuantity)
	uom := exact(sorted, ColUoM)

	b := table.NewBuilder(table.Empty(BOMColumns...))
	var current any
	seq := 0
	for i := 0; i < sorted.Len(); i++ {
		prod := product(i)
		if table.IsEmpty(prod) {
			continue
		}
		component := table.WithPrefix(desc(i), VariantPrefix, true)
		if current != nil && table.Equal(prod, current) {
			b.AppendRow(nil, "", "", nil, "", "", "", component, qty(i))
			continue
		}
		current = prod
		seq++
		b.AppendRow(
			float64(seq),
			prod,
			prod,
			1.0,
			BOMKitType,
			p.Company,
			uom(i),
			component,
			qty(i),
		)
	}
	return b.Table(), nil
}
