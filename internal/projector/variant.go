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
	"fmt"

	"github.com/spraygospel/BoQ-Excel-Converter/internal/table"
)

// VariantColumns is the product variant import layout.
var VariantColumns = []string{
	"Sequence", "Name", "Product Type", "Product Type Info",
	"Vendors/Display Name", "Vendors/Price", "Vendors/Company", "Cost",
	"Public Price", "Unit of Measure", "Purchase Unit of Measure",
	"Sales Description", "Purchase Description", "Item",
}

// Product types.
const (
	TypeConsumable = "Consumable"
	TypeStorable   = "Storable Product"
)

// VariantDefaults are the values used when a BoQ row leaves a field empty.
type VariantDefaults struct {
	ModalUnit   float64 `mapstructure:"modal_unit"`
	PublicPrice float64 `mapstructure:"public_price"`
	UoM         string  `mapstructure:"uom"`
}

// DefaultVariantDefaults returns the standard fallbacks.
func DefaultVariantDefaults() VariantDefaults {
	return VariantDefaults{UoM: "Units"}
}

// Variant projects BoQ lines that are not yet in the catalog into new
// product variants.
type Variant struct {
	Company  string
	Defaults VariantDefaults
}

// Project emits one variant per BoQ row without an internal reference. Rows
// that carry one already exist in the catalog and are handled by
// UpdateProduct. A reference of "0" counts as none.
func (p Variant) Project(base *table.Table) (*table.Table, error) {
	defaults := p.Defaults
	if defaults.UoM == "" {
		defaults.UoM = DefaultVariantDefaults().UoM
	}
	ref := lookup(base, ColInternalRef)
	_, hasDesc := table.ResolveColumn(base, ColDescription)
	desc := lookup(base, ColDescription)
	vn := lookup(base, ColVN)
	supplier := lookup(base, ColSupplier)
	modal := lookup(base, ModalUnitAliases...)
	price := lookup(base, ColUnitPrice)
	uom := lookup(base, ColUoMAlias)
	item := lookup(base, ColItem)

	b := table.NewBuilder(table.Empty(VariantColumns...))
	seq := 0
	for i := 0; i < base.Len(); i++ {
		if _, ok := referenceOf(ref(i)); ok {
			continue
		}
		seq++

		name := desc(i)
		if !hasDesc {
			name = fmt.Sprintf("Product %d", i+1)
		}
		if _, ok := name.(string); ok {
			name = table.WithPrefix(name, VariantPrefix, true)
		}

		kind := TypeStorable
		if table.Fold(vn(i)) == "yes" {
			kind = TypeConsumable
		}

		cost := defaults.ModalUnit
		if c, ok := parseCost(modal(i)); ok {
			cost = c
		}
		public := defaults.PublicPrice
		if n, ok := table.Number(price(i)); ok {
			public = n
		}
		unit := uom(i)
		if table.IsEmpty(unit) {
			unit = defaults.UoM
		}

		b.AppendRow(
			float64(seq),
			name,
			kind,
			kind,
			orEmpty(supplier(i)),
			cost,
			p.Company,
			cost,
			public,
			unit,
			unit,
			"",
			"",
			orEmpty(item(i)),
		)
	}
	return b.Table(), nil
}
