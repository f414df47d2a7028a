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

// Package reconcile merges a BoQ table with its Convert-to-SO counterpart and
// classifies the values that do not line up between them.
package reconcile

// Source labels used in mismatch pools and classifications.
const (
	SourceBoQ = "BoQ"
	SourceSO  = "Convert to SO"
)

// Columns names the columns the reconciler works with. Every name is looked
// up case-insensitively.
type Columns struct {
	BoQValidation string `mapstructure:"boq_validation"`
	SOValidation  string `mapstructure:"so_validation"`
	Quantity      string `mapstructure:"quantity"`
	// UoMAlias replaces the column to the right of Quantity in the BoQ table.
	UoMAlias      string `mapstructure:"uom_alias"`
	Product       string `mapstructure:"product"`
	VN            string `mapstructure:"vn"`
	UoM           string `mapstructure:"uom"`
	Section       string `mapstructure:"section"`
	SingleProduct string `mapstructure:"single_product"`
}

// DefaultColumns returns the column names of the standard BoQ and
// Convert-to-SO templates.
func DefaultColumns() Columns {
	return Columns{
		BoQValidation: "Description - Item yang Ditawarkan",
		SOValidation:  "BOM Line",
		Quantity:      "Qty.",
		UoMAlias:      "UoM",
		Product:       "Product",
		VN:            "VN",
		UoM:           "Unit of Measure",
		Section:       "Item",
		SingleProduct: "Single Product",
	}
}
