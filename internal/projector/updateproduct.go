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
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/spraygospel/BoQ-Excel-Converter/internal/table"
)

// NewVendorColumns is the layout adding a vendor line to an existing product.
var NewVendorColumns = []string{"id", "default_code", "name", "seller_ids", "seller_ids/price", "seller_ids/x_studio_so_number"}

// PriceChangeColumns is the layout updating the price of an existing vendor line.
var PriceChangeColumns = []string{"id", "default_code", "name", "seller_ids/id", "seller_ids/price", "seller_ids/x_studio_so_number"}

// Report statuses and placeholders.
const (
	StatusNoXMLID    = "Tanpa XML ID"
	StatusNotFound   = "ID Tidak Ditemukan"
	MissingIDMarker  = "KOSONG"
	ExportXMLPrefix  = "export."
	supplierInfoStem = "product_supplierinfo_"
)

// PriceTolerance is the largest vendor price difference treated as unchanged.
var PriceTolerance = decimal.RequireFromString("0.01")

// ProductIssue is a BoQ product that cannot be addressed by external id.
type ProductIssue struct {
	DefaultCode string `json:"default_code"`
	Name        string `json:"name"`
	ID          string `json:"id"`
	Status      string `json:"status"`
}

// UpdateResult holds both update tables and the products the catalog could
// not resolve.
type UpdateResult struct {
	NewVendors   *table.Table
	PriceChanges *table.Table
	Issues       []ProductIssue
}

// UpdateProduct projects BoQ rows that reference existing catalog products
// into vendor updates.
type UpdateProduct struct {
	SONumber string
}

type updateRow struct {
	code     string
	name     any
	supplier any
	price    any
	product  *CatalogProduct
}

// Project compares the referenced BoQ rows with data. NewVendors lists rows
// whose supplier is not yet a vendor of the product, PriceChanges rows whose
// supplier is a vendor at a price differing by more than PriceTolerance.
// Without catalog data every referenced row is kept in NewVendors and
// reported as not found.
func (p UpdateProduct) Project(base *table.Table, data *CatalogData) (UpdateResult, error) {
	res := UpdateResult{
		NewVendors:   table.Empty(NewVendorColumns...),
		PriceChanges: table.Empty(PriceChangeColumns...),
	}
	refCol, ok := table.ResolveColumn(base, ColInternalRef)
	if !ok {
		return res, nil
	}
	ref := column(base, refCol)
	desc := lookup(base, ColDescription)
	supplier := lookup(base, ColSupplier)
	modal := lookup(base, ModalUnitAliases[0])

	var rows []updateRow
	for i := 0; i < base.Len(); i++ {
		code, ok := referenceOf(ref(i))
		if !ok {
			continue
		}
		r := updateRow{code: code, name: desc(i), supplier: supplier(i), price: modal(i)}
		if data != nil {
			if prod, found := data.Products[code]; found {
				r.product = &prod
			}
		}
		rows = append(rows, r)
	}

	reported := map[string]bool{}
	report := func(issue ProductIssue) {
		if !reported[issue.DefaultCode] {
			reported[issue.DefaultCode] = true
			res.Issues = append(res.Issues, issue)
		}
	}

	nv := table.NewBuilder(res.NewVendors)
	for _, r := range rows {
		id := ""
		switch {
		case r.product != nil && r.product.XMLID != "":
			id = r.product.XMLID
		case r.product != nil:
			id = strconv.FormatInt(r.product.ID, 10)
			report(ProductIssue{DefaultCode: r.code, Name: r.product.Name, ID: id, Status: StatusNoXMLID})
		default:
			report(ProductIssue{DefaultCode: r.code, Name: table.Text(r.name), ID: MissingIDMarker, Status: StatusNotFound})
		}
		if data != nil && (table.IsEmpty(r.supplier) || (r.product != nil && data.isVendor(r.product.TemplateID, table.Text(r.supplier)))) {
			continue
		}
		nv.AppendRow(id, r.code, orEmpty(r.name), orEmpty(r.supplier), orEmpty(r.price), p.SONumber)
	}
	res.NewVendors = nv.Table()

	if data != nil {
		pc := table.NewBuilder(res.PriceChanges)
		for _, r := range rows {
			if row, ok := p.priceChange(r, data); ok {
				pc.AppendRow(row...)
			}
		}
		res.PriceChanges = pc.Table()
	}
	return res, nil
}

// priceChange returns the update for the first vendor line of the row's
// supplier whose price differs from the BoQ price.
func (p UpdateProduct) priceChange(r updateRow, data *CatalogData) ([]any, bool) {
	if r.product == nil || table.IsEmpty(r.supplier) || table.IsEmpty(r.price) {
		return nil, false
	}
	price, ok := table.Number(r.price)
	if !ok {
		return nil, false
	}
	name := r.name
	if table.IsEmpty(name) {
		name = r.product.Name
	}
	for _, info := range data.SupplierInfo[r.product.TemplateID] {
		if !sameSupplier(table.Text(r.supplier), info.SupplierName) {
			continue
		}
		diff := decimal.NewFromFloat(price).Sub(decimal.NewFromFloat(info.Price)).Abs()
		if !diff.GreaterThan(PriceTolerance) {
			continue
		}
		id := r.product.XMLID
		if id == "" {
			id = strconv.FormatInt(r.product.ID, 10)
		}
		return []any{id, r.code, name, supplierInfoXMLID(info), price, p.SONumber}, true
	}
	return nil, false
}

// isVendor reports whether supplier already sells the template, matching
// names loosely against the template's vendor lines and then against known
// partners.
func (d *CatalogData) isVendor(templateID int64, supplier string) bool {
	infos, ok := d.SupplierInfo[templateID]
	if !ok {
		return false
	}
	for _, info := range infos {
		if sameSupplier(supplier, info.SupplierName) {
			return true
		}
	}
	for name, partnerID := range d.Suppliers {
		if !sameSupplier(supplier, name) {
			continue
		}
		for _, info := range infos {
			if info.PartnerID == partnerID {
				return true
			}
		}
	}
	return false
}

// sameSupplier matches vendor names case-insensitively when either contains
// the other.
func sameSupplier(a, b string) bool {
	a, b = strings.ToLower(strings.TrimSpace(a)), strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func supplierInfoXMLID(info SupplierInfo) string {
	if info.XMLID == "" {
		return fmt.Sprintf("%s%s%d", ExportXMLPrefix, supplierInfoStem, info.ID)
	}
	if strings.HasPrefix(info.XMLID, ExportXMLPrefix) {
		return info.XMLID
	}
	return ExportXMLPrefix + info.XMLID
}
