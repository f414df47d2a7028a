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
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spraygospel/BoQ-Excel-Converter/internal/catalog"
	"github.com/spraygospel/BoQ-Excel-Converter/internal/table"
)

// Catalog models read by LoadCatalogData.
const (
	ModelProduct      = "product.product"
	ModelPartner      = "res.partner"
	ModelSupplierInfo = "product.supplierinfo"
	ModelData         = "ir.model.data"
)

// CatalogProduct is a product variant found by its internal reference.
type CatalogProduct struct {
	ID         int64
	Code       string
	TemplateID int64
	Name       string
	// XMLID is "module.name", or empty when the product has none.
	XMLID string
}

// SupplierInfo is a vendor price line of a product template.
type SupplierInfo struct {
	ID           int64
	TemplateID   int64
	PartnerID    int64
	SupplierName string
	Price        float64
	XMLID        string
}

// CatalogData is the catalog state the update projector compares against.
type CatalogData struct {
	// Products by internal reference.
	Products map[string]CatalogProduct
	// Suppliers maps lower-cased vendor names to partner ids.
	Suppliers map[string]int64
	// SupplierInfo lists vendor lines per template id, ordered by id.
	SupplierInfo map[int64][]SupplierInfo
}

// LoadCatalogData reads everything the update projector needs for the given
// BoQ rows in a handful of batched searches.
func LoadCatalogData(ctx context.Context, r catalog.Reader, base *table.Table) (*CatalogData, error) {
	codes, suppliers := referencedKeys(base)
	data := &CatalogData{
		Products:     map[string]CatalogProduct{},
		Suppliers:    map[string]int64{},
		SupplierInfo: map[int64][]SupplierInfo{},
	}
	if len(codes) == 0 {
		return data, nil
	}

	products, err := r.SearchRead(ctx, ModelProduct,
		[]catalog.Criterion{catalog.In("default_code", codes)},
		"id", "default_code", "product_tmpl_id", "name")
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	var productIDs, templateIDs []int64
	for _, rec := range products {
		code := rec.String("default_code")
		id, ok := rec.Int("id")
		if code == "" || !ok {
			continue
		}
		tmpl, _ := rec.Int("product_tmpl_id")
		data.Products[code] = CatalogProduct{ID: id, Code: code, TemplateID: tmpl, Name: rec.String("name")}
		productIDs = append(productIDs, id)
		if tmpl != 0 {
			templateIDs = append(templateIDs, tmpl)
		}
	}

	productXML, err := xmlIDs(ctx, r, ModelProduct, productIDs)
	if err != nil {
		return nil, err
	}
	for code, p := range data.Products {
		p.XMLID = productXML[p.ID]
		data.Products[code] = p
	}

	if len(suppliers) > 0 {
		partners, err := r.SearchRead(ctx, ModelPartner,
			[]catalog.Criterion{catalog.In("name", suppliers), catalog.Gt("supplier_rank", 0)},
			"id", "name")
		if err != nil {
			return nil, fmt.Errorf("failed to search suppliers: %w", err)
		}
		for _, rec := range partners {
			if id, ok := rec.Int("id"); ok && rec.String("name") != "" {
				data.Suppliers[strings.ToLower(rec.String("name"))] = id
			}
		}
	}

	if len(templateIDs) == 0 {
		return data, nil
	}
	lines, err := r.SearchRead(ctx, ModelSupplierInfo,
		[]catalog.Criterion{catalog.In("product_tmpl_id", templateIDs)},
		"id", "partner_id", "product_tmpl_id", "price")
	if err != nil {
		return nil, fmt.Errorf("failed to search supplier info: %w", err)
	}
	var lineIDs, partnerIDs []int64
	for _, rec := range lines {
		if id, ok := rec.Int("id"); ok {
			lineIDs = append(lineIDs, id)
		}
		if pid, ok := rec.Int("partner_id"); ok {
			partnerIDs = append(partnerIDs, pid)
		}
	}
	lineXML, err := xmlIDs(ctx, r, ModelSupplierInfo, lineIDs)
	if err != nil {
		return nil, err
	}
	names := map[int64]string{}
	if len(partnerIDs) > 0 {
		partners, err := r.Fetch(ctx, ModelPartner, partnerIDs, "id", "name")
		if err != nil {
			return nil, fmt.Errorf("failed to read supplier names: %w", err)
		}
		for _, rec := range partners {
			if id, ok := rec.Int("id"); ok {
				names[id] = rec.String("name")
			}
		}
	}
	for _, rec := range lines {
		id, _ := rec.Int("id")
		tmpl, _ := rec.Int("product_tmpl_id")
		pid, _ := rec.Int("partner_id")
		price, _ := rec.Float("price")
		data.SupplierInfo[tmpl] = append(data.SupplierInfo[tmpl], SupplierInfo{
			ID:           id,
			TemplateID:   tmpl,
			PartnerID:    pid,
			SupplierName: names[pid],
			Price:        price,
			XMLID:        lineXML[id],
		})
	}
	for _, infos := range data.SupplierInfo {
		sort.Slice(infos, func(a, b int) bool { return infos[a].ID < infos[b].ID })
	}
	return data, nil
}

// xmlIDs maps record ids of model to their "module.name" external ids.
func xmlIDs(ctx context.Context, r catalog.Reader, model string, ids []int64) (map[int64]string, error) {
	out := map[int64]string{}
	if len(ids) == 0 {
		return out, nil
	}
	recs, err := r.SearchRead(ctx, ModelData,
		[]catalog.Criterion{catalog.Eq("model", model), catalog.In("res_id", ids)},
		"name", "module", "res_id")
	if err != nil {
		return nil, fmt.Errorf("failed to search external ids for %s: %w", model, err)
	}
	for _, rec := range recs {
		if id, ok := rec.Int("res_id"); ok {
			out[id] = rec.String("module") + "." + rec.String("name")
		}
	}
	return out, nil
}

// referencedKeys collects the distinct internal references and supplier
// names of the rows the update projector will look at.
func referencedKeys(base *table.Table) (codes, suppliers []string) {
	ref := lookup(base, ColInternalRef)
	supplier := lookup(base, ColSupplier)
	seenCode, seenSupplier := map[string]bool{}, map[string]bool{}
	for i := 0; i < base.Len(); i++ {
		code, ok := referenceOf(ref(i))
		if !ok {
			continue
		}
		if !seenCode[code] {
			seenCode[code] = true
			codes = append(codes, code)
		}
		if s := supplier(i); !table.IsEmpty(s) && !seenSupplier[table.Text(s)] {
			seenSupplier[table.Text(s)] = true
			suppliers = append(suppliers, table.Text(s))
		}
	}
	return codes, suppliers
}

// referenceOf returns the internal reference of a cell. Empty cells and "0"
// mean the row has no reference.
func referenceOf(v any) (string, bool) {
	if table.IsEmpty(v) {
		return "", false
	}
	s := strings.TrimSpace(table.Text(v))
	if s == "0" {
		return "", false
	}
	return s, true
}
