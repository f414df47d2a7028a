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
package reconcile

import (
	"fmt"
	"strings"

	"github.com/spraygospel/BoQ-Excel-Converter/internal/table"
	"github.com/spraygospel/BoQ-Excel-Converter/internal/validate"
)

// Classification values.
const (
	ActionMoveToBottom = "Move to bottom"
	TypeMismatch       = "Data Mismatch"
	TypeUoMAnomaly     = "UoM Anomaly"
)

// Anomaly issues.
const (
	IssueUoMWithoutCompanion = "UoM exists but Product or BOM Line is missing"
	IssueCompanionWithoutUoM = "Product and BOM Line exist but UoM is missing"
)

// PoolEntry is a value present on one side only, or a unit of measure anomaly.
type PoolEntry struct {
	Source string `json:"source"`
	Value  string `json:"value"`
	Column string `json:"column"`
	Type   string `json:"type"`
}

// Classified is a pool value routed to the item or single product bucket.
type Classified struct {
	Source   string `json:"source"`
	Value    string `json:"value"`
	Column   string `json:"column"`
	RowIndex int    `json:"row_index"`
	Action   string `json:"action,omitempty"`
}

// Anomaly is an SO row whose unit of measure disagrees with its product and
// BOM line cells. RowIndex refers to the SO table passed to Validate.
type Anomaly struct {
	RowIndex      int    `json:"row_index"`
	UoM           any    `json:"uom_value"`
	Product       any    `json:"product_value"`
	BOMLine       any    `json:"bom_line_value"`
	Issue         string `json:"issue"`
	FieldsMissing string `json:"fields_missing"`
}

// CrossResult holds the classified pool and the processed tables.
type CrossResult struct {
	Mismatches     []PoolEntry
	Items          []Classified
	SingleProducts []Classified
	UoMAnomalies   []Anomaly
	BoQ            *table.Table
	SO             *table.Table
}

// CrossValidator classifies values that do not match between the BoQ and SO
// validation columns.
type CrossValidator struct {
	Columns Columns
}

// NewCrossValidator returns a validator using the standard column names.
func NewCrossValidator() *CrossValidator {
	return &CrossValidator{Columns: DefaultColumns()}
}

// Validate runs the classification steps in order:
//
//  1. collect values found on one side only into the mismatch pool
//  2. BoQ values whose row has empty left and right neighbours become items
//  3. remaining BoQ values with a filled neighbour that also appear as an SO
//     product become single products
//  4. SO products without a BOM line that name a BoQ row become single
//     products, consuming a matching BoQ pool entry if one is left
//  5. unit of measure anomalies in the SO table are recorded and appended to
//     the pool
//  6. SO single product rows move to the bottom and empty rows are dropped
//
// Every value that enters the pool in step 1 ends in exactly one of the
// mismatch, item and single product lists.
func (v *CrossValidator) Validate(boq, so *table.Table) (CrossResult, error) {
	c := v.Columns
	boqCol, ok := boq.FindFold(c.BoQValidation)
	if !ok {
		return CrossResult{}, &table.ColumnNotFoundError{Columns: []string{c.BoQValidation}, Context: SourceBoQ}
	}
	soCol, ok := so.FindFold(c.SOValidation)
	if !ok {
		return CrossResult{}, &table.ColumnNotFoundError{Columns: []string{c.SOValidation}, Context: SourceSO}
	}
	productCol, hasProduct := so.FindFold(c.Product)

	// 1
	match, err := validate.CrossFileValidator{Severity: validate.SeverityWarn}.MatchValues(boq, so, validate.MatchOptions{
		FirstColumn:  boqCol,
		SecondColumn: soCol,
		FirstLabel:   SourceBoQ,
		SecondLabel:  SourceSO,
	})
	if err != nil {
		return CrossResult{}, err
	}
	var pool []PoolEntry
	for _, val := range match.FirstUnmatched {
		pool = append(pool, PoolEntry{Source: SourceBoQ, Value: val, Column: boqCol, Type: TypeMismatch})
	}
	for _, val := range match.SecondUnmatched {
		pool = append(pool, PoolEntry{Source: SourceSO, Value: val, Column: soCol, Type: TypeMismatch})
	}

	res := CrossResult{}
	ind := boq.ColumnIndex(boqCol)

	// 2
	kept := pool[:0:0]
	for _, e := range pool {
		if e.Source == SourceBoQ {
			if row := findLower(boq, ind, e.Value); row >= 0 && neighboursEmpty(boq, row, ind) {
				res.Items = append(res.Items, Classified{Source: SourceBoQ, Value: e.Value, Column: boqCol, RowIndex: row})
				continue
			}
		}
		kept = append(kept, e)
	}
	pool = kept

	// 3
	kept = pool[:0:0]
	for _, e := range pool {
		if e.Source == SourceBoQ && hasProduct {
			row := findLower(boq, ind, e.Value)
			if row >= 0 && !neighboursEmpty(boq, row, ind) && findLower(so, so.ColumnIndex(productCol), e.Value) >= 0 {
				res.SingleProducts = append(res.SingleProducts, Classified{
					Source: SourceBoQ, Value: e.Value, Column: boqCol, RowIndex: row, Action: ActionMoveToBottom,
				})
				continue
			}
		}
		kept = append(kept, e)
	}
	pool = kept

	// 4
	var moved []int
	if hasProduct {
		for i := 0; i < so.Len(); i++ {
			product, ok := so.Value(i, productCol).(string)
			if !ok || table.IsEmpty(product) || !table.IsEmpty(so.Value(i, soCol)) {
				continue
			}
			if findLower(boq, ind, strings.ToLower(product)) < 0 {
				continue
			}
			for k, e := range pool {
				if e.Source == SourceBoQ && e.Value == strings.ToLower(product) {
					pool = append(pool[:k:k], pool[k+1:]...)
					break
				}
			}
			res.SingleProducts = append(res.SingleProducts, Classified{
				Source: SourceSO, Value: product, Column: c.Product, RowIndex: i, Action: ActionMoveToBottom,
			})
			moved = append(moved, i)
		}
	}

	// 5
	if uomCol, ok := so.FindFold(c.UoM); ok {
		res.UoMAnomalies = scanUoM(so, uomCol, productCol, hasProduct, soCol)
		for _, a := range res.UoMAnomalies {
			pool = append(pool, PoolEntry{Source: SourceSO, Value: a.describe(), Column: uomCol, Type: TypeUoMAnomaly})
		}
	}

	// 6
	res.SO = table.DropEmptyRows(moveToBottom(so, moved))
	res.BoQ = boq.Clone()
	res.Mismatches = pool
	return res, nil
}

// findLower returns the first row whose cell at column j, lower-cased, equals
// value, or -1.
func findLower(t *table.Table, j int, value string) int {
	if j < 0 {
		return -1
	}
	for i := 0; i < t.Len(); i++ {
		v := t.At(i, j)
		if v != nil && strings.ToLower(table.Text(v)) == value {
			return i
		}
	}
	return -1
}

// neighboursEmpty reports whether the cells left and right of column j are
// empty. A missing neighbour counts as empty.
func neighboursEmpty(t *table.Table, i, j int) bool {
	if j > 0 && !table.IsEmpty(t.At(i, j-1)) {
		return false
	}
	if j < t.Width()-1 && !table.IsEmpty(t.At(i, j+1)) {
		return false
	}
	return true
}

func scanUoM(so *table.Table, uomCol, productCol string, hasProduct bool, bomCol string) []Anomaly {
	var out []Anomaly
	for i := 0; i < so.Len(); i++ {
		uom := so.Value(i, uomCol)
		var product any
		if hasProduct {
			product = so.Value(i, productCol)
		}
		bom := so.Value(i, bomCol)
		productEmpty, bomEmpty := table.IsEmpty(product), table.IsEmpty(bom)

		switch {
		case !table.IsEmpty(uom) && (productEmpty || bomEmpty):
			a := Anomaly{RowIndex: i, UoM: uom, Issue: IssueUoMWithoutCompanion}
			var missing []string
			if productEmpty {
				missing = append(missing, "Product")
			} else {
				a.Product = product
			}
			if bomEmpty {
				missing = append(missing, "BOM Line")
			} else {
				a.BOMLine = bom
			}
			a.FieldsMissing = strings.Join(missing, ", ")
			out = append(out, a)
		case table.IsEmpty(uom) && !productEmpty && !bomEmpty:
			out = append(out, Anomaly{
				RowIndex:      i,
				Product:       product,
				BOMLine:       bom,
				Issue:         IssueCompanionWithoutUoM,
				FieldsMissing: "Unit of Measure",
			})
		}
	}
	return out
}

// describe renders the pool value of an anomaly. Rows are numbered from 1.
func (a Anomaly) describe() string {
	if a.Issue == IssueCompanionWithoutUoM {
		return fmt.Sprintf("Row %d: Product '%s' and BOM Line '%s' exist but UoM is missing",
			a.RowIndex+1, table.Text(a.Product), table.Text(a.BOMLine))
	}
	missing := "BOM Line"
	if a.Product == nil {
		missing = "Product"
	}
	return fmt.Sprintf("Row %d: UoM '%s' exists but %s is missing", a.RowIndex+1, table.Text(a.UoM), missing)
}

// moveToBottom moves the listed rows to the end, keeping relative order in
// both parts.
func moveToBottom(t *table.Table, rows []int) *table.Table {
	if len(rows) == 0 {
		return t.Clone()
	}
	move := make(map[int]bool, len(rows))
	for _, i := range rows {
		move[i] = true
	}
	order := make([]int, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		if !move[i] {
			order = append(order, i)
		}
	}
	for i := 0; i < t.Len(); i++ {
		if move[i] {
			order = append(order, i)
		}
	}
	return t.Select(order)
}
