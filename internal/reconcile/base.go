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

	"github.com/spraygospel/BoQ-Excel-Converter/internal/table"
	"github.com/spraygospel/BoQ-Excel-Converter/internal/transform"
)

// BaseResult is the reconciled pair of tables. Diagnostics lists the steps
// that were skipped because an optional column was absent.
type BaseResult struct {
	BoQ         *table.Table
	SO          *table.Table
	Diagnostics []string
}

// BaseReconciler builds the base dataset every projector reads from.
type BaseReconciler struct {
	Columns Columns
}

// NewBaseReconciler returns a reconciler using the standard column names.
func NewBaseReconciler() *BaseReconciler {
	return &BaseReconciler{Columns: DefaultColumns()}
}

// Reconcile runs the merge steps in order:
//
//  1. drop BoQ rows with an empty validation cell
//  2. rename the column after Quantity to UoMAlias
//  3. carry SO products forward
//  4. carry SO units of measure forward, except on rows that have a product
//     but no BOM line
//  5. extract BoQ sections into the Section column, dropping header rows
//  6. left join SO product, VN and unit of measure onto BoQ, keeping unit of
//     measure last
//  7. stamp Single Product on BoQ rows named by an SO product without a BOM line
//
// Both validation columns are required. Other columns are optional and their
// absence is reported in Diagnostics.
func (r *BaseReconciler) Reconcile(boq, so *table.Table) (BaseResult, error) {
	c := r.Columns
	var diags []string
	boqCol, ok := boq.FindFold(c.BoQValidation)
	if !ok {
		return BaseResult{}, &table.ColumnNotFoundError{Columns: []string{c.BoQValidation}, Context: "BoQ"}
	}
	soCol, ok := so.FindFold(c.SOValidation)
	if !ok {
		return BaseResult{}, &table.ColumnNotFoundError{Columns: []string{c.SOValidation}, Context: "Convert to SO"}
	}

	// 1
	boq, err := table.RequireNonEmpty(boq, boqCol)
	if err != nil {
		return BaseResult{}, err
	}

	// 2
	var renamed bool
	boq, renamed = table.RenameAfter(boq, c.Quantity, c.UoMAlias)
	if !renamed {
		diags = append(diags, fmt.Sprintf("no column after %q in BoQ; %s rename skipped", c.Quantity, c.UoMAlias))
	}

	// 3
	productCol, hasProduct := so.FindFold(c.Product)
	if hasProduct {
		if so, err = transform.NewRestorer(productCol).Transform(so); err != nil {
			return BaseResult{}, err
		}
	} else {
		diags = append(diags, fmt.Sprintf("column %q not found in Convert to SO; product restore skipped", c.Product))
	}

	// 4
	uomCol, hasUoM := so.FindFold(c.UoM)
	if hasUoM {
		if so, err = restoreUoM(so, productCol, soCol, uomCol, hasProduct); err != nil {
			return BaseResult{}, err
		}
	} else {
		diags = append(diags, fmt.Sprintf("column %q not found in Convert to SO; unit of measure restore skipped", c.UoM))
	}

	// 5
	boq, err = transform.SectionExtractor{Indicator: boqCol, Target: c.Section, RemoveHeaders: true}.Extract(boq)
	if err != nil {
		return BaseResult{}, err
	}

	// 6
	var add []string
	for _, name := range []string{c.Product, c.VN, c.UoM} {
		if col, ok := so.FindFold(name); ok {
			add = append(add, col)
		} else if name == c.VN {
			diags = append(diags, fmt.Sprintf("column %q not found in Convert to SO; not joined", name))
		}
	}
	if len(add) > 0 {
		j := transform.Joiner{LeftKey: boqCol, RightKey: soCol, Type: transform.LeftJoin, ColumnsToAdd: add}
		if boq, err = j.Join(boq, so); err != nil {
			return BaseResult{}, err
		}
		if hasUoM && boq.HasColumn(uomCol) {
			if boq, err = table.MoveColumnToEnd(boq, uomCol); err != nil {
				return BaseResult{}, err
			}
		}
	}

	// 7
	boq, err = stampSingleProducts(boq, so, boqCol, soCol, productCol, hasProduct, c.SingleProduct)
	if err != nil {
		return BaseResult{}, err
	}

	return BaseResult{BoQ: boq, SO: so, Diagnostics: diags}, nil
}

// restoreUoM carries units of measure forward but keeps the original cell on
// rows that hold a product without a BOM line.
func restoreUoM(so *table.Table, productCol, soCol, uomCol string, hasProduct bool) (*table.Table, error) {
	skip := make([]bool, so.Len())
	all := so.Len() > 0
	for i := range skip {
		skip[i] = hasProduct && !table.IsEmpty(so.Value(i, productCol)) && table.IsEmpty(so.Value(i, soCol))
		all = all && skip[i]
	}
	if all {
		return so, nil
	}
	restored, err := transform.NewRestorer(uomCol).Transform(so)
	if err != nil {
		return nil, err
	}
	b := table.NewBuilder(restored)
	for i, s := range skip {
		if !s {
			continue
		}
		if err := b.Set(i, uomCol, so.Value(i, uomCol)); err != nil {
			return nil, err
		}
	}
	return b.Table(), nil
}

func stampSingleProducts(boq, so *table.Table, boqCol, soCol, productCol string, hasProduct bool, target string) (*table.Table, error) {
	b := table.NewBuilder(boq)
	if err := b.SetColumn(target, make([]any, boq.Len())); err != nil {
		return nil, err
	}
	if !hasProduct {
		return b.Table(), nil
	}
	for i := 0; i < so.Len(); i++ {
		if !table.IsEmpty(so.Value(i, soCol)) {
			continue
		}
		candidate := so.Value(i, productCol)
		name, ok := candidate.(string)
		if !ok || table.IsEmpty(name) {
			continue
		}
		for k := 0; k < boq.Len(); k++ {
			desc, ok := boq.Value(k, boqCol).(string)
			if ok && table.Fold(desc) == table.Fold(name) {
				if err := b.Set(k, target, name); err != nil {
					return nil, err
				}
			}
		}
	}
	return b.Table(), nil
}
