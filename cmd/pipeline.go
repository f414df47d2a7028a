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
package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spraygospel/BoQ-Excel-Converter/internal/catalog"
	"github.com/spraygospel/BoQ-Excel-Converter/internal/reconcile"
	"github.com/spraygospel/BoQ-Excel-Converter/internal/table"
	"github.com/spraygospel/BoQ-Excel-Converter/internal/validate"
	"github.com/spraygospel/BoQ-Excel-Converter/internal/workbook"
)

// extract reads one table from path using rng.
func extract(ctx context.Context, path string, rng workbook.Range) (*table.Table, error) {
	ex, err := workbook.New(path, rng, logger)
	if err != nil {
		return nil, err
	}
	t, meta, err := ex.Extract(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("extracted table",
		zap.String("source", meta.Source),
		zap.String("sheet", meta.Sheet),
		zap.Int("rows", t.Len()),
		zap.Int("columns", t.Width()))
	return t, nil
}

// extractPair reads the BoQ and Convert-to-SO tables.
func extractPair(ctx context.Context, boqPath, soPath string) (boq, so *table.Table, err error) {
	if boqPath == "" || soPath == "" {
		return nil, nil, fmt.Errorf("both --boq and --so files are required")
	}
	if boq, err = extract(ctx, boqPath, cfg.BoQ); err != nil {
		return nil, nil, fmt.Errorf("BoQ: %w", err)
	}
	if so, err = extract(ctx, soPath, cfg.SO); err != nil {
		return nil, nil, fmt.Errorf("Convert to SO: %w", err)
	}
	return boq, so, nil
}

// openCatalog connects to the configured catalog database.
func openCatalog(ctx context.Context) (*catalog.SQLConnector, error) {
	if err := validateDialect(cfg.Database.Dialect); err != nil {
		return nil, err
	}
	logger.Info("connecting to catalog",
		zap.String("dialect", cfg.Database.Dialect),
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.DBName))
	conn, err := catalog.Open(ctx, cfg.Database, cfg.Retry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to catalog: %w", err)
	}
	return conn, nil
}

// crossValidate classifies the mismatching values and logs a summary.
func crossValidate(boq, so *table.Table) (reconcile.CrossResult, error) {
	v := &reconcile.CrossValidator{Columns: cfg.Columns}
	res, err := v.Validate(boq, so)
	if err != nil {
		return reconcile.CrossResult{}, fmt.Errorf("cross validation failed: %w", err)
	}
	logger.Info("cross validation finished",
		zap.Int("mismatches", len(res.Mismatches)),
		zap.Int("items", len(res.Items)),
		zap.Int("single_products", len(res.SingleProducts)),
		zap.Int("uom_anomalies", len(res.UoMAnomalies)))
	return res, nil
}

func reportTable(columns []string, n int, row func(i int) []any) *table.Table {
	rows := make([][]any, n)
	for i := range rows {
		rows[i] = row(i)
	}
	return table.New(columns, rows)
}

// crossReportSheets lays the validation result out as workbook sheets.
func crossReportSheets(res reconcile.CrossResult) []workbook.Sheet {
	pool := reportTable([]string{"Source", "Value", "Column", "Type"}, len(res.Mismatches), func(i int) []any {
		e := res.Mismatches[i]
		return []any{e.Source, e.Value, e.Column, e.Type}
	})
	classified := func(cs []reconcile.Classified) *table.Table {
		return reportTable([]string{"Source", "Value", "Column", "Row", "Action"}, len(cs), func(i int) []any {
			c := cs[i]
			return []any{c.Source, c.Value, c.Column, float64(c.RowIndex), c.Action}
		})
	}
	anomalies := reportTable([]string{"Row", "Unit of Measure", "Product", "BOM Line", "Issue", "Missing"}, len(res.UoMAnomalies), func(i int) []any {
		a := res.UoMAnomalies[i]
		return []any{float64(a.RowIndex), a.UoM, a.Product, a.BOMLine, a.Issue, a.FieldsMissing}
	})
	return []workbook.Sheet{
		{Name: "Mismatches", Table: pool},
		{Name: "Items", Table: classified(res.Items)},
		{Name: "Single Products", Table: classified(res.SingleProducts)},
		{Name: "UoM Anomalies", Table: anomalies},
	}
}

// ruleReportSheet lays rule violations out as a workbook sheet.
func ruleReportSheet(entries []validate.Entry) workbook.Sheet {
	t := reportTable([]string{"File", "Column", "Rule", "Row", "Value", "Message"}, len(entries), func(i int) []any {
		e := entries[i]
		return []any{e.File, e.Column, e.Rule, float64(e.RowIndex), e.Value, e.Message}
	})
	return workbook.Sheet{Name: "Rule Violations", Table: t}
}
