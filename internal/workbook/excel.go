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
package workbook

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/spraygospel/BoQ-Excel-Converter/internal/table"
)

// ExcelExtractor reads a table from an xlsx workbook. Cells are read with
// their cached values, so formulas yield their last computed result.
type ExcelExtractor struct {
	Path   string
	Range  Range
	Logger *zap.Logger
}

// Extract reads the configured range of the sheet.
func (e *ExcelExtractor) Extract(ctx context.Context) (*table.Table, Metadata, error) {
	logger := e.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := ctx.Err(); err != nil {
		return nil, Metadata{}, err
	}

	f, err := excelize.OpenFile(e.Path)
	if err != nil {
		return nil, Metadata{}, &ExtractionError{Source: e.Path, Err: err}
	}
	defer f.Close()

	sheet := e.Range.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, Metadata{}, &ExtractionError{Source: e.Path, Err: fmt.Errorf("workbook has no sheets")}
		}
		sheet = sheets[0]
	}
	grid, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, Metadata{}, &ExtractionError{Source: e.Path, Err: fmt.Errorf("sheet %q: %w", sheet, err)}
	}

	maxRow, maxCol := dims(grid)
	meta := Metadata{Source: e.Path, Sheet: sheet, MaxRow: maxRow, MaxCol: maxCol}
	if maxCol == 0 && e.Range.LastCol == 0 {
		logger.Warn("sheet is empty", zap.String("path", e.Path), zap.String("sheet", sheet))
		return table.Empty(), meta, nil
	}
	r, err := e.Range.resolve(maxRow, maxCol)
	if err != nil {
		return nil, meta, err
	}
	meta.HeaderRow, meta.DataStart, meta.DataEnd = r.HeaderRow, r.DataStart, r.DataEnd
	meta.FirstCol, meta.LastCol = r.FirstCol, r.LastCol

	t, err := build(ctx, grid, r, textAware(f, sheet))
	if err != nil {
		return nil, meta, err
	}
	logger.Debug("extracted sheet",
		zap.String("path", e.Path),
		zap.String("sheet", sheet),
		zap.Int("header_row", r.HeaderRow),
		zap.Int("data_start", r.DataStart),
		zap.Int("data_end", r.DataEnd),
		zap.Int("rows", t.Len()),
		zap.Int("columns", t.Width()),
	)
	return t, meta, nil
}

// textAware keeps text cells as strings even when they look numeric, so
// codes like "0012" survive. Other cells are parsed.
func textAware(f *excelize.File, sheet string) cellConverter {
	return func(row, col int, raw string) any {
		v := table.ParseValue(raw)
		if _, numeric := v.(float64); !numeric {
			return v
		}
		name, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return v
		}
		switch typ, err := f.GetCellType(sheet, name); {
		case err != nil:
			return v
		case typ == excelize.CellTypeSharedString, typ == excelize.CellTypeInlineString, typ == excelize.CellTypeFormula:
			return raw
		default:
			return v
		}
	}
}
