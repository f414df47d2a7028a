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
	"encoding/csv"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/spraygospel/BoQ-Excel-Converter/internal/table"
)

// CSVExtractor reads a table from a UTF-8 CSV file. Range.Sheet is ignored.
type CSVExtractor struct {
	Path   string
	Range  Range
	Logger *zap.Logger
}

// Extract reads the configured rows of the file.
func (e *CSVExtractor) Extract(ctx context.Context) (*table.Table, Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, Metadata{}, err
	}
	f, err := os.Open(e.Path)
	if err != nil {
		return nil, Metadata{}, &ExtractionError{Source: e.Path, Err: err}
	}
	defer f.Close()

	t, meta, err := ReadCSV(ctx, f, e.Range)
	if err != nil {
		return nil, meta, &ExtractionError{Source: e.Path, Err: err}
	}
	meta.Source = e.Path
	if e.Logger != nil {
		e.Logger.Debug("extracted csv", zap.String("path", e.Path), zap.Int("rows", t.Len()), zap.Int("columns", t.Width()))
	}
	return t, meta, nil
}

// ReadCSV reads a table from r using the same range rules as the Excel
// extractor.
func ReadCSV(ctx context.Context, r io.Reader, rng Range) (*table.Table, Metadata, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	grid, err := cr.ReadAll()
	if err != nil {
		return nil, Metadata{}, err
	}
	maxRow, maxCol := dims(grid)
	meta := Metadata{MaxRow: maxRow, MaxCol: maxCol}
	if maxCol == 0 && rng.LastCol == 0 {
		return table.Empty(), meta, nil
	}
	rng, err = rng.resolve(maxRow, maxCol)
	if err != nil {
		return nil, meta, err
	}
	meta.HeaderRow, meta.DataStart, meta.DataEnd = rng.HeaderRow, rng.DataStart, rng.DataEnd
	meta.FirstCol, meta.LastCol = rng.FirstCol, rng.LastCol
	t, err := build(ctx, grid, rng, parseCell)
	return t, meta, err
}
