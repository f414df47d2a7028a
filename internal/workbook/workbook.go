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

// Package workbook reads spreadsheet files into tables and writes tables
// back out as xlsx workbooks.
package workbook

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/spraygospel/BoQ-Excel-Converter/internal/table"
)

// ErrUnsupportedFormat is returned for file extensions no extractor reads.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Range selects the part of a sheet holding the table. Rows and columns are
// 1-based; zero means the default noted on each field.
type Range struct {
	// Sheet defaults to the first sheet.
	Sheet string `mapstructure:"sheet"`
	// HeaderRow defaults to 1.
	HeaderRow int `mapstructure:"header_row"`
	// DataStart defaults to the row after HeaderRow.
	DataStart int `mapstructure:"data_start"`
	// DataEnd defaults to the last used row.
	DataEnd int `mapstructure:"data_end"`
	// FirstCol defaults to 1.
	FirstCol int `mapstructure:"first_col"`
	// LastCol defaults to the last used column.
	LastCol int `mapstructure:"last_col"`
}

// Metadata describes where a table was read from.
type Metadata struct {
	Source    string `json:"source"`
	Sheet     string `json:"sheet,omitempty"`
	HeaderRow int    `json:"header_row"`
	DataStart int    `json:"data_start"`
	DataEnd   int    `json:"data_end"`
	FirstCol  int    `json:"first_col"`
	LastCol   int    `json:"last_col"`
	MaxRow    int    `json:"max_row"`
	MaxCol    int    `json:"max_col"`
}

// Extractor reads one table from a source.
type Extractor interface {
	Extract(ctx context.Context) (*table.Table, Metadata, error)
}

// ExtractionError reports a failure reading a source.
type ExtractionError struct {
	Source string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract %s: %v", e.Source, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// New picks an extractor from the file extension.
func New(path string, r Range, logger *zap.Logger) (Extractor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return &ExcelExtractor{Path: path, Range: r, Logger: logger}, nil
	case ".csv":
		return &CSVExtractor{Path: path, Range: r, Logger: logger}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// resolve fills the defaults of r for a sheet with maxRow rows and maxCol
// columns.
func (r Range) resolve(maxRow, maxCol int) (Range, error) {
	if r.HeaderRow == 0 {
		r.HeaderRow = 1
	}
	if r.DataStart == 0 {
		r.DataStart = r.HeaderRow + 1
	}
	if r.DataEnd == 0 || r.DataEnd > maxRow {
		r.DataEnd = maxRow
	}
	if r.FirstCol == 0 {
		r.FirstCol = 1
	}
	if r.LastCol == 0 {
		r.LastCol = maxCol
	}
	if r.HeaderRow < 0 || r.DataStart < 0 || r.FirstCol < 0 || r.LastCol < 0 || r.DataEnd < 0 {
		return r, &table.InvalidConfigurationError{Msg: fmt.Sprintf("negative range bound in %+v", r)}
	}
	if r.LastCol < r.FirstCol {
		return r, &table.InvalidConfigurationError{Msg: fmt.Sprintf("last column %d before first column %d", r.LastCol, r.FirstCol)}
	}
	return r, nil
}

// cellConverter turns the raw text of the cell at row, col into a table cell.
type cellConverter func(row, col int, raw string) any

func parseCell(_, _ int, raw string) any { return table.ParseValue(raw) }

// build turns a grid of raw text cells into a table. grid[i][j] is row i+1,
// column j+1; rows may be ragged.
func build(ctx context.Context, grid [][]string, r Range, convert cellConverter) (*table.Table, error) {
	cell := func(row, col int) string {
		if row < 1 || row > len(grid) || col < 1 || col > len(grid[row-1]) {
			return ""
		}
		return grid[row-1][col-1]
	}

	headers := make([]string, 0, r.LastCol-r.FirstCol+1)
	for c := r.FirstCol; c <= r.LastCol; c++ {
		h := strings.TrimSpace(cell(r.HeaderRow, c))
		if h == "" {
			h = fmt.Sprintf("Column_%d", c)
		}
		headers = append(headers, h)
	}

	b := table.NewBuilder(table.Empty(headers...))
	values := make([]any, len(headers))
	for row := r.DataStart; row <= r.DataEnd; row++ {
		if row%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		for k := range values {
			col := r.FirstCol + k
			values[k] = convert(row, col, cell(row, col))
		}
		b.AppendRow(values...)
	}
	return b.Table(), nil
}

func dims(grid [][]string) (rows, cols int) {
	for _, r := range grid {
		if len(r) > cols {
			cols = len(r)
		}
	}
	return len(grid), cols
}
