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
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/spraygospel/BoQ-Excel-Converter/internal/table"
)

func TestNew(t *testing.T) {
	tests := []struct {
		path    string
		want    any
		wantErr bool
	}{
		{"boq.xlsx", &ExcelExtractor{}, false},
		{"BOQ.XLSM", &ExcelExtractor{}, false},
		{"so.csv", &CSVExtractor{}, false},
		{"legacy.xls", nil, true},
		{"notes.txt", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			ex, err := New(tt.path, Range{}, nil)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrUnsupportedFormat))
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, ex)
		})
	}
}

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "boq.xlsx")
	f := excelize.NewFile()
	defer f.Close()
	cells := map[string]any{
		"A1": "Quotation",
		"A2": "No", "B2": "Description", "D2": "Qty.",
		"A3": 1, "B3": "Switch", "C3": "0012", "D3": 2.5,
		"A4": 2, "B4": "Cable", "D4": 10,
		"A5": "Total", "D5": 12.5,
	}
	for cell, v := range cells {
		require.NoError(t, f.SetCellValue("Sheet1", cell, v))
	}
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestExcelExtract(t *testing.T) {
	path := writeFixture(t)

	ex := &ExcelExtractor{Path: path, Range: Range{HeaderRow: 2, DataEnd: 4}}
	got, meta, err := ex.Extract(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"No", "Description", "Column_3", "Qty."}, got.Columns())
	require.Equal(t, 2, got.Len())
	assert.Equal(t, []any{1.0, "Switch", "0012", 2.5}, got.Row(0))
	assert.Equal(t, []any{2.0, "Cable", nil, 10.0}, got.Row(1))

	assert.Equal(t, "Sheet1", meta.Sheet)
	assert.Equal(t, 3, meta.DataStart)
	assert.Equal(t, 4, meta.DataEnd)
	assert.Equal(t, 5, meta.MaxRow)
	assert.Equal(t, 4, meta.MaxCol)
}

func TestExcelExtractColumnBounds(t *testing.T) {
	path := writeFixture(t)

	ex := &ExcelExtractor{Path: path, Range: Range{HeaderRow: 2, FirstCol: 2, LastCol: 2}}
	got, _, err := ex.Extract(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Description"}, got.Columns())
	col, err := got.Column("Description")
	require.NoError(t, err)
	assert.Equal(t, []any{"Switch", "Cable", nil}, col)
}

func TestExcelExtractErrors(t *testing.T) {
	path := writeFixture(t)

	_, _, err := (&ExcelExtractor{Path: path, Range: Range{Sheet: "Missing"}}).Extract(context.Background())
	var ee *ExtractionError
	assert.True(t, errors.As(err, &ee))

	_, _, err = (&ExcelExtractor{Path: filepath.Join(t.TempDir(), "nope.xlsx")}).Extract(context.Background())
	assert.True(t, errors.As(err, &ee))

	_, _, err = (&ExcelExtractor{Path: path, Range: Range{FirstCol: 3, LastCol: 2}}).Extract(context.Background())
	var cfg *table.InvalidConfigurationError
	assert.True(t, errors.As(err, &cfg))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = (&ExcelExtractor{Path: path}).Extract(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadCSV(t *testing.T) {
	in := "Product,,BOM Line\nKit A,x,Switch\n,,\nKit B,y,\"Cable, Cat6\"\n"

	got, meta, err := ReadCSV(context.Background(), strings.NewReader(in), Range{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Product", "Column_2", "BOM Line"}, got.Columns())
	assert.Equal(t, 3, got.Len())
	assert.Equal(t, []any{nil, nil, nil}, got.Row(1))
	assert.Equal(t, "Cable, Cat6", got.Value(2, "BOM Line"))
	assert.Equal(t, 4, meta.DataEnd)

	got, _, err = ReadCSV(context.Background(), strings.NewReader(""), Range{})
	require.NoError(t, err)
	assert.Equal(t, 0, got.Width())
}

func TestWriteXLSXRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "bom.xlsx")
	bom := table.New([]string{"Sequence", "Product", "Quantity"}, [][]any{
		{1, "Kit A", 1.0},
		{nil, "", nil},
	})
	notes := table.New([]string{"Message"}, [][]any{{"ok"}})

	require.NoError(t, WriteXLSX(path, Sheet{Name: "BOM", Table: bom}, Sheet{Name: "Notes", Table: notes}))

	got, _, err := (&ExcelExtractor{Path: path, Range: Range{Sheet: "BOM"}}).Extract(context.Background())
	require.NoError(t, err)
	assert.Equal(t, bom.Columns(), got.Columns())
	assert.Equal(t, []any{1.0, "Kit A", 1.0}, got.Row(0))

	got, _, err = (&ExcelExtractor{Path: path, Range: Range{Sheet: "Notes"}}).Extract(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", got.Value(0, "Message"))

	assert.Error(t, WriteXLSX(path))
}
