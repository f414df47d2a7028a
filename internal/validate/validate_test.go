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
package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spraygospel/BoQ-Excel-Converter/internal/table"
)

func sample() *table.Table {
	return table.New([]string{"Product", "Qty.", "VN"}, [][]any{
		{"Switch", 2, "yes"},
		{"", "-1", "no"},
		{"Cable", "abc", "maybe"},
	})
}

func TestDataValidatorRules(t *testing.T) {
	tests := []struct {
		name     string
		rule     Rule
		column   string
		wantRows []int
	}{
		{"not null", Rule{Type: NotNull}, "Product", []int{1}},
		{"min value", Rule{Type: MinValue, Value: 0}, "Qty.", []int{1, 2}},
		{"max value", Rule{Type: MaxValue, Value: 1}, "Qty.", []int{0, 2}},
		{"regex anchored at start", Rule{Type: Regex, Pattern: "[A-Z]"}, "Product", []int{1}},
		{"in list", Rule{Type: InList, Values: []any{"yes", "no"}}, "VN", []int{2}},
		{"empty regex is skipped", Rule{Type: Regex}, "Product", nil},
		{
			"custom",
			Rule{Type: Custom, Func: func(v any) (bool, error) { return strings.HasPrefix(table.Text(v), "S"), nil }},
			"Product",
			[]int{1, 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := DataValidator{Severity: SeverityWarn, Rules: []ColumnRules{{Column: tt.column, Rules: []Rule{tt.rule}}}}
			report, err := v.Validate(sample())
			require.NoError(t, err)
			var rows []int
			for _, e := range report {
				assert.Equal(t, StatusError, e.Status)
				assert.Equal(t, tt.column, e.Column)
				rows = append(rows, e.RowIndex)
			}
			assert.Equal(t, tt.wantRows, rows)
		})
	}
}

func TestDataValidatorSeverity(t *testing.T) {
	rules := []ColumnRules{
		{Column: "Product", Rules: []Rule{{Type: NotNull, Message: "product required"}}},
	}

	report, err := DataValidator{Rules: rules, Severity: SeverityWarn}.Validate(sample())
	require.NoError(t, err)
	require.Len(t, report, 1)
	assert.Equal(t, "product required", report[0].Message)

	report, err = DataValidator{Rules: rules, Severity: SeverityIgnore}.Validate(sample())
	require.NoError(t, err)
	assert.Empty(t, report)

	_, err = DataValidator{Rules: rules, Severity: SeverityFail}.Validate(sample())
	var vf *ValidationFailure
	require.True(t, errors.As(err, &vf))
	assert.Len(t, vf.Report, 1)
	assert.Equal(t, 1, vf.Report[0].RowIndex)

	_, err = DataValidator{Rules: rules, Severity: "loud"}.Validate(sample())
	var cfg *table.InvalidConfigurationError
	assert.True(t, errors.As(err, &cfg))
}

func TestDataValidatorMissingColumn(t *testing.T) {
	rules := []ColumnRules{{Column: "Price", Rules: []Rule{{Type: NotNull}}}}

	report, err := DataValidator{Rules: rules, Severity: SeverityWarn}.Validate(sample())
	require.NoError(t, err)
	require.Len(t, report, 1)
	assert.Equal(t, "column_exists", report[0].Rule)
	assert.Equal(t, NoRow, report[0].RowIndex)

	_, err = DataValidator{Rules: rules, Severity: SeverityFail}.Validate(sample())
	var nf *table.ColumnNotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestDataValidatorCustomError(t *testing.T) {
	boom := errors.New("boom")
	rules := []ColumnRules{{Column: "Product", Rules: []Rule{{Type: Custom, Func: func(any) (bool, error) { return false, boom }}}}}

	report, err := DataValidator{Rules: rules, Severity: SeverityWarn}.Validate(sample())
	require.NoError(t, err)
	require.Len(t, report, 1)
	assert.Contains(t, report[0].Message, "boom")

	_, err = DataValidator{Rules: rules, Severity: SeverityFail}.Validate(sample())
	assert.ErrorIs(t, err, boom)
}

func TestMatchValues(t *testing.T) {
	boq := table.New([]string{"Description"}, [][]any{{"Widget A"}, {"Category Header"}, {nil}, {"widget a"}})
	so := table.New([]string{"BOM Line"}, [][]any{{"widget a"}, {" "}, {"Extra"}})
	opts := MatchOptions{FirstColumn: "Description", SecondColumn: "BOM Line", FirstLabel: "BoQ", SecondLabel: "Convert to SO"}

	rep, err := CrossFileValidator{Severity: SeverityWarn}.MatchValues(boq, so, opts)
	require.NoError(t, err)
	assert.False(t, rep.Matched)
	assert.Equal(t, []string{"category header"}, rep.FirstUnmatched)
	assert.Equal(t, []string{"extra"}, rep.SecondUnmatched)
	require.Len(t, rep.Entries, 3)
	assert.Equal(t, RuleCrossFileMatch, rep.Entries[0].Rule)
	assert.Equal(t, "BoQ", rep.Entries[1].File)
	assert.Equal(t, "Convert to SO", rep.Entries[2].File)

	opts.CaseSensitive = true
	rep, err = CrossFileValidator{Severity: SeverityWarn}.MatchValues(boq, so, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"Widget A", "Category Header"}, rep.FirstUnmatched)

	_, err = CrossFileValidator{Severity: SeverityFail}.MatchValues(boq, so, MatchOptions{FirstColumn: "Description", SecondColumn: "BOM Line"})
	var vf *ValidationFailure
	assert.True(t, errors.As(err, &vf))
}

func TestMatchValuesMissingColumn(t *testing.T) {
	a := table.New([]string{"x"}, nil)
	b := table.New([]string{"y"}, nil)

	rep, err := CrossFileValidator{Severity: SeverityWarn}.MatchValues(a, b, MatchOptions{FirstColumn: "x", SecondColumn: "z", SecondLabel: "SO"})
	require.NoError(t, err)
	assert.False(t, rep.Matched)
	require.Len(t, rep.Entries, 1)
	assert.Equal(t, RuleColumnExists, rep.Entries[0].Rule)
	assert.Equal(t, "SO", rep.Entries[0].File)

	_, err = CrossFileValidator{Severity: SeverityFail}.MatchValues(a, b, MatchOptions{FirstColumn: "x", SecondColumn: "z"})
	var nf *table.ColumnNotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestReadRules(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
		check   func(t *testing.T, v DataValidator)
	}{
		{
			name: "full file",
			yaml: `
severity: fail
columns:
  - column: Qty.
    rules:
      - type: min_value
        value: 1
      - type: in_list
        values: [1, 2, "three"]
`,
			check: func(t *testing.T, v DataValidator) {
				assert.Equal(t, SeverityFail, v.Severity)
				require.Len(t, v.Rules, 1)
				assert.Equal(t, 1.0, v.Rules[0].Rules[0].Value)
				assert.Len(t, v.Rules[0].Rules[1].Values, 3)
			},
		},
		{
			name:  "defaults to warn",
			yaml:  "columns: []\n",
			check: func(t *testing.T, v DataValidator) { assert.Equal(t, SeverityWarn, v.Severity) },
		},
		{name: "custom rejected", yaml: "columns:\n  - column: a\n    rules:\n      - type: custom\n", wantErr: true},
		{name: "bad severity", yaml: "severity: loud\n", wantErr: true},
		{name: "missing column name", yaml: "columns:\n  - rules: []\n", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ReadRules(strings.NewReader(tt.yaml))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, v)
		})
	}
}
