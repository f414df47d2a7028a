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

// Package validate checks tables against business rules and compares key
// columns across two tables.
package validate

import (
	"fmt"
	"regexp"

	"github.com/spraygospel/BoQ-Excel-Converter/internal/table"
)

// Severity decides what happens to a non-empty report.
type Severity string

const (
	// SeverityFail returns a *ValidationFailure carrying the report.
	SeverityFail Severity = "fail"
	// SeverityWarn returns the report with a nil error.
	SeverityWarn Severity = "warn"
	// SeverityIgnore runs the checks and returns an empty report.
	SeverityIgnore Severity = "ignore"
)

func (s Severity) check() error {
	switch s {
	case SeverityFail, SeverityWarn, SeverityIgnore:
		return nil
	}
	return &table.InvalidConfigurationError{Msg: fmt.Sprintf("severity must be fail, warn or ignore, got %q", s)}
}

// RuleKind names a rule.
type RuleKind string

// Rule kinds.
const (
	NotNull  RuleKind = "not_null"
	MinValue RuleKind = "min_value"
	MaxValue RuleKind = "max_value"
	Regex    RuleKind = "regex"
	InList   RuleKind = "in_list"
	Custom   RuleKind = "custom"
)

// Status values of a report entry.
const (
	StatusError   = "error"
	StatusSuccess = "success"
)

// NoRow marks an entry that is not tied to a row.
const NoRow = -1

// Rule is one check applied to every cell of a column.
type Rule struct {
	Type    RuleKind `yaml:"type" json:"type"`
	Value   float64  `yaml:"value" json:"value"`
	Pattern string   `yaml:"pattern" json:"pattern"`
	Values  []any    `yaml:"values" json:"values"`
	Message string   `yaml:"message" json:"message"`
	// Func backs Custom rules. It reports whether the value is valid.
	Func func(v any) (bool, error) `yaml:"-" json:"-"`
}

// ColumnRules binds rules to a column.
type ColumnRules struct {
	Column string `yaml:"column"`
	Rules  []Rule `yaml:"rules"`
}

// Entry is one line of a validation report.
type Entry struct {
	Column   string `json:"column"`
	Rule     string `json:"rule"`
	File     string `json:"file,omitempty"`
	Message  string `json:"message"`
	RowIndex int    `json:"row_index"`
	Value    any    `json:"value"`
	Status   string `json:"status"`
}

// DataValidator applies column rules to a table.
type DataValidator struct {
	Rules    []ColumnRules
	Severity Severity
}

// Validate checks every rule and returns the full report. The input table is
// not modified.
func (v DataValidator) Validate(t *table.Table) ([]Entry, error) {
	if err := v.Severity.check(); err != nil {
		return nil, err
	}

	var report []Entry
	for _, cr := range v.Rules {
		j := t.ColumnIndex(cr.Column)
		if j < 0 {
			switch v.Severity {
			case SeverityFail:
				return nil, &table.ColumnNotFoundError{Columns: []string{cr.Column}, Context: "validation"}
			case SeverityWarn:
				report = append(report, Entry{
					Column:   cr.Column,
					Rule:     "column_exists",
					Message:  fmt.Sprintf("column %q not found", cr.Column),
					RowIndex: NoRow,
					Status:   StatusError,
				})
			}
			continue
		}
		for _, r := range cr.Rules {
			entries, err := v.apply(t, j, cr.Column, r)
			if err != nil {
				return nil, err
			}
			report = append(report, entries...)
		}
	}

	switch {
	case v.Severity == SeverityIgnore:
		return nil, nil
	case v.Severity == SeverityFail && len(report) > 0:
		return nil, &ValidationFailure{Msg: fmt.Sprintf("%d rule violations", len(report)), Report: report}
	}
	return report, nil
}

func (v DataValidator) apply(t *table.Table, j int, col string, r Rule) ([]Entry, error) {
	var invalid func(val any) bool
	msg := r.Message
	switch r.Type {
	case NotNull:
		invalid = table.IsEmpty
		if msg == "" {
			msg = fmt.Sprintf("value must not be empty in column %q", col)
		}
	case MinValue:
		invalid = func(val any) bool {
			n, ok := table.Number(val)
			return !ok || n < r.Value
		}
		if msg == "" {
			msg = fmt.Sprintf("value must be >= %v in column %q", r.Value, col)
		}
	case MaxValue:
		invalid = func(val any) bool {
			n, ok := table.Number(val)
			return !ok || n > r.Value
		}
		if msg == "" {
			msg = fmt.Sprintf("value must be <= %v in column %q", r.Value, col)
		}
	case Regex:
		if r.Pattern == "" {
			return nil, nil
		}
		re, err := regexp.Compile(`^(?:` + r.Pattern + `)`)
		if err != nil {
			return nil, &table.InvalidConfigurationError{Msg: fmt.Sprintf("regex rule for column %q", col), Err: err}
		}
		invalid = func(val any) bool { return !re.MatchString(table.Text(val)) }
		if msg == "" {
			msg = fmt.Sprintf("value does not match pattern in column %q", col)
		}
	case InList:
		if len(r.Values) == 0 {
			return nil, nil
		}
		allowed := make([]any, len(r.Values))
		for i, a := range r.Values {
			allowed[i] = table.Normalize(a)
		}
		invalid = func(val any) bool {
			for _, a := range allowed {
				if table.Equal(val, a) {
					return false
				}
			}
			return true
		}
		if msg == "" {
			msg = fmt.Sprintf("value must be one of %v in column %q", r.Values, col)
		}
	case Custom:
		if r.Func == nil {
			return nil, nil
		}
		return v.applyCustom(t, j, col, r)
	default:
		return nil, &table.InvalidConfigurationError{Msg: fmt.Sprintf("unknown rule type %q for column %q", r.Type, col)}
	}

	var out []Entry
	for i := 0; i < t.Len(); i++ {
		val := t.At(i, j)
		if !invalid(val) {
			continue
		}
		e := Entry{Column: col, Rule: string(r.Type), Message: msg, RowIndex: i, Value: val, Status: StatusError}
		if r.Type == NotNull {
			e.Value = nil
		}
		out = append(out, e)
	}
	return out, nil
}

func (v DataValidator) applyCustom(t *table.Table, j int, col string, r Rule) ([]Entry, error) {
	msg := r.Message
	if msg == "" {
		msg = fmt.Sprintf("custom validation failed in column %q", col)
	}
	var out []Entry
	for i := 0; i < t.Len(); i++ {
		val := t.At(i, j)
		ok, err := r.Func(val)
		if err != nil {
			if v.Severity == SeverityFail {
				return nil, fmt.Errorf("custom validation for column %q: %w", col, err)
			}
			// One error entry replaces the per-row results of this rule.
			return []Entry{{
				Column:   col,
				Rule:     string(Custom),
				Message:  fmt.Sprintf("custom validation error: %v", err),
				RowIndex: NoRow,
				Status:   StatusError,
			}}, nil
		}
		if !ok {
			out = append(out, Entry{Column: col, Rule: string(Custom), Message: msg, RowIndex: i, Value: val, Status: StatusError})
		}
	}
	return out, nil
}
