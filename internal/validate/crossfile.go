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
	"fmt"
	"strings"

	"github.com/spraygospel/BoQ-Excel-Converter/internal/table"
)

// Report rule names produced by MatchValues.
const (
	RuleColumnExists   = "column_exists"
	RuleCrossFileMatch = "cross_file_match"
	RuleUnmatchedValue = "unmatched_value"
)

// MatchOptions names the columns compared by MatchValues.
type MatchOptions struct {
	FirstColumn   string
	SecondColumn  string
	CaseSensitive bool
	FirstLabel    string
	SecondLabel   string
}

// MatchReport is the outcome of comparing two columns.
type MatchReport struct {
	Matched bool
	// FirstUnmatched holds normalised values of the first column missing
	// from the second, in first-appearance order.
	FirstUnmatched  []string
	SecondUnmatched []string
	Entries         []Entry
}

// CrossFileValidator compares values between two tables.
type CrossFileValidator struct {
	Severity Severity
}

// MatchValues compares the distinct non-empty values of two columns. Values
// are lower-cased unless CaseSensitive is set.
func (v CrossFileValidator) MatchValues(first, second *table.Table, opts MatchOptions) (MatchReport, error) {
	if err := v.Severity.check(); err != nil {
		return MatchReport{}, err
	}
	if opts.FirstLabel == "" {
		opts.FirstLabel = "first"
	}
	if opts.SecondLabel == "" {
		opts.SecondLabel = "second"
	}

	for _, side := range []struct {
		t     *table.Table
		col   string
		label string
	}{{first, opts.FirstColumn, opts.FirstLabel}, {second, opts.SecondColumn, opts.SecondLabel}} {
		if side.t.HasColumn(side.col) {
			continue
		}
		if v.Severity == SeverityFail {
			return MatchReport{}, &table.ColumnNotFoundError{Columns: []string{side.col}, Context: side.label}
		}
		return MatchReport{Entries: []Entry{{
			Column:   side.col,
			Rule:     RuleColumnExists,
			File:     side.label,
			Message:  fmt.Sprintf("column %q not found in %s", side.col, side.label),
			RowIndex: NoRow,
			Status:   StatusError,
		}}}, nil
	}

	a := distinctValues(first, opts.FirstColumn, opts.CaseSensitive)
	b := distinctValues(second, opts.SecondColumn, opts.CaseSensitive)
	rep := MatchReport{
		FirstUnmatched:  missingFrom(a, b),
		SecondUnmatched: missingFrom(b, a),
	}
	rep.Matched = len(rep.FirstUnmatched) == 0 && len(rep.SecondUnmatched) == 0

	summary := Entry{
		Column:   opts.FirstColumn + "/" + opts.SecondColumn,
		Rule:     RuleCrossFileMatch,
		File:     opts.FirstLabel + "/" + opts.SecondLabel,
		RowIndex: NoRow,
		Status:   StatusSuccess,
		Message:  "data matches between files",
	}
	if !rep.Matched {
		summary.Status = StatusError
		summary.Message = "data does not match between files"
	}
	rep.Entries = append(rep.Entries, summary)
	for _, val := range rep.FirstUnmatched {
		rep.Entries = append(rep.Entries, unmatched(val, opts.FirstLabel, opts.FirstColumn, opts.SecondLabel, opts.SecondColumn))
	}
	for _, val := range rep.SecondUnmatched {
		rep.Entries = append(rep.Entries, unmatched(val, opts.SecondLabel, opts.SecondColumn, opts.FirstLabel, opts.FirstColumn))
	}

	if !rep.Matched && v.Severity == SeverityFail {
		return rep, &ValidationFailure{
			Msg: fmt.Sprintf("%d values from %s.%s and %d values from %s.%s are unmatched",
				len(rep.FirstUnmatched), opts.FirstLabel, opts.FirstColumn,
				len(rep.SecondUnmatched), opts.SecondLabel, opts.SecondColumn),
			Report: rep.Entries,
		}
	}
	if v.Severity == SeverityIgnore {
		rep.Entries = nil
	}
	return rep, nil
}

func unmatched(val, label, col, otherLabel, otherCol string) Entry {
	return Entry{
		Column:   col,
		Rule:     RuleUnmatchedValue,
		File:     label,
		Message:  fmt.Sprintf("value '%s' in %s.%s has no match in %s.%s", val, label, col, otherLabel, otherCol),
		RowIndex: NoRow,
		Value:    val,
		Status:   StatusError,
	}
}

func distinctValues(t *table.Table, col string, caseSensitive bool) []string {
	j := t.ColumnIndex(col)
	seen := map[string]bool{}
	var out []string
	for i := 0; i < t.Len(); i++ {
		v := t.At(i, j)
		if v == nil {
			continue
		}
		s := table.Text(v)
		if !caseSensitive {
			s = strings.ToLower(s)
		}
		if strings.TrimSpace(s) == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func missingFrom(values, other []string) []string {
	set := make(map[string]bool, len(other))
	for _, o := range other {
		set[o] = true
	}
	var out []string
	for _, v := range values {
		if !set[v] {
			out = append(out, v)
		}
	}
	return out
}
