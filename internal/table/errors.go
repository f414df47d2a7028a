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
package table

import (
	"fmt"
	"strings"
)

// ColumnNotFoundError is returned when a required column is absent.
type ColumnNotFoundError struct {
	Columns []string
	Context string
}

// ColumnAlreadyExistsError is returned when adding a column that is present.
type ColumnAlreadyExistsError struct {
	Column string
}

// InvalidConfigurationError reports malformed operation options.
type InvalidConfigurationError struct {
	Msg string
	Err error
}

// InvalidCustomOrderError is returned when a value is missing from a custom
// sort order.
type InvalidCustomOrderError struct {
	Column string
	Value  any
}

func (e *ColumnNotFoundError) Error() string {
	quoted := make([]string, len(e.Columns))
	for i, c := range e.Columns {
		quoted[i] = fmt.Sprintf("%q", c)
	}
	if e.Context != "" {
		return fmt.Sprintf("column not found in %s: %s", e.Context, strings.Join(quoted, ", "))
	}
	return fmt.Sprintf("column not found: %s", strings.Join(quoted, ", "))
}

func (e *ColumnAlreadyExistsError) Error() string {
	return fmt.Sprintf("column already exists: %q", e.Column)
}

func (e *InvalidConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid configuration: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("invalid configuration: %s", e.Msg)
}

func (e *InvalidConfigurationError) Unwrap() error {
	return e.Err
}

func (e *InvalidCustomOrderError) Error() string {
	return fmt.Sprintf("invalid custom order: value %q of column %q is not in the order list", Text(e.Value), e.Column)
}

// requireColumns returns a ColumnNotFoundError naming every absent column.
func (t *Table) requireColumns(context string, names ...string) error {
	var missing []string
	for _, n := range names {
		if !t.HasColumn(n) {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return &ColumnNotFoundError{Columns: missing, Context: context}
	}
	return nil
}

// RequireColumns is the exported form of requireColumns for other packages.
func (t *Table) RequireColumns(context string, names ...string) error {
	return t.requireColumns(context, names...)
}
