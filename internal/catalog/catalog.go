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

// Package catalog talks to the back-office product catalog. Models use the
// dotted catalog names ("product.product"); the SQL connector maps them to
// tables ("product_product").
package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Criterion operators.
const (
	OpEq   = "="
	OpNe   = "!="
	OpGt   = ">"
	OpGte  = ">="
	OpLt   = "<"
	OpLte  = "<="
	OpIn   = "in"
	OpLike = "like"
)

// Criterion is one condition of a search domain. All criteria of a search
// must hold.
type Criterion struct {
	Field string
	Op    string
	Value any
}

// Eq builds an equality criterion.
func Eq(field string, v any) Criterion { return Criterion{Field: field, Op: OpEq, Value: v} }

// In builds a membership criterion.
func In[T any](field string, values []T) Criterion {
	vs := make([]any, len(values))
	for i, v := range values {
		vs[i] = v
	}
	return Criterion{Field: field, Op: OpIn, Value: vs}
}

// Gt builds a greater-than criterion.
func Gt(field string, v any) Criterion { return Criterion{Field: field, Op: OpGt, Value: v} }

// Record is a catalog row keyed by field name.
type Record map[string]any

// Int returns the field as an integer id.
func (r Record) Int(field string) (int64, bool) {
	switch v := r[field].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case float64:
		return int64(v), v == float64(int64(v))
	case []byte:
		n, err := strconv.ParseInt(string(v), 10, 64)
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// Float returns the field as a number. Numeric columns some drivers return as
// text are parsed.
func (r Record) Float(field string) (float64, bool) {
	switch v := r[field].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	case []byte:
		f, err := strconv.ParseFloat(string(v), 64)
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// String returns the field as text; nil renders as "".
func (r Record) String(field string) string {
	switch v := r[field].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// Reader is the read side of the catalog.
type Reader interface {
	// Find returns the ids of the records matching every criterion.
	Find(ctx context.Context, model string, criteria []Criterion) ([]int64, error)
	// Fetch returns the records with the given ids. No fields means all.
	Fetch(ctx context.Context, model string, ids []int64, fields ...string) ([]Record, error)
	// SearchRead combines Find and Fetch.
	SearchRead(ctx context.Context, model string, criteria []Criterion, fields ...string) ([]Record, error)
}

// Writer is the write side of the catalog.
type Writer interface {
	// Upsert updates the record matching its "id" field, or creates it when
	// the record carries no id. It returns the record id.
	Upsert(ctx context.Context, model string, rec Record) (int64, error)
	// UpsertBatch writes every record and reports failures per record. A
	// failing record never stops the rest of the batch.
	UpsertBatch(ctx context.Context, model string, recs []Record) (BatchResult, error)
}

// Connector is a full catalog connection.
type Connector interface {
	Reader
	Writer
	Close() error
}

// BatchFailure is a record that could not be written.
type BatchFailure struct {
	Index  int
	Record Record
	Err    error
}

// BatchResult reports the outcome of UpsertBatch. IDs holds one entry per
// input record; failed records get 0.
type BatchResult struct {
	IDs      []int64
	Failures []BatchFailure
}

// OK reports whether every record was written.
func (b BatchResult) OK() bool { return len(b.Failures) == 0 }
