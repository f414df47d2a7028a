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
package catalog

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/spraygospel/BoQ-Excel-Converter/internal/database"
)

// IDField is the primary key of every catalog table.
const IDField = "id"

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// TableName maps a dotted model name to its table.
func TableName(model string) string {
	return strings.ReplaceAll(model, ".", "_")
}

// SQLConnector reads and writes catalog records directly in the catalog
// database.
type SQLConnector struct {
	db     *database.DB
	logger *zap.Logger
	retry  RetryOptions

	mu      sync.Mutex
	columns map[string]map[string]bool
}

var _ Connector = (*SQLConnector)(nil)

// Open connects to the catalog database. An unreachable database is reported
// as a single ErrConnection.
func Open(ctx context.Context, cfg database.Config, retry RetryOptions, logger *zap.Logger) (*SQLConnector, error) {
	if _, err := database.GetDialectHandler(cfg.Dialect); err != nil {
		return nil, &ErrInvalidInput{Msg: "catalog database", Err: err}
	}
	if retry.MaxAttempts == 0 {
		retry = DefaultRetryOptions
	}
	db, err := withRetry(ctx, retry, nopIfNil(logger), func(ctx context.Context) (*database.DB, error) {
		db, err := database.New(ctx, cfg)
		if err != nil {
			return nil, &ErrConnection{Msg: fmt.Sprintf("cannot reach %s catalog at %s", cfg.Dialect, cfg.Host), Err: err}
		}
		return db, nil
	})
	if err != nil {
		return nil, err
	}
	return NewSQLConnector(db, retry, logger), nil
}

// NewSQLConnector wraps an open database. Zero retry options mean
// DefaultRetryOptions.
func NewSQLConnector(db *database.DB, retry RetryOptions, logger *zap.Logger) *SQLConnector {
	if retry.MaxAttempts == 0 {
		retry = DefaultRetryOptions
	}
	return &SQLConnector{
		db:      db,
		logger:  nopIfNil(logger),
		retry:   retry,
		columns: make(map[string]map[string]bool),
	}
}

func nopIfNil(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// Close releases the database pool.
func (c *SQLConnector) Close() error {
	return c.db.Close()
}

// Models lists the catalog models present in the database.
func (c *SQLConnector) Models(ctx context.Context) ([]string, error) {
	return withRetry(ctx, c.retry, c.logger, func(ctx context.Context) ([]string, error) {
		tables, err := c.db.ListTables(ctx)
		if err != nil {
			return nil, classify("list tables", err)
		}
		return tables, nil
	})
}

// Find returns the ids of the records matching criteria, in id order.
func (c *SQLConnector) Find(ctx context.Context, model string, criteria []Criterion) ([]int64, error) {
	recs, err := c.SearchRead(ctx, model, criteria, IDField)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(recs))
	for _, r := range recs {
		if id, ok := r.Int(IDField); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Fetch returns the records with the given ids, in id order.
func (c *SQLConnector) Fetch(ctx context.Context, model string, ids []int64, fields ...string) ([]Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return c.SearchRead(ctx, model, []Criterion{In(IDField, ids)}, fields...)
}

// SearchRead returns the requested fields of the records matching criteria,
// in id order. No fields selects every column.
func (c *SQLConnector) SearchRead(ctx context.Context, model string, criteria []Criterion, fields ...string) ([]Record, error) {
	query, args, err := c.selectQuery(model, criteria, fields)
	if err != nil {
		return nil, err
	}
	return withRetry(ctx, c.retry, c.logger, func(ctx context.Context) ([]Record, error) {
		return c.query(ctx, model, query, args)
	})
}

func (c *SQLConnector) selectQuery(model string, criteria []Criterion, fields []string) (string, []any, error) {
	if err := checkFields(fields...); err != nil {
		return "", nil, err
	}
	cols := "*"
	if len(fields) > 0 {
		cols = database.JoinQuoted(fields, c.db.QuoteIdentifier)
	}
	where, args, err := c.where(criteria, 1)
	if err != nil {
		return "", nil, err
	}
	q := fmt.Sprintf("SELECT %s FROM %s", cols, c.db.QuoteIdentifier(TableName(model)))
	if where != "" {
		q += " WHERE " + where
	}
	q += " ORDER BY " + c.db.QuoteIdentifier(IDField)
	return q, args, nil
}

func (c *SQLConnector) query(ctx context.Context, model, query string, args []any) ([]Record, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify("search "+model, err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, classify("read columns of "+model, err)
	}
	var out []Record
	for rows.Next() {
		values := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, classify("scan "+model, err)
		}
		rec := make(Record, len(names))
		for i, n := range names {
			if b, ok := values[i].([]byte); ok {
				rec[n] = string(b)
			} else {
				rec[n] = values[i]
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate "+model, err)
	}
	return out, nil
}

// where renders criteria as a conjunction. Bind parameters are numbered from
// first.
func (c *SQLConnector) where(criteria []Criterion, first int) (string, []any, error) {
	var parts []string
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return c.db.Placeholder(first + len(args) - 1)
	}
	for _, cr := range criteria {
		if err := checkFields(cr.Field); err != nil {
			return "", nil, err
		}
		col := c.db.QuoteIdentifier(cr.Field)
		switch cr.Op {
		case OpEq, OpNe:
			if cr.Value == nil {
				if cr.Op == OpEq {
					parts = append(parts, col+" IS NULL")
				} else {
					parts = append(parts, col+" IS NOT NULL")
				}
				continue
			}
			op := "="
			if cr.Op == OpNe {
				op = "<>"
			}
			parts = append(parts, fmt.Sprintf("%s %s %s", col, op, next(cr.Value)))
		case OpGt, OpGte, OpLt, OpLte:
			parts = append(parts, fmt.Sprintf("%s %s %s", col, cr.Op, next(cr.Value)))
		case OpLike:
			parts = append(parts, fmt.Sprintf("%s LIKE %s", col, next(cr.Value)))
		case OpIn:
			values, ok := cr.Value.([]any)
			if !ok {
				return "", nil, &ErrInvalidInput{Msg: fmt.Sprintf("criterion on %q needs a list for %q", cr.Field, OpIn)}
			}
			if len(values) == 0 {
				parts = append(parts, "1 = 0")
				continue
			}
			ph := make([]string, len(values))
			for i, v := range values {
				ph[i] = next(v)
			}
			parts = append(parts, fmt.Sprintf("%s IN (%s)", col, strings.Join(ph, ", ")))
		default:
			return "", nil, &ErrInvalidInput{Msg: fmt.Sprintf("unsupported operator %q", cr.Op)}
		}
	}
	return strings.Join(parts, " AND "), args, nil
}

func checkFields(fields ...string) error {
	for _, f := range fields {
		if !fieldPattern.MatchString(f) {
			return &ErrInvalidInput{Msg: fmt.Sprintf("invalid field name %q", f)}
		}
	}
	return nil
}

// Fields lists the writable fields of model in name order. The id field is
// left out.
func (c *SQLConnector) Fields(ctx context.Context, model string) ([]string, error) {
	cols, err := c.knownColumns(ctx, model)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(cols))
	for name := range cols {
		if name != IDField {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

// knownColumns returns the columns of model's table, cached per connector.
func (c *SQLConnector) knownColumns(ctx context.Context, model string) (map[string]bool, error) {
	c.mu.Lock()
	cols, ok := c.columns[model]
	c.mu.Unlock()
	if ok {
		return cols, nil
	}

	infos, err := withRetry(ctx, c.retry, c.logger, func(ctx context.Context) ([]database.ColumnInfo, error) {
		infos, err := c.db.ListColumns(ctx, TableName(model))
		if err != nil {
			return nil, classify("describe "+model, err)
		}
		return infos, nil
	})
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return nil, &ErrInvalidInput{Msg: fmt.Sprintf("unknown model %q", model)}
	}
	cols = make(map[string]bool, len(infos))
	for _, ci := range infos {
		cols[ci.Name] = true
	}
	c.mu.Lock()
	c.columns[model] = cols
	c.mu.Unlock()
	return cols, nil
}

// Upsert updates the record with rec's id, or inserts rec when it has none.
// Fields the table does not have are rejected.
func (c *SQLConnector) Upsert(ctx context.Context, model string, rec Record) (int64, error) {
	cols, err := c.knownColumns(ctx, model)
	if err != nil {
		return 0, err
	}
	id, hasID := rec.Int(IDField)
	hasID = hasID && id > 0

	fields := make([]string, 0, len(rec))
	for f := range rec {
		if f == IDField {
			continue
		}
		if !cols[f] {
			return 0, &ErrInvalidInput{Msg: fmt.Sprintf("model %q has no field %q", model, f)}
		}
		fields = append(fields, f)
	}
	if len(fields) == 0 {
		return 0, &ErrInvalidInput{Msg: fmt.Sprintf("record for %q has no fields to write", model)}
	}
	sort.Strings(fields)
	args := make([]any, len(fields))
	for i, f := range fields {
		args[i] = rec[f]
	}

	if hasID {
		return withRetry(ctx, c.retry, c.logger, func(ctx context.Context) (int64, error) {
			return c.update(ctx, model, id, fields, args)
		})
	}
	return withRetry(ctx, c.retry, c.logger, func(ctx context.Context) (int64, error) {
		return c.insert(ctx, model, fields, args)
	})
}

func (c *SQLConnector) update(ctx context.Context, model string, id int64, fields []string, args []any) (int64, error) {
	set := make([]string, len(fields))
	for i, f := range fields {
		set[i] = fmt.Sprintf("%s = %s", c.db.QuoteIdentifier(f), c.db.Placeholder(i+1))
	}
	q := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		c.db.QuoteIdentifier(TableName(model)),
		strings.Join(set, ", "),
		c.db.QuoteIdentifier(IDField),
		c.db.Placeholder(len(fields)+1))

	res, err := c.db.ExecContext(ctx, q, append(append([]any(nil), args...), id)...)
	if err != nil {
		return 0, classify(fmt.Sprintf("update %s %d", model, id), err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return 0, &ErrInvalidInput{Msg: fmt.Sprintf("%s %d does not exist", model, id)}
	}
	return id, nil
}

func (c *SQLConnector) insert(ctx context.Context, model string, fields []string, args []any) (int64, error) {
	ins := c.db.InsertReturningID(TableName(model), fields, IDField)
	if ins.Returning {
		var id int64
		if err := c.db.QueryRowContext(ctx, ins.Query, args...).Scan(&id); err != nil {
			return 0, classify("insert "+model, err)
		}
		return id, nil
	}
	res, err := c.db.ExecContext(ctx, ins.Query, args...)
	if err != nil {
		return 0, classify("insert "+model, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, classify("read id of new "+model, err)
	}
	return id, nil
}

// UpsertBatch writes recs one by one. Record failures are collected, not
// fatal. A cancelled context or a connection that stays down after retries
// stops the batch and is returned as the error; IDs written before that are
// kept in the result.
func (c *SQLConnector) UpsertBatch(ctx context.Context, model string, recs []Record) (BatchResult, error) {
	res := BatchResult{IDs: make([]int64, len(recs))}
	for i, rec := range recs {
		if err := ctx.Err(); err != nil {
			return res, &ErrCancelled{Msg: fmt.Sprintf("batch stopped at record %d of %d", i, len(recs)), Err: err}
		}
		id, err := c.Upsert(ctx, model, rec)
		var connErr *ErrConnection
		if errors.As(err, &connErr) {
			c.logger.Error("catalog connection lost", zap.String("model", model), zap.Int("index", i), zap.Error(err))
			return res, &ErrConnection{Msg: fmt.Sprintf("batch stopped at record %d of %d", i, len(recs)), Err: err}
		}
		if err != nil {
			c.logger.Warn("record not written", zap.String("model", model), zap.Int("index", i), zap.Error(err))
			res.Failures = append(res.Failures, BatchFailure{Index: i, Record: rec, Err: err})
			continue
		}
		res.IDs[i] = id
	}
	c.logger.Info("batch written",
		zap.String("model", model),
		zap.Int("records", len(recs)),
		zap.Int("failed", len(res.Failures)))
	return res, nil
}
