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
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spraygospel/BoQ-Excel-Converter/internal/database"
	_ "github.com/spraygospel/BoQ-Excel-Converter/internal/database/mysql"
	_ "github.com/spraygospel/BoQ-Excel-Converter/internal/database/postgres"
)

var fastRetry = RetryOptions{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond, BackoffMultiplier: 2}

// squashed compares queries with runs of whitespace collapsed.
var squashed = sqlmock.QueryMatcherFunc(func(expected, actual string) error {
	e, a := strings.Join(strings.Fields(expected), " "), strings.Join(strings.Fields(actual), " ")
	if e != a {
		return fmt.Errorf("query %q does not match %q", a, e)
	}
	return nil
})

func newConnector(t *testing.T, dialect string) (*SQLConnector, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(squashed))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	h, err := database.GetDialectHandler(dialect)
	require.NoError(t, err)
	return NewSQLConnector(&database.DB{Pool: mockDB, Handler: h}, fastRetry, nil), mock
}

const pgColumns = `SELECT column_name, data_type FROM information_schema.columns WHERE table_schema = 'public' AND table_name = $1 ORDER BY ordinal_position;`

func expectColumns(mock sqlmock.Sqlmock, table string, cols ...string) {
	rows := sqlmock.NewRows([]string{"column_name", "data_type"})
	for _, c := range cols {
		rows.AddRow(c, "text")
	}
	mock.ExpectQuery(pgColumns).WithArgs(table).WillReturnRows(rows)
}

func TestTableName(t *testing.T) {
	assert.Equal(t, "product_product", TableName("product.product"))
	assert.Equal(t, "ir_model_data", TableName("ir.model.data"))
	assert.Equal(t, "res_partner", TableName("res_partner"))
}

func TestSearchRead(t *testing.T) {
	tests := []struct {
		name     string
		model    string
		criteria []Criterion
		fields   []string
		query    string
		args     []driver.Value
	}{
		{
			name:     "membership and comparison",
			model:    "res.partner",
			criteria: []Criterion{In("name", []string{"Acme", "Initech"}), Gt("supplier_rank", 0)},
			fields:   []string{"id", "name"},
			query:    `SELECT "id", "name" FROM "res_partner" WHERE "name" IN ($1, $2) AND "supplier_rank" > $3 ORDER BY "id"`,
			args:     []driver.Value{"Acme", "Initech", int64(0)},
		},
		{
			name:     "null equality and like",
			model:    "product.product",
			criteria: []Criterion{Eq("default_code", nil), {Field: "name", Op: OpLike, Value: "%Switch%"}, {Field: "barcode", Op: OpNe, Value: nil}},
			query:    `SELECT * FROM "product_product" WHERE "default_code" IS NULL AND "name" LIKE $1 AND "barcode" IS NOT NULL ORDER BY "id"`,
			args:     []driver.Value{"%Switch%"},
		},
		{
			name:     "empty membership matches nothing",
			model:    "product.product",
			criteria: []Criterion{In("default_code", []string{}), {Field: "id", Op: OpNe, Value: 3}},
			fields:   []string{"id"},
			query:    `SELECT "id" FROM "product_product" WHERE 1 = 0 AND "id" <> $1 ORDER BY "id"`,
			args:     []driver.Value{int64(3)},
		},
		{
			name:  "no criteria",
			model: "product.product",
			query: `SELECT * FROM "product_product" ORDER BY "id"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, mock := newConnector(t, "postgres")
			exp := mock.ExpectQuery(tt.query)
			if len(tt.args) > 0 {
				exp = exp.WithArgs(tt.args...)
			}
			exp.WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(4), []byte("Acme")))

			got, err := c.SearchRead(context.Background(), tt.model, tt.criteria, tt.fields...)
			require.NoError(t, err)
			assert.Equal(t, []Record{{"id": int64(4), "name": "Acme"}}, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSearchReadRejectsBadInput(t *testing.T) {
	tests := []struct {
		name     string
		criteria []Criterion
		fields   []string
	}{
		{"bad operator", []Criterion{{Field: "name", Op: "~", Value: "x"}}, nil},
		{"bad field", []Criterion{Eq("name; DROP TABLE x", 1)}, nil},
		{"bad selected field", nil, []string{"id", "name\""}},
		{"in without list", []Criterion{{Field: "id", Op: OpIn, Value: 3}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, mock := newConnector(t, "postgres")
			_, err := c.SearchRead(context.Background(), "res.partner", tt.criteria, tt.fields...)
			var invalid *ErrInvalidInput
			assert.True(t, errors.As(err, &invalid))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestFindAndFetch(t *testing.T) {
	c, mock := newConnector(t, "postgres")
	mock.ExpectQuery(`SELECT "id" FROM "product_product" WHERE "default_code" = $1 ORDER BY "id"`).
		WithArgs("SW-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)).AddRow(int64(9)))
	mock.ExpectQuery(`SELECT "id", "name" FROM "res_partner" WHERE "id" IN ($1, $2) ORDER BY "id"`).
		WithArgs(int64(1), int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "Acme").AddRow(int64(9), nil))

	ids, err := c.Find(context.Background(), "product.product", []Criterion{Eq("default_code", "SW-1")})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 9}, ids)

	recs, err := c.Fetch(context.Background(), "res.partner", ids, "id", "name")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Acme", recs[0].String("name"))
	assert.Equal(t, "", recs[1].String("name"))

	recs, err = c.Fetch(context.Background(), "res.partner", nil)
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchReadRetriesTransientErrors(t *testing.T) {
	c, mock := newConnector(t, "postgres")
	q := `SELECT "id" FROM "res_partner" ORDER BY "id"`
	reset := &net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset by peer")}
	mock.ExpectQuery(q).WillReturnError(reset)
	mock.ExpectQuery(q).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(2)))

	recs, err := c.SearchRead(context.Background(), "res.partner", nil, "id")
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchReadGivesUpAfterMaxAttempts(t *testing.T) {
	c, mock := newConnector(t, "postgres")
	q := `SELECT "id" FROM "res_partner" ORDER BY "id"`
	reset := &net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset by peer")}
	for i := 0; i < fastRetry.MaxAttempts; i++ {
		mock.ExpectQuery(q).WillReturnError(reset)
	}

	_, err := c.SearchRead(context.Background(), "res.partner", nil, "id")
	var conn *ErrConnection
	require.True(t, errors.As(err, &conn))
	assert.ErrorIs(t, err, reset)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchReadDoesNotRetryQueryErrors(t *testing.T) {
	c, mock := newConnector(t, "postgres")
	mock.ExpectQuery(`SELECT "id" FROM "res_partner" ORDER BY "id"`).WillReturnError(errors.New(`relation "res_partner" does not exist`))

	_, err := c.SearchRead(context.Background(), "res.partner", nil, "id")
	var qerr *ErrQuery
	assert.True(t, errors.As(err, &qerr))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchReadCancelled(t *testing.T) {
	c, mock := newConnector(t, "postgres")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.SearchRead(ctx, "res.partner", nil, "id")
	var cancelled *ErrCancelled
	assert.True(t, errors.As(err, &cancelled))
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert(t *testing.T) {
	t.Run("insert returning id", func(t *testing.T) {
		c, mock := newConnector(t, "postgres")
		expectColumns(mock, "product_supplierinfo", "id", "partner_id", "price", "product_tmpl_id")
		mock.ExpectQuery(`INSERT INTO "product_supplierinfo" ("partner_id", "price", "product_tmpl_id") VALUES ($1, $2, $3) RETURNING "id"`).
			WithArgs(int64(5), 12.5, int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(31)))

		id, err := c.Upsert(context.Background(), "product.supplierinfo", Record{"partner_id": 5, "price": 12.5, "product_tmpl_id": 2})
		require.NoError(t, err)
		assert.Equal(t, int64(31), id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("update by id", func(t *testing.T) {
		c, mock := newConnector(t, "postgres")
		expectColumns(mock, "product_supplierinfo", "id", "price")
		mock.ExpectExec(`UPDATE "product_supplierinfo" SET "price" = $1 WHERE "id" = $2`).
			WithArgs(55.0, int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		id, err := c.Upsert(context.Background(), "product.supplierinfo", Record{"id": int64(7), "price": 55.0})
		require.NoError(t, err)
		assert.Equal(t, int64(7), id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("update of missing record", func(t *testing.T) {
		c, mock := newConnector(t, "postgres")
		expectColumns(mock, "product_supplierinfo", "id", "price")
		mock.ExpectExec(`UPDATE "product_supplierinfo" SET "price" = $1 WHERE "id" = $2`).
			WithArgs(55.0, int64(8)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		_, err := c.Upsert(context.Background(), "product.supplierinfo", Record{"id": 8, "price": 55.0})
		var invalid *ErrInvalidInput
		assert.True(t, errors.As(err, &invalid))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown model", func(t *testing.T) {
		c, mock := newConnector(t, "postgres")
		expectColumns(mock, "x_missing")
		_, err := c.Upsert(context.Background(), "x.missing", Record{"name": "a"})
		assert.ErrorContains(t, err, `unknown model "x.missing"`)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("record without fields", func(t *testing.T) {
		c, mock := newConnector(t, "postgres")
		expectColumns(mock, "res_partner", "id", "name")
		_, err := c.Upsert(context.Background(), "res.partner", Record{"id": 3})
		assert.ErrorContains(t, err, "no fields to write")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("mysql insert uses last insert id", func(t *testing.T) {
		c, mock := newConnector(t, "mysql")
		mock.ExpectQuery(`SELECT COLUMN_NAME, COLUMN_TYPE FROM information_schema.COLUMNS WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? ORDER BY ORDINAL_POSITION;`).
			WithArgs("res_partner").
			WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME", "COLUMN_TYPE"}).AddRow("id", "int").AddRow("name", "varchar(255)"))
		mock.ExpectExec("INSERT INTO `res_partner` (`name`) VALUES (?)").
			WithArgs("Acme").
			WillReturnResult(sqlmock.NewResult(42, 1))

		id, err := c.Upsert(context.Background(), "res.partner", Record{"name": "Acme"})
		require.NoError(t, err)
		assert.Equal(t, int64(42), id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpsertBatchCollectsFailures(t *testing.T) {
	c, mock := newConnector(t, "postgres")
	expectColumns(mock, "res_partner", "id", "name")
	insert := `INSERT INTO "res_partner" ("name") VALUES ($1) RETURNING "id"`
	mock.ExpectQuery(insert).WithArgs("Acme").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(10)))
	mock.ExpectQuery(insert).WithArgs("Dup").WillReturnError(errors.New("duplicate key value violates unique constraint"))
	mock.ExpectQuery(insert).WithArgs("Initech").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))

	recs := []Record{
		{"name": "Acme"},
		{"name": "Ghost", "colour": "red"},
		{"name": "Dup"},
		{"name": "Initech"},
	}
	res, err := c.UpsertBatch(context.Background(), "res.partner", recs)
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.Equal(t, []int64{10, 0, 0, 11}, res.IDs)
	require.Len(t, res.Failures, 2)
	assert.Equal(t, 1, res.Failures[0].Index)
	assert.Equal(t, recs[1], res.Failures[0].Record)
	var invalid *ErrInvalidInput
	assert.True(t, errors.As(res.Failures[0].Err, &invalid))
	assert.Equal(t, 2, res.Failures[1].Index)
	var qerr *ErrQuery
	assert.True(t, errors.As(res.Failures[1].Err, &qerr))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertBatchStopsWhenConnectionLost(t *testing.T) {
	c, mock := newConnector(t, "postgres")
	expectColumns(mock, "res_partner", "id", "name")
	insert := `INSERT INTO "res_partner" ("name") VALUES ($1) RETURNING "id"`
	mock.ExpectQuery(insert).WithArgs("Acme").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(10)))
	reset := &net.OpError{Op: "write", Net: "tcp", Err: errors.New("broken pipe")}
	for i := 0; i < fastRetry.MaxAttempts; i++ {
		mock.ExpectQuery(insert).WithArgs("Globex").WillReturnError(reset)
	}

	recs := []Record{{"name": "Acme"}, {"name": "Globex"}, {"name": "Initech"}}
	res, err := c.UpsertBatch(context.Background(), "res.partner", recs)
	var conn *ErrConnection
	require.True(t, errors.As(err, &conn))
	assert.Contains(t, err.Error(), "batch stopped at record 1 of 3")
	assert.ErrorIs(t, err, reset)
	assert.Equal(t, []int64{10, 0, 0}, res.IDs)
	assert.Empty(t, res.Failures)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertBatchStopsWhenCancelled(t *testing.T) {
	c, mock := newConnector(t, "postgres")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := c.UpsertBatch(ctx, "res.partner", []Record{{"name": "Acme"}})
	var cancelled *ErrCancelled
	assert.True(t, errors.As(err, &cancelled))
	assert.Equal(t, []int64{0}, res.IDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestModels(t *testing.T) {
	c, mock := newConnector(t, "postgres")
	mock.ExpectQuery(`SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' AND table_type = 'BASE TABLE' ORDER BY table_name;`).
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("product_product").AddRow("res_partner"))

	got, err := c.Models(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"product_product", "res_partner"}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFields(t *testing.T) {
	c, mock := newConnector(t, "postgres")
	expectColumns(mock, "product_template", "name", "id", "default_code")

	got, err := c.Fields(context.Background(), "product.template")
	require.NoError(t, err)
	assert.Equal(t, []string{"default_code", "name"}, got)

	// cached: no second query
	_, err = c.Fields(context.Background(), "product.template")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenRejectsUnknownDialect(t *testing.T) {
	_, err := Open(context.Background(), database.Config{Dialect: "oracle"}, fastRetry, nil)
	var invalid *ErrInvalidInput
	assert.True(t, errors.As(err, &invalid))
}

func TestClassify(t *testing.T) {
	timeout := &net.DNSError{Err: "i/o timeout", IsTimeout: true}
	tests := []struct {
		name string
		err  error
		want any
	}{
		{"cancelled", context.Canceled, &ErrCancelled{}},
		{"deadline", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), &ErrTimeout{}},
		{"network timeout", timeout, &ErrTimeout{}},
		{"bad connection", driver.ErrBadConn, &ErrConnection{}},
		{"network", &net.OpError{Op: "dial", Err: errors.New("refused")}, &ErrConnection{}},
		{"other", errors.New("syntax error"), &ErrQuery{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify("op", tt.err)
			assert.IsType(t, tt.want, got)
			assert.ErrorIs(t, got, tt.err)
			assert.Contains(t, got.Error(), "op")
		})
	}
	assert.Nil(t, classify("op", nil))
}
