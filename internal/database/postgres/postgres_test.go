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
package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spraygospel/BoQ-Excel-Converter/internal/database"
)

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "product_product", `"product_product"`},
		{"embedded quote", `odd"name`, `"odd""name"`},
		{"space", "Unit Price", `"Unit Price"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, postgresHandler{}.QuoteIdentifier(tt.in))
		})
	}
}

func TestInsertReturningID(t *testing.T) {
	h := postgresHandler{}
	assert.Equal(t, "$4", h.Placeholder(4))

	ins := h.InsertReturningID("product_supplierinfo", []string{"partner_id", "product_tmpl_id", "price"}, "id")
	assert.Equal(t, `INSERT INTO "product_supplierinfo" ("partner_id", "product_tmpl_id", "price") VALUES ($1, $2, $3) RETURNING "id"`, ins.Query)
	assert.True(t, ins.Returning)
}

func TestListTables(t *testing.T) {
	tests := []struct {
		name      string
		mockSetup func(sqlmock.Sqlmock)
		want      []string
		wantErr   string
	}{
		{
			name: "tables",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT table_name\s+FROM information_schema\.tables`).
					WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("ir_model_data").AddRow("product_product"))
			},
			want: []string{"ir_model_data", "product_product"},
		},
		{
			name: "scan error",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT table_name`).
					WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow(nil))
			},
			wantErr: "error scanning value",
		},
		{
			name: "query error",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT table_name`).WillReturnError(errors.New("boom"))
			},
			wantErr: "error running query",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockDB, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer mockDB.Close()
			tt.mockSetup(mock)

			got, err := postgresHandler{}.ListTables(context.Background(), &database.DB{Pool: mockDB})
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestListColumns(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()
	mock.ExpectQuery(`SELECT column_name, data_type\s+FROM information_schema\.columns`).WithArgs("res_partner").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type"}).AddRow("id", "integer").AddRow("name", "character varying"))

	got, err := postgresHandler{}.ListColumns(context.Background(), &database.DB{Pool: mockDB}, "res_partner")
	require.NoError(t, err)
	assert.Equal(t, []database.ColumnInfo{{Name: "id", DataType: "integer"}, {Name: "name", DataType: "character varying"}}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
