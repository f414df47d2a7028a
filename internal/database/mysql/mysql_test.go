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
package mysql

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spraygospel/BoQ-Excel-Converter/internal/database"
)

func TestMySQLSyntax(t *testing.T) {
	h := mysqlHandler{}
	assert.Equal(t, "`product_product`", h.QuoteIdentifier("product_product"))
	assert.Equal(t, "`we``ird`", h.QuoteIdentifier("we`ird"))
	assert.Equal(t, "?", h.Placeholder(3))

	ins := h.InsertReturningID("res_partner", []string{"name", "supplier_rank"}, "id")
	assert.Equal(t, "INSERT INTO `res_partner` (`name`, `supplier_rank`) VALUES (?, ?)", ins.Query)
	assert.False(t, ins.Returning)
}

func TestMySQLListColumns(t *testing.T) {
	tests := []struct {
		name      string
		mockSetup func(sqlmock.Sqlmock)
		want      []database.ColumnInfo
		wantErr   string
	}{
		{
			name: "columns in order",
			mockSetup: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"COLUMN_NAME", "COLUMN_TYPE"}).
					AddRow("id", "int(11)").
					AddRow("default_code", "varchar(64)")
				mock.ExpectQuery(`SELECT COLUMN_NAME, COLUMN_TYPE\s+FROM information_schema\.COLUMNS`).WithArgs("product_product").WillReturnRows(rows)
			},
			want: []database.ColumnInfo{{Name: "id", DataType: "int(11)"}, {Name: "default_code", DataType: "varchar(64)"}},
		},
		{
			name: "query error",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT COLUMN_NAME`).WithArgs("product_product").WillReturnError(errors.New("connection reset"))
			},
			wantErr: "error querying columns for table product_product",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockDB, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer mockDB.Close()
			tt.mockSetup(mock)

			got, err := mysqlHandler{}.ListColumns(context.Background(), &database.DB{Pool: mockDB}, "product_product")
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

func TestMySQLListTables(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()
	mock.ExpectQuery(`SELECT TABLE_NAME FROM information_schema\.TABLES`).
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME"}).AddRow("product_product").AddRow("res_partner"))

	got, err := mysqlHandler{}.ListTables(context.Background(), &database.DB{Pool: mockDB})
	require.NoError(t, err)
	assert.Equal(t, []string{"product_product", "res_partner"}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLCloudSQLPoolRequiresSettings(t *testing.T) {
	_, err := mysqlHandler{}.CreateCloudSQLPool(database.Config{Dialect: "cloudsqlmysql", User: "odoo"})
	assert.ErrorContains(t, err, "missing required CloudSQL connection parameter")
}
