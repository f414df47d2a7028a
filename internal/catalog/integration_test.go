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
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spraygospel/BoQ-Excel-Converter/internal/database"
)

// setupTestCatalog connects to the postgres database named by
// BOQ_TEST_DATABASE_HOST and friends, creating a scratch product_template table.
func setupTestCatalog(t *testing.T) *SQLConnector {
	t.Helper()
	host := os.Getenv("BOQ_TEST_DATABASE_HOST")
	if host == "" {
		t.Skip("BOQ_TEST_DATABASE_HOST not set")
	}
	port, _ := strconv.Atoi(os.Getenv("BOQ_TEST_DATABASE_PORT"))
	cfg := database.Config{
		Dialect:  "postgres",
		Host:     host,
		Port:     port,
		User:     os.Getenv("BOQ_TEST_DATABASE_USER"),
		Password: os.Getenv("BOQ_TEST_DATABASE_PASSWORD"),
		DBName:   os.Getenv("BOQ_TEST_DATABASE_NAME"),
	}

	ctx := context.Background()
	c, err := Open(ctx, cfg, fastRetry, nil)
	require.NoError(t, err)

	_, err = c.db.ExecContext(ctx, `
		CREATE TABLE product_template (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255),
			default_code VARCHAR(64),
			list_price NUMERIC(12,2)
		);`)
	require.NoError(t, err)

	t.Cleanup(func() {
		_, err := c.db.ExecContext(context.Background(), `DROP TABLE IF EXISTS product_template;`)
		assert.NoError(t, err)
		c.Close()
	})
	return c
}

func TestIntegrationUpsertAndSearch(t *testing.T) {
	c := setupTestCatalog(t)
	ctx := context.Background()

	id, err := c.Upsert(ctx, "product.template", Record{"name": "Switch 24 port", "default_code": "SW-24", "list_price": 1250000})
	require.NoError(t, err)
	assert.Positive(t, id)

	_, err = c.Upsert(ctx, "product.template", Record{IDField: id, "list_price": 1300000})
	require.NoError(t, err)

	recs, err := c.SearchRead(ctx, "product.template", []Criterion{Eq("default_code", "SW-24")}, "name", "list_price")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Switch 24 port", recs[0].String("name"))
	price, ok := recs[0].Float("list_price")
	require.True(t, ok)
	assert.InDelta(t, 1300000, price, 0.001)
}

func TestIntegrationBatchPartialFailure(t *testing.T) {
	c := setupTestCatalog(t)

	res, err := c.UpsertBatch(context.Background(), "product.template", []Record{
		{"name": "Cable UTP"},
		{"name": "Patch panel", "colour": "black"},
		{"name": "Rack 42U"},
	})
	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, 1, res.Failures[0].Index)
	var invalid *ErrInvalidInput
	assert.True(t, errors.As(res.Failures[0].Err, &invalid))

	ids, err := c.Find(context.Background(), "product.template", nil)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func TestIntegrationQueryTimeout(t *testing.T) {
	c := setupTestCatalog(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	time.Sleep(2 * time.Millisecond)

	_, err := c.Find(ctx, "product.template", nil)
	assert.Error(t, err)
}
