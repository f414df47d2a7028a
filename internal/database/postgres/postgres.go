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
	"database/sql"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"cloud.google.com/go/cloudsqlconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"

	"github.com/spraygospel/BoQ-Excel-Converter/internal/database"
)

// postgresHandler implements database.DialectHandler for PostgreSQL.
type postgresHandler struct{}

var _ database.DialectHandler = (*postgresHandler)(nil)

// CreateCloudSQLPool dials the instance through the Cloud SQL connector
// using pgx. Empty settings fall back to environment variables.
func (h postgresHandler) CreateCloudSQLPool(cfg database.Config) (*sql.DB, error) {
	orEnv := func(v, key string) string {
		if v == "" {
			return os.Getenv(key)
		}
		return v
	}
	dbUser := orEnv(cfg.User, "DB_USER")
	dbPwd := orEnv(cfg.Password, "DB_PASS")
	dbName := orEnv(cfg.DBName, "DB_NAME")
	instanceConnectionName := orEnv(cfg.CloudSQLInstanceConnectionName, "INSTANCE_CONNECTION_NAME")
	usePrivate := cfg.UsePrivateIP || os.Getenv("PRIVATE_IP") != ""

	dsn := fmt.Sprintf("user=%s password=%s database=%s", dbUser, dbPwd, dbName)
	config, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	var opts []cloudsqlconn.Option
	if usePrivate {
		opts = append(opts, cloudsqlconn.WithDefaultDialOptions(cloudsqlconn.WithPrivateIP()))
	}
	d, err := cloudsqlconn.NewDialer(context.Background(), opts...)
	if err != nil {
		return nil, err
	}
	config.DialFunc = func(ctx context.Context, network, instance string) (net.Conn, error) {
		return d.Dial(ctx, instanceConnectionName)
	}
	dbURI := stdlib.RegisterConnConfig(config)
	dbPool, err := sql.Open("pgx", dbURI)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	return dbPool, nil
}

// CreateStandardPool opens a lib/pq pool over TCP.
func (h postgresHandler) CreateStandardPool(cfg database.Config) (*sql.DB, error) {
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, port, cfg.User, cfg.Password, cfg.DBName, sslMode,
	)
	dbPool, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	return dbPool, nil
}

func (h postgresHandler) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (h postgresHandler) Placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func (h postgresHandler) InsertReturningID(table string, columns []string, idColumn string) database.Insert {
	return database.Insert{
		Query: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
			h.QuoteIdentifier(table),
			database.JoinQuoted(columns, h.QuoteIdentifier),
			database.Placeholders(1, len(columns), h.Placeholder),
			h.QuoteIdentifier(idColumn)),
		Returning: true,
	}
}

func (h postgresHandler) ListTables(ctx context.Context, db *database.DB) ([]string, error) {
	return database.QueryStrings(ctx, db, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		AND table_type = 'BASE TABLE'
		ORDER BY table_name;`)
}

func (h postgresHandler) ListColumns(ctx context.Context, db *database.DB, tableName string) ([]database.ColumnInfo, error) {
	return database.QueryColumns(ctx, db, tableName, `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = 'public'
		AND table_name = $1
		ORDER BY ordinal_position;`, tableName)
}

func init() {
	database.RegisterDialectHandler("postgres", postgresHandler{})
	database.RegisterDialectHandler("cloudsqlpostgres", postgresHandler{})
}
