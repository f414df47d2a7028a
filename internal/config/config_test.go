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
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load(Options{})
	require.NoError(t, err)

	want := Default()
	assert.Equal(t, want.Company, cfg.Company)
	assert.Equal(t, want.Companies, cfg.Companies)
	assert.Equal(t, 12, cfg.BoQ.HeaderRow)
	assert.Equal(t, 13, cfg.BoQ.DataStart)
	assert.Equal(t, 120, cfg.BoQ.DataEnd)
	assert.Equal(t, 1, cfg.SO.HeaderRow)
	assert.Equal(t, 2, cfg.SO.DataStart)
	assert.Equal(t, 0, cfg.SO.DataEnd)
	assert.Equal(t, want.Columns, cfg.Columns)
	assert.Equal(t, "Units", cfg.Variant.UoM)
	assert.Equal(t, want.Retry, cfg.Retry)
	assert.Equal(t, filepath.Join("temp", "output_bom.xlsx"), cfg.OutputPath(cfg.Output.BillOfMaterial))
}

func TestLoadSources(t *testing.T) {
	t.Chdir(t.TempDir())
	file := writeFile(t, "boq.yaml", `
company: CV. Kreasi Andalan Karya
so_number: SO-0042
boq:
  sheet: BoQ
  header_row: 10
  data_start: 11
columns:
  boq_validation: Description
retry:
  initial_backoff: 250ms
database:
  dialect: mysql
  port: 3306
`)
	envFile := writeFile(t, "catalog.env", "BOQ_DATABASE_PASSWORD=from-dotenv\nBOQ_DATABASE_HOST=dotenv-host\n")
	t.Setenv("BOQ_DATABASE_HOST", "env-host")
	t.Cleanup(func() { os.Unsetenv("BOQ_DATABASE_PASSWORD") })

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("so-number", "", "")
	flags.Int("boq-header-row", 0, "")
	require.NoError(t, flags.Parse([]string{"--so-number", "SO-0099"}))

	cfg, err := Load(Options{
		File:    file,
		EnvFile: envFile,
		Flags: map[string]*pflag.Flag{
			"so_number":      flags.Lookup("so-number"),
			"boq.header_row": flags.Lookup("boq-header-row"),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "CV. Kreasi Andalan Karya", cfg.Company)
	assert.Equal(t, "SO-0099", cfg.SONumber, "flag set on the command line wins")
	assert.Equal(t, 10, cfg.BoQ.HeaderRow, "unset flag does not override the file")
	assert.Equal(t, "BoQ", cfg.BoQ.Sheet)
	assert.Equal(t, 120, cfg.BoQ.DataEnd)
	assert.Equal(t, "Description", cfg.Columns.BoQValidation)
	assert.Equal(t, "BOM Line", cfg.Columns.SOValidation)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.InitialBackoff)
	assert.Equal(t, "mysql", cfg.Database.Dialect)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, "env-host", cfg.Database.Host, "existing environment is not overwritten by the env file")
	assert.Equal(t, "from-dotenv", cfg.Database.Password)
}

func TestLoadErrors(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load(Options{File: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.ErrorContains(t, err, "failed to read config file")

	_, err = Load(Options{EnvFile: filepath.Join(t.TempDir(), "missing.env")})
	assert.ErrorContains(t, err, "failed to load env file")

	bad := writeFile(t, "bad.yaml", "company: Someone Else\nso:\n  header_row: 3\n  data_start: 2\n")
	_, err = Load(Options{File: bad})
	assert.ErrorContains(t, err, `company "Someone Else" is not one of`)
	assert.ErrorContains(t, err, "so.data_start must come after header_row")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"free company when list empty", func(c *Config) { c.Companies = nil; c.Company = "Other" }, ""},
		{"empty company", func(c *Config) { c.Company = " " }, "company must not be empty"},
		{"header row zero", func(c *Config) { c.BoQ.HeaderRow = 0 }, "boq.header_row must be at least 1"},
		{"data end before start", func(c *Config) { c.BoQ.DataEnd = 5 }, "boq.data_end must not come before data_start"},
		{"validation column", func(c *Config) { c.Columns.SOValidation = "" }, "validation columns must be set"},
		{"temp dir", func(c *Config) { c.TempDir = "" }, "temp_dir must not be empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestOutputPath(t *testing.T) {
	cfg := Default()
	cfg.TempDir = "work"
	assert.Equal(t, filepath.Join("work", "a.xlsx"), cfg.OutputPath("a.xlsx"))
	abs := filepath.Join(string(filepath.Separator), "srv", "out.xlsx")
	assert.Equal(t, abs, cfg.OutputPath(abs))
}
