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

// Package config loads the converter settings from defaults, an optional
// config file, a .env file, BOQ_ environment variables and command flags,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/spraygospel/BoQ-Excel-Converter/internal/catalog"
	"github.com/spraygospel/BoQ-Excel-Converter/internal/database"
	"github.com/spraygospel/BoQ-Excel-Converter/internal/projector"
	"github.com/spraygospel/BoQ-Excel-Converter/internal/reconcile"
	"github.com/spraygospel/BoQ-Excel-Converter/internal/workbook"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "BOQ"

// Config holds all configuration for the application.
type Config struct {
	Company   string   `mapstructure:"company"`
	Companies []string `mapstructure:"companies"`
	SONumber  string   `mapstructure:"so_number"`
	Tax       string   `mapstructure:"tax"`

	BoQ workbook.Range `mapstructure:"boq"`
	SO  workbook.Range `mapstructure:"so"`

	Columns reconcile.Columns         `mapstructure:"columns"`
	Variant projector.VariantDefaults `mapstructure:"variant"`

	Database database.Config      `mapstructure:"database"`
	Retry    catalog.RetryOptions `mapstructure:"retry"`

	GeminiAPIKey string `mapstructure:"gemini_api_key"`
	GeminiModel  string `mapstructure:"gemini_model"`

	TempDir string  `mapstructure:"temp_dir"`
	Output  Outputs `mapstructure:"output"`
	Log     Log     `mapstructure:"log"`
}

// Outputs names the workbook each projector writes. Relative names are
// resolved against TempDir.
type Outputs struct {
	ProductVariant string `mapstructure:"product_variant"`
	BillOfMaterial string `mapstructure:"bill_of_material"`
	SalesOrder     string `mapstructure:"sales_order"`
	UpdateProduct  string `mapstructure:"update_product"`
}

// Log configures the zap logger.
type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Company:   "PT. Visiniaga Mitra Kreasindo",
		Companies: []string{"PT. Visiniaga Mitra Kreasindo", "CV. Kreasi Andalan Karya"},
		Tax:       projector.DefaultTax,
		BoQ:       workbook.Range{HeaderRow: 12, DataStart: 13, DataEnd: 120},
		SO:        workbook.Range{HeaderRow: 1, DataStart: 2},
		Columns:   reconcile.DefaultColumns(),
		Variant:   projector.DefaultVariantDefaults(),
		Database: database.Config{
			Dialect: "postgres",
			Host:    "localhost",
			Port:    5432,
			SSLMode: "disable",
		},
		Retry:       catalog.DefaultRetryOptions,
		GeminiModel: "gemini-1.5-flash",
		TempDir:     "temp",
		Output: Outputs{
			ProductVariant: "output_products.xlsx",
			BillOfMaterial: "output_bom.xlsx",
			SalesOrder:     "output_so.xlsx",
			UpdateProduct:  "output_update.xlsx",
		},
		Log: Log{Level: "info", Format: "console"},
	}
}

func setDefaults(v *viper.Viper, d *Config) {
	defaults := map[string]any{
		"company":   d.Company,
		"companies": d.Companies,
		"so_number": d.SONumber,
		"tax":       d.Tax,

		"columns.boq_validation": d.Columns.BoQValidation,
		"columns.so_validation":  d.Columns.SOValidation,
		"columns.quantity":       d.Columns.Quantity,
		"columns.uom_alias":      d.Columns.UoMAlias,
		"columns.product":        d.Columns.Product,
		"columns.vn":             d.Columns.VN,
		"columns.uom":            d.Columns.UoM,
		"columns.section":        d.Columns.Section,
		"columns.single_product": d.Columns.SingleProduct,

		"variant.modal_unit":   d.Variant.ModalUnit,
		"variant.public_price": d.Variant.PublicPrice,
		"variant.uom":          d.Variant.UoM,

		"database.dialect":           d.Database.Dialect,
		"database.host":              d.Database.Host,
		"database.port":              d.Database.Port,
		"database.user":              d.Database.User,
		"database.password":          d.Database.Password,
		"database.name":              d.Database.DBName,
		"database.ssl_mode":          d.Database.SSLMode,
		"database.cloudsql_instance": d.Database.CloudSQLInstanceConnectionName,
		"database.private_ip":        d.Database.UsePrivateIP,

		"retry.max_attempts":       d.Retry.MaxAttempts,
		"retry.initial_backoff":    d.Retry.InitialBackoff,
		"retry.max_backoff":        d.Retry.MaxBackoff,
		"retry.backoff_multiplier": d.Retry.BackoffMultiplier,

		"gemini_api_key": d.GeminiAPIKey,
		"gemini_model":   d.GeminiModel,
		"temp_dir":       d.TempDir,

		"output.product_variant":  d.Output.ProductVariant,
		"output.bill_of_material": d.Output.BillOfMaterial,
		"output.sales_order":      d.Output.SalesOrder,
		"output.update_product":   d.Output.UpdateProduct,

		"log.level":  d.Log.Level,
		"log.format": d.Log.Format,
	}
	for prefix, r := range map[string]workbook.Range{"boq": d.BoQ, "so": d.SO} {
		defaults[prefix+".sheet"] = r.Sheet
		defaults[prefix+".header_row"] = r.HeaderRow
		defaults[prefix+".data_start"] = r.DataStart
		defaults[prefix+".data_end"] = r.DataEnd
		defaults[prefix+".first_col"] = r.FirstCol
		defaults[prefix+".last_col"] = r.LastCol
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// Options selects the sources Load reads besides the defaults.
type Options struct {
	// File is an optional yaml, json or toml config file.
	File string
	// EnvFile is a dotenv file. When empty, ".env" is read if present.
	EnvFile string
	// Flags maps config keys to command flags. A flag only overrides the
	// key when it was set on the command line.
	Flags map[string]*pflag.Flag
}

// Load builds the configuration from every source in opts.
func Load(opts Options) (*Config, error) {
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", opts.File, err)
		}
	}
	for key, flag := range opts.Flags {
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", flag.Name, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if cfg.GeminiAPIKey == "" {
		cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnvFile(path string) error {
	if path == "" {
		err := godotenv.Load()
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Validate checks the settings that would otherwise fail deep inside a
// pipeline step.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Company) == "" {
		errs = append(errs, errors.New("company must not be empty"))
	} else if len(c.Companies) > 0 && !slices.Contains(c.Companies, c.Company) {
		errs = append(errs, fmt.Errorf("company %q is not one of %s", c.Company, strings.Join(c.Companies, ", ")))
	}
	for name, r := range map[string]workbook.Range{"boq": c.BoQ, "so": c.SO} {
		if r.HeaderRow < 1 {
			errs = append(errs, fmt.Errorf("%s.header_row must be at least 1", name))
		}
		if r.DataStart != 0 && r.DataStart <= r.HeaderRow {
			errs = append(errs, fmt.Errorf("%s.data_start must come after header_row", name))
		}
		if r.DataEnd != 0 && r.DataEnd < r.DataStart {
			errs = append(errs, fmt.Errorf("%s.data_end must not come before data_start", name))
		}
	}
	if c.Columns.BoQValidation == "" || c.Columns.SOValidation == "" {
		errs = append(errs, errors.New("validation columns must be set"))
	}
	if c.TempDir == "" {
		errs = append(errs, errors.New("temp_dir must not be empty"))
	}
	return errors.Join(errs...)
}

// OutputPath resolves an output file name against TempDir.
func (c *Config) OutputPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.TempDir, name)
}
