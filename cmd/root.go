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
package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/spraygospel/BoQ-Excel-Converter/internal/config"
	"github.com/spraygospel/BoQ-Excel-Converter/internal/database"
	_ "github.com/spraygospel/BoQ-Excel-Converter/internal/database/mysql"
	_ "github.com/spraygospel/BoQ-Excel-Converter/internal/database/postgres"
	_ "github.com/spraygospel/BoQ-Excel-Converter/internal/database/sqlserver"
	"github.com/spraygospel/BoQ-Excel-Converter/internal/logging"
	"github.com/spraygospel/BoQ-Excel-Converter/internal/snapshot"
)

var (
	configFile string
	envFile    string

	// Loaded by PersistentPreRunE.
	cfg    *config.Config
	logger = zap.NewNop()
)

// flagKeys maps persistent flags to config keys. A flag only overrides the
// config file and environment when set on the command line.
var flagKeys = map[string]string{
	"company":        "company",
	"so-number":      "so_number",
	"temp-dir":       "temp_dir",
	"log-level":      "log.level",
	"log-format":     "log.format",
	"gemini-api-key": "gemini_api_key",
	"gemini-model":   "gemini_model",

	"boq-sheet":      "boq.sheet",
	"boq-header-row": "boq.header_row",
	"boq-data-start": "boq.data_start",
	"boq-data-end":   "boq.data_end",
	"so-sheet":       "so.sheet",
	"so-header-row":  "so.header_row",
	"so-data-start":  "so.data_start",
	"so-data-end":    "so.data_end",

	"dialect":                           "database.dialect",
	"host":                              "database.host",
	"port":                              "database.port",
	"username":                          "database.user",
	"password":                          "database.password",
	"database":                          "database.name",
	"ssl-mode":                          "database.ssl_mode",
	"cloudsql-instance-connection-name": "database.cloudsql_instance",
	"cloudsql-use-private-ip":           "database.private_ip",
}

var rootCmd = &cobra.Command{
	Use:   "boq_converter",
	Short: "A tool to reconcile BoQ workbooks and produce catalog imports",
	Long: `boq_converter reconciles a Bill of Quantities workbook with its
Convert-to-SO counterpart and projects the result into the import layouts of
the back-office catalog: product variants, bills of material, sales orders and
vendor price updates.`,
	SilenceUsage:       true,
	PersistentPreRunE:  initConfigAndLogger,
	PersistentPostRunE: syncLogger,
}

// initConfigAndLogger loads the layered configuration and builds the logger.
func initConfigAndLogger(cmd *cobra.Command, args []string) error {
	flags := map[string]*pflag.Flag{}
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			flags[key] = f
		}
	}
	loaded, err := config.Load(config.Options{File: configFile, EnvFile: envFile, Flags: flags})
	if err != nil {
		return err
	}
	l, err := logging.New(loaded.Log.Level, loaded.Log.Format)
	if err != nil {
		return err
	}
	cfg, logger = loaded, l
	zap.ReplaceGlobals(logger)
	logger.Debug("configuration loaded",
		zap.String("command", cmd.Name()),
		zap.String("company", cfg.Company),
		zap.String("temp_dir", cfg.TempDir))
	return nil
}

func syncLogger(cmd *cobra.Command, args []string) error {
	// stderr cannot always be synced; that is not a command failure.
	_ = logger.Sync()
	return nil
}

func validateDialect(dialect string) error {
	supported := database.Dialects()
	for _, d := range supported {
		if d == dialect {
			return nil
		}
	}
	return fmt.Errorf("unsupported dialect: %s (only %s are supported)", dialect, strings.Join(supported, ", "))
}

func snapshotStore() *snapshot.Store {
	return snapshot.NewStore(cfg.TempDir, logger)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Config file (yaml, json or toml)")
	pf.StringVar(&envFile, "env-file", "", "Dotenv file with BOQ_ variables (defaults to .env when present)")
	pf.String("company", "", "Company stamped on bills of material and vendor lines")
	pf.String("so-number", "", "Sales order number recorded on vendor updates")
	pf.String("temp-dir", "", "Directory for snapshots and output workbooks")
	pf.String("log-level", "", "Log level (debug, info, warn, error)")
	pf.String("log-format", "", "Log format (console or json)")

	pf.String("boq-sheet", "", "BoQ sheet name (defaults to the first sheet)")
	pf.Int("boq-header-row", 0, "BoQ header row, 1-based")
	pf.Int("boq-data-start", 0, "First BoQ data row, 1-based")
	pf.Int("boq-data-end", 0, "Last BoQ data row, 1-based")
	pf.String("so-sheet", "", "Convert-to-SO sheet name (defaults to the first sheet)")
	pf.Int("so-header-row", 0, "Convert-to-SO header row, 1-based")
	pf.Int("so-data-start", 0, "First Convert-to-SO data row, 1-based")
	pf.Int("so-data-end", 0, "Last Convert-to-SO data row, 1-based")

	// Catalog database connection flags
	pf.String("dialect", "", "Catalog database dialect (postgres, mysql, sqlserver, cloudsqlpostgres, cloudsqlmysql, cloudsqlsqlserver)")
	pf.String("host", "", "Catalog database host")
	pf.Int("port", 0, "Catalog database port")
	pf.String("username", "", "Catalog database username")
	pf.String("password", "", "Catalog database password")
	pf.String("database", "", "Catalog database name")
	pf.String("ssl-mode", "", "Postgres sslmode")
	pf.String("cloudsql-instance-connection-name", "", "Cloud SQL instance connection name (for Cloud SQL dialects)")
	pf.Bool("cloudsql-use-private-ip", false, "Use private IP for Cloud SQL connection")

	// Gemini flags
	pf.String("gemini-api-key", "", "Gemini API key (can also be set via GEMINI_API_KEY environment variable)")
	pf.String("gemini-model", "", "Gemini model used by suggest-mapping")

	rootCmd.AddCommand(baseCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(bomCmd)
	rootCmd.AddCommand(variantCmd)
	rootCmd.AddCommand(salesOrderCmd)
	rootCmd.AddCommand(updateProductCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(suggestMappingCmd)
}
