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
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spraygospel/BoQ-Excel-Converter/internal/projector"
	"github.com/spraygospel/BoQ-Excel-Converter/internal/workbook"
)

var (
	updateOffline bool
	updateOutFile string
)

// updateProductCmd represents the updateproduct command
var updateProductCmd = &cobra.Command{
	Use:   "updateproduct",
	Short: "Build vendor line updates for BoQ rows that reference catalog products",
	Long: `Looks up the products, vendors and vendor price lines referenced by the
base snapshot in the catalog database and writes two import sheets: vendors
to add and vendor prices to change. Products the catalog cannot resolve by
external id are listed in a third sheet.`,
	Example: `./boq_converter updateproduct --dialect postgres --host localhost --username odoo --password pass --database odoo --so-number SO-0042`,
	Args:    cobra.NoArgs,
	RunE:    runUpdateProduct,
}

func runUpdateProduct(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	base, err := loadBaseBoQ()
	if err != nil {
		return err
	}

	var data *projector.CatalogData
	if updateOffline {
		logger.Warn("offline mode: catalog not consulted, every referenced row is treated as a new vendor")
	} else {
		conn, err := openCatalog(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()
		if data, err = projector.LoadCatalogData(ctx, conn, base); err != nil {
			return fmt.Errorf("failed to read catalog data: %w", err)
		}
		logger.Info("catalog data loaded",
			zap.Int("products", len(data.Products)),
			zap.Int("suppliers", len(data.Suppliers)))
	}

	res, err := projector.UpdateProduct{SONumber: cfg.SONumber}.Project(base, data)
	if err != nil {
		return fmt.Errorf("update projection failed: %w", err)
	}

	issues := reportTable([]string{"default_code", "name", "id", "status"}, len(res.Issues), func(i int) []any {
		is := res.Issues[i]
		return []any{is.DefaultCode, is.Name, is.ID, is.Status}
	})
	path := updateOutFile
	if path == "" {
		path = cfg.Output.UpdateProduct
	}
	path = cfg.OutputPath(path)
	err = workbook.WriteXLSX(path,
		workbook.Sheet{Name: "New Vendors", Table: res.NewVendors},
		workbook.Sheet{Name: "Price Changes", Table: res.PriceChanges},
		workbook.Sheet{Name: "Issues", Table: issues})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "New vendors: %d, price changes: %d, issues: %d written to %s\n",
		res.NewVendors.Len(), res.PriceChanges.Len(), len(res.Issues), path)
	return nil
}

func init() {
	updateProductCmd.Flags().BoolVar(&updateOffline, "offline", false, "Do not consult the catalog database")
	updateProductCmd.Flags().StringVarP(&updateOutFile, "out_file", "o", "", "Output xlsx file (defaults to the configured output name under --temp-dir)")
}
