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
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spraygospel/BoQ-Excel-Converter/internal/catalog"
	"github.com/spraygospel/BoQ-Excel-Converter/internal/table"
	"github.com/spraygospel/BoQ-Excel-Converter/internal/transform"
	"github.com/spraygospel/BoQ-Excel-Converter/internal/utils"
	"github.com/spraygospel/BoQ-Excel-Converter/internal/workbook"
)

var (
	uploadFile    string
	uploadSheet   string
	uploadMapping string
	uploadModel   string
	uploadDryRun  bool
	uploadYes     bool
)

// uploadCmd represents the upload command
var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Write spreadsheet rows into a catalog model",
	Long: `Reads a sheet, optionally renames its columns through a mapping file
(source_field,target_field[,default_value]) and upserts one catalog record per
row: rows with an id update that record, the others are created. Columns the
model does not have are skipped. Failing rows are reported and do not stop
the rest of the upload.`,
	Example: `./boq_converter upload --file ./temp/output_products.xlsx --mapping ./variant_mapping.csv --model "product.template[name,list_price]" --dry-run=false`,
	Args:    cobra.NoArgs,
	RunE:    runUpload,
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if uploadFile == "" {
		return fmt.Errorf("--file is required")
	}
	model, only, err := utils.ParseModelFlag(uploadModel)
	if err != nil {
		return err
	}

	t, err := extract(ctx, uploadFile, workbook.Range{Sheet: uploadSheet})
	if err != nil {
		return err
	}
	if uploadMapping != "" {
		mappings, defaults, err := transform.LoadMapping(uploadMapping)
		if err != nil {
			return err
		}
		if t, err = (transform.FieldMapper{Mappings: mappings, Defaults: defaults}).Map(t); err != nil {
			return fmt.Errorf("mapping %s failed: %w", uploadMapping, err)
		}
	}

	conn, err := openCatalog(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	fields, err := conn.Fields(ctx, model)
	if err != nil {
		return err
	}
	if len(only) > 0 {
		fields = slices.DeleteFunc(fields, func(f string) bool { return !slices.Contains(only, f) })
	}
	recs, skipped := buildRecords(t, fields)
	if len(skipped) > 0 {
		logger.Warn("columns not written", zap.String("model", model), zap.Strings("columns", skipped))
	}
	out := cmd.OutOrStdout()
	if len(recs) == 0 {
		fmt.Fprintf(out, "No records to write to %s\n", model)
		return nil
	}

	summary := fmt.Sprintf("%d records for %s (%d updates)", len(recs), model, countUpdates(recs))
	if uploadDryRun {
		fmt.Fprintf(out, "Dry run: %s. No changes were made to the catalog.\n", summary)
		return nil
	}
	if !uploadYes && !utils.ConfirmAction(cmd.InOrStdin(), out, summary) {
		logger.Info("upload aborted by user")
		return nil
	}

	res, err := conn.UpsertBatch(ctx, model, recs)
	if err != nil {
		fmt.Fprintf(out, "Written %d of %d records to %s before stopping\n", countWritten(res.IDs), len(recs), model)
		return err
	}
	for _, f := range res.Failures {
		fmt.Fprintf(out, "  row %d: %v\n", f.Index+1, f.Err)
	}
	fmt.Fprintf(out, "Written %d of %d records to %s\n", len(recs)-len(res.Failures), len(recs), model)
	if !res.OK() {
		return fmt.Errorf("%d records could not be written", len(res.Failures))
	}
	return nil
}

// buildRecords turns rows into catalog records holding the columns named in
// fields plus the id column. Empty cells are left out so updates keep the
// stored value; rows with nothing to write are dropped. Columns not written
// are returned in table order.
func buildRecords(t *table.Table, fields []string) ([]catalog.Record, []string) {
	var keep []int
	var names []string
	var skipped []string
	for j, c := range t.Columns() {
		if c == catalog.IDField || slices.Contains(fields, c) {
			keep = append(keep, j)
			names = append(names, c)
		} else {
			skipped = append(skipped, c)
		}
	}

	var recs []catalog.Record
	for i := 0; i < t.Len(); i++ {
		rec := catalog.Record{}
		for k, j := range keep {
			if v := t.At(i, j); !table.IsEmpty(v) {
				rec[names[k]] = v
			}
		}
		if _, hasID := rec[catalog.IDField]; len(rec) == 0 || (hasID && len(rec) == 1) {
			continue
		}
		recs = append(recs, rec)
	}
	return recs, skipped
}

func countUpdates(recs []catalog.Record) int {
	n := 0
	for _, r := range recs {
		if id, ok := r.Int(catalog.IDField); ok && id > 0 {
			n++
		}
	}
	return n
}

func init() {
	uploadCmd.Flags().StringVar(&uploadFile, "file", "", "Workbook to upload (xlsx or csv)")
	uploadCmd.Flags().StringVar(&uploadSheet, "sheet", "", "Sheet to read (defaults to the first sheet)")
	uploadCmd.Flags().StringVar(&uploadMapping, "mapping", "", "Column mapping file (source_field,target_field[,default_value])")
	uploadCmd.Flags().StringVar(&uploadModel, "model", "", "Catalog model, optionally restricted to fields: 'product.template[name,list_price]'")
	uploadCmd.Flags().BoolVar(&uploadDryRun, "dry-run", true, "Enable dry-run mode (no catalog modifications)")
	uploadCmd.Flags().BoolVarP(&uploadYes, "yes", "y", false, "Do not ask for confirmation")
}

func countWritten(ids []int64) int {
	n := 0
	for _, id := range ids {
		if id != 0 {
			n++
		}
	}
	return n
}
