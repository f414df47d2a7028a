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

	"github.com/spraygospel/BoQ-Excel-Converter/internal/reconcile"
	"github.com/spraygospel/BoQ-Excel-Converter/internal/snapshot"
	"github.com/spraygospel/BoQ-Excel-Converter/internal/workbook"
)

var (
	baseBoQFile string
	baseSOFile  string
	baseOutFile string
)

// baseCmd represents the base command
var baseCmd = &cobra.Command{
	Use:   "base",
	Short: "Reconcile both workbooks and save the base snapshot",
	Long: `Extracts and cross validates both workbooks, merges the Convert-to-SO
products, VN flags and units of measure into the BoQ table and saves the
result as the base snapshot every projector reads.`,
	Example: `./boq_converter base --boq ./BoQ.xlsx --so ./ConvertToSO.xlsx --temp-dir ./temp`,
	RunE:    runBase,
}

func runBase(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	boq, so, err := extractPair(ctx, baseBoQFile, baseSOFile)
	if err != nil {
		return err
	}
	checked, err := crossValidate(boq, so)
	if err != nil {
		return err
	}
	if len(checked.Mismatches) > 0 {
		logger.Warn("workbooks do not line up; run validate for details", zap.Int("mismatches", len(checked.Mismatches)))
	}

	r := &reconcile.BaseReconciler{Columns: cfg.Columns}
	res, err := r.Reconcile(checked.BoQ, checked.SO)
	if err != nil {
		return fmt.Errorf("reconciliation failed: %w", err)
	}
	for _, d := range res.Diagnostics {
		logger.Warn(d)
	}

	saved, err := snapshotStore().SaveBase(snapshot.Base{BoQ: res.BoQ, SO: res.SO, Diagnostics: res.Diagnostics})
	if err != nil {
		return err
	}

	if baseOutFile != "" {
		err := workbook.WriteXLSX(cfg.OutputPath(baseOutFile),
			workbook.Sheet{Name: reconcile.SourceBoQ, Table: res.BoQ},
			workbook.Sheet{Name: reconcile.SourceSO, Table: res.SO})
		if err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Base snapshot %s saved: %d BoQ rows, %d Convert to SO rows\n",
		saved.RunID, res.BoQ.Len(), res.SO.Len())
	return nil
}

func init() {
	baseCmd.Flags().StringVar(&baseBoQFile, "boq", "", "BoQ workbook (xlsx or csv)")
	baseCmd.Flags().StringVar(&baseSOFile, "so", "", "Convert-to-SO workbook (xlsx or csv)")
	baseCmd.Flags().StringVarP(&baseOutFile, "out_file", "o", "", "Also write the reconciled tables to this xlsx file")
}
