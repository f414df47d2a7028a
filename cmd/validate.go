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
	"github.com/spraygospel/BoQ-Excel-Converter/internal/table"
	"github.com/spraygospel/BoQ-Excel-Converter/internal/validate"
	"github.com/spraygospel/BoQ-Excel-Converter/internal/workbook"
)

var (
	validateBoQFile   string
	validateSOFile    string
	validateRulesFile string
	validateReport    string
	validateStrict    bool
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Compare a BoQ workbook with its Convert-to-SO workbook",
	Long: `Extracts both workbooks, classifies the validation values found on one
side only into items, single products and mismatches, checks unit of measure
consistency and optionally applies a YAML rule file to both tables.`,
	Example: `./boq_converter validate --boq ./BoQ.xlsx --so ./ConvertToSO.xlsx --rules ./rules.yaml --report ./temp/validation.xlsx`,
	RunE:    runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	boq, so, err := extractPair(ctx, validateBoQFile, validateSOFile)
	if err != nil {
		return err
	}
	res, err := crossValidate(boq, so)
	if err != nil {
		return err
	}

	var violations []validate.Entry
	if validateRulesFile != "" {
		if violations, err = applyRules(validateRulesFile, boq, so); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	printCrossSummary(cmd, res)
	fmt.Fprintf(out, "Rule violations:  %d\n", len(violations))

	if validateReport != "" {
		sheets := crossReportSheets(res)
		if validateRulesFile != "" {
			sheets = append(sheets, ruleReportSheet(violations))
		}
		if err := workbook.WriteXLSX(validateReport, sheets...); err != nil {
			return err
		}
		logger.Info("validation report written", zap.String("path", validateReport))
	}

	if validateStrict && (len(res.Mismatches) > 0 || len(violations) > 0) {
		return fmt.Errorf("validation found %d mismatches and %d rule violations", len(res.Mismatches), len(violations))
	}
	return nil
}

func printCrossSummary(cmd *cobra.Command, res reconcile.CrossResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Mismatches:       %d\n", len(res.Mismatches))
	for _, m := range res.Mismatches {
		fmt.Fprintf(out, "  [%s] %s (%s)\n", m.Source, m.Value, m.Type)
	}
	fmt.Fprintf(out, "Items:            %d\n", len(res.Items))
	fmt.Fprintf(out, "Single products:  %d\n", len(res.SingleProducts))
	fmt.Fprintf(out, "UoM anomalies:    %d\n", len(res.UoMAnomalies))
}

// applyRules runs the rule file against both tables. Rules naming a column
// absent from one table are only applied to the table that has it.
func applyRules(path string, boq, so *table.Table) ([]validate.Entry, error) {
	v, err := validate.LoadRules(path)
	if err != nil {
		return nil, err
	}
	var report []validate.Entry
	for _, src := range []struct {
		label string
		t     *table.Table
	}{{reconcile.SourceBoQ, boq}, {reconcile.SourceSO, so}} {
		scoped := validate.DataValidator{Severity: v.Severity}
		for _, cr := range v.Rules {
			if src.t.HasColumn(cr.Column) {
				scoped.Rules = append(scoped.Rules, cr)
			}
		}
		entries, err := scoped.Validate(src.t)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", src.label, err)
		}
		for i := range entries {
			entries[i].File = src.label
		}
		report = append(report, entries...)
	}
	logger.Info("rules applied", zap.String("rules", path), zap.Int("violations", len(report)))
	return report, nil
}

func init() {
	validateCmd.Flags().StringVar(&validateBoQFile, "boq", "", "BoQ workbook (xlsx or csv)")
	validateCmd.Flags().StringVar(&validateSOFile, "so", "", "Convert-to-SO workbook (xlsx or csv)")
	validateCmd.Flags().StringVar(&validateRulesFile, "rules", "", "YAML rule file applied to both tables")
	validateCmd.Flags().StringVar(&validateReport, "report", "", "Write the validation report to this xlsx file")
	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "Fail when any mismatch or rule violation is found")
}
