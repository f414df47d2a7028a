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
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spraygospel/BoQ-Excel-Converter/internal/projector"
	"github.com/spraygospel/BoQ-Excel-Converter/internal/snapshot"
	"github.com/spraygospel/BoQ-Excel-Converter/internal/table"
	"github.com/spraygospel/BoQ-Excel-Converter/internal/workbook"
)

// projection is one import layout built from the base BoQ table.
type projection struct {
	sheet   string
	output  func() string
	project func(base *table.Table) (*table.Table, error)
}

var projections = map[string]projection{
	"bom": {
		sheet:  "Bill of Material",
		output: func() string { return cfg.Output.BillOfMaterial },
		project: func(base *table.Table) (*table.Table, error) {
			return projector.BOM{Company: cfg.Company}.Project(base)
		},
	},
	"variant": {
		sheet:  "Product Variant",
		output: func() string { return cfg.Output.ProductVariant },
		project: func(base *table.Table) (*table.Table, error) {
			return projector.Variant{Company: cfg.Company, Defaults: cfg.Variant}.Project(base)
		},
	},
	"salesorder": {
		sheet:  "Sales Order",
		output: func() string { return cfg.Output.SalesOrder },
		project: func(base *table.Table) (*table.Table, error) {
			return projector.SalesOrder{Tax: cfg.Tax}.Project(base)
		},
	},
}

var projectOutFile string

var bomCmd = newProjectCmd("bom", "Build the bill of material import from the base snapshot")
var variantCmd = newProjectCmd("variant", "Build the product variant import from the base snapshot")
var salesOrderCmd = newProjectCmd("salesorder", "Build the sales order import from the base snapshot")

func newProjectCmd(name, short string) *cobra.Command {
	c := &cobra.Command{
		Use:     name,
		Short:   short,
		Example: fmt.Sprintf("./boq_converter %s --temp-dir ./temp -o ./temp/%s.xlsx", name, name),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjection(cmd, name)
		},
	}
	c.Flags().StringVarP(&projectOutFile, "out_file", "o", "", "Output xlsx file (defaults to the configured output name under --temp-dir)")
	return c
}

// loadBaseBoQ reads the BoQ snapshot written by the base command.
func loadBaseBoQ() (*table.Table, error) {
	snap, err := snapshotStore().LoadBoQ()
	if errors.Is(err, snapshot.ErrNotFound) {
		return nil, fmt.Errorf("%w: run the base command first", err)
	}
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded base snapshot", zap.String("run_id", snap.RunID.String()), zap.Time("created_at", snap.CreatedAt))
	return snap.Table, nil
}

func runProjection(cmd *cobra.Command, name string) error {
	p, ok := projections[name]
	if !ok {
		return fmt.Errorf("unknown projection %q", name)
	}
	base, err := loadBaseBoQ()
	if err != nil {
		return err
	}
	out, err := p.project(base)
	if err != nil {
		return fmt.Errorf("%s projection failed: %w", name, err)
	}

	path := projectOutFile
	if path == "" {
		path = p.output()
	}
	path = cfg.OutputPath(path)
	if err := workbook.WriteXLSX(path, workbook.Sheet{Name: p.sheet, Table: out}); err != nil {
		return err
	}
	logger.Info("projection written", zap.String("projection", name), zap.String("path", path), zap.Int("rows", out.Len()))
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rows written to %s\n", p.sheet, out.Len(), path)
	return nil
}
