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
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/spraygospel/BoQ-Excel-Converter/internal/table"
	"github.com/spraygospel/BoQ-Excel-Converter/internal/utils"
	"github.com/spraygospel/BoQ-Excel-Converter/internal/workbook"
)

var (
	previewFile     string
	previewSheet    string
	previewHeader   int
	previewSnapshot string
	previewRows     int
	previewStats    bool
	previewOutFile  string
)

// previewCmd represents the preview command
var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Print the first rows and column statistics of a table as JSON",
	Long: `Previews a workbook, or one of the tables of the base snapshot when no
file is given. With --stats, numeric columns report count, min, max and mean
and other columns report null and distinct value counts.`,
	Example: `./boq_converter preview --file ./BoQ.xlsx --header-row 12 --rows 5 --stats
./boq_converter preview --snapshot so`,
	Args: cobra.NoArgs,
	RunE: runPreview,
}

func runPreview(cmd *cobra.Command, args []string) error {
	t, err := previewSource(cmd)
	if err != nil {
		return err
	}
	p := table.BuildPreview(t, previewRows, previewStats)

	var w io.Writer = cmd.OutOrStdout()
	if previewOutFile != "" {
		if err := utils.EnsureParentDir(previewOutFile); err != nil {
			return err
		}
		f, err := os.Create(previewOutFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("failed to write preview: %w", err)
	}
	return nil
}

func previewSource(cmd *cobra.Command) (*table.Table, error) {
	if previewFile != "" {
		return extract(cmd.Context(), previewFile, workbook.Range{Sheet: previewSheet, HeaderRow: previewHeader})
	}
	switch previewSnapshot {
	case "boq":
		return loadBaseBoQ()
	case "so":
		base, err := snapshotStore().LoadBase()
		if err != nil {
			return nil, err
		}
		return base.SO, nil
	default:
		return nil, fmt.Errorf("unknown snapshot table %q (want boq or so)", previewSnapshot)
	}
}

func init() {
	previewCmd.Flags().StringVar(&previewFile, "file", "", "Workbook to preview (xlsx or csv); the base snapshot when empty")
	previewCmd.Flags().StringVar(&previewSheet, "sheet", "", "Sheet to read (defaults to the first sheet)")
	previewCmd.Flags().IntVar(&previewHeader, "header-row", 1, "Header row of --file, 1-based")
	previewCmd.Flags().StringVar(&previewSnapshot, "snapshot", "boq", "Snapshot table to preview when no file is given (boq or so)")
	previewCmd.Flags().IntVar(&previewRows, "rows", 10, "Number of rows to include (0 for all)")
	previewCmd.Flags().BoolVar(&previewStats, "stats", false, "Include per-column statistics")
	previewCmd.Flags().StringVarP(&previewOutFile, "out_file", "o", "", "Write the preview to this file instead of stdout")
}
