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
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spraygospel/BoQ-Excel-Converter/internal/genai"
	"github.com/spraygospel/BoQ-Excel-Converter/internal/transform"
	"github.com/spraygospel/BoQ-Excel-Converter/internal/utils"
	"github.com/spraygospel/BoQ-Excel-Converter/internal/workbook"
)

var (
	suggestFile    string
	suggestSheet   string
	suggestHeader  int
	suggestTargets string
	suggestModel   string
	suggestOutFile string
)

// suggestMappingCmd represents the suggest-mapping command
var suggestMappingCmd = &cobra.Command{
	Use:   "suggest-mapping",
	Short: "Ask Gemini for a column mapping file",
	Long: `Sends the column names and sample values of a workbook to Gemini and
writes the proposed mapping onto the target fields as a mapping file usable by
upload --mapping. Targets come from --targets or from the fields of a catalog
model. Review the file before using it.`,
	Example: `./boq_converter suggest-mapping --file ./supplier_list.xlsx --targets "name,default_code,list_price" -o ./mapping.csv
./boq_converter suggest-mapping --file ./supplier_list.xlsx --model product.template --dialect postgres --host localhost --database odoo`,
	Args: cobra.NoArgs,
	RunE: runSuggestMapping,
}

func runSuggestMapping(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if suggestFile == "" {
		return fmt.Errorf("--file is required")
	}
	if cfg.GeminiAPIKey == "" {
		return fmt.Errorf("Gemini API key is not configured. Please set the GEMINI_API_KEY environment variable or --gemini-api-key")
	}

	targets := utils.ParseList(suggestTargets)
	if len(targets) == 0 {
		if suggestModel == "" {
			return fmt.Errorf("either --targets or --model is required")
		}
		conn, err := openCatalog(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()
		if targets, err = conn.Fields(ctx, suggestModel); err != nil {
			return err
		}
	}

	source, err := extract(ctx, suggestFile, workbook.Range{Sheet: suggestSheet, HeaderRow: suggestHeader})
	if err != nil {
		return err
	}

	client, err := genai.NewClient(ctx, genai.Config{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel}, logger)
	if err != nil {
		return err
	}
	defer client.Close()
	if err := client.IsAPIKeyValid(ctx); err != nil {
		return fmt.Errorf("Gemini API key is invalid. Please provide a valid api key: %w", err)
	}

	mappings, err := client.SuggestMapping(ctx, source, targets)
	if err != nil {
		return err
	}
	if len(mappings) < len(targets) {
		logger.Warn("some targets were not mapped", zap.Int("mapped", len(mappings)), zap.Int("targets", len(targets)))
	}

	var w io.Writer = cmd.OutOrStdout()
	if suggestOutFile != "" {
		if err := utils.EnsureParentDir(suggestOutFile); err != nil {
			return err
		}
		f, err := os.Create(suggestOutFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	return transform.WriteMapping(w, mappings)
}

func init() {
	suggestMappingCmd.Flags().StringVar(&suggestFile, "file", "", "Workbook whose columns are mapped (xlsx or csv)")
	suggestMappingCmd.Flags().StringVar(&suggestSheet, "sheet", "", "Sheet to read (defaults to the first sheet)")
	suggestMappingCmd.Flags().IntVar(&suggestHeader, "header-row", 1, "Header row of --file, 1-based")
	suggestMappingCmd.Flags().StringVar(&suggestTargets, "targets", "", "Comma-separated target field names")
	suggestMappingCmd.Flags().StringVar(&suggestModel, "model", "", "Catalog model whose fields are the targets when --targets is empty")
	suggestMappingCmd.Flags().StringVarP(&suggestOutFile, "out_file", "o", "", "Write the mapping file here instead of stdout")
}
