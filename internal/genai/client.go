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

// Package genai asks a Gemini model to propose a column mapping between a
// spreadsheet and a target import schema.
package genai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/spraygospel/BoQ-Excel-Converter/internal/table"
	"github.com/spraygospel/BoQ-Excel-Converter/internal/transform"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gemini-1.5-flash"

// MappingSuggester proposes source to target column mappings.
type MappingSuggester interface {
	// SuggestMapping maps columns of source onto targets. Targets the model
	// could not place are left out.
	SuggestMapping(ctx context.Context, source *table.Table, targets []string) ([]transform.Mapping, error)

	// IsAPIKeyValid checks if the configured API key is functional.
	IsAPIKeyValid(ctx context.Context) error

	// Close cleans up any resources used by the client.
	Close() error
}

// Config holds configuration for the GenAI client.
type Config struct {
	APIKey string
	Model  string
}

// generator sends one prompt and returns the text of the first candidate.
type generator interface {
	generate(ctx context.Context, prompt string) (string, error)
}

// Client implements MappingSuggester with the Gemini API.
type Client struct {
	client *genai.Client
	gen    generator
	cfg    Config
	logger *zap.Logger
}

var _ MappingSuggester = (*Client)(nil)

// NewClient creates a Gemini backed suggester.
func NewClient(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("cannot create Gemini client: API key is missing")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
		logger.Info("gemini model not specified, using default", zap.String("model", cfg.Model))
	}
	c := &Client{client: client, cfg: cfg, logger: logger}
	c.gen = geminiGenerator{client: client, model: cfg.Model}
	return c, nil
}

// Close cleans up the underlying Gemini client.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsAPIKeyValid checks the key by listing one model.
func (c *Client) IsAPIKeyValid(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("gemini client not initialized (likely missing API key)")
	}
	_, err := c.client.ListModels(ctx).Next()
	if err != nil {
		if st, ok := status.FromError(err); ok {
			if st.Code() == codes.Unauthenticated || st.Code() == codes.PermissionDenied {
				return fmt.Errorf("invalid Gemini API key or insufficient permissions: %w", err)
			}
		}
		return fmt.Errorf("failed to verify Gemini API key by listing models: %w", err)
	}
	return nil
}

// SuggestMapping asks the model for a mapping and keeps only the pairs that
// name an existing source column and a requested target.
func (c *Client) SuggestMapping(ctx context.Context, source *table.Table, targets []string) ([]transform.Mapping, error) {
	if c.gen == nil {
		return nil, fmt.Errorf("gemini client not initialized")
	}
	if source.Width() == 0 || len(targets) == 0 {
		return nil, nil
	}
	text, err := c.gen.generate(ctx, mappingPrompt(source, targets))
	if err != nil {
		return nil, fmt.Errorf("Gemini API call failed: %w", err)
	}
	body, found := extractContentBetween(text, "<mapping>", "</mapping>")
	if !found {
		c.logger.Warn("no mapping in Gemini response", zap.String("model", c.cfg.Model))
		return nil, nil
	}
	mappings, dropped := parseMapping(body, source, targets)
	for _, d := range dropped {
		c.logger.Debug("ignored suggested mapping line", zap.String("line", d))
	}
	c.logger.Info("suggested column mapping",
		zap.String("model", c.cfg.Model),
		zap.Int("mapped", len(mappings)),
		zap.Int("targets", len(targets)))
	return mappings, nil
}

const sampleValues = 3

func mappingPrompt(source *table.Table, targets []string) string {
	preview := table.BuildPreview(source, 0, true)
	var cols strings.Builder
	for _, c := range source.Columns() {
		var samples []string
		if cs, ok := preview.Categorical[c]; ok {
			samples = cs.UniqueSamples
		} else if ns, ok := preview.Numeric[c]; ok && ns.Count > 0 {
			samples = []string{table.Text(ns.Min), table.Text(ns.Max)}
		}
		if len(samples) > sampleValues {
			samples = samples[:sampleValues]
		}
		fmt.Fprintf(&cols, "- %s: [%s]\n", c, strings.Join(samples, "; "))
	}

	return fmt.Sprintf(`
	You map spreadsheet columns onto the fields of an import template.

	**Source Columns (with sample values):**
%s
	**Target Fields:**
	- %s

	**Instructions:**
	1. For each target field, pick the ONE source column holding that data, judging by name and sample values.
	2. Leave a target out when no source column fits. Do NOT invent columns.
	3. Output one line per mapping as source_column,target_field inside <mapping></mapping> tags. Use the names exactly as listed.

	**Example Output:** <mapping>
	Description,Name
	Qty.,Quantity
	</mapping>
	`, cols.String(), strings.Join(targets, "\n\t- "))
}

// parseMapping reads "source,target" lines. Lines naming an unknown column or
// target, or a target already mapped, are returned as dropped.
func parseMapping(body string, source *table.Table, targets []string) ([]transform.Mapping, []string) {
	wanted := make(map[string]string, len(targets))
	for _, t := range targets {
		wanted[strings.ToLower(t)] = t
	}
	var out []transform.Mapping
	var dropped []string
	seen := map[string]bool{}
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		i := strings.LastIndex(line, ",")
		if i < 0 {
			dropped = append(dropped, line)
			continue
		}
		src, ok := source.FindFold(strings.TrimSpace(line[:i]))
		target, known := wanted[strings.ToLower(strings.TrimSpace(line[i+1:]))]
		if !ok || !known || seen[target] {
			dropped = append(dropped, line)
			continue
		}
		seen[target] = true
		out = append(out, transform.Mapping{Source: src, Target: target})
	}
	return out, dropped
}

type geminiGenerator struct {
	client *genai.Client
	model  string
}

func (g geminiGenerator) generate(ctx context.Context, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(0.2)
	model.SetMaxOutputTokens(800)
	model.SetTopP(0.9)
	model.SetTopK(40)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	return getFirstTextPart(resp)
}

// getFirstTextPart extracts the first text part from a Gemini response.
func getFirstTextPart(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		finishReason := "unknown"
		if resp != nil && len(resp.Candidates) > 0 {
			finishReason = resp.Candidates[0].FinishReason.String()
		}
		return "", fmt.Errorf("empty or incomplete response from Gemini API. FinishReason: %s", finishReason)
	}
	part := resp.Candidates[0].Content.Parts[0]
	text, ok := part.(genai.Text)
	if !ok {
		return "", fmt.Errorf("unexpected response part type: %T", part)
	}
	return string(text), nil
}

// extractContentBetween extracts content between start and end tags from a string.
func extractContentBetween(text, startTag, endTag string) (string, bool) {
	startIndex := strings.Index(text, startTag)
	if startIndex == -1 {
		return "", false
	}
	startIndex += len(startTag)
	endIndex := strings.Index(text[startIndex:], endTag)
	if endIndex == -1 {
		return "", false
	}
	return strings.TrimSpace(text[startIndex : startIndex+endIndex]), true
}
