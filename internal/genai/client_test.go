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
package genai

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spraygospel/BoQ-Excel-Converter/internal/table"
	"github.com/spraygospel/BoQ-Excel-Converter/internal/transform"
)

type fakeGenerator struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeGenerator) generate(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

func sourceTable() *table.Table {
	return table.New(
		[]string{"No", "Description", "Qty."},
		[][]any{
			{1.0, "Switch 24 port", 2.0},
			{2.0, "Cable UTP", 10.0},
		},
	)
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), Config{}, nil)
	assert.ErrorContains(t, err, "API key is missing")
}

func TestSuggestMapping(t *testing.T) {
	gen := &fakeGenerator{reply: `Sure.
<mapping>
description,Name
Qty.,quantity
Brand,Vendor
Qty.,Name
no separator
</mapping>`}
	c := &Client{gen: gen, cfg: Config{Model: "test-model"}, logger: zap.NewNop()}

	got, err := c.SuggestMapping(context.Background(), sourceTable(), []string{"Name", "Quantity", "Vendor"})
	require.NoError(t, err)
	assert.Equal(t, []transform.Mapping{
		{Source: "Description", Target: "Name"},
		{Source: "Qty.", Target: "Quantity"},
	}, got)

	assert.Contains(t, gen.prompt, "- Description: [")
	assert.Contains(t, gen.prompt, "Cable UTP")
	assert.Contains(t, gen.prompt, "- Qty.: [2; 10]")
	assert.Contains(t, gen.prompt, "- Vendor")
}

func TestSuggestMappingNoTags(t *testing.T) {
	c := &Client{gen: &fakeGenerator{reply: "I cannot help with that."}, logger: zap.NewNop()}
	got, err := c.SuggestMapping(context.Background(), sourceTable(), []string{"Name"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSuggestMappingErrors(t *testing.T) {
	c := &Client{gen: &fakeGenerator{err: errors.New("quota")}, logger: zap.NewNop()}
	_, err := c.SuggestMapping(context.Background(), sourceTable(), []string{"Name"})
	assert.ErrorContains(t, err, "quota")

	got, err := c.SuggestMapping(context.Background(), sourceTable(), nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = (&Client{}).SuggestMapping(context.Background(), sourceTable(), []string{"Name"})
	assert.ErrorContains(t, err, "not initialized")
}

func TestExtractContentBetween(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		want  string
		found bool
	}{
		{"present", "a <m> x\ny </m> b", "x\ny", true},
		{"no start", "x </m>", "", false},
		{"no end", "<m> x", "", false},
		{"empty", "<m></m>", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := extractContentBetween(tt.text, "<m>", "</m>")
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetFirstTextPart(t *testing.T) {
	_, err := getFirstTextPart(nil)
	assert.ErrorContains(t, err, "FinishReason: unknown")

	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text("hello")}},
	}}}
	got, err := getFirstTextPart(resp)
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	resp.Candidates[0].Content.Parts = []genai.Part{genai.Blob{MIMEType: "image/png"}}
	_, err = getFirstTextPart(resp)
	assert.ErrorContains(t, err, "unexpected response part type")
}
