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
package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModelFlag(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantModel  string
		wantFields []string
		wantErr    bool
	}{
		{"model only", "product.template", "product.template", nil, false},
		{"with fields", "product.template[name, default_code]", "product.template", []string{"name", "default_code"}, false},
		{"empty brackets", "res.partner[]", "res.partner", nil, false},
		{"empty", "  ", "", nil, true},
		{"missing closing bracket", "product.template[name", "", nil, true},
		{"missing opening bracket", "product.template]", "", nil, true},
		{"no model", "[name]", "", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model, fields, err := ParseModelFlag(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantModel, model)
			assert.Equal(t, tt.wantFields, fields)
		})
	}
}

func TestParseList(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"Name, Quantity ,,Unit Price", []string{"Name", "Quantity", "Unit Price"}},
		{"a[x,y],b", []string{"a[x,y]", "b"}},
		{"a[x,[y,z]],b", []string{"a[x,[y,z]]", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseList(tt.input))
		})
	}
}

func TestConfirmAction(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
	}{
		{"yes\n", true},
		{" Y \n", true},
		{"no\n", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.answer), func(t *testing.T) {
			var out strings.Builder
			assert.Equal(t, tt.want, ConfirmAction(strings.NewReader(tt.answer), &out, "3 records"))
			assert.Contains(t, out.String(), "3 records")
		})
	}
}

func TestEnsureParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "out.xlsx")
	require.NoError(t, EnsureParentDir(path))
	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
