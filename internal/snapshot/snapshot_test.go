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
package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spraygospel/BoQ-Excel-Converter/internal/table"
)

func TestStoreRoundTrip(t *testing.T) {
	fixed := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s := NewStore(filepath.Join(t.TempDir(), "temp"), nil)
	s.now = func() time.Time { return fixed }

	boq := table.New([]string{"No", "Description", "Qty."}, [][]any{
		{1, "Switch", 2},
		{nil, "", nil},
		{"A", "0012", 1.5},
	})
	so := table.New([]string{"Product", "BOM Line"}, [][]any{{"Kit", "Switch"}})

	saved, err := s.SaveBase(Base{BoQ: boq, SO: so, Diagnostics: []string{"note"}})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, saved.RunID)
	assert.Equal(t, fixed, saved.CreatedAt)

	got, err := s.LoadBase()
	require.NoError(t, err)
	assert.Equal(t, saved.RunID, got.RunID)
	assert.True(t, fixed.Equal(got.CreatedAt))
	assert.Equal(t, boq.Columns(), got.BoQ.Columns())
	for i := 0; i < boq.Len(); i++ {
		assert.Equal(t, boq.Row(i), got.BoQ.Row(i))
	}
	assert.Equal(t, so.Row(0), got.SO.Row(0))
	assert.Equal(t, []string{"note"}, got.Diagnostics)

	only, err := s.LoadBoQ()
	require.NoError(t, err)
	assert.Equal(t, saved.RunID, only.RunID)
	assert.Equal(t, boq.Len(), only.Table.Len())
}

func TestStoreKeepsGivenRunID(t *testing.T) {
	s := NewStore(t.TempDir(), nil)
	id := uuid.New()
	saved, err := s.SaveBase(Base{RunID: id, BoQ: table.Empty("A"), SO: table.Empty("B")})
	require.NoError(t, err)
	assert.Equal(t, id, saved.RunID)

	got, err := s.LoadBase()
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, got.BoQ.Columns())
	assert.Equal(t, 0, got.SO.Len())
}

func TestStoreErrors(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, nil)

	_, err := s.LoadBase()
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = s.LoadBoQ()
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = s.SaveBase(Base{BoQ: table.Empty("A")})
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, BaseFile), []byte("{not json"), 0o644))
	_, err = s.LoadBase()
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))

	require.NoError(t, os.WriteFile(filepath.Join(dir, BoQFile), []byte(`{"run_id":"`+uuid.NewString()+`"}`), 0o644))
	_, err = s.LoadBoQ()
	assert.Error(t, err)
}
