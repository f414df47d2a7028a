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

// Package snapshot persists the reconciled base tables between pipeline
// steps so each projector can run as a separate command.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spraygospel/BoQ-Excel-Converter/internal/table"
)

const (
	// BaseFile holds both reconciled tables.
	BaseFile = "base.json"
	// BoQFile holds the reconciled BoQ table alone.
	BoQFile = "boq.json"
)

// ErrNotFound is returned when no snapshot has been saved yet.
var ErrNotFound = errors.New("snapshot not found")

// Base is the output of the base reconciliation step.
type Base struct {
	RunID       uuid.UUID    `json:"run_id"`
	CreatedAt   time.Time    `json:"created_at"`
	BoQ         *table.Table `json:"boq"`
	SO          *table.Table `json:"so"`
	Diagnostics []string     `json:"diagnostics,omitempty"`
}

// BoQ is the BoQ-only snapshot read by the projectors.
type BoQ struct {
	RunID     uuid.UUID    `json:"run_id"`
	CreatedAt time.Time    `json:"created_at"`
	Table     *table.Table `json:"table"`
}

// Store reads and writes snapshots under Dir.
type Store struct {
	Dir    string
	Logger *zap.Logger

	now func() time.Time
}

// NewStore returns a store rooted at dir.
func NewStore(dir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{Dir: dir, Logger: logger, now: time.Now}
}

// SaveBase writes b and the matching BoQ-only snapshot. A zero RunID or
// CreatedAt is filled in; the stored value is returned.
func (s *Store) SaveBase(b Base) (Base, error) {
	if b.BoQ == nil || b.SO == nil {
		return b, fmt.Errorf("base snapshot needs both tables")
	}
	if b.RunID == uuid.Nil {
		b.RunID = uuid.New()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = s.clock().UTC()
	}
	if err := s.write(BaseFile, b); err != nil {
		return b, err
	}
	if err := s.write(BoQFile, BoQ{RunID: b.RunID, CreatedAt: b.CreatedAt, Table: b.BoQ}); err != nil {
		return b, err
	}
	s.logger().Info("saved base snapshot",
		zap.String("run_id", b.RunID.String()),
		zap.String("dir", s.Dir),
		zap.Int("boq_rows", b.BoQ.Len()),
		zap.Int("so_rows", b.SO.Len()),
	)
	return b, nil
}

// LoadBase reads the base snapshot. It returns ErrNotFound when none exists.
func (s *Store) LoadBase() (Base, error) {
	var b Base
	if err := s.read(BaseFile, &b); err != nil {
		return Base{}, err
	}
	if b.BoQ == nil || b.SO == nil {
		return Base{}, fmt.Errorf("base snapshot in %s is incomplete", s.Dir)
	}
	return b, nil
}

// LoadBoQ reads the BoQ-only snapshot. It returns ErrNotFound when none exists.
func (s *Store) LoadBoQ() (BoQ, error) {
	var b BoQ
	if err := s.read(BoQFile, &b); err != nil {
		return BoQ{}, err
	}
	if b.Table == nil {
		return BoQ{}, fmt.Errorf("boq snapshot in %s has no table", s.Dir)
	}
	return b, nil
}

func (s *Store) write(name string, v any) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	path := filepath.Join(s.Dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}

func (s *Store) read(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.Dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s in %s", ErrNotFound, name, s.Dir)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return nil
}

func (s *Store) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

func (s *Store) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
