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
package transform

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spraygospel/BoQ-Excel-Converter/internal/table"
)

// Mapping copies the Source column of the input into the Target column of the output.
type Mapping struct {
	Source string
	Target string
}

// FieldMapper projects a table onto a new set of target columns.
type FieldMapper struct {
	Mappings []Mapping
	// Defaults fill targets whose source is missing, and are appended as
	// constant columns when no mapping produces them.
	Defaults []table.Field
	// Transforms rewrite a target column cell by cell after copying.
	Transforms map[string]func(any) any
}

// Map builds the output table. Only mapped and defaulted targets appear, in
// mapping order followed by the remaining defaults.
func (m FieldMapper) Map(t *table.Table) (*table.Table, error) {
	defaults := make(map[string]any, len(m.Defaults))
	for _, f := range m.Defaults {
		defaults[f.Name] = f.Value
	}

	b := table.NewBuilder(table.New(nil, make([][]any, t.Len())))
	for _, mp := range m.Mappings {
		var values []any
		if col, err := t.Column(mp.Source); err == nil {
			values = col
		} else {
			values = make([]any, t.Len())
			if d, ok := defaults[mp.Target]; ok {
				for i := range values {
					values[i] = d
				}
			}
		}
		if err := b.SetColumn(mp.Target, values); err != nil {
			return nil, err
		}
	}
	mapped := b.Table()

	b = table.NewBuilder(mapped)
	for target, fn := range m.Transforms {
		col, err := mapped.Column(target)
		if err != nil {
			continue
		}
		for i, v := range col {
			col[i] = fn(v)
		}
		if err := b.SetColumn(target, col); err != nil {
			return nil, err
		}
	}
	for _, f := range m.Defaults {
		if mapped.HasColumn(f.Name) {
			continue
		}
		if err := b.AddColumn(f.Name, f.Value); err != nil {
			return nil, err
		}
	}
	return b.Table(), nil
}

// LoadMapping reads a mapping file with the header
// source_field,target_field[,default_value].
func LoadMapping(path string) ([]Mapping, []table.Field, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open mapping file: %w", err)
	}
	defer f.Close()
	return ReadMapping(f)
}

// ReadMapping parses mapping rows from r. An empty default_value cell means
// no default.
func ReadMapping(r io.Reader) ([]Mapping, []table.Field, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, &table.InvalidConfigurationError{Msg: "mapping file is empty"}
		}
		return nil, nil, &table.InvalidConfigurationError{Msg: "read mapping header", Err: err}
	}
	pos := map[string]int{}
	for i, h := range header {
		pos[strings.TrimSpace(h)] = i
	}
	src, okSrc := pos["source_field"]
	dst, okDst := pos["target_field"]
	if !okSrc || !okDst {
		return nil, nil, &table.InvalidConfigurationError{Msg: "mapping file needs source_field and target_field columns"}
	}
	def, hasDef := pos["default_value"]

	var mappings []Mapping
	var defaults []table.Field
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, &table.InvalidConfigurationError{Msg: fmt.Sprintf("read mapping line %d", line), Err: err}
		}
		source, target := field(rec, src), field(rec, dst)
		if source == "" || target == "" {
			continue
		}
		mappings = append(mappings, Mapping{Source: source, Target: target})
		if hasDef {
			if d := field(rec, def); d != "" {
				defaults = append(defaults, table.Field{Name: target, Value: table.ParseValue(d)})
			}
		}
	}
	return mappings, defaults, nil
}

func field(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// WriteMapping writes mappings in the format ReadMapping parses.
func WriteMapping(w io.Writer, mappings []Mapping) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"source_field", "target_field"}); err != nil {
		return err
	}
	for _, m := range mappings {
		if err := cw.Write([]string{m.Source, m.Target}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
