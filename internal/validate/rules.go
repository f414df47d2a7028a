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
package validate

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/spraygospel/BoQ-Excel-Converter/internal/table"
)

// ruleFile is the on-disk layout of a rule set:
//
//	severity: warn
//	columns:
//	  - column: Qty.
//	    rules:
//	      - type: min_value
//	        value: 0
type ruleFile struct {
	Severity Severity      `yaml:"severity"`
	Columns  []ColumnRules `yaml:"columns"`
}

// LoadRules reads a YAML rule set. Custom rules cannot be expressed in a
// file and are rejected.
func LoadRules(path string) (DataValidator, error) {
	f, err := os.Open(path)
	if err != nil {
		return DataValidator{}, fmt.Errorf("open rules file: %w", err)
	}
	defer f.Close()
	return ReadRules(f)
}

// ReadRules decodes a YAML rule set from r. Severity defaults to warn.
func ReadRules(r io.Reader) (DataValidator, error) {
	var rf ruleFile
	if err := yaml.NewDecoder(r).Decode(&rf); err != nil && !errors.Is(err, io.EOF) {
		return DataValidator{}, &table.InvalidConfigurationError{Msg: "decode rules", Err: err}
	}
	if rf.Severity == "" {
		rf.Severity = SeverityWarn
	}
	if err := rf.Severity.check(); err != nil {
		return DataValidator{}, err
	}
	for _, cr := range rf.Columns {
		if cr.Column == "" {
			return DataValidator{}, &table.InvalidConfigurationError{Msg: "rule entry without column"}
		}
		for _, r := range cr.Rules {
			switch r.Type {
			case NotNull, MinValue, MaxValue, Regex, InList:
			default:
				return DataValidator{}, &table.InvalidConfigurationError{Msg: fmt.Sprintf("rule type %q is not allowed in a rules file (column %q)", r.Type, cr.Column)}
			}
		}
	}
	return DataValidator{Rules: rf.Columns, Severity: rf.Severity}, nil
}
