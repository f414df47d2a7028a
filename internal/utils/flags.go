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
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ConfirmAction asks a yes/no question on out and reads the answer from in.
func ConfirmAction(in io.Reader, out io.Writer, actionDescription string) bool {
	reader := bufio.NewReader(in)
	fmt.Fprintf(out, "\n-------------------------------------------------------------\n")
	fmt.Fprintf(out, "%s\n", actionDescription)
	fmt.Fprint(out, "Do you want to write these records to the catalog? (yes/no): ")
	text, _ := reader.ReadString('\n')
	action := strings.TrimSpace(strings.ToLower(text))
	return action == "yes" || action == "y"
}

// ParseModelFlag parses "model" or "model[field1,field2]".
func ParseModelFlag(flag string) (string, []string, error) {
	flag = strings.TrimSpace(flag)
	if flag == "" {
		return "", nil, fmt.Errorf("model must not be empty")
	}
	bracketStart := strings.Index(flag, "[")
	if bracketStart == -1 {
		if strings.Contains(flag, "]") {
			return "", nil, fmt.Errorf("missing opening bracket in: %s", flag)
		}
		return flag, nil, nil
	}
	if !strings.HasSuffix(flag, "]") {
		return "", nil, fmt.Errorf("missing closing bracket in: %s", flag)
	}
	model := strings.TrimSpace(flag[:bracketStart])
	if model == "" {
		return "", nil, fmt.Errorf("model must not be empty in: %s", flag)
	}
	return model, ParseList(flag[bracketStart+1 : len(flag)-1]), nil
}

// ParseList splits a comma separated flag value, trimming entries and
// dropping empty ones. Commas inside square brackets do not split.
func ParseList(s string) []string {
	var out []string
	for _, part := range SplitOutsideBrackets(s) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// SplitOutsideBrackets splits s by commas that are not within brackets.
func SplitOutsideBrackets(s string) []string {
	var result []string
	var current strings.Builder
	depth := 0

	for _, char := range s {
		switch char {
		case '[':
			depth++
			current.WriteRune(char)
		case ']':
			if depth > 0 {
				depth--
			}
			current.WriteRune(char)
		case ',':
			if depth > 0 {
				current.WriteRune(char)
			} else {
				result = append(result, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(char)
		}
	}

	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}

// EnsureParentDir creates the directory that will hold path.
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}
