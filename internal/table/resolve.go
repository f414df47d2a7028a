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
package table

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// FuzzyThreshold is the minimum similarity ratio accepted by the last
// ResolveColumn tier.
const FuzzyThreshold = 0.7

// ResolveColumn finds the column a human-written name refers to. Tiers are
// tried in order and the first column, in table order, that satisfies a tier
// wins:
//
//  1. exact name
//  2. case-insensitive equality
//  3. case-insensitive substring: the column contains the candidate, or the
//     candidate contains a column name longer than three characters
//  4. equality after removing all whitespace
//  5. similarity ratio of at least FuzzyThreshold
func ResolveColumn(t *Table, candidate string) (string, bool) {
	return resolveName(t.columns, candidate)
}

// ResolveAny returns the first candidate that resolves.
func ResolveAny(t *Table, candidates ...string) (string, bool) {
	for _, c := range candidates {
		if col, ok := ResolveColumn(t, c); ok {
			return col, true
		}
	}
	return "", false
}

func resolveName(columns []string, candidate string) (string, bool) {
	if candidate == "" || len(columns) == 0 {
		return "", false
	}
	for _, c := range columns {
		if c == candidate {
			return c, true
		}
	}
	lc := strings.ToLower(candidate)
	for _, c := range columns {
		if strings.ToLower(c) == lc {
			return c, true
		}
	}
	for _, c := range columns {
		if strings.Contains(strings.ToLower(c), lc) {
			return c, true
		}
	}
	for _, c := range columns {
		if utf8.RuneCountInString(c) > 3 && strings.Contains(lc, strings.ToLower(c)) {
			return c, true
		}
	}
	ns := stripSpace(lc)
	for _, c := range columns {
		if stripSpace(strings.ToLower(c)) == ns {
			return c, true
		}
	}
	best, bestRatio := "", 0.0
	for _, c := range columns {
		if r := Similarity(lc, strings.ToLower(c)); r >= FuzzyThreshold && r > bestRatio {
			best, bestRatio = c, r
		}
	}
	return best, best != ""
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// Similarity returns the Ratcliff/Obershelp ratio 2*M/T of two strings, where
// M is the number of runes in recursively matched longest common blocks.
func Similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchingRunes(ra, rb)) / float64(total)
}

func matchingRunes(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	i, j, n := longestCommonBlock(a, b)
	if n == 0 {
		return 0
	}
	return n + matchingRunes(a[:i], b[:j]) + matchingRunes(a[i+n:], b[j+n:])
}

func longestCommonBlock(a, b []rune) (int, int, int) {
	bestI, bestJ, bestN := 0, 0, 0
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > bestN {
					bestI, bestJ, bestN = i-cur[j], j-cur[j], cur[j]
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return bestI, bestJ, bestN
}
