// Copyright (c) 2024-2026 CrossTalk AI
// Author: Minh Tran <minh@crosstalk.ai>
//
// Licensed under GPL-2.0 with CrossTalk Additional Terms.
// See LICENSE.md or contact sales@crosstalk.ai for commercial usage.

package utils

import "strings"

// WordCount returns the number of whitespace-separated words in s.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// SplitClauses splits s at commas and sentence-ending punctuation, keeping
// the delimiter with its clause. Empty clauses are dropped. Used by the
// pipeline to re-synthesize long translations clause by clause.
func SplitClauses(s string) []string {
	var clauses []string
	var b strings.Builder
	for _, r := range s {
		b.WriteRune(r)
		switch r {
		case ',', '.', '!', '?', ';':
			if c := strings.TrimSpace(b.String()); c != "" && c != string(r) {
				clauses = append(clauses, c)
			}
			b.Reset()
		}
	}
	if c := strings.TrimSpace(b.String()); c != "" {
		clauses = append(clauses, c)
	}
	return clauses
}

// HasClauseBreaks reports whether s contains at least one comma or period,
// i.e. whether SplitClauses would yield more than one clause for typical text.
func HasClauseBreaks(s string) bool {
	return strings.ContainsAny(s, ",.")
}
