// Package reply splits a model reply into its reasoning block and the
// conclusion shown to the user.
package reply

import (
	"regexp"
	"strings"
)

// thinkPattern matches the first <think>...</think> block, across lines.
var thinkPattern = regexp.MustCompile(`(?s)<think>(.*?)</think>`)

// Parsed is a reply split into its two segments.
type Parsed struct {
	Reasoning  string
	Conclusion string
	found      bool
}

// HasReasoning reports whether a reasoning block was present.
func (p Parsed) HasReasoning() bool {
	return p.found
}

// Parse extracts the first reasoning block from raw. When raw carries no
// complete block the conclusion is raw, untouched.
func Parse(raw string) Parsed {
	loc := thinkPattern.FindStringSubmatchIndex(raw)
	if loc == nil {
		return Parsed{Conclusion: raw}
	}

	return Parsed{
		Reasoning:  strings.TrimSpace(raw[loc[2]:loc[3]]),
		Conclusion: strings.TrimSpace(raw[:loc[0]] + raw[loc[1]:]),
		found:      true,
	}
}
