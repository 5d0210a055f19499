package reply

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		reasoning  string
		conclusion string
		found      bool
	}{
		{
			name:       "leading block",
			raw:        "<think>because x</think>Buy card Y",
			reasoning:  "because x",
			conclusion: "Buy card Y",
			found:      true,
		},
		{
			name:       "multi-line block is trimmed",
			raw:        "<think>\n  dining is 40%\n  travel is 30%\n</think>\n\nGet the Sapphire card.\n",
			reasoning:  "dining is 40%\n  travel is 30%",
			conclusion: "Get the Sapphire card.",
			found:      true,
		},
		{
			name:       "block in the middle",
			raw:        "Intro. <think>hidden</think> Outro.",
			reasoning:  "hidden",
			conclusion: "Intro.  Outro.",
			found:      true,
		},
		{
			name:       "first closing marker ends the block",
			raw:        "<think>a <think> b</think>c</think>d",
			reasoning:  "a <think> b",
			conclusion: "c</think>d",
			found:      true,
		},
		{
			name:       "only the first block is removed",
			raw:        "<think>one</think>Answer<think>two</think>",
			reasoning:  "one",
			conclusion: "Answer<think>two</think>",
			found:      true,
		},
		{
			name:       "empty block",
			raw:        "<think></think>  Done  ",
			reasoning:  "",
			conclusion: "Done",
			found:      true,
		},
		{
			name:       "no markers keeps raw untrimmed",
			raw:        "  Plain answer\n",
			conclusion: "  Plain answer\n",
		},
		{
			name:       "unterminated block",
			raw:        "<think>still going",
			conclusion: "<think>still going",
		},
		{
			name:       "closing marker only",
			raw:        "oops</think>",
			conclusion: "oops</think>",
		},
		{
			name: "empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.raw)
			assert.Equal(t, tt.reasoning, got.Reasoning)
			assert.Equal(t, tt.conclusion, got.Conclusion)
			assert.Equal(t, tt.found, got.HasReasoning())
		})
	}
}

func TestParseRemovesFirstBlockMarkers(t *testing.T) {
	inputs := []string{
		"<think>x</think>y",
		"pre<think>\nmulti\nline\n</think>post",
		"<think> spaced </think>",
	}
	for _, raw := range inputs {
		got := Parse(raw)
		assert.False(t, strings.Contains(got.Conclusion, "<think>"), raw)
		assert.False(t, strings.Contains(got.Conclusion, "</think>"), raw)

		start := strings.Index(raw, "<think>") + len("<think>")
		end := strings.Index(raw, "</think>")
		assert.Equal(t, strings.TrimSpace(raw[start:end]), got.Reasoning, raw)
	}
}
