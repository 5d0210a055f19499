// Package prompt turns an uploaded spending file into a recommendation request.
package prompt

import (
	"errors"
	"strings"
)

const (
	header  = "Below are my spending habits:\n\n"
	trailer = "\nPlease suggest me a good credit card that I can use for more benefits."
)

var ErrEmptyFile = errors.New("the CSV file is empty")

// Lines returns the trimmed, non-blank lines of text in their original order.
// A leading UTF-8 byte order mark is dropped.
func Lines(text string) []string {
	text = strings.TrimPrefix(text, "\ufeff")
	var lines []string
	for _, row := range strings.Split(text, "\n") {
		row = strings.TrimSpace(row)
		if row != "" {
			lines = append(lines, row)
		}
	}
	return lines
}

// FromCSV formats every non-blank line of text between the fixed header and
// trailer. Lines are kept verbatim; columns are not interpreted.
func FromCSV(text string) (string, error) {
	rows := Lines(text)
	if len(rows) == 0 {
		return "", ErrEmptyFile
	}

	var b strings.Builder
	b.WriteString(header)
	for _, row := range rows {
		b.WriteString(row)
		b.WriteString("\n")
	}
	b.WriteString(trailer)
	return b.String(), nil
}
