// Package parser turns raw search-result markup into product records.
package parser

import (
	"strconv"
	"strings"
)

var priceLabelStripper = strings.NewReplacer(",", "", "USD", "", "US$", "")

// ParsePrice converts displayed price text like "$1,234.56" or "USD 12.34"
// into its numeric value. Thousands separators and common currency labels
// are stripped, then only digit and decimal-point characters are kept in
// order and parsed as a decimal number. The second return value is false
// when nothing parsable survives.
func ParsePrice(text string) (float64, bool) {
	cleaned := priceLabelStripper.Replace(text)

	var b strings.Builder
	for _, r := range cleaned {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}

	digits := b.String()
	if digits == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// ParseRating returns the first whitespace-delimited token of text that
// parses as a number, e.g. "4.5 out of 5 stars" yields 4.5. The second
// return value is false when no token parses.
func ParseRating(text string) (float64, bool) {
	for _, token := range strings.Fields(text) {
		if value, err := strconv.ParseFloat(token, 64); err == nil {
			return value, true
		}
	}
	return 0, false
}

// cleanText collapses runs of whitespace and trims the result, matching
// what the displayed text looks like to a reader.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
