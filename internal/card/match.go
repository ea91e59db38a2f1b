package card

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	minNumberDigits = 13
	maxNumberDigits = 16
)

var (
	// 13 to 16 digits, optionally separated by spaces
	numberPattern = regexp.MustCompile(`(?:\d *?){13,16}`)

	// a leading 4-digit group, optionally behind a boundary character
	quickReadPattern = regexp.MustCompile(`^[\\/\[\]|]?(\d{4})`)

	// MM/YYYY or MM/YY
	expirationPattern = regexp.MustCompile(`(0[1-9]|1[0-2])/(\d{4}|\d{2})`)
)

// isBoundary reports whether r visually separates the groups of a quick-read card number
func isBoundary(r rune) bool {
	switch r {
	case '\\', '/', '[', ']', '|':
		return true
	}
	return false
}

// MatchNumber returns the first run of 13 to 16 digits in text with the
// separating spaces removed.
func MatchNumber(text string) (string, bool) {
	match := numberPattern.FindString(text)
	if match == "" {
		return "", false
	}
	return strings.ReplaceAll(match, " ", ""), true
}

// MatchQuickReadNumber returns the leading 4-digit group of text when it is
// bounded by boundary characters, as printed on cards that split the number
// into separately framed groups.
func MatchQuickReadNumber(text string) (string, bool) {
	m := quickReadPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	group := m[1]

	runes := []rune(text)
	switch {
	case len(runes) == 4:
		return group, true
	case isBoundary(runes[0]):
		return group, true
	case len(runes) > 4 && isBoundary(runes[4]):
		return group, true
	case len(runes) > 5 && isBoundary(runes[5]):
		return group, true
	}
	return "", false
}

// MatchExpiration returns the last MM/YYYY or MM/YY date in text. Cards that
// print a "valid from" date put it before the expiration date.
func MatchExpiration(text string) (Expiration, bool) {
	matches := expirationPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return Expiration{}, false
	}
	last := matches[len(matches)-1]

	yearString := last[2]
	if len(yearString) == 2 {
		yearString = "20" + yearString
	}

	month, err := strconv.Atoi(last[1])
	if err != nil {
		return Expiration{}, false
	}
	year, err := strconv.Atoi(yearString)
	if err != nil {
		return Expiration{}, false
	}
	return Expiration{Month: month, Year: year}, true
}
