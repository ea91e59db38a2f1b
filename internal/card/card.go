package card

import (
	"errors"
	"fmt"
	"strings"
)

// RecognizedLine is one OCR text observation for a frame
type RecognizedLine struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Expiration is a card expiration month and 4-digit year
type Expiration struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// Candidate is the tentative extraction result for a single frame.
// An empty Number means no card number was found in the frame.
type Candidate struct {
	Number     string
	Expiration *Expiration
}

// HasNumber reports whether the candidate carries a card number
func (c Candidate) HasNumber() bool {
	return c.Number != ""
}

// Record is a finalized card read
type Record struct {
	Number          string `json:"card_number"`
	ExpirationMonth *int   `json:"expiration_month,omitempty"`
	ExpirationYear  *int   `json:"expiration_year,omitempty"`
}

// ErrNoNumber is returned when a record is built from a candidate without a card number
var ErrNoNumber = errors.New("candidate has no card number")

// NewRecord builds a Record from a candidate. The expiration month and year
// are either both set or both nil.
func NewRecord(c Candidate) (Record, error) {
	if !c.HasNumber() {
		return Record{}, ErrNoNumber
	}
	if !isCardNumber(c.Number) {
		return Record{}, fmt.Errorf("invalid card number length %d", len(c.Number))
	}

	r := Record{Number: c.Number}
	if c.Expiration != nil {
		month, year := c.Expiration.Month, c.Expiration.Year
		r.ExpirationMonth = &month
		r.ExpirationYear = &year
	}
	return r, nil
}

// HasExpiration reports whether the record carries an expiration date
func (r Record) HasExpiration() bool {
	return r.ExpirationMonth != nil && r.ExpirationYear != nil
}

// ExpirationYearString returns the expiration year as 2 digits
func (r Record) ExpirationYearString() (string, bool) {
	full, ok := r.ExpirationYearStringFull()
	if !ok {
		return "", false
	}
	if len(full) > 2 {
		full = full[len(full)-2:]
	}
	return full, true
}

// ExpirationYearStringFull returns the expiration year as 4 digits
func (r Record) ExpirationYearStringFull() (string, bool) {
	if r.ExpirationYear == nil {
		return "", false
	}
	return fmt.Sprintf("%d", *r.ExpirationYear), true
}

// ExpirationMonthString returns the expiration month zero-padded to 2 digits,
// e.g. "09" for September.
func (r Record) ExpirationMonthString() (string, bool) {
	if r.ExpirationMonth == nil {
		return "", false
	}
	return fmt.Sprintf("%02d", *r.ExpirationMonth), true
}

// ExpirationDisplayString returns the expiration date as MM/YY
func (r Record) ExpirationDisplayString() (string, bool) {
	year, ok := r.ExpirationYearString()
	if !ok {
		return "", false
	}
	month, ok := r.ExpirationMonthString()
	if !ok {
		return "", false
	}
	return month + "/" + year, true
}

// NumberDisplayString returns the card number with a space every 4 digits
func (r Record) NumberDisplayString() string {
	var b strings.Builder
	for i, d := range r.Number {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(d)
	}
	return b.String()
}

// MaskedNumber returns the card number with all but the last 4 digits hidden.
// Use it whenever a number has to be logged.
func (r Record) MaskedNumber() string {
	return maskNumber(r.Number)
}

func maskNumber(number string) string {
	if len(number) <= 4 {
		return number
	}
	return strings.Repeat("*", len(number)-4) + number[len(number)-4:]
}

func isCardNumber(s string) bool {
	if len(s) < minNumberDigits || len(s) > maxNumberDigits {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
