package card

import "strings"

// MinConfidence is the confidence a line must exceed to be considered
const MinConfidence = 0.3

// quickReadGroups is the number of 4-digit groups that make up a quick-read card number
const quickReadGroups = 4

// Extract resolves the recognized lines of a single frame into at most one
// candidate. Lines are matched in the order given. A full card number takes
// priority over quick-read groups, and quick-read groups only count when
// exactly four of them were found.
func Extract(lines []RecognizedLine) Candidate {
	var (
		number     string
		quickReads []string
		expiration *Expiration
	)

	for _, line := range lines {
		if line.Confidence <= MinConfidence {
			continue
		}
		text := line.Text

		if number == "" {
			if n, ok := MatchNumber(text); ok {
				number = n
				continue
			}
		}
		if group, ok := MatchQuickReadNumber(text); ok {
			quickReads = append(quickReads, group)
			continue
		}
		if exp, ok := MatchExpiration(text); ok {
			// Two dates in one frame (e.g. valid from and valid thru on
			// separate lines) can't be told apart, so drop both.
			if expiration != nil {
				expiration = nil
				continue
			}
			expiration = &exp
		}
	}

	switch {
	case number != "":
		return Candidate{Number: number, Expiration: expiration}
	case len(quickReads) == quickReadGroups:
		return Candidate{Number: strings.Join(quickReads, ""), Expiration: expiration}
	default:
		return Candidate{}
	}
}
