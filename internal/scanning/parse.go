package scanning

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zombor/card-reader/internal/card"
)

// parseLinesJSON parses the JSON response from a vision model
func parseLinesJSON(text string) ([]card.RecognizedLine, error) {
	// Remove markdown code blocks if present
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	// Find the JSON object boundaries - look for first { and last }
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}

	text = text[startIdx : endIdx+1]

	var data recognizedLines
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	lines := make([]card.RecognizedLine, 0, len(data.Lines))
	for _, l := range data.Lines {
		// Text is kept verbatim; the matchers depend on its exact length
		if strings.TrimSpace(l.Text) == "" {
			continue
		}
		l.Confidence = clampConfidence(l.Confidence)
		lines = append(lines, l)
	}

	return lines, nil
}

func clampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}
