package scanning

import (
	"context"

	"github.com/zombor/card-reader/internal/card"
)

// Recognizer produces the recognized text lines of a single camera frame
type Recognizer interface {
	// Recognize runs OCR over a frame and returns its lines in reading order
	Recognize(ctx context.Context, imageData []byte, contentType string) ([]card.RecognizedLine, error)
	// Close closes the recognizer and releases resources
	Close() error
}

// recognizedLines is the JSON document the vision models are asked to return
type recognizedLines struct {
	Lines []card.RecognizedLine `json:"lines"`
}
