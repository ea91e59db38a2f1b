package scanning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/zombor/card-reader/internal/card"
)

const geminiTimeout = 30 * time.Second

// Gemini implements the Recognizer interface using Google Gemini
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini Recognizer instance
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	// OCR output should be as literal as possible
	model.SetTemperature(0)

	return &Gemini{
		client: client,
		model:  model,
	}, nil
}

// Recognize reads the text lines of a frame
func (g *Gemini) Recognize(ctx context.Context, imageData []byte, contentType string) ([]card.RecognizedLine, error) {
	ctx, cancel := context.WithTimeout(ctx, geminiTimeout)
	defer cancel()

	pngData, _, err := prepareImageData(imageData, contentType)
	if err != nil {
		return nil, err
	}

	// genai.ImageData expects just the format suffix, not the full MIME type
	parts := []genai.Part{
		genai.ImageData("png", pngData),
		genai.Text(lineScanPrompt),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	lines, err := parseLinesJSON(responseText.String())
	if err != nil {
		return nil, fmt.Errorf("parsing recognized lines: %w", err)
	}

	return lines, nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
