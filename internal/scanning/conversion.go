package scanning

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// lineScanPrompt is the shared prompt used by all vision backends for reading card frames
const lineScanPrompt = `You are an OCR engine looking at one camera frame of a payment card. Read every line of text printed or embossed on the card, exactly as it appears.

Return ONLY valid JSON in this exact format:
{
  "lines": [
    {"text": "4111 1234 5678 9010", "confidence": 0.95},
    {"text": "VALID THRU 09/25", "confidence": 0.80}
  ]
}

Important:
- One entry per visual line, in reading order (top to bottom, left to right)
- Copy characters verbatim, including spaces, slashes and separators such as | [ ] \
- Do not correct, complete or reformat numbers or dates
- "confidence" is a number between 0 and 1 describing how sure you are of that line
- If no text is visible, return {"lines": []}
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// detectMimeType normalizes the declared content type, sniffing the data when
// it is missing or too generic to trust
func detectMimeType(data []byte, contentType string) string {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(mimeType, ";"); i != -1 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = mimetype.Detect(data).String()
		if i := strings.Index(mimeType, ";"); i != -1 {
			mimeType = mimeType[:i]
		}
	}
	return mimeType
}

// isHEICMimeType checks if the MIME type indicates HEIC/HEIF format
func isHEICMimeType(mimeType string) bool {
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}

// decodeFrame decodes a frame into an image. PDFs render their first page.
func decodeFrame(data []byte, mimeType string) (image.Image, error) {
	switch {
	case mimeType == "application/pdf":
		doc, err := fitz.NewFromMemory(data)
		if err != nil {
			return nil, fmt.Errorf("opening PDF: %w", err)
		}
		defer doc.Close()

		img, err := doc.Image(0)
		if err != nil {
			return nil, fmt.Errorf("rendering PDF page: %w", err)
		}
		return img, nil
	case isHEICMimeType(mimeType):
		// Go's standard image package doesn't support HEIC
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
		return img, nil
	default:
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			if strings.Contains(err.Error(), "unknown format") {
				return nil, fmt.Errorf("unsupported frame format %q. Supported formats: JPEG, PNG, GIF, HEIC, HEIF, PDF: %w", mimeType, err)
			}
			return nil, fmt.Errorf("decoding image: %w", err)
		}
		return img, nil
	}
}

// prepareImageData converts a frame to PNG for the vision backends.
// Returns the PNG data and whether conversion occurred.
func prepareImageData(data []byte, contentType string) ([]byte, bool, error) {
	if len(data) == 0 {
		return nil, false, fmt.Errorf("empty frame")
	}

	mimeType := detectMimeType(data, contentType)
	if mimeType == "image/png" {
		return data, false, nil
	}

	img, err := decodeFrame(data, mimeType)
	if err != nil {
		return nil, false, fmt.Errorf("converting frame to PNG: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, false, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), true, nil
}
