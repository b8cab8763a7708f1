// Package parse converts uploaded briefs (PDF, DOCX, plain text) into
// normalized text for the extraction stage. Image uploads are not
// parsed locally; they surface ErrNeedsVision so the pipeline routes
// them to a multimodal model.
package parse

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/gen2brain/go-fitz"
)

// Document formats recognized by Detect.
const (
	FormatPDF   = "pdf"
	FormatDOCX  = "docx"
	FormatImage = "image"
	FormatText  = "text"
)

// Extracted text is capped so a single upload cannot blow the token
// budget of downstream model calls.
const maxTextLen = 60000

// go-fitz wraps mupdf, which is not safe for concurrent use.
var fitzMu sync.Mutex

// Detect sniffs the document format from its leading bytes.
func Detect(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte("%PDF-")):
		return FormatPDF
	case bytes.HasPrefix(data, []byte("PK\x03\x04")):
		return FormatDOCX
	case bytes.HasPrefix(data, []byte("\x89PNG")),
		bytes.HasPrefix(data, []byte("\xff\xd8\xff")),
		bytes.HasPrefix(data, []byte("GIF8")),
		len(data) >= 12 && bytes.Equal(data[8:12], []byte("WEBP")):
		return FormatImage
	default:
		return FormatText
	}
}

// ImageMIMEType returns the MIME type for a sniffed image upload.
func ImageMIMEType(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG")):
		return "image/png"
	case bytes.HasPrefix(data, []byte("\xff\xd8\xff")):
		return "image/jpeg"
	case bytes.HasPrefix(data, []byte("GIF8")):
		return "image/gif"
	case len(data) >= 12 && bytes.Equal(data[8:12], []byte("WEBP")):
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// ExtractText converts an uploaded brief to normalized text.
func ExtractText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyDocument
	}

	var (
		text string
		err  error
	)
	switch Detect(data) {
	case FormatPDF:
		text, err = extractPDF(data)
	case FormatDOCX:
		text, err = extractDOCX(data)
	case FormatImage:
		return "", ErrNeedsVision
	case FormatText:
		text, err = extractPlain(data)
	}
	if err != nil {
		return "", err
	}

	text = Normalize(text)
	if text == "" {
		return "", ErrEmptyDocument
	}
	return text, nil
}

func extractPDF(data []byte) (string, error) {
	fitzMu.Lock()
	defer fitzMu.Unlock()

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("error opening PDF: %w", err)
	}
	defer doc.Close()

	var sb strings.Builder
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			return "", fmt.Errorf("error extracting text from page %d: %w", i, err)
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func extractPlain(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", ErrUnsupportedFormat
	}
	return string(data), nil
}

// Normalize strips control characters, collapses blank-line runs, and
// caps the length at a word boundary.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		if r == '\n' || r == '\t' || !unicode.IsControl(r) {
			sb.WriteRune(r)
		}
	}
	text = sb.String()

	// Collapse runs of three or more newlines into a paragraph break.
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}
	text = strings.TrimSpace(text)

	if len(text) > maxTextLen {
		// Never split a multi-byte rune; back up to a boundary first,
		// then prefer the last word break past the halfway mark.
		end := maxTextLen
		for end > 0 && !utf8.RuneStart(text[end]) {
			end--
		}
		cut := text[:end]
		if idx := strings.LastIndexAny(cut, " \n\t"); idx > maxTextLen/2 {
			cut = cut[:idx]
		}
		text = strings.TrimSpace(cut)
	}
	return text
}

// Combine appends kickoff document text to the brief text under a
// separator so extraction sees both in one pass.
func Combine(briefText, kickoffText string) string {
	briefText = strings.TrimSpace(briefText)
	kickoffText = strings.TrimSpace(kickoffText)
	if kickoffText == "" {
		return briefText
	}
	if briefText == "" {
		return kickoffText
	}
	return briefText + "\n\n--- Kickoff document ---\n\n" + kickoffText
}
