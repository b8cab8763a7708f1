package parse

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"pdf", []byte("%PDF-1.7 rest"), FormatPDF},
		{"docx zip", []byte("PK\x03\x04rest"), FormatDOCX},
		{"png", []byte("\x89PNG\r\n\x1a\n"), FormatImage},
		{"jpeg", []byte("\xff\xd8\xff\xe0"), FormatImage},
		{"gif", []byte("GIF89a"), FormatImage},
		{"webp", append([]byte("RIFF\x00\x00\x00\x00"), []byte("WEBPVP8 ")...), FormatImage},
		{"markdown", []byte("# Campaign brief\n"), FormatText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.data))
		})
	}
}

func TestImageMIMEType(t *testing.T) {
	assert.Equal(t, "image/png", ImageMIMEType([]byte("\x89PNG\r\n")))
	assert.Equal(t, "image/jpeg", ImageMIMEType([]byte("\xff\xd8\xff\xe0")))
	assert.Equal(t, "application/octet-stream", ImageMIMEType([]byte("plain")))
}

func TestExtractTextPlain(t *testing.T) {
	text, err := ExtractText([]byte("Campaign brief for Acme.\n\n\n\nBudget: $25k.\x00"))
	require.NoError(t, err)
	assert.Equal(t, "Campaign brief for Acme.\n\nBudget: $25k.", text)
}

func TestExtractTextImage(t *testing.T) {
	_, err := ExtractText([]byte("\x89PNG\r\n\x1a\nimagedata"))
	assert.ErrorIs(t, err, ErrNeedsVision)
}

func TestExtractTextEmpty(t *testing.T) {
	_, err := ExtractText(nil)
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, err = ExtractText([]byte("   \n\n  "))
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestExtractTextBinaryGarbage(t *testing.T) {
	_, err := ExtractText([]byte{0xfe, 0xff, 0x00, 0x81, 0x99})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestNormalizeCapsAtWordBoundary(t *testing.T) {
	long := strings.Repeat("word ", maxTextLen/4)
	got := Normalize(long)
	assert.LessOrEqual(t, len(got), maxTextLen)
	assert.False(t, strings.HasSuffix(got, " "), "cap should trim trailing space")
	assert.True(t, strings.HasSuffix(got, "word"), "cap should land on a word boundary")
}

func TestNormalizeCapKeepsValidUTF8(t *testing.T) {
	// One leading ASCII byte pushes every rune boundary to an odd
	// offset, so a naive byte cut would split a rune. No spaces, so
	// the word-boundary fallback stays out of the way.
	long := "a" + strings.Repeat("é", maxTextLen)
	got := Normalize(long)
	assert.LessOrEqual(t, len(got), maxTextLen)
	assert.True(t, utf8.ValidString(got), "cap must not split a rune")
}

func TestCombine(t *testing.T) {
	combined := Combine("brief text", "kickoff context")
	assert.Contains(t, combined, "brief text")
	assert.Contains(t, combined, "--- Kickoff document ---")
	assert.Contains(t, combined, "kickoff context")

	assert.Equal(t, "brief text", Combine("brief text", ""))
	assert.Equal(t, "kickoff context", Combine("", "kickoff context"))
}

// buildDOCX assembles a minimal DOCX archive around document.xml.
func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtractDOCX(t *testing.T) {
	docXML := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Campaign brief for Acme.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Budget:</w:t></w:r><w:r><w:tab/><w:t>$25,000</w:t></w:r></w:p>
    <w:p><w:r><w:t>Goals: awareness</w:t><w:br/><w:t>and conversions.</w:t></w:r></w:p>
  </w:body>
</w:document>`

	text, err := ExtractText(buildDOCX(t, docXML))
	require.NoError(t, err)
	assert.Contains(t, text, "Campaign brief for Acme.")
	assert.Contains(t, text, "Budget:\t$25,000")
	assert.Contains(t, text, "Goals: awareness\nand conversions.")
}

func TestExtractDOCXMissingDocument(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/styles.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte("<styles/>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = ExtractText(buf.Bytes())
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
