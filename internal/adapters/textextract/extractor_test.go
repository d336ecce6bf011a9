package textextract_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/predicate/internal/adapters/textextract"
	"go.trai.ch/predicate/internal/core/domain"
)

func readTestdata(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

func TestExtract_PDF(t *testing.T) {
	e := textextract.New(40)

	text, err := e.Extract(readTestdata(t, "summary.pdf"))
	require.NoError(t, err)
	assert.Contains(t, text, "substantially equivalent to predicate K123456")
	assert.Contains(t, text, "DEN190045")
}

func TestExtract_ScannedPDFIsLowConfidence(t *testing.T) {
	e := textextract.New(40)

	text, err := e.Extract(readTestdata(t, "scanned.pdf"))
	require.ErrorIs(t, err, domain.ErrLowConfidence)
	assert.Empty(t, text)
}

func TestExtract_BrokenPDF(t *testing.T) {
	e := textextract.New(1)

	_, err := e.Extract([]byte("%PDF-1.4\nthis is not really a pdf"))
	require.ErrorIs(t, err, domain.ErrExtractFailed)
}

func TestExtract_HTML(t *testing.T) {
	e := textextract.New(20)
	page := `<!DOCTYPE html><html><head><title>Decision</title></head><body>
<h1>510(k) Summary</h1>
<p>Predicate device:   <b>K201234</b></p>
<table><tr><td>Reference</td><td>K190001</td></tr></table>
</body></html>`

	text, err := e.Extract([]byte(page))
	require.NoError(t, err)
	assert.Contains(t, text, "K201234")
	assert.Contains(t, text, "K190001")
	assert.NotContains(t, text, "<p>")
}

func TestExtract_PlainText(t *testing.T) {
	e := textextract.New(10)

	text, err := e.Extract([]byte("  Predicate:\t\tK201234  \r\n\r\n\r\n\r\nApplicant: Acme  "))
	require.NoError(t, err)
	assert.Equal(t, "Predicate: K201234\n\nApplicant: Acme", text)
}

func TestExtract_LowConfidenceKeepsRecoveredText(t *testing.T) {
	e := textextract.New(200)

	text, err := e.Extract([]byte("see K201234"))
	require.ErrorIs(t, err, domain.ErrLowConfidence)
	assert.Equal(t, "see K201234", text)
}

func TestExtract_Unsupported(t *testing.T) {
	e := textextract.New(1)

	_, err := e.Extract([]byte{0xff, 0xfe, 0x00, 0x81, 0x9c})
	require.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"a  b", "a b"},
		{"a\n\n\n\nb", "a\n\nb"},
		{"\t x \t\n y ", "x\ny"},
		{strings.Repeat(" ", 5), ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, textextract.Normalize(tt.in))
	}
}
