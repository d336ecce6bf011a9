// Package textextract implements the TextExtractor port for PDF, HTML and plain text documents.
package textextract

import (
	"bytes"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/ledongthuc/pdf"
	"go.trai.ch/predicate/internal/core/domain"
	"go.trai.ch/zerr"
)

// pdfSniffWindow is how far into a document the PDF header may start.
const pdfSniffWindow = 1024

var (
	pdfMagic      = []byte("%PDF-")
	horizontalRun = regexp.MustCompile(`[ \t\f\v\r]+`)
	blankLines    = regexp.MustCompile(`\n{3,}`)
)

// Extractor decodes documents and flags near-empty results.
type Extractor struct {
	minChars  int
	converter *md.Converter
}

// New creates an Extractor that requires at least minChars letters or digits.
func New(minChars int) *Extractor {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &Extractor{minChars: minChars, converter: converter}
}

// Extract returns the normalized text of content. When the text holds fewer
// than the configured number of letters and digits, the recovered text is
// returned together with domain.ErrLowConfidence.
func (e *Extractor) Extract(content []byte) (string, error) {
	var (
		raw string
		err error
	)
	switch detect(content) {
	case formatPDF:
		raw, err = extractPDF(content)
	case formatHTML:
		raw, err = e.converter.ConvertString(string(content))
		if err != nil {
			err = zerr.With(zerr.Wrap(domain.ErrExtractFailed, "html conversion failed"), "cause", err.Error())
		}
	case formatText:
		raw = string(content)
	default:
		return "", zerr.With(zerr.Wrap(domain.ErrUnsupportedFormat, "document not recognized"), "size", len(content))
	}
	if err != nil {
		return "", err
	}

	text := Normalize(raw)
	if n := significantChars(text); n < e.minChars {
		lowErr := zerr.With(zerr.Wrap(domain.ErrLowConfidence, "document yielded near-empty text"), "chars", n)
		return text, zerr.With(lowErr, "min_chars", e.minChars)
	}
	return text, nil
}

type format int

const (
	formatUnknown format = iota
	formatPDF
	formatHTML
	formatText
)

func detect(content []byte) format {
	head := content[:min(len(content), pdfSniffWindow)]
	if bytes.Contains(head, pdfMagic) {
		return formatPDF
	}
	if strings.HasPrefix(http.DetectContentType(content), "text/html") {
		return formatHTML
	}
	if utf8.Valid(content) {
		return formatText
	}
	return formatUnknown
}

// extractPDF concatenates the plain text of every page. Page level failures
// are skipped; a document that cannot be opened is an extraction failure.
func extractPDF(content []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = zerr.With(zerr.Wrap(domain.ErrExtractFailed, "pdf parser panicked"), "cause", fmt.Sprint(r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", zerr.With(zerr.Wrap(domain.ErrExtractFailed, "unreadable pdf"), "cause", err.Error())
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil || pageText == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(pageText)
	}
	return b.String(), nil
}

// Normalize collapses horizontal whitespace, trims each line and limits
// consecutive blank lines to one.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(horizontalRun.ReplaceAllString(line, " "))
	}
	s = strings.Join(lines, "\n")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

func significantChars(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
