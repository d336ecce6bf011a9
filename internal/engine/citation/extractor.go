// Package citation finds predicate device identifiers in extracted document text.
package citation

import (
	"regexp"
	"slices"
	"strings"

	"go.trai.ch/predicate/internal/core/domain"
	"golang.org/x/text/unicode/norm"
)

// minRealDigits is how many characters of a corrected number must already be digits.
const minRealDigits = 4

var (
	strictPattern = regexp.MustCompile(`\b(?:DEN|BK|K|P)\d{6}\b`)

	// loosePattern admits a separator after the prefix and look-alike characters
	// in the number. Boundaries are checked by hand because the number may end in '|'.
	loosePattern = regexp.MustCompile(`(DEN|0EN|BK|8K|K|P)[ \-]?([0-9ODQILZSGB|]{6})`)

	prefixFixes = map[string]string{
		"0EN": "DEN",
		"8K":  "BK",
	}

	digitFixes = strings.NewReplacer(
		"O", "0", "D", "0", "Q", "0",
		"I", "1", "L", "1", "|", "1",
		"Z", "2",
		"S", "5",
		"G", "6",
		"B", "8",
	)
)

// Correction is an identifier recovered from OCR-damaged text.
type Correction struct {
	Raw string `json:"raw"`
	ID  string `json:"id"`
}

// Result is the outcome of scanning one text.
type Result struct {
	// IDs are the cited identifiers, sorted and unique.
	IDs []string
	// Corrections lists the identifiers that only matched after repair, in text order.
	Corrections []Correction
}

// Extractor finds cited identifiers. The zero value is ready to use.
type Extractor struct{}

// New returns an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract returns the identifiers cited by text, excluding selfID.
func (e *Extractor) Extract(text, selfID string) []string {
	return e.Scan(text, selfID).IDs
}

// Scan runs the strict pass, then the loose pass with OCR repair.
func (e *Extractor) Scan(text, selfID string) Result {
	text = strings.ToUpper(norm.NFKC.String(text))
	self := strings.ToUpper(strings.TrimSpace(selfID))

	found := make(map[string]struct{})
	for _, id := range strictPattern.FindAllString(text, -1) {
		found[id] = struct{}{}
	}

	var corrections []Correction
	for _, m := range loosePattern.FindAllStringSubmatchIndex(text, -1) {
		if !isBoundary(text, m[0]-1) || !isBoundary(text, m[1]) {
			continue
		}
		raw := text[m[0]:m[1]]
		id, ok := repair(text[m[2]:m[3]], text[m[4]:m[5]])
		if !ok {
			continue
		}
		if _, seen := found[id]; !seen && id != self && compact(raw) != id {
			corrections = append(corrections, Correction{Raw: raw, ID: id})
		}
		found[id] = struct{}{}
	}

	delete(found, self)
	ids := make([]string, 0, len(found))
	for id := range found {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return Result{IDs: ids, Corrections: corrections}
}

// repair maps look-alike characters back to the identifier alphabet and
// re-validates the result against the strict grammar.
func repair(prefix, number string) (string, bool) {
	digits := 0
	for i := range len(number) {
		if number[i] >= '0' && number[i] <= '9' {
			digits++
		}
	}
	if digits < minRealDigits {
		return "", false
	}
	// P followed by a letter is usually a word (PO, PS) rather than a PMA number.
	if prefix == "P" && (number[0] < '0' || number[0] > '9') {
		return "", false
	}

	if fixed, ok := prefixFixes[prefix]; ok {
		prefix = fixed
	}
	id := prefix + digitFixes.Replace(number)
	if !domain.ValidDeviceID(id) {
		return "", false
	}
	return id, true
}

// isBoundary reports whether position i is outside any identifier token.
func isBoundary(text string, i int) bool {
	if i < 0 || i >= len(text) {
		return true
	}
	c := text[i]
	return !(c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '|')
}

func compact(raw string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(raw)
}
