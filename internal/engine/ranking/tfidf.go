package ranking

import (
	"maps"
	"math"
	"slices"
	"strings"
	"unicode"
)

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true,
	"at": true, "be": true, "by": true, "for": true, "from": true,
	"has": true, "have": true, "in": true, "is": true, "it": true,
	"its": true, "of": true, "on": true, "or": true, "that": true,
	"the": true, "to": true, "was": true, "were": true, "with": true,
	"this": true, "which": true, "device": true, "devices": true,
}

// tokenize splits text into lowercase terms, dropping stop words and single characters.
func tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(c rune) bool {
		return !unicode.IsLetter(c) && !unicode.IsDigit(c)
	})
	tokens := words[:0]
	for _, w := range words {
		if len(w) < 2 || stopWords[w] {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

type termCounts map[string]float64

func countTerms(tokens []string) termCounts {
	tc := make(termCounts, len(tokens))
	for _, t := range tokens {
		tc[t]++
	}
	return tc
}

// corpus holds document frequencies over the query and every candidate.
type corpus struct {
	docs int
	df   map[string]int
}

func newCorpus(docs []termCounts) *corpus {
	c := &corpus{docs: len(docs), df: make(map[string]int)}
	for _, d := range docs {
		for term := range d {
			c.df[term]++
		}
	}
	return c
}

// idf is smoothed so that a term present everywhere still weighs a little.
func (c *corpus) idf(term string) float64 {
	return math.Log(1+float64(c.docs)/float64(1+c.df[term])) + 1
}

func (c *corpus) vector(tc termCounts) map[string]float64 {
	v := make(map[string]float64, len(tc))
	for term, n := range tc {
		v[term] = (1 + math.Log(n)) * c.idf(term)
	}
	return v
}

// cosine returns the cosine similarity of two sparse vectors, 0 when either is empty.
// Terms are summed in sorted order so equal inputs give bit-identical scores.
func cosine(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot float64
	for _, term := range slices.Sorted(maps.Keys(a)) {
		dot += a[term] * b[term]
	}
	na, nb := norm(a), norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return clamp(dot / (na * nb))
}

func norm(v map[string]float64) float64 {
	var sum float64
	for _, term := range slices.Sorted(maps.Keys(v)) {
		sum += v[term] * v[term]
	}
	return math.Sqrt(sum)
}

func clamp(x float64) float64 {
	switch {
	case x < 0 || math.IsNaN(x):
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}
