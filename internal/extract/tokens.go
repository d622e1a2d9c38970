package extract

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize applies NFKC normalization so ligatures and full-width forms
// from OCR compare equal to their plain counterparts
func Normalize(text string) string {
	return norm.NFKC.String(text)
}

// Tokens splits text into lower-cased alphanumeric tokens
func Tokens(text string) []string {
	fields := strings.FieldsFunc(Normalize(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, f := range fields {
		fields[i] = strings.ToLower(f)
	}
	return fields
}

// TokenSet returns the distinct tokens of text
func TokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range Tokens(text) {
		set[t] = struct{}{}
	}
	return set
}

// CapitalizedTokens returns the distinct lower-cased tokens that start with
// an upper-case letter in the original text (names, places, organizations)
func CapitalizedTokens(text string) map[string]struct{} {
	set := make(map[string]struct{})
	fields := strings.FieldsFunc(Normalize(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, f := range fields {
		runes := []rune(f)
		if len(runes) < 2 || !unicode.IsUpper(runes[0]) {
			continue
		}
		set[strings.ToLower(f)] = struct{}{}
	}
	return set
}

// Jaccard returns |a ∩ b| / |a ∪ b|, 0 when both sets are empty
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := intersectionSize(a, b)
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// OverlapRatio returns |a ∩ b| / min(|a|, |b|), 0 when either set is empty
func OverlapRatio(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	smaller := len(a)
	if len(b) < smaller {
		smaller = len(b)
	}
	return float64(intersectionSize(a, b)) / float64(smaller)
}

func intersectionSize(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for t := range a {
		if _, ok := b[t]; ok {
			n++
		}
	}
	return n
}

// FirstWords returns at most n whitespace-separated words of text
func FirstWords(text string, n int) string {
	words := strings.Fields(text)
	if n >= 0 && len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

// WordCount counts whitespace-separated words
func WordCount(text string) int {
	return len(strings.Fields(text))
}
