package lexical

import (
	"strings"
	"unicode"
)

// SentenceTerminators are the runes that end a sentence.
const SentenceTerminators = ".!?"

// IsSentenceTerminator reports whether r ends a sentence.
func IsSentenceTerminator(r rune) bool {
	return strings.ContainsRune(SentenceTerminators, r)
}

// IsWordSeparator reports whether r separates two terms inside a sentence.
func IsWordSeparator(r rune) bool {
	switch r {
	case ',', ':', '"':
		return true
	}
	return unicode.IsSpace(r)
}

// SplitSentences splits text on sentence terminators. Sentences are trimmed
// and empty ones dropped, so the result may be empty.
func SplitSentences(text string) []string {
	parts := strings.FieldsFunc(text, IsSentenceTerminator)
	sentences := make([]string, 0, len(parts))
	for _, part := range parts {
		if s := strings.TrimSpace(part); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// Tokenize splits a sentence into lower-cased terms.
func Tokenize(sentence string) []string {
	return lowerFields(sentence, IsWordSeparator)
}

// QueryTerms tokenizes a query. Unlike Tokenize it also splits on sentence
// terminators, since queries are never sentence-split first. Repeated terms
// are kept.
func QueryTerms(query string) []string {
	return lowerFields(query, func(r rune) bool {
		return IsWordSeparator(r) || IsSentenceTerminator(r)
	})
}

// CountTerms tokenizes sentences and returns per-term counts together with
// the total number of terms.
func CountTerms(sentences []string) (map[string]uint64, uint64) {
	counts := make(map[string]uint64)
	var total uint64
	for _, sentence := range sentences {
		for _, term := range Tokenize(sentence) {
			counts[term]++
			total++
		}
	}
	return counts, total
}

func lowerFields(s string, sep func(rune) bool) []string {
	fields := strings.FieldsFunc(s, sep)
	for i, f := range fields {
		fields[i] = strings.ToLower(f)
	}
	return fields
}
