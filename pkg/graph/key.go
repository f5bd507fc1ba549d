package graph

import (
	"strings"
	"unicode"
)

// NormalizeText canonicalizes hypothesis text for node identity: lowercase,
// whitespace runs collapsed to a single space, leading and trailing
// punctuation stripped. Two identically-worded claims always normalize to
// the same string, which is what makes node creation idempotent.
func NormalizeText(text string) string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	normalized = strings.Join(strings.Fields(normalized), " ")
	normalized = strings.TrimFunc(normalized, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
	return strings.TrimSpace(normalized)
}

// NodeKey derives the deterministic node identifier from a hypothesis kind
// and its text, e.g. ("Topic", "Brand  Guidelines.") -> "topic:brand_guidelines".
func NodeKey(kind string, text string) string {
	slug := strings.ReplaceAll(NormalizeText(text), " ", "_")
	return strings.ToLower(kind) + ":" + slug
}
