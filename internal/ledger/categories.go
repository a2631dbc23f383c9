package ledger

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultCategories are the categories every user starts with.
var DefaultCategories = []string{
	"Alimentação",
	"Lazer",
	"Transporte",
	"Saúde",
	"Moradia",
	"Educação",
	"Poupança",
}

// CategoryNormalizer maps free-form category names onto a canonical spelling.
type CategoryNormalizer struct {
	known map[string]string // normalized key -> canonical name
}

// NewCategoryNormalizer creates a normalizer seeded with names.
func NewCategoryNormalizer(names ...string) *CategoryNormalizer {
	n := &CategoryNormalizer{known: make(map[string]string)}
	for _, name := range names {
		n.Learn(name)
	}
	return n
}

// Learn registers name as a canonical spelling if no spelling of it is known yet.
func (n *CategoryNormalizer) Learn(name string) {
	key := categoryKey(name)
	if key == "" {
		return
	}
	if _, ok := n.known[key]; !ok {
		n.known[key] = tidy(name)
	}
}

// Normalize returns the canonical spelling of name. Unknown names are trimmed and capitalized.
func (n *CategoryNormalizer) Normalize(name string) string {
	if canonical, ok := n.known[categoryKey(name)]; ok {
		return canonical
	}
	return capitalize(tidy(name))
}

// Known reports whether name matches a registered category.
func (n *CategoryNormalizer) Known(name string) bool {
	_, ok := n.known[categoryKey(name)]
	return ok
}

// Names returns the canonical names in alphabetical order.
func (n *CategoryNormalizer) Names() []string {
	names := make([]string, 0, len(n.known))
	for _, name := range n.known {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// categoryKey normalizes a category name for comparison.
func categoryKey(name string) string {
	return strings.ToUpper(tidy(name))
}

func tidy(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
