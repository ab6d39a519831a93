// Package textclean holds the text surgery applied to scraped article fields.
package textclean

import (
	"regexp"
	"strings"
)

// Substitution replaces every occurrence of From with To.
type Substitution struct {
	From string
	To   string
}

// DefaultSubstitutions fixes the encoding artifacts common in scraped news text.
// No To value contains any From value, which keeps Normalize idempotent.
var DefaultSubstitutions = []Substitution{
	{From: "’", To: "'"},  // right single quotation mark
	{From: "“", To: "\""}, // left double quotation mark
	{From: "”", To: "\""}, // right double quotation mark
	{From: "—", To: "-"},  // em dash
	{From: "–", To: "-"},  // en dash
	{From: "é", To: "e"},
	{From: "‘", To: "'"}, // left single quotation mark
}

var newlineRun = regexp.MustCompile(`\n{2,}`)

// Normalizer applies a fixed substitution table and squeezes repeated newlines.
type Normalizer struct {
	replacer *strings.Replacer
}

// NewNormalizer builds a Normalizer from subs. Substitutions are applied in a single
// left-to-right pass, so outputs are never rescanned.
func NewNormalizer(subs []Substitution) *Normalizer {
	pairs := make([]string, 0, len(subs)*2)
	for _, s := range subs {
		if s.From == "" {
			continue
		}
		pairs = append(pairs, s.From, s.To)
	}
	return &Normalizer{replacer: strings.NewReplacer(pairs...)}
}

// Normalize returns text with the substitutions applied and every run of newlines reduced to one.
func (n *Normalizer) Normalize(text string) string {
	if text == "" {
		return text
	}
	clean := n.replacer.Replace(text)
	return newlineRun.ReplaceAllString(clean, "\n")
}

var defaultNormalizer = NewNormalizer(DefaultSubstitutions)

// Normalize applies the default substitution table.
func Normalize(text string) string {
	return defaultNormalizer.Normalize(text)
}
