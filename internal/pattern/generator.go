// Package pattern generates ranked candidate local-parts for a person at a
// mail domain. Generation is pure and deterministic: the same name and domain
// always produce the same candidate sequence, which is what makes
// "first accepted wins" well-defined downstream.
package pattern

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/leadline-labs/mailscout-cli/internal/model"
)

// DefaultMaxCandidates bounds verification cost per contact.
const DefaultMaxCandidates = 8

// Generator builds candidate sequences according to its options.
type Generator struct {
	maxCandidates int
	extended      bool
}

// Option configures a Generator.
type Option func(*Generator)

// WithMaxCandidates caps the candidate list length.
func WithMaxCandidates(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxCandidates = n
		}
	}
}

// WithExtended enables the numbered and middle-initial variants that are
// only worth probing when the base patterns all miss.
func WithExtended(enabled bool) Option {
	return func(g *Generator) {
		g.extended = enabled
	}
}

// New creates a Generator.
func New(opts ...Option) *Generator {
	g := &Generator{maxCandidates: DefaultMaxCandidates}
	for _, o := range opts {
		o(g)
	}
	return g
}

// namePattern composes a local-part from name parts. Empty means the pattern
// is not applicable for these names (a required part is missing).
type namePattern func(p nameParts) string

// Base patterns in rank order, most common first. Rank is the slice index.
var basePatterns = []namePattern{
	func(p nameParts) string { return joinParts(p.first, ".", p.last) },       // first.last
	func(p nameParts) string { return joinParts(p.first, "", p.last) },        // firstlast
	func(p nameParts) string { return p.first },                               // first
	func(p nameParts) string { return joinParts(p.firstInitial, "", p.last) }, // flast
	func(p nameParts) string { return joinParts(p.first, "_", p.last) },       // first_last
	func(p nameParts) string { return joinParts(p.last, ".", p.first) },       // last.first
	func(p nameParts) string { return joinParts(p.last, "", p.first) },        // lastfirst
	func(p nameParts) string { return joinParts(p.firstInitial, ".", p.last) }, // f.last
}

// Generate returns the ordered, deduplicated candidate list for a person at
// a domain. It never fails: missing name parts just narrow the pattern set,
// and empty input yields an empty list.
func (g *Generator) Generate(first, last, domain string) []model.Candidate {
	if domain == "" {
		return nil
	}

	primary := splitNames(normalizeName(first), normalizeName(last))
	fallback := splitNames(asciiFold(normalizeName(first)), asciiFold(normalizeName(last)))

	var out []model.Candidate
	seen := make(map[string]bool)

	add := func(localPart string, rank int) {
		if localPart == "" || seen[localPart] || len(out) >= g.maxCandidates {
			return
		}
		seen[localPart] = true
		out = append(out, model.Candidate{
			LocalPart:   localPart,
			Domain:      domain,
			PatternRank: rank,
		})
	}

	for rank, pat := range basePatterns {
		// Primary keeps diacritics; the transliterated fallback follows at
		// the same rank since many servers reject non-ASCII local-parts.
		add(pat(primary), rank)
		add(pat(fallback), rank)
	}

	if g.extended {
		addExtended(fallback, add)
	}

	return out
}

// addExtended appends numbered and middle-initial variants, continuing the
// rank sequence after the base set.
func addExtended(p nameParts, add func(string, int)) {
	rank := len(basePatterns)
	for _, num := range []string{"1", "2"} {
		add(joinParts(p.first, ".", p.last)+num, rank)
		rank++
		add(joinParts(p.first, "", p.last)+num, rank)
		rank++
	}
	if p.middleInitial != "" {
		add(joinParts(p.first, ".", p.middleInitial)+"."+p.last, rank)
		rank++
		add(p.first+p.middleInitial+p.last, rank)
	}
}

type nameParts struct {
	first         string
	last          string
	firstInitial  string
	middleInitial string
}

// splitNames picks the usable parts from possibly multi-part names: the
// first part of the first name and the final part of the last name, matching
// how most mail systems treat compound names.
func splitNames(first, last string) nameParts {
	var p nameParts

	firstParts := strings.Fields(first)
	if len(firstParts) > 0 {
		p.first = firstParts[0]
		p.firstInitial = string([]rune(p.first)[:1])
	}
	if len(firstParts) > 1 && firstParts[1] != "" {
		p.middleInitial = string([]rune(firstParts[1])[:1])
	}

	lastParts := strings.Fields(last)
	if len(lastParts) > 0 {
		p.last = lastParts[len(lastParts)-1]
	}

	return p
}

// joinParts combines two name parts with a separator, or returns empty when
// either part is missing so the pattern gets skipped.
func joinParts(a, sep, b string) string {
	if a == "" || b == "" {
		return ""
	}
	return a + sep + b
}

var caseFolder = cases.Fold()

// normalizeName case-folds a name and strips everything except letters,
// digits and dots. Hyphens become spaces so hyphenated surnames split into
// parts the same way multi-word names do.
func normalizeName(name string) string {
	name = caseFolder.String(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.':
			b.WriteRune(r)
		case r == '-' || unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

var asciiTransform = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// asciiFold strips diacritics (José → jose) and drops any rune that still
// isn't ASCII afterwards.
func asciiFold(s string) string {
	folded, _, err := transform.String(asciiTransform, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	for _, r := range folded {
		if r < 128 {
			b.WriteRune(r)
		}
	}
	return b.String()
}
