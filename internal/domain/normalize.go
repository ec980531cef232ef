package domain

import "strings"

// Legal suffixes and descriptors stripped from the end of company names
// before lookup. Stripping is repeated so "Acme Holdings LLC" reduces to
// "acme".
var legalSuffixes = map[string]bool{
	"inc": true, "llc": true, "ltd": true, "corp": true,
	"corporation": true, "company": true, "co": true, "group": true,
	"holding": true, "holdings": true, "technologies": true,
	"technology": true, "solutions": true, "services": true,
	"international": true, "worldwide": true, "global": true,
}

// NormalizeCompany lowercases a company name, drops anything after the first
// comma, strips trailing legal suffixes and collapses whitespace. Matching
// against the known-domain table is plain equality on this normalized form,
// no edit-distance matching, which would invite false positives.
func NormalizeCompany(company string) string {
	name := strings.ToLower(strings.TrimSpace(company))
	if i := strings.IndexByte(name, ','); i >= 0 {
		name = name[:i]
	}

	words := strings.Fields(name)
	for len(words) > 1 {
		last := strings.TrimSuffix(words[len(words)-1], ".")
		if !legalSuffixes[last] {
			break
		}
		words = words[:len(words)-1]
	}

	return strings.Join(words, " ")
}

// slugify reduces a normalized name to the bare a-z0-9 form used for the
// direct "<name>.com" guess.
func slugify(normalized string) string {
	var b strings.Builder
	for _, r := range normalized {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
