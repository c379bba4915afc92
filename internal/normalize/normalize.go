// Package normalize turns registry names and user queries into comparable
// search tokens.
package normalize

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var (
	nameAliasRegex    = regexp.MustCompile(`\((.*?)\)`)
	detailsAliasRegex = regexp.MustCompile(`ОГРН: «(.*?)»`)
	junkRegex         = regexp.MustCompile(`[,;*"\n«»()]`)
	whitespaceRegex   = regexp.MustCompile(`\s+`)
)

// Clean applies the shared cleanup: punctuation and quotes become spaces,
// whitespace collapses, case folds and ё becomes е.
func Clean(s string) string {
	s = norm.NFC.String(s)
	s = junkRegex.ReplaceAllString(s, " ")
	s = whitespaceRegex.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = cases.Lower(language.Russian).String(s)
	return strings.ReplaceAll(s, "ё", "е")
}

// Variants returns every name variant of a record: the base name (without
// parenthesised parts) and each alias found in the name or the details.
func Variants(name, details string) []string {
	var aliases []string
	for _, m := range nameAliasRegex.FindAllStringSubmatch(name, -1) {
		aliases = append(aliases, m[1])
	}
	if details != "" {
		for _, m := range detailsAliasRegex.FindAllStringSubmatch(details, -1) {
			aliases = append(aliases, m[1])
		}
	}
	base := strings.TrimSpace(nameAliasRegex.ReplaceAllString(name, ""))
	return append([]string{base}, aliases...)
}

// ForSearch returns the deduplicated, sorted set of cleaned variants plus
// their transliterations.
func ForSearch(name, details string) []string {
	set := map[string]struct{}{}
	for _, v := range Variants(name, details) {
		cleaned := Clean(v)
		if cleaned == "" {
			continue
		}
		set[cleaned] = struct{}{}
		if t := Transliterate(cleaned); t != cleaned {
			set[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Tokens is ForSearch joined by single spaces, the stored index form.
func Tokens(name, details string) string {
	return strings.Join(ForSearch(name, details), " ")
}

// QueryWords cleans a free-text query and splits it into words.
func QueryWords(query string) []string {
	cleaned := Clean(query)
	if cleaned == "" {
		return nil
	}
	return strings.Split(cleaned, " ")
}
