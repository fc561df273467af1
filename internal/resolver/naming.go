package resolver

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var snakeCaser = cases.Lower(language.Und)

// toSnakeCase converts a PascalCase/camelCase Go-ish identifier (as it
// appears in the surface grammar, e.g. "publishedAt" or "Concert") into
// snake_case (spec.md §4.1 "Table naming" / "Column naming"). Word
// boundaries are detected on ASCII letters only; the final lower-casing
// goes through golang.org/x/text for Unicode-correct case folding.
func toSnakeCase(name string) string {
	if name == "" {
		return name
	}
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		isUpper := r >= 'A' && r <= 'Z'
		if isUpper && i > 0 {
			prevLower := runes[i-1] >= 'a' && runes[i-1] <= 'z'
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			if prevLower || (nextLower && runes[i-1] >= 'A' && runes[i-1] <= 'Z') {
				b.WriteByte('_')
			}
		}
		b.WriteRune(r)
	}
	return snakeCaser.String(b.String())
}

// pluralize applies the common English pluralization rules ptah-adjacent
// tooling relies on for default table names (spec.md §4.1 "the snake-cased
// plural of the type name").
func pluralize(name string) string {
	if name == "" {
		return name
	}
	lower := name
	switch {
	case strings.HasSuffix(lower, "y") && !endsInVowelY(lower):
		return lower[:len(lower)-1] + "ies"
	case strings.HasSuffix(lower, "s"), strings.HasSuffix(lower, "x"),
		strings.HasSuffix(lower, "z"), strings.HasSuffix(lower, "ch"), strings.HasSuffix(lower, "sh"):
		return lower + "es"
	default:
		return lower + "s"
	}
}

func endsInVowelY(s string) bool {
	if len(s) < 2 {
		return false
	}
	switch s[len(s)-2] {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	default:
		return false
	}
}

// defaultIndexName mirrors spec.md §4.1: "absent explicit name, the index
// is `<type>_<field>_idx` lower-cased".
func defaultIndexName(typeName, fieldName string) string {
	return strings.ToLower(typeName + "_" + fieldName + "_idx")
}
