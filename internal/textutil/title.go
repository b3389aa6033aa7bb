package textutil

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxTitleRunes is the longest title the upload endpoint accepts.
const MaxTitleRunes = 100

const untitled = "Untitled"

// SanitizeTitle folds diacritics, removes characters the endpoint rejects,
// collapses whitespace, and truncates to MaxTitleRunes. It returns "" when
// nothing printable remains.
func SanitizeTitle(title string) string {
	folded := foldDiacritics(title)
	var b strings.Builder
	prevSpace := true
	for _, r := range folded {
		switch {
		case r == '<' || r == '>':
			continue
		case unicode.IsSpace(r):
			if !prevSpace {
				b.WriteRune(' ')
				prevSpace = true
			}
		case !unicode.IsPrint(r) || unicode.Is(unicode.So, r) || unicode.Is(unicode.Cs, r):
			continue
		default:
			b.WriteRune(r)
			prevSpace = false
		}
	}
	return truncateRunes(strings.TrimSpace(b.String()), MaxTitleRunes)
}

// InferTitle derives a title from a file name: the extension is dropped,
// separators become spaces, and words are title-cased.
func InferTitle(sourcePath string) string {
	base := filepath.Base(strings.TrimSpace(sourcePath))
	if base == "." || base == string(filepath.Separator) {
		return untitled
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	var cleaned strings.Builder
	prevSpace := false
	for _, r := range base {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			cleaned.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.':
			if !prevSpace {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	title := strings.TrimSpace(cleaned.String())
	if title == "" {
		return untitled
	}
	return SanitizeTitle(cases.Title(language.Und).String(title))
}

func foldDiacritics(value string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, value)
	if err != nil {
		return value
	}
	return folded
}

func truncateRunes(value string, limit int) string {
	if limit <= 0 {
		return ""
	}
	count := 0
	for i := range value {
		if count == limit {
			return strings.TrimSpace(value[:i])
		}
		count++
	}
	return value
}
