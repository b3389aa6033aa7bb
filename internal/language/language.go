package language

import "strings"

type entry struct {
	code2   string
	code3   string
	alt3    string // bibliographic variant
	display string
	word    string
}

var known = []entry{
	{"en", "eng", "", "English", "english"},
	{"es", "spa", "", "Spanish", "spanish"},
	{"fr", "fra", "fre", "French", "french"},
	{"de", "deu", "ger", "German", "german"},
	{"it", "ita", "", "Italian", "italian"},
	{"pt", "por", "", "Portuguese", "portuguese"},
	{"ja", "jpn", "", "Japanese", "japanese"},
	{"ko", "kor", "", "Korean", "korean"},
	{"zh", "zho", "chi", "Chinese", "chinese"},
	{"ru", "rus", "", "Russian", "russian"},
	{"ar", "ara", "", "Arabic", "arabic"},
	{"hi", "hin", "", "Hindi", "hindi"},
	{"nl", "nld", "dut", "Dutch", "dutch"},
	{"pl", "pol", "", "Polish", "polish"},
	{"sv", "swe", "", "Swedish", "swedish"},
	{"da", "dan", "", "Danish", "danish"},
	{"no", "nor", "", "Norwegian", "norwegian"},
	{"fi", "fin", "", "Finnish", "finnish"},
	{"tr", "tur", "", "Turkish", "turkish"},
	{"uk", "ukr", "", "Ukrainian", "ukrainian"},
}

var index = func() map[string]*entry {
	m := make(map[string]*entry, len(known)*4)
	for i := range known {
		e := &known[i]
		m[e.code2] = e
		m[e.code3] = e
		m[e.word] = e
		if e.alt3 != "" {
			m[e.alt3] = e
		}
	}
	return m
}()

// Normalize returns the YouTube form of code and whether it was understood.
// Empty input and "und" normalize to "" with ok true. A region suffix is
// kept and uppercased. Unknown two-letter codes pass through.
func Normalize(code string) (string, bool) {
	code = strings.ToLower(strings.TrimSpace(strings.ReplaceAll(code, "_", "-")))
	if code == "" || code == "und" {
		return "", true
	}
	base, region, hasRegion := strings.Cut(code, "-")
	if e, found := index[base]; found {
		base = e.code2
	} else if len(base) != 2 || !isLetters(base) {
		return "", false
	}
	if !hasRegion {
		return base, true
	}
	if !isAlnum(region) || len(region) < 2 || len(region) > 3 {
		return "", false
	}
	return base + "-" + strings.ToUpper(region), true
}

// DisplayName returns a readable name for code, or the normalized code when
// the language is not in the table.
func DisplayName(code string) string {
	normalized, ok := Normalize(code)
	if !ok {
		return strings.TrimSpace(code)
	}
	if normalized == "" {
		return "Unknown"
	}
	base, _, _ := strings.Cut(normalized, "-")
	if e, found := index[base]; found {
		return e.display
	}
	return normalized
}

var tagKeys = []string{"language", "LANGUAGE", "Language", "language_ietf", "lang", "LANG"}

// FromStreamTags returns the normalized language recorded in container
// stream tags, or "" when none is usable.
func FromStreamTags(tags map[string]string) string {
	for _, key := range tagKeys {
		value := strings.TrimSpace(strings.ReplaceAll(tags[key], "\x00", ""))
		if value == "" {
			continue
		}
		if normalized, ok := Normalize(value); ok && normalized != "" {
			return normalized
		}
	}
	return ""
}

func isLetters(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

func isAlnum(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
