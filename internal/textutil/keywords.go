package textutil

import "strings"

// MaxKeywordChars bounds the combined length of all tags on one video.
const MaxKeywordChars = 500

// SplitKeywords splits a comma-separated keyword string into tags. Tags are
// trimmed, stripped of angle brackets, and deduplicated case-insensitively in
// first-seen order. Tags that would push the total past MaxKeywordChars are
// dropped.
func SplitKeywords(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var tags []string
	total := 0
	for _, part := range strings.Split(raw, ",") {
		tag := strings.Join(strings.Fields(strings.NewReplacer("<", "", ">", "").Replace(part)), " ")
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			continue
		}
		size := len([]rune(tag))
		if strings.Contains(tag, " ") {
			// Multi-word tags are sent quoted and count the quotes.
			size += 2
		}
		if total+size > MaxKeywordChars {
			continue
		}
		seen[key] = struct{}{}
		tags = append(tags, tag)
		total += size
	}
	return tags
}
