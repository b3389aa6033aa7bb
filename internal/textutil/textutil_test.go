package textutil

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSanitizeTitle(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Morning Run", "Morning Run"},
		{"collapse spaces", "  Morning \t\n Run  ", "Morning Run"},
		{"angle brackets", "<b>Bold</b> move", "bBold/b move"},
		{"diacritics", "Café crème brûlée", "Cafe creme brulee"},
		{"control characters", "A\x00B\x07C", "ABC"},
		{"emoji", "Sunset 🌅 timelapse", "Sunset timelapse"},
		{"non latin kept", "東京 夜景", "東京 夜景"},
		{"empty", "   ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeTitle(tc.input); got != tc.want {
				t.Fatalf("SanitizeTitle(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestSanitizeTitleTruncates(t *testing.T) {
	long := strings.Repeat("é", 150)
	got := SanitizeTitle(long)
	if n := len([]rune(got)); n != MaxTitleRunes {
		t.Fatalf("rune count = %d, want %d", n, MaxTitleRunes)
	}
	if got != strings.Repeat("e", MaxTitleRunes) {
		t.Fatalf("unexpected truncated title %q", got)
	}

	// A cut that lands after a space must not leave it trailing.
	spaced := strings.Repeat("a", 99) + " bcd"
	if got := SanitizeTitle(spaced); got != strings.Repeat("a", 99) {
		t.Fatalf("trailing space not trimmed: %q", got)
	}
}

func TestInferTitle(t *testing.T) {
	cases := map[string]string{
		"/videos/morning_run-2024.mp4":  "Morning Run 2024",
		"clip.final.cut.mov":            "Clip Final Cut",
		"/videos/ÉTÉ au lac.webm":       "Ete Au Lac",
		"/videos/___.mp4":               "Untitled",
		"":                              "Untitled",
	}
	for input, want := range cases {
		if got := InferTitle(input); got != want {
			t.Errorf("InferTitle(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestSplitKeywords(t *testing.T) {
	got := SplitKeywords(" travel, Travel ,, night  sky ,<b>city</b>, ")
	want := []string{"travel", "night sky", "bcity/b"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("SplitKeywords mismatch (-want +got):\n%s", diff)
	}
	if SplitKeywords("  ") != nil {
		t.Fatal("blank input should produce no tags")
	}
}

func TestSplitKeywordsLimit(t *testing.T) {
	var parts []string
	for i := 0; i < 60; i++ {
		parts = append(parts, strings.Repeat(string(rune('a'+i%26)), 9)+string(rune('A'+i/26)))
	}
	tags := SplitKeywords(strings.Join(parts, ","))
	total := 0
	for _, tag := range tags {
		total += len(tag)
	}
	if total > MaxKeywordChars {
		t.Fatalf("total tag length %d exceeds %d", total, MaxKeywordChars)
	}
	if len(tags) != 50 {
		t.Fatalf("kept %d tags, want 50", len(tags))
	}
}

func TestTernary(t *testing.T) {
	if Ternary(true, "yes", "no") != "yes" || Ternary(false, 1, 2) != 2 {
		t.Fatal("Ternary returned the wrong branch")
	}
}
