package main

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"collapses whitespace", "  Hello \t  world \n ", "Hello world"},
		{"abbreviation", "The U. S. economy", "The US. economy"},
		{"abbreviation without spaces", "U.N", "UN"},
		{"abbreviation needs word end", "A. Smith", "A. Smith"},
		{"punctuation spacing", "Hello ,world!How are you ?Fine", "Hello, world! How are you? Fine"},
		{"flattens newlines", "Line one\nLine two", "Line one Line two"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanText(tt.input); got != tt.want {
				t.Errorf("CleanText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTruncateByByteSize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{"fits", "short", 10, "short"},
		{"drops leading clause", "First clause, second clause, third", 20, "second clause, third"},
		{"drops several clauses", "One. Two; three: four and five", 14, "four and five"},
		{"no break keeps text", "nobreakshere", 5, "nobreakshere"},
		{"trailing break keeps text", "abcdef.", 3, "abcdef."},
		{"cjk clause", "今天很好，我们去公园", 16, "我们去公园"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateByByteSize(tt.input, tt.max); got != tt.want {
				t.Errorf("TruncateByByteSize(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.want)
			}
		})
	}
}

func TestFitByteBudget(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{"clause cut", "First clause, second clause, third", 20, "second clause, third"},
		{"word cut", "nobreak words here", 10, "words here"},
		{"rune cut", "你好世界你好世界", 9, "好世界"},
		{"zero budget", "anything", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FitByteBudget(tt.input, tt.max); got != tt.want {
				t.Errorf("FitByteBudget(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.want)
			}
		})
	}
}

// TestFitByteBudgetProperty checks the budget holds for every input, the
// result is valid UTF-8, and only a prefix was removed.
func TestFitByteBudgetProperty(t *testing.T) {
	inputs := []string{
		"",
		"plain words without any break characters at all in this caption",
		"Clause one, clause two; clause three: clause four. Clause five!",
		"日本語のテキスト、とても長い文章です。もう一つの文。",
		"混合 mixed 텍스트, with — dashes – and… ellipses",
		"trailing break,",
		strings.Repeat("x", 300),
		strings.Repeat("あ", 100),
		"line one\nline two\nline three",
	}

	for _, in := range inputs {
		for _, budget := range []int{0, 1, 2, 5, 10, 20, 35, 50, 200} {
			got := FitByteBudget(in, budget)
			if len(got) > budget {
				t.Errorf("FitByteBudget(%q, %d) = %q, %d bytes over budget", in, budget, got, len(got))
			}
			if !utf8.ValidString(got) {
				t.Errorf("FitByteBudget(%q, %d) = %q, invalid UTF-8", in, budget, got)
			}
			if !strings.HasSuffix(in, got) {
				t.Errorf("FitByteBudget(%q, %d) = %q, not a suffix of the input", in, budget, got)
			}
		}
	}
}

func TestJoinLines(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		threshold int
		want      string
	}{
		{"short latin", "Line one\nLine two", 100, "Line one— Line two"},
		{"long latin", "Line one\nLine two", 5, "Line one. Line two"},
		{"short asian", "你好世界\n再见", 100, "你好世界——再见"},
		{"long asian", "你好世界\n再见", 6, "你好世界。再见"},
		{"blank segments dropped", "  a  \n\n  b  ", 100, "a— b"},
		{"single line", "only one", 100, "only one"},
		{"empty", "", 100, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JoinLines(tt.input, tt.threshold); got != tt.want {
				t.Errorf("JoinLines(%q, %d) = %q, want %q", tt.input, tt.threshold, got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		budget    int
		threshold int
		want      string
	}{
		{"short join", "Line one\nLine two", 200, 100, "Line one— Line two"},
		{"long join", "Line one\nLine two", 200, 5, "Line one. Line two"},
		{"cleans each line", "  Hello ,world \n  U. S.  news ", 200, 100, "Hello, world— US. news"},
		{"budget", "First clause, second clause, third", 20, 100, "second clause, third"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input, tt.budget, tt.threshold); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeRespectsBudget(t *testing.T) {
	long := strings.Repeat("word ", 30) + "\n" + strings.Repeat("其他 ", 40) + "\n" + strings.Repeat("final ", 30)
	got := Normalize(long, MaxCaptionBytes, CompactLength)
	if len(got) > MaxCaptionBytes {
		t.Errorf("Normalize produced %d bytes, want <= %d: %q", len(got), MaxCaptionBytes, got)
	}
	if !utf8.ValidString(got) {
		t.Errorf("Normalize produced invalid UTF-8: %q", got)
	}
}

func TestIsAsianRune(t *testing.T) {
	tests := []struct {
		r    rune
		want bool
	}{
		{'中', true},
		{'㐀', true},
		{'あ', true},
		{'カ', true},
		{'한', true},
		{'A', false},
		{'é', false},
		{'。', false},
	}

	for _, tt := range tests {
		if got := IsAsianRune(tt.r); got != tt.want {
			t.Errorf("IsAsianRune(%q) = %v, want %v", tt.r, got, tt.want)
		}
	}
}

func TestWrapTextToLines(t *testing.T) {
	tests := []struct {
		name  string
		input string
		width int
		want  string
	}{
		{"fits", "short text", 20, "short text"},
		{"wraps at spaces", "aaa bbb ccc", 7, "aaa bbb\nccc"},
		{"long word kept whole", "a verylongword b", 5, "a\nverylongword\nb"},
		{"default width", strings.Repeat("ab ", 30), 0, strings.TrimSpace(strings.Repeat("ab ", 25)) + "\n" + strings.TrimSpace(strings.Repeat("ab ", 5))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WrapTextToLines(tt.input, tt.width); got != tt.want {
				t.Errorf("WrapTextToLines(%q, %d) = %q, want %q", tt.input, tt.width, got, tt.want)
			}
		})
	}
}
