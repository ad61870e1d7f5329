package main

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxCaptionBytes is the display budget of one caption line.
	MaxCaptionBytes = 200
	// CompactLength is the segment size at which joined lines get a full stop
	// instead of a dash.
	CompactLength = 35
	// defaultWrapLength is the console line width.
	defaultWrapLength = 75
)

// pauseMarkers are clause-level breaks, tried alongside sentence terminators
// when a caption has to be shortened.
const pauseMarkers = ",;:，；：、—–\n"

const breakChars = sentenceTerminators + pauseMarkers

var (
	whitespaceRun   = regexp.MustCompile(`\s+`)
	blankRun        = regexp.MustCompile(`[^\S\n]+`)
	punctSpacing    = regexp.MustCompile(`\s*([.!?,])\s*`)
	punctSpacingRow = regexp.MustCompile(`[^\S\n]*([.!?,])[^\S\n]*`)
)

// CleanText flattens a raw caption buffer to one line: whitespace runs become
// a single space, dotted capitals collapse ("U. S" -> "US") and . ! ? , are
// followed by exactly one space.
func CleanText(text string) string {
	if text == "" {
		return text
	}
	text = strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
	text = collapseAbbreviations(text)
	text = punctSpacing.ReplaceAllString(text, "$1 ")
	return strings.TrimSpace(text)
}

// cleanLines is CleanText applied line by line, keeping explicit newlines so
// JoinLines can still see them. Empty lines are dropped.
func cleanLines(text string) string {
	var rows []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(blankRun.ReplaceAllString(line, " "))
		line = collapseAbbreviations(line)
		line = strings.TrimSpace(punctSpacingRow.ReplaceAllString(line, "$1 "))
		if line != "" {
			rows = append(rows, line)
		}
	}
	return strings.Join(rows, "\n")
}

// collapseAbbreviations removes the period between two capitals when the
// second capital ends the word: "U. S." -> "US.", "U.N" -> "UN".
func collapseAbbreviations(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	i := 0
	for i < len(s) {
		if !isUpperASCII(s[i]) {
			b.WriteByte(s[i])
			i++
			continue
		}

		j := skipSpaces(s, i+1)
		if j < len(s) && s[j] == '.' {
			k := skipSpaces(s, j+1)
			if k < len(s) && isUpperASCII(s[k]) && (k+1 >= len(s) || !isLetterASCII(s[k+1])) {
				b.WriteByte(s[i])
				b.WriteByte(s[k])
				i = k + 1
				continue
			}
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

func skipSpaces(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r' || s[i] == '\f' || s[i] == '\v') {
		i++
	}
	return i
}

func isUpperASCII(c byte) bool  { return c >= 'A' && c <= 'Z' }
func isLetterASCII(c byte) bool { return isUpperASCII(c) || (c >= 'a' && c <= 'z') }

// TruncateByByteSize drops leading clauses until text fits maxBytes. Each
// pass removes everything up to and including the earliest break character.
// It stops early when no usable break is left, so the result can still be
// over budget; FitByteBudget finishes the job.
func TruncateByByteSize(text string, maxBytes int) string {
	for len(text) > maxBytes {
		i := strings.IndexAny(text, breakChars)
		if i < 0 {
			break
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		if i+size >= len(text) {
			break
		}
		text = strings.TrimLeftFunc(text[i+size:], unicode.IsSpace)
	}
	return text
}

// FitByteBudget guarantees len(text) <= maxBytes. It cuts at clause breaks
// first, then drops whole leading words, and only splits unspaced (CJK) runs
// at rune boundaries as a last resort.
func FitByteBudget(text string, maxBytes int) string {
	text = TruncateByByteSize(text, maxBytes)
	for len(text) > maxBytes {
		i := strings.IndexFunc(text, unicode.IsSpace)
		if i < 0 {
			break
		}
		text = strings.TrimLeftFunc(text[i:], unicode.IsSpace)
	}
	for len(text) > maxBytes {
		_, size := utf8.DecodeRuneInString(text)
		text = text[size:]
	}
	return text
}

// JoinLines folds explicit line breaks into one display line. Each segment
// but the last gets a separator chosen by script and length: CJK text gets
// "。" or "——", other scripts ". " or "— ".
func JoinLines(text string, lengthThreshold int) string {
	if text == "" {
		return text
	}

	var segments []string
	for _, seg := range strings.Split(text, "\n") {
		if seg = strings.TrimSpace(seg); seg != "" {
			segments = append(segments, seg)
		}
	}

	var b strings.Builder
	for i, seg := range segments {
		b.WriteString(seg)
		if i == len(segments)-1 {
			break
		}
		last, _ := utf8.DecodeLastRuneInString(seg)
		long := len(seg) >= lengthThreshold
		switch {
		case IsAsianRune(last) && long:
			b.WriteString("。")
		case IsAsianRune(last):
			b.WriteString("——")
		case long:
			b.WriteString(". ")
		default:
			b.WriteString("— ")
		}
	}
	return b.String()
}

// IsAsianRune reports CJK ideographs (incl. extension A), kana and Hangul
// syllables.
func IsAsianRune(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) ||
		(r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0x3040 && r <= 0x30FF) ||
		(r >= 0xAC00 && r <= 0xD7AF)
}

// Normalize prepares a caption for the overlay: cleans each line, fits the
// byte budget at clause boundaries and joins the lines with script-aware
// separators.
func Normalize(text string, byteBudget, lineJoinThreshold int) string {
	text = cleanLines(text)
	text = FitByteBudget(text, byteBudget)
	text = JoinLines(text, lineJoinThreshold)
	return FitByteBudget(text, byteBudget)
}

// WrapTextToLines greedily wraps text at spaces so no line exceeds
// maxLineLength runes, unless a single word is longer.
func WrapTextToLines(text string, maxLineLength int) string {
	if maxLineLength <= 0 {
		maxLineLength = defaultWrapLength
	}
	if text == "" || utf8.RuneCountInString(text) <= maxLineLength {
		return text
	}

	var lines []string
	var line strings.Builder
	lineLen := 0
	for _, word := range strings.Fields(text) {
		wordLen := utf8.RuneCountInString(word)
		if lineLen > 0 && lineLen+wordLen+1 > maxLineLength {
			lines = append(lines, line.String())
			line.Reset()
			lineLen = 0
		}
		if lineLen > 0 {
			line.WriteByte(' ')
			lineLen++
		}
		line.WriteString(word)
		lineLen += wordLen
	}
	if lineLen > 0 {
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}
