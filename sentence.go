package main

import (
	"strings"
	"unicode/utf8"
)

// sentenceTerminators are the ASCII and CJK sentence endings.
const sentenceTerminators = ".!?。！？…"

// minSentenceRunes is the shortest trailing sentence shown on its own; shorter
// fragments are merged with the sentence before them.
const minSentenceRunes = 10

// ExtractSentence returns the latest sentence of a caption buffer, complete or
// still being spoken. A buffer ending in a terminator yields its last complete
// sentence; otherwise the in-progress tail is returned.
func ExtractSentence(buffer string) string {
	boundary := lastBoundary(buffer)
	candidate := strings.TrimSpace(afterBoundary(buffer, boundary))

	if boundary > 0 && utf8.RuneCountInString(candidate) < minSentenceRunes {
		boundary = strings.LastIndexAny(buffer[:boundary], sentenceTerminators)
		candidate = strings.TrimSpace(afterBoundary(buffer, boundary))
	}
	return candidate
}

// lastBoundary finds the terminator that starts the latest sentence. A
// trailing terminator closes that sentence, so it is skipped.
func lastBoundary(buffer string) int {
	last, size := utf8.DecodeLastRuneInString(buffer)
	if size > 0 && strings.ContainsRune(sentenceTerminators, last) {
		return strings.LastIndexAny(buffer[:len(buffer)-size], sentenceTerminators)
	}
	return strings.LastIndexAny(buffer, sentenceTerminators)
}

// afterBoundary returns buffer past the terminator at byte offset i, or the
// whole buffer when i is negative.
func afterBoundary(buffer string, i int) string {
	if i < 0 {
		return buffer
	}
	_, size := utf8.DecodeRuneInString(buffer[i:])
	return buffer[i+size:]
}
