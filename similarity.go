package main

import "strings"

// containmentSimilarity is reported when one caption is a substring of the
// other, the usual shape of a caption that is still growing.
const containmentSimilarity = 0.95

// TextSimilarity scores two captions in [0, 1].
func TextSimilarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	if a == b {
		return 1.0
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return containmentSimilarity
	}
	return JaroWinkler(a, b)
}

// JaroWinkler computes the Jaro-Winkler similarity over runes, with the
// usual 0.7 boost threshold and a common prefix capped at four.
func JaroWinkler(a, b string) float64 {
	if a == b {
		return 1.0
	}
	s1, s2 := []rune(a), []rune(b)
	len1, len2 := len(s1), len(s2)
	if len1 == 0 || len2 == 0 {
		return 0.0
	}

	window := max(len1, len2)/2 - 1
	if window < 0 {
		window = 0
	}

	matched1 := make([]bool, len1)
	matched2 := make([]bool, len2)
	matches := 0
	for i := 0; i < len1; i++ {
		start := max(0, i-window)
		end := min(i+window+1, len2)
		for j := start; j < end; j++ {
			if matched2[j] || s1[i] != s2[j] {
				continue
			}
			matched1[i] = true
			matched2[j] = true
			matches++
			break
		}
	}
	if matches == 0 {
		return 0.0
	}

	transpositions := 0
	k := 0
	for i := 0; i < len1; i++ {
		if !matched1[i] {
			continue
		}
		for !matched2[k] {
			k++
		}
		if s1[i] != s2[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	jaro := (m/float64(len1) + m/float64(len2) + (m-float64(transpositions)/2.0)/m) / 3.0
	if jaro < 0.7 {
		return jaro
	}

	prefix := 0
	for i := 0; i < min(4, len1, len2); i++ {
		if s1[i] != s2[i] {
			break
		}
		prefix++
	}
	return jaro + 0.1*float64(prefix)*(1.0-jaro)
}
