package main

// ChangeDetector remembers the last emitted caption and decides whether a new
// one should replace it. It is owned by the capture goroutine.
type ChangeDetector struct {
	last string

	// FuzzyThreshold, when positive, also suppresses captions whose
	// TextSimilarity to the last one is at or above it. The live pipeline
	// leaves it at zero and compares byte-exactly.
	FuzzyThreshold float64
}

// Changed reports whether text should be emitted and, if so, records it as
// the last caption. Empty text never counts as a change.
func (d *ChangeDetector) Changed(text string) bool {
	if text == "" || text == d.last {
		return false
	}
	if d.FuzzyThreshold > 0 && d.last != "" && TextSimilarity(text, d.last) >= d.FuzzyThreshold {
		return false
	}
	d.last = text
	return true
}

// Last returns the last emitted caption.
func (d *ChangeDetector) Last() string { return d.last }

// Reset forgets the last caption, so the next non-empty text is a change.
func (d *ChangeDetector) Reset() { d.last = "" }
