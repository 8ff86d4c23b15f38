// Package chunking splits extracted report text into bounded segments a
// generative model can take in one request.
package chunking

import (
	"iter"
	"unicode/utf8"
)

// DefaultMaxChars is the chunk bound used when callers pass a non-positive size.
const DefaultMaxChars = 2000

// Chunks yields contiguous segments of text holding at most maxChars characters
// (Unicode code points) each. Segments come out in document order and their
// concatenation is exactly text. Empty text yields nothing.
//
// The sequence is lazy and restartable: every range walks text again.
func Chunks(text string, maxChars int) iter.Seq[string] {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return func(yield func(string) bool) {
		start, n := 0, 0
		for i := range text {
			if n == maxChars {
				if !yield(text[start:i]) {
					return
				}
				start, n = i, 0
			}
			n++
		}
		if start < len(text) {
			yield(text[start:])
		}
	}
}

// Count returns how many chunks Chunks would yield without building them.
func Count(text string, maxChars int) int {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	n := utf8.RuneCountInString(text)
	return (n + maxChars - 1) / maxChars
}

// Collect materialises the sequence in order.
func Collect(seq iter.Seq[string]) []string {
	var out []string
	for c := range seq {
		out = append(out, c)
	}
	return out
}
