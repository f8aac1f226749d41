// Package chunker splits document text into boundary-aware, overlapping
// character chunks for embedding and retrieval. Chunk ends snap backward to
// the nearest whitespace or punctuation boundary when one is close enough;
// consecutive chunks overlap by re-starting before the previous end.
package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// boundaryChars are the characters (besides whitespace) that are acceptable
// chunk-end boundaries.
const boundaryChars = ".!?;,:)]}"

// Chunk is one emitted character span of a larger text.
type Chunk struct {
	// Text is the trimmed chunk content.
	Text string
	// StartRune is the rune offset of the chunk's start within the input.
	StartRune int
	// EndRune is the rune offset (exclusive) of the chunk's end within the input.
	EndRune int
}

// Split divides text into chunks of at most maxChars runes, with overlap
// runes of repetition between consecutive chunks. overlap must be less than
// maxChars; callers that violate this get overlap clamped to maxChars-1.
//
// For each start position, the candidate end is
// min(start+maxChars, length); search backward from the candidate end for a
// boundary rune (whitespace or one of boundaryChars); if a boundary is found
// at or after start+maxChars/3, snap to it (boundary inclusive); otherwise
// keep the hard cut. The next start is end-overlap. Stop when end reaches
// the input length.
func Split(text string, maxChars, overlap int) []Chunk {
	if maxChars <= 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxChars {
		overlap = maxChars - 1
	}

	runes := []rune(text)
	length := len(runes)
	if length == 0 {
		return nil
	}

	minBoundaryDistance := maxChars / 3

	var chunks []Chunk
	start := 0
	for start < length {
		end := start + maxChars
		if end > length {
			end = length
		}

		if boundary, ok := findBoundary(runes, start, end, minBoundaryDistance); ok {
			end = boundary
		}

		piece := strings.TrimFunc(string(runes[start:end]), unicode.IsSpace)
		if piece != "" {
			chunks = append(chunks, Chunk{
				Text:      piece,
				StartRune: start,
				EndRune:   end,
			})
		}

		if end >= length {
			break
		}

		next := end - overlap
		if next <= start {
			// Guarantee forward progress even for pathological overlap/maxChars.
			next = start + 1
		}
		start = next
	}

	return chunks
}

// findBoundary scans backward from candidateEnd toward start looking for a
// whitespace or punctuation boundary rune, returning the index just past it
// (boundary inclusive) if one is found at distance >= minDistance from
// start.
func findBoundary(runes []rune, start, candidateEnd, minDistance int) (int, bool) {
	for i := candidateEnd - 1; i > start; i-- {
		r := runes[i]
		if unicode.IsSpace(r) || strings.ContainsRune(boundaryChars, r) {
			if i+1-start >= minDistance {
				return i + 1, true
			}
			return 0, false
		}
	}
	return 0, false
}

// SplitPage is a convenience wrapper returning only the chunk texts, in
// order, discarding byte/rune offsets. Used by the indexer, which only
// needs text plus a running chunk-index per page.
func SplitPage(text string, maxChars, overlap int) []string {
	chunks := Split(text, maxChars, overlap)
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

// ValidUTF8 reports whether s decodes cleanly, i.e. contains no replacement
// character introduced by truncating inside a multi-byte code point. Used
// by tests asserting the chunker's UTF-8 safety invariant.
func ValidUTF8(s string) bool {
	return utf8.ValidString(s) && !strings.ContainsRune(s, utf8.RuneError)
}
