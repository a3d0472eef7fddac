// Package knowledge turns a directory of consumer-psychology documents
// into embedded chunks in the vector store. Plain text, Markdown, and
// HTML sources are supported; ingestion is idempotent per source file and
// a batch survives individual malformed files.
package knowledge

import (
	"strings"
	"unicode"
)

const (
	// DefaultChunkTokens bounds one chunk. 400 sits mid-range of the
	// 300-500 window that keeps a chunk coherent without starving the
	// context of variety.
	DefaultChunkTokens = 400

	// DefaultOverlapPercent is the slice of each chunk repeated at the
	// start of the next, preserving claims that straddle a boundary.
	DefaultOverlapPercent = 15

	// charsPerToken is the chars/4 approximation used everywhere token
	// counts are estimated. Actual tokenization varies by model.
	charsPerToken = 4
)

// EstimateTokens estimates the token count of text using the chars/4
// approximation. Fast heuristic; good enough for chunk budgeting.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + charsPerToken - 1) / charsPerToken
}

// ChunkText splits text into chunks of at most maxTokens estimated tokens,
// with overlapPercent of each chunk repeated in the next. Cuts snap back
// to the nearest whitespace so words stay whole. Empty or blank input
// yields nil. The split is deterministic.
func ChunkText(text string, maxTokens, overlapPercent int) []string {
	if maxTokens <= 0 {
		maxTokens = DefaultChunkTokens
	}
	if overlapPercent < 0 || overlapPercent >= 100 {
		overlapPercent = DefaultOverlapPercent
	}

	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}

	window := maxTokens * charsPerToken
	overlap := window * overlapPercent / 100

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + window
		last := end >= len(runes)
		if last {
			end = len(runes)
		}

		cut := end
		if !last {
			for cut > start && !unicode.IsSpace(runes[cut-1]) {
				cut--
			}
			if cut == start {
				// One unbroken run longer than the window: hard cut.
				cut = end
			}
		}

		if chunk := strings.TrimSpace(string(runes[start:cut])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if last {
			break
		}

		next := cut - overlap
		if next <= start {
			next = cut
		} else {
			// Land the overlap on a word start, not mid-word.
			for next < cut && !unicode.IsSpace(runes[next-1]) {
				next++
			}
		}
		start = next
	}
	return chunks
}
