// Package speech converts narration text into audio through a chunked,
// fault-tolerant text-to-speech pipeline.
package speech

import (
	"regexp"
	"strings"
)

// DefaultChunkSize is the maximum characters submitted per synthesis request
const DefaultChunkSize = 1500

var chunkWhitespacePattern = regexp.MustCompile(`\s+`)

// EnsureSentenceEnding collapses whitespace and guarantees the text ends
// with terminal punctuation, so the final chunk synthesizes cleanly
func EnsureSentenceEnding(text string) string {
	text = strings.TrimSpace(chunkWhitespacePattern.ReplaceAllString(text, " "))
	if text == "" {
		return ""
	}
	last := text[len(text)-1]
	if last != '.' && last != '!' && last != '?' {
		text += "."
	}
	return text
}

// SplitSentences splits text at sentence boundaries: after '.', '!' or '?'
// followed by whitespace. The trailing sentence needs no whitespace after
// its terminator.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	start := 0
	for i := 0; i < len(text)-1; i++ {
		c := text[i]
		if (c == '.' || c == '!' || c == '?') && isSpace(text[i+1]) {
			sentence := strings.TrimSpace(text[start : i+1])
			if sentence != "" {
				sentences = append(sentences, sentence)
			}
			start = i + 1
		}
	}

	if tail := strings.TrimSpace(text[start:]); tail != "" {
		sentences = append(sentences, tail)
	}

	return sentences
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// ChunkText splits text into chunks not exceeding limit characters, packing
// whole sentences greedily. Text already within the limit is returned as a
// single chunk. A single sentence longer than the limit becomes its own
// chunk rather than being split mid-sentence.
func ChunkText(text string, limit int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if limit <= 0 {
		limit = DefaultChunkSize
	}
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder

	for _, sentence := range SplitSentences(text) {
		// +1 for the joining space
		if current.Len() > 0 && current.Len()+1+len(sentence) > limit {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(sentence)
	}

	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}
