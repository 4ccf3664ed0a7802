package textproc

import (
	"fmt"
	"regexp"
	"strings"
)

// minSentenceLen is the shortest unit kept as its own sentence; anything
// shorter is merged into the previous one so abbreviations and clipped
// fragments never become standalone chunks.
const minSentenceLen = 20

// TextChunk is the unit of retrieval: a bounded excerpt of one article.
type TextChunk struct {
	ID            string         `json:"id"`
	Content       string         `json:"content"`
	Metadata      map[string]any `json:"metadata"`
	SequenceIndex int            `json:"sequence_index"`
}

var sentenceEndRe = regexp.MustCompile(`[.!?]\s+`)

// SplitSentences breaks text on sentence-ending punctuation followed by
// whitespace, merging undersized fragments into their predecessor.
func SplitSentences(text string) []string {
	parts := sentenceEndRe.Split(text, -1)

	var sentences []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if len([]rune(part)) < minSentenceLen && len(sentences) > 0 {
			sentences[len(sentences)-1] += ". " + part
		} else if part != "" {
			sentences = append(sentences, part)
		}
	}
	return sentences
}

// overlapTail returns the trailing substring of at most overlapSize runes,
// trimmed forward to the next whitespace boundary so it never starts
// mid-word.
func overlapTail(text string, overlapSize int) string {
	runes := []rune(text)
	if len(runes) <= overlapSize {
		return text
	}

	tail := string(runes[len(runes)-overlapSize:])
	if idx := strings.Index(tail, " "); idx > 0 {
		tail = tail[idx+1:]
	}
	return tail
}

// Segment splits normalized text into overlapping chunks of roughly
// chunkSize characters, never breaking inside a sentence. A single
// sentence longer than chunkSize is emitted as one oversized chunk.
// Chunk IDs are "{pmid}_{index}" and sequence indices count from 0.
func Segment(text string, metadata map[string]any, chunkSize, overlap int) []TextChunk {
	if text == "" {
		return nil
	}

	sourceID := "unknown"
	if metadata != nil {
		if pmid, ok := metadata["pmid"].(string); ok && pmid != "" {
			sourceID = pmid
		}
	}

	emit := func(chunks []TextChunk, content string, index int) []TextChunk {
		chunkMeta := make(map[string]any, len(metadata))
		for k, v := range metadata {
			chunkMeta[k] = v
		}
		return append(chunks, TextChunk{
			ID:            fmt.Sprintf("%s_%d", sourceID, index),
			Content:       strings.TrimSpace(content),
			Metadata:      chunkMeta,
			SequenceIndex: index,
		})
	}

	var chunks []TextChunk
	current := ""
	index := 0

	for _, sentence := range SplitSentences(text) {
		if len([]rune(current))+len([]rune(sentence)) > chunkSize && current != "" {
			chunks = emit(chunks, current, index)
			current = overlapTail(current, overlap) + " " + sentence
			index++
		} else if current == "" {
			current = sentence
		} else {
			current += " " + sentence
		}
	}

	if strings.TrimSpace(current) != "" {
		chunks = emit(chunks, current, index)
	}

	return chunks
}
