// Package retrieval splits documents into word windows and ranks them
// against a question by keyword overlap.
package retrieval

import "strings"

// ChunkSize is the number of words per chunk.
const ChunkSize = 500

// Chunk splits content into windows of ChunkSize words.
func Chunk(content string) []string {
	return Split(content, ChunkSize)
}

// Split groups the whitespace-delimited words of content into consecutive
// windows of size words joined by single spaces. The last window holds the
// remainder. Content without any words comes back as a single chunk so a
// stored document always has at least one chunk.
func Split(content string, size int) []string {
	if size <= 0 {
		size = ChunkSize
	}
	words := strings.Fields(content)
	chunks := make([]string, 0, (len(words)+size-1)/size)
	for i := 0; i < len(words); i += size {
		end := i + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}
	if len(chunks) == 0 {
		return []string{content}
	}
	return chunks
}

// WordCount returns the number of whitespace-delimited non-empty tokens.
func WordCount(content string) int {
	return len(strings.Fields(content))
}
