package retrieval

import (
	"strings"
	"testing"
)

func TestChunkShortDocumentIsSingleChunk(t *testing.T) {
	content := "The cat sat on the mat. The dog ran in the park."
	chunks := Chunk(content)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != content {
		t.Fatalf("chunk mismatch: %q", chunks[0])
	}
	if got := WordCount(content); got != 12 {
		t.Fatalf("word count = %d, want 12", got)
	}
}

func TestChunkWindowsAndRemainder(t *testing.T) {
	words := make([]string, 1203)
	for i := range words {
		words[i] = "w" + strings.Repeat("x", i%5)
	}
	chunks := Chunk(strings.Join(words, "\n\t "))
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, want := range []int{500, 500, 203} {
		if got := len(strings.Fields(chunks[i])); got != want {
			t.Fatalf("chunk %d has %d words, want %d", i, got, want)
		}
	}
}

func TestChunkRejoinsToCollapsedContent(t *testing.T) {
	inputs := []string{
		"one",
		"  leading and trailing  ",
		"tabs\tand\nnewlines\r\n  mixed   runs",
		strings.Repeat("alpha beta  gamma\n", 700),
	}
	for _, input := range inputs {
		joined := strings.Join(Chunk(input), " ")
		want := strings.Join(strings.Fields(input), " ")
		if joined != want {
			t.Fatalf("rejoined chunks differ for %q", input[:min(len(input), 30)])
		}
	}
}

func TestChunkWithoutWordsFallsBackToContent(t *testing.T) {
	content := " \n\t "
	chunks := Chunk(content)
	if len(chunks) != 1 || chunks[0] != content {
		t.Fatalf("expected original content as single chunk, got %q", chunks)
	}
}

func TestSplitCustomSize(t *testing.T) {
	chunks := Split("a b c d e", 2)
	want := []string{"a b", "c d", "e"}
	if len(chunks) != len(want) {
		t.Fatalf("got %q, want %q", chunks, want)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Fatalf("chunk %d = %q, want %q", i, chunks[i], want[i])
		}
	}
	if got := Split("a b c", 0); len(got) != 1 {
		t.Fatalf("size 0 should use default chunk size, got %d chunks", len(got))
	}
}
