package retrieval

import (
	"sort"
	"strings"

	"docqa/pkg/domain"
)

// DefaultTopK is the number of chunks handed to the answer synthesizer.
const DefaultTopK = 3

// Scored pairs a chunk with its keyword overlap score.
type Scored struct {
	Chunk domain.Chunk
	Score int
}

// Rank scores every chunk against question and returns at most topK of them,
// highest score first. Equal scores keep their input order. Zero scores are
// not filtered out.
//
// A query word counts when it appears anywhere in the lower-cased chunk text,
// so "cat" also matches "catalog". Repeated query words count repeatedly.
func Rank(question string, chunks []domain.Chunk, topK int) []Scored {
	if topK <= 0 || len(chunks) == 0 {
		return []Scored{}
	}
	words := strings.Fields(strings.ToLower(question))

	scored := make([]Scored, len(chunks))
	for i, chunk := range chunks {
		scored[i] = Scored{Chunk: chunk, Score: overlap(words, strings.ToLower(chunk.Content))}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}

// FindRelevantChunks returns the topK chunks ranked by Rank.
func FindRelevantChunks(question string, chunks []domain.Chunk, topK int) []domain.Chunk {
	ranked := Rank(question, chunks, topK)
	out := make([]domain.Chunk, 0, len(ranked))
	for _, item := range ranked {
		out = append(out, item.Chunk)
	}
	return out
}

// NonZero drops entries that share no words with the question.
func NonZero(ranked []Scored) []Scored {
	out := make([]Scored, 0, len(ranked))
	for _, item := range ranked {
		if item.Score > 0 {
			out = append(out, item)
		}
	}
	return out
}

func overlap(words []string, text string) int {
	score := 0
	for _, word := range words {
		if strings.Contains(text, word) {
			score++
		}
	}
	return score
}
