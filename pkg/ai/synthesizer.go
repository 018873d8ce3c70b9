package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"docqa/pkg/domain"
)

// DefaultTimeout bounds a single answer generation call.
const DefaultTimeout = 60 * time.Second

// FallbackAnswer is returned when the model produces no completion text.
const FallbackAnswer = "Unable to generate answer"

const answerSystemPrompt = `You are a helpful AI assistant that answers questions based on provided documents.
Always cite which documents you used to answer the question.
If you cannot find the answer in the provided documents, say so clearly.
Keep answers concise and well-structured.`

// Synthesizer turns a question plus ranked chunks into a cited answer.
type Synthesizer struct {
	generator TextGenerator
	timeout   time.Duration
}

// NewSynthesizer wraps a generator. timeout <= 0 uses DefaultTimeout.
func NewSynthesizer(generator TextGenerator, timeout time.Duration) *Synthesizer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Synthesizer{generator: generator, timeout: timeout}
}

// GenerateAnswer makes one generation attempt. The returned sources are the
// input chunks in order; they are what the model was shown, not what it cited.
func (s *Synthesizer) GenerateAnswer(ctx context.Context, question string, chunks []domain.Chunk) (domain.Answer, error) {
	if s.generator == nil {
		return domain.Answer{}, fmt.Errorf("%w: text generator not configured", ErrMissingCredentials)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.generator.GenerateText(ctx, answerSystemPrompt, BuildUserPrompt(question, chunks))
	if err != nil {
		return domain.Answer{}, Classify(err)
	}
	if strings.TrimSpace(text) == "" {
		text = FallbackAnswer
	}
	return domain.Answer{
		Question: question,
		Answer:   text,
		Sources:  chunks,
	}, nil
}

// BuildContext renders chunks as numbered source blocks.
func BuildContext(chunks []domain.Chunk) string {
	blocks := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		blocks = append(blocks, fmt.Sprintf("[Source %d - Doc: %s]\n%s", i+1, chunk.DocumentID, chunk.Content))
	}
	return strings.Join(blocks, "\n\n")
}

// BuildUserPrompt embeds the context and question in the answer instructions.
func BuildUserPrompt(question string, chunks []domain.Chunk) string {
	return "Based on the following documents:\n\n" +
		BuildContext(chunks) +
		"\n\nPlease answer this question: " + question +
		"\n\nImportant: Cite which specific document(s) you used to answer this."
}
