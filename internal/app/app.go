package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"docqa/internal/util"
	"docqa/pkg/ai"
	"docqa/pkg/domain"
	"docqa/pkg/retrieval"
	"docqa/pkg/storage"
	"docqa/pkg/store"
)

const (
	DefaultMaxUploadBytes   = 10 << 20
	DefaultMaxQuestionChars = 2000

	NoDocumentsAnswer = "No documents are currently uploaded. Please upload some documents first."
	NoRelevantAnswer  = "I could not find relevant information in the uploaded documents to answer your question."

	previewRunes = 200
)

// AnswerGenerator produces a cited answer from ranked chunks.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, chunks []domain.Chunk) (domain.Answer, error)
}

// Config holds runtime configuration for the core application.
type Config struct {
	Store   store.Store
	Answers AnswerGenerator
	// Archive is optional; nil disables raw upload archiving.
	Archive storage.Archive

	// APIKey is inspected by Health and, when RequireAPIKey is set, before
	// each question.
	APIKey        string
	RequireAPIKey bool
	// CredentialEnvVar names the key variable in errors and health output.
	// Empty means ai.CredentialEnvVar.
	CredentialEnvVar string

	ChunkSize        int
	TopK             int
	MaxUploadBytes   int64
	MaxQuestionChars int

	Now func() time.Time
}

// App is the core application service wiring storage, retrieval and answer
// generation together.
type App struct {
	store   store.Store
	answers AnswerGenerator
	archive storage.Archive

	apiKey        string
	requireAPIKey bool
	credentialVar string

	chunkSize        int
	topK             int
	maxUploadBytes   int64
	maxQuestionChars int
	now              func() time.Time
}

// New constructs the application.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if cfg.Answers == nil {
		return nil, fmt.Errorf("answer generator required")
	}
	a := &App{
		store:            cfg.Store,
		answers:          cfg.Answers,
		archive:          cfg.Archive,
		apiKey:           cfg.APIKey,
		requireAPIKey:    cfg.RequireAPIKey,
		credentialVar:    cfg.CredentialEnvVar,
		chunkSize:        cfg.ChunkSize,
		topK:             cfg.TopK,
		maxUploadBytes:   cfg.MaxUploadBytes,
		maxQuestionChars: cfg.MaxQuestionChars,
		now:              cfg.Now,
	}
	if a.chunkSize <= 0 {
		a.chunkSize = retrieval.ChunkSize
	}
	if a.topK <= 0 {
		a.topK = retrieval.DefaultTopK
	}
	if a.maxUploadBytes <= 0 {
		a.maxUploadBytes = DefaultMaxUploadBytes
	}
	if a.maxQuestionChars <= 0 {
		a.maxQuestionChars = DefaultMaxQuestionChars
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.credentialVar == "" {
		a.credentialVar = ai.CredentialEnvVar
	}
	return a, nil
}

// UploadInput is a document submission. Data holds the raw file bytes.
type UploadInput struct {
	Name        string
	Filename    string
	ContentType string
	Data        []byte
	// Size is the declared size; it is checked before Data is inspected.
	Size int64
}

// Upload validates the input, archives the raw bytes when an archive is
// configured, and stores the document together with its chunks.
func (a *App) Upload(ctx context.Context, in UploadInput) (domain.DocumentSummary, error) {
	content, err := a.validateUpload(in)
	if err != nil {
		return domain.DocumentSummary{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = strings.TrimSpace(in.Filename)
	}
	if name == "" {
		return domain.DocumentSummary{}, invalid("Document name is required")
	}

	doc := domain.Document{
		ID:         util.NewID(),
		Name:       name,
		Content:    content,
		UploadedAt: a.now().UTC().Truncate(time.Millisecond),
		WordCount:  retrieval.WordCount(content),
	}
	parts := retrieval.Split(content, a.chunkSize)
	chunks := make([]domain.Chunk, 0, len(parts))
	for i, part := range parts {
		chunks = append(chunks, domain.Chunk{
			ID:         util.NewID(),
			DocumentID: doc.ID,
			ChunkIndex: i,
			Content:    part,
		})
	}

	logger := util.LoggerFromContext(ctx)
	if a.archive != nil {
		filename := in.Filename
		if filename == "" {
			filename = name
		}
		key := storage.DocumentKey(doc.ID, filename)
		if err := a.archive.Put(ctx, key, bytes.NewReader(in.Data), int64(len(in.Data)), contentTypeOrText(in.ContentType)); err != nil {
			return domain.DocumentSummary{}, &store.Error{Op: "archive document", Err: err}
		}
	}
	if err := a.store.InsertDocument(ctx, doc, chunks); err != nil {
		if a.archive != nil {
			if cleanupErr := a.archive.DeletePrefix(ctx, storage.DocumentPrefix(doc.ID)); cleanupErr != nil {
				logger.Warn("archive cleanup failed", "document_id", doc.ID, "err", cleanupErr)
			}
		}
		return domain.DocumentSummary{}, fmt.Errorf("save document: %w", err)
	}
	logger.Info("document uploaded", "document_id", doc.ID, "words", doc.WordCount, "chunks", len(chunks))
	return doc.Summary(), nil
}

func (a *App) validateUpload(in UploadInput) (string, error) {
	if in.Data == nil {
		return "", invalid("No file provided")
	}
	if !isTextContentType(in.ContentType) {
		return "", invalid("Only text files are allowed")
	}
	if in.Size > a.maxUploadBytes || int64(len(in.Data)) > a.maxUploadBytes {
		return "", TooLarge(a.maxUploadBytes)
	}
	content := string(in.Data)
	if !utf8.ValidString(content) {
		content = strings.ToValidUTF8(content, "\uFFFD")
	}
	if strings.TrimSpace(content) == "" {
		return "", invalid("File is empty")
	}
	if strings.ContainsRune(content, 0) {
		return "", invalid("File contains binary data")
	}
	return content, nil
}

// UploadLimit is the largest accepted upload in bytes.
func (a *App) UploadLimit() int64 { return a.maxUploadBytes }

// TooLarge is the validation error for an upload over limit bytes.
func TooLarge(limit int64) error {
	return invalid(fmt.Sprintf("File is too large (max %s)", formatBytes(limit)))
}

// ListDocuments returns document summaries, newest first.
func (a *App) ListDocuments(ctx context.Context) ([]domain.DocumentSummary, error) {
	return a.store.ListDocuments(ctx)
}

// GetDocument returns a document including its content.
func (a *App) GetDocument(ctx context.Context, id string) (domain.Document, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Document{}, invalid("Document ID is required")
	}
	doc, ok, err := a.store.GetDocument(ctx, id)
	if err != nil {
		return domain.Document{}, err
	}
	if !ok {
		return domain.Document{}, ErrDocumentNotFound
	}
	return doc, nil
}

// DocumentChunks returns a document's chunks in index order.
func (a *App) DocumentChunks(ctx context.Context, id string) ([]domain.Chunk, error) {
	if _, err := a.GetDocument(ctx, id); err != nil {
		return nil, err
	}
	return a.store.ListChunksByDocument(ctx, strings.TrimSpace(id))
}

// DeleteResult reports side effects of a delete beyond the database.
type DeleteResult struct {
	// ArchiveWarning is set when the stored raw file could not be removed.
	ArchiveWarning string
}

// DeleteDocument removes a document and its chunks, then its archived file.
func (a *App) DeleteDocument(ctx context.Context, id string) (DeleteResult, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return DeleteResult{}, invalid("Document ID is required")
	}
	found, err := a.store.DeleteDocument(ctx, id)
	if err != nil {
		return DeleteResult{}, err
	}
	if !found {
		return DeleteResult{}, ErrDocumentNotFound
	}
	logger := util.LoggerFromContext(ctx)
	logger.Info("document deleted", "document_id", id)

	var res DeleteResult
	if a.archive != nil {
		if err := a.archive.DeletePrefix(ctx, storage.DocumentPrefix(id)); err != nil {
			logger.Warn("archive delete failed", "document_id", id, "err", err)
			res.ArchiveWarning = "archived file could not be removed"
		}
	}
	return res, nil
}

// AskResult is the caller-facing answer.
type AskResult struct {
	Answer  string          `json:"answer"`
	Sources []domain.Source `json:"sources"`
}

// Ask answers a question from the stored chunks. Canned answers are returned
// when nothing is stored or no chunk shares a word with the question.
func (a *App) Ask(ctx context.Context, question string) (AskResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return AskResult{}, invalid("Question cannot be empty")
	}
	if utf8.RuneCountInString(question) > a.maxQuestionChars {
		return AskResult{}, invalid(fmt.Sprintf("Question is too long (max %d characters)", a.maxQuestionChars))
	}
	if a.requireAPIKey && strings.TrimSpace(a.apiKey) == "" {
		return AskResult{}, fmt.Errorf("%w: %s is not set", ai.ErrMissingCredentials, a.credentialVar)
	}

	chunks, err := a.store.ListAllChunks(ctx)
	if err != nil {
		return AskResult{}, fmt.Errorf("load chunks: %w", err)
	}
	if len(chunks) == 0 {
		return AskResult{Answer: NoDocumentsAnswer, Sources: []domain.Source{}}, nil
	}

	ranked := retrieval.NonZero(retrieval.Rank(question, chunks, a.topK))
	if len(ranked) == 0 {
		return AskResult{Answer: NoRelevantAnswer, Sources: []domain.Source{}}, nil
	}
	relevant := make([]domain.Chunk, 0, len(ranked))
	for _, r := range ranked {
		relevant = append(relevant, r.Chunk)
	}

	answer, err := a.answers.GenerateAnswer(ctx, question, relevant)
	if err != nil {
		return AskResult{}, fmt.Errorf("generate answer: %w", err)
	}
	sources := make([]domain.Source, 0, len(answer.Sources))
	for _, chunk := range answer.Sources {
		sources = append(sources, domain.Source{
			DocumentID: chunk.DocumentID,
			ChunkIndex: chunk.ChunkIndex,
			Preview:    Preview(chunk.Content),
		})
	}
	util.LoggerFromContext(ctx).Info("question answered", "chunks_scanned", len(chunks), "sources", len(sources))
	return AskResult{Answer: answer.Answer, Sources: sources}, nil
}

// Health aggregates storage and model readiness. The model check inspects
// only the configured credential.
func (a *App) Health(ctx context.Context) domain.Health {
	h := domain.Health{
		Timestamp: a.now().UTC(),
		Status:    domain.StatusHealthy,
		Services: domain.HealthServices{
			Database: "unknown",
			LLM:      "unknown",
			App:      "running",
		},
	}
	logger := util.LoggerFromContext(ctx)

	if err := a.store.Init(ctx); err != nil {
		logger.Error("health check failed", "err", err)
		h.Status = domain.StatusUnhealthy
		h.Error = err.Error()
		return h
	}

	count, err := a.store.CountDocuments(ctx)
	if err == nil {
		var words int
		words, err = a.store.SumWordCounts(ctx)
		h.Stats = domain.HealthStats{DocumentsCount: count, TotalWords: words}
	}
	if err != nil {
		logger.Error("database health check failed", "err", err)
		h.Services.Database = "failed"
		h.Stats = domain.HealthStats{}
		h.Status = domain.StatusDegraded
	} else {
		h.Services.Database = "connected"
	}

	if !a.requireAPIKey {
		h.Services.LLM = "connected"
		return h
	}
	switch err := ai.CheckCredentials(a.apiKey); {
	case err == nil:
		h.Services.LLM = "connected"
	case errors.Is(err, ai.ErrMissingCredentials):
		h.Services.LLM = "failed - missing " + a.credentialVar
		h.Status = domain.StatusDegraded
	default:
		h.Services.LLM = "failed - invalid credentials"
		h.Status = domain.StatusDegraded
	}
	return h
}

// Preview returns the first 200 characters of content followed by "...".
func Preview(content string) string {
	if utf8.RuneCountInString(content) <= previewRunes {
		return content + "..."
	}
	runes := []rune(content)
	return string(runes[:previewRunes]) + "..."
}

func isTextContentType(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "text/")
}

func contentTypeOrText(contentType string) string {
	if strings.TrimSpace(contentType) == "" {
		return "text/plain; charset=utf-8"
	}
	return contentType
}

func formatBytes(n int64) string {
	if n >= 1<<20 && n%(1<<20) == 0 {
		return fmt.Sprintf("%dMB", n>>20)
	}
	if n >= 1<<10 && n%(1<<10) == 0 {
		return fmt.Sprintf("%dKB", n>>10)
	}
	return fmt.Sprintf("%d bytes", n)
}
