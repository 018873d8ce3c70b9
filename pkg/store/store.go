package store

import (
	"context"

	"docqa/pkg/domain"
)

// Store defines persistence operations for documents and their chunks.
// Operations called before Init initialize the store first.
type Store interface {
	// lifecycle
	Init(ctx context.Context) error
	Close() error

	// documents
	InsertDocument(ctx context.Context, doc domain.Document, chunks []domain.Chunk) error
	ListDocuments(ctx context.Context) ([]domain.DocumentSummary, error)
	GetDocument(ctx context.Context, id string) (domain.Document, bool, error)
	DeleteDocument(ctx context.Context, id string) (bool, error)
	CountDocuments(ctx context.Context) (int, error)
	SumWordCounts(ctx context.Context) (int, error)

	// chunks
	ListChunksByDocument(ctx context.Context, documentID string) ([]domain.Chunk, error)
	ListAllChunks(ctx context.Context) ([]domain.Chunk, error)
}
