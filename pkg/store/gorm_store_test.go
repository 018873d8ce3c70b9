package store

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm/schema"

	"docqa/pkg/domain"
)

func TestGormModelMapping(t *testing.T) {
	cache := &sync.Map{}
	docSchema, err := schema.Parse(&DocumentModel{}, cache, schema.NamingStrategy{})
	if err != nil {
		t.Fatalf("parse document model: %v", err)
	}
	if docSchema.Table != "documents" {
		t.Fatalf("expected documents table, got %q", docSchema.Table)
	}
	for field, column := range map[string]string{"UploadedAt": "uploaded_at", "WordCount": "word_count"} {
		f := docSchema.LookUpField(field)
		if f == nil || f.DBName != column {
			t.Fatalf("expected %s column for %s, got %+v", column, field, f)
		}
	}
	rel, ok := docSchema.Relationships.Relations["Chunks"]
	if !ok {
		t.Fatalf("expected chunks relationship")
	}
	constraint := rel.ParseConstraint()
	if constraint == nil || constraint.OnDelete != "CASCADE" {
		t.Fatalf("expected cascading chunk delete, got %+v", constraint)
	}

	chunkSchema, err := schema.Parse(&ChunkModel{}, cache, schema.NamingStrategy{})
	if err != nil {
		t.Fatalf("parse chunk model: %v", err)
	}
	if chunkSchema.Table != "chunks" {
		t.Fatalf("expected chunks table, got %q", chunkSchema.Table)
	}
	for _, name := range []string{"DocumentID", "ChunkIndex"} {
		f := chunkSchema.LookUpField(name)
		if f == nil || f.TagSettings["UNIQUEINDEX"] != "idx_chunks_document_index" {
			t.Fatalf("expected %s in the document/index unique key, got %+v", name, f)
		}
	}

	convSchema, err := schema.Parse(&ConversationModel{}, cache, schema.NamingStrategy{})
	if err != nil {
		t.Fatalf("parse conversation model: %v", err)
	}
	if convSchema.Table != "conversations" {
		t.Fatalf("expected conversations table, got %q", convSchema.Table)
	}
}

func TestGormDocumentConversion(t *testing.T) {
	uploaded := time.Date(2026, 3, 4, 5, 6, 7, 0, time.FixedZone("CET", 3600))
	doc := domain.Document{ID: "doc-1", Name: "notes", Content: "a b c", UploadedAt: uploaded, WordCount: 3}

	model := documentToModel(doc)
	if model.UploadedAt.Location() != time.UTC {
		t.Fatalf("expected UTC timestamp, got %v", model.UploadedAt)
	}
	back := documentFromModel(model)
	if !back.UploadedAt.Equal(uploaded) || back.ID != doc.ID || back.Name != doc.Name ||
		back.Content != doc.Content || back.WordCount != doc.WordCount {
		t.Fatalf("unexpected document after conversion: %+v", back)
	}

	chunk := domain.Chunk{ID: "doc-1-0", DocumentID: "doc-1", ChunkIndex: 0, Content: "a b c"}
	got := chunksFromModels([]ChunkModel{chunkToModel(chunk)})
	if len(got) != 1 || got[0] != chunk {
		t.Fatalf("unexpected chunk after conversion: %+v", got)
	}
}

// Set DOCQA_TEST_POSTGRES_DSN to run against a real database.
func TestGormStoreDocumentLifecycle(t *testing.T) {
	dsn := os.Getenv("DOCQA_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("DOCQA_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	s := NewGormStore(dsn)
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	suffix := time.Now().Format("150405.000000000")
	base := time.Now().UTC().Add(time.Hour).Truncate(time.Microsecond)
	older, olderChunks := testDocument("gorm-a-"+suffix, base, "alpha", "beta")
	newer, newerChunks := testDocument("gorm-b-"+suffix, base.Add(time.Minute), "gamma", "delta", "epsilon")
	t.Cleanup(func() {
		_, _ = s.DeleteDocument(ctx, older.ID)
		_, _ = s.DeleteDocument(ctx, newer.ID)
	})
	if err := s.InsertDocument(ctx, older, olderChunks); err != nil {
		t.Fatalf("insert older: %v", err)
	}
	if err := s.InsertDocument(ctx, newer, newerChunks); err != nil {
		t.Fatalf("insert newer: %v", err)
	}

	docs, err := s.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("list documents: %v", err)
	}
	if len(docs) < 2 || docs[0].ID != newer.ID || docs[1].ID != older.ID {
		t.Fatalf("expected newest first, got %+v", docs)
	}

	got, ok, err := s.GetDocument(ctx, older.ID)
	if err != nil || !ok {
		t.Fatalf("get document: ok=%v err=%v", ok, err)
	}
	if got.Content != older.Content || !got.UploadedAt.Equal(base) {
		t.Fatalf("unexpected document: %+v", got)
	}

	chunks, err := s.ListChunksByDocument(ctx, newer.ID)
	if err != nil {
		t.Fatalf("list chunks: %v", err)
	}
	if len(chunks) != 3 || chunks[0].Content != "gamma" || chunks[2].ChunkIndex != 2 {
		t.Fatalf("unexpected chunks: %+v", chunks)
	}

	found, err := s.DeleteDocument(ctx, newer.ID)
	if err != nil || !found {
		t.Fatalf("delete: found=%v err=%v", found, err)
	}
	chunks, err = s.ListChunksByDocument(ctx, newer.ID)
	if err != nil || len(chunks) != 0 {
		t.Fatalf("expected chunks removed with document, got %+v err=%v", chunks, err)
	}
	found, err = s.DeleteDocument(ctx, newer.ID)
	if err != nil || found {
		t.Fatalf("second delete: found=%v err=%v", found, err)
	}
}
