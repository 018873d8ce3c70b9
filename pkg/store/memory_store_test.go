package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreMatchesOrdering(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Now().UTC()
	b, bChunks := testDocument("doc-b", base, "x", "y")
	a, aChunks := testDocument("doc-a", base.Add(time.Second), "z")
	if err := s.InsertDocument(ctx, b, bChunks); err != nil {
		t.Fatalf("insert b: %v", err)
	}
	if err := s.InsertDocument(ctx, a, aChunks); err != nil {
		t.Fatalf("insert a: %v", err)
	}
	if err := s.InsertDocument(ctx, a, aChunks); !errors.Is(err, ErrStorage) {
		t.Fatalf("duplicate insert should fail, got %v", err)
	}

	docs, _ := s.ListDocuments(ctx)
	if len(docs) != 2 || docs[0].ID != "doc-a" {
		t.Fatalf("expected newest first, got %+v", docs)
	}
	all, _ := s.ListAllChunks(ctx)
	if len(all) != 3 || all[0].DocumentID != "doc-a" || all[1].ChunkIndex != 0 || all[2].ChunkIndex != 1 {
		t.Fatalf("unexpected chunk order %+v", all)
	}

	found, _ := s.DeleteDocument(ctx, "doc-b")
	if !found {
		t.Fatalf("delete should find doc-b")
	}
	chunks, _ := s.ListChunksByDocument(ctx, "doc-b")
	if len(chunks) != 0 {
		t.Fatalf("chunks should be removed")
	}
	if total, _ := s.SumWordCounts(ctx); total != 1 {
		t.Fatalf("expected 1 word left, got %d", total)
	}
}

func TestMemoryStoreFailWith(t *testing.T) {
	s := NewMemoryStore()
	s.FailWith(errors.New("disk on fire"))
	if _, err := s.CountDocuments(context.Background()); !errors.Is(err, ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
	s.FailWith(nil)
	if _, err := s.CountDocuments(context.Background()); err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
}
