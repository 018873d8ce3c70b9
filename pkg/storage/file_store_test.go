package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileStorePutAndDeletePrefix(t *testing.T) {
	base := t.TempDir()
	fs, err := NewFileStore(base)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	ctx := context.Background()
	key := DocumentKey("doc-1", "notes.txt")
	if key != "documents/doc-1/notes.txt" {
		t.Fatalf("unexpected key %q", key)
	}
	if err := fs.Put(ctx, key, strings.NewReader("hello"), 5, "text/plain"); err != nil {
		t.Fatalf("put: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(base, "documents", "doc-1", "notes.txt"))
	if err != nil || string(data) != "hello" {
		t.Fatalf("read back: %q, %v", data, err)
	}

	if err := fs.DeletePrefix(ctx, DocumentPrefix("doc-1")); err != nil {
		t.Fatalf("delete prefix: %v", err)
	}
	if _, err := os.Stat(filepath.Join(base, "documents", "doc-1")); !os.IsNotExist(err) {
		t.Fatalf("document dir should be removed, stat err=%v", err)
	}
	if err := fs.DeletePrefix(ctx, DocumentPrefix("doc-1")); err != nil {
		t.Fatalf("deleting a missing prefix should succeed: %v", err)
	}
}

func TestFileStoreRejectsEscapingKeys(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	if err := fs.Put(context.Background(), "../outside.txt", strings.NewReader("x"), 1, "text/plain"); err == nil {
		t.Fatalf("expected error for key outside base")
	}
	if err := fs.DeletePrefix(context.Background(), ""); err == nil {
		t.Fatalf("expected error when deleting the root")
	}
}

func TestDocumentKeySanitizesFilename(t *testing.T) {
	cases := map[string]string{
		"../../etc/passwd":     "documents/d/passwd",
		"C:\\Users\\me\\a.txt": "documents/d/a.txt",
		"   ":                  "documents/d/document.txt",
	}
	for name, want := range cases {
		if got := DocumentKey("d", name); got != want {
			t.Fatalf("%q: expected %q, got %q", name, want, got)
		}
	}
}

func TestNewFileStoreRequiresPath(t *testing.T) {
	if _, err := NewFileStore(" "); err == nil {
		t.Fatalf("expected error for empty base path")
	}
}
