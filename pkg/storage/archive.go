package storage

import (
	"context"
	"io"
	"path"
	"path/filepath"
	"strings"
)

// Archive keeps the raw bytes of uploaded documents.
type Archive interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// DocumentPrefix is the key prefix holding every object of a document.
func DocumentPrefix(documentID string) string {
	return path.Join("documents", documentID) + "/"
}

// DocumentKey returns the archive key for a document's original file.
func DocumentKey(documentID, filename string) string {
	return DocumentPrefix(documentID) + safeFilename(filename)
}

func safeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(filepath.ToSlash(name))
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == "/" || name == ".." {
		return "document.txt"
	}
	return name
}
