package domain

import "time"

type Document struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Content    string    `json:"content"`
	UploadedAt time.Time `json:"uploadedAt"`
	WordCount  int       `json:"wordCount"`
}

// DocumentSummary is the listing view of a document without its content.
type DocumentSummary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	UploadedAt time.Time `json:"uploadedAt"`
	WordCount  int       `json:"wordCount"`
}

// Summary drops the document body.
func (d Document) Summary() DocumentSummary {
	return DocumentSummary{
		ID:         d.ID,
		Name:       d.Name,
		UploadedAt: d.UploadedAt,
		WordCount:  d.WordCount,
	}
}

type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"documentId"`
	ChunkIndex int    `json:"chunkIndex"`
	Content    string `json:"content"`
}

// Conversation mirrors the conversations table. Nothing reads or writes it yet.
type Conversation struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Sources   []Source  `json:"sources"`
	CreatedAt time.Time `json:"createdAt"`
}

type Answer struct {
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
	Sources  []Chunk `json:"sources"`
}

// Source is the caller-facing reference to a chunk used as answer context.
type Source struct {
	DocumentID string `json:"documentId"`
	ChunkIndex int    `json:"chunkIndex"`
	Preview    string `json:"preview"`
}

type ServiceStatus string

const (
	StatusHealthy   ServiceStatus = "healthy"
	StatusDegraded  ServiceStatus = "degraded"
	StatusUnhealthy ServiceStatus = "unhealthy"
)

type Health struct {
	Timestamp time.Time      `json:"timestamp"`
	Status    ServiceStatus  `json:"status"`
	Services  HealthServices `json:"services"`
	Stats     HealthStats    `json:"stats"`
	Error     string         `json:"error,omitempty"`
}

type HealthServices struct {
	Database string `json:"database"`
	LLM      string `json:"llm"`
	App      string `json:"app"`
}

type HealthStats struct {
	DocumentsCount int `json:"documentsCount"`
	TotalWords     int `json:"totalWords"`
}
