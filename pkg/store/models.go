package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type DocumentModel struct {
	ID         string       `gorm:"primaryKey"`
	Name       string       `gorm:"not null"`
	Content    string       `gorm:"type:text;not null"`
	UploadedAt time.Time    `gorm:"not null;index"`
	WordCount  int          `gorm:"not null"`
	Chunks     []ChunkModel `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE"`
}

func (DocumentModel) TableName() string { return "documents" }

type ChunkModel struct {
	ID         string `gorm:"primaryKey"`
	DocumentID string `gorm:"not null;uniqueIndex:idx_chunks_document_index"`
	ChunkIndex int    `gorm:"not null;uniqueIndex:idx_chunks_document_index"`
	Content    string `gorm:"type:text;not null"`
}

func (ChunkModel) TableName() string { return "chunks" }

// ConversationModel reserves the conversation history table.
type ConversationModel struct {
	ID        string         `gorm:"primaryKey"`
	Question  string         `gorm:"type:text;not null"`
	Answer    string         `gorm:"type:text;not null"`
	Sources   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
}

func (ConversationModel) TableName() string { return "conversations" }
