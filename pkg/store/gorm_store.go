package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"docqa/pkg/domain"
)

const migrateLockID int64 = 73217321

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *lazyHandle[*gorm.DB]
}

// NewGormStore returns an uninitialized store for dsn. The connection is
// opened and migrated by Init or the first operation.
func NewGormStore(dsn string) *GormStore {
	return &GormStore{
		db: &lazyHandle[*gorm.DB]{
			open: func(ctx context.Context) (*gorm.DB, error) { return openGorm(ctx, dsn) },
			close: func(db *gorm.DB) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.Close()
			},
		},
	}
}

// Init opens the DB and runs auto-migrations.
func (s *GormStore) Init(ctx context.Context) error {
	return wrapErr("init", s.db.init(ctx))
}

// Close releases the connection pool.
func (s *GormStore) Close() error {
	return wrapErr("close", s.db.shutdown())
}

func (s *GormStore) conn(ctx context.Context) (*gorm.DB, error) {
	db, err := s.db.get(ctx)
	if err != nil {
		return nil, err
	}
	return db.WithContext(ctx), nil
}

func openGorm(ctx context.Context, dsn string) (*gorm.DB, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(ctx, db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&DocumentModel{}, &ChunkModel{}, &ConversationModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return nil, err
	}
	return db, nil
}

// withMigrationLock serializes migrations across processes sharing a database.
func withMigrationLock(ctx context.Context, db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db.WithContext(ctx))
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// InsertDocument stores the document and its chunks in one transaction.
func (s *GormStore) InsertDocument(ctx context.Context, doc domain.Document, chunks []domain.Chunk) error {
	db, err := s.conn(ctx)
	if err != nil {
		return wrapErr("insert document", err)
	}
	return wrapErr("insert document", db.Transaction(func(tx *gorm.DB) error {
		model := documentToModel(doc)
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		if len(chunks) == 0 {
			return nil
		}
		models := make([]ChunkModel, 0, len(chunks))
		for _, chunk := range chunks {
			m := chunkToModel(chunk)
			m.DocumentID = doc.ID
			models = append(models, m)
		}
		return tx.CreateInBatches(&models, 200).Error
	}))
}

// ListDocuments returns document summaries, newest first.
func (s *GormStore) ListDocuments(ctx context.Context) ([]domain.DocumentSummary, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, wrapErr("list documents", err)
	}
	var models []DocumentModel
	if err := db.Select("id", "name", "uploaded_at", "word_count").
		Order("uploaded_at DESC").Order("id").
		Find(&models).Error; err != nil {
		return nil, wrapErr("list documents", err)
	}
	docs := make([]domain.DocumentSummary, 0, len(models))
	for _, m := range models {
		docs = append(docs, documentFromModel(m).Summary())
	}
	return docs, nil
}

// GetDocument retrieves a document.
func (s *GormStore) GetDocument(ctx context.Context, id string) (domain.Document, bool, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return domain.Document{}, false, wrapErr("get document", err)
	}
	var model DocumentModel
	if err := db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Document{}, false, nil
		}
		return domain.Document{}, false, wrapErr("get document", err)
	}
	return documentFromModel(model), true, nil
}

// DeleteDocument removes a document and its chunks.
func (s *GormStore) DeleteDocument(ctx context.Context, id string) (bool, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return false, wrapErr("delete document", err)
	}
	var found bool
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&ChunkModel{}, "document_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&DocumentModel{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		found = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, wrapErr("delete document", err)
	}
	return found, nil
}

// CountDocuments returns number of documents.
func (s *GormStore) CountDocuments(ctx context.Context) (int, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return 0, wrapErr("count documents", err)
	}
	var count int64
	if err := db.Model(&DocumentModel{}).Count(&count).Error; err != nil {
		return 0, wrapErr("count documents", err)
	}
	return int(count), nil
}

// SumWordCounts returns the total word count across documents.
func (s *GormStore) SumWordCounts(ctx context.Context) (int, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return 0, wrapErr("sum word counts", err)
	}
	var total int64
	if err := db.Model(&DocumentModel{}).Select("COALESCE(SUM(word_count), 0)").Scan(&total).Error; err != nil {
		return 0, wrapErr("sum word counts", err)
	}
	return int(total), nil
}

// ListChunksByDocument returns chunks for a document by index.
func (s *GormStore) ListChunksByDocument(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, wrapErr("list chunks", err)
	}
	var models []ChunkModel
	if err := db.Where("document_id = ?", documentID).Order("chunk_index ASC").Find(&models).Error; err != nil {
		return nil, wrapErr("list chunks", err)
	}
	return chunksFromModels(models), nil
}

// ListAllChunks returns every chunk ordered by document then index.
func (s *GormStore) ListAllChunks(ctx context.Context) ([]domain.Chunk, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, wrapErr("list all chunks", err)
	}
	var models []ChunkModel
	if err := db.Order("document_id ASC").Order("chunk_index ASC").Find(&models).Error; err != nil {
		return nil, wrapErr("list all chunks", err)
	}
	return chunksFromModels(models), nil
}

func documentToModel(d domain.Document) DocumentModel {
	return DocumentModel{
		ID:         d.ID,
		Name:       d.Name,
		Content:    d.Content,
		UploadedAt: d.UploadedAt.UTC(),
		WordCount:  d.WordCount,
	}
}

func documentFromModel(m DocumentModel) domain.Document {
	return domain.Document{
		ID:         m.ID,
		Name:       m.Name,
		Content:    m.Content,
		UploadedAt: m.UploadedAt.UTC(),
		WordCount:  m.WordCount,
	}
}

func chunkToModel(chunk domain.Chunk) ChunkModel {
	return ChunkModel{
		ID:         chunk.ID,
		DocumentID: chunk.DocumentID,
		ChunkIndex: chunk.ChunkIndex,
		Content:    chunk.Content,
	}
}

func chunksFromModels(models []ChunkModel) []domain.Chunk {
	chunks := make([]domain.Chunk, 0, len(models))
	for _, m := range models {
		chunks = append(chunks, domain.Chunk{
			ID:         m.ID,
			DocumentID: m.DocumentID,
			ChunkIndex: m.ChunkIndex,
			Content:    m.Content,
		})
	}
	return chunks
}
