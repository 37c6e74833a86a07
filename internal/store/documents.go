// Package store holds the gorm repositories backing documents, templates and reminders.
// Soft-deleted rows are excluded by every read.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/diewo77/go-docflow/internal/models"
	"github.com/diewo77/go-docflow/internal/platform/logger"
)

// ErrNotFound is returned when a row is missing or soft-deleted.
var ErrNotFound = errors.New("record not found")

type DocumentRepo interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Document, error)
	ListChildren(ctx context.Context, sourceID uuid.UUID) ([]models.Document, error)
	List(ctx context.Context, docType models.DocumentType, limit, offset int) ([]models.Document, int64, error)
	Create(ctx context.Context, doc *models.Document) error
	Update(ctx context.Context, id uuid.UUID, patch map[string]interface{}) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

type documentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	return &documentRepo{db: db, log: baseLog.With("repo", "DocumentRepo")}
}

func (r *documentRepo) Get(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	var doc models.Document
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// ListChildren returns the documents derived from sourceID, oldest first.
func (r *documentRepo) ListChildren(ctx context.Context, sourceID uuid.UUID) ([]models.Document, error) {
	var docs []models.Document
	if err := r.db.WithContext(ctx).
		Where("source_document_id = ?", sourceID).
		Order("created_at, id").
		Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *documentRepo) List(ctx context.Context, docType models.DocumentType, limit, offset int) ([]models.Document, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Document{})
	if docType != "" {
		q = q.Where("type = ?", docType)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var docs []models.Document
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&docs).Error; err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

func (r *documentRepo) Create(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return fmt.Errorf("create document: nil document")
	}
	return r.db.WithContext(ctx).Create(doc).Error
}

// Update applies a column patch to a live document.
func (r *documentRepo) Update(ctx context.Context, id uuid.UUID, patch map[string]interface{}) error {
	if len(patch) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.Document{}).Where("id = ?", id).Updates(patch)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *documentRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Document{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	r.log.Debug("document soft-deleted", "document_id", id)
	return nil
}
