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

type TemplateRepo interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Template, error)
	GetDefault(ctx context.Context, docType models.DocumentType) (*models.Template, error)
	List(ctx context.Context, docType models.DocumentType) ([]models.Template, error)
	Upsert(ctx context.Context, tpl *models.Template) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

type templateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTemplateRepo(db *gorm.DB, baseLog *logger.Logger) TemplateRepo {
	return &templateRepo{db: db, log: baseLog.With("repo", "TemplateRepo")}
}

func (r *templateRepo) Get(ctx context.Context, id uuid.UUID) (*models.Template, error) {
	var tpl models.Template
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&tpl).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tpl, nil
}

// GetDefault returns the template flagged default for docType. Should more than one be
// flagged (interrupted SetDefault), the most recently updated wins and a warning is logged.
func (r *templateRepo) GetDefault(ctx context.Context, docType models.DocumentType) (*models.Template, error) {
	var found []models.Template
	if err := r.db.WithContext(ctx).
		Where("document_type = ? AND is_default = ?", docType, true).
		Order("updated_at DESC, id").
		Limit(2).
		Find(&found).Error; err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, ErrNotFound
	}
	if len(found) > 1 {
		r.log.Warn("multiple default templates for type", "document_type", docType,
			"chosen", found[0].ID, "other", found[1].ID)
	}
	return &found[0], nil
}

func (r *templateRepo) List(ctx context.Context, docType models.DocumentType) ([]models.Template, error) {
	q := r.db.WithContext(ctx).Order("document_type, name")
	if docType != "" {
		q = q.Where("document_type = ?", docType)
	}
	var out []models.Template
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Upsert creates or fully updates tpl. When tpl is flagged default, every other default of
// the same type is unset first, inside the same transaction.
func (r *templateRepo) Upsert(ctx context.Context, tpl *models.Template) error {
	if tpl == nil {
		return fmt.Errorf("upsert template: nil template")
	}
	if tpl.ID == uuid.Nil {
		tpl.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tpl.IsDefault {
			if err := tx.Model(&models.Template{}).
				Where("document_type = ? AND is_default = ? AND id <> ?", tpl.DocumentType, true, tpl.ID).
				Update("is_default", false).Error; err != nil {
				return fmt.Errorf("unset previous defaults: %w", err)
			}
		}
		if err := tx.Save(tpl).Error; err != nil {
			return fmt.Errorf("save template: %w", err)
		}
		return nil
	})
}

func (r *templateRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Template{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
