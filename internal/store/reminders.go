package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/diewo77/go-docflow/internal/models"
	"github.com/diewo77/go-docflow/internal/platform/logger"
)

type ReminderRepo interface {
	Upsert(ctx context.Context, m *models.ReminderMarker) (*models.ReminderMarker, error)
	Find(ctx context.Context, entityType string, entityID uuid.UUID, kind string) (*models.ReminderMarker, error)
	ListForEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]models.ReminderMarker, error)
}

type reminderRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReminderRepo(db *gorm.DB, baseLog *logger.Logger) ReminderRepo {
	return &reminderRepo{db: db, log: baseLog.With("repo", "ReminderRepo")}
}

// Upsert inserts m or updates the marker sharing its (entity type, entity id, kind) key,
// then returns the stored row.
func (r *reminderRepo) Upsert(ctx context.Context, m *models.ReminderMarker) (*models.ReminderMarker, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "related_entity_type"},
			{Name: "related_entity_id"},
			{Name: "event_kind"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"title", "due_date", "document_date", "delivery_days", "updated_at"}),
	}).Create(m).Error
	if err != nil {
		return nil, err
	}
	return r.Find(ctx, m.RelatedEntityType, m.RelatedEntityID, m.EventKind)
}

func (r *reminderRepo) Find(ctx context.Context, entityType string, entityID uuid.UUID, kind string) (*models.ReminderMarker, error) {
	var m models.ReminderMarker
	err := r.db.WithContext(ctx).
		Where("related_entity_type = ? AND related_entity_id = ? AND event_kind = ?", entityType, entityID, kind).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *reminderRepo) ListForEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]models.ReminderMarker, error) {
	var out []models.ReminderMarker
	if err := r.db.WithContext(ctx).
		Where("related_entity_type = ? AND related_entity_id = ?", entityType, entityID).
		Order("due_date").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
