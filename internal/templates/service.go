package templates

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/diewo77/go-docflow/internal/activity"
	"github.com/diewo77/go-docflow/internal/models"
	"github.com/diewo77/go-docflow/internal/platform/logger"
)

// Repository is the full template store used by the settings operations.
type Repository interface {
	Store
	List(ctx context.Context, docType models.DocumentType) ([]models.Template, error)
	Upsert(ctx context.Context, tpl *models.Template) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// Service manages templates: save, default selection, deletion.
type Service struct {
	repo     Repository
	recorder activity.Recorder
	log      *logger.Logger
}

func NewService(repo Repository, recorder activity.Recorder, log *logger.Logger) *Service {
	if recorder == nil {
		recorder = activity.Nop{}
	}
	return &Service{repo: repo, recorder: recorder, log: log.With("service", "TemplateService")}
}

func (s *Service) List(ctx context.Context, docType models.DocumentType) ([]models.Template, error) {
	return s.repo.List(ctx, docType)
}

// Save validates tpl, then creates it or replaces the stored template with the same ID.
// A template flagged default unsets the previous default of its type.
func (s *Service) Save(ctx context.Context, tpl *models.Template) error {
	if err := Validate(tpl); err != nil {
		return err
	}
	if tpl.ID != uuid.Nil {
		existing, err := s.repo.Get(ctx, tpl.ID)
		if err != nil {
			return err
		}
		tpl.CreatedAt = existing.CreatedAt
	}
	if err := s.repo.Upsert(ctx, tpl); err != nil {
		return fmt.Errorf("save template: %w", err)
	}
	if tpl.IsDefault {
		s.recordDefault(ctx, tpl)
	}
	s.log.Info("template saved", "template_id", tpl.ID, "document_type", tpl.DocumentType, "default", tpl.IsDefault)
	return nil
}

// SetDefault marks template id as the default of its type and unsets every other default of that type.
func (s *Service) SetDefault(ctx context.Context, id uuid.UUID) (*models.Template, error) {
	tpl, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if tpl.IsDefault {
		return tpl, nil
	}
	tpl.IsDefault = true
	if err := s.repo.Upsert(ctx, tpl); err != nil {
		return nil, fmt.Errorf("set default template: %w", err)
	}
	s.recordDefault(ctx, tpl)
	s.log.Info("default template changed", "template_id", tpl.ID, "document_type", tpl.DocumentType)
	return tpl, nil
}

// Delete soft-deletes template id. Documents that referenced it fall through the cascade.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	tpl, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.recorder.Record(ctx, activity.Event{
		Kind:       activity.KindDeleted,
		EntityType: "template",
		EntityID:   id.String(),
		At:         time.Now(),
	})
	if tpl.IsDefault {
		s.log.Warn("default template deleted, type falls back to built-in configuration",
			"template_id", id, "document_type", tpl.DocumentType)
	}
	return nil
}

func (s *Service) recordDefault(ctx context.Context, tpl *models.Template) {
	s.recorder.Record(ctx, activity.Event{
		Kind:       activity.KindDefaultTemplate,
		EntityType: "template",
		EntityID:   tpl.ID.String(),
		Field:      "document_type",
		NewValue:   string(tpl.DocumentType),
		At:         time.Now(),
	})
}
