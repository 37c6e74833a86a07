// Package templates resolves the effective rendering configuration of a document through the
// cascade explicit template, type default, built-in configuration.
package templates

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/diewo77/go-docflow/internal/models"
	"github.com/diewo77/go-docflow/internal/platform/logger"
	"github.com/diewo77/go-docflow/internal/platform/tracing"
	"github.com/diewo77/go-docflow/internal/store"
)

// ErrTemplateResolutionExhausted means even the built-in fallback is missing, which is a programming error.
var ErrTemplateResolutionExhausted = errors.New("template resolution exhausted")

// Source tells which cascade level produced a configuration.
type Source string

const (
	SourceExplicit    Source = "explicit"
	SourceTypeDefault Source = "typeDefault"
	SourceBuiltin     Source = "builtin"
)

// Resolution is the outcome of Resolve. TemplateID is nil for built-in configurations.
type Resolution struct {
	Config     Config     `json:"config"`
	Source     Source     `json:"source"`
	TemplateID *uuid.UUID `json:"template_id,omitempty"`
}

// Store is the read side of the template repository.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Template, error)
	GetDefault(ctx context.Context, docType models.DocumentType) (*models.Template, error)
}

type Resolver struct {
	templates Store
	log       *logger.Logger
}

func NewResolver(templates Store, log *logger.Logger) *Resolver {
	return &Resolver{templates: templates, log: log.With("service", "TemplateResolver")}
}

// Resolve walks the cascade. It only fails with ErrTemplateResolutionExhausted for a document type
// without a built-in configuration; store errors are logged and treated as a miss.
func (r *Resolver) Resolve(ctx context.Context, ref *uuid.UUID, docType models.DocumentType) (Resolution, error) {
	ctx, span := tracing.Tracer().Start(ctx, "templates.Resolve")
	defer span.End()
	span.SetAttributes(attribute.String("document.type", string(docType)))

	if ref != nil {
		tpl, err := r.templates.Get(ctx, *ref)
		switch {
		case err == nil:
			if tpl.DocumentType != docType {
				r.log.Warn("explicit template belongs to another type", "template_id", *ref,
					"template_type", tpl.DocumentType, "document_type", docType)
			}
			return r.found(span, tpl, SourceExplicit), nil
		case !errors.Is(err, store.ErrNotFound):
			r.log.Error("explicit template lookup failed", "template_id", *ref, "error", err)
		}
	}

	tpl, err := r.templates.GetDefault(ctx, docType)
	switch {
	case err == nil:
		return r.found(span, tpl, SourceTypeDefault), nil
	case !errors.Is(err, store.ErrNotFound):
		r.log.Error("default template lookup failed", "document_type", docType, "error", err)
	}

	cfg, err := Builtin(docType)
	if err != nil {
		return Resolution{}, err
	}
	span.SetAttributes(attribute.String("template.source", string(SourceBuiltin)))
	return Resolution{Config: cfg, Source: SourceBuiltin}, nil
}

func (r *Resolver) found(span trace.Span, tpl *models.Template, src Source) Resolution {
	id := tpl.ID
	span.SetAttributes(attribute.String("template.source", string(src)), attribute.String("template.id", id.String()))
	return Resolution{Config: FromTemplate(tpl), Source: src, TemplateID: &id}
}
