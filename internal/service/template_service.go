package service

import (
	"context"
	"fmt"
	"time"

	"go.opencensus.io/trace"

	"github.com/Notifuse/designer/internal/domain"
	"github.com/Notifuse/designer/pkg/document"
	"github.com/Notifuse/designer/pkg/htmlgen"
	"github.com/Notifuse/designer/pkg/logger"
	"github.com/Notifuse/designer/pkg/markdown"
	"github.com/Notifuse/designer/pkg/sanitize"
	"github.com/Notifuse/designer/pkg/tracing"
)

type TemplateService struct {
	repo   domain.TemplateRepository
	logger logger.Logger
}

func NewTemplateService(repo domain.TemplateRepository, logger logger.Logger) *TemplateService {
	return &TemplateService{
		repo:   repo,
		logger: logger,
	}
}

// normalizeBlocks sanitizes every block, replaces duplicate ids and orders the
// document by position
func normalizeBlocks(doc document.Document) document.Document {
	clean := make(document.Document, 0, len(doc))
	for _, b := range doc {
		clean = append(clean, sanitize.Block(b))
	}
	clean, _ = document.EnsureUniqueIDs(clean)
	return document.SortByPosition(clean)
}

func (s *TemplateService) CreateTemplate(ctx context.Context, template *domain.Template) error {
	ctx, span := tracing.StartServiceSpan(ctx, "TemplateService", "CreateTemplate")
	defer span.End()
	span.AddAttributes(trace.StringAttribute("template_id", template.ID))

	// Set initial version and timestamps
	template.Version = 1
	now := time.Now().UTC()
	template.CreatedAt = now
	template.UpdatedAt = now
	template.Blocks = normalizeBlocks(template.Blocks)

	if err := template.Validate(); err != nil {
		tracing.MarkSpanError(ctx, err)
		return domain.NewValidationError(err.Error())
	}

	if err := s.repo.CreateTemplate(ctx, template); err != nil {
		s.logger.WithField("template_id", template.ID).Error(fmt.Sprintf("Failed to create template: %v", err))
		tracing.MarkSpanError(ctx, err)
		return fmt.Errorf("failed to create template: %w", err)
	}

	return nil
}

func (s *TemplateService) GetTemplateByID(ctx context.Context, id string, version int64) (*domain.Template, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "TemplateService", "GetTemplateByID")
	defer span.End()
	span.AddAttributes(
		trace.StringAttribute("template_id", id),
		trace.Int64Attribute("version", version),
	)

	template, err := s.repo.GetTemplateByID(ctx, id, version)
	if err != nil {
		if _, ok := err.(*domain.ErrTemplateNotFound); ok {
			return nil, err
		}
		s.logger.WithField("template_id", id).Error(fmt.Sprintf("Failed to get template: %v", err))
		tracing.MarkSpanError(ctx, err)
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	template.Blocks = document.SortByPosition(template.Blocks)
	return template, nil
}

func (s *TemplateService) GetTemplates(ctx context.Context, category domain.TemplateCategory) ([]*domain.Template, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "TemplateService", "GetTemplates")
	defer span.End()
	span.AddAttributes(trace.StringAttribute("category", string(category)))

	templates, err := s.repo.GetTemplates(ctx, category)
	if err != nil {
		s.logger.Error(fmt.Sprintf("Failed to get templates: %v", err))
		tracing.MarkSpanError(ctx, err)
		return nil, fmt.Errorf("failed to get templates: %w", err)
	}

	for _, t := range templates {
		t.Blocks = document.SortByPosition(t.Blocks)
	}
	return templates, nil
}

// UpdateTemplate stores the template as a new version of an existing one
func (s *TemplateService) UpdateTemplate(ctx context.Context, template *domain.Template) error {
	ctx, span := tracing.StartServiceSpan(ctx, "TemplateService", "UpdateTemplate")
	defer span.End()
	span.AddAttributes(trace.StringAttribute("template_id", template.ID))

	// Check the template exists
	existing, err := s.repo.GetTemplateByID(ctx, template.ID, 0)
	if err != nil {
		if _, ok := err.(*domain.ErrTemplateNotFound); ok {
			return err
		}
		s.logger.WithField("template_id", template.ID).Error(fmt.Sprintf("Failed to get existing template: %v", err))
		tracing.MarkSpanError(ctx, err)
		return fmt.Errorf("failed to get existing template: %w", err)
	}

	template.CreatedAt = existing.CreatedAt
	template.UpdatedAt = time.Now().UTC()
	template.Version = existing.Version
	template.Blocks = normalizeBlocks(template.Blocks)

	if err := template.Validate(); err != nil {
		tracing.MarkSpanError(ctx, err)
		return domain.NewValidationError(err.Error())
	}

	if err := s.repo.UpdateTemplate(ctx, template); err != nil {
		if _, ok := err.(*domain.ErrTemplateNotFound); ok {
			return err
		}
		s.logger.WithField("template_id", template.ID).Error(fmt.Sprintf("Failed to update template: %v", err))
		tracing.MarkSpanError(ctx, err)
		return fmt.Errorf("failed to update template: %w", err)
	}

	return nil
}

func (s *TemplateService) DeleteTemplate(ctx context.Context, id string) error {
	ctx, span := tracing.StartServiceSpan(ctx, "TemplateService", "DeleteTemplate")
	defer span.End()
	span.AddAttributes(trace.StringAttribute("template_id", id))

	if err := s.repo.DeleteTemplate(ctx, id); err != nil {
		if _, ok := err.(*domain.ErrTemplateNotFound); ok {
			return err
		}
		s.logger.WithField("template_id", id).Error(fmt.Sprintf("Failed to delete template: %v", err))
		tracing.MarkSpanError(ctx, err)
		return fmt.Errorf("failed to delete template: %w", err)
	}

	return nil
}

// ImportTemplate parses an exported HTML file or a markdown document into blocks
// and stores the result as a new template
func (s *TemplateService) ImportTemplate(ctx context.Context, req domain.ImportTemplateRequest) (*domain.Template, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "TemplateService", "ImportTemplate")
	defer span.End()
	span.AddAttributes(trace.StringAttribute("format", string(req.Format)))

	if err := req.Validate(); err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	var (
		doc document.Document
		err error
	)
	switch req.Format {
	case domain.ImportFormatHTML:
		doc, err = htmlgen.ParseHTML(req.Source)
	case domain.ImportFormatMarkdown:
		doc, err = markdown.ToDocument([]byte(req.Source))
	}
	if err != nil {
		tracing.MarkSpanError(ctx, err)
		return nil, domain.NewValidationError(fmt.Sprintf("failed to import %s: %v", req.Format, err))
	}

	template := &domain.Template{
		ID:       domain.NewTemplateID(),
		Name:     req.Name,
		Category: req.Category,
		Blocks:   doc,
		Metadata: domain.MapOfAny{"imported_from": string(req.Format)},
	}
	if err := s.CreateTemplate(ctx, template); err != nil {
		return nil, err
	}
	return template, nil
}
