package domain

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/google/uuid"

	"github.com/Notifuse/designer/pkg/blocks"
	"github.com/Notifuse/designer/pkg/document"
	"github.com/Notifuse/designer/pkg/htmlgen"
)

//go:generate mockgen -destination mocks/mock_template_service.go -package mocks github.com/Notifuse/designer/internal/domain TemplateService
//go:generate mockgen -destination mocks/mock_template_repository.go -package mocks github.com/Notifuse/designer/internal/domain TemplateRepository

type TemplateCategory string

const (
	TemplateCategoryNewsletter    TemplateCategory = "newsletter"
	TemplateCategoryPromotional   TemplateCategory = "promotional"
	TemplateCategoryTransactional TemplateCategory = "transactional"
	TemplateCategoryWelcome       TemplateCategory = "welcome"
	TemplateCategoryAnnouncement  TemplateCategory = "announcement"
	TemplateCategoryEvent         TemplateCategory = "event"
	TemplateCategoryOther         TemplateCategory = "other"
)

func (c TemplateCategory) Validate() error {
	switch c {
	case TemplateCategoryNewsletter, TemplateCategoryPromotional, TemplateCategoryTransactional,
		TemplateCategoryWelcome, TemplateCategoryAnnouncement, TemplateCategoryEvent, TemplateCategoryOther:
		return nil
	}
	return fmt.Errorf("invalid template category: %s", c)
}

const (
	maxTemplateIDLength   = 64
	maxTemplateNameLength = 255
	maxDescriptionLength  = 2000
)

var templateIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// NewTemplateID returns a fresh template identifier
func NewTemplateID() string {
	return "tpl_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// TemplateStyles are the document-level settings used by the HTML export
type TemplateStyles struct {
	BackgroundColor   string `json:"background_color,omitempty"`
	ContentBackground string `json:"content_background,omitempty"`
	FontFamily        string `json:"font_family,omitempty"`
	MaxWidth          int    `json:"max_width,omitempty"`
}

func (s TemplateStyles) Validate() error {
	for name, color := range map[string]string{
		"background_color":   s.BackgroundColor,
		"content_background": s.ContentBackground,
	} {
		if strings.HasPrefix(color, "#") && !govalidator.IsHexcolor(color) {
			return fmt.Errorf("%s is not a valid hex color", name)
		}
	}
	if s.MaxWidth < 0 || s.MaxWidth > 1200 {
		return fmt.Errorf("max_width must be between 0 and 1200")
	}
	return nil
}

// Scan implements the sql.Scanner interface
func (s *TemplateStyles) Scan(val interface{}) error {
	return scanJSON(val, s)
}

// Value implements the driver.Valuer interface
func (s TemplateStyles) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// ResponsiveSettings are the preview and breakpoint settings of a template
type ResponsiveSettings struct {
	Breakpoint         int                `json:"breakpoint,omitempty"`
	DefaultPreviewMode blocks.PreviewMode `json:"default_preview_mode,omitempty"`
}

func (r ResponsiveSettings) Validate() error {
	if r.DefaultPreviewMode != "" {
		if err := r.DefaultPreviewMode.Validate(); err != nil {
			return err
		}
	}
	if r.Breakpoint < 0 || r.Breakpoint > 1200 {
		return fmt.Errorf("breakpoint must be between 0 and 1200")
	}
	return nil
}

// Scan implements the sql.Scanner interface
func (r *ResponsiveSettings) Scan(val interface{}) error {
	return scanJSON(val, r)
}

// Value implements the driver.Valuer interface
func (r ResponsiveSettings) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Template is one version of a designed email: its block document plus display metadata
type Template struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Category    TemplateCategory   `json:"category"`
	Blocks      document.Document  `json:"blocks"`
	Styles      TemplateStyles     `json:"styles"`
	Metadata    MapOfAny           `json:"metadata,omitempty"`
	Responsive  ResponsiveSettings `json:"responsive"`
	Version     int64              `json:"version"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	DeletedAt   *time.Time         `json:"deleted_at,omitempty"`
}

func (t *Template) Validate() error {
	if err := validateTemplateID(t.ID); err != nil {
		return fmt.Errorf("invalid template: %w", err)
	}
	if err := validateTemplateFields(t.Name, t.Description, t.Category, t.Styles, t.Responsive); err != nil {
		return fmt.Errorf("invalid template: %w", err)
	}
	if t.Version < 0 {
		return fmt.Errorf("invalid template: version must be zero or positive")
	}
	return nil
}

// Subject returns the metadata subject, falling back to the template name
func (t *Template) Subject() string {
	if s, ok := t.Metadata["subject"].(string); ok && strings.TrimSpace(s) != "" {
		return s
	}
	return t.Name
}

// ExportSettings derives the HTML export settings of the template
func (t *Template) ExportSettings() htmlgen.ExportSettings {
	settings := htmlgen.ExportSettings{
		Title:             t.Name,
		MaxWidth:          t.Styles.MaxWidth,
		Breakpoint:        t.Responsive.Breakpoint,
		BackgroundColor:   t.Styles.BackgroundColor,
		ContentBackground: t.Styles.ContentBackground,
		FontFamily:        t.Styles.FontFamily,
	}
	if preview, ok := t.Metadata["preview_text"].(string); ok {
		settings.PreviewText = preview
	}
	return settings.WithDefaults()
}

func validateTemplateID(id string) error {
	if id == "" {
		return fmt.Errorf("id is required")
	}
	if len(id) > maxTemplateIDLength {
		return fmt.Errorf("id length must be between 1 and %d", maxTemplateIDLength)
	}
	if !templateIDPattern.MatchString(id) {
		return fmt.Errorf("id may only contain letters, digits, '-' and '_'")
	}
	return nil
}

func validateTemplateFields(name, description string, category TemplateCategory, styles TemplateStyles, responsive ResponsiveSettings) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name is required")
	}
	if len(name) > maxTemplateNameLength {
		return fmt.Errorf("name length must be between 1 and %d", maxTemplateNameLength)
	}
	if len(description) > maxDescriptionLength {
		return fmt.Errorf("description length must be at most %d", maxDescriptionLength)
	}
	if err := category.Validate(); err != nil {
		return err
	}
	if err := styles.Validate(); err != nil {
		return err
	}
	return responsive.Validate()
}

// Request/Response types

type CreateTemplateRequest struct {
	ID          string             `json:"id,omitempty"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Category    TemplateCategory   `json:"category,omitempty"`
	Blocks      document.Document  `json:"blocks"`
	Styles      TemplateStyles     `json:"styles"`
	Metadata    MapOfAny           `json:"metadata,omitempty"`
	Responsive  ResponsiveSettings `json:"responsive"`
}

func (r *CreateTemplateRequest) Validate() (*Template, error) {
	id := r.ID
	if id == "" {
		id = NewTemplateID()
	}
	if err := validateTemplateID(id); err != nil {
		return nil, fmt.Errorf("invalid create template request: %w", err)
	}

	category := r.Category
	if category == "" {
		category = TemplateCategoryOther
	}
	if err := validateTemplateFields(r.Name, r.Description, category, r.Styles, r.Responsive); err != nil {
		return nil, fmt.Errorf("invalid create template request: %w", err)
	}

	return &Template{
		ID:          id,
		Name:        strings.TrimSpace(r.Name),
		Description: r.Description,
		Category:    category,
		Blocks:      r.Blocks,
		Styles:      r.Styles,
		Metadata:    r.Metadata,
		Responsive:  r.Responsive,
		Version:     1,
	}, nil
}

type UpdateTemplateRequest struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Category    TemplateCategory   `json:"category"`
	Blocks      document.Document  `json:"blocks"`
	Styles      TemplateStyles     `json:"styles"`
	Metadata    MapOfAny           `json:"metadata,omitempty"`
	Responsive  ResponsiveSettings `json:"responsive"`
}

func (r *UpdateTemplateRequest) Validate() (*Template, error) {
	if err := validateTemplateID(r.ID); err != nil {
		return nil, fmt.Errorf("invalid update template request: %w", err)
	}
	if err := validateTemplateFields(r.Name, r.Description, r.Category, r.Styles, r.Responsive); err != nil {
		return nil, fmt.Errorf("invalid update template request: %w", err)
	}

	return &Template{
		ID:          r.ID,
		Name:        strings.TrimSpace(r.Name),
		Description: r.Description,
		Category:    r.Category,
		Blocks:      r.Blocks,
		Styles:      r.Styles,
		Metadata:    r.Metadata,
		Responsive:  r.Responsive,
	}, nil
}

type GetTemplatesRequest struct {
	Category TemplateCategory `json:"category,omitempty"`
}

func (r *GetTemplatesRequest) FromURLParams(queryParams url.Values) error {
	r.Category = TemplateCategory(queryParams.Get("category"))
	if r.Category != "" {
		if err := r.Category.Validate(); err != nil {
			return fmt.Errorf("invalid get templates request: %w", err)
		}
	}
	return nil
}

type GetTemplateRequest struct {
	ID      string `json:"id"`
	Version int64  `json:"version,omitempty"`
}

func (r *GetTemplateRequest) FromURLParams(queryParams url.Values) error {
	r.ID = queryParams.Get("id")
	if err := validateTemplateID(r.ID); err != nil {
		return fmt.Errorf("invalid get template request: %w", err)
	}

	if versionStr := queryParams.Get("version"); versionStr != "" {
		version, err := strconv.ParseInt(versionStr, 10, 64)
		if err != nil || version < 0 {
			return fmt.Errorf("invalid get template request: version must be a valid integer")
		}
		r.Version = version
	}
	return nil
}

type DeleteTemplateRequest struct {
	ID string `json:"id"`
}

func (r *DeleteTemplateRequest) Validate() (string, error) {
	if err := validateTemplateID(r.ID); err != nil {
		return "", fmt.Errorf("invalid delete template request: %w", err)
	}
	return r.ID, nil
}

// ImportFormat is the source format accepted by templates.import
type ImportFormat string

const (
	ImportFormatHTML     ImportFormat = "html"
	ImportFormatMarkdown ImportFormat = "markdown"
)

type ImportTemplateRequest struct {
	Name     string           `json:"name"`
	Category TemplateCategory `json:"category,omitempty"`
	Format   ImportFormat     `json:"format"`
	Source   string           `json:"source"`
}

func (r *ImportTemplateRequest) Validate() error {
	if r.Category == "" {
		r.Category = TemplateCategoryOther
	}
	if err := validateTemplateFields(r.Name, "", r.Category, TemplateStyles{}, ResponsiveSettings{}); err != nil {
		return fmt.Errorf("invalid import template request: %w", err)
	}
	switch r.Format {
	case ImportFormatHTML, ImportFormatMarkdown:
	default:
		return fmt.Errorf("invalid import template request: format must be html or markdown")
	}
	if strings.TrimSpace(r.Source) == "" {
		return fmt.Errorf("invalid import template request: source is required")
	}
	return nil
}

// TemplateService provides operations for managing templates
type TemplateService interface {
	// CreateTemplate stores version 1 of a new template
	CreateTemplate(ctx context.Context, template *Template) error

	// GetTemplateByID retrieves a template by id; version 0 means the latest
	GetTemplateByID(ctx context.Context, id string, version int64) (*Template, error)

	// GetTemplates lists the latest version of every live template
	GetTemplates(ctx context.Context, category TemplateCategory) ([]*Template, error)

	// UpdateTemplate stores a new version of an existing template
	UpdateTemplate(ctx context.Context, template *Template) error

	// DeleteTemplate soft-deletes every version of a template
	DeleteTemplate(ctx context.Context, id string) error

	// ImportTemplate builds a template from exported HTML or markdown and stores it
	ImportTemplate(ctx context.Context, req ImportTemplateRequest) (*Template, error)
}

// TemplateRepository is the versioned template store
type TemplateRepository interface {
	CreateTemplate(ctx context.Context, template *Template) error
	GetTemplateByID(ctx context.Context, id string, version int64) (*Template, error)
	GetTemplateLatestVersion(ctx context.Context, id string) (int64, error)
	GetTemplates(ctx context.Context, category TemplateCategory) ([]*Template, error)
	UpdateTemplate(ctx context.Context, template *Template) error
	DeleteTemplate(ctx context.Context, id string) error
}
