package domain

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/asaskevich/govalidator"

	"github.com/Notifuse/designer/pkg/devinbox"
)

//go:generate mockgen -destination mocks/mock_export_service.go -package mocks github.com/Notifuse/designer/internal/domain ExportService
//go:generate mockgen -destination mocks/mock_artifact_store.go -package mocks github.com/Notifuse/designer/internal/domain ArtifactStore
//go:generate mockgen -destination mocks/mock_event_publisher.go -package mocks github.com/Notifuse/designer/internal/domain EventPublisher

type ExportFormat string

const (
	ExportFormatHTML ExportFormat = "html"
	ExportFormatMJML ExportFormat = "mjml"
)

func (f ExportFormat) Validate() error {
	switch f {
	case ExportFormatHTML, ExportFormatMJML:
		return nil
	}
	return fmt.Errorf("invalid export format: %s", f)
}

// ContentType returns the media type of an exported artifact
func (f ExportFormat) ContentType() string {
	if f == ExportFormatMJML {
		return "application/xml; charset=utf-8"
	}
	return "text/html; charset=utf-8"
}

// ExportRequest selects the document to export: a live editor session or a stored
// template version. Data, when set, is applied as merge tags.
type ExportRequest struct {
	SessionID  string       `json:"session_id,omitempty"`
	TemplateID string       `json:"template_id,omitempty"`
	Version    int64        `json:"version,omitempty"`
	Format     ExportFormat `json:"format,omitempty"`
	Data       MapOfAny     `json:"data,omitempty"`
	// Compile turns MJML exports into HTML through the MJML compiler
	Compile bool `json:"compile,omitempty"`
}

func (r *ExportRequest) Validate() error {
	if r.Format == "" {
		r.Format = ExportFormatHTML
	}
	if err := r.Format.Validate(); err != nil {
		return fmt.Errorf("invalid export request: %w", err)
	}
	if (r.SessionID == "") == (r.TemplateID == "") {
		return fmt.Errorf("invalid export request: exactly one of session_id or template_id is required")
	}
	if r.TemplateID != "" {
		if err := validateTemplateID(r.TemplateID); err != nil {
			return fmt.Errorf("invalid export request: %w", err)
		}
	}
	if r.Version < 0 {
		return fmt.Errorf("invalid export request: version must be zero or positive")
	}
	return nil
}

func (r *ExportRequest) FromURLParams(queryParams url.Values) error {
	r.SessionID = queryParams.Get("session_id")
	r.TemplateID = queryParams.Get("template_id")
	r.Format = ExportFormat(queryParams.Get("format"))
	r.Compile = queryParams.Get("compile") == "true"
	if v := queryParams.Get("version"); v != "" {
		version, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid export request: version must be a valid integer")
		}
		r.Version = version
	}
	return r.Validate()
}

type ExportResult struct {
	Format      ExportFormat `json:"format"`
	Content     string       `json:"content"`
	Filename    string       `json:"filename"`
	ContentType string       `json:"content_type"`
	TemplateID  string       `json:"template_id,omitempty"`
	Version     int64        `json:"version,omitempty"`
	Cached      bool         `json:"cached,omitempty"`
}

type PublishResult struct {
	URL        string `json:"url"`
	Key        string `json:"key"`
	TemplateID string `json:"template_id"`
	Version    int64  `json:"version"`
	WebhookID  string `json:"webhook_id,omitempty"`
}

type ShareRequest struct {
	TemplateID string `json:"template_id"`
	Version    int64  `json:"version,omitempty"`
}

func (r *ShareRequest) Validate() error {
	if err := validateTemplateID(r.TemplateID); err != nil {
		return fmt.Errorf("invalid share request: %w", err)
	}
	if r.Version < 0 {
		return fmt.Errorf("invalid share request: version must be zero or positive")
	}
	return nil
}

type ShareResult struct {
	URL       string    `json:"url"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

const maxTestRecipients = 5

type TestEmailRequest struct {
	ExportRequest
	To      []string `json:"to"`
	Subject string   `json:"subject,omitempty"`
}

func (r *TestEmailRequest) Validate() error {
	if err := r.ExportRequest.Validate(); err != nil {
		return err
	}
	if r.Format != ExportFormatHTML {
		return fmt.Errorf("invalid test email request: only html can be sent")
	}
	if len(r.To) == 0 || len(r.To) > maxTestRecipients {
		return fmt.Errorf("invalid test email request: between 1 and %d recipients are required", maxTestRecipients)
	}
	for _, to := range r.To {
		if !govalidator.IsEmail(to) {
			return fmt.Errorf("invalid test email request: %q is not a valid email", to)
		}
	}
	if len(r.Subject) > 255 {
		return fmt.Errorf("invalid test email request: subject length must be at most 255")
	}
	return nil
}

// ExportService turns documents into deliverable artifacts
type ExportService interface {
	Export(ctx context.Context, req ExportRequest) (*ExportResult, error)
	Publish(ctx context.Context, req ExportRequest) (*PublishResult, error)
	Share(ctx context.Context, req ShareRequest) (*ShareResult, error)
	RenderShared(ctx context.Context, token string) (*ExportResult, error)
	SendTestEmail(ctx context.Context, req TestEmailRequest) error
	DevInboxMessages(ctx context.Context) ([]devinbox.Message, error)
	ClearDevInbox(ctx context.Context) (int, error)
}

// ArtifactStore keeps published exports and returns their public URL
type ArtifactStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

const EventTemplatePublished = "template.published"

// EventPublisher notifies external systems; it returns the delivered message id
type EventPublisher interface {
	Send(ctx context.Context, eventType string, data interface{}) (string, error)
}
