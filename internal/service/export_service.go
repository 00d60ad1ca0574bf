package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.opencensus.io/trace"

	"github.com/Notifuse/designer/internal/domain"
	"github.com/Notifuse/designer/pkg/cache"
	"github.com/Notifuse/designer/pkg/devinbox"
	"github.com/Notifuse/designer/pkg/document"
	"github.com/Notifuse/designer/pkg/htmlgen"
	"github.com/Notifuse/designer/pkg/logger"
	"github.com/Notifuse/designer/pkg/mailer"
	"github.com/Notifuse/designer/pkg/mergetags"
	"github.com/Notifuse/designer/pkg/ratelimiter"
	"github.com/Notifuse/designer/pkg/sharelink"
	"github.com/Notifuse/designer/pkg/tracing"
)

const (
	mjmlFilename = "email-template.mjml"

	testEmailNamespace = "test_email"
)

type ExportServiceConfig struct {
	APIEndpoint     string
	MaxWidth        int
	Breakpoint      int
	CacheTTL        time.Duration
	CacheMaxEntries int
	MergeTagTimeout time.Duration
	TestEmailLimit  int
	TestEmailWindow time.Duration
}

// ExportOption enables an optional export feature
type ExportOption func(*ExportService)

// WithArtifactStore enables export.publish
func WithArtifactStore(store domain.ArtifactStore) ExportOption {
	return func(s *ExportService) { s.store = store }
}

// WithEventPublisher announces published artifacts
func WithEventPublisher(publisher domain.EventPublisher) ExportOption {
	return func(s *ExportService) { s.publisher = publisher }
}

// WithShareSigner enables preview share links
func WithShareSigner(signer *sharelink.Signer) ExportOption {
	return func(s *ExportService) { s.signer = signer }
}

// WithDevInbox exposes the messages captured by the local SMTP sink
func WithDevInbox(inbox *devinbox.Inbox) ExportOption {
	return func(s *ExportService) { s.inbox = inbox }
}

// WithClock sets the clock that freezes countdown blocks at export time
func WithClock(now func() time.Time) ExportOption {
	return func(s *ExportService) { s.now = now }
}

type ExportService struct {
	templates domain.TemplateService
	editor    domain.EditorService
	mailer    mailer.Mailer
	logger    logger.Logger
	config    ExportServiceConfig
	now       func() time.Time

	mergeTags *mergetags.Engine
	compiled  *cache.InMemoryCache[string]
	limiter   *ratelimiter.RateLimiter

	store     domain.ArtifactStore
	publisher domain.EventPublisher
	signer    *sharelink.Signer
	inbox     *devinbox.Inbox
}

func NewExportService(
	templates domain.TemplateService,
	editor domain.EditorService,
	mailer mailer.Mailer,
	logger logger.Logger,
	config ExportServiceConfig,
	opts ...ExportOption,
) *ExportService {
	if config.CacheTTL <= 0 {
		config.CacheTTL = 10 * time.Minute
	}
	if config.TestEmailWindow <= 0 {
		config.TestEmailWindow = time.Hour
	}

	s := &ExportService{
		templates: templates,
		editor:    editor,
		mailer:    mailer,
		logger:    logger,
		config:    config,
		now:       time.Now,
		mergeTags: mergetags.NewEngine(mergetags.WithTimeout(config.MergeTagTimeout)),
		compiled:  cache.NewInMemoryCache[string](time.Minute, config.CacheMaxEntries),
		limiter:   ratelimiter.NewRateLimiter(time.Minute),
	}
	if config.TestEmailLimit > 0 {
		s.limiter.SetPolicy(testEmailNamespace, config.TestEmailLimit, config.TestEmailWindow)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stop ends the cache and rate limiter sweepers
func (s *ExportService) Stop() {
	s.compiled.Stop()
	s.limiter.Stop()
}

// renderOptions tune a render for its destination
type renderOptions struct {
	// markers keep block ids in the HTML so the file can be imported again
	markers bool
}

// source loads the document targeted by req with the template it belongs to.
// An unsaved session has no template.
func (s *ExportService) source(ctx context.Context, req domain.ExportRequest) (document.Document, *domain.Template, error) {
	if req.SessionID != "" {
		return s.editor.Document(ctx, req.SessionID)
	}
	tpl, err := s.templates.GetTemplateByID(ctx, req.TemplateID, req.Version)
	if err != nil {
		return nil, nil, err
	}
	return tpl.Blocks, tpl, nil
}

func (s *ExportService) exportSettings(tpl *domain.Template) htmlgen.ExportSettings {
	settings := htmlgen.ExportSettings{
		MaxWidth:   s.config.MaxWidth,
		Breakpoint: s.config.Breakpoint,
	}
	if tpl != nil {
		settings = tpl.ExportSettings()
		if tpl.Styles.MaxWidth == 0 && s.config.MaxWidth > 0 {
			settings.MaxWidth = s.config.MaxWidth
		}
		if tpl.Responsive.Breakpoint == 0 && s.config.Breakpoint > 0 {
			settings.Breakpoint = s.config.Breakpoint
		}
	}
	settings = settings.WithDefaults()
	settings.Now = s.now
	return settings
}

func (s *ExportService) render(ctx context.Context, req domain.ExportRequest, opts renderOptions) (result *domain.ExportResult, tpl *domain.Template, err error) {
	start := time.Now()
	defer func() {
		tracing.RecordExport(ctx, string(req.Format), time.Since(start), err)
	}()

	doc, tpl, err := s.source(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	settings := s.exportSettings(tpl)
	settings.IncludeBlockMarkers = opts.markers

	result = &domain.ExportResult{Format: req.Format}
	if tpl != nil {
		result.TemplateID = tpl.ID
		result.Version = tpl.Version
	}

	switch req.Format {
	case domain.ExportFormatMJML:
		result.Content = htmlgen.GenerateMJML(doc, settings)
		result.Filename = mjmlFilename
	default:
		result.Content = htmlgen.GenerateHTML(doc, settings)
		result.Filename = htmlgen.ExportFilename
	}

	if len(req.Data) > 0 {
		result.Content, err = s.mergeTags.Render(ctx, result.Content, req.Data)
		if err != nil {
			return nil, nil, domain.NewValidationError(fmt.Sprintf("failed to apply merge tags: %v", err))
		}
	}

	if req.Format == domain.ExportFormatMJML && req.Compile {
		key := cache.Key("mjml", result.Content)
		if html, ok := s.compiled.Get(key); ok {
			result.Content = html
			result.Cached = true
		} else {
			mjml := result.Content
			result.Content, err = s.compiled.GetOrSet(key, s.config.CacheTTL, func() (string, error) {
				return htmlgen.CompileMJML(ctx, mjml)
			})
			if err != nil {
				return nil, nil, err
			}
		}
		result.Format = domain.ExportFormatHTML
		result.Filename = htmlgen.ExportFilename
	}

	result.ContentType = result.Format.ContentType()
	return result, tpl, nil
}

// Export renders the requested document as a downloadable artifact. HTML exports
// keep block markers so they can be imported back.
func (s *ExportService) Export(ctx context.Context, req domain.ExportRequest) (*domain.ExportResult, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "ExportService", "Export")
	defer span.End()
	span.AddAttributes(
		trace.StringAttribute("format", string(req.Format)),
		trace.StringAttribute("template_id", req.TemplateID),
	)

	if err := req.Validate(); err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	result, _, err := s.render(ctx, req, renderOptions{markers: true})
	if err != nil {
		tracing.MarkSpanError(ctx, err)
		return nil, err
	}
	return result, nil
}

// Publish uploads the export of a saved template version to the artifact store
// and announces it to the webhook endpoint
func (s *ExportService) Publish(ctx context.Context, req domain.ExportRequest) (*domain.PublishResult, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "ExportService", "Publish")
	defer span.End()

	if s.store == nil {
		return nil, &domain.ErrFeatureDisabled{Feature: "publishing"}
	}
	if err := req.Validate(); err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	result, tpl, err := s.render(ctx, req, renderOptions{})
	if err != nil {
		tracing.MarkSpanError(ctx, err)
		return nil, err
	}
	if tpl == nil {
		return nil, domain.NewValidationError("save the session before publishing")
	}

	key := fmt.Sprintf("templates/%s/v%d/%s", tpl.ID, tpl.Version, result.Filename)
	span.AddAttributes(trace.StringAttribute("key", key))

	url, err := s.store.Put(ctx, key, []byte(result.Content), result.ContentType)
	if err != nil {
		s.logger.WithFields(map[string]interface{}{
			"template_id": tpl.ID,
			"key":         key,
		}).Error(fmt.Sprintf("Failed to publish export: %v", err))
		tracing.MarkSpanError(ctx, err)
		return nil, fmt.Errorf("failed to publish export: %w", err)
	}

	published := &domain.PublishResult{
		URL:        url,
		Key:        key,
		TemplateID: tpl.ID,
		Version:    tpl.Version,
	}

	if s.publisher != nil {
		// Delivery failures do not fail the publish
		webhookID, err := s.publisher.Send(ctx, domain.EventTemplatePublished, map[string]interface{}{
			"template_id": tpl.ID,
			"version":     tpl.Version,
			"url":         url,
		})
		if err != nil {
			s.logger.WithField("template_id", tpl.ID).Warn(fmt.Sprintf("Failed to deliver publish webhook: %v", err))
		} else {
			published.WebhookID = webhookID
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"template_id": tpl.ID,
		"version":     tpl.Version,
		"url":         url,
	}).Info("Template export published")

	return published, nil
}

// Share issues a read-only preview link pinned to a template version
func (s *ExportService) Share(ctx context.Context, req domain.ShareRequest) (*domain.ShareResult, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "ExportService", "Share")
	defer span.End()
	span.AddAttributes(trace.StringAttribute("template_id", req.TemplateID))

	if s.signer == nil {
		return nil, &domain.ErrFeatureDisabled{Feature: "sharing"}
	}
	if err := req.Validate(); err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	tpl, err := s.templates.GetTemplateByID(ctx, req.TemplateID, req.Version)
	if err != nil {
		tracing.MarkSpanError(ctx, err)
		return nil, err
	}

	token, expiresAt, err := s.signer.Issue(tpl.ID, tpl.Version)
	if err != nil {
		tracing.MarkSpanError(ctx, err)
		return nil, fmt.Errorf("failed to issue share token: %w", err)
	}

	return &domain.ShareResult{
		URL:       strings.TrimRight(s.config.APIEndpoint, "/") + "/share/" + token,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// RenderShared renders the template version a share token points at
func (s *ExportService) RenderShared(ctx context.Context, token string) (*domain.ExportResult, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "ExportService", "RenderShared")
	defer span.End()

	if s.signer == nil {
		return nil, &domain.ErrFeatureDisabled{Feature: "sharing"}
	}
	claims, err := s.signer.Parse(token)
	if err != nil {
		return nil, err
	}
	span.AddAttributes(trace.StringAttribute("template_id", claims.TemplateID))

	result, _, err := s.render(ctx, domain.ExportRequest{
		TemplateID: claims.TemplateID,
		Version:    claims.Version,
		Format:     domain.ExportFormatHTML,
	}, renderOptions{})
	if err != nil {
		tracing.MarkSpanError(ctx, err)
		return nil, err
	}
	return result, nil
}

// SendTestEmail renders the HTML export and mails it to at most a handful of
// recipients, each rate limited
func (s *ExportService) SendTestEmail(ctx context.Context, req domain.TestEmailRequest) error {
	ctx, span := tracing.StartServiceSpan(ctx, "ExportService", "SendTestEmail")
	defer span.End()

	if err := req.Validate(); err != nil {
		return domain.NewValidationError(err.Error())
	}
	span.AddAttributes(trace.Int64Attribute("recipients", int64(len(req.To))))

	if s.config.TestEmailLimit > 0 {
		for _, to := range req.To {
			decision := s.limiter.Allow(testEmailNamespace, strings.ToLower(to))
			if !decision.Allowed {
				return &domain.ErrRateLimited{
					Action:     "test email",
					RetryAfter: int(math.Ceil(decision.RetryAfter.Seconds())),
				}
			}
		}
	}

	result, tpl, err := s.render(ctx, req.ExportRequest, renderOptions{})
	if err != nil {
		tracing.MarkSpanError(ctx, err)
		return err
	}

	subject := req.Subject
	if subject == "" {
		subject = untitledTemplateName
		if tpl != nil {
			subject = tpl.Subject()
		}
	}
	if len(req.Data) > 0 {
		subject, err = s.mergeTags.Render(ctx, subject, req.Data)
		if err != nil {
			return domain.NewValidationError(fmt.Sprintf("failed to apply merge tags to subject: %v", err))
		}
	}

	err = s.mailer.Send(ctx, mailer.Message{
		To:      req.To,
		Subject: subject,
		HTML:    result.Content,
		Text:    mailer.PlainText(result.Content),
	})
	if err != nil {
		s.logger.WithField("template_id", result.TemplateID).Error(fmt.Sprintf("Failed to send test email: %v", err))
		tracing.MarkSpanError(ctx, err)
		return fmt.Errorf("failed to send test email: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"template_id": result.TemplateID,
		"recipients":  len(req.To),
	}).Info("Test email sent")
	return nil
}

func (s *ExportService) DevInboxMessages(ctx context.Context) ([]devinbox.Message, error) {
	if s.inbox == nil {
		return nil, &domain.ErrFeatureDisabled{Feature: "dev inbox"}
	}
	return s.inbox.List(), nil
}

func (s *ExportService) ClearDevInbox(ctx context.Context) (int, error) {
	if s.inbox == nil {
		return 0, &domain.ErrFeatureDisabled{Feature: "dev inbox"}
	}
	return s.inbox.Clear(), nil
}
