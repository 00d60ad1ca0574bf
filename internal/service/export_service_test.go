package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Notifuse/designer/internal/domain"
	domainmocks "github.com/Notifuse/designer/internal/domain/mocks"
	"github.com/Notifuse/designer/internal/service"
	"github.com/Notifuse/designer/pkg/blocks"
	"github.com/Notifuse/designer/pkg/devinbox"
	"github.com/Notifuse/designer/pkg/document"
	"github.com/Notifuse/designer/pkg/logger"
	"github.com/Notifuse/designer/pkg/mailer"
	pkgmocks "github.com/Notifuse/designer/pkg/mocks"
	"github.com/Notifuse/designer/pkg/sharelink"
)

type exportFixture struct {
	svc       *service.ExportService
	templates *domainmocks.MockTemplateService
	editor    *domainmocks.MockEditorService
	mailer    *pkgmocks.MockMailer
}

func setupExportServiceTest(t *testing.T, cfg service.ExportServiceConfig, opts ...service.ExportOption) *exportFixture {
	ctrl := gomock.NewController(t)
	f := &exportFixture{
		templates: domainmocks.NewMockTemplateService(ctrl),
		editor:    domainmocks.NewMockEditorService(ctrl),
		mailer:    pkgmocks.NewMockMailer(ctrl),
	}
	f.svc = service.NewExportService(f.templates, f.editor, f.mailer, logger.NewTestLogger(t), cfg, opts...)
	t.Cleanup(f.svc.Stop)
	return f
}

func exportTemplate() *domain.Template {
	return &domain.Template{
		ID:       "welcome",
		Name:     "Welcome aboard",
		Category: domain.TemplateCategoryWelcome,
		Version:  3,
		Blocks: document.Document{
			textBlock("greeting", "<p>Hello {{ name }}</p>", 0),
		},
		Metadata: domain.MapOfAny{"subject": "Hi {{ name }}"},
	}
}

func TestExportService_Export(t *testing.T) {
	ctx := context.Background()

	t.Run("HTMLFromTemplate", func(t *testing.T) {
		f := setupExportServiceTest(t, service.ExportServiceConfig{})
		f.templates.EXPECT().GetTemplateByID(gomock.Any(), "welcome", int64(0)).Return(exportTemplate(), nil)

		result, err := f.svc.Export(ctx, domain.ExportRequest{TemplateID: "welcome"})
		require.NoError(t, err)
		assert.Equal(t, domain.ExportFormatHTML, result.Format)
		assert.Equal(t, "email-template.html", result.Filename)
		assert.Equal(t, "text/html; charset=utf-8", result.ContentType)
		assert.Equal(t, "welcome", result.TemplateID)
		assert.Equal(t, int64(3), result.Version)
		assert.Contains(t, result.Content, "<!DOCTYPE html>")
		assert.Contains(t, result.Content, `data-block-id="greeting"`)
		assert.Contains(t, result.Content, "<title>Welcome aboard</title>")
	})

	t.Run("MergeTags", func(t *testing.T) {
		f := setupExportServiceTest(t, service.ExportServiceConfig{})
		f.templates.EXPECT().GetTemplateByID(gomock.Any(), "welcome", int64(3)).Return(exportTemplate(), nil)

		result, err := f.svc.Export(ctx, domain.ExportRequest{
			TemplateID: "welcome",
			Version:    3,
			Data:       domain.MapOfAny{"name": "Ada"},
		})
		require.NoError(t, err)
		assert.Contains(t, result.Content, "Hello Ada")
	})

	t.Run("FromSession", func(t *testing.T) {
		f := setupExportServiceTest(t, service.ExportServiceConfig{MaxWidth: 640})
		doc := document.Document{textBlock("draft", "<p>Draft</p>", 0)}
		f.editor.EXPECT().Document(gomock.Any(), "sess-1").Return(doc, nil, nil)

		result, err := f.svc.Export(ctx, domain.ExportRequest{SessionID: "sess-1"})
		require.NoError(t, err)
		assert.Empty(t, result.TemplateID)
		assert.Contains(t, result.Content, "Draft")
		assert.Contains(t, result.Content, "640px")
	})

	t.Run("MJML", func(t *testing.T) {
		f := setupExportServiceTest(t, service.ExportServiceConfig{})
		f.templates.EXPECT().GetTemplateByID(gomock.Any(), "welcome", int64(0)).Return(exportTemplate(), nil)

		result, err := f.svc.Export(ctx, domain.ExportRequest{TemplateID: "welcome", Format: domain.ExportFormatMJML})
		require.NoError(t, err)
		assert.Equal(t, domain.ExportFormatMJML, result.Format)
		assert.Equal(t, "email-template.mjml", result.Filename)
		assert.Equal(t, "application/xml; charset=utf-8", result.ContentType)
		assert.True(t, strings.HasPrefix(strings.TrimSpace(result.Content), "<mjml>"))
	})

	t.Run("CompiledMJMLIsCached", func(t *testing.T) {
		f := setupExportServiceTest(t, service.ExportServiceConfig{})
		f.templates.EXPECT().GetTemplateByID(gomock.Any(), "welcome", int64(0)).Return(exportTemplate(), nil).Times(2)

		req := domain.ExportRequest{TemplateID: "welcome", Format: domain.ExportFormatMJML, Compile: true}
		first, err := f.svc.Export(ctx, req)
		require.NoError(t, err)
		assert.False(t, first.Cached)
		assert.Equal(t, domain.ExportFormatHTML, first.Format)
		assert.Equal(t, "email-template.html", first.Filename)
		assert.Contains(t, strings.ToLower(first.Content), "<!doctype html>")

		second, err := f.svc.Export(ctx, req)
		require.NoError(t, err)
		assert.True(t, second.Cached)
		assert.Equal(t, first.Content, second.Content)
	})

	t.Run("NotFound", func(t *testing.T) {
		f := setupExportServiceTest(t, service.ExportServiceConfig{})
		notFound := &domain.ErrTemplateNotFound{ID: "welcome"}
		f.templates.EXPECT().GetTemplateByID(gomock.Any(), "welcome", int64(0)).Return(nil, notFound)

		_, err := f.svc.Export(ctx, domain.ExportRequest{TemplateID: "welcome"})
		assert.Equal(t, notFound, err)
	})

	t.Run("InvalidRequest", func(t *testing.T) {
		f := setupExportServiceTest(t, service.ExportServiceConfig{})

		_, err := f.svc.Export(ctx, domain.ExportRequest{TemplateID: "welcome", SessionID: "sess-1"})
		var validationErr domain.ValidationError
		assert.True(t, errors.As(err, &validationErr))
	})

	t.Run("BrokenMergeTags", func(t *testing.T) {
		f := setupExportServiceTest(t, service.ExportServiceConfig{})
		tpl := exportTemplate()
		tpl.Blocks = document.Document{textBlock("broken", "<p>{% if %}</p>", 0)}
		f.templates.EXPECT().GetTemplateByID(gomock.Any(), "welcome", int64(0)).Return(tpl, nil)

		_, err := f.svc.Export(ctx, domain.ExportRequest{TemplateID: "welcome", Data: domain.MapOfAny{"a": 1}})
		var validationErr domain.ValidationError
		assert.True(t, errors.As(err, &validationErr))
	})
}

func TestExportService_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("Disabled", func(t *testing.T) {
		f := setupExportServiceTest(t, service.ExportServiceConfig{})

		_, err := f.svc.Publish(ctx, domain.ExportRequest{TemplateID: "welcome"})
		var disabled *domain.ErrFeatureDisabled
		assert.True(t, errors.As(err, &disabled))
	})

	t.Run("StoresAndAnnounces", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := domainmocks.NewMockArtifactStore(ctrl)
		publisher := domainmocks.NewMockEventPublisher(ctrl)
		f := setupExportServiceTest(t, service.ExportServiceConfig{},
			service.WithArtifactStore(store), service.WithEventPublisher(publisher))

		f.templates.EXPECT().GetTemplateByID(gomock.Any(), "welcome", int64(0)).Return(exportTemplate(), nil)
		store.EXPECT().
			Put(gomock.Any(), "templates/welcome/v3/email-template.html", gomock.Any(), "text/html; charset=utf-8").
			DoAndReturn(func(_ context.Context, _ string, body []byte, _ string) (string, error) {
				assert.NotContains(t, string(body), "data-block-id")
				return "https://cdn.example.com/templates/welcome/v3/email-template.html", nil
			})
		publisher.EXPECT().
			Send(gomock.Any(), domain.EventTemplatePublished, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, data interface{}) (string, error) {
				payload := data.(map[string]interface{})
				assert.Equal(t, "welcome", payload["template_id"])
				assert.Equal(t, int64(3), payload["version"])
				return "msg_1", nil
			})

		result, err := f.svc.Publish(ctx, domain.ExportRequest{TemplateID: "welcome"})
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/templates/welcome/v3/email-template.html", result.URL)
		assert.Equal(t, "templates/welcome/v3/email-template.html", result.Key)
		assert.Equal(t, int64(3), result.Version)
		assert.Equal(t, "msg_1", result.WebhookID)
	})

	t.Run("WebhookFailureDoesNotFail", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := domainmocks.NewMockArtifactStore(ctrl)
		publisher := domainmocks.NewMockEventPublisher(ctrl)
		f := setupExportServiceTest(t, service.ExportServiceConfig{},
			service.WithArtifactStore(store), service.WithEventPublisher(publisher))

		f.templates.EXPECT().GetTemplateByID(gomock.Any(), "welcome", int64(0)).Return(exportTemplate(), nil)
		store.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("https://cdn/x", nil)
		publisher.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Return("", errors.New("timeout"))

		result, err := f.svc.Publish(ctx, domain.ExportRequest{TemplateID: "welcome"})
		require.NoError(t, err)
		assert.Empty(t, result.WebhookID)
	})

	t.Run("UnsavedSession", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := domainmocks.NewMockArtifactStore(ctrl)
		f := setupExportServiceTest(t, service.ExportServiceConfig{}, service.WithArtifactStore(store))

		f.editor.EXPECT().Document(gomock.Any(), "sess-1").Return(document.Document{}, nil, nil)

		_, err := f.svc.Publish(ctx, domain.ExportRequest{SessionID: "sess-1"})
		var validationErr domain.ValidationError
		assert.True(t, errors.As(err, &validationErr))
	})

	t.Run("StoreError", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := domainmocks.NewMockArtifactStore(ctrl)
		f := setupExportServiceTest(t, service.ExportServiceConfig{}, service.WithArtifactStore(store))

		f.templates.EXPECT().GetTemplateByID(gomock.Any(), "welcome", int64(0)).Return(exportTemplate(), nil)
		store.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("", errors.New("denied"))

		_, err := f.svc.Publish(ctx, domain.ExportRequest{TemplateID: "welcome"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to publish export")
	})
}

func TestExportService_ShareAndRender(t *testing.T) {
	ctx := context.Background()

	t.Run("Disabled", func(t *testing.T) {
		f := setupExportServiceTest(t, service.ExportServiceConfig{})

		_, err := f.svc.Share(ctx, domain.ShareRequest{TemplateID: "welcome"})
		var disabled *domain.ErrFeatureDisabled
		assert.True(t, errors.As(err, &disabled))

		_, err = f.svc.RenderShared(ctx, "token")
		assert.True(t, errors.As(err, &disabled))
	})

	t.Run("PinsLatestVersion", func(t *testing.T) {
		signer, err := sharelink.NewSigner("share-secret", time.Hour)
		require.NoError(t, err)
		f := setupExportServiceTest(t, service.ExportServiceConfig{APIEndpoint: "https://designer.example.com/"},
			service.WithShareSigner(signer))

		f.templates.EXPECT().GetTemplateByID(gomock.Any(), "welcome", int64(0)).Return(exportTemplate(), nil)

		shared, err := f.svc.Share(ctx, domain.ShareRequest{TemplateID: "welcome"})
		require.NoError(t, err)
		assert.Equal(t, "https://designer.example.com/share/"+shared.Token, shared.URL)
		assert.True(t, shared.ExpiresAt.After(time.Now()))

		f.templates.EXPECT().GetTemplateByID(gomock.Any(), "welcome", int64(3)).Return(exportTemplate(), nil)

		result, err := f.svc.RenderShared(ctx, shared.Token)
		require.NoError(t, err)
		assert.Contains(t, result.Content, "Hello")
		assert.NotContains(t, result.Content, "data-block-id")
	})

	t.Run("InvalidToken", func(t *testing.T) {
		signer, err := sharelink.NewSigner("share-secret", time.Hour)
		require.NoError(t, err)
		f := setupExportServiceTest(t, service.ExportServiceConfig{}, service.WithShareSigner(signer))

		_, err = f.svc.RenderShared(ctx, "not-a-token")
		assert.ErrorIs(t, err, sharelink.ErrInvalidToken)
	})
}

func TestExportService_SendTestEmail(t *testing.T) {
	ctx := context.Background()

	request := func(to ...string) domain.TestEmailRequest {
		return domain.TestEmailRequest{
			ExportRequest: domain.ExportRequest{TemplateID: "welcome", Data: domain.MapOfAny{"name": "Ada"}},
			To:            to,
		}
	}

	t.Run("Success", func(t *testing.T) {
		f := setupExportServiceTest(t, service.ExportServiceConfig{TestEmailLimit: 2, TestEmailWindow: time.Hour})

		f.templates.EXPECT().GetTemplateByID(gomock.Any(), "welcome", int64(0)).Return(exportTemplate(), nil)
		f.mailer.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, msg mailer.Message) error {
			assert.Equal(t, []string{"ada@example.com"}, msg.To)
			assert.Equal(t, "Hi Ada", msg.Subject)
			assert.Contains(t, msg.HTML, "Hello Ada")
			assert.Contains(t, msg.Text, "Hello Ada")
			return nil
		})

		require.NoError(t, f.svc.SendTestEmail(ctx, request("ada@example.com")))
	})

	t.Run("RateLimitedPerRecipient", func(t *testing.T) {
		f := setupExportServiceTest(t, service.ExportServiceConfig{TestEmailLimit: 1, TestEmailWindow: time.Hour})

		f.templates.EXPECT().GetTemplateByID(gomock.Any(), "welcome", int64(0)).Return(exportTemplate(), nil)
		f.mailer.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil)
		require.NoError(t, f.svc.SendTestEmail(ctx, request("ada@example.com")))

		err := f.svc.SendTestEmail(ctx, request("ADA@example.com"))
		var limited *domain.ErrRateLimited
		require.True(t, errors.As(err, &limited))
		assert.Greater(t, limited.RetryAfter, 0)
		assert.LessOrEqual(t, limited.RetryAfter, 3600)
	})

	t.Run("ExplicitSubject", func(t *testing.T) {
		f := setupExportServiceTest(t, service.ExportServiceConfig{})

		req := request("ada@example.com")
		req.Subject = "Preview for {{ name }}"
		f.templates.EXPECT().GetTemplateByID(gomock.Any(), "welcome", int64(0)).Return(exportTemplate(), nil)
		f.mailer.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, msg mailer.Message) error {
			assert.Equal(t, "Preview for Ada", msg.Subject)
			return nil
		})

		require.NoError(t, f.svc.SendTestEmail(ctx, req))
	})

	t.Run("MailerError", func(t *testing.T) {
		f := setupExportServiceTest(t, service.ExportServiceConfig{})

		f.templates.EXPECT().GetTemplateByID(gomock.Any(), "welcome", int64(0)).Return(exportTemplate(), nil)
		f.mailer.EXPECT().Send(gomock.Any(), gomock.Any()).Return(errors.New("connection refused"))

		err := f.svc.SendTestEmail(ctx, request("ada@example.com"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to send test email")
	})

	t.Run("InvalidRecipient", func(t *testing.T) {
		f := setupExportServiceTest(t, service.ExportServiceConfig{})

		err := f.svc.SendTestEmail(ctx, request("not-an-email"))
		var validationErr domain.ValidationError
		assert.True(t, errors.As(err, &validationErr))
	})
}

func TestExportService_DevInbox(t *testing.T) {
	ctx := context.Background()

	t.Run("Disabled", func(t *testing.T) {
		f := setupExportServiceTest(t, service.ExportServiceConfig{})

		_, err := f.svc.DevInboxMessages(ctx)
		var disabled *domain.ErrFeatureDisabled
		assert.True(t, errors.As(err, &disabled))

		_, err = f.svc.ClearDevInbox(ctx)
		assert.True(t, errors.As(err, &disabled))
	})

	t.Run("ListAndClear", func(t *testing.T) {
		inbox := devinbox.NewInbox(10)
		inbox.Add(devinbox.Message{ID: "one", Subject: "First"})
		inbox.Add(devinbox.Message{ID: "two", Subject: "Second"})
		f := setupExportServiceTest(t, service.ExportServiceConfig{}, service.WithDevInbox(inbox))

		messages, err := f.svc.DevInboxMessages(ctx)
		require.NoError(t, err)
		require.Len(t, messages, 2)
		assert.Equal(t, "two", messages[0].ID)

		cleared, err := f.svc.ClearDevInbox(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, cleared)
	})
}

func TestExportService_CountdownUsesClock(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	f := setupExportServiceTest(t, service.ExportServiceConfig{}, service.WithClock(func() time.Time { return now }))

	countdown := blocks.New(blocks.BlockTypeCountdown)
	countdown.ID = "timer"
	countdown.Content = blocks.CountdownContent{EndDate: "2026-05-03T12:00:00Z"}
	f.editor.EXPECT().Document(gomock.Any(), "sess-1").Return(document.Document{countdown}, nil, nil).Times(2)

	first, err := f.svc.Export(ctx, domain.ExportRequest{SessionID: "sess-1"})
	require.NoError(t, err)
	second, err := f.svc.Export(ctx, domain.ExportRequest{SessionID: "sess-1"})
	require.NoError(t, err)
	assert.Equal(t, first.Content, second.Content)
}
