package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Notifuse/designer/internal/domain"
	domainmocks "github.com/Notifuse/designer/internal/domain/mocks"
	"github.com/Notifuse/designer/internal/service"
	"github.com/Notifuse/designer/pkg/blocks"
	"github.com/Notifuse/designer/pkg/document"
	"github.com/Notifuse/designer/pkg/htmlgen"
	"github.com/Notifuse/designer/pkg/logger"
	pkgmocks "github.com/Notifuse/designer/pkg/mocks"
)

func setupTemplateServiceTest(t *testing.T) (*service.TemplateService, *domainmocks.MockTemplateRepository) {
	ctrl := gomock.NewController(t)
	mockRepo := domainmocks.NewMockTemplateRepository(ctrl)
	return service.NewTemplateService(mockRepo, logger.NewTestLogger(t)), mockRepo
}

func textBlock(id, text string, y int) blocks.Block {
	b := blocks.New(blocks.BlockTypeText)
	b.ID = id
	b.Content = blocks.TextContent{Text: text, Tag: "p"}
	b.Position = blocks.Position{Y: y}
	return b
}

// Gomock matcher for validating the template passed to CreateTemplate
type templateMatcher struct {
	id      string
	version int64
}

func (m *templateMatcher) Matches(x interface{}) bool {
	tmpl, ok := x.(*domain.Template)
	if !ok {
		return false
	}
	return tmpl.ID == m.id && tmpl.Version == m.version
}

func (m *templateMatcher) String() string {
	return fmt.Sprintf("is a template with ID %s and version %d", m.id, m.version)
}

func EqTemplate(id string, version int64) gomock.Matcher {
	return &templateMatcher{id: id, version: version}
}

func TestTemplateService_CreateTemplate(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		svc, mockRepo := setupTemplateServiceTest(t)

		template := &domain.Template{
			ID:       "welcome",
			Name:     "Welcome",
			Category: domain.TemplateCategoryWelcome,
			Blocks: document.Document{
				textBlock("b", `<p>Second</p><script>alert(1)</script>`, 200),
				textBlock("a", "<p>First</p>", 0),
			},
		}

		mockRepo.EXPECT().CreateTemplate(gomock.Any(), EqTemplate("welcome", 1)).Return(nil)

		err := svc.CreateTemplate(ctx, template)
		require.NoError(t, err)

		assert.Equal(t, int64(1), template.Version)
		assert.False(t, template.CreatedAt.IsZero())
		assert.Equal(t, template.CreatedAt, template.UpdatedAt)
		assert.Equal(t, []string{"a", "b"}, document.IDs(template.Blocks))
		assert.NotContains(t, template.Blocks[1].Content.(blocks.TextContent).Text, "script")
	})

	t.Run("DuplicateBlockIDsAreReplaced", func(t *testing.T) {
		svc, mockRepo := setupTemplateServiceTest(t)

		template := &domain.Template{
			ID:       "dupes",
			Name:     "Dupes",
			Category: domain.TemplateCategoryOther,
			Blocks: document.Document{
				textBlock("same", "<p>One</p>", 0),
				textBlock("same", "<p>Two</p>", 100),
			},
		}
		mockRepo.EXPECT().CreateTemplate(gomock.Any(), gomock.Any()).Return(nil)

		require.NoError(t, svc.CreateTemplate(ctx, template))
		ids := document.IDs(template.Blocks)
		require.Len(t, ids, 2)
		assert.NotEqual(t, ids[0], ids[1])
	})

	t.Run("ValidationError", func(t *testing.T) {
		svc, _ := setupTemplateServiceTest(t)

		err := svc.CreateTemplate(ctx, &domain.Template{ID: "bad id", Name: "x", Category: domain.TemplateCategoryOther})
		require.Error(t, err)
		var validationErr domain.ValidationError
		assert.True(t, errors.As(err, &validationErr))
	})

	t.Run("RepositoryError", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockRepo := domainmocks.NewMockTemplateRepository(ctrl)
		mockLogger := pkgmocks.NewMockLogger(ctrl)
		svc := service.NewTemplateService(mockRepo, mockLogger)

		mockRepo.EXPECT().CreateTemplate(gomock.Any(), gomock.Any()).Return(errors.New("db down"))
		mockLogger.EXPECT().WithField("template_id", "welcome").Return(mockLogger)
		mockLogger.EXPECT().Error(gomock.Any())

		err := svc.CreateTemplate(ctx, &domain.Template{ID: "welcome", Name: "Welcome", Category: domain.TemplateCategoryWelcome})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create template")
	})
}

func TestTemplateService_GetTemplateByID(t *testing.T) {
	ctx := context.Background()

	t.Run("SortsBlocks", func(t *testing.T) {
		svc, mockRepo := setupTemplateServiceTest(t)

		stored := &domain.Template{
			ID:      "welcome",
			Version: 3,
			Blocks: document.Document{
				textBlock("c", "<p>c</p>", 300),
				textBlock("a", "<p>a</p>", 0),
				textBlock("b", "<p>b</p>", 100),
			},
		}
		mockRepo.EXPECT().GetTemplateByID(gomock.Any(), "welcome", int64(0)).Return(stored, nil)

		got, err := svc.GetTemplateByID(ctx, "welcome", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, document.IDs(got.Blocks))
	})

	t.Run("NotFound", func(t *testing.T) {
		svc, mockRepo := setupTemplateServiceTest(t)

		notFound := &domain.ErrTemplateNotFound{ID: "missing", Version: 2}
		mockRepo.EXPECT().GetTemplateByID(gomock.Any(), "missing", int64(2)).Return(nil, notFound)

		_, err := svc.GetTemplateByID(ctx, "missing", 2)
		assert.Equal(t, notFound, err)
	})

	t.Run("RepositoryError", func(t *testing.T) {
		svc, mockRepo := setupTemplateServiceTest(t)

		mockRepo.EXPECT().GetTemplateByID(gomock.Any(), "welcome", int64(0)).Return(nil, errors.New("db down"))

		_, err := svc.GetTemplateByID(ctx, "welcome", 0)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get template")
	})
}

func TestTemplateService_GetTemplates(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		svc, mockRepo := setupTemplateServiceTest(t)

		list := []*domain.Template{
			{ID: "one", Blocks: document.Document{textBlock("y", "", 100), textBlock("x", "", 0)}},
			{ID: "two"},
		}
		mockRepo.EXPECT().GetTemplates(gomock.Any(), domain.TemplateCategoryNewsletter).Return(list, nil)

		got, err := svc.GetTemplates(ctx, domain.TemplateCategoryNewsletter)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, []string{"x", "y"}, document.IDs(got[0].Blocks))
	})

	t.Run("RepositoryError", func(t *testing.T) {
		svc, mockRepo := setupTemplateServiceTest(t)

		mockRepo.EXPECT().GetTemplates(gomock.Any(), domain.TemplateCategory("")).Return(nil, errors.New("db down"))

		_, err := svc.GetTemplates(ctx, "")
		assert.Error(t, err)
	})
}

func TestTemplateService_UpdateTemplate(t *testing.T) {
	ctx := context.Background()
	createdAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("Success", func(t *testing.T) {
		svc, mockRepo := setupTemplateServiceTest(t)

		existing := &domain.Template{ID: "welcome", Version: 4, CreatedAt: createdAt}
		mockRepo.EXPECT().GetTemplateByID(gomock.Any(), "welcome", int64(0)).Return(existing, nil)
		mockRepo.EXPECT().UpdateTemplate(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, tpl *domain.Template) error {
				assert.Equal(t, createdAt, tpl.CreatedAt)
				assert.Equal(t, []string{"a", "b"}, document.IDs(tpl.Blocks))
				tpl.Version = 5
				return nil
			})

		template := &domain.Template{
			ID:       "welcome",
			Name:     "Welcome v2",
			Category: domain.TemplateCategoryWelcome,
			Blocks:   document.Document{textBlock("b", "", 100), textBlock("a", "", 0)},
		}
		require.NoError(t, svc.UpdateTemplate(ctx, template))
		assert.Equal(t, int64(5), template.Version)
	})

	t.Run("NotFound", func(t *testing.T) {
		svc, mockRepo := setupTemplateServiceTest(t)

		notFound := &domain.ErrTemplateNotFound{ID: "welcome"}
		mockRepo.EXPECT().GetTemplateByID(gomock.Any(), "welcome", int64(0)).Return(nil, notFound)

		err := svc.UpdateTemplate(ctx, &domain.Template{ID: "welcome", Name: "x", Category: domain.TemplateCategoryOther})
		assert.Equal(t, notFound, err)
	})

	t.Run("ValidationError", func(t *testing.T) {
		svc, mockRepo := setupTemplateServiceTest(t)

		mockRepo.EXPECT().GetTemplateByID(gomock.Any(), "welcome", int64(0)).
			Return(&domain.Template{ID: "welcome", Version: 1}, nil)

		err := svc.UpdateTemplate(ctx, &domain.Template{ID: "welcome", Name: "", Category: domain.TemplateCategoryOther})
		var validationErr domain.ValidationError
		assert.True(t, errors.As(err, &validationErr))
	})

	t.Run("RepositoryError", func(t *testing.T) {
		svc, mockRepo := setupTemplateServiceTest(t)

		mockRepo.EXPECT().GetTemplateByID(gomock.Any(), "welcome", int64(0)).
			Return(&domain.Template{ID: "welcome", Version: 1}, nil)
		mockRepo.EXPECT().UpdateTemplate(gomock.Any(), gomock.Any()).Return(errors.New("db down"))

		err := svc.UpdateTemplate(ctx, &domain.Template{ID: "welcome", Name: "x", Category: domain.TemplateCategoryOther})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to update template")
	})
}

func TestTemplateService_DeleteTemplate(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		svc, mockRepo := setupTemplateServiceTest(t)
		mockRepo.EXPECT().DeleteTemplate(gomock.Any(), "welcome").Return(nil)
		assert.NoError(t, svc.DeleteTemplate(ctx, "welcome"))
	})

	t.Run("NotFound", func(t *testing.T) {
		svc, mockRepo := setupTemplateServiceTest(t)
		notFound := &domain.ErrTemplateNotFound{ID: "welcome"}
		mockRepo.EXPECT().DeleteTemplate(gomock.Any(), "welcome").Return(notFound)
		assert.Equal(t, notFound, svc.DeleteTemplate(ctx, "welcome"))
	})

	t.Run("RepositoryError", func(t *testing.T) {
		svc, mockRepo := setupTemplateServiceTest(t)
		mockRepo.EXPECT().DeleteTemplate(gomock.Any(), "welcome").Return(errors.New("db down"))
		err := svc.DeleteTemplate(ctx, "welcome")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to delete template")
	})
}

func TestTemplateService_ImportTemplate(t *testing.T) {
	ctx := context.Background()

	t.Run("HTML", func(t *testing.T) {
		svc, mockRepo := setupTemplateServiceTest(t)

		settings := htmlgen.DefaultExportSettings()
		settings.IncludeBlockMarkers = true
		source := htmlgen.GenerateHTML(document.Document{
			textBlock("intro", "<p>Hello</p>", 0),
			textBlock("outro", "<p>Bye</p>", 100),
		}, settings)

		mockRepo.EXPECT().CreateTemplate(gomock.Any(), gomock.Any()).Return(nil)

		tpl, err := svc.ImportTemplate(ctx, domain.ImportTemplateRequest{
			Name:   "Imported",
			Format: domain.ImportFormatHTML,
			Source: source,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"intro", "outro"}, document.IDs(tpl.Blocks))
		assert.Equal(t, domain.TemplateCategoryOther, tpl.Category)
		assert.Equal(t, int64(1), tpl.Version)
		assert.Equal(t, "html", tpl.Metadata["imported_from"])
	})

	t.Run("Markdown", func(t *testing.T) {
		svc, mockRepo := setupTemplateServiceTest(t)

		mockRepo.EXPECT().CreateTemplate(gomock.Any(), gomock.Any()).Return(nil)

		tpl, err := svc.ImportTemplate(ctx, domain.ImportTemplateRequest{
			Name:     "Notes",
			Category: domain.TemplateCategoryNewsletter,
			Format:   domain.ImportFormatMarkdown,
			Source:   "# Title\n\nBody text\n",
		})
		require.NoError(t, err)
		require.Len(t, tpl.Blocks, 2)
		assert.Equal(t, blocks.BlockTypeHeading, tpl.Blocks[0].Type)
		assert.Equal(t, blocks.BlockTypeText, tpl.Blocks[1].Type)
	})

	t.Run("HTMLWithoutMarkers", func(t *testing.T) {
		svc, _ := setupTemplateServiceTest(t)

		_, err := svc.ImportTemplate(ctx, domain.ImportTemplateRequest{
			Name:   "Plain",
			Format: domain.ImportFormatHTML,
			Source: "<html><body><p>hi</p></body></html>",
		})
		var validationErr domain.ValidationError
		require.True(t, errors.As(err, &validationErr))
		assert.Contains(t, err.Error(), "failed to import html")
	})

	t.Run("InvalidRequest", func(t *testing.T) {
		svc, _ := setupTemplateServiceTest(t)

		_, err := svc.ImportTemplate(ctx, domain.ImportTemplateRequest{Name: "x", Format: "docx", Source: "y"})
		var validationErr domain.ValidationError
		assert.True(t, errors.As(err, &validationErr))
	})
}
