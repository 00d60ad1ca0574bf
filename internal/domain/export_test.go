package domain

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportFormat(t *testing.T) {
	assert.NoError(t, ExportFormatHTML.Validate())
	assert.NoError(t, ExportFormatMJML.Validate())
	assert.Error(t, ExportFormat("pdf").Validate())

	assert.Equal(t, "text/html; charset=utf-8", ExportFormatHTML.ContentType())
	assert.Equal(t, "application/xml; charset=utf-8", ExportFormatMJML.ContentType())
}

func TestExportRequest_Validate(t *testing.T) {
	req := ExportRequest{SessionID: "s1"}
	require.NoError(t, req.Validate())
	assert.Equal(t, ExportFormatHTML, req.Format)

	req = ExportRequest{TemplateID: "tpl_1", Version: 2, Format: ExportFormatMJML}
	assert.NoError(t, req.Validate())

	assert.Error(t, (&ExportRequest{}).Validate(), "one source is required")
	assert.Error(t, (&ExportRequest{SessionID: "s1", TemplateID: "tpl_1"}).Validate(), "sources are exclusive")
	assert.Error(t, (&ExportRequest{TemplateID: "tpl 1"}).Validate())
	assert.Error(t, (&ExportRequest{TemplateID: "tpl_1", Version: -1}).Validate())
	assert.Error(t, (&ExportRequest{SessionID: "s1", Format: "pdf"}).Validate())
}

func TestExportRequest_FromURLParams(t *testing.T) {
	var req ExportRequest
	require.NoError(t, req.FromURLParams(url.Values{
		"template_id": {"tpl_1"},
		"version":     {"4"},
		"format":      {"mjml"},
		"compile":     {"true"},
	}))
	assert.Equal(t, "tpl_1", req.TemplateID)
	assert.Equal(t, int64(4), req.Version)
	assert.Equal(t, ExportFormatMJML, req.Format)
	assert.True(t, req.Compile)

	assert.Error(t, (&ExportRequest{}).FromURLParams(url.Values{"template_id": {"tpl_1"}, "version": {"x"}}))
}

func TestShareRequest_Validate(t *testing.T) {
	assert.NoError(t, (&ShareRequest{TemplateID: "tpl_1"}).Validate())
	assert.Error(t, (&ShareRequest{}).Validate())
	assert.Error(t, (&ShareRequest{TemplateID: "tpl_1", Version: -3}).Validate())
}

func TestTestEmailRequest_Validate(t *testing.T) {
	valid := func() TestEmailRequest {
		return TestEmailRequest{
			ExportRequest: ExportRequest{TemplateID: "tpl_1"},
			To:            []string{"jane@example.com"},
		}
	}

	req := valid()
	require.NoError(t, req.Validate())

	req = valid()
	req.Format = ExportFormatMJML
	assert.Error(t, req.Validate())

	req = valid()
	req.To = nil
	assert.Error(t, req.Validate())

	req = valid()
	req.To = []string{"a@example.com", "b@example.com", "c@example.com", "d@example.com", "e@example.com", "f@example.com"}
	assert.Error(t, req.Validate())

	req = valid()
	req.To = []string{"not-an-email"}
	err := req.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not-an-email")

	req = valid()
	req.ExportRequest = ExportRequest{}
	assert.Error(t, req.Validate())
}
