package htmlgen

import (
	"fmt"
	"strings"
	"time"

	"github.com/Notifuse/designer/pkg/blocks"
	"github.com/Notifuse/designer/pkg/document"
)

// PreviewOptions controls the live preview of blocks on the canvas
type PreviewOptions struct {
	// EditMode suppresses link navigation so clicks select blocks instead
	EditMode   bool
	SelectedID string
	// Now is the clock used by countdown blocks; time.Now when nil
	Now func() time.Time
}

func (o PreviewOptions) context(mode blocks.PreviewMode) renderContext {
	now := time.Now()
	if o.Now != nil {
		now = o.Now()
	}
	if mode.Validate() != nil {
		mode = blocks.PreviewModeDesktop
	}
	return renderContext{mode: mode, edit: o.EditMode, now: now}
}

// RenderBlock renders one block for the canvas using the effective style of the
// preview mode. Rich text is sanitized. Unknown types render a generic container.
func RenderBlock(block blocks.Block, mode blocks.PreviewMode, opts PreviewOptions) string {
	return renderPreviewBlock(block, opts.context(mode), opts.SelectedID)
}

// RenderDocument renders every block in document order inside a canvas sized for the mode
func RenderDocument(doc document.Document, mode blocks.PreviewMode, opts PreviewOptions) string {
	ctx := opts.context(mode)

	var b strings.Builder
	fmt.Fprintf(&b, `<div class="canvas canvas-%s" style="max-width: %dpx; margin: 0 auto;">`, ctx.mode, ctx.mode.CanvasWidth())
	if len(doc) == 0 {
		b.WriteString(`<div class="canvas-empty" style="padding: 40px; text-align: center; color: #999999;">Add blocks to start designing your email</div>`)
	}
	for _, block := range doc {
		b.WriteString(renderPreviewBlock(block, ctx, opts.SelectedID))
	}
	b.WriteString(`</div>`)
	return b.String()
}

func renderPreviewBlock(block blocks.Block, ctx renderContext, selectedID string) string {
	styles := blocks.EffectiveStyles(block, ctx.mode)
	wrapper, inner := renderBody(block, styles, ctx)

	class := "block block-" + classToken(string(block.Type))
	if !block.Type.IsKnown() {
		class = "block block-unknown"
	}
	if selectedID != "" && block.ID == selectedID {
		class += " selected"
	}

	var b strings.Builder
	b.WriteString("<div")
	b.WriteString(attr("class", class))
	b.WriteString(attr("data-block-id", block.ID))
	b.WriteString(attr("data-block-type", string(block.Type)))
	b.WriteString(attr("style", wrapper.String()))
	b.WriteString(">")
	b.WriteString(inner)
	b.WriteString("</div>")
	return b.String()
}
