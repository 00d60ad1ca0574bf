// Package markdown converts CommonMark documents into designer blocks.
package markdown

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/Notifuse/designer/pkg/blocks"
	"github.com/Notifuse/designer/pkg/document"
	"github.com/Notifuse/designer/pkg/sanitize"
)

// ErrEmpty is returned when the source holds no convertible content
var ErrEmpty = errors.New("markdown has no content")

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// ToDocument converts source into a document, one block per top-level markdown node
func ToDocument(source []byte) (document.Document, error) {
	root := md.Parser().Parse(text.NewReader(source))

	c := converter{source: source}
	doc := document.Document{}
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		block, ok, err := c.convert(n)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		block.Position = blocks.Position{Y: len(doc) * document.RowHeight}
		doc = append(doc, block)
	}

	if len(doc) == 0 {
		return nil, ErrEmpty
	}
	return doc, nil
}

type converter struct {
	source []byte
}

func (c converter) convert(n ast.Node) (blocks.Block, bool, error) {
	switch node := n.(type) {
	case *ast.Heading:
		inner, err := c.renderChildren(node)
		if err != nil {
			return blocks.Block{}, false, err
		}
		b := blocks.New(blocks.BlockTypeHeading)
		b.Content = blocks.HeadingContent{Text: sanitize.HTML(inner), Level: node.Level}
		return b, true, nil

	case *ast.Paragraph:
		if img, link := c.standaloneImage(node); img != nil {
			return c.imageBlock(img, link), true, nil
		}
		inner, err := c.renderChildren(node)
		if err != nil {
			return blocks.Block{}, false, err
		}
		return textBlock(sanitize.HTML(inner), "p"), true, nil

	case *ast.Blockquote:
		inner, err := c.renderChildren(node)
		if err != nil {
			return blocks.Block{}, false, err
		}
		b := blocks.New(blocks.BlockTypeQuote)
		b.Content = blocks.QuoteContent{Text: sanitize.HTML(strings.TrimSpace(inner))}
		return b, true, nil

	case *ast.ThematicBreak:
		return blocks.New(blocks.BlockTypeDivider), true, nil

	case *ast.HTMLBlock:
		var buf bytes.Buffer
		for i := 0; i < node.Lines().Len(); i++ {
			line := node.Lines().At(i)
			buf.Write(line.Value(c.source))
		}
		cleaned := strings.TrimSpace(sanitize.HTML(buf.String()))
		if cleaned == "" {
			return blocks.Block{}, false, nil
		}
		return textBlock(cleaned, "div"), true, nil

	default:
		// lists, code, tables
		var buf bytes.Buffer
		if err := md.Renderer().Render(&buf, c.source, node); err != nil {
			return blocks.Block{}, false, fmt.Errorf("failed to render %s: %w", node.Kind(), err)
		}
		cleaned := strings.TrimSpace(sanitize.HTML(buf.String()))
		if cleaned == "" {
			return blocks.Block{}, false, nil
		}
		return textBlock(cleaned, "div"), true, nil
	}
}

func (c converter) renderChildren(n ast.Node) (string, error) {
	var buf bytes.Buffer
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		if err := md.Renderer().Render(&buf, c.source, child); err != nil {
			return "", fmt.Errorf("failed to render %s: %w", child.Kind(), err)
		}
	}
	return buf.String(), nil
}

// standaloneImage matches a paragraph holding only an image, optionally wrapped in a link
func (c converter) standaloneImage(p *ast.Paragraph) (*ast.Image, string) {
	if p.ChildCount() != 1 {
		return nil, ""
	}
	switch child := p.FirstChild().(type) {
	case *ast.Image:
		return child, ""
	case *ast.Link:
		if child.ChildCount() == 1 {
			if img, ok := child.FirstChild().(*ast.Image); ok {
				return img, string(child.Destination)
			}
		}
	}
	return nil, ""
}

func (c converter) imageBlock(img *ast.Image, link string) blocks.Block {
	b := blocks.New(blocks.BlockTypeImage)
	content, _ := b.Content.(blocks.ImageContent)
	content.Src = ""
	if src := string(img.Destination); sanitize.IsSafeURL(src, true) {
		content.Src = src
	}
	content.Alt = c.plainText(img)
	content.Link = ""
	if sanitize.IsSafeURL(link, false) {
		content.Link = link
	}
	b.Content = content
	return b
}

func (c converter) plainText(n ast.Node) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := child.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(c.source))
		case *ast.String:
			sb.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}

func textBlock(html, tag string) blocks.Block {
	b := blocks.New(blocks.BlockTypeText)
	b.Content = blocks.TextContent{Text: html, Tag: tag}
	return b
}
