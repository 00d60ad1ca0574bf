package sanitize

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// removed together with everything inside them
var droppedTags = map[string]bool{
	"script": true, "style": true, "iframe": true, "frame": true, "frameset": true,
	"object": true, "embed": true, "applet": true, "form": true, "input": true,
	"textarea": true, "select": true, "button": true, "link": true, "meta": true,
	"base": true, "svg": true, "math": true, "template": true, "noscript": true,
	"title": true, "head": true,
}

var globalAttrs = map[string]bool{
	"style": true, "class": true, "title": true, "dir": true, "align": true,
}

// allowed tags and the attributes each may carry on top of globalAttrs
var allowedTags = map[string]map[string]bool{
	"p": nil, "br": nil, "b": nil, "strong": nil, "i": nil, "em": nil, "u": nil,
	"s": nil, "strike": nil, "span": nil, "div": nil, "ul": nil, "ol": nil, "li": nil,
	"h1": nil, "h2": nil, "h3": nil, "h4": nil, "h5": nil, "h6": nil,
	"blockquote": nil, "sub": nil, "sup": nil, "small": nil, "code": nil, "pre": nil,
	"hr": nil, "tbody": nil, "thead": nil, "tr": nil,
	"a":     {"href": true, "target": true, "rel": true, "name": true},
	"img":   {"src": true, "alt": true, "width": true, "height": true},
	"font":  {"color": true, "face": true, "size": true},
	"table": {"width": true, "border": true, "cellpadding": true, "cellspacing": true, "bgcolor": true},
	"td":    {"colspan": true, "rowspan": true, "width": true, "valign": true, "bgcolor": true},
	"th":    {"colspan": true, "rowspan": true, "width": true, "valign": true, "bgcolor": true},
}

var allowedTargets = map[string]bool{"_blank": true, "_self": true, "_parent": true, "_top": true}

var unsafeStyleMarkers = []string{
	"expression(", "javascript:", "vbscript:", "behavior:", "-moz-binding", "url(", "@import", "<", ">",
}

// HTML cleans user-entered rich text against an allow-list of tags and attributes.
// Dangerous elements are removed with their content, unknown elements are unwrapped,
// event handler attributes and unsafe URLs are dropped.
func HTML(input string) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}
	if !strings.ContainsAny(input, "<&") {
		return input
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(input))
	if err != nil {
		return html.EscapeString(input)
	}
	body := doc.Find("body")
	if body.Length() == 0 {
		return ""
	}
	cleanChildren(body.Nodes[0])

	out, err := body.Html()
	if err != nil {
		return html.EscapeString(Text(input))
	}
	return out
}

// Text strips every tag and returns the text content
func Text(input string) string {
	if !strings.ContainsAny(input, "<&") {
		return input
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(input))
	if err != nil {
		return input
	}
	doc.Find(strings.Join(droppedTagList(), ",")).Remove()
	return strings.TrimSpace(doc.Find("body").Text())
}

func droppedTagList() []string {
	tags := make([]string, 0, len(droppedTags))
	for tag := range droppedTags {
		if tag != "head" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func cleanChildren(parent *html.Node) {
	for child := parent.FirstChild; child != nil; {
		next := child.NextSibling

		switch child.Type {
		case html.CommentNode, html.DoctypeNode:
			parent.RemoveChild(child)
		case html.ElementNode:
			tag := strings.ToLower(child.Data)
			if droppedTags[tag] {
				parent.RemoveChild(child)
				break
			}
			cleanChildren(child)

			extra, ok := allowedTags[tag]
			if !ok {
				unwrap(parent, child)
				break
			}
			child.Attr = cleanAttributes(tag, child.Attr, extra)
		}

		child = next
	}
}

func unwrap(parent, node *html.Node) {
	for grandchild := node.FirstChild; grandchild != nil; {
		next := grandchild.NextSibling
		node.RemoveChild(grandchild)
		parent.InsertBefore(grandchild, node)
		grandchild = next
	}
	parent.RemoveChild(node)
}

func cleanAttributes(tag string, attrs []html.Attribute, extra map[string]bool) []html.Attribute {
	kept := make([]html.Attribute, 0, len(attrs))
	blankTarget := false

	for _, attr := range attrs {
		key := strings.ToLower(attr.Key)
		if attr.Namespace != "" || strings.HasPrefix(key, "on") {
			continue
		}
		if !globalAttrs[key] && !extra[key] {
			continue
		}

		switch key {
		case "href":
			if !IsSafeURL(attr.Val, false) {
				continue
			}
		case "src":
			if !IsSafeURL(attr.Val, true) {
				continue
			}
		case "style":
			if !IsSafeStyle(attr.Val) {
				continue
			}
		case "target":
			if !allowedTargets[strings.ToLower(attr.Val)] {
				continue
			}
			blankTarget = strings.EqualFold(attr.Val, "_blank")
		case "rel":
			continue
		}

		kept = append(kept, html.Attribute{Key: key, Val: attr.Val})
	}

	if tag == "a" && blankTarget {
		kept = append(kept, html.Attribute{Key: "rel", Val: "noopener noreferrer"})
	}
	return kept
}

// IsSafeStyle reports whether an inline style value is free of script and remote-resource vectors
func IsSafeStyle(style string) bool {
	lower := strings.ToLower(compact(style))
	for _, marker := range unsafeStyleMarkers {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	return true
}

// IsSafeURL accepts relative links, fragments, merge tags and the http, https,
// mailto and tel schemes. Image sources may also be inline raster data URIs.
func IsSafeURL(raw string, image bool) bool {
	v := strings.ToLower(compact(raw))
	if v == "" {
		return false
	}
	if strings.HasPrefix(v, "{{") || strings.HasPrefix(v, "#") || strings.HasPrefix(v, "/") || strings.HasPrefix(v, "?") {
		return true
	}

	colon := strings.Index(v, ":")
	if colon < 0 {
		return true
	}
	// a colon after the first path, query or fragment delimiter is not a scheme
	if delim := strings.IndexAny(v, "/?#"); delim >= 0 && delim < colon {
		return true
	}

	switch v[:colon] {
	case "http", "https", "mailto", "tel":
		return true
	case "data":
		if !image {
			return false
		}
		for _, prefix := range []string{"data:image/png", "data:image/jpeg", "data:image/jpg", "data:image/gif", "data:image/webp"} {
			if strings.HasPrefix(v, prefix) {
				return true
			}
		}
	}
	return false
}

// compact removes whitespace and control characters browsers ignore inside URLs
func compact(s string) string {
	return strings.Map(func(r rune) rune {
		if r <= ' ' || r == 0x7f {
			return -1
		}
		return r
	}, s)
}
