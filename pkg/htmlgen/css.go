package htmlgen

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Notifuse/designer/pkg/blocks"
	"github.com/Notifuse/designer/pkg/sanitize"
)

// declarations is an ordered list of CSS declarations. Empty values are skipped
// so a style attribute never carries an unset property.
type declarations []string

func (d *declarations) add(property, value string) {
	value = strings.TrimSpace(value)
	if value == "" || !safeCSSValue(value) {
		return
	}
	*d = append(*d, property+": "+value)
}

func (d *declarations) addString(property string, value *string) {
	if value != nil {
		d.add(property, *value)
	}
}

func (d *declarations) addPx(property string, value *int) {
	if value != nil {
		d.add(property, strconv.Itoa(*value)+"px")
	}
}

func (d *declarations) addSpacing(property string, value *blocks.Spacing) {
	if value != nil {
		d.add(property, value.CSS())
	}
}

func (d *declarations) addAll(other declarations) {
	*d = append(*d, other...)
}

// String renders the declarations as the value of a style attribute
func (d declarations) String() string {
	if len(d) == 0 {
		return ""
	}
	return strings.Join(d, "; ") + ";"
}

// important renders the declarations with !important, for media query overrides
func (d declarations) important() string {
	if len(d) == 0 {
		return ""
	}
	return strings.Join(d, " !important; ") + " !important;"
}

func safeCSSValue(value string) bool {
	if strings.ContainsAny(value, ";{}\\") {
		return false
	}
	return sanitize.IsSafeStyle(value)
}

// boxCSS holds the container properties of a block
func boxCSS(s blocks.Styles) declarations {
	var d declarations
	d.addSpacing("padding", s.Padding)
	d.addSpacing("margin", s.Margin)
	d.addString("background-color", s.BackgroundColor)
	d.addString("text-align", s.TextAlign)
	d.addAll(borderCSS(s))
	d.addPx("border-radius", s.BorderRadius)
	d.addString("width", s.Width)
	d.addString("height", s.Height)
	return d
}

// textCSS holds the typography properties of a block
func textCSS(s blocks.Styles) declarations {
	var d declarations
	d.addString("color", s.Color)
	d.addPx("font-size", s.FontSize)
	d.addString("font-family", s.FontFamily)
	d.addString("font-weight", s.FontWeight)
	d.addString("font-style", s.FontStyle)
	if s.LineHeight != nil && !math.IsNaN(*s.LineHeight) && !math.IsInf(*s.LineHeight, 0) && *s.LineHeight > 0 {
		d.add("line-height", strconv.FormatFloat(*s.LineHeight, 'f', -1, 64))
	}
	return d
}

func borderCSS(s blocks.Styles) declarations {
	var d declarations
	if s.BorderWidth == nil || *s.BorderWidth <= 0 {
		return d
	}
	style := "solid"
	if s.BorderStyle != nil && validBorderStyle(*s.BorderStyle) {
		style = *s.BorderStyle
	}
	color := "#dddddd"
	if s.BorderColor != nil && *s.BorderColor != "" && safeCSSValue(*s.BorderColor) {
		color = *s.BorderColor
	}
	d.add("border", fmt.Sprintf("%dpx %s %s", *s.BorderWidth, style, color))
	return d
}

func validBorderStyle(style string) bool {
	switch style {
	case "solid", "dashed", "dotted", "double", "groove", "ridge", "inset", "outset":
		return true
	}
	return false
}

// blockCSS is the wrapper style of a block: box properties plus typography
func blockCSS(s blocks.Styles) declarations {
	d := boxCSS(s)
	d.addAll(textCSS(s))
	return d
}

func stringOr(value *string, fallback string) string {
	if value == nil || strings.TrimSpace(*value) == "" || !safeCSSValue(*value) {
		return fallback
	}
	return *value
}

func intOr(value *int, fallback int) int {
	if value == nil {
		return fallback
	}
	return *value
}
