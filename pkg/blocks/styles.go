package blocks

// Styles is a flat set of CSS-like properties. Every field is optional;
// a nil field falls back to BaseDefaults when the effective style is computed.
type Styles struct {
	FontSize        *int     `json:"fontSize,omitempty"`
	FontFamily      *string  `json:"fontFamily,omitempty"`
	FontWeight      *string  `json:"fontWeight,omitempty"`
	FontStyle       *string  `json:"fontStyle,omitempty"`
	LineHeight      *float64 `json:"lineHeight,omitempty"`
	Color           *string  `json:"color,omitempty"`
	TextAlign       *string  `json:"textAlign,omitempty"`
	BackgroundColor *string  `json:"backgroundColor,omitempty"`
	BorderRadius    *int     `json:"borderRadius,omitempty"`
	BorderColor     *string  `json:"borderColor,omitempty"`
	BorderWidth     *int     `json:"borderWidth,omitempty"`
	BorderStyle     *string  `json:"borderStyle,omitempty"`
	Width           *string  `json:"width,omitempty"`
	Height          *string  `json:"height,omitempty"`
	Padding         *Spacing `json:"padding,omitempty"`
	Margin          *Spacing `json:"margin,omitempty"`
}

// Responsive holds partial style overrides per preview mode
type Responsive struct {
	Mobile  *Styles `json:"mobile,omitempty"`
	Tablet  *Styles `json:"tablet,omitempty"`
	Desktop *Styles `json:"desktop,omitempty"`
}

// For returns the override for a preview mode, or nil when there is none
func (r *Responsive) For(mode PreviewMode) *Styles {
	if r == nil {
		return nil
	}
	switch mode {
	case PreviewModeMobile:
		return r.Mobile
	case PreviewModeTablet:
		return r.Tablet
	case PreviewModeDesktop:
		return r.Desktop
	}
	return nil
}

// IsEmpty reports whether no mode carries an override
func (r *Responsive) IsEmpty() bool {
	return r == nil || (r.Mobile == nil && r.Tablet == nil && r.Desktop == nil)
}

// Clone returns a deep copy of the responsive overrides
func (r *Responsive) Clone() *Responsive {
	if r == nil {
		return nil
	}
	out := &Responsive{}
	if r.Mobile != nil {
		m := r.Mobile.Clone()
		out.Mobile = &m
	}
	if r.Tablet != nil {
		t := r.Tablet.Clone()
		out.Tablet = &t
	}
	if r.Desktop != nil {
		d := r.Desktop.Clone()
		out.Desktop = &d
	}
	return out
}

// BaseDefaults are the literal fallbacks every renderer relies on.
// Padding and margin default to zero so an empty style still yields valid CSS.
func BaseDefaults() Styles {
	return Styles{
		FontSize:        IntPtr(16),
		FontFamily:      StringPtr("Arial, Helvetica, sans-serif"),
		LineHeight:      Float64Ptr(1.5),
		Color:           StringPtr("#333333"),
		TextAlign:       StringPtr("left"),
		BackgroundColor: StringPtr("transparent"),
		BorderRadius:    IntPtr(0),
		Padding:         UniformSpacing(0),
		Margin:          UniformSpacing(0),
	}
}

// MergeStyles overlays override on base field by field; set fields of override win.
// Padding and margin are replaced as whole objects.
func MergeStyles(base Styles, override *Styles) Styles {
	out := base.Clone()
	if override == nil {
		return out
	}
	o := override.Clone()
	if o.FontSize != nil {
		out.FontSize = o.FontSize
	}
	if o.FontFamily != nil {
		out.FontFamily = o.FontFamily
	}
	if o.FontWeight != nil {
		out.FontWeight = o.FontWeight
	}
	if o.FontStyle != nil {
		out.FontStyle = o.FontStyle
	}
	if o.LineHeight != nil {
		out.LineHeight = o.LineHeight
	}
	if o.Color != nil {
		out.Color = o.Color
	}
	if o.TextAlign != nil {
		out.TextAlign = o.TextAlign
	}
	if o.BackgroundColor != nil {
		out.BackgroundColor = o.BackgroundColor
	}
	if o.BorderRadius != nil {
		out.BorderRadius = o.BorderRadius
	}
	if o.BorderColor != nil {
		out.BorderColor = o.BorderColor
	}
	if o.BorderWidth != nil {
		out.BorderWidth = o.BorderWidth
	}
	if o.BorderStyle != nil {
		out.BorderStyle = o.BorderStyle
	}
	if o.Width != nil {
		out.Width = o.Width
	}
	if o.Height != nil {
		out.Height = o.Height
	}
	if o.Padding != nil {
		out.Padding = o.Padding
	}
	if o.Margin != nil {
		out.Margin = o.Margin
	}
	return out
}

// EffectiveStyles computes baseDefaults, then the block styles, then the
// responsive override of the given mode, later sources winning.
func EffectiveStyles(block Block, mode PreviewMode) Styles {
	styles := MergeStyles(BaseDefaults(), &block.Styles)
	return MergeStyles(styles, block.Responsive.For(mode))
}

// Clone returns a copy of the styles that shares no memory with the receiver
func (s Styles) Clone() Styles {
	out := Styles{
		FontSize:        cloneInt(s.FontSize),
		FontFamily:      cloneString(s.FontFamily),
		FontWeight:      cloneString(s.FontWeight),
		FontStyle:       cloneString(s.FontStyle),
		Color:           cloneString(s.Color),
		TextAlign:       cloneString(s.TextAlign),
		BackgroundColor: cloneString(s.BackgroundColor),
		BorderRadius:    cloneInt(s.BorderRadius),
		BorderColor:     cloneString(s.BorderColor),
		BorderWidth:     cloneInt(s.BorderWidth),
		BorderStyle:     cloneString(s.BorderStyle),
		Width:           cloneString(s.Width),
		Height:          cloneString(s.Height),
	}
	if s.LineHeight != nil {
		v := *s.LineHeight
		out.LineHeight = &v
	}
	if s.Padding != nil {
		p := *s.Padding
		out.Padding = &p
	}
	if s.Margin != nil {
		m := *s.Margin
		out.Margin = &m
	}
	return out
}

// IntPtr returns a pointer to v
func IntPtr(v int) *int {
	return &v
}

// StringPtr returns a pointer to v
func StringPtr(v string) *string {
	return &v
}

// Float64Ptr returns a pointer to v
func Float64Ptr(v float64) *float64 {
	return &v
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
