package blocks

// DefaultContent returns the initial payload for a block type.
// It is total: unknown types get an empty GenericContent.
func DefaultContent(blockType BlockType) Content {
	switch blockType {
	case BlockTypeText:
		return TextContent{Text: "Enter your text here", Tag: "p"}
	case BlockTypeHeading:
		return HeadingContent{Text: "Your Heading Here", Level: 2}
	case BlockTypeQuote:
		return QuoteContent{Text: "Share an inspiring quote with your readers.", Author: ""}
	case BlockTypeImage:
		return ImageContent{Alt: "Image", Width: 600, Height: 300}
	case BlockTypeGallery:
		return GalleryContent{
			Images:  []GalleryImage{{Alt: "Image 1"}, {Alt: "Image 2"}},
			Columns: 2,
		}
	case BlockTypeButton:
		return ButtonContent{Text: "Click Here", Href: "#", Target: "_blank"}
	case BlockTypeSocial:
		return SocialContent{
			Platforms: []SocialPlatform{
				{Name: "facebook", URL: "https://facebook.com", Enabled: true},
				{Name: "twitter", URL: "https://twitter.com", Enabled: true},
				{Name: "instagram", URL: "https://instagram.com", Enabled: true},
				{Name: "linkedin", URL: "https://linkedin.com", Enabled: true},
			},
			IconSize: 32,
		}
	case BlockTypeDivider:
		return DividerContent{Thickness: 1, Style: "solid", Color: "#dddddd"}
	case BlockTypeSpacer:
		return SpacerContent{Height: 40}
	case BlockTypeColumns:
		return ColumnsContent{
			Columns: []Column{{Text: "Column 1 content"}, {Text: "Column 2 content"}},
			Gap:     16,
		}
	case BlockTypeVideo:
		return VideoContent{Title: "Watch the video"}
	case BlockTypeCountdown:
		return CountdownContent{Title: "Offer ends in", ExpiredMessage: "This offer has expired"}
	case BlockTypeSurvey:
		return SurveyContent{Question: "How would you rate your experience?", Kind: "rating", Scale: 5}
	case BlockTypeHeader:
		return HeaderContent{
			LogoAlt: "Logo",
			Title:   "Your Company",
			Links: []Link{
				{Label: "Home", URL: "#"},
				{Label: "Shop", URL: "#"},
				{Label: "Contact", URL: "#"},
			},
		}
	case BlockTypeFooter:
		return FooterContent{
			Text:            "You are receiving this email because you subscribed to our newsletter.",
			CompanyName:     "Your Company",
			UnsubscribeURL:  "#",
			UnsubscribeText: "Unsubscribe",
		}
	case BlockTypeProduct:
		return ProductContent{
			Name:        "Product Name",
			Description: "A short description of the product.",
			Price:       "29.99",
			Currency:    "$",
			ButtonText:  "Buy Now",
			Href:        "#",
		}
	default:
		return GenericContent{Type: blockType, Fields: map[string]interface{}{}}
	}
}

// DefaultStyles returns the initial styles for a block type.
// Unknown types get the baseline padding, margin, background and radius.
func DefaultStyles(blockType BlockType) Styles {
	switch blockType {
	case BlockTypeText:
		return Styles{
			FontSize:   IntPtr(16),
			Color:      StringPtr("#333333"),
			TextAlign:  StringPtr("left"),
			LineHeight: Float64Ptr(1.5),
			Padding:    UniformSpacing(16),
		}
	case BlockTypeHeading:
		return Styles{
			FontSize:   IntPtr(28),
			FontWeight: StringPtr("bold"),
			Color:      StringPtr("#111111"),
			TextAlign:  StringPtr("left"),
			LineHeight: Float64Ptr(1.3),
			Padding:    UniformSpacing(16),
		}
	case BlockTypeQuote:
		return Styles{
			FontSize:        IntPtr(18),
			FontStyle:       StringPtr("italic"),
			Color:           StringPtr("#555555"),
			BackgroundColor: StringPtr("#f9f9f9"),
			BorderColor:     StringPtr("#dddddd"),
			BorderWidth:     IntPtr(0),
			Padding:         &Spacing{Top: 16, Right: 24, Bottom: 16, Left: 24},
		}
	case BlockTypeImage, BlockTypeGallery:
		return Styles{
			TextAlign: StringPtr("center"),
			Padding:   UniformSpacing(8),
		}
	case BlockTypeButton:
		return Styles{
			FontSize:        IntPtr(16),
			FontWeight:      StringPtr("bold"),
			Color:           StringPtr("#ffffff"),
			BackgroundColor: StringPtr("#007bff"),
			BorderRadius:    IntPtr(4),
			TextAlign:       StringPtr("center"),
			Padding:         &Spacing{Top: 12, Right: 24, Bottom: 12, Left: 24},
			Margin:          &Spacing{Top: 8, Right: 0, Bottom: 8, Left: 0},
		}
	case BlockTypeSocial:
		return Styles{
			TextAlign: StringPtr("center"),
			Padding:   UniformSpacing(16),
		}
	case BlockTypeDivider:
		return Styles{
			Padding: &Spacing{Top: 16, Right: 0, Bottom: 16, Left: 0},
		}
	case BlockTypeSpacer:
		return Styles{
			Padding: UniformSpacing(0),
		}
	case BlockTypeColumns:
		return Styles{
			Padding: UniformSpacing(16),
		}
	case BlockTypeVideo:
		return Styles{
			TextAlign: StringPtr("center"),
			Padding:   UniformSpacing(16),
		}
	case BlockTypeCountdown:
		return Styles{
			FontSize:        IntPtr(24),
			FontWeight:      StringPtr("bold"),
			TextAlign:       StringPtr("center"),
			BackgroundColor: StringPtr("#f8f9fa"),
			BorderRadius:    IntPtr(8),
			Padding:         UniformSpacing(24),
		}
	case BlockTypeSurvey:
		return Styles{
			BackgroundColor: StringPtr("#ffffff"),
			BorderColor:     StringPtr("#e5e7eb"),
			BorderWidth:     IntPtr(1),
			BorderStyle:     StringPtr("solid"),
			BorderRadius:    IntPtr(8),
			Padding:         UniformSpacing(16),
		}
	case BlockTypeHeader:
		return Styles{
			BackgroundColor: StringPtr("#ffffff"),
			TextAlign:       StringPtr("center"),
			Padding:         UniformSpacing(20),
		}
	case BlockTypeFooter:
		return Styles{
			FontSize:        IntPtr(12),
			Color:           StringPtr("#666666"),
			TextAlign:       StringPtr("center"),
			BackgroundColor: StringPtr("#f8f9fa"),
			Padding:         UniformSpacing(20),
		}
	case BlockTypeProduct:
		return Styles{
			BackgroundColor: StringPtr("#ffffff"),
			BorderRadius:    IntPtr(8),
			TextAlign:       StringPtr("center"),
			Padding:         UniformSpacing(16),
		}
	default:
		return Styles{
			Padding:         UniformSpacing(16),
			Margin:          UniformSpacing(0),
			BackgroundColor: StringPtr("transparent"),
			BorderRadius:    IntPtr(0),
		}
	}
}
