package blocks

var (
	alignments      = []string{"left", "center", "right"}
	textAlignments  = []string{"left", "center", "right", "justify"}
	borderStyles    = []string{"solid", "dashed", "dotted"}
	listTypes       = []string{"ordered", "unordered"}
	verticalAligns  = []string{"top", "middle", "bottom"}
	fontWeights     = []string{"normal", "bold", "300", "400", "500", "600", "700"}
	socialPlatforms = []string{"facebook", "twitter", "x", "instagram", "linkedin", "youtube", "tiktok", "pinterest", "github"}
)

func options(values ...string) []PropertyOption {
	out := make([]PropertyOption, len(values))
	for i, v := range values {
		out[i] = PropertyOption{Label: v, Value: v}
	}
	return out
}

func sizeProperty(key, label, category, def string) PropertyConfig {
	return PropertyConfig{
		Key:          key,
		Type:         PropertySize,
		Label:        label,
		Category:     category,
		DefaultValue: def,
		Validation:   ValidateCSSUnit,
		Transform:    TransformSizeWithUnit,
	}
}

func colorProperty(key, label, def string) PropertyConfig {
	return PropertyConfig{
		Key:          key,
		Type:         PropertyColor,
		Label:        label,
		Category:     CategoryStyle,
		DefaultValue: def,
		Validation:   ValidateColor,
	}
}

func selectProperty(key, label, category, def string, values []string) PropertyConfig {
	return PropertyConfig{
		Key:          key,
		Type:         PropertySelect,
		Label:        label,
		Category:     category,
		DefaultValue: def,
		Options:      options(values...),
		Validation:   OneOf(values...),
	}
}

func alignProperty(key, def string, values []string) PropertyConfig {
	p := selectProperty(key, "Alignment", CategoryLayout, def, values)
	p.Type = PropertyAlignment
	return p
}

// BuiltinComponents returns the configs of the built-in block types in palette order
func BuiltinComponents() []ComponentConfig {
	return []ComponentConfig{
		{
			Type:        TypeText,
			Category:    CategoryContent,
			Label:       "Text",
			Description: "Paragraph of rich text",
			Icon:        "type",
			DefaultProps: Props{
				"text":       "Write your text here",
				"fontSize":   DefaultFontSize,
				"color":      DefaultTextColor,
				"textAlign":  "left",
				"lineHeight": DefaultLineHeight,
				"fontFamily": DefaultFontFamily,
				"fontWeight": "normal",
			},
			Properties: []PropertyConfig{
				{Key: "text", Type: PropertyTextarea, Label: "Text", Category: CategoryContent, Required: true},
				sizeProperty("fontSize", "Font size", CategoryStyle, DefaultFontSize),
				colorProperty("color", "Color", DefaultTextColor),
				alignProperty("textAlign", "left", textAlignments),
				{Key: "lineHeight", Type: PropertyText, Label: "Line height", Category: CategoryStyle, DefaultValue: DefaultLineHeight},
				{Key: "fontFamily", Type: PropertyText, Label: "Font family", Category: CategoryStyle, DefaultValue: DefaultFontFamily},
				selectProperty("fontWeight", "Font weight", CategoryStyle, "normal", fontWeights),
			},
			Presets: []Preset{
				{ID: "heading", Label: "Heading", Props: Props{"text": "Heading", "fontSize": "28px", "fontWeight": "bold"}},
				{ID: "caption", Label: "Caption", Props: Props{"text": "Caption", "fontSize": "12px", "color": "#6b7280"}},
			},
		},
		{
			Type:        TypeButton,
			Category:    CategoryContent,
			Label:       "Button",
			Description: "Call to action link styled as a button",
			Icon:        "mouse-pointer",
			DefaultProps: Props{
				"text":            "Click me",
				"url":             "#",
				"backgroundColor": "#3b82f6",
				"textColor":       "#ffffff",
				"fontSize":        DefaultFontSize,
				"fontWeight":      "bold",
				"padding":         "12px 24px",
				"borderRadius":    "6px",
				"align":           "center",
				"fullWidth":       false,
			},
			Properties: []PropertyConfig{
				{Key: "text", Type: PropertyText, Label: "Label", Category: CategoryContent, Required: true},
				{Key: "url", Type: PropertyURL, Label: "Link", Category: CategoryContent, Required: true, Validation: ValidateURL},
				colorProperty("backgroundColor", "Background", "#3b82f6"),
				colorProperty("textColor", "Text color", "#ffffff"),
				sizeProperty("fontSize", "Font size", CategoryStyle, DefaultFontSize),
				selectProperty("fontWeight", "Font weight", CategoryStyle, "bold", fontWeights),
				{Key: "padding", Type: PropertyText, Label: "Padding", Category: CategoryLayout, DefaultValue: "12px 24px"},
				sizeProperty("borderRadius", "Corner radius", CategoryStyle, "6px"),
				alignProperty("align", "center", alignments),
				{Key: "fullWidth", Type: PropertyBoolean, Label: "Full width", Category: CategoryLayout, DefaultValue: false},
			},
			Presets: []Preset{
				{ID: "outline", Label: "Outline", Props: Props{"backgroundColor": "#ffffff", "textColor": "#3b82f6"}},
				{ID: "dark", Label: "Dark", Props: Props{"backgroundColor": "#111827"}},
			},
		},
		{
			Type:        TypeImage,
			Category:    CategoryContent,
			Label:       "Image",
			Description: "Image with optional link",
			Icon:        "image",
			DefaultProps: Props{
				"src":          "https://placehold.co/600x300",
				"alt":          "",
				"width":        "100%",
				"align":        "center",
				"borderRadius": "0px",
			},
			Properties: []PropertyConfig{
				{Key: "src", Type: PropertyURL, Label: "Image URL", Category: CategoryContent, Required: true, Validation: ValidateURL},
				{Key: "alt", Type: PropertyText, Label: "Alternative text", Category: CategoryContent},
				{Key: "link", Type: PropertyURL, Label: "Link", Category: CategoryContent, Validation: ValidateURL},
				sizeProperty("width", "Width", CategoryLayout, "100%"),
				alignProperty("align", "center", alignments),
				sizeProperty("borderRadius", "Corner radius", CategoryStyle, "0px"),
			},
		},
		{
			Type:        TypeDivider,
			Category:    CategoryLayout,
			Label:       "Divider",
			Description: "Horizontal rule",
			Icon:        "minus",
			DefaultProps: Props{
				"color":     DefaultDividerColor,
				"thickness": "1px",
				"style":     "solid",
				"width":     "100%",
				"margin":    "20px",
			},
			Properties: []PropertyConfig{
				colorProperty("color", "Color", DefaultDividerColor),
				sizeProperty("thickness", "Thickness", CategoryStyle, "1px"),
				selectProperty("style", "Line style", CategoryStyle, "solid", borderStyles),
				sizeProperty("width", "Width", CategoryLayout, "100%"),
				sizeProperty("margin", "Vertical spacing", CategoryLayout, "20px"),
			},
			Presets: []Preset{
				{ID: "dashed", Label: "Dashed", Props: Props{"style": "dashed"}},
			},
		},
		{
			Type:        TypeSpacer,
			Category:    CategoryLayout,
			Label:       "Spacer",
			Description: "Vertical blank space",
			Icon:        "move-vertical",
			DefaultProps: Props{
				"height":          "32px",
				"backgroundColor": "transparent",
			},
			Properties: []PropertyConfig{
				sizeProperty("height", "Height", CategoryLayout, "32px"),
				colorProperty("backgroundColor", "Background", "transparent"),
			},
		},
		{
			Type:        TypeList,
			Category:    CategoryContent,
			Label:       "List",
			Description: "Bulleted or numbered list",
			Icon:        "list",
			DefaultProps: Props{
				"items":      []string{"First item", "Second item", "Third item"},
				"listType":   "unordered",
				"fontSize":   DefaultFontSize,
				"color":      DefaultTextColor,
				"lineHeight": "1.6",
				"fontFamily": DefaultFontFamily,
			},
			Properties: []PropertyConfig{
				{
					Key:        "items",
					Type:       PropertyList,
					Label:      "Items",
					Category:   CategoryContent,
					Required:   true,
					Validation: ValidateListItems,
					Transform:  TransformListItems,
				},
				selectProperty("listType", "List type", CategoryStyle, "unordered", listTypes),
				sizeProperty("fontSize", "Font size", CategoryStyle, DefaultFontSize),
				colorProperty("color", "Color", DefaultTextColor),
				{Key: "lineHeight", Type: PropertyText, Label: "Line height", Category: CategoryStyle, DefaultValue: "1.6"},
				{Key: "fontFamily", Type: PropertyText, Label: "Font family", Category: CategoryStyle, DefaultValue: DefaultFontFamily},
			},
			Presets: []Preset{
				{ID: "numbered", Label: "Numbered", Props: Props{"listType": "ordered"}},
			},
		},
		{
			Type:        TypeSocial,
			Category:    CategoryContent,
			Label:       "Social links",
			Description: "Row of social network links",
			Icon:        "share-2",
			DefaultProps: Props{
				"networks": []interface{}{
					map[string]interface{}{"platform": "facebook", "url": "https://facebook.com"},
					map[string]interface{}{"platform": "x", "url": "https://x.com"},
					map[string]interface{}{"platform": "instagram", "url": "https://instagram.com"},
				},
				"iconSize":    "32px",
				"align":       "center",
				"spacing":     "8px",
				"iconBaseUrl": "",
			},
			Properties: []PropertyConfig{
				{
					Key:        "networks",
					Type:       PropertyNetworks,
					Label:      "Networks",
					Category:   CategoryContent,
					Required:   true,
					Options:    options(socialPlatforms...),
					Validation: ValidateNetworks,
				},
				sizeProperty("iconSize", "Icon size", CategoryStyle, "32px"),
				alignProperty("align", "center", alignments),
				sizeProperty("spacing", "Spacing", CategoryLayout, "8px"),
				{Key: "iconBaseUrl", Type: PropertyURL, Label: "Icon base URL", Category: CategoryStyle, Validation: ValidateURL},
			},
		},
		{
			Type:        TypeColumns,
			Category:    CategoryLayout,
			Label:       "Columns",
			Description: "Two column layout",
			Icon:        "columns",
			DefaultProps: Props{
				"leftContent":   "Left column",
				"rightContent":  "Right column",
				"leftWidth":     "50%",
				"rightWidth":    "50%",
				"gap":           "20px",
				"verticalAlign": "top",
			},
			Properties: []PropertyConfig{
				{Key: "leftContent", Type: PropertyTextarea, Label: "Left content", Category: CategoryContent},
				{Key: "rightContent", Type: PropertyTextarea, Label: "Right content", Category: CategoryContent},
				sizeProperty("leftWidth", "Left width", CategoryLayout, "50%"),
				sizeProperty("rightWidth", "Right width", CategoryLayout, "50%"),
				sizeProperty("gap", "Gap", CategoryLayout, "20px"),
				selectProperty("verticalAlign", "Vertical alignment", CategoryLayout, "top", verticalAligns),
				colorProperty("backgroundColor", "Background", ""),
				{Key: "padding", Type: PropertyText, Label: "Padding", Category: CategoryLayout},
			},
			Presets: []Preset{
				{ID: "sidebar", Label: "Sidebar", Props: Props{"leftWidth": "30%", "rightWidth": "70%"}},
			},
		},
		{
			Type:        TypeContainer,
			Category:    CategoryLayout,
			Label:       "Container",
			Description: "Boxed content with background and border",
			Icon:        "square",
			DefaultProps: Props{
				"content":         "Container content",
				"backgroundColor": "#f9fafb",
				"padding":         "20px",
				"borderRadius":    "8px",
				"borderWidth":     "0px",
				"borderStyle":     "solid",
				"borderColor":     DefaultDividerColor,
				"maxWidth":        "100%",
			},
			Properties: []PropertyConfig{
				{Key: "content", Type: PropertyTextarea, Label: "Content", Category: CategoryContent},
				colorProperty("backgroundColor", "Background", "#f9fafb"),
				sizeProperty("padding", "Padding", CategoryLayout, "20px"),
				sizeProperty("borderRadius", "Corner radius", CategoryStyle, "8px"),
				sizeProperty("borderWidth", "Border width", CategoryStyle, "0px"),
				selectProperty("borderStyle", "Border style", CategoryStyle, "solid", borderStyles),
				colorProperty("borderColor", "Border color", DefaultDividerColor),
				sizeProperty("maxWidth", "Max width", CategoryLayout, "100%"),
			},
		},
		{
			Type:        TypeGroup,
			Category:    CategoryLayout,
			Label:       "Group",
			Description: "Blocks moved and deleted together",
			Icon:        "layers",
			DefaultProps: Props{
				"name":   "Group",
				"blocks": []Block{},
			},
			Properties: []PropertyConfig{
				{Key: "name", Type: PropertyText, Label: "Name", Category: CategoryContent, DefaultValue: "Group"},
			},
		},
	}
}
