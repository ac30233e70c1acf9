package blocks

import (
	"regexp"
	"strings"
)

const (
	DefaultFontSize     = "16px"
	DefaultTextColor    = "#333333"
	DefaultLineHeight   = "1.5"
	DefaultFontFamily   = "Arial, Helvetica, sans-serif"
	DefaultDividerColor = "#e5e7eb"
)

// ClientSupport is the capability of one email client for one CSS property
type ClientSupport struct {
	Supported bool   `json:"supported"`
	Fallback  string `json:"fallback,omitempty"`
}

// StyleConfig is a single CSS declaration
type StyleConfig struct {
	Property     string                   `json:"property"`
	Value        string                   `json:"value"`
	Important    bool                     `json:"important,omitempty"`
	Responsive   bool                     `json:"responsive,omitempty"`
	EmailClients map[string]ClientSupport `json:"emailClients,omitempty"`
}

// Styles is an ordered list of declarations. Order is kept on output.
type Styles []StyleConfig

// Add appends a declaration, skipping empty values
func (s Styles) Add(property, value string) Styles {
	if value == "" {
		return s
	}
	return append(s, StyleConfig{Property: property, Value: value})
}

// Get returns the value of the last declaration of property
func (s Styles) Get(property string) (string, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i].Property == property {
			return s[i].Value, true
		}
	}
	return "", false
}

// String serializes the declarations to inline CSS
func (s Styles) String() string {
	parts := make([]string, 0, len(s))
	for _, decl := range s {
		value := decl.Value
		if decl.Important {
			value += " !important"
		}
		parts = append(parts, camelToKebab(decl.Property)+": "+value+";")
	}
	return strings.Join(parts, " ")
}

var upperCase = regexp.MustCompile("([A-Z])")

func camelToKebab(str string) string {
	return upperCase.ReplaceAllStringFunc(str, func(match string) string {
		return "-" + strings.ToLower(match)
	})
}

// GenerateStyles returns the declarations of the outer element of b.
// Unknown types and undecodable props yield no declarations.
func GenerateStyles(b Block) Styles {
	props, err := b.TypedProps()
	if err != nil {
		return nil
	}
	return stylesFor(props)
}

func stylesFor(props BlockProps) Styles {
	switch p := props.(type) {
	case *TextProps:
		return textStyles(p)
	case *ButtonProps:
		return buttonStyles(p)
	case *ImageProps:
		return imageStyles(p)
	case *DividerProps:
		return dividerStyles(p)
	case *SpacerProps:
		return spacerStyles(p)
	case *ListProps:
		return listStyles(p)
	case *SocialProps:
		return socialStyles(p)
	case *ColumnsProps:
		return columnsStyles(p)
	case *ContainerProps:
		return containerStyles(p)
	case *GroupProps:
		return nil
	}
	return nil
}

func textStyles(p *TextProps) Styles {
	return Styles{}.
		Add("margin", "0").
		Add("padding", "0").
		Add("fontSize", p.FontSize.Or(DefaultFontSize)).
		Add("color", p.Color.Or(DefaultTextColor)).
		Add("textAlign", p.TextAlign.Or("left")).
		Add("lineHeight", p.LineHeight.Or(DefaultLineHeight)).
		Add("fontFamily", p.FontFamily.Or(DefaultFontFamily)).
		Add("fontWeight", p.FontWeight.Or("normal"))
}

func buttonStyles(p *ButtonProps) Styles {
	return Styles{}.
		Add("textAlign", p.Align.Or("center")).
		Add("padding", "10px 0")
}

func buttonLinkStyles(p *ButtonProps) Styles {
	display := "inline-block"
	if p.FullWidth {
		display = "block"
	}
	return Styles{}.
		Add("display", display).
		Add("backgroundColor", p.BackgroundColor.Or("#3b82f6")).
		Add("color", p.TextColor.Or("#ffffff")).
		Add("fontFamily", DefaultFontFamily).
		Add("fontSize", p.FontSize.Or(DefaultFontSize)).
		Add("fontWeight", p.FontWeight.Or("bold")).
		Add("padding", p.Padding.Or("12px 24px")).
		Add("borderRadius", p.BorderRadius.Or("6px")).
		Add("textDecoration", "none").
		Add("textAlign", "center")
}

func imageStyles(p *ImageProps) Styles {
	margin := "0 auto"
	switch p.Align {
	case "left":
		margin = "0"
	case "right":
		margin = "0 0 0 auto"
	}
	return Styles{}.
		Add("display", "block").
		Add("width", p.Width.Or("100%")).
		Add("maxWidth", "100%").
		Add("height", "auto").
		Add("margin", margin).
		Add("border", "0").
		Add("borderRadius", string(p.BorderRadius))
}

func dividerStyles(p *DividerProps) Styles {
	return Styles{}.
		Add("border", "none").
		Add("borderTop", p.Thickness.Or("1px")+" "+p.Style.Or("solid")+" "+p.Color.Or(DefaultDividerColor)).
		Add("width", p.Width.Or("100%")).
		Add("margin", p.Margin.Or("20px")+" auto")
}

func spacerStyles(p *SpacerProps) Styles {
	height := p.Height.Or("32px")
	s := Styles{}.
		Add("height", height).
		Add("lineHeight", height).
		Add("fontSize", "1px")
	if bg := string(p.BackgroundColor); bg != "" && bg != "transparent" {
		s = s.Add("backgroundColor", bg)
	}
	return s
}

func listStyles(p *ListProps) Styles {
	return Styles{}.
		Add("margin", "0").
		Add("paddingLeft", "24px").
		Add("fontSize", p.FontSize.Or(DefaultFontSize)).
		Add("color", p.Color.Or(DefaultTextColor)).
		Add("lineHeight", p.LineHeight.Or("1.6")).
		Add("fontFamily", p.FontFamily.Or(DefaultFontFamily))
}

func socialStyles(p *SocialProps) Styles {
	return Styles{}.
		Add("textAlign", p.Align.Or("center")).
		Add("padding", "10px 0")
}

func socialLinkStyles(p *SocialProps) Styles {
	return Styles{}.
		Add("display", "inline-block").
		Add("margin", "0 "+p.Spacing.Or("8px")).
		Add("fontFamily", DefaultFontFamily).
		Add("fontSize", "14px").
		Add("color", DefaultTextColor).
		Add("textDecoration", "none")
}

func socialIconStyles(p *SocialProps) Styles {
	size := p.IconSize.Or("32px")
	return Styles{}.
		Add("display", "block").
		Add("width", size).
		Add("height", size).
		Add("border", "0")
}

func columnsStyles(p *ColumnsProps) Styles {
	return Styles{}.
		Add("display", "flex").
		Add("gap", p.Gap.Or("20px")).
		Add("width", "100%").
		Add("backgroundColor", string(p.BackgroundColor)).
		Add("padding", string(p.Padding))
}

func columnStyles(width string, p *ColumnsProps) Styles {
	align := map[string]string{"top": "flex-start", "middle": "center", "bottom": "flex-end"}[p.VerticalAlign.Or("top")]
	return Styles{}.
		Add("flex", "0 0 "+width).
		Add("width", width).
		Add("alignSelf", align).
		Add("verticalAlign", p.VerticalAlign.Or("top"))
}

func containerStyles(p *ContainerProps) Styles {
	s := Styles{}.
		Add("backgroundColor", p.BackgroundColor.Or("#f9fafb")).
		Add("padding", p.Padding.Or("20px")).
		Add("borderRadius", p.BorderRadius.Or("8px"))
	if width := p.BorderWidth.Or("0px"); width != "0px" && width != "0" {
		s = s.Add("border", width+" "+p.BorderStyle.Or("solid")+" "+p.BorderColor.Or(DefaultDividerColor))
	}
	return s.
		Add("maxWidth", p.MaxWidth.Or("100%")).
		Add("margin", "0 auto")
}
