package blocks

import (
	"fmt"
	"strings"
)

// Attribute is one HTML attribute, rendered in the order given
type Attribute struct {
	Name  string
	Value string
}

// RenderContext carries the export targets down to content generators
type RenderContext struct {
	compat  *Compatibility
	clients []string
}

// Inline serializes nested element styles with the same client fallbacks
// as the outer element
func (rc *RenderContext) Inline(s Styles) string {
	if rc == nil || rc.compat == nil {
		return s.String()
	}
	return rc.compat.Apply(s, rc.clients).String()
}

// RenderConfig is the HTML recipe of one block type. A config without
// Content renders a self-closing tag.
type RenderConfig struct {
	TagName    string
	Tag        func(BlockProps) string
	Styles     func(BlockProps) Styles
	Attributes func(BlockProps) []Attribute
	Content    func(BlockProps, *RenderContext) string
	Wrap       func(BlockProps, string) string
}

type RendererOption func(*Renderer)

func WithCompatibility(c *Compatibility) RendererOption {
	return func(r *Renderer) {
		r.compat = c
	}
}

// Renderer turns blocks into HTML fragments. Configs are registered at
// construction; rendering is safe for concurrent use afterwards.
type Renderer struct {
	configs map[BlockType]RenderConfig
	compat  *Compatibility
}

func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{
		configs: builtinRenderConfigs(),
		compat:  NewCompatibility(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register sets the recipe for t, replacing any existing one
func (r *Renderer) Register(t BlockType, cfg RenderConfig) {
	r.configs[t] = cfg
}

func (r *Renderer) Compatibility() *Compatibility {
	return r.compat
}

// RenderBlock renders b without client fallbacks
func (r *Renderer) RenderBlock(b Block) string {
	return r.RenderBlockFor(b, nil)
}

// RenderBlockFor renders b with fallbacks for the target clients.
// Blocks without a recipe, groups included, render to an empty string.
func (r *Renderer) RenderBlockFor(b Block, clients []string) string {
	cfg, ok := r.configs[b.Type]
	if !ok {
		return ""
	}
	props, err := b.TypedProps()
	if err != nil {
		return ""
	}

	tag := cfg.TagName
	if cfg.Tag != nil {
		tag = cfg.Tag(props)
	}
	if tag == "" {
		return ""
	}

	rc := &RenderContext{compat: r.compat, clients: clients}

	var sb strings.Builder
	sb.WriteString("<" + tag)
	if cfg.Attributes != nil {
		for _, attr := range cfg.Attributes(props) {
			fmt.Fprintf(&sb, ` %s="%s"`, attr.Name, escapeAttributeValue(attr.Value, attr.Name))
		}
	}
	if cfg.Styles != nil {
		if css := rc.Inline(cfg.Styles(props)); css != "" {
			fmt.Fprintf(&sb, ` style="%s"`, escapeStyleValue(css))
		}
	}

	if cfg.Content == nil {
		sb.WriteString("/>")
	} else {
		sb.WriteString(">")
		sb.WriteString(cfg.Content(props, rc))
		sb.WriteString("</" + tag + ">")
	}

	fragment := sb.String()
	if cfg.Wrap != nil {
		fragment = cfg.Wrap(props, fragment)
	}
	return fragment
}

// escapeAttributeValue escapes attribute values for safe HTML output.
// For URL attributes (src, href) & is kept so query strings survive.
func escapeAttributeValue(value string, attributeName string) string {
	isURLAttribute := attributeName == "src" || attributeName == "href"
	looksLikeURL := strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") || strings.HasPrefix(value, "//")

	if !(isURLAttribute && looksLikeURL) {
		value = strings.ReplaceAll(value, "&", "&amp;")
	}
	value = strings.ReplaceAll(value, "\"", "&quot;")
	value = strings.ReplaceAll(value, "<", "&lt;")
	value = strings.ReplaceAll(value, ">", "&gt;")
	return value
}

func escapeStyleValue(css string) string {
	return strings.ReplaceAll(css, "\"", "&quot;")
}

// escapeContent escapes plain text placed between tags
func escapeContent(content string) string {
	content = strings.ReplaceAll(content, "&", "&amp;")
	content = strings.ReplaceAll(content, "<", "&lt;")
	content = strings.ReplaceAll(content, ">", "&gt;")
	return content
}

func typedTag[P BlockProps](fn func(P) string) func(BlockProps) string {
	return func(bp BlockProps) string {
		if p, ok := bp.(P); ok {
			return fn(p)
		}
		return ""
	}
}

func typedAttributes[P BlockProps](fn func(P) []Attribute) func(BlockProps) []Attribute {
	return func(bp BlockProps) []Attribute {
		if p, ok := bp.(P); ok {
			return fn(p)
		}
		return nil
	}
}

func typedContent[P BlockProps](fn func(P, *RenderContext) string) func(BlockProps, *RenderContext) string {
	return func(bp BlockProps, rc *RenderContext) string {
		if p, ok := bp.(P); ok {
			return fn(p, rc)
		}
		return ""
	}
}

func typedWrap[P BlockProps](fn func(P, string) string) func(BlockProps, string) string {
	return func(bp BlockProps, fragment string) string {
		if p, ok := bp.(P); ok {
			return fn(p, fragment)
		}
		return fragment
	}
}

func builtinRenderConfigs() map[BlockType]RenderConfig {
	return map[BlockType]RenderConfig{
		TypeText: {
			TagName: "p",
			Styles:  stylesFor,
			Content: typedContent(func(p *TextProps, _ *RenderContext) string {
				return string(p.Text)
			}),
		},
		TypeButton: {
			TagName: "div",
			Styles:  stylesFor,
			Content: typedContent(func(p *ButtonProps, rc *RenderContext) string {
				return fmt.Sprintf(`<a href="%s" target="_blank" style="%s">%s</a>`,
					escapeAttributeValue(p.URL.Or("#"), "href"),
					escapeStyleValue(rc.Inline(buttonLinkStyles(p))),
					escapeContent(string(p.Text)))
			}),
		},
		TypeImage: {
			TagName: "img",
			Styles:  stylesFor,
			Attributes: typedAttributes(func(p *ImageProps) []Attribute {
				attrs := []Attribute{
					{Name: "src", Value: string(p.Src)},
					{Name: "alt", Value: string(p.Alt)},
				}
				if width := string(p.Width); strings.HasSuffix(width, "px") {
					attrs = append(attrs, Attribute{Name: "width", Value: strings.TrimSuffix(width, "px")})
				}
				return attrs
			}),
			Wrap: typedWrap(func(p *ImageProps, fragment string) string {
				if p.Link == "" {
					return fragment
				}
				return fmt.Sprintf(`<a href="%s" target="_blank">%s</a>`, escapeAttributeValue(string(p.Link), "href"), fragment)
			}),
		},
		TypeDivider: {
			TagName: "hr",
			Styles:  stylesFor,
		},
		TypeSpacer: {
			TagName: "div",
			Styles:  stylesFor,
			Content: typedContent(func(*SpacerProps, *RenderContext) string {
				return "&nbsp;"
			}),
		},
		TypeList: {
			TagName: "ul",
			Tag: typedTag(func(p *ListProps) string {
				if p.ListType == "ordered" {
					return "ol"
				}
				return "ul"
			}),
			Styles: stylesFor,
			Content: typedContent(func(p *ListProps, _ *RenderContext) string {
				var sb strings.Builder
				for _, item := range p.Items {
					sb.WriteString(`<li style="margin: 0 0 4px 0;">` + escapeContent(item) + "</li>")
				}
				return sb.String()
			}),
		},
		TypeSocial: {
			TagName: "div",
			Styles:  stylesFor,
			Content: typedContent(renderSocialLinks),
		},
		TypeColumns: {
			TagName: "div",
			Styles:  stylesFor,
			Content: typedContent(func(p *ColumnsProps, rc *RenderContext) string {
				left := rc.Inline(columnStyles(p.LeftWidth.Or("50%"), p))
				right := rc.Inline(columnStyles(p.RightWidth.Or("50%"), p))
				return fmt.Sprintf(`<div style="%s">%s</div><div style="%s">%s</div>`,
					escapeStyleValue(left), p.LeftContent,
					escapeStyleValue(right), p.RightContent)
			}),
		},
		TypeContainer: {
			TagName: "div",
			Styles:  stylesFor,
			Content: typedContent(func(p *ContainerProps, _ *RenderContext) string {
				return string(p.Content)
			}),
		},
	}
}

var platformLabels = map[string]string{
	"facebook":  "Facebook",
	"twitter":   "Twitter",
	"x":         "X",
	"instagram": "Instagram",
	"linkedin":  "LinkedIn",
	"youtube":   "YouTube",
	"tiktok":    "TikTok",
	"pinterest": "Pinterest",
	"github":    "GitHub",
}

func platformLabel(platform string) string {
	if label, ok := platformLabels[platform]; ok {
		return label
	}
	if platform == "" {
		return ""
	}
	return strings.ToUpper(platform[:1]) + platform[1:]
}

func renderSocialLinks(p *SocialProps, rc *RenderContext) string {
	linkStyle := escapeStyleValue(rc.Inline(socialLinkStyles(p)))
	iconStyle := escapeStyleValue(rc.Inline(socialIconStyles(p)))
	base := strings.TrimSuffix(string(p.IconBaseURL), "/")
	size := strings.TrimSuffix(p.IconSize.Or("32px"), "px")

	var sb strings.Builder
	for _, n := range p.Networks {
		platform := string(n.Platform)
		label := platformLabel(platform)

		inner := escapeContent(label)
		if base != "" {
			inner = fmt.Sprintf(`<img src="%s" alt="%s" width="%s" height="%s" style="%s"/>`,
				escapeAttributeValue(base+"/"+platform+".png", "src"),
				escapeAttributeValue(label, "alt"),
				size, size, iconStyle)
		}
		fmt.Fprintf(&sb, `<a href="%s" target="_blank" style="%s">%s</a>`,
			escapeAttributeValue(string(n.URL), "href"), linkStyle, inner)
	}
	return sb.String()
}
