package blocks

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"

	mjmlgo "github.com/Boostport/mjml-go"
)

// ConvertToMJML serializes blocks to an MJML document. Each block becomes
// its own section so columns map to native mj-column pairs.
func ConvertToMJML(blocks []Block, opts ExportOptions) string {
	container := opts.ContainerStyles.withDefaults()

	var sb strings.Builder
	sb.WriteString("<mjml>\n")
	sb.WriteString("  <mj-head>\n")
	if opts.Title != "" {
		sb.WriteString("    <mj-title>" + escapeContent(opts.Title) + "</mj-title>\n")
	}
	if opts.PreviewText != "" {
		sb.WriteString("    <mj-preview>" + escapeContent(opts.PreviewText) + "</mj-preview>\n")
	}
	sb.WriteString("    <mj-attributes>\n")
	sb.WriteString(`      <mj-all font-family="` + DefaultFontFamily + `" />` + "\n")
	sb.WriteString("    </mj-attributes>\n")
	sb.WriteString("  </mj-head>\n")

	sb.WriteString("  <mj-body" + formatAttributes([]Attribute{
		{Name: "background-color", Value: PageBackgroundColor},
		{Name: "width", Value: container.MaxWidth},
	}) + ">\n")
	sb.WriteString("    <mj-wrapper" + formatAttributes([]Attribute{
		{Name: "background-color", Value: container.BackgroundColor},
		{Name: "padding", Value: container.Padding},
	}) + ">\n")

	for _, b := range FlattenBlocks(blocks) {
		section := convertBlockToMJML(b)
		if section == "" {
			continue
		}
		sb.WriteString(indentLines(section, 6))
		sb.WriteString("\n")
	}

	sb.WriteString("    </mj-wrapper>\n")
	sb.WriteString("  </mj-body>\n")
	sb.WriteString("</mjml>")
	return sb.String()
}

// CompileMJML compiles an MJML document to HTML
func CompileMJML(ctx context.Context, mjml string) (string, error) {
	out, err := mjmlgo.ToHTML(ctx, mjml)
	if err != nil {
		return "", fmt.Errorf("failed to compile MJML: %w", err)
	}
	return unescapeURLAttributes(out), nil
}

func convertBlockToMJML(b Block) string {
	props, err := b.TypedProps()
	if err != nil {
		return ""
	}

	switch p := props.(type) {
	case *TextProps:
		return singleColumn(mjElement("mj-text", []Attribute{
			{Name: "font-size", Value: p.FontSize.Or(DefaultFontSize)},
			{Name: "color", Value: p.Color.Or(DefaultTextColor)},
			{Name: "align", Value: p.TextAlign.Or("left")},
			{Name: "line-height", Value: p.LineHeight.Or(DefaultLineHeight)},
			{Name: "font-family", Value: p.FontFamily.Or(DefaultFontFamily)},
			{Name: "font-weight", Value: p.FontWeight.Or("normal")},
			{Name: "padding", Value: "0"},
		}, string(p.Text)))
	case *ButtonProps:
		attrs := []Attribute{
			{Name: "href", Value: p.URL.Or("#")},
			{Name: "background-color", Value: p.BackgroundColor.Or("#3b82f6")},
			{Name: "color", Value: p.TextColor.Or("#ffffff")},
			{Name: "font-size", Value: p.FontSize.Or(DefaultFontSize)},
			{Name: "font-weight", Value: p.FontWeight.Or("bold")},
			{Name: "inner-padding", Value: p.Padding.Or("12px 24px")},
			{Name: "border-radius", Value: p.BorderRadius.Or("6px")},
			{Name: "align", Value: p.Align.Or("center")},
		}
		if p.FullWidth {
			attrs = append(attrs, Attribute{Name: "width", Value: "100%"})
		}
		return singleColumn(mjElement("mj-button", attrs, escapeContent(string(p.Text))))
	case *ImageProps:
		attrs := []Attribute{
			{Name: "src", Value: string(p.Src)},
			{Name: "alt", Value: string(p.Alt)},
			{Name: "href", Value: string(p.Link)},
			{Name: "align", Value: p.Align.Or("center")},
			{Name: "border-radius", Value: string(p.BorderRadius)},
			{Name: "padding", Value: "0"},
		}
		if width := string(p.Width); strings.HasSuffix(width, "px") {
			attrs = append(attrs, Attribute{Name: "width", Value: width})
		}
		return singleColumn(mjSelfClosing("mj-image", attrs))
	case *DividerProps:
		return singleColumn(mjSelfClosing("mj-divider", []Attribute{
			{Name: "border-color", Value: p.Color.Or(DefaultDividerColor)},
			{Name: "border-width", Value: p.Thickness.Or("1px")},
			{Name: "border-style", Value: p.Style.Or("solid")},
			{Name: "width", Value: p.Width.Or("100%")},
			{Name: "padding", Value: p.Margin.Or("20px") + " 0"},
		}))
	case *SpacerProps:
		return singleColumn(mjSelfClosing("mj-spacer", []Attribute{
			{Name: "height", Value: p.Height.Or("32px")},
		}))
	case *ListProps:
		var items strings.Builder
		tag := "ul"
		if p.ListType == "ordered" {
			tag = "ol"
		}
		items.WriteString("<" + tag + ` style="margin: 0; padding-left: 24px;">`)
		for _, item := range p.Items {
			items.WriteString("<li>" + escapeContent(item) + "</li>")
		}
		items.WriteString("</" + tag + ">")
		return singleColumn(mjElement("mj-text", []Attribute{
			{Name: "font-size", Value: p.FontSize.Or(DefaultFontSize)},
			{Name: "color", Value: p.Color.Or(DefaultTextColor)},
			{Name: "line-height", Value: p.LineHeight.Or("1.6")},
			{Name: "padding", Value: "0"},
		}, items.String()))
	case *SocialProps:
		var elements strings.Builder
		for _, n := range p.Networks {
			attrs := []Attribute{
				{Name: "name", Value: socialElementName(string(n.Platform))},
				{Name: "href", Value: string(n.URL)},
			}
			if base := strings.TrimSuffix(string(p.IconBaseURL), "/"); base != "" {
				attrs = append(attrs, Attribute{Name: "src", Value: base + "/" + string(n.Platform) + ".png"})
			}
			elements.WriteString(mjElement("mj-social-element", attrs, ""))
		}
		return singleColumn(mjElement("mj-social", []Attribute{
			{Name: "align", Value: p.Align.Or("center")},
			{Name: "icon-size", Value: p.IconSize.Or("32px")},
			{Name: "mode", Value: "horizontal"},
		}, elements.String()))
	case *ColumnsProps:
		column := func(width string, content PropString) string {
			return mjElement("mj-column", []Attribute{
				{Name: "width", Value: width},
				{Name: "vertical-align", Value: p.VerticalAlign.Or("top")},
			}, mjElement("mj-text", []Attribute{{Name: "padding", Value: "0"}}, string(content)))
		}
		return mjElement("mj-section", []Attribute{
			{Name: "background-color", Value: string(p.BackgroundColor)},
			{Name: "padding", Value: p.Padding.Or("0")},
		}, column(p.LeftWidth.Or("50%"), p.LeftContent)+column(p.RightWidth.Or("50%"), p.RightContent))
	case *ContainerProps:
		attrs := []Attribute{
			{Name: "background-color", Value: p.BackgroundColor.Or("#f9fafb")},
			{Name: "padding", Value: p.Padding.Or("20px")},
			{Name: "border-radius", Value: p.BorderRadius.Or("8px")},
		}
		if width := p.BorderWidth.Or("0px"); width != "0px" && width != "0" {
			attrs = append(attrs, Attribute{Name: "border", Value: width + " " + p.BorderStyle.Or("solid") + " " + p.BorderColor.Or(DefaultDividerColor)})
		}
		return mjElement("mj-section", attrs,
			mjElement("mj-column", nil, mjElement("mj-text", []Attribute{{Name: "padding", Value: "0"}}, string(p.Content))))
	}
	return ""
}

// socialElementName maps platforms to mj-social-element names with built-in icons
func socialElementName(platform string) string {
	switch platform {
	case "x", "tiktok", "youtube", "github", "instagram", "linkedin", "pinterest", "facebook", "twitter":
		return platform
	}
	return "web"
}

func singleColumn(content string) string {
	return mjElement("mj-section", []Attribute{{Name: "padding", Value: "0"}},
		mjElement("mj-column", nil, content))
}

func mjElement(tag string, attrs []Attribute, content string) string {
	return "<" + tag + formatAttributes(attrs) + ">" + content + "</" + tag + ">"
}

func mjSelfClosing(tag string, attrs []Attribute) string {
	return "<" + tag + formatAttributes(attrs) + " />"
}

// formatAttributes renders attributes in order, skipping empty values
func formatAttributes(attrs []Attribute) string {
	var sb strings.Builder
	for _, attr := range attrs {
		if attr.Value == "" {
			continue
		}
		fmt.Fprintf(&sb, ` %s="%s"`, attr.Name, escapeAttributeValue(attr.Value, attr.Name))
	}
	return sb.String()
}

func indentLines(s string, spaces int) string {
	pad := strings.Repeat(" ", spaces)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = pad + line
	}
	return strings.Join(lines, "\n")
}

var hrefAmp = regexp.MustCompile(`href="[^"]*"`)

// unescapeURLAttributes reverts &amp; in href values the MJML compiler re-escapes
func unescapeURLAttributes(document string) string {
	return hrefAmp.ReplaceAllStringFunc(document, func(match string) string {
		return html.UnescapeString(match)
	})
}
