package blocks

import (
	"context"
	"html"
	"regexp"
	"strings"

	"github.com/Notifuse/mailblocks/pkg/logger"
)

// PageBackgroundColor is the body background of exported documents
const PageBackgroundColor = "#f4f4f5"

type ContainerStyles struct {
	MaxWidth        string `json:"maxWidth,omitempty"`
	Margin          string `json:"margin,omitempty"`
	Padding         string `json:"padding,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
}

// DefaultContainerStyles centers a 600px white column
func DefaultContainerStyles() ContainerStyles {
	return ContainerStyles{
		MaxWidth:        "600px",
		Margin:          "0 auto",
		Padding:         "20px",
		BackgroundColor: "#ffffff",
	}
}

// withDefaults fills empty fields from the defaults
func (c ContainerStyles) withDefaults() ContainerStyles {
	def := DefaultContainerStyles()
	if c.MaxWidth == "" {
		c.MaxWidth = def.MaxWidth
	}
	if c.Margin == "" {
		c.Margin = def.Margin
	}
	if c.Padding == "" {
		c.Padding = def.Padding
	}
	if c.BackgroundColor == "" {
		c.BackgroundColor = def.BackgroundColor
	}
	return c
}

func (c ContainerStyles) styles() Styles {
	return Styles{}.
		Add("maxWidth", c.MaxWidth).
		Add("margin", c.Margin).
		Add("padding", c.Padding).
		Add("backgroundColor", c.BackgroundColor)
}

// ExportOptions controls ExportToHTML. Start from DefaultExportOptions;
// the zero value disables the document shell and the container.
type ExportOptions struct {
	Minify            bool                   `json:"minify"`
	Doctype           bool                   `json:"doctype"`
	WrapWithContainer bool                   `json:"wrapWithContainer"`
	ContainerStyles   ContainerStyles        `json:"containerStyles"`
	Title             string                 `json:"title,omitempty"`
	PreviewText       string                 `json:"previewText,omitempty"`
	EmailClients      []string               `json:"emailClients,omitempty"`
	TemplateData      map[string]interface{} `json:"templateData,omitempty"`
}

func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		Minify:            false,
		Doctype:           true,
		WrapWithContainer: true,
		ContainerStyles:   DefaultContainerStyles(),
	}
}

type ExporterOption func(*Exporter)

func WithExportLogger(log logger.Logger) ExporterOption {
	return func(e *Exporter) {
		e.logger = log
	}
}

func WithMergeTagEngine(engine *MergeTagEngine) ExporterOption {
	return func(e *Exporter) {
		e.mergeTags = engine
	}
}

// Exporter serializes block sequences to self-contained HTML documents
type Exporter struct {
	renderer  *Renderer
	mergeTags *MergeTagEngine
	logger    logger.Logger
}

func NewExporter(renderer *Renderer, opts ...ExporterOption) *Exporter {
	e := &Exporter{
		renderer:  renderer,
		mergeTags: NewMergeTagEngine(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compatibility returns the client table used for exports
func (e *Exporter) Compatibility() *Compatibility {
	return e.renderer.Compatibility()
}

// ExportToHTML renders blocks with a fresh default renderer
func ExportToHTML(blocks []Block, opts ExportOptions) string {
	return NewExporter(NewRenderer()).ExportToHTML(context.Background(), blocks, opts)
}

// FlattenBlocks replaces every group by its members, recursively
func FlattenBlocks(blocks []Block) []Block {
	out := make([]Block, 0, len(blocks))
	for _, b := range blocks {
		if b.Type == TypeGroup {
			out = append(out, FlattenBlocks(b.Children())...)
			continue
		}
		out = append(out, b)
	}
	return out
}

// RenderFragments renders each block of the flattened sequence. Blocks that
// cannot be rendered are dropped.
func (e *Exporter) RenderFragments(ctx context.Context, blocks []Block, opts ExportOptions) []string {
	fragments := []string{}
	for _, b := range FlattenBlocks(blocks) {
		fragment := e.renderer.RenderBlockFor(b, opts.EmailClients)
		if fragment == "" {
			continue
		}
		if opts.TemplateData != nil {
			fragment = e.mergeFragment(ctx, b.ID, fragment, opts.TemplateData)
		}
		fragments = append(fragments, fragment)
	}
	return fragments
}

func (e *Exporter) mergeFragment(ctx context.Context, blockID, fragment string, data map[string]interface{}) string {
	rendered, err := e.mergeTags.Render(ctx, fragment, data)
	if err != nil {
		if e.logger != nil {
			e.logger.WithFields(map[string]interface{}{
				"block_id": blockID,
				"error":    err.Error(),
			}).Warn("Failed to render merge tags, keeping raw fragment")
		}
		return fragment
	}
	return rendered
}

// ExportToHTML serializes blocks. Output is byte-identical for identical input.
func (e *Exporter) ExportToHTML(ctx context.Context, blocks []Block, opts ExportOptions) string {
	body := strings.Join(e.RenderFragments(ctx, blocks, opts), "\n")

	if opts.WrapWithContainer {
		container := opts.ContainerStyles.withDefaults()
		css := e.renderer.Compatibility().Apply(container.styles(), opts.EmailClients).String()
		body = `<div style="` + escapeStyleValue(css) + `">` + "\n" + body + "\n" + "</div>"
	}

	if opts.PreviewText != "" {
		body = previewTextDiv(opts.PreviewText) + "\n" + body
	}

	out := body
	if opts.Doctype {
		out = documentShell(opts.Title, body)
	}

	if opts.Minify {
		out = Minify(out)
	}
	return out
}

func previewTextDiv(text string) string {
	return `<div style="display: none; max-height: 0; overflow: hidden; mso-hide: all;">` + html.EscapeString(text) + `</div>`
}

func documentShell(title, body string) string {
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString(`<html lang="en">` + "\n")
	sb.WriteString("<head>\n")
	sb.WriteString(`<meta charset="UTF-8">` + "\n")
	sb.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1.0">` + "\n")
	sb.WriteString(`<meta name="color-scheme" content="light">` + "\n")
	sb.WriteString(`<meta name="supported-color-schemes" content="light">` + "\n")
	sb.WriteString("<title>" + html.EscapeString(title) + "</title>\n")
	sb.WriteString("</head>\n")
	sb.WriteString(`<body style="margin: 0; padding: 0; background-color: ` + PageBackgroundColor + `;">` + "\n")
	sb.WriteString(body)
	sb.WriteString("\n</body>\n")
	sb.WriteString("</html>")
	return sb.String()
}

var interTagWhitespace = regexp.MustCompile(`>\s+<`)

// Minify removes whitespace between tags. Text, attributes and styles are untouched.
func Minify(document string) string {
	return strings.TrimSpace(interTagWhitespace.ReplaceAllString(document, "><"))
}
