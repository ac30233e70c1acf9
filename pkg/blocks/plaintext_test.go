package blocks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainText(t *testing.T) {
	blocks := []Block{
		{ID: "a", Type: TypeText, Props: Props{"text": "Welcome aboard"}},
		{ID: "b", Type: TypeButton, Props: Props{"text": "Open app", "url": "https://app.example.com"}},
		{ID: "c", Type: TypeDivider, Props: Props{}},
		{ID: "d", Type: TypeList, Props: Props{"items": []string{"Fast", "Simple"}}},
		{ID: "e", Type: TypeSpacer, Props: Props{}},
	}
	opts := DefaultExportOptions()
	opts.Title = "Ignored title"
	opts.PreviewText = "Hidden preheader"

	text, err := PlainText(ExportToHTML(blocks, opts))
	require.NoError(t, err)

	assert.Equal(t, "Welcome aboard\n\nOpen app (https://app.example.com)\n\n----------\n\n- Fast\n- Simple", text)
}

func TestPlainTextLinks(t *testing.T) {
	doc := `<p><a href="https://a.example.com">https://a.example.com</a> and <a href="#top">top</a></p>` +
		`<a href="https://b.example.com"><img src="x.png" alt="Logo"/></a>`

	text, err := PlainText(doc)
	require.NoError(t, err)
	assert.Equal(t, "https://a.example.com and top\nLogo https://b.example.com", text)
}
