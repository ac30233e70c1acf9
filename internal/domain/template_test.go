package domain

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Notifuse/mailblocks/pkg/blocks"
)

const validTemplateID = "6f1e2d3c-4b5a-4978-8a6b-5c4d3e2f1a0b"

func TestBlockList_ScanValue(t *testing.T) {
	t.Run("bytes", func(t *testing.T) {
		raw := []byte(`[{"id":"b1","type":"text","props":{"text":"Hi"}}]`)
		var list BlockList
		require.NoError(t, list.Scan(raw))
		require.Len(t, list, 1)
		assert.Equal(t, "b1", list[0].ID)
		assert.Equal(t, blocks.TypeText, list[0].Type)

		// the scanned value must not alias the driver buffer
		copy(raw, []byte(`XXXXXXXXXXXXXXXX`))
		assert.Equal(t, "b1", list[0].ID)
	})

	t.Run("string", func(t *testing.T) {
		var list BlockList
		require.NoError(t, list.Scan(`[]`))
		assert.NotNil(t, list)
		assert.Empty(t, list)
	})

	t.Run("nil", func(t *testing.T) {
		var list BlockList
		require.NoError(t, list.Scan(nil))
		assert.NotNil(t, list)
		assert.Empty(t, list)
	})

	t.Run("null json", func(t *testing.T) {
		var list BlockList
		require.NoError(t, list.Scan([]byte(`null`)))
		assert.NotNil(t, list)
	})

	t.Run("unsupported type", func(t *testing.T) {
		var list BlockList
		assert.Error(t, list.Scan(42))
	})

	t.Run("invalid json", func(t *testing.T) {
		var list BlockList
		assert.Error(t, list.Scan([]byte(`{`)))
	})

	t.Run("value", func(t *testing.T) {
		v, err := BlockList(nil).Value()
		require.NoError(t, err)
		assert.Equal(t, []byte("[]"), v)

		v, err = BlockList{{ID: "b1", Type: blocks.TypeDivider, Props: blocks.Props{}}}.Value()
		require.NoError(t, err)
		assert.JSONEq(t, `[{"id":"b1","type":"divider","props":{}}]`, string(v.([]byte)))
	})
}

func TestTemplate_Validate(t *testing.T) {
	valid := func() *Template {
		return &Template{
			Name: "Welcome",
			Content: BlockList{
				{ID: "b1", Type: blocks.TypeText, Props: blocks.Props{"text": "Hi"}},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(t *Template)
		wantErr string
	}{
		{name: "valid", mutate: func(*Template) {}},
		{name: "valid with id", mutate: func(t *Template) { t.ID = validTemplateID }},
		{name: "bad id", mutate: func(t *Template) { t.ID = "nope" }, wantErr: "id must be a valid UUID"},
		{name: "missing name", mutate: func(t *Template) { t.Name = "" }, wantErr: "name is required"},
		{name: "name too long", mutate: func(t *Template) { t.Name = strings.Repeat("a", 256) }, wantErr: "name length"},
		{name: "description too long", mutate: func(t *Template) { t.Description = strings.Repeat("a", 1001) }, wantErr: "description length"},
		{name: "block without id", mutate: func(t *Template) { t.Content[0].ID = "" }, wantErr: "block 0 is missing an id"},
		{name: "block without type", mutate: func(t *Template) { t.Content[0].Type = "" }, wantErr: "block 0 is missing a type"},
		{name: "empty content", mutate: func(t *Template) { t.Content = nil }},
		{
			name: "duplicate block id",
			mutate: func(t *Template) {
				t.Content = append(t.Content, blocks.Block{ID: "b1", Type: blocks.TypeDivider, Props: blocks.Props{}})
			},
			wantErr: `duplicate block id "b1"`,
		},
		{
			name: "duplicate id inside group",
			mutate: func(t *Template) {
				t.Content = append(t.Content, blocks.Block{ID: "g", Type: blocks.TypeGroup, Props: blocks.Props{
					"blocks": []blocks.Block{{ID: "b1", Type: blocks.TypeSpacer, Props: blocks.Props{}}},
				}})
			},
			wantErr: `duplicate block id "b1"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl := valid()
			tt.mutate(tpl)
			err := tpl.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestDecodeBlocks(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantLen int
		wantErr string
	}{
		{name: "empty", raw: ``, wantErr: "blocks are required"},
		{name: "invalid json", raw: `[{`, wantErr: "valid JSON"},
		{name: "object", raw: `{"id":"b1"}`, wantErr: "must be an array"},
		{name: "non object element", raw: `[1]`, wantErr: "block 0 must be an object"},
		{name: "missing type", raw: `[{"id":"b1","props":{}}]`, wantErr: "block 0 is missing a type"},
		{name: "numeric type", raw: `[{"id":"b1","type":3}]`, wantErr: "block 0 is missing a type"},
		{name: "missing id", raw: `[{"id":"b1","type":"text"},{"type":"text"}]`, wantErr: "block 1 is missing an id"},
		{name: "props not object", raw: `[{"id":"b1","type":"text","props":[]}]`, wantErr: "props must be an object"},
		{name: "empty array", raw: `[]`, wantLen: 0},
		{name: "unknown type kept", raw: `[{"id":"b1","type":"carousel","props":{}}]`, wantLen: 1},
		{name: "duplicate ids", raw: `[{"id":"a","type":"text"},{"id":"a","type":"divider"}]`, wantErr: `duplicate block id "a"`},
		{
			name:    "duplicate id nested in group",
			raw:     `[{"id":"a","type":"text"},{"id":"g","type":"group","props":{"blocks":[{"id":"a","type":"spacer","props":{}}]}}]`,
			wantErr: `duplicate block id "a"`,
		},
		{
			name:    "nested group",
			raw:     `[{"id":"g","type":"group","props":{"blocks":[{"id":"c","type":"spacer","props":{"height":"10px"}}]}}]`,
			wantLen: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeBlocks(json.RawMessage(tt.raw))
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, got)
			assert.Len(t, got, tt.wantLen)
		})
	}
}

func TestCountBlocks(t *testing.T) {
	assert.Equal(t, 0, CountBlocks([]byte(`[]`)))
	assert.Equal(t, 2, CountBlocks([]byte(`[{"id":"a"},{"id":"b"}]`)))
	assert.Equal(t, 0, CountBlocks(nil))
}

func TestSaveTemplateRequest_Validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		req := SaveTemplateRequest{
			Name:     "Launch",
			Content:  json.RawMessage(`[{"id":"b1","type":"text","props":{"text":"Hi"}},{"id":"b2","type":"divider","props":{}}]`),
			IsPublic: true,
		}
		tpl, err := req.Validate()
		require.NoError(t, err)
		assert.Equal(t, "Launch", tpl.Name)
		assert.Equal(t, 2, tpl.BlockCount)
		assert.True(t, tpl.IsPublic)
		assert.Len(t, tpl.Content, 2)
	})

	t.Run("bad content", func(t *testing.T) {
		req := SaveTemplateRequest{Name: "Launch", Content: json.RawMessage(`{}`)}
		_, err := req.Validate()
		assert.ErrorContains(t, err, "content: blocks must be an array")
	})

	t.Run("missing name", func(t *testing.T) {
		req := SaveTemplateRequest{Content: json.RawMessage(`[]`)}
		_, err := req.Validate()
		assert.ErrorContains(t, err, "name is required")
	})
}

func TestListTemplatesRequest_FromURLParams(t *testing.T) {
	var req ListTemplatesRequest
	require.NoError(t, req.FromURLParams(url.Values{}))
	assert.False(t, req.IncludePublic)

	require.NoError(t, req.FromURLParams(url.Values{"include_public": {"true"}}))
	assert.True(t, req.IncludePublic)

	assert.Error(t, req.FromURLParams(url.Values{"include_public": {"maybe"}}))
}

func TestGetTemplateRequest_FromURLParams(t *testing.T) {
	var req GetTemplateRequest
	assert.ErrorContains(t, req.FromURLParams(url.Values{}), "id is required")
	assert.ErrorContains(t, req.FromURLParams(url.Values{"id": {"123"}}), "valid UUID")
	require.NoError(t, req.FromURLParams(url.Values{"id": {validTemplateID}}))
	assert.Equal(t, validTemplateID, req.ID)
}

func TestDeleteTemplateRequest_Validate(t *testing.T) {
	_, err := (&DeleteTemplateRequest{}).Validate()
	assert.Error(t, err)

	_, err = (&DeleteTemplateRequest{ID: "x"}).Validate()
	assert.Error(t, err)

	id, err := (&DeleteTemplateRequest{ID: validTemplateID}).Validate()
	require.NoError(t, err)
	assert.Equal(t, validTemplateID, id)
}

func TestErrTemplateNotFound(t *testing.T) {
	err := &ErrTemplateNotFound{Message: "template not found"}
	assert.Equal(t, "template not found", err.Error())
}
