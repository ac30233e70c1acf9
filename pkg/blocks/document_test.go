package blocks

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDocument(t *testing.T) *Document {
	t.Helper()
	n := 0
	return NewDocument(newTestRegistry(t), WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("gen-%d", n)
	}))
}

func textBlock(id, text string) Block {
	return Block{ID: id, Type: TypeText, Props: Props{"text": text}}
}

func ids(blocks []Block) []string {
	out := make([]string, len(blocks))
	for i, b := range blocks {
		out[i] = b.ID
	}
	return out
}

func TestDocumentSetBlocksRunsMigration(t *testing.T) {
	doc := newTestDocument(t)
	doc.SetBlocks([]Block{
		{ID: "legacy", Type: TypeText, Props: Props{"content": "Old text"}},
	})

	b, ok := doc.Find("legacy")
	require.True(t, ok)
	assert.Equal(t, "Old text", b.Props["text"])
	assert.False(t, b.Props.Has("content"))
}

func TestDocumentInsertBlock(t *testing.T) {
	doc := newTestDocument(t)
	doc.SetBlocks([]Block{textBlock("a", "A"), textBlock("b", "B")})

	id, err := doc.InsertBlock(TypeButton, 1, Props{"text": "Buy"})
	require.NoError(t, err)
	assert.Equal(t, "gen-1", id)
	assert.Equal(t, []string{"a", "gen-1", "b"}, ids(doc.Blocks()))

	inserted, _ := doc.Find(id)
	assert.Equal(t, TypeButton, inserted.Type)
	assert.Equal(t, "Buy", inserted.Props["text"])
	assert.Equal(t, "#3b82f6", inserted.Props["backgroundColor"])

	t.Run("out of range appends", func(t *testing.T) {
		id, err := doc.InsertBlock(TypeDivider, 99, nil)
		require.NoError(t, err)
		assert.Equal(t, id, doc.Blocks()[doc.Len()-1].ID)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := doc.InsertBlock("video", 0, nil)
		assert.ErrorIs(t, err, ErrUnknownBlockType)
	})

	t.Run("group", func(t *testing.T) {
		before := doc.Len()
		_, err := doc.InsertBlock(TypeGroup, 0, nil)
		assert.ErrorIs(t, err, ErrGroupInsert)
		assert.Equal(t, before, doc.Len())
	})

	t.Run("invalid override", func(t *testing.T) {
		before := doc.Len()
		_, err := doc.InsertBlock(TypeSpacer, 0, Props{"height": "tall"})

		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Contains(t, verr.Fields, "height")
		assert.Equal(t, before, doc.Len())
	})
}

func TestDocumentDeleteBlock(t *testing.T) {
	doc := newTestDocument(t)
	doc.SetBlocks([]Block{textBlock("a", "A"), textBlock("b", "B")})

	assert.True(t, doc.DeleteBlock("a"))
	assert.Equal(t, []string{"b"}, ids(doc.Blocks()))

	assert.False(t, doc.DeleteBlock("a"))
	assert.Equal(t, []string{"b"}, ids(doc.Blocks()))
}

func TestDocumentDuplicateBlock(t *testing.T) {
	doc := newTestDocument(t)
	doc.SetBlocks([]Block{textBlock("a", "A"), textBlock("b", "B")})

	dupID, ok := doc.DuplicateBlock("a")
	require.True(t, ok)
	assert.NotEqual(t, "a", dupID)
	assert.Equal(t, []string{"a", "b", dupID}, ids(doc.Blocks()))

	dup, _ := doc.Find(dupID)
	assert.True(t, dup.IsDuplicate)
	assert.Equal(t, "A", dup.Props["text"])

	t.Run("copies are independent", func(t *testing.T) {
		require.NoError(t, doc.UpdateProperty(dupID, "text", "Changed"))
		original, _ := doc.Find("a")
		assert.Equal(t, "A", original.Props["text"])

		require.NoError(t, doc.UpdateProperty("a", "color", "#ff0000"))
		dup, _ := doc.Find(dupID)
		assert.False(t, dup.Props.Has("color"))
	})

	t.Run("missing id", func(t *testing.T) {
		id, ok := doc.DuplicateBlock("missing")
		assert.False(t, ok)
		assert.Empty(t, id)
	})
}

func TestDocumentDuplicateGroupRenewsNestedIDs(t *testing.T) {
	doc := newTestDocument(t)
	doc.SetBlocks([]Block{textBlock("a", "A"), textBlock("b", "B")})

	groupID, ok := doc.CreateGroup([]string{"a", "b"})
	require.True(t, ok)

	dupID, ok := doc.DuplicateBlock(groupID)
	require.True(t, ok)

	dup, _ := doc.Find(dupID)
	children := dup.Children()
	require.Len(t, children, 2)
	assert.NotContains(t, []string{"a", "b"}, children[0].ID)
	assert.NotContains(t, []string{"a", "b"}, children[1].ID)
	assert.NotEqual(t, children[0].ID, children[1].ID)

	original, _ := doc.Find(groupID)
	assert.Equal(t, []string{"a", "b"}, ids(original.Children()))
}

func TestDocumentBlocksReturnsCopies(t *testing.T) {
	doc := newTestDocument(t)
	doc.SetBlocks([]Block{textBlock("a", "A")})

	snapshot := doc.Blocks()
	snapshot[0].Props["text"] = "mutated"

	b, _ := doc.Find("a")
	assert.Equal(t, "A", b.Props["text"])
}

func TestDocumentUpdateBlock(t *testing.T) {
	doc := newTestDocument(t)
	doc.SetBlocks([]Block{textBlock("a", "A")})

	t.Run("replaces props wholesale", func(t *testing.T) {
		err := doc.UpdateBlock("a", Props{"text": "B", "fontSize": "18px"})
		require.NoError(t, err)

		b, _ := doc.Find("a")
		assert.Equal(t, Props{"text": "B", "fontSize": "18px"}, b.Props)
	})

	t.Run("rejects invalid values and keeps previous props", func(t *testing.T) {
		err := doc.UpdateBlock("a", Props{"text": "C", "fontSize": "12", "textAlign": "middle"})

		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "must be a number followed by px, %, rem or em", verr.Fields["fontSize"])
		assert.Equal(t, "must be one of: left, center, right, justify", verr.Fields["textAlign"])

		b, _ := doc.Find("a")
		assert.Equal(t, "B", b.Props["text"])
	})

	t.Run("required property cannot be removed", func(t *testing.T) {
		err := doc.UpdateBlock("a", Props{"fontSize": "18px"})
		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "Text is required", verr.Fields["text"])
	})

	t.Run("transforms before storing", func(t *testing.T) {
		listID, err := doc.InsertBlock(TypeList, -1, nil)
		require.NoError(t, err)

		require.NoError(t, doc.UpdateProperty(listID, "items", "One\nTwo, Three"))
		b, _ := doc.Find(listID)
		assert.Equal(t, []string{"One", "Two", "Three"}, b.Props["items"])

		err = doc.UpdateProperty(listID, "items", "\n")
		assert.Error(t, err)

		err = doc.UpdateProperty(listID, "items", []interface{}{"a", 1.0})
		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "item 2 must be text", verr.Fields["items"])

		err = doc.UpdateBlock(listID, Props{"items": []interface{}{"a", map[string]interface{}{"x": 1.0}}})
		require.True(t, errors.As(err, &verr))
		assert.Contains(t, verr.Fields, "items")

		b, _ = doc.Find(listID)
		assert.Equal(t, []string{"One", "Two", "Three"}, b.Props["items"])
	})

	t.Run("missing block", func(t *testing.T) {
		err := doc.UpdateBlock("missing", Props{"text": "x"})
		assert.ErrorIs(t, err, ErrBlockNotFound)
		assert.ErrorIs(t, doc.UpdateProperty("missing", "text", "x"), ErrBlockNotFound)
	})

	t.Run("caller map is not retained", func(t *testing.T) {
		props := Props{"text": "Mine"}
		require.NoError(t, doc.UpdateBlock("a", props))
		props["text"] = "changed later"

		b, _ := doc.Find("a")
		assert.Equal(t, "Mine", b.Props["text"])
	})
}

func TestDocumentMoveBlock(t *testing.T) {
	doc := newTestDocument(t)
	doc.SetBlocks([]Block{textBlock("a", "A"), textBlock("b", "B"), textBlock("c", "C"), textBlock("d", "D")})

	assert.True(t, doc.MoveBlock(0, 2))
	assert.Equal(t, []string{"b", "c", "a", "d"}, ids(doc.Blocks()))

	assert.True(t, doc.MoveBlock(3, 0))
	assert.Equal(t, []string{"d", "b", "c", "a"}, ids(doc.Blocks()))

	assert.True(t, doc.MoveBlock(1, 1))
	assert.False(t, doc.MoveBlock(-1, 0))
	assert.False(t, doc.MoveBlock(0, 4))
	assert.Equal(t, []string{"d", "b", "c", "a"}, ids(doc.Blocks()))

	moved, _ := doc.Find("a")
	assert.Equal(t, "A", moved.Props["text"])
}

func TestDocumentCreateGroup(t *testing.T) {
	doc := newTestDocument(t)
	blocks := []Block{textBlock("b0", "0"), textBlock("b1", "1"), textBlock("b2", "2"), textBlock("b3", "3")}
	doc.SetBlocks(blocks)

	groupID, ok := doc.CreateGroup([]string{"b3", "b1"})
	require.True(t, ok)

	result := doc.Blocks()
	require.Len(t, result, 3)
	assert.Equal(t, []string{"b0", groupID, "b2"}, ids(result))
	assert.Equal(t, TypeGroup, result[1].Type)
	assert.Equal(t, []string{"b1", "b3"}, ids(result[1].Children()))

	t.Run("needs two blocks", func(t *testing.T) {
		_, ok := doc.CreateGroup([]string{"b0"})
		assert.False(t, ok)

		_, ok = doc.CreateGroup([]string{"b0", "missing"})
		assert.False(t, ok)
		assert.Len(t, doc.Blocks(), 3)
	})
}

func TestDocumentUngroupInvertsCreateGroup(t *testing.T) {
	doc := newTestDocument(t)
	blocks := []Block{textBlock("b0", "0"), textBlock("b1", "1"), textBlock("b2", "2"), textBlock("b3", "3"), textBlock("b4", "4")}
	doc.SetBlocks(blocks)

	groupID, ok := doc.CreateGroup([]string{"b4", "b1", "b3"})
	require.True(t, ok)
	require.True(t, doc.Ungroup(groupID))

	result := doc.Blocks()
	assert.Equal(t, []string{"b0", "b1", "b3", "b4", "b2"}, ids(result))
	for _, b := range result {
		original := blocks[0]
		for _, candidate := range blocks {
			if candidate.ID == b.ID {
				original = candidate
			}
		}
		assert.Equal(t, original, b)
	}
}

func TestDocumentUngroupNoop(t *testing.T) {
	doc := newTestDocument(t)
	doc.SetBlocks([]Block{textBlock("a", "A")})

	assert.False(t, doc.Ungroup("a"))
	assert.False(t, doc.Ungroup("missing"))
	assert.Equal(t, []string{"a"}, ids(doc.Blocks()))
}

func TestDocumentUngroupDecodedGroup(t *testing.T) {
	doc := newTestDocument(t)
	doc.SetBlocks([]Block{{
		ID:   "g",
		Type: TypeGroup,
		Props: Props{"blocks": []interface{}{
			map[string]interface{}{"id": "x", "type": "text", "props": map[string]interface{}{"text": "X"}},
			map[string]interface{}{"id": "y", "type": "spacer", "props": map[string]interface{}{}},
		}},
	}})

	require.True(t, doc.Ungroup("g"))
	assert.Equal(t, []string{"x", "y"}, ids(doc.Blocks()))
}

func TestCheckUniqueIDs(t *testing.T) {
	group := Block{ID: "g", Type: TypeGroup, Props: Props{"blocks": []Block{textBlock("c", "C")}}}

	assert.NoError(t, CheckUniqueIDs([]Block{textBlock("a", "A"), group}))
	assert.NoError(t, CheckUniqueIDs(nil))

	err := CheckUniqueIDs([]Block{textBlock("a", "A"), textBlock("a", "B")})
	assert.ErrorIs(t, err, ErrDuplicateBlockID)

	err = CheckUniqueIDs([]Block{textBlock("c", "A"), group})
	assert.ErrorIs(t, err, ErrDuplicateBlockID)
	assert.ErrorContains(t, err, `"c"`)
}
