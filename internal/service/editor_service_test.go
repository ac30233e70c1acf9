package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Notifuse/mailblocks/internal/domain"
	"github.com/Notifuse/mailblocks/pkg/blocks"
	"github.com/Notifuse/mailblocks/pkg/logger"
)

func setupEditorService(t *testing.T) *EditorService {
	log := logger.NewTestLogger(t)
	registry := blocks.NewRegistry(log)
	require.NoError(t, registry.InitializeBuiltins())

	n := 0
	gen := func() string {
		n++
		return fmt.Sprintf("gen-%d", n)
	}
	return NewEditorService(registry, log, blocks.WithIDGenerator(gen))
}

func intPtr(i int) *int { return &i }

func blockIDs(list []blocks.Block) []string {
	out := make([]string, len(list))
	for i, b := range list {
		out[i] = b.ID
	}
	return out
}

func TestEditorService_Registry(t *testing.T) {
	svc := setupEditorService(t)

	configs := svc.Registry(context.Background())
	require.Len(t, configs, len(blocks.AllBlockTypes))
	assert.Equal(t, blocks.TypeText, configs[0].Type)
}

func TestEditorService_ValidateProperty(t *testing.T) {
	svc := setupEditorService(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		req       domain.ValidatePropertyRequest
		wantValid bool
		wantValue interface{}
		wantError string
	}{
		{
			name:      "valid size",
			req:       domain.ValidatePropertyRequest{BlockType: blocks.TypeSpacer, Key: "height", Value: "12px"},
			wantValid: true,
			wantValue: "12px",
		},
		{
			name:      "size without unit",
			req:       domain.ValidatePropertyRequest{BlockType: blocks.TypeSpacer, Key: "height", Value: "12"},
			wantValid: false,
			wantValue: "12",
			wantError: "must be a number followed by px, %, rem or em",
		},
		{
			name:      "size with unit object is normalized",
			req:       domain.ValidatePropertyRequest{BlockType: blocks.TypeSpacer, Key: "height", Value: map[string]interface{}{"value": 24, "unit": "px"}},
			wantValid: true,
			wantValue: "24px",
		},
		{
			name:      "required text",
			req:       domain.ValidatePropertyRequest{BlockType: blocks.TypeText, Key: "text", Value: ""},
			wantValid: false,
			wantValue: "",
			wantError: "Text is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.ValidateProperty(ctx, tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, resp.Valid)
			assert.Equal(t, tt.wantValue, resp.Value)
			assert.Equal(t, tt.wantError, resp.Error)
		})
	}

	t.Run("unknown block type", func(t *testing.T) {
		_, err := svc.ValidateProperty(ctx, domain.ValidatePropertyRequest{BlockType: "carousel", Key: "x"})
		assert.IsType(t, domain.ValidationError{}, err)
	})

	t.Run("unknown property", func(t *testing.T) {
		_, err := svc.ValidateProperty(ctx, domain.ValidatePropertyRequest{BlockType: blocks.TypeText, Key: "nope"})
		assert.ErrorContains(t, err, `has no property "nope"`)
	})
}

func TestEditorService_ApplyOperations(t *testing.T) {
	svc := setupEditorService(t)
	ctx := context.Background()

	start := []blocks.Block{
		{ID: "a", Type: blocks.TypeText, Props: blocks.Props{"content": "Legacy"}},
		{ID: "b", Type: blocks.TypeDivider, Props: blocks.Props{}},
		{ID: "c", Type: blocks.TypeSpacer, Props: blocks.Props{"height": "10px"}},
	}

	resp, err := svc.ApplyOperations(ctx, start, []domain.Operation{
		{Type: domain.OperationInsert, BlockType: blocks.TypeButton, Index: intPtr(0)},
		{Type: domain.OperationUpdateProperty, BlockID: "c", Key: "height", Value: "12"},
		{Type: domain.OperationMove, From: intPtr(0), To: intPtr(3)},
		{Type: domain.OperationGroup, BlockIDs: []string{"b", "a"}},
		{Type: domain.OperationDuplicate, BlockID: "c"},
		{Type: domain.OperationDelete, BlockID: "missing"},
	})
	require.NoError(t, err)

	require.Len(t, resp.Results, 6)

	assert.True(t, resp.Results[0].Applied)
	assert.Equal(t, "gen-1", resp.Results[0].BlockID)

	assert.False(t, resp.Results[1].Applied)
	assert.Contains(t, resp.Results[1].Fields, "height")

	assert.True(t, resp.Results[2].Applied)
	assert.True(t, resp.Results[3].Applied)
	assert.Equal(t, "gen-2", resp.Results[3].BlockID)
	assert.True(t, resp.Results[4].Applied)
	assert.Equal(t, "gen-3", resp.Results[4].BlockID)
	assert.False(t, resp.Results[5].Applied)

	// [gen-1 a b c] -> move 0 to 3 -> [a b c gen-1] -> group -> [gen-2 c gen-1] -> duplicate c
	assert.Equal(t, []string{"gen-2", "c", "gen-1", "gen-3"}, blockIDs(resp.Blocks))

	group := resp.Blocks[0]
	assert.Equal(t, blocks.TypeGroup, group.Type)
	assert.Equal(t, []string{"a", "b"}, blockIDs(group.Children()))

	// migration ran on the starting blocks
	assert.Equal(t, "Legacy", group.Children()[0].Props.String("text"))

	// the rejected edit kept the previous value
	assert.Equal(t, "10px", resp.Blocks[1].Props.String("height"))
	assert.True(t, resp.Blocks[3].IsDuplicate)
}

func TestEditorService_ApplyOperationsUngroup(t *testing.T) {
	svc := setupEditorService(t)

	start := []blocks.Block{
		{ID: "a", Type: blocks.TypeDivider, Props: blocks.Props{}},
		{ID: "b", Type: blocks.TypeDivider, Props: blocks.Props{}},
		{ID: "c", Type: blocks.TypeDivider, Props: blocks.Props{}},
	}

	resp, err := svc.ApplyOperations(context.Background(), start, []domain.Operation{
		{Type: domain.OperationGroup, BlockIDs: []string{"a", "b"}},
		{Type: domain.OperationUngroup, BlockID: "gen-1"},
		{Type: domain.OperationUngroup, BlockID: "c"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, blockIDs(resp.Blocks))
	assert.True(t, resp.Results[1].Applied)
	assert.False(t, resp.Results[2].Applied)
	assert.Equal(t, "block is not a group", resp.Results[2].Error)
}

func TestEditorService_ApplyOperationsRejectsInvalidOperation(t *testing.T) {
	svc := setupEditorService(t)

	resp, err := svc.ApplyOperations(context.Background(), nil, []domain.Operation{
		{Type: domain.OperationInsert, BlockType: "carousel"},
		{Type: domain.OperationMove},
		{Type: domain.OperationUpdate, BlockID: "x", Props: blocks.Props{}},
	})
	require.NoError(t, err)

	assert.Empty(t, resp.Blocks)
	for _, r := range resp.Results {
		assert.False(t, r.Applied)
		assert.NotEmpty(t, r.Error)
	}
	assert.Contains(t, resp.Results[0].Error, "unknown block type")
	assert.Contains(t, resp.Results[2].Error, "block not found")
}

func TestEditorService_ApplyOperationsCancelled(t *testing.T) {
	svc := setupEditorService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.ApplyOperations(ctx, nil, []domain.Operation{{Type: domain.OperationInsert, BlockType: blocks.TypeText}})
	assert.ErrorIs(t, err, context.Canceled)
}
