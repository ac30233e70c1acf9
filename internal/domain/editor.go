package domain

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Notifuse/mailblocks/pkg/blocks"
)

//go:generate mockgen -destination mocks/mock_editor_service.go -package mocks github.com/Notifuse/mailblocks/internal/domain EditorService

// OperationType is an editor event replayed against a block document
type OperationType string

const (
	OperationInsert         OperationType = "insert"
	OperationDelete         OperationType = "delete"
	OperationDuplicate      OperationType = "duplicate"
	OperationUpdate         OperationType = "update"
	OperationUpdateProperty OperationType = "updateProperty"
	OperationMove           OperationType = "move"
	OperationGroup          OperationType = "group"
	OperationUngroup        OperationType = "ungroup"
)

// MaxOperationsPerRequest caps a single apply call
const MaxOperationsPerRequest = 500

type Operation struct {
	Type      OperationType    `json:"type"`
	BlockType blocks.BlockType `json:"block_type,omitempty"`
	BlockID   string           `json:"block_id,omitempty"`
	BlockIDs  []string         `json:"block_ids,omitempty"`
	Index     *int             `json:"index,omitempty"`
	From      *int             `json:"from,omitempty"`
	To        *int             `json:"to,omitempty"`
	Props     blocks.Props     `json:"props,omitempty"`
	Key       string           `json:"key,omitempty"`
	Value     interface{}      `json:"value,omitempty"`
}

func (o Operation) Validate() error {
	switch o.Type {
	case OperationInsert:
		if o.BlockType == "" {
			return fmt.Errorf("block_type is required")
		}
	case OperationDelete, OperationDuplicate, OperationUngroup:
		if o.BlockID == "" {
			return fmt.Errorf("block_id is required")
		}
	case OperationUpdate:
		if o.BlockID == "" {
			return fmt.Errorf("block_id is required")
		}
		if o.Props == nil {
			return fmt.Errorf("props is required")
		}
	case OperationUpdateProperty:
		if o.BlockID == "" {
			return fmt.Errorf("block_id is required")
		}
		if o.Key == "" {
			return fmt.Errorf("key is required")
		}
	case OperationMove:
		if o.From == nil || o.To == nil {
			return fmt.Errorf("from and to are required")
		}
	case OperationGroup:
		if len(o.BlockIDs) < 2 {
			return fmt.Errorf("at least two block_ids are required")
		}
	default:
		return fmt.Errorf("unknown operation type %q", o.Type)
	}
	return nil
}

// OperationResult reports the outcome of one replayed operation. A rejected
// operation leaves the document as it was and replay continues.
type OperationResult struct {
	Type    OperationType     `json:"type"`
	Applied bool              `json:"applied"`
	BlockID string            `json:"block_id,omitempty"`
	Error   string            `json:"error,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type ApplyOperationsRequest struct {
	Blocks     json.RawMessage `json:"blocks"`
	Operations []Operation     `json:"operations"`
}

// Validate returns the decoded starting blocks. An empty blocks field starts
// from an empty document.
func (r *ApplyOperationsRequest) Validate() ([]blocks.Block, error) {
	if len(r.Operations) == 0 {
		return nil, fmt.Errorf("invalid apply operations request: operations are required")
	}
	if len(r.Operations) > MaxOperationsPerRequest {
		return nil, fmt.Errorf("invalid apply operations request: at most %d operations are allowed", MaxOperationsPerRequest)
	}
	for i, op := range r.Operations {
		if err := op.Validate(); err != nil {
			return nil, fmt.Errorf("invalid apply operations request: operation %d: %w", i, err)
		}
	}

	if len(r.Blocks) == 0 || string(r.Blocks) == "null" {
		return []blocks.Block{}, nil
	}
	start, err := DecodeBlocks(r.Blocks)
	if err != nil {
		return nil, fmt.Errorf("invalid apply operations request: %w", err)
	}
	return start, nil
}

type ApplyOperationsResponse struct {
	Blocks  []blocks.Block    `json:"blocks"`
	Results []OperationResult `json:"results"`
}

type ValidatePropertyRequest struct {
	BlockType blocks.BlockType `json:"block_type"`
	Key       string           `json:"key"`
	Value     interface{}      `json:"value"`
}

func (r *ValidatePropertyRequest) Validate() error {
	if r.BlockType == "" {
		return fmt.Errorf("invalid validate property request: block_type is required")
	}
	if r.Key == "" {
		return fmt.Errorf("invalid validate property request: key is required")
	}
	return nil
}

// ValidatePropertyResponse carries the normalized value and, when rejected, the reason
type ValidatePropertyResponse struct {
	Valid bool        `json:"valid"`
	Value interface{} `json:"value"`
	Error string      `json:"error,omitempty"`
}

type EditorService interface {
	// Registry lists the registered block types in palette order
	Registry(ctx context.Context) []blocks.ComponentConfig

	// ValidateProperty normalizes and validates one property value
	ValidateProperty(ctx context.Context, req ValidatePropertyRequest) (*ValidatePropertyResponse, error)

	// ApplyOperations replays editor operations over a block sequence
	ApplyOperations(ctx context.Context, start []blocks.Block, ops []Operation) (*ApplyOperationsResponse, error)
}
