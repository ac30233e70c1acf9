package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Notifuse/mailblocks/internal/domain"
	"github.com/Notifuse/mailblocks/pkg/blocks"
	"github.com/Notifuse/mailblocks/pkg/logger"
	"github.com/Notifuse/mailblocks/pkg/tracing"
)

// EditorService exposes the block registry and replays editor operations
type EditorService struct {
	registry *blocks.Registry
	logger   logger.Logger
	tracer   tracing.Tracer
	docOpts  []blocks.DocumentOption
}

func NewEditorService(registry *blocks.Registry, log logger.Logger, docOpts ...blocks.DocumentOption) *EditorService {
	return &EditorService{
		registry: registry,
		logger:   log,
		tracer:   tracing.GetTracer(),
		docOpts:  docOpts,
	}
}

func (s *EditorService) Registry(ctx context.Context) []blocks.ComponentConfig {
	return s.registry.List()
}

func (s *EditorService) ValidateProperty(ctx context.Context, req domain.ValidatePropertyRequest) (*domain.ValidatePropertyResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	cfg, ok := s.registry.Resolve(req.BlockType)
	if !ok {
		return nil, domain.NewValidationError(fmt.Sprintf("unknown block type %q", req.BlockType))
	}
	prop, ok := cfg.Property(req.Key)
	if !ok {
		return nil, domain.NewValidationError(fmt.Sprintf("block type %q has no property %q", req.BlockType, req.Key))
	}

	value := prop.Normalize(req.Value)
	resp := &domain.ValidatePropertyResponse{Valid: true, Value: value}
	if err := prop.Validate(value); err != nil {
		resp.Valid = false
		resp.Error = err.Error()
	}
	return resp, nil
}

// ApplyOperations replays ops in order on a document seeded with start. A
// rejected operation is reported and replay carries on with the next one.
func (s *EditorService) ApplyOperations(ctx context.Context, start []blocks.Block, ops []domain.Operation) (*domain.ApplyOperationsResponse, error) {
	ctx, span := s.tracer.StartServiceSpan(ctx, "EditorService", "ApplyOperations")
	defer span.End()
	s.tracer.AddAttribute(ctx, "operations.count", len(ops))

	doc := blocks.NewDocument(s.registry, s.docOpts...)
	doc.SetBlocks(start)

	results := make([]domain.OperationResult, 0, len(ops))
	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results = append(results, s.apply(doc, op))
	}

	return &domain.ApplyOperationsResponse{
		Blocks:  doc.Blocks(),
		Results: results,
	}, nil
}

func (s *EditorService) apply(doc *blocks.Document, op domain.Operation) domain.OperationResult {
	result := domain.OperationResult{Type: op.Type, BlockID: op.BlockID}
	if err := op.Validate(); err != nil {
		result.Error = err.Error()
		return result
	}

	switch op.Type {
	case domain.OperationInsert:
		index := doc.Len()
		if op.Index != nil {
			index = *op.Index
		}
		id, err := doc.InsertBlock(op.BlockType, index, op.Props)
		if err != nil {
			return failed(result, err)
		}
		result.BlockID = id
		result.Applied = true

	case domain.OperationDelete:
		result.Applied = doc.DeleteBlock(op.BlockID)
		if !result.Applied {
			result.Error = blocks.ErrBlockNotFound.Error()
		}

	case domain.OperationDuplicate:
		id, ok := doc.DuplicateBlock(op.BlockID)
		if !ok {
			result.Error = blocks.ErrBlockNotFound.Error()
			return result
		}
		result.BlockID = id
		result.Applied = true

	case domain.OperationUpdate:
		if err := doc.UpdateBlock(op.BlockID, op.Props); err != nil {
			return failed(result, err)
		}
		result.Applied = true

	case domain.OperationUpdateProperty:
		if err := doc.UpdateProperty(op.BlockID, op.Key, op.Value); err != nil {
			return failed(result, err)
		}
		result.Applied = true

	case domain.OperationMove:
		result.Applied = doc.MoveBlock(*op.From, *op.To)
		if !result.Applied {
			result.Error = "index out of range"
		}

	case domain.OperationGroup:
		id, ok := doc.CreateGroup(op.BlockIDs)
		if !ok {
			result.Error = "at least two existing blocks must be selected"
			return result
		}
		result.BlockID = id
		result.Applied = true

	case domain.OperationUngroup:
		result.Applied = doc.Ungroup(op.BlockID)
		if !result.Applied {
			result.Error = "block is not a group"
		}
	}

	return result
}

func failed(result domain.OperationResult, err error) domain.OperationResult {
	result.Error = err.Error()
	var validationErr *blocks.ValidationError
	if errors.As(err, &validationErr) {
		result.Fields = validationErr.Fields
	}
	return result
}
