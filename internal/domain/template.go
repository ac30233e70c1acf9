package domain

import (
	"bytes"
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/tidwall/gjson"

	"github.com/Notifuse/mailblocks/pkg/blocks"
)

//go:generate mockgen -destination mocks/mock_template_service.go -package mocks github.com/Notifuse/mailblocks/internal/domain TemplateService
//go:generate mockgen -destination mocks/mock_template_repository.go -package mocks github.com/Notifuse/mailblocks/internal/domain TemplateRepository

// BlockList is the ordered block sequence of a template, stored as JSONB
type BlockList []blocks.Block

// Scan implements the sql.Scanner interface
func (l *BlockList) Scan(val interface{}) error {
	var data []byte

	switch v := val.(type) {
	case []byte:
		// the driver reuses the buffer for the next row
		data = bytes.Clone(v)
	case string:
		data = []byte(v)
	case nil:
		*l = BlockList{}
		return nil
	default:
		return fmt.Errorf("unsupported type for block list: %T", val)
	}

	var decoded []blocks.Block
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	if decoded == nil {
		decoded = []blocks.Block{}
	}
	*l = decoded
	return nil
}

// Value implements the driver.Valuer interface
func (l BlockList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Template is a saved block sequence with its metadata
type Template struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Content     BlockList `json:"content,omitempty"`
	BlockCount  int       `json:"block_count"`
	IsPublic    bool      `json:"is_public"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (t *Template) Validate() error {
	if t.ID != "" && !govalidator.IsUUID(t.ID) {
		return fmt.Errorf("invalid template: id must be a valid UUID")
	}
	if t.Name == "" {
		return fmt.Errorf("invalid template: name is required")
	}
	if len(t.Name) > 255 {
		return fmt.Errorf("invalid template: name length must be between 1 and 255")
	}
	if len(t.Description) > 1000 {
		return fmt.Errorf("invalid template: description length must not exceed 1000")
	}
	for i, b := range t.Content {
		if b.ID == "" {
			return fmt.Errorf("invalid template: block %d is missing an id", i)
		}
		if b.Type == "" {
			return fmt.Errorf("invalid template: block %d is missing a type", i)
		}
	}
	if err := blocks.CheckUniqueIDs(t.Content); err != nil {
		return fmt.Errorf("invalid template: %w", err)
	}
	return nil
}

// DecodeBlocks checks the shape of a raw block array before decoding it.
// Unknown block types are kept; they render to nothing.
func DecodeBlocks(raw json.RawMessage) ([]blocks.Block, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("blocks are required")
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("blocks must be valid JSON")
	}

	result := gjson.ParseBytes(raw)
	if !result.IsArray() {
		return nil, fmt.Errorf("blocks must be an array")
	}

	var shapeErr error
	index := 0
	result.ForEach(func(_, value gjson.Result) bool {
		switch {
		case !value.IsObject():
			shapeErr = fmt.Errorf("block %d must be an object", index)
		case value.Get("type").Type != gjson.String || value.Get("type").Str == "":
			shapeErr = fmt.Errorf("block %d is missing a type", index)
		case value.Get("id").String() == "":
			shapeErr = fmt.Errorf("block %d is missing an id", index)
		case value.Get("props").Exists() && !value.Get("props").IsObject():
			shapeErr = fmt.Errorf("block %d props must be an object", index)
		}
		index++
		return shapeErr == nil
	})
	if shapeErr != nil {
		return nil, shapeErr
	}

	out := []blocks.Block{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode blocks: %w", err)
	}
	if err := blocks.CheckUniqueIDs(out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountBlocks returns the number of top level blocks in a raw JSON array
func CountBlocks(raw []byte) int {
	return int(gjson.GetBytes(raw, "#").Int())
}

// Request/Response types
type SaveTemplateRequest struct {
	ID          string          `json:"id,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Content     json.RawMessage `json:"content"`
	IsPublic    bool            `json:"is_public"`
}

func (r *SaveTemplateRequest) Validate() (*Template, error) {
	content, err := DecodeBlocks(r.Content)
	if err != nil {
		return nil, fmt.Errorf("invalid save template request: content: %w", err)
	}

	template := &Template{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Content:     content,
		BlockCount:  len(content),
		IsPublic:    r.IsPublic,
	}
	if err := template.Validate(); err != nil {
		return nil, fmt.Errorf("invalid save template request: %w", err)
	}
	return template, nil
}

type ListTemplatesRequest struct {
	IncludePublic bool `json:"include_public"`
}

func (r *ListTemplatesRequest) FromURLParams(queryParams url.Values) error {
	raw := queryParams.Get("include_public")
	if raw == "" {
		return nil
	}
	includePublic, err := strconv.ParseBool(raw)
	if err != nil {
		return fmt.Errorf("invalid list templates request: include_public must be a boolean")
	}
	r.IncludePublic = includePublic
	return nil
}

type GetTemplateRequest struct {
	ID string `json:"id"`
}

func (r *GetTemplateRequest) FromURLParams(queryParams url.Values) error {
	r.ID = queryParams.Get("id")
	if r.ID == "" {
		return fmt.Errorf("invalid get template request: id is required")
	}
	if !govalidator.IsUUID(r.ID) {
		return fmt.Errorf("invalid get template request: id must be a valid UUID")
	}
	return nil
}

type DeleteTemplateRequest struct {
	ID string `json:"id"`
}

func (r *DeleteTemplateRequest) Validate() (string, error) {
	if r.ID == "" {
		return "", fmt.Errorf("invalid delete template request: id is required")
	}
	if !govalidator.IsUUID(r.ID) {
		return "", fmt.Errorf("invalid delete template request: id must be a valid UUID")
	}
	return r.ID, nil
}

// TemplateService provides operations for managing templates
type TemplateService interface {
	// SaveTemplate creates the template when it has no id, otherwise replaces it
	SaveTemplate(ctx context.Context, template *Template) (*Template, error)

	// GetTemplate returns a template owned by the caller or public
	GetTemplate(ctx context.Context, id string) (*Template, error)

	// LoadTemplate returns the migrated block sequence of a template
	LoadTemplate(ctx context.Context, id string) ([]blocks.Block, error)

	// ListTemplates returns the caller's templates and optionally public ones
	ListTemplates(ctx context.Context, includePublic bool) ([]*Template, error)

	// DeleteTemplate deletes a template owned by the caller
	DeleteTemplate(ctx context.Context, id string) error

	// ExportTemplate renders a template or raw blocks to HTML and plain text
	ExportTemplate(ctx context.Context, req ExportTemplateRequest) (*ExportResult, error)

	// CompileTemplate renders a template or raw blocks through MJML
	CompileTemplate(ctx context.Context, req CompileTemplateRequest) (*CompileTemplateResponse, error)

	// SendTestEmail exports a template and mails it to a single address
	SendTestEmail(ctx context.Context, req SendTestEmailRequest) error
}

// TemplateRepository provides database operations for templates
type TemplateRepository interface {
	CreateTemplate(ctx context.Context, template *Template) error

	// GetTemplateByID returns the template regardless of owner
	GetTemplateByID(ctx context.Context, id string) (*Template, error)

	// ListTemplates returns templates without their content, newest first
	ListTemplates(ctx context.Context, userID string, includePublic bool) ([]*Template, error)

	// UpdateTemplate replaces the template when it belongs to template.UserID
	UpdateTemplate(ctx context.Context, template *Template) error

	DeleteTemplate(ctx context.Context, userID, id string) error
}

// ErrTemplateNotFound is returned when a template is not found
type ErrTemplateNotFound struct {
	Message string
}

func (e *ErrTemplateNotFound) Error() string {
	return e.Message
}
