package domain

import (
	"encoding/json"
	"fmt"

	"github.com/asaskevich/govalidator"

	"github.com/Notifuse/mailblocks/pkg/blocks"
)

// TemplateSource names what to render: a saved template or an unsaved block array
type TemplateSource struct {
	TemplateID string          `json:"template_id,omitempty"`
	Blocks     json.RawMessage `json:"blocks,omitempty"`
}

// Validate checks that exactly one source is set and decodes inline blocks
func (s TemplateSource) Validate() ([]blocks.Block, error) {
	hasBlocks := len(s.Blocks) > 0 && string(s.Blocks) != "null"
	switch {
	case s.TemplateID == "" && !hasBlocks:
		return nil, fmt.Errorf("template_id or blocks is required")
	case s.TemplateID != "" && hasBlocks:
		return nil, fmt.Errorf("template_id and blocks are mutually exclusive")
	case s.TemplateID != "":
		if !govalidator.IsUUID(s.TemplateID) {
			return nil, fmt.Errorf("template_id must be a valid UUID")
		}
		return nil, nil
	}
	return DecodeBlocks(s.Blocks)
}

// ExportOptionsInput is the wire form of blocks.ExportOptions. Unset fields
// keep the server defaults.
type ExportOptionsInput struct {
	Minify            *bool                   `json:"minify,omitempty"`
	Doctype           *bool                   `json:"doctype,omitempty"`
	WrapWithContainer *bool                   `json:"wrap_with_container,omitempty"`
	ContainerStyles   *blocks.ContainerStyles `json:"container_styles,omitempty"`
	Title             string                  `json:"title,omitempty"`
	PreviewText       string                  `json:"preview_text,omitempty"`
	EmailClients      []string                `json:"email_clients,omitempty"`
	TemplateData      map[string]interface{}  `json:"template_data,omitempty"`
}

// Apply overlays the input on defaults
func (in *ExportOptionsInput) Apply(defaults blocks.ExportOptions) blocks.ExportOptions {
	opts := defaults
	if in == nil {
		return opts
	}
	if in.Minify != nil {
		opts.Minify = *in.Minify
	}
	if in.Doctype != nil {
		opts.Doctype = *in.Doctype
	}
	if in.WrapWithContainer != nil {
		opts.WrapWithContainer = *in.WrapWithContainer
	}
	if in.ContainerStyles != nil {
		cs := *in.ContainerStyles
		if cs.MaxWidth == "" {
			cs.MaxWidth = opts.ContainerStyles.MaxWidth
		}
		if cs.Margin == "" {
			cs.Margin = opts.ContainerStyles.Margin
		}
		if cs.Padding == "" {
			cs.Padding = opts.ContainerStyles.Padding
		}
		if cs.BackgroundColor == "" {
			cs.BackgroundColor = opts.ContainerStyles.BackgroundColor
		}
		opts.ContainerStyles = cs
	}
	if in.Title != "" {
		opts.Title = in.Title
	}
	if in.PreviewText != "" {
		opts.PreviewText = in.PreviewText
	}
	if in.EmailClients != nil {
		opts.EmailClients = in.EmailClients
	}
	if in.TemplateData != nil {
		opts.TemplateData = in.TemplateData
	}
	return opts
}

func (in *ExportOptionsInput) validate() error {
	if in == nil {
		return nil
	}
	if len(in.Title) > 255 {
		return fmt.Errorf("title length must not exceed 255")
	}
	if len(in.PreviewText) > 255 {
		return fmt.Errorf("preview_text length must not exceed 255")
	}
	if cs := in.ContainerStyles; cs != nil {
		if cs.MaxWidth != "" {
			if err := blocks.ValidateCSSUnit(cs.MaxWidth); err != nil {
				return fmt.Errorf("container_styles.maxWidth %s", err.Error())
			}
		}
		if cs.BackgroundColor != "" {
			if err := blocks.ValidateColor(cs.BackgroundColor); err != nil {
				return fmt.Errorf("container_styles.backgroundColor %s", err.Error())
			}
		}
	}
	return nil
}

type ExportTemplateRequest struct {
	TemplateSource
	Options *ExportOptionsInput `json:"options,omitempty"`
}

// Validate returns the inline blocks, nil when the request names a template
func (r *ExportTemplateRequest) Validate() ([]blocks.Block, error) {
	decoded, err := r.TemplateSource.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid export request: %w", err)
	}
	if err := r.Options.validate(); err != nil {
		return nil, fmt.Errorf("invalid export request: %w", err)
	}
	return decoded, nil
}

type ExportResult struct {
	HTML string `json:"html"`
	Text string `json:"text"`
}

type CompileTemplateRequest struct {
	TemplateSource
	Options *ExportOptionsInput `json:"options,omitempty"`
}

func (r *CompileTemplateRequest) Validate() ([]blocks.Block, error) {
	decoded, err := r.TemplateSource.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid compile request: %w", err)
	}
	if err := r.Options.validate(); err != nil {
		return nil, fmt.Errorf("invalid compile request: %w", err)
	}
	return decoded, nil
}

type CompileTemplateResponse struct {
	MJML string `json:"mjml"`
	HTML string `json:"html"`
}

type SendTestEmailRequest struct {
	TemplateID   string                 `json:"template_id"`
	Email        string                 `json:"email"`
	Subject      string                 `json:"subject,omitempty"`
	TemplateData map[string]interface{} `json:"template_data,omitempty"`
}

func (r *SendTestEmailRequest) Validate() error {
	if r.TemplateID == "" {
		return fmt.Errorf("invalid send test email request: template_id is required")
	}
	if !govalidator.IsUUID(r.TemplateID) {
		return fmt.Errorf("invalid send test email request: template_id must be a valid UUID")
	}
	if !govalidator.IsEmail(r.Email) {
		return fmt.Errorf("invalid send test email request: email is not valid")
	}
	if len(r.Subject) > 255 {
		return fmt.Errorf("invalid send test email request: subject length must not exceed 255")
	}
	return nil
}
