package blocks

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// BlockType identifies the schema and rendering rules of a block
type BlockType string

const (
	TypeText      BlockType = "text"
	TypeButton    BlockType = "button"
	TypeImage     BlockType = "image"
	TypeDivider   BlockType = "divider"
	TypeSpacer    BlockType = "spacer"
	TypeList      BlockType = "list"
	TypeSocial    BlockType = "social"
	TypeColumns   BlockType = "columns"
	TypeContainer BlockType = "container"
	TypeGroup     BlockType = "group"
)

// AllBlockTypes lists every supported block type in palette order
var AllBlockTypes = []BlockType{
	TypeText,
	TypeButton,
	TypeImage,
	TypeDivider,
	TypeSpacer,
	TypeList,
	TypeSocial,
	TypeColumns,
	TypeContainer,
	TypeGroup,
}

// IsValid reports whether t is one of the known block types
func (t BlockType) IsValid() bool {
	for _, known := range AllBlockTypes {
		if t == known {
			return true
		}
	}
	return false
}

var (
	ErrUnknownBlockType = errors.New("unknown block type")
	ErrBlockNotFound    = errors.New("block not found")
	ErrGroupInsert      = errors.New("groups cannot be inserted, use CreateGroup")
	ErrDuplicateBlockID = errors.New("duplicate block id")
)

// Props is the property map owned by a block
type Props map[string]interface{}

// Clone returns a deep copy of the property map
func (p Props) Clone() Props {
	if p == nil {
		return nil
	}
	out := make(Props, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

// String returns the value stored under key when it is a string
func (p Props) String(key string) string {
	if s, ok := p[key].(string); ok {
		return s
	}
	return ""
}

// Has reports whether key is present, even with a nil value
func (p Props) Has(key string) bool {
	_, ok := p[key]
	return ok
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case Props:
		return t.Clone()
	case map[string]interface{}:
		return map[string]interface{}(Props(t).Clone())
	case []interface{}:
		if t == nil {
			return t
		}
		out := make([]interface{}, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	case []string:
		if t == nil {
			return t
		}
		return append([]string{}, t...)
	case []map[string]interface{}:
		if t == nil {
			return t
		}
		out := make([]map[string]interface{}, len(t))
		for i := range t {
			out[i] = map[string]interface{}(Props(t[i]).Clone())
		}
		return out
	case []Block:
		if t == nil {
			return t
		}
		out := make([]Block, len(t))
		for i := range t {
			out[i] = t[i].Clone()
		}
		return out
	default:
		return v
	}
}

// Block is one typed, positioned content unit of a template
type Block struct {
	ID          string    `json:"id"`
	Type        BlockType `json:"type"`
	Props       Props     `json:"props"`
	IsDuplicate bool      `json:"isDuplicate,omitempty"`
}

// Clone returns a deep copy of the block, nested group members included
func (b Block) Clone() Block {
	b.Props = b.Props.Clone()
	return b
}

// Children returns the nested blocks of a group block
func (b Block) Children() []Block {
	switch v := b.Props["blocks"].(type) {
	case []Block:
		return v
	case []interface{}:
		children := make([]Block, 0, len(v))
		for _, raw := range v {
			var child Block
			if err := decodeProps(raw, &child); err != nil {
				continue
			}
			children = append(children, child)
		}
		return children
	}
	return nil
}

// CheckUniqueIDs reports the first id used by more than one block, group
// members included. Empty ids are ignored.
func CheckUniqueIDs(blocks []Block) error {
	return checkUniqueIDs(blocks, make(map[string]bool))
}

func checkUniqueIDs(blocks []Block, seen map[string]bool) error {
	for _, b := range blocks {
		if b.ID != "" {
			if seen[b.ID] {
				return fmt.Errorf("%w %q", ErrDuplicateBlockID, b.ID)
			}
			seen[b.ID] = true
		}
		if b.Type == TypeGroup {
			if err := checkUniqueIDs(b.Children(), seen); err != nil {
				return err
			}
		}
	}
	return nil
}

// withProps returns a copy of b holding props
func (b Block) withProps(props Props) Block {
	b.Props = props
	return b
}

// BlockProps is the typed view of a block's properties.
// Each block type has exactly one implementation.
type BlockProps interface {
	BlockType() BlockType
}

// TypedProps decodes the block's property map into its per-type struct
func (b Block) TypedProps() (BlockProps, error) {
	var target BlockProps
	switch b.Type {
	case TypeText:
		target = &TextProps{}
	case TypeButton:
		target = &ButtonProps{}
	case TypeImage:
		target = &ImageProps{}
	case TypeDivider:
		target = &DividerProps{}
	case TypeSpacer:
		target = &SpacerProps{}
	case TypeList:
		target = &ListProps{}
	case TypeSocial:
		target = &SocialProps{}
	case TypeColumns:
		target = &ColumnsProps{}
	case TypeContainer:
		target = &ContainerProps{}
	case TypeGroup:
		target = &GroupProps{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBlockType, b.Type)
	}

	if b.Props == nil {
		return target, nil
	}
	if err := decodeProps(b.Props, target); err != nil {
		return nil, fmt.Errorf("failed to decode %s props: %w", b.Type, err)
	}
	return target, nil
}

func decodeProps(src interface{}, target interface{}) error {
	data, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

// PropString is a string property that also accepts JSON numbers and booleans
type PropString string

func (s *PropString) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*s = ""
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = PropString(str)
		return nil
	}

	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*s = PropString(strconv.FormatFloat(num, 'f', -1, 64))
		return nil
	}

	var flag bool
	if err := json.Unmarshal(data, &flag); err == nil {
		*s = PropString(strconv.FormatBool(flag))
		return nil
	}

	return fmt.Errorf("cannot use %s as a string property", raw)
}

// Or returns the value, or def when the value is empty
func (s PropString) Or(def string) string {
	if s == "" {
		return def
	}
	return string(s)
}

// PropBool is a boolean property that also accepts "true"/"false" strings
type PropBool bool

func (b *PropBool) UnmarshalJSON(data []byte) error {
	var flag bool
	if err := json.Unmarshal(data, &flag); err == nil {
		*b = PropBool(flag)
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*b = PropBool(str == "true")
		return nil
	}

	*b = false
	return nil
}

// ListItems is the canonical list of list-item strings
type ListItems []string

func (l *ListItems) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch v := TransformListItems(raw).(type) {
	case []string:
		*l = v
	case nil:
		*l = nil
	default:
		return fmt.Errorf("cannot use %T as list items", raw)
	}
	return nil
}

// SocialNetwork is one entry of a social block
type SocialNetwork struct {
	Platform PropString `json:"platform"`
	URL      PropString `json:"url"`
}

type TextProps struct {
	Text       PropString `json:"text"`
	FontSize   PropString `json:"fontSize"`
	Color      PropString `json:"color"`
	TextAlign  PropString `json:"textAlign"`
	LineHeight PropString `json:"lineHeight"`
	FontFamily PropString `json:"fontFamily"`
	FontWeight PropString `json:"fontWeight"`
}

type ButtonProps struct {
	Text            PropString `json:"text"`
	URL             PropString `json:"url"`
	BackgroundColor PropString `json:"backgroundColor"`
	TextColor       PropString `json:"textColor"`
	FontSize        PropString `json:"fontSize"`
	FontWeight      PropString `json:"fontWeight"`
	Padding         PropString `json:"padding"`
	BorderRadius    PropString `json:"borderRadius"`
	Align           PropString `json:"align"`
	FullWidth       PropBool   `json:"fullWidth"`
}

type ImageProps struct {
	Src          PropString `json:"src"`
	Alt          PropString `json:"alt"`
	Width        PropString `json:"width"`
	Align        PropString `json:"align"`
	Link         PropString `json:"link"`
	BorderRadius PropString `json:"borderRadius"`
}

type DividerProps struct {
	Color     PropString `json:"color"`
	Thickness PropString `json:"thickness"`
	Style     PropString `json:"style"`
	Width     PropString `json:"width"`
	Margin    PropString `json:"margin"`
}

type SpacerProps struct {
	Height          PropString `json:"height"`
	BackgroundColor PropString `json:"backgroundColor"`
}

type ListProps struct {
	Items      ListItems  `json:"items"`
	ListType   PropString `json:"listType"`
	FontSize   PropString `json:"fontSize"`
	Color      PropString `json:"color"`
	LineHeight PropString `json:"lineHeight"`
	FontFamily PropString `json:"fontFamily"`
}

type SocialProps struct {
	Networks    []SocialNetwork `json:"networks"`
	IconSize    PropString      `json:"iconSize"`
	Align       PropString      `json:"align"`
	Spacing     PropString      `json:"spacing"`
	IconBaseURL PropString      `json:"iconBaseUrl"`
}

type ColumnsProps struct {
	LeftContent     PropString `json:"leftContent"`
	RightContent    PropString `json:"rightContent"`
	LeftWidth       PropString `json:"leftWidth"`
	RightWidth      PropString `json:"rightWidth"`
	Gap             PropString `json:"gap"`
	VerticalAlign   PropString `json:"verticalAlign"`
	BackgroundColor PropString `json:"backgroundColor"`
	Padding         PropString `json:"padding"`
}

type ContainerProps struct {
	Content         PropString `json:"content"`
	BackgroundColor PropString `json:"backgroundColor"`
	Padding         PropString `json:"padding"`
	BorderRadius    PropString `json:"borderRadius"`
	BorderWidth     PropString `json:"borderWidth"`
	BorderStyle     PropString `json:"borderStyle"`
	BorderColor     PropString `json:"borderColor"`
	MaxWidth        PropString `json:"maxWidth"`
}

type GroupProps struct {
	Name   PropString `json:"name"`
	Blocks []Block    `json:"blocks"`
}

func (*TextProps) BlockType() BlockType      { return TypeText }
func (*ButtonProps) BlockType() BlockType    { return TypeButton }
func (*ImageProps) BlockType() BlockType     { return TypeImage }
func (*DividerProps) BlockType() BlockType   { return TypeDivider }
func (*SpacerProps) BlockType() BlockType    { return TypeSpacer }
func (*ListProps) BlockType() BlockType      { return TypeList }
func (*SocialProps) BlockType() BlockType    { return TypeSocial }
func (*ColumnsProps) BlockType() BlockType   { return TypeColumns }
func (*ContainerProps) BlockType() BlockType { return TypeContainer }
func (*GroupProps) BlockType() BlockType     { return TypeGroup }
