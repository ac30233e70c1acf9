package blocks

import (
	"fmt"

	"github.com/google/uuid"
)

// IDGenerator returns a new block id
type IDGenerator func() string

type DocumentOption func(*Document)

// WithIDGenerator replaces the default uuid based id generator
func WithIDGenerator(gen IDGenerator) DocumentOption {
	return func(d *Document) {
		d.newID = gen
	}
}

// Document is the ordered sequence of blocks of the template being edited.
// Every operation either fully applies or leaves the sequence untouched.
// A Document is not safe for concurrent mutation.
type Document struct {
	registry *Registry
	blocks   []Block
	newID    IDGenerator
}

func NewDocument(registry *Registry, opts ...DocumentOption) *Document {
	d := &Document{
		registry: registry,
		blocks:   []Block{},
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetBlocks replaces the whole sequence after running the migration pass
func (d *Document) SetBlocks(blocks []Block) {
	d.blocks = MigrateBlocks(blocks)
}

// Blocks returns a deep copy of the sequence
func (d *Document) Blocks() []Block {
	out := make([]Block, len(d.blocks))
	for i, b := range d.blocks {
		out[i] = b.Clone()
	}
	return out
}

func (d *Document) Len() int {
	return len(d.blocks)
}

// IndexOf returns the position of id, or -1
func (d *Document) IndexOf(id string) int {
	for i, b := range d.blocks {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// Find returns a copy of the block with id
func (d *Document) Find(id string) (Block, bool) {
	idx := d.IndexOf(id)
	if idx < 0 {
		return Block{}, false
	}
	return d.blocks[idx].Clone(), true
}

// InsertBlock creates a block of type t seeded with the registry defaults and
// overrides, and inserts it at index. Out of range indexes append. Groups only
// come from CreateGroup.
func (d *Document) InsertBlock(t BlockType, index int, overrides Props) (string, error) {
	if t == TypeGroup {
		return "", ErrGroupInsert
	}
	props, err := d.registry.DefaultProps(t, overrides)
	if err != nil {
		return "", err
	}
	if cfg, ok := d.registry.Resolve(t); ok {
		if failures := cfg.ValidateProps(props); failures != nil {
			return "", &ValidationError{Fields: failures}
		}
	}

	block := Block{ID: d.newID(), Type: t, Props: props}
	if index < 0 || index > len(d.blocks) {
		index = len(d.blocks)
	}
	d.blocks = insertAt(d.blocks, index, block)
	return block.ID, nil
}

// DeleteBlock removes the block with id. Deleting an absent id returns false.
func (d *Document) DeleteBlock(id string) bool {
	idx := d.IndexOf(id)
	if idx < 0 {
		return false
	}
	d.blocks = append(append([]Block{}, d.blocks[:idx]...), d.blocks[idx+1:]...)
	return true
}

// DuplicateBlock appends a deep copy of the block with fresh ids and returns the new id
func (d *Document) DuplicateBlock(id string) (string, bool) {
	src, ok := d.Find(id)
	if !ok {
		return "", false
	}
	dup := d.reassignIDs(src)
	dup.IsDuplicate = true
	d.blocks = append(d.blocks, dup)
	return dup.ID, true
}

func (d *Document) reassignIDs(b Block) Block {
	b.ID = d.newID()
	if b.Type == TypeGroup && b.Props != nil {
		children := b.Children()
		fresh := make([]Block, len(children))
		for i, child := range children {
			fresh[i] = d.reassignIDs(child.Clone())
		}
		b.Props["blocks"] = fresh
	}
	return b
}

// UpdateBlock replaces the props of the block with id. Values are normalized
// and validated first; on failure the previous props are kept.
func (d *Document) UpdateBlock(id string, props Props) error {
	idx := d.IndexOf(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrBlockNotFound, id)
	}

	current := d.blocks[idx]
	next := props.Clone()
	if next == nil {
		next = Props{}
	}
	if cfg, ok := d.registry.Resolve(current.Type); ok {
		next = cfg.NormalizeProps(next)
		if failures := cfg.ValidateProps(next); failures != nil {
			return &ValidationError{Fields: failures}
		}
	}

	d.blocks[idx] = current.withProps(next)
	return nil
}

// UpdateProperty sets a single property on the block with id
func (d *Document) UpdateProperty(id, key string, value interface{}) error {
	idx := d.IndexOf(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrBlockNotFound, id)
	}

	next := d.blocks[idx].Props.Clone()
	if next == nil {
		next = Props{}
	}
	next[key] = value
	return d.UpdateBlock(id, next)
}

// MoveBlock moves the block at from to position to
func (d *Document) MoveBlock(from, to int) bool {
	n := len(d.blocks)
	if from < 0 || from >= n || to < 0 || to >= n {
		return false
	}
	if from == to {
		return true
	}

	moved := d.blocks[from]
	rest := append(append([]Block{}, d.blocks[:from]...), d.blocks[from+1:]...)
	d.blocks = insertAt(rest, to, moved)
	return true
}

// CreateGroup collapses the selected blocks into a group placed where the
// first of them sits. Members keep their document order, not selection order.
func (d *Document) CreateGroup(ids []string) (string, bool) {
	selected := make(map[string]bool, len(ids))
	for _, id := range ids {
		selected[id] = true
	}

	first := -1
	members := []Block{}
	for i, b := range d.blocks {
		if selected[b.ID] {
			if first < 0 {
				first = i
			}
			members = append(members, b)
		}
	}
	if len(members) < 2 {
		return "", false
	}

	props, err := d.registry.DefaultProps(TypeGroup, nil)
	if err != nil {
		props = Props{"name": "Group"}
	}
	props["blocks"] = members
	group := Block{ID: d.newID(), Type: TypeGroup, Props: props}

	next := make([]Block, 0, len(d.blocks)-len(members)+1)
	for i, b := range d.blocks {
		if i == first {
			next = append(next, group)
		}
		if !selected[b.ID] {
			next = append(next, b)
		}
	}
	d.blocks = next
	return group.ID, true
}

// Ungroup splices the members of a group back in its place
func (d *Document) Ungroup(id string) bool {
	idx := d.IndexOf(id)
	if idx < 0 || d.blocks[idx].Type != TypeGroup {
		return false
	}

	members := d.blocks[idx].Children()
	next := make([]Block, 0, len(d.blocks)-1+len(members))
	next = append(next, d.blocks[:idx]...)
	next = append(next, members...)
	next = append(next, d.blocks[idx+1:]...)
	d.blocks = next
	return true
}

func insertAt(blocks []Block, index int, b Block) []Block {
	out := make([]Block, 0, len(blocks)+1)
	out = append(out, blocks[:index]...)
	out = append(out, b)
	out = append(out, blocks[index:]...)
	return out
}
