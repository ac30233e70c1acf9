package blocks

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/Notifuse/mailblocks/pkg/logger"
)

// Preset is a named set of prop overrides offered in the block palette
type Preset struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Props Props  `json:"props"`
}

// ComponentConfig is the registry entry of one block type
type ComponentConfig struct {
	ID           string           `json:"id"`
	Type         BlockType        `json:"type"`
	Category     string           `json:"category"`
	Label        string           `json:"label"`
	Description  string           `json:"description,omitempty"`
	Icon         string           `json:"icon,omitempty"`
	DefaultProps Props            `json:"defaultProps"`
	Properties   []PropertyConfig `json:"properties"`
	Presets      []Preset         `json:"presets,omitempty"`
}

func (c ComponentConfig) validate() error {
	if c.Type == "" {
		return errors.New("component config requires a type")
	}
	if !c.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownBlockType, c.Type)
	}
	if strings.TrimSpace(c.Label) == "" {
		return fmt.Errorf("component config %q requires a label", c.Type)
	}
	seen := make(map[string]bool, len(c.Properties))
	for _, p := range c.Properties {
		if p.Key == "" {
			return fmt.Errorf("component config %q has a property without key", c.Type)
		}
		if seen[p.Key] {
			return fmt.Errorf("component config %q declares property %q twice", c.Type, p.Key)
		}
		seen[p.Key] = true
	}
	return nil
}

// Property returns the property config registered under key
func (c ComponentConfig) Property(key string) (PropertyConfig, bool) {
	for _, p := range c.Properties {
		if p.Key == key {
			return p, true
		}
	}
	return PropertyConfig{}, false
}

// NormalizeProps applies every property transform to the values present in props.
// The input map is left untouched.
func (c ComponentConfig) NormalizeProps(props Props) Props {
	out := props.Clone()
	if out == nil {
		out = Props{}
	}
	for _, p := range c.Properties {
		if v, ok := out[p.Key]; ok {
			out[p.Key] = p.Normalize(v)
		}
	}
	return out
}

// ValidateProps runs every property rule and returns the failures keyed by property
func (c ComponentConfig) ValidateProps(props Props) map[string]string {
	failures := map[string]string{}
	for _, p := range c.Properties {
		v, ok := props[p.Key]
		if !ok && !p.Required {
			continue
		}
		if err := p.Validate(v); err != nil {
			failures[p.Key] = err.Error()
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return failures
}

// Registry is the catalog of block types. It is built once at startup and
// shared by handle; reads are safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	initMu      sync.Mutex
	configs     map[BlockType]ComponentConfig
	order       []BlockType
	initialized bool
	logger      logger.Logger
}

func NewRegistry(log logger.Logger) *Registry {
	return &Registry{
		configs: make(map[BlockType]ComponentConfig),
		logger:  log,
	}
}

// Register adds a component config. It returns false without error when the
// type is already registered; the first registration wins.
func (r *Registry) Register(cfg ComponentConfig) (bool, error) {
	if err := cfg.validate(); err != nil {
		return false, err
	}
	if cfg.ID == "" {
		cfg.ID = string(cfg.Type)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.configs[cfg.Type]; exists {
		if r.logger != nil {
			r.logger.WithField("block_type", string(cfg.Type)).Warn("Block type already registered, keeping first registration")
		}
		return false, nil
	}

	cfg.DefaultProps = cfg.DefaultProps.Clone()
	r.configs[cfg.Type] = cfg
	r.order = append(r.order, cfg.Type)
	return true, nil
}

// MustRegister is Register for configs assembled in code; it panics on an invalid config
func (r *Registry) MustRegister(cfg ComponentConfig) bool {
	added, err := r.Register(cfg)
	if err != nil {
		panic(err)
	}
	return added
}

// Resolve returns the config registered for t
func (r *Registry) Resolve(t BlockType) (ComponentConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.configs[t]
	return cfg, ok
}

// List returns every config in registration order
func (r *Registry) List() []ComponentConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ComponentConfig, 0, len(r.order))
	for _, t := range r.order {
		out = append(out, r.configs[t])
	}
	return out
}

// ListByCategory returns the configs of one category in registration order
func (r *Registry) ListByCategory(category string) []ComponentConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []ComponentConfig{}
	for _, t := range r.order {
		if cfg := r.configs[t]; cfg.Category == category {
			out = append(out, cfg)
		}
	}
	return out
}

// Categories returns the distinct categories, sorted
func (r *Registry) Categories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := map[string]bool{}
	out := []string{}
	for _, cfg := range r.configs {
		if !seen[cfg.Category] {
			seen[cfg.Category] = true
			out = append(out, cfg.Category)
		}
	}
	sort.Strings(out)
	return out
}

func (r *Registry) IsInitialized() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.initialized
}

func (r *Registry) SetInitialized() {
	r.mu.Lock()
	r.initialized = true
	r.mu.Unlock()
}

var builtinComponents = BuiltinComponents

// InitializeBuiltins registers the built-in block types. Calling it again after
// success is a no-op; after a failure it retries the types still missing.
func (r *Registry) InitializeBuiltins() error {
	r.initMu.Lock()
	defer r.initMu.Unlock()

	if r.IsInitialized() {
		return nil
	}

	for _, cfg := range builtinComponents() {
		if _, exists := r.Resolve(cfg.Type); exists {
			continue
		}
		if _, err := r.Register(cfg); err != nil {
			return fmt.Errorf("failed to register %s block: %w", cfg.Type, err)
		}
	}

	r.SetInitialized()
	return nil
}

// DefaultProps returns a fresh copy of the defaults of t merged with overrides
func (r *Registry) DefaultProps(t BlockType, overrides Props) (Props, error) {
	cfg, ok := r.Resolve(t)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBlockType, t)
	}
	merged := cfg.DefaultProps.Clone()
	if merged == nil {
		merged = Props{}
	}
	for k, v := range overrides {
		merged[k] = cloneValue(v)
	}
	return cfg.NormalizeProps(merged), nil
}

// NewBlock builds a block of type t with a generated id and the defaults of t
// merged with overrides. The props are not validated.
func (r *Registry) NewBlock(t BlockType, overrides Props) (Block, error) {
	props, err := r.DefaultProps(t, overrides)
	if err != nil {
		return Block{}, err
	}
	return Block{ID: uuid.NewString(), Type: t, Props: props}, nil
}
