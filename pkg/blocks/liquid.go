package blocks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/osteele/liquid"
)

// Limits applied to merge tag rendering
const (
	DefaultRenderTimeout   = 5 * time.Second
	DefaultMaxTemplateSize = 100 * 1024
)

// MergeTagEngine renders Liquid merge tags with a time and size budget
type MergeTagEngine struct {
	timeout time.Duration
	maxSize int
	engine  *liquid.Engine
}

func NewMergeTagEngine() *MergeTagEngine {
	return NewMergeTagEngineWithLimits(DefaultRenderTimeout, DefaultMaxTemplateSize)
}

func NewMergeTagEngineWithLimits(timeout time.Duration, maxSize int) *MergeTagEngine {
	return &MergeTagEngine{
		timeout: timeout,
		maxSize: maxSize,
		engine:  liquid.NewEngine(),
	}
}

// HasMergeTags reports whether content contains Liquid output or tag markup
func HasMergeTags(content string) bool {
	return strings.Contains(content, "{{") || strings.Contains(content, "{%")
}

// Render renders content against data. Content without merge tags is returned as is.
func (e *MergeTagEngine) Render(ctx context.Context, content string, data map[string]interface{}) (string, error) {
	if !HasMergeTags(content) {
		return content, nil
	}
	if len(content) > e.maxSize {
		return "", fmt.Errorf("template size (%d bytes) exceeds maximum allowed size (%d bytes)", len(content), e.maxSize)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("panic during liquid rendering: %v", r)}
			}
		}()
		out, err := e.engine.ParseAndRenderString(content, data)
		if err != nil {
			done <- result{err: fmt.Errorf("liquid rendering failed: %w", err)}
			return
		}
		done <- result{out: out}
	}()

	select {
	case r := <-done:
		return r.out, r.err
	case <-ctx.Done():
		return "", fmt.Errorf("liquid rendering stopped: %w", ctx.Err())
	}
}
