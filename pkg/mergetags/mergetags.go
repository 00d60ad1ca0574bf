package mergetags

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/osteele/liquid"
)

// Limits applied to every render
const (
	DefaultRenderTimeout   = 5 * time.Second
	DefaultMaxTemplateSize = 512 * 1024 // exported documents are larger than single templates
)

// Engine substitutes {{ merge.tags }} in exported HTML with per-recipient data.
// Rendering runs under a timeout and a size cap so a hostile template cannot
// stall the export worker.
type Engine struct {
	timeout time.Duration
	maxSize int
	engine  *liquid.Engine
}

// Option configures an Engine
type Option func(*Engine)

// WithTimeout overrides DefaultRenderTimeout
func WithTimeout(timeout time.Duration) Option {
	return func(e *Engine) {
		if timeout > 0 {
			e.timeout = timeout
		}
	}
}

// WithMaxSize overrides DefaultMaxTemplateSize
func WithMaxSize(size int) Option {
	return func(e *Engine) {
		if size > 0 {
			e.maxSize = size
		}
	}
}

// NewEngine creates an Engine with the default limits
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		timeout: DefaultRenderTimeout,
		maxSize: DefaultMaxTemplateSize,
		engine:  liquid.NewEngine(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HasTags reports whether content contains Liquid output or tag delimiters
func HasTags(content string) bool {
	return strings.Contains(content, "{{") || strings.Contains(content, "{%")
}

// Render substitutes merge tags in content. Content without tags is returned
// unchanged without touching the Liquid engine.
func (e *Engine) Render(ctx context.Context, content string, data map[string]interface{}) (string, error) {
	if !HasTags(content) {
		return content, nil
	}
	if len(content) > e.maxSize {
		return "", fmt.Errorf("template size (%d bytes) exceeds maximum allowed size (%d bytes)", len(content), e.maxSize)
	}
	if data == nil {
		data = map[string]interface{}{}
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resultChan := make(chan string, 1)
	errorChan := make(chan error, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				errorChan <- fmt.Errorf("panic during merge tag rendering: %v", r)
			}
		}()

		rendered, err := e.engine.ParseAndRenderString(content, data)
		if err != nil {
			errorChan <- fmt.Errorf("merge tag rendering failed: %w", err)
			return
		}
		resultChan <- rendered
	}()

	select {
	case result := <-resultChan:
		return result, nil
	case err := <-errorChan:
		return "", err
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("merge tag rendering timeout after %v", e.timeout)
		}
		return "", ctx.Err()
	}
}
