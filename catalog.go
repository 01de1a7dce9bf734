package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// StaticToolCatalog is the default in-memory ToolCatalog.
type StaticToolCatalog struct {
	mu    sync.RWMutex
	tools map[string]Tool
	specs map[string]ToolSpec
	order []string
}

// NewStaticToolCatalog constructs a catalog seeded with the provided tools.
func NewStaticToolCatalog(tools []Tool) *StaticToolCatalog {
	catalog := &StaticToolCatalog{
		tools: make(map[string]Tool),
		specs: make(map[string]ToolSpec),
	}
	for _, tool := range tools {
		_ = catalog.Register(tool) // invalid entries are skipped
	}
	return catalog
}

// Register adds a tool under its lower-cased name. Duplicate names return an error.
func (c *StaticToolCatalog) Register(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("tool is nil")
	}
	spec := ToolSpec{Name: strings.TrimSpace(tool.Name()), Description: tool.Description()}
	if l, ok := tool.(StatusLabeler); ok {
		spec.StatusLabel = l.StatusLabel()
	}
	key := strings.ToLower(spec.Name)
	if key == "" {
		return fmt.Errorf("tool name is empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.tools[key]; exists {
		return fmt.Errorf("tool %s already registered", spec.Name)
	}
	c.tools[key] = tool
	c.specs[key] = spec
	c.order = append(c.order, key)
	return nil
}

// Lookup returns the tool and its specification if present.
func (c *StaticToolCatalog) Lookup(name string) (Tool, ToolSpec, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	key := strings.ToLower(strings.TrimSpace(name))
	tool, ok := c.tools[key]
	if !ok {
		return nil, ToolSpec{}, false
	}
	return tool, c.specs[key], true
}

// Specs returns a snapshot of the tool specifications in registration order.
func (c *StaticToolCatalog) Specs() []ToolSpec {
	c.mu.RLock()
	defer c.mu.RUnlock()

	specs := make([]ToolSpec, 0, len(c.order))
	for _, key := range c.order {
		specs = append(specs, c.specs[key])
	}
	return specs
}

// StatusLabel returns the progress note shown while name runs.
func (c *StaticToolCatalog) StatusLabel(name string) string {
	if _, spec, ok := c.Lookup(name); ok && strings.TrimSpace(spec.StatusLabel) != "" {
		return spec.StatusLabel
	}
	return fmt.Sprintf("Running tool %s...", name)
}

func (c *StaticToolCatalog) Invoke(ctx context.Context, name, query string) (out string, ok bool) {
	tool, spec, found := c.Lookup(name)
	if !found {
		return fmt.Sprintf("Tool %s is not available.", name), false
	}
	defer func() {
		if r := recover(); r != nil {
			out, ok = fmt.Sprintf("Tool %s failed unexpectedly: %v", spec.Name, r), false
		}
	}()
	res, err := tool.Run(ctx, query)
	if err != nil {
		return fmt.Sprintf("Error running tool %s: %v", spec.Name, err), false
	}
	return res, true
}
