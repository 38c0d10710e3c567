package llm

import (
	"context"
	"sync"
)

// ModelCache keeps one Model per name for a provider and tracks which one
// is current. Listing failures are remembered so a host without a reachable
// server still starts.
type ModelCache struct {
	provider Provider

	mu        sync.Mutex
	models    map[string]Model
	current   string
	available []string
}

// NewModelCache creates a cache whose current model is defaultName.
func NewModelCache(provider Provider, defaultName string) *ModelCache {
	return &ModelCache{
		provider: provider,
		models:   make(map[string]Model),
		current:  defaultName,
	}
}

// Current returns the current model, creating it on first use.
func (c *ModelCache) Current() (Model, error) {
	c.mu.Lock()
	name := c.current
	c.mu.Unlock()
	return c.Load(name)
}

// CurrentName returns the current model name.
func (c *ModelCache) CurrentName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Load returns the model for name and makes it current.
func (c *ModelCache) Load(name string) (Model, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.models[name]; ok {
		c.current = name
		return m, nil
	}
	m, err := c.provider.Model(name)
	if err != nil {
		return nil, err
	}
	c.models[name] = m
	c.current = name
	return m, nil
}

// Available lists the provider's models. The result of the last successful
// call is returned if the provider is unreachable.
func (c *ModelCache) Available(ctx context.Context) ([]string, error) {
	names, err := c.provider.ListModels(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		return append([]string(nil), c.available...), err
	}
	c.available = names
	return append([]string(nil), names...), nil
}
