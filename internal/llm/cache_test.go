package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModel struct{ name string }

func (m *fakeModel) Name() string { return m.name }
func (m *fakeModel) Invoke(context.Context, Prompt) (string, error) {
	return `{"tool": "converse", "args": {"response": "` + m.name + `"}}`, nil
}

type fakeProvider struct {
	names   []string
	listErr error
	created int
}

func (p *fakeProvider) ListModels(context.Context) ([]string, error) {
	if p.listErr != nil {
		return nil, p.listErr
	}
	return p.names, nil
}

func (p *fakeProvider) Model(name string) (Model, error) {
	if name == "" {
		return nil, errors.New("model name is required")
	}
	p.created++
	return &fakeModel{name: name}, nil
}

func TestModelCache_ReusesModels(t *testing.T) {
	p := &fakeProvider{}
	c := NewModelCache(p, "mistral:instruct")

	m1, err := c.Current()
	require.NoError(t, err)
	m2, err := c.Load("mistral:instruct")
	require.NoError(t, err)
	assert.Same(t, m1, m2)
	assert.Equal(t, 1, p.created)

	_, err = c.Load("llama3")
	require.NoError(t, err)
	assert.Equal(t, "llama3", c.CurrentName())
	assert.Equal(t, 2, p.created)
}

func TestModelCache_LoadFailureKeepsCurrent(t *testing.T) {
	c := NewModelCache(&fakeProvider{}, "a")
	_, err := c.Load("")
	assert.Error(t, err)
	assert.Equal(t, "a", c.CurrentName())
}

func TestModelCache_AvailableFallsBackToLastList(t *testing.T) {
	p := &fakeProvider{names: []string{"a", "b"}}
	c := NewModelCache(p, "a")

	names, err := c.Available(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	p.listErr = errors.New("connection refused")
	names, err = c.Available(context.Background())
	assert.Error(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
}
