package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopGenerator struct{ name string }

func (nopGenerator) Generate(ctx context.Context, req Request) (Stream, error) { return nil, nil }

func TestRegistry_Resolve(t *testing.T) {
	r := NewRegistry("Gemini")
	gem, oai := nopGenerator{"gemini"}, nopGenerator{"openai"}
	r.Register("Gemini", gem)
	r.Register("OpenAI", oai)

	g, err := r.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, gem, g)

	g, err = r.Resolve("openai")
	require.NoError(t, err)
	assert.Equal(t, oai, g)

	_, err = r.Resolve("Claude")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini, openai")
}

func TestSystemPrompt_IncludesSnippets(t *testing.T) {
	p := SystemPrompt("Acme Support", []string{"  Refunds take 5 days. ", "Shipping is free."})

	assert.Contains(t, p, "Acme Support")
	assert.Contains(t, p, "[1] Refunds take 5 days.")
	assert.Contains(t, p, "[2] Shipping is free.")
}

func TestSystemPrompt_NoContext(t *testing.T) {
	p := SystemPrompt("", nil)

	assert.Contains(t, p, "the company")
	assert.NotContains(t, p, "Context:")
}
