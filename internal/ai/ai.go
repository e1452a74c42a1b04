// Package ai adapts hosted LLM and embedding APIs to the small streaming
// interfaces the chat orchestrator and vector store depend on.
package ai

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/lalith-99/chatelio/internal/models"
)

// Stream yields reply text in arrival order. Recv returns io.EOF after the
// last chunk. Close releases the upstream connection and may be called at
// any time, including mid-stream.
type Stream interface {
	Recv() (string, error)
	Close() error
}

type Request struct {
	// System carries instructions and retrieved context.
	System  string
	History []models.Message
	Prompt  string
}

type Generator interface {
	Generate(ctx context.Context, req Request) (Stream, error)
}

type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Registry maps user-facing model names ("Gemini", "OpenAI") to generators.
type Registry struct {
	generators   map[string]Generator
	defaultModel string
}

func NewRegistry(defaultModel string) *Registry {
	return &Registry{
		generators:   make(map[string]Generator),
		defaultModel: defaultModel,
	}
}

func (r *Registry) Register(name string, g Generator) {
	r.generators[strings.ToLower(name)] = g
}

// Resolve returns the generator for name, falling back to the default
// model when name is empty.
func (r *Registry) Resolve(name string) (Generator, error) {
	if name == "" {
		name = r.defaultModel
	}
	g, ok := r.generators[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("model %q is not available (have: %s)", name, strings.Join(r.Names(), ", "))
	}
	return g, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.generators))
	for n := range r.generators {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
