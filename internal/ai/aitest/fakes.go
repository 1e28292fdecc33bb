// Package aitest provides deterministic ai.Embedder and ai.Generator fakes.
package aitest

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var ErrUnknownText = errors.New("aitest: no vector for text")

// Embedder returns vectors keyed by the first line of the text.
type Embedder struct {
	Vectors map[string][]float32
	Errors  map[string]error

	mu    sync.Mutex
	calls map[string]int
}

func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	key, _, _ := strings.Cut(text, "\n")

	e.mu.Lock()
	if e.calls == nil {
		e.calls = make(map[string]int)
	}
	e.calls[key]++
	e.mu.Unlock()

	if err, ok := e.Errors[key]; ok {
		return nil, err
	}
	vec, ok := e.Vectors[key]
	if !ok {
		return nil, ErrUnknownText
	}
	return vec, nil
}

// Calls reports how many times a key was embedded.
func (e *Embedder) Calls(key string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[key]
}

// Generator answers every prompt with Response, or with Err when set. Respond,
// when set, takes precedence over both.
type Generator struct {
	Response string
	Err      error
	Respond  func(prompt string) (string, error)

	mu      sync.Mutex
	prompts []string
}

func (g *Generator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()

	if g.Respond != nil {
		return g.Respond(prompt)
	}
	if g.Err != nil {
		return "", g.Err
	}
	return g.Response, nil
}

func (g *Generator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}
