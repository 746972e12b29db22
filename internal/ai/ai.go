// Package ai adds optional model-written notes to a consolidation: a short
// description of what changed between two versions of a section, and repair
// of printed tables of contents that text extraction garbled.
package ai

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Annotator is implemented by Noop and Gemini.
type Annotator interface {
	// DescribeChange summarizes the difference between two versions of the
	// titled section. An empty result means no note.
	DescribeChange(ctx context.Context, title, before, after string) (string, error)
	// RepairToC returns table of contents lines normalized to one
	// "NUMBER TITLE .... PAGE" entry per line.
	RepairToC(ctx context.Context, raw []string) ([]string, error)
}

type Noop struct{}

func (Noop) DescribeChange(ctx context.Context, title, before, after string) (string, error) {
	return "", nil
}

func (Noop) RepairToC(ctx context.Context, raw []string) ([]string, error) { return raw, nil }

// New returns the annotator for provider ("off" or "gemini"). The Gemini API
// key is read from the environment variable apiKeyEnv.
func New(ctx context.Context, provider, model, apiKeyEnv string) (Annotator, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", "off", "none":
		return Noop{}, nil
	case "gemini":
		key := os.Getenv(apiKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("ai: %s is not set", apiKeyEnv)
		}
		return NewGemini(ctx, key, model)
	}
	return nil, fmt.Errorf("ai: unknown provider %q", provider)
}
