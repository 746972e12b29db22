package ai

import (
	"context"
	"errors"
	"strings"

	genai "google.golang.org/genai"
)

// maxPromptRunes caps how much of each section version goes into a prompt.
const maxPromptRunes = 6000

type Gemini struct {
	model    string
	generate func(ctx context.Context, prompt string) (string, error)
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("missing Gemini API key")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	g := &Gemini{model: model}
	g.generate = func(ctx context.Context, prompt string) (string, error) {
		res, err := c.Models.GenerateContent(ctx, g.model, []*genai.Content{
			genai.NewContentFromText(prompt, genai.RoleUser),
		}, nil)
		if err != nil {
			return "", err
		}
		return res.Text(), nil
	}
	return g, nil
}

func (g *Gemini) DescribeChange(ctx context.Context, title, before, after string) (string, error) {
	if g.generate == nil {
		return "", nil
	}
	prompt := "Two versions of the document section \"" + title + "\" follow. " +
		"In at most two sentences, state what changed from the previous version to the new one. " +
		"Name concrete edits only, no preamble, no code fences.\n\n" +
		"PREVIOUS VERSION:\n" + clip(before) + "\n\nNEW VERSION:\n" + clip(after)
	out, err := g.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(stripCodeFences(out)), nil
}

// RepairToC falls back to the raw lines when the model fails or answers
// with nothing.
func (g *Gemini) RepairToC(ctx context.Context, raw []string) ([]string, error) {
	if g.generate == nil || len(raw) == 0 {
		return raw, nil
	}
	prompt := "Fix and normalize this Table of Contents to one entry per line as 'NUMBER TITLE .... PAGE', keep order, no extra text.\n\n" +
		strings.Join(raw, "\n")
	out, err := g.generate(ctx, prompt)
	if err != nil || strings.TrimSpace(out) == "" {
		return raw, nil
	}
	return splitLines(stripCodeFences(out)), nil
}

func clip(s string) string {
	r := []rune(s)
	if len(r) <= maxPromptRunes {
		return s
	}
	return string(r[:maxPromptRunes]) + "\n[truncated]"
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if nl := strings.Index(s, "\n"); nl != -1 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}

func splitLines(s string) []string {
	var lines []string
	for _, ln := range strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == '\r' }) {
		if ln = strings.TrimSpace(ln); ln != "" {
			lines = append(lines, ln)
		}
	}
	return lines
}
