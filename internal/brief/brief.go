// Package brief turns performance signals into an AI-written content
// brief: what to make next and how to angle it.
package brief

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"affkit/internal/perfdb"
)

const defaultPrompt = `You are a short-form content strategist for an affiliate marketer.

Write a concise content brief for the next post.

Recommendation from the performance engine:
{{- if .HookStyle}}
- Hook style: {{.HookStyle}}{{end}}
{{- if .Topic}}
- Topic: {{.Topic}}{{end}}
{{- if .Product}}
- Product to feature: {{.Product}}{{end}}
{{- if ge .PostHour 0}}
- Post around {{.PostHour}}:00{{end}}
{{- if .Reasoning}}

Why these were picked:
{{- range .Reasoning}}
- {{.}}{{end}}{{end}}
{{- if .TrendHeadlines}}

Recent trend signals:
{{- range .TrendHeadlines}}
- {{.}}{{end}}{{end}}

The brief should include: a working title, the opening line, three talking
points, and a call to action that sends viewers to the tracked link. Do not
invent product claims.`

// Config selects the model endpoint. APIKey may be empty for local
// OpenAI-compatible servers.
type Config struct {
	BaseURL string
	Model   string
	APIKey  string
}

// Request carries the signals the prompt is built from.
type Request struct {
	HookStyle      string
	Topic          string
	Product        string
	PostHour       int
	Reasoning      []string
	TrendHeadlines []string
}

// Generator produces briefs via an OpenAI-compatible chat endpoint.
type Generator struct {
	cfg    Config
	client openai.Client
}

func New(cfg Config) (*Generator, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("AI model is not configured")
	}
	if strings.TrimSpace(cfg.APIKey) == "" && strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("AI is not configured: set an API key or a base URL")
	}
	var opts []option.RequestOption
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	return &Generator{cfg: cfg, client: openai.NewClient(opts...)}, nil
}

// FromRecommendation builds a Request from the engine's recommendation.
func FromRecommendation(rec *perfdb.Recommendation, trendHeadlines []string) Request {
	return Request{
		HookStyle:      rec.HookStyle,
		Topic:          rec.Topic,
		Product:        rec.Product,
		PostHour:       rec.PostHour,
		Reasoning:      rec.Reasoning,
		TrendHeadlines: trendHeadlines,
	}
}

// Generate renders the prompt and asks the model for the brief.
func (g *Generator) Generate(ctx context.Context, req Request) (string, error) {
	prompt, err := BuildPrompt(req)
	if err != nil {
		return "", err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	completion, err := g.client.Chat.Completions.New(timeoutCtx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: g.cfg.Model,
	})
	if err != nil {
		return "", fmt.Errorf("failed to get AI completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("AI returned no choices")
	}
	out := strings.TrimSpace(completion.Choices[0].Message.Content)
	if out == "" {
		return "", fmt.Errorf("AI returned empty content")
	}
	return out, nil
}

// BuildPrompt renders the brief prompt for a request.
func BuildPrompt(req Request) (string, error) {
	tmpl, err := template.New("brief").Parse(defaultPrompt)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, req); err != nil {
		return "", err
	}
	return buf.String(), nil
}
