package brief

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)

	_, err = New(Config{Model: "gpt-4o-mini"})
	require.Error(t, err)

	g, err := New(Config{Model: "gpt-4o-mini", APIKey: "sk-test"})
	require.NoError(t, err)
	require.NotNil(t, g)

	// Local endpoints work without a key.
	g, err = New(Config{Model: "llama3", BaseURL: "http://localhost:11434/v1"})
	require.NoError(t, err)
	require.NotNil(t, g)
}

func TestBuildPrompt(t *testing.T) {
	prompt, err := BuildPrompt(Request{
		HookStyle: "tutorial",
		Topic:     "ai tools",
		Product:   "Jasper AI",
		PostHour:  19,
		Reasoning: []string{`using "tutorial" hook, avg score 1500.00 over 4 posts`},
		TrendHeadlines: []string{
			"New AI writing tool opens recurring program",
		},
	})
	require.NoError(t, err)
	require.Contains(t, prompt, "Hook style: tutorial")
	require.Contains(t, prompt, "Product to feature: Jasper AI")
	require.Contains(t, prompt, "Post around 19:00")
	require.Contains(t, prompt, "New AI writing tool opens recurring program")
}

func TestBuildPromptOmitsEmptySections(t *testing.T) {
	prompt, err := BuildPrompt(Request{PostHour: -1})
	require.NoError(t, err)
	require.NotContains(t, prompt, "Hook style:")
	require.NotContains(t, prompt, "Post around")
	require.NotContains(t, prompt, "Recent trend signals")
}
