// Package anyllm provides an assist provider backed by
// github.com/mozilla-ai/any-llm-go, a unified multi-provider interface that
// supports OpenAI, Anthropic, Gemini, Ollama, DeepSeek, Mistral, Groq, and more.
//
// Usage:
//
//	p, err := anyllm.New("openai", "gpt-4o", anyllmlib.WithAPIKey("sk-..."))
//	p, err := anyllm.NewAnthropic("claude-3-5-sonnet-latest", anyllmlib.WithAPIKey("sk-ant-..."))
package anyllm

import (
	"context"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/llamafile"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/voxjot/voxjot/pkg/provider/assist"
	"github.com/voxjot/voxjot/pkg/types"
)

// Provider implements assist.Provider by wrapping github.com/mozilla-ai/any-llm-go.
//
// Image input is not supported by this backend; Analyze ignores the image
// argument and classifies from text alone.
type Provider struct {
	backend anyllmlib.Provider
	model   string
}

var _ assist.Provider = (*Provider)(nil)

// New creates a new Provider backed by the given LLM provider name.
//
// providerName is one of: "openai", "anthropic", "gemini", "ollama", "deepseek",
// "mistral", "groq", "llamacpp", "llamafile".
//
// model is the specific model to use (e.g., "gpt-4o", "claude-3-5-sonnet-latest").
//
// opts are any-llm-go configuration options (e.g., anyllmlib.WithAPIKey,
// anyllmlib.WithBaseURL). If no API key option is provided, the provider falls
// back to the relevant environment variable (OPENAI_API_KEY, ANTHROPIC_API_KEY, ...).
func New(providerName string, model string, opts ...anyllmlib.Option) (*Provider, error) {
	if providerName == "" {
		return nil, fmt.Errorf("anyllm: providerName must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("anyllm: model must not be empty")
	}

	backend, err := createBackend(providerName, opts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %q backend: %w", providerName, err)
	}

	return &Provider{backend: backend, model: model}, nil
}

// NewOpenAI creates a Provider backed by OpenAI.
// Without options, it reads the OPENAI_API_KEY environment variable.
func NewOpenAI(model string, opts ...anyllmlib.Option) (*Provider, error) {
	return New("openai", model, opts...)
}

// NewAnthropic creates a Provider backed by Anthropic.
// Without options, it reads the ANTHROPIC_API_KEY environment variable.
func NewAnthropic(model string, opts ...anyllmlib.Option) (*Provider, error) {
	return New("anthropic", model, opts...)
}

// NewOllama creates a Provider backed by Ollama (local inference).
// Without options, it connects to http://localhost:11434.
func NewOllama(model string, opts ...anyllmlib.Option) (*Provider, error) {
	return New("ollama", model, opts...)
}

// createBackend creates the underlying any-llm-go provider for the given name.
func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "deepseek":
		return deepseek.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	case "llamacpp":
		return llamacpp.New(opts...)
	case "llamafile":
		return llamafile.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: openai, anthropic, gemini, ollama, deepseek, mistral, groq, llamacpp, llamafile", providerName)
	}
}

// Analyze implements assist.Provider.
func (p *Provider) Analyze(ctx context.Context, text string, image []byte) (assist.Analysis, error) {
	_ = image // text-only backend
	raw, err := p.complete(ctx, assist.AnalyzeSystemPrompt, nil, text)
	if err != nil {
		return assist.Analysis{}, fmt.Errorf("anyllm: analyze: %w", err)
	}
	return assist.ParseAnalysis(raw)
}

// Proofread implements assist.Provider.
func (p *Provider) Proofread(ctx context.Context, text string) (string, error) {
	out, err := p.complete(ctx, assist.ProofreadSystemPrompt, nil, text)
	if err != nil {
		return "", fmt.Errorf("anyllm: proofread: %w", err)
	}
	return out, nil
}

// ExtractKeywords implements assist.Provider.
func (p *Provider) ExtractKeywords(ctx context.Context, text string) ([]string, error) {
	raw, err := p.complete(ctx, assist.KeywordsSystemPrompt, nil, text)
	if err != nil {
		return nil, fmt.Errorf("anyllm: extract keywords: %w", err)
	}
	return assist.ParseKeywords(raw)
}

// Chat implements assist.Provider.
func (p *Provider) Chat(ctx context.Context, recordContext string, history []types.ChatMessage, message string) (string, error) {
	system := assist.ChatSystemPrompt + "\n\nThe journal entry:\n" + recordContext
	out, err := p.complete(ctx, system, history, message)
	if err != nil {
		return "", fmt.Errorf("anyllm: chat: %w", err)
	}
	return out, nil
}

// complete runs a completion with the given system prompt, optional prior
// conversation, and final user message, returning the text content.
func (p *Provider) complete(ctx context.Context, system string, history []types.ChatMessage, user string) (string, error) {
	messages := []anyllmlib.Message{
		{Role: anyllmlib.RoleSystem, Content: system},
	}
	for _, m := range history {
		role := anyllmlib.RoleUser
		if m.Role == types.RoleAssistant {
			role = anyllmlib.RoleAssistant
		}
		messages = append(messages, anyllmlib.Message{Role: role, Content: m.Text})
	}
	messages = append(messages, anyllmlib.Message{Role: anyllmlib.RoleUser, Content: user})

	resp, err := p.backend.Completion(ctx, anyllmlib.CompletionParams{
		Model:    p.model,
		Messages: messages,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty choices in response")
	}
	return resp.Choices[0].Message.ContentString(), nil
}
