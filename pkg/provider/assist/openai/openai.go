// Package openai provides an assist provider backed by the OpenAI API.
package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/voxjot/voxjot/pkg/provider/assist"
	"github.com/voxjot/voxjot/pkg/types"
)

// Provider implements assist.Provider using the OpenAI chat completions API.
type Provider struct {
	client oai.Client
	model  string
}

// Compile-time interface check.
var _ assist.Provider = (*Provider)(nil)

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs a new OpenAI assist Provider.
func New(apiKey string, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("openai: model must not be empty")
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	client := oai.NewClient(reqOpts...)
	return &Provider{client: client, model: model}, nil
}

// Analyze implements assist.Provider. The raw model payload is validated by
// assist.ParseAnalysis; malformed payloads surface as errors, never as
// half-populated results.
func (p *Provider) Analyze(ctx context.Context, text string, image []byte) (assist.Analysis, error) {
	var userMsg oai.ChatCompletionMessageParamUnion
	if len(image) > 0 {
		dataURI := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image)
		parts := []oai.ChatCompletionContentPartUnionParam{
			oai.ImageContentPart(oai.ChatCompletionContentPartImageImageURLParam{URL: dataURI}),
		}
		if text != "" {
			parts = append(parts, oai.TextContentPart(text))
		}
		userMsg = oai.UserMessage(parts)
	} else {
		userMsg = oai.UserMessage(text)
	}

	resp, err := p.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(assist.AnalyzeSystemPrompt),
			userMsg,
		},
		ResponseFormat: oai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return assist.Analysis{}, fmt.Errorf("openai: analyze: %w", err)
	}
	if len(resp.Choices) == 0 {
		return assist.Analysis{}, fmt.Errorf("openai: analyze: empty choices in response")
	}

	return assist.ParseAnalysis(resp.Choices[0].Message.Content)
}

// Proofread implements assist.Provider.
func (p *Provider) Proofread(ctx context.Context, text string) (string, error) {
	content, err := p.complete(ctx, assist.ProofreadSystemPrompt, text)
	if err != nil {
		return "", fmt.Errorf("openai: proofread: %w", err)
	}
	return content, nil
}

// ExtractKeywords implements assist.Provider.
func (p *Provider) ExtractKeywords(ctx context.Context, text string) ([]string, error) {
	content, err := p.complete(ctx, assist.KeywordsSystemPrompt, text)
	if err != nil {
		return nil, fmt.Errorf("openai: extract keywords: %w", err)
	}
	return assist.ParseKeywords(content)
}

// Chat implements assist.Provider.
func (p *Provider) Chat(ctx context.Context, recordContext string, history []types.ChatMessage, message string) (string, error) {
	messages := []oai.ChatCompletionMessageParamUnion{
		oai.SystemMessage(assist.ChatSystemPrompt + "\n\nThe journal entry:\n" + recordContext),
	}
	for _, m := range history {
		switch m.Role {
		case types.RoleAssistant:
			messages = append(messages, oai.AssistantMessage(m.Text))
		default:
			messages = append(messages, oai.UserMessage(m.Text))
		}
	}
	messages = append(messages, oai.UserMessage(message))

	resp, err := p.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("openai: chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: chat: empty choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

// complete runs a single system+user exchange and returns the text content.
func (p *Provider) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(system),
			oai.UserMessage(user),
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}
