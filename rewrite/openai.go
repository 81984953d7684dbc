package rewrite

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"murmur/log"
)

const (
	DefaultBaseURL   = "https://integrate.api.nvidia.com/v1"
	DefaultModel     = "nvidia/llama-3.1-nemotron-nano-8b-v1"
	DefaultMaxTokens = 2048
)

type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	TopP        float32
	MaxTokens   int
}

// OpenAIRewriter streams edits through any OpenAI-compatible chat
// completion endpoint. Reasoning tokens some backends interleave with
// content are routed to the diagnostics log, never into the stream.
type OpenAIRewriter struct {
	client *openai.Client
	cfg    OpenAIConfig
}

func NewOpenAI(cfg OpenAIConfig) (*OpenAIRewriter, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("rewrite API key not set (MURMUR_REWRITE_API_KEY)")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	clientCfg.HTTPClient = &http.Client{Timeout: 90 * time.Second}

	return &OpenAIRewriter{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
	}, nil
}

func (r *OpenAIRewriter) Name() string { return r.cfg.Model }

func (r *OpenAIRewriter) Rewrite(ctx context.Context, text string) (<-chan Delta, error) {
	req := openai.ChatCompletionRequest{
		Model: r.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(text)},
		},
		Temperature: r.cfg.Temperature,
		TopP:        r.cfg.TopP,
		MaxTokens:   r.cfg.MaxTokens,
		Stream:      true,
	}

	stream, err := r.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("opening rewrite stream: %w", err)
	}

	ch := make(chan Delta, 32)
	go func() {
		defer close(ch)
		defer stream.Close()
		for {
			resp, err := stream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) {
					ch <- Delta{Done: true}
					return
				}
				ch <- Delta{Err: err}
				return
			}
			for _, choice := range resp.Choices {
				if choice.Delta.ReasoningContent != "" {
					log.Reasoning(choice.Delta.ReasoningContent)
				}
				if choice.Delta.Content != "" {
					ch <- Delta{Text: choice.Delta.Content}
				}
			}
		}
	}()
	return ch, nil
}
