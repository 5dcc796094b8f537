package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/arbengine/arbengine/internal/errkind"
)

// HTTPProvider calls an OpenAI-compatible chat-completions endpoint
// and parses the model's JSON reply into a Response.
type HTTPProvider struct {
	name         string
	client       *resty.Client
	model        string
	costPerToken float64 // blended $/token used for usage accounting
}

// NewHTTPProvider builds a provider bound to baseURL with bearer auth.
func NewHTTPProvider(name, baseURL, apiKey, model string, costPerToken float64) *HTTPProvider {
	return &HTTPProvider{
		name:         name,
		client:       resty.New().SetBaseURL(baseURL).SetAuthToken(apiKey),
		model:        model,
		costPerToken: costPerToken,
	}
}

func (p *HTTPProvider) Name() string { return p.name }

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Score sends prompt as a single user message and parses the model's
// content as a Response JSON object.
func (p *HTTPProvider) Score(ctx context.Context, prompt string) (Response, Usage, error) {
	var raw chatResponse
	resp, err := p.client.R().SetContext(ctx).
		SetBody(chatRequest{Model: p.model, Messages: []chatMessage{{Role: "user", Content: prompt}}}).
		SetResult(&raw).
		Post("/chat/completions")
	if err != nil {
		return Response{}, Usage{}, errkind.New(errkind.KindTransientTransport, err)
	}
	if resp.IsError() {
		if resp.StatusCode() >= 500 || resp.StatusCode() == 429 {
			return Response{}, Usage{}, errkind.New(errkind.KindTransientTransport, fmt.Errorf("llm provider %s: status %d", p.name, resp.StatusCode()))
		}
		return Response{}, Usage{}, fmt.Errorf("llm provider %s permanent failure: status %d", p.name, resp.StatusCode())
	}
	if len(raw.Choices) == 0 {
		return Response{}, Usage{}, fmt.Errorf("llm provider %s: empty choices", p.name)
	}

	var parsed Response
	if err := json.Unmarshal([]byte(raw.Choices[0].Message.Content), &parsed); err != nil {
		return Response{}, Usage{}, fmt.Errorf("llm provider %s: malformed reply: %w", p.name, err)
	}

	usage := Usage{
		Provider:         p.name,
		PromptTokens:     raw.Usage.PromptTokens,
		CompletionTokens: raw.Usage.CompletionTokens,
		CostUSD:          float64(raw.Usage.PromptTokens+raw.Usage.CompletionTokens) * p.costPerToken,
	}
	return parsed, usage, nil
}
