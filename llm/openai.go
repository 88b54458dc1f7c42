package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	goextract "github.com/soundprediction/go-extract"
	"github.com/soundprediction/go-extract/internal"
)

// OpenAI is a reference Adapter talking to OpenAI's Chat Completions API
// through the go-openai SDK.
type OpenAI struct {
	model  string
	params Parameters

	MaxWorkers int
	Timeout    time.Duration

	client *goopenai.Client
	logger *slog.Logger
}

// NewOpenAI creates a new OpenAI adapter for the given API key and model.
func NewOpenAI(apiKey, model string, params Parameters, logger *slog.Logger) OpenAI {
	return OpenAI{
		model:      model,
		params:     params,
		MaxWorkers: defaultMaxWorkers,
		Timeout:    60 * time.Second,
		client:     goopenai.NewClient(apiKey),
		logger:     logger.With(slog.String("module", "openai")),
	}
}

// Infer implements goextract.Adapter: it sends one chat-completion request
// per prompt, with at most MaxWorkers in flight, and wraps each reply as a
// single ScoredOutput.
func (o OpenAI) Infer(ctx context.Context, batchPrompts []string) ([][]goextract.ScoredOutput, error) {
	return runBatch(ctx, batchPrompts, o.MaxWorkers, o.inferOne)
}

func (o OpenAI) inferOne(ctx context.Context, prompt string) ([]goextract.ScoredOutput, error) {
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if n, err := internal.CountTokens(prompt); err == nil {
		o.logger.Debug("sending prompt", "tokens", n)
	}

	req := o.chatRequest([]goopenai.ChatCompletionMessage{
		{Role: goopenai.ChatMessageRoleUser, Content: prompt},
	})

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no choices found")
	}

	text := strings.TrimSpace(RemoveThinkTags(resp.Choices[0].Message.Content))
	return []goextract.ScoredOutput{{Score: 1, HasScore: true, Output: text}}, nil
}

func (o OpenAI) chatRequest(messages []goopenai.ChatCompletionMessage) goopenai.ChatCompletionRequest {
	req := goopenai.ChatCompletionRequest{
		Model:    o.model,
		Messages: messages,
	}

	if o.params.Temperature != nil {
		req.Temperature = *o.params.Temperature
	}
	if o.params.TopP != nil {
		req.TopP = *o.params.TopP
	}
	if o.params.Stop != nil {
		req.Stop = o.params.Stop
	}
	if o.params.PresencePenalty != nil {
		req.PresencePenalty = *o.params.PresencePenalty
	}
	if o.params.Seed != nil {
		req.Seed = o.params.Seed
	}
	if o.params.FrequencyPenalty != nil {
		req.FrequencyPenalty = *o.params.FrequencyPenalty
	}
	if o.params.LogitBias != nil {
		req.LogitBias = o.params.LogitBias
	}
	if o.params.Logprobs != nil {
		req.LogProbs = *o.params.Logprobs
	}
	if o.params.TopLogprobs != nil {
		req.TopLogProbs = *o.params.TopLogprobs
	}
	if o.params.MaxTokens != nil {
		req.MaxTokens = *o.params.MaxTokens
	}

	return req
}
