package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	goextract "github.com/soundprediction/go-extract"
)

// Ollama is a reference Adapter talking to a local or self-hosted Ollama
// server.
type Ollama struct {
	model  string
	params Parameters

	MaxWorkers int
	Timeout    time.Duration

	client *api.Client
	logger *slog.Logger
}

// NewOllama creates a new Ollama adapter. The host parameter must be a
// valid URL pointing at an Ollama server; an invalid URL panics.
func NewOllama(host, model string, params Parameters, logger *slog.Logger) Ollama {
	u, err := url.Parse(host)
	if err != nil {
		panic(err)
	}

	return Ollama{
		model:      model,
		params:     params,
		MaxWorkers: defaultMaxWorkers,
		Timeout:    60 * time.Second,
		client:     api.NewClient(u, &http.Client{}),
		logger:     logger.With(slog.String("module", "ollama")),
	}
}

// Infer implements goextract.Adapter against the Ollama chat endpoint.
func (o Ollama) Infer(ctx context.Context, batchPrompts []string) ([][]goextract.ScoredOutput, error) {
	return runBatch(ctx, batchPrompts, o.MaxWorkers, o.inferOne)
}

func (o Ollama) inferOne(ctx context.Context, prompt string) ([]goextract.ScoredOutput, error) {
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := o.chatRequest(prompt)

	var result strings.Builder
	if err := o.client.Chat(ctx, &req, func(res api.ChatResponse) error {
		result.WriteString(res.Message.Content)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}

	text := strings.TrimSpace(RemoveThinkTags(result.String()))
	return []goextract.ScoredOutput{{Score: 1, HasScore: true, Output: text}}, nil
}

func (o Ollama) chatRequest(prompt string) api.ChatRequest {
	req := api.ChatRequest{
		Model:    o.model,
		Messages: []api.Message{{Role: "user", Content: prompt}},
	}

	opts := make(map[string]any)
	if o.params.Temperature != nil {
		opts["temperature"] = *o.params.Temperature
	}
	if o.params.Seed != nil {
		opts["seed"] = *o.params.Seed
	}
	if o.params.Stop != nil {
		opts["stop"] = o.params.Stop
	}
	if o.params.TopK != nil {
		opts["top_k"] = *o.params.TopK
	}
	if o.params.TopP != nil {
		opts["top_p"] = *o.params.TopP
	}
	if o.params.MinP != nil {
		opts["min_p"] = *o.params.MinP
	}
	req.Options = opts

	return req
}
