// Package llm asks an OpenAI-compatible chat model for SQL. Its output is
// untrusted and goes through the validator like any other candidate.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/dbsmedya/nlquery/internal/config"
	"github.com/dbsmedya/nlquery/internal/logger"
	"github.com/dbsmedya/nlquery/internal/types"
)

var (
	// ErrEmptyResponse is returned when the model answers without SQL.
	ErrEmptyResponse = errors.New("model returned no sql")
	// ErrMalformedResponse is returned when the answer is not the expected JSON object.
	ErrMalformedResponse = errors.New("model response is not a json object with an sql key")
)

// Generator produces a candidate query for a question over a schema listing.
type Generator interface {
	Generate(ctx context.Context, question, schemaText string) (types.Candidate, error)
}

// OpenAI is a Generator backed by the chat completions API.
type OpenAI struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      *logger.Logger
}

// NewOpenAI builds a client from configuration. It returns nil when the
// generator is disabled or has no API key.
func NewOpenAI(cfg config.LLMConfig, log *logger.Logger) *OpenAI {
	if !cfg.Active() {
		return nil
	}
	if log == nil {
		log = logger.NewNop()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4
	}
	return &OpenAI{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		temperature: cfg.Temperature,
		logger:      log,
	}
}

// Generate sends the schema as the system message and the question as the
// user message, asking for a JSON object.
func (o *OpenAI) Generate(ctx context.Context, question, schemaText string) (types.Candidate, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: BuildSystemPrompt(schemaText)},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
		Temperature: o.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return types.Candidate{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return types.Candidate{}, ErrEmptyResponse
	}

	cand, err := ParseResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return types.Candidate{}, err
	}
	o.logger.Debugw("model produced sql", "model", o.model, "sql", cand.SQL, "total_tokens", resp.Usage.TotalTokens)
	return cand, nil
}

type response struct {
	SQL         string `json:"sql"`
	Explanation string `json:"explanation"`
}

// ParseResponse decodes {"sql": ..., "explanation": ...}, tolerating a
// surrounding markdown code fence.
func ParseResponse(content string) (types.Candidate, error) {
	body := stripFence(content)
	if body == "" {
		return types.Candidate{}, ErrEmptyResponse
	}

	var r response
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return types.Candidate{}, ErrMalformedResponse
	}
	sql := strings.TrimSpace(r.SQL)
	if sql == "" {
		return types.Candidate{}, ErrEmptyResponse
	}
	return types.Candidate{
		SQL:         sql,
		Source:      types.SourceLLM,
		Explanation: strings.TrimSpace(r.Explanation),
	}, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:] // language tag
	} else {
		s = ""
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
