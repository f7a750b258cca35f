package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/sanuei/YoutubePlanner-sub000/pkg/ai"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ChatPath is appended to base URLs that do not already name an endpoint.
const ChatPath = "/v1/chat/completions"

// Adapter speaks the chat completions streaming format used by OpenAI and
// every compatible server ("custom" providers).
type Adapter struct{}

func (Adapter) Name() string { return "openai" }

func (Adapter) Framing() ai.Framing { return ai.FramingSSE }

// NewRequest builds a streaming chat completion request with a single user
// message.
func (Adapter) NewRequest(ctx context.Context, cfg ai.ProviderConfig, prompt string) (*http.Request, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(cfg.Temperature),
		MaxTokens:   openai.Int(int64(cfg.MaxTokens)),
	}
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode chat request: %w", err)
	}
	// The SDK adds the stream flag itself; we drive the HTTP request directly.
	body, err = sjson.SetBytes(body, "stream", true)
	if err != nil {
		return nil, fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ai.Endpoint(cfg.BaseURL, ChatPath), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	return req, nil
}

// Decode reads choices[0].delta.content. "[DONE]" ends the stream.
func (Adapter) Decode(frame ai.Frame) (ai.Delta, error) {
	if frame.Data == "[DONE]" {
		return ai.Delta{Done: true}, nil
	}
	if !gjson.Valid(frame.Data) {
		return ai.Delta{}, fmt.Errorf("%w: invalid json", ai.ErrMalformedFrame)
	}
	if e := gjson.Get(frame.Data, "error"); e.Exists() {
		msg := e.Get("message").String()
		if msg == "" {
			msg = e.String()
		}
		return ai.Delta{}, &ai.ProviderError{Message: msg}
	}

	var chunk openai.ChatCompletionChunk
	if err := json.Unmarshal([]byte(frame.Data), &chunk); err != nil {
		return ai.Delta{}, fmt.Errorf("%w: %v", ai.ErrMalformedFrame, err)
	}
	if len(chunk.Choices) == 0 {
		return ai.Delta{}, nil
	}
	return ai.Delta{Text: chunk.Choices[0].Delta.Content}, nil
}
