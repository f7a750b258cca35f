package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ollama/ollama/api"
	"github.com/sanuei/YoutubePlanner-sub000/pkg/ai"
	"github.com/tidwall/gjson"
)

const ChatPath = "/api/chat"

// Adapter streams from a local Ollama server, which answers with one JSON
// object per line.
type Adapter struct{}

func (Adapter) Name() string { return "ollama" }

func (Adapter) Framing() ai.Framing { return ai.FramingNDJSON }

func (Adapter) NewRequest(ctx context.Context, cfg ai.ProviderConfig, prompt string) (*http.Request, error) {
	stream := true
	chat := &api.ChatRequest{
		Model: cfg.Model,
		Messages: []api.Message{
			{Role: "user", Content: prompt},
		},
		Stream: &stream,
		Options: map[string]any{
			"temperature": cfg.Temperature,
			"num_predict": cfg.MaxTokens,
		},
	}
	body, err := json.Marshal(chat)
	if err != nil {
		return nil, fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ai.Endpoint(cfg.BaseURL, ChatPath), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/x-ndjson")
	if cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	}
	return req, nil
}

func (Adapter) Decode(frame ai.Frame) (ai.Delta, error) {
	if !gjson.Valid(frame.Data) {
		return ai.Delta{}, fmt.Errorf("%w: invalid json", ai.ErrMalformedFrame)
	}
	if e := gjson.Get(frame.Data, "error"); e.Exists() {
		return ai.Delta{}, &ai.ProviderError{Message: e.String()}
	}

	var cr api.ChatResponse
	if err := json.Unmarshal([]byte(frame.Data), &cr); err != nil {
		return ai.Delta{}, fmt.Errorf("%w: %v", ai.ErrMalformedFrame, err)
	}
	return ai.Delta{Text: cr.Message.Content, Done: cr.Done}, nil
}
