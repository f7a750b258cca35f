// Package anthropic decodes the Claude messages streaming format.
package anthropic

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/sanuei/YoutubePlanner-sub000/pkg/ai"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	MessagesPath = "/v1/messages"
	APIVersion   = "2023-06-01"
)

type Adapter struct{}

func (Adapter) Name() string { return "claude" }

func (Adapter) Framing() ai.Framing { return ai.FramingSSE }

func (Adapter) NewRequest(ctx context.Context, cfg ai.ProviderConfig, prompt string) (*http.Request, error) {
	body := []byte(`{}`)
	var err error
	for _, set := range []struct {
		path  string
		value any
	}{
		{"model", cfg.Model},
		{"max_tokens", cfg.MaxTokens},
		{"temperature", cfg.Temperature},
		{"messages.0.role", "user"},
		{"messages.0.content", prompt},
		{"stream", true},
	} {
		if body, err = sjson.SetBytes(body, set.path, set.value); err != nil {
			return nil, fmt.Errorf("encode messages request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ai.Endpoint(cfg.BaseURL, MessagesPath), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("x-api-key", cfg.APIKey)
	req.Header.Set("anthropic-version", APIVersion)
	return req, nil
}

// Decode extracts delta.text from content_block_delta events and stops at
// message_stop. Other event types carry no text.
func (Adapter) Decode(frame ai.Frame) (ai.Delta, error) {
	if frame.Data == "[DONE]" {
		return ai.Delta{Done: true}, nil
	}
	if !gjson.Valid(frame.Data) {
		return ai.Delta{}, fmt.Errorf("%w: invalid json", ai.ErrMalformedFrame)
	}

	data := gjson.Parse(frame.Data)
	typ := data.Get("type").String()
	if typ == "" {
		typ = frame.Event
	}
	switch typ {
	case "content_block_delta":
		return ai.Delta{Text: data.Get("delta.text").String()}, nil
	case "message_stop":
		return ai.Delta{Done: true}, nil
	case "error":
		msg := data.Get("error.message").String()
		if msg == "" {
			msg = data.Get("error").String()
		}
		return ai.Delta{}, &ai.ProviderError{Message: msg}
	case "":
		return ai.Delta{}, fmt.Errorf("%w: missing event type", ai.ErrMalformedFrame)
	default:
		return ai.Delta{}, nil
	}
}
