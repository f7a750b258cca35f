package openai

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sanuei/YoutubePlanner-sub000/pkg/ai"
	"github.com/tidwall/gjson"
)

func TestAdapter_Decode(t *testing.T) {
	a := Adapter{}

	d, err := a.Decode(ai.Frame{Data: `{"id":"c1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":"Hello"}}]}`})
	if err != nil || d.Text != "Hello" || d.Done {
		t.Fatalf("content frame = %+v, %v", d, err)
	}

	d, err = a.Decode(ai.Frame{Data: `{"choices":[]}`})
	if err != nil || d != (ai.Delta{}) {
		t.Fatalf("usage frame = %+v, %v", d, err)
	}

	d, err = a.Decode(ai.Frame{Data: "[DONE]"})
	if err != nil || !d.Done {
		t.Fatalf("done frame = %+v, %v", d, err)
	}

	if _, err := a.Decode(ai.Frame{Data: `{"choices":[{"delta":`}); !errors.Is(err, ai.ErrMalformedFrame) {
		t.Fatalf("expected ErrMalformedFrame, got %v", err)
	}

	var pe *ai.ProviderError
	if _, err := a.Decode(ai.Frame{Data: `{"error":{"message":"quota exceeded"}}`}); !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
}

func TestAdapter_NewRequest(t *testing.T) {
	cfg := ai.ProviderConfig{
		Kind:    ai.KindCustom,
		BaseURL: "https://api.deepseek.com/v1",
		APIKey:  "sk-1",
		Model:   "deepseek-chat",
	}.WithDefaults()

	req, err := Adapter{}.NewRequest(context.Background(), cfg, "outline")
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if req.URL.String() != "https://api.deepseek.com/v1/chat/completions" {
		t.Fatalf("url = %s", req.URL)
	}
	body, _ := io.ReadAll(req.Body)
	if gjson.GetBytes(body, "model").String() != "deepseek-chat" || gjson.GetBytes(body, "messages.0.role").String() != "user" {
		t.Fatalf("body = %s", body)
	}
}
