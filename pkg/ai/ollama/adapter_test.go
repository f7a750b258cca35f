package ollama

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

	d, err := a.Decode(ai.Frame{Data: `{"model":"qwen","message":{"role":"assistant","content":"你好"},"done":false}`})
	if err != nil || d.Text != "你好" || d.Done {
		t.Fatalf("content frame = %+v, %v", d, err)
	}

	d, err = a.Decode(ai.Frame{Data: `{"model":"qwen","message":{"role":"assistant","content":""},"done":true}`})
	if err != nil || !d.Done {
		t.Fatalf("final frame = %+v, %v", d, err)
	}

	if _, err := a.Decode(ai.Frame{Data: `{"message":`}); !errors.Is(err, ai.ErrMalformedFrame) {
		t.Fatalf("expected ErrMalformedFrame, got %v", err)
	}

	var pe *ai.ProviderError
	if _, err := a.Decode(ai.Frame{Data: `{"error":"model not found"}`}); !errors.As(err, &pe) || pe.Message != "model not found" {
		t.Fatalf("expected ProviderError, got %v", err)
	}
}

func TestAdapter_NewRequest(t *testing.T) {
	cfg := ai.ProviderConfig{
		Kind:    ai.KindOllama,
		BaseURL: "http://localhost:11434",
		Model:   "qwen2.5",
	}.WithDefaults()

	req, err := Adapter{}.NewRequest(context.Background(), cfg, "outline")
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if req.URL.String() != "http://localhost:11434/api/chat" {
		t.Fatalf("url = %s", req.URL)
	}
	if req.Header.Get("Authorization") != "" {
		t.Fatal("no key configured, no auth header expected")
	}
	body, _ := io.ReadAll(req.Body)
	if !gjson.GetBytes(body, "stream").Bool() || gjson.GetBytes(body, "messages.0.content").String() != "outline" {
		t.Fatalf("body = %s", body)
	}
	if gjson.GetBytes(body, "options.num_predict").Int() != ai.DefaultMaxTokens {
		t.Fatalf("body = %s", body)
	}
}
