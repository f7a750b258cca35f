package ai_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sanuei/YoutubePlanner-sub000/pkg/ai"
	"github.com/sanuei/YoutubePlanner-sub000/pkg/ai/providers"
	"github.com/tidwall/gjson"
)

type countingObserver struct {
	mu        sync.Mutex
	fragments int
	malformed int
	outcomes  []string
}

func (o *countingObserver) Fragment(string) {
	o.mu.Lock()
	o.fragments++
	o.mu.Unlock()
}

func (o *countingObserver) Malformed(string) {
	o.mu.Lock()
	o.malformed++
	o.mu.Unlock()
}

func (o *countingObserver) Finished(_ string, outcome string, _ time.Duration) {
	o.mu.Lock()
	o.outcomes = append(o.outcomes, outcome)
	o.mu.Unlock()
}

func newIngestor(obs ai.Observer) *ai.Ingestor {
	return ai.NewIngestor(ai.IngestorParams{
		Resolver:              providers.Resolve,
		MaxConcurrentRequests: 2,
		Observer:              obs,
	})
}

func config(kind ai.Kind, url string) ai.ProviderConfig {
	return ai.ProviderConfig{
		Kind:    kind,
		BaseURL: url,
		APIKey:  "test-key",
		Model:   "test-model",
		Timeout: 5 * time.Second,
	}
}

func writeFrames(w http.ResponseWriter, frames ...string) {
	f := w.(http.Flusher)
	for _, frame := range frames {
		fmt.Fprint(w, frame)
		f.Flush()
	}
}

func TestIngestor_OpenAIStreamSkipsMalformedFrames(t *testing.T) {
	var gotBody, gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody, gotAuth, gotPath = string(b), r.Header.Get("Authorization"), r.URL.Path
		w.Header().Set("Content-Type", "text/event-stream")
		writeFrames(w,
			": keep-alive\n\n",
			`data: {"choices":[{"delta":{"role":"assistant","content":""}}]}`+"\n\n",
			`data: {"choices":[{"delta":{"content":"**主标题**\n"}}]}`+"\n\n",
			"data: {this is not json\n\n",
			`data: {"choices":[{"delta":{"content":"Hello"}}]}`+"\n\n",
			"data: [DONE]\n\n",
			`data: {"choices":[{"delta":{"content":"after done"}}]}`+"\n\n",
		)
	}))
	defer srv.Close()

	obs := &countingObserver{}
	buf := ai.NewBuffer()
	buf.Reset(1)
	err := newIngestor(obs).Run(context.Background(), config(ai.KindOpenAI, srv.URL), "- X", buf, 1, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	snap := buf.Snapshot()
	if snap.Text != "**主标题**\nHello" || snap.Status != ai.StatusDone {
		t.Fatalf("buffer = %+v", snap)
	}
	if gotPath != "/v1/chat/completions" {
		t.Fatalf("path = %s", gotPath)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if !gjson.Get(gotBody, "stream").Bool() ||
		gjson.Get(gotBody, "temperature").Float() != 0.7 ||
		gjson.Get(gotBody, "max_tokens").Int() != 2000 ||
		gjson.Get(gotBody, "messages.0.content").String() != "- X" {
		t.Fatalf("unexpected request body %s", gotBody)
	}
	if obs.malformed != 1 || obs.fragments != 2 {
		t.Fatalf("observer saw %d malformed, %d fragments", obs.malformed, obs.fragments)
	}
}

func TestIngestor_ErrorAfterThreeFragments(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "error event",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeFrames(w,
					"event: content_block_delta\n"+`data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"one "}}`+"\n\n",
					"event: ping\n"+`data: {"type":"ping"}`+"\n\n",
					"event: content_block_delta\n"+`data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"two "}}`+"\n\n",
					"event: content_block_delta\n"+`data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"three"}}`+"\n\n",
					"event: error\n"+`data: {"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`+"\n\n",
				)
			},
		},
		{
			name: "connection dropped",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeFrames(w,
					`data: {"type":"content_block_delta","delta":{"text":"one "}}`+"\n\n",
					`data: {"type":"content_block_delta","delta":{"text":"two "}}`+"\n\n",
					`data: {"type":"content_block_delta","delta":{"text":"three"}}`+"\n\n",
				)
				panic(http.ErrAbortHandler)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			buf := ai.NewBuffer()
			buf.Reset(7)
			err := newIngestor(nil).Run(context.Background(), config(ai.KindClaude, srv.URL), "p", buf, 7, nil)

			var pe *ai.ProviderError
			if !errors.As(err, &pe) {
				t.Fatalf("expected ProviderError, got %v", err)
			}
			snap := buf.Snapshot()
			if snap.Text != "one two three" {
				t.Fatalf("buffer text = %q", snap.Text)
			}
			if snap.Status != ai.StatusErrored {
				t.Fatalf("status = %s, want errored", snap.Status)
			}
		})
	}
}

func TestIngestor_ClaudeRequest(t *testing.T) {
	var hdr http.Header
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hdr = r.Header.Clone()
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		if r.URL.Path != "/v1/messages" {
			http.NotFound(w, r)
			return
		}
		writeFrames(w,
			`data: {"type":"message_start","message":{"id":"m"}}`+"\n\n",
			`data: {"type":"content_block_delta","delta":{"text":"hi"}}`+"\n\n",
			`data: {"type":"message_stop"}`+"\n\n",
		)
	}))
	defer srv.Close()

	events, err := newIngestor(nil).Stream(context.Background(), config(ai.KindClaude, srv.URL+"/v1"), "prompt")
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	var types []string
	for ev := range events {
		types = append(types, ev.Type)
	}
	if strings.Join(types, ",") != "content,done" {
		t.Fatalf("events = %v", types)
	}
	if hdr.Get("x-api-key") != "test-key" || hdr.Get("anthropic-version") != "2023-06-01" {
		t.Fatalf("missing claude headers: %v", hdr)
	}
	if gjson.Get(body, "max_tokens").Int() != 2000 || !gjson.Get(body, "stream").Bool() {
		t.Fatalf("unexpected body %s", body)
	}
}

func TestIngestor_OllamaNDJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		writeFrames(w,
			`{"model":"m","message":{"role":"assistant","content":"第1章"},"done":false}`+"\n",
			"garbage\n",
			`{"model":"m","message":{"role":"assistant","content":"：开场"},"done":false}`+"\n",
			`{"model":"m","message":{"role":"assistant","content":""},"done":true}`,
		)
	}))
	defer srv.Close()

	cfg := config(ai.KindOllama, srv.URL)
	cfg.APIKey = ""
	buf := ai.NewBuffer()
	buf.Reset(1)
	if err := newIngestor(nil).Run(context.Background(), cfg, "p", buf, 1, nil); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := buf.String(); got != "第1章：开场" {
		t.Fatalf("buffer = %q", got)
	}
}

func TestIngestor_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeFrames(w, `data: {"choices":[{"delta":{"content":"partial"}}]}`+"\n\n")
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	cfg := config(ai.KindOpenAI, srv.URL)
	cfg.Timeout = 150 * time.Millisecond
	obs := &countingObserver{}
	buf := ai.NewBuffer()
	buf.Reset(3)

	start := time.Now()
	err := newIngestor(obs).Run(context.Background(), cfg, "p", buf, 3, nil)
	if !errors.Is(err, ai.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if time.Since(start) > 3*time.Second {
		t.Fatalf("timeout took too long: %v", time.Since(start))
	}
	snap := buf.Snapshot()
	if snap.Text != "partial" || snap.Status != ai.StatusErrored {
		t.Fatalf("buffer = %+v", snap)
	}
	if len(obs.outcomes) != 1 || obs.outcomes[0] != ai.OutcomeTimeout {
		t.Fatalf("outcomes = %v", obs.outcomes)
	}
}

func TestIngestor_CancelStopsStream(t *testing.T) {
	sent := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeFrames(w, `data: {"choices":[{"delta":{"content":"a"}}]}`+"\n\n")
		close(sent)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-sent
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	buf := ai.NewBuffer()
	buf.Reset(1)
	err := newIngestor(nil).Run(ctx, config(ai.KindOpenAI, srv.URL), "p", buf, 1, nil)
	if !errors.Is(err, ai.ErrCanceled) {
		t.Fatalf("expected ErrCanceled, got %v", err)
	}
	if buf.Status() != ai.StatusErrored {
		t.Fatalf("status = %s", buf.Status())
	}
}

func TestIngestor_NonSuccessStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{
			name:   "json error",
			status: http.StatusUnauthorized,
			body:   `{"error":{"message":"Incorrect API key provided"}}`,
			want:   "HTTP 401: Unauthorized\nIncorrect API key provided",
		},
		{
			name:   "plain body",
			status: http.StatusBadGateway,
			body:   strings.Repeat("x", 400),
			want:   "HTTP 502: Bad Gateway\n" + strings.Repeat("x", 300),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			_, err := newIngestor(nil).Stream(context.Background(), config(ai.KindCustom, srv.URL), "p")
			var pe *ai.ProviderError
			if !errors.As(err, &pe) {
				t.Fatalf("expected ProviderError, got %v", err)
			}
			if pe.Status != tt.status || pe.Message != tt.want {
				t.Fatalf("error = %d %q", pe.Status, pe.Message)
			}
		})
	}
}

func TestIngestor_ConfigErrors(t *testing.T) {
	in := newIngestor(nil)

	_, err := in.Stream(context.Background(), ai.ProviderConfig{Kind: ai.KindOpenAI, BaseURL: "http://x", Model: "m"}, "p")
	if !errors.Is(err, ai.ErrMissingConfig) {
		t.Fatalf("expected ErrMissingConfig, got %v", err)
	}

	_, err = in.Stream(context.Background(), config("gemini", "http://x"), "p")
	if !errors.Is(err, ai.ErrUnsupportedProvider) {
		t.Fatalf("expected ErrUnsupportedProvider, got %v", err)
	}
}
