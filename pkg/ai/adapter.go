package ai

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// Framing is how a provider splits its response body into frames.
type Framing int

const (
	// FramingSSE is text/event-stream: "event:" and "data:" lines.
	FramingSSE Framing = iota
	// FramingNDJSON is one JSON document per line.
	FramingNDJSON
)

// Frame is one decoded unit of a provider response.
type Frame struct {
	Event string
	Data  string
}

// Delta is what an adapter extracts from a frame. A frame may carry no
// text (keep-alives, metadata) and still be well formed.
type Delta struct {
	Text string
	Done bool
}

// Adapter hides one provider's wire format.
//
// Decode returns an error wrapping ErrMalformedFrame for frames that cannot
// be understood; those are skipped. Any other error ends the stream.
type Adapter interface {
	Name() string
	Framing() Framing
	NewRequest(ctx context.Context, cfg ProviderConfig, prompt string) (*http.Request, error)
	Decode(frame Frame) (Delta, error)
}

// Resolver returns the adapter for a provider kind.
type Resolver func(kind Kind) (Adapter, error)

// Endpoint joins a configured base URL with a provider path such as
// "/v1/chat/completions". Only the path of the base is inspected: a base
// whose path already ends in the full path is used as is, and one whose
// path already carries a "/v1" segment only gets the rest.
func Endpoint(baseURL, path string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return base + path
	}
	rest := strings.TrimPrefix(path, "/v1")
	switch p := u.Path; {
	case strings.HasSuffix(p, path), rest != path && strings.HasSuffix(p, rest):
		return base
	case rest != path && (strings.HasSuffix(p, "/v1") || strings.Contains(p, "/v1/")):
		u.Path = p + rest
	default:
		u.Path = p + path
	}
	return u.String()
}
