package ai

import (
	"fmt"
	"strings"
	"time"
)

// Kind names a completion provider.
type Kind string

const (
	KindOpenAI Kind = "openai"
	// KindCustom is any OpenAI-compatible endpoint.
	KindCustom Kind = "custom"
	KindClaude Kind = "claude"
	KindOllama Kind = "ollama"
)

// ParseKind normalizes a configured provider name.
func ParseKind(s string) Kind {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "anthropic":
		return KindClaude
	case "":
		return KindOpenAI
	default:
		return k
	}
}

const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2000
	DefaultTimeout     = 60 * time.Second
)

// ProviderConfig is everything needed to open one streaming completion.
type ProviderConfig struct {
	Kind        Kind          `json:"provider"`
	BaseURL     string        `json:"endpoint"`
	APIKey      string        `json:"-"`
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"maxTokens"`
	Timeout     time.Duration `json:"timeout"`
}

// Validate checks the configuration before a request is attempted. Ollama
// runs locally and does not require a key.
func (c ProviderConfig) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("%w: base url", ErrMissingConfig)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: model", ErrMissingConfig)
	}
	if c.Kind != KindOllama && strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: api key", ErrMissingConfig)
	}
	return nil
}

// WithDefaults fills zero values with the package defaults.
func (c ProviderConfig) WithDefaults() ProviderConfig {
	if c.Kind == "" {
		c.Kind = KindOpenAI
	}
	if c.Temperature == 0 {
		c.Temperature = DefaultTemperature
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Override carries per-request changes to the configured provider.
type Override struct {
	Kind    Kind   `json:"provider,omitempty"`
	BaseURL string `json:"endpoint,omitempty"`
	APIKey  string `json:"apiKey,omitempty"`
	Model   string `json:"model,omitempty"`
}

// Apply returns c with the non-empty fields of o.
func (c ProviderConfig) Apply(o Override) ProviderConfig {
	if o.Kind != "" {
		c.Kind = ParseKind(string(o.Kind))
	}
	if o.BaseURL != "" {
		c.BaseURL = o.BaseURL
	}
	if o.APIKey != "" {
		c.APIKey = o.APIKey
	}
	if o.Model != "" {
		c.Model = o.Model
	}
	return c
}

const (
	EventContent = "content"
	EventDone    = "done"
	EventError   = "error"
)

// StreamEvent is one item of an ingested stream. A stream always ends with
// exactly one EventDone or EventError.
type StreamEvent struct {
	Type    string // "content" | "done" | "error"
	Content string // text increment (when Type="content")
	Err     error  // terminal error (when Type="error")
}
