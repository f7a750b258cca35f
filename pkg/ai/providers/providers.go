// Package providers maps configured provider kinds onto stream adapters.
package providers

import (
	"fmt"

	"github.com/sanuei/YoutubePlanner-sub000/pkg/ai"
	"github.com/sanuei/YoutubePlanner-sub000/pkg/ai/anthropic"
	"github.com/sanuei/YoutubePlanner-sub000/pkg/ai/ollama"
	"github.com/sanuei/YoutubePlanner-sub000/pkg/ai/openai"
)

// Resolve is an ai.Resolver covering every built-in provider.
func Resolve(kind ai.Kind) (ai.Adapter, error) {
	switch kind {
	case ai.KindOpenAI, ai.KindCustom:
		return openai.Adapter{}, nil
	case ai.KindClaude:
		return anthropic.Adapter{}, nil
	case ai.KindOllama:
		return ollama.Adapter{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ai.ErrUnsupportedProvider, kind)
	}
}

// Kinds lists the provider names accepted by Resolve.
func Kinds() []ai.Kind {
	return []ai.Kind{ai.KindOpenAI, ai.KindCustom, ai.KindClaude, ai.KindOllama}
}
