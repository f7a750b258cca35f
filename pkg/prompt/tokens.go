package prompt

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	"github.com/sanuei/YoutubePlanner-sub000/pkg/logger"
)

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

func encoding() *tiktoken.Tiktoken {
	encOnce.Do(func() {
		e, err := tiktoken.GetEncoding("o200k_base")
		if err != nil {
			logger.Warn("[Prompt] token encoding unavailable, estimating from runes", "err", err)
			return
		}
		enc = e
	})
	return enc
}

// WarmTokens loads the token encoding so the first CountTokens call does
// not pay for it.
func WarmTokens() { encoding() }

// CountTokens returns the number of tokens in text. When the encoding
// cannot be loaded it falls back to one token per rune, which over-counts
// latin text and is close for CJK.
func CountTokens(text string) int {
	if e := encoding(); e != nil {
		return len(e.Encode(text, nil, nil))
	}
	return utf8.RuneCountInString(text)
}
