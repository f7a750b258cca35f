package layout

import (
	"math"
	"unicode"
)

const (
	minWidth      = 120
	minHeight     = 40
	maxWidth      = 400
	paddingX      = 32
	paddingY      = 24
	lineHeight    = 22
	wideRuneWidth = 16
	runeWidth     = 9
)

// DefaultSize is used for nodes without a label.
var DefaultSize = Size{Width: 180, Height: 60}

type Size struct {
	Width  float64
	Height float64
}

// NodeSize estimates the rendered box of a label. Wide (CJK) runes count
// almost twice as much as latin ones; text wider than the maximum box
// wraps onto more lines.
func NodeSize(label string) Size {
	if label == "" {
		return DefaultSize
	}

	text := 0.0
	for _, r := range label {
		if isWide(r) {
			text += wideRuneWidth
		} else {
			text += runeWidth
		}
	}

	if text+paddingX <= maxWidth {
		return Size{
			Width:  math.Max(minWidth, text+paddingX),
			Height: math.Max(minHeight, lineHeight+paddingY),
		}
	}
	lines := math.Ceil(text / (maxWidth - paddingX))
	return Size{
		Width:  maxWidth,
		Height: math.Max(minHeight, lines*lineHeight+paddingY),
	}
}

func isWide(r rune) bool {
	switch {
	case unicode.Is(unicode.Han, r),
		unicode.Is(unicode.Hiragana, r),
		unicode.Is(unicode.Katakana, r),
		unicode.Is(unicode.Hangul, r):
		return true
	case r >= 0x3000 && r <= 0x303f, r >= 0xff00 && r <= 0xffef:
		return true
	}
	return false
}
