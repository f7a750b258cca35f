package ai

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func collectFrames(t *testing.T, input string, framing Framing) []Frame {
	t.Helper()
	var frames []Frame
	err := ReadFrames(strings.NewReader(input), framing, func(f Frame) error {
		frames = append(frames, f)
		return nil
	})
	if err != nil {
		t.Fatalf("ReadFrames failed: %v", err)
	}
	return frames
}

func TestReadFrames_SSE(t *testing.T) {
	input := ": comment\r\n" +
		"event: content_block_delta\r\n" +
		"data: {\"a\":1}\r\n" +
		"\r\n" +
		"retry: 1000\n" +
		"data: second\n" +
		"\n" +
		"data:  last-without-newline"

	want := []Frame{
		{Event: "content_block_delta", Data: `{"a":1}`},
		{Event: "", Data: "second"},
		{Event: "", Data: "last-without-newline"},
	}
	if got := collectFrames(t, input, FramingSSE); !reflect.DeepEqual(got, want) {
		t.Fatalf("frames = %+v, want %+v", got, want)
	}
}

func TestReadFrames_NDJSON(t *testing.T) {
	input := "{\"x\":1}\n\n  {\"x\":2}  \n{\"x\":3}"
	got := collectFrames(t, input, FramingNDJSON)
	if len(got) != 3 || got[1].Data != `{"x":2}` {
		t.Fatalf("frames = %+v", got)
	}
}

func TestReadFrames_StopAndError(t *testing.T) {
	input := "data: 1\n\ndata: 2\n\ndata: 3\n\n"

	seen := 0
	err := ReadFrames(strings.NewReader(input), FramingSSE, func(f Frame) error {
		seen++
		if f.Data == "2" {
			return errStopFrames
		}
		return nil
	})
	if err != nil || seen != 2 {
		t.Fatalf("stop: err=%v seen=%d", err, seen)
	}

	boom := errors.New("boom")
	err = ReadFrames(strings.NewReader(input), FramingSSE, func(Frame) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
}
