package ai

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// errStopFrames lets a frame callback end reading without an error.
var errStopFrames = errors.New("stop reading frames")

// ReadFrames splits r into frames and calls fn for each one.
//
// SSE streams are read line by line: every "data:" line is one frame and
// inherits the most recent "event:" line. Comments and unknown fields are
// ignored, and a blank line clears the event name. NDJSON streams produce
// one frame per non-empty line. A final line without a trailing newline is
// still delivered.
func ReadFrames(r io.Reader, framing Framing, fn func(Frame) error) error {
	br := bufio.NewReader(r)
	event := ""

	handle := func(line string) error {
		line = strings.TrimRight(line, "\r\n")
		trimmed := strings.TrimSpace(line)

		if framing == FramingNDJSON {
			if trimmed == "" {
				return nil
			}
			return fn(Frame{Data: trimmed})
		}

		switch {
		case trimmed == "":
			event = ""
		case strings.HasPrefix(trimmed, ":"):
		case strings.HasPrefix(trimmed, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(trimmed, "event:"))
		case strings.HasPrefix(trimmed, "data:"):
			return fn(Frame{
				Event: event,
				Data:  strings.TrimSpace(strings.TrimPrefix(trimmed, "data:")),
			})
		}
		return nil
	}

	for {
		line, err := br.ReadString('\n')
		if line != "" {
			if herr := handle(line); herr != nil {
				if errors.Is(herr, errStopFrames) {
					return nil
				}
				return herr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}
