package ai

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

var (
	ErrTimeout             = errors.New("completion request timed out")
	ErrCanceled            = errors.New("completion request canceled")
	ErrMalformedFrame      = errors.New("malformed stream frame")
	ErrUnsupportedProvider = errors.New("unsupported completion provider")
	ErrMissingConfig       = errors.New("provider configuration incomplete")
)

// ProviderError is a failure reported by the upstream service, either as a
// non-2xx response or as an error event inside the stream. Status is 0 for
// network failures and in-stream errors.
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	if e.Status == 0 {
		return "provider error: " + e.Message
	}
	return e.Message
}

const maxErrorBody = 300

// NewProviderError builds the error for a non-2xx response. The message is
// "HTTP <status>: <status text>" followed by the upstream error message when
// the body is JSON, or by the start of the raw body otherwise.
func NewProviderError(status int, body []byte) *ProviderError {
	msg := fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status))

	trimmed := strings.TrimSpace(string(body))
	switch {
	case trimmed == "":
	case gjson.Valid(trimmed):
		if detail := errorDetail(gjson.Parse(trimmed)); detail != "" {
			msg += "\n" + detail
		}
	default:
		msg += "\n" + truncate(trimmed, maxErrorBody)
	}
	return &ProviderError{Status: status, Message: msg}
}

func errorDetail(res gjson.Result) string {
	e := res.Get("error")
	switch {
	case !e.Exists():
		return res.Get("message").String()
	case e.IsObject():
		if m := e.Get("message").String(); m != "" {
			return m
		}
		return e.Raw
	default:
		return e.String()
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
