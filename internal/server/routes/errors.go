package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sanuei/YoutubePlanner-sub000/internal/document"
	"github.com/sanuei/YoutubePlanner-sub000/internal/session"
	"github.com/sanuei/YoutubePlanner-sub000/internal/store"
	"github.com/sanuei/YoutubePlanner-sub000/pkg/ai"
	"github.com/sanuei/YoutubePlanner-sub000/pkg/logger"
	"github.com/sanuei/YoutubePlanner-sub000/pkg/mindmap"
)

// StatusFor maps domain errors onto HTTP status codes.
func StatusFor(err error) int {
	var pe *ai.ProviderError
	switch {
	case errors.Is(err, mindmap.ErrEmptyLabel),
		errors.Is(err, mindmap.ErrParentNotFound),
		errors.Is(err, ai.ErrMissingConfig),
		errors.Is(err, ai.ErrUnsupportedProvider),
		errors.Is(err, document.ErrPromptTooLong):
		return http.StatusBadRequest
	case errors.Is(err, mindmap.ErrNodeNotFound),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, session.ErrNotFound),
		errors.Is(err, document.ErrClosed):
		return http.StatusNotFound
	case errors.Is(err, mindmap.ErrCannotDeleteRoot):
		return http.StatusConflict
	case errors.Is(err, mindmap.ErrInvalidGraph):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ai.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &pe):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c echo.Context, err error) error {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("[HTTP] request failed", "path", c.Path(), "err", err)
		msg = "Internal server error"
	}
	return c.JSON(status, map[string]string{"error": msg})
}

func invalidRequest(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
}

// bindValid binds and validates a request.
func bindValid(c echo.Context, data any) bool {
	if err := c.Bind(data); err != nil {
		return false
	}
	return c.Validate(data) == nil
}
