package routes

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sanuei/YoutubePlanner-sub000/internal/document"
	"github.com/sanuei/YoutubePlanner-sub000/pkg/ai"
	"github.com/sanuei/YoutubePlanner-sub000/pkg/logger"
	"github.com/sanuei/YoutubePlanner-sub000/pkg/prompt"
	"github.com/sanuei/YoutubePlanner-sub000/pkg/script"
)

func GetPromptHandler(c echo.Context) error {
	ctrl, err := lookupSession(c)
	if ctrl == nil {
		return err
	}
	mode := prompt.ParseMode(c.QueryParam("mode"))
	return c.JSON(http.StatusOK, map[string]string{
		"mode":   string(mode),
		"prompt": ctrl.Prompt(mode),
	})
}

type generateLine struct {
	Generation uint64    `json:"generation"`
	Text       string    `json:"text,omitempty"`
	Status     ai.Status `json:"status"`
	Error      string    `json:"error,omitempty"`
}

// GenerateHandler starts a generation and streams its text increments as
// JSON lines. The last line carries the terminal status together with the
// complete buffer. A client that disconnects stops the stream but not the
// generation.
func GenerateHandler(c echo.Context) error {
	type generateBody struct {
		Mode     string       `json:"mode" validate:"omitempty,oneof=simple standard advanced"`
		Provider *ai.Override `json:"provider"`
	}

	ctrl, err := lookupSession(c)
	if ctrl == nil {
		return err
	}
	data := new(generateBody)
	if !bindValid(c, data) {
		return invalidRequest(c)
	}
	var override ai.Override
	if data.Provider != nil {
		override = *data.Provider
	}

	// Subscribe first so no increment of the new generation is missed.
	events, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()

	ctx := c.Request().Context()
	gen, err := ctrl.Generate(ctx, prompt.ParseMode(data.Mode), override)
	if err != nil {
		return respondError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentType, "application/x-ndjson")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().WriteHeader(http.StatusOK)

	enc := json.NewEncoder(c.Response())
	write := func(line generateLine) bool {
		if err := enc.Encode(line); err != nil {
			logger.Debug("[HTTP] generation client went away", "session", c.Param("sid"), "generation", gen, "err", err)
			return false
		}
		c.Response().Flush()
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				snap := ctrl.Buffer()
				write(generateLine{Generation: gen, Text: snap.Text, Status: ai.StatusErrored, Error: document.ErrClosed.Error()})
				return nil
			}
			if ev.Generation != gen {
				continue
			}
			switch {
			case ev.Type == document.EventStream:
				if !write(generateLine{Generation: gen, Text: ev.Text, Status: ai.StatusStreaming}) {
					return nil
				}
			case ev.Type == document.EventStatus && ev.Status != ai.StatusStreaming:
				snap := ctrl.Buffer()
				text := ""
				if snap.Generation == gen {
					text = snap.Text
				}
				write(generateLine{Generation: gen, Text: text, Status: ev.Status, Error: ev.Error})
				return nil
			}
		}
	}
}

func CancelGenerationHandler(c echo.Context) error {
	ctrl, err := lookupSession(c)
	if ctrl == nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"canceled": ctrl.Cancel()})
}

func GetBufferHandler(c echo.Context) error {
	ctrl, err := lookupSession(c)
	if ctrl == nil {
		return err
	}
	return c.JSON(http.StatusOK, ctrl.Buffer())
}

func SaveSessionHandler(c echo.Context) error {
	ctrl, err := lookupSession(c)
	if ctrl == nil {
		return err
	}
	id, err := ctrl.Save(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"id": id})
}

func SaveScriptHandler(c echo.Context) error {
	ctrl, err := lookupSession(c)
	if ctrl == nil {
		return err
	}
	payload, err := ctrl.SaveAsScript(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, payload)
}

func ScriptSchemaHandler(c echo.Context) error {
	schema, err := script.PayloadSchema()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSONBlob(http.StatusOK, schema)
}

func HealthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
