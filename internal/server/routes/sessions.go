package routes

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sanuei/YoutubePlanner-sub000/internal/document"
	"github.com/sanuei/YoutubePlanner-sub000/internal/server/middleware"
	"github.com/sanuei/YoutubePlanner-sub000/pkg/logger"
	"github.com/sanuei/YoutubePlanner-sub000/pkg/mindmap"
)

type sessionResponse struct {
	SessionID string         `json:"sessionId"`
	State     document.State `json:"state"`
}

func CreateSessionHandler(c echo.Context) error {
	type createSessionBody struct {
		Title      string `json:"title" validate:"max=200"`
		DocumentID string `json:"documentId" validate:"max=64"`
	}

	data := new(createSessionBody)
	if !bindValid(c, data) {
		return invalidRequest(c)
	}

	sessions := middleware.GetApp(c).Sessions
	var (
		sid  string
		ctrl *document.Controller
		err  error
	)
	if data.DocumentID != "" {
		sid, ctrl, err = sessions.Open(c.Request().Context(), data.DocumentID)
	} else {
		sid, ctrl, err = sessions.Create(data.Title)
	}
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, sessionResponse{SessionID: sid, State: ctrl.Snapshot()})
}

// lookupSession resolves the :sid path parameter. It writes the error response
// itself and returns nil when the session does not exist.
func lookupSession(c echo.Context) (*document.Controller, error) {
	ctrl, err := middleware.GetApp(c).Sessions.Get(c.Param("sid"))
	if err != nil {
		return nil, respondError(c, err)
	}
	return ctrl, nil
}

func GetSessionHandler(c echo.Context) error {
	ctrl, err := lookupSession(c)
	if ctrl == nil {
		return err
	}
	return c.JSON(http.StatusOK, sessionResponse{SessionID: c.Param("sid"), State: ctrl.Snapshot()})
}

func DeleteSessionHandler(c echo.Context) error {
	if err := middleware.GetApp(c).Sessions.Close(c.Param("sid")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func PatchSessionHandler(c echo.Context) error {
	type patchSessionBody struct {
		Description *string `json:"description" validate:"required,max=5000"`
	}

	ctrl, err := lookupSession(c)
	if ctrl == nil {
		return err
	}
	data := new(patchSessionBody)
	if !bindValid(c, data) {
		return invalidRequest(c)
	}

	ctrl.SetDescription(*data.Description)
	return c.JSON(http.StatusOK, ctrl.Snapshot())
}

// SessionEventsHandler streams session events as JSON lines until the
// client goes away or the session is closed.
func SessionEventsHandler(c echo.Context) error {
	ctrl, err := lookupSession(c)
	if ctrl == nil {
		return err
	}

	events, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()

	c.Response().Header().Set(echo.HeaderContentType, "application/x-ndjson")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Flush()

	enc := json.NewEncoder(c.Response())
	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := enc.Encode(ev); err != nil {
				logger.Debug("[HTTP] event subscriber went away", "session", c.Param("sid"), "err", err)
				return nil
			}
			c.Response().Flush()
		}
	}
}

func AddChildHandler(c echo.Context) error {
	ctrl, err := lookupSession(c)
	if ctrl == nil {
		return err
	}
	node, err := ctrl.AddChild(c.Param("nodeId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, node)
}

func RenameNodeHandler(c echo.Context) error {
	type renameNodeBody struct {
		Label string `json:"label" validate:"max=500"`
	}

	ctrl, err := lookupSession(c)
	if ctrl == nil {
		return err
	}
	data := new(renameNodeBody)
	if !bindValid(c, data) {
		return invalidRequest(c)
	}

	node, err := ctrl.Rename(c.Param("nodeId"), data.Label)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, node)
}

func DeleteNodeHandler(c echo.Context) error {
	ctrl, err := lookupSession(c)
	if ctrl == nil {
		return err
	}
	removed, err := ctrl.DeleteSubtree(c.Param("nodeId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string][]string{"removed": removed})
}

// LayoutHandler runs a pending layout pass right away.
func LayoutHandler(c echo.Context) error {
	ctrl, err := lookupSession(c)
	if ctrl == nil {
		return err
	}
	ctrl.FlushLayout()
	return c.JSON(http.StatusOK, map[string]mindmap.Graph{"graph": ctrl.Snapshot().Graph})
}
