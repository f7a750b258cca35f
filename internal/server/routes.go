package server

import (
	"github.com/labstack/echo/v4"

	mid "github.com/sanuei/YoutubePlanner-sub000/internal/server/middleware"
	"github.com/sanuei/YoutubePlanner-sub000/internal/server/routes"
)

func RegisterRoutes(e *echo.Echo, app *mid.App) {
	e.GET("/health", routes.HealthHandler)
	e.GET("/metrics", echo.WrapHandler(app.Metrics.Handler()))

	api := e.Group("/api")
	api.GET("/schema/script", routes.ScriptSchemaHandler)

	// Stored documents
	api.GET("/documents", routes.ListDocumentsHandler)
	api.GET("/documents/:id", routes.GetDocumentHandler)
	api.POST("/documents", routes.CreateDocumentHandler)
	api.PUT("/documents/:id", routes.UpdateDocumentHandler)
	api.DELETE("/documents/:id", routes.DeleteDocumentHandler)

	// Editing sessions
	api.POST("/sessions", routes.CreateSessionHandler)
	api.GET("/sessions/:sid", routes.GetSessionHandler)
	api.PATCH("/sessions/:sid", routes.PatchSessionHandler)
	api.DELETE("/sessions/:sid", routes.DeleteSessionHandler)
	api.GET("/sessions/:sid/events", routes.SessionEventsHandler)

	// Graph edits
	api.POST("/sessions/:sid/nodes/:nodeId/children", routes.AddChildHandler)
	api.PATCH("/sessions/:sid/nodes/:nodeId", routes.RenameNodeHandler)
	api.DELETE("/sessions/:sid/nodes/:nodeId", routes.DeleteNodeHandler)
	api.POST("/sessions/:sid/layout", routes.LayoutHandler)

	// Generation
	api.GET("/sessions/:sid/prompt", routes.GetPromptHandler)
	api.POST("/sessions/:sid/generate", routes.GenerateHandler)
	api.POST("/sessions/:sid/generate/cancel", routes.CancelGenerationHandler)
	api.GET("/sessions/:sid/buffer", routes.GetBufferHandler)

	// Persistence and hand-off
	api.POST("/sessions/:sid/save", routes.SaveSessionHandler)
	api.POST("/sessions/:sid/script", routes.SaveScriptHandler)
}
