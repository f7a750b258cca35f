package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/sanuei/YoutubePlanner-sub000/internal/metrics"
	"github.com/sanuei/YoutubePlanner-sub000/internal/session"
	"github.com/sanuei/YoutubePlanner-sub000/internal/store"
)

// App holds the dependencies shared by all handlers.
type App struct {
	Store    store.Store
	Sessions *session.Registry
	Metrics  *metrics.Collector
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return next(&AppContext{c, app})
		}
	}
}

// GetApp returns the application dependencies of a request.
func GetApp(c echo.Context) *App {
	return c.(*AppContext).App
}
