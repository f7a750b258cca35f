package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/sanuei/YoutubePlanner-sub000/internal/config"
	mid "github.com/sanuei/YoutubePlanner-sub000/internal/server/middleware"
	"github.com/sanuei/YoutubePlanner-sub000/pkg/logger"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

// New returns the HTTP server for app with all routes registered.
func New(app *mid.App) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("8M"))

	RegisterRoutes(e, app)
	return e
}

// Init builds the application from cfg and serves until ctx is done.
func Init(ctx context.Context, cfg config.Config) error {
	app, cleanup, err := Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	e := New(app)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.Sessions.Run(gctx, time.Minute)
		return nil
	})
	g.Go(func() error {
		logger.Info("[Server] starting", "port", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error("[Server] failed to shut down", "err", err)
		}
		return nil
	})

	return g.Wait()
}
