package bootstrap

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	app "github.com/librilane/book-import/internal/application/importing"
	httpecho "github.com/librilane/book-import/internal/interfaces/http/echo"
)

func NewHTTPServer(submit app.SubmitImport, status app.GetJobStatus, retry app.RetryImport) *echo.Echo {
	server := echo.New()
	server.HideBanner = true

	server.Use(middleware.Recover())
	server.Use(middleware.RequestID())
	server.Use(middleware.BodyLimit("10M"))

	importHandler := httpecho.NewImportHandler(submit, status, retry)
	httpecho.RegisterRoutes(server, importHandler)

	server.GET("/healthz", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	return server
}
