package backend

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jo-hoe/imgcompressor/internal/core"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	HeaderOriginalSize    = "X-Original-Size"
	HeaderCompressedSize  = "X-Compressed-Size"
	HeaderCompressionNote = "X-Compression-Note"

	// room for multipart boundaries and the small text fields next to the file
	multipartOverheadBytes = 1 << 20
)

// NewServer creates the echo instance with the middleware stack shared by all routes
func NewServer(config *core.ServiceConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))

	// Skip the health probe on "/" to keep logs readable
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/"
		},
		LogStatus:    true,
		LogLatency:   true,
		LogMethod:    true,
		LogURI:       true,
		LogError:     true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogRoutePath: true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"route", v.RoutePath,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
				"user_agent", v.UserAgent,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				slog.Error("request failed", append(attrs, "error", v.Error)...)
			} else {
				slog.Info("request served", attrs...)
			}
			return nil
		},
	}))

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(corsConfig(config)))
	e.Use(middleware.BodyLimit(fmt.Sprintf("%dB", config.MaxUploadBytes+multipartOverheadBytes)))

	e.HTTPErrorHandler = jsonErrorHandler

	return e
}

func corsConfig(config *core.ServiceConfig) middleware.CORSConfig {
	origins := []string{core.AnyOrigin}
	if !config.AllowsAnyOrigin() {
		origins = []string{config.FrontendOrigin}
	}
	return middleware.CORSConfig{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowCredentials: false,
		ExposeHeaders: []string{
			echo.HeaderContentDisposition,
			HeaderOriginalSize,
			HeaderCompressedSize,
			HeaderCompressionNote,
		},
	}
}

// jsonErrorHandler renders framework errors (404, 413, panics) in the same
// {"error": ...} shape the handlers use
func jsonErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := http.StatusText(status)
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		status = httpErr.Code
		message = http.StatusText(status)
		if m, ok := httpErr.Message.(string); ok && m != "" {
			message = m
		}
	}
	if status == http.StatusRequestEntityTooLarge {
		message = messageFileTooLarge
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, errorResponse{Error: message})
	}
	if err != nil {
		slog.Error("jsonErrorHandler: failed to write error response", "error", err)
	}
}
