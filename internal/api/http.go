package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/classpulse/sociogram/internal/models"
	"github.com/classpulse/sociogram/internal/utils"
)

// Analyzer is the service behaviour exposed over HTTP.
type Analyzer interface {
	Analyze(ctx context.Context, req models.AnalysisRequest) (models.AnalysisResult, error)
	Snapshot(ctx context.Context, id string) (models.AnalysisResult, error)
	History(ctx context.Context, classID string, limit int) ([]models.AnalysisResult, error)
	Trends(ctx context.Context, classID string, limit int) ([]models.StudentTrend, error)
}

// HTTPServer serves the JSON API with echo.
type HTTPServer struct {
	echo    *echo.Echo
	address string
	logger  *slog.Logger
}

type handlers struct {
	svc    Analyzer
	logger *slog.Logger
}

// NewHTTPServer builds the echo router. bodyLimit uses echo's size syntax ("4M").
func NewHTTPServer(address, bodyLimit string, svc Analyzer, logger *slog.Logger) *HTTPServer {
	if logger == nil {
		logger = slog.Default()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(logger)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	if bodyLimit != "" {
		e.Use(middleware.BodyLimit(bodyLimit))
	}
	e.Use(requestLogger(logger))

	h := &handlers{svc: svc, logger: logger}
	e.GET("/health", h.health)

	v1 := e.Group("/api/v1")
	v1.POST("/network-analysis", h.analyze)
	v1.GET("/network-analysis/:id", h.snapshot)
	v1.GET("/classes/:classId/network-analysis", h.history)
	v1.GET("/classes/:classId/trends", h.trends)

	return &HTTPServer{echo: e, address: address, logger: logger}
}

// Handler exposes the router for tests and embedding.
func (s *HTTPServer) Handler() http.Handler {
	return s.echo
}

// Start listens until Shutdown is called. It returns nil on a clean shutdown.
func (s *HTTPServer) Start() error {
	if err := s.echo.Start(s.address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (h *handlers) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) analyze(c echo.Context) error {
	data, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return err
	}
	req, err := DecodeAnalysisRequest(data)
	if err != nil {
		return h.fail(c, err)
	}
	result, err := h.svc.Analyze(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, SuccessEnvelope{Success: true, Data: result})
}

func (h *handlers) snapshot(c echo.Context) error {
	result, err := h.svc.Snapshot(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, SuccessEnvelope{Success: true, Data: result})
}

func (h *handlers) history(c echo.Context) error {
	limit, err := limitParam(c)
	if err != nil {
		return h.fail(c, err)
	}
	results, err := h.svc.History(c.Request().Context(), c.Param("classId"), limit)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, SuccessEnvelope{Success: true, Data: results})
}

func (h *handlers) trends(c echo.Context) error {
	limit, err := limitParam(c)
	if err != nil {
		return h.fail(c, err)
	}
	trends, err := h.svc.Trends(c.Request().Context(), c.Param("classId"), limit)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, SuccessEnvelope{Success: true, Data: trends})
}

func limitParam(c echo.Context) (int, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, utils.NewAppError("api.limitParam", "limit must be a non-negative integer", fmt.Errorf("%w: limit=%q", utils.ErrInvalidRequest, raw))
	}
	return limit, nil
}

func (h *handlers) fail(c echo.Context, err error) error {
	code := StatusCode(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error("request failed", slog.String("path", c.Path()), slog.Any("error", err))
	}
	return c.JSON(code, ErrorEnvelope{
		Error:   utils.Message(err, http.StatusText(code)),
		Details: err.Error(),
	})
}

// StatusCode maps service errors onto HTTP status codes.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, utils.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, utils.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, utils.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorHandler renders echo's own errors (unknown routes, body limits,
// panics) in the JSON error envelope.
func errorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code := http.StatusInternalServerError
		message := http.StatusText(code)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if msg, ok := he.Message.(string); ok {
				message = msg
			} else {
				message = http.StatusText(code)
			}
		}
		if code >= http.StatusInternalServerError {
			logger.Error("unhandled request error", slog.String("path", c.Path()), slog.Any("error", err))
		}
		if writeErr := c.JSON(code, ErrorEnvelope{Error: message}); writeErr != nil {
			logger.Warn("write error response", slog.Any("error", writeErr))
		}
	}
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			logger.Debug("http request",
				slog.String("method", c.Request().Method),
				slog.String("path", c.Path()),
				slog.Int("status", c.Response().Status),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return nil
		}
	}
}
