package httpserver

import (
	"context"
	"time"

	"github.com/cristianortiz/gridshare/internal/shared/logger"
	"github.com/cristianortiz/gridshare/internal/shared/metrics"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

type Server struct {
	app *fiber.App
}

var log = logger.GetLogger() // Instancia logger para el pakg

// RouteRegistrar is implemented by every module handler.
type RouteRegistrar interface {
	RegisterRoutes(router fiber.Router)
}

func NewServer(registrars ...RouteRegistrar) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "gridshare",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE",
	}))
	app.Use(requestLogger)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})
	app.Get("/helloworld", func(c *fiber.Ctx) error {
		return c.SendString("Hello World!")
	})
	app.Get("/metrics", metrics.Handler())

	for _, r := range registrars {
		r.RegisterRoutes(app)
	}

	return &Server{app: app}
}

// App exposes the router for modules that mount extra endpoints (ws).
func (s *Server) App() *fiber.App {
	return s.app
}

// requestLogger tags each request with an id and logs it once done.
func requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	id := c.Get(requestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Set(requestIDHeader, id)

	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		} else {
			status = fiber.StatusInternalServerError
		}
	}
	fields := []zap.Field{
		zap.String("request_id", id),
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", status),
		zap.Duration("latency", time.Since(start)),
		zap.String("remote_addr", c.IP()),
	}
	if status >= fiber.StatusInternalServerError {
		log.Warn("HTTP request", fields...)
	} else {
		log.Info("HTTP request", fields...)
	}
	return err
}

// Start serves on addr until ctx is cancelled, then shuts down with a
// bounded grace period.
func (s *Server) Start(ctx context.Context, addr string) error {
	go func() {
		<-ctx.Done()
		log.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.app.ShutdownWithContext(shutdownCtx)
	}()

	log.Info("HTTP server started", zap.String("addr", addr))
	return s.app.Listen(addr)
}
