package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Rogue-Bear-Innovations/bookmarker-sync/internal/config"
	"github.com/Rogue-Bear-Innovations/bookmarker-sync/internal/service"
)

const (
	tokenHeader = "X-Token"
	batchHeader = "X-Batch-Id"
	bodyLimit   = 16 * 1024 * 1024
)

type (
	HTTPServer struct {
		app          *fiber.App
		merger       *service.Merger
		general      *service.General
		apiTokenHash []byte
		logger       *zap.SugaredLogger
	}
)

func NewHTTPServer(lc fx.Lifecycle, cfg *config.Config, merger *service.Merger, general *service.General, logger *zap.SugaredLogger) *HTTPServer {
	instance := newHTTPServer(cfg, merger, general, logger)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				listen := cfg.HTTPAddr()
				logger.Infow("starting HTTP server", "addr", listen)
				if err := instance.app.Listen(listen); err != nil {
					logger.Fatalw("shutting down the server", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping HTTP server.")
			return instance.app.Shutdown()
		},
	})

	return instance
}

func newHTTPServer(cfg *config.Config, merger *service.Merger, general *service.General, logger *zap.SugaredLogger) *HTTPServer {
	instance := HTTPServer{
		merger:  merger,
		general: general,
		logger:  logger.Named("http"),
	}
	if cfg.APITokenHash != "" {
		instance.apiTokenHash = []byte(cfg.APITokenHash)
	}

	app := fiber.New(fiber.Config{
		BodyLimit:             bodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          instance.errorHandler,
	})

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(instance.requestLogger)
	app.Use(instance.AuthMiddleware)

	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })
	app.Get("/health", instance.Health)

	api := app.Group("/api")
	api.Post("/bookmarks", instance.BookmarkMerge)
	api.Get("/bookmarks", instance.BookmarkList)
	api.Get("/tags", instance.TagList)

	instance.app = app
	return &instance
}

// BookmarkMerge accepts a sync batch: a JSON array of bookmark records. The
// array itself must parse; individual records are validated one by one.
func (s *HTTPServer) BookmarkMerge(c *fiber.Ctx) error {
	batch := make([]json.RawMessage, 0)
	if err := json.Unmarshal(c.Body(), &batch); err != nil {
		return fiber.NewError(http.StatusBadRequest, "body must be a JSON array of bookmarks: "+err.Error())
	}

	s.logger.Infow("batch received", "batch_id", c.Get(batchHeader), "records", len(batch))
	report := s.merger.Merge(c.Context(), batch)
	return c.Status(http.StatusOK).JSON(report)
}

func (s *HTTPServer) BookmarkList(c *fiber.Ctx) error {
	filter := service.BookmarkFilter{
		Tag:          c.Query("tag"),
		SourceFolder: c.Query("folder"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid query param 'limit'")
		}
		filter.Limit = limit
	}

	bookmarks, err := s.general.BookmarkList(c.Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(bookmarks)
}

func (s *HTTPServer) TagList(c *fiber.Ctx) error {
	tags, err := s.general.TagList(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(tags)
}

func (s *HTTPServer) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.general.Ping(ctx); err != nil {
		return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{"status": "unhealthy"})
	}
	return c.JSON(fiber.Map{"status": "healthy"})
}

// AuthMiddleware checks the X-Token header against the configured bcrypt
// hash. Without a configured hash every request is let through.
func (s *HTTPServer) AuthMiddleware(c *fiber.Ctx) error {
	if s.apiTokenHash == nil || c.Path() == "/ping" || c.Path() == "/health" {
		return c.Next()
	}
	token := c.Get(tokenHeader)
	if token == "" {
		return c.SendStatus(http.StatusUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword(s.apiTokenHash, []byte(token)); err != nil {
		s.logger.Warnw("rejected token", "path", c.Path(), "ip", c.IP())
		return c.SendStatus(http.StatusUnauthorized)
	}
	return c.Next()
}

func (s *HTTPServer) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	status := c.Response().StatusCode()
	if e, ok := err.(*fiber.Error); ok {
		status = e.Code
	}
	s.logger.Debugw("request",
		"method", c.Method(),
		"path", c.Path(),
		"status", status,
		"elapsed", time.Since(start),
	)
	return err
}

func (s *HTTPServer) errorHandler(c *fiber.Ctx, err error) error {
	code := http.StatusInternalServerError
	msg := "internal error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		msg = e.Message
	} else {
		s.logger.Errorw("request failed", "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": msg})
}

// HashToken returns the bcrypt hash to configure as API_TOKEN_HASH.
func HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
