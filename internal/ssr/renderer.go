package ssr

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"photoshoot-studio/internal/config"
	"photoshoot-studio/internal/shared/logger"
	"photoshoot-studio/internal/shared/metrics"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

//go:embed templates/index.html
var defaultTemplate string

// RenderFunc renders the application markup for path.
type RenderFunc func(ctx context.Context, path string) (string, error)

// Renderer splices rendered markup into the HTML shell.
type Renderer struct {
	render      RenderFunc
	template    string
	placeholder string
	log         logger.Logger
}

// NewRenderer reads the template once. An empty TemplatePath uses the
// embedded shell.
func NewRenderer(cfg config.SSRConfig, render RenderFunc, log logger.Logger) (*Renderer, error) {
	if render == nil {
		return nil, errors.New("ssr: render function is required")
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	tmpl := defaultTemplate
	if cfg.TemplatePath != "" {
		raw, err := os.ReadFile(cfg.TemplatePath)
		if err != nil {
			return nil, fmt.Errorf("ssr: failed to read template: %w", err)
		}
		tmpl = string(raw)
	}
	if !strings.Contains(tmpl, cfg.Placeholder) {
		return nil, fmt.Errorf("ssr: template has no %q placeholder", cfg.Placeholder)
	}

	return &Renderer{
		render:      render,
		template:    tmpl,
		placeholder: cfg.Placeholder,
		log:         log.WithComponent("ssr"),
	}, nil
}

// Render returns the full page for path.
func (r *Renderer) Render(ctx context.Context, path string) (string, error) {
	html, err := r.render(ctx, path)
	if err != nil {
		return "", err
	}
	return strings.Replace(r.template, r.placeholder, html, 1), nil
}

// Handle answers GET requests with the rendered page. Any render failure is
// a 500 carrying the raw error message.
func (r *Renderer) Handle(c *fiber.Ctx) error {
	page, err := r.Render(c.UserContext(), c.OriginalURL())
	if err != nil {
		metrics.RenderFailures.Inc()
		r.log.Error("render failed", zap.String("path", c.Path()), zap.Error(err))
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return c.Status(fiber.StatusInternalServerError).SendString(err.Error())
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(fiber.StatusOK).SendString(page)
}

// RegisterRoutes mounts the catch-all GET route. It must be registered
// after every API route.
func (r *Renderer) RegisterRoutes(router fiber.Router) {
	router.Get("/*", r.Handle)
}
