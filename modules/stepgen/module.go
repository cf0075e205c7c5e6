package stepgen

import (
	"context"
	"log"
	"os"

	"github.com/example/break-it-down/modules/cache"
	"github.com/go-monolith/mono"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Module runs the step generator as its own HTTP service. It is
// stateless apart from the optional result cache: it never touches
// task storage and trusts its caller for identity decisions.
type Module struct {
	app       *fiber.App
	generator *Generator
	cacheMod  *cache.Module
	addr      string
	origins   string
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates the step generator module. Listen address and
// allowed origins come from STEPGEN_PORT and ALLOWED_ORIGINS.
func NewModule() *Module {
	port := os.Getenv("STEPGEN_PORT")
	if port == "" {
		port = "8000"
	}
	return &Module{
		addr:    ":" + port,
		origins: os.Getenv("ALLOWED_ORIGINS"),
	}
}

// WithCache attaches the optional Redis cache module.
func (m *Module) WithCache(cacheMod *cache.Module) *Module {
	m.cacheMod = cacheMod
	return m
}

// Name returns the module name.
func (m *Module) Name() string {
	return "stepgen"
}

// Start builds the generator and starts the Fiber HTTP server.
func (m *Module) Start(_ context.Context) error {
	var model ModelCompleter
	if completer := NewAnthropicCompleterFromEnv(); completer != nil {
		model = completer
	} else {
		log.Println("[stepgen] ANTHROPIC_API_KEY not set, running fallback-only")
	}

	var store ResultStore
	if m.cacheMod != nil && m.cacheMod.Cache() != nil {
		store = m.cacheMod.Cache()
	}

	m.generator = NewGenerator(model, store)

	m.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	m.app.Use(recover.New())
	m.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	// Origin validation only when origins are configured, like the
	// public API's CORS setup.
	if m.origins != "" {
		m.app.Use(cors.New(cors.Config{
			AllowOrigins: m.origins,
			AllowMethods: "POST",
		}))
	}

	handlers := NewHandlers(m.generator)
	m.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy", "module": "stepgen"})
	})
	m.app.Post("/generate-steps", handlers.GenerateSteps)

	go func() {
		if err := m.app.Listen(m.addr); err != nil {
			log.Printf("[stepgen] HTTP server error: %v", err)
		}
	}()

	log.Printf("[stepgen] HTTP server started on %s (model: %v, cache: %v)", m.addr, model != nil, store != nil)
	return nil
}

// Stop shuts down the HTTP server.
func (m *Module) Stop(_ context.Context) error {
	if m.app == nil {
		return nil
	}
	log.Println("[stepgen] Shutting down HTTP server...")
	return m.app.Shutdown()
}

// Health returns the health status of the module.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	if m.app == nil {
		return mono.HealthStatus{Healthy: false, Message: "server not started"}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{"addr": m.addr},
	}
}

// Generator exposes the generator for in-process callers and tests.
func (m *Module) Generator() *Generator {
	return m.generator
}
