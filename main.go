package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/example/break-it-down/modules/api"
	"github.com/example/break-it-down/modules/auth"
	"github.com/example/break-it-down/modules/cache"
	"github.com/example/break-it-down/modules/notification"
	"github.com/example/break-it-down/modules/stepgen"
	"github.com/example/break-it-down/modules/task"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
	"github.com/joho/godotenv"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Local overrides win over the base env file. Both are optional.
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	log.Println("=== Break It Down ===")

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	stepgenModule := stepgen.NewModule()

	// Redis caching for generated steps is optional; without REDIS_ADDR
	// the generator calls the model on every request.
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		cacheModule := cache.NewModule(redisAddr)
		stepgenModule.WithCache(cacheModule)
		app.Register(cacheModule)
	}

	// Register modules with the framework
	// Order: independent modules first, then dependent modules
	app.Register(auth.NewModule())
	app.Register(stepgenModule)
	app.Register(task.NewModule())
	app.Register(notification.NewModule())
	app.Register(api.NewModule()) // Depends on auth and task modules

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo() {
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("REST API Endpoints (http://localhost:3000):")
	log.Println("")
	log.Println("  Public Endpoints:")
	log.Println("  POST   /api/v1/auth/register             - Register a new user")
	log.Println("  POST   /api/v1/auth/login                - Login and get tokens")
	log.Println("  POST   /api/v1/auth/refresh              - Refresh access token")
	log.Println("  GET    /health                           - Health check")
	log.Println("")
	log.Println("  Protected Endpoints (require Bearer token):")
	log.Println("  GET    /api/v1/profile                   - Current user profile")
	log.Println("  POST   /api/v1/tasks                     - Create a task")
	log.Println("  GET    /api/v1/tasks                     - List your tasks")
	log.Println("  GET    /api/v1/tasks/:id                 - Get a task with its steps")
	log.Println("  PATCH  /api/v1/tasks/:id                 - Update title or status")
	log.Println("  DELETE /api/v1/tasks/:id                 - Delete a task and its steps")
	log.Println("  POST   /api/v1/tasks/:id/generate-steps  - Break a task into 3 steps (once per task)")
	log.Println("  PATCH  /api/v1/steps/:id/toggle          - Toggle a step done/undone")
	log.Println("")
	log.Println("Step Generator Service (http://localhost:8000):")
	log.Println("  POST   /generate-steps                   - Generate 3 steps for a task title")
	log.Println("  GET    /health                           - Health check")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
