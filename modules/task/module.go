package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	domain "github.com/example/break-it-down/domain/task"
	"github.com/example/break-it-down/events"
	"github.com/example/break-it-down/modules/stepgen"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// stepGenerator is the guard's view of the step generator: a bounded
// call returning exactly three step texts or an error. Implemented by
// *stepgen.Client; tests substitute a stub.
type stepGenerator interface {
	Generate(ctx context.Context, title string) ([]string, error)
}

// TaskModule provides task and step services, including the
// decomposition guard.
type TaskModule struct {
	db        *gorm.DB
	repo      *Repository
	generator stepGenerator
	eventBus  mono.EventBus
	dbPath    string
}

// Compile-time interface checks.
var _ mono.Module = (*TaskModule)(nil)
var _ mono.ServiceProviderModule = (*TaskModule)(nil)
var _ mono.HealthCheckableModule = (*TaskModule)(nil)
var _ mono.EventEmitterModule = (*TaskModule)(nil)

// NewModule creates a new TaskModule.
func NewModule() *TaskModule {
	dbPath := os.Getenv("TASKS_DB_PATH")
	if dbPath == "" {
		dbPath = "breakitdown_tasks.db"
	}
	return &TaskModule{dbPath: dbPath}
}

// Name returns the module name.
func (m *TaskModule) Name() string {
	return "task"
}

// SetGenerator overrides the step generator client. Used by tests; in
// production the module builds an HTTP client from STEPGEN_URL.
func (m *TaskModule) SetGenerator(g stepGenerator) {
	m.generator = g
}

// SetEventBus receives the event bus from the framework.
func (m *TaskModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module publishes.
func (m *TaskModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.TaskCreatedV1.ToBase(),
		events.TaskDecomposedV1.ToBase(),
		events.TaskDeletedV1.ToBase(),
		events.StepToggledV1.ToBase(),
	}
}

// Start opens the task database and wires the generator client.
func (m *TaskModule) Start(_ context.Context) error {
	db, err := gorm.Open(sqlite.Open(m.dbPath), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	if err := db.AutoMigrate(&domain.Task{}, &domain.Step{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	m.repo = NewRepository(db)

	if m.generator == nil {
		m.generator = stepgen.NewClientFromEnv()
	}

	log.Printf("[task] Module started (database: %s)", m.dbPath)
	return nil
}

// Stop closes the database connection.
func (m *TaskModule) Stop(_ context.Context) error {
	if m.db != nil {
		sqlDB, err := m.db.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
	log.Println("[task] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *TaskModule) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{Healthy: false, Message: "database not initialized"}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("failed to get database connection: %v", err)}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("database ping failed: %v", err)}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{"database": m.dbPath},
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *TaskModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "create-task", json.Unmarshal, json.Marshal, m.createTask,
	); err != nil {
		return fmt.Errorf("failed to register create-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "get-task", json.Unmarshal, json.Marshal, m.getTask,
	); err != nil {
		return fmt.Errorf("failed to register get-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "list-tasks", json.Unmarshal, json.Marshal, m.listTasks,
	); err != nil {
		return fmt.Errorf("failed to register list-tasks service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "update-task", json.Unmarshal, json.Marshal, m.updateTask,
	); err != nil {
		return fmt.Errorf("failed to register update-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "delete-task", json.Unmarshal, json.Marshal, m.deleteTask,
	); err != nil {
		return fmt.Errorf("failed to register delete-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "generate-steps", json.Unmarshal, json.Marshal, m.generateSteps,
	); err != nil {
		return fmt.Errorf("failed to register generate-steps service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "toggle-step", json.Unmarshal, json.Marshal, m.toggleStep,
	); err != nil {
		return fmt.Errorf("failed to register toggle-step service: %w", err)
	}

	log.Printf("[task] Registered services: create-task, get-task, list-tasks, update-task, delete-task, generate-steps, toggle-step")
	return nil
}
