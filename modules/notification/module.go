package notification

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/example/break-it-down/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// NotificationLog represents a logged notification.
type NotificationLog struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Channel   string    `json:"channel"`
	Timestamp time.Time `json:"timestamp"`
}

// NotificationModule observes task lifecycle events and records them as
// notifications. It is a pure consumer; nothing in the request path
// depends on it.
type NotificationModule struct {
	notifications []NotificationLog
	mu            sync.RWMutex
}

var _ mono.Module = (*NotificationModule)(nil)
var _ mono.EventConsumerModule = (*NotificationModule)(nil)

func NewModule() *NotificationModule {
	return &NotificationModule{
		notifications: make([]NotificationLog, 0),
	}
}

func (m *NotificationModule) Name() string {
	return "notification"
}

func (m *NotificationModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskCreatedV1, m.handleTaskCreated, m); err != nil {
		return fmt.Errorf("failed to register TaskCreated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskDecomposedV1, m.handleTaskDecomposed, m); err != nil {
		return fmt.Errorf("failed to register TaskDecomposed consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskDeletedV1, m.handleTaskDeleted, m); err != nil {
		return fmt.Errorf("failed to register TaskDeleted consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.StepToggledV1, m.handleStepToggled, m); err != nil {
		return fmt.Errorf("failed to register StepToggled consumer: %w", err)
	}

	log.Printf("[notification] Registered event consumers: TaskCreated, TaskDecomposed, TaskDeleted, StepToggled")
	return nil
}

func (m *NotificationModule) handleTaskCreated(_ context.Context, event events.TaskCreatedEvent, _ *mono.Msg) error {
	log.Printf("[notification] Task created: %s - %s", event.TaskID, event.Title)
	m.logNotification(event.TaskID, "task_created", fmt.Sprintf("New task '%s' created for user %s", event.Title, event.OwnerID))
	return nil
}

func (m *NotificationModule) handleTaskDecomposed(_ context.Context, event events.TaskDecomposedEvent, _ *mono.Msg) error {
	log.Printf("[notification] Task decomposed: %s (%d steps, source=%s)", event.TaskID, len(event.StepIDs), event.Source)
	m.logNotification(event.TaskID, "task_decomposed", fmt.Sprintf("Task %s broken into %d steps", event.TaskID, len(event.StepIDs)))
	return nil
}

func (m *NotificationModule) handleTaskDeleted(_ context.Context, event events.TaskDeletedEvent, _ *mono.Msg) error {
	log.Printf("[notification] Task deleted: %s by user %s", event.TaskID, event.OwnerID)
	m.logNotification(event.TaskID, "task_deleted", fmt.Sprintf("Task %s deleted", event.TaskID))
	return nil
}

func (m *NotificationModule) handleStepToggled(_ context.Context, event events.StepToggledEvent, _ *mono.Msg) error {
	state := "reopened"
	if event.Done {
		state = "completed"
	}
	log.Printf("[notification] Step %s: %s (task %s)", state, event.StepID, event.TaskID)
	m.logNotification(event.StepID, "step_toggled", fmt.Sprintf("Step %s %s", event.StepID, state))
	return nil
}

func (m *NotificationModule) logNotification(id, notificationType, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.notifications = append(m.notifications, NotificationLog{
		ID:        id,
		Type:      notificationType,
		Message:   message,
		Channel:   "event",
		Timestamp: time.Now(),
	})
}

func (m *NotificationModule) GetNotifications() []NotificationLog {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]NotificationLog, len(m.notifications))
	copy(result, m.notifications)
	return result
}

func (m *NotificationModule) Start(_ context.Context) error {
	log.Println("[notification] Module started - listening for task events")
	return nil
}

func (m *NotificationModule) Stop(_ context.Context) error {
	log.Println("[notification] Module stopped")
	return nil
}
