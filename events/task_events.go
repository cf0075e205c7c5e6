package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// TaskCreatedEvent is emitted when a new task is created.
type TaskCreatedEvent struct {
	TaskID    string    `json:"task_id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskCreatedV1 is the typed event definition for task creation.
// Subject: events.task.v1.task-created
var TaskCreatedV1 = helper.EventDefinition[TaskCreatedEvent](
	"task", "TaskCreated", "v1",
)

// TaskDecomposedEvent is emitted when a task is expanded into its
// three steps. It is emitted at most once per task.
type TaskDecomposedEvent struct {
	TaskID       string    `json:"task_id"`
	OwnerID      string    `json:"owner_id"`
	StepIDs      []string  `json:"step_ids"`
	Source       string    `json:"source"`
	DecomposedAt time.Time `json:"decomposed_at"`
}

// TaskDecomposedV1 is the typed event definition for task decomposition.
// Subject: events.task.v1.task-decomposed
var TaskDecomposedV1 = helper.EventDefinition[TaskDecomposedEvent](
	"task", "TaskDecomposed", "v1",
)

// TaskDeletedEvent is emitted when a task (and its steps) is deleted.
type TaskDeletedEvent struct {
	TaskID    string    `json:"task_id"`
	OwnerID   string    `json:"owner_id"`
	DeletedAt time.Time `json:"deleted_at"`
}

// TaskDeletedV1 is the typed event definition for task deletion.
// Subject: events.task.v1.task-deleted
var TaskDeletedV1 = helper.EventDefinition[TaskDeletedEvent](
	"task", "TaskDeleted", "v1",
)

// StepToggledEvent is emitted when a step's done flag is flipped.
type StepToggledEvent struct {
	StepID    string    `json:"step_id"`
	TaskID    string    `json:"task_id"`
	OwnerID   string    `json:"owner_id"`
	Done      bool      `json:"done"`
	ToggledAt time.Time `json:"toggled_at"`
}

// StepToggledV1 is the typed event definition for step toggling.
// Subject: events.task.v1.step-toggled
var StepToggledV1 = helper.EventDefinition[StepToggledEvent](
	"task", "StepToggled", "v1",
)
