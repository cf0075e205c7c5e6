package task

import (
	"time"
)

// TaskStatus represents the state of a task.
type TaskStatus string

const (
	StatusActive    TaskStatus = "active"
	StatusCompleted TaskStatus = "completed"
	StatusArchived  TaskStatus = "archived"
)

// ValidStatus reports whether s is one of the known task statuses.
// There is no transition graph: any valid status is reachable from
// any other.
func ValidStatus(s TaskStatus) bool {
	switch s {
	case StatusActive, StatusCompleted, StatusArchived:
		return true
	}
	return false
}

// Task is a top-level todo item. A task has either zero steps (never
// decomposed) or exactly three (decomposed once); no other step count
// is ever persisted.
type Task struct {
	ID        string     `gorm:"primaryKey;type:text" json:"id"`
	OwnerID   string     `gorm:"index;not null;type:text" json:"owner_id"`
	Title     string     `gorm:"not null;type:text" json:"title"`
	Status    TaskStatus `gorm:"not null;type:text;default:active" json:"status"`
	Steps     []Step     `gorm:"foreignKey:TaskID" json:"steps"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName returns the table name for the Task entity.
func (Task) TableName() string {
	return "tasks"
}

// Decomposed reports whether the task has been expanded into steps.
func (t *Task) Decomposed() bool {
	return len(t.Steps) > 0
}

// Step is a terminal unit produced by decomposing a task. Steps are
// structurally immutable after creation: the only mutable field is
// Done. StepIndex is unique per task, which is what makes a second
// decomposition of the same task impossible to persist.
type Step struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	TaskID    string    `gorm:"uniqueIndex:uq_task_step;not null;type:text" json:"task_id"`
	OwnerID   string    `gorm:"index;not null;type:text" json:"owner_id"`
	StepIndex int       `gorm:"uniqueIndex:uq_task_step;not null" json:"step_index"`
	Text      string    `gorm:"not null;type:text" json:"text"`
	Done      bool      `gorm:"not null;default:false" json:"done"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for the Step entity.
func (Step) TableName() string {
	return "steps"
}
