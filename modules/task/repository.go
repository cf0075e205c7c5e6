package task

import (
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/example/break-it-down/domain/task"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrTaskNotFound is returned when a task does not exist or is not
	// visible to the requesting owner.
	ErrTaskNotFound = errors.New("task not found")
	// ErrStepNotFound is returned when a step does not exist or is not
	// visible to the requesting owner.
	ErrStepNotFound = errors.New("step not found")
	// ErrAlreadyDecomposed is returned when a task already has steps.
	ErrAlreadyDecomposed = errors.New("task already has steps")
)

// Repository handles task and step persistence using GORM. Every
// query except FindTaskByID is scoped to an owner, so ownership is
// enforced at the storage layer rather than in callers.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new Repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateTask inserts a new task.
func (r *Repository) CreateTask(task *domain.Task) error {
	if err := r.db.Create(task).Error; err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// FindTaskByID loads a task with its steps regardless of owner. Only
// the decomposition guard uses it, so the guard can distinguish a
// missing task from one owned by somebody else.
func (r *Repository) FindTaskByID(id string) (*domain.Task, error) {
	var task domain.Task
	err := r.db.Preload("Steps", func(db *gorm.DB) *gorm.DB {
		return db.Order("step_index ASC")
	}).First(&task, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return &task, nil
}

// FindTaskForOwner loads an owner's task with its steps.
func (r *Repository) FindTaskForOwner(id, ownerID string) (*domain.Task, error) {
	var task domain.Task
	err := r.db.Preload("Steps", func(db *gorm.DB) *gorm.DB {
		return db.Order("step_index ASC")
	}).First(&task, "id = ? AND owner_id = ?", id, ownerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return &task, nil
}

// ListTasksForOwner returns all of an owner's tasks, newest first,
// with steps preloaded in index order.
func (r *Repository) ListTasksForOwner(ownerID string) ([]*domain.Task, error) {
	var tasks []*domain.Task
	err := r.db.Preload("Steps", func(db *gorm.DB) *gorm.DB {
		return db.Order("step_index ASC")
	}).Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// UpdateTask persists title and status changes to an owner's task.
func (r *Repository) UpdateTask(task *domain.Task) error {
	result := r.db.Model(&domain.Task{}).
		Where("id = ? AND owner_id = ?", task.ID, task.OwnerID).
		Select("title", "status", "updated_at").
		Updates(task)
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// DeleteTask removes an owner's task and its steps in one transaction.
func (r *Repository) DeleteTask(id, ownerID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&domain.Step{}, "task_id = ? AND owner_id = ?", id, ownerID).Error; err != nil {
			return fmt.Errorf("failed to delete steps: %w", err)
		}
		result := tx.Delete(&domain.Task{}, "id = ? AND owner_id = ?", id, ownerID)
		if err := result.Error; err != nil {
			return fmt.Errorf("failed to delete task: %w", err)
		}
		if result.RowsAffected == 0 {
			return ErrTaskNotFound
		}
		return nil
	})
}

// InsertStepsIfAbsent atomically persists exactly three steps for a
// task that has none. The zero-step check and the insert run in a
// single transaction, and the unique index on (task_id, step_index)
// backstops the race: of two concurrent calls for the same task, at
// most one can commit. On any failure nothing is persisted.
func (r *Repository) InsertStepsIfAbsent(task *domain.Task, texts []string) ([]domain.Step, error) {
	if len(texts) != 3 {
		return nil, fmt.Errorf("expected 3 step texts, got %d", len(texts))
	}

	now := time.Now()
	steps := make([]domain.Step, 0, 3)
	for i, text := range texts {
		steps = append(steps, domain.Step{
			ID:        uuid.New().String(),
			TaskID:    task.ID,
			OwnerID:   task.OwnerID,
			StepIndex: i + 1,
			Text:      text,
			Done:      false,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Step{}).Where("task_id = ?", task.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count steps: %w", err)
		}
		if count > 0 {
			return ErrAlreadyDecomposed
		}
		if err := tx.Create(&steps).Error; err != nil {
			if isDuplicateKey(err) {
				return ErrAlreadyDecomposed
			}
			return fmt.Errorf("failed to insert steps: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return steps, nil
}

// FindStepForOwner loads an owner's step.
func (r *Repository) FindStepForOwner(id, ownerID string) (*domain.Step, error) {
	var step domain.Step
	if err := r.db.First(&step, "id = ? AND owner_id = ?", id, ownerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStepNotFound
		}
		return nil, fmt.Errorf("failed to find step: %w", err)
	}
	return &step, nil
}

// SetStepDone updates the done flag of an owner's step. Done is the
// only mutable field of a step.
func (r *Repository) SetStepDone(id, ownerID string, done bool) error {
	result := r.db.Model(&domain.Step{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Updates(map[string]any{"done": done, "updated_at": time.Now()})
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to update step: %w", err)
	}
	if result.RowsAffected == 0 {
		return ErrStepNotFound
	}
	return nil
}

func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}
