package task

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	domain "github.com/example/break-it-down/domain/task"
	"github.com/example/break-it-down/events"
	"github.com/example/break-it-down/modules/stepgen"
	"github.com/go-monolith/mono"
	"github.com/google/uuid"
)

var (
	// ErrIdentityRequired is returned when a request carries no
	// authenticated owner identity.
	ErrIdentityRequired = errors.New("requesting identity is required")
	// ErrForbidden is returned when a task belongs to another user.
	ErrForbidden = errors.New("task belongs to another user")
	// ErrTaskArchived is returned when a mutation is attempted on an
	// archived task. Status changes are exempt so tasks can be
	// unarchived.
	ErrTaskArchived = errors.New("task is archived")
	// ErrEmptyTitle is returned when a task title is missing or blank.
	ErrEmptyTitle = errors.New("title is required")
	// ErrInvalidStatus is returned for unknown status values.
	ErrInvalidStatus = errors.New("invalid status")
)

// createTask handles the create-task service request.
func (m *TaskModule) createTask(_ context.Context, req CreateTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	if req.OwnerID == "" {
		return TaskResponse{}, ErrIdentityRequired
	}
	title := stepgen.NormalizeTitle(req.Title)
	if title == "" {
		return TaskResponse{}, ErrEmptyTitle
	}

	now := time.Now()
	newTask := &domain.Task{
		ID:        uuid.New().String(),
		OwnerID:   req.OwnerID,
		Title:     title,
		Status:    domain.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := m.repo.CreateTask(newTask); err != nil {
		return TaskResponse{}, err
	}

	m.publishTaskCreated(newTask)

	return toTaskResponse(newTask), nil
}

// getTask handles the get-task service request.
func (m *TaskModule) getTask(_ context.Context, req GetTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	if req.OwnerID == "" {
		return TaskResponse{}, ErrIdentityRequired
	}
	task, err := m.repo.FindTaskForOwner(req.TaskID, req.OwnerID)
	if err != nil {
		return TaskResponse{}, err
	}
	return toTaskResponse(task), nil
}

// listTasks handles the list-tasks service request.
func (m *TaskModule) listTasks(_ context.Context, req ListTasksRequest, _ *mono.Msg) (ListTasksResponse, error) {
	if req.OwnerID == "" {
		return ListTasksResponse{}, ErrIdentityRequired
	}
	tasks, err := m.repo.ListTasksForOwner(req.OwnerID)
	if err != nil {
		return ListTasksResponse{}, err
	}

	response := ListTasksResponse{
		Tasks: make([]TaskResponse, 0, len(tasks)),
		Total: len(tasks),
	}
	for _, task := range tasks {
		response.Tasks = append(response.Tasks, toTaskResponse(task))
	}
	return response, nil
}

// updateTask handles the update-task service request. There is no
// status transition graph: any valid status may replace any other.
// Archived tasks only accept status changes, so they can be unarchived
// but not otherwise edited.
func (m *TaskModule) updateTask(_ context.Context, req UpdateTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	if req.OwnerID == "" {
		return TaskResponse{}, ErrIdentityRequired
	}
	task, err := m.repo.FindTaskForOwner(req.TaskID, req.OwnerID)
	if err != nil {
		return TaskResponse{}, err
	}

	if req.Title != nil {
		if task.Status == domain.StatusArchived {
			return TaskResponse{}, ErrTaskArchived
		}
		title := stepgen.NormalizeTitle(*req.Title)
		if title == "" {
			return TaskResponse{}, ErrEmptyTitle
		}
		task.Title = title
	}
	if req.Status != nil {
		status := domain.TaskStatus(*req.Status)
		if !domain.ValidStatus(status) {
			return TaskResponse{}, fmt.Errorf("%w: %s", ErrInvalidStatus, *req.Status)
		}
		task.Status = status
	}
	task.UpdatedAt = time.Now()

	if err := m.repo.UpdateTask(task); err != nil {
		return TaskResponse{}, err
	}
	return toTaskResponse(task), nil
}

// deleteTask handles the delete-task service request. Steps are
// destroyed with their task.
func (m *TaskModule) deleteTask(_ context.Context, req DeleteTaskRequest, _ *mono.Msg) (DeleteTaskResponse, error) {
	if req.OwnerID == "" {
		return DeleteTaskResponse{}, ErrIdentityRequired
	}
	if err := m.repo.DeleteTask(req.TaskID, req.OwnerID); err != nil {
		return DeleteTaskResponse{Deleted: false, ID: req.TaskID}, err
	}

	m.publishTaskDeleted(req.TaskID, req.OwnerID)

	return DeleteTaskResponse{Deleted: true, ID: req.TaskID}, nil
}

// generateSteps is the decomposition guard. Preconditions run in a
// fixed order, each with its own failure mode: identity, existence,
// ownership, zero steps. The generator is invoked with the task title
// only — a step's text can never reach it through this path, which is
// what makes decomposition non-recursive. On any failure nothing is
// persisted.
func (m *TaskModule) generateSteps(ctx context.Context, req GenerateStepsRequest, _ *mono.Msg) (GenerateStepsResponse, error) {
	if req.OwnerID == "" {
		return GenerateStepsResponse{}, ErrIdentityRequired
	}
	if req.TaskID == "" {
		return GenerateStepsResponse{}, ErrTaskNotFound
	}

	task, err := m.repo.FindTaskByID(req.TaskID)
	if err != nil {
		return GenerateStepsResponse{}, err
	}
	if task.OwnerID != req.OwnerID {
		return GenerateStepsResponse{}, ErrForbidden
	}
	if task.Status == domain.StatusArchived {
		return GenerateStepsResponse{}, ErrTaskArchived
	}
	if len(task.Steps) > 0 {
		return GenerateStepsResponse{}, ErrAlreadyDecomposed
	}

	// Bounded wait; no retry. A timeout here persists nothing, so the
	// caller can safely re-invoke the whole operation.
	texts, err := m.generator.Generate(ctx, task.Title)
	if err != nil {
		return GenerateStepsResponse{}, err
	}

	steps, err := m.repo.InsertStepsIfAbsent(task, texts)
	if err != nil {
		return GenerateStepsResponse{}, err
	}

	m.publishTaskDecomposed(task, steps)

	response := GenerateStepsResponse{Steps: make([]StepResponse, 0, len(steps))}
	for i := range steps {
		response.Steps = append(response.Steps, toStepResponse(&steps[i]))
	}
	return response, nil
}

// toggleStep handles the toggle-step service request. Toggling done is
// the only mutation a step supports; it never touches the task status
// or sibling steps.
func (m *TaskModule) toggleStep(_ context.Context, req ToggleStepRequest, _ *mono.Msg) (StepResponse, error) {
	if req.OwnerID == "" {
		return StepResponse{}, ErrIdentityRequired
	}
	step, err := m.repo.FindStepForOwner(req.StepID, req.OwnerID)
	if err != nil {
		return StepResponse{}, err
	}

	parent, err := m.repo.FindTaskForOwner(step.TaskID, req.OwnerID)
	if err != nil {
		return StepResponse{}, err
	}
	if parent.Status == domain.StatusArchived {
		return StepResponse{}, ErrTaskArchived
	}

	step.Done = !step.Done
	if err := m.repo.SetStepDone(step.ID, req.OwnerID, step.Done); err != nil {
		return StepResponse{}, err
	}

	m.publishStepToggled(step)

	return toStepResponse(step), nil
}

func (m *TaskModule) publishTaskCreated(task *domain.Task) {
	if m.eventBus == nil {
		return
	}
	event := events.TaskCreatedEvent{
		TaskID:    task.ID,
		OwnerID:   task.OwnerID,
		Title:     task.Title,
		CreatedAt: task.CreatedAt,
	}
	if err := events.TaskCreatedV1.Publish(m.eventBus, event, nil); err != nil {
		log.Printf("[task] Warning: failed to publish TaskCreated event for task %s: %v", task.ID, err)
	}
}

func (m *TaskModule) publishTaskDecomposed(task *domain.Task, steps []domain.Step) {
	if m.eventBus == nil {
		return
	}
	stepIDs := make([]string, 0, len(steps))
	for i := range steps {
		stepIDs = append(stepIDs, steps[i].ID)
	}
	event := events.TaskDecomposedEvent{
		TaskID:       task.ID,
		OwnerID:      task.OwnerID,
		StepIDs:      stepIDs,
		Source:       "generator",
		DecomposedAt: time.Now(),
	}
	if err := events.TaskDecomposedV1.Publish(m.eventBus, event, nil); err != nil {
		log.Printf("[task] Warning: failed to publish TaskDecomposed event for task %s: %v", task.ID, err)
	}
}

func (m *TaskModule) publishTaskDeleted(taskID, ownerID string) {
	if m.eventBus == nil {
		return
	}
	event := events.TaskDeletedEvent{
		TaskID:    taskID,
		OwnerID:   ownerID,
		DeletedAt: time.Now(),
	}
	if err := events.TaskDeletedV1.Publish(m.eventBus, event, nil); err != nil {
		log.Printf("[task] Warning: failed to publish TaskDeleted event for task %s: %v", taskID, err)
	}
}

func (m *TaskModule) publishStepToggled(step *domain.Step) {
	if m.eventBus == nil {
		return
	}
	event := events.StepToggledEvent{
		StepID:    step.ID,
		TaskID:    step.TaskID,
		OwnerID:   step.OwnerID,
		Done:      step.Done,
		ToggledAt: time.Now(),
	}
	if err := events.StepToggledV1.Publish(m.eventBus, event, nil); err != nil {
		log.Printf("[task] Warning: failed to publish StepToggled event for step %s: %v", step.ID, err)
	}
}

func toTaskResponse(task *domain.Task) TaskResponse {
	steps := make([]StepResponse, 0, len(task.Steps))
	for i := range task.Steps {
		steps = append(steps, toStepResponse(&task.Steps[i]))
	}
	return TaskResponse{
		ID:         task.ID,
		Title:      task.Title,
		Status:     string(task.Status),
		Decomposed: task.Decomposed(),
		Steps:      steps,
		CreatedAt:  task.CreatedAt,
		UpdatedAt:  task.UpdatedAt,
	}
}

func toStepResponse(step *domain.Step) StepResponse {
	return StepResponse{
		ID:        step.ID,
		TaskID:    step.TaskID,
		StepIndex: step.StepIndex,
		Text:      step.Text,
		Done:      step.Done,
	}
}
