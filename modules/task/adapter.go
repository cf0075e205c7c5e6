package task

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// TaskPort is the interface other modules use to reach task services.
type TaskPort interface {
	CreateTask(ctx context.Context, req *CreateTaskRequest) (*TaskResponse, error)
	GetTask(ctx context.Context, ownerID, taskID string) (*TaskResponse, error)
	ListTasks(ctx context.Context, ownerID string) (*ListTasksResponse, error)
	UpdateTask(ctx context.Context, req *UpdateTaskRequest) (*TaskResponse, error)
	DeleteTask(ctx context.Context, ownerID, taskID string) (*DeleteTaskResponse, error)
	GenerateSteps(ctx context.Context, ownerID, taskID string) (*GenerateStepsResponse, error)
	ToggleStep(ctx context.Context, ownerID, stepID string) (*StepResponse, error)
}

// taskAdapter implements TaskPort over the service container.
type taskAdapter struct {
	container mono.ServiceContainer
}

// NewTaskAdapter creates an adapter for the task module's services.
func NewTaskAdapter(container mono.ServiceContainer) TaskPort {
	return &taskAdapter{container: container}
}

func (a *taskAdapter) CreateTask(ctx context.Context, req *CreateTaskRequest) (*TaskResponse, error) {
	var resp TaskResponse
	if err := a.call(ctx, "create-task", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *taskAdapter) GetTask(ctx context.Context, ownerID, taskID string) (*TaskResponse, error) {
	req := GetTaskRequest{OwnerID: ownerID, TaskID: taskID}
	var resp TaskResponse
	if err := a.call(ctx, "get-task", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *taskAdapter) ListTasks(ctx context.Context, ownerID string) (*ListTasksResponse, error) {
	req := ListTasksRequest{OwnerID: ownerID}
	var resp ListTasksResponse
	if err := a.call(ctx, "list-tasks", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *taskAdapter) UpdateTask(ctx context.Context, req *UpdateTaskRequest) (*TaskResponse, error) {
	var resp TaskResponse
	if err := a.call(ctx, "update-task", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *taskAdapter) DeleteTask(ctx context.Context, ownerID, taskID string) (*DeleteTaskResponse, error) {
	req := DeleteTaskRequest{OwnerID: ownerID, TaskID: taskID}
	var resp DeleteTaskResponse
	if err := a.call(ctx, "delete-task", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *taskAdapter) GenerateSteps(ctx context.Context, ownerID, taskID string) (*GenerateStepsResponse, error) {
	req := GenerateStepsRequest{OwnerID: ownerID, TaskID: taskID}
	var resp GenerateStepsResponse
	if err := a.call(ctx, "generate-steps", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *taskAdapter) ToggleStep(ctx context.Context, ownerID, stepID string) (*StepResponse, error) {
	req := ToggleStepRequest{OwnerID: ownerID, StepID: stepID}
	var resp StepResponse
	if err := a.call(ctx, "toggle-step", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *taskAdapter) call(ctx context.Context, service string, req, resp any) error {
	if err := helper.CallRequestReplyService[any, any](
		ctx, a.container, service,
		json.Marshal, json.Unmarshal,
		req, &resp,
	); err != nil {
		return fmt.Errorf("%s service call failed: %w", service, err)
	}
	return nil
}
