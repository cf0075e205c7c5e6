package task

import "time"

// StepResponse represents a step in responses.
type StepResponse struct {
	ID        string `json:"id"`
	TaskID    string `json:"task_id"`
	StepIndex int    `json:"step_index"`
	Text      string `json:"text"`
	Done      bool   `json:"done"`
}

// TaskResponse represents a task in responses. Decomposed mirrors the
// server-side step count so clients derive the "can decompose"
// affordance from the latest read instead of local state.
type TaskResponse struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Status     string         `json:"status"`
	Decomposed bool           `json:"decomposed"`
	Steps      []StepResponse `json:"steps"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// CreateTaskRequest is the create-task service request. OwnerID is the
// authenticated identity, set by the API layer, never by clients.
type CreateTaskRequest struct {
	OwnerID string `json:"owner_id"`
	Title   string `json:"title"`
}

// GetTaskRequest is the get-task service request.
type GetTaskRequest struct {
	OwnerID string `json:"owner_id"`
	TaskID  string `json:"task_id"`
}

// ListTasksRequest is the list-tasks service request.
type ListTasksRequest struct {
	OwnerID string `json:"owner_id"`
}

// ListTasksResponse is the list-tasks service response.
type ListTasksResponse struct {
	Tasks []TaskResponse `json:"tasks"`
	Total int            `json:"total"`
}

// UpdateTaskRequest is the update-task service request. Nil fields are
// left unchanged.
type UpdateTaskRequest struct {
	OwnerID string  `json:"owner_id"`
	TaskID  string  `json:"task_id"`
	Title   *string `json:"title,omitempty"`
	Status  *string `json:"status,omitempty"`
}

// DeleteTaskRequest is the delete-task service request.
type DeleteTaskRequest struct {
	OwnerID string `json:"owner_id"`
	TaskID  string `json:"task_id"`
}

// DeleteTaskResponse is the delete-task service response.
type DeleteTaskResponse struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// GenerateStepsRequest is the generate-steps service request.
type GenerateStepsRequest struct {
	OwnerID string `json:"owner_id"`
	TaskID  string `json:"task_id"`
}

// GenerateStepsResponse is the generate-steps service response. The
// steps are the persisted rows, not raw generator output, so callers
// observe final identifiers.
type GenerateStepsResponse struct {
	Steps []StepResponse `json:"steps"`
}

// ToggleStepRequest is the toggle-step service request.
type ToggleStepRequest struct {
	OwnerID string `json:"owner_id"`
	StepID  string `json:"step_id"`
}
