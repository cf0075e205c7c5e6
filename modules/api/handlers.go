package api

import (
	"encoding/json"
	"log"
	"strings"

	domain "github.com/example/break-it-down/domain/user"
	"github.com/example/break-it-down/modules/auth"
	"github.com/example/break-it-down/modules/task"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/gofiber/fiber/v2"
)

// Handlers contains HTTP handlers for the API.
type Handlers struct {
	authContainer mono.ServiceContainer
	authAdapter   auth.AuthPort
	taskAdapter   task.TaskPort
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(authContainer mono.ServiceContainer, authAdapter auth.AuthPort, taskAdapter task.TaskPort) *Handlers {
	return &Handlers{
		authContainer: authContainer,
		authAdapter:   authAdapter,
		taskAdapter:   taskAdapter,
	}
}

// Register handles user registration.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request body",
		})
	}

	if req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Email and password are required",
		})
	}

	authReq := auth.RegisterRequest{
		Email:    req.Email,
		Password: req.Password,
	}
	var resp auth.RegisterResponse

	if err := helper.CallRequestReplyService(
		c.UserContext(),
		h.authContainer,
		"register",
		json.Marshal,
		json.Unmarshal,
		&authReq,
		&resp,
	); err != nil {
		return h.handleAuthError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(UserResponse{
		ID:        resp.ID,
		Email:     resp.Email,
		CreatedAt: resp.CreatedAt,
	})
}

// Login handles user login.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request body",
		})
	}

	if req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Email and password are required",
		})
	}

	authReq := auth.LoginRequest{
		Email:    req.Email,
		Password: req.Password,
	}
	var resp auth.LoginResponse

	if err := helper.CallRequestReplyService(
		c.UserContext(),
		h.authContainer,
		"login",
		json.Marshal,
		json.Unmarshal,
		&authReq,
		&resp,
	); err != nil {
		return h.handleAuthError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(TokenResponse{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
		TokenType:    resp.TokenType,
	})
}

// Refresh handles token refresh.
func (h *Handlers) Refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request body",
		})
	}

	if req.RefreshToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Refresh token is required",
		})
	}

	authReq := auth.RefreshRequest{
		RefreshToken: req.RefreshToken,
	}
	var resp auth.RefreshResponse

	if err := helper.CallRequestReplyService(
		c.UserContext(),
		h.authContainer,
		"refresh-token",
		json.Marshal,
		json.Unmarshal,
		&authReq,
		&resp,
	); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid or expired refresh token",
		})
	}

	return c.Status(fiber.StatusOK).JSON(TokenResponse{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
		TokenType:    resp.TokenType,
	})
}

// Profile returns the authenticated user's account details.
func (h *Handlers) Profile(c *fiber.Ctx) error {
	claims, ok := userClaims(c)
	if !ok {
		return unauthenticated(c)
	}

	user, err := h.authAdapter.GetUser(c.UserContext(), claims.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to retrieve user profile",
		})
	}

	return c.Status(fiber.StatusOK).JSON(ProfileResponse{
		ID:        user.ID,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	})
}

// CreateTask handles task creation for the authenticated user.
func (h *Handlers) CreateTask(c *fiber.Ctx) error {
	claims, ok := userClaims(c)
	if !ok {
		return unauthenticated(c)
	}

	var req CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request body",
		})
	}

	taskReq := task.CreateTaskRequest{
		OwnerID: claims.UserID,
		Title:   req.Title,
	}
	resp, err := h.taskAdapter.CreateTask(c.UserContext(), &taskReq)
	if err != nil {
		return h.handleTaskError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

// ListTasks returns the authenticated user's tasks.
func (h *Handlers) ListTasks(c *fiber.Ctx) error {
	claims, ok := userClaims(c)
	if !ok {
		return unauthenticated(c)
	}

	resp, err := h.taskAdapter.ListTasks(c.UserContext(), claims.UserID)
	if err != nil {
		return h.handleTaskError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

// GetTask returns one of the authenticated user's tasks.
func (h *Handlers) GetTask(c *fiber.Ctx) error {
	claims, ok := userClaims(c)
	if !ok {
		return unauthenticated(c)
	}

	resp, err := h.taskAdapter.GetTask(c.UserContext(), claims.UserID, c.Params("id"))
	if err != nil {
		return h.handleTaskError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

// UpdateTask applies a partial update to one of the user's tasks.
func (h *Handlers) UpdateTask(c *fiber.Ctx) error {
	claims, ok := userClaims(c)
	if !ok {
		return unauthenticated(c)
	}

	var req UpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request body",
		})
	}

	if req.Title == nil && req.Status == nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "At least one of title or status is required",
		})
	}

	taskReq := task.UpdateTaskRequest{
		OwnerID: claims.UserID,
		TaskID:  c.Params("id"),
		Title:   req.Title,
		Status:  req.Status,
	}
	resp, err := h.taskAdapter.UpdateTask(c.UserContext(), &taskReq)
	if err != nil {
		return h.handleTaskError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

// DeleteTask removes one of the user's tasks along with its steps.
func (h *Handlers) DeleteTask(c *fiber.Ctx) error {
	claims, ok := userClaims(c)
	if !ok {
		return unauthenticated(c)
	}

	resp, err := h.taskAdapter.DeleteTask(c.UserContext(), claims.UserID, c.Params("id"))
	if err != nil {
		return h.handleTaskError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

// GenerateSteps breaks a task into three steps. A task can be
// decomposed at most once; repeat calls return a conflict.
func (h *Handlers) GenerateSteps(c *fiber.Ctx) error {
	claims, ok := userClaims(c)
	if !ok {
		return unauthenticated(c)
	}

	resp, err := h.taskAdapter.GenerateSteps(c.UserContext(), claims.UserID, c.Params("id"))
	if err != nil {
		return h.handleTaskError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

// ToggleStep flips the done flag on one of the user's steps.
func (h *Handlers) ToggleStep(c *fiber.Ctx) error {
	claims, ok := userClaims(c)
	if !ok {
		return unauthenticated(c)
	}

	resp, err := h.taskAdapter.ToggleStep(c.UserContext(), claims.UserID, c.Params("id"))
	if err != nil {
		return h.handleTaskError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

func userClaims(c *fiber.Ctx) (*domain.Claims, bool) {
	claims, ok := c.Locals(UserContextKey).(*domain.Claims)
	return claims, ok
}

func unauthenticated(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
		Error:   "unauthorized",
		Message: "User not authenticated",
	})
}

// handleAuthError handles authentication errors and returns appropriate responses.
// It matches error messages to provide user-friendly responses without exposing internals.
func (h *Handlers) handleAuthError(c *fiber.Ctx, err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "invalid email or password"):
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid email or password",
		})
	case strings.Contains(errStr, "user with this email already exists"):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error:   "conflict",
			Message: "User with this email already exists",
		})
	case strings.Contains(errStr, "invalid email format"):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid email format",
		})
	case strings.Contains(errStr, "password must be at least"):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Password must be at least 8 characters",
		})
	case strings.Contains(errStr, "password must be at most"):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Password must be at most 72 characters",
		})
	default:
		log.Printf("[api] Internal error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
	}
}

// handleTaskError maps task service errors to HTTP responses. Errors
// cross the service container as flattened strings, so matching is on
// the sentinel messages.
func (h *Handlers) handleTaskError(c *fiber.Ctx, err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "already has steps"):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error:   "conflict",
			Message: "Task already has steps",
		})
	case strings.Contains(errStr, "task is archived"):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error:   "conflict",
			Message: "Task is archived",
		})
	case strings.Contains(errStr, "belongs to another user"):
		return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{
			Error:   "forbidden",
			Message: "Task belongs to another user",
		})
	case strings.Contains(errStr, "not found"):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "Resource not found",
		})
	case strings.Contains(errStr, "identity is required"):
		return unauthenticated(c)
	case strings.Contains(errStr, "title is required"):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Title is required",
		})
	case strings.Contains(errStr, "invalid status"):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid status",
		})
	case strings.Contains(errStr, "timed out"),
		strings.Contains(errStr, "unavailable"),
		strings.Contains(errStr, "invalid response"):
		// Upstream generator failure. Nothing was persisted, so the
		// client may retry the same call.
		log.Printf("[api] Step generator error: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{
			Error:   "bad_gateway",
			Message: "Step generation failed, please try again",
		})
	default:
		log.Printf("[api] Internal error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
	}
}
