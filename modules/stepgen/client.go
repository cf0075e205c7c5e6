package stepgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"
)

var (
	// ErrTimeout is returned when the generator does not answer within
	// the client's bounded wait.
	ErrTimeout = errors.New("step generator timed out")
	// ErrUnavailable is returned when the generator cannot be reached.
	ErrUnavailable = errors.New("step generator unavailable")
	// ErrInvalidResponse is returned when the generator's response is
	// not exactly three non-empty steps.
	ErrInvalidResponse = errors.New("step generator returned an invalid response")
)

// DefaultTimeout bounds a single generation call. There is no retry:
// callers re-invoke the whole operation if they want another attempt.
const DefaultTimeout = 10 * time.Second

// Client calls the step generator over HTTP. It is the only path the
// decomposition guard uses to obtain steps.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient creates a generator client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

// NewClientFromEnv creates a client from STEPGEN_URL, defaulting to the
// in-process generator server.
func NewClientFromEnv() *Client {
	baseURL := os.Getenv("STEPGEN_URL")
	if baseURL == "" {
		port := os.Getenv("STEPGEN_PORT")
		if port == "" {
			port = "8000"
		}
		baseURL = "http://localhost:" + port
	}
	return NewClient(baseURL, DefaultTimeout)
}

// Generate requests three steps for the given task title. On success
// the returned slice has exactly three non-empty entries.
func (c *Client) Generate(ctx context.Context, title string) ([]string, error) {
	payload, err := json.Marshal(GenerateRequest{Task: title})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate-steps", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrInvalidResponse, resp.StatusCode)
	}

	var body GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	if len(body.Steps) != 3 {
		return nil, fmt.Errorf("%w: got %d steps", ErrInvalidResponse, len(body.Steps))
	}
	for _, step := range body.Steps {
		if strings.TrimSpace(step) == "" {
			return nil, fmt.Errorf("%w: empty step", ErrInvalidResponse)
		}
	}

	return body.Steps, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
