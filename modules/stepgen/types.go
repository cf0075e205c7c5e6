package stepgen

// GenerateRequest is the body of POST /generate-steps.
type GenerateRequest struct {
	Task string `json:"task"`
}

// GenerateResponse is the response of POST /generate-steps. Steps
// always has exactly three entries.
type GenerateResponse struct {
	Steps []string `json:"steps"`
}

// ErrorResponse is the error body returned by the generator server.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Source tags where a generation result came from. It is surfaced in
// logs only, never in the HTTP contract.
type Source string

const (
	// SourceModel means the steps came from the language model.
	SourceModel Source = "model"
	// SourceCache means the steps were served from the result cache.
	SourceCache Source = "cache"
	// SourceFallback means the deterministic template was used.
	SourceFallback Source = "fallback"
)

// Result is a generation outcome: exactly three steps plus their
// provenance.
type Result struct {
	Steps  []string
	Source Source
}
