package stepgen

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"golang.org/x/sync/singleflight"
)

// maxTitleLen caps normalized task titles, matching the limit enforced
// on task creation.
const maxTitleLen = 200

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	listMarkerRe = regexp.MustCompile(`^(\d+[\).\s-]+|[-*]\s+)`)
)

var errShortResponse = errors.New("model returned fewer than three steps")

// ModelCompleter produces raw model output for a task title. A nil
// completer means the generator runs on the fallback template alone.
type ModelCompleter interface {
	Complete(ctx context.Context, task string) (string, error)
}

// ResultStore caches generation results keyed by normalized title.
// Satisfied by *cache.Cache; nil disables caching.
type ResultStore interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
}

// Generator turns a task title into exactly three short actionable
// steps. Its contract is total: it always returns three non-empty
// strings and never an error. Failures of the underlying model select
// the deterministic fallback template instead of propagating.
type Generator struct {
	model ModelCompleter
	store ResultStore
	sf    singleflight.Group
}

// NewGenerator creates a Generator. Both model and store may be nil.
func NewGenerator(model ModelCompleter, store ResultStore) *Generator {
	return &Generator{
		model: model,
		store: store,
	}
}

// Generate returns exactly three steps for the given title. The title
// is treated purely as a top-level task description; callers guarantee
// it is never a step's text.
func (g *Generator) Generate(ctx context.Context, title string) Result {
	task := NormalizeTitle(title)
	if task == "" {
		// Callers validate first; this keeps the contract total anyway.
		return Result{Steps: FallbackSteps(task), Source: SourceFallback}
	}

	if g.store != nil {
		var cached []string
		found, err := g.store.Get(ctx, task, &cached)
		if err != nil {
			log.Printf("[stepgen] Cache error for %q: %v", task, err)
		}
		if found && len(cached) == 3 {
			return Result{Steps: cached, Source: SourceCache}
		}
	}

	if g.model == nil {
		return Result{Steps: FallbackSteps(task), Source: SourceFallback}
	}

	// Concurrent requests for the same title share one model call.
	val, err, _ := g.sf.Do(task, func() (any, error) {
		text, err := g.model.Complete(ctx, task)
		if err != nil {
			return nil, err
		}
		steps := ParseSteps(text)
		if len(steps) < 3 {
			return nil, errShortResponse
		}
		return steps[:3], nil
	})
	if err != nil {
		log.Printf("[stepgen] Model generation failed for %q, using fallback: %v", task, err)
		return Result{Steps: FallbackSteps(task), Source: SourceFallback}
	}

	steps := val.([]string)
	if g.store != nil {
		if err := g.store.Set(ctx, task, steps); err != nil {
			log.Printf("[stepgen] Failed to cache steps for %q: %v", task, err)
		}
	}

	return Result{Steps: steps, Source: SourceModel}
}

// NormalizeTitle collapses whitespace and caps the title length.
func NormalizeTitle(title string) string {
	cleaned := whitespaceRe.ReplaceAllString(strings.TrimSpace(title), " ")
	runes := []rune(cleaned)
	if len(runes) > maxTitleLen {
		return string(runes[:maxTitleLen])
	}
	return cleaned
}

// ParseSteps extracts step lines from raw model output, stripping
// numbered and bulleted list markers.
func ParseSteps(text string) []string {
	var steps []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		cleaned := strings.TrimSpace(listMarkerRe.ReplaceAllString(line, ""))
		if cleaned != "" {
			steps = append(steps, cleaned)
		}
	}
	return steps
}

// FallbackSteps is the deterministic decomposition template used when
// the model is unavailable or returns an unusable result.
func FallbackSteps(task string) []string {
	if task == "" {
		task = "this task"
	}
	return []string{
		fmt.Sprintf("Clarify the desired outcome for: %s.", task),
		"List the key resources or info you need to start.",
		"Complete the first small action and note the next step.",
	}
}
