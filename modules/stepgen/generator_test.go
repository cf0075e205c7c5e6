package stepgen

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeCompleter scripts model output.
type fakeCompleter struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
	gate  chan struct{}
}

func (f *fakeCompleter) Complete(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

// memStore is an in-memory ResultStore.
type memStore struct {
	mu   sync.Mutex
	data map[string][]string
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]string)}
}

func (s *memStore) Get(_ context.Context, key string, dest any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	steps, ok := s.data[key]
	if !ok {
		return false, nil
	}
	*(dest.(*[]string)) = steps
	return true, nil
}

func (s *memStore) Set(_ context.Context, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value.([]string)
	return nil
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{name: "plain", title: "Clean the garage", want: "Clean the garage"},
		{name: "surrounding whitespace", title: "  Clean the garage \n", want: "Clean the garage"},
		{name: "internal whitespace collapsed", title: "Clean \t the\n\ngarage", want: "Clean the garage"},
		{name: "empty", title: "", want: ""},
		{name: "only whitespace", title: " \t\n ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTitle(tt.title); got != tt.want {
				t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

func TestNormalizeTitle_CapsLength(t *testing.T) {
	long := strings.Repeat("x", 500)
	got := NormalizeTitle(long)
	if len([]rune(got)) != 200 {
		t.Errorf("len = %d, want 200", len([]rune(got)))
	}
}

func TestParseSteps(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "numbered with dots",
			text: "1. Sort everything into keep and discard piles\n2. Sweep and wipe down surfaces\n3. Return kept items to labeled shelves",
			want: []string{
				"Sort everything into keep and discard piles",
				"Sweep and wipe down surfaces",
				"Return kept items to labeled shelves",
			},
		},
		{
			name: "numbered with parens",
			text: "1) First\n2) Second\n3) Third",
			want: []string{"First", "Second", "Third"},
		},
		{
			name: "bulleted",
			text: "- First\n* Second\n- Third",
			want: []string{"First", "Second", "Third"},
		},
		{
			name: "blank lines and preamble",
			text: "Here are your steps:\n\n1. First\n\n2. Second\n3. Third",
			want: []string{"Here are your steps:", "First", "Second", "Third"},
		},
		{
			name: "empty",
			text: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseSteps(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("ParseSteps() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ParseSteps()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestGenerator_ModelSuccess(t *testing.T) {
	model := &fakeCompleter{text: "1. Alpha\n2. Beta\n3. Gamma"}
	g := NewGenerator(model, nil)

	result := g.Generate(context.Background(), "Some task")
	if result.Source != SourceModel {
		t.Errorf("Source = %v, want %v", result.Source, SourceModel)
	}
	if len(result.Steps) != 3 {
		t.Fatalf("len(Steps) = %d, want 3", len(result.Steps))
	}
	if result.Steps[0] != "Alpha" {
		t.Errorf("Steps[0] = %q, want Alpha", result.Steps[0])
	}
}

func TestGenerator_NilModelUsesFallback(t *testing.T) {
	g := NewGenerator(nil, nil)

	result := g.Generate(context.Background(), "Organize the closet")
	if result.Source != SourceFallback {
		t.Errorf("Source = %v, want %v", result.Source, SourceFallback)
	}
	if len(result.Steps) != 3 {
		t.Fatalf("len(Steps) = %d, want 3", len(result.Steps))
	}
	if !strings.Contains(result.Steps[0], "Organize the closet") {
		t.Errorf("Steps[0] = %q, want the task title embedded", result.Steps[0])
	}
}

func TestGenerator_ModelErrorUsesFallback(t *testing.T) {
	model := &fakeCompleter{err: errors.New("rate limited")}
	g := NewGenerator(model, nil)

	result := g.Generate(context.Background(), "Some task")
	if result.Source != SourceFallback {
		t.Errorf("Source = %v, want %v", result.Source, SourceFallback)
	}
	if len(result.Steps) != 3 {
		t.Errorf("len(Steps) = %d, want 3", len(result.Steps))
	}
}

func TestGenerator_ShortModelOutputUsesFallback(t *testing.T) {
	model := &fakeCompleter{text: "1. Only one step"}
	g := NewGenerator(model, nil)

	result := g.Generate(context.Background(), "Some task")
	if result.Source != SourceFallback {
		t.Errorf("Source = %v, want %v", result.Source, SourceFallback)
	}
	if len(result.Steps) != 3 {
		t.Errorf("len(Steps) = %d, want 3", len(result.Steps))
	}
}

func TestGenerator_ExtraModelLinesTruncated(t *testing.T) {
	model := &fakeCompleter{text: "1. One\n2. Two\n3. Three\n4. Four\n5. Five"}
	g := NewGenerator(model, nil)

	result := g.Generate(context.Background(), "Some task")
	if result.Source != SourceModel {
		t.Errorf("Source = %v, want %v", result.Source, SourceModel)
	}
	if len(result.Steps) != 3 {
		t.Errorf("len(Steps) = %d, want 3", len(result.Steps))
	}
}

func TestGenerator_CacheHitSkipsModel(t *testing.T) {
	model := &fakeCompleter{text: "1. One\n2. Two\n3. Three"}
	store := newMemStore()
	g := NewGenerator(model, store)

	first := g.Generate(context.Background(), "Cached task")
	if first.Source != SourceModel {
		t.Fatalf("first Source = %v, want %v", first.Source, SourceModel)
	}

	second := g.Generate(context.Background(), "Cached task")
	if second.Source != SourceCache {
		t.Errorf("second Source = %v, want %v", second.Source, SourceCache)
	}
	if model.calls != 1 {
		t.Errorf("model calls = %d, want 1", model.calls)
	}
	if second.Steps[0] != first.Steps[0] {
		t.Errorf("cached Steps[0] = %q, want %q", second.Steps[0], first.Steps[0])
	}
}

func TestGenerator_SingleflightCollapsesConcurrentCalls(t *testing.T) {
	model := &fakeCompleter{text: "1. One\n2. Two\n3. Three", gate: make(chan struct{})}
	g := NewGenerator(model, nil)

	const n = 5
	var wg sync.WaitGroup
	results := make([]Result, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = g.Generate(context.Background(), "Shared task")
		}(i)
	}

	// Let all goroutines pile onto the in-flight call, then release it.
	time.Sleep(100 * time.Millisecond)
	close(model.gate)
	wg.Wait()

	if model.calls != 1 {
		t.Errorf("model calls = %d, want 1", model.calls)
	}
	for i, result := range results {
		if len(result.Steps) != 3 {
			t.Errorf("results[%d] has %d steps, want 3", i, len(result.Steps))
		}
	}
}

func TestFallbackSteps_EmptyTask(t *testing.T) {
	steps := FallbackSteps("")
	if len(steps) != 3 {
		t.Fatalf("len = %d, want 3", len(steps))
	}
	if steps[0] != "Clarify the desired outcome for: this task." {
		t.Errorf("steps[0] = %q, want generic subject", steps[0])
	}

	// The generator's blank-title branch takes the same path.
	result := NewGenerator(nil, nil).Generate(context.Background(), "   ")
	if result.Source != SourceFallback {
		t.Errorf("Source = %v, want %v", result.Source, SourceFallback)
	}
	if result.Steps[0] != steps[0] {
		t.Errorf("Steps[0] = %q, want %q", result.Steps[0], steps[0])
	}
}

func TestFallbackSteps(t *testing.T) {
	steps := FallbackSteps("Write the report")
	if len(steps) != 3 {
		t.Fatalf("len = %d, want 3", len(steps))
	}
	if steps[0] != "Clarify the desired outcome for: Write the report." {
		t.Errorf("steps[0] = %q", steps[0])
	}
	for i, step := range steps {
		if strings.TrimSpace(step) == "" {
			t.Errorf("steps[%d] is blank", i)
		}
	}
}
