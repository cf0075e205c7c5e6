package task

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	domain "github.com/example/break-it-down/domain/task"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return openTestDB(t, ":memory:")
}

// setupFileDB opens a temp-file database. Concurrency tests need it
// because each connection to :memory: gets its own database.
func setupFileDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tasks.db") + "?_busy_timeout=5000"
	return openTestDB(t, path)
}

func openTestDB(t *testing.T, dsn string) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&domain.Task{}, &domain.Step{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func newTask(ownerID, title string) *domain.Task {
	now := time.Now()
	return &domain.Task{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Title:     title,
		Status:    domain.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestRepository_CreateAndFindTask(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	created := newTask("owner-1", "Plan the garden")
	if err := repo.CreateTask(created); err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	found, err := repo.FindTaskForOwner(created.ID, "owner-1")
	if err != nil {
		t.Fatalf("FindTaskForOwner() error = %v", err)
	}
	if found.Title != "Plan the garden" {
		t.Errorf("Title = %v, want %v", found.Title, "Plan the garden")
	}
	if found.Status != domain.StatusActive {
		t.Errorf("Status = %v, want %v", found.Status, domain.StatusActive)
	}
	if len(found.Steps) != 0 {
		t.Errorf("Steps = %d, want 0", len(found.Steps))
	}
}

func TestRepository_FindTaskForOwner_Scoping(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	created := newTask("owner-1", "Private task")
	if err := repo.CreateTask(created); err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	// Another owner cannot see the task.
	if _, err := repo.FindTaskForOwner(created.ID, "owner-2"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("FindTaskForOwner() with wrong owner error = %v, want ErrTaskNotFound", err)
	}

	// FindTaskByID ignores ownership.
	found, err := repo.FindTaskByID(created.ID)
	if err != nil {
		t.Fatalf("FindTaskByID() error = %v", err)
	}
	if found.OwnerID != "owner-1" {
		t.Errorf("OwnerID = %v, want owner-1", found.OwnerID)
	}

	if _, err := repo.FindTaskByID("missing-id"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("FindTaskByID() for missing task error = %v, want ErrTaskNotFound", err)
	}
}

func TestRepository_ListTasksForOwner(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	for i := 0; i < 3; i++ {
		task := newTask("owner-1", fmt.Sprintf("Task %d", i))
		task.CreatedAt = time.Now().Add(time.Duration(i) * time.Second)
		if err := repo.CreateTask(task); err != nil {
			t.Fatalf("CreateTask() error = %v", err)
		}
	}
	if err := repo.CreateTask(newTask("owner-2", "Other owner's task")); err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	tasks, err := repo.ListTasksForOwner("owner-1")
	if err != nil {
		t.Fatalf("ListTasksForOwner() error = %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("len(tasks) = %d, want 3", len(tasks))
	}
	// Newest first.
	if tasks[0].Title != "Task 2" {
		t.Errorf("tasks[0].Title = %v, want Task 2", tasks[0].Title)
	}
}

func TestRepository_UpdateTask(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	created := newTask("owner-1", "Original title")
	if err := repo.CreateTask(created); err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	created.Title = "New title"
	created.Status = domain.StatusCompleted
	if err := repo.UpdateTask(created); err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}

	found, err := repo.FindTaskForOwner(created.ID, "owner-1")
	if err != nil {
		t.Fatalf("FindTaskForOwner() error = %v", err)
	}
	if found.Title != "New title" {
		t.Errorf("Title = %v, want New title", found.Title)
	}
	if found.Status != domain.StatusCompleted {
		t.Errorf("Status = %v, want %v", found.Status, domain.StatusCompleted)
	}

	// Updating with the wrong owner affects no rows.
	created.OwnerID = "owner-2"
	if err := repo.UpdateTask(created); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("UpdateTask() with wrong owner error = %v, want ErrTaskNotFound", err)
	}
}

func TestRepository_InsertStepsIfAbsent(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	created := newTask("owner-1", "Decompose me")
	if err := repo.CreateTask(created); err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	texts := []string{"First", "Second", "Third"}
	steps, err := repo.InsertStepsIfAbsent(created, texts)
	if err != nil {
		t.Fatalf("InsertStepsIfAbsent() error = %v", err)
	}
	if len(steps) != 3 {
		t.Fatalf("len(steps) = %d, want 3", len(steps))
	}
	for i, step := range steps {
		if step.StepIndex != i+1 {
			t.Errorf("steps[%d].StepIndex = %d, want %d", i, step.StepIndex, i+1)
		}
		if step.Text != texts[i] {
			t.Errorf("steps[%d].Text = %v, want %v", i, step.Text, texts[i])
		}
		if step.Done {
			t.Errorf("steps[%d].Done = true, want false", i)
		}
		if step.OwnerID != "owner-1" {
			t.Errorf("steps[%d].OwnerID = %v, want owner-1", i, step.OwnerID)
		}
	}

	// Second insert is rejected and changes nothing.
	if _, err := repo.InsertStepsIfAbsent(created, []string{"A", "B", "C"}); !errors.Is(err, ErrAlreadyDecomposed) {
		t.Fatalf("second InsertStepsIfAbsent() error = %v, want ErrAlreadyDecomposed", err)
	}

	found, err := repo.FindTaskForOwner(created.ID, "owner-1")
	if err != nil {
		t.Fatalf("FindTaskForOwner() error = %v", err)
	}
	if len(found.Steps) != 3 {
		t.Fatalf("len(found.Steps) = %d, want 3", len(found.Steps))
	}
	if found.Steps[0].Text != "First" {
		t.Errorf("Steps[0].Text = %v, want First (original set must survive)", found.Steps[0].Text)
	}
}

func TestRepository_InsertStepsIfAbsent_WrongCount(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	created := newTask("owner-1", "Wrong counts")
	if err := repo.CreateTask(created); err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	for _, texts := range [][]string{{}, {"one"}, {"1", "2", "3", "4"}} {
		if _, err := repo.InsertStepsIfAbsent(created, texts); err == nil {
			t.Errorf("InsertStepsIfAbsent() with %d texts should fail", len(texts))
		}
	}
}

func TestRepository_InsertStepsIfAbsent_Concurrent(t *testing.T) {
	repo := NewRepository(setupFileDB(t))

	created := newTask("owner-1", "Raced task")
	if err := repo.CreateTask(created); err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	const attempts = 4
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.InsertStepsIfAbsent(created, []string{
				fmt.Sprintf("attempt-%d step 1", i),
				fmt.Sprintf("attempt-%d step 2", i),
				fmt.Sprintf("attempt-%d step 3", i),
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for i, err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, ErrAlreadyDecomposed) {
			t.Errorf("attempt %d: unexpected error %v", i, err)
		}
	}
	if succeeded != 1 {
		t.Errorf("succeeded = %d, want exactly 1", succeeded)
	}

	found, err := repo.FindTaskByID(created.ID)
	if err != nil {
		t.Fatalf("FindTaskByID() error = %v", err)
	}
	if len(found.Steps) != 3 {
		t.Errorf("len(found.Steps) = %d, want 3", len(found.Steps))
	}
}

func TestRepository_DeleteTask(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	created := newTask("owner-1", "Doomed task")
	if err := repo.CreateTask(created); err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if _, err := repo.InsertStepsIfAbsent(created, []string{"a", "b", "c"}); err != nil {
		t.Fatalf("InsertStepsIfAbsent() error = %v", err)
	}

	if err := repo.DeleteTask(created.ID, "owner-2"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("DeleteTask() with wrong owner error = %v, want ErrTaskNotFound", err)
	}

	if err := repo.DeleteTask(created.ID, "owner-1"); err != nil {
		t.Fatalf("DeleteTask() error = %v", err)
	}
	if _, err := repo.FindTaskByID(created.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("FindTaskByID() after delete error = %v, want ErrTaskNotFound", err)
	}

	// Steps are destroyed with the task.
	var count int64
	if err := db.Model(&domain.Step{}).Where("task_id = ?", created.ID).Count(&count).Error; err != nil {
		t.Fatalf("count steps: %v", err)
	}
	if count != 0 {
		t.Errorf("orphan steps = %d, want 0", count)
	}
}

func TestRepository_SetStepDone(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	created := newTask("owner-1", "Toggle target")
	if err := repo.CreateTask(created); err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	steps, err := repo.InsertStepsIfAbsent(created, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("InsertStepsIfAbsent() error = %v", err)
	}

	if err := repo.SetStepDone(steps[0].ID, "owner-1", true); err != nil {
		t.Fatalf("SetStepDone() error = %v", err)
	}
	step, err := repo.FindStepForOwner(steps[0].ID, "owner-1")
	if err != nil {
		t.Fatalf("FindStepForOwner() error = %v", err)
	}
	if !step.Done {
		t.Error("Done = false, want true")
	}

	if err := repo.SetStepDone(steps[0].ID, "owner-2", false); !errors.Is(err, ErrStepNotFound) {
		t.Errorf("SetStepDone() with wrong owner error = %v, want ErrStepNotFound", err)
	}
	if _, err := repo.FindStepForOwner(steps[0].ID, "owner-2"); !errors.Is(err, ErrStepNotFound) {
		t.Errorf("FindStepForOwner() with wrong owner error = %v, want ErrStepNotFound", err)
	}
}
