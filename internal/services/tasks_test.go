package services_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/mek0124/momentum/internal/apperror"
	"github.com/mek0124/momentum/internal/services"

	"github.com/gofrs/uuid"
)

func TestTaskService_CreateDefaults(t *testing.T) {
	db := setupDB(t)
	svc := services.NewTaskService()
	owner := mustUser(t, db, "alice", false)

	task, err := svc.Create(db, owner, services.TaskCreateInput{Title: "  Groceries  ", Details: "milk"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if task.Title != "Groceries" {
		t.Errorf("Expected trimmed title, got %q", task.Title)
	}
	if task.Priority != 3 {
		t.Errorf("Expected default priority 3, got %d", task.Priority)
	}
	if task.UserID != owner.ID {
		t.Error("Task not scoped to its owner")
	}
	if task.UpdatedAt != nil {
		t.Error("New task must not carry an update timestamp")
	}
}

func TestTaskService_CreateValidation(t *testing.T) {
	db := setupDB(t)
	svc := services.NewTaskService()
	owner := mustUser(t, db, "alice", false)

	if _, err := svc.Create(db, owner, services.TaskCreateInput{Title: "   "}); !apperror.IsKind(err, apperror.Validation) {
		t.Errorf("Expected Validation for blank title, got %v", err)
	}
	if _, err := svc.Create(db, owner, services.TaskCreateInput{Title: "ok", Priority: 4}); !apperror.IsKind(err, apperror.Validation) {
		t.Errorf("Expected Validation for priority 4, got %v", err)
	}
	if _, err := svc.Create(db, owner, services.TaskCreateInput{Title: "ok", Priority: -1}); !apperror.IsKind(err, apperror.Validation) {
		t.Errorf("Expected Validation for negative priority, got %v", err)
	}
}

func TestTaskService_FreeTierQuota(t *testing.T) {
	db := setupDB(t)
	svc := services.NewTaskService()
	owner := mustUser(t, db, "alice", false)

	for i := 1; i <= services.FreeTierTaskLimit; i++ {
		if _, err := svc.Create(db, owner, services.TaskCreateInput{Title: fmt.Sprintf("task %d", i)}); err != nil {
			t.Fatalf("Create %d failed: %v", i, err)
		}
	}

	_, err := svc.Create(db, owner, services.TaskCreateInput{Title: "one too many"})
	if !apperror.IsKind(err, apperror.QuotaExceeded) {
		t.Fatalf("Expected QuotaExceeded on task 26, got %v", err)
	}

	tasks, err := svc.List(db, owner.ID)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(tasks) != services.FreeTierTaskLimit {
		t.Errorf("Expected exactly %d tasks, got %d", services.FreeTierTaskLimit, len(tasks))
	}
}

func TestTaskService_SubscribedUnlimited(t *testing.T) {
	db := setupDB(t)
	svc := services.NewTaskService()
	owner := mustUser(t, db, "premium", true)

	for i := 1; i <= 30; i++ {
		if _, err := svc.Create(db, owner, services.TaskCreateInput{Title: fmt.Sprintf("task %d", i)}); err != nil {
			t.Fatalf("Create %d failed for subscribed user: %v", i, err)
		}
	}
}

func TestTaskService_ConcurrentCreatesRespectQuota(t *testing.T) {
	db := setupDB(t)
	svc := services.NewTaskService()
	owner := mustUser(t, db, "alice", false)

	for i := 1; i < services.FreeTierTaskLimit; i++ {
		mustTask(t, db, svc, owner, fmt.Sprintf("task %d", i))
	}

	// One slot left; two racing creates must not both land.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(db, owner, services.TaskCreateInput{Title: fmt.Sprintf("racer %d", i)})
		}(i)
	}
	wg.Wait()

	var quotaErrs, successes int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case apperror.IsKind(err, apperror.QuotaExceeded):
			quotaErrs++
		default:
			t.Fatalf("Unexpected error: %v", err)
		}
	}
	if successes != 1 || quotaErrs != 1 {
		t.Errorf("Expected 1 success and 1 quota rejection, got %d/%d", successes, quotaErrs)
	}

	tasks, _ := svc.List(db, owner.ID)
	if len(tasks) != services.FreeTierTaskLimit {
		t.Errorf("Expected exactly %d tasks after race, got %d", services.FreeTierTaskLimit, len(tasks))
	}
}

func TestTaskService_DuplicateTitlePerOwner(t *testing.T) {
	db := setupDB(t)
	svc := services.NewTaskService()
	alice := mustUser(t, db, "alice", false)
	bob := mustUser(t, db, "bob", false)

	mustTask(t, db, svc, alice, "Groceries")

	if _, err := svc.Create(db, alice, services.TaskCreateInput{Title: "Groceries"}); !apperror.IsKind(err, apperror.Conflict) {
		t.Errorf("Expected Conflict for same owner duplicate, got %v", err)
	}
	if _, err := svc.Create(db, bob, services.TaskCreateInput{Title: "Groceries"}); err != nil {
		t.Errorf("Different owners may share a title: %v", err)
	}
}

func TestTaskService_QuotaCheckedBeforeDuplicateTitle(t *testing.T) {
	db := setupDB(t)
	svc := services.NewTaskService()
	owner := mustUser(t, db, "alice", false)

	for i := 1; i <= services.FreeTierTaskLimit; i++ {
		mustTask(t, db, svc, owner, fmt.Sprintf("task %d", i))
	}

	// Title collides AND quota is exhausted; quota wins.
	_, err := svc.Create(db, owner, services.TaskCreateInput{Title: "task 1"})
	if !apperror.IsKind(err, apperror.QuotaExceeded) {
		t.Errorf("Expected QuotaExceeded before Conflict, got %v", err)
	}
}

func TestTaskService_GetScopedToOwner(t *testing.T) {
	db := setupDB(t)
	svc := services.NewTaskService()
	alice := mustUser(t, db, "alice", false)
	bob := mustUser(t, db, "bob", false)

	task := mustTask(t, db, svc, alice, "secret plans")

	if _, err := svc.Get(db, alice.ID, task.ID); err != nil {
		t.Errorf("Owner should read own task: %v", err)
	}

	// Foreign task and missing task are indistinguishable.
	_, err := svc.Get(db, bob.ID, task.ID)
	if !apperror.IsKind(err, apperror.NotFound) {
		t.Errorf("Expected NotFound for foreign task, got %v", err)
	}
	_, err = svc.Get(db, bob.ID, uuid.Must(uuid.NewV4()))
	if !apperror.IsKind(err, apperror.NotFound) {
		t.Errorf("Expected NotFound for missing task, got %v", err)
	}
}

func TestTaskService_PartialUpdate(t *testing.T) {
	db := setupDB(t)
	svc := services.NewTaskService()
	owner := mustUser(t, db, "alice", false)

	task := mustTask(t, db, svc, owner, "Groceries")

	priority := 1
	updated, err := svc.Update(db, owner.ID, task.ID, services.TaskPatch{Priority: &priority})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if updated.Priority != 1 {
		t.Errorf("Expected priority 1, got %d", updated.Priority)
	}
	if updated.Title != "Groceries" {
		t.Errorf("Title must be unchanged, got %q", updated.Title)
	}
	if updated.Details != task.Details {
		t.Error("Details must be unchanged")
	}
	if updated.UpdatedAt == nil {
		t.Error("Expected UpdatedAt to be set after a partial update")
	}
}

func TestTaskService_UpdateEmptyPatch(t *testing.T) {
	db := setupDB(t)
	svc := services.NewTaskService()
	owner := mustUser(t, db, "alice", false)
	task := mustTask(t, db, svc, owner, "Groceries")

	_, err := svc.Update(db, owner.ID, task.ID, services.TaskPatch{})
	if !apperror.IsKind(err, apperror.Validation) {
		t.Errorf("Expected Validation for empty patch, got %v", err)
	}
}

func TestTaskService_UpdateTitleCollision(t *testing.T) {
	db := setupDB(t)
	svc := services.NewTaskService()
	owner := mustUser(t, db, "alice", false)

	mustTask(t, db, svc, owner, "Groceries")
	task := mustTask(t, db, svc, owner, "Laundry")

	title := "Groceries"
	if _, err := svc.Update(db, owner.ID, task.ID, services.TaskPatch{Title: &title}); !apperror.IsKind(err, apperror.Conflict) {
		t.Errorf("Expected Conflict on colliding title, got %v", err)
	}

	// Re-saving a task under its own title is not a collision.
	same := "Laundry"
	if _, err := svc.Update(db, owner.ID, task.ID, services.TaskPatch{Title: &same}); err != nil {
		t.Errorf("Updating a task to its own title should succeed: %v", err)
	}
}

func TestTaskService_UpdateForeignTask(t *testing.T) {
	db := setupDB(t)
	svc := services.NewTaskService()
	alice := mustUser(t, db, "alice", false)
	bob := mustUser(t, db, "bob", false)

	task := mustTask(t, db, svc, alice, "Groceries")

	title := "hijacked"
	_, err := svc.Update(db, bob.ID, task.ID, services.TaskPatch{Title: &title})
	if !apperror.IsKind(err, apperror.NotFound) {
		t.Errorf("Expected NotFound updating foreign task, got %v", err)
	}
}

func TestTaskService_Delete(t *testing.T) {
	db := setupDB(t)
	svc := services.NewTaskService()
	alice := mustUser(t, db, "alice", false)
	bob := mustUser(t, db, "bob", false)

	task := mustTask(t, db, svc, alice, "Groceries")

	if err := svc.Delete(db, bob.ID, task.ID); !apperror.IsKind(err, apperror.NotFound) {
		t.Errorf("Expected NotFound deleting foreign task, got %v", err)
	}
	if err := svc.Delete(db, alice.ID, task.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := svc.Delete(db, alice.ID, task.ID); !apperror.IsKind(err, apperror.NotFound) {
		t.Errorf("Expected NotFound on second delete, got %v", err)
	}
}

func TestTaskService_DeleteFreesQuota(t *testing.T) {
	db := setupDB(t)
	svc := services.NewTaskService()
	owner := mustUser(t, db, "alice", false)

	var last string
	for i := 1; i <= services.FreeTierTaskLimit; i++ {
		last = fmt.Sprintf("task %d", i)
		mustTask(t, db, svc, owner, last)
	}

	tasks, _ := svc.List(db, owner.ID)
	if err := svc.Delete(db, owner.ID, tasks[0].ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := svc.Create(db, owner, services.TaskCreateInput{Title: "replacement"}); err != nil {
		t.Errorf("Expected create to succeed after freeing a slot: %v", err)
	}
}
