package services

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/mek0124/momentum/internal/apperror"
	"github.com/mek0124/momentum/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// FreeTierTaskLimit caps how many tasks an unsubscribed account may hold.
const FreeTierTaskLimit = 25

type TaskCreateInput struct {
	Title    string
	Details  string
	Priority int // 0 means "use the default"
}

// TaskPatch applies only the fields that are set. Explicit optional fields
// keep accidental writes impossible; there is no generic field map.
type TaskPatch struct {
	Title    *string
	Details  *string
	Priority *int
}

func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Details == nil && p.Priority == nil
}

type TaskService interface {
	List(db *gorm.DB, ownerID uuid.UUID) ([]models.Task, error)
	Get(db *gorm.DB, ownerID, id uuid.UUID) (models.Task, error)
	Create(db *gorm.DB, owner *models.User, input TaskCreateInput) (models.Task, error)
	Update(db *gorm.DB, ownerID, id uuid.UUID, patch TaskPatch) (models.Task, error)
	Delete(db *gorm.DB, ownerID, id uuid.UUID) error
}

// TaskServiceImpl serializes the quota-check-then-insert sequence per user
// with a keyed mutex, so two concurrent creates at count 24 cannot both
// pass the free-tier check. The transaction re-counts right before the
// insert for the same reason.
type TaskServiceImpl struct {
	ownerLocks sync.Map // uuid.UUID -> *sync.Mutex
}

func NewTaskService() *TaskServiceImpl {
	return &TaskServiceImpl{}
}

func (s *TaskServiceImpl) lockOwner(ownerID uuid.UUID) *sync.Mutex {
	mu, _ := s.ownerLocks.LoadOrStore(ownerID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (s *TaskServiceImpl) List(db *gorm.DB, ownerID uuid.UUID) ([]models.Task, error) {
	var tasks []models.Task
	err := db.Where("user_id = ?", ownerID).
		Order("created_at").
		Find(&tasks).Error
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to list tasks", err)
	}
	return tasks, nil
}

// Get returns NotFound both when the task does not exist and when it is
// owned by someone else; callers cannot probe for foreign task IDs.
func (s *TaskServiceImpl) Get(db *gorm.DB, ownerID, id uuid.UUID) (models.Task, error) {
	var task models.Task
	err := db.Where("id = ? AND user_id = ?", id, ownerID).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Task{}, apperror.New(apperror.NotFound, "task not found")
		}
		return models.Task{}, apperror.Wrap(apperror.Internal, "failed to load task", err)
	}
	return task, nil
}

func (s *TaskServiceImpl) Create(db *gorm.DB, owner *models.User, input TaskCreateInput) (models.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return models.Task{}, apperror.New(apperror.Validation, "title is required")
	}

	priority := input.Priority
	if priority == 0 {
		priority = models.DefaultPriority
	}
	if priority < models.PriorityHigh || priority > models.PriorityLow {
		return models.Task{}, apperror.New(apperror.Validation, "priority must be between 1 and 3")
	}

	mu := s.lockOwner(owner.ID)
	mu.Lock()
	defer mu.Unlock()

	task := models.Task{
		ID:        uuid.Must(uuid.NewV4()),
		UserID:    owner.ID,
		Title:     title,
		Details:   input.Details,
		Priority:  priority,
		CreatedAt: time.Now(),
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		// Quota first, duplicate-title second: a capped user is told about
		// the cap even when the title would also collide.
		if !owner.IsSubscribed {
			var count int64
			if err := tx.Model(&models.Task{}).Where("user_id = ?", owner.ID).Count(&count).Error; err != nil {
				return apperror.Wrap(apperror.Internal, "failed to count tasks", err)
			}
			if count >= FreeTierTaskLimit {
				return apperror.New(apperror.QuotaExceeded,
					"task limit reached: free accounts are limited to 25 tasks")
			}
		}

		var existing models.Task
		err := tx.Where("user_id = ? AND title = ?", owner.ID, title).First(&existing).Error
		if err == nil {
			return apperror.New(apperror.Conflict, "a task with this title already exists")
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.Wrap(apperror.Internal, "failed to check title", err)
		}

		if err := tx.Create(&task).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperror.New(apperror.Conflict, "a task with this title already exists")
			}
			return apperror.Wrap(apperror.Internal, "failed to create task", err)
		}
		return nil
	})
	if err != nil {
		return models.Task{}, err
	}
	return task, nil
}

func (s *TaskServiceImpl) Update(db *gorm.DB, ownerID, id uuid.UUID, patch TaskPatch) (models.Task, error) {
	if patch.Empty() {
		return models.Task{}, apperror.New(apperror.Validation, "no update data provided")
	}

	var task models.Task
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", id, ownerID).First(&task).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.New(apperror.NotFound, "task not found")
			}
			return apperror.Wrap(apperror.Internal, "failed to load task", err)
		}

		if patch.Title != nil {
			title := strings.TrimSpace(*patch.Title)
			if title == "" {
				return apperror.New(apperror.Validation, "title is required")
			}

			var existing models.Task
			err := tx.Where("user_id = ? AND title = ? AND id <> ?", ownerID, title, id).
				First(&existing).Error
			if err == nil {
				return apperror.New(apperror.Conflict, "a task with this title already exists")
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.Wrap(apperror.Internal, "failed to check title", err)
			}
			task.Title = title
		}
		if patch.Details != nil {
			task.Details = *patch.Details
		}
		if patch.Priority != nil {
			if *patch.Priority < models.PriorityHigh || *patch.Priority > models.PriorityLow {
				return apperror.New(apperror.Validation, "priority must be between 1 and 3")
			}
			task.Priority = *patch.Priority
		}

		now := time.Now()
		task.UpdatedAt = &now

		if err := tx.Save(&task).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperror.New(apperror.Conflict, "a task with this title already exists")
			}
			return apperror.Wrap(apperror.Internal, "failed to update task", err)
		}
		return nil
	})
	if err != nil {
		return models.Task{}, err
	}
	return task, nil
}

func (s *TaskServiceImpl) Delete(db *gorm.DB, ownerID, id uuid.UUID) error {
	result := db.Where("id = ? AND user_id = ?", id, ownerID).Delete(&models.Task{})
	if result.Error != nil {
		return apperror.Wrap(apperror.Internal, "failed to delete task", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.New(apperror.NotFound, "task not found")
	}
	return nil
}
