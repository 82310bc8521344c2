package services

import (
	"fmt"
	"time"

	"github.com/mek0124/momentum/internal/cache"
	"github.com/mek0124/momentum/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

const taskCacheTTL = 30 * time.Minute

// CachedTaskService decorates a TaskService with a redis read cache. Cache
// keys always embed the owner ID so a cached task can never be served to a
// different account. Cache failures fall through to the database silently.
type CachedTaskService struct {
	inner TaskService
	cache *cache.RedisCache
}

func NewCachedTaskService(inner TaskService, cacheInstance *cache.RedisCache) *CachedTaskService {
	return &CachedTaskService{inner: inner, cache: cacheInstance}
}

func taskKey(ownerID, id uuid.UUID) string {
	return fmt.Sprintf("task:%s:%s", ownerID, id)
}

func taskListKey(ownerID uuid.UUID) string {
	return fmt.Sprintf("user_tasks:%s", ownerID)
}

func (s *CachedTaskService) invalidateOwner(ownerID uuid.UUID) {
	_ = s.cache.Delete(taskListKey(ownerID))
	_ = s.cache.DeletePattern(fmt.Sprintf("task:%s:*", ownerID))
}

func (s *CachedTaskService) List(db *gorm.DB, ownerID uuid.UUID) ([]models.Task, error) {
	var cached []models.Task
	if err := s.cache.Get(taskListKey(ownerID), &cached); err == nil {
		return cached, nil
	}

	tasks, err := s.inner.List(db, ownerID)
	if err != nil {
		return nil, err
	}

	_ = s.cache.Set(taskListKey(ownerID), tasks, taskCacheTTL)
	return tasks, nil
}

func (s *CachedTaskService) Get(db *gorm.DB, ownerID, id uuid.UUID) (models.Task, error) {
	var cached models.Task
	if err := s.cache.Get(taskKey(ownerID, id), &cached); err == nil {
		return cached, nil
	}

	task, err := s.inner.Get(db, ownerID, id)
	if err != nil {
		return task, err
	}

	_ = s.cache.Set(taskKey(ownerID, id), task, taskCacheTTL)
	return task, nil
}

func (s *CachedTaskService) Create(db *gorm.DB, owner *models.User, input TaskCreateInput) (models.Task, error) {
	task, err := s.inner.Create(db, owner, input)
	if err != nil {
		return task, err
	}

	s.invalidateOwner(owner.ID)
	return task, nil
}

func (s *CachedTaskService) Update(db *gorm.DB, ownerID, id uuid.UUID, patch TaskPatch) (models.Task, error) {
	task, err := s.inner.Update(db, ownerID, id, patch)
	if err != nil {
		return task, err
	}

	s.invalidateOwner(ownerID)
	return task, nil
}

func (s *CachedTaskService) Delete(db *gorm.DB, ownerID, id uuid.UUID) error {
	if err := s.inner.Delete(db, ownerID, id); err != nil {
		return err
	}

	s.invalidateOwner(ownerID)
	return nil
}
