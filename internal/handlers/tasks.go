package handlers

import (
	"net/http"

	"github.com/mek0124/momentum/internal/middleware"
	"github.com/mek0124/momentum/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type TaskHandler struct {
	db    *gorm.DB
	tasks services.TaskService
}

func NewTaskHandler(db *gorm.DB, tasks services.TaskService) *TaskHandler {
	return &TaskHandler{db: db, tasks: tasks}
}

type createTaskRequest struct {
	Title    string `json:"title" binding:"required"`
	Details  string `json:"details"`
	Priority int    `json:"priority"`
}

// updateTaskRequest distinguishes "field absent" from "field set to its
// zero value" with pointers, so a PATCH-style partial update never clears
// fields the caller did not mention.
type updateTaskRequest struct {
	Title    *string `json:"title"`
	Details  *string `json:"details"`
	Priority *int    `json:"priority"`
}

func taskIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return uuid.Nil, false
	}
	return id, true
}

// List returns every task the caller owns, oldest first.
// GET /tasks
func (h *TaskHandler) List(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "could not validate credentials"})
		return
	}

	tasks, err := h.tasks.List(h.db, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "count": len(tasks)})
}

// Get returns one task by ID, scoped to the caller.
// GET /tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "could not validate credentials"})
		return
	}
	id, ok := taskIDParam(c)
	if !ok {
		return
	}

	task, err := h.tasks.Get(h.db, user.ID, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// Create adds a task for the caller, subject to the free-tier quota.
// POST /tasks
func (h *TaskHandler) Create(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "could not validate credentials"})
		return
	}

	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	task, err := h.tasks.Create(h.db, user, services.TaskCreateInput{
		Title:    req.Title,
		Details:  req.Details,
		Priority: req.Priority,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, task)
}

// Update applies a partial update to one of the caller's tasks.
// PUT /tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "could not validate credentials"})
		return
	}
	id, ok := taskIDParam(c)
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	task, err := h.tasks.Update(h.db, user.ID, id, services.TaskPatch{
		Title:    req.Title,
		Details:  req.Details,
		Priority: req.Priority,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// Delete removes one of the caller's tasks.
// DELETE /tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "could not validate credentials"})
		return
	}
	id, ok := taskIDParam(c)
	if !ok {
		return
	}

	if err := h.tasks.Delete(h.db, user.ID, id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "task deleted"})
}
