package task

import (
	"errors"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/hsm-gustavo/todo-go/internal/api/middleware"
	"github.com/hsm-gustavo/todo-go/internal/api/request"
	"github.com/hsm-gustavo/todo-go/internal/api/response"
	"github.com/hsm-gustavo/todo-go/internal/db"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

type CreateTaskRequest struct {
	Title  string         `json:"title" validate:"max=500" example:"buy milk"`
	Status *db.TaskStatus `json:"status,omitempty" example:"pending"`
}

type UpdateTaskRequest struct {
	Title  *string        `json:"title,omitempty" validate:"omitempty,max=500" example:"buy oat milk"`
	Status *db.TaskStatus `json:"status,omitempty" example:"done"`
}

type MessageResponse struct {
	Message string `json:"message" example:"deleted"`
}

// Create godoc
// @Summary		Create task
// @Description	Creates a task owned by the caller. Status defaults to pending.
// @Tags			tasks
// @Accept			json
// @Produce		json
// @Security		BearerAuth
// @Param			task	body		CreateTaskRequest	true	"Task to create"
// @Success		201		{object}	db.Task
// @Failure		400		{object}	response.ErrorResponse	"Missing title or invalid status"
// @Failure		401		{object}	response.ErrorResponse	"Unauthorized"
// @Failure		500		{object}	response.ErrorResponse	"Internal server error"
// @Router			/tasks [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, store, err := caller(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	var req CreateTaskRequest
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	title, ok := request.Trimmed(req.Title)
	if !ok {
		response.WriteError(w, r, response.Validation("Title is required"))
		return
	}
	req.Title = title
	if err := request.Validate(req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	status := db.StatusPending
	if req.Status != nil {
		status = *req.Status
	}
	if err := checkStatus(status, db.CreatableStatuses); err != nil {
		response.WriteError(w, r, err)
		return
	}

	t := &db.Task{Title: title, Status: status, UserID: userID}
	if err := NewTaskService(store).CreateTask(r.Context(), t); err != nil {
		response.WriteError(w, r, response.Internal("Error creating task", err))
		return
	}
	response.JSON(w, http.StatusCreated, t)
}

// List godoc
// @Summary		List tasks
// @Description	Returns the caller's tasks in creation order
// @Tags			tasks
// @Produce		json
// @Security		BearerAuth
// @Success		200	{array}		db.Task
// @Failure		401	{object}	response.ErrorResponse	"Unauthorized"
// @Failure		503	{object}	response.ErrorResponse	"Store unavailable"
// @Router			/tasks [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, store, err := caller(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	tasks, err := NewTaskService(store).ListTasks(r.Context(), userID)
	if err != nil {
		response.WriteError(w, r, response.Internal("Error listing tasks", err))
		return
	}
	response.JSON(w, http.StatusOK, tasks)
}

// Update godoc
// @Summary		Update task
// @Description	Changes title and/or status of one of the caller's tasks
// @Tags			tasks
// @Accept			json
// @Produce		json
// @Security		BearerAuth
// @Param			id		path		string				true	"Task ID"
// @Param			task	body		UpdateTaskRequest	true	"Fields to update"
// @Success		200		{object}	db.Task
// @Failure		400		{object}	response.ErrorResponse	"Empty title or invalid status"
// @Failure		401		{object}	response.ErrorResponse	"Unauthorized"
// @Failure		404		{object}	response.ErrorResponse	"Task not found"
// @Failure		500		{object}	response.ErrorResponse	"Internal server error"
// @Router			/tasks/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, store, err := caller(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	if id == "" {
		response.WriteError(w, r, response.Validation("Task ID is required"))
		return
	}

	var req UpdateTaskRequest
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if req.Status != nil {
		if err := checkStatus(*req.Status, db.TaskStatuses); err != nil {
			response.WriteError(w, r, err)
			return
		}
	}
	var title string
	if req.Title != nil {
		var ok bool
		if title, ok = request.Trimmed(*req.Title); !ok {
			response.WriteError(w, r, response.Validation("Title cannot be empty"))
			return
		}
		req.Title = &title
	}
	if err := request.Validate(req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	svc := NewTaskService(store)
	t, err := svc.GetTask(r.Context(), userID, id)
	if err != nil {
		response.WriteError(w, r, notFoundOr(err, "Error retrieving task"))
		return
	}

	if req.Title != nil {
		t.Title = title
	}
	if req.Status != nil {
		t.Status = *req.Status
	}
	if err := svc.UpdateTask(r.Context(), t); err != nil {
		response.WriteError(w, r, notFoundOr(err, "Error updating task"))
		return
	}
	response.JSON(w, http.StatusOK, t)
}

// Delete godoc
// @Summary		Delete task
// @Tags			tasks
// @Produce		json
// @Security		BearerAuth
// @Param			id	path		string	true	"Task ID"
// @Success		200	{object}	MessageResponse
// @Failure		400	{object}	response.ErrorResponse	"Missing task id"
// @Failure		401	{object}	response.ErrorResponse	"Unauthorized"
// @Failure		404	{object}	response.ErrorResponse	"Task not found"
// @Router			/tasks/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, store, err := caller(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	if id == "" {
		response.WriteError(w, r, response.Validation("Task ID is required"))
		return
	}

	if err := NewTaskService(store).DeleteTask(r.Context(), userID, id); err != nil {
		response.WriteError(w, r, notFoundOr(err, "Error deleting task"))
		return
	}
	response.JSON(w, http.StatusOK, MessageResponse{Message: "deleted"})
}

// caller returns the authenticated subject and the store placed on the
// context by the pipeline.
func caller(r *http.Request) (string, *db.Store, error) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil || claims.Subject == "" {
		return "", nil, response.Unauthenticated()
	}
	store := middleware.StoreFromContext(r.Context())
	if store == nil {
		return "", nil, response.Unavailable(db.ErrUnavailable)
	}
	return claims.Subject, store, nil
}

func checkStatus(status db.TaskStatus, allowed []db.TaskStatus) error {
	if slices.Contains(allowed, status) {
		return nil
	}
	names := make([]string, len(allowed))
	for i, s := range allowed {
		names[i] = string(s)
	}
	err := response.Validation("Invalid status")
	err.Allowed = names
	return err
}

func notFoundOr(err error, message string) error {
	if errors.Is(err, db.ErrNotFound) {
		return response.NotFound("Task not found")
	}
	return response.Internal(message, err)
}
