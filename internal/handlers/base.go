package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"timebudget/internal/models"
	"timebudget/internal/repository"
	"timebudget/internal/service/sessions"
	"timebudget/internal/service/tasks"
	"timebudget/internal/service/users"
	"timebudget/internal/utils"
)

const dateLayout = "2006-01-02"

type userService interface {
	Register(ctx context.Context, input models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, input models.LoginRequest) (string, error)
}

type taskService interface {
	Create(ctx context.Context, ownerID int64, input models.CreateTaskRequest) (*models.Task, error)
	Update(ctx context.Context, id string, ownerID int64, input models.UpdateTaskRequest) (*models.Task, error)
	Delete(ctx context.Context, id string, ownerID int64) error
	ListForDay(ctx context.Context, ownerID int64, date time.Time) ([]models.Task, error)
	ListForRange(ctx context.Context, ownerID int64, start, end time.Time) ([]models.Task, error)
}

type sessionService interface {
	Record(ctx context.Context, ownerID int64, input models.RecordSessionRequest) (*models.WorkSession, *models.Task, error)
	List(ctx context.Context, ownerID int64, taskID string) ([]models.WorkSession, error)
}

type rolloverService interface {
	Run(ctx context.Context, ownerID int64, asOf time.Time) (*models.RolloverResult, error)
}

type statsService interface {
	Compute(ctx context.Context, ownerID int64) (*models.Stats, error)
}

type Handler struct {
	UserService     userService
	TaskService     taskService
	SessionService  sessionService
	RolloverService rolloverService
	StatsService    statsService
	Auth            *utils.AuthManager
}

func NewHandler(us userService, ts taskService, ss sessionService, rs rolloverService, st statsService, auth *utils.AuthManager) *Handler {
	return &Handler{
		UserService:     us,
		TaskService:     ts,
		SessionService:  ss,
		RolloverService: rs,
		StatsService:    st,
		Auth:            auth,
	}
}

func ownerID(r *http.Request) int64 {
	return r.Context().Value(utils.ContextUserID).(int64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, repository.ErrTaskCompleted):
		http.Error(w, "Task already completed", http.StatusConflict)
	case errors.Is(err, tasks.ErrValidation),
		errors.Is(err, sessions.ErrValidation),
		errors.Is(err, users.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, users.ErrUnauthorized):
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	default:
		log.Printf("internal error: %v", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var input models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	user, err := h.UserService.Register(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var input models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	token, err := h.UserService.Login(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.LoginResponse{Token: token})
}

func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var input models.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	task, err := h.TaskService.Create(r.Context(), ownerID(r), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// ListTasks serves the daily view when ?date= is given, an arbitrary window
// when ?start=&end= are given, and otherwise the week ahead.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	q := r.URL.Query()

	var list []models.Task
	var err error
	switch {
	case q.Get("date") != "":
		date, perr := time.Parse(dateLayout, q.Get("date"))
		if perr != nil {
			http.Error(w, "Invalid date", http.StatusBadRequest)
			return
		}
		list, err = h.TaskService.ListForDay(r.Context(), owner, date)

	case q.Get("start") != "" && q.Get("end") != "":
		start, perr := time.Parse(dateLayout, q.Get("start"))
		if perr != nil {
			http.Error(w, "Invalid start date", http.StatusBadRequest)
			return
		}
		end, perr := time.Parse(dateLayout, q.Get("end"))
		if perr != nil {
			http.Error(w, "Invalid end date", http.StatusBadRequest)
			return
		}
		list, err = h.TaskService.ListForRange(r.Context(), owner, start, end)

	default:
		now := time.Now()
		list, err = h.TaskService.ListForRange(r.Context(), owner, now, now.AddDate(0, 0, 7))
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []models.Task{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var input models.UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	task, err := h.TaskService.Update(r.Context(), chi.URLParam(r, "id"), ownerID(r), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.TaskService.Delete(r.Context(), chi.URLParam(r, "id"), ownerID(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Task deleted"})
}

func (h *Handler) Rollover(w http.ResponseWriter, r *http.Request) {
	result, err := h.RolloverService.Run(r.Context(), ownerID(r), time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) RecordSession(w http.ResponseWriter, r *http.Request) {
	var input models.RecordSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	session, task, err := h.SessionService.Record(r.Context(), ownerID(r), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"session": session,
		"task":    task,
	})
}

func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	list, err := h.SessionService.List(r.Context(), ownerID(r), r.URL.Query().Get("task_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []models.WorkSession{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.StatsService.Compute(r.Context(), ownerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
