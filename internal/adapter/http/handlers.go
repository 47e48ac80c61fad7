// Package http implements the REST API surface of reportd.
package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/finsight/reportd/internal/dataset"
	"github.com/finsight/reportd/internal/domain/task"
	"github.com/finsight/reportd/internal/domain/user"
	"github.com/finsight/reportd/internal/middleware"
	"github.com/finsight/reportd/internal/port/messagequeue"
	"github.com/finsight/reportd/internal/service"
)

// Handlers bundles the services the HTTP layer dispatches to.
type Handlers struct {
	auth   *service.AuthService
	tasks  *service.TaskService
	render *service.RenderService
	data   *dataset.Aggregator
	queue  messagequeue.Queue
}

// NewHandlers creates the HTTP handler set.
func NewHandlers(auth *service.AuthService, tasks *service.TaskService, render *service.RenderService, data *dataset.Aggregator, queue messagequeue.Queue) *Handlers {
	return &Handlers{
		auth:   auth,
		tasks:  tasks,
		render: render,
		data:   data,
		queue:  queue,
	}
}

// Health reports liveness plus coarse dependency state.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"queue":     h.queue.IsConnected(),
		"companies": h.data.Len(),
	})
}

// IssueToken exchanges username/password credentials for a bearer token.
func (h *Handlers) IssueToken(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[user.LoginRequest](w, r)
	if !ok {
		return
	}

	resp, err := h.auth.IssueToken(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateTask submits a new report-generation task for the caller.
func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	req, ok := readJSON[task.CreateRequest](w, r)
	if !ok {
		return
	}

	t, err := h.tasks.Create(r.Context(), ident.UserID, &req)
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	// 202: the task is accepted; generation happens asynchronously.
	writeJSON(w, http.StatusAccepted, t)
}

// ListTasks returns the caller's tasks, newest first.
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	tasks, err := h.tasks.List(r.Context(), ident.UserID)
	if err != nil {
		writeDomainError(w, err, "tasks not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

// GetTask returns one of the caller's tasks by id.
func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	t, err := h.tasks.Get(r.Context(), chi.URLParam(r, "id"), ident.UserID)
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// GetReport serves the finished report artifact. The default representation
// is the raw markdown; ?format=pdf returns a PDF rendering instead.
func (h *Handlers) GetReport(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	id := chi.URLParam(r, "id")

	switch format := r.URL.Query().Get("format"); format {
	case "", "markdown", "md":
		_, body, err := h.render.ReadArtifact(r.Context(), id, ident.UserID)
		if err != nil {
			writeDomainError(w, err, "report not found")
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".md"))
		_, _ = w.Write(body)

	case "pdf":
		out, err := h.render.RenderPDF(r.Context(), id, ident.UserID)
		if err != nil {
			writeDomainError(w, err, "report not found")
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".pdf"))
		_, _ = w.Write(out)

	default:
		writeError(w, http.StatusBadRequest, "unsupported format: "+format)
	}
}

// ViewReport serves the report as a standalone HTML page for browsers.
func (h *Handlers) ViewReport(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	out, err := h.render.RenderHTML(r.Context(), chi.URLParam(r, "id"), ident.UserID)
	if err != nil {
		writeDomainError(w, err, "report not found")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(out)
}
