package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/finsight/reportd/internal/adapter/otel"
	"github.com/finsight/reportd/internal/dataset"
	"github.com/finsight/reportd/internal/domain"
	"github.com/finsight/reportd/internal/domain/task"
	"github.com/finsight/reportd/internal/port/database"
	"github.com/finsight/reportd/internal/port/messagequeue"
)

// TaskService accepts report requests, records them, and dispatches
// generation jobs to the queue.
type TaskService struct {
	store   database.Store
	queue   messagequeue.Queue
	data    *dataset.Aggregator
	metrics *otel.Metrics
	logger  *slog.Logger
}

// NewTaskService creates a new task service.
func NewTaskService(store database.Store, queue messagequeue.Queue, data *dataset.Aggregator, metrics *otel.Metrics, logger *slog.Logger) *TaskService {
	return &TaskService{
		store:   store,
		queue:   queue,
		data:    data,
		metrics: metrics,
		logger:  logger,
	}
}

// Create validates the company against the loaded dataset, persists a pending
// task owned by the caller, and publishes a generation job. Publish failures
// are logged but do not fail the request: the task exists and can be
// re-dispatched, while a lost record could never be queried.
func (s *TaskService) Create(ctx context.Context, userID string, req *task.CreateRequest) (*task.Task, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	if !s.data.Validate(req.CompanyID) {
		return nil, fmt.Errorf("company %s: %w", req.CompanyID, domain.ErrUnknownCompany)
	}

	t := &task.Task{
		ID:        uuid.NewString(),
		CompanyID: req.CompanyID,
		UserID:    userID,
		Status:    task.StatusPending,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.CreateTask(ctx, t); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	payload, err := json.Marshal(messagequeue.ReportJobPayload{
		TaskID:    t.ID,
		CompanyID: t.CompanyID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal job payload: %w", err)
	}

	if err := s.queue.Publish(ctx, messagequeue.SubjectReportGenerate, payload); err != nil {
		s.logger.Error("failed to publish report job",
			"task_id", t.ID,
			"company_id", t.CompanyID,
			"error", err,
		)
	}

	s.metrics.TasksSubmitted.Add(ctx, 1)
	s.logger.Info("report task created", "task_id", t.ID, "company_id", t.CompanyID)
	return t, nil
}

// Get returns the task only if it belongs to the caller. Tasks owned by other
// users are indistinguishable from missing ones.
func (s *TaskService) Get(ctx context.Context, id, userID string) (*task.Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	return s.store.GetTask(ctx, id, userID)
}

// List returns the caller's tasks, most recent first.
func (s *TaskService) List(ctx context.Context, userID string) ([]task.Task, error) {
	return s.store.ListTasks(ctx, userID)
}
