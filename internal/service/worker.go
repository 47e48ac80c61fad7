package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cenkalti/backoff/v5"

	"github.com/finsight/reportd/internal/adapter/otel"
	"github.com/finsight/reportd/internal/config"
	"github.com/finsight/reportd/internal/dataset"
	"github.com/finsight/reportd/internal/domain"
	"github.com/finsight/reportd/internal/domain/task"
	"github.com/finsight/reportd/internal/port/database"
	"github.com/finsight/reportd/internal/port/messagequeue"
)

// Worker consumes report-generation jobs from the queue and drives each task
// to a terminal status. Generation is retried on transient failures; the
// final outcome is always recorded, so a processed job is acked even when the
// report could not be produced.
type Worker struct {
	store   database.Store
	queue   messagequeue.Queue
	data    *dataset.Aggregator
	reports *ReportService
	metrics *otel.Metrics
	logger  *slog.Logger
	cfg     config.Worker

	cancel func()
}

// NewWorker creates a new report generation worker.
func NewWorker(store database.Store, queue messagequeue.Queue, data *dataset.Aggregator, reports *ReportService, metrics *otel.Metrics, logger *slog.Logger, cfg config.Worker) *Worker {
	return &Worker{
		store:   store,
		queue:   queue,
		data:    data,
		reports: reports,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
	}
}

// Start subscribes to the generation subject. Jobs are delivered at least
// once; Handle is idempotent against redelivery.
func (w *Worker) Start(ctx context.Context) error {
	cancel, err := w.queue.Subscribe(ctx, messagequeue.SubjectReportGenerate, w.Handle)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", messagequeue.SubjectReportGenerate, err)
	}
	w.cancel = cancel
	w.logger.Info("report worker started", "subject", messagequeue.SubjectReportGenerate)
	return nil
}

// Stop cancels the queue subscription.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
}

// Handle processes one job message. A nil return acks the message; an error
// nacks it for redelivery. Only infrastructure failures (store writes) are
// worth redelivering; generation failures are terminal outcomes recorded on
// the task.
func (w *Worker) Handle(ctx context.Context, subject string, data []byte) error {
	var job messagequeue.ReportJobPayload
	if err := json.Unmarshal(data, &job); err != nil {
		// Malformed payloads can never succeed; drop them.
		w.logger.Error("dropping malformed job payload", "subject", subject, "error", err)
		return nil
	}

	log := w.logger.With("task_id", job.TaskID, "company_id", job.CompanyID)

	status, reportPath, errMsg := w.process(ctx, log, job)

	err := w.store.CompleteTask(ctx, job.TaskID, status, reportPath, errMsg)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidTransition):
		// Redelivery of a job whose task already reached a terminal state.
		log.Warn("task already completed, acking redelivered job")
		return nil
	case errors.Is(err, domain.ErrNotFound):
		log.Error("task record missing, dropping job")
		return nil
	default:
		// Store write failed; nack so the broker redelivers.
		return fmt.Errorf("complete task %s: %w", job.TaskID, err)
	}

	if status == task.StatusSuccess {
		w.metrics.ReportsGenerated.Add(ctx, 1)
		log.Info("report generated", "path", reportPath)
	} else {
		w.metrics.ReportsFailed.Add(ctx, 1)
		log.Warn("report generation failed", "error", errMsg)
	}
	return nil
}

// process produces the terminal outcome for a job: either a persisted report
// path or an error message.
func (w *Worker) process(ctx context.Context, log *slog.Logger, job messagequeue.ReportJobPayload) (task.Status, string, string) {
	rec, err := w.data.Get(job.CompanyID)
	if err != nil {
		// Unknown company cannot become known by waiting; fail immediately.
		return task.StatusFailed, "", err.Error()
	}

	// Persisting the artifact is part of the retried attempt: a failed disk
	// write is as transient as a failed API call. The generated body is kept
	// across attempts so a persist retry does not spend another generation.
	attempt := 0
	var body string
	path, err := backoff.Retry(ctx, func() (string, error) {
		attempt++
		if attempt > 1 {
			w.metrics.GenerationRetries.Add(ctx, 1)
			log.Info("retrying report generation", "attempt", attempt)
		}
		if body == "" {
			out, genErr := w.reports.Generate(ctx, rec)
			if genErr != nil {
				log.Warn("generation attempt failed", "attempt", attempt, "error", genErr)
				return "", genErr
			}
			body = out
		}
		p, persistErr := w.reports.Persist(job.TaskID, body)
		if persistErr != nil {
			log.Warn("persist attempt failed", "attempt", attempt, "error", persistErr)
		}
		return p, persistErr
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(w.cfg.RetryInterval)),
		backoff.WithMaxTries(uint(w.cfg.MaxAttempts)),
	)
	if err != nil {
		return task.StatusFailed, "", fmt.Sprintf("generation failed after %d attempts: %v", attempt, err)
	}

	return task.StatusSuccess, path, ""
}
