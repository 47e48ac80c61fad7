package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finsight/reportd/internal/domain"
	"github.com/finsight/reportd/internal/domain/task"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// --- Tasks ---

func (s *Store) CreateTask(ctx context.Context, t *task.Task) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tasks (id, company_id, user_id, status, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.CompanyID, t.UserID, t.Status, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (s *Store) GetTask(ctx context.Context, id, userID string) (*task.Task, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, company_id, user_id, status, created_at, completed_at, report_path, error_message
		 FROM tasks WHERE id = $1 AND user_id = $2`, id, userID)

	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Ownership mismatch is indistinguishable from absence.
			return nil, fmt.Errorf("get task %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return &t, nil
}

func (s *Store) ListTasks(ctx context.Context, userID string) ([]task.Task, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, company_id, user_id, status, created_at, completed_at, report_path, error_message
		 FROM tasks WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// CompleteTask performs the single terminal write of the task state machine.
// The status = 'pending' guard makes re-completion of a terminal task a
// rejected transition rather than an overwrite.
func (s *Store) CompleteTask(ctx context.Context, id string, status task.Status, reportPath, errorMessage string) error {
	if !status.Terminal() {
		return fmt.Errorf("complete task %s with status %q: %w", id, status, domain.ErrInvalidTransition)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE tasks
		 SET status = $2, completed_at = $3, report_path = NULLIF($4, ''), error_message = NULLIF($5, '')
		 WHERE id = $1 AND status = 'pending'`,
		id, status, time.Now().UTC(), reportPath, errorMessage)
	if err != nil {
		return fmt.Errorf("complete task %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("complete task %s: %w", id, err)
		}
		if !exists {
			return fmt.Errorf("complete task %s: %w", id, domain.ErrNotFound)
		}
		return fmt.Errorf("complete task %s: %w", id, domain.ErrInvalidTransition)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (task.Task, error) {
	var (
		t            task.Task
		reportPath   *string
		errorMessage *string
	)
	err := row.Scan(&t.ID, &t.CompanyID, &t.UserID, &t.Status, &t.CreatedAt, &t.CompletedAt, &reportPath, &errorMessage)
	if err != nil {
		return task.Task{}, err
	}
	if reportPath != nil {
		t.ReportPath = *reportPath
	}
	if errorMessage != nil {
		t.ErrorMessage = *errorMessage
	}
	return t, nil
}
