// Package database defines the persistent store port (interface).
package database

import (
	"context"

	"github.com/finsight/reportd/internal/domain/task"
	"github.com/finsight/reportd/internal/domain/user"
)

// Store is the port interface over the relational store. Every mutation is a
// single atomic statement keyed by primary key; no multi-row locking is needed.
type Store interface {
	// --- Tasks ---

	// CreateTask inserts a new pending task record.
	CreateTask(ctx context.Context, t *task.Task) error

	// GetTask returns the task only when it belongs to userID.
	// Ownership mismatches return domain.ErrNotFound.
	GetTask(ctx context.Context, id, userID string) (*task.Task, error)

	// ListTasks returns the caller's tasks, newest first.
	ListTasks(ctx context.Context, userID string) ([]task.Task, error)

	// CompleteTask moves a pending task to a terminal status, stamping
	// completed_at. Exactly one of reportPath/errorMessage must be set,
	// matching the target status. Returns domain.ErrInvalidTransition when
	// the task is already terminal, domain.ErrNotFound when it does not exist.
	CompleteTask(ctx context.Context, id string, status task.Status, reportPath, errorMessage string) error

	// --- Users ---

	CreateUser(ctx context.Context, u *user.User) error
	GetUser(ctx context.Context, id string) (*user.User, error)
	GetUserByUsername(ctx context.Context, username string) (*user.User, error)
	GetUserByAPIKeyHash(ctx context.Context, keyHash string) (*user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)
	UpdateUser(ctx context.Context, u *user.User) error
}
