package service

import (
	"context"
	"time"

	"github.com/finsight/reportd/internal/domain"
	"github.com/finsight/reportd/internal/domain/task"
	"github.com/finsight/reportd/internal/domain/user"
	"github.com/finsight/reportd/internal/port/database"
	"github.com/finsight/reportd/internal/port/messagequeue"
	"github.com/finsight/reportd/internal/port/textgen"
)

// Ensure mocks implement their ports at compile time.
var (
	_ database.Store     = (*mockStore)(nil)
	_ messagequeue.Queue = (*mockQueue)(nil)
	_ textgen.Generator  = (*mockGenerator)(nil)
)

// mockStore is a minimal in-memory implementation of database.Store for testing.
type mockStore struct {
	tasks []task.Task
	users []user.User

	// Error hooks. Set these to inject failures.
	createTaskErr   error
	completeTaskErr error
	createUserErr   error
	updateUserErr   error

	completeCalls int
}

func (m *mockStore) CreateTask(_ context.Context, t *task.Task) error {
	if m.createTaskErr != nil {
		return m.createTaskErr
	}
	m.tasks = append(m.tasks, *t)
	return nil
}

func (m *mockStore) GetTask(_ context.Context, id, userID string) (*task.Task, error) {
	for i := range m.tasks {
		if m.tasks[i].ID == id && m.tasks[i].UserID == userID {
			t := m.tasks[i]
			return &t, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) ListTasks(_ context.Context, userID string) ([]task.Task, error) {
	var out []task.Task
	for i := range m.tasks {
		if m.tasks[i].UserID == userID {
			out = append(out, m.tasks[i])
		}
	}
	return out, nil
}

func (m *mockStore) CompleteTask(_ context.Context, id string, status task.Status, reportPath, errorMessage string) error {
	m.completeCalls++
	if m.completeTaskErr != nil {
		return m.completeTaskErr
	}
	for i := range m.tasks {
		if m.tasks[i].ID != id {
			continue
		}
		if m.tasks[i].Status.Terminal() {
			return domain.ErrInvalidTransition
		}
		now := time.Now().UTC()
		m.tasks[i].Status = status
		m.tasks[i].CompletedAt = &now
		m.tasks[i].ReportPath = reportPath
		m.tasks[i].ErrorMessage = errorMessage
		return nil
	}
	return domain.ErrNotFound
}

func (m *mockStore) CreateUser(_ context.Context, u *user.User) error {
	if m.createUserErr != nil {
		return m.createUserErr
	}
	m.users = append(m.users, *u)
	return nil
}

func (m *mockStore) GetUser(_ context.Context, id string) (*user.User, error) {
	for i := range m.users {
		if m.users[i].ID == id {
			u := m.users[i]
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) GetUserByUsername(_ context.Context, username string) (*user.User, error) {
	for i := range m.users {
		if m.users[i].Username == username {
			u := m.users[i]
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) GetUserByAPIKeyHash(_ context.Context, keyHash string) (*user.User, error) {
	for i := range m.users {
		if m.users[i].APIKeyHash != "" && m.users[i].APIKeyHash == keyHash {
			u := m.users[i]
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) ListUsers(_ context.Context) ([]user.User, error) {
	return m.users, nil
}

func (m *mockStore) UpdateUser(_ context.Context, u *user.User) error {
	if m.updateUserErr != nil {
		return m.updateUserErr
	}
	for i := range m.users {
		if m.users[i].ID == u.ID {
			m.users[i] = *u
			return nil
		}
	}
	return domain.ErrNotFound
}

// mockQueue records published messages.
type mockQueue struct {
	published  []publishedMsg
	publishErr error
}

type publishedMsg struct {
	subject string
	data    []byte
}

func (m *mockQueue) Publish(_ context.Context, subject string, data []byte) error {
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, publishedMsg{subject: subject, data: data})
	return nil
}

func (m *mockQueue) Subscribe(_ context.Context, _ string, _ messagequeue.Handler) (func(), error) {
	return func() {}, nil
}

func (m *mockQueue) Drain() error      { return nil }
func (m *mockQueue) Close() error      { return nil }
func (m *mockQueue) IsConnected() bool { return true }

// mockGenerator returns canned responses, optionally failing the first N calls.
type mockGenerator struct {
	response  string
	err       error
	failFirst int
	calls     int
}

func (m *mockGenerator) Generate(_ context.Context, _ string) (string, error) {
	m.calls++
	if m.failFirst > 0 && m.calls <= m.failFirst {
		return "", m.err
	}
	if m.failFirst == 0 && m.err != nil {
		return "", m.err
	}
	return m.response, nil
}
