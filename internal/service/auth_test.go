package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/finsight/reportd/internal/config"
	"github.com/finsight/reportd/internal/domain"
	"github.com/finsight/reportd/internal/domain/user"
)

func newTestAuthService(store *mockStore) *AuthService {
	cfg := config.Auth{
		JWTSecret:         "test-secret-key-must-be-long-enough",
		AccessTokenExpiry: 15 * time.Minute,
		BcryptCost:        4, // low cost for fast tests
		ServiceAPIKey:     "service-key-for-tests",
	}
	return NewAuthService(store, &cfg)
}

func TestAuthService_CreateUserAndIssueToken(t *testing.T) {
	store := &mockStore{}
	svc := newTestAuthService(store)
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, &user.CreateRequest{
		Username: "analyst1",
		Password: "Password123",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.ID == "" {
		t.Error("user id is empty")
	}
	if u.PasswordHash == "Password123" {
		t.Error("password stored in plain text")
	}

	resp, err := svc.IssueToken(ctx, user.LoginRequest{
		Username: "analyst1",
		Password: "Password123",
	})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if resp.AccessToken == "" {
		t.Error("access token is empty")
	}
	if resp.TokenType != "bearer" {
		t.Errorf("token type = %q, want bearer", resp.TokenType)
	}
	if resp.ExpiresIn != int((15 * time.Minute).Seconds()) {
		t.Errorf("expires_in = %d, want %d", resp.ExpiresIn, 900)
	}

	ident, err := svc.Resolve(ctx, resp.AccessToken, "")
	if err != nil {
		t.Fatalf("resolve token: %v", err)
	}
	if ident.UserID != u.ID {
		t.Errorf("resolved user id = %q, want %q", ident.UserID, u.ID)
	}
	if ident.Username != "analyst1" {
		t.Errorf("resolved username = %q, want analyst1", ident.Username)
	}
}

func TestAuthService_WrongPassword(t *testing.T) {
	store := &mockStore{}
	svc := newTestAuthService(store)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, &user.CreateRequest{Username: "analyst1", Password: "Password123"}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	_, err := svc.IssueToken(ctx, user.LoginRequest{Username: "analyst1", Password: "wrong-password"})
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("err = %v, want ErrUnauthenticated", err)
	}

	_, err = svc.IssueToken(ctx, user.LoginRequest{Username: "nobody", Password: "Password123"})
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("unknown user err = %v, want ErrUnauthenticated", err)
	}
}

func TestAuthService_DisabledUserRejected(t *testing.T) {
	store := &mockStore{}
	svc := newTestAuthService(store)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, &user.CreateRequest{Username: "analyst1", Password: "Password123"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	key, err := svc.IssueAPIKey(ctx, "analyst1")
	if err != nil {
		t.Fatalf("issue key: %v", err)
	}
	resp, err := svc.IssueToken(ctx, user.LoginRequest{Username: "analyst1", Password: "Password123"})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	store.users[0].Enabled = false

	_, err = svc.IssueToken(ctx, user.LoginRequest{Username: "analyst1", Password: "Password123"})
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("disabled login err = %v, want ErrUnauthenticated", err)
	}

	if _, err := svc.Resolve(ctx, "", key); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("disabled api key err = %v, want ErrUnauthenticated", err)
	}

	// An outstanding token stops working once the account is disabled.
	if _, err := svc.Resolve(ctx, resp.AccessToken, ""); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("disabled token err = %v, want ErrUnauthenticated", err)
	}
}

func TestAuthService_TokenForDeletedUserRejected(t *testing.T) {
	store := &mockStore{}
	svc := newTestAuthService(store)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, &user.CreateRequest{Username: "analyst1", Password: "Password123"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	resp, err := svc.IssueToken(ctx, user.LoginRequest{Username: "analyst1", Password: "Password123"})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	store.users = nil

	if _, err := svc.Resolve(ctx, resp.AccessToken, ""); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("deleted-user token err = %v, want ErrUnauthenticated", err)
	}
}

func TestAuthService_ResolveAPIKey(t *testing.T) {
	store := &mockStore{}
	svc := newTestAuthService(store)
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, &user.CreateRequest{Username: "analyst1", Password: "Password123"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	key, err := svc.IssueAPIKey(ctx, "analyst1")
	if err != nil {
		t.Fatalf("issue key: %v", err)
	}
	if key == "" {
		t.Fatal("issued key is empty")
	}
	if store.users[0].APIKeyHash == key {
		t.Error("api key stored in plain text")
	}

	ident, err := svc.Resolve(ctx, "", key)
	if err != nil {
		t.Fatalf("resolve key: %v", err)
	}
	if ident.UserID != u.ID {
		t.Errorf("resolved user id = %q, want %q", ident.UserID, u.ID)
	}

	// Static service key maps to the synthetic service identity.
	ident, err = svc.Resolve(ctx, "", "service-key-for-tests")
	if err != nil {
		t.Fatalf("resolve service key: %v", err)
	}
	if ident.Username != serviceUsername {
		t.Errorf("service identity username = %q, want %q", ident.Username, serviceUsername)
	}

	if _, err := svc.Resolve(ctx, "", "bogus-key"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("bogus key err = %v, want ErrUnauthenticated", err)
	}
}

func TestAuthService_TokenTakesPrecedenceOverKey(t *testing.T) {
	store := &mockStore{}
	svc := newTestAuthService(store)
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, &user.CreateRequest{Username: "analyst1", Password: "Password123"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	resp, err := svc.IssueToken(ctx, user.LoginRequest{Username: "analyst1", Password: "Password123"})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	// Valid token plus the service key: the token identity wins.
	ident, err := svc.Resolve(ctx, resp.AccessToken, "service-key-for-tests")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if ident.UserID != u.ID {
		t.Errorf("resolved user id = %q, want token identity %q", ident.UserID, u.ID)
	}

	// Invalid token falls through to the key.
	ident, err = svc.Resolve(ctx, "garbage.token.here", "service-key-for-tests")
	if err != nil {
		t.Fatalf("resolve with fallback key: %v", err)
	}
	if ident.Username != serviceUsername {
		t.Errorf("fallback identity = %q, want service", ident.Username)
	}
}

func TestAuthService_ExpiredToken(t *testing.T) {
	store := &mockStore{}
	cfg := config.Auth{
		JWTSecret:         "test-secret-key-must-be-long-enough",
		AccessTokenExpiry: -time.Minute, // already expired at issuance
		BcryptCost:        4,
	}
	svc := NewAuthService(store, &cfg)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, &user.CreateRequest{Username: "analyst1", Password: "Password123"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	resp, err := svc.IssueToken(ctx, user.LoginRequest{Username: "analyst1", Password: "Password123"})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	if _, err := svc.Resolve(ctx, resp.AccessToken, ""); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("expired token err = %v, want ErrUnauthenticated", err)
	}
}

func TestAuthService_TamperedTokenRejected(t *testing.T) {
	store := &mockStore{}
	svc := newTestAuthService(store)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, &user.CreateRequest{Username: "analyst1", Password: "Password123"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	resp, err := svc.IssueToken(ctx, user.LoginRequest{Username: "analyst1", Password: "Password123"})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	tampered := resp.AccessToken[:len(resp.AccessToken)-2] + "xx"
	if _, err := svc.Resolve(ctx, tampered, ""); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("tampered token err = %v, want ErrUnauthenticated", err)
	}
}

func TestAuthService_ResetPassword(t *testing.T) {
	store := &mockStore{}
	svc := newTestAuthService(store)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, &user.CreateRequest{Username: "analyst1", Password: "Password123"}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	if err := svc.ResetPassword(ctx, "analyst1", "NewPassword456"); err != nil {
		t.Fatalf("reset password: %v", err)
	}

	if _, err := svc.IssueToken(ctx, user.LoginRequest{Username: "analyst1", Password: "Password123"}); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("old password err = %v, want ErrUnauthenticated", err)
	}
	if _, err := svc.IssueToken(ctx, user.LoginRequest{Username: "analyst1", Password: "NewPassword456"}); err != nil {
		t.Errorf("new password: %v", err)
	}

	if err := svc.ResetPassword(ctx, "analyst1", "short"); err == nil {
		t.Error("expected error for short password")
	}
}
