package service

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/finsight/reportd/internal/config"
	"github.com/finsight/reportd/internal/domain"
	"github.com/finsight/reportd/internal/domain/user"
	"github.com/finsight/reportd/internal/port/database"
)

const (
	tokenIssuer   = "reportd"
	tokenAudience = "reportd"

	// serviceUserID identifies callers using the configured static service key.
	serviceUserID   = "00000000-0000-0000-0000-000000000000"
	serviceUsername = "service"
)

// AuthService resolves caller identity from credentials and issues tokens.
// Two credential forms are accepted and never combined: a signed short-lived
// bearer token, or a static API key (configured service key or a per-user
// stored key).
type AuthService struct {
	store  database.Store
	cfg    *config.Auth
	secret []byte
}

// NewAuthService creates a new authentication service.
func NewAuthService(store database.Store, cfg *config.Auth) *AuthService {
	return &AuthService{
		store:  store,
		cfg:    cfg,
		secret: []byte(cfg.JWTSecret),
	}
}

// Resolve returns the caller identity for the supplied credentials.
// Resolution order is fixed: bearer token first; if absent or invalid, the
// API key; if both fail, domain.ErrUnauthenticated. A valid key never
// rescues an expired token's claims, and vice versa.
func (s *AuthService) Resolve(ctx context.Context, bearerToken, apiKey string) (*user.Identity, error) {
	if bearerToken != "" {
		claims, err := s.verifyJWT(bearerToken)
		if err == nil {
			// Claims are re-checked against the stored record so disabling
			// or deleting a user invalidates outstanding tokens.
			u, lookupErr := s.store.GetUser(ctx, claims.UserID)
			if lookupErr == nil && u.Enabled {
				return &user.Identity{UserID: u.ID, Username: u.Username}, nil
			}
		}
	}

	if apiKey != "" {
		ident, err := s.resolveAPIKey(ctx, apiKey)
		if err == nil {
			return ident, nil
		}
	}

	return nil, domain.ErrUnauthenticated
}

// resolveAPIKey checks the static service key, then per-user stored keys.
// Per-user lookup is a read-only query against the SHA-256 key hash.
func (s *AuthService) resolveAPIKey(ctx context.Context, rawKey string) (*user.Identity, error) {
	if s.cfg.ServiceAPIKey != "" && hmac.Equal([]byte(rawKey), []byte(s.cfg.ServiceAPIKey)) {
		return &user.Identity{UserID: serviceUserID, Username: serviceUsername}, nil
	}

	u, err := s.store.GetUserByAPIKeyHash(ctx, hashSHA256(rawKey))
	if err != nil {
		return nil, domain.ErrUnauthenticated
	}
	if !u.Enabled {
		return nil, domain.ErrUnauthenticated
	}
	return &user.Identity{UserID: u.ID, Username: u.Username}, nil
}

// IssueToken verifies a username/password pair and mints a new bearer token
// with the configured short lifetime.
func (s *AuthService) IssueToken(ctx context.Context, req user.LoginRequest) (*user.TokenResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	u, err := s.store.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if !u.Enabled {
		return nil, domain.ErrUnauthenticated
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, domain.ErrUnauthenticated
	}

	token, err := s.signJWT(u)
	if err != nil {
		return nil, fmt.Errorf("sign jwt: %w", err)
	}

	return &user.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(s.cfg.AccessTokenExpiry.Seconds()),
	}, nil
}

// --- Provisioning (admin CLI) ---

// CreateUser provisions a new account with a bcrypt-hashed password.
func (s *AuthService) CreateUser(ctx context.Context, req *user.CreateRequest) (*user.User, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &user.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		PasswordHash: string(hash),
		Enabled:      true,
	}

	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// IssueAPIKey generates a fresh API key for the user and stores its hash.
// The plain key is returned exactly once and never persisted.
func (s *AuthService) IssueAPIKey(ctx context.Context, username string) (string, error) {
	u, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("get user: %w", err)
	}

	rawKey, err := generateRandomToken(32)
	if err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}

	u.APIKeyHash = hashSHA256(rawKey)
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return "", fmt.Errorf("store key hash: %w", err)
	}
	return rawKey, nil
}

// ResetPassword replaces the user's password hash.
func (s *AuthService) ResetPassword(ctx context.Context, username, newPassword string) error {
	if len(newPassword) < 8 {
		return errors.New("password must be at least 8 characters")
	}

	u, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	u.PasswordHash = string(hash)
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// ListUsers returns all provisioned users.
func (s *AuthService) ListUsers(ctx context.Context) ([]user.User, error) {
	return s.store.ListUsers(ctx)
}

// --- JWT implementation (HS256 with stdlib) ---

// jwtHeader is the fixed base64url-encoded header for HS256.
var jwtHeader = base64URLEncode([]byte(`{"alg":"HS256","typ":"JWT"}`))

func (s *AuthService) signJWT(u *user.User) (string, error) {
	now := time.Now()
	claims := user.TokenClaims{
		UserID:   u.ID,
		Username: u.Username,
		IssuedAt: now.Unix(),
		Expiry:   now.Add(s.cfg.AccessTokenExpiry).Unix(),
		Issuer:   tokenIssuer,
		Audience: tokenAudience,
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal claims: %w", err)
	}

	payloadB64 := base64URLEncode(payload)
	signingInput := jwtHeader + "." + payloadB64

	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(signingInput))
	sig := base64URLEncode(mac.Sum(nil))

	return signingInput + "." + sig, nil
}

func (s *AuthService) verifyJWT(tokenStr string) (*user.TokenClaims, error) {
	parts := strings.SplitN(tokenStr, ".", 3)
	if len(parts) != 3 {
		return nil, errors.New("malformed token")
	}

	signingInput := parts[0] + "." + parts[1]
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(signingInput))
	expectedSig := base64URLEncode(mac.Sum(nil))

	if !hmac.Equal([]byte(parts[2]), []byte(expectedSig)) {
		return nil, errors.New("invalid signature")
	}

	payload, err := base64URLDecode(parts[1])
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	var claims user.TokenClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("unmarshal claims: %w", err)
	}

	if time.Now().Unix() > claims.Expiry {
		return nil, errors.New("token expired")
	}
	if claims.Audience != tokenAudience {
		return nil, errors.New("invalid token audience")
	}
	if claims.Issuer != tokenIssuer {
		return nil, errors.New("invalid token issuer")
	}
	if claims.UserID == "" {
		return nil, errors.New("token missing subject")
	}

	return &claims, nil
}

// --- Helpers ---

func base64URLEncode(data []byte) string {
	return strings.TrimRight(base64.URLEncoding.EncodeToString(data), "=")
}

func base64URLDecode(s string) ([]byte, error) {
	switch len(s) % 4 {
	case 2:
		s += "=="
	case 3:
		s += "="
	}
	return base64.URLEncoding.DecodeString(s)
}

func hashSHA256(data string) string {
	h := sha256.Sum256([]byte(data))
	return hex.EncodeToString(h[:])
}

func generateRandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
