package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stackfinderz-backend/internal/bookmarks"
	"github.com/angelmondragon/stackfinderz-backend/internal/stacks"
	"github.com/angelmondragon/stackfinderz-backend/internal/users"
	pkgAuth "github.com/angelmondragon/stackfinderz-backend/pkg/auth"
	"github.com/angelmondragon/stackfinderz-backend/pkg/auth/session"
	"github.com/angelmondragon/stackfinderz-backend/pkg/config"
	"github.com/angelmondragon/stackfinderz-backend/pkg/db"
	"github.com/angelmondragon/stackfinderz-backend/pkg/db/dbtest"
	"github.com/angelmondragon/stackfinderz-backend/pkg/db/models"
	"github.com/angelmondragon/stackfinderz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stackfinderz-backend/pkg/errors"
)

var testJWT = config.JWTConfig{
	Secret:                 "secret",
	Issuer:                 "stackfinderz",
	ExpirationMinutes:      30,
	RefreshTokenTTLMinutes: 60,
}

type testEnv struct {
	conn     *gorm.DB
	svc      Service
	sessions *stubSessionManager
	users    *users.Repository
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	conn := dbtest.Open(t)
	userRepo := users.NewRepository(conn)
	marks, err := bookmarks.NewService(bookmarks.NewRepository(conn), stacks.NewRepository(conn))
	if err != nil {
		t.Fatalf("bookmarks service: %v", err)
	}
	sessions := newStubSessionManager()
	svc, err := NewService(ServiceParams{
		UserRepo:       userRepo,
		Bookmarks:      marks,
		SessionManager: sessions,
		JWTConfig:      testJWT,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return testEnv{conn: conn, svc: svc, sessions: sessions, users: userRepo}
}

func TestRegisterCreatesUserAndSignsIn(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.svc.Register(context.Background(), RegisterRequest{
		Username: " maria ",
		Email:    "Maria@Example.com",
		Password: "secret1",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if resp.User.Role != enums.UserRoleUser {
		t.Fatalf("expected user role, got %s", resp.User.Role)
	}
	if resp.User.Email != "maria@example.com" || resp.User.Username != "maria" {
		t.Fatalf("expected normalized identifiers, got %+v", resp.User)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != resp.User.ID || claims.Role != enums.UserRoleUser {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if env.sessions.tokens[claims.ID].token != resp.RefreshToken {
		t.Fatalf("expected refresh session stored under the jti")
	}

	stored, err := env.users.FindByID(context.Background(), resp.User.ID)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if stored.PasswordHash == "secret1" || stored.PasswordHash == "" {
		t.Fatalf("expected hashed password")
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if _, err := env.svc.Register(ctx, RegisterRequest{Username: "maria", Email: "maria@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	for _, req := range []RegisterRequest{
		{Username: "other", Email: "MARIA@example.com", Password: "secret1"},
		{Username: "Maria", Email: "other@example.com", Password: "secret1"},
	} {
		_, err := env.svc.Register(ctx, req)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeConflict {
			t.Fatalf("expected conflict for %+v, got %v", req, err)
		}
		if typed.Message() != userExistsMessage {
			t.Fatalf("unexpected message %q", typed.Message())
		}
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Register(context.Background(), RegisterRequest{Username: "ab", Email: "not-an-email", Password: "12345"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", typed.Details())
	}
	for _, field := range []string{"username", "email", "password"} {
		if _, ok := details[field]; !ok {
			t.Fatalf("expected violation for %s in %v", field, details)
		}
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if _, err := env.svc.Register(ctx, RegisterRequest{Username: "maria", Email: "maria@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	for _, req := range []LoginRequest{
		{Email: "maria@example.com", Password: "wrong-password"},
		{Email: "nobody@example.com", Password: "secret1"},
		{Email: " ", Password: "secret1"},
	} {
		_, err := env.svc.Login(ctx, req)
		if !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
			t.Fatalf("expected unauthorized for %+v, got %v", req, err)
		}
	}

	resp, err := env.svc.Login(ctx, LoginRequest{Email: "MARIA@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.User.LastLoginAt == nil {
		t.Fatalf("expected last login to be recorded")
	}
}

func TestRefreshUsesCurrentRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	resp, err := env.svc.Register(ctx, RegisterRequest{Username: "maria", Email: "maria@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := env.users.UpdateRole(ctx, resp.User.ID, enums.UserRoleAdmin); err != nil {
		t.Fatalf("promote: %v", err)
	}

	refreshed, err := env.svc.Refresh(ctx, resp.AccessToken, resp.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	claims, err := pkgAuth.ParseAccessToken(testJWT, refreshed.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Role != enums.UserRoleAdmin {
		t.Fatalf("expected admin role after refresh, got %s", claims.Role)
	}

	// the old refresh token is single use
	if _, err := env.svc.Refresh(ctx, resp.AccessToken, resp.RefreshToken); !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized on reuse, got %v", err)
	}
}

func TestRefreshAcceptsExpiredAccessToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	resp, err := env.svc.Register(ctx, RegisterRequest{Username: "maria", Email: "maria@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	expired, err := pkgAuth.MintAccessToken(testJWT, time.Now().Add(-2*time.Hour), pkgAuth.AccessTokenPayload{
		UserID: resp.User.ID,
		Role:   enums.UserRoleUser,
		JTI:    claims.ID,
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := env.svc.Refresh(ctx, expired, resp.RefreshToken); err != nil {
		t.Fatalf("refresh with expired token: %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	resp, err := env.svc.Register(ctx, RegisterRequest{Username: "maria", Email: "maria@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := env.svc.Logout(ctx, resp.AccessToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(env.sessions.tokens) != 0 {
		t.Fatalf("expected no sessions after logout")
	}
	if err := env.svc.Logout(ctx, "garbage"); !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for malformed token, got %v", err)
	}
}

func TestProfileIncludesBookmarks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	resp, err := env.svc.Register(ctx, RegisterRequest{Username: "maria", Email: "maria@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	stack := &models.Stack{
		Name:        "Figma",
		Industry:    enums.IndustrySaaS,
		Scale:       enums.ScalePublic,
		Location:    "San Francisco",
		Description: "Collaborative design tool",
	}
	if err := env.conn.Create(stack).Error; err != nil {
		t.Fatalf("seed stack: %v", err)
	}
	if err := env.conn.Create(&models.Bookmark{UserID: resp.User.ID, StackID: stack.ID}).Error; err != nil {
		t.Fatalf("seed bookmark: %v", err)
	}

	profile, err := env.svc.Profile(ctx, resp.User.ID)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if len(profile.Bookmarks) != 1 || profile.Bookmarks[0] != stack.ID {
		t.Fatalf("unexpected bookmarks %v", profile.Bookmarks)
	}

	if _, err := env.svc.Profile(ctx, uuid.New()); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	conn := dbtest.Open(t)
	boot, err := NewAdminBootstrapper(AdminBootstrapParams{DB: db.NewWithConn(conn)})
	if err != nil {
		t.Fatalf("bootstrapper: %v", err)
	}
	ctx := context.Background()
	account := AdminAccount{Username: "admin", Email: "admin@stackfinderz.dev", Password: "change-me"}

	first, created, err := boot.EnsureAdmin(ctx, account)
	if err != nil || !created {
		t.Fatalf("first ensure: created=%v err=%v", created, err)
	}
	second, created, err := boot.EnsureAdmin(ctx, account)
	if err != nil || created {
		t.Fatalf("second ensure: created=%v err=%v", created, err)
	}
	if first.ID != second.ID || second.Role != enums.UserRoleAdmin {
		t.Fatalf("expected the same admin account, got %+v and %+v", first, second)
	}
}

type sessionEntry struct {
	token  string
	userID uuid.UUID
}

type stubSessionManager struct {
	mu     sync.Mutex
	tokens map[string]sessionEntry
}

func newStubSessionManager() *stubSessionManager {
	return &stubSessionManager{tokens: map[string]sessionEntry{}}
}

func (s *stubSessionManager) Generate(_ context.Context, accessID string, userID uuid.UUID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := "refresh-" + uuid.NewString()
	s.tokens[accessID] = sessionEntry{token: token, userID: userID}
	return token, nil
}

func (s *stubSessionManager) Rotate(_ context.Context, oldAccessID, provided string) (string, string, uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.tokens[oldAccessID]
	if !ok || entry.token != provided {
		return "", "", uuid.Nil, session.ErrInvalidRefreshToken
	}
	delete(s.tokens, oldAccessID)
	newID := session.NewAccessID()
	token := "refresh-" + uuid.NewString()
	s.tokens[newID] = sessionEntry{token: token, userID: entry.userID}
	return newID, token, entry.userID, nil
}

func (s *stubSessionManager) Revoke(_ context.Context, accessID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if accessID == "" {
		return errors.New("access id is required")
	}
	delete(s.tokens, accessID)
	return nil
}
