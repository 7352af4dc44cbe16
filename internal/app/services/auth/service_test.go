package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/readlingo/bookreader/internal/app/storage/memory"
	"github.com/readlingo/bookreader/internal/httputil"
)

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	svc := New(store, NewTokens("test-secret"), nil, "", nil)
	return svc, store
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, "anna", "anna@example.com", "password123", "Anna", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.User.ID == "" || res.Tokens.Access == "" || res.Tokens.Refresh == "" {
		t.Fatalf("incomplete result %+v", res)
	}
	if res.User.PasswordHash == "password123" {
		t.Fatal("password stored in plain text")
	}

	login, err := svc.Login(ctx, "anna", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.User.ID != res.User.ID {
		t.Fatalf("login returned wrong user")
	}

	if _, err := svc.Login(ctx, "anna", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "", "a@b.c", "password123", "", ""); err == nil {
		t.Fatal("empty username should fail")
	}
	if _, err := svc.Register(ctx, "bob", "b@b.c", "short", "", ""); err == nil {
		t.Fatal("short password should fail")
	}

	if _, err := svc.Register(ctx, "bob", "b@b.c", "password123", "", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, "bob", "b2@b.c", "password123", "", ""); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestRefresh(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, "anna", "anna@example.com", "password123", "", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	access, err := svc.Refresh(ctx, res.Tokens.Refresh)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	userID, err := svc.tokens.VerifyAccess(access)
	if err != nil || userID != res.User.ID {
		t.Fatalf("refreshed access token invalid: %v (user %q)", err, userID)
	}

	// An access token must not be accepted as a refresh token.
	if _, err := svc.Refresh(ctx, res.Tokens.Access); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestTokenTypes(t *testing.T) {
	tokens := NewTokens("secret")
	pair, err := tokens.IssuePair("u1", time.Now().UTC())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := tokens.VerifyAccess(pair.Refresh); err == nil {
		t.Fatal("refresh token verified as access")
	}
	if _, err := tokens.VerifyRefresh(pair.Access); err == nil {
		t.Fatal("access token verified as refresh")
	}
	if _, err := NewTokens("other").VerifyAccess(pair.Access); err == nil {
		t.Fatal("token verified with wrong secret")
	}
}

func googleService(t *testing.T, store *memory.Store, info map[string]string) *Service {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(info)
	}))
	t.Cleanup(server.Close)

	svc := New(store, NewTokens("test-secret"),
		httputil.NewClient(httputil.Config{Timeout: time.Second}), "client-123", nil)
	svc.infoURL = server.URL
	return svc
}

func TestGoogleLoginCreatesUser(t *testing.T) {
	store := memory.New()
	svc := googleService(t, store, map[string]string{
		"aud": "client-123", "sub": "g-42", "email": "ivan.petrov@example.com",
		"given_name": "Ivan", "family_name": "Petrov", "picture": "http://pic",
	})

	res, err := svc.GoogleLogin(context.Background(), "token")
	if err != nil {
		t.Fatalf("google login: %v", err)
	}
	if res.User.Username != "ivan.petrov" {
		t.Fatalf("username from email local part, got %q", res.User.Username)
	}
	if !res.Profile.IsGoogleUser || res.Profile.GoogleID != "g-42" {
		t.Fatalf("profile not linked: %+v", res.Profile)
	}

	// Second login resolves the same account by google_id.
	again, err := svc.GoogleLogin(context.Background(), "token")
	if err != nil {
		t.Fatalf("second login: %v", err)
	}
	if again.User.ID != res.User.ID {
		t.Fatal("second login created a new user")
	}
}

func TestGoogleLoginLinksByEmail(t *testing.T) {
	store := memory.New()
	plain := New(store, NewTokens("test-secret"), nil, "", nil)
	existing, err := plain.Register(context.Background(), "ivan", "ivan@example.com", "password123", "", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	svc := googleService(t, store, map[string]string{
		"aud": "client-123", "sub": "g-7", "email": "ivan@example.com",
	})
	res, err := svc.GoogleLogin(context.Background(), "token")
	if err != nil {
		t.Fatalf("google login: %v", err)
	}
	if res.User.ID != existing.User.ID {
		t.Fatal("should link the existing account by email")
	}
	if res.Profile.GoogleID != "g-7" {
		t.Fatalf("profile not linked: %+v", res.Profile)
	}
}

func TestGoogleLoginUsernameDedup(t *testing.T) {
	store := memory.New()
	plain := New(store, NewTokens("test-secret"), nil, "", nil)
	if _, err := plain.Register(context.Background(), "ivan", "other@example.com", "password123", "", ""); err != nil {
		t.Fatalf("register: %v", err)
	}

	svc := googleService(t, store, map[string]string{
		"aud": "client-123", "sub": "g-9", "email": "ivan@gmail.com",
	})
	res, err := svc.GoogleLogin(context.Background(), "token")
	if err != nil {
		t.Fatalf("google login: %v", err)
	}
	if res.User.Username != "ivan1" {
		t.Fatalf("expected deduplicated username ivan1, got %q", res.User.Username)
	}
}

func TestGoogleLoginRejectsWrongAudience(t *testing.T) {
	svc := googleService(t, memory.New(), map[string]string{
		"aud": "someone-else", "sub": "g-1", "email": "x@example.com",
	})
	if _, err := svc.GoogleLogin(context.Background(), "token"); !errors.Is(err, ErrInvalidGoogleToken) {
		t.Fatalf("expected ErrInvalidGoogleToken, got %v", err)
	}
}
