package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/placequest/placequest-api/internal/api/middleware"
	"github.com/placequest/placequest-api/internal/core/domain"
	"github.com/placequest/placequest-api/internal/core/ports"
)

type stubAuthService struct {
	registerFn      func(ctx context.Context, in ports.RegisterInput) (*domain.User, error)
	loginFn         func(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error)
	logoutFn        func(ctx context.Context, session *domain.Session) error
	updateProfileFn func(ctx context.Context, userID string, in ports.ProfileUpdate) (*domain.User, error)
	publicProfileFn func(ctx context.Context, username string) (*domain.User, error)
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
	return s.loginFn(ctx, in)
}

func (s *stubAuthService) Logout(ctx context.Context, session *domain.Session) error {
	return s.logoutFn(ctx, session)
}

func (s *stubAuthService) UpdateProfile(ctx context.Context, userID string, in ports.ProfileUpdate) (*domain.User, error) {
	return s.updateProfileFn(ctx, userID, in)
}

func (s *stubAuthService) PublicProfile(ctx context.Context, username string) (*domain.User, error) {
	return s.publicProfileFn(ctx, username)
}

func newJSONContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func testSession() *domain.Session {
	exp := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return &domain.Session{
		User: &domain.User{ID: "u1", Name: "Alice", Username: "alice", Email: "alice@example.com", Active: true},
		Token: &domain.AccessToken{
			ID:        "t1",
			UserID:    "u1",
			Name:      domain.DefaultTokenName,
			Abilities: []string{domain.AbilityAll},
			CreatedAt: exp.Add(-24 * time.Hour),
			ExpiresAt: &exp,
		},
		RawToken: "raw",
	}
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestAuthHandler_Register_Success(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
			if in.Username != "alice" || in.Email != "alice@example.com" || in.Name != "Alice" {
				t.Fatalf("unexpected input: %+v", in)
			}
			if in.Preferences["theme"] != "dark" {
				t.Fatalf("preferences not forwarded: %+v", in.Preferences)
			}
			return &domain.User{ID: "u1", Username: in.Username, Email: in.Email, Name: in.Name, Active: true}, nil
		},
	}
	c, rec := newJSONContext(http.MethodPost, "/auth/register",
		`{"name":"Alice","username":"alice","email":"alice@example.com","preferences":{"theme":"dark"}}`)

	if err := NewAuthHandler(stub).Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	resp := decodeEnvelope(t, rec)
	if resp["success"] != true {
		t.Fatalf("expected success envelope, got %v", resp)
	}
	data := resp["data"].(map[string]any)
	user := data["user"].(map[string]any)
	if user["username"] != "alice" || user["isActive"] != true {
		t.Fatalf("unexpected user payload: %v", user)
	}
	if _, hasToken := data["token"]; hasToken {
		t.Fatalf("registration must not issue a token")
	}
}

func TestAuthHandler_Register_ValidationError(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	c, _ := newJSONContext(http.MethodPost, "/auth/register", `{"name":"Alice","email":"not-an-email"}`)

	err := NewAuthHandler(stub).Register(c)

	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := ve.Fields["username"]; !ok {
		t.Fatalf("expected username field error, got %v", ve.Fields)
	}
	if _, ok := ve.Fields["email"]; !ok {
		t.Fatalf("expected email field error, got %v", ve.Fields)
	}
}

func TestAuthHandler_Register_Conflict(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
			return nil, domain.ErrEmailTaken
		},
	}
	c, _ := newJSONContext(http.MethodPost, "/auth/register",
		`{"name":"Alice","username":"alice","email":"alice@example.com"}`)

	if err := NewAuthHandler(stub).Register(c); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	expires := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
			if in.Email != "alice@example.com" || in.TokenName != "pixel" {
				t.Fatalf("unexpected input: %+v", in)
			}
			if in.Name == nil || *in.Name != "Alice W" || in.AvatarURL != nil {
				t.Fatalf("profile refresh not forwarded: %+v", in)
			}
			return &ports.LoginResult{
				User:      &domain.User{ID: "u1", Username: "alice"},
				Token:     "opaque-token",
				ExpiresAt: expires,
			}, nil
		},
	}
	c, rec := newJSONContext(http.MethodPost, "/auth/login",
		`{"email":"alice@example.com","name":"Alice W","deviceName":"pixel"}`)

	if err := NewAuthHandler(stub).Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	data := decodeEnvelope(t, rec)["data"].(map[string]any)
	if data["token"] != "opaque-token" || data["tokenType"] != "Bearer" {
		t.Fatalf("unexpected token payload: %v", data)
	}
	if _, ok := data["accessToken"]; ok {
		t.Fatalf("accessToken must be omitted without a signed credential")
	}
	if data["expiresAt"] != "2026-03-02T09:00:00Z" {
		t.Fatalf("unexpected expiresAt %v", data["expiresAt"])
	}
}

func TestAuthHandler_Login_ActiveSession(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
			return nil, &domain.ActiveSessionError{SessionCreatedAt: created}
		},
	}
	c, rec := newJSONContext(http.MethodPost, "/auth/login", `{"email":"alice@example.com"}`)

	err := NewAuthHandler(stub).Login(c)

	var active *domain.ActiveSessionError
	if !errors.As(err, &active) || !active.SessionCreatedAt.Equal(created) {
		t.Fatalf("expected active session error, got %v", err)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("handler must leave rendering to the error handler")
	}
}

func TestAuthHandler_Login_UserNotFound(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
			return nil, domain.ErrUserNotFound
		},
	}
	c, _ := newJSONContext(http.MethodPost, "/auth/login", `{"email":"ghost@example.com"}`)

	if err := NewAuthHandler(stub).Login(c); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAuthHandler_Login_InvalidPayload(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	c, _ := newJSONContext(http.MethodPost, "/auth/login", "{")

	err := NewAuthHandler(stub).Login(c)

	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 HTTP error, got %v", err)
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	var revoked *domain.Session
	stub := &stubAuthService{
		logoutFn: func(ctx context.Context, session *domain.Session) error {
			revoked = session
			return nil
		},
	}
	session := testSession()
	c, rec := newJSONContext(http.MethodPost, "/auth/logout", "")
	c.Set(middleware.SessionKey, session)

	if err := NewAuthHandler(stub).Logout(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if revoked != session {
		t.Fatalf("logout must revoke the request's session")
	}
}

func TestAuthHandler_Logout_WithoutSession(t *testing.T) {
	stub := &stubAuthService{
		logoutFn: func(ctx context.Context, session *domain.Session) error {
			t.Fatalf("should not be called")
			return nil
		},
	}
	c, _ := newJSONContext(http.MethodPost, "/auth/logout", "")

	if err := NewAuthHandler(stub).Logout(c); !errors.Is(err, domain.ErrTokenMissing) {
		t.Fatalf("expected ErrTokenMissing, got %v", err)
	}
}

func TestAuthHandler_Status(t *testing.T) {
	c, rec := newJSONContext(http.MethodGet, "/auth/status", "")
	c.Set(middleware.SessionKey, testSession())

	if err := NewAuthHandler(&stubAuthService{}).Status(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	data := decodeEnvelope(t, rec)["data"].(map[string]any)
	if data["authenticated"] != true {
		t.Fatalf("expected authenticated, got %v", data)
	}
	session := data["session"].(map[string]any)
	if session["name"] != domain.DefaultTokenName || session["expiresAt"] != "2026-03-02T09:00:00Z" {
		t.Fatalf("unexpected session payload: %v", session)
	}
	if _, leaked := session["digest"]; leaked {
		t.Fatalf("token digest must not be exposed")
	}
}
