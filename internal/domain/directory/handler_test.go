package directory

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nurselink/nurselink/internal/platform/auth"
)

func newTestHandler(t *testing.T) (*Handler, *echo.Echo, *mockUserDir) {
	t.Helper()
	dir := newMockUserDir()
	svc := NewService(dir, newTestTokens(t), time.Hour)
	return NewHandler(svc), echo.New(), dir
}

func postLogin(e *echo.Echo, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestLoginHandler_Success(t *testing.T) {
	h, e, dir := newTestHandler(t)
	seedUser(t, dir, "nurse@example.com", "correct-horse", auth.RoleNurse, true)

	c, rec := postLogin(e, `{"email":"nurse@example.com","password":"correct-horse"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["token"] == "" || body["token"] == nil {
		t.Error("expected a token in the response")
	}
	if body["expires_at"] == nil {
		t.Error("expected expires_at in the response")
	}
	user, ok := body["user"].(map[string]interface{})
	if !ok {
		t.Fatal("expected a user object in the response")
	}
	if user["email"] != "nurse@example.com" {
		t.Errorf("expected user email, got %v", user["email"])
	}
	if _, leaked := user["password_hash"]; leaked {
		t.Error("password hash must not appear in responses")
	}
}

func TestLoginHandler_InvalidCredentials(t *testing.T) {
	h, e, dir := newTestHandler(t)
	seedUser(t, dir, "nurse@example.com", "correct-horse", auth.RoleNurse, true)

	c, _ := postLogin(e, `{"email":"nurse@example.com","password":"wrong-horse"}`)
	err := h.Login(c)
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if he.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", he.Code)
	}
	if he.Message != "invalid credentials" {
		t.Errorf("expected uniform message, got %v", he.Message)
	}
}

func TestLoginHandler_MalformedBody(t *testing.T) {
	h, e, _ := newTestHandler(t)

	c, _ := postLogin(e, `{not json`)
	err := h.Login(c)
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", he.Code)
	}
}

func TestLoginHandler_StorageError(t *testing.T) {
	h, e, dir := newTestHandler(t)
	dir.failWith = errors.New("pool closed")

	c, _ := postLogin(e, `{"email":"nurse@example.com","password":"correct-horse"}`)
	err := h.Login(c)
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if he.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", he.Code)
	}
}

func meContext(e *echo.Echo, p *auth.Principal) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	if p != nil {
		req = req.WithContext(auth.ContextWithPrincipal(req.Context(), p))
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestMeHandler_Success(t *testing.T) {
	h, e, dir := newTestHandler(t)
	u := seedUser(t, dir, "nurse@example.com", "correct-horse", auth.RoleNurse, true)

	c, rec := meContext(e, &auth.Principal{UserID: u.ID, Role: u.Role, Email: u.Email})
	if err := h.Me(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var body map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["email"] != "nurse@example.com" {
		t.Errorf("expected user email, got %v", body["email"])
	}
}

func TestMeHandler_NoPrincipal(t *testing.T) {
	h, e, _ := newTestHandler(t)

	c, _ := meContext(e, nil)
	err := h.Me(c)
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if he.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", he.Code)
	}
}

func TestMeHandler_UserGone(t *testing.T) {
	h, e, _ := newTestHandler(t)

	c, _ := meContext(e, &auth.Principal{UserID: uuid.New(), Role: auth.RoleNurse})
	err := h.Me(c)
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", he.Code)
	}
}
