package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"prepmate/api/internal/repositories"
	"prepmate/api/internal/testhelpers"
	"prepmate/api/internal/utils"
)

const testJWTSecret = "test-secret"

func newAuthRouter(t *testing.T) (*chi.Mux, *repositories.UserRepository) {
	t.Helper()
	repo := &repositories.UserRepository{DB: testhelpers.SetupTestDB(t)}
	handler := &AuthHandler{Repo: repo, JWTSecret: testJWTSecret}

	r := chi.NewRouter()
	r.Post("/api/auth/register", handler.RegisterHandler)
	r.Post("/api/auth/login", handler.LoginHandler)
	r.Post("/api/auth/token/refresh", handler.RefreshHandler)
	r.Get("/api/user", handler.MeHandler)
	r.Patch("/api/user", handler.UpdateMeHandler)
	return r, repo
}

func doJSON(t *testing.T, router http.Handler, method, path string, payload any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("failed to encode payload: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func registerUser(t *testing.T, router http.Handler, email string) {
	t.Helper()
	rec := doJSON(t, router, "POST", "/api/auth/register", map[string]any{
		"email":    email,
		"password": "Sup3r$ecret",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("failed to register %s: %d %s", email, rec.Code, rec.Body.String())
	}
}

func TestNewAuthHandler_UsesProvidedSecret(t *testing.T) {
	repo := &repositories.UserRepository{DB: testhelpers.SetupTestDB(t)}
	handler := NewAuthHandler(repo, "configured-secret")

	r := chi.NewRouter()
	r.Post("/api/auth/register", handler.RegisterHandler)
	r.Post("/api/auth/login", handler.LoginHandler)
	registerUser(t, r, "cfg@example.com")

	rec := doJSON(t, r, "POST", "/api/auth/login", map[string]any{
		"email": "cfg@example.com", "password": "Sup3r$ecret",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var tokens map[string]string
	json.Unmarshal(rec.Body.Bytes(), &tokens)
	if _, err := utils.ParseToken(tokens["access"], "configured-secret"); err != nil {
		t.Fatalf("expected token signed with the configured secret: %v", err)
	}
}

func TestRegisterHandler(t *testing.T) {
	router, _ := newAuthRouter(t)

	rec := doJSON(t, router, "POST", "/api/auth/register", map[string]any{
		"email":      "  New@Example.COM ",
		"password":   "Sup3r$ecret",
		"first_name": "Ada",
		"level":      "MID",
		"tech_stack": []string{"Go"},
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var user map[string]any
	json.Unmarshal(rec.Body.Bytes(), &user)
	if user["email"] != "new@example.com" {
		t.Fatalf("expected normalized email, got %v", user["email"])
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatal("password material must never appear in responses")
	}
}

func TestRegisterHandler_Validation(t *testing.T) {
	router, _ := newAuthRouter(t)

	cases := []struct {
		name    string
		payload map[string]any
		status  int
	}{
		{"missing email", map[string]any{"password": "Sup3r$ecret"}, http.StatusBadRequest},
		{"weak password", map[string]any{"email": "a@b.c", "password": "short"}, http.StatusBadRequest},
		{"no special char", map[string]any{"email": "a@b.c", "password": "longenoughpassword"}, http.StatusBadRequest},
		{"bad level", map[string]any{"email": "a@b.c", "password": "Sup3r$ecret", "level": "GURU"}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, router, "POST", "/api/auth/register", tc.payload, nil)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRegisterHandler_DuplicateEmail(t *testing.T) {
	router, _ := newAuthRouter(t)
	registerUser(t, router, "dup@example.com")

	rec := doJSON(t, router, "POST", "/api/auth/register", map[string]any{
		"email":    "DUP@example.com",
		"password": "An0ther$ecret",
	}, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestRegisterHandler_DuplicateUsername(t *testing.T) {
	router, _ := newAuthRouter(t)

	first := doJSON(t, router, "POST", "/api/auth/register", map[string]any{
		"email": "one@example.com", "password": "Sup3r$ecret", "username": "ada",
	}, nil)
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", first.Code)
	}

	rec := doJSON(t, router, "POST", "/api/auth/register", map[string]any{
		"email": "two@example.com", "password": "Sup3r$ecret", "username": "ada",
	}, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestLoginHandler(t *testing.T) {
	router, _ := newAuthRouter(t)
	registerUser(t, router, "login@example.com")

	t.Run("valid credentials", func(t *testing.T) {
		rec := doJSON(t, router, "POST", "/api/auth/login", map[string]any{
			"email": "Login@Example.com", "password": "Sup3r$ecret",
		}, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var tokens map[string]string
		json.Unmarshal(rec.Body.Bytes(), &tokens)
		if tokens["access"] == "" || tokens["refresh"] == "" {
			t.Fatalf("expected token pair, got %v", tokens)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := doJSON(t, router, "POST", "/api/auth/login", map[string]any{
			"email": "login@example.com", "password": "Wr0ng$ecret",
		}, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		rec := doJSON(t, router, "POST", "/api/auth/login", map[string]any{
			"email": "nobody@example.com", "password": "Sup3r$ecret",
		}, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestRefreshHandler(t *testing.T) {
	router, _ := newAuthRouter(t)
	registerUser(t, router, "refresh@example.com")

	login := doJSON(t, router, "POST", "/api/auth/login", map[string]any{
		"email": "refresh@example.com", "password": "Sup3r$ecret",
	}, nil)
	var tokens map[string]string
	json.Unmarshal(login.Body.Bytes(), &tokens)

	t.Run("valid refresh token", func(t *testing.T) {
		rec := doJSON(t, router, "POST", "/api/auth/token/refresh", map[string]any{
			"refresh": tokens["refresh"],
		}, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var fresh map[string]string
		json.Unmarshal(rec.Body.Bytes(), &fresh)
		if fresh["access"] == "" || fresh["refresh"] == "" {
			t.Fatalf("expected new token pair, got %v", fresh)
		}
	})

	t.Run("access token rejected", func(t *testing.T) {
		rec := doJSON(t, router, "POST", "/api/auth/token/refresh", map[string]any{
			"refresh": tokens["access"],
		}, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("missing token", func(t *testing.T) {
		rec := doJSON(t, router, "POST", "/api/auth/token/refresh", map[string]any{}, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestMeHandler(t *testing.T) {
	router, repo := newAuthRouter(t)
	registerUser(t, router, "me@example.com")

	user, err := repo.GetUserByEmail("me@example.com")
	if err != nil {
		t.Fatalf("failed to load user: %v", err)
	}
	access, _ := utils.SignAccessToken(user.ID, user.Email, testJWTSecret, time.Minute)
	auth := map[string]string{"Authorization": "Bearer " + access}

	t.Run("authenticated", func(t *testing.T) {
		rec := doJSON(t, router, "GET", "/api/user", nil, auth)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var body map[string]any
		json.Unmarshal(rec.Body.Bytes(), &body)
		if body["email"] != "me@example.com" {
			t.Fatalf("unexpected profile %v", body)
		}
	})

	t.Run("anonymous", func(t *testing.T) {
		rec := doJSON(t, router, "GET", "/api/user", nil, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestUpdateMeHandler(t *testing.T) {
	router, repo := newAuthRouter(t)
	registerUser(t, router, "edit@example.com")

	user, _ := repo.GetUserByEmail("edit@example.com")
	access, _ := utils.SignAccessToken(user.ID, user.Email, testJWTSecret, time.Minute)
	auth := map[string]string{"Authorization": "Bearer " + access}

	rec := doJSON(t, router, "PATCH", "/api/user", map[string]any{
		"first_name": "Grace",
		"username":   "grace",
	}, auth)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	updated, _ := repo.GetUserByEmail("edit@example.com")
	if updated.FirstName != "Grace" {
		t.Fatalf("expected first name updated, got %q", updated.FirstName)
	}
	if updated.Username == nil || *updated.Username != "grace" {
		t.Fatalf("expected username set, got %v", updated.Username)
	}

	// Blank username clears the value back to NULL.
	rec = doJSON(t, router, "PATCH", "/api/user", map[string]any{"username": ""}, auth)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	updated, _ = repo.GetUserByEmail("edit@example.com")
	if updated.Username != nil {
		t.Fatalf("expected username cleared, got %v", updated.Username)
	}
	if updated.FirstName != "Grace" {
		t.Fatal("expected untouched fields preserved")
	}
}
