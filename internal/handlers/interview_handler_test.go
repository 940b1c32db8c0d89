package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"prepmate/api/internal/models"
	"prepmate/api/internal/services"
	"prepmate/api/internal/utils"
)

type mockOrchestrator struct {
	createFn       func(services.CreateSessionInput) (*models.InterviewSession, error)
	getFn          func(uuid.UUID, services.Caller) (*models.InterviewSession, error)
	listFn         func(uint) ([]models.InterviewSession, error)
	generateFn     func(uuid.UUID, services.Caller, int) (*models.InterviewSession, error)
	recordAnswerFn func(uuid.UUID, int, services.Caller, string, bool) (*models.InterviewTurn, error)
	evaluateFn     func(uuid.UUID, services.Caller, map[string]any, bool) (*models.InterviewSession, error)
	deleteTurnFn   func(uuid.UUID, int, services.Caller) error
	cancelFn       func(uuid.UUID, services.Caller) (*models.InterviewSession, error)
}

func (m *mockOrchestrator) Create(_ context.Context, in services.CreateSessionInput) (*models.InterviewSession, error) {
	return m.createFn(in)
}

func (m *mockOrchestrator) Get(sessionID uuid.UUID, caller services.Caller) (*models.InterviewSession, error) {
	return m.getFn(sessionID, caller)
}

func (m *mockOrchestrator) List(userID uint) ([]models.InterviewSession, error) {
	return m.listFn(userID)
}

func (m *mockOrchestrator) GenerateMore(_ context.Context, sessionID uuid.UUID, caller services.Caller, count int) (*models.InterviewSession, error) {
	return m.generateFn(sessionID, caller, count)
}

func (m *mockOrchestrator) RecordAnswer(_ context.Context, sessionID uuid.UUID, order int, caller services.Caller, answer string, checkOnly bool) (*models.InterviewTurn, error) {
	return m.recordAnswerFn(sessionID, order, caller, answer, checkOnly)
}

func (m *mockOrchestrator) Evaluate(_ context.Context, sessionID uuid.UUID, caller services.Caller, evalContext map[string]any, includeSummary bool) (*models.InterviewSession, error) {
	return m.evaluateFn(sessionID, caller, evalContext, includeSummary)
}

func (m *mockOrchestrator) DeleteTurn(_ context.Context, sessionID uuid.UUID, order int, caller services.Caller) error {
	return m.deleteTurnFn(sessionID, order, caller)
}

func (m *mockOrchestrator) Cancel(_ context.Context, sessionID uuid.UUID, caller services.Caller) (*models.InterviewSession, error) {
	return m.cancelFn(sessionID, caller)
}

func newInterviewRouter(service InterviewOrchestrator) *chi.Mux {
	handler := NewInterviewHandler(service, testJWTSecret)
	r := chi.NewRouter()
	r.Route("/api/interviews", func(r chi.Router) {
		r.Get("/", handler.ListHandler)
		r.Post("/", handler.CreateHandler)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", handler.DetailHandler)
			r.Delete("/", handler.CancelHandler)
			r.Post("/generate", handler.GenerateHandler)
			r.Post("/evaluate", handler.EvaluateHandler)
			r.Patch("/questions/{order}", handler.UpdateAnswerHandler)
			r.Delete("/questions/{order}", handler.DeleteQuestionHandler)
		})
	})
	return r
}

func TestCreateHandler_GuestReceivesPublicToken(t *testing.T) {
	var gotInput services.CreateSessionInput
	service := &mockOrchestrator{
		createFn: func(in services.CreateSessionInput) (*models.InterviewSession, error) {
			gotInput = in
			return &models.InterviewSession{
				ID:          uuid.New(),
				Role:        in.Role,
				Status:      models.StatusInProgress,
				PublicToken: "guest-token",
			}, nil
		},
	}
	router := newInterviewRouter(service)

	rec := doJSON(t, router, "POST", "/api/interviews", map[string]any{
		"role": "Backend Engineer", "level": "MID", "count": 3,
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotInput.UserID != nil {
		t.Fatalf("expected anonymous caller, got user %d", *gotInput.UserID)
	}

	var body map[string]any
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["public_token"] != "guest-token" {
		t.Fatalf("expected public token in creation response, got %v", body)
	}
}

func TestCreateHandler_AuthenticatedOwner(t *testing.T) {
	owner := uint(7)
	service := &mockOrchestrator{
		createFn: func(in services.CreateSessionInput) (*models.InterviewSession, error) {
			if in.UserID == nil || *in.UserID != owner {
				t.Fatalf("expected owner %d, got %v", owner, in.UserID)
			}
			return &models.InterviewSession{ID: uuid.New(), UserID: in.UserID, Status: models.StatusInProgress}, nil
		},
	}
	router := newInterviewRouter(service)

	access, _ := utils.SignAccessToken(owner, "o@example.com", testJWTSecret, time.Minute)
	rec := doJSON(t, router, "POST", "/api/interviews", map[string]any{
		"role": "Dev", "level": "MID",
	}, map[string]string{"Authorization": "Bearer " + access})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "public_token") {
		t.Fatal("owned sessions must not expose a public token")
	}
}

func TestDetailHandler_PassesGuestToken(t *testing.T) {
	sessionID := uuid.New()
	var gotCaller services.Caller
	service := &mockOrchestrator{
		getFn: func(id uuid.UUID, caller services.Caller) (*models.InterviewSession, error) {
			if id != sessionID {
				t.Fatalf("unexpected session id %s", id)
			}
			gotCaller = caller
			return &models.InterviewSession{ID: id, Status: models.StatusInProgress}, nil
		},
	}
	router := newInterviewRouter(service)

	t.Run("header", func(t *testing.T) {
		rec := doJSON(t, router, "GET", "/api/interviews/"+sessionID.String(), nil,
			map[string]string{"X-Interview-Token": "tok-header"})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if gotCaller.Token != "tok-header" {
			t.Fatalf("expected header token forwarded, got %q", gotCaller.Token)
		}
	})

	t.Run("query fallback", func(t *testing.T) {
		rec := doJSON(t, router, "GET", "/api/interviews/"+sessionID.String()+"?t=tok-query", nil, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if gotCaller.Token != "tok-query" {
			t.Fatalf("expected query token forwarded, got %q", gotCaller.Token)
		}
	})
}

func TestDetailHandler_MalformedID(t *testing.T) {
	router := newInterviewRouter(&mockOrchestrator{})

	rec := doJSON(t, router, "GET", "/api/interviews/not-a-uuid", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestListHandler(t *testing.T) {
	service := &mockOrchestrator{
		listFn: func(userID uint) ([]models.InterviewSession, error) {
			return []models.InterviewSession{{ID: uuid.New(), UserID: &userID}}, nil
		},
	}
	router := newInterviewRouter(service)

	t.Run("anonymous rejected", func(t *testing.T) {
		rec := doJSON(t, router, "GET", "/api/interviews", nil, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("turns serialized as array", func(t *testing.T) {
		access, _ := utils.SignAccessToken(1, "a@b.c", testJWTSecret, time.Minute)
		rec := doJSON(t, router, "GET", "/api/interviews", nil,
			map[string]string{"Authorization": "Bearer " + access})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"turns":[]`) {
			t.Fatalf("expected empty turns array, got %s", rec.Body.String())
		}
	})
}

func TestUpdateAnswerHandler(t *testing.T) {
	sessionID := uuid.New()
	service := &mockOrchestrator{
		recordAnswerFn: func(id uuid.UUID, order int, caller services.Caller, answer string, checkOnly bool) (*models.InterviewTurn, error) {
			if order != 2 || answer != "my answer" || !checkOnly {
				t.Fatalf("unexpected call: order=%d answer=%q checkOnly=%v", order, answer, checkOnly)
			}
			return &models.InterviewTurn{SessionID: id, OrderNo: order, Answer: answer}, nil
		},
	}
	router := newInterviewRouter(service)

	rec := doJSON(t, router, "PATCH", "/api/interviews/"+sessionID.String()+"/questions/2", map[string]any{
		"answer": "my answer", "check_only": true,
	}, map[string]string{"X-Interview-Token": "tok"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUpdateAnswerHandler_BadOrder(t *testing.T) {
	router := newInterviewRouter(&mockOrchestrator{})
	sessionID := uuid.New()

	for _, order := range []string{"abc", "0", "-1"} {
		rec := doJSON(t, router, "PATCH", "/api/interviews/"+sessionID.String()+"/questions/"+order,
			map[string]any{"answer": "x"}, nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404 for order %q, got %d", order, rec.Code)
		}
	}
}

func TestDeleteQuestionHandler(t *testing.T) {
	sessionID := uuid.New()
	called := false
	service := &mockOrchestrator{
		deleteTurnFn: func(id uuid.UUID, order int, caller services.Caller) error {
			called = true
			return nil
		},
	}
	router := newInterviewRouter(service)

	rec := doJSON(t, router, "DELETE", "/api/interviews/"+sessionID.String()+"/questions/3", nil, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if !called {
		t.Fatal("expected delete to reach the service")
	}
}

func TestEvaluateHandler_EmptyBodyDefaults(t *testing.T) {
	sessionID := uuid.New()
	service := &mockOrchestrator{
		evaluateFn: func(id uuid.UUID, caller services.Caller, evalContext map[string]any, includeSummary bool) (*models.InterviewSession, error) {
			if !includeSummary {
				t.Fatal("expected include_summary to default to true")
			}
			return &models.InterviewSession{ID: id, Status: models.StatusCompleted}, nil
		},
	}
	router := newInterviewRouter(service)

	rec := doJSON(t, router, "POST", "/api/interviews/"+sessionID.String()+"/evaluate", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestEvaluateHandler_ForwardsContext(t *testing.T) {
	sessionID := uuid.New()
	service := &mockOrchestrator{
		evaluateFn: func(id uuid.UUID, caller services.Caller, evalContext map[string]any, includeSummary bool) (*models.InterviewSession, error) {
			if evalContext["focus"] != "system design" {
				t.Fatalf("expected context forwarded, got %v", evalContext)
			}
			if includeSummary {
				t.Fatal("expected include_summary=false honored")
			}
			return &models.InterviewSession{ID: id, Status: models.StatusCompleted}, nil
		},
	}
	router := newInterviewRouter(service)

	rec := doJSON(t, router, "POST", "/api/interviews/"+sessionID.String()+"/evaluate", map[string]any{
		"context":         map[string]any{"focus": "system design"},
		"include_summary": false,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCancelHandler(t *testing.T) {
	sessionID := uuid.New()
	service := &mockOrchestrator{
		cancelFn: func(id uuid.UUID, caller services.Caller) (*models.InterviewSession, error) {
			return &models.InterviewSession{ID: id, Status: models.StatusCancelled}, nil
		},
	}
	router := newInterviewRouter(service)

	rec := doJSON(t, router, "DELETE", "/api/interviews/"+sessionID.String(), nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), string(models.StatusCancelled)) {
		t.Fatalf("expected cancelled session in body, got %s", rec.Body.String())
	}
}

func TestHandlers_ServiceErrorMapping(t *testing.T) {
	sessionID := uuid.New()
	service := &mockOrchestrator{
		getFn: func(uuid.UUID, services.Caller) (*models.InterviewSession, error) {
			return nil, &services.Error{Status: http.StatusBadGateway, Detail: "Interview engine error 503: unavailable"}
		},
	}
	router := newInterviewRouter(service)

	rec := doJSON(t, router, "GET", "/api/interviews/"+sessionID.String(), nil, nil)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if !strings.Contains(body["detail"], "unavailable") {
		t.Fatalf("expected detail surfaced, got %v", body)
	}
}
