package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"prepmate/api/internal/models"
	"prepmate/api/internal/services"
	"prepmate/api/internal/utils"
)

// InterviewHandler exposes the session lifecycle over HTTP. Callers are
// either authenticated users (bearer token) or guests presenting the
// session's public token via the X-Interview-Token header or ?t= query.
type InterviewHandler struct {
	Service   InterviewOrchestrator
	JWTSecret string
}

func NewInterviewHandler(service InterviewOrchestrator, jwtSecret string) *InterviewHandler {
	return &InterviewHandler{Service: service, JWTSecret: jwtSecret}
}

type createSessionRequest struct {
	Role      string   `json:"role"`
	Position  string   `json:"position"`
	Level     string   `json:"level"`
	TechStack []string `json:"tech_stack"`
	Count     int      `json:"count"`
}

type generateRequest struct {
	Count int `json:"count"`
}

type answerRequest struct {
	Answer    string `json:"answer"`
	CheckOnly bool   `json:"check_only"`
}

type evaluateRequest struct {
	Context        map[string]any `json:"context"`
	IncludeSummary *bool          `json:"include_summary"`
}

// createSessionResponse exposes the guest public token exactly once, on the
// creation response.
type createSessionResponse struct {
	*models.InterviewSession
	PublicToken string `json:"public_token,omitempty"`
}

func (h *InterviewHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	userID := utils.OptionalUserID(r, h.JWTSecret)
	if userID == nil {
		utils.JSONError(w, http.StatusUnauthorized, "Authentication required.")
		return
	}

	sessions, err := h.Service.List(*userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	for i := range sessions {
		if sessions[i].Turns == nil {
			sessions[i].Turns = []models.InterviewTurn{}
		}
	}
	utils.JSON(w, http.StatusOK, sessions)
}

func (h *InterviewHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid request payload.")
		return
	}

	session, err := h.Service.Create(r.Context(), services.CreateSessionInput{
		UserID:    utils.OptionalUserID(r, h.JWTSecret),
		Role:      req.Role,
		Position:  req.Position,
		Level:     req.Level,
		TechStack: req.TechStack,
		Count:     req.Count,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := createSessionResponse{InterviewSession: session}
	if session.UserID == nil {
		resp.PublicToken = session.PublicToken
	}
	utils.JSON(w, http.StatusCreated, resp)
}

func (h *InterviewHandler) DetailHandler(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	session, err := h.Service.Get(sessionID, h.caller(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, session)
}

func (h *InterviewHandler) GenerateHandler(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid request payload.")
		return
	}

	session, err := h.Service.GenerateMore(r.Context(), sessionID, h.caller(r), req.Count)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, session)
}

func (h *InterviewHandler) UpdateAnswerHandler(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	order, ok := h.turnOrder(w, r)
	if !ok {
		return
	}

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid request payload.")
		return
	}

	turn, err := h.Service.RecordAnswer(r.Context(), sessionID, order, h.caller(r), req.Answer, req.CheckOnly)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, turn)
}

func (h *InterviewHandler) DeleteQuestionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	order, ok := h.turnOrder(w, r)
	if !ok {
		return
	}

	if err := h.Service.DeleteTurn(r.Context(), sessionID, order, h.caller(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *InterviewHandler) EvaluateHandler(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	// An empty body means "evaluate with defaults".
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.JSONError(w, http.StatusBadRequest, "Invalid request payload.")
		return
	}
	includeSummary := true
	if req.IncludeSummary != nil {
		includeSummary = *req.IncludeSummary
	}

	session, err := h.Service.Evaluate(r.Context(), sessionID, h.caller(r), req.Context, includeSummary)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, session)
}

func (h *InterviewHandler) CancelHandler(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	session, err := h.Service.Cancel(r.Context(), sessionID, h.caller(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, session)
}

func (h *InterviewHandler) caller(r *http.Request) services.Caller {
	token := r.Header.Get("X-Interview-Token")
	if token == "" {
		token = r.URL.Query().Get("t")
	}
	return services.Caller{
		UserID: utils.OptionalUserID(r, h.JWTSecret),
		Token:  token,
	}
}

func (h *InterviewHandler) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		utils.JSONError(w, http.StatusNotFound, "Interview session not found.")
		return uuid.Nil, false
	}
	return id, true
}

func (h *InterviewHandler) turnOrder(w http.ResponseWriter, r *http.Request) (int, bool) {
	order, err := strconv.Atoi(chi.URLParam(r, "order"))
	if err != nil || order < 1 {
		utils.JSONError(w, http.StatusNotFound, "Interview question not found.")
		return 0, false
	}
	return order, true
}

func writeServiceError(w http.ResponseWriter, err error) {
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		utils.JSONError(w, svcErr.Status, svcErr.Detail)
		return
	}
	utils.JSONError(w, http.StatusInternalServerError, "Internal server error.")
}
