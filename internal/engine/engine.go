// Package engine holds the outbound contract to the external interview
// engine: question generation and answer evaluation over JSON HTTP POST.
package engine

import (
	"context"
	"net/http"
)

// Profile is the candidate profile sent with every generate call.
type Profile struct {
	Role     string   `json:"role"`
	Level    string   `json:"level"`
	Stack    []string `json:"stack"`
	Position string   `json:"position"`
}

type GenerateRequest struct {
	SessionID         string   `json:"fastapi_session_id"`
	Profile           Profile  `json:"profile"`
	Count             int      `json:"count"`
	ExistingQuestions []string `json:"existing_questions"`
}

type GenerateResponse struct {
	SessionID string   `json:"fastapi_session_id"`
	Questions []string `json:"questions"`
}

type EvaluateItem struct {
	Order    int    `json:"order"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type EvaluateRequest struct {
	SessionID      string         `json:"fastapi_session_id"`
	Items          []EvaluateItem `json:"items"`
	Context        map[string]any `json:"context,omitempty"`
	IncludeSummary bool           `json:"include_summary"`
}

// TurnResult is the engine's verdict for a single turn. Missing fields
// degrade to "" / nil rather than failing the decode.
type TurnResult struct {
	Order    int            `json:"order"`
	Feedback string         `json:"feedback"`
	Score    *float64       `json:"score"`
	Meta     map[string]any `json:"meta"`
}

type Overall struct {
	Feedback string         `json:"feedback"`
	Score    *float64       `json:"score"`
	Meta     map[string]any `json:"meta"`
}

type EvaluateResponse struct {
	Results []TurnResult `json:"results"`
	Overall *Overall     `json:"overall"`
}

// CheckRequest asks the engine to score one answer in isolation
// (per-answer evaluation mode).
type CheckRequest struct {
	SessionID string `json:"fastapi_session_id"`
	Order     int    `json:"order"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
}

type CheckResponse struct {
	Feedback string         `json:"feedback"`
	Score    *float64       `json:"score"`
	Meta     map[string]any `json:"meta"`
	Overall  *Overall       `json:"overall"`
}

// Client is the outbound interview-engine contract. Implementations perform
// a single POST per call and never retry; idempotency is the caller's
// responsibility via ExistingQuestions deduplication.
type Client interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
	Evaluate(ctx context.Context, req EvaluateRequest) (*EvaluateResponse, error)
	Check(ctx context.Context, req CheckRequest) (*CheckResponse, error)
}

// Error is a classified engine failure. Status is the HTTP status the API
// should return upstream: 400 when the engine rejected the payload, 502 for
// network, 5xx and malformed-response failures.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string { return e.Detail }

func badRequestError(detail string) *Error {
	return &Error{Status: http.StatusBadRequest, Detail: detail}
}

func unavailableError(detail string) *Error {
	return &Error{Status: http.StatusBadGateway, Detail: detail}
}
