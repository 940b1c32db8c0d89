package engine

import (
	"context"
	"fmt"
	"strings"
)

// MockClient is the permanent offline substitute for the real engine. It
// must always mirror the real response shape (same field names, same
// nesting) and derives its output deterministically from the request, so
// the orchestrator and its tests never depend on network availability.
type MockClient struct{}

func NewMockClient() *MockClient { return &MockClient{} }

const mockSessionID = "mock-session-001"

func (m *MockClient) Generate(_ context.Context, req GenerateRequest) (*GenerateResponse, error) {
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = mockSessionID
	}

	role := req.Profile.Role
	if role == "" {
		role = "software development"
	}

	// Offset past the existing history so repeated calls keep producing
	// unseen question texts.
	offset := len(req.ExistingQuestions)
	questions := make([]string, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		questions = append(questions,
			fmt.Sprintf("Mock question %d: Explain %s concepts.", offset+i+1, role))
	}

	return &GenerateResponse{SessionID: sessionID, Questions: questions}, nil
}

func (m *MockClient) Evaluate(_ context.Context, req EvaluateRequest) (*EvaluateResponse, error) {
	results := make([]TurnResult, 0, len(req.Items))
	var total float64
	for _, item := range req.Items {
		score := mockScore(item.Answer)
		total += score
		results = append(results, TurnResult{
			Order:    item.Order,
			Feedback: mockFeedback(item.Question, score),
			Score:    &score,
			Meta:     mockMeta(item.Answer),
		})
	}

	resp := &EvaluateResponse{Results: results}
	if req.IncludeSummary && len(results) > 0 {
		avg := total / float64(len(results))
		resp.Overall = &Overall{
			Feedback: fmt.Sprintf("Mock summary: answered %d questions with an average score of %.1f/10.", len(results), avg),
			Score:    &avg,
			Meta:     map[string]any{"items": len(results)},
		}
	}
	return resp, nil
}

func (m *MockClient) Check(_ context.Context, req CheckRequest) (*CheckResponse, error) {
	score := mockScore(req.Answer)
	return &CheckResponse{
		Feedback: mockFeedback(req.Question, score),
		Score:    &score,
		Meta:     mockMeta(req.Answer),
	}, nil
}

// mockScore grows with answer length and is capped at 10, so longer answers
// score predictably higher.
func mockScore(answer string) float64 {
	score := len(strings.TrimSpace(answer)) / 20
	if score < 1 {
		score = 1
	}
	if score > 10 {
		score = 10
	}
	return float64(score)
}

func mockFeedback(question string, score float64) string {
	topic := question
	if len(topic) > 50 {
		topic = topic[:50]
	}
	return fmt.Sprintf("Mock feedback: your answer about %q shows understanding. Score: %.0f/10", topic, score)
}

func mockMeta(answer string) map[string]any {
	lower := strings.ToLower(answer)
	return map[string]any{
		"length":   len(answer),
		"has_code": strings.Contains(lower, "func ") || strings.Contains(lower, "def ") || strings.Contains(lower, "class "),
	}
}
