package handlers

import (
	"context"

	"github.com/google/uuid"

	"prepmate/api/internal/models"
	"prepmate/api/internal/services"
)

// UserRepository captures the persistence operations required by handlers.
type UserRepository interface {
	CreateUser(user *models.User) error
	GetUserByEmail(email string) (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)
	GetUserByID(userID uint) (*models.User, error)
	SaveUser(user *models.User) error
}

// InterviewOrchestrator captures the session operations required by handlers.
type InterviewOrchestrator interface {
	Create(ctx context.Context, in services.CreateSessionInput) (*models.InterviewSession, error)
	Get(sessionID uuid.UUID, caller services.Caller) (*models.InterviewSession, error)
	List(userID uint) ([]models.InterviewSession, error)
	GenerateMore(ctx context.Context, sessionID uuid.UUID, caller services.Caller, count int) (*models.InterviewSession, error)
	RecordAnswer(ctx context.Context, sessionID uuid.UUID, order int, caller services.Caller, answer string, checkOnly bool) (*models.InterviewTurn, error)
	Evaluate(ctx context.Context, sessionID uuid.UUID, caller services.Caller, evalContext map[string]any, includeSummary bool) (*models.InterviewSession, error)
	DeleteTurn(ctx context.Context, sessionID uuid.UUID, order int, caller services.Caller) error
	Cancel(ctx context.Context, sessionID uuid.UUID, caller services.Caller) (*models.InterviewSession, error)
}
