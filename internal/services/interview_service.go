package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"prepmate/api/internal/config"
	"prepmate/api/internal/engine"
	"prepmate/api/internal/metrics"
	"prepmate/api/internal/models"
	"prepmate/api/internal/repositories"
	"prepmate/api/internal/utils"
)

// InterviewService drives the session state machine:
// CREATED -> IN_PROGRESS -> {COMPLETED, FAILED, CANCELLED}. All multi-row
// mutations run inside one transaction; engine calls never hold locks on
// anything but the session row being mutated.
type InterviewService struct {
	DB       *gorm.DB
	Sessions *repositories.SessionRepository
	Engine   engine.Client
	Events   *EventPublisher
	Logger   *zap.Logger

	DefaultQuestionCount int
	MaxQuestionCount     int
	EvaluationMode       string
}

func NewInterviewService(db *gorm.DB, client engine.Client, events *EventPublisher, logger *zap.Logger, cfg *config.EngineConfig, mode string) *InterviewService {
	return &InterviewService{
		DB:                   db,
		Sessions:             &repositories.SessionRepository{DB: db},
		Engine:               client,
		Events:               events,
		Logger:               logger,
		DefaultQuestionCount: cfg.DefaultQuestionCount,
		MaxQuestionCount:     cfg.MaxQuestionCount,
		EvaluationMode:       mode,
	}
}

type CreateSessionInput struct {
	UserID    *uint
	Role      string
	Position  string
	Level     string
	TechStack []string
	Count     int
}

// Create persists a session in CREATED, asks the engine for the initial
// question batch and transitions to IN_PROGRESS, or to FAILED when the
// engine fails or returns nothing usable. The FAILED session keeps zero
// turns; the IN_PROGRESS one gets orders 1..N in one batch.
func (s *InterviewService) Create(ctx context.Context, in CreateSessionInput) (*models.InterviewSession, error) {
	role := strings.TrimSpace(in.Role)
	if role == "" {
		return nil, badRequest("role is required.")
	}
	if !models.IsValidLevel(in.Level) {
		return nil, badRequest("level must be one of JUNIOR_I, JUNIOR_II, MID, UPPER_MID, SENIOR.")
	}
	stack := cleanStack(in.TechStack)

	count := in.Count
	if count <= 0 {
		count = s.DefaultQuestionCount
	}
	if count > s.MaxQuestionCount {
		count = s.MaxQuestionCount
	}

	session := &models.InterviewSession{
		UserID:    in.UserID,
		Role:      role,
		Position:  strings.TrimSpace(in.Position),
		Level:     in.Level,
		TechStack: models.StackToJSON(stack),
		Status:    models.StatusCreated,
	}
	if in.UserID == nil {
		session.PublicToken = utils.NewPublicToken()
	}
	if err := s.Sessions.Create(session); err != nil {
		return nil, asServiceError(err)
	}

	resp, err := s.Engine.Generate(ctx, engine.GenerateRequest{
		Profile:           s.profileFor(session),
		Count:             count,
		ExistingQuestions: []string{},
	})
	if err != nil {
		s.markFailed(session)
		return nil, asServiceError(err)
	}

	questions := cleanQuestions(resp.Questions)
	if len(questions) == 0 {
		s.markFailed(session)
		return nil, badGateway("Interview engine returned no questions.")
	}

	now := time.Now()
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.Sessions.WithTx(tx)
		turns := make([]models.InterviewTurn, 0, len(questions))
		for i, question := range questions {
			turns = append(turns, models.InterviewTurn{
				SessionID: session.ID,
				OrderNo:   i + 1,
				Question:  question,
				AskedAt:   &now,
			})
		}
		if err := repo.CreateTurns(turns); err != nil {
			return err
		}
		session.EngineSessionID = resp.SessionID
		session.Status = models.StatusInProgress
		if session.StartedAt == nil {
			session.StartedAt = &now
		}
		return repo.Save(session)
	})
	if err != nil {
		s.markFailed(session)
		return nil, asServiceError(err)
	}

	metrics.SessionCreated()
	metrics.QuestionsGenerated(len(questions))
	s.Logger.Info("interview session started",
		zap.String("session_id", session.ID.String()),
		zap.Int("questions", len(questions)))
	return s.Sessions.GetByID(session.ID)
}

// GenerateMore appends new questions after the current maximum order. The
// session row stays exclusively locked for the whole transaction so two
// concurrent calls cannot compute the same next order; the loser of the lock
// waits and then sees the winner's turns.
func (s *InterviewService) GenerateMore(ctx context.Context, sessionID uuid.UUID, caller Caller, count int) (*models.InterviewSession, error) {
	if count <= 0 {
		return nil, badRequest("count must be a positive integer.")
	}
	if count > s.MaxQuestionCount {
		count = s.MaxQuestionCount
	}

	var added int
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.Sessions.WithTx(tx)

		session, err := repo.GetByIDForUpdate(sessionID)
		if err != nil {
			return err
		}
		if err := CanAccessSession(session, caller); err != nil {
			return err
		}
		if session.Status.IsTerminal() {
			return badRequest("Interview session is no longer active.")
		}

		turns, err := repo.ListTurns(sessionID)
		if err != nil {
			return err
		}
		existing := make([]string, 0, len(turns))
		existingSet := make(map[string]bool, len(turns))
		for _, turn := range turns {
			existing = append(existing, turn.Question)
			if key := normalizeQuestion(turn.Question); key != "" {
				existingSet[key] = true
			}
		}

		maxOrder, err := repo.MaxTurnOrder(sessionID)
		if err != nil {
			return err
		}
		nextOrder := maxOrder + 1

		resp, err := s.Engine.Generate(ctx, engine.GenerateRequest{
			SessionID:         session.EngineSessionID,
			Profile:           s.profileFor(session),
			Count:             count,
			ExistingQuestions: existing,
		})
		if err != nil {
			return err
		}

		questions := make([]string, 0, len(resp.Questions))
		for _, question := range cleanQuestions(resp.Questions) {
			if !existingSet[normalizeQuestion(question)] {
				questions = append(questions, question)
			}
		}
		if len(questions) == 0 {
			return badRequest("No new questions generated.")
		}

		now := time.Now()
		newTurns := make([]models.InterviewTurn, 0, len(questions))
		for i, question := range questions {
			newTurns = append(newTurns, models.InterviewTurn{
				SessionID: session.ID,
				OrderNo:   nextOrder + i,
				Question:  question,
				AskedAt:   &now,
			})
		}
		if err := repo.CreateTurns(newTurns); err != nil {
			return err
		}

		if resp.SessionID != "" && session.EngineSessionID == "" {
			session.EngineSessionID = resp.SessionID
		}
		session.Status = models.StatusInProgress
		if err := repo.Save(session); err != nil {
			return err
		}
		added = len(questions)
		return nil
	})
	if err != nil {
		return nil, asServiceError(err)
	}

	metrics.QuestionsGenerated(added)
	return s.Sessions.GetByID(sessionID)
}

// RecordAnswer stores a turn's answer. In per-answer evaluation mode the
// engine checks the answer immediately and may complete the session early
// when it returns an overall verdict (unless the caller asked for a check
// only).
func (s *InterviewService) RecordAnswer(ctx context.Context, sessionID uuid.UUID, order int, caller Caller, answer string, checkOnly bool) (*models.InterviewTurn, error) {
	var turn *models.InterviewTurn
	var session *models.InterviewSession

	trimmed := strings.TrimSpace(answer)
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.Sessions.WithTx(tx)

		var err error
		session, err = repo.GetByIDForUpdate(sessionID)
		if err != nil {
			return err
		}
		if err := CanAccessSession(session, caller); err != nil {
			return err
		}
		turn, err = repo.GetTurn(sessionID, order)
		if err != nil {
			return err
		}

		turn.Answer = answer
		if trimmed != "" {
			now := time.Now()
			turn.AnsweredAt = &now
		} else {
			turn.AnsweredAt = nil
		}
		return repo.SaveTurn(turn)
	})
	if err != nil {
		return nil, asServiceError(err)
	}

	if s.EvaluationMode != config.EvaluationModePerAnswer || trimmed == "" {
		return turn, nil
	}

	resp, err := s.Engine.Check(ctx, engine.CheckRequest{
		SessionID: session.EngineSessionID,
		Order:     turn.OrderNo,
		Question:  turn.Question,
		Answer:    turn.Answer,
	})
	if err != nil {
		return nil, asServiceError(err)
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.Sessions.WithTx(tx)

		session, err = repo.GetByIDForUpdate(sessionID)
		if err != nil {
			return err
		}
		if err := CanAccessSession(session, caller); err != nil {
			return err
		}

		turn.Feedback = resp.Feedback
		turn.Score = resp.Score
		turn.Meta = models.MetaToJSON(resp.Meta)
		if err := repo.SaveTurn(turn); err != nil {
			return err
		}

		if checkOnly || resp.Overall == nil || session.Status.IsTerminal() {
			return nil
		}
		completeSession(session, resp.Overall)
		return repo.Save(session)
	})
	if err != nil {
		return nil, asServiceError(err)
	}

	if session.Status == models.StatusCompleted {
		metrics.SessionCompleted()
		s.Events.PublishSessionCompleted(ctx, session)
	}
	return turn, nil
}

// Evaluate sends every turn to the engine and persists the verdicts
// all-or-nothing: a response missing any order leaves the session exactly as
// it was.
func (s *InterviewService) Evaluate(ctx context.Context, sessionID uuid.UUID, caller Caller, evalContext map[string]any, includeSummary bool) (*models.InterviewSession, error) {
	session, err := s.Sessions.GetByID(sessionID)
	if err != nil {
		return nil, asServiceError(err)
	}
	if err := CanAccessSession(session, caller); err != nil {
		return nil, asServiceError(err)
	}
	if session.Status != models.StatusInProgress {
		return nil, badRequest("Interview session is not active.")
	}

	missing := []int{}
	items := make([]engine.EvaluateItem, 0, len(session.Turns))
	for _, turn := range session.Turns {
		if strings.TrimSpace(turn.Answer) == "" {
			missing = append(missing, turn.OrderNo)
			continue
		}
		items = append(items, engine.EvaluateItem{
			Order:    turn.OrderNo,
			Question: turn.Question,
			Answer:   turn.Answer,
		})
	}
	if len(missing) > 0 {
		return nil, badRequest("Missing answers for questions: " + joinOrders(missing))
	}

	resp, err := s.Engine.Evaluate(ctx, engine.EvaluateRequest{
		SessionID:      session.EngineSessionID,
		Items:          items,
		Context:        evalContext,
		IncludeSummary: includeSummary,
	})
	if err != nil {
		return nil, asServiceError(err)
	}

	results := make(map[int]engine.TurnResult, len(resp.Results))
	for _, result := range resp.Results {
		results[result.Order] = result
	}
	incomplete := []int{}
	for _, turn := range session.Turns {
		if _, ok := results[turn.OrderNo]; !ok {
			incomplete = append(incomplete, turn.OrderNo)
		}
	}
	if len(incomplete) > 0 {
		return nil, badGateway("Interview engine returned incomplete results for orders: " + joinOrders(incomplete))
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.Sessions.WithTx(tx)

		locked, err := repo.GetByIDForUpdate(sessionID)
		if err != nil {
			return err
		}
		if err := CanAccessSession(locked, caller); err != nil {
			return err
		}
		// Re-checked under the lock: a cancel committed since the pre-check
		// must win, and turns added meanwhile must not be skipped.
		if locked.Status != models.StatusInProgress {
			return badRequest("Interview session is not active.")
		}

		turns, err := repo.ListTurns(sessionID)
		if err != nil {
			return err
		}
		for i := range turns {
			result, ok := results[turns[i].OrderNo]
			if !ok {
				continue
			}
			turns[i].Feedback = result.Feedback
			turns[i].Score = result.Score
			turns[i].Meta = models.MetaToJSON(result.Meta)
			if err := repo.SaveTurn(&turns[i]); err != nil {
				return err
			}
		}

		completeSession(locked, resp.Overall)
		if err := repo.Save(locked); err != nil {
			return err
		}
		session = locked
		return nil
	})
	if err != nil {
		return nil, asServiceError(err)
	}

	metrics.SessionCompleted()
	s.Events.PublishSessionCompleted(ctx, session)
	s.Logger.Info("interview session evaluated", zap.String("session_id", session.ID.String()))
	return s.Sessions.GetByID(sessionID)
}

// DeleteTurn removes a turn and leaves a gap; siblings keep their orders and
// the session status is untouched.
func (s *InterviewService) DeleteTurn(ctx context.Context, sessionID uuid.UUID, order int, caller Caller) error {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.Sessions.WithTx(tx)

		session, err := repo.GetByIDForUpdate(sessionID)
		if err != nil {
			return err
		}
		if err := CanAccessSession(session, caller); err != nil {
			return err
		}
		return repo.DeleteTurn(sessionID, order)
	})
	if err != nil {
		return asServiceError(err)
	}
	return nil
}

// Cancel marks a non-terminal session CANCELLED.
func (s *InterviewService) Cancel(ctx context.Context, sessionID uuid.UUID, caller Caller) (*models.InterviewSession, error) {
	var session *models.InterviewSession
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.Sessions.WithTx(tx)

		var err error
		session, err = repo.GetByIDForUpdate(sessionID)
		if err != nil {
			return err
		}
		if err := CanAccessSession(session, caller); err != nil {
			return err
		}
		if session.Status.IsTerminal() {
			return badRequest("Interview session is already finished.")
		}

		now := time.Now()
		session.Status = models.StatusCancelled
		session.EndedAt = &now
		return repo.Save(session)
	})
	if err != nil {
		return nil, asServiceError(err)
	}
	return s.Sessions.GetByID(sessionID)
}

// Get returns a session with its turns after the access check.
func (s *InterviewService) Get(sessionID uuid.UUID, caller Caller) (*models.InterviewSession, error) {
	session, err := s.Sessions.GetByID(sessionID)
	if err != nil {
		return nil, asServiceError(err)
	}
	if err := CanAccessSession(session, caller); err != nil {
		return nil, asServiceError(err)
	}
	return session, nil
}

// List returns the caller's own sessions, newest first.
func (s *InterviewService) List(userID uint) ([]models.InterviewSession, error) {
	sessions, err := s.Sessions.ListByUser(userID)
	if err != nil {
		return nil, asServiceError(err)
	}
	return sessions, nil
}

func (s *InterviewService) profileFor(session *models.InterviewSession) engine.Profile {
	return engine.Profile{
		Role:     session.Role,
		Level:    session.Level,
		Stack:    models.StackFromJSON(session.TechStack),
		Position: session.Position,
	}
}

// markFailed is best-effort: the engine error is what the caller needs to
// see, even if the status write itself fails.
func (s *InterviewService) markFailed(session *models.InterviewSession) {
	session.Status = models.StatusFailed
	if err := s.Sessions.Save(session); err != nil {
		s.Logger.Error("failed to mark session FAILED",
			zap.String("session_id", session.ID.String()), zap.Error(err))
	}
	metrics.SessionFailed()
}

func completeSession(session *models.InterviewSession, overall *engine.Overall) {
	if overall != nil {
		session.OverallFeedback = overall.Feedback
		session.OverallScore = overall.Score
		session.OverallMeta = models.MetaToJSON(overall.Meta)
	}
	now := time.Now()
	session.Status = models.StatusCompleted
	session.EndedAt = &now
	session.EvaluatedAt = &now
}

func cleanQuestions(questions []string) []string {
	cleaned := make([]string, 0, len(questions))
	for _, question := range questions {
		if q := strings.TrimSpace(question); q != "" {
			cleaned = append(cleaned, q)
		}
	}
	return cleaned
}

func cleanStack(stack []string) []string {
	cleaned := make([]string, 0, len(stack))
	for _, item := range stack {
		if s := strings.TrimSpace(item); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	return cleaned
}

// normalizeQuestion is the dedupe key for generate-more: trimmed and
// case-insensitive, applied against the full question history.
func normalizeQuestion(question string) string {
	return strings.ToLower(strings.TrimSpace(question))
}

func joinOrders(orders []int) string {
	sort.Ints(orders)
	parts := make([]string, 0, len(orders))
	for _, order := range orders {
		parts = append(parts, fmt.Sprintf("%d", order))
	}
	return strings.Join(parts, ", ")
}
