package repositories

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"prepmate/api/internal/models"
)

var (
	ErrSessionNotFound = errors.New("interview session not found")
	ErrTurnNotFound    = errors.New("interview turn not found")
)

// SessionRepository persists interview sessions and their turns. Mutating
// flows bind it to a transaction via WithTx so every read and write of one
// operation shares the same handle.
type SessionRepository struct {
	DB *gorm.DB
}

// WithTx returns a repository bound to the given transaction handle.
func (r *SessionRepository) WithTx(tx *gorm.DB) *SessionRepository {
	return &SessionRepository{DB: tx}
}

func (r *SessionRepository) Create(session *models.InterviewSession) error {
	return r.DB.Create(session).Error
}

// GetByID loads a session with its turns in ascending order.
func (r *SessionRepository) GetByID(id uuid.UUID) (*models.InterviewSession, error) {
	var session models.InterviewSession
	err := r.DB.
		Preload("Turns", func(db *gorm.DB) *gorm.DB { return db.Order("order_no ASC") }).
		First(&session, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// GetByIDForUpdate loads a session holding an exclusive row lock for the
// duration of the surrounding transaction, serializing concurrent mutations
// of the same session. SQLite has no row locks; its single-writer semantics
// cover the same guarantee in tests.
func (r *SessionRepository) GetByIDForUpdate(id uuid.UUID) (*models.InterviewSession, error) {
	tx := r.DB
	if tx.Dialector.Name() == "postgres" {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var session models.InterviewSession
	err := tx.First(&session, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) ListByUser(userID uint) ([]models.InterviewSession, error) {
	sessions := []models.InterviewSession{}
	err := r.DB.
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&sessions).Error
	return sessions, err
}

func (r *SessionRepository) Save(session *models.InterviewSession) error {
	return r.DB.Save(session).Error
}

// CreateTurns bulk-inserts a batch of turns; the whole batch applies or none
// of it does.
func (r *SessionRepository) CreateTurns(turns []models.InterviewTurn) error {
	if len(turns) == 0 {
		return nil
	}
	return r.DB.Create(&turns).Error
}

// ListTurns returns a session's turns in ascending order.
func (r *SessionRepository) ListTurns(sessionID uuid.UUID) ([]models.InterviewTurn, error) {
	turns := []models.InterviewTurn{}
	err := r.DB.
		Where("session_id = ?", sessionID).
		Order("order_no ASC").
		Find(&turns).Error
	return turns, err
}

// MaxTurnOrder returns the highest order in the session, or 0 when it has no
// turns. Gaps left by deletions are never compacted, so new turns always
// append strictly after this value.
func (r *SessionRepository) MaxTurnOrder(sessionID uuid.UUID) (int, error) {
	var max *int
	err := r.DB.Model(&models.InterviewTurn{}).
		Where("session_id = ?", sessionID).
		Select("MAX(order_no)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

func (r *SessionRepository) GetTurn(sessionID uuid.UUID, order int) (*models.InterviewTurn, error) {
	var turn models.InterviewTurn
	err := r.DB.
		Where("session_id = ? AND order_no = ?", sessionID, order).
		First(&turn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTurnNotFound
	}
	if err != nil {
		return nil, err
	}
	return &turn, nil
}

func (r *SessionRepository) SaveTurn(turn *models.InterviewTurn) error {
	return r.DB.Save(turn).Error
}

// DeleteTurn removes one turn by (session, order). Sibling turns keep their
// order values; the gap is intentional.
func (r *SessionRepository) DeleteTurn(sessionID uuid.UUID, order int) error {
	result := r.DB.
		Where("session_id = ? AND order_no = ?", sessionID, order).
		Delete(&models.InterviewTurn{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTurnNotFound
	}
	return nil
}
