package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SessionStatus is the lifecycle state of an interview session.
type SessionStatus string

const (
	StatusCreated    SessionStatus = "CREATED"
	StatusInProgress SessionStatus = "IN_PROGRESS"
	StatusCompleted  SessionStatus = "COMPLETED"
	StatusFailed     SessionStatus = "FAILED"
	StatusCancelled  SessionStatus = "CANCELLED"
)

// IsTerminal reports whether no further transition is possible without
// administrative intervention.
func (s SessionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// InterviewSession is one practice interview. A session without an owning
// user is guest-owned and protected by PublicToken instead.
type InterviewSession struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          *uint          `gorm:"index" json:"user_id"`
	Role            string         `gorm:"not null" json:"role"`
	Position        string         `json:"position"`
	Level           string         `gorm:"size:16" json:"level"`
	TechStack       datatypes.JSON `json:"tech_stack"`
	EngineSessionID string         `json:"-"`
	PublicToken     string         `gorm:"index" json:"-"`
	Status          SessionStatus  `gorm:"size:16;not null;index" json:"status"`
	OverallFeedback string         `gorm:"type:text" json:"overall_feedback"`
	OverallScore    *float64       `json:"overall_score"`
	OverallMeta     datatypes.JSON `json:"overall_meta"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	StartedAt       *time.Time     `json:"started_at"`
	EndedAt         *time.Time     `json:"ended_at"`
	EvaluatedAt     *time.Time     `json:"evaluated_at"`

	Turns []InterviewTurn `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"turns"`
}

func (s *InterviewSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// InterviewTurn is one question/answer record within a session. OrderNo is
// 1-based and unique per session; deleting a turn is a hard delete that
// leaves a gap, siblings are never renumbered.
type InterviewTurn struct {
	ID         uint           `gorm:"primaryKey" json:"-"`
	CreatedAt  time.Time      `json:"-"`
	UpdatedAt  time.Time      `json:"-"`
	SessionID  uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_turn_session_order" json:"-"`
	OrderNo    int            `gorm:"column:order_no;not null;uniqueIndex:idx_turn_session_order" json:"order"`
	Question   string         `gorm:"type:text;not null" json:"question"`
	Answer     string         `gorm:"type:text" json:"answer"`
	Feedback   string         `gorm:"type:text" json:"feedback"`
	Score      *float64       `json:"score"`
	Meta       datatypes.JSON `json:"meta"`
	AskedAt    *time.Time     `json:"asked_at"`
	AnsweredAt *time.Time     `json:"answered_at"`
}

// StackToJSON encodes a tech stack list for storage, treating nil as empty.
func StackToJSON(stack []string) datatypes.JSON {
	if stack == nil {
		stack = []string{}
	}
	raw, _ := json.Marshal(stack)
	return datatypes.JSON(raw)
}

// StackFromJSON decodes a stored tech stack column, tolerating NULL.
func StackFromJSON(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var stack []string
	if err := json.Unmarshal(raw, &stack); err != nil {
		return []string{}
	}
	return stack
}

// MetaToJSON encodes structured engine metadata, treating nil as empty.
func MetaToJSON(meta map[string]any) datatypes.JSON {
	if meta == nil {
		meta = map[string]any{}
	}
	raw, _ := json.Marshal(meta)
	return datatypes.JSON(raw)
}
