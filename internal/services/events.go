package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"prepmate/api/internal/models"
)

const sessionCompletedChannel = "session_completed"

// SessionCompletedEvent is published when a session reaches COMPLETED, for
// downstream consumers (history aggregation, notifications).
type SessionCompletedEvent struct {
	SessionID   string     `json:"session_id"`
	UserID      *uint      `json:"user_id"`
	Role        string     `json:"role"`
	Level       string     `json:"level"`
	Score       *float64   `json:"score"`
	CompletedAt *time.Time `json:"completed_at"`
}

// EventPublisher fans session lifecycle events out over redis pub/sub. A nil
// publisher (redis not configured) silently drops events.
type EventPublisher struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewEventPublisher(redisAddr string, logger *zap.Logger) *EventPublisher {
	if redisAddr == "" {
		return nil
	}
	return &EventPublisher{
		rdb:    redis.NewClient(&redis.Options{Addr: redisAddr}),
		logger: logger,
	}
}

// PublishSessionCompleted emits the completion event. Publish failures are
// logged, never surfaced: the session mutation has already committed.
func (p *EventPublisher) PublishSessionCompleted(ctx context.Context, session *models.InterviewSession) {
	if p == nil {
		return
	}
	event := SessionCompletedEvent{
		SessionID:   session.ID.String(),
		UserID:      session.UserID,
		Role:        session.Role,
		Level:       session.Level,
		Score:       session.OverallScore,
		CompletedAt: session.EvaluatedAt,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := p.rdb.Publish(ctx, sessionCompletedChannel, payload).Err(); err != nil {
		p.logger.Warn("failed to publish session completed event",
			zap.String("session_id", event.SessionID), zap.Error(err))
	}
}
