package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fnxL/favorit/internal/domain"
	pkgkafka "github.com/fnxL/favorit/pkg/kafka"
)

// Kafka topic constants for auth domain events.
const (
	TopicUserRegistered     = "auth.user.registered"
	TopicTokenReuseDetected = "auth.token.reuse_detected"
	TopicSessionsRevoked    = "auth.sessions.revoked"
)

// Aggregate type constants.
const (
	AggregateTypeUser    = "user"
	AggregateTypeSession = "session"
)

// Source identifier for events originating from the auth service.
const SourceAuthService = "favorit-auth"

// UserRegisteredData is the payload for an auth.user.registered event.
type UserRegisteredData struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email"`
}

// TokenReuseDetectedData is the payload for an auth.token.reuse_detected
// event. It identifies the compromised account, never the token itself.
type TokenReuseDetectedData struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

// SessionsRevokedData is the payload for an auth.sessions.revoked event.
type SessionsRevokedData struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason"`
}

// Revocation reasons carried on auth.sessions.revoked events.
const (
	ReasonLogoutAll     = "logout_all"
	ReasonReuseDetected = "reuse_detected"
)

// Producer publishes auth domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the auth service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishUserRegistered publishes an auth.user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	data := UserRegisteredData{
		ID:       user.ID,
		Username: user.Username,
		FullName: user.FullName,
		Email:    user.Email,
	}

	event, err := pkgkafka.NewEvent(TopicUserRegistered, user.ID, AggregateTypeUser, SourceAuthService, data)
	if err != nil {
		return fmt.Errorf("create user.registered event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserRegistered, event); err != nil {
		return fmt.Errorf("publish user.registered event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.registered event",
		slog.String("user_id", user.ID),
	)

	return nil
}

// PublishTokenReuseDetected publishes an auth.token.reuse_detected event.
func (p *Producer) PublishTokenReuseDetected(ctx context.Context, userID, sessionID string) error {
	data := TokenReuseDetectedData{
		UserID:    userID,
		SessionID: sessionID,
	}

	event, err := pkgkafka.NewEvent(TopicTokenReuseDetected, sessionID, AggregateTypeSession, SourceAuthService, data)
	if err != nil {
		return fmt.Errorf("create token.reuse_detected event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicTokenReuseDetected, event); err != nil {
		return fmt.Errorf("publish token.reuse_detected event: %w", err)
	}

	p.logger.DebugContext(ctx, "published token.reuse_detected event",
		slog.String("user_id", userID),
		slog.String("session_id", sessionID),
	)

	return nil
}

// PublishSessionsRevoked publishes an auth.sessions.revoked event.
func (p *Producer) PublishSessionsRevoked(ctx context.Context, userID, reason string) error {
	data := SessionsRevokedData{
		UserID: userID,
		Reason: reason,
	}

	event, err := pkgkafka.NewEvent(TopicSessionsRevoked, userID, AggregateTypeUser, SourceAuthService, data)
	if err != nil {
		return fmt.Errorf("create sessions.revoked event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicSessionsRevoked, event); err != nil {
		return fmt.Errorf("publish sessions.revoked event: %w", err)
	}

	p.logger.DebugContext(ctx, "published sessions.revoked event",
		slog.String("user_id", userID),
		slog.String("reason", reason),
	)

	return nil
}
