package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"teamtrack/internal/models"
	"teamtrack/internal/observability"
	"teamtrack/internal/policy"
	"teamtrack/internal/progress"
	"teamtrack/internal/repository"
)

// MaxMessageLen is the longest chat line accepted, in characters.
const MaxMessageLen = 1000

// ChatService posts chat lines and serves the daily view and the audit log.
type ChatService struct {
	chatRepo repository.ChatRepository
	loc      *time.Location
}

// NewChatService returns a ChatService that decides "today" in loc.
func NewChatService(chatRepo repository.ChatRepository, loc *time.Location) *ChatService {
	if loc == nil {
		loc = time.Local
	}
	return &ChatService{chatRepo: chatRepo, loc: loc}
}

// VisibleMessages keeps the messages posted on ref's calendar day in loc,
// preserving order.
func VisibleMessages(all []models.ChatMessage, ref time.Time, loc *time.Location) []models.ChatMessage {
	start := progress.Normalize(ref, loc)
	end := start.AddDate(0, 0, 1)
	out := make([]models.ChatMessage, 0, len(all))
	for _, m := range all {
		if !m.Timestamp.Before(start) && m.Timestamp.Before(end) {
			out = append(out, m)
		}
	}
	return out
}

// Send posts a message as actor.
func (s *ChatService) Send(ctx context.Context, actor policy.Actor, text string, now time.Time) (*models.ChatMessage, error) {
	if actor.ID == "" {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, models.NewValidationError("message is required")
	}
	if utf8.RuneCountInString(text) > MaxMessageLen {
		return nil, models.NewValidationError("message must be at most 1000 characters")
	}

	msg := &models.ChatMessage{UserID: actor.ID, Message: text, Timestamp: now}
	if err := s.chatRepo.Append(ctx, msg); err != nil {
		return nil, err
	}
	observability.ChatMessages.Inc()
	return msg, nil
}

// Today returns the messages posted since midnight, oldest first.
func (s *ChatService) Today(ctx context.Context, now time.Time) ([]models.ChatMessage, error) {
	msgs, err := s.chatRepo.ListSince(ctx, progress.Normalize(now, s.loc).UTC())
	if err != nil {
		return nil, err
	}
	return VisibleMessages(msgs, now, s.loc), nil
}

// Logs returns the whole chat history, newest first. Admin only.
func (s *ChatService) Logs(ctx context.Context, actor policy.Actor) ([]models.ChatMessage, error) {
	if !policy.CanReadAudit(actor) {
		return nil, models.NewForbiddenError("Only admins can read chat logs")
	}
	return s.chatRepo.ListAll(ctx, true)
}
