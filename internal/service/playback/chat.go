package playback

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/metrics"
	"github.com/sharetube/watchparty/internal/repository/store"
)

const MaxMessageLength = 2000

// PostMessage appends a chat message to the room. The append is atomic in
// the store so concurrent posts are never lost; only the newest
// historyLimit messages are kept.
func (e *Engine) PostMessage(ctx context.Context, roomId string, user domain.User, text string) (domain.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ChatMessage{}, fmt.Errorf("%w: message is empty", domain.ErrInvalidInput)
	}

	if utf8.RuneCountInString(text) > MaxMessageLength {
		return domain.ChatMessage{}, fmt.Errorf("%w: message longer than %d characters", domain.ErrInvalidInput, MaxMessageLength)
	}

	message := domain.ChatMessage{
		Id:        uuid.NewString(),
		UserId:    user.Id,
		UserName:  user.DisplayName(),
		Text:      text,
		Timestamp: e.now().UnixMilli(),
	}

	raw, err := json.Marshal(message)
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("failed to marshal message: %w", err)
	}

	if _, err := e.store.Append(ctx, store.MessagesKey(roomId), raw, e.historyLimit); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("failed to post message: %w", err)
	}
	metrics.ChatMessages.Inc()

	return message, nil
}

// PollMessages returns the room's chat ordered by timestamp, ties in
// insertion order.
func (e *Engine) PollMessages(ctx context.Context, roomId string) ([]domain.ChatMessage, error) {
	entries, err := e.store.Range(ctx, store.MessagesKey(roomId))
	if err != nil {
		return nil, fmt.Errorf("failed to poll messages: %w", err)
	}

	messages := make([]domain.ChatMessage, 0, len(entries))
	for _, raw := range entries {
		var message domain.ChatMessage
		if err := json.Unmarshal(raw, &message); err != nil {
			e.logger.WarnContext(ctx, "skipping malformed chat message", "room_id", roomId, "error", err)
			continue
		}
		messages = append(messages, message)
	}
	domain.SortMessages(messages)

	return messages, nil
}

// NewMessagesSince returns the messages after the one with lastSeenId. An
// empty or unknown id, e.g. one trimmed out of the history, yields all.
func NewMessagesSince(messages []domain.ChatMessage, lastSeenId string) []domain.ChatMessage {
	if lastSeenId == "" {
		return messages
	}

	for i, m := range messages {
		if m.Id == lastSeenId {
			return messages[i+1:]
		}
	}

	return messages
}
