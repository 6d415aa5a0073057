// Package chat relays free-text messages to every connection.
package chat

import (
	"strings"
	"time"
	"unicode/utf8"

	"pollroom/pkg/types"
)

// ModeratorName tags messages from connections that never joined as students.
const ModeratorName = "moderator"

// Config for a Relay. Zero values select the defaults.
type Config struct {
	MaxLength          int
	RateLimitPerMinute int
	Now                func() time.Time
}

const (
	DefaultMaxLength          = 1000
	DefaultRateLimitPerMinute = 30
)

// Relay validates chat lines and tags them with their sender.
type Relay struct {
	maxLength int
	limiter   *RateLimiter
}

func NewRelay(cfg Config) *Relay {
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = DefaultMaxLength
	}
	if cfg.RateLimitPerMinute == 0 {
		cfg.RateLimitPerMinute = DefaultRateLimitPerMinute
	}
	return &Relay{
		maxLength: cfg.MaxLength,
		limiter:   NewRateLimiter(cfg.RateLimitPerMinute, cfg.Now),
	}
}

// Relay turns a chat line into the broadcast payload. senderName is empty
// when the connection has not joined.
func (r *Relay) Relay(senderID, senderName, text string) (types.ChatBroadcast, error) {
	if strings.TrimSpace(text) == "" {
		return types.ChatBroadcast{}, types.ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > r.maxLength {
		return types.ChatBroadcast{}, types.ErrMessageTooLong
	}
	if !r.limiter.Allow(senderID) {
		return types.ChatBroadcast{}, types.ErrRateLimited
	}

	if senderName == "" {
		senderName = ModeratorName
	}
	return types.ChatBroadcast{
		Text:               text,
		SenderName:         senderName,
		SenderConnectionID: senderID,
	}, nil
}

// Forget releases per-connection state.
func (r *Relay) Forget(connID string) {
	r.limiter.Forget(connID)
}
