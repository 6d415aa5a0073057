package poll

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"pollroom/pkg/types"
)

// Poll is one question with its options. Options are stored trimmed.
type Poll struct {
	ID        string
	Question  string
	Options   []string
	CreatedBy string
	CreatedAt time.Time
	ExpiresAt time.Time
	TimeLimit time.Duration
	Active    bool
}

// Limits bounds the time limit a creator may request.
type Limits struct {
	Default time.Duration
	Min     time.Duration
	Max     time.Duration
}

func DefaultLimits() Limits {
	return Limits{
		Default: 60 * time.Second,
		Min:     10 * time.Second,
		Max:     300 * time.Second,
	}
}

// Clamp converts a requested limit in seconds into a duration. Zero selects
// the default; everything else is clamped into [Min, Max].
func (l Limits) Clamp(seconds int) time.Duration {
	if seconds == 0 {
		return l.within(l.Default)
	}
	// Compare in whole seconds so huge requests cannot overflow the duration.
	if int64(seconds) > int64(l.Max/time.Second) {
		return l.Max
	}
	if int64(seconds) < int64(l.Min/time.Second) {
		return l.Min
	}
	return l.within(time.Duration(seconds) * time.Second)
}

func (l Limits) within(d time.Duration) time.Duration {
	if d < l.Min {
		return l.Min
	}
	if d > l.Max {
		return l.Max
	}
	return d
}

// NewPoll validates a create request and builds an active poll starting at now.
func NewPoll(req types.CreatePollRequest, createdBy string, now time.Time, limits Limits) (*Poll, error) {
	question := strings.TrimSpace(req.Question)
	options := lo.FilterMap(req.Options, func(option string, _ int) (string, bool) {
		option = strings.TrimSpace(option)
		return option, option != ""
	})

	if err := types.ValidatePollShape(question, options); err != nil {
		return nil, err
	}

	limit := limits.Clamp(req.TimeLimit)
	return &Poll{
		ID:        uuid.New().String(),
		Question:  question,
		Options:   options,
		CreatedBy: createdBy,
		CreatedAt: now,
		ExpiresAt: now.Add(limit),
		TimeLimit: limit,
		Active:    true,
	}, nil
}

// View renders the poll for clients. hasAnswered is nil for broadcast views.
func (p *Poll) View(now time.Time, hasAnswered *bool) *types.PollView {
	remaining := int(p.ExpiresAt.Sub(now).Round(time.Second) / time.Second)
	if remaining < 0 {
		remaining = 0
	}
	return &types.PollView{
		ID:               p.ID,
		Question:         p.Question,
		Options:          append([]string(nil), p.Options...),
		CreatedBy:        p.CreatedBy,
		CreatedAt:        p.CreatedAt,
		ExpiresAt:        p.ExpiresAt,
		TimeLimit:        int(p.TimeLimit / time.Second),
		RemainingSeconds: remaining,
		IsActive:         p.Active,
		HasAnswered:      hasAnswered,
	}
}

func (p *Poll) clone() *Poll {
	c := *p
	c.Options = append([]string(nil), p.Options...)
	return &c
}
