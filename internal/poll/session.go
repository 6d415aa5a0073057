// Package poll implements the single-active-poll state machine and its tally.
package poll

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"pollroom/internal/moderation"
	"pollroom/pkg/types"
)

// State of a Session.
type State int

const (
	Idle State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "idle"
}

// CloseReason records why a poll closed.
type CloseReason string

const (
	ReasonExpired CloseReason = "expired"
	ReasonQuorum  CloseReason = "quorum"
)

// Timer is a cancellable one-shot timer. Stop must be safe to call after the
// timer has fired.
type Timer interface {
	Stop() bool
}

// Scheduler arms one-shot timers.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealScheduler returns a Scheduler backed by time.AfterFunc.
func RealScheduler() Scheduler {
	return realScheduler{}
}

// Config wires a Session to its collaborators. Zero values select defaults.
type Config struct {
	Limits    Limits
	Scheduler Scheduler
	Now       func() time.Time
	Bans      *moderation.BanList

	// OnExpire is called from the timer goroutine with the id of the poll
	// whose deadline passed. It must only hand the id to the session's owner,
	// which then calls Expire.
	OnExpire func(pollID string)
}

// FinalResults describes a poll that has just closed.
type FinalResults struct {
	Poll      *Poll
	Responses map[string]Response
	Tally     types.Tally
	Reason    CloseReason
	ClosedAt  time.Time
}

// Ended renders the poll-ended payload.
func (f *FinalResults) Ended() types.PollEnded {
	return types.PollEnded{PollID: f.Poll.ID, Tally: f.Tally, Reason: string(f.Reason)}
}

// Record builds the archived form of the closed poll. Responses are ordered
// by submission time, then name.
func (f *FinalResults) Record(bannedStudents []string) *types.PollRecord {
	names := lo.Keys(f.Responses)
	sort.Slice(names, func(i, j int) bool {
		a, b := f.Responses[names[i]], f.Responses[names[j]]
		if !a.SubmittedAt.Equal(b.SubmittedAt) {
			return a.SubmittedAt.Before(b.SubmittedAt)
		}
		return names[i] < names[j]
	})

	responses := lo.Map(names, func(name string, _ int) types.ResponseRecord {
		r := f.Responses[name]
		return types.ResponseRecord{
			PollID:      f.Poll.ID,
			StudentName: name,
			Answer:      r.Option,
			SubmittedAt: r.SubmittedAt,
			IsValid:     true,
		}
	})

	if bannedStudents == nil {
		bannedStudents = []string{}
	}
	return &types.PollRecord{
		ID:             f.Poll.ID,
		Question:       f.Poll.Question,
		Options:        append([]string(nil), f.Poll.Options...),
		CreatedBy:      f.Poll.CreatedBy,
		CreatedAt:      f.Poll.CreatedAt,
		ExpiresAt:      f.Poll.ExpiresAt,
		ClosedAt:       f.ClosedAt,
		IsActive:       false,
		CloseReason:    string(f.Reason),
		BannedStudents: append([]string(nil), bannedStudents...),
		Tally: types.Tally{
			Results:        append([]int(nil), f.Tally.Results...),
			TotalResponses: f.Tally.TotalResponses,
			TotalStudents:  f.Tally.TotalStudents,
		},
		Responses: responses,
	}
}

// SubmitResult is returned for an accepted answer. Closed is set when the
// answer completed the roster and the poll closed on the spot.
type SubmitResult struct {
	Answer int
	Tally  types.Tally
	Closed *FinalResults
}

// Session holds at most one active poll and its responses.
//
// A Session is not safe for concurrent use: it is owned by a single
// goroutine, and timer expiry reaches it only through Config.OnExpire.
type Session struct {
	limits    Limits
	scheduler Scheduler
	now       func() time.Time
	bans      *moderation.BanList
	onExpire  func(pollID string)

	state     State
	poll      *Poll
	responses map[string]Response
	timer     Timer
}

func NewSession(cfg Config) *Session {
	if cfg.Limits == (Limits{}) {
		cfg.Limits = DefaultLimits()
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = RealScheduler()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Session{
		limits:    cfg.Limits,
		scheduler: cfg.Scheduler,
		now:       cfg.Now,
		bans:      cfg.Bans,
		onExpire:  cfg.OnExpire,
		state:     Idle,
		responses: make(map[string]Response),
	}
}

func (s *Session) State() State {
	return s.state
}

// Create starts a new poll. The returned poll is a copy.
func (s *Session) Create(req types.CreatePollRequest, createdBy string) (*Poll, error) {
	if s.state == Active {
		return nil, types.ErrAlreadyActive
	}

	p, err := NewPoll(req, createdBy, s.now(), s.limits)
	if err != nil {
		return nil, err
	}

	s.poll = p
	s.responses = make(map[string]Response)
	s.state = Active

	pollID := p.ID
	s.timer = s.scheduler.AfterFunc(p.TimeLimit, func() {
		if s.onExpire != nil {
			s.onExpire(pollID)
		}
	})

	return p.clone(), nil
}

// Submit records name's answer. roster is the list of currently registered
// students; when every one of them has answered the poll closes immediately.
func (s *Session) Submit(name string, rawAnswer string, roster []string) (SubmitResult, error) {
	if name == "" {
		return SubmitResult{}, types.ErrNotRegistered
	}
	if s.state != Active {
		return SubmitResult{}, types.ErrNoActivePoll
	}
	if s.bans.IsBanned(name) {
		return SubmitResult{}, types.ErrBanned
	}
	if _, answered := s.responses[name]; answered {
		return SubmitResult{}, types.ErrAlreadyAnswered
	}

	now := s.now()
	if now.After(s.poll.ExpiresAt) {
		return SubmitResult{}, types.ErrExpired
	}

	option, err := types.ParseOptionIndex(rawAnswer, len(s.poll.Options))
	if err != nil {
		return SubmitResult{}, err
	}

	s.responses[name] = Response{Option: option, SubmittedAt: now}
	result := SubmitResult{
		Answer: option,
		Tally:  Tally(s.poll, s.responses, roster),
	}

	if s.quorumReached(roster) {
		result.Closed, _ = s.Close(ReasonQuorum, roster)
	}
	return result, nil
}

func (s *Session) quorumReached(roster []string) bool {
	if len(roster) == 0 {
		return false
	}
	return lo.EveryBy(roster, func(name string) bool {
		_, ok := s.responses[name]
		return ok
	})
}

// Close ends the active poll. It returns false when there was nothing to
// close, so calling it twice yields one set of final results.
func (s *Session) Close(reason CloseReason, roster []string) (*FinalResults, bool) {
	if s.state != Active {
		return nil, false
	}

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}

	final := &FinalResults{
		Poll:      s.poll,
		Responses: s.responses,
		Tally:     Tally(s.poll, s.responses, roster),
		Reason:    reason,
		ClosedAt:  s.now(),
	}
	final.Poll.Active = false

	s.poll = nil
	s.responses = make(map[string]Response)
	s.state = Idle
	return final, true
}

// Expire handles a timer firing for pollID. A firing that belongs to an
// earlier poll is ignored.
func (s *Session) Expire(pollID string, roster []string) (*FinalResults, bool) {
	if s.state != Active || s.poll.ID != pollID {
		return nil, false
	}
	return s.Close(ReasonExpired, roster)
}

// HasAnswered reports whether name answered the active poll.
func (s *Session) HasAnswered(name string) bool {
	if s.state != Active {
		return false
	}
	_, ok := s.responses[name]
	return ok
}

// PastDeadline reports whether the active poll's deadline has passed even if
// its timer has not fired yet.
func (s *Session) PastDeadline() bool {
	return s.state == Active && s.now().After(s.poll.ExpiresAt)
}

// CurrentView renders the active poll for name. An empty name produces the
// broadcast view without hasAnswered.
func (s *Session) CurrentView(name string) (*types.PollView, bool) {
	if s.state != Active {
		return nil, false
	}
	var hasAnswered *bool
	if name != "" {
		answered := s.HasAnswered(name)
		hasAnswered = &answered
	}
	return s.poll.View(s.now(), hasAnswered), true
}

// LiveTally is the tally of the active poll.
func (s *Session) LiveTally(roster []string) (types.Tally, bool) {
	if s.state != Active {
		return types.Tally{}, false
	}
	return Tally(s.poll, s.responses, roster), true
}

// Results returns the live results for a student who has answered. Once the
// deadline has passed anyone may see them.
func (s *Session) Results(name string, roster []string) (types.PollResults, error) {
	if s.state != Active {
		return types.PollResults{}, types.ErrNoActivePoll
	}

	results := types.PollResults{Tally: Tally(s.poll, s.responses, roster)}
	if r, ok := s.responses[name]; ok {
		answer := r.Option
		results.StudentAnswer = &answer
		return results, nil
	}
	if s.PastDeadline() {
		return results, nil
	}
	return types.PollResults{}, types.ErrNotAnswered
}
