package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pollroom/internal/poll"
	"pollroom/pkg/types"
)

func eventTypes(ds []Dispatch) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Message.Type
	}
	return out
}

func TestJoinAccepted_NoPoll(t *testing.T) {
	req := require.New(t)

	ds := JoinAccepted("c1", "Alice", LateJoin{}, []string{"Alice"})

	req.Equal([]string{types.EventJoinSuccess, types.EventRosterUpdate}, eventTypes(ds))
	req.Equal(TargetOne, ds[0].Target)
	req.Equal("c1", ds[0].ConnID)
	req.Nil(ds[0].Message.Payload.(types.JoinSuccess).CurrentPoll)
	req.Equal(TargetAll, ds[1].Target)
	req.Equal(types.Roster{Names: []string{"Alice"}}, ds[1].Message.Payload)
}

func TestJoinAccepted_LateJoin(t *testing.T) {
	req := require.New(t)
	view := &types.PollView{ID: "p1", Question: "Color?", Options: []string{"Red", "Blue"}}
	answer := 0
	results := &types.PollResults{Tally: types.Tally{Results: []int{1, 0}, TotalResponses: 1, TotalStudents: 1}, StudentAnswer: &answer}

	ds := JoinAccepted("c1", "Alice", LateJoin{View: view}, []string{"Alice"})
	req.Equal([]string{types.EventJoinSuccess, types.EventNewPoll, types.EventRosterUpdate}, eventTypes(ds))
	req.Equal(view, ds[1].Message.Payload)

	ds = JoinAccepted("c1", "Alice", LateJoin{View: view, Results: results}, []string{"Alice"})
	req.Equal([]string{types.EventJoinSuccess, types.EventNewPoll, types.EventPollResults, types.EventRosterUpdate}, eventTypes(ds))
	req.Equal(*results, ds[2].Message.Payload)
}

func TestErrorsGoToRequesterOnly(t *testing.T) {
	req := require.New(t)

	join := JoinRejected("c1", types.ErrNameTaken)
	req.Len(join, 1)
	req.Equal(TargetOne, join[0].Target)
	req.Equal(types.EventJoinError, join[0].Message.Type)
	req.Equal(types.ErrorPayload{Reason: "This name is already taken", Code: "name_taken"}, join[0].Message.Payload)

	perr := PollError("c2", types.ErrAlreadyActive)
	req.Equal(TargetOne, perr[0].Target)
	req.Equal("c2", perr[0].ConnID)
	req.Equal(types.EventPollError, perr[0].Message.Type)
}

func TestAnswerAccepted(t *testing.T) {
	req := require.New(t)
	tally := types.Tally{Results: []int{0, 1}, TotalResponses: 1, TotalStudents: 2}

	ds := AnswerAccepted("c1", 1, tally)

	req.Equal([]string{types.EventAnswerReceived, types.EventPollResults}, eventTypes(ds))
	for _, d := range ds {
		req.Equal(TargetOne, d.Target)
		req.Equal("c1", d.ConnID)
	}
	results := ds[1].Message.Payload.(types.PollResults)
	req.Equal(1, *results.StudentAnswer)
	req.Equal(tally, results.Tally)
}

func TestPollEnded(t *testing.T) {
	req := require.New(t)
	final := &poll.FinalResults{
		Poll:     &poll.Poll{ID: "p1", Options: []string{"a", "b"}},
		Tally:    types.Tally{Results: []int{1, 1}, TotalResponses: 2, TotalStudents: 2},
		Reason:   poll.ReasonQuorum,
		ClosedAt: time.Now(),
	}

	ds := PollEnded(final)

	req.Len(ds, 1)
	req.Equal(TargetAll, ds[0].Target)
	req.Equal(types.PollEnded{PollID: "p1", Tally: final.Tally, Reason: "quorum"}, ds[0].Message.Payload)
}

func TestKicked(t *testing.T) {
	req := require.New(t)

	ds := Kicked("c1", []string{"Bob"})

	req.Equal([]string{types.EventKicked, types.EventRosterUpdate}, eventTypes(ds))
	req.Equal(TargetOne, ds[0].Target)
	req.Equal("c1", ds[0].ConnID)
	req.Equal(TargetAllExcept, ds[1].Target)
	req.Equal("c1", ds[1].ConnID)
}

func TestRosterNeverNull(t *testing.T) {
	ds := RosterChanged(nil)

	require.Equal(t, types.Roster{Names: []string{}}, ds[0].Message.Payload)
}

func TestBroadcasts(t *testing.T) {
	req := require.New(t)

	req.Equal(TargetAll, PollCreated(&types.PollView{ID: "p1"})[0].Target)
	req.Equal(TargetAll, ChatMessage(types.ChatBroadcast{Text: "hi"})[0].Target)
	req.Equal(TargetOne, ParticipantsFetched("c1", []string{"A"})[0].Target)
	req.Equal(types.EventConnected, Connected("c1")[0].Message.Type)
}
