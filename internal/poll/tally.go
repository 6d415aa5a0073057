package poll

import (
	"time"

	"github.com/samber/lo"

	"pollroom/pkg/types"
)

// Response is one student's answer to the active poll.
type Response struct {
	Option      int
	SubmittedAt time.Time
}

// Tally counts responses per option. Students who answered and then left
// still count as participants, so TotalResponses never exceeds TotalStudents.
// It does not modify its arguments.
func Tally(p *Poll, responses map[string]Response, roster []string) types.Tally {
	if p == nil {
		return types.Tally{Results: []int{}, TotalStudents: len(roster)}
	}

	results := make([]int, len(p.Options))
	for _, r := range responses {
		if r.Option >= 0 && r.Option < len(results) {
			results[r.Option]++
		}
	}

	participants := lo.Union(roster, lo.Keys(responses))
	return types.Tally{
		Results:        results,
		TotalResponses: lo.Sum(results),
		TotalStudents:  len(participants),
	}
}
