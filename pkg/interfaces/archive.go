package interfaces

import (
	"context"

	"pollroom/pkg/types"
)

//go:generate mockgen -source=archive.go -destination=mocks/mock_archive.go -package=mocks

// PollArchive stores closed polls. The live session never reads from it.
type PollArchive interface {
	// ArchivePoll persists a closed poll and its responses atomically.
	ArchivePoll(ctx context.Context, record *types.PollRecord) error

	// ListPolls returns the most recently closed polls, newest first,
	// without their responses.
	ListPolls(ctx context.Context, limit int) ([]*types.PollRecord, error)

	// GetPoll returns one archived poll with its responses.
	GetPoll(ctx context.Context, pollID string) (*types.PollRecord, error)

	// HealthCheck verifies the archive is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases the archive's resources.
	Close() error
}
