package archive

import "errors"

var (
	ErrStoreClosed     = errors.New("archive store is closed")
	ErrWriteTimeout    = errors.New("archive write timed out")
	ErrAlreadyArchived = errors.New("poll already archived")
	ErrNilRecord       = errors.New("poll record is nil")
)
