package registry

import "errors"

var (
	ErrNilPeer = errors.New("peer is nil")
)
