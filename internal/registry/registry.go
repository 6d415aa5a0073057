// Package registry maps student display names to live connections.
package registry

import (
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"pollroom/internal/moderation"
	"pollroom/pkg/types"
)

// Peer is the part of a connection the registry needs.
type Peer interface {
	ID() string
	IsAlive() bool
}

// Identity is the result of a successful Join.
type Identity struct {
	Name     string
	ConnID   string
	JoinedAt time.Time

	// Unchanged is set when the same connection re-joined under its
	// current name.
	Unchanged bool
	// Previous is the name this connection held before a rename.
	Previous string
	// Displaced is a dead connection whose name was reclaimed.
	Displaced Peer
}

type entry struct {
	peer     Peer
	joinedAt time.Time
}

// Registry keeps name <-> connection in both directions. Each name maps to at
// most one connection and each connection holds at most one name.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]entry
	byConn map[string]string
	order  []string
	bans   *moderation.BanList
	now    func() time.Time
}

func New(bans *moderation.BanList) *Registry {
	return &Registry{
		byName: make(map[string]entry),
		byConn: make(map[string]string),
		bans:   bans,
		now:    time.Now,
	}
}

// Join registers peer under name. A name held by a dead connection is taken
// over; a name held by another live connection is refused.
func (r *Registry) Join(name string, peer Peer) (Identity, error) {
	if peer == nil {
		return Identity{}, ErrNilPeer
	}

	name = strings.TrimSpace(name)
	if err := types.ValidateStudentName(name); err != nil {
		return Identity{}, err
	}
	if r.bans.IsBanned(name) {
		return Identity{}, types.ErrBanned
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	connID := peer.ID()
	id := Identity{Name: name, ConnID: connID}

	if existing, ok := r.byName[name]; ok {
		switch {
		case existing.peer.ID() == connID:
			id.JoinedAt = existing.joinedAt
			id.Unchanged = true
			return id, nil
		case existing.peer.IsAlive():
			return Identity{}, types.ErrNameTaken
		default:
			r.removeLocked(name)
			id.Displaced = existing.peer
		}
	}

	if previous, ok := r.byConn[connID]; ok {
		r.removeLocked(previous)
		id.Previous = previous
	}

	id.JoinedAt = r.now()
	r.byName[name] = entry{peer: peer, joinedAt: id.JoinedAt}
	r.byConn[connID] = name
	r.order = append(r.order, name)
	return id, nil
}

// Resolve returns the name registered for a connection.
func (r *Registry) Resolve(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, ok := r.byConn[connID]
	return name, ok
}

// lookup returns the connection registered under name.
func (r *Registry) lookup(name string) (Peer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byName[name]
	return e.peer, ok
}

// Remove deletes name and its connection mapping.
func (r *Registry) Remove(name string) (Peer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	r.removeLocked(name)
	return e.peer, true
}

// RemoveConnection deletes whatever name connID holds. Used on disconnect.
func (r *Registry) RemoveConnection(connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name, ok := r.byConn[connID]
	if !ok {
		return "", false
	}
	r.removeLocked(name)
	return name, true
}

func (r *Registry) removeLocked(name string) {
	e, ok := r.byName[name]
	if !ok {
		return
	}
	delete(r.byName, name)
	// only drop the reverse mapping if it still points at this name
	if r.byConn[e.peer.ID()] == name {
		delete(r.byConn, e.peer.ID())
	}
	r.order = lo.Without(r.order, name)
}

// Roster returns registered names in join order. The slice is a copy.
func (r *Registry) Roster() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string{}, r.order...)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byName)
}
