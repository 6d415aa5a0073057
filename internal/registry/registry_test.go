package registry

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"pollroom/internal/moderation"
	"pollroom/pkg/types"
)

type fakePeer struct {
	id    string
	alive bool
}

func (p *fakePeer) ID() string    { return p.id }
func (p *fakePeer) IsAlive() bool { return p.alive }

func peer(id string) *fakePeer {
	return &fakePeer{id: id, alive: true}
}

func TestRegistry_Join(t *testing.T) {
	req := require.New(t)

	// Given
	r := New(nil)

	// When
	id, err := r.Join("  Alice ", peer("c1"))

	// Then
	req.NoError(err)
	req.Equal("Alice", id.Name)
	req.Equal("c1", id.ConnID)
	req.False(id.Unchanged)

	name, ok := r.Resolve("c1")
	req.True(ok)
	req.Equal("Alice", name)
	req.Equal([]string{"Alice"}, r.Roster())
}

func TestRegistry_JoinValidation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"empty", "", types.ErrNameRequired},
		{"blank", "   ", types.ErrNameRequired},
		{"too long", strings.Repeat("x", 51), types.ErrNameTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(nil)

			_, err := r.Join(tt.input, peer("c1"))

			require.ErrorIs(t, err, tt.wantErr)
			require.Equal(t, 0, r.Len())
		})
	}
}

func TestRegistry_JoinNilPeer(t *testing.T) {
	_, err := New(nil).Join("Alice", nil)

	require.ErrorIs(t, err, ErrNilPeer)
}

func TestRegistry_NameTakenByLiveConnection(t *testing.T) {
	req := require.New(t)

	r := New(nil)
	_, err := r.Join("Alice", peer("c1"))
	req.NoError(err)

	_, err = r.Join("Alice", peer("c2"))

	req.ErrorIs(err, types.ErrNameTaken)
	p, ok := r.lookup("Alice")
	req.True(ok)
	req.Equal("c1", p.ID())
	_, ok = r.Resolve("c2")
	req.False(ok)
}

func TestRegistry_ReclaimFromDeadConnection(t *testing.T) {
	req := require.New(t)

	// Given
	r := New(nil)
	old := peer("c1")
	_, err := r.Join("Alice", old)
	req.NoError(err)
	old.alive = false

	// When
	id, err := r.Join("Alice", peer("c2"))

	// Then
	req.NoError(err)
	req.Same(old, id.Displaced)
	p, _ := r.lookup("Alice")
	req.Equal("c2", p.ID())
	_, ok := r.Resolve("c1")
	req.False(ok)
	req.Equal(1, r.Len())
}

func TestRegistry_RejoinSameConnectionIsIdempotent(t *testing.T) {
	req := require.New(t)

	r := New(nil)
	c := peer("c1")
	first, err := r.Join("Alice", c)
	req.NoError(err)

	again, err := r.Join("Alice", c)

	req.NoError(err)
	req.True(again.Unchanged)
	req.Equal(first.JoinedAt, again.JoinedAt)
	req.Equal([]string{"Alice"}, r.Roster())
}

func TestRegistry_RenameReleasesOldName(t *testing.T) {
	req := require.New(t)

	r := New(nil)
	c := peer("c1")
	_, err := r.Join("Alice", c)
	req.NoError(err)

	id, err := r.Join("Alicia", c)

	req.NoError(err)
	req.Equal("Alice", id.Previous)
	req.Equal([]string{"Alicia"}, r.Roster())
	_, ok := r.lookup("Alice")
	req.False(ok)

	_, err = r.Join("Alice", peer("c2"))
	req.NoError(err)
}

func TestRegistry_Banned(t *testing.T) {
	r := New(moderation.NewBanList(true, []string{"Mallory"}))

	_, err := r.Join("Mallory", peer("c1"))

	require.ErrorIs(t, err, types.ErrBanned)
}

func TestRegistry_Remove(t *testing.T) {
	req := require.New(t)

	r := New(nil)
	_, _ = r.Join("Alice", peer("c1"))
	_, _ = r.Join("Bob", peer("c2"))

	p, ok := r.Remove("Alice")
	req.True(ok)
	req.Equal("c1", p.ID())
	_, ok = r.Resolve("c1")
	req.False(ok)
	req.Equal([]string{"Bob"}, r.Roster())

	_, ok = r.Remove("Alice")
	req.False(ok)
}

func TestRegistry_RemoveConnection(t *testing.T) {
	req := require.New(t)

	r := New(nil)
	_, _ = r.Join("Alice", peer("c1"))

	name, ok := r.RemoveConnection("c1")
	req.True(ok)
	req.Equal("Alice", name)
	req.Equal(0, r.Len())

	_, ok = r.RemoveConnection("c1")
	req.False(ok)
}

func TestRegistry_RosterKeepsJoinOrderAndIsACopy(t *testing.T) {
	req := require.New(t)

	r := New(nil)
	for i, name := range []string{"Carol", "Alice", "Bob"} {
		_, err := r.Join(name, peer(string(rune('a'+i))))
		req.NoError(err)
	}

	roster := r.Roster()
	req.Equal([]string{"Carol", "Alice", "Bob"}, roster)

	roster[0] = "Mallory"
	req.Equal("Carol", r.Roster()[0])
}
