package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBanList_NotEnforced(t *testing.T) {
	req := require.New(t)
	bans := NewBanList(false, []string{"Mallory"})

	req.False(bans.Enforced())
	req.False(bans.IsBanned("Mallory"))
	req.Equal([]string{"Mallory"}, bans.Names())
}

func TestBanList_Enforced(t *testing.T) {
	req := require.New(t)
	bans := NewBanList(true, []string{" Mallory ", "", "Eve"})

	req.True(bans.Enforced())
	req.True(bans.IsBanned("Mallory"))
	req.True(bans.IsBanned("Eve"))
	req.False(bans.IsBanned("Alice"))
	req.Equal([]string{"Eve", "Mallory"}, bans.Names())
}

func TestBanList_Nil(t *testing.T) {
	req := require.New(t)
	var bans *BanList

	req.False(bans.IsBanned("anyone"))
	req.False(bans.Enforced())
	req.Empty(bans.Names())
}
