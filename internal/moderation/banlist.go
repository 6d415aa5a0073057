// Package moderation holds the optional ban list consulted at join and submit time.
package moderation

import (
	"sort"
	"strings"

	"github.com/samber/lo"
)

// BanList is a static set of excluded student names. It only rejects anyone
// when enforcement is switched on; a nil *BanList bans nobody.
type BanList struct {
	enforced bool
	names    map[string]struct{}
}

func NewBanList(enforced bool, names []string) *BanList {
	trimmed := lo.FilterMap(names, func(name string, _ int) (string, bool) {
		name = strings.TrimSpace(name)
		return name, name != ""
	})
	return &BanList{
		enforced: enforced,
		names: lo.SliceToMap(trimmed, func(name string) (string, struct{}) {
			return name, struct{}{}
		}),
	}
}

// IsBanned reports whether name must be rejected.
func (b *BanList) IsBanned(name string) bool {
	if b == nil || !b.enforced {
		return false
	}
	_, ok := b.names[name]
	return ok
}

func (b *BanList) Enforced() bool {
	return b != nil && b.enforced
}

// Names returns the configured names in sorted order, whether or not the list
// is enforced.
func (b *BanList) Names() []string {
	if b == nil {
		return []string{}
	}
	names := lo.Keys(b.names)
	sort.Strings(names)
	return names
}
