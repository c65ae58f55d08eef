// Package role implements role selectors: members draft a list of role
// toggles and publish them as a message whose buttons add or remove the
// role on whoever clicks them.
package role

import (
	"github.com/small-frappuccino/guildkit/pkg/storage"
)

// Name is the command name and the custom id namespace.
const Name = "role"

// ButtonToggle flips the linked role on the clicking member.
const ButtonToggle = Name + "_toggle"

const (
	// MaxToggles is the number of buttons a message can carry.
	MaxToggles = 25
	// MaxTitleLen bounds the title of a published selector.
	MaxTitleLen = 256
)

// Toggle links a role to the emoji shown on its button.
type Toggle struct {
	Role string `msgpack:"role"`
	Icon string `msgpack:"icon"`
}

// Selector is a member's unpublished list of toggles.
type Selector struct {
	User  string   `msgpack:"user"`
	Guild string   `msgpack:"guild"`
	Roles []Toggle `msgpack:"roles"`
}

// NewSelector returns an empty selector draft.
func NewSelector(guildID, userID string) Selector {
	return Selector{User: userID, Guild: guildID}
}

// Index returns the position of the toggle for roleID, or -1.
func (s Selector) Index(roleID string) int {
	for i, t := range s.Roles {
		if t.Role == roleID {
			return i
		}
	}
	return -1
}

// SelectorReq addresses the draft of userID in guildID.
func SelectorReq(guildID, userID string) storage.Req[Selector] {
	return storage.NewReq[Selector](Name+"/"+guildID, userID)
}
