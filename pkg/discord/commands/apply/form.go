// Package apply implements guild membership applications: a configurable
// application card, a submission modal and the moderator review flow.
package apply

import (
	"fmt"

	"github.com/small-frappuccino/guildkit/pkg/discord/anchor"
	"github.com/small-frappuccino/guildkit/pkg/errors"
	"github.com/small-frappuccino/guildkit/pkg/storage"
)

// Name is the command name and the custom id namespace.
const Name = "apply"

const (
	ButtonModal  = Name + "_modal"
	ButtonAbout  = Name + "_about"
	ButtonAccept = Name + "_accept"
	ButtonDeny   = Name + "_deny"
	ButtonResend = Name + "_resend"

	ModalSubmit = Name + "_submit"
	ModalUpdate = Name + "_update"

	inputReason = "reason"
)

const (
	MaxQuestions      = 5
	MaxTitleLen       = 256
	MaxDescriptionLen = 4096
	MaxQuestionLen    = 45
	MaxAnswerLen      = 1024
	MaxReasonLen      = 256
)

// Status is the review state of a submitted application.
type Status uint8

const (
	StatusPending Status = iota
	StatusAccepted
	StatusDenied
	StatusResend
)

// ParseStatus converts a stored or transmitted ordinal into a Status.
func ParseStatus(v int64) (Status, error) {
	if v < int64(StatusPending) || v > int64(StatusResend) {
		return 0, errors.InvalidField("status", fmt.Sprint(v))
	}
	return Status(v), nil
}

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusAccepted:
		return "Accepted"
	case StatusDenied:
		return "Denied"
	case StatusResend:
		return "Resend"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// Display prefixes the status name with its icon.
func (s Status) Display() string {
	icon := "❔"
	switch s {
	case StatusPending:
		icon = "🤔"
	case StatusAccepted:
		icon = "👍"
	case StatusDenied:
		icon = "👎"
	case StatusResend:
		icon = "🤷"
	}
	return icon + " " + s.String()
}

// Terminal reports whether the status is final unless explicitly overwritten.
func (s Status) Terminal() bool {
	return s == StatusAccepted || s == StatusDenied
}

// Content is the moderator-authored part of the application card.
type Content struct {
	Title       string   `msgpack:"title"`
	Description string   `msgpack:"description"`
	Thumbnail   string   `msgpack:"thumbnail"`
	Questions   []string `msgpack:"questions"`
}

// Config is the per-guild application setup.
type Config struct {
	// Channel receives submitted application cards.
	Channel string `msgpack:"channel"`
	// Role is granted to accepted applicants.
	Role    string         `msgpack:"role"`
	Content Content        `msgpack:"content"`
	Anchor  *anchor.Anchor `msgpack:"anchor,omitempty"`
}

// Form is one member's submitted application.
type Form struct {
	User    string         `msgpack:"user"`
	Status  Status         `msgpack:"status"`
	Reason  string         `msgpack:"reason,omitempty"`
	Answers []string       `msgpack:"answers"`
	Anchor  *anchor.Anchor `msgpack:"anchor,omitempty"`
}

// NewForm creates a pending application.
func NewForm(user string, answers []string) Form {
	return Form{User: user, Status: StatusPending, Answers: answers}
}

func guildDir(guildID string) string { return Name + "/" + guildID }

// ConfigReq addresses the configuration of a guild.
func ConfigReq(guildID string) storage.Req[Config] {
	return storage.NewReq[Config](guildDir(guildID), ".cfg")
}

// FormReq addresses the application of user in a guild.
func FormReq(guildID, userID string) storage.Req[Form] {
	return storage.NewReq[Form](guildDir(guildID), userID)
}
