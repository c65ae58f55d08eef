// Package poll implements member polls: multiple choice votes, free text
// responses and raffles, from draft through publication to archived results.
package poll

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/small-frappuccino/guildkit/pkg/discord/anchor"
	"github.com/small-frappuccino/guildkit/pkg/errors"
	"github.com/small-frappuccino/guildkit/pkg/storage"
)

// Name is the command name and the custom id namespace.
const Name = "poll"

const (
	ButtonChoice   = Name + "_choice"
	ButtonResponse = Name + "_response"
	ButtonRaffle   = Name + "_raffle"
	ButtonRemove   = Name + "_remove"
	ButtonResults  = Name + "_results"
	ButtonLast     = Name + "_last"
	ButtonNext     = Name + "_next"

	ModalSubmit = Name + "_submit"
)

const (
	MaxTitleLen       = 256
	MaxDescriptionLen = 512
	MaxLabelLen       = 45
	MaxAnswerLen      = 1024
	MinHours          = 1
	MaxHours          = 240

	// NoAnswer fills response fields left empty by the responder.
	NoAnswer = "N/A"
)

// Kind selects how members reply to a poll.
type Kind uint8

const (
	KindChoice Kind = iota
	KindResponse
	KindRaffle
)

// ParseKind converts a transmitted ordinal into a Kind.
func ParseKind(v int64) (Kind, error) {
	if v < int64(KindChoice) || v > int64(KindRaffle) {
		return 0, errors.InvalidField("kind", strconv.FormatInt(v, 10))
	}
	return Kind(v), nil
}

func (k Kind) String() string {
	switch k {
	case KindChoice:
		return "Choice"
	case KindResponse:
		return "Response"
	case KindRaffle:
		return "Raffle"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Display prefixes the kind name with its icon.
func (k Kind) Display() string {
	switch k {
	case KindChoice:
		return "🔢 " + k.String()
	case KindResponse:
		return "📝 " + k.String()
	case KindRaffle:
		return "🎲 " + k.String()
	default:
		return k.String()
	}
}

// MaxInputs is the input cap of the kind.
func (k Kind) MaxInputs() int {
	switch k {
	case KindChoice:
		return 10
	case KindResponse:
		return 5
	default:
		return 0
	}
}

// Content is the owner-authored part of the poll card.
type Content struct {
	Title       string `msgpack:"title"`
	Description string `msgpack:"description"`
	Hours       int64  `msgpack:"hours"`
	Image       string `msgpack:"image,omitempty"`
	HideMembers bool   `msgpack:"hide_members"`
	HideResults bool   `msgpack:"hide_results"`
}

// ChoiceInput is one voting button.
type ChoiceInput struct {
	Label string `msgpack:"label"`
	Emoji string `msgpack:"emoji,omitempty"`
}

// ResponseInput is one text field of the response modal.
type ResponseInput struct {
	Label       string `msgpack:"label"`
	Placeholder string `msgpack:"placeholder,omitempty"`
}

// Input is a poll input. Exactly one variant is set and it decides Kind.
type Input struct {
	Choice   *ChoiceInput   `msgpack:"choice,omitempty"`
	Response *ResponseInput `msgpack:"response,omitempty"`
}

// Kind reports the variant held by the input.
func (in Input) Kind() (Kind, bool) {
	switch {
	case in.Choice != nil:
		return KindChoice, true
	case in.Response != nil:
		return KindResponse, true
	default:
		return 0, false
	}
}

// Label returns the label of whichever variant is set.
func (in Input) Label() string {
	switch {
	case in.Choice != nil:
		return in.Choice.Label
	case in.Response != nil:
		return in.Response.Label
	default:
		return ""
	}
}

// Reply is one member's answer. Exactly one variant is set.
type Reply struct {
	Choice   *ChoiceReply   `msgpack:"choice,omitempty"`
	Response *ResponseReply `msgpack:"response,omitempty"`
	Raffle   *RaffleReply   `msgpack:"raffle,omitempty"`
}

type ChoiceReply struct {
	Index int `msgpack:"index"`
}

type ResponseReply struct {
	Answers []string `msgpack:"answers"`
}

type RaffleReply struct{}

// Kind reports the variant held by the reply.
func (r Reply) Kind() (Kind, bool) {
	switch {
	case r.Choice != nil:
		return KindChoice, true
	case r.Response != nil:
		return KindResponse, true
	case r.Raffle != nil:
		return KindRaffle, true
	default:
		return 0, false
	}
}

// Form is a poll. It is a draft until Anchor is set, and closed once Output is set.
type Form struct {
	User    string           `msgpack:"user"`
	Kind    Kind             `msgpack:"kind"`
	Content Content          `msgpack:"content"`
	Inputs  []Input          `msgpack:"inputs"`
	Replies map[string]Reply `msgpack:"replies"`
	Anchor  *anchor.Anchor   `msgpack:"anchor,omitempty"`
	Output  *Output          `msgpack:"output,omitempty"`
	// Results is the id of the results message, set once it was posted.
	Results string `msgpack:"results,omitempty"`
}

// NewForm creates an unsent poll.
func NewForm(user string, kind Kind, content Content) Form {
	return Form{
		User:    user,
		Kind:    kind,
		Content: content,
		Replies: map[string]Reply{},
	}
}

// Sent reports whether the poll has been published.
func (f Form) Sent() bool { return f.Anchor != nil }

// Closed reports whether the results were computed.
func (f Form) Closed() bool { return f.Output != nil }

// ClosesAt is the publication time plus the poll duration. Unsent polls are
// measured from now.
func (f Form) ClosesAt(now time.Time) time.Time {
	base := now
	if f.Anchor != nil {
		if t, err := f.Anchor.CreatedAt(); err == nil {
			base = t
		}
	}
	return base.Add(time.Duration(f.Content.Hours) * time.Hour)
}

// HasLabel reports whether an input already uses label.
func (f Form) HasLabel(label string) bool {
	return slices.ContainsFunc(f.Inputs, func(in Input) bool { return in.Label() == label })
}

func draftDir(guildID string) string { return Name + "/" + guildID }

// DraftReq addresses the unsent or running poll of user in a guild.
func DraftReq(guildID, userID string) storage.Req[Form] {
	return storage.NewReq[Form](draftDir(guildID), userID)
}

// ArchiveReq addresses a closed poll by the message it was published as.
func ArchiveReq(guildID, userID, messageID string) storage.Req[Form] {
	return storage.NewReq[Form](draftDir(guildID)+"/"+userID, messageID)
}

// ActiveKey identifies a running poll in the Active index.
type ActiveKey struct {
	Guild string `msgpack:"guild"`
	User  string `msgpack:"user"`
}

// Active lists every published poll that has not been closed yet.
type Active struct {
	Polls []ActiveKey `msgpack:"polls"`
}

// ActiveReq addresses the Active index.
func ActiveReq() storage.Req[Active] {
	return storage.NewReq[Active](Name, ".dat")
}

func compareKeys(a, b ActiveKey) int {
	if c := strings.Compare(a.Guild, b.Guild); c != 0 {
		return c
	}
	return strings.Compare(a.User, b.User)
}

// Add inserts k, keeping the index sorted and unique.
func (a *Active) Add(k ActiveKey) {
	i, found := slices.BinarySearchFunc(a.Polls, k, compareKeys)
	if !found {
		a.Polls = slices.Insert(a.Polls, i, k)
	}
}

// Remove deletes k and reports whether it was present.
func (a *Active) Remove(k ActiveKey) bool {
	i, found := slices.BinarySearchFunc(a.Polls, k, compareKeys)
	if found {
		a.Polls = slices.Delete(a.Polls, i, i+1)
	}
	return found
}

// Contains reports whether k is indexed.
func (a Active) Contains(k ActiveKey) bool {
	_, found := slices.BinarySearchFunc(a.Polls, k, compareKeys)
	return found
}
