// Package platformtest provides an in-memory platform.Client for tests.
package platformtest

import (
	"fmt"
	"net/http"
	"slices"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// DiscordEpochMillis is the first millisecond representable by a snowflake.
const DiscordEpochMillis = 1420070400000

// Snowflake builds an ID whose embedded timestamp is t.
func Snowflake(t time.Time, seq int) string {
	ms := t.UnixMilli() - DiscordEpochMillis
	if ms < 0 {
		ms = 0
	}
	return strconv.FormatInt(ms<<22|int64(seq&0xFFF), 10)
}

// RoleChange records one member role mutation.
type RoleChange struct {
	Guild, User, Role string
	Added             bool
}

// Fake records every call and keeps messages, members and roles in memory.
// Set the *Err fields to make the matching calls fail.
type Fake struct {
	mu  sync.Mutex
	seq int

	// Now stamps new message IDs. Defaults to time.Now.
	Now func() time.Time

	Responses []*discordgo.InteractionResponse
	Sent      map[string]*discordgo.Message // by message ID
	Edits     []*discordgo.MessageEdit
	Deleted   []string // message IDs
	Roles     []RoleChange
	Overwrite []*discordgo.ApplicationCommand

	Users        map[string]*discordgo.User
	Members      map[string]*discordgo.Member // by guild/user
	Guilds       map[string]*discordgo.Guild
	RolesByGuild map[string][]*discordgo.Role

	RespondErr error
	SendErr    error
	EditErr    error
	DeleteErr  error
	RoleErr    error
	DMErr      error // fails UserChannelCreate
	FetchErr   error
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{
		Sent:         map[string]*discordgo.Message{},
		Users:        map[string]*discordgo.User{},
		Members:      map[string]*discordgo.Member{},
		Guilds:       map[string]*discordgo.Guild{},
		RolesByGuild: map[string][]*discordgo.Role{},
	}
}

func (f *Fake) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

func (f *Fake) nextID() string {
	f.seq++
	return Snowflake(f.now(), f.seq)
}

// notFound mimics the error discordgo returns for a 404.
func notFound(kind, id string) error {
	msg := fmt.Sprintf("Unknown %s %s", kind, id)
	return &discordgo.RESTError{
		Response:     &http.Response{StatusCode: http.StatusNotFound, Status: "404 Not Found"},
		ResponseBody: []byte(fmt.Sprintf(`{"message":%q,"code":%d}`, msg, discordgo.ErrCodeUnknownMessage)),
		Message:      &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownMessage, Message: msg},
	}
}

func (f *Fake) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RespondErr != nil {
		return f.RespondErr
	}
	f.Responses = append(f.Responses, resp)
	return nil
}

func (f *Fake) InteractionResponse(i *discordgo.Interaction, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	return &discordgo.Message{ID: f.nextID(), ChannelID: i.ChannelID}, nil
}

func (f *Fake) InteractionResponseEdit(i *discordgo.Interaction, edit *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.EditErr != nil {
		return nil, f.EditErr
	}
	msg := &discordgo.Message{ChannelID: i.ChannelID}
	if edit.Content != nil {
		msg.Content = *edit.Content
	}
	if edit.Embeds != nil {
		msg.Embeds = *edit.Embeds
	}
	f.Edits = append(f.Edits, &discordgo.MessageEdit{Channel: i.ChannelID, Content: edit.Content, Embeds: edit.Embeds})
	return msg, nil
}

func (f *Fake) ChannelMessage(channelID, messageID string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	m, ok := f.Sent[messageID]
	if !ok || m.ChannelID != channelID {
		return nil, notFound("message", messageID)
	}
	return m, nil
}

func (f *Fake) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SendErr != nil {
		return nil, f.SendErr
	}
	m := &discordgo.Message{
		ID:         f.nextID(),
		ChannelID:  channelID,
		Content:    data.Content,
		Embeds:     data.Embeds,
		Components: data.Components,
	}
	f.Sent[m.ID] = m
	return m, nil
}

func (f *Fake) ChannelMessageEditComplex(e *discordgo.MessageEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.EditErr != nil {
		return nil, f.EditErr
	}
	m, ok := f.Sent[e.ID]
	if !ok || m.ChannelID != e.Channel {
		return nil, notFound("message", e.ID)
	}
	f.Edits = append(f.Edits, e)
	if e.Components != nil {
		m.Components = *e.Components
	}
	if e.Embeds != nil {
		m.Embeds = *e.Embeds
	}
	return m, nil
}

func (f *Fake) ChannelMessageDelete(channelID, messageID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	m, ok := f.Sent[messageID]
	if !ok || m.ChannelID != channelID {
		return notFound("message", messageID)
	}
	delete(f.Sent, messageID)
	f.Deleted = append(f.Deleted, messageID)
	return nil
}

func (f *Fake) Guild(guildID string, _ ...discordgo.RequestOption) (*discordgo.Guild, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g, ok := f.Guilds[guildID]; ok {
		return g, nil
	}
	return &discordgo.Guild{ID: guildID, Name: "Guild " + guildID}, nil
}

func (f *Fake) GuildRoles(guildID string, _ ...discordgo.RequestOption) ([]*discordgo.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	return f.RolesByGuild[guildID], nil
}

func memberKey(guildID, userID string) string { return guildID + "/" + userID }

func (f *Fake) GuildMember(guildID, userID string, _ ...discordgo.RequestOption) (*discordgo.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.Members[memberKey(guildID, userID)]; ok {
		return m, nil
	}
	return &discordgo.Member{GuildID: guildID, User: &discordgo.User{ID: userID}}, nil
}

func (f *Fake) memberLocked(guildID, userID string) *discordgo.Member {
	k := memberKey(guildID, userID)
	m, ok := f.Members[k]
	if !ok {
		m = &discordgo.Member{GuildID: guildID, User: &discordgo.User{ID: userID}}
		f.Members[k] = m
	}
	return m
}

func (f *Fake) GuildMemberRoleAdd(guildID, userID, roleID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RoleErr != nil {
		return f.RoleErr
	}
	m := f.memberLocked(guildID, userID)
	if !slices.Contains(m.Roles, roleID) {
		m.Roles = append(m.Roles, roleID)
	}
	f.Roles = append(f.Roles, RoleChange{Guild: guildID, User: userID, Role: roleID, Added: true})
	return nil
}

func (f *Fake) GuildMemberRoleRemove(guildID, userID, roleID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RoleErr != nil {
		return f.RoleErr
	}
	m := f.memberLocked(guildID, userID)
	kept := m.Roles[:0]
	for _, r := range m.Roles {
		if r != roleID {
			kept = append(kept, r)
		}
	}
	m.Roles = kept
	f.Roles = append(f.Roles, RoleChange{Guild: guildID, User: userID, Role: roleID})
	return nil
}

func (f *Fake) User(userID string, _ ...discordgo.RequestOption) (*discordgo.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.Users[userID]; ok {
		return u, nil
	}
	return &discordgo.User{ID: userID, Username: "user" + userID, Discriminator: "0"}, nil
}

func (f *Fake) UserChannelCreate(recipientID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DMErr != nil {
		return nil, f.DMErr
	}
	return &discordgo.Channel{ID: "dm-" + recipientID, Type: discordgo.ChannelTypeDM, Recipients: []*discordgo.User{{ID: recipientID}}}, nil
}

func (f *Fake) ApplicationCommands(_, _ string, _ ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*discordgo.ApplicationCommand, len(f.Overwrite))
	copy(out, f.Overwrite)
	return out, nil
}

func (f *Fake) ApplicationCommandBulkOverwrite(_ string, _ string, commands []*discordgo.ApplicationCommand, _ ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Overwrite = commands
	for i, c := range commands {
		if c.ID == "" {
			c.ID = strconv.Itoa(i + 1)
		}
	}
	return commands, nil
}

// DMsTo returns the messages sent into userID's DM channel.
func (f *Fake) DMsTo(userID string) []*discordgo.Message {
	return f.MessagesIn("dm-" + userID)
}

// LastResponse returns the most recent interaction response, or nil.
func (f *Fake) LastResponse() *discordgo.InteractionResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Responses) == 0 {
		return nil
	}
	return f.Responses[len(f.Responses)-1]
}

// ResponseCount returns how many interaction responses were sent.
func (f *Fake) ResponseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Responses)
}

// Message returns a live message by ID.
func (f *Fake) Message(id string) (*discordgo.Message, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.Sent[id]
	return m, ok
}

// MessagesIn returns live messages in channelID ordered by ID.
func (f *Fake) MessagesIn(channelID string) []*discordgo.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*discordgo.Message
	for _, m := range f.Sent {
		if m.ChannelID == channelID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].ID) != len(out[j].ID) {
			return len(out[i].ID) < len(out[j].ID)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// MemberRoles returns the roles the Fake believes a member holds.
func (f *Fake) MemberRoles(guildID, userID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.Members[memberKey(guildID, userID)]; ok {
		return append([]string(nil), m.Roles...)
	}
	return nil
}
