// Package anchor binds a persisted record to the message it was rendered as.
package anchor

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/guildkit/pkg/discord/platform"
	"github.com/small-frappuccino/guildkit/pkg/errors"
)

const jumpURL = "https://discord.com/channels"

// Anchor locates a posted message.
type Anchor struct {
	Guild   string `msgpack:"guild"`
	Channel string `msgpack:"channel"`
	Message string `msgpack:"message"`
}

// FromMessage anchors m in guildID. REST responses omit the guild, so the
// caller supplies it.
func FromMessage(guildID string, m *discordgo.Message) (Anchor, error) {
	if m == nil {
		return Anchor{}, errors.MissingField("message")
	}
	if guildID == "" {
		guildID = m.GuildID
	}
	if guildID == "" {
		return Anchor{}, errors.MissingField("guild")
	}
	if m.ChannelID == "" || m.ID == "" {
		return Anchor{}, errors.InvalidField("message", m.ID)
	}
	return Anchor{Guild: guildID, Channel: m.ChannelID, Message: m.ID}, nil
}

// String returns the message jump link.
func (a Anchor) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", jumpURL, a.Guild, a.Channel, a.Message)
}

// CreatedAt returns the time encoded in the message snowflake.
func (a Anchor) CreatedAt() (time.Time, error) {
	t, err := discordgo.SnowflakeTimestamp(a.Message)
	if err != nil {
		return time.Time{}, errors.InvalidField("message", a.Message)
	}
	return t, nil
}

// Resolve fetches the anchored message.
func (a Anchor) Resolve(c platform.Client) (*discordgo.Message, error) {
	m, err := c.ChannelMessage(a.Channel, a.Message)
	if err != nil {
		return nil, errors.Platform("fetch anchored message", err)
	}
	return m, nil
}

// Delete removes the anchored message.
func (a Anchor) Delete(c platform.Client) error {
	return errors.Platform("delete anchored message", c.ChannelMessageDelete(a.Channel, a.Message))
}

// Discard deletes the anchored message, treating a message that is already
// gone as success.
func (a Anchor) Discard(c platform.Client) error {
	if err := a.Delete(c); err != nil && !IsGone(err) {
		return err
	}
	return nil
}

// IsGone reports whether err says the message, channel or guild no longer exists.
func IsGone(err error) bool {
	var rest *discordgo.RESTError
	if !stderrors.As(err, &rest) {
		return false
	}
	if rest.Message != nil {
		switch rest.Message.Code {
		case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeUnknownGuild:
			return true
		}
	}
	return rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound
}

// Edit replaces the anchored message's embeds and components. Nil slices are left untouched.
func (a Anchor) Edit(c platform.Client, embeds []*discordgo.MessageEmbed, components []discordgo.MessageComponent) error {
	edit := discordgo.NewMessageEdit(a.Channel, a.Message)
	if embeds != nil {
		edit.Embeds = &embeds
	}
	if components != nil {
		edit.Components = &components
	}
	_, err := c.ChannelMessageEditComplex(edit)
	return errors.Platform("edit anchored message", err)
}
