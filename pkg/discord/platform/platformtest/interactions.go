package platformtest

import (
	"sort"
	"time"

	"github.com/bwmarrin/discordgo"
)

// InteractionTime stamps the IDs of interactions built by this package.
var InteractionTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func baseInteraction(kind discordgo.InteractionType, guildID, userID string, data discordgo.InteractionData) *discordgo.InteractionCreate {
	i := &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			ID:        Snowflake(InteractionTime, 0),
			AppID:     "app",
			Token:     "token",
			Type:      kind,
			GuildID:   guildID,
			ChannelID: "channel",
			Data:      data,
		},
	}
	user := &discordgo.User{ID: userID, Username: "user" + userID}
	if guildID == "" {
		i.User = user
	} else {
		i.Member = &discordgo.Member{GuildID: guildID, User: user}
	}
	return i
}

// Command builds a slash command interaction.
func Command(name, guildID, userID string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return baseInteraction(discordgo.InteractionApplicationCommand, guildID, userID, discordgo.ApplicationCommandInteractionData{
		ID:      "cmd-" + name,
		Name:    name,
		Options: opts,
	})
}

// Component builds a button interaction attached to messageID.
func Component(customID, guildID, userID, messageID string) *discordgo.InteractionCreate {
	i := baseInteraction(discordgo.InteractionMessageComponent, guildID, userID, discordgo.MessageComponentInteractionData{
		CustomID:      customID,
		ComponentType: discordgo.ButtonComponent,
	})
	i.Message = &discordgo.Message{ID: messageID, ChannelID: "channel"}
	return i
}

// Modal builds a modal submission carrying one text input per value.
func Modal(customID, guildID, userID string, values map[string]string) *discordgo.InteractionCreate {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([]discordgo.MessageComponent, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, &discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			&discordgo.TextInput{CustomID: k, Value: values[k]},
		}})
	}
	return baseInteraction(discordgo.InteractionModalSubmit, guildID, userID, discordgo.ModalSubmitInteractionData{
		CustomID:   customID,
		Components: rows,
	})
}

// WithPermissions sets the member permission bits of a guild interaction.
func WithPermissions(i *discordgo.InteractionCreate, perms int64) *discordgo.InteractionCreate {
	if i.Member != nil {
		i.Member.Permissions = perms
	}
	return i
}

// Sub builds a subcommand option.
func Sub(name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionSubCommand, Options: opts}
}

// Group builds a subcommand group option.
func Group(name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionSubCommandGroup, Options: opts}
}

// Str builds a string option.
func Str(name, v string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: v}
}

// Int builds an integer option the way it arrives over the wire.
func Int(name string, v int) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionInteger, Value: float64(v)}
}

// Bool builds a boolean option.
func Bool(name string, v bool) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionBoolean, Value: v}
}

// Role builds a role option.
func Role(name, id string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionRole, Value: id}
}

// User builds a user option.
func User(name, id string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionUser, Value: id}
}

// Channel builds a channel option.
func Channel(name, id string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionChannel, Value: id}
}
