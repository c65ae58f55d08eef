// Package general holds the utility commands every deployment carries.
package general

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/guildkit/pkg/discord/commands/core"
	"github.com/small-frappuccino/guildkit/pkg/errors"
	"github.com/small-frappuccino/guildkit/pkg/theme"
)

const (
	helpHeader = "Here are the commands available in this server. Click a command to start using it.\n"
	helpFooter = "\nMost replies are only visible to you."
)

// RegisterCommands registers /data, /ping and /help. commandGuild is the
// guild the schemas were published to, empty for global commands.
func RegisterCommands(router *core.CommandRouter, commandGuild string) {
	router.RegisterCommand(NewDataCommand())
	router.RegisterCommand(NewPingCommand())
	router.RegisterCommand(NewHelpCommand(commandGuild))
}

type pingCommand struct{}

func NewPingCommand() *pingCommand { return &pingCommand{} }

func (c *pingCommand) Name() string        { return "ping" }
func (c *pingCommand) Description() string { return "Check the bot's API response time" }
func (c *pingCommand) Options() []*discordgo.ApplicationCommandOption {
	return nil
}
func (c *pingCommand) RequiresGuild() bool { return false }
func (c *pingCommand) Permissions() int64  { return 0 }

// Handle replies, then edits the reply with the delay between the
// interaction snowflake and the response snowflake.
func (c *pingCommand) Handle(ctx *core.Context) error {
	responder := ctx.Respond()
	embed := &discordgo.MessageEmbed{Title: "Calculating...", Color: theme.Primary()}
	if err := responder.Embed(ctx.Interaction, true, embed); err != nil {
		return err
	}

	res, err := responder.OriginalResponse(ctx.Interaction)
	if err != nil {
		return err
	}
	sent, err := discordgo.SnowflakeTimestamp(res.ID)
	if err != nil {
		return errors.InvalidField("message", res.ID)
	}
	received, err := discordgo.SnowflakeTimestamp(ctx.Interaction.ID)
	if err != nil {
		return errors.InvalidField("interaction", ctx.Interaction.ID)
	}

	embed.Title = fmt.Sprintf("Pong! (%dms)", sent.Sub(received).Milliseconds())
	_, err = ctx.Session.InteractionResponseEdit(ctx.Interaction.Interaction, &discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{embed},
	})
	return errors.Platform("edit ping response", err)
}

type helpCommand struct {
	guildID string
}

func NewHelpCommand(commandGuild string) *helpCommand {
	return &helpCommand{guildID: commandGuild}
}

func (c *helpCommand) Name() string        { return "help" }
func (c *helpCommand) Description() string { return "Displays a list of bot commands" }
func (c *helpCommand) Options() []*discordgo.ApplicationCommandOption {
	return nil
}
func (c *helpCommand) RequiresGuild() bool { return true }
func (c *helpCommand) Permissions() int64  { return 0 }

func (c *helpCommand) Handle(ctx *core.Context) error {
	commands, err := ctx.Session.ApplicationCommands(ctx.Interaction.AppID, c.guildID)
	if err != nil {
		return errors.Platform("list commands", err)
	}
	sort.Slice(commands, func(a, b int) bool { return commands[a].Name < commands[b].Name })

	var sb strings.Builder
	sb.WriteString(helpHeader)
	if len(commands) == 0 {
		sb.WriteString("\n*No commands found...*\n")
	} else {
		for _, cmd := range commands {
			fmt.Fprintf(&sb, "\n</%s:%s> - %s", cmd.Name, cmd.ID, cmd.Description)
		}
		sb.WriteString("\n")
	}
	sb.WriteString(helpFooter)

	embed := &discordgo.MessageEmbed{
		Title:       "Command List",
		Description: sb.String(),
		Color:       theme.Primary(),
	}
	if bot, err := ctx.Session.User("@me"); err == nil && bot != nil {
		embed.Author = &discordgo.MessageEmbedAuthor{Name: bot.String(), IconURL: bot.AvatarURL("")}
	}
	return ctx.Respond().Embed(ctx.Interaction, true, embed)
}
