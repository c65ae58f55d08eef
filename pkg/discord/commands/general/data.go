package general

import (
	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/guildkit/pkg/discord/commands/core"
	"github.com/small-frappuccino/guildkit/pkg/theme"
)

const dataNotice = `This bot only stores what its features need to work.

**Applications**
The answers you submit, the review status and the review message are kept per server until a reviewer removes them.

**Polls**
Your poll drafts and the replies of each member are kept while a poll runs. Closed polls keep their results so they can still be browsed.

**Role selectors**
Selector drafts record the roles and icons you picked until the selector is sent.

Nothing is shared with third parties. Ask a server administrator to remove your data, or contact the bot owner.`

type dataCommand struct{}

func NewDataCommand() *dataCommand { return &dataCommand{} }

func (c *dataCommand) Name() string        { return "data" }
func (c *dataCommand) Description() string { return "Displays information about data usage and privacy" }
func (c *dataCommand) Options() []*discordgo.ApplicationCommandOption {
	return nil
}
func (c *dataCommand) RequiresGuild() bool { return false }
func (c *dataCommand) Permissions() int64  { return 0 }

func (c *dataCommand) Handle(ctx *core.Context) error {
	embed := &discordgo.MessageEmbed{
		Title:       "Data Usage and Privacy",
		Description: dataNotice,
		Color:       theme.Primary(),
	}
	if bot, err := ctx.Session.User("@me"); err == nil && bot != nil {
		embed.Author = core.UserAuthor(bot)
	}
	return ctx.Respond().Embed(ctx.Interaction, true, embed)
}
