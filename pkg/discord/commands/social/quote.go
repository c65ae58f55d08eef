package social

import (
	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/guildkit/pkg/discord/commands/core"
	"github.com/small-frappuccino/guildkit/pkg/errors"
	"github.com/small-frappuccino/guildkit/pkg/theme"
)

func quoteOptions() []*discordgo.ApplicationCommandOption {
	return []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        optUser,
			Description: "Who said it?",
			Required:    true,
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        optText,
			Description: "What did they say?",
			Required:    true,
			MaxLength:   256,
		},
	}
}

func handleQuote(ctx *core.Context) error {
	args := ctx.Args()
	userID, err := args.UserRequired(optUser)
	if err != nil {
		return err
	}
	text, err := args.StringRequired(optText)
	if err != nil {
		return err
	}
	if userID == ctx.UserID {
		return errors.Precondition("You cannot quote yourself")
	}

	user, err := ctx.Session.User(userID)
	if err != nil {
		return errors.Platform("fetch user", err)
	}
	if user.Bot {
		return errors.Precondition("You cannot quote a bot")
	}

	embed := &discordgo.MessageEmbed{
		Author:      core.UserAuthor(user),
		Color:       core.UserColor(user, theme.Primary()),
		Description: "> " + text,
	}
	return ctx.Respond().Embed(ctx.Interaction, false, embed)
}
