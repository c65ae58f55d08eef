package social

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/guildkit/pkg/discord/commands/core"
	"github.com/small-frappuccino/guildkit/pkg/errors"
	"github.com/small-frappuccino/guildkit/pkg/theme"
)

const (
	minOfferMinutes = 5
	maxOfferMinutes = 14400
)

func offerOptions() []*discordgo.ApplicationCommandOption {
	return []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        optOffer,
			Description: "What are you giving away?",
			Required:    true,
			MaxLength:   256,
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        optPrice,
			Description: "What do you want in return?",
			Required:    true,
			MaxLength:   256,
		},
		{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        optMinutes,
			Description: "For how long is this valid?",
			Required:    true,
			MinValue:    minValue(minOfferMinutes),
			MaxValue:    maxOfferMinutes,
		},
	}
}

func handleOffer(ctx *core.Context) error {
	args := ctx.Args()
	offer, err := args.StringRequired(optOffer)
	if err != nil {
		return err
	}
	price, err := args.StringRequired(optPrice)
	if err != nil {
		return err
	}
	minutes, err := args.IntRequired(optMinutes)
	if err != nil {
		return err
	}
	if minutes < minOfferMinutes || minutes > maxOfferMinutes {
		return errors.InvalidField(optMinutes, fmt.Sprint(minutes))
	}

	user, err := ctx.Session.User(ctx.UserID)
	if err != nil {
		return errors.Platform("fetch user", err)
	}
	expires := ctx.Now().Add(time.Duration(minutes) * time.Minute)

	embed := &discordgo.MessageEmbed{
		Author:      core.UserAuthor(user),
		Color:       core.UserColor(user, theme.Primary()),
		Description: fmt.Sprintf("**Expires:** <t:%d:R>", expires.Unix()),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Offer", Value: offer},
			{Name: "Price", Value: price},
		},
		Thumbnail: core.UserThumbnail(user),
	}
	return ctx.Respond().Embed(ctx.Interaction, false, embed)
}
