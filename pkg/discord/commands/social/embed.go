package social

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/guildkit/pkg/discord/commands/core"
	"github.com/small-frappuccino/guildkit/pkg/errors"
	"github.com/small-frappuccino/guildkit/pkg/theme"
)

const (
	optAuthorIcon  = "author_icon"
	optAuthorLink  = "author_link"
	optAuthorName  = "author_name"
	optColor       = "color"
	optDescription = "description"
	optFooterIcon  = "footer_icon"
	optFooterText  = "footer_text"
	optImageLink   = "image_link"
	optThumbLink   = "thumbnail_link"
	optTitleText   = "title_text"
	optTitleLink   = "title_link"
	optEphemeral   = "ephemeral"

	// maxEmbedText is the combined length Discord allows across the text of an embed.
	maxEmbedText = 6000

	colorDefault = "default"
	colorUser    = "user"
)

// embedColors are offered in the order they appear in the client.
var embedColors = []struct {
	name string
	hex  int
}{
	{"Red", 0xE74C3C},
	{"Orange", 0xE67E22},
	{"Yellow", 0xF1C40F},
	{"Green", 0x2ECC71},
	{"Teal", 0x1ABC9C},
	{"Blue", 0x3498DB},
	{"Purple", 0x9B59B6},
	{"Pink", 0xE91E63},
	{"Dark Red", 0x992D22},
	{"Dark Orange", 0xA84300},
	{"Dark Yellow", 0xC27C0E},
	{"Dark Green", 0x1F8B4C},
	{"Dark Teal", 0x11806A},
	{"Dark Blue", 0x206694},
	{"Dark Purple", 0x71368A},
	{"Dark Pink", 0xAD1457},
	{"White", 0xBCC0C0},
	{"Gray", 0x979C9F},
	{"Dark Gray", 0x607D8B},
	{"Black", 0x2C2F33},
}

func embedOptions() []*discordgo.ApplicationCommandOption {
	str := func(name, desc string, maxLen int) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        name,
			Description: desc,
			MaxLength:   maxLen,
		}
	}

	colors := str(optColor, "The embed's color", 0)
	colors.Choices = append(colors.Choices,
		&discordgo.ApplicationCommandOptionChoice{Name: "Default", Value: colorDefault},
		&discordgo.ApplicationCommandOptionChoice{Name: "User", Value: colorUser},
	)
	for _, c := range embedColors {
		colors.Choices = append(colors.Choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  c.name,
			Value: strconv.FormatInt(int64(c.hex), 16),
		})
	}

	return []*discordgo.ApplicationCommandOption{
		str(optAuthorIcon, "The embed author's icon link", 0),
		str(optAuthorLink, "The embed author's link", 0),
		str(optAuthorName, "The embed author's name", 256),
		colors,
		str(optDescription, "The embed's description (supports newline and markdown)", 4096),
		str(optFooterIcon, "The embed footer's icon link", 0),
		str(optFooterText, "The embed footer's text", 2048),
		str(optImageLink, "The embed's image link", 0),
		str(optThumbLink, "The embed's thumbnail link", 0),
		str(optTitleLink, "The embed title's link", 0),
		str(optTitleText, "The embed title's text", 256),
		{
			Type:        discordgo.ApplicationCommandOptionBoolean,
			Name:        optEphemeral,
			Description: "Whether the embed is ephemeral (only visible to you)",
		},
	}
}

// buildEmbed assembles the embed from the options. It fails when nothing
// visible was given or the text is over the Discord limit.
func buildEmbed(ctx *core.Context) (*discordgo.MessageEmbed, error) {
	args := ctx.Args()
	embed := &discordgo.MessageEmbed{}
	visible := false
	length := 0

	if name, ok := args.StringOK(optAuthorName); ok {
		embed.Author = &discordgo.MessageEmbedAuthor{
			Name:    name,
			IconURL: args.String(optAuthorIcon),
			URL:     args.String(optAuthorLink),
		}
		length += utf8.RuneCountInString(name)
		visible = true
	}

	if choice, ok := args.StringOK(optColor); ok {
		color, err := embedColor(ctx, choice)
		if err != nil {
			return nil, err
		}
		embed.Color = color
	}

	if desc, ok := args.StringOK(optDescription); ok {
		// Slash command inputs are single line, so a typed \n stands for a line break.
		desc = strings.TrimSpace(strings.ReplaceAll(desc, `\n`, "\n"))
		embed.Description = desc
		length += utf8.RuneCountInString(desc)
		visible = true
	}

	if text, ok := args.StringOK(optFooterText); ok {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: text, IconURL: args.String(optFooterIcon)}
		length += utf8.RuneCountInString(text)
		visible = true
	}

	if url, ok := args.StringOK(optImageLink); ok {
		embed.Image = &discordgo.MessageEmbedImage{URL: url}
		visible = true
	}
	if url, ok := args.StringOK(optThumbLink); ok {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: url}
		visible = true
	}

	if title, ok := args.StringOK(optTitleText); ok {
		embed.Title = title
		embed.URL = args.String(optTitleLink)
		length += utf8.RuneCountInString(title)
		visible = true
	}

	if !visible {
		return nil, errors.Precondition("A visible element must be provided")
	}
	if length > maxEmbedText {
		return nil, errors.Precondition("Content must have at most 6000 characters")
	}
	return embed, nil
}

func embedColor(ctx *core.Context, choice string) (int, error) {
	switch choice {
	case colorDefault:
		return theme.Primary(), nil
	case colorUser:
		user, err := ctx.Session.User(ctx.UserID)
		if err != nil {
			return 0, errors.Platform("fetch user", err)
		}
		return core.UserColor(user, theme.Primary()), nil
	}
	hex, err := strconv.ParseInt(choice, 16, 32)
	if err != nil || hex < 0 || hex > 0xFFFFFF {
		return 0, errors.InvalidField(optColor, choice)
	}
	return int(hex), nil
}

func handleEmbed(ctx *core.Context) error {
	embed, err := buildEmbed(ctx)
	if err != nil {
		return err
	}
	return ctx.Respond().Embed(ctx.Interaction, ctx.Args().Bool(optEphemeral), embed)
}
