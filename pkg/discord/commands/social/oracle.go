package social

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/guildkit/pkg/discord/commands/core"
	"github.com/small-frappuccino/guildkit/pkg/errors"
	"github.com/small-frappuccino/guildkit/pkg/theme"
)

// Mood colors an oracle answer.
type Mood int

const (
	MoodBad Mood = iota
	MoodUnsure
	MoodGood
)

func (m Mood) color() int {
	switch m {
	case MoodGood:
		return theme.Success()
	case MoodBad:
		return theme.Error()
	default:
		return theme.Muted()
	}
}

// Answer is one reply of the oracle.
type Answer struct {
	Mood Mood
	Text string
}

// Answers is the fixed table the oracle draws from.
var Answers = [20]Answer{
	{MoodGood, "It is certain."},
	{MoodGood, "It is decidedly so."},
	{MoodGood, "Without a doubt."},
	{MoodGood, "Yes, definitely."},
	{MoodGood, "You may rely on it."},
	{MoodGood, "As I see it, yes."},
	{MoodGood, "Most likely."},
	{MoodGood, "Outlook good."},
	{MoodGood, "Yes."},
	{MoodGood, "Signs point to yes."},
	{MoodUnsure, "Reply hazy, try again."},
	{MoodUnsure, "Ask again later."},
	{MoodUnsure, "Better not tell you now."},
	{MoodUnsure, "Cannot predict now."},
	{MoodUnsure, "Concentrate and ask again."},
	{MoodBad, "Don't count on it."},
	{MoodBad, "My reply is no."},
	{MoodBad, "My sources say no."},
	{MoodBad, "Outlook not so good."},
	{MoodBad, "Very doubtful."},
}

func oracleOptions() []*discordgo.ApplicationCommandOption {
	return []*discordgo.ApplicationCommandOption{{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        optQuestion,
		Description: "What would you like to ask?",
		Required:    true,
		MaxLength:   512,
	}}
}

func (c *commands) handleOracle(ctx *core.Context) error {
	question, err := ctx.Args().StringRequired(optQuestion)
	if err != nil {
		return err
	}
	asker, err := ctx.Session.User(ctx.UserID)
	if err != nil {
		return errors.Platform("fetch user", err)
	}

	answer := Answers[c.pick(len(Answers))]
	embed := &discordgo.MessageEmbed{
		Author:      &discordgo.MessageEmbedAuthor{Name: "The Oracle"},
		Color:       answer.Mood.color(),
		Description: fmt.Sprintf("**%s asked...**\n> %s\n\n*%s*", asker.String(), question, answer.Text),
	}
	return ctx.Respond().Embed(ctx.Interaction, false, embed)
}
