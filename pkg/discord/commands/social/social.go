// Package social holds the member-facing commands that post a single embed
// and keep no state: /embed, /offer, /oracle and /quote.
package social

import (
	"math/rand/v2"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/guildkit/pkg/discord/commands/core"
)

const (
	optQuestion = "question"
	optUser     = "user"
	optText     = "text"
	optOffer    = "offer"
	optPrice    = "price"
	optMinutes  = "minutes"
)

type Option func(*commands)

// WithPicker replaces the random source that picks oracle answers.
func WithPicker(pick func(n int) int) Option {
	return func(c *commands) { c.pick = pick }
}

type commands struct {
	pick func(n int) int
}

// RegisterCommands registers every social command on router.
func RegisterCommands(router *core.CommandRouter, opts ...Option) {
	c := &commands{pick: rand.IntN}
	for _, opt := range opts {
		opt(c)
	}

	router.RegisterCommand(core.NewSimpleCommand("embed", "Creates an embedded message", embedOptions(), handleEmbed, true, discordgo.PermissionEmbedLinks))
	router.RegisterCommand(core.NewSimpleCommand("offer", "Create a new trade offer", offerOptions(), handleOffer, true, discordgo.PermissionSendMessages))
	router.RegisterCommand(core.NewSimpleCommand("oracle", "Asks the Oracle a question", oracleOptions(), c.handleOracle, true, discordgo.PermissionSendMessages))
	router.RegisterCommand(core.NewSimpleCommand("quote", "Quote something that a user said!", quoteOptions(), handleQuote, true, discordgo.PermissionSendMessages))
}

func minValue(v float64) *float64 { return &v }
