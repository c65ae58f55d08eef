package session

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/guildkit/pkg/logging"
)

// Error messages
const (
	ErrSessionCreationFailed   = "failed to create Discord session: %w"
	ErrSessionConnectionFailed = "failed to connect to Discord: %w"
)

// Intents covers interactions and the guild data handlers read. Message
// content is not needed because the bot only reacts to interactions.
const Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers

// Seams replaced in tests.
var (
	newSession   = discordgo.New
	openSession  = (*discordgo.Session).Open
	closeSession = (*discordgo.Session).Close
)

// NewDiscordSession creates a session for token and connects it to the gateway.
func NewDiscordSession(token string) (*discordgo.Session, error) {
	logger := logging.WithField("component", "session")
	if token == "" {
		return nil, fmt.Errorf("discord bot token is empty")
	}

	s, err := newSession("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf(ErrSessionCreationFailed, err)
	}
	s.Identify.Intents = Intents

	logger.Info("Connecting to Discord...")
	if err := openSession(s); err != nil {
		if cerr := closeSession(s); cerr != nil {
			logger.WithError(cerr).Warn("Unable to close failed session")
		}
		return nil, fmt.Errorf(ErrSessionConnectionFailed, err)
	}

	logger.Info("Connected to Discord")
	return s, nil
}
