package commands

import (
	"fmt"

	"github.com/small-frappuccino/guildkit/pkg/discord/commands/apply"
	"github.com/small-frappuccino/guildkit/pkg/discord/commands/core"
	"github.com/small-frappuccino/guildkit/pkg/discord/commands/general"
	"github.com/small-frappuccino/guildkit/pkg/discord/commands/poll"
	"github.com/small-frappuccino/guildkit/pkg/discord/commands/role"
	"github.com/small-frappuccino/guildkit/pkg/discord/commands/social"
	"github.com/small-frappuccino/guildkit/pkg/discord/platform"
	"github.com/small-frappuccino/guildkit/pkg/logging"
	"github.com/small-frappuccino/guildkit/pkg/storage"
)

// Services bundles the feature services the handler exposes as commands.
type Services struct {
	Apply *apply.Service
	Poll  *poll.Service
	Role  *role.Service
}

// CommandHandler is the main handler that coordinates all bot commands
type CommandHandler struct {
	session        platform.Client
	commandManager *core.CommandManager
	services       Services
	logger         *logging.Logger
}

// NewCommandHandler creates a handler over session and store. Every command
// is registered immediately so the router can dispatch before the schemas
// are published.
func NewCommandHandler(session platform.Client, store *storage.Store, services Services, commandGuild string, opts ...core.RouterOption) *CommandHandler {
	ch := &CommandHandler{
		session:        session,
		commandManager: core.NewCommandManager(session, store, opts...),
		services:       services,
		logger:         logging.WithField("component", "command_handler"),
	}
	ch.registerCommands(commandGuild)
	return ch
}

func (ch *CommandHandler) registerCommands(commandGuild string) {
	router := ch.commandManager.GetRouter()

	general.RegisterCommands(router, commandGuild)
	social.RegisterCommands(router)
	if ch.services.Apply != nil {
		apply.RegisterCommands(router, ch.services.Apply)
	}
	if ch.services.Poll != nil {
		poll.RegisterCommands(router, ch.services.Poll)
	}
	if ch.services.Role != nil {
		role.RegisterCommands(router, ch.services.Role)
	}

	ch.logger.WithField("total", len(ch.commandManager.Schemas())).Info("Commands registered")
}

// SetupCommands publishes the command schemas for appID. An empty guildID
// publishes them globally.
func (ch *CommandHandler) SetupCommands(appID, guildID string) error {
	ch.logger.Info("Setting up bot commands...")
	if err := ch.commandManager.SetupCommands(appID, guildID); err != nil {
		return fmt.Errorf("failed to setup commands: %w", err)
	}
	ch.logger.Info("Bot commands setup completed successfully")
	return nil
}

// Attach starts routing gateway interactions. The returned func detaches it.
func (ch *CommandHandler) Attach(s interface{ AddHandler(any) func() }) func() {
	return ch.commandManager.Attach(s)
}

// GetCommandManager returns the command manager (for tests or extensions)
func (ch *CommandHandler) GetCommandManager() *core.CommandManager {
	return ch.commandManager
}
