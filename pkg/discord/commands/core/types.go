package core

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/guildkit/pkg/customid"
	"github.com/small-frappuccino/guildkit/pkg/discord/platform"
	"github.com/small-frappuccino/guildkit/pkg/logging"
	"github.com/small-frappuccino/guildkit/pkg/storage"
)

// Command represents a Discord slash command
type Command interface {
	Name() string
	Description() string
	Options() []*discordgo.ApplicationCommandOption
	Handle(ctx *Context) error
	RequiresGuild() bool
	// Permissions is the default member permission bitmask published with
	// the command schema and checked before Handle. Zero means everyone.
	Permissions() int64
}

// SubCommand represents a subcommand inside a larger command
type SubCommand interface {
	Name() string
	Description() string
	Options() []*discordgo.ApplicationCommandOption
	Handle(ctx *Context) error
	RequiresGuild() bool
	Permissions() int64
}

// ComponentHandler handles button and select interactions whose custom id
// base matches the command name.
type ComponentHandler interface {
	HandleComponent(ctx *Context) error
}

// ModalHandler handles modal submissions whose custom id base matches the
// command name.
type ModalHandler interface {
	HandleModal(ctx *Context) error
}

// InteractionKind names the three routable interaction kinds.
type InteractionKind string

const (
	KindCommand   InteractionKind = "command"
	KindComponent InteractionKind = "component"
	KindModal     InteractionKind = "modal"
)

// Context carries everything a handler needs for one interaction
type Context struct {
	Ctx         context.Context
	Session     platform.Client
	Interaction *discordgo.InteractionCreate
	Store       *storage.Store
	Logger      *logging.Logger
	Kind        InteractionKind
	GuildID     string
	ChannelID   string
	UserID      string
	Member      *discordgo.Member
	// CustomID is set for component and modal interactions.
	CustomID customid.ID
	// Options holds the options of the innermost subcommand being run.
	Options []*discordgo.ApplicationCommandInteractionDataOption
	// Path is the command name followed by any subcommand group and subcommand.
	Path []string

	now func() time.Time
}

// Now returns the current time, overridable in tests through the router.
func (ctx *Context) Now() time.Time {
	if ctx.now != nil {
		return ctx.now()
	}
	return time.Now()
}

// Args returns an extractor over the current option level.
func (ctx *Context) Args() *OptionExtractor {
	return NewOptionExtractor(ctx.Options)
}

// Respond returns a responder bound to the context session.
func (ctx *Context) Respond() *Responder {
	return NewResponder(ctx.Session)
}

// Resolved returns the resolved users, roles and channels of a command interaction.
func (ctx *Context) Resolved() *discordgo.ApplicationCommandInteractionDataResolved {
	if ctx.Kind != KindCommand {
		return nil
	}
	return ctx.Interaction.ApplicationCommandData().Resolved
}

// CommandRegistry stores commands and the component and modal handlers keyed by base
type CommandRegistry struct {
	commands    map[string]Command
	components  map[string]ComponentHandler
	modals      map[string]ModalHandler
	subcommands map[string]map[string]SubCommand // [commandName][subcommandName]
}

func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands:    make(map[string]Command),
		components:  make(map[string]ComponentHandler),
		modals:      make(map[string]ModalHandler),
		subcommands: make(map[string]map[string]SubCommand),
	}
}

// Register stores a command. Commands that also implement ComponentHandler or
// ModalHandler are registered for custom ids whose base equals their name.
func (r *CommandRegistry) Register(cmd Command) {
	r.commands[cmd.Name()] = cmd
	if h, ok := cmd.(ComponentHandler); ok {
		r.components[cmd.Name()] = h
	}
	if h, ok := cmd.(ModalHandler); ok {
		r.modals[cmd.Name()] = h
	}
}

// RegisterComponent binds a component handler to a custom id base
func (r *CommandRegistry) RegisterComponent(base string, h ComponentHandler) {
	r.components[base] = h
}

// RegisterModal binds a modal handler to a custom id base
func (r *CommandRegistry) RegisterModal(base string, h ModalHandler) {
	r.modals[base] = h
}

// RegisterSubCommand registers a subcommand under a parent command name
func (r *CommandRegistry) RegisterSubCommand(parentName string, subcmd SubCommand) {
	if r.subcommands[parentName] == nil {
		r.subcommands[parentName] = make(map[string]SubCommand)
	}
	r.subcommands[parentName][subcmd.Name()] = subcmd
}

// GetCommand returns a command by name
func (r *CommandRegistry) GetCommand(name string) (Command, bool) {
	cmd, exists := r.commands[name]
	return cmd, exists
}

// GetComponent returns the component handler for a custom id base
func (r *CommandRegistry) GetComponent(base string) (ComponentHandler, bool) {
	h, ok := r.components[base]
	return h, ok
}

// GetModal returns the modal handler for a custom id base
func (r *CommandRegistry) GetModal(base string) (ModalHandler, bool) {
	h, ok := r.modals[base]
	return h, ok
}

// GetSubCommand returns a subcommand by parent and subcommand name
func (r *CommandRegistry) GetSubCommand(parentName, subName string) (SubCommand, bool) {
	if subs, exists := r.subcommands[parentName]; exists {
		if sub, exists := subs[subName]; exists {
			return sub, true
		}
	}
	return nil, false
}

// GetAllCommands returns all registered commands
func (r *CommandRegistry) GetAllCommands() map[string]Command {
	return r.commands
}
