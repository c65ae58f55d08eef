package core

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/small-frappuccino/guildkit/pkg/customid"
	"github.com/small-frappuccino/guildkit/pkg/discord/platform"
	"github.com/small-frappuccino/guildkit/pkg/errors"
	"github.com/small-frappuccino/guildkit/pkg/logging"
	"github.com/small-frappuccino/guildkit/pkg/storage"
)

// CommandRouter classifies interactions and routes them to registered handlers
type CommandRouter struct {
	session     platform.Client
	store       *storage.Store
	registry    *CommandRegistry
	responder   *Responder
	permChecker *PermissionChecker
	logger      *logging.Logger
	now         func() time.Time
	baseCtx     context.Context
}

// RouterOption customizes a CommandRouter
type RouterOption func(*CommandRouter)

// WithClock overrides the time source handed to handlers
func WithClock(now func() time.Time) RouterOption {
	return func(cr *CommandRouter) { cr.now = now }
}

// WithLogger overrides the router logger
func WithLogger(l *logging.Logger) RouterOption {
	return func(cr *CommandRouter) { cr.logger = l }
}

// WithBaseContext sets the parent context of every handler invocation
func WithBaseContext(ctx context.Context) RouterOption {
	return func(cr *CommandRouter) { cr.baseCtx = ctx }
}

// NewCommandRouter creates a router over the given client and store
func NewCommandRouter(session platform.Client, store *storage.Store, opts ...RouterOption) *CommandRouter {
	cr := &CommandRouter{
		session:     session,
		store:       store,
		registry:    NewCommandRegistry(),
		responder:   NewResponder(session),
		permChecker: NewPermissionChecker(session),
		now:         time.Now,
		baseCtx:     context.Background(),
	}
	for _, opt := range opts {
		opt(cr)
	}
	if cr.logger == nil {
		cr.logger = logging.WithField("component", "command_router")
	}
	return cr
}

// RegisterCommand registers a command along with its component and modal handlers
func (cr *CommandRouter) RegisterCommand(cmd Command) {
	cr.registry.Register(cmd)
}

// RegisterSubCommand registers a subcommand
func (cr *CommandRouter) RegisterSubCommand(parentName string, subcmd SubCommand) {
	cr.registry.RegisterSubCommand(parentName, subcmd)
}

// HandleInteraction is the discordgo event handler entry point
func (cr *CommandRouter) HandleInteraction(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	cr.Dispatch(i)
}

// Dispatch runs one interaction to completion. Any failure results in a
// single ephemeral error reply.
func (cr *CommandRouter) Dispatch(i *discordgo.InteractionCreate) {
	if i == nil || i.Interaction == nil {
		return
	}

	var kind InteractionKind
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		kind = KindCommand
	case discordgo.InteractionMessageComponent:
		kind = KindComponent
	case discordgo.InteractionModalSubmit:
		kind = KindModal
	default:
		return
	}

	ctx := cr.buildContext(i, kind)
	key, err := cr.routingKey(ctx)
	ctx.Logger = ctx.Logger.WithField("key", key)

	if err == nil {
		ctx.Logger.Debug("Dispatching interaction")
		err = cr.invoke(ctx, key)
	}
	if err == nil {
		ctx.Logger.Info("Interaction handled")
		return
	}

	ctx.Logger.WithFields(map[string]any{
		"category": errors.CategoryOf(err),
		"error":    err,
	}).Warn("Interaction failed")
	if rerr := cr.responder.Failure(i, err); rerr != nil {
		ctx.Logger.WithError(rerr).Error("Unable to inform user of failure")
	}
}

func (cr *CommandRouter) buildContext(i *discordgo.InteractionCreate, kind InteractionKind) *Context {
	ctx := &Context{
		Ctx:         cr.baseCtx,
		Session:     cr.session,
		Interaction: i,
		Store:       cr.store,
		Kind:        kind,
		GuildID:     i.GuildID,
		ChannelID:   i.ChannelID,
		Member:      i.Member,
		now:         cr.now,
	}
	switch {
	case i.Member != nil && i.Member.User != nil:
		ctx.UserID = i.Member.User.ID
	case i.User != nil:
		ctx.UserID = i.User.ID
	}
	ctx.Logger = cr.logger.WithFields(map[string]any{
		"trace_id": uuid.NewString(),
		"kind":     kind,
		"guild":    ctx.GuildID,
		"user":     ctx.UserID,
	})
	return ctx
}

func (cr *CommandRouter) routingKey(ctx *Context) (string, error) {
	i := ctx.Interaction
	if ctx.Kind == KindCommand {
		data := i.ApplicationCommandData()
		ctx.Options = data.Options
		ctx.Path = []string{data.Name}
		return data.Name, nil
	}

	raw := ""
	if ctx.Kind == KindComponent {
		raw = i.MessageComponentData().CustomID
	} else {
		raw = i.ModalSubmitData().CustomID
	}
	id, err := customid.Parse(raw)
	if err != nil {
		return raw, errors.Routing(string(ctx.Kind), raw)
	}
	ctx.CustomID = id
	return id.Base, nil
}

func (cr *CommandRouter) invoke(ctx *Context, key string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			ctx.Logger.WithField("stack", string(debug.Stack())).Error("Handler panicked")
			err = &errors.Error{Category: errors.CategoryInternal, Message: fmt.Sprintf("handler panicked: %v", r)}
		}
	}()

	switch ctx.Kind {
	case KindCommand:
		cmd, ok := cr.registry.GetCommand(key)
		if !ok {
			return errors.Routing(string(ctx.Kind), key)
		}
		if err := cr.checkAccess(ctx, cmd.RequiresGuild(), cmd.Permissions()); err != nil {
			return err
		}
		return cmd.Handle(ctx)
	case KindComponent:
		h, ok := cr.registry.GetComponent(key)
		if !ok {
			return errors.Routing(string(ctx.Kind), key)
		}
		return h.HandleComponent(ctx)
	default:
		h, ok := cr.registry.GetModal(key)
		if !ok {
			return errors.Routing(string(ctx.Kind), key)
		}
		return h.HandleModal(ctx)
	}
}

func (cr *CommandRouter) checkAccess(ctx *Context, requiresGuild bool, perms int64) error {
	if requiresGuild && ctx.GuildID == "" {
		return errors.Precondition("This command can only be used in a server")
	}
	if perms != 0 && !cr.permChecker.HasPermission(ctx, perms) {
		return errors.Precondition("You do not have permission to use this command")
	}
	return nil
}

// GetRegistry returns the command registry
func (cr *CommandRouter) GetRegistry() *CommandRegistry {
	return cr.registry
}

// GetResponder returns the responder
func (cr *CommandRouter) GetResponder() *Responder {
	return cr.responder
}

// GetPermissionChecker returns the permission checker
func (cr *CommandRouter) GetPermissionChecker() *PermissionChecker {
	return cr.permChecker
}

// CommandManager owns the router and publishes command schemas to Discord
type CommandManager struct {
	session platform.Client
	router  *CommandRouter
	logger  *logging.Logger
}

// NewCommandManager creates a new command manager
func NewCommandManager(session platform.Client, store *storage.Store, opts ...RouterOption) *CommandManager {
	return &CommandManager{
		session: session,
		router:  NewCommandRouter(session, store, opts...),
		logger:  logging.WithField("component", "command_manager"),
	}
}

// GetRouter returns the command router
func (cm *CommandManager) GetRouter() *CommandRouter {
	return cm.router
}

// Attach registers the interaction handler on a live gateway session
func (cm *CommandManager) Attach(s interface{ AddHandler(any) func() }) func() {
	return s.AddHandler(cm.router.HandleInteraction)
}

// Schemas returns the application command schemas of every registered
// command, sorted by name.
func (cm *CommandManager) Schemas() []*discordgo.ApplicationCommand {
	cmds := cm.router.registry.GetAllCommands()
	out := make([]*discordgo.ApplicationCommand, 0, len(cmds))
	for _, cmd := range cmds {
		out = append(out, Schema(cmd))
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}

// Schema builds the application command schema of cmd
func Schema(cmd Command) *discordgo.ApplicationCommand {
	desired := &discordgo.ApplicationCommand{
		Name:        cmd.Name(),
		Description: cmd.Description(),
		Options:     cmd.Options(),
	}
	if perms := cmd.Permissions(); perms != 0 {
		desired.DefaultMemberPermissions = &perms
	}
	if cmd.RequiresGuild() {
		dm := false
		desired.DMPermission = &dm
	}
	return desired
}

// SetupCommands publishes the registered command schemas. With a non-empty
// guildID the commands are guild scoped, which applies immediately and is
// meant for development. The bulk overwrite is skipped when Discord already
// holds identical schemas.
func (cm *CommandManager) SetupCommands(appID, guildID string) error {
	desired := cm.Schemas()

	registered, err := cm.session.ApplicationCommands(appID, guildID)
	if err != nil {
		return errors.Platform("fetch registered commands", err)
	}

	if sameSchemas(registered, desired) {
		cm.logger.WithFields(map[string]any{
			"total": len(desired),
			"guild": guildID,
		}).Info("Commands unchanged, skipping synchronization")
		return nil
	}

	published, err := cm.session.ApplicationCommandBulkOverwrite(appID, guildID, desired)
	if err != nil {
		return errors.Platform("overwrite commands", err)
	}

	cm.logger.WithFields(map[string]any{
		"previous": len(registered),
		"total":    len(published),
		"guild":    guildID,
		"mode":     "bulk_overwrite",
	}).Info("Command synchronization completed")
	return nil
}

func sameSchemas(registered, desired []*discordgo.ApplicationCommand) bool {
	if len(registered) != len(desired) {
		return false
	}
	byName := make(map[string]*discordgo.ApplicationCommand, len(registered))
	for _, rc := range registered {
		byName[rc.Name] = rc
	}
	for _, d := range desired {
		rc, ok := byName[d.Name]
		if !ok || !CompareCommands(rc, d) {
			return false
		}
	}
	return true
}

// GroupCommand is a command made of subcommands and subcommand groups
type GroupCommand struct {
	name          string
	description   string
	subcommands   map[string]SubCommand
	groups        map[string]*GroupCommand
	order         []string
	checker       *PermissionChecker
	permissions   int64
	requiresGuild bool
}

// NewGroupCommand creates a new group command
func NewGroupCommand(name, description string, checker *PermissionChecker) *GroupCommand {
	return &GroupCommand{
		name:        name,
		description: description,
		subcommands: make(map[string]SubCommand),
		groups:      make(map[string]*GroupCommand),
		checker:     checker,
	}
}

// SetPermissions sets the default member permissions of the whole command
func (gc *GroupCommand) SetPermissions(perms int64) *GroupCommand {
	gc.permissions = perms
	return gc
}

// SetRequiresGuild marks the command as guild only
func (gc *GroupCommand) SetRequiresGuild(v bool) *GroupCommand {
	gc.requiresGuild = v
	return gc
}

// AddSubCommand adds a subcommand to the group
func (gc *GroupCommand) AddSubCommand(subcmd SubCommand) {
	if _, exists := gc.subcommands[subcmd.Name()]; !exists {
		gc.order = append(gc.order, subcmd.Name())
	}
	gc.subcommands[subcmd.Name()] = subcmd
}

// AddGroup adds a nested subcommand group
func (gc *GroupCommand) AddGroup(group *GroupCommand) {
	if _, exists := gc.groups[group.Name()]; !exists {
		gc.order = append(gc.order, group.Name())
	}
	group.checker = gc.checker
	gc.groups[group.Name()] = group
}

func (gc *GroupCommand) Name() string        { return gc.name }
func (gc *GroupCommand) Description() string { return gc.description }
func (gc *GroupCommand) Permissions() int64  { return gc.permissions }

// Options builds the command options from subcommands and groups in the order they were added
func (gc *GroupCommand) Options() []*discordgo.ApplicationCommandOption {
	options := make([]*discordgo.ApplicationCommandOption, 0, len(gc.order))
	for _, name := range gc.order {
		if group, ok := gc.groups[name]; ok {
			options = append(options, &discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
				Name:        group.Name(),
				Description: group.Description(),
				Options:     group.Options(),
			})
			continue
		}
		subcmd := gc.subcommands[name]
		options = append(options, &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        subcmd.Name(),
			Description: subcmd.Description(),
			Options:     subcmd.Options(),
		})
	}
	return options
}

// RequiresGuild reports whether the group or any subcommand requires a server
func (gc *GroupCommand) RequiresGuild() bool {
	if gc.requiresGuild {
		return true
	}
	for _, subcmd := range gc.subcommands {
		if subcmd.RequiresGuild() {
			return true
		}
	}
	for _, group := range gc.groups {
		if group.RequiresGuild() {
			return true
		}
	}
	return false
}

// Handle routes to the selected subcommand, descending through groups
func (gc *GroupCommand) Handle(ctx *Context) error {
	if len(ctx.Options) == 0 || ctx.Options[0] == nil {
		return errors.MissingField("subcommand")
	}
	selected := ctx.Options[0]

	switch selected.Type {
	case discordgo.ApplicationCommandOptionSubCommandGroup:
		group, ok := gc.groups[selected.Name]
		if !ok {
			return errors.Routing("subcommand", selected.Name)
		}
		ctx.Options = selected.Options
		ctx.Path = append(ctx.Path, selected.Name)
		return group.Handle(ctx)
	case discordgo.ApplicationCommandOptionSubCommand:
	default:
		return errors.MissingField("subcommand")
	}

	subcmd, ok := gc.subcommands[selected.Name]
	if !ok {
		return errors.Routing("subcommand", selected.Name)
	}

	if subcmd.RequiresGuild() && ctx.GuildID == "" {
		return errors.Precondition("This subcommand can only be used in a server")
	}
	if perms := subcmd.Permissions(); perms != 0 && gc.checker != nil && !gc.checker.HasPermission(ctx, perms) {
		return errors.Precondition("You do not have permission to use this subcommand")
	}

	ctx.Options = selected.Options
	ctx.Path = append(ctx.Path, selected.Name)
	return subcmd.Handle(ctx)
}

// SimpleCommand implements Command with a plain handler function
type SimpleCommand struct {
	name          string
	description   string
	options       []*discordgo.ApplicationCommandOption
	handler       func(ctx *Context) error
	requiresGuild bool
	permissions   int64
}

// NewSimpleCommand creates a simple command
func NewSimpleCommand(
	name, description string,
	options []*discordgo.ApplicationCommandOption,
	handler func(ctx *Context) error,
	requiresGuild bool,
	permissions int64,
) *SimpleCommand {
	return &SimpleCommand{
		name:          name,
		description:   description,
		options:       options,
		handler:       handler,
		requiresGuild: requiresGuild,
		permissions:   permissions,
	}
}

func (sc *SimpleCommand) Name() string        { return sc.name }
func (sc *SimpleCommand) Description() string { return sc.description }
func (sc *SimpleCommand) Options() []*discordgo.ApplicationCommandOption {
	return sc.options
}
func (sc *SimpleCommand) Handle(ctx *Context) error { return sc.handler(ctx) }
func (sc *SimpleCommand) RequiresGuild() bool       { return sc.requiresGuild }
func (sc *SimpleCommand) Permissions() int64        { return sc.permissions }
