package apply

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/guildkit/pkg/discord/commands/core"
	"github.com/small-frappuccino/guildkit/pkg/errors"
)

const (
	optTitle       = "title"
	optDescription = "description"
	optThumbnail   = "thumbnail_link"
	optChannel     = "output_channel"
	optRole        = "acceptance_role"
	optUser        = "user"
	optStatus      = "status"
	optReason      = "reason"
	optOverwrite   = "overwrite"
)

var questionOptions = [MaxQuestions]string{"question_1", "question_2", "question_3", "question_4", "question_5"}
var ordinals = [MaxQuestions]string{"first", "second", "third", "fourth", "fifth"}

// Commands is the /apply command together with its buttons and modals.
type Commands struct {
	*core.GroupCommand
	svc     *Service
	checker *core.PermissionChecker
}

// RegisterCommands registers /apply and its component and modal handlers.
func RegisterCommands(router *core.CommandRouter, svc *Service) *Commands {
	checker := router.GetPermissionChecker()
	c := &Commands{
		GroupCommand: core.NewGroupCommand(Name, "Manage guild applications", checker),
		svc:          svc,
		checker:      checker,
	}
	c.SetPermissions(discordgo.PermissionModerateMembers).SetRequiresGuild(true)

	c.AddSubCommand(core.NewSimpleCommand("config", "Configure guild applications", contentOptions(true), c.handleConfig, true, 0))
	c.AddSubCommand(core.NewSimpleCommand("modify", "Modify the guild application configuration", contentOptions(false), c.handleModify, true, 0))
	c.AddSubCommand(core.NewSimpleCommand("update", "Update a member's submitted application", updateOptions(), c.handleUpdate, true, 0))
	c.AddSubCommand(core.NewSimpleCommand("remove", "Remove a member's submitted application", []*discordgo.ApplicationCommandOption{
		{Type: discordgo.ApplicationCommandOptionUser, Name: optUser, Description: "The guild member that submitted the application", Required: true},
	}, c.handleRemove, true, 0))

	router.RegisterCommand(c)
	return c
}

func intPtr(v int) *int { return &v }

func contentOptions(required bool) []*discordgo.ApplicationCommandOption {
	opts := []*discordgo.ApplicationCommandOption{
		{Type: discordgo.ApplicationCommandOptionString, Name: optTitle, Description: "The title of the guild application embed", MaxLength: MaxTitleLen, Required: required},
		{Type: discordgo.ApplicationCommandOptionString, Name: optDescription, Description: "The description of the guild application embed", MaxLength: MaxDescriptionLen, Required: required},
		{Type: discordgo.ApplicationCommandOptionString, Name: optThumbnail, Description: "The thumbnail link of the guild application embed", Required: required},
		{
			Type:         discordgo.ApplicationCommandOptionChannel,
			Name:         optChannel,
			Description:  "The output channel for submitted forms",
			ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
			Required:     required,
		},
		{Type: discordgo.ApplicationCommandOptionRole, Name: optRole, Description: "The role given to members that are accepted", Required: required},
	}
	for i, name := range questionOptions {
		opts = append(opts, &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        name,
			Description: fmt.Sprintf("The %s question on the application", ordinals[i]),
			MaxLength:   MaxQuestionLen,
			Required:    required && i == 0,
		})
	}
	return opts
}

func updateOptions() []*discordgo.ApplicationCommandOption {
	choice := func(s Status) *discordgo.ApplicationCommandOptionChoice {
		return &discordgo.ApplicationCommandOptionChoice{Name: s.Display(), Value: int(s)}
	}
	return []*discordgo.ApplicationCommandOption{
		{Type: discordgo.ApplicationCommandOptionUser, Name: optUser, Description: "The guild member that submitted the application", Required: true},
		{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        optStatus,
			Description: "The new status of the application",
			Required:    true,
			Choices:     []*discordgo.ApplicationCommandOptionChoice{choice(StatusAccepted), choice(StatusDenied), choice(StatusResend)},
		},
		{Type: discordgo.ApplicationCommandOptionString, Name: optReason, Description: "The reason for the update", MaxLength: MaxReasonLen},
		{Type: discordgo.ApplicationCommandOptionBoolean, Name: optOverwrite, Description: "Whether to overwrite a finalized application (default false)"},
	}
}

// unescape turns the literal "\n" sequences slash command users type into newlines.
func unescape(s string) string { return strings.ReplaceAll(s, `\n`, "\n") }

func (c *Commands) handleConfig(ctx *core.Context) error {
	args := ctx.Args()
	title, err := args.StringRequired(optTitle)
	if err != nil {
		return err
	}
	description, err := args.StringRequired(optDescription)
	if err != nil {
		return err
	}
	thumbnail, err := args.StringRequired(optThumbnail)
	if err != nil {
		return err
	}
	channel, err := args.ChannelRequired(optChannel)
	if err != nil {
		return err
	}
	role, err := args.RoleRequired(optRole)
	if err != nil {
		return err
	}
	first, err := args.StringRequired(questionOptions[0])
	if err != nil {
		return err
	}
	questions := []string{first}
	for _, name := range questionOptions[1:] {
		if q, ok := args.StringOK(name); ok {
			questions = append(questions, q)
		}
	}

	cfg := Config{
		Channel: channel,
		Role:    role,
		Content: Content{
			Title:       title,
			Description: unescape(description),
			Thumbnail:   thumbnail,
			Questions:   questions,
		},
	}
	if _, err := c.svc.Configure(ctx.Ctx, ctx.GuildID, ctx.ChannelID, cfg); err != nil {
		return err
	}
	return ctx.Respond().Notice(ctx.Interaction, "Configured applications!")
}

func (c *Commands) handleModify(ctx *core.Context) error {
	args := ctx.Args()
	var patch ConfigPatch
	if v, ok := args.StringOK(optTitle); ok {
		patch.Title = &v
	}
	if v, ok := args.StringOK(optDescription); ok {
		v = unescape(v)
		patch.Description = &v
	}
	if v, ok := args.StringOK(optThumbnail); ok {
		patch.Thumbnail = &v
	}
	if v := args.Channel(optChannel); v != "" {
		patch.Channel = &v
	}
	if v := args.Role(optRole); v != "" {
		patch.Role = &v
	}
	for i, name := range questionOptions {
		if q, ok := args.StringOK(name); ok {
			if patch.Questions == nil {
				patch.Questions = make(map[int]string)
			}
			patch.Questions[i] = q
		}
	}

	if _, err := c.svc.Modify(ctx.Ctx, ctx.GuildID, ctx.ChannelID, patch); err != nil {
		return err
	}
	return ctx.Respond().Notice(ctx.Interaction, "Updated application configuration!")
}

func (c *Commands) handleUpdate(ctx *core.Context) error {
	args := ctx.Args()
	user, err := args.UserRequired(optUser)
	if err != nil {
		return err
	}
	raw, err := args.IntRequired(optStatus)
	if err != nil {
		return err
	}
	status, err := ParseStatus(raw)
	if err != nil {
		return err
	}

	if _, err := c.svc.Update(ctx.Ctx, ctx.GuildID, user, status, args.String(optReason), args.Bool(optOverwrite)); err != nil {
		return err
	}
	return ctx.Respond().Notice(ctx.Interaction, "Updated user application!")
}

// handleRemove deletes the application and revokes the acceptance role,
// which the service deliberately leaves in place.
func (c *Commands) handleRemove(ctx *core.Context) error {
	user, err := ctx.Args().UserRequired(optUser)
	if err != nil {
		return err
	}
	if err := c.svc.Remove(ctx.Ctx, ctx.GuildID, user); err != nil {
		return err
	}
	if err := c.svc.RevokeRole(ctx.Ctx, ctx.GuildID, user); err != nil {
		return err
	}
	return ctx.Respond().Notice(ctx.Interaction, "Removed user application!")
}

// HandleComponent serves the buttons on the application card and on review cards.
func (c *Commands) HandleComponent(ctx *core.Context) error {
	if ctx.GuildID == "" {
		return errors.MissingField("guild")
	}
	responder := ctx.Respond()

	switch name := ctx.CustomID.Name; name {
	case ButtonModal:
		if err := c.svc.CanSubmit(ctx.Ctx, ctx.GuildID, ctx.UserID); err != nil {
			return err
		}
		cfg, err := c.svc.Config(ctx.Ctx, ctx.GuildID)
		if err != nil {
			return err
		}
		return responder.Modal(ctx.Interaction, ModalSubmit, "Apply to Guild", submitModal(cfg)...)

	case ButtonAbout:
		bot, _ := ctx.Session.User("@me")
		return responder.Embed(ctx.Interaction, true, aboutEmbed(bot))

	case ButtonAccept, ButtonDeny, ButtonResend:
		if !c.checker.HasPermission(ctx, discordgo.PermissionModerateMembers) {
			return errors.Precondition("You do not have permission to review applications")
		}
		user, ok := ctx.CustomID.ArgAt(0)
		if !ok || user == "" {
			return errors.MissingField("user")
		}
		status, _ := statusForButton(name)
		if _, err := c.svc.Form(ctx.Ctx, ctx.GuildID, user); err != nil {
			return err
		}
		return responder.Modal(ctx.Interaction, updateModalID(user, status), "Update Application", updateModal()...)

	default:
		return errors.Routing(string(ctx.Kind), name)
	}
}

// HandleModal serves the submission and review modals.
func (c *Commands) HandleModal(ctx *core.Context) error {
	if ctx.GuildID == "" {
		return errors.MissingField("guild")
	}
	values := core.ModalValues(ctx.Interaction)

	switch name := ctx.CustomID.Name; name {
	case ModalSubmit:
		var answers []string
		for i := range MaxQuestions {
			if v, ok := values[strconv.Itoa(i)]; ok {
				answers = append(answers, v)
			}
		}
		if _, err := c.svc.Submit(ctx.Ctx, ctx.GuildID, ctx.UserID, answers); err != nil {
			return err
		}
		return ctx.Respond().Acknowledge(ctx.Interaction)

	case ModalUpdate:
		if !c.checker.HasPermission(ctx, discordgo.PermissionModerateMembers) {
			return errors.Precondition("You do not have permission to review applications")
		}
		user, ok := ctx.CustomID.ArgAt(0)
		if !ok || user == "" {
			return errors.MissingField("user")
		}
		rawStatus, ok := ctx.CustomID.ArgAt(1)
		if !ok {
			return errors.MissingField("status")
		}
		n, err := strconv.ParseInt(rawStatus, 10, 64)
		if err != nil {
			return errors.InvalidField("status", rawStatus)
		}
		status, err := ParseStatus(n)
		if err != nil {
			return err
		}
		reason := strings.TrimSpace(values[inputReason])
		if _, err := c.svc.Update(ctx.Ctx, ctx.GuildID, user, status, reason, false); err != nil {
			return err
		}
		return ctx.Respond().Acknowledge(ctx.Interaction)

	default:
		return errors.Routing(string(ctx.Kind), name)
	}
}
