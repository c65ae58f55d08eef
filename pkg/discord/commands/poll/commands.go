package poll

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/guildkit/pkg/discord/commands/core"
	"github.com/small-frappuccino/guildkit/pkg/errors"
)

const (
	optKind        = "kind"
	optTitle       = "title"
	optDescription = "description"
	optHours       = "hours"
	optImage       = "image_link"
	optHideMembers = "hidden_members"
	optHideResults = "hidden_results"
	optForce       = "force"
	optLabel       = "label"
	optEmoji       = "emoji"
	optPlaceholder = "placeholder"
)

// Commands is the /poll command together with its buttons and modal.
type Commands struct {
	*core.GroupCommand
	svc *Service
}

// RegisterCommands registers /poll and its component and modal handlers.
func RegisterCommands(router *core.CommandRouter, svc *Service) *Commands {
	checker := router.GetPermissionChecker()
	c := &Commands{
		GroupCommand: core.NewGroupCommand(Name, "Create or manage polls", checker),
		svc:          svc,
	}
	c.SetPermissions(discordgo.PermissionSendMessages).SetRequiresGuild(true)

	c.AddSubCommand(core.NewSimpleCommand("create", "Creates a new poll", contentOptions(true), c.handleCreate, true, 0))
	c.AddSubCommand(core.NewSimpleCommand("discard", "Discards your poll", []*discordgo.ApplicationCommandOption{
		{Type: discordgo.ApplicationCommandOptionBoolean, Name: optForce, Description: "Whether the poll should be discarded even if it has been sent"},
	}, c.handleDiscard, true, 0))
	c.AddSubCommand(core.NewSimpleCommand("modify", "Modifies your poll's content", contentOptions(false), c.handleModify, true, 0))
	c.AddSubCommand(core.NewSimpleCommand("preview", "Previews your poll", nil, c.handlePreview, true, 0))
	c.AddSubCommand(core.NewSimpleCommand("send", "Sends your poll", nil, c.handleSend, true, 0))
	c.AddSubCommand(core.NewSimpleCommand("close", "Closes your poll", nil, c.handleClose, true, 0))

	input := core.NewGroupCommand("input", "Create or manage poll inputs", checker)
	input.AddSubCommand(core.NewSimpleCommand("create", "Creates a new poll input; does not work with Raffle polls", []*discordgo.ApplicationCommandOption{
		{Type: discordgo.ApplicationCommandOptionString, Name: optLabel, Description: "The label of the poll input", MaxLength: MaxLabelLen, Required: true},
		{Type: discordgo.ApplicationCommandOptionString, Name: optEmoji, Description: "The emoji of the poll button; only works for Choice polls"},
		{Type: discordgo.ApplicationCommandOptionString, Name: optPlaceholder, Description: "The placeholder text of the poll field; only works for Response polls", MaxLength: MaxLabelLen},
	}, c.handleInputCreate, true, 0))
	input.AddSubCommand(core.NewSimpleCommand("discard", "Discards poll inputs; does not work with Raffle polls", nil, c.handleInputDiscard, true, 0))
	c.AddGroup(input)

	router.RegisterCommand(c)
	return c
}

func contentOptions(required bool) []*discordgo.ApplicationCommandOption {
	minHours := float64(MinHours)
	kindDesc := "The type of poll"
	if !required {
		kindDesc = "The type of poll; this will remove all existing inputs"
	}
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, 3)
	for _, k := range []Kind{KindChoice, KindResponse, KindRaffle} {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: k.Display(), Value: int(k)})
	}
	return []*discordgo.ApplicationCommandOption{
		{Type: discordgo.ApplicationCommandOptionInteger, Name: optKind, Description: kindDesc, Choices: choices, Required: required},
		{Type: discordgo.ApplicationCommandOptionString, Name: optTitle, Description: "The title of the poll", MaxLength: MaxTitleLen, Required: required},
		{Type: discordgo.ApplicationCommandOptionString, Name: optDescription, Description: "The description of the poll", MaxLength: MaxDescriptionLen, Required: required},
		{Type: discordgo.ApplicationCommandOptionInteger, Name: optHours, Description: "The duration of the poll in hours", MinValue: &minHours, MaxValue: MaxHours, Required: required},
		{Type: discordgo.ApplicationCommandOptionString, Name: optImage, Description: "The poll's image link; does not support GIFs"},
		{Type: discordgo.ApplicationCommandOptionBoolean, Name: optHideMembers, Description: "Whether the poll's member replies are anonymous"},
		{Type: discordgo.ApplicationCommandOptionBoolean, Name: optHideResults, Description: "Whether the poll's results are only visible to you"},
	}
}

// flatten keeps descriptions on one line so the card layout holds.
func flatten(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ", "\t", " ").Replace(s)
}

func parseHours(v int64) (int64, error) {
	if v < MinHours || v > MaxHours {
		return 0, errors.InvalidField(optHours, strconv.FormatInt(v, 10))
	}
	return v, nil
}

func (c *Commands) handleCreate(ctx *core.Context) error {
	args := ctx.Args()
	rawKind, err := args.IntRequired(optKind)
	if err != nil {
		return err
	}
	kind, err := ParseKind(rawKind)
	if err != nil {
		return err
	}
	title, err := args.StringRequired(optTitle)
	if err != nil {
		return err
	}
	description, err := args.StringRequired(optDescription)
	if err != nil {
		return err
	}
	rawHours, err := args.IntRequired(optHours)
	if err != nil {
		return err
	}
	hours, err := parseHours(rawHours)
	if err != nil {
		return err
	}

	content := Content{
		Title:       title,
		Description: flatten(description),
		Hours:       hours,
		Image:       args.String(optImage),
		HideMembers: args.Bool(optHideMembers),
		HideResults: args.Bool(optHideResults),
	}
	if _, err := c.svc.Create(ctx.Ctx, ctx.GuildID, ctx.UserID, kind, content); err != nil {
		return err
	}
	return ctx.Respond().Notice(ctx.Interaction, "Created new poll!")
}

func (c *Commands) handleDiscard(ctx *core.Context) error {
	if err := c.svc.Discard(ctx.Ctx, ctx.GuildID, ctx.UserID, ctx.Args().Bool(optForce)); err != nil {
		return err
	}
	return ctx.Respond().Notice(ctx.Interaction, "Discarded your poll!")
}

func (c *Commands) handleModify(ctx *core.Context) error {
	args := ctx.Args()
	var patch ContentPatch
	if v, ok := args.IntOK(optKind); ok {
		kind, err := ParseKind(v)
		if err != nil {
			return err
		}
		patch.Kind = &kind
	}
	if v, ok := args.StringOK(optTitle); ok {
		patch.Title = &v
	}
	if v, ok := args.StringOK(optDescription); ok {
		v = flatten(v)
		patch.Description = &v
	}
	if v, ok := args.IntOK(optHours); ok {
		hours, err := parseHours(v)
		if err != nil {
			return err
		}
		patch.Hours = &hours
	}
	if v, ok := args.StringOK(optImage); ok {
		patch.Image = &v
	}
	if v, ok := args.BoolOK(optHideMembers); ok {
		patch.HideMembers = &v
	}
	if v, ok := args.BoolOK(optHideResults); ok {
		patch.HideResults = &v
	}

	if _, err := c.svc.Modify(ctx.Ctx, ctx.GuildID, ctx.UserID, patch); err != nil {
		return err
	}
	return ctx.Respond().Notice(ctx.Interaction, "Modified poll content!")
}

func (c *Commands) handlePreview(ctx *core.Context) error {
	embed, buttons, err := c.svc.Preview(ctx.Ctx, ctx.GuildID, ctx.UserID)
	if err != nil {
		return err
	}
	return ctx.Respond().Message(ctx.Interaction, &discordgo.InteractionResponseData{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: buttons,
		Flags:      discordgo.MessageFlagsEphemeral,
	})
}

func (c *Commands) handleSend(ctx *core.Context) error {
	if _, err := c.svc.Send(ctx.Ctx, ctx.GuildID, ctx.UserID, ctx.ChannelID, false); err != nil {
		return err
	}
	return ctx.Respond().Notice(ctx.Interaction, "Your poll has been published!")
}

func (c *Commands) handleClose(ctx *core.Context) error {
	if _, err := c.svc.Close(ctx.Ctx, ctx.GuildID, ctx.UserID); err != nil {
		return err
	}
	return ctx.Respond().Notice(ctx.Interaction, "Your poll has been closed!")
}

func (c *Commands) handleInputCreate(ctx *core.Context) error {
	args := ctx.Args()
	label, err := args.StringRequired(optLabel)
	if err != nil {
		return err
	}
	emoji := args.String(optEmoji)
	if emoji != "" && core.ParseEmoji(emoji) == nil {
		emoji = ""
	}
	if _, err := c.svc.AddInput(ctx.Ctx, ctx.GuildID, ctx.UserID, label, emoji, args.String(optPlaceholder)); err != nil {
		return err
	}
	return ctx.Respond().Notice(ctx.Interaction, fmt.Sprintf("Added input '%s'!", label))
}

func (c *Commands) handleInputDiscard(ctx *core.Context) error {
	f, err := c.svc.Draft(ctx.Ctx, ctx.GuildID, ctx.UserID)
	if err != nil {
		return err
	}
	if f.Sent() {
		return errors.Precondition(errSent)
	}
	if len(f.Inputs) == 0 {
		return errors.Precondition("Your poll does not have any inputs")
	}
	return ctx.Respond().Message(ctx.Interaction, removeMessage(f))
}

func ownerArg(ctx *core.Context) (string, error) {
	owner, ok := ctx.CustomID.ArgAt(0)
	if !ok || owner == "" {
		return "", errors.MissingField("user")
	}
	return owner, nil
}

func intArg(ctx *core.Context, i int, name string) (int, error) {
	raw, ok := ctx.CustomID.ArgAt(i)
	if !ok {
		return 0, errors.MissingField(name)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.InvalidField(name, raw)
	}
	return n, nil
}

// HandleComponent serves the poll card, input removal and results buttons.
func (c *Commands) HandleComponent(ctx *core.Context) error {
	if ctx.GuildID == "" {
		return errors.MissingField("guild")
	}
	owner, err := ownerArg(ctx)
	if err != nil {
		return err
	}
	responder := ctx.Respond()

	switch name := ctx.CustomID.Name; name {
	case ButtonChoice:
		index, err := intArg(ctx, 1, "index")
		if err != nil {
			return err
		}
		recorded, err := c.svc.Vote(ctx.Ctx, ctx.GuildID, owner, ctx.UserID, index)
		if err != nil {
			return err
		}
		if recorded {
			return responder.Notice(ctx.Interaction, "Your response has been recorded!")
		}
		return responder.Notice(ctx.Interaction, "Your response has been removed!")

	case ButtonRaffle:
		entered, err := c.svc.ToggleRaffle(ctx.Ctx, ctx.GuildID, owner, ctx.UserID)
		if err != nil {
			return err
		}
		if entered {
			return responder.Notice(ctx.Interaction, "You have been added to the raffle")
		}
		return responder.Notice(ctx.Interaction, "You have been removed from the raffle")

	case ButtonResponse:
		customID, rows, err := c.svc.ResponseModal(ctx.Ctx, ctx.GuildID, owner, ctx.UserID)
		if err != nil {
			return err
		}
		return responder.Modal(ctx.Interaction, customID, "Submit Response", rows...)

	case ButtonRemove:
		index, err := intArg(ctx, 1, "index")
		if err != nil {
			return err
		}
		f, err := c.svc.RemoveInput(ctx.Ctx, ctx.GuildID, owner, ctx.UserID, index)
		if err != nil {
			return err
		}
		if len(f.Inputs) == 0 {
			return responder.Update(ctx.Interaction, &discordgo.InteractionResponseData{
				Embeds:     []*discordgo.MessageEmbed{{Title: "All inputs removed!", Color: colorPoll()}},
				Components: []discordgo.MessageComponent{},
			})
		}
		return responder.Update(ctx.Interaction, removeMessage(f))

	case ButtonResults:
		message, ok := ctx.CustomID.ArgAt(1)
		if !ok || message == "" {
			return errors.MissingField("message")
		}
		data, err := c.svc.Results(ctx.Ctx, ctx.GuildID, owner, message, ctx.UserID, 1)
		if err != nil {
			return err
		}
		return responder.Message(ctx.Interaction, data)

	case ButtonLast, ButtonNext:
		message, ok := ctx.CustomID.ArgAt(1)
		if !ok || message == "" {
			return errors.MissingField("message")
		}
		page, err := intArg(ctx, 2, "page")
		if err != nil {
			return err
		}
		if name == ButtonLast {
			page--
		} else {
			page++
		}
		data, err := c.svc.Results(ctx.Ctx, ctx.GuildID, owner, message, ctx.UserID, page)
		if err != nil {
			return err
		}
		return responder.Update(ctx.Interaction, data)

	default:
		return errors.Routing(string(ctx.Kind), name)
	}
}

// HandleModal records the answers of a response poll.
func (c *Commands) HandleModal(ctx *core.Context) error {
	if ctx.GuildID == "" {
		return errors.MissingField("guild")
	}
	if !ctx.CustomID.Is(ModalSubmit) {
		return errors.Routing(string(ctx.Kind), ctx.CustomID.Name)
	}
	owner, err := ownerArg(ctx)
	if err != nil {
		return err
	}
	if err := c.svc.Respond(ctx.Ctx, ctx.GuildID, owner, ctx.UserID, core.ModalValues(ctx.Interaction)); err != nil {
		return err
	}
	return ctx.Respond().Notice(ctx.Interaction, "Your response has been recorded!")
}
