package role

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/guildkit/pkg/discord/commands/core"
	"github.com/small-frappuccino/guildkit/pkg/errors"
)

const (
	optRole = "role"
	optIcon = "icon"
	optText = "text"
)

// Commands is the /role command together with the toggle button.
type Commands struct {
	*core.GroupCommand
	svc *Service
}

// RegisterCommands registers /role and its toggle handler.
func RegisterCommands(router *core.CommandRouter, svc *Service) *Commands {
	c := &Commands{
		GroupCommand: core.NewGroupCommand(Name, "Create or manage role selectors", router.GetPermissionChecker()),
		svc:          svc,
	}
	c.SetPermissions(discordgo.PermissionManageRoles).SetRequiresGuild(true)

	roleOpt := &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionRole, Name: optRole, Description: "The selector's linked role", Required: true}
	c.AddSubCommand(core.NewSimpleCommand("create", "Creates a new role selector", []*discordgo.ApplicationCommandOption{
		roleOpt,
		{Type: discordgo.ApplicationCommandOptionString, Name: optIcon, Description: "The selector's icon", Required: true},
	}, c.handleCreate, true, 0))
	c.AddSubCommand(core.NewSimpleCommand("remove", "Deletes a role selector", []*discordgo.ApplicationCommandOption{roleOpt}, c.handleRemove, true, 0))
	c.AddSubCommand(core.NewSimpleCommand("list", "Lists all current role selectors", nil, c.handleList, true, 0))
	c.AddSubCommand(core.NewSimpleCommand("send", "Sends the current role selectors", []*discordgo.ApplicationCommandOption{
		{Type: discordgo.ApplicationCommandOptionString, Name: optText, Description: "The title of the role selector's embed", MaxLength: MaxTitleLen, Required: true},
	}, c.handleSend, true, 0))

	router.RegisterCommand(c)
	return c
}

// roleName resolves the display name of a role option, falling back to its id.
func roleName(ctx *core.Context, id string) string {
	i := ctx.Interaction
	if i.Type != discordgo.InteractionApplicationCommand {
		return id
	}
	if resolved := i.ApplicationCommandData().Resolved; resolved != nil {
		if r, ok := resolved.Roles[id]; ok && r != nil {
			return r.Name
		}
	}
	return id
}

func (c *Commands) handleCreate(ctx *core.Context) error {
	args := ctx.Args()
	roleID, err := args.RoleRequired(optRole)
	if err != nil {
		return err
	}
	icon, err := args.StringRequired(optIcon)
	if err != nil {
		return err
	}
	if _, err := c.svc.Add(ctx.Ctx, ctx.GuildID, ctx.UserID, roleID, icon); err != nil {
		return err
	}
	return ctx.Respond().Notice(ctx.Interaction, fmt.Sprintf("Created \"%s\" selector!", roleName(ctx, roleID)))
}

func (c *Commands) handleRemove(ctx *core.Context) error {
	roleID, err := ctx.Args().RoleRequired(optRole)
	if err != nil {
		return err
	}
	if _, err := c.svc.Remove(ctx.Ctx, ctx.GuildID, ctx.UserID, roleID); err != nil {
		return err
	}
	return ctx.Respond().Notice(ctx.Interaction, fmt.Sprintf("Removed \"%s\" selector!", roleName(ctx, roleID)))
}

func (c *Commands) handleList(ctx *core.Context) error {
	data, err := c.svc.List(ctx.Ctx, ctx.GuildID, ctx.UserID)
	if err != nil {
		return err
	}
	return ctx.Respond().Message(ctx.Interaction, data)
}

func (c *Commands) handleSend(ctx *core.Context) error {
	title, err := ctx.Args().StringRequired(optText)
	if err != nil {
		return err
	}
	if _, err := c.svc.Send(ctx.Ctx, ctx.GuildID, ctx.UserID, ctx.ChannelID, title); err != nil {
		return err
	}
	return ctx.Respond().Notice(ctx.Interaction, "Sent selectors!")
}

// offers reports whether msg carries a button with customID, so a crafted
// custom id cannot reach roles that were never published.
func offers(msg *discordgo.Message, customID string) bool {
	if msg == nil {
		return false
	}
	for _, row := range msg.Components {
		var children []discordgo.MessageComponent
		switch r := row.(type) {
		case discordgo.ActionsRow:
			children = r.Components
		case *discordgo.ActionsRow:
			children = r.Components
		}
		for _, child := range children {
			switch b := child.(type) {
			case discordgo.Button:
				if b.CustomID == customID {
					return true
				}
			case *discordgo.Button:
				if b.CustomID == customID {
					return true
				}
			}
		}
	}
	return false
}

// HandleComponent flips the clicked role on the member.
func (c *Commands) HandleComponent(ctx *core.Context) error {
	if !ctx.CustomID.Is(ButtonToggle) {
		return errors.Routing(string(ctx.Kind), ctx.CustomID.Name)
	}
	if ctx.GuildID == "" || ctx.Member == nil {
		return errors.MissingField("member")
	}
	roleID, ok := ctx.CustomID.ArgAt(0)
	if !ok || roleID == "" {
		return errors.MissingField("role")
	}
	if !offers(ctx.Interaction.Message, ctx.CustomID.String()) {
		return errors.InvalidField("role", roleID)
	}

	added, err := c.svc.Toggle(ctx.GuildID, ctx.UserID, ctx.Member.Roles, roleID)
	if err != nil {
		return err
	}
	ctx.Logger.WithFields(map[string]any{"role": roleID, "added": added}).Debug("Role toggled")
	return ctx.Respond().Acknowledge(ctx.Interaction)
}
