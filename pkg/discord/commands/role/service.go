package role

import (
	"context"
	stderrors "errors"
	"slices"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/guildkit/pkg/customid"
	"github.com/small-frappuccino/guildkit/pkg/discord/commands/core"
	"github.com/small-frappuccino/guildkit/pkg/discord/platform"
	"github.com/small-frappuccino/guildkit/pkg/errors"
	"github.com/small-frappuccino/guildkit/pkg/logging"
	"github.com/small-frappuccino/guildkit/pkg/storage"
	"github.com/small-frappuccino/guildkit/pkg/theme"
)

// Service manages selector drafts and applies toggles.
type Service struct {
	client platform.Client
	store  *storage.Store
	logger *logging.Logger
}

func NewService(client platform.Client, store *storage.Store) *Service {
	return &Service{
		client: client,
		store:  store,
		logger: logging.WithField("component", Name),
	}
}

// Draft reads the selector of userID. A member without one gets an empty draft.
func (s *Service) Draft(ctx context.Context, guildID, userID string) (Selector, error) {
	sel, err := storage.Read(ctx, s.store, SelectorReq(guildID, userID))
	if stderrors.Is(err, storage.ErrNotFound) {
		return NewSelector(guildID, userID), nil
	}
	if err != nil {
		return sel, errors.Store("read selector", err)
	}
	return sel, nil
}

// Add appends a toggle for roleID to the draft of userID.
func (s *Service) Add(ctx context.Context, guildID, userID, roleID, icon string) (Selector, error) {
	if core.ParseEmoji(icon) == nil {
		return Selector{}, errors.InvalidField("icon", icon)
	}
	req := SelectorReq(guildID, userID)
	unlock := s.store.Lock(req.Path())
	defer unlock()

	sel, err := s.Draft(ctx, guildID, userID)
	if err != nil {
		return sel, err
	}
	if sel.Index(roleID) >= 0 {
		return sel, errors.Precondition("A selector for that role already exists")
	}
	if len(sel.Roles) >= MaxToggles {
		return sel, errors.Precondition("No more selectors may be added")
	}
	sel.Roles = append(sel.Roles, Toggle{Role: roleID, Icon: icon})
	return sel, errors.Store("write selector", storage.Write(ctx, s.store, req, sel))
}

// Remove drops the toggle for roleID. Removing an unknown role is not an error.
func (s *Service) Remove(ctx context.Context, guildID, userID, roleID string) (Selector, error) {
	req := SelectorReq(guildID, userID)
	unlock := s.store.Lock(req.Path())
	defer unlock()

	sel, err := storage.Read(ctx, s.store, req)
	if stderrors.Is(err, storage.ErrNotFound) {
		return NewSelector(guildID, userID), nil
	}
	if err != nil {
		return sel, errors.Store("read selector", err)
	}
	sel.Roles = slices.DeleteFunc(sel.Roles, func(t Toggle) bool { return t.Role == roleID })
	return sel, errors.Store("write selector", storage.Write(ctx, s.store, req, sel))
}

// buttons renders one button per toggle, labelled with the role name.
func (s *Service) buttons(sel Selector, disabled bool) ([]discordgo.MessageComponent, error) {
	if len(sel.Roles) == 0 {
		return nil, nil
	}
	roles, err := s.client.GuildRoles(sel.Guild)
	if err != nil {
		return nil, errors.Platform("fetch roles", err)
	}
	names := make(map[string]string, len(roles))
	for _, r := range roles {
		names[r.ID] = r.Name
	}

	buttons := make([]discordgo.MessageComponent, 0, len(sel.Roles))
	for _, t := range sel.Roles {
		name, ok := names[t.Role]
		if !ok {
			return nil, errors.InvalidField("role", t.Role)
		}
		buttons = append(buttons, discordgo.Button{
			CustomID: customid.New(ButtonToggle).Arg(t.Role).String(),
			Label:    name,
			Emoji:    core.ParseEmoji(t.Icon),
			Style:    discordgo.SecondaryButton,
			Disabled: disabled,
		})
	}
	return core.Rows(buttons), nil
}

// List renders the draft of userID with its buttons disabled.
func (s *Service) List(ctx context.Context, guildID, userID string) (*discordgo.InteractionResponseData, error) {
	sel, err := s.Draft(ctx, guildID, userID)
	if err != nil {
		return nil, err
	}
	rows, err := s.buttons(sel, true)
	if err != nil {
		return nil, err
	}
	return &discordgo.InteractionResponseData{
		Embeds:     []*discordgo.MessageEmbed{{Title: "All selectors", Color: theme.Selector()}},
		Components: rows,
		Flags:      discordgo.MessageFlagsEphemeral,
	}, nil
}

// Send publishes the draft in channelID under title and deletes it. The
// published buttons need no record to work.
func (s *Service) Send(ctx context.Context, guildID, userID, channelID, title string) (*discordgo.Message, error) {
	req := SelectorReq(guildID, userID)
	unlock := s.store.Lock(req.Path())
	defer unlock()

	sel, err := s.Draft(ctx, guildID, userID)
	if err != nil {
		return nil, err
	}
	if len(sel.Roles) == 0 {
		return nil, errors.Precondition("No selectors have been created")
	}
	rows, err := s.buttons(sel, false)
	if err != nil {
		return nil, err
	}
	msg, err := s.client.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{{Title: title, Color: theme.Selector()}},
		Components: rows,
	})
	if err != nil {
		return nil, errors.Platform("send selectors", err)
	}
	if err := storage.Remove(ctx, s.store, req); err != nil && !stderrors.Is(err, storage.ErrNotFound) {
		return msg, errors.Store("remove selector", err)
	}
	s.logger.WithFields(map[string]any{"guild": guildID, "user": userID, "message": msg.ID, "roles": len(sel.Roles)}).Info("Selectors sent")
	return msg, nil
}

// Toggle adds roleID to the member when they lack it and removes it
// otherwise. held is the member's role list from the interaction payload.
// added reports the resulting state.
func (s *Service) Toggle(guildID, userID string, held []string, roleID string) (added bool, err error) {
	if slices.Contains(held, roleID) {
		return false, errors.Platform("remove role", s.client.GuildMemberRoleRemove(guildID, userID, roleID))
	}
	return true, errors.Platform("add role", s.client.GuildMemberRoleAdd(guildID, userID, roleID))
}
