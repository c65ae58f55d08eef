package apply

import (
	"context"
	stderrors "errors"
	"math/rand/v2"
	"slices"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/guildkit/pkg/discord/anchor"
	"github.com/small-frappuccino/guildkit/pkg/discord/platform"
	"github.com/small-frappuccino/guildkit/pkg/errors"
	"github.com/small-frappuccino/guildkit/pkg/logging"
	"github.com/small-frappuccino/guildkit/pkg/storage"
)

// Service runs the application state machine against a store and a platform client.
type Service struct {
	client platform.Client
	store  *storage.Store
	pick   func(n int) int
	logger *logging.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithPicker replaces the random source used to title application cards.
func WithPicker(pick func(n int) int) Option {
	return func(s *Service) { s.pick = pick }
}

// WithLogger overrides the service logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(client platform.Client, store *storage.Store, opts ...Option) *Service {
	s := &Service{
		client: client,
		store:  store,
		pick:   rand.IntN,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.WithField("component", Name)
	}
	return s
}

// Config reads the application configuration of a guild.
func (s *Service) Config(ctx context.Context, guildID string) (Config, error) {
	cfg, err := storage.Read(ctx, s.store, ConfigReq(guildID))
	if stderrors.Is(err, storage.ErrNotFound) {
		return cfg, errors.Precondition("Applications have not been configured")
	}
	return cfg, errors.Store("read application config", err)
}

// Form reads the application of a member.
func (s *Service) Form(ctx context.Context, guildID, userID string) (Form, error) {
	form, err := storage.Read(ctx, s.store, FormReq(guildID, userID))
	if stderrors.Is(err, storage.ErrNotFound) {
		return form, errors.Precondition("The user has not submitted an application")
	}
	return form, errors.Store("read application", err)
}

// Configure stores cfg and posts its application card in channelID,
// replacing the previously posted card.
func (s *Service) Configure(ctx context.Context, guildID, channelID string, cfg Config) (Config, error) {
	req := ConfigReq(guildID)
	unlock := s.store.Lock(req.Path())
	defer unlock()

	if prev, err := storage.Read(ctx, s.store, req); err == nil && prev.Anchor != nil {
		if err := prev.Anchor.Discard(s.client); err != nil {
			return cfg, err
		}
	}
	return s.post(ctx, guildID, channelID, cfg)
}

// ConfigPatch lists the configuration fields to change. Nil fields are kept.
type ConfigPatch struct {
	Title       *string
	Description *string
	Thumbnail   *string
	Channel     *string
	Role        *string
	// Questions maps a zero-based question slot to its new text.
	Questions map[int]string
}

func (p ConfigPatch) changesCard() bool {
	return p.Title != nil || p.Description != nil || p.Thumbnail != nil || len(p.Questions) > 0
}

// Modify applies patch to the guild configuration. The card is posted again
// in channelID when its content changed.
func (s *Service) Modify(ctx context.Context, guildID, channelID string, patch ConfigPatch) (Config, error) {
	req := ConfigReq(guildID)
	unlock := s.store.Lock(req.Path())
	defer unlock()

	cfg, err := storage.Read(ctx, s.store, req)
	if stderrors.Is(err, storage.ErrNotFound) {
		return cfg, errors.Precondition("Applications have not been configured")
	} else if err != nil {
		return cfg, errors.Store("read application config", err)
	}
	prev := cfg.Anchor

	if patch.Title != nil {
		cfg.Content.Title = *patch.Title
	}
	if patch.Description != nil {
		cfg.Content.Description = *patch.Description
	}
	if patch.Thumbnail != nil {
		cfg.Content.Thumbnail = *patch.Thumbnail
	}
	if patch.Channel != nil {
		cfg.Channel = *patch.Channel
	}
	if patch.Role != nil {
		cfg.Role = *patch.Role
	}
	cfg.Content.Questions = applyQuestions(cfg.Content.Questions, patch.Questions)

	if !patch.changesCard() {
		return cfg, errors.Store("write application config", storage.Write(ctx, s.store, req, cfg))
	}
	if prev != nil {
		if err := prev.Discard(s.client); err != nil {
			return cfg, err
		}
	}
	return s.post(ctx, guildID, channelID, cfg)
}

// applyQuestions replaces existing slots and appends slots past the end in
// slot order, so questions never contain gaps.
func applyQuestions(questions []string, patch map[int]string) []string {
	slots := make([]int, 0, len(patch))
	for slot := range patch {
		slots = append(slots, slot)
	}
	slices.Sort(slots)

	out := slices.Clone(questions)
	for _, slot := range slots {
		if slot < 0 || slot >= MaxQuestions {
			continue
		}
		if slot < len(out) {
			out[slot] = patch[slot]
		} else {
			out = append(out, patch[slot])
		}
	}
	return out
}

func (s *Service) post(ctx context.Context, guildID, channelID string, cfg Config) (Config, error) {
	guild, err := s.client.Guild(guildID)
	if err != nil {
		return cfg, errors.Platform("fetch guild", err)
	}
	msg, err := s.client.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{configEmbed(guild, cfg)},
		Components: configButtons(false),
	})
	if err != nil {
		return cfg, errors.Platform("post application card", err)
	}
	a, err := anchor.FromMessage(guildID, msg)
	if err != nil {
		return cfg, err
	}
	cfg.Anchor = &a
	return cfg, errors.Store("write application config", storage.Write(ctx, s.store, ConfigReq(guildID), cfg))
}

// CanSubmit reports whether userID may open the submission modal. Members
// without an application, and members asked to resend, may submit.
func (s *Service) CanSubmit(ctx context.Context, guildID, userID string) error {
	form, err := storage.Read(ctx, s.store, FormReq(guildID, userID))
	if stderrors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return errors.Store("read application", err)
	}
	return submitBlocked(form.Status)
}

func submitBlocked(s Status) error {
	switch s {
	case StatusPending:
		return errors.Precondition("Your application is pending")
	case StatusAccepted:
		return errors.Precondition("Your application was accepted")
	case StatusDenied:
		return errors.Precondition("Your application was denied")
	default:
		return nil
	}
}

// Submit records a new pending application and posts its review card to
// the configured channel.
func (s *Service) Submit(ctx context.Context, guildID, userID string, answers []string) (Form, error) {
	req := FormReq(guildID, userID)
	unlock := s.store.Lock(req.Path())
	defer unlock()

	form := NewForm(userID, answers)
	var previous *anchor.Anchor
	prev, err := storage.Read(ctx, s.store, req)
	switch {
	case err == nil:
		if err := submitBlocked(prev.Status); err != nil {
			return form, err
		}
		previous = prev.Anchor
	case !stderrors.Is(err, storage.ErrNotFound):
		return form, errors.Store("read application", err)
	}

	cfg, err := s.Config(ctx, guildID)
	if err != nil {
		return form, err
	}

	embed, err := s.cardEmbed(cfg, form)
	if err != nil {
		return form, err
	}
	msg, err := s.client.ChannelMessageSendComplex(cfg.Channel, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: cardButtons(form, false),
	})
	if err != nil {
		return form, errors.Platform("post application", err)
	}
	a, err := anchor.FromMessage(guildID, msg)
	if err != nil {
		return form, err
	}
	form.Anchor = &a

	if err := storage.Write(ctx, s.store, req, form); err != nil {
		return form, errors.Store("write application", err)
	}
	logger := s.logger.WithFields(map[string]any{"guild": guildID, "user": userID})
	// The card of the resent application is stale once the new one is stored.
	if previous != nil {
		if err := previous.Discard(s.client); err != nil {
			logger.WithError(err).Warn("Unable to delete previous application card")
		}
	}
	logger.Info("Application submitted")
	return form, nil
}

// Update moves an application to status. Setting the current status again
// is rejected, and so is changing an accepted or denied application unless
// overwrite is set. The applicant is notified by DM when possible.
func (s *Service) Update(ctx context.Context, guildID, userID string, status Status, reason string, overwrite bool) (Form, error) {
	if status == StatusPending {
		return Form{}, errors.InvalidField("status", status.String())
	}

	req := FormReq(guildID, userID)
	unlock := s.store.Lock(req.Path())
	defer unlock()

	form, err := storage.Read(ctx, s.store, req)
	if stderrors.Is(err, storage.ErrNotFound) {
		return form, errors.Precondition("The user has not submitted an application")
	} else if err != nil {
		return form, errors.Store("read application", err)
	}

	if form.Status == status {
		return form, errors.Precondition("The application already has this status")
	}
	if form.Status.Terminal() && !overwrite {
		return form, errors.Precondition("The user's application is already finalized")
	}

	cfg, err := s.Config(ctx, guildID)
	if err != nil {
		return form, err
	}

	form.Status = status
	form.Reason = reason
	if err := storage.Write(ctx, s.store, req, form); err != nil {
		return form, errors.Store("write application", err)
	}

	if err := s.syncRole(guildID, userID, cfg.Role, status == StatusAccepted); err != nil {
		return form, err
	}

	if form.Anchor != nil {
		embed, err := s.cardEmbed(cfg, form)
		if err != nil {
			return form, err
		}
		disabled := form.Status != StatusPending
		if err := form.Anchor.Edit(s.client, []*discordgo.MessageEmbed{embed}, cardButtons(form, disabled)); err != nil {
			return form, err
		}
	}

	s.notify(guildID, form)
	s.logger.WithFields(map[string]any{
		"guild":  guildID,
		"user":   userID,
		"status": status.String(),
	}).Info("Application updated")
	return form, nil
}

// syncRole grants the role when grant is set, and otherwise revokes it from
// members that currently hold it.
func (s *Service) syncRole(guildID, userID, roleID string, grant bool) error {
	if roleID == "" {
		return nil
	}
	if grant {
		return errors.Platform("grant application role", s.client.GuildMemberRoleAdd(guildID, userID, roleID))
	}
	member, err := s.client.GuildMember(guildID, userID)
	if err != nil {
		if anchor.IsGone(err) {
			return nil
		}
		return errors.Platform("fetch member", err)
	}
	if !slices.Contains(member.Roles, roleID) {
		return nil
	}
	return errors.Platform("revoke application role", s.client.GuildMemberRoleRemove(guildID, userID, roleID))
}

// RevokeRole removes the configured role from userID if they hold it.
func (s *Service) RevokeRole(ctx context.Context, guildID, userID string) error {
	cfg, err := s.Config(ctx, guildID)
	if err != nil {
		return err
	}
	return s.syncRole(guildID, userID, cfg.Role, false)
}

// notify DMs the applicant about a review. Members with closed DMs are skipped.
func (s *Service) notify(guildID string, form Form) {
	title, body, ok := notice(form.Status)
	if !ok {
		return
	}
	logger := s.logger.WithFields(map[string]any{"guild": guildID, "user": form.User})

	channel, err := s.client.UserChannelCreate(form.User)
	if err != nil {
		logger.WithError(err).Debug("Applicant does not accept direct messages")
		return
	}
	if form.Reason != "" {
		body += "\n\n> " + form.Reason
	}
	embed := &discordgo.MessageEmbed{Title: title, Description: body, Color: colorApplication()}
	if guild, err := s.client.Guild(guildID); err == nil {
		embed.Author = guildAuthor(guild)
	}
	if _, err := s.client.ChannelMessageSendComplex(channel.ID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
	}); err != nil {
		logger.WithError(err).Warn("Unable to notify applicant")
	}
}

// Remove deletes the application card and record. The member keeps any
// role the application granted.
func (s *Service) Remove(ctx context.Context, guildID, userID string) error {
	req := FormReq(guildID, userID)
	unlock := s.store.Lock(req.Path())
	defer unlock()

	form, err := storage.Read(ctx, s.store, req)
	if stderrors.Is(err, storage.ErrNotFound) {
		return errors.Precondition("The user has not submitted an application")
	} else if err != nil {
		return errors.Store("read application", err)
	}
	if form.Anchor != nil {
		if err := form.Anchor.Discard(s.client); err != nil {
			return err
		}
	}
	return errors.Store("remove application", storage.Remove(ctx, s.store, req))
}
