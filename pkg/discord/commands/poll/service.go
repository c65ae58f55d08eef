package poll

import (
	"context"
	stderrors "errors"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/guildkit/pkg/discord/anchor"
	"github.com/small-frappuccino/guildkit/pkg/discord/platform"
	"github.com/small-frappuccino/guildkit/pkg/errors"
	"github.com/small-frappuccino/guildkit/pkg/logging"
	"github.com/small-frappuccino/guildkit/pkg/storage"
)

const (
	errNoPoll     = "You do not have a poll"
	errSent       = "Your poll has already been sent"
	errNotSent    = "Your poll has not been sent"
	errOwnPoll    = "You cannot respond to your own poll"
	errNotRunning = "The poll is not accepting responses"
)

// Service runs the poll state machine against a store and a platform client.
type Service struct {
	client platform.Client
	store  *storage.Store
	pick   func(n int) int
	now    func() time.Time
	logger *logging.Logger
}

type Option func(*Service)

// WithPicker replaces the random source that draws raffle winners.
func WithPicker(pick func(n int) int) Option {
	return func(s *Service) { s.pick = pick }
}

// WithClock replaces the clock used for closing times.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l *logging.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(client platform.Client, store *storage.Store, opts ...Option) *Service {
	s := &Service{
		client: client,
		store:  store,
		pick:   rand.IntN,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.WithField("component", Name)
	}
	return s
}

// lockDraft takes the poll record lock and then the Active index lock.
// Every path that touches both keys goes through here.
func (s *Service) lockDraft(guildID, userID string, withIndex bool) func() {
	unlockDraft := s.store.Lock(DraftReq(guildID, userID).Path())
	if !withIndex {
		return unlockDraft
	}
	unlockIndex := s.store.Lock(ActiveReq().Path())
	return func() {
		unlockIndex()
		unlockDraft()
	}
}

func (s *Service) readDraft(ctx context.Context, guildID, userID string) (Form, error) {
	f, err := storage.Read(ctx, s.store, DraftReq(guildID, userID))
	if stderrors.Is(err, storage.ErrNotFound) {
		return f, errors.Precondition(errNoPoll)
	}
	if err != nil {
		return f, errors.Store("read poll", err)
	}
	if f.Replies == nil {
		f.Replies = map[string]Reply{}
	}
	return f, nil
}

func (s *Service) writeDraft(ctx context.Context, guildID string, f Form) error {
	return errors.Store("write poll", storage.Write(ctx, s.store, DraftReq(guildID, f.User), f))
}

// Draft reads the poll owned by userID.
func (s *Service) Draft(ctx context.Context, guildID, userID string) (Form, error) {
	return s.readDraft(ctx, guildID, userID)
}

// Create starts an unsent poll. A member holds at most one poll per guild.
func (s *Service) Create(ctx context.Context, guildID, userID string, kind Kind, content Content) (Form, error) {
	unlock := s.lockDraft(guildID, userID, false)
	defer unlock()

	if storage.Exists(ctx, s.store, DraftReq(guildID, userID)) {
		return Form{}, errors.Precondition("You already have a poll")
	}
	f := NewForm(userID, kind, content)
	return f, s.writeDraft(ctx, guildID, f)
}

// Discard deletes the poll of userID. A sent poll is only discarded when
// force is set, in which case its message is deleted and it stops being swept.
func (s *Service) Discard(ctx context.Context, guildID, userID string, force bool) error {
	unlock := s.lockDraft(guildID, userID, true)
	defer unlock()

	f, err := s.readDraft(ctx, guildID, userID)
	if err != nil {
		return err
	}
	if f.Sent() && !force {
		return errors.Precondition(errSent)
	}
	if f.Anchor != nil {
		if err := f.Anchor.Discard(s.client); err != nil {
			return err
		}
		if err := s.unindex(ctx, ActiveKey{Guild: guildID, User: userID}); err != nil {
			return err
		}
	}
	return errors.Store("remove poll", storage.Remove(ctx, s.store, DraftReq(guildID, userID)))
}

// ContentPatch lists the poll fields to change. Nil fields are kept.
type ContentPatch struct {
	Kind        *Kind
	Title       *string
	Description *string
	Hours       *int64
	Image       *string
	HideMembers *bool
	HideResults *bool
}

// Modify edits an unsent poll. Changing the kind removes every input.
func (s *Service) Modify(ctx context.Context, guildID, userID string, patch ContentPatch) (Form, error) {
	unlock := s.lockDraft(guildID, userID, false)
	defer unlock()

	f, err := s.readDraft(ctx, guildID, userID)
	if err != nil {
		return f, err
	}
	if f.Sent() {
		return f, errors.Precondition(errSent)
	}

	if patch.Kind != nil {
		f.Kind = *patch.Kind
		f.Inputs = nil
	}
	if patch.Title != nil {
		f.Content.Title = *patch.Title
	}
	if patch.Description != nil {
		f.Content.Description = *patch.Description
	}
	if patch.Hours != nil {
		f.Content.Hours = *patch.Hours
	}
	if patch.Image != nil {
		f.Content.Image = *patch.Image
	}
	if patch.HideMembers != nil {
		f.Content.HideMembers = *patch.HideMembers
	}
	if patch.HideResults != nil {
		f.Content.HideResults = *patch.HideResults
	}
	return f, s.writeDraft(ctx, guildID, f)
}

// AddInput appends an input of the poll's kind. Emoji only applies to
// choice polls and placeholder only to response polls.
func (s *Service) AddInput(ctx context.Context, guildID, userID, label, emoji, placeholder string) (Form, error) {
	unlock := s.lockDraft(guildID, userID, false)
	defer unlock()

	f, err := s.readDraft(ctx, guildID, userID)
	if err != nil {
		return f, err
	}
	if f.Sent() {
		return f, errors.Precondition(errSent)
	}
	if f.Kind == KindRaffle {
		return f, errors.Precondition("Raffle polls do not support inputs")
	}
	if len(f.Inputs) >= f.Kind.MaxInputs() {
		return f, errors.Precondition("No more inputs may be added")
	}
	if f.HasLabel(label) {
		return f, errors.Precondition("The given input already exists")
	}

	if f.Kind == KindChoice {
		f.Inputs = append(f.Inputs, Input{Choice: &ChoiceInput{Label: label, Emoji: emoji}})
	} else {
		f.Inputs = append(f.Inputs, Input{Response: &ResponseInput{Label: label, Placeholder: placeholder}})
	}
	return f, s.writeDraft(ctx, guildID, f)
}

// RemoveInput deletes the input at index from the poll owned by ownerID.
// Only the owner may remove inputs.
func (s *Service) RemoveInput(ctx context.Context, guildID, ownerID, actorID string, index int) (Form, error) {
	if ownerID != actorID {
		return Form{}, errors.Precondition("You cannot modify another user's poll")
	}
	unlock := s.lockDraft(guildID, ownerID, false)
	defer unlock()

	f, err := s.readDraft(ctx, guildID, ownerID)
	if err != nil {
		return f, err
	}
	if f.Sent() {
		return f, errors.Precondition(errSent)
	}
	if index < 0 || index >= len(f.Inputs) {
		return f, errors.InvalidField("index", strconv.Itoa(index))
	}
	f.Inputs = append(f.Inputs[:index:index], f.Inputs[index+1:]...)
	return f, s.writeDraft(ctx, guildID, f)
}

// Preview renders the card of an unsent poll with its buttons disabled.
func (s *Service) Preview(ctx context.Context, guildID, userID string) (*discordgo.MessageEmbed, []discordgo.MessageComponent, error) {
	f, err := s.readDraft(ctx, guildID, userID)
	if err != nil {
		return nil, nil, err
	}
	if f.Sent() {
		return nil, nil, errors.Precondition(errSent)
	}
	embed, err := s.cardEmbed(f, s.now())
	if err != nil {
		return nil, nil, err
	}
	return embed, cardButtons(f, true), nil
}

// Send publishes the poll in channelID and registers it for sweeping. A
// sent poll is published again, replacing its message, only when force is set.
func (s *Service) Send(ctx context.Context, guildID, userID, channelID string, force bool) (Form, error) {
	unlock := s.lockDraft(guildID, userID, true)
	defer unlock()

	f, err := s.readDraft(ctx, guildID, userID)
	if err != nil {
		return f, err
	}
	if f.Sent() && !force {
		return f, errors.Precondition(errSent)
	}
	if f.Closed() {
		return f, errors.Precondition("Your poll is being closed")
	}
	if f.Kind != KindRaffle && len(f.Inputs) == 0 {
		return f, errors.Precondition("Your poll does not have any inputs")
	}
	if f.Kind == KindChoice && len(f.Inputs) <= 1 {
		return f, errors.Precondition("Your poll must have more than one input")
	}

	previous := f.Anchor
	f.Anchor = nil

	embed, err := s.cardEmbed(f, s.now())
	if err != nil {
		return f, err
	}
	msg, err := s.client.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: cardButtons(f, false),
	})
	if err != nil {
		return f, errors.Platform("publish poll", err)
	}
	a, err := anchor.FromMessage(guildID, msg)
	if err != nil {
		return f, err
	}
	f.Anchor = &a

	if err := s.writeDraft(ctx, guildID, f); err != nil {
		return f, err
	}
	if err := s.index(ctx, ActiveKey{Guild: guildID, User: userID}); err != nil {
		return f, err
	}
	logger := s.logger.WithFields(map[string]any{"guild": guildID, "user": userID, "message": a.Message})
	// The replaced card goes only after the new one is stored.
	if previous != nil {
		if err := previous.Discard(s.client); err != nil {
			logger.WithError(err).Warn("Unable to delete replaced poll card")
		}
	}
	logger.Info("Poll published")
	return f, nil
}

// index and unindex expect the Active index lock to be held.
func (s *Service) index(ctx context.Context, k ActiveKey) error {
	active, err := s.readActive(ctx)
	if err != nil {
		return err
	}
	active.Add(k)
	return errors.Store("write active polls", storage.Write(ctx, s.store, ActiveReq(), active))
}

func (s *Service) unindex(ctx context.Context, keys ...ActiveKey) error {
	active, err := s.readActive(ctx)
	if err != nil {
		return err
	}
	changed := false
	for _, k := range keys {
		changed = active.Remove(k) || changed
	}
	if !changed {
		return nil
	}
	return errors.Store("write active polls", storage.Write(ctx, s.store, ActiveReq(), active))
}

func (s *Service) readActive(ctx context.Context) (Active, error) {
	active, err := storage.Read(ctx, s.store, ActiveReq())
	if stderrors.Is(err, storage.ErrNotFound) {
		return Active{}, nil
	}
	return active, errors.Store("read active polls", err)
}

// ActivePolls returns a snapshot of the Active index.
func (s *Service) ActivePolls(ctx context.Context) ([]ActiveKey, error) {
	unlock := s.store.Lock(ActiveReq().Path())
	defer unlock()
	active, err := s.readActive(ctx)
	return active.Polls, err
}

// running reads a poll that is accepting replies.
func (s *Service) running(ctx context.Context, guildID, ownerID, userID string) (Form, error) {
	f, err := s.readDraft(ctx, guildID, ownerID)
	if err != nil {
		if errors.IsCategory(err, errors.CategoryPrecondition) {
			return f, errors.Precondition(errNotRunning)
		}
		return f, err
	}
	if !f.Sent() || f.Closed() {
		return f, errors.Precondition(errNotRunning)
	}
	if ownerID == userID {
		return f, errors.Precondition(errOwnPoll)
	}
	return f, nil
}

// Vote records userID's choice. Voting for the current choice again
// retracts the vote; recorded reports which happened.
func (s *Service) Vote(ctx context.Context, guildID, ownerID, userID string, index int) (recorded bool, err error) {
	unlock := s.lockDraft(guildID, ownerID, false)
	defer unlock()

	f, err := s.running(ctx, guildID, ownerID, userID)
	if err != nil {
		return false, err
	}
	if f.Kind != KindChoice {
		return false, errors.InvalidField("kind", f.Kind.String())
	}
	if index < 0 || index >= len(f.Inputs) {
		return false, errors.InvalidField("index", strconv.Itoa(index))
	}

	if prev, ok := f.Replies[userID]; ok && prev.Choice != nil && prev.Choice.Index == index {
		delete(f.Replies, userID)
	} else {
		f.Replies[userID] = Reply{Choice: &ChoiceReply{Index: index}}
		recorded = true
	}
	return recorded, s.writeDraft(ctx, guildID, f)
}

// ToggleRaffle enters userID into the raffle, or withdraws them when they
// already entered. entered reports the resulting state.
func (s *Service) ToggleRaffle(ctx context.Context, guildID, ownerID, userID string) (entered bool, err error) {
	unlock := s.lockDraft(guildID, ownerID, false)
	defer unlock()

	f, err := s.running(ctx, guildID, ownerID, userID)
	if err != nil {
		return false, err
	}
	if f.Kind != KindRaffle {
		return false, errors.InvalidField("kind", f.Kind.String())
	}

	if _, ok := f.Replies[userID]; ok {
		delete(f.Replies, userID)
	} else {
		f.Replies[userID] = Reply{Raffle: &RaffleReply{}}
		entered = true
	}
	return entered, s.writeDraft(ctx, guildID, f)
}

// ResponseModal returns the modal a member fills to answer a response poll.
func (s *Service) ResponseModal(ctx context.Context, guildID, ownerID, userID string) (string, []discordgo.MessageComponent, error) {
	f, err := s.running(ctx, guildID, ownerID, userID)
	if err != nil {
		return "", nil, err
	}
	return responseModal(f)
}

// Respond stores userID's answers, replacing earlier ones. values is keyed by
// input index; missing or blank answers are stored as NoAnswer.
func (s *Service) Respond(ctx context.Context, guildID, ownerID, userID string, values map[string]string) error {
	unlock := s.lockDraft(guildID, ownerID, false)
	defer unlock()

	f, err := s.running(ctx, guildID, ownerID, userID)
	if err != nil {
		return err
	}
	if f.Kind != KindResponse {
		return errors.InvalidField("kind", f.Kind.String())
	}

	answers := make([]string, len(f.Inputs))
	for i := range f.Inputs {
		answers[i] = NoAnswer
		if v, ok := values[strconv.Itoa(i)]; ok && v != "" {
			answers[i] = v
		}
	}
	f.Replies[userID] = Reply{Response: &ResponseReply{Answers: answers}}
	return s.writeDraft(ctx, guildID, f)
}

// Close freezes the results of a sent poll: the card buttons are disabled,
// the poll is archived under its message, a results message is posted and
// it leaves the Active index. Closing an archived poll fails.
//
// A close interrupted by a failure resumes from the stored Output, so the
// results are computed once and the results message is posted once.
func (s *Service) Close(ctx context.Context, guildID, userID string) (Form, error) {
	unlock := s.lockDraft(guildID, userID, true)
	defer unlock()

	f, err := s.readDraft(ctx, guildID, userID)
	if err != nil {
		return f, err
	}
	if !f.Sent() {
		return f, errors.Precondition(errNotSent)
	}
	logger := s.logger.WithFields(map[string]any{"guild": guildID, "user": userID, "message": f.Anchor.Message})

	if !f.Closed() {
		out := computeOutput(f, s.pick)
		f.Output = &out
		if err := s.writeDraft(ctx, guildID, f); err != nil {
			return f, err
		}
	}

	// A card deleted by hand does not keep the results from being posted.
	if err := f.Anchor.Edit(s.client, nil, cardButtons(f, true)); err != nil && !anchor.IsGone(err) {
		return f, err
	}

	archive := ArchiveReq(guildID, userID, f.Anchor.Message)
	prev, err := storage.Read(ctx, s.store, archive)
	switch {
	case err == nil:
		f.Results = prev.Results
	case !stderrors.Is(err, storage.ErrNotFound):
		return f, errors.Store("read poll archive", err)
	}

	if f.Results == "" {
		if err := storage.Write(ctx, s.store, archive, f); err != nil {
			return f, errors.Store("archive poll", err)
		}
		results, err := s.resultsMessage(f)
		if err != nil {
			return f, err
		}
		msg, err := s.client.ChannelMessageSendComplex(f.Anchor.Channel, results)
		if err != nil {
			return f, errors.Platform("post poll results", err)
		}
		f.Results = msg.ID
		if err := storage.Write(ctx, s.store, archive, f); err != nil {
			// The results are out; cleanup continues so they are not posted twice.
			logger.WithError(err).Warn("Unable to record poll results message")
		}
	}

	if err := storage.Remove(ctx, s.store, DraftReq(guildID, userID)); err != nil && !stderrors.Is(err, storage.ErrNotFound) {
		return f, errors.Store("remove poll", err)
	}
	if err := s.unindex(ctx, ActiveKey{Guild: guildID, User: userID}); err != nil {
		return f, err
	}

	logger.WithField("total", f.Output.Total()).Info("Poll closed")
	return f, nil
}

// Results renders a page of an archived poll for viewerID. Private results
// are only shown to the owner.
func (s *Service) Results(ctx context.Context, guildID, ownerID, messageID, viewerID string, page int) (*discordgo.InteractionResponseData, error) {
	f, err := storage.Read(ctx, s.store, ArchiveReq(guildID, ownerID, messageID))
	if stderrors.Is(err, storage.ErrNotFound) {
		return nil, errors.Precondition("The poll results could not be found")
	} else if err != nil {
		return nil, errors.Store("read poll results", err)
	}
	if f.Content.HideResults && viewerID != ownerID {
		return nil, errors.Precondition("The results of this poll are private")
	}

	embed, page, err := s.resultsPage(f, page)
	if err != nil {
		return nil, err
	}
	return &discordgo.InteractionResponseData{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: pageButtons(f, page),
		Flags:      discordgo.MessageFlagsEphemeral,
	}, nil
}
