package apply

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/guildkit/pkg/customid"
	"github.com/small-frappuccino/guildkit/pkg/discord/commands/core"
	"github.com/small-frappuccino/guildkit/pkg/errors"
	"github.com/small-frappuccino/guildkit/pkg/theme"
)

func colorApplication() int { return theme.Application() }

func guildAuthor(g *discordgo.Guild) *discordgo.MessageEmbedAuthor { return core.GuildAuthor(g) }

func configEmbed(g *discordgo.Guild, cfg Config) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Author:      core.GuildAuthor(g),
		Color:       colorApplication(),
		Title:       cfg.Content.Title,
		Description: cfg.Content.Description,
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Questions: %d", len(cfg.Content.Questions))},
	}
	if cfg.Content.Thumbnail != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: cfg.Content.Thumbnail}
	}
	return embed
}

func configButtons(disabled bool) []discordgo.MessageComponent {
	return core.Row(
		discordgo.Button{
			CustomID: ButtonModal,
			Label:    "Apply to Guild",
			Emoji:    &discordgo.ComponentEmoji{Name: "👋"},
			Style:    discordgo.PrimaryButton,
			Disabled: disabled,
		},
		discordgo.Button{
			CustomID: ButtonAbout,
			Label:    "About Applications",
			Emoji:    &discordgo.ComponentEmoji{Name: "ℹ️"},
			Style:    discordgo.SecondaryButton,
			Disabled: disabled,
		},
	)
}

func aboutEmbed(bot *discordgo.User) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Author:      core.UserAuthor(bot),
		Color:       colorApplication(),
		Title:       "About Guild Applications",
		Description: strings.TrimSpace(aboutText),
	}
}

func receivedAt(form Form) time.Time {
	if form.Anchor != nil {
		if t, err := form.Anchor.CreatedAt(); err == nil {
			return t
		}
	}
	return time.Now()
}

func (s *Service) cardEmbed(cfg Config, form Form) (*discordgo.MessageEmbed, error) {
	user, err := s.client.User(form.User)
	if err != nil {
		return nil, errors.Platform("fetch applicant", err)
	}

	var desc strings.Builder
	fmt.Fprintf(&desc, "**Profile:** <@%s>\n", form.User)
	fmt.Fprintf(&desc, "**Received:** <t:%d:R>\n", receivedAt(form).Unix())
	fmt.Fprintf(&desc, "**Status:** %s\n", form.Status.Display())
	if form.Reason != "" {
		fmt.Fprintf(&desc, "**Reason:** %s", form.Reason)
	}

	embed := &discordgo.MessageEmbed{
		Author:      core.UserAuthor(user),
		Color:       core.UserColor(user, colorApplication()),
		Title:       toasts[s.pick(len(toasts))],
		Description: desc.String(),
		Thumbnail:   core.UserThumbnail(user),
	}
	for i, question := range cfg.Content.Questions {
		answer := "N/A"
		if i < len(form.Answers) {
			answer = "> " + form.Answers[i]
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: question, Value: answer})
	}
	return embed, nil
}

func cardButtons(form Form, disabled bool) []discordgo.MessageComponent {
	button := func(name, label, emoji string, style discordgo.ButtonStyle) discordgo.MessageComponent {
		return discordgo.Button{
			CustomID: customid.New(name).Arg(form.User).String(),
			Label:    label,
			Emoji:    &discordgo.ComponentEmoji{Name: emoji},
			Style:    style,
			Disabled: disabled,
		}
	}
	return core.Row(
		button(ButtonAccept, "Accept", "👍", discordgo.SuccessButton),
		button(ButtonDeny, "Deny", "👎", discordgo.DangerButton),
		button(ButtonResend, "Resend", "🤷", discordgo.SecondaryButton),
	)
}

// submitModal lists one required paragraph input per configured question.
func submitModal(cfg Config) []discordgo.MessageComponent {
	rows := make([]discordgo.MessageComponent, 0, len(cfg.Content.Questions))
	for i, question := range cfg.Content.Questions {
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.TextInput{
				CustomID:  strconv.Itoa(i),
				Label:     question,
				Style:     discordgo.TextInputParagraph,
				Required:  true,
				MaxLength: MaxAnswerLen,
			},
		}})
	}
	return rows
}

func updateModalID(user string, status Status) string {
	return customid.New(ModalUpdate).Arg(user).Arg(uint8(status)).String()
}

func updateModal() []discordgo.MessageComponent {
	return core.Row(discordgo.TextInput{
		CustomID:  inputReason,
		Label:     "Reason (optional)",
		Style:     discordgo.TextInputShort,
		Required:  false,
		MaxLength: MaxReasonLen,
	})
}

// statusForButton maps a moderator button to the status it sets.
func statusForButton(name string) (Status, bool) {
	switch name {
	case ButtonAccept:
		return StatusAccepted, true
	case ButtonDeny:
		return StatusDenied, true
	case ButtonResend:
		return StatusResend, true
	default:
		return 0, false
	}
}
