package poll

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/small-frappuccino/guildkit/pkg/customid"
	"github.com/small-frappuccino/guildkit/pkg/discord/commands/core"
	"github.com/small-frappuccino/guildkit/pkg/errors"
	"github.com/small-frappuccino/guildkit/pkg/theme"
)

const barFill = "█"

func colorPoll() int { return theme.Poll() }

func (s *Service) owner(f Form) (*discordgo.User, error) {
	u, err := s.client.User(f.User)
	if err != nil {
		return nil, errors.Platform("fetch poll owner", err)
	}
	return u, nil
}

// cardEmbed renders the published poll.
func (s *Service) cardEmbed(f Form, now time.Time) (*discordgo.MessageEmbed, error) {
	owner, err := s.owner(f)
	if err != nil {
		return nil, err
	}

	members := "*Members are shown*"
	if f.Content.HideMembers {
		members = "*Members are hidden*"
	}
	results := "*Results are shown*"
	if f.Content.HideResults {
		results = "*Results are hidden*"
	}

	var desc strings.Builder
	fmt.Fprintf(&desc, "**Type:** %s\n", f.Kind.Display())
	fmt.Fprintf(&desc, "**Duration:** %s\n", english.Plural(int(f.Content.Hours), "hour", ""))
	fmt.Fprintf(&desc, "**Closes:** <t:%d:R>\n\n", f.ClosesAt(now).Unix())
	fmt.Fprintf(&desc, "%s\n%s\n\n> %s", members, results, f.Content.Description)

	embed := &discordgo.MessageEmbed{
		Author:      core.UserAuthor(owner),
		Color:       core.UserColor(owner, colorPoll()),
		Title:       f.Content.Title,
		Description: desc.String(),
		Thumbnail:   core.UserThumbnail(owner),
	}
	if f.Content.Image != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: f.Content.Image}
	}
	return embed, nil
}

// cardButtons renders the reply buttons for the poll kind.
func cardButtons(f Form, disabled bool) []discordgo.MessageComponent {
	switch f.Kind {
	case KindChoice:
		var buttons []discordgo.MessageComponent
		for i, in := range f.Inputs {
			if in.Choice == nil || i >= KindChoice.MaxInputs() {
				continue
			}
			buttons = append(buttons, discordgo.Button{
				CustomID: customid.New(ButtonChoice).Arg(f.User).Arg(i).String(),
				Label:    in.Choice.Label,
				Emoji:    core.ParseEmoji(in.Choice.Emoji),
				Style:    discordgo.SecondaryButton,
				Disabled: disabled,
			})
		}
		return core.Rows(buttons)
	case KindResponse:
		return core.Row(discordgo.Button{
			CustomID: customid.New(ButtonResponse).Arg(f.User).String(),
			Label:    "Submit Response",
			Emoji:    &discordgo.ComponentEmoji{Name: "📩"},
			Style:    discordgo.PrimaryButton,
			Disabled: disabled,
		})
	default:
		return core.Row(discordgo.Button{
			CustomID: customid.New(ButtonRaffle).Arg(f.User).String(),
			Label:    "Enter Raffle",
			Emoji:    &discordgo.ComponentEmoji{Name: "🎲"},
			Style:    discordgo.PrimaryButton,
			Disabled: disabled,
		})
	}
}

// removeMessage lists one removal button per input.
func removeMessage(f Form) *discordgo.InteractionResponseData {
	buttons := make([]discordgo.MessageComponent, 0, len(f.Inputs))
	for i, in := range f.Inputs {
		buttons = append(buttons, discordgo.Button{
			CustomID: customid.New(ButtonRemove).Arg(f.User).Arg(i).String(),
			Label:    in.Label(),
			Style:    discordgo.DangerButton,
		})
	}
	return &discordgo.InteractionResponseData{
		Embeds:     []*discordgo.MessageEmbed{{Title: "Remove Inputs", Color: colorPoll()}},
		Components: core.Rows(buttons),
		Flags:      discordgo.MessageFlagsEphemeral,
	}
}

// responseModal lists one text input per response input.
func responseModal(f Form) (string, []discordgo.MessageComponent, error) {
	if f.Kind != KindResponse {
		return "", nil, errors.InvalidField("kind", f.Kind.String())
	}
	if len(f.Inputs) == 0 {
		return "", nil, errors.Precondition("You must provide at least one input")
	}
	rows := make([]discordgo.MessageComponent, 0, len(f.Inputs))
	for i, in := range f.Inputs {
		if in.Response == nil || i >= KindResponse.MaxInputs() {
			continue
		}
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.TextInput{
				CustomID:    strconv.Itoa(i),
				Label:       in.Response.Label,
				Placeholder: in.Response.Placeholder,
				Style:       discordgo.TextInputParagraph,
				MaxLength:   MaxAnswerLen,
			},
		}})
	}
	return customid.New(ModalSubmit).Arg(f.User).String(), rows, nil
}

// resultsMessage is posted under the poll when it closes.
func (s *Service) resultsMessage(f Form) (*discordgo.MessageSend, error) {
	owner, err := s.owner(f)
	if err != nil {
		return nil, err
	}
	embed := &discordgo.MessageEmbed{
		Color: core.UserColor(owner, colorPoll()),
		Title: "Poll Results",
		URL:   f.Anchor.String(),
	}
	if f.Content.HideResults {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: "Results are only visible to the poll author!"}
	}
	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
		Components: core.Row(discordgo.Button{
			CustomID: customid.New(ButtonResults).Arg(f.User).Arg(f.Anchor.Message).String(),
			Label:    "View Results",
			Emoji:    &discordgo.ComponentEmoji{Name: "📊"},
			Style:    discordgo.PrimaryButton,
		}),
	}, nil
}

// pageButtons move between result pages. The current page travels in the
// custom id.
func pageButtons(f Form, page int) []discordgo.MessageComponent {
	id := func(name string) string {
		return customid.New(name).Arg(f.User).Arg(f.Anchor.Message).Arg(page).String()
	}
	return core.Row(
		discordgo.Button{CustomID: id(ButtonLast), Label: "Last", Emoji: &discordgo.ComponentEmoji{Name: "⬅️"}, Style: discordgo.SecondaryButton},
		discordgo.Button{CustomID: id(ButtonNext), Label: "Next", Emoji: &discordgo.ComponentEmoji{Name: "➡️"}, Style: discordgo.SecondaryButton},
	)
}

func bar(percent float64, width int) string {
	filled := min(max(int(percent*float64(width)), 0), width)
	return fmt.Sprintf("`%*s`", width, strings.Repeat(barFill, filled))
}

func formatPercent(p float64) string {
	return fmt.Sprintf("%.2f%%", p*100)
}

func userList(users []string, hidden bool) string {
	if hidden {
		return "*Users are hidden*"
	}
	var b strings.Builder
	for _, u := range users {
		fmt.Fprintf(&b, "<@%s>\n", u)
	}
	return b.String()
}

// resultsPage renders page of a closed poll's results. Out of range pages
// wrap around. It returns the page actually rendered.
func (s *Service) resultsPage(f Form, page int) (*discordgo.MessageEmbed, int, error) {
	if f.Output == nil || f.Anchor == nil {
		return nil, 0, errors.Precondition("The poll has not been closed")
	}
	out := *f.Output
	pages := out.Pages()
	page = wrapPage(page, pages)

	owner, err := s.owner(f)
	if err != nil {
		return nil, 0, err
	}
	embed := &discordgo.MessageEmbed{
		Author:    core.UserAuthor(owner),
		Color:     core.UserColor(owner, colorPoll()),
		Thumbnail: core.UserThumbnail(owner),
		URL:       f.Anchor.String(),
		Footer:    &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Page: %d / %d", page, pages)},
		Title:     "Poll Results: Overview",
	}

	switch {
	case out.Choice != nil:
		s.renderChoice(embed, f, *out.Choice, page)
	case out.Raffle != nil:
		var desc strings.Builder
		fmt.Fprintf(&desc, "**Total Entries:** %s\n", humanize.Comma(int64(len(out.Raffle.Users))))
		if out.Raffle.Winner != "" {
			fmt.Fprintf(&desc, "**Winner:** <@%s>\n\n", out.Raffle.Winner)
		} else {
			desc.WriteString("**Winner:** *Nobody entered*\n\n")
		}
		desc.WriteString("**Users:**\n")
		desc.WriteString(userList(out.Raffle.Users, f.Content.HideMembers))
		embed.Description = desc.String()
	case out.Response != nil:
		if err := s.renderResponse(embed, f, *out.Response, page); err != nil {
			return nil, 0, err
		}
	}
	return embed, page, nil
}

func (s *Service) renderChoice(embed *discordgo.MessageEmbed, f Form, out ChoiceOutput, page int) {
	label := func(e ChoiceEntry) string {
		if e.Index < len(f.Inputs) {
			return f.Inputs[e.Index].Label()
		}
		return NoAnswer
	}

	if page == 1 {
		var desc strings.Builder
		fmt.Fprintf(&desc, "**Total Votes:** %s\n\n", humanize.Comma(int64(out.Total)))
		for _, e := range out.Entries {
			p := out.Percent(e)
			fmt.Fprintf(&desc, "%s %s - %s %s (%s)\n",
				bar(p, 10), label(e), humanize.Comma(int64(e.Votes)), english.PluralWord(e.Votes, "vote", ""), formatPercent(p))
		}
		embed.Description = desc.String()
		return
	}

	e := out.Entries[page-2]
	p := out.Percent(e)
	embed.Title = "Poll Results: " + label(e)
	embed.Description = fmt.Sprintf("**Total Votes:** %s (%s)\n%s\n\n**Users:**\n%s",
		humanize.Comma(int64(e.Votes)), formatPercent(p), bar(p, 32), userList(e.Users, f.Content.HideMembers))
}

func (s *Service) renderResponse(embed *discordgo.MessageEmbed, f Form, out ResponseOutput, page int) error {
	if page == 1 {
		embed.Description = fmt.Sprintf("**Total Responses:** %s", humanize.Comma(int64(len(out.Entries))))
		return nil
	}

	e := out.Entries[page-2]
	if f.Content.HideMembers {
		embed.Author = &discordgo.MessageEmbedAuthor{Name: "Anonymous User"}
		embed.Color = colorPoll()
		embed.Thumbnail = nil
		embed.Title = fmt.Sprintf("Poll Results: User %d", page-1)
	} else {
		responder, err := s.client.User(e.User)
		if err != nil {
			return errors.Platform("fetch responder", err)
		}
		embed.Author = core.UserAuthor(responder)
		embed.Color = core.UserColor(responder, colorPoll())
		embed.Thumbnail = core.UserThumbnail(responder)
		embed.Title = "Poll Results: " + responder.Username
	}
	for i, answer := range e.Answers {
		if i >= len(f.Inputs) {
			break
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: f.Inputs[i].Label(), Value: answer})
	}
	return nil
}
