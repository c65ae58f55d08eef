package core

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/guildkit/pkg/discord/platform"
	"github.com/small-frappuccino/guildkit/pkg/errors"
	"github.com/small-frappuccino/guildkit/pkg/theme"
)

// ResponseType selects the color and default title of a standard response
type ResponseType int

const (
	ResponseSuccess ResponseType = iota
	ResponseError
	ResponseWarning
	ResponseInfo
)

// FailureTitle is the title of the embed sent when a handler fails.
const FailureTitle = "An error occurred!"

// ResponseConfig configures the next response
type ResponseConfig struct {
	Ephemeral  bool
	Title      string
	Color      int
	WithEmbed  bool
	Footer     string
	Timestamp  bool
	Components []discordgo.MessageComponent
}

// Responder sends every kind of interaction response through a platform client
type Responder struct {
	session platform.Client
	config  ResponseConfig
}

// NewResponder creates a responder with the default config
func NewResponder(session platform.Client) *Responder {
	return &Responder{session: session}
}

// WithConfig returns a responder that applies config to its next response
func (r *Responder) WithConfig(config ResponseConfig) *Responder {
	return &Responder{session: r.session, config: config}
}

// Success sends a success response
func (r *Responder) Success(i *discordgo.InteractionCreate, message string) error {
	return r.sendResponse(i, message, ResponseSuccess)
}

// Error sends an error response
func (r *Responder) Error(i *discordgo.InteractionCreate, message string) error {
	return r.sendResponse(i, message, ResponseError)
}

// Warning sends a warning response
func (r *Responder) Warning(i *discordgo.InteractionCreate, message string) error {
	return r.sendResponse(i, message, ResponseWarning)
}

// Info sends an informational response
func (r *Responder) Info(i *discordgo.InteractionCreate, message string) error {
	return r.sendResponse(i, message, ResponseInfo)
}

// Ephemeral sends a plain ephemeral response
func (r *Responder) Ephemeral(i *discordgo.InteractionCreate, message string) error {
	config := r.config
	config.Ephemeral = true
	return r.WithConfig(config).Info(i, message)
}

// Notice sends an ephemeral embed carrying only a title. Most acknowledgements
// of slash commands and buttons use it.
func (r *Responder) Notice(i *discordgo.InteractionCreate, title string) error {
	return r.Embed(i, true, &discordgo.MessageEmbed{Title: title, Color: theme.Primary()})
}

// Embed responds with one or more embeds and the configured components
func (r *Responder) Embed(i *discordgo.InteractionCreate, ephemeral bool, embeds ...*discordgo.MessageEmbed) error {
	return r.Message(i, &discordgo.InteractionResponseData{
		Embeds:     embeds,
		Flags:      flagsFor(ephemeral),
		Components: r.config.Components,
	})
}

// Message responds with fully built message data
func (r *Responder) Message(i *discordgo.InteractionCreate, data *discordgo.InteractionResponseData) error {
	return r.respond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

// Update replaces the message a component is attached to
func (r *Responder) Update(i *discordgo.InteractionCreate, data *discordgo.InteractionResponseData) error {
	return r.respond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: data,
	})
}

// Acknowledge confirms a component interaction without changing its message
func (r *Responder) Acknowledge(i *discordgo.InteractionCreate) error {
	return r.respond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
}

// Modal opens a modal dialog
func (r *Responder) Modal(i *discordgo.InteractionCreate, customID, title string, rows ...discordgo.MessageComponent) error {
	return r.respond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID:   customID,
			Title:      title,
			Components: rows,
		},
	})
}

// Failure reports a handler error to the user as an ephemeral embed
func (r *Responder) Failure(i *discordgo.InteractionCreate, err error) error {
	return r.Embed(i, true, &discordgo.MessageEmbed{
		Title:       FailureTitle,
		Description: fmt.Sprintf("> %s", err),
		Color:       theme.Error(),
	})
}

// DeferResponse defers the response for long running work
func (r *Responder) DeferResponse(i *discordgo.InteractionCreate, ephemeral bool) error {
	return r.respond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: flagsFor(ephemeral)},
	})
}

// EditResponse edits the content of a response that was already sent
func (r *Responder) EditResponse(i *discordgo.InteractionCreate, content string) error {
	_, err := r.session.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &content,
	})
	return errors.Platform("edit interaction response", err)
}

// OriginalResponse fetches the response message sent for an interaction
func (r *Responder) OriginalResponse(i *discordgo.InteractionCreate) (*discordgo.Message, error) {
	m, err := r.session.InteractionResponse(i.Interaction)
	if err != nil {
		return nil, errors.Platform("fetch interaction response", err)
	}
	return m, nil
}

func (r *Responder) respond(i *discordgo.InteractionCreate, resp *discordgo.InteractionResponse) error {
	return errors.Platform("respond to interaction", r.session.InteractionRespond(i.Interaction, resp))
}

func (r *Responder) sendResponse(i *discordgo.InteractionCreate, message string, responseType ResponseType) error {
	if r.config.WithEmbed {
		return r.Embed(i, r.config.Ephemeral, r.createEmbed(message, responseType))
	}
	return r.Message(i, &discordgo.InteractionResponseData{
		Content:    formatTextMessage(message, responseType),
		Flags:      flagsFor(r.config.Ephemeral),
		Components: r.config.Components,
	})
}

func formatTextMessage(message string, responseType ResponseType) string {
	switch responseType {
	case ResponseSuccess:
		return "✅ " + message
	case ResponseError:
		return "❌ " + message
	case ResponseWarning:
		return "⚠️ " + message
	case ResponseInfo:
		return "ℹ️ " + message
	default:
		return message
	}
}

func (r *Responder) createEmbed(message string, responseType ResponseType) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Description: message,
		Color:       r.colorFor(responseType),
		Title:       r.config.Title,
	}
	if embed.Title == "" {
		embed.Title = titleFor(responseType)
	}
	if r.config.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: r.config.Footer}
	}
	if r.config.Timestamp {
		embed.Timestamp = time.Now().Format(time.RFC3339)
	}
	return embed
}

func (r *Responder) colorFor(responseType ResponseType) int {
	if r.config.Color != 0 {
		return r.config.Color
	}
	switch responseType {
	case ResponseSuccess:
		return theme.Success()
	case ResponseError:
		return theme.Error()
	case ResponseWarning:
		return theme.Warning()
	case ResponseInfo:
		return theme.Info()
	default:
		return theme.Muted()
	}
}

func titleFor(responseType ResponseType) string {
	switch responseType {
	case ResponseSuccess:
		return "Success"
	case ResponseError:
		return "Error"
	case ResponseWarning:
		return "Warning"
	case ResponseInfo:
		return "Information"
	default:
		return ""
	}
}

func flagsFor(ephemeral bool) discordgo.MessageFlags {
	if ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}
