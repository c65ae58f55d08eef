package social

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/guildkit/pkg/discord/commands/core"
	"github.com/small-frappuccino/guildkit/pkg/discord/platform/platformtest"
	"github.com/small-frappuccino/guildkit/pkg/theme"
)

const (
	testGuild = "g1"
	testUser  = "u1"
)

func newRouter(fake *platformtest.Fake, opts ...Option) *core.CommandRouter {
	router := core.NewCommandRouter(fake, nil, core.WithClock(func() time.Time { return platformtest.InteractionTime }))
	RegisterCommands(router, opts...)
	return router
}

func command(name string, perms int64, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return platformtest.WithPermissions(platformtest.Command(name, testGuild, testUser, opts...), perms)
}

func responseEmbed(t *testing.T, fake *platformtest.Fake) (*discordgo.MessageEmbed, bool) {
	t.Helper()
	resp := fake.LastResponse()
	if resp == nil || resp.Data == nil || len(resp.Data.Embeds) != 1 {
		t.Fatalf("expected one embed, got %+v", resp)
	}
	return resp.Data.Embeds[0], resp.Data.Flags&discordgo.MessageFlagsEphemeral != 0
}

func requireFailure(t *testing.T, fake *platformtest.Fake, want string) {
	t.Helper()
	embed, _ := responseEmbed(t, fake)
	if embed.Title != core.FailureTitle || embed.Description != "> "+want {
		t.Fatalf("response = %q / %q, want failure %q", embed.Title, embed.Description, want)
	}
}

func TestRegisterCommandsPublishesSchemas(t *testing.T) {
	router := newRouter(platformtest.New())

	want := map[string]int64{
		"embed":  discordgo.PermissionEmbedLinks,
		"offer":  discordgo.PermissionSendMessages,
		"oracle": discordgo.PermissionSendMessages,
		"quote":  discordgo.PermissionSendMessages,
	}
	for name, perms := range want {
		cmd, ok := router.GetRegistry().GetCommand(name)
		if !ok {
			t.Fatalf("%s not registered", name)
		}
		if cmd.Permissions() != perms || !cmd.RequiresGuild() {
			t.Fatalf("%s: perms %d, guild %v", name, cmd.Permissions(), cmd.RequiresGuild())
		}
	}
}

func TestOracleAnswersFromTable(t *testing.T) {
	tests := []struct {
		index int
		color int
	}{
		{0, theme.Success()},
		{12, theme.Muted()},
		{19, theme.Error()},
	}
	for _, tt := range tests {
		t.Run(Answers[tt.index].Text, func(t *testing.T) {
			fake := platformtest.New()
			var drawnFrom int
			router := newRouter(fake, WithPicker(func(n int) int {
				drawnFrom = n
				return tt.index
			}))

			router.Dispatch(command("oracle", discordgo.PermissionSendMessages, platformtest.Str(optQuestion, "Will it rain?")))

			if drawnFrom != 20 {
				t.Fatalf("picked from %d answers, want 20", drawnFrom)
			}
			embed, ephemeral := responseEmbed(t, fake)
			if ephemeral {
				t.Fatalf("oracle replies should be public")
			}
			want := "**useru1 asked...**\n> Will it rain?\n\n*" + Answers[tt.index].Text + "*"
			if embed.Description != want {
				t.Fatalf("description = %q, want %q", embed.Description, want)
			}
			if embed.Color != tt.color {
				t.Fatalf("color = %#x, want %#x", embed.Color, tt.color)
			}
		})
	}
}

func TestOracleNeedsPermission(t *testing.T) {
	fake := platformtest.New()
	newRouter(fake).Dispatch(command("oracle", 0, platformtest.Str(optQuestion, "Hello?")))

	embed, _ := responseEmbed(t, fake)
	if embed.Title != core.FailureTitle {
		t.Fatalf("expected a permission failure, got %+v", embed)
	}
}

func TestQuote(t *testing.T) {
	fake := platformtest.New()
	fake.Users["u2"] = &discordgo.User{ID: "u2", Username: "ada", Discriminator: "0", AccentColor: 0x123456}
	fake.Users["bot"] = &discordgo.User{ID: "bot", Username: "robot", Discriminator: "0", Bot: true}
	router := newRouter(fake)

	router.Dispatch(command("quote", discordgo.PermissionSendMessages, platformtest.User(optUser, "u2"), platformtest.Str(optText, "hello there")))
	embed, _ := responseEmbed(t, fake)
	if embed.Description != "> hello there" || embed.Author.Name != "ada" || embed.Color != 0x123456 {
		t.Fatalf("unexpected quote: %+v", embed)
	}

	t.Run("cannot quote yourself", func(t *testing.T) {
		router.Dispatch(command("quote", discordgo.PermissionSendMessages, platformtest.User(optUser, testUser), platformtest.Str(optText, "me")))
		requireFailure(t, fake, "You cannot quote yourself")
	})
	t.Run("cannot quote a bot", func(t *testing.T) {
		router.Dispatch(command("quote", discordgo.PermissionSendMessages, platformtest.User(optUser, "bot"), platformtest.Str(optText, "beep")))
		requireFailure(t, fake, "You cannot quote a bot")
	})
}

func TestOfferShowsExpiry(t *testing.T) {
	fake := platformtest.New()
	router := newRouter(fake)

	router.Dispatch(command("offer", discordgo.PermissionSendMessages,
		platformtest.Str(optOffer, "a sword"),
		platformtest.Str(optPrice, "a shield"),
		platformtest.Int(optMinutes, 90),
	))

	embed, _ := responseEmbed(t, fake)
	expires := platformtest.InteractionTime.Add(90 * time.Minute).Unix()
	if embed.Description != "**Expires:** <t:"+strconv.FormatInt(expires, 10)+":R>" {
		t.Fatalf("description = %q", embed.Description)
	}
	if len(embed.Fields) != 2 || embed.Fields[0].Value != "a sword" || embed.Fields[1].Value != "a shield" {
		t.Fatalf("fields = %+v", embed.Fields)
	}
	if embed.Color != theme.Primary() || embed.Thumbnail == nil {
		t.Fatalf("unexpected embed: %+v", embed)
	}

	router.Dispatch(command("offer", discordgo.PermissionSendMessages,
		platformtest.Str(optOffer, "a sword"),
		platformtest.Str(optPrice, "a shield"),
		platformtest.Int(optMinutes, 1),
	))
	requireFailure(t, fake, "Invalid value: minutes<1>")
}

func TestEmbedBuildsEveryPart(t *testing.T) {
	fake := platformtest.New()
	router := newRouter(fake)

	router.Dispatch(command("embed", discordgo.PermissionEmbedLinks,
		platformtest.Str(optAuthorName, "Staff"),
		platformtest.Str(optAuthorIcon, "https://example.com/a.png"),
		platformtest.Str(optColor, "e74c3c"),
		platformtest.Str(optDescription, `line one\nline two `),
		platformtest.Str(optFooterText, "footer"),
		platformtest.Str(optTitleText, "Rules"),
		platformtest.Str(optTitleLink, "https://example.com"),
		platformtest.Bool(optEphemeral, true),
	))

	embed, ephemeral := responseEmbed(t, fake)
	if !ephemeral {
		t.Fatalf("expected an ephemeral embed")
	}
	if embed.Description != "line one\nline two" {
		t.Fatalf("description = %q", embed.Description)
	}
	if embed.Color != 0xE74C3C || embed.Title != "Rules" || embed.URL != "https://example.com" {
		t.Fatalf("unexpected embed: %+v", embed)
	}
	if embed.Author.IconURL != "https://example.com/a.png" || embed.Footer.Text != "footer" {
		t.Fatalf("author %+v footer %+v", embed.Author, embed.Footer)
	}
}

func TestEmbedUserColor(t *testing.T) {
	fake := platformtest.New()
	fake.Users[testUser] = &discordgo.User{ID: testUser, Username: "me", AccentColor: 0x00FF00}

	newRouter(fake).Dispatch(command("embed", discordgo.PermissionEmbedLinks,
		platformtest.Str(optColor, colorUser),
		platformtest.Str(optTitleText, "Hi"),
	))
	if embed, _ := responseEmbed(t, fake); embed.Color != 0x00FF00 {
		t.Fatalf("color = %#x", embed.Color)
	}
}

func TestEmbedRejectsEmptyAndOversized(t *testing.T) {
	fake := platformtest.New()
	router := newRouter(fake)

	router.Dispatch(command("embed", discordgo.PermissionEmbedLinks, platformtest.Str(optColor, colorDefault)))
	requireFailure(t, fake, "A visible element must be provided")

	router.Dispatch(command("embed", discordgo.PermissionEmbedLinks,
		platformtest.Str(optDescription, strings.Repeat("a", 4096)),
		platformtest.Str(optFooterText, strings.Repeat("b", 2048)),
	))
	requireFailure(t, fake, "Content must have at most 6000 characters")
}

func TestEmbedColorChoicesFitDiscordLimit(t *testing.T) {
	for _, opt := range embedOptions() {
		if opt.Name != optColor {
			continue
		}
		if n := len(opt.Choices); n > 25 {
			t.Fatalf("%d color choices, Discord allows 25", n)
		}
		for _, c := range opt.Choices {
			if c.Value == "" {
				t.Fatalf("choice %q has an empty value", c.Name)
			}
		}
		return
	}
	t.Fatalf("color option missing")
}
