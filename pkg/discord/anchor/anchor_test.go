package anchor

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/guildkit/pkg/discord/platform/platformtest"
	"github.com/small-frappuccino/guildkit/pkg/errors"
)

func TestFromMessage(t *testing.T) {
	tests := []struct {
		name    string
		guild   string
		msg     *discordgo.Message
		want    Anchor
		wantErr bool
	}{
		{name: "explicit guild", guild: "1", msg: &discordgo.Message{ID: "3", ChannelID: "2"}, want: Anchor{"1", "2", "3"}},
		{name: "message guild", msg: &discordgo.Message{ID: "3", ChannelID: "2", GuildID: "9"}, want: Anchor{"9", "2", "3"}},
		{name: "no guild", msg: &discordgo.Message{ID: "3", ChannelID: "2"}, wantErr: true},
		{name: "nil message", guild: "1", wantErr: true},
		{name: "no channel", guild: "1", msg: &discordgo.Message{ID: "3"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromMessage(tt.guild, tt.msg)
			if tt.wantErr {
				if !errors.IsCategory(err, errors.CategoryField) {
					t.Fatalf("expected field error, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("got %+v, %v; want %+v", got, err, tt.want)
			}
		})
	}
}

func TestStringIsJumpLink(t *testing.T) {
	a := Anchor{Guild: "1", Channel: "2", Message: "3"}
	if got := a.String(); got != "https://discord.com/channels/1/2/3" {
		t.Fatalf("unexpected link %q", got)
	}
}

func TestCreatedAtDecodesSnowflake(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	a := Anchor{Guild: "1", Channel: "2", Message: platformtest.Snowflake(at, 1)}
	got, err := a.CreatedAt()
	if err != nil {
		t.Fatalf("created at: %v", err)
	}
	if !got.Equal(at) {
		t.Fatalf("expected %v, got %v", at, got)
	}
	if _, err := (Anchor{Message: "nope"}).CreatedAt(); err == nil {
		t.Fatal("expected invalid snowflake to fail")
	}
}

func TestResolveEditDelete(t *testing.T) {
	fake := platformtest.New()
	msg, _ := fake.ChannelMessageSendComplex("c", &discordgo.MessageSend{Content: "hi"})
	a, err := FromMessage("g", msg)
	if err != nil {
		t.Fatalf("anchor: %v", err)
	}

	if _, err := a.Resolve(fake); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	row := []discordgo.MessageComponent{discordgo.ActionsRow{}}
	if err := a.Edit(fake, nil, row); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if got, _ := fake.Message(msg.ID); len(got.Components) != 1 {
		t.Fatalf("expected components to be replaced, got %d", len(got.Components))
	}
	if err := a.Delete(fake); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := a.Resolve(fake); !errors.IsCategory(err, errors.CategoryPlatform) {
		t.Fatalf("expected platform error after delete, got %v", err)
	}
}

func TestDiscardToleratesMissingMessage(t *testing.T) {
	fake := platformtest.New()
	msg, _ := fake.ChannelMessageSendComplex("c", &discordgo.MessageSend{Content: "hi"})
	a, _ := FromMessage("g", msg)

	if err := a.Discard(fake); err != nil {
		t.Fatalf("discard: %v", err)
	}
	err := a.Delete(fake)
	if !IsGone(err) {
		t.Fatalf("expected second delete to report a missing message, got %v", err)
	}
	if err := a.Discard(fake); err != nil {
		t.Fatalf("discard of a missing message should succeed, got %v", err)
	}
	if IsGone(errors.Precondition("nope")) {
		t.Fatal("domain errors are not gone errors")
	}
}
