package core

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/guildkit/pkg/errors"
)

func TestOptionExtractor(t *testing.T) {
	ex := NewOptionExtractor([]*discordgo.ApplicationCommandInteractionDataOption{
		{Name: "title", Type: discordgo.ApplicationCommandOptionString, Value: "  Lunch  "},
		{Name: "hours", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(24)},
		{Name: "force", Type: discordgo.ApplicationCommandOptionBoolean, Value: true},
		{Name: "role", Type: discordgo.ApplicationCommandOptionRole, Value: "42"},
		{Name: "wrong", Type: discordgo.ApplicationCommandOptionBoolean, Value: "text"},
	})

	if got := ex.String("title"); got != "Lunch" {
		t.Fatalf("String = %q", got)
	}
	if got := ex.Int("hours"); got != 24 {
		t.Fatalf("Int = %d", got)
	}
	if !ex.Bool("force") {
		t.Fatalf("Bool = false")
	}
	if id, err := ex.RoleRequired("role"); err != nil || id != "42" {
		t.Fatalf("RoleRequired = %q, %v", id, err)
	}

	if _, err := ex.StringRequired("missing"); !errors.IsCategory(err, errors.CategoryField) {
		t.Fatalf("expected field error, got %v", err)
	}
	if _, err := ex.IntRequired("title"); !errors.IsCategory(err, errors.CategoryField) {
		t.Fatalf("expected field error for mismatched type, got %v", err)
	}
	if _, ok := ex.BoolOK("wrong"); ok {
		t.Fatalf("expected malformed bool to be rejected")
	}
	if ex.HasOption("missing") || !ex.HasOption("hours") {
		t.Fatalf("HasOption mismatch")
	}
}

func TestParseEmoji(t *testing.T) {
	tests := []struct {
		in   string
		want *discordgo.ComponentEmoji
	}{
		{in: "", want: nil},
		{in: "🎲", want: &discordgo.ComponentEmoji{Name: "🎲"}},
		{in: "<:blob:123>", want: &discordgo.ComponentEmoji{Name: "blob", ID: "123"}},
		{in: "<a:dance:456>", want: &discordgo.ComponentEmoji{Name: "dance", ID: "456", Animated: true}},
	}
	for _, tt := range tests {
		got := ParseEmoji(tt.in)
		if tt.want == nil {
			if got != nil {
				t.Fatalf("ParseEmoji(%q) = %+v, want nil", tt.in, got)
			}
			continue
		}
		if got == nil || *got != *tt.want {
			t.Fatalf("ParseEmoji(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestTruncateString(t *testing.T) {
	var su StringUtils
	if got := su.TruncateString("héllo world", 8); got != "héllo..." {
		t.Fatalf("TruncateString = %q", got)
	}
	if got := su.TruncateString("short", 10); got != "short" {
		t.Fatalf("TruncateString = %q", got)
	}
}
