package commands

import (
	"testing"

	"github.com/small-frappuccino/guildkit/pkg/discord/commands/apply"
	"github.com/small-frappuccino/guildkit/pkg/discord/commands/poll"
	"github.com/small-frappuccino/guildkit/pkg/discord/commands/role"
	"github.com/small-frappuccino/guildkit/pkg/discord/platform/platformtest"
	"github.com/small-frappuccino/guildkit/pkg/storage"
)

func newHandler(t *testing.T, fake *platformtest.Fake, withServices bool) *CommandHandler {
	t.Helper()
	store, err := storage.NewStore(storage.NewMemoryBackend())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	var services Services
	if withServices {
		services = Services{
			Apply: apply.NewService(fake, store),
			Poll:  poll.NewService(fake, store),
			Role:  role.NewService(fake, store),
		}
	}
	return NewCommandHandler(fake, store, services, "")
}

func TestHandlerRegistersEveryFeature(t *testing.T) {
	fake := platformtest.New()
	h := newHandler(t, fake, true)

	var names []string
	for _, s := range h.GetCommandManager().Schemas() {
		names = append(names, s.Name)
	}
	want := []string{"apply", "data", "embed", "help", "offer", "oracle", "ping", "poll", "quote", "role"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, names)
		}
	}
}

func TestHandlerSkipsMissingServices(t *testing.T) {
	fake := platformtest.New()
	h := newHandler(t, fake, false)

	if got := len(h.GetCommandManager().Schemas()); got != 7 {
		t.Fatalf("expected only the stateless commands, got %d", got)
	}
}

func TestSetupCommandsPublishesSchemas(t *testing.T) {
	fake := platformtest.New()
	h := newHandler(t, fake, true)

	if err := h.SetupCommands("app", ""); err != nil {
		t.Fatalf("SetupCommands: %v", err)
	}
	if len(fake.Overwrite) != 10 {
		t.Fatalf("expected 10 published commands, got %d", len(fake.Overwrite))
	}

	// A second pass sees identical schemas and leaves the published set alone.
	published := fake.Overwrite
	if err := h.SetupCommands("app", ""); err != nil {
		t.Fatalf("SetupCommands: %v", err)
	}
	if &fake.Overwrite[0] != &published[0] {
		t.Fatalf("expected unchanged schemas to skip the overwrite")
	}
}
