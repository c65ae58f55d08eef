package core

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/guildkit/pkg/discord/platform/platformtest"
	"github.com/small-frappuccino/guildkit/pkg/errors"
)

type testCommand struct {
	name          string
	requiresGuild bool
	permissions   int64
	handler       func(*Context) error
}

func (tc testCommand) Name() string        { return tc.name }
func (tc testCommand) Description() string { return tc.name }
func (tc testCommand) Options() []*discordgo.ApplicationCommandOption {
	return nil
}
func (tc testCommand) Handle(ctx *Context) error {
	if tc.handler != nil {
		return tc.handler(ctx)
	}
	return nil
}
func (tc testCommand) RequiresGuild() bool { return tc.requiresGuild }
func (tc testCommand) Permissions() int64  { return tc.permissions }

type interactiveCommand struct {
	testCommand
	component func(*Context) error
	modal     func(*Context) error
}

func (ic interactiveCommand) HandleComponent(ctx *Context) error { return ic.component(ctx) }
func (ic interactiveCommand) HandleModal(ctx *Context) error     { return ic.modal(ctx) }

type responseRecorder struct {
	mu        sync.Mutex
	responses []discordgo.InteractionResponse
}

func (r *responseRecorder) add(resp discordgo.InteractionResponse) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, resp)
}

func (r *responseRecorder) all() []discordgo.InteractionResponse {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]discordgo.InteractionResponse, len(r.responses))
	copy(out, r.responses)
	return out
}

func newTestSession(t *testing.T) (*discordgo.Session, *responseRecorder) {
	t.Helper()
	rec := &responseRecorder{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/callback") {
			var resp discordgo.InteractionResponse
			_ = json.NewDecoder(r.Body).Decode(&resp)
			rec.add(resp)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(server.Close)

	oldAPI := discordgo.EndpointAPI
	discordgo.EndpointAPI = server.URL + "/"
	t.Cleanup(func() { discordgo.EndpointAPI = oldAPI })

	session, err := discordgo.New("Bot test-token")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return session, rec
}

func buildInteraction(command, guildID, userID string) *discordgo.InteractionCreate {
	data := discordgo.ApplicationCommandInteractionData{
		ID:      "cmd-" + command,
		Name:    command,
		Options: []*discordgo.ApplicationCommandInteractionDataOption{},
	}
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			ID:      "interaction-" + command,
			AppID:   "app",
			Token:   "token",
			Type:    discordgo.InteractionApplicationCommand,
			GuildID: guildID,
			Member:  &discordgo.Member{User: &discordgo.User{ID: userID}},
			Data:    data,
		},
	}
}

func buildComponent(customID, guildID, userID string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			ID:      "interaction-component",
			AppID:   "app",
			Token:   "token",
			Type:    discordgo.InteractionMessageComponent,
			GuildID: guildID,
			Member:  &discordgo.Member{User: &discordgo.User{ID: userID}},
			Data:    discordgo.MessageComponentInteractionData{CustomID: customID},
		},
	}
}

func buildModal(customID string, values map[string]string) *discordgo.InteractionCreate {
	inputs := make([]discordgo.MessageComponent, 0, len(values))
	for id, v := range values {
		inputs = append(inputs, &discordgo.TextInput{CustomID: id, Value: v})
	}
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			ID:      "interaction-modal",
			AppID:   "app",
			Token:   "token",
			Type:    discordgo.InteractionModalSubmit,
			GuildID: "guild",
			Member:  &discordgo.Member{User: &discordgo.User{ID: "user"}},
			Data: discordgo.ModalSubmitInteractionData{
				CustomID:   customID,
				Components: []discordgo.MessageComponent{&discordgo.ActionsRow{Components: inputs}},
			},
		},
	}
}

func singleFailure(t *testing.T, responses []discordgo.InteractionResponse) string {
	t.Helper()
	if len(responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses))
	}
	resp := responses[0]
	if resp.Data == nil || len(resp.Data.Embeds) != 1 {
		t.Fatalf("expected a single embed, got %+v", resp.Data)
	}
	if resp.Data.Flags&discordgo.MessageFlagsEphemeral == 0 {
		t.Fatalf("expected ephemeral flag to be set")
	}
	if resp.Data.Embeds[0].Title != FailureTitle {
		t.Fatalf("unexpected title: %q", resp.Data.Embeds[0].Title)
	}
	return resp.Data.Embeds[0].Description
}

func TestCommandRegistryRegisterLookup(t *testing.T) {
	registry := NewCommandRegistry()
	first := testCommand{name: "ping"}
	registry.Register(first)

	if got, ok := registry.GetCommand("ping"); !ok || got.Name() != first.Name() {
		t.Fatalf("expected to find command, got ok=%v value=%v", ok, got)
	}

	second := testCommand{name: "ping", requiresGuild: true}
	registry.Register(second)
	if got, ok := registry.GetCommand("ping"); !ok || got.RequiresGuild() != second.requiresGuild {
		t.Fatalf("expected duplicate registration to overwrite, got ok=%v value=%v", ok, got)
	}
	if _, ok := registry.GetComponent("ping"); ok {
		t.Fatalf("plain command should not register a component handler")
	}

	registry.Register(interactiveCommand{testCommand: testCommand{name: "poll"}})
	if _, ok := registry.GetComponent("poll"); !ok {
		t.Fatalf("expected component handler for poll")
	}
	if _, ok := registry.GetModal("poll"); !ok {
		t.Fatalf("expected modal handler for poll")
	}

	registry.RegisterSubCommand("group", testCommand{name: "sub"})
	if _, ok := registry.GetSubCommand("group", "sub"); !ok {
		t.Fatalf("expected subcommand to be registered")
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	session, rec := newTestSession(t)
	router := NewCommandRouter(session, nil)

	router.Dispatch(buildInteraction("missing", "guild", "user"))

	desc := singleFailure(t, rec.all())
	if desc != "> Invalid identifier: command<missing>" {
		t.Fatalf("unexpected description: %q", desc)
	}
}

func TestDispatchRequiresGuild(t *testing.T) {
	session, rec := newTestSession(t)
	router := NewCommandRouter(session, nil)

	router.RegisterCommand(testCommand{name: "guild", requiresGuild: true, handler: func(*Context) error {
		t.Fatalf("handler should not execute when missing guild")
		return nil
	}})

	interaction := buildInteraction("guild", "", "")
	interaction.Member = nil
	interaction.User = &discordgo.User{ID: "user"}
	router.Dispatch(interaction)

	if desc := singleFailure(t, rec.all()); !strings.Contains(desc, "only be used in a server") {
		t.Fatalf("unexpected description: %q", desc)
	}
}

func TestDispatchPermissions(t *testing.T) {
	tests := []struct {
		name    string
		granted int64
		allowed bool
	}{
		{name: "missing", granted: discordgo.PermissionSendMessages, allowed: false},
		{name: "exact", granted: discordgo.PermissionModerateMembers, allowed: true},
		{name: "administrator", granted: discordgo.PermissionAdministrator, allowed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := platformtest.New()
			router := NewCommandRouter(fake, nil)

			ran := false
			router.RegisterCommand(testCommand{name: "secure", permissions: discordgo.PermissionModerateMembers, handler: func(ctx *Context) error {
				ran = true
				return ctx.Respond().Notice(ctx.Interaction, "ok")
			}})

			interaction := buildInteraction("secure", "guild", "user")
			interaction.Member.Permissions = tt.granted
			router.Dispatch(interaction)

			if ran != tt.allowed {
				t.Fatalf("handler ran=%v, want %v", ran, tt.allowed)
			}
			resp := fake.LastResponse()
			if resp == nil {
				t.Fatalf("expected a response")
			}
			failed := resp.Data.Embeds[0].Title == FailureTitle
			if failed == tt.allowed {
				t.Fatalf("unexpected response title %q", resp.Data.Embeds[0].Title)
			}
		})
	}
}

func TestDispatchGuildOwnerBypassesPermissions(t *testing.T) {
	fake := platformtest.New()
	fake.Guilds["guild"] = &discordgo.Guild{ID: "guild", OwnerID: "owner"}
	router := NewCommandRouter(fake, nil)

	ran := false
	router.RegisterCommand(testCommand{name: "secure", permissions: discordgo.PermissionManageRoles, handler: func(ctx *Context) error {
		ran = true
		return nil
	}})
	router.Dispatch(buildInteraction("secure", "guild", "owner"))
	if !ran {
		t.Fatalf("expected owner to pass permission check")
	}
}

func TestDispatchHandlerErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "precondition", err: errors.Precondition("You already have a poll"), want: "> You already have a poll"},
		{name: "missing field", err: errors.MissingField("title"), want: "> Missing value: title<?>"},
		{name: "invalid field", err: errors.InvalidField("hours", "0"), want: "> Invalid value: hours<0>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, rec := newTestSession(t)
			router := NewCommandRouter(session, nil)
			router.RegisterCommand(testCommand{name: "cmd", handler: func(*Context) error {
				return tt.err
			}})

			router.Dispatch(buildInteraction("cmd", "guild", "user"))

			if desc := singleFailure(t, rec.all()); desc != tt.want {
				t.Fatalf("description = %q, want %q", desc, tt.want)
			}
		})
	}
}

func TestDispatchRecoversPanics(t *testing.T) {
	session, rec := newTestSession(t)
	router := NewCommandRouter(session, nil)
	router.RegisterCommand(testCommand{name: "boom", handler: func(*Context) error {
		panic("kaboom")
	}})

	router.Dispatch(buildInteraction("boom", "guild", "user"))

	if desc := singleFailure(t, rec.all()); !strings.Contains(desc, "kaboom") {
		t.Fatalf("unexpected description: %q", desc)
	}
}

func TestDispatchFailureReplyErrorIsSwallowed(t *testing.T) {
	fake := platformtest.New()
	fake.RespondErr = errors.Precondition("expired")
	router := NewCommandRouter(fake, nil)

	router.Dispatch(buildInteraction("missing", "guild", "user"))

	if fake.ResponseCount() != 0 {
		t.Fatalf("expected no recorded responses")
	}
}

func TestDispatchComponentAndModal(t *testing.T) {
	fake := platformtest.New()
	router := NewCommandRouter(fake, nil)

	var componentArgs []string
	var modalValues map[string]string
	router.RegisterCommand(interactiveCommand{
		testCommand: testCommand{name: "poll"},
		component: func(ctx *Context) error {
			if !ctx.CustomID.Is("poll_choice") {
				t.Errorf("unexpected custom id name %q", ctx.CustomID.Name)
			}
			componentArgs = ctx.CustomID.Args
			return ctx.Respond().Acknowledge(ctx.Interaction)
		},
		modal: func(ctx *Context) error {
			modalValues = ModalValues(ctx.Interaction)
			return ctx.Respond().Acknowledge(ctx.Interaction)
		},
	})

	router.Dispatch(buildComponent("poll_choice;123;2", "guild", "user"))
	if strings.Join(componentArgs, ",") != "123,2" {
		t.Fatalf("unexpected component args %v", componentArgs)
	}

	router.Dispatch(buildModal("poll_submit;123", map[string]string{"0": "yes", "1": "no"}))
	if modalValues["0"] != "yes" || modalValues["1"] != "no" {
		t.Fatalf("unexpected modal values %v", modalValues)
	}

	if got := fake.ResponseCount(); got != 2 {
		t.Fatalf("expected 2 responses, got %d", got)
	}
	if fake.LastResponse().Type != discordgo.InteractionResponseDeferredMessageUpdate {
		t.Fatalf("expected deferred update, got %v", fake.LastResponse().Type)
	}
}

func TestDispatchComponentRoutingFailures(t *testing.T) {
	tests := []struct {
		name     string
		customID string
		want     string
	}{
		{name: "unknown base", customID: "role_toggle;1", want: "> Invalid identifier: component<role>"},
		{name: "empty", customID: "", want: "> Invalid identifier: component<>"},
		{name: "no base", customID: "_x;1", want: "> Invalid identifier: component<_x;1>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, rec := newTestSession(t)
			router := NewCommandRouter(session, nil)
			router.Dispatch(buildComponent(tt.customID, "guild", "user"))
			if desc := singleFailure(t, rec.all()); desc != tt.want {
				t.Fatalf("description = %q, want %q", desc, tt.want)
			}
		})
	}
}

func TestGroupCommandDispatch(t *testing.T) {
	group := NewGroupCommand("poll", "Polls", NewPermissionChecker(nil))

	var gotPath []string
	var gotTitle string
	group.AddSubCommand(testCommand{name: "send"})
	inputs := NewGroupCommand("input", "Inputs", nil)
	inputs.AddSubCommand(testCommand{name: "create", handler: func(ctx *Context) error {
		gotPath = ctx.Path
		gotTitle = ctx.Args().String("label")
		return nil
	}})
	group.AddGroup(inputs)

	opts := group.Options()
	if len(opts) != 2 || opts[0].Name != "send" || opts[1].Type != discordgo.ApplicationCommandOptionSubCommandGroup {
		t.Fatalf("unexpected options layout: %+v", opts)
	}

	ctx := &Context{
		Path: []string{"poll"},
		Options: []*discordgo.ApplicationCommandInteractionDataOption{{
			Name: "input",
			Type: discordgo.ApplicationCommandOptionSubCommandGroup,
			Options: []*discordgo.ApplicationCommandInteractionDataOption{{
				Name: "create",
				Type: discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandInteractionDataOption{
					{Name: "label", Type: discordgo.ApplicationCommandOptionString, Value: "Yes"},
				},
			}},
		}},
	}
	if err := group.Handle(ctx); err != nil {
		t.Fatalf("group handle returned error: %v", err)
	}
	if strings.Join(gotPath, " ") != "poll input create" || gotTitle != "Yes" {
		t.Fatalf("unexpected path %v or label %q", gotPath, gotTitle)
	}

	err := group.Handle(&Context{Options: []*discordgo.ApplicationCommandInteractionDataOption{
		{Name: "nope", Type: discordgo.ApplicationCommandOptionSubCommand},
	}})
	if !errors.IsCategory(err, errors.CategoryRouting) {
		t.Fatalf("expected routing error, got %v", err)
	}
}

func TestSetupCommandsBulkOverwrite(t *testing.T) {
	fake := platformtest.New()
	manager := NewCommandManager(fake, nil)
	router := manager.GetRouter()
	router.RegisterCommand(testCommand{name: "ping"})
	router.RegisterCommand(testCommand{name: "apply", requiresGuild: true, permissions: discordgo.PermissionManageRoles})

	if err := manager.SetupCommands("app", "dev-guild"); err != nil {
		t.Fatalf("setup commands: %v", err)
	}
	if len(fake.Overwrite) != 2 || fake.Overwrite[0].Name != "apply" {
		t.Fatalf("unexpected overwrite: %+v", fake.Overwrite)
	}
	if p := fake.Overwrite[0].DefaultMemberPermissions; p == nil || *p != discordgo.PermissionManageRoles {
		t.Fatalf("expected default member permissions on apply")
	}

	fake.Overwrite[0].ID = "kept"
	if err := manager.SetupCommands("app", "dev-guild"); err != nil {
		t.Fatalf("second setup: %v", err)
	}
	if fake.Overwrite[0].ID != "kept" {
		t.Fatalf("expected unchanged schemas to skip the overwrite")
	}
}
