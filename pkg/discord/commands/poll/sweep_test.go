package poll

import (
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/guildkit/pkg/storage"
)

func TestSweepClosesDuePolls(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, KindChoice, "a", "b")
	sent := env.send(t)
	for _, u := range []string{"A", "B"} {
		if _, err := env.svc.Vote(t.Context(), testGuild, testOwner, u, 0); err != nil {
			t.Fatalf("Vote: %v", err)
		}
	}
	sweeper := NewSweeper(env.svc)

	env.now = env.now.Add(23 * time.Hour)
	res, err := sweeper.Sweep(t.Context())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res != (SweepResult{}) {
		t.Fatalf("poll closed early: %+v", res)
	}

	env.now = env.now.Add(time.Hour)
	res, err = sweeper.Sweep(t.Context())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.Closed != 1 {
		t.Fatalf("result = %+v, want one closed poll", res)
	}

	archived, err := storage.Read(t.Context(), env.store, ArchiveReq(testGuild, testOwner, sent.Anchor.Message))
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	out := archived.Output.Choice
	if out.Total != 2 || len(out.Entries) != 2 {
		t.Fatalf("output = %+v", out)
	}
	first, second := out.Entries[0], out.Entries[1]
	if first.Index != 0 || first.Votes != 2 || out.Percent(first) != 1 {
		t.Errorf("first entry = %+v (%.2f)", first, out.Percent(first))
	}
	if second.Index != 1 || second.Votes != 0 || out.Percent(second) != 0 {
		t.Errorf("second entry = %+v", second)
	}
	if keys, _ := env.svc.ActivePolls(t.Context()); len(keys) != 0 {
		t.Fatalf("active = %v", keys)
	}

	res, err = sweeper.Sweep(t.Context())
	if err != nil || res != (SweepResult{}) {
		t.Fatalf("second sweep = %+v, %v", res, err)
	}
}

func TestSweepPrunesStaleEntries(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, KindRaffle)
	env.send(t)

	ghost := ActiveKey{Guild: "g2", User: "gone"}
	active := Active{}
	active.Add(ghost)
	active.Add(ActiveKey{Guild: testGuild, User: testOwner})
	if err := storage.Write(t.Context(), env.store, ActiveReq(), active); err != nil {
		t.Fatalf("Write: %v", err)
	}

	res, err := NewSweeper(env.svc).Sweep(t.Context())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.Pruned != 1 || res.Closed != 0 {
		t.Fatalf("result = %+v", res)
	}
	keys, _ := env.svc.ActivePolls(t.Context())
	if len(keys) != 1 || keys[0].User != testOwner {
		t.Fatalf("active = %v", keys)
	}
}

func TestSweepCountsFailures(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, KindRaffle)
	env.send(t)
	env.now = env.now.Add(48 * time.Hour)
	env.fake.SendErr = errSendFailed

	res, err := NewSweeper(env.svc).Sweep(t.Context())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.Failed != 1 || res.Closed != 0 {
		t.Fatalf("result = %+v", res)
	}
	if keys, _ := env.svc.ActivePolls(t.Context()); len(keys) != 1 {
		t.Fatalf("failed poll should stay indexed, active = %v", keys)
	}

	env.fake.SendErr = nil
	res, err = NewSweeper(env.svc).Sweep(t.Context())
	if err != nil || res.Closed != 1 {
		t.Fatalf("retry = %+v, %v", res, err)
	}
}

func unknownChannel() error {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusNotFound, Status: "404 Not Found"},
		Message:  &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownChannel, Message: "Unknown Channel"},
	}
}

func TestSweepPrunesPollInDeletedChannel(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, KindRaffle)
	env.send(t)
	env.now = env.now.Add(25 * time.Hour)

	gone := unknownChannel()
	env.fake.FetchErr = gone
	env.fake.EditErr = gone
	env.fake.SendErr = gone

	sweeper := NewSweeper(env.svc)
	res, err := sweeper.Sweep(t.Context())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.Pruned != 1 || res.Failed != 0 || res.Closed != 0 {
		t.Fatalf("result = %+v", res)
	}
	if keys, _ := env.svc.ActivePolls(t.Context()); len(keys) != 0 {
		t.Fatalf("active = %v", keys)
	}

	for range 2 {
		res, err := sweeper.Sweep(t.Context())
		if err != nil || res != (SweepResult{}) {
			t.Fatalf("later sweep = %+v, %v", res, err)
		}
	}

	// The owner can still clear the record by hand.
	if err := env.svc.Discard(t.Context(), testGuild, testOwner, true); err != nil {
		t.Fatalf("Discard: %v", err)
	}
}

func TestSweepKeepsPollWhenChannelResolves(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, KindRaffle)
	env.send(t)
	env.now = env.now.Add(25 * time.Hour)

	// Posting fails with a 404 but the card is still reachable.
	env.fake.SendErr = unknownChannel()

	res, err := NewSweeper(env.svc).Sweep(t.Context())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.Pruned != 0 {
		t.Fatalf("result = %+v", res)
	}
	if keys, _ := env.svc.ActivePolls(t.Context()); len(keys) != 1 {
		t.Fatalf("active = %v", keys)
	}
}
