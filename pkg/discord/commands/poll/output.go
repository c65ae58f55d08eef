package poll

import (
	"slices"
	"sort"
)

// Output is the frozen result of a closed poll. Exactly one variant is set.
type Output struct {
	Choice   *ChoiceOutput   `msgpack:"choice,omitempty"`
	Raffle   *RaffleOutput   `msgpack:"raffle,omitempty"`
	Response *ResponseOutput `msgpack:"response,omitempty"`
}

// ChoiceOutput tallies votes per input, most voted first.
type ChoiceOutput struct {
	Total   int           `msgpack:"total"`
	Entries []ChoiceEntry `msgpack:"entries"`
}

// ChoiceEntry is the tally of the input at Index.
type ChoiceEntry struct {
	Index int      `msgpack:"index"`
	Votes int      `msgpack:"votes"`
	Users []string `msgpack:"users"`
}

// Percent is Votes over the poll total, or zero for an empty poll.
func (o ChoiceOutput) Percent(e ChoiceEntry) float64 {
	if o.Total == 0 {
		return 0
	}
	return float64(e.Votes) / float64(o.Total)
}

// RaffleOutput names the winner among every entrant. Winner is empty when
// nobody entered.
type RaffleOutput struct {
	Winner string   `msgpack:"winner,omitempty"`
	Users  []string `msgpack:"users"`
}

// ResponseOutput keeps each responder's answers ordered by user.
type ResponseOutput struct {
	Entries []ResponseEntry `msgpack:"entries"`
}

type ResponseEntry struct {
	User    string   `msgpack:"user"`
	Answers []string `msgpack:"answers"`
}

// Pages is the number of result pages: an overview plus one page per entry.
func (o Output) Pages() int {
	switch {
	case o.Choice != nil:
		return len(o.Choice.Entries) + 1
	case o.Response != nil:
		return len(o.Response.Entries) + 1
	default:
		return 1
	}
}

// Total is the number of members that replied.
func (o Output) Total() int {
	switch {
	case o.Choice != nil:
		return o.Choice.Total
	case o.Raffle != nil:
		return len(o.Raffle.Users)
	case o.Response != nil:
		return len(o.Response.Entries)
	default:
		return 0
	}
}

// wrapPage maps an out of range page onto the other end of [1, pages].
func wrapPage(page, pages int) int {
	switch {
	case page < 1:
		return pages
	case page > pages:
		return 1
	default:
		return page
	}
}

func sortedUsers(replies map[string]Reply, keep func(Reply) bool) []string {
	users := make([]string, 0, len(replies))
	for user, r := range replies {
		if keep(r) {
			users = append(users, user)
		}
	}
	slices.Sort(users)
	return users
}

// computeOutput tallies the replies of f. Replies whose variant does not
// match the poll kind are ignored. pick returns a value in [0, n).
func computeOutput(f Form, pick func(n int) int) Output {
	switch f.Kind {
	case KindChoice:
		out := &ChoiceOutput{Entries: make([]ChoiceEntry, len(f.Inputs))}
		for i := range out.Entries {
			out.Entries[i].Index = i
		}
		for _, user := range sortedUsers(f.Replies, func(r Reply) bool { return r.Choice != nil }) {
			idx := f.Replies[user].Choice.Index
			if idx < 0 || idx >= len(out.Entries) {
				continue
			}
			out.Entries[idx].Votes++
			out.Entries[idx].Users = append(out.Entries[idx].Users, user)
			out.Total++
		}
		sort.SliceStable(out.Entries, func(i, j int) bool {
			return out.Entries[i].Votes > out.Entries[j].Votes
		})
		return Output{Choice: out}

	case KindRaffle:
		out := &RaffleOutput{Users: sortedUsers(f.Replies, func(r Reply) bool { return r.Raffle != nil })}
		if len(out.Users) > 0 {
			out.Winner = out.Users[pick(len(out.Users))]
		}
		return Output{Raffle: out}

	default:
		out := &ResponseOutput{}
		for _, user := range sortedUsers(f.Replies, func(r Reply) bool { return r.Response != nil }) {
			out.Entries = append(out.Entries, ResponseEntry{
				User:    user,
				Answers: f.Replies[user].Response.Answers,
			})
		}
		return Output{Response: out}
	}
}
