package apply

import (
	_ "embed"
	"strings"
)

var (
	//go:embed texts/about.md
	aboutText string
	//go:embed texts/accept.md
	acceptText string
	//go:embed texts/deny.md
	denyText string
	//go:embed texts/resend.md
	resendText string
)

// toasts title new application cards.
var toasts = [...]string{
	"I spot a new member!",
	"A wild user appeared!",
	"Oh god, there's *another* one...",
	"This one seems... suspicious...",
	"Careful, they might bite!",
	"I'd keep an eye on this one.",
	"Aww, they didn't bring pizza!",
	"Who let *this* guy in..?",
}

// notice returns the DM title and body for a reviewed status.
func notice(s Status) (title, body string, ok bool) {
	switch s {
	case StatusAccepted:
		return "Your application has been accepted!", strings.TrimSpace(acceptText), true
	case StatusDenied:
		return "Your application has been denied.", strings.TrimSpace(denyText), true
	case StatusResend:
		return "You have been asked to resubmit your application.", strings.TrimSpace(resendText), true
	default:
		return "", "", false
	}
}
