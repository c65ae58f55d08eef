// Package customid encodes and decodes the compound custom ids attached to
// buttons, select menus and modals.
//
// A custom id has the form "name;arg;arg". The name is namespaced by its
// owning command: "apply_accept" belongs to "apply". There is no escaping
// scheme, so arguments must never contain a semicolon. Callers only place
// snowflakes, enum ordinals and small indices into arguments.
package customid

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// Separator splits the name from its arguments and the arguments from each other.
	Separator = ";"
	// NamespaceSeparator splits the base namespace from the rest of the name.
	NamespaceSeparator = "_"
)

// ErrInvalidEnvelope is returned when a custom id cannot be decoded or built.
var ErrInvalidEnvelope = errors.New("invalid custom id")

// ID is a decoded custom id.
type ID struct {
	Base string
	Name string
	Args []string
}

// New starts an ID for the given name. Base is derived from the name.
func New(name string) ID {
	return ID{Base: baseOf(name), Name: name}
}

// Arg appends an argument and returns the updated ID.
func (id ID) Arg(v any) ID {
	args := make([]string, len(id.Args), len(id.Args)+1)
	copy(args, id.Args)
	id.Args = append(args, fmt.Sprint(v))
	return id
}

// String encodes the ID as "name;arg;arg".
func (id ID) String() string {
	if len(id.Args) == 0 {
		return id.Name
	}
	return id.Name + Separator + strings.Join(id.Args, Separator)
}

// Build validates the ID and encodes it.
func (id ID) Build() (string, error) {
	if baseOf(id.Name) == "" || strings.Contains(id.Name, Separator) {
		return "", fmt.Errorf("%w: name %q", ErrInvalidEnvelope, id.Name)
	}
	for i, a := range id.Args {
		if strings.Contains(a, Separator) {
			return "", fmt.Errorf("%w: argument %d contains %q", ErrInvalidEnvelope, i, Separator)
		}
	}
	return id.String(), nil
}

// Encode joins name and args into a custom id string.
func Encode(name string, args ...string) (string, error) {
	return ID{Base: baseOf(name), Name: name, Args: args}.Build()
}

// Parse decodes "name;arg;arg" into an ID.
func Parse(s string) (ID, error) {
	if s == "" {
		return ID{}, fmt.Errorf("%w: empty", ErrInvalidEnvelope)
	}
	parts := strings.Split(s, Separator)
	name := parts[0]
	base := baseOf(name)
	if base == "" {
		return ID{}, fmt.Errorf("%w: %q", ErrInvalidEnvelope, s)
	}

	var args []string
	if len(parts) > 1 {
		// Empty arguments are kept so every built id decodes to the same args.
		args = parts[1:]
	}
	return ID{Base: base, Name: name, Args: args}, nil
}

// Is reports whether the ID carries the given full name.
func (id ID) Is(name string) bool { return id.Name == name }

// ArgAt returns the argument at index i, if present.
func (id ID) ArgAt(i int) (string, bool) {
	if i < 0 || i >= len(id.Args) {
		return "", false
	}
	return id.Args[i], true
}

func baseOf(name string) string {
	base, _, _ := strings.Cut(name, NamespaceSeparator)
	return base
}
