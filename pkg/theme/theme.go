package theme

import (
	"fmt"
	"sync"
)

// Color is the int value used by discordgo.MessageEmbed.Color
type Color = int

// BotColor is the brand color used when no theme overrides Primary.
const BotColor Color = 0xAC5A6E

// Theme holds all color roles used across the project.
// Keep these roles generic enough so they can be reused across features.
// If a feature needs a very specific color, add it here so themes can
// override it explicitly.
type Theme struct {
	// Human-friendly name for the theme (unique within the registry).
	Name string

	// Core roles
	Primary Color
	Info    Color
	Success Color
	Warning Color
	Error   Color
	Muted   Color // Neutral / disabled / default

	// Feature roles
	Application Color // application cards and notices
	Poll        Color // poll cards and results
	Selector    Color // role selector messages
}

// Clone returns a copy of the Theme.
func (t *Theme) Clone() *Theme {
	cp := *t
	return &cp
}

// ensureDefaults fills zero-valued fields with fallbacks derived from other roles.
// This allows themes to override only a subset of fields.
func (t *Theme) ensureDefaults() {
	if t.Primary == 0 {
		t.Primary = BotColor
	}
	if t.Info == 0 {
		t.Info = 0x3B82F6
	}
	if t.Success == 0 {
		t.Success = 0x57F287
	}
	if t.Warning == 0 {
		t.Warning = 0xF59E0B
	}
	if t.Error == 0 {
		t.Error = 0xED4245
	}
	if t.Muted == 0 {
		t.Muted = 0x99AAB5
	}

	if t.Application == 0 {
		t.Application = t.Primary
	}
	if t.Poll == 0 {
		t.Poll = t.Primary
	}
	if t.Selector == 0 {
		t.Selector = t.Primary
	}
}

// defaultTheme returns the built-in theme.
func defaultTheme() *Theme {
	th := &Theme{
		Name:    "default",
		Primary: BotColor,
		// Error replies keep the brand color so they read as bot output.
		Error: BotColor,
	}
	th.ensureDefaults()
	return th
}

var (
	mu        sync.RWMutex
	registry  = map[string]*Theme{}
	currentTh = defaultTheme()
)

// Register adds a theme to the registry. It returns an error if the name is empty or already registered.
func Register(t *Theme) error {
	if t == nil {
		return fmt.Errorf("theme: cannot register nil theme")
	}
	if t.Name == "" {
		return fmt.Errorf("theme: name is required")
	}
	cp := t.Clone()
	cp.ensureDefaults()

	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[cp.Name]; exists {
		return fmt.Errorf("theme: theme %q already registered", cp.Name)
	}
	registry[cp.Name] = cp
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister(t *Theme) {
	if err := Register(t); err != nil {
		panic(err)
	}
}

// SetCurrent switches the active theme by name. An empty name restores the default.
func SetCurrent(name string) error {
	mu.Lock()
	defer mu.Unlock()
	if name == "" || name == "default" {
		currentTh = defaultTheme()
		return nil
	}
	th, ok := registry[name]
	if !ok {
		return fmt.Errorf("theme: theme %q not found", name)
	}
	currentTh = th.Clone()
	currentTh.ensureDefaults()
	return nil
}

// Current returns a copy of the current theme.
// Modifying the returned value does not affect the global theme.
func Current() *Theme {
	mu.RLock()
	defer mu.RUnlock()
	return currentTh.Clone()
}

// Default returns a copy of the built-in default theme.
func Default() *Theme {
	return defaultTheme()
}

// Helper getters read from the current theme.

func Primary() Color     { return Current().Primary }
func Info() Color        { return Current().Info }
func Success() Color     { return Current().Success }
func Warning() Color     { return Current().Warning }
func Error() Color       { return Current().Error }
func Muted() Color       { return Current().Muted }
func Application() Color { return Current().Application }
func Poll() Color        { return Current().Poll }
func Selector() Color    { return Current().Selector }
