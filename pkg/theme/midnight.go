package theme

// midnight.go
//
// Built-in dark palette. Select it with GUILDKIT_THEME=midnight.
// Only the feature roles are overridden; everything else inherits from the
// default theme via ensureDefaults().

func init() {
	MustRegister(&Theme{
		Name: "midnight",

		Application: 0x7AA2F7,
		Poll:        0xBB9AF7,
		Selector:    0x73DACA,
	})
}
