package theme

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme is the palette used to draw conversations in the terminal
type Theme struct {
	Name      string
	Primary   lipgloss.Color
	Text      lipgloss.Color
	TextMuted lipgloss.Color
	User      lipgloss.Color
	Bot       lipgloss.Color
	Error     lipgloss.Color
}

var themes = map[string]Theme{
	"dark": {
		Name:      "dark",
		Primary:   lipgloss.Color("#2563eb"),
		Text:      lipgloss.Color("#ffffff"),
		TextMuted: lipgloss.Color("#808080"),
		User:      lipgloss.Color("#60a5fa"),
		Bot:       lipgloss.Color("#e5e7eb"),
		Error:     lipgloss.Color("#f87171"),
	},
	"light": {
		Name:      "light",
		Primary:   lipgloss.Color("#1d4ed8"),
		Text:      lipgloss.Color("#111827"),
		TextMuted: lipgloss.Color("#6b7280"),
		User:      lipgloss.Color("#1d4ed8"),
		Bot:       lipgloss.Color("#374151"),
		Error:     lipgloss.Color("#b91c1c"),
	},
	"mono": {
		Name: "mono",
	},
}

// CurrentTheme is the theme used when none is passed explicitly
var CurrentTheme = themes["dark"]

// Get returns the named theme
func Get(name string) (Theme, bool) {
	t, ok := themes[strings.ToLower(name)]
	return t, ok
}

// Names lists the available themes in alphabetical order
func Names() []string {
	names := make([]string, 0, len(themes))
	for name := range themes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// SetTheme sets the current theme
func SetTheme(name string) error {
	t, ok := Get(name)
	if !ok {
		return fmt.Errorf("unknown theme %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	CurrentTheme = t
	return nil
}
