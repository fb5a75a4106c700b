package manager

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

const themeEnvVar = "PROFILE_SELECTOR_THEME"

// Theme holds the styles used by the selector views. A disabled theme renders
// every fragment as plain text.
//
// Configuration sources (in priority order):
// 1) Explicit JSON path passed to LoadTheme(path)
// 2) $XDG_CONFIG_HOME/profile-selector/theme.json (or ~/.config/...)
// 3) $PROFILE_SELECTOR_THEME = none | dark | light | catppuccin
// 4) Auto: dark when the terminal supports color
//
// JSON structure (all fields optional):
//
//	{
//	  "enabled": true,
//	  "name": "catppuccin",
//	  "colors": {
//	    "header": "bold mauve",
//	    "selected": "bold peach",
//	    "group": "lavender",
//	    "up": "green",
//	    "down": "red"
//	  }
//	}
type Theme struct {
	Enabled bool

	Header    lipgloss.Style
	Accent    lipgloss.Style
	Selected  lipgloss.Style
	Group     lipgloss.Style
	Dim       lipgloss.Style
	Help      lipgloss.Style
	Error     lipgloss.Style
	Up        lipgloss.Style
	Down      lipgloss.Style
	Testing   lipgloss.Style
	Separator lipgloss.Style
}

// ThemeFile is the on-disk JSON representation.
type ThemeFile struct {
	Enabled *bool             `json:"enabled,omitempty"`
	Name    string            `json:"name,omitempty"`
	Colors  map[string]string `json:"colors,omitempty"`
}

// LoadTheme resolves theming by trying the provided path, then the default
// path, then $PROFILE_SELECTOR_THEME, and finally automatic defaults.
func LoadTheme(explicitPath string) Theme {
	if strings.TrimSpace(explicitPath) != "" {
		if t, err := loadThemeFromFile(explicitPath); err == nil {
			return t
		}
	}
	if p, err := defaultThemePath(); err == nil {
		if t, err := loadThemeFromFile(p); err == nil {
			return t
		}
	}
	if v := strings.TrimSpace(os.Getenv(themeEnvVar)); v != "" {
		if t, ok := namedTheme(v); ok {
			return t
		}
	}
	return AutoTheme()
}

func namedTheme(name string) (Theme, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "none", "off", "disabled":
		return NoTheme(), true
	case "catppuccin", "catppuccin-mocha", "mocha":
		return CatppuccinMochaTheme(), true
	case "light":
		return LightTheme(), true
	case "dark":
		return DarkTheme(), true
	}
	return Theme{}, false
}

// NoTheme disables all styling.
func NoTheme() Theme {
	return Theme{Enabled: false}
}

// AutoTheme enables the dark palette whenever the terminal likely supports
// color.
func AutoTheme() Theme {
	if !terminalSupportsColor() {
		return NoTheme()
	}
	return DarkTheme()
}

func fg(c string) lipgloss.Style { return lipgloss.NewStyle().Foreground(lipgloss.Color(c)) }

// DarkTheme is the default palette for dark terminals.
func DarkTheme() Theme {
	return Theme{
		Enabled:   true,
		Header:    lipgloss.NewStyle().Bold(true),
		Accent:    fg("6"),
		Selected:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")),
		Group:     fg("5"),
		Dim:       lipgloss.NewStyle().Faint(true),
		Help:      fg("6"),
		Error:     fg("1"),
		Up:        fg("2"),
		Down:      fg("1"),
		Testing:   fg("3"),
		Separator: fg("8"),
	}
}

// LightTheme is the default palette for light terminals.
func LightTheme() Theme {
	return Theme{
		Enabled:   true,
		Header:    lipgloss.NewStyle().Bold(true),
		Accent:    fg("4"),
		Selected:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")),
		Group:     fg("5"),
		Dim:       lipgloss.NewStyle().Faint(true),
		Help:      fg("4"),
		Error:     fg("1"),
		Up:        fg("2"),
		Down:      fg("1"),
		Testing:   fg("3"),
		Separator: fg("8"),
	}
}

// CatppuccinMochaTheme uses the Catppuccin Mocha palette.
func CatppuccinMochaTheme() Theme {
	return Theme{
		Enabled:   true,
		Header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#cba6f7")),
		Accent:    fg("#94e2d5"),
		Selected:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#fab387")),
		Group:     fg("#b4befe"),
		Dim:       fg("#7f849c"),
		Help:      fg("#94e2d5"),
		Error:     fg("#f38ba8"),
		Up:        fg("#a6e3a1"),
		Down:      fg("#f38ba8"),
		Testing:   fg("#f9e2af"),
		Separator: fg("#585b70"),
	}
}

func (t Theme) render(st lipgloss.Style, s string) string {
	if !t.Enabled || s == "" {
		return s
	}
	return st.Render(s)
}

func (t Theme) HeaderLine(s string) string   { return t.render(t.Header, s) }
func (t Theme) AccentText(s string) string   { return t.render(t.Accent, s) }
func (t Theme) SelectedText(s string) string { return t.render(t.Selected, s) }
func (t Theme) GroupText(s string) string    { return t.render(t.Group, s) }
func (t Theme) DimText(s string) string      { return t.render(t.Dim, s) }
func (t Theme) HelpText(s string) string     { return t.render(t.Help, s) }
func (t Theme) ErrorText(s string) string    { return t.render(t.Error, s) }

// SelectedPrefix returns " > " for the cursor row, blanks otherwise.
func (t Theme) SelectedPrefix(selected bool) string {
	if !selected {
		return "   "
	}
	return t.render(t.Selected, " > ")
}

// SeparatorRune returns the column separator.
func (t Theme) SeparatorRune() string {
	return t.render(t.Separator, "│")
}

// PingBadge renders a profile's reachability column.
func (t Theme) PingBadge(st PingState, known bool) string {
	if !known || !st.Enabled {
		return t.render(t.Dim, "  ·   ")
	}
	switch st.Status {
	case PingUp:
		if st.LatencyMs != nil {
			return t.render(t.Up, fmt.Sprintf("%4dms", *st.LatencyMs))
		}
		return t.render(t.Up, "  up  ")
	case PingDown:
		return t.render(t.Down, " down ")
	case PingTesting:
		return t.render(t.Testing, "  ..  ")
	}
	return t.render(t.Dim, "  ?   ")
}

// ProfileMarker renders the colored bar shown before a profile name, in the
// profile's border tint. Tokens that are not concrete colors fall back to the
// accent style.
func (t Theme) ProfileMarker(p Profile) string {
	if !t.Enabled {
		return " "
	}
	c := strings.TrimSuffix(p.BorderColor, importantSuffix)
	if rgb, ok := ParseColor(c); ok {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(rgb.Hex())).Render("▌")
	}
	return t.Accent.Render("▌")
}

func terminalSupportsColor() bool {
	if termenv.EnvNoColor() {
		return false
	}
	return termenv.EnvColorProfile() != termenv.Ascii
}

func defaultThemePath() (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "theme.json"), nil
}

func loadThemeFromFile(path string) (Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Theme{}, err
	}
	var tf ThemeFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return Theme{}, err
	}
	base, ok := namedTheme(tf.Name)
	if !ok {
		base = AutoTheme()
	}
	if tf.Enabled != nil {
		base.Enabled = *tf.Enabled
	}
	override := func(key string, dst *lipgloss.Style) {
		if v, ok := tf.Colors[key]; ok {
			if st, ok := parseStyle(v); ok {
				*dst = st
			}
		}
	}
	override("header", &base.Header)
	override("accent", &base.Accent)
	override("selected", &base.Selected)
	override("group", &base.Group)
	override("dim", &base.Dim)
	override("help", &base.Help)
	override("error", &base.Error)
	override("up", &base.Up)
	override("down", &base.Down)
	override("testing", &base.Testing)
	override("separator", &base.Separator)
	return base, nil
}

var namedColors = map[string]string{
	"black": "0", "red": "1", "green": "2", "yellow": "3",
	"blue": "4", "magenta": "5", "cyan": "6", "white": "7",
	"gray": "8", "grey": "8",
	"bright-red": "9", "bright-green": "10", "bright-yellow": "11",
	"bright-blue": "12", "bright-magenta": "13", "bright-cyan": "14", "bright-white": "15",
	"teal": "#94e2d5", "mauve": "#cba6f7", "lavender": "#b4befe",
	"peach": "#fab387", "rose": "#f5e0dc",
}

// parseStyle turns a description such as "bold red", "color214", "#ff8800"
// or "rgb(255,0,0)" into a style. Unknown tokens are ignored; ok is false
// when nothing was recognized.
func parseStyle(s string) (lipgloss.Style, bool) {
	st := lipgloss.NewStyle()
	ok := false
	for _, p := range strings.Fields(strings.ToLower(s)) {
		known := true
		switch p {
		case "bold":
			st = st.Bold(true)
		case "faint", "dim":
			st = st.Faint(true)
		case "italic":
			st = st.Italic(true)
		case "underline", "ul":
			st = st.Underline(true)
		case "reverse":
			st = st.Reverse(true)
		case "strike", "strikethrough":
			st = st.Strikethrough(true)
		default:
			if c, found := namedColors[p]; found {
				st = st.Foreground(lipgloss.Color(c))
			} else if n, err := strconv.Atoi(strings.TrimPrefix(p, "color")); err == nil && n >= 0 && n <= 255 {
				st = st.Foreground(lipgloss.Color(strconv.Itoa(n)))
			} else if rgb, found := ParseColor(p); found {
				st = st.Foreground(lipgloss.Color(rgb.Hex()))
			} else {
				known = false
			}
		}
		ok = ok || known
	}
	return st, ok
}

// SaveTheme writes tf to the default theme path (or explicit path).
func SaveTheme(explicitPath string, tf ThemeFile) error {
	path := strings.TrimSpace(explicitPath)
	if path == "" {
		p, err := defaultThemePath()
		if err != nil {
			return err
		}
		path = p
	}
	data, err := json.MarshalIndent(tf, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(path, append(data, '\n'))
}
