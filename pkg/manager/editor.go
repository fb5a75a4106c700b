package manager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
)

// FormEditor edits a profile with a terminal form.
type FormEditor struct {
	// Groups offered as suggestions for the group field.
	Groups func() []Group

	In  io.Reader
	Out io.Writer
}

// profileForm holds the editable fields as strings.
type profileForm struct {
	Name, Group, Color, Icon string
	Host, Port, User         string
	Device, Baud, Command    string
}

func newProfileForm(p RawProfile) profileForm {
	f := profileForm{
		Name:    p.Name,
		Group:   p.Group.String(),
		Color:   p.Color,
		Icon:    p.Icon,
		Host:    p.Host(),
		User:    p.Option("user"),
		Device:  p.Option("device"),
		Command: p.Option("command"),
	}
	if port := p.Port(); port > 0 {
		f.Port = strconv.Itoa(port)
	}
	if baud := optionInt(p.Options, "baud"); baud > 0 {
		f.Baud = strconv.Itoa(baud)
	}
	return f
}

// apply writes the form back onto a copy of p. Only options the form shows
// are touched; unknown options survive.
func (f profileForm) apply(p RawProfile, kind string) RawProfile {
	out := p.Clone()
	out.Name = strings.TrimSpace(f.Name)
	out.Color = strings.TrimSpace(f.Color)
	out.Icon = strings.TrimSpace(f.Icon)

	group := strings.TrimSpace(f.Group)
	switch {
	case group == "":
		out.Group = GroupRef{}
	case group != p.Group.String():
		out.Group = GroupValue(group)
	}

	if out.Options == nil {
		out.Options = map[string]any{}
	}
	set := func(k, v string) {
		if v = strings.TrimSpace(v); v == "" {
			delete(out.Options, k)
		} else {
			out.Options[k] = v
		}
	}
	setInt := func(k, v string) {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			out.Options[k] = n
		} else {
			delete(out.Options, k)
		}
	}
	switch kind {
	case "serial":
		set("device", f.Device)
		setInt("baud", f.Baud)
	case "local":
		set("command", f.Command)
	default:
		// The form edits the host under whichever key the entry already uses.
		if _, ok := p.Options["hostname"]; ok && p.Option("host") == "" {
			set("hostname", f.Host)
		} else {
			set("host", f.Host)
		}
		setInt("port", f.Port)
		set("user", f.User)
	}
	return out
}

func validateColor(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if (strings.HasPrefix(s, "#") || strings.HasPrefix(strings.ToLower(s), "rgb")) && !validColor(s) {
		return errors.New("expected #rrggbb or rgb(r, g, b)")
	}
	return nil
}

func validColor(s string) bool {
	_, ok := ParseColor(s)
	return ok
}

func validatePort(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || n > 65535 {
		return errors.New("port must be 1-65535")
	}
	return nil
}

// Edit runs the form. A user abort is a cancelled edit, not an error.
func (e FormEditor) Edit(ctx context.Context, p RawProfile, prov Provider) (RawProfile, bool, error) {
	kind := strings.ToLower(p.Type)
	title := "Edit profile"
	if prov != nil {
		kind = prov.ID()
		title = "Edit " + prov.Name() + " profile"
	}

	f := newProfileForm(p)
	var groupNames []string
	if e.Groups != nil {
		for _, g := range e.Groups() {
			groupNames = append(groupNames, g.Name)
		}
	}

	fields := []huh.Field{
		huh.NewInput().Title("Name").Value(&f.Name).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("name is required")
				}
				return nil
			}),
		huh.NewInput().Title("Group").Value(&f.Group).Suggestions(groupNames),
		huh.NewInput().Title("Color").Placeholder("#3b82f6").Value(&f.Color).Validate(validateColor),
		huh.NewInput().Title("Icon").Placeholder("fa-server").Value(&f.Icon),
	}
	var conn []huh.Field
	switch kind {
	case "serial":
		conn = []huh.Field{
			huh.NewInput().Title("Device").Value(&f.Device),
			huh.NewInput().Title("Baud").Value(&f.Baud).Validate(validatePort),
		}
	case "local":
		conn = []huh.Field{huh.NewInput().Title("Command").Value(&f.Command)}
	default:
		conn = []huh.Field{
			huh.NewInput().Title("Host").Value(&f.Host),
			huh.NewInput().Title("Port").Value(&f.Port).Validate(validatePort),
			huh.NewInput().Title("User").Value(&f.User),
		}
	}

	form := huh.NewForm(
		huh.NewGroup(fields...).Title(title),
		huh.NewGroup(conn...).Title("Connection"),
	)
	if e.In != nil {
		form = form.WithInput(e.In)
	}
	if e.Out != nil {
		form = form.WithOutput(e.Out)
	}

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return p, false, nil
		}
		return p, false, fmt.Errorf("profile form: %w", err)
	}
	return f.apply(p, kind), true, nil
}

// editExec runs a selector edit while a Bubble Tea program has released the
// terminal.
type editExec struct {
	ctx context.Context
	sel *Selector
	p   Profile
	in  io.Reader
	out io.Writer
}

var _ tea.ExecCommand = (*editExec)(nil)

func (c *editExec) SetStdin(r io.Reader)  { c.in = r }
func (c *editExec) SetStdout(w io.Writer) { c.out = w }
func (c *editExec) SetStderr(io.Writer)   {}

func (c *editExec) Run() error {
	ed := c.sel.editor
	if fe, ok := ed.(FormEditor); ok {
		fe.In, fe.Out = c.in, c.out
		ed = fe
	}
	return c.sel.editWith(c.ctx, c.p, ed)
}
