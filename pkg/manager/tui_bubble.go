package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// PingNotifier forwards monitor changes to the TUI. Sends never block: when
// the buffer is full the change is dropped and the next redraw picks up the
// current state anyway.
type PingNotifier struct {
	ch chan string
}

func NewPingNotifier(size int) *PingNotifier {
	if size <= 0 {
		size = 64
	}
	return &PingNotifier{ch: make(chan string, size)}
}

// Notify has the MonitorOptions.OnChange signature.
func (n *PingNotifier) Notify(key string, _ PingState) {
	select {
	case n.ch <- key:
	default:
	}
}

func (n *PingNotifier) C() <-chan string { return n.ch }

// RunTUI runs the interactive selector. It returns the launch chosen by the
// user, or ok=false when the user quit without choosing (or every launch went
// to a tmux window).
func RunTUI(ctx context.Context, sel *Selector, pings <-chan string, opts UIOptions) (spec LaunchSpec, ok bool, err error) {
	if sel == nil {
		return LaunchSpec{}, false, errors.New("nil selector")
	}
	m := newModel(ctx, sel, pings, opts)
	final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil {
		return LaunchSpec{}, false, err
	}
	fm, _ := final.(model)
	if fm.chosen == nil {
		return LaunchSpec{}, false, nil
	}
	return *fm.chosen, true, nil
}

type statusMsg string

type pingMsg string

type mutatedMsg struct {
	op   string
	name string
	err  error
}

type pingToggledMsg struct {
	name    string
	enabled bool
}

type model struct {
	ctx   context.Context
	sel   *Selector
	opts  UIOptions
	theme Theme
	pings <-chan string

	input textinput.Model

	list     DisplayList
	items    []Profile
	selected int
	scroll   int

	width, height int

	confirmDelete bool

	status      string
	statusUntil time.Time

	chosen   *LaunchSpec
	quitting bool
}

func newModel(ctx context.Context, sel *Selector, pings <-chan string, opts UIOptions) model {
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "search..."
	ti.CharLimit = 256
	ti.Cursor.Style = ti.Cursor.Style.Bold(true)
	ti.SetValue(strings.TrimSpace(opts.InitialQuery))
	ti.PromptStyle = ti.PromptStyle.Bold(true)
	// Typing filters immediately.
	ti.Focus()

	m := model{
		ctx:    ctx,
		sel:    sel,
		opts:   opts,
		theme:  opts.Theme,
		pings:  pings,
		input:  ti,
		width:  80,
		height: 24,
	}
	m.recomputeFilter()
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitPing())
}

// waitPing blocks for the next monitor change; Update re-arms it.
func (m model) waitPing() tea.Cmd {
	if m.pings == nil {
		return nil
	}
	ch, ctx := m.pings, m.ctx
	return func() tea.Msg {
		select {
		case k, ok := <-ch:
			if !ok {
				return nil
			}
			return pingMsg(k)
		case <-ctx.Done():
			return nil
		}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.clampScroll()
		return m, nil

	case pingMsg:
		// The view reads monitor state directly; the message only triggers a redraw.
		return m, m.waitPing()

	case statusMsg:
		m.setStatus(string(msg), 2500)
		return m, nil

	case mutatedMsg:
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("%s %s: %v", msg.op, msg.name, msg.err), 4000)
		} else {
			m.setStatus(fmt.Sprintf("%s %s: done", msg.op, msg.name), 2500)
		}
		m.recomputeFilter()
		return m, nil

	case pingToggledMsg:
		if msg.enabled {
			m.setStatus("polling enabled for "+msg.name, 2000)
		} else {
			m.setStatus("polling disabled for "+msg.name, 2000)
		}
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m.quit()
		}
		if m.confirmDelete {
			return m.updateConfirmDelete(msg)
		}
		if m.input.Focused() {
			return m.updateSearch(msg)
		}
		return m.updateNormal(msg)
	}
	return m, nil
}

func (m model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.input.Blur()
		return m, nil
	case "enter":
		return m.launch()
	case "up", "ctrl+k", "ctrl+p":
		m.move(-1)
		return m, nil
	case "down", "ctrl+j", "ctrl+n":
		m.move(1)
		return m, nil
	}
	prev := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != prev {
		m.recomputeFilter()
	}
	return m, cmd
}

func (m model) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m.quit()
	case "/", "i":
		m.input.Focus()
		return m, textinput.Blink
	case "up", "k":
		m.move(-1)
	case "down", "j":
		m.move(1)
	case "g", "home":
		m.selected = 0
		m.clampScroll()
	case "G", "end":
		m.selected = max(0, len(m.items)-1)
		m.clampScroll()
	case "pgup":
		m.move(-m.pageSize())
	case "pgdown":
		m.move(m.pageSize())
	case "enter":
		return m.launch()
	case "p":
		if p, ok := m.current(); ok {
			return m, m.togglePing(p)
		}
	case "r":
		return m, m.mutate("reload", "profiles", func(ctx context.Context) error { return m.sel.Reload(ctx) })
	case "d":
		if p, ok := m.current(); ok {
			return m, m.mutate("duplicate", p.Name, func(ctx context.Context) error { return m.sel.Duplicate(ctx, p) })
		}
	case "x":
		if _, ok := m.current(); ok {
			m.confirmDelete = true
		}
	case "e":
		if p, ok := m.current(); ok {
			ec := &editExec{ctx: m.ctx, sel: m.sel, p: p}
			return m, tea.Exec(ec, func(err error) tea.Msg {
				return mutatedMsg{op: "edit", name: p.Name, err: err}
			})
		}
	}
	return m, nil
}

func (m model) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.confirmDelete = false
	switch msg.String() {
	case "y", "Y":
		if p, ok := m.current(); ok {
			return m, m.mutate("delete", p.Name, func(ctx context.Context) error { return m.sel.Delete(ctx, p) })
		}
	}
	m.setStatus("delete cancelled", 1500)
	return m, nil
}

// mutate runs fn off the update loop; mutations reload and wait on probe
// goroutines, which must never happen inside Update.
func (m model) mutate(op, name string, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return mutatedMsg{op: op, name: name, err: fn(ctx)}
	}
}

// togglePing persists the preference through the store, so it runs off the
// update loop like other store writes.
func (m model) togglePing(p Profile) tea.Cmd {
	sel := m.sel
	return func() tea.Msg {
		st := sel.TogglePing(p)
		return pingToggledMsg{name: p.Name, enabled: st.Enabled}
	}
}

func (m model) launch() (tea.Model, tea.Cmd) {
	p, ok := m.current()
	if !ok {
		return m, nil
	}
	spec, err := m.sel.Launch(p)
	if err != nil {
		m.setStatus(err.Error(), 4000)
		return m, nil
	}
	if m.opts.LaunchInTmux && InTmux() {
		if err := OpenTmuxWindow(spec); err != nil {
			m.setStatus(fmt.Sprintf("tmux: %v", err), 4000)
			return m, nil
		}
		// Recents changed.
		return m, m.mutate("open", p.Name, func(ctx context.Context) error { return m.sel.Reload(ctx) })
	}
	m.chosen = &spec
	return m.quit()
}

func (m model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	return m, tea.Quit
}

func (m *model) recomputeFilter() {
	var key string
	if p, ok := m.current(); ok {
		key = p.Key()
	}
	m.list = m.sel.Display(m.input.Value())
	m.items = m.list.Flatten()

	// Keep the cursor on the same profile when it survives the refresh.
	m.selected = 0
	if key != "" {
		for i, p := range m.items {
			if p.Key() == key {
				m.selected = i
				break
			}
		}
	}
	m.clampScroll()
}

func (m *model) current() (Profile, bool) {
	if m.selected < 0 || m.selected >= len(m.items) {
		return Profile{}, false
	}
	return m.items[m.selected], true
}

func (m *model) move(delta int) {
	if len(m.items) == 0 {
		return
	}
	m.selected = min(max(m.selected+delta, 0), len(m.items)-1)
	m.clampScroll()
}

// listHeight is the number of list lines that fit between header and footer.
func (m *model) listHeight() int {
	return max(3, m.height-5)
}

func (m *model) pageSize() int {
	return max(3, m.listHeight()/2)
}

// clampScroll keeps the selected row (counted in rendered lines, group
// headers included) inside the visible window.
func (m *model) clampScroll() {
	line := m.selectedLine()
	h := m.listHeight()
	if line < m.scroll {
		m.scroll = line
	}
	if line >= m.scroll+h {
		m.scroll = line - h + 1
	}
	if m.scroll < 0 {
		m.scroll = 0
	}
}

func (m *model) selectedLine() int {
	line, idx := 0, 0
	for _, g := range m.list.Groups {
		line++ // header
		for range m.list.Buckets[g] {
			if idx == m.selected {
				return line
			}
			line++
			idx++
		}
	}
	return 0
}

func (m *model) setStatus(s string, ms int) {
	m.status = s
	m.statusUntil = time.Now().Add(time.Duration(ms) * time.Millisecond)
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	t := m.theme
	var b strings.Builder

	header := fmt.Sprintf("profile-selector  %d profiles", len(m.items))
	b.WriteString(t.HeaderLine(header))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")

	lines := m.renderLines()
	h := m.listHeight()
	end := min(len(lines), m.scroll+h)
	for i := m.scroll; i < end; i++ {
		b.WriteString(lines[i])
		b.WriteString("\n")
	}
	for i := end - m.scroll; i < h; i++ {
		b.WriteString("\n")
	}

	switch {
	case m.confirmDelete:
		p, _ := m.current()
		b.WriteString(t.ErrorText(fmt.Sprintf("delete %q? (y/n)", p.Name)))
	case m.status != "" && time.Now().Before(m.statusUntil):
		b.WriteString(t.AccentText(m.status))
	case m.input.Focused():
		b.WriteString(t.HelpText("enter launch · ↑/↓ move · esc commands · ctrl+c quit"))
	default:
		b.WriteString(t.HelpText("enter launch · p ping · d duplicate · x delete · e edit · r reload · / search · q quit"))
	}
	return lipgloss.NewStyle().MaxWidth(m.width).Render(b.String())
}

func (m model) renderLines() []string {
	t := m.theme
	mon := m.sel.Monitor()
	nameWidth := min(32, max(12, m.width/3))
	detailWidth := max(0, m.width-nameWidth-16)

	var out []string
	idx := 0
	for _, g := range m.list.Groups {
		out = append(out, t.GroupText(g))
		for _, p := range m.list.Buckets[g] {
			var st PingState
			var known bool
			if mon != nil {
				st, known = mon.State(p.Key())
			}
			selected := idx == m.selected
			name := padRight(formatProfileLine(Profile{Name: p.Name}, nameWidth), nameWidth)
			if selected {
				name = t.SelectedText(name)
			}
			detail := strings.TrimSpace(strings.TrimPrefix(formatProfileLine(p, 0), p.Name))
			detail = formatProfileLine(Profile{Name: detail}, detailWidth)
			out = append(out, fmt.Sprintf("%s%s %s %s %s %s",
				t.SelectedPrefix(selected), t.ProfileMarker(p), name,
				t.SeparatorRune(), t.PingBadge(st, known), t.DimText(detail)))
			idx++
		}
	}
	if len(out) == 0 {
		out = append(out, t.DimText("   no matching profiles"))
	}
	return out
}
