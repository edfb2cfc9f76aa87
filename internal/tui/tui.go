// Package tui shows hierarchy comparison reports in a scrollable terminal
// viewer.
package tui

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	glam "github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/asynkron/hiertext/internal/render"
	"github.com/asynkron/hiertext/pkg/treediff"
)

// CompareFunc runs the comparison shown by the viewer.
type CompareFunc func(ctx context.Context) (treediff.Result, error)

type resultMsg struct {
	result treediff.Result
	err    error
}

type model struct {
	title   string
	compare CompareFunc
	ctx     context.Context
	cancel  context.CancelFunc

	// UI
	vp     viewport.Model
	ta     textarea.Model
	width  int
	height int
	ready  bool

	glam     *glam.TermRenderer
	renderer *render.Renderer

	// Activity
	spin       spinner.Model
	running    bool
	flashFrame int

	border lipgloss.Style

	events []treediff.Event
	filter string
	err    error
	done   bool
}

func newModel(ctx context.Context, title string, compare CompareFunc, renderer *render.Renderer) *model {
	ctx, cancel := context.WithCancel(ctx)

	ta := textarea.New()
	ta.Placeholder = "Filter by path… (Enter to apply)"
	ta.CharLimit = 0
	ta.ShowLineNumbers = false
	ta.SetHeight(1)
	ta.Focus()

	m := model{
		title:    title,
		compare:  compare,
		ctx:      ctx,
		cancel:   cancel,
		vp:       viewport.Model{},
		ta:       ta,
		renderer: renderer,
		running:  true,
		border:   lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240")),
	}
	sp := spinner.New()
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
	m.spin = sp
	_ = m.rebuildRenderer(80)
	return &m
}

func (m *model) runCompare() tea.Cmd {
	return func() tea.Msg {
		res, err := m.compare(m.ctx)
		return resultMsg{result: res, err: err}
	}
}

// rebuildRenderer recreates the Glamour renderer with the given wrap width.
func (m *model) rebuildRenderer(wrap int) error {
	if wrap < 10 {
		wrap = 10
	}
	r, err := glam.NewTermRenderer(
		glam.WithStylePath("dark"), // fixed style to avoid OSC queries
		glam.WithWordWrap(wrap),
	)
	if err != nil {
		return err
	}
	m.glam = r
	return nil
}

// summaryMarkdown tabulates the events by type.
func summaryMarkdown(title string, events []treediff.Event) string {
	counts := map[treediff.EventType]int{}
	for _, e := range events {
		counts[e.Type]++
	}
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, string(t))
	}
	sort.Strings(types)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	if len(events) == 0 {
		b.WriteString("No differences.\n")
		return b.String()
	}
	b.WriteString("| event | count |\n|---|---:|\n")
	for _, t := range types {
		fmt.Fprintf(&b, "| %s | %d |\n", t, counts[treediff.EventType(t)])
	}
	return b.String()
}

// filterEvents keeps the events whose path contains filter.
func filterEvents(events []treediff.Event, filter string) []treediff.Event {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return events
	}
	var out []treediff.Event
	for _, e := range events {
		if strings.Contains(e.Path, filter) {
			out = append(out, e)
		}
	}
	return out
}

// reportText renders events as a diff -r style report.
func reportText(events []treediff.Event) string {
	var b strings.Builder
	for _, e := range events {
		if e.Type == treediff.Changed {
			b.WriteString(e.Text)
			continue
		}
		b.WriteString(e.Summary())
		b.WriteString("\n")
	}
	return b.String()
}

// refresh recomposes the viewport content from the summary and report.
func (m *model) refresh() {
	if !m.done {
		return
	}
	var content strings.Builder
	if m.err != nil {
		content.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true).Render("[error] "))
		content.WriteString(m.err.Error())
		content.WriteString("\n")
	}
	events := filterEvents(m.events, m.filter)
	summary := summaryMarkdown(m.title, events)
	if m.glam == nil {
		content.WriteString(summary)
	} else if rendered, err := m.glam.Render(summary); err == nil {
		content.WriteString(rendered)
	} else {
		content.WriteString(summary)
	}
	report := reportText(events)
	if m.renderer != nil {
		report = m.renderer.Report(report)
	}
	content.WriteString(report)
	m.vp.SetContent(content.String())
	m.vp.GotoTop()
}

// recalcLayout sizes the viewport above the bordered filter input.
func (m *model) recalcLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	inner := m.width - 2
	if inner < 1 {
		inner = 1
	}
	m.ta.SetWidth(inner)
	vpH := m.height - 6
	if vpH < 3 {
		vpH = 3
	}
	m.vp.Width = inner
	m.vp.Height = vpH
	_ = m.rebuildRenderer(m.vp.Width - 2)
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.runCompare(), textarea.Blink, m.spin.Tick)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.ta, cmd = m.ta.Update(msg)
	cmds = append(cmds, cmd)
	m.spin, cmd = m.spin.Update(msg)
	if cmd != nil {
		cmds = append(cmds, cmd)
	}
	m.vp, cmd = m.vp.Update(msg)
	cmds = append(cmds, cmd)

	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.running {
			m.flashFrame++
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		m.ready = true
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
			m.cancel()
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			m.filter = strings.TrimSpace(m.ta.Value())
			m.ta.Reset()
			m.refresh()
		}
		return m, tea.Batch(cmds...)

	case resultMsg:
		m.running = false
		m.done = true
		m.events = msg.result.Events
		m.err = msg.err
		m.refresh()
	}
	return m, tea.Batch(cmds...)
}

func (m model) View() string {
	if !m.ready {
		return "Initializing…"
	}
	top := m.border.Render(m.vp.View())
	if m.running {
		top = m.border.Render(m.spin.View() + " comparing " + m.title)
	}
	status := fmt.Sprintf("%d events", len(filterEvents(m.events, m.filter)))
	if m.filter != "" {
		status += fmt.Sprintf(" matching %q", m.filter)
	}
	inputBlock := status + "\n" + m.ta.View()
	if m.running {
		innerWidth := m.width - 2
		if innerWidth < 1 {
			innerWidth = 1
		}
		inputBlock = m.renderGradientBar(innerWidth) + "\n" + m.ta.View()
	}
	bottom := m.border.Render(inputBlock)
	return top + "\n" + bottom
}

// renderGradientBar renders a full-width, color-cycling bar while the
// comparison runs.
func (m *model) renderGradientBar(width int) string {
	if width < 1 {
		width = 1
	}
	var b strings.Builder
	b.Grow(width * 10)
	baseHue := float64((m.flashFrame * 5) % 360)
	for i := 0; i < width; i++ {
		hue := math.Mod(baseHue+float64(i*3), 360.0)
		phase := (float64(i)/float64(width))*2*math.Pi + float64(m.flashFrame)/8.0
		light := 0.50 + 0.15*math.Sin(phase)
		seg := lipgloss.NewStyle().Foreground(lipgloss.Color(hslToHex(hue, 0.85, light))).Render("█")
		b.WriteString(seg)
	}
	return b.String()
}

// hslToHex converts H,S,L (H in [0,360), S/L in [0,1]) to a #RRGGBB string.
func hslToHex(h, s, l float64) string {
	r, g, b := hslToRGB(h, s, l)
	return fmt.Sprintf("#%02X%02X%02X", r, g, b)
}

func hslToRGB(h, s, l float64) (uint8, uint8, uint8) {
	c := (1 - math.Abs(2*l-1)) * s
	hp := h / 60.0
	x := c * (1 - math.Abs(math.Mod(hp, 2)-1))
	var r1, g1, b1 float64
	switch {
	case 0 <= hp && hp < 1:
		r1, g1, b1 = c, x, 0
	case 1 <= hp && hp < 2:
		r1, g1, b1 = x, c, 0
	case 2 <= hp && hp < 3:
		r1, g1, b1 = 0, c, x
	case 3 <= hp && hp < 4:
		r1, g1, b1 = 0, x, c
	case 4 <= hp && hp < 5:
		r1, g1, b1 = x, 0, c
	default:
		r1, g1, b1 = c, 0, x
	}
	m := l - c/2
	r := uint8(clamp01(r1+m) * 255)
	g := uint8(clamp01(g1+m) * 255)
	b := uint8(clamp01(b1+m) * 255)
	return r, g, b
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Run shows the report of compare in a full screen viewer until the user
// quits. It returns the comparison result once it completed.
func Run(ctx context.Context, title string, compare CompareFunc, in io.Reader, out io.Writer) (treediff.Result, error) {
	// Prevent OSC background color queries from contaminating stdin by
	// explicitly setting color profile and background for lipgloss/termenv.
	lipgloss.SetColorProfile(termenv.TrueColor)
	lipgloss.SetHasDarkBackground(true)

	m := newModel(ctx, title, compare, render.New(out, termenv.TrueColor))
	defer m.cancel()

	opts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if in != nil {
		opts = append(opts, tea.WithInput(in))
	}
	if out != nil {
		opts = append(opts, tea.WithOutput(out))
	}
	final, err := tea.NewProgram(m, opts...).Run()
	if err != nil {
		return treediff.Result{}, fmt.Errorf("tui: %w", err)
	}
	fm, ok := final.(*model)
	if !ok || !fm.done {
		return treediff.Result{}, context.Canceled
	}
	return treediff.Result{Events: fm.events}, fm.err
}
