package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/composels"
	"github.com/rlch/composels/lsp"
)

var errNotTerminal = errors.New("explore needs an interactive terminal")

func exploreCommand() *cli.Command {
	return &cli.Command{
		Name:      "explore",
		Usage:     "Move a cursor through a compose file and watch what the server sees",
		ArgsUsage: "FILE",
		Action:    runExplore,
	}
}

func runExplore(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return errNoFile
	}

	if !isTerminal(os.Stdout) || !isTerminal(os.Stdin) {
		return errNotTerminal
	}

	path := cmd.Args().First()

	snap, err := loadSnapshot(path)
	if err != nil {
		return err
	}

	model := newExploreModel(ctx, snap, loadConfig(filepath.Dir(path)))

	_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()

	return err
}

type exploreKeys struct {
	Up    key.Binding
	Down  key.Binding
	Left  key.Binding
	Right key.Binding
	Home  key.Binding
	End   key.Binding
	Quit  key.Binding
}

func (k exploreKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Left, k.Right, k.Quit}
}

func (k exploreKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down, k.Left, k.Right}, {k.Home, k.End, k.Quit}}
}

func defaultExploreKeys() exploreKeys {
	return exploreKeys{
		Up:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left")),
		Right: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right")),
		Home:  key.NewBinding(key.WithKeys("home", "0"), key.WithHelp("0", "line start")),
		End:   key.NewBinding(key.WithKeys("end", "$"), key.WithHelp("$", "line end")),
		Quit:  key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

var (
	gutterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#374151"))
	cursorStyle = lipgloss.NewStyle().Reverse(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444")).Bold(true)
	panelStyle  = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(lipgloss.Color("#374151"))
)

// panelHeight is the number of lines reserved below the document.
const panelHeight = 7

type exploreModel struct {
	ctx      context.Context //nolint:containedctx // bubbletea models outlive a single call
	snap     *composels.Snapshot
	cfg      *composels.Config
	registry *lsp.Registry
	keys     exploreKeys
	help     help.Model

	line, col int // col counts runes
	top       int
	width     int
	height    int

	rc          *lsp.RequestContext
	completions []string
	signature   string
	err         error
}

func newExploreModel(ctx context.Context, snap *composels.Snapshot, cfg *composels.Config) *exploreModel {
	m := &exploreModel{
		ctx:      ctx,
		snap:     snap,
		cfg:      cfg,
		registry: lsp.DefaultRegistry(),
		keys:     defaultExploreKeys(),
		help:     help.New(),
		width:    80,
		height:   24,
	}
	m.refresh()

	return m
}

func (m *exploreModel) Init() tea.Cmd {
	return nil
}

func (m *exploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) { //nolint:ireturn // bubbletea.Model interface required by tea.Program
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			m.line = max(m.line-1, 0)
		case key.Matches(msg, m.keys.Down):
			m.line = min(m.line+1, m.snap.LineCount()-1)
		case key.Matches(msg, m.keys.Left):
			m.col = max(min(m.col, m.lineLen())-1, 0)
		case key.Matches(msg, m.keys.Right):
			m.col = min(m.col+1, m.lineLen())
		case key.Matches(msg, m.keys.Home):
			m.col = 0
		case key.Matches(msg, m.keys.End):
			m.col = m.lineLen()
		default:
			return m, nil
		}

		m.scroll()
		m.refresh()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.scroll()
	}

	return m, nil
}

func (m *exploreModel) lineLen() int {
	return len([]rune(m.snap.Line(m.line)))
}

func (m *exploreModel) viewportHeight() int {
	return max(m.height-panelHeight, 1)
}

func (m *exploreModel) scroll() {
	if m.line < m.top {
		m.top = m.line
	}

	if h := m.viewportHeight(); m.line >= m.top+h {
		m.top = m.line - h + 1
	}
}

// position converts the rune cursor to an editor position.
func (m *exploreModel) position() protocol.Position {
	runes := []rune(m.snap.Line(m.line))
	col := min(m.col, len(runes))

	var character uint32

	for _, r := range runes[:col] {
		character += uint32(utf16.RuneLen(r)) //nolint:gosec // RuneLen is 1 or 2 for valid runes
	}

	return protocol.Position{Line: uint32(m.line), Character: character} //nolint:gosec // bounded by LineCount
}

// refresh resolves the cursor and reruns completion and signature help.
func (m *exploreModel) refresh() {
	m.rc, m.completions, m.signature, m.err = nil, nil, "", nil

	rc, err := lsp.NewRequestContext(m.snap, m.position(), m.cfg, zap.NewNop())
	if err != nil {
		m.err = err

		return
	}

	m.rc = rc

	items, err := lsp.Dispatch(m.ctx, lsp.CapabilityCompletion, rc, m.registry.Completion, lsp.Union[protocol.CompletionItem])
	if err != nil {
		m.err = err

		return
	}

	for _, item := range items {
		m.completions = append(m.completions, item.Label)
	}

	sig, err := lsp.Dispatch(m.ctx, lsp.CapabilitySignatureHelp, rc, m.registry.SignatureHelp, lsp.FirstNonNil[protocol.SignatureHelp])
	if err != nil {
		m.err = err

		return
	}

	if sig != nil && len(sig.Signatures) > 0 {
		m.signature = renderSignature(sig)
	}
}

// renderSignature shows the active signature with its active parameter
// highlighted.
func renderSignature(sig *protocol.SignatureHelp) string {
	active := sig.Signatures[min(int(sig.ActiveSignature), len(sig.Signatures)-1)]

	if int(sig.ActiveParameter) >= len(active.Parameters) {
		return active.Label
	}

	param := active.Parameters[sig.ActiveParameter].Label

	return strings.Replace(active.Label, param, valueStyle.Render(param), 1)
}

func (m *exploreModel) View() string {
	var b strings.Builder

	width := len(strconv.Itoa(m.snap.LineCount()))
	end := min(m.top+m.viewportHeight(), m.snap.LineCount())

	for n := m.top; n < end; n++ {
		b.WriteString(gutterStyle.Render(fmt.Sprintf("%*d ", width, n+1)))
		b.WriteString(m.renderLine(n))
		b.WriteByte('\n')
	}

	for n := end; n < m.top+m.viewportHeight(); n++ {
		b.WriteByte('\n')
	}

	b.WriteString(panelStyle.Width(m.width).Render(m.renderPanel()))
	b.WriteByte('\n')
	b.WriteString(m.help.View(m.keys))

	return b.String()
}

func (m *exploreModel) renderLine(n int) string {
	line := m.snap.Line(n)
	if n != m.line {
		return line
	}

	runes := []rune(line)
	col := min(m.col, len(runes))

	if col == len(runes) {
		return line + cursorStyle.Render(" ")
	}

	return string(runes[:col]) + cursorStyle.Render(string(runes[col])) + string(runes[col+1:])
}

func (m *exploreModel) renderPanel() string {
	var lines []string

	pos := fmt.Sprintf("%d:%d", m.line+1, m.col+1)

	switch {
	case m.err != nil:
		lines = append(lines, labelStyle.Render(pos)+"  "+errorStyle.Render(m.err.Error()))
	case m.rc != nil:
		info := m.rc.Info
		lines = append(lines,
			labelStyle.Render(pos)+"  "+valueStyle.Render(info.LogicalPath),
			labelStyle.Render("depth ")+strconv.FormatFloat(info.IndentDepth, 'f', -1, 64)+
				labelStyle.Render("  region ")+string(info.Region))
	}

	if m.signature != "" {
		lines = append(lines, labelStyle.Render("signature ")+m.signature)
	}

	if len(m.completions) > 0 {
		lines = append(lines, labelStyle.Render("complete ")+
			detailStyle.Render(truncate(strings.Join(m.completions, " "), max(m.width-10, 10))))
	}

	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}

	return string(runes[:n-1]) + "…"
}
