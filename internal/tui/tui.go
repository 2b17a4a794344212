// Package tui provides a Bubble Tea browser for the edit history of one
// project: the undo stack, the redo stack, and a merged timeline.
package tui

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harnesslab/gimpbridge/internal/history"
)

// ── Styles ────────────

var (
	// Title bar at the very top
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	// Active tab: bright, underlined
	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	// Inactive tab: muted
	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Background(lipgloss.Color("235")).
				Padding(0, 1)

	// Separator between tabs
	tabSepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238")).
			Background(lipgloss.Color("235"))

	// Section heading inside a tab
	sectionHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	// Key=value label
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178"))

	kindCurrentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	kindPastStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	kindFutureStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)

	// Selected row in the stack tabs
	selectedRowStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("237"))
)

// ── Tab definitions ─────────────────

type tabID int

const (
	tabSummary tabID = iota
	tabUndoStack
	tabRedoStack
	tabTimeline
	tabCount
)

var tabNames = [tabCount]string{
	"Summary", "Undo Stack", "Redo Stack", "Timeline",
}

// ── Timeline event ───────────────────

type eventKind string

const (
	kindCurrent eventKind = "CURRENT"
	kindPast    eventKind = "PAST"
	kindFuture  eventKind = "FUTURE"
)

type timelineEvent struct {
	entry history.Entry
	kind  eventKind
}

// ── Model ────────────────────

// Model is the root Bubble Tea model for the history browser.
type Model struct {
	image     string
	past      []history.Entry
	future    []history.Entry
	activeTab tabID
	viewports [tabCount]viewport.Model
	width     int
	height    int
	ready     bool
	sortAsc   bool
	timeline  []timelineEvent
	// Undo Stack tab: cursor position and expanded set
	cursor   int
	expanded map[int]bool
}

// New creates a history browser for one project. The last element of past is
// the entry matching the image's current content.
func New(image string, past, future []history.Entry) Model {
	m := Model{
		image:    image,
		past:     past,
		future:   future,
		sortAsc:  false,
		expanded: make(map[int]bool),
	}
	m.timeline = buildTimeline(past, future)
	return m
}

// ── Bubble Tea interface ───────────────

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab", "l", "right":
			m.activeTab = (m.activeTab + 1) % tabCount
		case "shift+tab", "h", "left":
			m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
		case "1", "2", "3", "4":
			m.activeTab = tabID(msg.String()[0] - '1')
		case "s":
			if m.activeTab == tabTimeline {
				m.sortAsc = !m.sortAsc
				m.rebuildTimelineViewport()
			}
		case "up", "k":
			if m.activeTab == tabUndoStack && m.cursor > 0 {
				m.cursor--
				m.rebuildUndoViewport()
				return m, nil
			}
		case "down", "j":
			if m.activeTab == tabUndoStack && m.cursor < len(m.past)-1 {
				m.cursor++
				m.rebuildUndoViewport()
				return m, nil
			}
		case "enter", " ":
			if m.activeTab == tabUndoStack && len(m.past) > 0 {
				if m.expanded[m.cursor] {
					delete(m.expanded, m.cursor)
				} else {
					m.expanded[m.cursor] = true
				}
				m.rebuildUndoViewport()
				return m, nil
			}
		}
		var cmd tea.Cmd
		m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.initViewports()
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	if !m.ready {
		return "Loading…"
	}

	title := titleStyle.Width(m.width).Render("  gimpbridge history  " + filepath.Base(m.image))

	var tabParts []string
	for i := tabID(0); i < tabCount; i++ {
		label := fmt.Sprintf(" %d %s ", i+1, tabNames[i])
		if i == m.activeTab {
			tabParts = append(tabParts, activeTabStyle.Render(label))
		} else {
			tabParts = append(tabParts, inactiveTabStyle.Render(label))
		}
		if i < tabCount-1 {
			tabParts = append(tabParts, tabSepStyle.Render("│"))
		}
	}
	tabRow := lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Width(m.width).
		Render(lipgloss.JoinHorizontal(lipgloss.Top, tabParts...))

	content := m.viewports[m.activeTab].View()

	hint := "  ←/→ tab  ↑/↓ scroll  1-4 jump  q quit"
	if m.activeTab == tabTimeline {
		dir := "newest first"
		if m.sortAsc {
			dir = "oldest first"
		}
		hint += "  s sort (" + dir + ")"
	}
	if m.activeTab == tabUndoStack {
		hint += "  ↑/↓ select  enter expand/collapse"
	}
	pct := fmt.Sprintf("%3.0f%%", m.viewports[m.activeTab].ScrollPercent()*100)
	pad := m.width - lipgloss.Width(hint) - len(pct) - 2
	if pad < 1 {
		pad = 1
	}
	statusBar := statusBarStyle.Width(m.width).Render(
		hint + strings.Repeat(" ", pad) + pct,
	)

	return lipgloss.JoinVertical(lipgloss.Left, title, tabRow, content, statusBar)
}

// ── Viewport management ───────────────────────────────────────────────────────

func (m *Model) initViewports() {
	// title(1) + tabRow(1) + statusBar(1) = 3 fixed rows
	vpHeight := m.height - 3
	if vpHeight < 1 {
		vpHeight = 1
	}
	for i := tabID(0); i < tabCount; i++ {
		vp := viewport.New(m.width, vpHeight)
		vp.SetContent(m.renderTab(i))
		m.viewports[i] = vp
	}
}

func (m *Model) rebuildTimelineViewport() {
	m.viewports[tabTimeline].SetContent(m.renderTab(tabTimeline))
	m.viewports[tabTimeline].GotoTop()
}

func (m *Model) rebuildUndoViewport() {
	m.viewports[tabUndoStack].SetContent(m.renderTab(tabUndoStack))
}

// ── Tab renderers ─────────────────────────────────────────────────────────────

func (m *Model) renderTab(t tabID) string {
	switch t {
	case tabSummary:
		return m.renderSummary()
	case tabUndoStack:
		return m.renderUndoStack()
	case tabRedoStack:
		return m.renderRedoStack()
	case tabTimeline:
		return m.renderTimeline()
	}
	return ""
}

func heading(s string) string {
	return "\n" + sectionHeader.Render("  "+s) + "\n\n"
}

func (m *Model) renderSummary() string {
	var sb strings.Builder
	sb.WriteString(heading("Project History"))

	row := func(label, value string) {
		sb.WriteString(labelStyle.Render(fmt.Sprintf("  %-14s", label)) + "  " + value + "\n")
	}
	row("Image:", m.image)
	if len(m.past) > 0 {
		current := m.past[len(m.past)-1]
		row("Current:", current.Description)
		row("Recorded:", current.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	} else {
		row("Current:", dimStyle.Render("(no history)"))
	}

	sb.WriteString("\n")
	sb.WriteString(heading("Counts"))
	row("Undoable:", fmt.Sprintf("%d", undoable(m.past)))
	row("Redoable:", fmt.Sprintf("%d", len(m.future)))
	row("Entries:", fmt.Sprintf("%d", len(m.past)+len(m.future)))
	return sb.String()
}

func (m *Model) renderUndoStack() string {
	var sb strings.Builder
	sb.WriteString(heading(fmt.Sprintf("Undo Stack (%d, newest last)", len(m.past))))
	if len(m.past) == 0 {
		sb.WriteString(dimStyle.Render("  (empty)") + "\n")
		return sb.String()
	}
	for i, e := range m.past {
		ts := timeStyle.Render(e.CreatedAt.Format("15:04:05"))
		badge := kindPastStyle.Render("◇ ")
		if i == len(m.past)-1 {
			badge = kindCurrentStyle.Render("◈ ")
		}

		toggle := dimStyle.Render("  ▶ ")
		if m.expanded[i] {
			toggle = dimStyle.Render("  ▼ ")
		}

		row := fmt.Sprintf("%s%s%s  #%d  %s", toggle, badge, ts, e.Seq, e.Description)
		if i == m.cursor {
			// Pad to width so the highlight fills the line
			row = selectedRowStyle.Width(m.width - 2).Render(row)
		}
		sb.WriteString(row + "\n")

		if m.expanded[i] {
			sb.WriteString(renderEntryDetail(e))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// renderEntryDetail prints the on-disk facts for one restore point.
func renderEntryDetail(e history.Entry) string {
	var sb strings.Builder
	border := dimStyle.Render("      " + strings.Repeat("─", 40))
	sb.WriteString(border + "\n")
	sb.WriteString(dimStyle.Render("      token:    "+e.Token) + "\n")
	sb.WriteString(dimStyle.Render("      snapshot: "+e.File) + "\n")
	sb.WriteString(dimStyle.Render("      recorded: "+e.CreatedAt.Format("2006-01-02 15:04:05")) + "\n")
	sb.WriteString(border + "\n")
	return sb.String()
}

func (m *Model) renderRedoStack() string {
	var sb strings.Builder
	sb.WriteString(heading(fmt.Sprintf("Redo Stack (%d)", len(m.future))))
	if len(m.future) == 0 {
		sb.WriteString(dimStyle.Render("  (nothing undone)") + "\n")
		return sb.String()
	}
	for _, e := range m.future {
		ts := timeStyle.Render(e.CreatedAt.Format("15:04:05"))
		badge := kindFutureStyle.Render("  ◇ ")
		sb.WriteString(fmt.Sprintf("%s%s  #%d  %s\n\n", badge, ts, e.Seq, e.Description))
	}
	return sb.String()
}

func (m *Model) renderTimeline() string {
	var sb strings.Builder

	dir := "newest first"
	if m.sortAsc {
		dir = "oldest first"
	}
	sb.WriteString(heading(fmt.Sprintf("Timeline (%s)", dir)))

	events := make([]timelineEvent, len(m.timeline))
	copy(events, m.timeline)
	if m.sortAsc {
		sort.Slice(events, func(i, j int) bool { return events[i].entry.CreatedAt.Before(events[j].entry.CreatedAt) })
	} else {
		sort.Slice(events, func(i, j int) bool { return events[i].entry.CreatedAt.After(events[j].entry.CreatedAt) })
	}

	if len(events) == 0 {
		sb.WriteString(dimStyle.Render("  (no recorded history for this project)") + "\n")
		return sb.String()
	}

	for _, ev := range events {
		ts := timeStyle.Render(ev.entry.CreatedAt.Format("15:04:05"))
		var badge string
		switch ev.kind {
		case kindCurrent:
			badge = kindCurrentStyle.Render(fmt.Sprintf("  %-8s", string(ev.kind)))
		case kindPast:
			badge = kindPastStyle.Render(fmt.Sprintf("  %-8s", string(ev.kind)))
		case kindFuture:
			badge = kindFutureStyle.Render(fmt.Sprintf("  %-8s", string(ev.kind)))
		}
		sb.WriteString(ts + badge + "  " + ev.entry.Description + "\n\n")
	}
	return sb.String()
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func buildTimeline(past, future []history.Entry) []timelineEvent {
	var events []timelineEvent
	for i, e := range past {
		k := kindPast
		if i == len(past)-1 {
			k = kindCurrent
		}
		events = append(events, timelineEvent{entry: e, kind: k})
	}
	for _, e := range future {
		events = append(events, timelineEvent{entry: e, kind: kindFuture})
	}
	return events
}

// undoable counts the steps an undo can actually take. The top of the past
// stack is the current state, so it does not count.
func undoable(past []history.Entry) int {
	if len(past) == 0 {
		return 0
	}
	return len(past) - 1
}

// Run starts the history browser for the given project.
func Run(image string, past, future []history.Entry) error {
	p := tea.NewProgram(New(image, past, future), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
