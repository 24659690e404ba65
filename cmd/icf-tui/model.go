package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/icf/pkg/icf"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginLeft(2).
			MarginTop(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FFFF")).
			Padding(0, 1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#FF00FF")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666")).
				Padding(0, 2)

	contentStyle = lipgloss.NewStyle().
			MarginLeft(2).
			MarginTop(1)

	statsBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(1, 2).
			MarginRight(2)

	dumpBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("#FFFF00")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)
)

type view int

const (
	overviewView view = iota
	recordsView
	recordView
	viewCount
)

var viewNames = []string{"Overview", "Records", "Record"}

const (
	pageSize     = 200
	previewBytes = 16
	dumpBytes    = 512
)

type keyMap struct {
	Tab      key.Binding
	ShiftTab key.Binding
	Enter    key.Binding
	Jump     key.Binding
	Refresh  key.Binding
	Quit     key.Binding
	Up       key.Binding
	Down     key.Binding
}

var keys = keyMap{
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next view"),
	),
	ShiftTab: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "prev view"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "open record"),
	),
	Jump: key.NewBinding(
		key.WithKeys("g"),
		key.WithHelp("g", "go to index"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reload"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Enter, k.Jump, k.Refresh, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ShiftTab, k.Enter},
		{k.Up, k.Down, k.Jump},
		{k.Refresh, k.Quit},
	}
}

// opener reopens the container so records appended by a writer become
// visible.
type opener func() (*icf.Container, error)

type model struct {
	open        opener
	c           *icf.Container
	currentView view
	jumpInput   textinput.Model
	jumping     bool
	recordTable table.Model
	help        help.Model
	keys        keyMap
	width       int
	height      int
	message     string
	messageErr  bool
	first       uint64 // index of the first table row
	selected    uint64
	record      []byte
	stats       icf.Stats
	loadedAt    time.Time
}

type tickMsg time.Time

func tickCmd(every time.Duration) tea.Cmd {
	return tea.Tick(every, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func initialModel(open opener) model {
	ti := textinput.New()
	ti.Placeholder = "record index"
	ti.CharLimit = 20
	ti.Width = 24

	columns := []table.Column{
		{Title: "Index", Width: 10},
		{Title: "Size", Width: 10},
		{Title: "Preview", Width: previewBytes*2 + 2},
		{Title: "Text", Width: previewBytes + 2},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#FF00FF")).
		Bold(false)
	t.SetStyles(s)

	m := model{
		open:        open,
		currentView: overviewView,
		jumpInput:   ti,
		recordTable: t,
		help:        help.New(),
		keys:        keys,
	}
	m.reload()
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		tickCmd(2*time.Second),
	)
}

// reload reopens the container and refreshes the current page.
func (m *model) reload() {
	c, err := m.open()
	if err != nil {
		m.setError("open failed: %v", err)
		return
	}
	if m.c != nil {
		m.c.Close()
	}
	m.c = c
	m.stats = c.Stats()
	m.loadedAt = time.Now()
	m.loadPage(m.first)
}

func (m *model) loadPage(first uint64) {
	if m.c == nil {
		return
	}
	size := m.c.Size()
	if first >= size && size > 0 {
		first = (size - 1) / pageSize * pageSize
	}
	end := min(first+pageSize, size)
	records, err := m.c.ReadRange(first, end)
	if err != nil {
		m.setError("read failed: %v", err)
		return
	}

	rows := make([]table.Row, 0, len(records))
	for i, rec := range records {
		rows = append(rows, table.Row{
			strconv.FormatUint(first+uint64(i), 10),
			strconv.Itoa(len(rec)),
			hex.EncodeToString(rec[:min(len(rec), previewBytes)]),
			printable(rec[:min(len(rec), previewBytes)]),
		})
	}
	m.first = first
	m.recordTable.SetRows(rows)
}

// printable replaces non-printing bytes with '.'.
func printable(b []byte) string {
	var s strings.Builder
	for _, c := range b {
		if c >= 0x20 && c < 0x7f {
			s.WriteByte(c)
		} else {
			s.WriteByte('.')
		}
	}
	return s.String()
}

func (m *model) setError(format string, args ...any) {
	m.message = fmt.Sprintf(format, args...)
	m.messageErr = true
}

func (m *model) openRecord(i uint64) {
	if m.c == nil {
		return
	}
	rec, err := m.c.ReadAt(i)
	if err != nil {
		m.setError("%v", err)
		return
	}
	m.selected = i
	m.record = rec
	m.currentView = recordView
	m.message = fmt.Sprintf("Record %d: %d bytes", i, len(rec))
	m.messageErr = false
}

// selectedIndex maps the table cursor to a record index.
func (m model) selectedIndex() uint64 {
	return m.first + uint64(m.recordTable.Cursor())
}

func (m *model) jump() {
	m.jumping = false
	m.jumpInput.Blur()
	value := strings.TrimSpace(m.jumpInput.Value())
	m.jumpInput.SetValue("")
	if value == "" {
		return
	}
	i, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		m.setError("bad index %q", value)
		return
	}
	if m.c == nil || i >= m.c.Size() {
		m.setError("index %d beyond %d records", i, m.stats.Records)
		return
	}
	m.loadPage(i / pageSize * pageSize)
	m.recordTable.SetCursor(int(i - m.first))
	m.openRecord(i)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tickMsg:
		m.reload()
		return m, tickCmd(2 * time.Second)

	case tea.KeyMsg:
		if m.jumping {
			switch msg.Type {
			case tea.KeyEnter:
				m.jump()
				return m, nil
			case tea.KeyEsc:
				m.jumping = false
				m.jumpInput.Blur()
				return m, nil
			}
			m.jumpInput, cmd = m.jumpInput.Update(msg)
			return m, cmd
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			if m.c != nil {
				m.c.Close()
			}
			return m, tea.Quit

		case key.Matches(msg, m.keys.Tab):
			m.currentView = (m.currentView + 1) % viewCount

		case key.Matches(msg, m.keys.ShiftTab):
			if m.currentView == 0 {
				m.currentView = viewCount - 1
			} else {
				m.currentView--
			}

		case key.Matches(msg, m.keys.Refresh):
			m.reload()
			m.message = fmt.Sprintf("Reloaded %d records", m.stats.Records)
			m.messageErr = false

		case key.Matches(msg, m.keys.Jump):
			m.jumping = true
			m.jumpInput.Focus()
			return m, textinput.Blink

		case key.Matches(msg, m.keys.Enter):
			if m.currentView == recordsView && len(m.recordTable.Rows()) > 0 {
				m.openRecord(m.selectedIndex())
			}
			return m, nil

		case m.currentView == recordsView && key.Matches(msg, m.keys.Down) &&
			m.recordTable.Cursor() == len(m.recordTable.Rows())-1 &&
			m.c != nil && m.first+pageSize < m.c.Size():
			m.loadPage(m.first + pageSize)
			m.recordTable.GotoTop()
			return m, nil

		case m.currentView == recordsView && key.Matches(msg, m.keys.Up) &&
			m.recordTable.Cursor() == 0 && m.first > 0:
			m.loadPage(m.first - pageSize)
			m.recordTable.GotoBottom()
			return m, nil
		}
	}

	if m.currentView == recordsView {
		m.recordTable, cmd = m.recordTable.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var s strings.Builder

	s.WriteString(titleStyle.Render("ICF Container Browser"))
	s.WriteString("\n\n")
	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	switch m.currentView {
	case overviewView:
		s.WriteString(m.renderOverview())
	case recordsView:
		s.WriteString(m.renderRecords())
	case recordView:
		s.WriteString(m.renderRecord())
	}

	if m.jumping {
		s.WriteString("\n\n")
		s.WriteString(contentStyle.Render("Go to: " + m.jumpInput.View()))
	}

	if m.message != "" {
		s.WriteString("\n\n")
		if m.messageErr {
			s.WriteString(errorStyle.Render("✗ " + m.message))
		} else {
			s.WriteString(successStyle.Render("✓ " + m.message))
		}
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))

	return s.String()
}

func (m model) renderTabs() string {
	var renderedTabs []string
	for i, tab := range viewNames {
		if view(i) == m.currentView {
			renderedTabs = append(renderedTabs, activeTabStyle.Render(tab))
		} else {
			renderedTabs = append(renderedTabs, inactiveTabStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, renderedTabs...)
}

func (m model) renderOverview() string {
	if m.c == nil {
		return contentStyle.Render("No container loaded")
	}
	h := m.c.Header()

	headerContent := fmt.Sprintf(`Header
━━━━━━━━━━━━━━━
Path:        %s
Created:     %s
Format:      %s
Compression: %s
Sub-id:      %q
Extension:   %d bytes`,
		m.c.Path(),
		h.Created().UTC().Format(time.RFC3339),
		h.Version,
		h.Compression,
		strings.TrimRight(string(h.SubIdentifier[:]), "\x00"),
		len(h.Extension),
	)

	statsContent := fmt.Sprintf(`Statistics
━━━━━━━━━━━━━━━
Records:     %d
Bunches:     %d
Dangling:    %d bytes
File size:   %d bytes
Cache:       %d hits / %d misses
Loaded:      %s`,
		m.stats.Records,
		m.stats.Bunches,
		m.stats.DanglingBytes,
		m.stats.FileSize,
		m.stats.CacheHits,
		m.stats.CacheMisses,
		m.loadedAt.Format(time.TimeOnly),
	)

	return contentStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top,
		statsBoxStyle.Render(headerContent),
		statsBoxStyle.Render(statsContent),
	))
}

func (m model) renderRecords() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render(fmt.Sprintf("Records %d-%d of %d",
		m.first, m.first+uint64(len(m.recordTable.Rows())), m.stats.Records)))
	s.WriteString("\n\n")
	s.WriteString(m.recordTable.View())
	return contentStyle.Render(s.String())
}

func (m model) renderRecord() string {
	if m.record == nil {
		return contentStyle.Render(helpStyle.Render("Select a record in the Records view and press enter"))
	}
	var s strings.Builder
	s.WriteString(headerStyle.Render(fmt.Sprintf("Record %d (%d bytes)", m.selected, len(m.record))))
	s.WriteString("\n\n")

	shown := m.record[:min(len(m.record), dumpBytes)]
	dump := strings.TrimRight(hex.Dump(shown), "\n")
	if len(m.record) > dumpBytes {
		dump += fmt.Sprintf("\n... %d more bytes", len(m.record)-dumpBytes)
	}
	if len(shown) == 0 {
		dump = "(empty record)"
	}
	s.WriteString(dumpBoxStyle.Render(dump))
	return contentStyle.Render(s.String())
}
