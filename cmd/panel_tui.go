// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/pidconf/pkg/pidconf"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const panelMaxLogEntries = 100

// Focus states
const (
	focusParamList = iota
	focusValueInput
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// paramItem is one parameter row in the panel
type paramItem struct {
	param pidconf.Parameter
	value float64
	known bool
	err   error
}

// Implement list.Item interface
func (p paramItem) Title() string { return p.param.Name }
func (p paramItem) Description() string {
	switch {
	case p.err != nil:
		return "error: " + p.err.Error()
	case !p.known:
		return "not read"
	default:
		return pidconf.FormatValue(p.param, p.value)
	}
}
func (p paramItem) FilterValue() string { return p.param.Name }

type panelLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// panelOp is one exchange with the controller, run off the UI goroutine
type panelOp func() tea.Msg

// panelModel is the Bubble Tea model for the parameter panel. The session
// carries one exchange at a time, so operations queue behind busy.
type panelModel struct {
	sess     *pidconf.Session
	connInfo string

	items      []paramItem
	paramList  list.Model
	valueInput textinput.Model

	focusedField int
	queue        []panelOp
	busy         bool

	eventLog []panelLogEntry

	width    int
	height   int
	quitting bool
	finished bool
	fatal    error
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type panelRefreshMsg struct{}

type paramReadMsg struct {
	name  string
	value float64
	err   error
}

type paramWriteMsg struct {
	name  string
	value float64
	err   error
}

type panelFinishMsg struct {
	err error
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialPanelModel(sess *pidconf.Session, connInfo string) panelModel {
	ti := textinput.New()
	ti.Placeholder = "value"
	ti.CharLimit = 16
	ti.Width = 16

	params := pidconf.Parameters()
	items := make([]paramItem, len(params))
	listItems := make([]list.Item, len(params))
	for i, p := range params {
		items[i] = paramItem{param: p}
		listItems[i] = items[i]
	}

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	paramList := list.New(listItems, delegate, 30, 16)
	paramList.Title = "Parameters"
	paramList.SetShowStatusBar(false)
	paramList.SetShowHelp(false)
	paramList.SetFilteringEnabled(false)

	return panelModel{
		sess:         sess,
		connInfo:     connInfo,
		items:        items,
		paramList:    paramList,
		valueInput:   ti,
		focusedField: focusParamList,
		width:        80,
		height:       24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m panelModel) Init() tea.Cmd {
	return func() tea.Msg { return panelRefreshMsg{} }
}

func (m panelModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateListSize()
		return m, nil

	case panelRefreshMsg:
		m.addLogEntry("Reading all parameters", false)
		for _, item := range m.items {
			m.queue = append(m.queue, m.readOp(item.param.Name))
		}
		cmd := m.next()
		return m, cmd

	case paramReadMsg:
		m.busy = false
		m.applyRead(msg)
		if m.fatal != nil {
			return m, tea.Quit
		}
		cmd := m.next()
		return m, cmd

	case paramWriteMsg:
		m.busy = false
		if msg.err != nil {
			m.recordFailure(fmt.Sprintf("write %s", msg.name), msg.err)
			if m.fatal != nil {
				return m, tea.Quit
			}
		} else {
			m.addLogEntry(fmt.Sprintf("Wrote %s = %g", msg.name, msg.value), false)
			m.queue = append(m.queue, m.readOp(msg.name))
		}
		cmd := m.next()
		return m, cmd

	case panelFinishMsg:
		m.busy = false
		m.finished = true
		if msg.err != nil {
			m.fatal = fmt.Errorf("finish failed: %w", msg.err)
		}
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

func (m panelModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	if m.focusedField == focusValueInput {
		switch msg.String() {
		case "esc":
			m.blurInput()
			return m, nil
		case "enter":
			return m.submitValue()
		}
		var cmd tea.Cmd
		m.valueInput, cmd = m.valueInput.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit

	case "enter", "tab":
		item, ok := m.selectedItem()
		if !ok {
			return m, nil
		}
		m.valueInput.SetValue("")
		if item.known {
			m.valueInput.Placeholder = pidconf.FormatValue(item.param, item.value)
		}
		m.focusedField = focusValueInput
		cmd := m.valueInput.Focus()
		return m, cmd

	case "r":
		if m.busy {
			m.addLogEntry("Busy, try again when the current exchange completes", true)
			return m, nil
		}
		return m, func() tea.Msg { return panelRefreshMsg{} }

	case "f":
		if m.busy {
			m.addLogEntry("Busy, try again when the current exchange completes", true)
			return m, nil
		}
		m.addLogEntry("Leaving configuration mode", false)
		m.queue = []panelOp{m.finishOp()}
		cmd := m.next()
		return m, cmd
	}

	var cmd tea.Cmd
	m.paramList, cmd = m.paramList.Update(msg)
	return m, cmd
}

func (m panelModel) submitValue() (tea.Model, tea.Cmd) {
	item, ok := m.selectedItem()
	text := strings.TrimSpace(m.valueInput.Value())
	m.blurInput()
	if !ok || text == "" {
		return m, nil
	}
	if m.busy {
		m.addLogEntry("Busy, try again when the current exchange completes", true)
		return m, nil
	}
	m.queue = append(m.queue, m.writeOp(item.param.Name, text))
	cmd := m.next()
	return m, cmd
}

func (m panelModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	focusedBoxStyle := boxStyle.
		BorderForeground(lipgloss.Color("12"))

	helpText := "q=quit Enter=edit r=refresh f=finish"
	if m.focusedField == focusValueInput {
		helpText = "Enter=write Esc=cancel"
	}
	status := "idle"
	if m.busy {
		status = "busy"
	}
	s.WriteString(titleStyle.Render("PIDCONF PANEL"))
	s.WriteString(" ")
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | %s | %s", m.connInfo, status, helpText)))
	s.WriteString("\n\n")

	leftWidth := 30
	rightWidth := m.width - leftWidth - 6
	if rightWidth < 30 {
		rightWidth = 30
	}

	listStyle := boxStyle.Width(leftWidth)
	detailStyle := boxStyle.Width(rightWidth)
	if m.focusedField == focusParamList {
		listStyle = focusedBoxStyle.Width(leftWidth)
	} else {
		detailStyle = focusedBoxStyle.Width(rightWidth)
	}

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		listStyle.Render(m.paramList.View()),
		" ",
		detailStyle.Render(m.renderDetail())))
	s.WriteString("\n\n")

	s.WriteString(boxStyle.Width(m.width - 4).Render(m.renderStatisticsBar()))
	s.WriteString("\n\n")
	s.WriteString(boxStyle.Width(m.width - 4).Render(m.renderEventLog()))

	return s.String()
}

//////////////////////////////////////////////////////////////
// View Helpers
//////////////////////////////////////////////////////////////

var (
	panelLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	panelValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	panelErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	panelWarnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	panelDimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func (m panelModel) renderDetail() string {
	item, ok := m.selectedItem()
	if !ok {
		return panelDimStyle.Render("No parameter selected")
	}
	p := item.param

	var s strings.Builder
	fmt.Fprintf(&s, "%s %s\n", panelLabelStyle.Render("Parameter:"), p.Name)
	fmt.Fprintf(&s, "%s 0x%02X (write 0x%02X)\n", panelLabelStyle.Render("Opcode:"), p.ReadOpcode(), p.WriteOpcode())
	fmt.Fprintf(&s, "%s %d byte(s), scale %g\n", panelLabelStyle.Render("Encoding:"), p.Width, p.Scale)
	fmt.Fprintf(&s, "%s [%g, %g] %s\n\n", panelLabelStyle.Render("Accepts:"), p.Min, p.Max, p.Validator)

	switch {
	case item.err != nil:
		fmt.Fprintf(&s, "%s %s\n\n", panelLabelStyle.Render("Value:"), panelErrorStyle.Render(item.err.Error()))
	case item.known:
		fmt.Fprintf(&s, "%s %s\n\n", panelLabelStyle.Render("Value:"), panelValueStyle.Render(pidconf.FormatValue(p, item.value)))
	default:
		fmt.Fprintf(&s, "%s %s\n\n", panelLabelStyle.Render("Value:"), panelDimStyle.Render("not read"))
	}

	s.WriteString(panelLabelStyle.Render("New value: "))
	s.WriteString(m.valueInput.View())
	return s.String()
}

func (m panelModel) renderStatisticsBar() string {
	stats := m.sess.Statistics()
	stats.CalculateRates()

	failures := panelValueStyle.Render("0")
	if stats.Failures() > 0 {
		failures = panelErrorStyle.Render(fmt.Sprintf("%d", stats.Failures()))
	}
	return fmt.Sprintf("%s %s  %s %s  %s %s  %s %s",
		panelLabelStyle.Render("Exchanges:"), panelValueStyle.Render(fmt.Sprintf("%d", stats.Exchanges)),
		panelLabelStyle.Render("Acks:"), panelValueStyle.Render(fmt.Sprintf("%d", stats.Acks)),
		panelLabelStyle.Render("Failures:"), failures,
		panelLabelStyle.Render("Rejected:"), panelValueStyle.Render(fmt.Sprintf("%d", stats.LocalRejects)))
}

func (m panelModel) renderEventLog() string {
	var s strings.Builder
	s.WriteString(panelLabelStyle.Render("EVENTS"))
	s.WriteString("\n")

	logHeight := 8
	if len(m.eventLog) < logHeight {
		logHeight = len(m.eventLog)
	}
	startIdx := len(m.eventLog) - logHeight

	if len(m.eventLog) == 0 {
		s.WriteString(panelDimStyle.Render("  (no events yet)"))
		return s.String()
	}
	for i := startIdx; i < len(m.eventLog); i++ {
		entry := m.eventLog[i]
		icon := "i"
		style := panelWarnStyle
		if entry.isError {
			icon = "x"
			style = panelErrorStyle
		}
		fmt.Fprintf(&s, "%s %s %s\n",
			panelDimStyle.Render(entry.timestamp.Format("15:04:05.000")),
			style.Render(icon),
			entry.message)
	}
	return s.String()
}

//////////////////////////////////////////////////////////////
// Operations
//////////////////////////////////////////////////////////////

// next starts the first queued operation unless one is in flight
func (m *panelModel) next() tea.Cmd {
	if m.busy || len(m.queue) == 0 {
		return nil
	}
	op := m.queue[0]
	m.queue = m.queue[1:]
	m.busy = true
	return tea.Cmd(op)
}

func (m *panelModel) readOp(name string) panelOp {
	sess := m.sess
	return func() tea.Msg {
		_, v, err := sess.Read(name)
		return paramReadMsg{name: name, value: v, err: err}
	}
}

func (m *panelModel) writeOp(name, text string) panelOp {
	sess := m.sess
	return func() tea.Msg {
		_, v, err := sess.WriteText(name, text)
		return paramWriteMsg{name: name, value: v, err: err}
	}
}

func (m *panelModel) finishOp() panelOp {
	sess := m.sess
	return func() tea.Msg {
		return panelFinishMsg{err: sess.Finish()}
	}
}

//////////////////////////////////////////////////////////////
// Helpers
//////////////////////////////////////////////////////////////

func (m *panelModel) applyRead(msg paramReadMsg) {
	for i := range m.items {
		if m.items[i].param.Name != msg.name {
			continue
		}
		if msg.err != nil {
			m.items[i].err = msg.err
			m.recordFailure(fmt.Sprintf("read %s", msg.name), msg.err)
		} else {
			m.items[i].value = msg.value
			m.items[i].known = true
			m.items[i].err = nil
		}
		m.paramList.SetItem(i, m.items[i])
		return
	}
}

// recordFailure logs a failed exchange; fatal errors end the panel
func (m *panelModel) recordFailure(what string, err error) {
	m.addLogEntry(describeError(what, err), true)
	if pidconf.IsFatal(err) {
		m.fatal = fmt.Errorf("%s: %w", what, err)
		m.queue = nil
	}
}

func (m *panelModel) addLogEntry(message string, isError bool) {
	m.eventLog = append(m.eventLog, panelLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})
	if len(m.eventLog) > panelMaxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-panelMaxLogEntries:]
	}
}

func (m *panelModel) selectedItem() (paramItem, bool) {
	idx := m.paramList.Index()
	if idx < 0 || idx >= len(m.items) {
		return paramItem{}, false
	}
	return m.items[idx], true
}

func (m *panelModel) blurInput() {
	m.valueInput.Blur()
	m.valueInput.SetValue("")
	m.focusedField = focusParamList
}

func (m *panelModel) updateListSize() {
	listHeight := m.height / 2
	if listHeight < 8 {
		listHeight = 8
	}
	m.paramList.SetSize(28, listHeight)
}
