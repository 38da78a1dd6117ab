package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nedit-macro/nmc"
	"github.com/nedit-macro/nmc/ast"
	"github.com/nedit-macro/nmc/ir"
	"github.com/nedit-macro/nmc/lexer"
)

// tab identifies one of the inspector's panes. Each pane is computed
// independently at startup so a later pipeline stage's failure (e.g. a
// syntax error) never hides an earlier stage's output.
type tab int

const (
	tabTokens tab = iota
	tabAST
	tabMain
	tabFunction
)

func (t tab) String() string {
	switch t {
	case tabTokens:
		return "tokens"
	case tabAST:
		return "ast"
	case tabMain:
		return "ir:main"
	case tabFunction:
		return "ir:function"
	default:
		return "?"
	}
}

var tabOrder = []tab{tabTokens, tabAST, tabMain, tabFunction}

var (
	tabActiveStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("24")).Padding(0, 1)
	tabInactiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Padding(0, 1)
	errStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

type inspectorModel struct {
	filename   string
	sourceText string

	tokens   []lexer.Token
	tokenErr error

	statements []ast.Stmt
	astErr     error

	prog  *ir.Program
	irErr error

	funcNames []string
	funcIdx   int

	activeTab tab
	viewport  viewport.Model
	ready     bool
	width     int
	height    int
}

func newInspectorModel(filename, source string) inspectorModel {
	m := inspectorModel{filename: filename, sourceText: source, activeTab: tabTokens}

	m.tokens, m.tokenErr = lexer.Lex(source)
	m.statements, m.astErr = nmc.Parse(source)
	m.prog, m.irErr = nmc.CompileSource(source)

	if m.prog != nil {
		for name := range m.prog.Functions {
			m.funcNames = append(m.funcNames, name)
		}
		sort.Strings(m.funcNames)
	}

	m.viewport = viewport.New(80, 20)
	m.setContent()
	return m
}

func (m inspectorModel) Init() tea.Cmd {
	return nil
}

func (m inspectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		headerHeight := 1
		footerHeight := 1
		vh := msg.Height - headerHeight - footerHeight
		if vh < 1 {
			vh = 1
		}
		m.viewport.Width = msg.Width
		m.viewport.Height = vh
		m.ready = true
		m.setContent()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab", "right", "l":
			m.activeTab = nextTab(m.activeTab, 1)
			m.setContent()
			return m, nil
		case "shift+tab", "left", "h":
			m.activeTab = nextTab(m.activeTab, -1)
			m.setContent()
			return m, nil
		case "down", "j":
			if m.activeTab == tabFunction && len(m.funcNames) > 0 {
				m.funcIdx = (m.funcIdx + 1) % len(m.funcNames)
				m.setContent()
				return m, nil
			}
		case "up", "k":
			if m.activeTab == tabFunction && len(m.funcNames) > 0 {
				m.funcIdx = (m.funcIdx - 1 + len(m.funcNames)) % len(m.funcNames)
				m.setContent()
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func nextTab(t tab, delta int) tab {
	n := len(tabOrder)
	idx := int(t)
	idx = ((idx+delta)%n + n) % n
	return tabOrder[idx]
}

func (m *inspectorModel) setContent() {
	var body string
	switch m.activeTab {
	case tabTokens:
		if m.tokenErr != nil {
			body = errStyle.Render(m.tokenErr.Error())
		} else {
			body = lexer.DumpTokens(m.sourceText, m.tokens)
		}
	case tabAST:
		if m.astErr != nil {
			body = errStyle.Render(m.astErr.Error())
		} else {
			body = ast.Dump(m.statements)
		}
	case tabMain:
		if m.irErr != nil {
			body = errStyle.Render(m.irErr.Error())
		} else {
			body = ir.Render(m.prog.Main)
		}
	case tabFunction:
		if m.irErr != nil {
			body = errStyle.Render(m.irErr.Error())
		} else if len(m.funcNames) == 0 {
			body = "(no functions)"
		} else {
			name := m.funcNames[m.funcIdx]
			body = fmt.Sprintf("; function %s\n%s", name, ir.Render(m.prog.Functions[name]))
		}
	}
	m.viewport.SetContent(body)
}

func (m inspectorModel) View() string {
	if !m.ready {
		return "initializing..."
	}
	var tabs []string
	for _, t := range tabOrder {
		label := t.String()
		if t == tabFunction && len(m.funcNames) > 0 {
			label = fmt.Sprintf("%s [%d/%d]", label, m.funcIdx+1, len(m.funcNames))
		}
		if t == m.activeTab {
			tabs = append(tabs, tabActiveStyle.Render(label))
		} else {
			tabs = append(tabs, tabInactiveStyle.Render(label))
		}
	}
	header := strings.Join(tabs, " ")
	footer := helpStyle.Render(fmt.Sprintf("%s  tab/shift+tab: switch pane  up/down: pick function  q: quit", m.filename))
	return strings.Join([]string{header, m.viewport.View(), footer}, "\n")
}
