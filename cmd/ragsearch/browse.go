package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/a-h/ragsearch/client"
	"github.com/a-h/ragsearch/models"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

type BrowseCommand struct {
	RAGSearchURL    string   `help:"The URL of the search server." env:"RAG_SEARCH_URL" default:"http://localhost:9020"`
	RAGSearchAPIKey string   `help:"The API key for the search server." env:"RAG_SEARCH_API_KEY" default:""`
	Indexes         []string `help:"Indexes to choose between with the tab key. The first is selected at start, empty means the server default." env:"RAG_SEARCH_INDEXES"`
	Top             int      `help:"The number of documents to retrieve. Uses the server default if zero." default:"0"`
}

func (c BrowseCommand) Run(ctx context.Context) (err error) {
	rsc := client.New(c.RAGSearchURL, c.RAGSearchAPIKey)
	search := func(ctx context.Context, req models.SearchPostRequest) (models.SearchPostResponse, error) {
		req.Top = c.Top
		return rsc.SearchPost(ctx, req)
	}
	indexes := c.Indexes
	if len(indexes) == 0 {
		indexes = []string{""}
	}
	p := tea.NewProgram(newBrowseModel(ctx, search, indexes))
	if _, err = p.Run(); err != nil {
		return err
	}
	return nil
}

// Dracula color scheme.
var (
	Background  = lipgloss.Color("#282a36")
	CurrentLine = lipgloss.Color("#44475a")
	Comment     = lipgloss.Color("#6272a4")
	Cyan        = lipgloss.Color("#8be9fd")
	Green       = lipgloss.Color("#50fa7b")
	Pink        = lipgloss.Color("#ff79c6")
	Purple      = lipgloss.Color("#bd93f9")
	Red         = lipgloss.Color("#ff5555")
)

var (
	headerStyle  = lipgloss.NewStyle().Background(CurrentLine).Foreground(Purple).Bold(true).Padding(0, 1)
	queryStyle   = lipgloss.NewStyle().Padding(1).Margin(1).MarginBottom(0).Background(Background).Foreground(Pink)
	summaryStyle = lipgloss.NewStyle().Padding(1).Margin(1).MarginBottom(0).Background(Background).Foreground(Cyan)
	sourceStyle  = lipgloss.NewStyle().Padding(1).Margin(1).MarginBottom(0).Background(Background).Foreground(Green)
	statusStyle  = lipgloss.NewStyle().Foreground(Comment)
	errorStyle   = lipgloss.NewStyle().Foreground(Red)
)

type searchFunc func(ctx context.Context, req models.SearchPostRequest) (models.SearchPostResponse, error)

type searchResultMsg struct {
	query string
	resp  models.SearchPostResponse
}

type browseModel struct {
	viewport viewport.Model
	textarea textarea.Model
	err      error
	ctx      context.Context

	search   searchFunc
	indexes  []string
	selected int
	loading  bool
	width    int
}

func newBrowseModel(ctx context.Context, search searchFunc, indexes []string) browseModel {
	ta := textarea.New()
	ta.Placeholder = "Ask a question..."
	ta.Focus()

	ta.Prompt = "┃ "
	ta.CharLimit = 500

	ta.SetHeight(3)

	// Remove cursor line styling
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()

	ta.ShowLineNumbers = false

	vp := viewport.New(80, 20)

	ta.KeyMap.InsertNewline.SetEnabled(false)

	return browseModel{
		ctx:      ctx,
		textarea: ta,
		viewport: vp,
		search:   search,
		indexes:  indexes,
		width:    80,
	}
}

func (m browseModel) Init() tea.Cmd {
	return textarea.Blink
}

func (m browseModel) index() string {
	return m.indexes[m.selected]
}

func (m browseModel) runSearch(query string) tea.Cmd {
	req := models.SearchPostRequest{
		Query: query,
		Index: m.index(),
	}
	return func() tea.Msg {
		resp, err := m.search(m.ctx, req)
		if err != nil {
			return err
		}
		return searchResultMsg{query: query, resp: resp}
	}
}

func (m browseModel) render(msg searchResultMsg) string {
	width := m.width - 6
	if width < 20 {
		width = 20
	}
	var sb strings.Builder
	sb.WriteString(queryStyle.Render(wordwrap.String("🥷 "+msg.query, width)))
	sb.WriteString("\n")
	sb.WriteString(summaryStyle.Render(wordwrap.String("✨ "+strings.TrimSpace(msg.resp.Summary), width)))
	sb.WriteString("\n")
	if sources := strings.TrimSpace(strings.TrimPrefix(formatResponse(models.SearchPostResponse{Results: msg.resp.Results}, uint(width)), "\n")); sources != "" {
		sb.WriteString(sourceStyle.Render(sources))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case error:
		m.err = msg
		m.loading = false
		return m, nil
	case searchResultMsg:
		m.err = nil
		m.loading = false
		m.viewport.SetContent(m.render(msg))
		m.viewport.GotoTop()
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - m.textarea.Height() - 5
		m.textarea.SetWidth(msg.Width)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.selected = (m.selected + 1) % len(m.indexes)
			return m, nil
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		case "enter":
			v := strings.TrimSpace(m.textarea.Value())
			if v == "" || m.loading {
				return m, nil
			}
			m.textarea.Reset()
			m.loading = true
			return m, m.runSearch(v)
		default:
			var cmd tea.Cmd
			m.textarea, cmd = m.textarea.Update(msg)
			return m, cmd
		}
	case cursor.BlinkMsg:
		var cmd tea.Cmd
		m.textarea, cmd = m.textarea.Update(msg)
		return m, cmd
	default:
		return m, nil
	}
}

func (m browseModel) status() string {
	index := m.index()
	if index == "" {
		index = "default"
	}
	s := statusStyle.Render(fmt.Sprintf("index: %s (tab to change)", index))
	if m.loading {
		s += statusStyle.Render(" searching...")
	}
	if m.err != nil {
		s += " " + errorStyle.Render(m.err.Error())
	}
	return s
}

func (m browseModel) View() string {
	return fmt.Sprintf("%s\n%s\n\n%s\n%s",
		headerStyle.Render("ragsearch"),
		m.viewport.View(),
		m.status(),
		m.textarea.View(),
	) + "\n\n"
}
