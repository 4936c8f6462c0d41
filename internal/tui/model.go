package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ragqa/internal/domain"
	"ragqa/internal/service"
)

// RAGPort is the TUI-facing subset of the RAG service.
type RAGPort interface {
	Query(ctx context.Context, req service.QueryRequest) (service.Answer, error)
	Targets() []string
}

// queryTimeout bounds one retrieval plus generation round trip.
const queryTimeout = 2 * time.Minute

type answerMsg struct {
	query  string
	answer service.Answer
	err    error
}

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	service    RAGPort
	summarizer domain.Summarizer
	input      textinput.Model
	viewport   viewport.Model
	targets    []string
	target     int
	topK       int
	answer     string
	sources    []domain.SearchResult
	status     string
	cursor     int
	ready      bool
	busy       bool
	lastQuery  string
}

// New creates a new TUI model instance. The first target is the fan-out over
// every collection, followed by each entry of svc.Targets().
func New(svc RAGPort, summarizer domain.Summarizer, topK int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter (tab switches collection)"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		service:    svc,
		summarizer: summarizer,
		input:      ti,
		viewport:   vp,
		targets:    append([]string{""}, svc.Targets()...),
		topK:       topK,
		status:     "Ready.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 3 + 1 + qh + 1 // header, target, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.viewport.SetContent(m.renderContent())
		return m, nil
	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.answer = ""
			m.sources = nil
		} else {
			m.status = fmt.Sprintf("Answered %q (%d chunks retrieved)", msg.query, len(msg.answer.Retrieved))
			m.answer = msg.answer.Answer
			m.sources = msg.answer.Sources
			m.cursor = 0
			m.lastQuery = msg.query
		}
		m.viewport.SetContent(m.renderContent())
		m.viewport.GotoTop()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "tab":
			m.target = (m.target + 1) % len(m.targets)
			return m, nil
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && !m.busy {
				m.busy = true
				m.status = "Thinking..."
				return m, m.queryCmd(q)
			}
		case "down":
			if len(m.sources) > 0 {
				m.cursor = (m.cursor + 1) % len(m.sources)
				m.viewport.SetContent(m.renderContent())
				return m, nil
			}
		case "up":
			if len(m.sources) > 0 {
				m.cursor = (m.cursor - 1 + len(m.sources)) % len(m.sources)
				m.viewport.SetContent(m.renderContent())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) queryCmd(q string) tea.Cmd {
	req := service.QueryRequest{Query: q, Collection: m.targets[m.target], TopK: m.topK}
	svc := m.service
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
		defer cancel()
		ans, err := svc.Query(ctx, req)
		return answerMsg{query: q, answer: ans, err: err}
	}
}

// View renders the TUI layout and current result.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("RAG QA")
	target := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("Collection: " + m.targetLabel())
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + target + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) targetLabel() string {
	if t := m.targets[m.target]; t != "" {
		return t
	}
	return "all"
}

func (m Model) renderContent() string {
	if m.answer == "" {
		return "No answer yet."
	}
	body := m.answer
	if len(m.sources) == 0 {
		return body
	}
	r := m.sources[m.cursor]
	title := fmt.Sprintf("Source %d/%d  [%s]  score=%.3f", m.cursor+1, len(m.sources), r.Collection, r.Score)
	if m.summarizer != nil {
		if gist, err := m.summarizer.Summarize(r.Text, 1); err == nil && gist != "" {
			title += "\n" + gistStyle.Render(gist)
		}
	}
	return body + "\n\n" + sourceTitleStyle.Render(title) + "\n\n" + highlightBestSentence(r.Text, m.lastQuery)
}

var (
	resultBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	sourceTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	gistStyle        = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("8"))
	unicodeWordRe    = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe       = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx := 0
	bestScore := -1
	for i, s := range sentences {
		score := tokenOverlapScore(qTokens, s)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == bestIdx {
			sentences[i] = highlightStyle.Render(sent)
		} else {
			sentences[i] = sent
		}
	}
	return strings.Join(sentences, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(sentence), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
