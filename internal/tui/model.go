package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/viraj200524/Document-Website-Chat/internal/domain"
)

// Port is the TUI-facing subset of the application service.
type Port interface {
	Add(ctx context.Context, ref string) (string, error)
	Await(ctx context.Context, handle string) (domain.JobStatus, error)
	Query(ctx context.Context, query string) ([]domain.SearchResult, error)
	Sources() []domain.Source
	ChunkCount() int
	Clear(ctx context.Context) error
}

type jobDoneMsg struct {
	status domain.JobStatus
	err    error
}

// Model is the Bubble Tea model for the chat UI. Plain input runs a
// retrieval query; /add ingests a file or URL in the background,
// /sources lists sources with status, /clear drops everything.
type Model struct {
	service   Port
	input     textinput.Model
	viewport  viewport.Model
	results   []domain.SearchResult
	status    string
	cursor    int
	ready     bool
	lastQuery string
	inflight  int
}

// New creates a new TUI model instance.
func New(service Port) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question, or /add <file-or-url>"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{service: service, input: ti, viewport: vp, status: "Ready. /add a source to begin."}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and job events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around result and query boxes
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + qh + 1 // header + status + query frame + spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil
	case jobDoneMsg:
		m.inflight--
		switch {
		case msg.err != nil:
			m.status = "Ingestion error: " + msg.err.Error()
		case msg.status.State == domain.JobFailed:
			m.status = fmt.Sprintf("Failed %s: %s", msg.status.Origin, msg.status.Error)
		default:
			m.status = fmt.Sprintf("Ready: %s (%d chunks indexed)", msg.status.Origin, m.service.ChunkCount())
		}
		return m, nil
	case tea.KeyMsg:
		// Global quits
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			line := strings.TrimSpace(m.input.Value())
			if line == "" {
				break
			}
			m.input.SetValue("")
			return m.handleLine(line)
		case "down":
			if len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "up":
			if len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleLine(line string) (tea.Model, tea.Cmd) {
	switch {
	case strings.HasPrefix(line, "/add "):
		ref := strings.TrimSpace(strings.TrimPrefix(line, "/add "))
		handle, err := m.service.Add(context.Background(), ref)
		if err != nil {
			m.status = "Error: " + err.Error()
			return m, nil
		}
		m.inflight++
		m.status = fmt.Sprintf("Ingesting %s... (%d in flight)", ref, m.inflight)
		svc := m.service
		return m, func() tea.Msg {
			status, err := svc.Await(context.Background(), handle)
			return jobDoneMsg{status: status, err: err}
		}
	case line == "/sources":
		m.viewport.SetContent(m.renderSources())
		m.status = fmt.Sprintf("%d sources, %d chunks", len(m.service.Sources()), m.service.ChunkCount())
		return m, nil
	case line == "/clear":
		if err := m.service.Clear(context.Background()); err != nil {
			m.status = "Error: " + err.Error()
			return m, nil
		}
		m.results = nil
		m.viewport.SetContent(m.renderCurrentResult())
		m.status = "Knowledge base cleared."
		return m, nil
	default:
		res, err := m.service.Query(context.Background(), line)
		if err != nil {
			m.status = "Error: " + err.Error()
			m.results = nil
		} else if len(res) == 0 {
			m.status = "No indexed sources yet. /add one first."
			m.results = nil
		} else {
			m.status = fmt.Sprintf("Results for %q", line)
			m.results = res
			m.cursor = 0
			m.lastQuery = line
		}
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil
	}
}

// View renders the layout and current result.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Document & Website Chat")
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderCurrentResult() string {
	if len(m.results) == 0 {
		return "No results yet."
	}
	r := m.results[m.cursor]
	title := fmt.Sprintf("Result %d/%d  score=%.3f", m.cursor+1, len(m.results), r.Score)
	cite := citationStyle.Render(citation(r))
	body := highlightBestSentence(r.Chunk.Text, m.lastQuery)
	return title + "\n" + cite + "\n\n" + body
}

func (m Model) renderSources() string {
	sources := m.service.Sources()
	if len(sources) == 0 {
		return "No sources."
	}
	var sb strings.Builder
	for _, src := range sources {
		line := fmt.Sprintf("[%s] %-6s %s", src.Status, src.Kind, src.Origin)
		if src.Error != "" {
			line += "  (" + src.Error + ")"
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

// citation formats provenance for the current result: origin plus page
// for PDFs, offset for text, anchor for web pages.
func citation(r domain.SearchResult) string {
	origin := r.Source.Origin
	if origin == "" {
		origin = r.Chunk.SourceID
	}
	switch r.Source.Kind {
	case domain.KindPDF:
		return fmt.Sprintf("%s, page %d", origin, r.Chunk.Page)
	case domain.KindURL:
		if r.Chunk.Anchor != "" {
			return fmt.Sprintf("%s (%s)", r.Chunk.Anchor, origin)
		}
		return origin
	default:
		return fmt.Sprintf("%s, offset %d", origin, r.Chunk.Offset)
	}
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	citationStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe     = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
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
