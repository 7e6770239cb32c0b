package review

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobsieve/internal/model"
)

// Lines per report in the list view (title + subtitle + blank separator).
const reportItemHeight = 3

type viewState int

const (
	viewList viewState = iota
	viewDetail
)

var (
	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Foreground(lipgloss.Color("39"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	titleStyle = lipgloss.NewStyle().
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	selectedTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("24"))

	selectedSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("24"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Width(12)

	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				MarginBottom(1)

	dividerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	bodyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	scoreHigh = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	scoreMid  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	scoreLow  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

type reviewModel struct {
	reports  []model.Report
	list     viewport.Model
	cursor   int
	width    int
	height   int
	ready    bool
	view     viewState
	detail   viewport.Model
	selected model.Report

	// openURL is swapped out in tests.
	openURL func(string)
}

func newModel(reports []model.Report) reviewModel {
	return reviewModel{reports: reports, openURL: openURL}
}

func (m reviewModel) Init() tea.Cmd {
	return nil
}

func (m reviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		if m.view == viewDetail {
			m.detail.Width = m.width - 4
			m.detail.Height = max(m.height-4, 3)
			m.detail.SetContent(m.renderDetail())
		}
		return m, nil

	case tea.KeyMsg:
		if m.view == viewDetail {
			return m.updateDetailView(msg)
		}
		return m.updateListView(msg)
	}
	return m, nil
}

func (m reviewModel) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		m.cursor = clamp(m.cursor-1, 0, max(len(m.reports)-1, 0))
		m.list.SetContent(renderReports(m.reports, m.cursor))
		m.ensureCursorVisible()
		return m, nil
	case "down", "j":
		m.cursor = clamp(m.cursor+1, 0, max(len(m.reports)-1, 0))
		m.list.SetContent(renderReports(m.reports, m.cursor))
		m.ensureCursorVisible()
		return m, nil
	case "enter":
		if len(m.reports) == 0 {
			return m, nil
		}
		m.selected = m.reports[m.cursor]
		m.view = viewDetail
		m.detail = viewport.New(max(m.width-4, 20), max(m.height-4, 3))
		m.detail.SetContent(m.renderDetail())
		return m, nil
	case "o":
		if len(m.reports) > 0 {
			m.openURL(m.reports[m.cursor].URL)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m reviewModel) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewList
		return m, nil
	case "o":
		m.openURL(m.selected.URL)
		return m, nil
	}

	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(msg)
	return m, cmd
}

func (m *reviewModel) ensureCursorVisible() {
	top := m.cursor * reportItemHeight
	bottom := top + reportItemHeight - 1

	if top < m.list.YOffset {
		m.list.SetYOffset(top)
	} else if bottom >= m.list.YOffset+m.list.Height {
		m.list.SetYOffset(bottom - m.list.Height + 1)
	}
}

func (m *reviewModel) recalcLayout() {
	// Header (1 line) + border top/bottom (2) + status bar (1).
	width := max(m.width-2, 20)
	height := max(m.height-4, 5)

	if !m.ready {
		m.list = viewport.New(width, height)
		m.ready = true
	} else {
		m.list.Width = width
		m.list.Height = height
	}
	m.list.SetContent(renderReports(m.reports, m.cursor))
}

func (m reviewModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.view == viewDetail {
		return m.viewDetail()
	}
	return m.viewList()
}

func (m reviewModel) viewList() string {
	header := headerStyle.Render(fmt.Sprintf("Analyzed Postings (%d)", len(m.reports)))
	pane := borderStyle.Width(m.list.Width).Render(m.list.View())
	status := statusBarStyle.Width(m.width).Render(" ↑/↓ cursor  enter detail  o open URL  q quit")
	return header + "\n" + pane + "\n" + status
}

func (m reviewModel) viewDetail() string {
	title := detailTitleStyle.Render(m.selected.Analysis.JobTitle + " @ " + m.selected.Analysis.CompanyName)
	content := borderStyle.Width(m.width - 2).Render(m.detail.View())
	status := statusBarStyle.Width(m.width).Render(" o open URL  esc/backspace back  ↑/↓ scroll  q quit")
	return title + "\n" + content + "\n" + status
}

func (m reviewModel) renderDetail() string {
	r := m.selected
	a := r.Analysis
	var b strings.Builder

	addField := func(label, value string) {
		b.WriteString(detailLabelStyle.Render(label))
		b.WriteString(value)
		b.WriteByte('\n')
	}

	wrapWidth := max(m.width-8, 20)
	section := func(label string, items []string) {
		fill := strings.Repeat("─", max(wrapWidth-len(label)-3, 3))
		b.WriteByte('\n')
		b.WriteString(dividerStyle.Render("── "+label+" "+fill) + "\n")
		if len(items) == 0 {
			b.WriteString(subtitleStyle.Render("  none") + "\n")
			return
		}
		for _, it := range items {
			b.WriteString(bodyStyle.Render("  • "+it) + "\n")
		}
	}

	addField("Score", renderScore(a.MatchScore))
	addField("Company", a.CompanyName)
	addField("Analyzed", r.ProcessedAt.Local().Format("2006-01-02 15:04"))
	addField("URL", r.URL)

	section("Strengths", a.KeyStrengths)
	section("Gaps", a.PotentialGaps)
	section("Keywords", a.KeywordsToAdd)

	fill := strings.Repeat("─", max(wrapWidth-len("Outreach")-4, 3))
	b.WriteByte('\n')
	b.WriteString(dividerStyle.Render("── Outreach "+fill) + "\n\n")
	b.WriteString(bodyStyle.Render(wordWrap(a.SummaryForEmail, wrapWidth)) + "\n")

	return b.String()
}

func renderScore(score int) string {
	s := fmt.Sprintf("%d/10", score)
	switch {
	case score >= 8:
		return scoreHigh.Render(s)
	case score >= 5:
		return scoreMid.Render(s)
	default:
		return scoreLow.Render(s)
	}
}

func renderReports(reports []model.Report, cursor int) string {
	if len(reports) == 0 {
		return "  (no analyses yet, run jobsieve first)"
	}

	var b strings.Builder
	for i, r := range reports {
		titleSt, subtitleSt, prefix := titleStyle, subtitleStyle, "  "
		if i == cursor {
			titleSt, subtitleSt, prefix = selectedTitleStyle, selectedSubtitleStyle, "> "
		}

		b.WriteString(prefix)
		b.WriteString(renderScore(r.Analysis.MatchScore) + " ")
		b.WriteString(titleSt.Render(r.Analysis.JobTitle))
		b.WriteByte('\n')

		b.WriteString(prefix)
		b.WriteString(subtitleSt.Render(fmt.Sprintf("%s · %s", r.Analysis.CompanyName, r.ProcessedAt.Local().Format("2006-01-02"))))
		b.WriteByte('\n')

		if i < len(reports)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func wordWrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) <= width {
			line += " " + w
		} else {
			lines = append(lines, line)
			line = w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openURL opens url in the default system browser, fire-and-forget.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// Run launches the full-screen review of archived reports, newest first.
func Run(reports []model.Report) error {
	p := tea.NewProgram(newModel(reports), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
