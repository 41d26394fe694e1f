package tui

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"lexadoc/internal/errx"
	"lexadoc/internal/service"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	boxStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	activeBoxStyle = boxStyle.BorderForeground(lipgloss.Color("12"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe     = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

const docListHeight = 8

// View renders the current screen.
func (m Model) View() string {
	switch m.screen {
	case screenChecking:
		return m.spinner.View() + " Checking session..."
	case screenLogin:
		return m.viewForm("Log in", []string{m.username.View(), m.password.View()},
			"enter: log in  tab: next field  ctrl+r: register  ctrl+c: quit")
	case screenRegister:
		return m.viewForm("Register", []string{m.username.View(), m.email.View(), m.password.View()},
			"enter: create account  tab: next field  esc: back to login")
	}
	if !m.ready {
		return "Loading..."
	}
	snap := m.app.Snapshot()
	header := titleStyle.Render("Document QA")
	if p := snap.Session.Profile; p != nil && p.Username != "" {
		header += dimStyle.Render("  signed in as " + p.Username)
	}
	docs := m.box(focusDocuments).Render(m.renderDocuments(snap))
	answer := boxStyle.Render(m.viewport.View())
	question := m.box(focusQuestion).Render(m.renderQuestion(snap))
	upload := m.box(focusUpload).Render(m.path.View())
	help := dimStyle.Render("tab: focus  enter: select/ask/upload  x: hide  D: delete  r: reload  ctrl+l: clear  ctrl+o: logout")
	return strings.Join([]string{header, docs, answer, question, upload, m.renderStatus(), help}, "\n")
}

func (m Model) viewForm(title string, fields []string, help string) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")
	for _, f := range fields {
		b.WriteString(f)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(help))
	return b.String()
}

func (m Model) box(f focus) lipgloss.Style {
	if m.focus == f {
		return activeBoxStyle
	}
	return boxStyle
}

func (m Model) renderStatus() string {
	if m.status == "" {
		return ""
	}
	if isErrorMessage(m.status) {
		return errorStyle.Render(m.status)
	}
	return statusStyle.Render(m.status)
}

func isErrorMessage(s string) bool {
	switch s {
	case errx.LoginFailedMessage, errx.RegistrationFailedMessage, errx.LoadFailedMessage,
		errx.UploadFailedMessage, errx.DeleteFailedMessage, errx.LogoutFailedMessage,
		errx.NoFileMessage, errx.NoDocumentMessage:
		return true
	}
	return false
}

func (m Model) renderDocuments(snap service.Snapshot) string {
	inv := snap.Inventory
	if inv.Loading {
		return m.spinner.View() + " Loading documents..."
	}
	if len(inv.Documents) == 0 {
		return dimStyle.Render("No documents yet. Press u to upload one.")
	}
	start := 0
	if m.cursor >= docListHeight {
		start = m.cursor - docListHeight + 1
	}
	end := min(len(inv.Documents), start+docListHeight)
	lines := make([]string, 0, end-start+1)
	for i := start; i < end; i++ {
		d := inv.Documents[i]
		cursor := "  "
		if i == m.cursor && m.focus == focusDocuments {
			cursor = "> "
		}
		mark := " "
		if inv.Selected != nil && inv.Selected.ID == d.ID {
			mark = "*"
		}
		line := fmt.Sprintf("%s%s %s", cursor, mark, d.FileName)
		if !d.CreatedAt.IsZero() {
			line += dimStyle.Render("  " + d.CreatedAt.Format("2006-01-02 15:04"))
		}
		lines = append(lines, line)
	}
	if inv.Uploading {
		lines = append(lines, m.spinner.View()+" Uploading...")
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderQuestion(snap service.Snapshot) string {
	q := snap.Query
	if q.Loading {
		return m.question.View() + "  " + m.spinner.View()
	}
	return m.question.View()
}

func (m Model) renderAnswer() string {
	q := m.app.Snapshot().Query
	switch {
	case q.Error != "":
		return errorStyle.Render(q.Error)
	case q.Answer != "":
		return highlightBestSentence(q.Answer, q.Text)
	default:
		return dimStyle.Render("No answer yet.")
	}
}

func (m *Model) resize(width, height int) {
	_, bh := boxStyle.GetFrameSize()
	// header, docs box, question box, upload box, status, help
	reserved := 1 + (docListHeight + bh) + 3*(1+bh) - bh + 2
	vh := height - reserved
	m.viewport.Width = max(20, width-4)
	m.viewport.Height = max(3, vh)
	m.viewport.SetContent(m.renderAnswer())
}

// highlightBestSentence renders text with the sentence sharing the most words with query emphasised.
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
		return strings.Join(trimAll(sentences), " ")
	}
	bestIdx, bestScore := 0, 0
	for i, s := range sentences {
		if score := tokenOverlapScore(qTokens, s); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == bestIdx && bestScore > 0 {
			sent = highlightStyle.Render(sent)
		}
		sentences[i] = sent
	}
	return strings.Join(sentences, " ")
}

func trimAll(ss []string) []string {
	for i := range ss {
		ss[i] = strings.TrimSpace(ss[i])
	}
	return ss
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
