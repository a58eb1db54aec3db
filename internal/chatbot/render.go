package chatbot

import (
	"fmt"
	"strings"

	"TutorChat/internal/evaluation"
	"TutorChat/internal/session"

	"github.com/charmbracelet/lipgloss"
)

// Renderer formats conversation entries for the terminal
type Renderer struct {
	teacherStyle lipgloss.Style
	studentStyle lipgloss.Style
	noticeStyle  lipgloss.Style
	evalStyle    lipgloss.Style
	labelStyle   lipgloss.Style
	metaStyle    lipgloss.Style
	promptStyle  lipgloss.Style
	bodyStyle    lipgloss.Style
}

// NewRenderer creates a renderer. With noColor every style is plain.
func NewRenderer(noColor bool) *Renderer {
	if noColor {
		plain := lipgloss.NewStyle()
		return &Renderer{
			teacherStyle: plain,
			studentStyle: plain,
			noticeStyle:  plain,
			evalStyle:    plain,
			labelStyle:   plain,
			metaStyle:    plain,
			promptStyle:  plain,
			bodyStyle:    plain.PaddingLeft(2),
		}
	}

	return &Renderer{
		teacherStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("135")),
		studentStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")),
		noticeStyle: lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("243")),
		evalStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		labelStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("110")),
		metaStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true),
		promptStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")),
		bodyStyle: lipgloss.NewStyle().
			PaddingLeft(2),
	}
}

// Message renders one log entry
func (r *Renderer) Message(m session.Message) string {
	switch {
	case m.IsEvaluation:
		return r.evaluation(m)
	case m.Notice:
		return r.noticeStyle.Render("Teacher: "+m.Body) + "\n"
	case m.Speaker == session.Student:
		return r.studentStyle.Render("You:") + "\n" + r.bodyStyle.Render(m.Body) + "\n"
	default:
		return r.teacherStyle.Render("Teacher:") + "\n" + r.bodyStyle.Render(m.Body) + "\n"
	}
}

func (r *Renderer) evaluation(m session.Message) string {
	var b strings.Builder
	b.WriteString(r.evalStyle.Render("Evaluation:"))
	b.WriteString("\n")
	b.WriteString(r.fields(m.EvaluationData))
	return b.String()
}

func (r *Renderer) fields(raw []byte) string {
	var b strings.Builder
	for _, f := range evaluation.Fields(raw) {
		b.WriteString("  ")
		if f.Label != "" {
			b.WriteString(r.labelStyle.Render(f.Label + ":"))
			b.WriteString(" ")
		}
		b.WriteString(f.Value)
		b.WriteString("\n")
	}
	return b.String()
}

// Attempt renders one journal entry
func (r *Renderer) Attempt(a session.Attempt) string {
	var b strings.Builder
	b.WriteString(r.metaStyle.Render(a.CreatedAt.Local().Format("2006-01-02 15:04")))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  %s %s\n", r.labelStyle.Render("Task:"), a.Task)
	fmt.Fprintf(&b, "  %s %s\n", r.labelStyle.Render("Answer:"), a.Translation)
	for _, line := range strings.Split(strings.TrimRight(r.fields(a.Evaluation), "\n"), "\n") {
		b.WriteString("  " + line + "\n")
	}
	return b.String()
}

// Meta renders secondary information such as the banner
func (r *Renderer) Meta(s string) string {
	return r.metaStyle.Render(s)
}

// Prompt renders the input prompt
func (r *Renderer) Prompt() string {
	return r.promptStyle.Render("You:") + " "
}
