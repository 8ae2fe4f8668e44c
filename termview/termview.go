// Package termview 把分身和生成结果渲染成终端卡片。
package termview

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"persona_studio/orchestrator"
	"persona_studio/persona"
)

const cardWidth = 72

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	subtleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
	tagStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF"))
	analysisStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC")).Italic(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
)

var statusGlyphs = map[orchestrator.Status]string{
	orchestrator.StatusLoading: "…",
	orchestrator.StatusSuccess: "✔",
	orchestrator.StatusError:   "✘",
}

func cardStyle(color string) lipgloss.Style {
	if color == "" {
		color = "#CCCCCC"
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(color)).
		Padding(0, 1).
		Width(cardWidth)
}

func header(p persona.Persona) string {
	return titleStyle.Render(p.Name) + " " + subtleStyle.Render(p.Role+" · "+string(p.Platform))
}

// RenderPersona draws a compact card describing one persona.
func RenderPersona(p persona.Persona) string {
	body := []string{
		header(p),
		subtleStyle.Render("ID " + p.ID + " · 语气: " + p.Tone),
		p.Description,
	}
	return cardStyle(p.AvatarColor).Render(strings.Join(body, "\n"))
}

// RenderResult draws one generated post with its status, analysis and tags.
func RenderResult(res orchestrator.GeneratedContent, p persona.Persona) string {
	if p.ID == "" {
		p.ID = res.PersonaID
		p.Name = res.PersonaID
	}
	glyph := statusGlyphs[res.Status]
	lines := []string{glyph + " " + header(p)}

	switch res.Status {
	case orchestrator.StatusLoading:
		lines = append(lines, subtleStyle.Render("生成中..."))
	case orchestrator.StatusError:
		msg := res.Error
		if msg == "" {
			msg = "generation failed"
		}
		lines = append(lines, errorStyle.Render("生成失败: "+msg))
	default:
		lines = append(lines, "", res.Content)
		if res.Analysis != "" {
			lines = append(lines, "", analysisStyle.Render(res.Analysis))
		}
		if len(res.Tags) > 0 {
			tags := make([]string, 0, len(res.Tags))
			for _, t := range res.Tags {
				tags = append(tags, "#"+strings.TrimPrefix(t, "#"))
			}
			lines = append(lines, tagStyle.Render(strings.Join(tags, " ")))
		}
	}
	return cardStyle(p.AvatarColor).Render(strings.Join(lines, "\n"))
}
