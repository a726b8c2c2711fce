package main

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"historia-diaria/internal/domain/entity"
	factUC "historia-diaria/internal/usecase/fact"
)

// Terminal palette of the web page.
const (
	colorPhosphor = "#33FF33"
	colorAmber    = "#FFB000"
	colorDim      = "#1F7A1F"
	colorAlert    = "#FF5555"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(colorPhosphor))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(colorAmber)).
			MarginBottom(1)

	categoryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorAmber))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(colorPhosphor))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorAmber))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorAlert))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorDim))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(colorDim)).
			Padding(0, 1).
			Width(80)
)

const checkPreviewRunes = 100

// renderFact draws one fact inside a terminal box.
func renderFact(f *entity.HistoricalFact) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("HISTORIA_DIARIA.EXE"))
	b.WriteString("\n")
	b.WriteString(categoryStyle.Render("[" + strings.ToUpper(f.Category) + "]"))
	b.WriteString(" ")
	b.WriteString(dimStyle.Render(factUC.HistoricalDateLabel(f.HistoricalDate)))
	b.WriteString("\n\n")
	b.WriteString(titleStyle.Render(f.Title))
	b.WriteString("\n\n")
	b.WriteString(f.Description)
	if len(f.Sources) > 0 {
		b.WriteString("\n\n")
		b.WriteString(dimStyle.Render("Fuentes:"))
		for _, s := range f.Sources {
			b.WriteString("\n  > " + s)
		}
	}
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("publicado " + f.PublishDate))
	return boxStyle.Render(b.String()) + "\n"
}

// renderCheck lists every fact of mode and today's fact, if any.
func renderCheck(mode entity.RunMode, facts []*entity.HistoricalFact, today *entity.HistoricalFact) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s: %d facts", mode.Table(), len(facts))))
	b.WriteString("\n")
	for _, f := range facts {
		fmt.Fprintf(&b, "%s %s %s\n",
			dimStyle.Render(f.PublishDate),
			categoryStyle.Render("["+strings.ToUpper(f.Category)+"]"),
			titleStyle.Render(f.Title))
		fmt.Fprintf(&b, "    %s\n", cut(f.Description, checkPreviewRunes))
		fmt.Fprintf(&b, "    %s\n", dimStyle.Render(fmt.Sprintf("%d fuentes", len(f.Sources))))
	}
	b.WriteString("\n")
	if today == nil {
		b.WriteString(warnStyle.Render("today: no fact published"))
		b.WriteString("\n")
		return b.String()
	}
	b.WriteString(okStyle.Render("today: " + today.Title))
	b.WriteString("\n")
	return b.String()
}

// renderArchive prints the archive tree the sidebar shows.
func renderArchive(a *factUC.Archive) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("ARCHIVO (%d)", a.Total)))
	b.WriteString("\n")
	for _, y := range a.Years {
		fmt.Fprintf(&b, "%s\n", titleStyle.Render(fmt.Sprintf("%d (%d)", y.Year, y.Total)))
		for _, m := range y.Months {
			fmt.Fprintf(&b, "  %s\n", categoryStyle.Render(fmt.Sprintf("%s (%d)", m.Code, len(m.Entries))))
			for _, e := range m.Entries {
				fmt.Fprintf(&b, "    %s %s %s\n", dimStyle.Render(e.Label), dimStyle.Render(e.PublishDate), e.Title)
			}
		}
	}
	return b.String()
}

func cut(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
