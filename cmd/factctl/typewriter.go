package main

import (
	"context"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"historia-diaria/internal/domain/entity"
)

// typeInterval matches the animation of the web page.
const typeInterval = 50 * time.Millisecond

type typeTickMsg time.Time

// typewriter types the title of a fact one rune per tick, then prints the
// full fact and quits.
type typewriter struct {
	fact     *entity.HistoricalFact
	title    []rune
	shown    int
	interval time.Duration
	done     bool
}

func newTypewriter(f *entity.HistoricalFact) typewriter {
	return typewriter{fact: f, title: []rune(f.Title), interval: typeInterval}
}

func (m typewriter) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return typeTickMsg(t)
	})
}

// Init implements tea.Model.
func (m typewriter) Init() tea.Cmd {
	return m.tick()
}

// Update implements tea.Model.
func (m typewriter) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.done = true
			return m, tea.Quit
		case "enter", " ":
			m.shown = len(m.title)
		}
	case typeTickMsg:
		if m.shown < len(m.title) {
			m.shown++
		}
	}
	if m.shown >= len(m.title) {
		m.done = true
		return m, tea.Quit
	}
	if _, ok := msg.(typeTickMsg); ok {
		return m, m.tick()
	}
	return m, nil
}

// View implements tea.Model.
func (m typewriter) View() string {
	if m.done {
		return renderFact(m.fact)
	}
	return headerStyle.Render("HISTORIA_DIARIA.EXE") + "\n" +
		titleStyle.Render(string(m.title[:m.shown])) + okStyle.Render("█") + "\n"
}

// runTypewriter runs the animation on out until it finishes or ctx is done.
func runTypewriter(ctx context.Context, out io.Writer, f *entity.HistoricalFact) error {
	_, err := tea.NewProgram(newTypewriter(f), tea.WithContext(ctx), tea.WithOutput(out)).Run()
	return err
}
