package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

// IsTTY reports whether w is a terminal. retrieverctl status --watch
// uses it to turn styling off when output is not a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// DetectNoColor reports whether the NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// refreshMsg ticks the watch loop to pull a fresh snapshot.
type refreshMsg struct{}

// watchModel is a bubbletea model that polls a status source on an
// interval and renders the latest snapshot.
type watchModel struct {
	fetch    func() StatusInfo
	interval time.Duration
	styles   Styles
	info     StatusInfo
}

func newWatchModel(fetch func() StatusInfo, interval time.Duration, styles Styles) watchModel {
	return watchModel{fetch: fetch, interval: interval, styles: styles, info: fetch()}
}

func (m watchModel) Init() tea.Cmd {
	return m.tick()
}

func (m watchModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg { return refreshMsg{} })
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case refreshMsg:
		m.info = m.fetch()
		return m, m.tick()
	}
	return m, nil
}

func (m watchModel) View() string {
	s := m.styles
	var out string
	out += s.Header.Render("Retriever Status") + "  " + s.Dim.Render("(q to quit)") + "\n\n"
	out += fmt.Sprintf("  Mode:    %s\n", s.Active.Render(m.info.Mode()))
	if m.info.CurrentVersion != "" {
		out += fmt.Sprintf("  Version: %s\n", m.info.CurrentVersion)
	}
	out += "\n"
	out += fmt.Sprintf("  BM25   %s  chunks=%d\n", readyBadge(s, m.info.BM25Ready), m.info.BM25Chunks)
	out += fmt.Sprintf("  Dense  %s  chunks=%d\n", readyBadge(s, m.info.VectorReady), m.info.VectorChunks)
	out += "\n"
	out += fmt.Sprintf("  Cache  %d/%d entries, %.1f%% hit rate\n",
		m.info.CacheSize, m.info.CacheMaxSize, m.info.CacheHitRate*100)
	return out
}

func readyBadge(s Styles, ready bool) string {
	if ready {
		return s.Success.Render("ready")
	}
	return s.Warning.Render("not ready")
}

// Watch runs a live-updating status dashboard until the user quits or ctx
// is cancelled, polling fetch every interval.
func Watch(ctx context.Context, fetch func() StatusInfo, interval time.Duration, noColor bool) error {
	model := newWatchModel(fetch, interval, GetStyles(noColor))
	program := tea.NewProgram(model, tea.WithContext(ctx))
	_, err := program.Run()
	return err
}
