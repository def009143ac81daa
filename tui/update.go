package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hochfrequenz/arp-orchestrator/internal/domain"
)

// StagesLoadedMsg carries the stages of a run loaded in the background
type StagesLoadedMsg struct {
	RunID  string
	Stages []domain.StageResult
	Err    error
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc":
			m.detail = false
		case "j", "down":
			if m.selected < len(m.runs)-1 {
				m.selected++
			}
			if m.selected >= m.scroll+m.visibleRows() {
				m.scroll = m.selected - m.visibleRows() + 1
			}
		case "k", "up":
			if m.selected > 0 {
				m.selected--
			}
			if m.selected < m.scroll {
				m.scroll = m.selected
			}
		case "enter":
			run := m.Selected()
			if run == nil {
				return m, nil
			}
			m.detail = !m.detail
			if m.detail {
				if _, ok := m.stages[run.ID]; !ok {
					return m, loadStages(m.loader, run.ID)
				}
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case StagesLoadedMsg:
		m.err = msg.Err
		if msg.Err == nil {
			m.stages[msg.RunID] = msg.Stages
		}
	}

	return m, nil
}

func (m Model) visibleRows() int {
	// title, header, detail pane and help line
	rows := m.height - 14
	if rows < 5 {
		return 5
	}
	return rows
}

func loadStages(loader StageLoader, runID string) tea.Cmd {
	if loader == nil {
		return nil
	}
	return func() tea.Msg {
		stages, err := loader(runID)
		return StagesLoadedMsg{RunID: runID, Stages: stages, Err: err}
	}
}
