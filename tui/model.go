// Package tui is the interactive browser for recorded pipeline runs.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hochfrequenz/arp-orchestrator/internal/domain"
)

// StageLoader returns the recorded stages of a run
type StageLoader func(runID string) ([]domain.StageResult, error)

// Model is the TUI application model
type Model struct {
	// Data
	runs   []*domain.Run
	stages map[string][]domain.StageResult
	loader StageLoader
	err    error

	// UI state
	width    int
	height   int
	selected int
	scroll   int
	detail   bool

	now func() time.Time
}

// ModelConfig holds initial data for the TUI model
type ModelConfig struct {
	Runs   []*domain.Run
	Loader StageLoader
	Now    func() time.Time
}

// NewModel creates a new TUI model
func NewModel(cfg ModelConfig) Model {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return Model{
		runs:   cfg.Runs,
		stages: make(map[string][]domain.StageResult),
		loader: cfg.Loader,
		now:    now,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Selected returns the highlighted run, nil when there are none
func (m Model) Selected() *domain.Run {
	if m.selected < 0 || m.selected >= len(m.runs) {
		return nil
	}
	return m.runs[m.selected]
}
