// Package settings holds the orchestrator's own configuration: where the
// external collaborators live and how runs are reported. It is distinct from
// the per-run configuration in package runconfig.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// LocalConfigName is the settings file looked up from the working directory upwards
const LocalConfigName = ".arp-orch.toml"

// Settings holds all orchestrator settings
type Settings struct {
	Tools         ToolsConfig         `toml:"tools"`
	Setup         SetupConfig         `toml:"setup"`
	Notifications NotificationsConfig `toml:"notifications"`
	History       HistoryConfig       `toml:"history"`
}

// ToolsConfig locates the external collaborators
type ToolsConfig struct {
	SolutionRoot string `toml:"solution_root"` // directory holding the query and script trees
	Gaarf        string `toml:"gaarf"`         // report fetching tool
	GaarfBQ      string `toml:"gaarf_bq"`      // warehouse SQL executor
	Python       string `toml:"python"`        // interpreter for the correction scripts
	EnvFile      string `toml:"env_file"`      // extra environment for collaborators
	LogDir       string `toml:"log_dir"`       // per-stage output logs, disabled when empty
}

// SetupConfig holds defaults offered by the interactive setup
type SetupConfig struct {
	DefaultProject string `toml:"default_project"`
	DefaultDataset string `toml:"default_dataset"`
}

// NotificationsConfig holds notification settings
type NotificationsConfig struct {
	Desktop      bool   `toml:"desktop"`
	SlackWebhook string `toml:"slack_webhook"`
}

// HistoryConfig controls the run-history audit log
type HistoryConfig struct {
	Enabled      bool   `toml:"enabled"`
	DatabasePath string `toml:"database_path"`
}

// Default returns Settings with sensible defaults
func Default() *Settings {
	home, _ := os.UserHomeDir()
	return &Settings{
		Tools: ToolsConfig{
			SolutionRoot: ".",
			Gaarf:        "gaarf",
			GaarfBQ:      "gaarf-bq",
			Python:       "python3",
		},
		Setup: SetupConfig{
			DefaultDataset: "arp",
		},
		Notifications: NotificationsConfig{
			Desktop: false,
		},
		History: HistoryConfig{
			Enabled:      false,
			DatabasePath: filepath.Join(home, ".arp-orchestrator", "history.db"),
		},
	}
}

// Load reads settings from a TOML file, falling back to defaults
func Load(path string) (*Settings, error) {
	s := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading settings %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing settings %s: %w", path, err)
	}

	// Expand paths
	s.Tools.SolutionRoot = ExpandPath(s.Tools.SolutionRoot)
	s.Tools.EnvFile = ExpandPath(s.Tools.EnvFile)
	s.Tools.LogDir = ExpandPath(s.Tools.LogDir)
	s.History.DatabasePath = ExpandPath(s.History.DatabasePath)

	return s, nil
}

// LoadWithLocalFallback loads the explicit path if given, else the nearest
// local settings file, else the per-user default location.
func LoadWithLocalFallback(explicitPath string) (*Settings, error) {
	if explicitPath != "" {
		return Load(explicitPath)
	}
	if local := FindLocalConfig(); local != "" {
		return Load(local)
	}
	return Load(DefaultPath())
}

// Save writes the settings to path
func (s *Settings) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := toml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultPath returns the default settings file location
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "arp-orchestrator", "config.toml")
}

// FindLocalConfig walks up from the working directory looking for LocalConfigName
func FindLocalConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, LocalConfigName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
