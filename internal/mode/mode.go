// Package mode turns the command line into an immutable run-mode descriptor.
package mode

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
)

// LogLevel is the verbosity requested for the orchestrator and its collaborators
type LogLevel string

const (
	LevelDebug   LogLevel = "DEBUG"
	LevelInfo    LogLevel = "INFO"
	LevelWarning LogLevel = "WARNING"
	LevelError   LogLevel = "ERROR"
)

// ParseLogLevel accepts a level name in any case
func ParseLogLevel(s string) (LogLevel, error) {
	switch l := LogLevel(strings.ToUpper(strings.TrimSpace(s))); l {
	case LevelDebug, LevelInfo, LevelWarning, LevelError:
		return l, nil
	default:
		return "", fmt.Errorf("invalid log level %q (want DEBUG, INFO, WARNING or ERROR)", s)
	}
}

// CredentialsFileName is the well-known credentials file in the user's home directory
const CredentialsFileName = "google-ads.yaml"

// DefaultCredentialsPath returns the credentials location used when -g is not given
func DefaultCredentialsPath(home string) string {
	return filepath.Join(home, CredentialsFileName)
}

// Descriptor is the parsed command-line intent for one process
type Descriptor struct {
	Quiet        bool
	Legacy       bool
	Backfill     bool
	BackfillOnly bool
	Help         bool

	ConfigPath   string // explicit -c path, empty when not given
	SettingsPath string // explicit --settings path, empty when not given
	LogLevel     LogLevel

	CredentialsPath     string
	CredentialsExplicit bool // -g was given on the command line
}

// Args renders the descriptor back into the flags that produce it
func (d Descriptor) Args() []string {
	var args []string
	if d.Quiet {
		args = append(args, "--quiet")
	}
	if d.Legacy {
		args = append(args, "--legacy")
	}
	if d.Backfill {
		args = append(args, "--backfill")
	}
	if d.BackfillOnly {
		args = append(args, "--backfill-only")
	}
	if d.ConfigPath != "" {
		args = append(args, "--config", d.ConfigPath)
	}
	if d.CredentialsExplicit {
		args = append(args, "--google-ads-config", d.CredentialsPath)
	}
	if d.LogLevel != "" && d.LogLevel != LevelInfo {
		args = append(args, "--loglevel", string(d.LogLevel))
	}
	return args
}

// String implements fmt.Stringer
func (d Descriptor) String() string {
	return strings.Join(d.Args(), " ")
}

// logLevelValue adapts LogLevel to pflag.Value
type logLevelValue LogLevel

func (v *logLevelValue) String() string { return string(*v) }
func (v *logLevelValue) Type() string   { return "level" }

func (v *logLevelValue) Set(s string) error {
	l, err := ParseLogLevel(s)
	if err != nil {
		return err
	}
	*v = logLevelValue(l)
	return nil
}

// Flags holds the flag bindings registered on a FlagSet
type Flags struct {
	fs           *pflag.FlagSet
	quiet        bool
	legacy       bool
	backfill     bool
	backfillOnly bool
	help         bool
	config       string
	settings     string
	credentials  string
	level        logLevelValue
}

// Register defines the run-mode flags on fs. home is used for the default credentials path.
// Interspersed arguments are disabled so parsing stops at the first positional token.
func Register(fs *pflag.FlagSet, home string) *Flags {
	f := &Flags{fs: fs, level: logLevelValue(LevelInfo)}
	fs.SetInterspersed(false)

	fs.StringVarP(&f.config, "config", "c", "", "configuration file to use")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "skip all interactive confirmation")
	fs.StringVarP(&f.credentials, "google-ads-config", "g", DefaultCredentialsPath(home), "Google Ads credentials file")
	fs.VarP(&f.level, "loglevel", "l", "log level: DEBUG, INFO, WARNING or ERROR")
	fs.BoolVar(&f.legacy, "legacy", false, "also generate legacy views")
	fs.BoolVar(&f.backfill, "backfill", false, "backfill snapshots after the normal sequence")
	fs.BoolVar(&f.backfillOnly, "backfill-only", false, "run only the snapshot backfill")
	fs.StringVar(&f.settings, "settings", "", "orchestrator settings file (TOML)")
	fs.BoolVarP(&f.help, "help", "h", false, "show usage")
	return f
}

// Descriptor snapshots the parsed flag values
func (f *Flags) Descriptor() Descriptor {
	return Descriptor{
		Quiet:               f.quiet,
		Legacy:              f.legacy,
		Backfill:            f.backfill,
		BackfillOnly:        f.backfillOnly,
		Help:                f.help,
		ConfigPath:          f.config,
		SettingsPath:        f.settings,
		LogLevel:            LogLevel(f.level),
		CredentialsPath:     f.credentials,
		CredentialsExplicit: f.fs.Changed("google-ads-config"),
	}
}
