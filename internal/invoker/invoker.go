// Package invoker launches the external collaborators of the pipeline:
// the report fetcher, the warehouse SQL executor and the correction scripts.
package invoker

import (
	"context"
	"strings"

	"github.com/hochfrequenz/arp-orchestrator/internal/mode"
	"github.com/hochfrequenz/arp-orchestrator/internal/runconfig"
)

// Kind identifies which collaborator runs an operation
type Kind string

const (
	KindReportFetch  Kind = "report_fetch"  // gaarf, driven by a glob of query definitions
	KindWarehouseSQL Kind = "warehouse_sql" // gaarf-bq, driven by a glob of SQL files
	KindScript       Kind = "script"        // a standalone correction script
)

// Operation references what a stage invokes. Target is a glob (report fetch,
// warehouse SQL) or a script path, relative to the solution root.
type Operation struct {
	Kind   Kind
	Target string
}

func (o Operation) String() string {
	return string(o.Kind) + " " + o.Target
}

// ArgStyle selects how the run configuration reaches a collaborator
type ArgStyle int

const (
	// StyleInline flattens the in-memory configuration into flags
	StyleInline ArgStyle = iota
	// StyleFile passes the persisted configuration file with -c
	StyleFile
)

func (s ArgStyle) String() string {
	if s == StyleFile {
		return "file"
	}
	return "inline"
}

// Params are the per-invocation inputs shared by every collaborator
type Params struct {
	RunID           string
	Stage           string
	Config          *runconfig.Config
	ConfigPath      string // persisted file, empty for an unsaved configuration
	CredentialsPath string
	LogLevel        mode.LogLevel
	ExtraArgs       []string
}

// Style returns StyleFile when a persisted configuration is available
func (p Params) Style() ArgStyle {
	if p.ConfigPath != "" {
		return StyleFile
	}
	return StyleInline
}

// Command is a fully resolved collaborator invocation
type Command struct {
	Path    string
	Args    []string
	Dir     string
	LogPath string // empty when stage logs are disabled
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// Invoker runs external operations and reports their exit status.
// A non-zero code with a nil error means the collaborator ran and failed;
// a non-nil error means it could not be launched.
type Invoker interface {
	Prepare(op Operation, p Params) (Command, error)
	Invoke(ctx context.Context, op Operation, p Params) (int, error)
}
