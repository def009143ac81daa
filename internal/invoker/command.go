package invoker

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hochfrequenz/arp-orchestrator/internal/runconfig"
	"github.com/hochfrequenz/arp-orchestrator/internal/settings"
)

// Builder turns an operation and its parameters into a Command without side effects
type Builder struct {
	Tools settings.ToolsConfig
}

// Build resolves the executable and argument list for op
func (b Builder) Build(op Operation, p Params) (Command, error) {
	if op.Target == "" {
		return Command{}, fmt.Errorf("operation %s has no target", op.Kind)
	}
	if p.Style() == StyleInline && p.Config == nil {
		return Command{}, fmt.Errorf("stage %s: no configuration to pass", p.Stage)
	}

	root := b.Tools.SolutionRoot
	if root == "" {
		root = "."
	}
	target := filepath.Join(root, filepath.FromSlash(op.Target))

	var cmd Command
	switch op.Kind {
	case KindReportFetch:
		cmd.Path = b.Tools.Gaarf
		cmd.Args = []string{target}
	case KindWarehouseSQL:
		cmd.Path = b.Tools.GaarfBQ
		cmd.Args = []string{target}
	case KindScript:
		cmd.Path = b.Tools.Python
		cmd.Args = []string{target}
	default:
		return Command{}, fmt.Errorf("unknown operation kind %q", op.Kind)
	}
	if cmd.Path == "" {
		return Command{}, fmt.Errorf("no executable configured for %s", op.Kind)
	}
	cmd.Dir = root

	// Collaborators run in the solution root, so operator-relative paths
	// are anchored to the orchestrator's working directory first.
	if p.Style() == StyleFile {
		cmd.Args = append(cmd.Args, "-c", absolute(p.ConfigPath))
	} else {
		cmd.Args = append(cmd.Args, inlineArgs(op.Kind, p.Config)...)
	}
	if p.CredentialsPath != "" {
		cmd.Args = append(cmd.Args, "--ads-config", absolute(p.CredentialsPath))
	}
	if p.LogLevel != "" {
		cmd.Args = append(cmd.Args, "--log", strings.ToLower(string(p.LogLevel)))
	}
	cmd.Args = append(cmd.Args, p.ExtraArgs...)

	if b.Tools.LogDir != "" && p.RunID != "" && p.Stage != "" {
		cmd.LogPath = filepath.Join(b.Tools.LogDir, p.RunID, p.Stage+".log")
	}
	return cmd, nil
}

func absolute(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// inlineArgs flattens the configuration into collaborator flags. The report
// fetcher takes writer options (--bq.*), the warehouse executor takes
// --project and the dataset as a macro, and scripts get both sets. Date
// macros are passed through unresolved; every collaborator expands them itself.
func inlineArgs(kind Kind, c *runconfig.Config) []string {
	var args []string
	w := c.Warehouse

	if kind != KindWarehouseSQL {
		args = append(args,
			"--account", c.AccountDigits(),
			"--api-version", c.EffectiveAPIVersion(),
		)
		if kind == KindReportFetch {
			args = append(args, "--output", "bq")
		}
		args = append(args, "--bq.project", w.Project, "--bq.dataset", w.Dataset)
		if w.Location != "" {
			args = append(args, "--bq.location", w.Location)
		}
	}
	if kind != KindReportFetch {
		args = append(args, "--project", w.Project)
		if w.Location != "" {
			args = append(args, "--dataset-location", w.Location)
		}
		args = append(args, "--macro.bq_dataset", w.Dataset)
	}

	args = append(args,
		"--macro.start_date", string(c.StartDate),
		"--macro.end_date", string(c.EndDate),
	)
	if len(c.Cohorts) > 0 {
		args = append(args, "--template.cohort_days", c.CohortList())
	}

	vo := c.Scripts.VideoOrientation
	if kind == KindScript && vo.Mode != "" {
		args = append(args, "--mode", string(vo.Mode))
		if vo.Mode == runconfig.VideoBasic {
			args = append(args,
				"--element-delimiter", vo.ElementDelimiter,
				"--orientation-position", strconv.Itoa(vo.OrientationPosition),
				"--orientation-delimiter", vo.OrientationDelimiter,
			)
		}
	}
	return args
}
