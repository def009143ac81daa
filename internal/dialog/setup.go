package dialog

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/hochfrequenz/arp-orchestrator/internal/domain"
	"github.com/hochfrequenz/arp-orchestrator/internal/mode"
	"github.com/hochfrequenz/arp-orchestrator/internal/pipeline"
	"github.com/hochfrequenz/arp-orchestrator/internal/runconfig"
)

// setupDialog asks for every field of a fresh configuration and offers to save it
func (r *Resolver) setupDialog(ctx context.Context, m mode.Descriptor) (Result, error) {
	cfg := runconfig.Default()
	now := r.now()

	steps := []func() error{
		func() (err error) {
			cfg.Account, err = r.askValid("Google Ads account ID", "", runconfig.ValidateAccount)
			return err
		},
		func() (err error) {
			cfg.Warehouse.Project, err = r.askValid("BigQuery project", r.setup.DefaultProject, nil)
			return err
		},
		func() (err error) {
			def := r.setup.DefaultDataset
			if def == "" {
				def = runconfig.DefaultDataset
			}
			cfg.Warehouse.Dataset, err = r.askValid("BigQuery dataset", def, runconfig.ValidateDataset)
			return err
		},
		func() error {
			s, err := r.askValid("Start date (YYYY-MM-DD or :YYYYMMDD-N)", string(runconfig.DefaultStartDate), func(s string) error {
				_, err := runconfig.DateSpec(s).Resolve(now)
				return err
			})
			cfg.StartDate = runconfig.DateSpec(s)
			return err
		},
		func() error {
			start, _ := cfg.StartDate.Resolve(now)
			s, err := r.askValid("End date (YYYY-MM-DD or :YYYYMMDD-N)", string(runconfig.DefaultEndDate), func(s string) error {
				end, err := runconfig.DateSpec(s).Resolve(now)
				if err != nil {
					return err
				}
				if start.After(end) {
					return fmt.Errorf("end date %s is before start date %s",
						end.Format(runconfig.DateLayout), start.Format(runconfig.DateLayout))
				}
				return nil
			})
			cfg.EndDate = runconfig.DateSpec(s)
			return err
		},
		func() error {
			s, err := r.askValid("Cohorts (days, comma separated)", cfg.CohortList(), func(s string) error {
				_, err := runconfig.ParseCohorts(s)
				return err
			})
			if err != nil {
				return err
			}
			cfg.Cohorts, _ = runconfig.ParseCohorts(s)
			return nil
		},
		func() error {
			s, err := r.askValid("Video orientation: 1) placeholders 2) regex 3) youtube", string(runconfig.VideoDisabled), func(s string) error {
				_, err := runconfig.ParseVideoParsingMode(s)
				return err
			})
			if err != nil {
				return err
			}
			cfg.Scripts.VideoOrientation.Mode, _ = runconfig.ParseVideoParsingMode(s)
			return nil
		},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if err := step(); err != nil {
			return Result{}, err
		}
	}

	if cfg.Scripts.VideoOrientation.Mode == runconfig.VideoBasic {
		if err := r.askVideoRegex(&cfg.Scripts.VideoOrientation); err != nil {
			return Result{}, err
		}
	}
	if cfg.Scripts.VideoOrientation.Mode != runconfig.VideoDisabled && len(cfg.Cohorts) == 0 {
		def := runconfig.Default()
		r.prompter.Problem("video orientation needs cohorts, using %s", def.CohortList())
		cfg.Cohorts = def.Cohorts
	}

	if err := cfg.Validate(now); err != nil {
		return Result{}, err
	}
	return r.offerSave(&cfg, m)
}

func (r *Resolver) askVideoRegex(vo *runconfig.VideoOrientation) (err error) {
	required := func(s string) error {
		if s == "" {
			return fmt.Errorf("a value is required")
		}
		return nil
	}
	if vo.ElementDelimiter, err = r.askValid("Element delimiter in asset names", "_", required); err != nil {
		return err
	}
	pos, err := r.askValid("Position of the orientation element (1 = first)", "", func(s string) error {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return fmt.Errorf("position must be a number of at least 1")
		}
		return nil
	})
	if err != nil {
		return err
	}
	vo.OrientationPosition, _ = strconv.Atoi(pos)
	vo.OrientationDelimiter, err = r.askValid("Delimiter inside the orientation element", "x", required)
	return err
}

// askValid repeats question until check accepts the answer. An empty
// answer without a default is never accepted.
func (r *Resolver) askValid(question, def string, check func(string) error) (string, error) {
	for {
		answer, err := r.prompter.AskDefault(question, def)
		if err != nil {
			return "", abortOn(err)
		}
		if answer == "" {
			r.prompter.Problem("a value is required")
			continue
		}
		if check != nil {
			if err := check(answer); err != nil {
				r.prompter.Problem("%v", err)
				continue
			}
		}
		return answer, nil
	}
}

// offerSave asks whether to persist cfg. Saving builds every stage
// invocation first so that a configuration the pipeline cannot run is
// never written.
func (r *Resolver) offerSave(cfg *runconfig.Config, m mode.Descriptor) (Result, error) {
	path := r.DefaultPath()
	for {
		answer, err := r.prompter.Ask(fmt.Sprintf("Save configuration to %s? [y/n/q]", path))
		if err != nil {
			return Result{}, abortOn(err)
		}
		switch ParseToken(answer) {
		case TokenYes:
			if err := r.persist(cfg, m, path); err != nil {
				return Result{}, err
			}
			return Result{Config: cfg, Source: domain.SourceFresh, Path: path}, nil
		case TokenNo:
			return Result{Config: cfg, Source: domain.SourceFresh}, nil
		case TokenQuit:
			return Result{}, domain.InteractiveAbort()
		default:
			r.prompter.Problem("please answer y, n or q")
		}
	}
}

func (r *Resolver) persist(cfg *runconfig.Config, m mode.Descriptor, path string) error {
	if r.dryRun != nil {
		cmds, err := r.dryRun.DryRun(pipeline.Run{ID: "dry-run", Config: cfg, ConfigPath: path, Mode: m})
		if err != nil {
			return domain.ConfigInvalid(fmt.Errorf("dry run: %w", err))
		}
		r.logger.Debug("dry run passed", zap.Int("invocations", len(cmds)))
	}
	if err := cfg.Save(path); err != nil {
		return err
	}
	r.logger.Info("configuration saved", zap.String("path", path))
	return nil
}
