// Package runconfig holds the validated parameter set of one pipeline run
// and its on-disk YAML representation.
package runconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hochfrequenz/arp-orchestrator/internal/domain"
)

// SolutionName is the display name the default configuration file is derived from
const SolutionName = "App Reporting Pack"

// DefaultAPIVersion is the Google Ads API version used when a configuration does not pin one
const DefaultAPIVersion = "17"

// Defaults offered by the interactive setup
const (
	DefaultDataset   = "arp"
	DefaultStartDate = DateSpec(":YYYYMMDD-90")
	DefaultEndDate   = DateSpec(":YYYYMMDD-1")
)

// DefaultCohorts are the lag buckets (in days) offered by the interactive setup
var DefaultCohorts = []int{0, 1, 3, 5, 7, 14, 30}

// DefaultFileName returns the persisted configuration name: the solution
// name lower-cased with spaces replaced by underscores.
func DefaultFileName() string {
	return strings.ReplaceAll(strings.ToLower(SolutionName), " ", "_") + ".yaml"
}

// VideoParsingMode selects how video orientation is derived
type VideoParsingMode string

const (
	// VideoDisabled writes "Unknown" placeholders for every video
	VideoDisabled VideoParsingMode = "placeholders"
	// VideoBasic parses the orientation out of the asset name
	VideoBasic VideoParsingMode = "regex"
	// VideoExtended looks the orientation up through the YouTube Data API
	VideoExtended VideoParsingMode = "youtube"
)

// ParseVideoParsingMode accepts a mode name or its menu number (1, 2, 3)
func ParseVideoParsingMode(s string) (VideoParsingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", string(VideoDisabled), "disabled":
		return VideoDisabled, nil
	case "2", string(VideoBasic), "basic":
		return VideoBasic, nil
	case "3", string(VideoExtended), "extended":
		return VideoExtended, nil
	default:
		return "", fmt.Errorf("unknown video parsing mode %q", s)
	}
}

// Warehouse identifies where tables are written
type Warehouse struct {
	Project  string `yaml:"project" validate:"required"`
	Dataset  string `yaml:"dataset" validate:"required,identifier"`
	Location string `yaml:"location,omitempty"`
}

// VideoOrientation configures the video orientation stage
type VideoOrientation struct {
	Mode                 VideoParsingMode `yaml:"mode" validate:"required,oneof=placeholders regex youtube"`
	ElementDelimiter     string           `yaml:"element_delimiter,omitempty" validate:"required_if=Mode regex"`
	OrientationPosition  int              `yaml:"orientation_position,omitempty" validate:"required_if=Mode regex,omitempty,gte=1"`
	OrientationDelimiter string           `yaml:"orientation_delimiter,omitempty" validate:"required_if=Mode regex"`
}

// Scripts holds the options of the helper scripts, keyed the way the
// scripts look them up in the configuration file
type Scripts struct {
	VideoOrientation VideoOrientation `yaml:"video_orientation"`
}

// Config is a RunConfiguration. It is never mutated once handed to the sequencer.
type Config struct {
	Account         string    `yaml:"account" validate:"required,account_id"`
	APIVersion      string    `yaml:"api_version,omitempty" validate:"omitempty,numeric"`
	Warehouse       Warehouse `yaml:"warehouse"`
	StartDate       DateSpec  `yaml:"start_date" validate:"required,datespec"`
	EndDate         DateSpec  `yaml:"end_date" validate:"required,datespec"`
	Cohorts         []int     `yaml:"cohorts,flow,omitempty" validate:"unique,dive,gte=0"`
	Scripts         Scripts   `yaml:"scripts"`
	CredentialsPath string    `yaml:"google_ads_config,omitempty"`
}

// Default returns the configuration the setup dialog starts from
func Default() Config {
	return Config{
		APIVersion: DefaultAPIVersion,
		Warehouse:  Warehouse{Dataset: DefaultDataset},
		StartDate:  DefaultStartDate,
		EndDate:    DefaultEndDate,
		Cohorts:    append([]int(nil), DefaultCohorts...),
		Scripts: Scripts{
			VideoOrientation: VideoOrientation{Mode: VideoDisabled},
		},
	}
}

// EffectiveAPIVersion returns the pinned API version or the default
func (c *Config) EffectiveAPIVersion() string {
	if c.APIVersion == "" {
		return DefaultAPIVersion
	}
	return c.APIVersion
}

// AccountDigits returns the account id without dashes, as the API expects it
func (c *Config) AccountDigits() string {
	return strings.ReplaceAll(c.Account, "-", "")
}

// CohortList renders the cohorts as a comma separated list
func (c *Config) CohortList() string {
	parts := make([]string, 0, len(c.Cohorts))
	for _, n := range c.Cohorts {
		parts = append(parts, strconv.Itoa(n))
	}
	return strings.Join(parts, ",")
}

// ParseCohorts parses "0, 1,3" into a sorted list of day counts
func ParseCohorts(s string) ([]int, error) {
	var out []int
	seen := make(map[int]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid cohort %q (expected a non-negative number of days)", part)
		}
		if seen[n] {
			return nil, fmt.Errorf("duplicate cohort %d", n)
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Ints(out)
	return out, nil
}

// Range resolves the configured dates against now
func (c *Config) Range(now time.Time) (start, end time.Time, err error) {
	start, err = c.StartDate.Resolve(now)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start_date: %w", err)
	}
	end, err = c.EndDate.Resolve(now)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("end_date: %w", err)
	}
	return start, end, nil
}

// Parse decodes a configuration document. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("configuration is empty")
		}
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	return &cfg, nil
}

// Marshal encodes the configuration as YAML
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Load reads a persisted configuration. A missing or unreadable file is
// ConfigNotFound, undecodable content is ConfigInvalid. Load does not
// validate; call Validate with the run's clock.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.ConfigNotFound(fmt.Errorf("reading %s: %w", path, err))
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, domain.ConfigInvalid(fmt.Errorf("%s: %w", path, err))
	}
	return cfg, nil
}

// Save writes the configuration to path, replacing any existing file atomically
func (c *Config) Save(path string) error {
	data, err := c.Marshal()
	if err != nil {
		return fmt.Errorf("encoding configuration: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".arp-config-*.yaml")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing configuration: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing configuration: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("saving configuration to %s: %w", path, err)
	}
	return nil
}
