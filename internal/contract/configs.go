package contract

import (
	"fmt"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/evidence/schema"
)

// Default values for configuration.
const (
	DefaultMaxBytes        int64 = 50_000_000
	DefaultThreshold             = 1.0
	DefaultTimeout               = 30 * time.Second
	DefaultMaxTextBytes          = 2 << 20
	DefaultOutDir                = "out"
	DefaultRulesPath             = "rules.yml"
	DefaultIdleGap               = 4 * time.Hour
	DefaultMinSession            = 15 * time.Minute
	DefaultMaxSession            = 4 * time.Hour
	DefaultProvenanceScore       = 2.0
	DefaultResultLimit           = 25
	MaxResultLimit               = 1000
	DefaultPrecision             = 1
)

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// Config holds the runtime configuration for one invocation.
// This struct is the "final, validated" config.
type Config struct {
	Roots     []string // Directories and files given as arguments
	PathLists []string // Files holding one path per line
	Mboxes    []string
	Calendars []string

	Since      time.Time // Zero means unbounded
	Until      time.Time // Zero means unbounded; bare days are inclusive to 23:59:59
	MaxBytes   int64
	Extensions []string // Overrides the rules allow-list when set
	Excludes   []string
	Categories []string // Pass-2 category subset, empty means all
	Threshold  float64
	Gate       bool

	RulesPath    string
	OutDir       string
	SnapshotPath string

	Workers      int
	Timeout      time.Duration
	MaxTextBytes int

	OwnerEmails     []string
	ProvenanceScore float64

	IdleGap    time.Duration
	MinSession time.Duration
	MaxSession time.Duration

	ExportParquet bool
	ResultLimit   int
	Precision     int
	Width         int // Terminal width override (0 = auto-detect)
	UseColors     bool
	Quiet         bool
	LogLevel      string
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// This is set manually from positional args, so no tag
	Roots []string

	// --- Source flags ---
	PathList string `mapstructure:"path-list"`
	Mbox     string `mapstructure:"mbox"`
	ICS      string `mapstructure:"ics"`

	// --- Filter flags ---
	ModifiedSince string  `mapstructure:"modified-since"`
	ModifiedUntil string  `mapstructure:"modified-until"`
	MaxBytes      int64   `mapstructure:"max-bytes"`
	OnlyExt       string  `mapstructure:"only-ext"`
	Exclude       string  `mapstructure:"exclude"`
	Categories    string  `mapstructure:"categories"`
	Threshold     float64 `mapstructure:"threshold"`
	Gate          bool    `mapstructure:"gate"`

	// --- Files and directories ---
	Rules    string `mapstructure:"rules"`
	Out      string `mapstructure:"out"`
	Snapshot string `mapstructure:"snapshot"`

	// --- Execution ---
	Workers      int    `mapstructure:"workers"`
	Timeout      string `mapstructure:"timeout"`
	MaxTextBytes int    `mapstructure:"max-text-bytes"`

	// --- Mail provenance ---
	OwnerEmail      string  `mapstructure:"owner-email"`
	ProvenanceScore float64 `mapstructure:"provenance-score"`

	// --- Effort ---
	IdleGap    string `mapstructure:"idle-gap"`
	MinSession string `mapstructure:"min-session"`
	MaxSession string `mapstructure:"max-session"`

	// --- Output ---
	ExportParquet bool   `mapstructure:"export-parquet"`
	Limit         int    `mapstructure:"limit"`
	Precision     int    `mapstructure:"precision"`
	Width         int    `mapstructure:"width"`
	Color         string `mapstructure:"color"`
	Quiet         bool   `mapstructure:"quiet"`
	LogLevel      string `mapstructure:"log-level"`
}

// HasSources reports whether any input source was configured.
func (c *Config) HasSources() bool {
	return len(c.Roots)+len(c.PathLists)+len(c.Mboxes)+len(c.Calendars) > 0
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Roots = slices.Clone(c.Roots)
	clone.PathLists = slices.Clone(c.PathLists)
	clone.Mboxes = slices.Clone(c.Mboxes)
	clone.Calendars = slices.Clone(c.Calendars)
	clone.Extensions = slices.Clone(c.Extensions)
	clone.Excludes = slices.Clone(c.Excludes)
	clone.Categories = slices.Clone(c.Categories)
	clone.OwnerEmails = slices.Clone(c.OwnerEmails)
	return &clone
}

// WindowEnd returns the upper bound of the date window, or now when unbounded.
func (c *Config) WindowEnd(now time.Time) time.Time {
	if c.Until.IsZero() || c.Until.After(now) {
		return now
	}
	return c.Until
}

// ProcessAndValidate performs all complex parsing and validation on the raw inputs
// and updates the final Config struct. Every failure is a *ConfigError.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processDateWindow(cfg, input, time.Now()); err != nil {
		return err
	}
	if err := processDurations(cfg, input); err != nil {
		return err
	}
	if err := processSources(cfg, input); err != nil {
		return err
	}
	return nil
}

// validateSimpleInputs processes and validates all non-path related fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.Gate = input.Gate
	cfg.ExportParquet = input.ExportParquet
	cfg.Width = input.Width
	cfg.Quiet = input.Quiet
	cfg.Categories = SplitList(input.Categories)
	cfg.OwnerEmails = SplitList(strings.ToLower(input.OwnerEmail))

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return &ConfigError{Field: "color", Err: err}
	}
	cfg.UseColors = colors

	if input.Workers <= 0 {
		return NewConfigError("workers", "must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	if input.MaxBytes < 0 {
		return NewConfigError("max-bytes", "cannot be negative (received %d)", input.MaxBytes)
	}
	cfg.MaxBytes = input.MaxBytes

	if input.Threshold < 0 {
		return NewConfigError("threshold", "cannot be negative (received %g)", input.Threshold)
	}
	cfg.Threshold = input.Threshold

	if input.ProvenanceScore < 0 {
		return NewConfigError("provenance-score", "cannot be negative (received %g)", input.ProvenanceScore)
	}
	cfg.ProvenanceScore = input.ProvenanceScore

	if input.MaxTextBytes <= 0 {
		return NewConfigError("max-text-bytes", "must be greater than 0 (received %d)", input.MaxTextBytes)
	}
	cfg.MaxTextBytes = input.MaxTextBytes

	if input.Limit <= 0 || input.Limit > MaxResultLimit {
		return NewConfigError("limit", "must be greater than 0 and cannot exceed %d (received %d)", MaxResultLimit, input.Limit)
	}
	cfg.ResultLimit = input.Limit

	if input.Precision < 1 || input.Precision > 2 {
		return NewConfigError("precision", "must be 1 or 2 (received %d)", input.Precision)
	}
	cfg.Precision = input.Precision

	switch level := strings.ToLower(input.LogLevel); level {
	case "", "info":
		cfg.LogLevel = "info"
	case "debug", "warn", "error":
		cfg.LogLevel = level
	default:
		return NewConfigError("log-level", "must be debug, info, warn or error (received %q)", input.LogLevel)
	}

	for _, ext := range SplitList(input.OnlyExt) {
		if norm := schema.NormalizeExt(ext); norm != "" {
			cfg.Extensions = append(cfg.Extensions, norm)
		}
	}

	// Directories nobody wants scanned, on top of the rules exclude_dirs.
	cfg.Excludes = []string{".git/", ".svn/", ".hg/", "node_modules/", "__pycache__/", ".Trash/", "*.tmp", "~$*"}
	cfg.Excludes = append(cfg.Excludes, SplitList(input.Exclude)...)

	return nil
}

// processDateWindow parses the modification date window.
func processDateWindow(cfg *Config, input *ConfigRawInput, now time.Time) error {
	since, err := ParseDateBound(input.ModifiedSince, now, false)
	if err != nil {
		return &ConfigError{Field: "modified-since", Err: err}
	}
	until, err := ParseDateBound(input.ModifiedUntil, now, true)
	if err != nil {
		return &ConfigError{Field: "modified-until", Err: err}
	}
	if !since.IsZero() && !until.IsZero() && since.After(until) {
		return NewConfigError("modified-since", "start (%s) cannot be after end (%s)", since.Format(time.RFC3339), until.Format(time.RFC3339))
	}
	cfg.Since = since
	cfg.Until = until
	return nil
}

// processDurations parses timeouts and effort thresholds.
func processDurations(cfg *Config, input *ConfigRawInput) error {
	parse := func(field, value string, fallback time.Duration) (time.Duration, error) {
		if strings.TrimSpace(value) == "" {
			return fallback, nil
		}
		d, err := ParseSpan(value)
		if err != nil {
			return 0, &ConfigError{Field: field, Err: err}
		}
		return d, nil
	}

	var err error
	if cfg.Timeout, err = parse("timeout", input.Timeout, DefaultTimeout); err != nil {
		return err
	}
	if cfg.IdleGap, err = parse("idle-gap", input.IdleGap, DefaultIdleGap); err != nil {
		return err
	}
	if cfg.MinSession, err = parse("min-session", input.MinSession, DefaultMinSession); err != nil {
		return err
	}
	if cfg.MaxSession, err = parse("max-session", input.MaxSession, DefaultMaxSession); err != nil {
		return err
	}
	if cfg.MinSession > cfg.MaxSession {
		return NewConfigError("min-session", "%s cannot exceed max-session %s", cfg.MinSession, cfg.MaxSession)
	}
	return nil
}

// processSources resolves input paths and output locations to absolute paths.
func processSources(cfg *Config, input *ConfigRawInput) error {
	abs := func(field string, paths []string) ([]string, error) {
		out := make([]string, 0, len(paths))
		for _, p := range paths {
			a, err := filepath.Abs(p)
			if err != nil {
				return nil, &ConfigError{Field: field, Err: fmt.Errorf("cannot resolve %s: %w", p, err)}
			}
			out = append(out, a)
		}
		return out, nil
	}

	var err error
	if cfg.Roots, err = abs("roots", input.Roots); err != nil {
		return err
	}
	if cfg.PathLists, err = abs("path-list", SplitList(input.PathList)); err != nil {
		return err
	}
	if cfg.Mboxes, err = abs("mbox", SplitList(input.Mbox)); err != nil {
		return err
	}
	if cfg.Calendars, err = abs("ics", SplitList(input.ICS)); err != nil {
		return err
	}

	cfg.RulesPath = strings.TrimSpace(input.Rules)
	if cfg.RulesPath == "" {
		return NewConfigError("rules", "a rules file is required")
	}

	out := strings.TrimSpace(input.Out)
	if out == "" {
		out = DefaultOutDir
	}
	if cfg.OutDir, err = filepath.Abs(out); err != nil {
		return &ConfigError{Field: "out", Err: err}
	}

	cfg.SnapshotPath = strings.TrimSpace(input.Snapshot)
	if cfg.SnapshotPath == "" {
		cfg.SnapshotPath = filepath.Join(cfg.OutDir, schema.SnapshotFile)
	}
	return nil
}
