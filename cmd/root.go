package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/huangsam/evidence/core"
	"github.com/huangsam/evidence/internal/contract"
	"github.com/huangsam/evidence/internal/iocache"
	"github.com/huangsam/evidence/internal/logging"
	"github.com/huangsam/evidence/internal/runctx"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:   "evidence",
	Short: "Find academic evidence in documents, mail and calendars.",
	Long: `Evidence scans folders, mbox archives and iCalendar files for teaching,
service and scholarship evidence.

Pass 1 triages every record on metadata alone. Pass 2 extracts text from the
selected records and scores it against a rules file. Reports land in --out.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(".evidence")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
	}

	viper.SetEnvPrefix("EVIDENCE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	setDefaults(viper.GetViper())
}

// setDefaults registers the default for every configuration key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("rules", contract.DefaultRulesPath)
	v.SetDefault("out", contract.DefaultOutDir)
	v.SetDefault("workers", contract.DefaultWorkers)
	v.SetDefault("threshold", contract.DefaultThreshold)
	v.SetDefault("max-bytes", contract.DefaultMaxBytes)
	v.SetDefault("max-text-bytes", contract.DefaultMaxTextBytes)
	v.SetDefault("timeout", contract.DefaultTimeout.String())
	v.SetDefault("idle-gap", contract.DefaultIdleGap.String())
	v.SetDefault("min-session", contract.DefaultMinSession.String())
	v.SetDefault("max-session", contract.DefaultMaxSession.String())
	v.SetDefault("provenance-score", contract.DefaultProvenanceScore)
	v.SetDefault("limit", contract.DefaultResultLimit)
	v.SetDefault("precision", contract.DefaultPrecision)
	v.SetDefault("color", "yes")
	v.SetDefault("log-level", "info")
}

// sharedSetup unmarshals config and runs validation.
func sharedSetup(v *viper.Viper, args []string) error {
	// 1. Read config file. This merges defaults, file, env, and flags.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return &contract.ConfigError{Field: "config", Err: err}
		}
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := v.Unmarshal(input); err != nil {
		return &contract.ConfigError{Field: "config", Err: err}
	}

	// 3. Handle positional arguments (which Viper doesn't do).
	input.Roots = args

	// 4. Run all validation and complex parsing.
	if err := contract.ProcessAndValidate(cfg, input); err != nil {
		return err
	}
	color.NoColor = !cfg.UseColors
	return nil
}

// sharedSetupWrapper wraps sharedSetup to provide Cobra's PreRunE.
func sharedSetupWrapper(_ *cobra.Command, args []string) error {
	return sharedSetup(viper.GetViper(), args)
}

// requireSources is a PreRunE for commands that cannot run without input.
func requireSources(cmd *cobra.Command, args []string) error {
	if err := sharedSetupWrapper(cmd, args); err != nil {
		return err
	}
	if !cfg.HasSources() {
		return contract.NewConfigError("roots", "give at least one directory, file, --path-list, --mbox or --ics")
	}
	return nil
}

// newLogger builds a console logger for terminals and a JSON logger otherwise.
func newLogger() (*zap.Logger, error) {
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return logging.InitConsoleLogger(cfg.LogLevel, cfg.UseColors, cfg.Quiet)
	}
	return logging.InitJSONLogger(cfg.LogLevel)
}

// runWith builds the run context, wires SIGINT/SIGTERM cancellation and the
// progress line, then hands control to the executor.
func runWith(executor core.ExecutorFunc) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, _ []string) {
		if err := execute(cmd.Context(), executor); err != nil {
			contract.LogFatal("Error running command", err)
		}
	}
}

func execute(parent context.Context, executor core.ExecutorFunc) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	items, err := iocache.NewItemStore(0)
	if err != nil {
		return err
	}
	emitter := runctx.NewEmitter(0)
	rc := runctx.New(logger, runctx.WithProgress(emitter), runctx.WithItems(items))

	progress := newProgressLine(os.Stderr, !cfg.Quiet && isatty.IsTerminal(os.Stderr.Fd()))
	done := make(chan struct{})
	go func() {
		defer close(done)
		progress.Consume(emitter.Events())
	}()

	runErr := executor(ctx, cfg, rc)
	emitter.Close()
	<-done

	var status bytes.Buffer
	iocache.PrintCacheStatus(&status, items.Status())
	rc.Logger.Debug("Run finished",
		zap.Duration("elapsed", rc.Elapsed()),
		zap.Int("warnings", len(rc.Warnings())),
		zap.Int64("progressDropped", emitter.Dropped()),
		zap.String("cache", strings.TrimSpace(status.String())))

	if runErr != nil {
		return fmt.Errorf("run %s failed: %w", rc.ID, runErr)
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
