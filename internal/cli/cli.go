package cli

import (
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vk/cmdgrid/internal/app"
	"github.com/vk/cmdgrid/internal/config"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Mode selects what the application does with the parsed configuration.
type Mode string

const (
	// ModeRun executes the requested commands.
	ModeRun Mode = "run"
	// ModePlan prints the resolved schedule without executing it.
	ModePlan Mode = "plan"
)

// Invocation is the outcome of a successful parse.
type Invocation struct {
	Mode   Mode
	Config *app.Config
}

// flagValues holds the raw flag values shared by every subcommand.
type flagValues struct {
	settingsPath    string
	definitions     []string
	values          []string
	logLevel        string
	logFormat       string
	healthcheckPort int
	maxCycleDepth   int
}

// Parse processes command-line arguments. It returns the invocation, a
// boolean indicating if the program should exit cleanly (help was shown), or
// an ExitError.
func Parse(args []string, output io.Writer) (*Invocation, bool, error) {
	slog.Debug("CLI parser started.")

	var flags flagValues
	var inv *Invocation
	var parseErr error

	root := &cobra.Command{
		Use:   "cmdgrid",
		Short: "cmdgrid - phase-ordered command scheduling with bounded cycles",
		Long: `cmdgrid loads command, parameter and cycle definitions from .hcl files,
resolves the requested commands into dependency order within each phase,
and runs them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetArgs(append([]string{}, args...))
	root.SetOut(output)
	root.SetErr(output)

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.settingsPath, "config", "c", "", "Path to a TOML settings file.")
	pf.StringArrayVarP(&flags.definitions, "defs", "d", nil, "Definition file or directory (repeatable).")
	pf.StringArrayVarP(&flags.values, "set", "s", nil, "Parameter value as name=value (repeatable).")
	pf.StringVar(&flags.logLevel, "log-level", config.DefaultLogLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	pf.StringVar(&flags.logFormat, "log-format", config.DefaultLogFormat, "Log output format. Options: 'text' or 'json'.")
	pf.IntVar(&flags.healthcheckPort, "healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	pf.IntVar(&flags.maxCycleDepth, "max-cycle-depth", config.DefaultMaxCycleDepth, "Maximum nesting depth of cycles.")

	subcommand := func(mode Mode, short string) *cobra.Command {
		return &cobra.Command{
			Use:   string(mode) + " [COMMAND...]",
			Short: short,
			RunE: func(cmd *cobra.Command, positional []string) error {
				cfg, err := resolve(cmd, &flags, positional)
				if err != nil {
					parseErr = err
					return err
				}
				inv = &Invocation{Mode: mode, Config: cfg}
				return nil
			},
		}
	}
	root.AddCommand(
		subcommand(ModeRun, "Run the requested commands"),
		subcommand(ModePlan, "Print the resolved schedule as YAML without running it"),
	)

	if err := root.Execute(); err != nil {
		if parseErr != nil {
			return nil, false, parseErr
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if inv == nil {
		slog.Debug("No subcommand executed, exiting.")
		return nil, true, nil
	}

	slog.Debug("CLI parser finished successfully.", "mode", inv.Mode)
	return inv, false, nil
}

// resolve merges the settings file with the flags that were given
// explicitly.
func resolve(cmd *cobra.Command, flags *flagValues, positional []string) (*app.Config, error) {
	settings, err := config.LoadSettings(flags.settingsPath)
	if err != nil {
		return nil, &ExitError{Code: 2, Message: err.Error()}
	}
	cfg := app.ConfigFromSettings(settings)

	changed := cmd.Flags().Changed
	if changed("defs") {
		cfg.Definitions = flags.definitions
	}
	if changed("log-level") || cfg.LogLevel == "" {
		cfg.LogLevel = flags.logLevel
	}
	if changed("log-format") || cfg.LogFormat == "" {
		cfg.LogFormat = flags.logFormat
	}
	if changed("healthcheck-port") {
		cfg.HealthcheckPort = flags.healthcheckPort
	}
	if changed("max-cycle-depth") {
		cfg.MaxCycleDepth = flags.maxCycleDepth
	}
	cfg.Values = flags.values
	cfg.Commands = positional

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	out, err := app.NewConfig(cfg)
	if err != nil {
		return nil, &ExitError{Code: 2, Message: err.Error()}
	}
	return out, nil
}

// Usage returns a short usage line, used when the program exits with a
// usage error.
func Usage() string {
	return "Run 'cmdgrid --help' for usage."
}
