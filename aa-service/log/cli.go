package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
	"golang.org/x/exp/slog"

	aaservice "github.com/hackflu/foundry-Account-Abstraction/aa-service"
)

const (
	LevelFlagName  = "log.level"
	FormatFlagName = "log.format"
	ColorFlagName  = "log.color"
)

type FormatType string

const (
	FormatText     FormatType = "text"
	FormatTerminal FormatType = "terminal"
	FormatLogFmt   FormatType = "logfmt"
	FormatJSON     FormatType = "json"
)

var levels = map[string]slog.Level{
	"trace": log.LevelTrace,
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
	"crit":  log.LevelCrit,
}

// LevelFromString parses a log level name.
func LevelFromString(s string) (slog.Level, error) {
	lvl, ok := levels[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return lvl, nil
}

func CLIFlags(envPrefix string) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    LevelFlagName,
			Usage:   "The lowest log level that will be output: trace, debug, info, warn, error, crit",
			Value:   "info",
			EnvVars: aaservice.PrefixEnvVar(envPrefix, "LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:    FormatFlagName,
			Usage:   "Format the log output. Supported formats: 'text', 'terminal', 'logfmt', 'json'",
			Value:   string(FormatText),
			EnvVars: aaservice.PrefixEnvVar(envPrefix, "LOG_FORMAT"),
		},
		&cli.BoolFlag{
			Name:    ColorFlagName,
			Usage:   "Color the log output if in terminal mode",
			EnvVars: aaservice.PrefixEnvVar(envPrefix, "LOG_COLOR"),
		},
	}
}

type CLIConfig struct {
	Level  slog.Level
	Color  bool
	Format FormatType
}

func DefaultCLIConfig() CLIConfig {
	return CLIConfig{
		Level:  log.LevelInfo,
		Format: FormatText,
		Color:  isTerminal(os.Stderr),
	}
}

// ReadCLIConfig reads the logger flags. Unknown values fall back to the
// defaults with a warning.
func ReadCLIConfig(ctx *cli.Context) CLIConfig {
	cfg := DefaultCLIConfig()
	if lvl, err := LevelFromString(ctx.String(LevelFlagName)); err == nil {
		cfg.Level = lvl
	} else {
		log.Warn("Ignoring log level", "err", err)
	}
	switch f := FormatType(ctx.String(FormatFlagName)); f {
	case FormatText, FormatTerminal, FormatLogFmt, FormatJSON:
		cfg.Format = f
	default:
		log.Warn("Ignoring unknown log format", "format", f)
	}
	if ctx.IsSet(ColorFlagName) {
		cfg.Color = ctx.Bool(ColorFlagName)
	}
	return cfg
}

// NewLogger creates a logger writing to wr according to cfg.
func NewLogger(wr io.Writer, cfg CLIConfig) log.Logger {
	var h slog.Handler
	switch cfg.Format {
	case FormatJSON:
		h = log.JSONHandlerWithLevel(wr, cfg.Level)
	case FormatLogFmt:
		h = log.LogfmtHandlerWithLevel(wr, cfg.Level)
	case FormatTerminal:
		h = log.NewTerminalHandlerWithLevel(wr, cfg.Level, cfg.Color)
	default:
		// text is terminal output, colored only when writing to a terminal
		h = log.NewTerminalHandlerWithLevel(wr, cfg.Level, cfg.Color && isTerminal(wr))
	}
	return log.NewLogger(h)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && isatty.IsTerminal(f.Fd())
}

// SetupDefaults installs a terminal logger at info level on stderr as the
// root logger.
func SetupDefaults() {
	log.SetDefault(NewLogger(os.Stderr, DefaultCLIConfig()))
}
