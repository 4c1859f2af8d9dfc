package commands

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/bookbuilder/internal/config"
)

// LogLevelEnv overrides the log level chosen by flags and configuration.
const LogLevelEnv = "BOOKBUILDER_LOG_LEVEL"

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Project  string           `short:"C" name:"project" help:"Project directory" default:"." type:"existingdir"`
	Bookspec string           `short:"b" name:"bookspec" help:"Bookspec file (defaults to the single *.bookspec in the project)"`
	Config   string           `short:"c" help:"Tool configuration file, relative to the project" default:"bookbuilder.yaml"`
	Verbose  bool             `short:"v" help:"Enable verbose logging"`
	Version  kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Compile targets and archive them into .epub packages"`
	Compile CompileCmd `cmd:"" help:"Compile targets into their build directories without archiving"`
	Init    InitCmd    `cmd:"" help:"Create a sample bookspec and configuration"`
	Watch   WatchCmd   `cmd:"" help:"Recompile whenever project files change"`
	Toc     TocCmd     `cmd:"" help:"Print the table of contents of each target"`
	History HistoryCmd `cmd:"" help:"Show recorded builds"`
}

// AfterApply runs after flag parsing; setup logging once.
func (c *CLI) AfterApply() error {
	setupLogging(parseLogLevel(c.Verbose, ""))
	return nil
}

// parseLogLevel picks the log level: the environment wins, then -v, then
// the configured level.
func parseLogLevel(verbose bool, configured config.LogLevel) slog.Level {
	if raw := os.Getenv(LogLevelEnv); raw != "" {
		if level, err := config.ParseLogLevel(raw); err == nil {
			return slogLevel(level)
		}
	}
	if verbose {
		return slog.LevelDebug
	}
	return slogLevel(config.NormalizeLogLevel(string(configured)))
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setupLogging(level slog.Level) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}
