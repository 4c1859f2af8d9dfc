package config

import "git.home.luguber.info/inful/bookbuilder/internal/foundation/normalization"

// ArchiverKind selects how the package directory is turned into an .epub.
type ArchiverKind string

const (
	ArchiverZip     ArchiverKind = "zip"
	ArchiverCommand ArchiverKind = "command"
)

var archiverNormalizer = normalization.NewNormalizer("archiver", map[string]ArchiverKind{
	"zip":     ArchiverZip,
	"command": ArchiverCommand,
}, ArchiverZip)

// NormalizeArchiverKind maps raw onto a known archiver, defaulting to zip.
func NormalizeArchiverKind(raw string) ArchiverKind {
	return archiverNormalizer.Normalize(raw)
}

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var logLevelNormalizer = normalization.NewNormalizer("log level", map[string]LogLevel{
	"debug":   LogLevelDebug,
	"info":    LogLevelInfo,
	"warn":    LogLevelWarn,
	"warning": LogLevelWarn,
	"error":   LogLevelError,
}, LogLevelInfo)

// NormalizeLogLevel maps raw onto a known level, defaulting to info.
func NormalizeLogLevel(raw string) LogLevel {
	return logLevelNormalizer.Normalize(raw)
}

// ParseLogLevel is the strict form of NormalizeLogLevel.
func ParseLogLevel(raw string) (LogLevel, error) {
	return logLevelNormalizer.NormalizeWithError(raw)
}
