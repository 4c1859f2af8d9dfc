package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID     = "build_id"
	KeyTarget      = "target"
	KeyStage       = "stage"
	KeyDurationMS  = "duration_ms"
	KeyPath        = "path"
	KeySource      = "source"
	KeyDestination = "destination"
	KeyPattern     = "pattern"
	KeyGroup       = "group"
	KeyExtension   = "extension"
	KeyCount       = "count"
	KeyError       = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr        { return slog.String(KeyBuildID, id) }
func Target(name string) slog.Attr       { return slog.String(KeyTarget, name) }
func Stage(name string) slog.Attr        { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr    { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr            { return slog.String(KeyPath, p) }
func Source(p string) slog.Attr          { return slog.String(KeySource, p) }
func Destination(p string) slog.Attr     { return slog.String(KeyDestination, p) }
func Pattern(p string) slog.Attr         { return slog.String(KeyPattern, p) }
func Group(g string) slog.Attr           { return slog.String(KeyGroup, g) }
func Extension(ext string) slog.Attr     { return slog.String(KeyExtension, ext) }
func Count(n int) slog.Attr              { return slog.Int(KeyCount, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
