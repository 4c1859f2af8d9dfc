// Package errors provides the classified error primitives used across bookbuilder.
//
// Every fatal condition raised by the build pipeline (unresolvable patterns,
// unknown content types, archive failures, cache misuse) is a ClassifiedError
// carrying a category, a severity and structured context such as the
// offending pattern or path.
//
// Key features:
//   - ErrorCategory: Broad error classification (config, resolve, build, archive, ...)
//   - ErrorSeverity: Impact level (fatal, error, warning, info)
//   - RetryStrategy: Retry behavior (never, immediate, backoff, user action)
//   - ErrorBuilder: Fluent API for creating classified errors
//   - CLIErrorAdapter: exit codes and user-facing formatting
//
// Example usage:
//
//	err := errors.ResolveError("found too many files for pattern").
//		WithContext("pattern", pattern).
//		WithContext("matches", len(paths)).
//		Build()
package errors
