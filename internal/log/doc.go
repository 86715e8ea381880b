// Package log provides the application's logging setup on top of the
// standard slog package, with automatic redaction of sensitive values.
//
// Site configurations can carry Authorization headers and cookies for
// protected environments, and debug logging prints request details.
// The RedactHandler masks those values before they reach the log output,
// so a shared or stored log never leaks credentials.
//
// Usage:
//
//	logger := log.NewLogger(os.Stderr, verbose)
//	logger.Debug("request sent",
//	    "cookie", "session=abc123", // masked in output
//	    "url", "https://example.com/")
package log
