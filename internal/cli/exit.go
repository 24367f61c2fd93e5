package cli

import (
	"errors"
	"fmt"

	"yt-fetch/internal/provider"
	"yt-fetch/internal/ytdlp"
)

// usageError wraps command-line and configuration mistakes so main can
// exit 2 instead of 1.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// downloadFailedError marks a download that ran but did not succeed. The
// extractor's own diagnostics have already been echoed.
type downloadFailedError struct {
	attemptExit int
}

func (e downloadFailedError) Error() string {
	return fmt.Sprintf("download failed (yt-dlp exit code %d)", e.attemptExit)
}

// ExitCode maps an error returned by Run to the process exit code:
// 2 for usage and configuration mistakes, the extractor's own exit code
// for exhausted downloads, 1 for everything else that failed at runtime.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var usage usageError
	var cfg ytdlp.ConfigError
	if errors.As(err, &usage) || errors.As(err, &cfg) || errors.Is(err, provider.ErrUnavailable) {
		return 2
	}
	var failed downloadFailedError
	if errors.As(err, &failed) && failed.attemptExit > 0 {
		return failed.attemptExit
	}
	return 1
}
