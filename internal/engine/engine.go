// Package engine drives a download session: one extractor attempt followed
// by a fixed escalation ladder of corrective retries keyed off the failure
// classification of each attempt's output.
package engine

import (
	"fmt"
	"os"
	"strings"
	"time"

	"yt-fetch/internal/finalize"
	"yt-fetch/internal/provider"
	"yt-fetch/internal/ytdlp"
)

// Provider is the slice of the lifecycle manager the engine needs, so
// tests can script provider behavior without Docker.
type Provider interface {
	Ensure() (provider.Backend, error)
	Restart() error
	EnsureBrowser() bool
}

// Session holds the state of one download invocation. A session runs at
// most one attempt plus one retry per ladder rule, then terminates.
type Session struct {
	Opts    ytdlp.Options
	Runner  ytdlp.Runner
	RunOpts ytdlp.RunOptions

	// AutoProvider enables the PO-token sidecar for this session.
	AutoProvider bool
	// AndroidWorkaround enables the restricted mobile client default.
	AndroidWorkaround bool
	Provider          Provider
	BrowserPath       string

	// PauseBeforeBrowserRetry is the rule-3 settle delay. Overridable so
	// tests do not sleep.
	PauseBeforeBrowserRetry time.Duration

	Infof    func(format string, args ...any)
	Warnf    func(format string, args ...any)
	OnResult func(finalize.Report)

	backend     provider.Backend
	retryClient string
	fromQuality bool
	usedRules   map[string]bool
	wpcRetried  bool
}

func (s *Session) infof(format string, args ...any) {
	if s.Infof != nil {
		s.Infof(format, args...)
	}
}

func (s *Session) warnf(format string, args ...any) {
	if s.Warnf != nil {
		s.Warnf(format, args...)
	}
}

// Backend reports which provider backend served the session.
func (s *Session) Backend() provider.Backend {
	return s.backend
}

// Run executes the session. The returned code is the process exit code:
// 0 success, otherwise the last attempt's exit code. Pre-attempt failures
// (configuration, missing tool, no provider backend) surface as errors.
func (s *Session) Run() (int, error) {
	if err := s.Opts.Validate(); err != nil {
		return 0, err
	}

	if s.AutoProvider {
		backend, err := s.Provider.Ensure()
		if err != nil {
			return 0, fmt.Errorf("PO-token provider could not be started: %w", err)
		}
		s.backend = backend
		if s.BrowserPath == "" {
			s.BrowserPath = provider.FindBrowser()
		}
	}

	s.selectClients()

	_, s.fromQuality = s.Opts.ResolveFormat()

	root, err := s.Opts.OutputRoot()
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return 0, fmt.Errorf("create output dir %s: %w", root, err)
	}

	args, err := s.Opts.Build()
	if err != nil {
		return 0, err
	}
	if s.backend == provider.BackendBrowser && s.BrowserPath != "" {
		args = ytdlp.WithBrowserPath(args, s.BrowserPath)
	}

	attempt := s.attempt(root, args)
	if attempt.ExitCode == 0 {
		return 0, nil
	}

	attempt = s.escalate(root, attempt)
	if attempt.ExitCode != 0 {
		s.warnf("download failed with exit code %d", attempt.ExitCode)
	}
	return attempt.ExitCode, nil
}

// selectClients decides the default player client: the restricted mobile
// workaround only applies when neither token-backed access, cookies, nor
// an explicit override are in play.
func (s *Session) selectClients() {
	hasCookies := strings.TrimSpace(s.Opts.CookiesFromBrowser) != "" || strings.TrimSpace(s.Opts.CookiesFile) != ""
	hasOverride := strings.TrimSpace(s.Opts.PlayerClient) != ""

	potClient := ""
	if s.AutoProvider {
		potClient = "mweb"
		if hasCookies {
			potClient = "web_safari"
		}
	}

	useAndroid := s.AndroidWorkaround && !s.AutoProvider && !hasCookies && !hasOverride
	if s.AndroidWorkaround && !useAndroid {
		if s.AutoProvider {
			s.infof("note: disabling the Android client because the PO-token provider is enabled")
		} else {
			s.infof("note: disabling the Android client because cookies or a player client are in use")
		}
	}

	switch {
	case useAndroid:
		s.Opts.PlayerClientDefault = "android"
	case potClient != "" && !hasOverride:
		s.Opts.PlayerClientDefault = potClient
	}

	s.retryClient = strings.TrimSpace(s.Opts.PlayerClient)
	if s.retryClient == "" {
		s.retryClient = potClient
	}
	if s.retryClient == "" {
		s.retryClient = "mweb"
	}
}

// attempt snapshots the output directory, runs the extractor, and
// finalizes immediately on success.
func (s *Session) attempt(root string, args []string) ytdlp.Attempt {
	before := finalize.Snapshot(root)
	s.infof("executing: yt-dlp %s", strings.Join(args, " "))
	attempt := s.Runner.Run(args, s.RunOpts)
	if attempt.ExitCode == 0 && s.OnResult != nil {
		s.OnResult(finalize.Collect(root, before, s.Opts.AudioOnly))
	}
	return attempt
}

func (s *Session) pause() {
	d := s.PauseBeforeBrowserRetry
	if d <= 0 {
		d = 3 * time.Second
	}
	time.Sleep(d)
}
