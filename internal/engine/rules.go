package engine

import (
	"yt-fetch/internal/classify"
	"yt-fetch/internal/provider"
	"yt-fetch/internal/ytdlp"
)

// rule is one step of the escalation ladder. guard inspects the current
// attempt's classification; action prepares the retry argument vector and
// reports whether a retry should actually run (a failed corrective action,
// such as a provider restart that did not come back, consumes the rule but
// not a retry).
type rule struct {
	name   string
	guard  func(res classify.Result) bool
	action func(args []string) ([]string, bool)
}

func (s *Session) rules() []rule {
	return []rule{
		{
			name: "restart-container-provider",
			guard: func(res classify.Result) bool {
				return s.AutoProvider &&
					s.backend == provider.BackendContainer &&
					res.Has(classify.KindTokenVerification)
			},
			action: func(args []string) ([]string, bool) {
				s.warnf("PO-token provider did not respond; restarting it and retrying...")
				if err := s.Provider.Restart(); err != nil {
					return nil, false
				}
				return ytdlp.WithPlayerClient(args, s.retryClient), true
			},
		},
		{
			name: "switch-to-browser-provider",
			guard: func(res classify.Result) bool {
				return s.AutoProvider && res.Has(classify.KindTokenVerification)
			},
			action: func(args []string) ([]string, bool) {
				s.warnf("PO-token provider still failing; switching to the browser-based provider...")
				if !s.Provider.EnsureBrowser() {
					return nil, false
				}
				s.backend = provider.BackendBrowser
				s.wpcRetried = true
				retry := ytdlp.WithPlayerClient(args, s.retryClient)
				return ytdlp.WithBrowserPath(retry, s.BrowserPath), true
			},
		},
		{
			name: "wait-for-browser-verification",
			guard: func(res classify.Result) bool {
				return s.AutoProvider && res.Has(classify.KindBrowserPending)
			},
			action: func(args []string) ([]string, bool) {
				s.warnf("browser verification not ready; keeping the browser open and retrying once...")
				s.pause()
				s.wpcRetried = true
				retry := ytdlp.WithPlayerClient(args, s.retryClient)
				return ytdlp.WithBrowserPath(retry, s.BrowserPath), true
			},
		},
		{
			// Safeguard for token failures reaching this point without the
			// switch rule having fired (distinct entry path in the original
			// control flow; kept deliberately).
			name: "switch-to-browser-provider-late",
			guard: func(res classify.Result) bool {
				return s.AutoProvider && !s.wpcRetried && res.Has(classify.KindTokenVerification)
			},
			action: func(args []string) ([]string, bool) {
				s.warnf("PO-token provider failed; switching to the browser-based provider...")
				if !s.Provider.EnsureBrowser() {
					return nil, false
				}
				s.backend = provider.BackendBrowser
				retry := ytdlp.WithPlayerClient(args, s.retryClient)
				return ytdlp.WithBrowserPath(retry, s.BrowserPath), true
			},
		},
		{
			name: "force-desktop-client",
			guard: func(res classify.Result) bool {
				return s.Opts.CookiesFromBrowser != "" &&
					s.Opts.PlayerClient == "" &&
					res.Has(classify.KindForbidden)
			},
			action: func(args []string) ([]string, bool) {
				s.warnf("download failed with 403 errors; retrying with the web_safari client...")
				return ytdlp.WithPlayerClient(args, "web_safari"), true
			},
		},
		{
			name: "progressive-format-fallback",
			guard: func(res classify.Result) bool {
				return !s.Opts.AudioOnly && s.fromQuality && !res.Unclassified()
			},
			action: func(args []string) ([]string, bool) {
				s.warnf("download failed; retrying with non-adaptive progressive formats...")
				quality := s.Opts.Quality
				if quality == "" {
					quality = "best"
				}
				return ytdlp.WithFormat(args, ytdlp.FallbackFormat(quality)), true
			},
		},
	}
}

// escalate walks the ladder once, in order, applying each matching rule at
// most once per session. A successful retry ends the session immediately;
// a failed retry's classification feeds the remaining rules.
func (s *Session) escalate(root string, attempt ytdlp.Attempt) ytdlp.Attempt {
	if s.usedRules == nil {
		s.usedRules = make(map[string]bool)
	}
	for _, r := range s.rules() {
		if attempt.ExitCode == 0 {
			return attempt
		}
		if s.usedRules[r.name] {
			continue
		}
		res := classify.Output(attempt.Stdout, attempt.Stderr)
		if !r.guard(res) {
			continue
		}
		s.usedRules[r.name] = true
		retryArgs, ok := r.action(attempt.Args)
		if !ok {
			continue
		}
		retry := s.attempt(root, retryArgs)
		if retry.ExitCode == 0 {
			return retry
		}
		attempt = retry
	}
	return attempt
}
