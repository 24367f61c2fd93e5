// Package classify maps yt-dlp output to known failure kinds.
//
// Classification is heuristic: yt-dlp reports PO-token and throttling
// problems as free-form log lines, not exit codes, so the retry engine
// has to pattern-match the combined output of a failed attempt.
package classify

import "strings"

// Kind tags a recognized failure signature in extractor output.
type Kind string

const (
	// KindTokenVerification covers PO-token provider errors ("pot" + "error").
	KindTokenVerification Kind = "token_verification"
	// KindForbidden covers HTTP 403 and missing-fragment throttling.
	KindForbidden Kind = "forbidden_access"
	// KindBrowserPending covers the browser-based provider not being ready yet.
	KindBrowserPending Kind = "browser_verification_pending"
	// KindUnclassified means no known signature matched.
	KindUnclassified Kind = "unclassified"
)

// Result is the set of kinds detected in one attempt's output.
type Result struct {
	kinds []Kind
}

func (r Result) Has(k Kind) bool {
	for _, kind := range r.kinds {
		if kind == k {
			return true
		}
	}
	return false
}

func (r Result) Kinds() []Kind {
	out := make([]Kind, len(r.kinds))
	copy(out, r.kinds)
	return out
}

// Unclassified reports whether no known failure signature matched.
func (r Result) Unclassified() bool {
	return len(r.kinds) == 1 && r.kinds[0] == KindUnclassified
}

type predicate struct {
	kind  Kind
	match func(text string) bool
}

// Ordered so Kinds() output is stable; the engine's rule table decides priority.
var predicates = []predicate{
	{KindTokenVerification, hasTokenVerificationError},
	{KindForbidden, hasForbiddenError},
	{KindBrowserPending, hasBrowserPendingError},
}

// Output classifies the combined stdout+stderr of a single attempt.
// Matching is case-insensitive and substring-based.
func Output(stdout, stderr string) Result {
	text := strings.ToLower(stdout + stderr)

	var kinds []Kind
	for _, p := range predicates {
		if p.match(text) {
			kinds = append(kinds, p.kind)
		}
	}
	if len(kinds) == 0 {
		kinds = append(kinds, KindUnclassified)
	}
	return Result{kinds: kinds}
}

func hasForbiddenError(text string) bool {
	return strings.Contains(text, "http error 403") ||
		strings.Contains(text, "403: forbidden") ||
		strings.Contains(text, "fragment 1 not found")
}

// Deliberately loose: "pot" and "error" anywhere in the output. yt-dlp
// phrases provider failures many different ways, and the cost of a false
// positive is one extra retry. Known over-approximation.
func hasTokenVerificationError(text string) bool {
	return strings.Contains(text, "pot") && strings.Contains(text, "error")
}

func hasBrowserPendingError(text string) bool {
	return strings.Contains(text, "pot:wpc") || strings.Contains(text, "webpoclient")
}
