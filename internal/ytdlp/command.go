package ytdlp

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// QualityPresets maps user-facing presets to yt-dlp format selectors.
var QualityPresets = map[string]string{
	"best":  "bestvideo+bestaudio/best",
	"1080p": "bestvideo[height<=1080]+bestaudio/best",
	"720p":  "bestvideo[height<=720]+bestaudio/best",
	"480p":  "bestvideo[height<=480]+bestaudio/best",
	"360p":  "bestvideo[height<=360]+bestaudio/best",
	"worst": "worstvideo+worstaudio/worst",
}

// PresetNames returns the supported quality presets in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(QualityPresets))
	for name := range QualityPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Options is the structured input for building a yt-dlp argument vector.
// Mutually exclusive pairs (FormatSpec/Quality, CookiesFromBrowser/
// CookiesFile) are validated by Build.
type Options struct {
	URL                string
	OutputDir          string
	OutputTemplate     string
	FormatSpec         string
	Quality            string
	MergeFormat        string
	Subtitles          bool
	SubtitleLangs      string
	CookiesFromBrowser string
	CookiesFile        string
	PlayerClient       string
	ProxyURL           string
	AllowPlaylist      bool
	AudioOnly          bool
	EmbedMetadata      bool

	// PlayerClientDefault is injected by the session once provider and
	// cookie state are known: "android" for the mobile workaround, "mweb"
	// or "web_safari" for token-backed sessions, empty for none.
	PlayerClientDefault string
}

// ConfigError marks a rejected option combination. No subprocess has run
// when a ConfigError is returned.
type ConfigError struct {
	Reason string
}

func (e ConfigError) Error() string {
	return e.Reason
}

// Validate rejects mutually exclusive option pairs and unknown presets.
func (o Options) Validate() error {
	if strings.TrimSpace(o.CookiesFromBrowser) != "" && strings.TrimSpace(o.CookiesFile) != "" {
		return ConfigError{Reason: "use either --cookies-from-browser or --cookies-file, not both"}
	}
	if strings.TrimSpace(o.FormatSpec) != "" && strings.TrimSpace(o.Quality) != "" {
		return ConfigError{Reason: "use either --format or --quality, not both"}
	}
	if q := strings.TrimSpace(o.Quality); q != "" {
		if _, ok := QualityPresets[q]; !ok {
			return ConfigError{Reason: fmt.Sprintf("unsupported quality preset %q (expected one of %s)", q, strings.Join(PresetNames(), ", "))}
		}
	}
	return nil
}

// ResolveFormat returns the effective format selector and whether it was
// derived from a quality preset. Video sessions with neither an explicit
// format nor a preset default to "best".
func (o Options) ResolveFormat() (spec string, fromQuality bool) {
	if strings.TrimSpace(o.FormatSpec) != "" {
		return o.FormatSpec, false
	}
	quality := strings.TrimSpace(o.Quality)
	if quality == "" && !o.AudioOnly {
		quality = "best"
	}
	if quality == "" {
		return "", false
	}
	return QualityPresets[quality], true
}

// OutputRoot resolves the output directory to an absolute path.
func (o Options) OutputRoot() (string, error) {
	dir := strings.TrimSpace(o.OutputDir)
	if dir == "" {
		dir = "."
	}
	if strings.HasPrefix(dir, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve output dir %s: %w", dir, err)
		}
		dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve output dir %s: %w", dir, err)
	}
	return abs, nil
}

func outputTemplate(root, template string) string {
	t := strings.TrimSpace(template)
	if t == "" {
		return filepath.Join(root, "%(title)s.%(ext)s")
	}
	if filepath.IsAbs(t) {
		return t
	}
	return filepath.Join(root, t)
}

// Build assembles the ordered argument vector for a download attempt.
// The returned slice excludes the program name.
func (o Options) Build() ([]string, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	root, err := o.OutputRoot()
	if err != nil {
		return nil, err
	}

	var args []string
	if c := strings.TrimSpace(o.PlayerClientDefault); c != "" && strings.TrimSpace(o.PlayerClient) == "" {
		args = append(args, "--extractor-args", "youtube:player_client="+c)
	}
	if strings.TrimSpace(o.CookiesFromBrowser) != "" {
		args = append(args, "--cookies-from-browser", strings.TrimSpace(o.CookiesFromBrowser))
	} else if strings.TrimSpace(o.CookiesFile) != "" {
		args = append(args, "--cookies", strings.TrimSpace(o.CookiesFile))
	}
	if strings.TrimSpace(o.ProxyURL) != "" {
		args = append(args, "--proxy", strings.TrimSpace(o.ProxyURL))
	}
	if c := strings.TrimSpace(o.PlayerClient); c != "" {
		args = append(args, "--extractor-args", "youtube:player_client="+c)
	}
	if !o.AllowPlaylist {
		args = append(args, "--no-playlist")
	}
	args = append(args, "-o", outputTemplate(root, o.OutputTemplate))

	if o.AudioOnly {
		args = append(args, "-x", "--audio-format", "mp3")
		if o.EmbedMetadata {
			args = append(args, "--embed-metadata", "--embed-thumbnail")
		}
	} else if spec, _ := o.ResolveFormat(); spec != "" {
		args = append(args, "-f", spec)
	}
	if o.Subtitles {
		langs := strings.TrimSpace(o.SubtitleLangs)
		if langs == "" {
			langs = "en"
		}
		args = append(args, "--write-subs", "--write-auto-subs", "--sub-lang", langs)
	}
	if mf := strings.TrimSpace(o.MergeFormat); mf != "" && !o.AudioOnly {
		args = append(args, "--merge-output-format", mf)
	}

	args = append(args, o.URL)
	return args, nil
}

// BaseArgs builds the argument prefix shared by metadata and list-formats
// invocations: everything up to but excluding format/output/URL handling.
func (o Options) BaseArgs() ([]string, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	var args []string
	if c := strings.TrimSpace(o.PlayerClientDefault); c != "" && strings.TrimSpace(o.PlayerClient) == "" {
		args = append(args, "--extractor-args", "youtube:player_client="+c)
	}
	if strings.TrimSpace(o.CookiesFromBrowser) != "" {
		args = append(args, "--cookies-from-browser", strings.TrimSpace(o.CookiesFromBrowser))
	} else if strings.TrimSpace(o.CookiesFile) != "" {
		args = append(args, "--cookies", strings.TrimSpace(o.CookiesFile))
	}
	if strings.TrimSpace(o.ProxyURL) != "" {
		args = append(args, "--proxy", strings.TrimSpace(o.ProxyURL))
	}
	if c := strings.TrimSpace(o.PlayerClient); c != "" {
		args = append(args, "--extractor-args", "youtube:player_client="+c)
	}
	if !o.AllowPlaylist {
		args = append(args, "--no-playlist")
	}
	return args, nil
}

// WithPlayerClient rebuilds an argument vector with every --extractor-args
// pair stripped and a single forced player client appended. Retries use it
// to override whatever client the first attempt ran with.
func WithPlayerClient(args []string, client string) []string {
	rebuilt := make([]string, 0, len(args)+2)
	skipNext := false
	for _, token := range args {
		if skipNext {
			skipNext = false
			continue
		}
		if token == "--extractor-args" {
			skipNext = true
			continue
		}
		rebuilt = append(rebuilt, token)
	}
	return append(rebuilt, "--extractor-args", "youtube:player_client="+client)
}

// WithBrowserPath appends the browser-provider extractor argument. A missing
// browser path leaves the vector unchanged (degraded but functional).
func WithBrowserPath(args []string, browserPath string) []string {
	if strings.TrimSpace(browserPath) == "" {
		return args
	}
	return append(append([]string{}, args...), "--extractor-args", "youtubepot-wpc:browser_path="+browserPath)
}

// WithFormat replaces the value following -f, or appends the pair when the
// vector carries no explicit format.
func WithFormat(args []string, formatSpec string) []string {
	rebuilt := append([]string{}, args...)
	for i, token := range rebuilt {
		if token == "-f" && i+1 < len(rebuilt) {
			rebuilt[i+1] = formatSpec
			return rebuilt
		}
	}
	return append(rebuilt, "-f", formatSpec)
}

// FallbackFormat derives the conservative non-adaptive selector used after
// the escalation ladder's earlier rules failed: progressive (non-m3u8)
// streams only, capped to the requested preset height when numeric.
func FallbackFormat(quality string) string {
	q := strings.TrimSpace(quality)
	if q == "" || q == "best" {
		return "best[protocol!*=m3u8][ext=mp4]/best[protocol!*=m3u8]/best"
	}
	if strings.HasSuffix(q, "p") && isDigits(q[:len(q)-1]) {
		height := q[:len(q)-1]
		return fmt.Sprintf(
			"best[height<=%s][protocol!*=m3u8][ext=mp4]/best[height<=%s][protocol!*=m3u8]/best[protocol!*=m3u8]",
			height, height,
		)
	}
	return "best[protocol!*=m3u8][ext=mp4]/best[protocol!*=m3u8]/best"
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
