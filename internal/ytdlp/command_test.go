package ytdlp

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func argString(args []string) string {
	return " " + strings.Join(args, " ") + " "
}

func TestValidateRejectsConflictingCookieSources(t *testing.T) {
	opts := Options{URL: "https://youtu.be/x", CookiesFromBrowser: "chrome", CookiesFile: "cookies.txt"}
	err := opts.Validate()
	var cfgErr ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestValidateRejectsFormatAndQuality(t *testing.T) {
	opts := Options{URL: "https://youtu.be/x", FormatSpec: "best", Quality: "720p"}
	var cfgErr ConfigError
	if !errors.As(opts.Validate(), &cfgErr) {
		t.Fatal("expected ConfigError for --format with --quality")
	}
}

func TestValidateRejectsUnknownPreset(t *testing.T) {
	opts := Options{URL: "https://youtu.be/x", Quality: "4k"}
	var cfgErr ConfigError
	if !errors.As(opts.Validate(), &cfgErr) {
		t.Fatal("expected ConfigError for unknown preset")
	}
}

func TestResolveFormatDefaultsVideoToBest(t *testing.T) {
	opts := Options{URL: "https://youtu.be/x"}
	spec, fromQuality := opts.ResolveFormat()
	if spec != QualityPresets["best"] || !fromQuality {
		t.Fatalf("expected best preset for video default, got %q fromQuality=%v", spec, fromQuality)
	}

	audio := Options{URL: "https://youtu.be/x", AudioOnly: true}
	if spec, _ := audio.ResolveFormat(); spec != "" {
		t.Fatalf("audio-only must not resolve a video format, got %q", spec)
	}
}

func TestBuildAudioOnly(t *testing.T) {
	tmp := t.TempDir()
	opts := Options{URL: "https://youtu.be/x", OutputDir: tmp, AudioOnly: true, MergeFormat: "mp4"}
	args, err := opts.Build()
	if err != nil {
		t.Fatal(err)
	}
	s := argString(args)
	if !strings.Contains(s, " -x --audio-format mp3 ") {
		t.Fatalf("expected audio extraction args, got %v", args)
	}
	if strings.Contains(s, " -f ") {
		t.Fatalf("audio-only must not carry a video format, got %v", args)
	}
	if args[len(args)-1] != "https://youtu.be/x" {
		t.Fatalf("URL must be the final argument, got %v", args)
	}
}

func TestBuildDefaultClientInjection(t *testing.T) {
	tmp := t.TempDir()
	opts := Options{URL: "u", OutputDir: tmp, PlayerClientDefault: "android"}
	args, err := opts.Build()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(argString(args), " --extractor-args youtube:player_client=android ") {
		t.Fatalf("expected android default client, got %v", args)
	}

	// An explicit override suppresses the default.
	opts.PlayerClient = "web_safari"
	args, err = opts.Build()
	if err != nil {
		t.Fatal(err)
	}
	s := argString(args)
	if strings.Contains(s, "player_client=android") {
		t.Fatalf("default client must be suppressed by override, got %v", args)
	}
	if !strings.Contains(s, "player_client=web_safari") {
		t.Fatalf("expected explicit client, got %v", args)
	}
}

func TestBuildOutputTemplate(t *testing.T) {
	tmp := t.TempDir()
	opts := Options{URL: "u", OutputDir: tmp, OutputTemplate: "%(id)s.%(ext)s"}
	args, err := opts.Build()
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(tmp, "%(id)s.%(ext)s")
	found := false
	for i, a := range args {
		if a == "-o" && i+1 < len(args) && args[i+1] == want {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected template %q in %v", want, args)
	}
}

func TestWithPlayerClientReplacesExtractorArgs(t *testing.T) {
	args := []string{"--extractor-args", "youtube:player_client=android", "--no-playlist", "-f", "best", "url"}
	got := WithPlayerClient(args, "mweb")
	s := argString(got)
	if strings.Contains(s, "player_client=android") {
		t.Fatalf("old extractor args must be stripped, got %v", got)
	}
	if !strings.HasSuffix(s, " --extractor-args youtube:player_client=mweb ") {
		t.Fatalf("forced client must be appended last, got %v", got)
	}
	if !strings.Contains(s, " --no-playlist ") || !strings.Contains(s, " -f best ") {
		t.Fatalf("unrelated args must survive, got %v", got)
	}
}

func TestWithFormat(t *testing.T) {
	args := []string{"-f", "bestvideo+bestaudio/best", "url"}
	got := WithFormat(args, "best[protocol!*=m3u8]")
	if got[1] != "best[protocol!*=m3u8]" {
		t.Fatalf("expected format replaced in place, got %v", got)
	}

	got = WithFormat([]string{"url"}, "best")
	if !strings.Contains(argString(got), " -f best ") {
		t.Fatalf("expected format appended, got %v", got)
	}
}

func TestFallbackFormat(t *testing.T) {
	if got := FallbackFormat("720p"); got != "best[height<=720][protocol!*=m3u8][ext=mp4]/best[height<=720][protocol!*=m3u8]/best[protocol!*=m3u8]" {
		t.Fatalf("unexpected 720p fallback: %q", got)
	}
	unrestricted := "best[protocol!*=m3u8][ext=mp4]/best[protocol!*=m3u8]/best"
	if got := FallbackFormat("best"); got != unrestricted {
		t.Fatalf("unexpected best fallback: %q", got)
	}
	if got := FallbackFormat(""); got != unrestricted {
		t.Fatalf("unexpected empty fallback: %q", got)
	}
	if got := FallbackFormat("worst"); got != unrestricted {
		t.Fatalf("non-numeric presets use the unrestricted fallback: %q", got)
	}
}

func TestFilterCookieLines(t *testing.T) {
	in := "Extracting cookies from chrome\n[youtube] downloading\nExtracted 120 cookies from chrome\ndone"
	got := FilterCookieLines(in)
	if strings.Contains(got, "cookies") {
		t.Fatalf("cookie noise must be filtered, got %q", got)
	}
	if !strings.Contains(got, "[youtube] downloading") || !strings.Contains(got, "done") {
		t.Fatalf("real lines must survive, got %q", got)
	}
}
