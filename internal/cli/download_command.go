package cli

import (
	"flag"
	"fmt"
	"strings"

	"yt-fetch/internal/engine"
	"yt-fetch/internal/finalize"
	"yt-fetch/internal/metadata"
	"yt-fetch/internal/provider"
	"yt-fetch/internal/ytdlp"
)

type downloadFlags struct {
	opts ytdlp.Options

	browserPath string
	noProvider  bool
	noAndroid   bool
	listFormats bool
	pickFormat  bool
	infoOnly    bool
}

func parseDownloadArgs(args []string) (downloadFlags, error) {
	var f downloadFlags

	// Accept the URL before the flags, yt-dlp style.
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		f.opts.URL = args[0]
		args = args[1:]
	}

	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	fs.StringVar(&f.opts.OutputDir, "o", "", "output directory")
	fs.StringVar(&f.opts.OutputDir, "output-dir", "", "output directory")
	fs.StringVar(&f.opts.OutputTemplate, "output-template", "", "yt-dlp output template (relative to output dir)")
	fs.StringVar(&f.opts.FormatSpec, "f", "", "explicit yt-dlp format selector")
	fs.StringVar(&f.opts.FormatSpec, "format", "", "explicit yt-dlp format selector")
	fs.StringVar(&f.opts.Quality, "q", "", "quality preset: "+strings.Join(ytdlp.PresetNames(), "|"))
	fs.StringVar(&f.opts.Quality, "quality", "", "quality preset: "+strings.Join(ytdlp.PresetNames(), "|"))
	fs.StringVar(&f.opts.MergeFormat, "merge-format", "mp4", "merged container format")
	fs.BoolVar(&f.opts.Subtitles, "subtitles", false, "download subtitles")
	fs.StringVar(&f.opts.SubtitleLangs, "sub-langs", "en", "subtitle languages")
	fs.StringVar(&f.opts.CookiesFromBrowser, "cookies-from-browser", "", "load cookies from a browser profile")
	fs.StringVar(&f.opts.CookiesFile, "cookies-file", "", "load cookies from a Netscape cookies.txt")
	fs.StringVar(&f.opts.PlayerClient, "player-client", "", "force a specific YouTube player client")
	fs.StringVar(&f.opts.ProxyURL, "proxy", "", "proxy URL (defaults to proxy environment variables)")
	fs.BoolVar(&f.opts.AllowPlaylist, "playlist", false, "allow playlist downloads")
	fs.BoolVar(&f.opts.AudioOnly, "a", false, "extract audio as MP3")
	fs.BoolVar(&f.opts.AudioOnly, "audio-only", false, "extract audio as MP3")
	fs.StringVar(&f.browserPath, "wpc-browser-path", "", "browser binary for the browser-based provider")
	fs.BoolVar(&f.noProvider, "no-provider", false, "disable the PO-token provider")
	fs.BoolVar(&f.noAndroid, "no-android-client", false, "disable the Android client workaround")
	fs.BoolVar(&f.listFormats, "F", false, "list available formats and exit")
	fs.BoolVar(&f.listFormats, "list-formats", false, "list available formats and exit")
	fs.BoolVar(&f.pickFormat, "pick-format", false, "pick the format interactively")
	fs.BoolVar(&f.infoOnly, "info", false, "print metadata without downloading")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return f, usageError{err}
	}

	if f.opts.URL == "" && fs.NArg() > 0 {
		f.opts.URL = fs.Arg(0)
	}
	if strings.TrimSpace(f.opts.URL) == "" {
		return f, usageError{fmt.Errorf("a video URL is required")}
	}
	if err := f.opts.Validate(); err != nil {
		return f, err
	}
	return f, nil
}

func runDownload(args []string) error {
	f, err := parseDownloadArgs(args)
	if err != nil {
		return err
	}
	if err := ytdlp.CheckExtractor(); err != nil {
		return err
	}

	runner := ytdlp.ExecRunner{}

	if f.infoOnly {
		return printVideoInfo(runner, f.opts)
	}
	if f.listFormats {
		return listVideoFormats(runner, f.opts)
	}
	if f.pickFormat {
		spec, err := pickVideoFormat(runner, f.opts)
		if err != nil {
			return err
		}
		if spec == "" {
			printInfo("no format selected")
			return nil
		}
		f.opts.FormatSpec = spec
		f.opts.Quality = ""
	}

	session := &engine.Session{
		Opts:   f.opts,
		Runner: runner,
		RunOpts: ytdlp.RunOptions{
			HideCookieLogs: f.opts.CookiesFromBrowser != "",
		},
		AutoProvider:      !f.noProvider,
		AndroidWorkaround: !f.noAndroid,
		BrowserPath:       f.browserPath,
		Infof:             printInfo,
		Warnf:             printWarn,
		OnResult:          printReport,
	}
	if session.AutoProvider {
		proxyURL, noProxy := provider.ProxySettings(f.opts.ProxyURL)
		session.Provider = &provider.Manager{
			Docker:    provider.CLIDocker{},
			Inspector: provider.PipInspector{},
			ProxyURL:  proxyURL,
			NoProxy:   noProxy,
			Warnf:     printWarn,
		}
	}

	code, err := session.Run()
	if err != nil {
		return err
	}
	if code != 0 {
		return downloadFailedError{attemptExit: code}
	}
	return nil
}

func printReport(report finalize.Report) {
	if report.Path == "" {
		printWarn("download finished but no new file was found in %s", report.OutputDir)
		return
	}
	printOK("saved %s", report.Path)
	line := "size: " + report.Size
	if report.Resolution != "" {
		line += "  resolution: " + report.Resolution
	}
	printInfo("%s", line)
}

func printVideoInfo(runner ytdlp.Runner, opts ytdlp.Options) error {
	base, err := opts.BaseArgs()
	if err != nil {
		return err
	}
	info, attempt, err := metadata.FromExtractor(runner, base, opts.URL)
	if err != nil {
		printWarn("direct metadata extraction failed; falling back to oEmbed")
		if msg := strings.TrimSpace(ytdlp.FilterCookieLines(attempt.Stderr)); msg != "" {
			printInfo("%s", msg)
		}
		info, err = metadata.FromOEmbed(metadata.DefaultOEmbedEndpoint, opts.URL)
		if err != nil {
			return fmt.Errorf("could not fetch metadata: %w", err)
		}
	}

	fmt.Println(titleStyle.Render(info.Title))
	fmt.Println("  uploader: " + info.Uploader)
	fmt.Println("  duration: " + info.Duration)
	if info.Thumbnail != "" {
		fmt.Println("  thumbnail: " + info.Thumbnail)
	}
	if info.Source == "oembed" {
		printInfo("(limited metadata via oEmbed)")
	}
	return nil
}

func listVideoFormats(runner ytdlp.Runner, opts ytdlp.Options) error {
	base, err := opts.BaseArgs()
	if err != nil {
		return err
	}
	args := append(base, "-F", opts.URL)
	attempt := runner.Run(args, ytdlp.RunOptions{})
	if attempt.ExitCode != 0 {
		return downloadFailedError{attemptExit: attempt.ExitCode}
	}
	return nil
}
