package cli

import (
	"flag"
	"fmt"

	"yt-fetch/internal/engine"
	"yt-fetch/internal/ytdlp"
)

// runSearch downloads the best audio match for each query as a tagged MP3.
func runSearch(args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	outputDir := fs.String("o", "", "output directory")
	fs.StringVar(outputDir, "output-dir", "", "output directory")
	proxy := fs.String("proxy", "", "proxy URL")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return usageError{err}
	}
	queries := fs.Args()
	if len(queries) == 0 {
		return usageError{fmt.Errorf("at least one search query is required")}
	}
	if err := ytdlp.CheckExtractor(); err != nil {
		return err
	}

	failed := 0
	for _, query := range queries {
		fmt.Println(titleStyle.Render("searching: " + query))
		session := &engine.Session{
			Opts: ytdlp.Options{
				URL:           "ytsearch1:" + query,
				OutputDir:     *outputDir,
				ProxyURL:      *proxy,
				AudioOnly:     true,
				EmbedMetadata: true,
			},
			Runner:   ytdlp.ExecRunner{},
			Infof:    printInfo,
			Warnf:    printWarn,
			OnResult: printReport,
		}
		code, err := session.Run()
		if err != nil {
			printFail("%s: %v", query, err)
			failed++
			continue
		}
		if code != 0 {
			printFail("no download for %q", query)
			failed++
		}
	}

	if failed > 0 {
		return downloadFailedError{attemptExit: 1}
	}
	printOK("downloaded %d track(s)", len(queries))
	return nil
}
