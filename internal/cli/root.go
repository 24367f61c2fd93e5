package cli

import (
	"fmt"
	"strings"
)

func Run(args []string) error {
	if len(args) == 0 {
		printRootUsage()
		return nil
	}

	switch args[0] {
	case "download", "dl":
		return runDownload(args[1:])
	case "search":
		return runSearch(args[1:])
	case "doctor":
		return runDoctor(args[1:])
	case "provider":
		return runProvider(args[1:])
	case "help", "-h", "--help":
		printRootUsage()
		return nil
	}

	// Bare-URL shorthand: `yt-fetch <url> [flags]` downloads.
	if strings.HasPrefix(args[0], "http://") || strings.HasPrefix(args[0], "https://") {
		return runDownload(args)
	}

	printRootUsage()
	return usageError{fmt.Errorf("unknown command %q", args[0])}
}

func printRootUsage() {
	fmt.Println("yt-fetch: resilient yt-dlp front end with PO-token provider management")
	fmt.Println()
	fmt.Println("Quick Start:")
	fmt.Println("  yt-fetch download <url>")
	fmt.Println("  yt-fetch download <url> -q 1080p --subtitles")
	fmt.Println("  yt-fetch search \"some song\" \"another song\"")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  download  download a video (aliases: dl, or pass the URL directly)")
	fmt.Println("  search    search and download best audio matches as MP3")
	fmt.Println("  doctor    run dependency preflight checks")
	fmt.Println("  provider  manage the PO-token provider sidecar (status|start|restart|stop)")
	fmt.Println()
	fmt.Println("Notes:")
	fmt.Println("  - Use `download --info <url>` to print metadata without downloading")
	fmt.Println("  - Use `download --pick-format <url>` to choose a format interactively")
	fmt.Println("  - Exit codes: 0 success, 1 download/tool failure, 2 bad usage or config")
}
