// Package metadata resolves video metadata for info-only invocations,
// falling back to the public oEmbed endpoint when direct extraction fails.
package metadata

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"yt-fetch/internal/ytdlp"
)

// DefaultOEmbedEndpoint is the public metadata fallback used when yt-dlp
// cannot extract directly (blocked, throttled, outdated).
const DefaultOEmbedEndpoint = "https://www.youtube.com/oembed"

// Info is the subset of metadata the info command prints. Partial fields
// are normal: the oEmbed fallback has no duration.
type Info struct {
	Title    string
	Uploader string
	Duration string
	Source   string
}

// Thumbnail is reported separately since either source may omit it.
type Result struct {
	Info
	Thumbnail string
}

// FromExtractor asks yt-dlp for the video's JSON metadata. The attempt is
// returned alongside the error so callers can surface the tool's output.
func FromExtractor(runner ytdlp.Runner, baseArgs []string, videoURL string) (Result, ytdlp.Attempt, error) {
	args := append(append([]string{}, baseArgs...), "--skip-download", "--dump-json", "--no-playlist", videoURL)
	attempt := runner.Run(args, ytdlp.RunOptions{Quiet: true})
	if attempt.ExitCode != 0 {
		return Result{}, attempt, fmt.Errorf("metadata extraction failed with exit code %d", attempt.ExitCode)
	}

	firstLine := ""
	for _, line := range strings.Split(attempt.Stdout, "\n") {
		if strings.TrimSpace(line) != "" {
			firstLine = line
			break
		}
	}
	if firstLine == "" {
		return Result{}, attempt, fmt.Errorf("no metadata returned")
	}
	if !gjson.Valid(firstLine) {
		return Result{}, attempt, fmt.Errorf("metadata output is not JSON")
	}

	parsed := gjson.Parse(firstLine)
	res := Result{
		Info: Info{
			Title:    stringOr(parsed.Get("title"), "Unknown title"),
			Uploader: "Unknown uploader",
			Duration: "Unknown",
			Source:   "extractor",
		},
		Thumbnail: parsed.Get("thumbnail").String(),
	}
	if uploader := parsed.Get("uploader"); uploader.Exists() && uploader.String() != "" {
		res.Uploader = uploader.String()
	} else if channel := parsed.Get("channel"); channel.Exists() && channel.String() != "" {
		res.Uploader = channel.String()
	}
	if duration := parsed.Get("duration"); duration.Exists() && duration.Type == gjson.Number {
		res.Duration = fmt.Sprintf("%ds", duration.Int())
	}
	return res, attempt, nil
}

// FromOEmbed fetches limited metadata from the oEmbed endpoint. Pass
// DefaultOEmbedEndpoint outside tests.
func FromOEmbed(endpoint, videoURL string) (Result, error) {
	query := url.Values{}
	query.Set("url", videoURL)
	query.Set("format", "json")

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Get(endpoint + "?" + query.Encode())
	if err != nil {
		return Result{}, fmt.Errorf("oEmbed request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("oEmbed request: status %d", resp.StatusCode)
	}
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("oEmbed response: %w", err)
	}
	if !gjson.ValidBytes(payload) {
		return Result{}, fmt.Errorf("oEmbed response is not JSON")
	}

	parsed := gjson.ParseBytes(payload)
	return Result{
		Info: Info{
			Title:    stringOr(parsed.Get("title"), "Unknown title"),
			Uploader: stringOr(parsed.Get("author_name"), "Unknown uploader"),
			Duration: "Unknown",
			Source:   "oembed",
		},
		Thumbnail: parsed.Get("thumbnail_url").String(),
	}, nil
}

func stringOr(value gjson.Result, fallback string) string {
	if value.Exists() && value.String() != "" {
		return value.String()
	}
	return fallback
}
