// Package finalize locates the artifact a successful attempt produced by
// diffing output-directory snapshots, and reports its size and resolution.
package finalize

import (
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

var videoExtensions = map[string]bool{
	".mp4": true, ".webm": true, ".mkv": true, ".mov": true, ".m4v": true,
}

var audioExtensions = map[string]bool{
	".mp3": true, ".m4a": true, ".opus": true, ".aac": true, ".flac": true, ".wav": true,
}

// Partial or bookkeeping files yt-dlp leaves behind mid-download.
var tempExtensions = map[string]bool{
	".part": true, ".ytdl": true, ".tmp": true,
}

// Snapshot records every regular file under root, recursively. Walk errors
// are ignored: a vanished temp file mid-walk is normal during downloads.
func Snapshot(root string) map[string]struct{} {
	files := make(map[string]struct{})
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type().IsRegular() {
			files[path] = struct{}{}
		}
		return nil
	})
	return files
}

// NewFiles returns the paths present in after but not before, sorted.
func NewFiles(before, after map[string]struct{}) []string {
	var out []string
	for path := range after {
		if _, ok := before[path]; !ok {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out
}

// PickPrimary selects the single largest file matching the expected media
// kind's extension group, ignoring partial/temp files. When nothing in the
// group matches, any non-temp file qualifies.
func PickPrimary(paths []string, audioOnly bool) string {
	wanted := videoExtensions
	if audioOnly {
		wanted = audioExtensions
	}

	var candidates []string
	for _, path := range paths {
		ext := strings.ToLower(filepath.Ext(path))
		if tempExtensions[ext] {
			continue
		}
		if wanted[ext] {
			candidates = append(candidates, path)
		}
	}
	if len(candidates) == 0 {
		for _, path := range paths {
			if !tempExtensions[strings.ToLower(filepath.Ext(path))] {
				candidates = append(candidates, path)
			}
		}
	}
	if len(candidates) == 0 {
		return ""
	}

	best := ""
	var bestSize int64 = -1
	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.Size() > bestSize {
			best = path
			bestSize = info.Size()
		}
	}
	return best
}

// Resolution reads the pixel dimensions of a video file via ffprobe.
// A missing probe tool or probe failure is not an error; the report just
// omits the resolution.
func Resolution(path string) (string, bool) {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return "", false
	}
	out, err := exec.Command(
		"ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=p=0:s=x",
		path,
	).Output()
	if err != nil {
		return "", false
	}
	value := strings.TrimSpace(string(out))
	if value == "" {
		return "", false
	}
	return value, true
}

// Report describes the outcome of a completed download.
type Report struct {
	OutputDir  string
	Path       string
	Size       string
	Resolution string
	AudioOnly  bool
}

// Collect diffs the pre-attempt snapshot against the directory's current
// contents and builds the user-facing report. An empty Path means no new
// artifact was found; that is informational, not a failure.
func Collect(outputDir string, before map[string]struct{}, audioOnly bool) Report {
	report := Report{OutputDir: outputDir, AudioOnly: audioOnly}

	after := Snapshot(outputDir)
	primary := PickPrimary(NewFiles(before, after), audioOnly)
	if primary == "" {
		return report
	}
	report.Path = primary
	if info, err := os.Stat(primary); err == nil {
		report.Size = humanize.IBytes(uint64(info.Size()))
	}
	if !audioOnly {
		if res, ok := Resolution(primary); ok {
			report.Resolution = res
		}
	}
	return report
}
