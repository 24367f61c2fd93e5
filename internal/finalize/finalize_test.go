package finalize

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestSnapshotDiffFindsNewFiles(t *testing.T) {
	tmp := t.TempDir()
	writeFile(t, filepath.Join(tmp, "old.mp4"), 10)

	before := Snapshot(tmp)
	writeFile(t, filepath.Join(tmp, "new.mp4"), 20)
	writeFile(t, filepath.Join(tmp, "nested", "other.mkv"), 30)
	after := Snapshot(tmp)

	got := NewFiles(before, after)
	if len(got) != 2 {
		t.Fatalf("expected two new files, got %v", got)
	}
	for _, path := range got {
		if strings.HasSuffix(path, "old.mp4") {
			t.Fatalf("pre-existing file reported as new: %v", got)
		}
	}
}

func TestPickPrimaryPrefersLargestMatchingVideo(t *testing.T) {
	tmp := t.TempDir()
	small := filepath.Join(tmp, "small.mp4")
	large := filepath.Join(tmp, "large.webm")
	partial := filepath.Join(tmp, "huge.mp4.part")
	audio := filepath.Join(tmp, "track.mp3")
	writeFile(t, small, 100)
	writeFile(t, large, 500)
	writeFile(t, partial, 9000)
	writeFile(t, audio, 700)

	got := PickPrimary([]string{small, large, partial, audio}, false)
	if got != large {
		t.Fatalf("expected largest video %q, got %q", large, got)
	}
}

func TestPickPrimaryAudioOnly(t *testing.T) {
	tmp := t.TempDir()
	video := filepath.Join(tmp, "clip.mp4")
	track := filepath.Join(tmp, "track.mp3")
	writeFile(t, video, 5000)
	writeFile(t, track, 100)

	if got := PickPrimary([]string{video, track}, true); got != track {
		t.Fatalf("expected audio file %q, got %q", track, got)
	}
}

func TestPickPrimaryFallsBackToAnyNonTempFile(t *testing.T) {
	tmp := t.TempDir()
	subs := filepath.Join(tmp, "clip.en.vtt")
	partial := filepath.Join(tmp, "clip.mp4.part")
	writeFile(t, subs, 40)
	writeFile(t, partial, 4000)

	if got := PickPrimary([]string{subs, partial}, false); got != subs {
		t.Fatalf("expected non-temp fallback %q, got %q", subs, got)
	}
}

func TestPickPrimaryEmpty(t *testing.T) {
	if got := PickPrimary(nil, false); got != "" {
		t.Fatalf("expected empty pick, got %q", got)
	}
	if got := PickPrimary([]string{"only.part"}, false); got != "" {
		t.Fatalf("temp-only input must yield empty pick, got %q", got)
	}
}

func TestCollectReportsArtifact(t *testing.T) {
	tmp := t.TempDir()
	before := Snapshot(tmp)
	writeFile(t, filepath.Join(tmp, "video.mp4"), 2048)

	report := Collect(tmp, before, false)
	if report.Path != filepath.Join(tmp, "video.mp4") {
		t.Fatalf("unexpected artifact path %q", report.Path)
	}
	if report.Size != "2.0 KiB" {
		t.Fatalf("expected binary-prefixed size, got %q", report.Size)
	}
}

func TestCollectNoArtifact(t *testing.T) {
	tmp := t.TempDir()
	before := Snapshot(tmp)

	report := Collect(tmp, before, false)
	if report.Path != "" {
		t.Fatalf("expected empty path, got %q", report.Path)
	}
	if report.OutputDir != tmp {
		t.Fatalf("report must carry the output dir, got %q", report.OutputDir)
	}
}
