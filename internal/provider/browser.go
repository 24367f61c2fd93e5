package provider

import (
	"os"
	"os/exec"
)

// macOS app-bundle locations checked before falling back to PATH lookup.
var browserBundlePaths = []string{
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"/Applications/Chromium.app/Contents/MacOS/Chromium",
}

var browserBinaryNames = []string{"google-chrome", "chromium", "chromium-browser", "chrome"}

// FindBrowser locates a Chromium-family executable for the browser-backed
// provider. Empty result means the provider runs degraded, without a
// pinned browser path.
func FindBrowser() string {
	for _, candidate := range browserBundlePaths {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	for _, name := range browserBinaryNames {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}
