package ytdlp

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Version runs `yt-dlp --version` and returns the trimmed version string.
func Version() (string, error) {
	out, err := exec.Command(binaryName, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("query %s version: %w", binaryName, err)
	}
	v := strings.TrimSpace(string(out))
	if v == "" {
		return "", fmt.Errorf("%s reported an empty version", binaryName)
	}
	return v, nil
}

// VersionAtLeast compares dot-separated versions component-wise. Non-numeric
// components are skipped; the shorter side is zero-padded. Unparseable
// versions compare as "not at least".
func VersionAtLeast(version, minimum string) bool {
	current := parseVersion(version)
	required := parseVersion(minimum)
	if len(current) == 0 || len(required) == 0 {
		return false
	}
	for len(current) < len(required) {
		current = append(current, 0)
	}
	for len(required) < len(current) {
		required = append(required, 0)
	}
	for i := range current {
		if current[i] != required[i] {
			return current[i] > required[i]
		}
	}
	return true
}

func parseVersion(value string) []int {
	var parts []int
	for _, part := range strings.Split(value, ".") {
		n, err := strconv.Atoi(part)
		if err != nil {
			continue
		}
		parts = append(parts, n)
	}
	return parts
}

// PythonInterpreter locates the Python interpreter yt-dlp runs under by
// reading the shebang of the installed script. Plugin packages have to be
// installed into that same interpreter's environment.
func PythonInterpreter() (string, error) {
	path, err := exec.LookPath(binaryName)
	if err != nil {
		return "", fmt.Errorf("locate %s: %w", binaryName, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("read %s script: %w", binaryName, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return "", fmt.Errorf("%s script is empty", binaryName)
	}
	first := strings.TrimSpace(scanner.Text())
	if !strings.HasPrefix(first, "#!") {
		return "", fmt.Errorf("%s has no interpreter shebang (native binary install)", binaryName)
	}
	shebang := strings.TrimSpace(first[2:])
	if strings.HasSuffix(shebang, "env python3") || strings.HasSuffix(shebang, "env python") {
		return "python3", nil
	}
	return shebang, nil
}
