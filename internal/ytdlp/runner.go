// Package ytdlp wraps the external yt-dlp extractor: argument construction,
// subprocess execution with captured output, and version handling.
package ytdlp

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
)

const binaryName = "yt-dlp"

// Attempt is the immutable record of one extractor invocation.
type Attempt struct {
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
}

// Output returns the combined captured output.
func (a Attempt) Output() string {
	return a.Stdout + a.Stderr
}

// RunOptions controls how an attempt's output is surfaced.
type RunOptions struct {
	// HideCookieLogs drops the noisy cookie-extraction lines yt-dlp
	// prints for --cookies-from-browser sessions.
	HideCookieLogs bool
	// Quiet suppresses echoing to Stdout/Stderr entirely (metadata and
	// list invocations that post-process the output themselves).
	Quiet  bool
	Stdout io.Writer
	Stderr io.Writer
}

// MissingToolError reports a required external binary that is not on PATH.
type MissingToolError struct {
	Tool string
	Hint string
}

func (e MissingToolError) Error() string {
	if e.Hint == "" {
		return fmt.Sprintf("%s is not installed", e.Tool)
	}
	return fmt.Sprintf("%s is not installed (%s)", e.Tool, e.Hint)
}

// CheckExtractor verifies yt-dlp is reachable on PATH.
func CheckExtractor() error {
	if _, err := exec.LookPath(binaryName); err != nil {
		return MissingToolError{
			Tool: binaryName,
			Hint: "install via: brew install yt-dlp  # or: pip install yt-dlp",
		}
	}
	return nil
}

// Runner invokes yt-dlp. The engine depends on this type so tests can
// substitute a scripted fake.
type Runner interface {
	Run(args []string, opts RunOptions) Attempt
}

// ExecRunner runs the real binary, echoing output line by line while
// keeping a full capture for classification.
type ExecRunner struct{}

func (ExecRunner) Run(args []string, opts RunOptions) Attempt {
	stdoutW := opts.Stdout
	if stdoutW == nil {
		stdoutW = os.Stdout
	}
	stderrW := opts.Stderr
	if stderrW == nil {
		stderrW = os.Stderr
	}

	cmd := exec.Command(binaryName, args...)
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return Attempt{Args: args, ExitCode: 1, Stderr: fmt.Sprintf("setup stdout pipe: %v", err)}
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return Attempt{Args: args, ExitCode: 1, Stderr: fmt.Sprintf("setup stderr pipe: %v", err)}
	}
	if err := cmd.Start(); err != nil {
		return Attempt{Args: args, ExitCode: 1, Stderr: fmt.Sprintf("start %s: %v", binaryName, err)}
	}

	var outBuf strings.Builder
	var errBuf strings.Builder
	var wg sync.WaitGroup

	read := func(r io.Reader, capture *strings.Builder, echo io.Writer) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		buf := make([]byte, 0, 64*1024)
		scanner.Buffer(buf, 1024*1024)
		scanner.Split(splitByNewlineOrCR)
		for scanner.Scan() {
			line := scanner.Text()
			capture.WriteString(line)
			capture.WriteByte('\n')
			if opts.Quiet {
				continue
			}
			if opts.HideCookieLogs && isCookieNoise(line) {
				continue
			}
			_, _ = io.WriteString(echo, line+"\n")
		}
	}

	wg.Add(2)
	go read(stdoutPipe, &outBuf, stdoutW)
	go read(stderrPipe, &errBuf, stderrW)
	wg.Wait()

	exitCode := 0
	if err := cmd.Wait(); err != nil {
		exitCode = 1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
	}
	return Attempt{
		Args:     append([]string{}, args...),
		ExitCode: exitCode,
		Stdout:   outBuf.String(),
		Stderr:   errBuf.String(),
	}
}

// yt-dlp rewrites progress lines with bare carriage returns; treat CR and
// LF both as line boundaries.
func splitByNewlineOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' || data[i] == '\r' {
			if i == 0 {
				return 1, nil, nil
			}
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func isCookieNoise(line string) bool {
	lowered := strings.ToLower(line)
	if strings.Contains(lowered, "extracting cookies") {
		return true
	}
	return strings.Contains(lowered, "extracted") && strings.Contains(lowered, "cookies")
}

// FilterCookieLines strips the cookie-extraction noise from already
// captured text before it is shown to the user.
func FilterCookieLines(text string) string {
	if text == "" {
		return ""
	}
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if isCookieNoise(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
