package cli

import (
	"errors"
	"flag"
	"fmt"
	"os/exec"

	"yt-fetch/internal/provider"
	"yt-fetch/internal/ytdlp"
)

type doctorCheck struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

type doctorResult struct {
	OK     bool          `json:"ok"`
	Checks []doctorCheck `json:"checks"`
}

func runDoctor(args []string) error {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return usageError{err}
	}

	res := collectDoctorChecks(provider.CLIDocker{})
	if *jsonOut {
		return printJSON(res)
	}

	for _, c := range res.Checks {
		if c.OK {
			printOK("%s: %s", c.Name, c.Message)
		} else {
			printFail("%s: %s", c.Name, c.Message)
		}
	}
	if !res.OK {
		return errors.New("doctor checks failed")
	}
	printOK("all checks passed")
	return nil
}

func collectDoctorChecks(docker provider.Docker) doctorResult {
	checks := make([]doctorCheck, 0, 5)

	checks = append(checks, extractorCheck())
	checks = append(checks, pathToolCheck("ffmpeg", "needed to merge video and audio streams"))
	checks = append(checks, pathToolCheck("ffprobe", "needed to report the final resolution"))

	switch {
	case !docker.Available():
		checks = append(checks, doctorCheck{
			Name:    "dependency:docker",
			OK:      false,
			Message: "docker not found on PATH (the PO-token provider will fall back to the browser backend)",
		})
	case !docker.DaemonReady():
		checks = append(checks, doctorCheck{
			Name:    "dependency:docker",
			OK:      false,
			Message: "docker daemon is not running",
		})
	default:
		checks = append(checks, doctorCheck{Name: "dependency:docker", OK: true, Message: "daemon reachable"})
	}

	ok := true
	for _, c := range checks {
		if !c.OK {
			ok = false
			break
		}
	}
	return doctorResult{OK: ok, Checks: checks}
}

func extractorCheck() doctorCheck {
	if err := ytdlp.CheckExtractor(); err != nil {
		return doctorCheck{Name: "dependency:yt-dlp", OK: false, Message: err.Error()}
	}
	version, err := ytdlp.Version()
	if err != nil {
		return doctorCheck{Name: "dependency:yt-dlp", OK: false, Message: "found but --version failed: " + err.Error()}
	}
	return doctorCheck{Name: "dependency:yt-dlp", OK: true, Message: "version " + version}
}

func pathToolCheck(name, hint string) doctorCheck {
	path, err := exec.LookPath(name)
	if err != nil {
		return doctorCheck{
			Name:    "dependency:" + name,
			OK:      false,
			Message: fmt.Sprintf("not found on PATH (%s)", hint),
		}
	}
	return doctorCheck{Name: "dependency:" + name, OK: true, Message: "found at " + path}
}
