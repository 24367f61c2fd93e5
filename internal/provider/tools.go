package provider

import (
	"fmt"
	"os/exec"

	"yt-fetch/internal/ytdlp"
)

const pypiMirror = "https://pypi.tuna.tsinghua.edu.cn/simple"

// ToolInspector answers the precondition questions the lifecycle manager
// asks before enabling a provider backend: extractor version, plugin
// presence, plugin install. Tests substitute a fake so no real binaries,
// network, or pip are required.
type ToolInspector interface {
	ExtractorVersion() (string, error)
	IsPackageInstalled(name string) bool
	InstallPackage(name string, upgrade bool, proxyURL string) error
}

// PipInspector checks and installs plugin packages in the Python
// environment yt-dlp itself runs under.
type PipInspector struct{}

func (PipInspector) ExtractorVersion() (string, error) {
	return ytdlp.Version()
}

func (PipInspector) IsPackageInstalled(name string) bool {
	python, err := ytdlp.PythonInterpreter()
	if err != nil {
		return false
	}
	return exec.Command(python, "-m", "pip", "show", name).Run() == nil
}

func (PipInspector) InstallPackage(name string, upgrade bool, proxyURL string) error {
	python, err := ytdlp.PythonInterpreter()
	if err != nil {
		return err
	}
	args := []string{"-m", "pip", "install"}
	if upgrade {
		args = append(args, "-U")
	}
	args = append(args, name, "-i", pypiMirror)
	if proxyURL != "" {
		args = append(args, "--proxy", proxyURL)
	}
	if err := exec.Command(python, args...).Run(); err != nil {
		return fmt.Errorf("pip install %s: %w", name, err)
	}
	return nil
}
