package provider

import (
	"os/exec"
	"strings"
)

// Docker is the container-runtime surface the lifecycle manager needs.
// The real implementation shells out to the docker CLI; tests substitute
// a scripted fake.
type Docker interface {
	Available() bool
	DaemonReady() bool
	ContainerExists(name string) bool
	StartContainer(name string) error
	RunContainer(args []string) error
	RemoveContainer(name string) error
}

// CLIDocker drives the docker command-line client.
type CLIDocker struct{}

func (CLIDocker) Available() bool {
	return exec.Command("docker", "--version").Run() == nil
}

func (CLIDocker) DaemonReady() bool {
	return exec.Command("docker", "info").Run() == nil
}

func (CLIDocker) ContainerExists(name string) bool {
	out, err := exec.Command("docker", "ps", "-a", "--filter", "name="+name, "--format", "{{.Names}}").Output()
	if err != nil {
		return false
	}
	for _, candidate := range strings.Fields(string(out)) {
		if candidate == name {
			return true
		}
	}
	return false
}

func (CLIDocker) StartContainer(name string) error {
	return exec.Command("docker", "start", name).Run()
}

func (CLIDocker) RunContainer(args []string) error {
	return exec.Command("docker", append([]string{"run"}, args...)...).Run()
}

func (CLIDocker) RemoveContainer(name string) error {
	return exec.Command("docker", "rm", "-f", name).Run()
}
