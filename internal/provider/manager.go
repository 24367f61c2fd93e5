// Package provider manages the PO-token provider sidecar: a local HTTP
// service that yt-dlp's plugin consults for verification tokens. The
// preferred backend is a named Docker container; when Docker or its
// preconditions are missing the manager falls back to a browser-backed
// provider plugin.
package provider

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"yt-fetch/internal/ytdlp"
)

const (
	// ContainerName is the reserved sidecar container name. It is shared
	// across sessions; lifecycle operations are issued check-then-act and
	// are safe to repeat, but concurrent sessions racing on the name are
	// not protected.
	ContainerName = "bgutil-pot-provider"
	// Image is the provider sidecar image.
	Image = "brainicism/bgutil-ytdlp-pot-provider"
	// DefaultHealthURL is the sidecar's loopback health endpoint.
	DefaultHealthURL = "http://127.0.0.1:4416/ping"

	containerPluginPackage = "bgutil-ytdlp-pot-provider"
	browserPluginPackage   = "yt-dlp-getpot-wpc"

	// Minimum extractor versions the plugin packages support.
	minContainerPluginVersion = "2025.05.22"
	minBrowserPluginVersion   = "2025.09.26"
)

// State is the per-session lifecycle state of the provider.
type State string

const (
	StateNotStarted State = "not_started"
	StateStarting   State = "starting"
	StateReady      State = "ready"
	StateFailed     State = "failed"
)

// Backend identifies which provider path is serving the session.
type Backend string

const (
	BackendNone      Backend = ""
	BackendContainer Backend = "container"
	BackendBrowser   Backend = "browser"
)

// ErrUnavailable means both the container and browser provider paths
// failed their preconditions or startup.
var ErrUnavailable = errors.New("no PO-token provider backend available")

// Manager owns no in-process state beyond the reserved name and the
// last-known lifecycle state; readiness is re-derived by probing.
type Manager struct {
	Docker    Docker
	Inspector ToolInspector

	ProxyURL string
	NoProxy  string

	HealthURL    string
	ProbeTimeout time.Duration
	ReadyTimeout time.Duration
	PollInterval time.Duration

	// Warnf surfaces fallback decisions to the user. Nil discards.
	Warnf func(format string, args ...any)

	state State
}

func (m *Manager) State() State {
	if m.state == "" {
		return StateNotStarted
	}
	return m.state
}

func (m *Manager) warnf(format string, args ...any) {
	if m.Warnf != nil {
		m.Warnf(format, args...)
	}
}

func (m *Manager) healthURL() string {
	if m.HealthURL != "" {
		return m.HealthURL
	}
	return DefaultHealthURL
}

func (m *Manager) probeTimeout() time.Duration {
	if m.ProbeTimeout > 0 {
		return m.ProbeTimeout
	}
	return 3 * time.Second
}

func (m *Manager) readyTimeout() time.Duration {
	if m.ReadyTimeout > 0 {
		return m.ReadyTimeout
	}
	return 10 * time.Second
}

func (m *Manager) pollInterval() time.Duration {
	if m.PollInterval > 0 {
		return m.PollInterval
	}
	return time.Second
}

// Ping probes the health endpoint once.
func (m *Manager) Ping() bool {
	client := &http.Client{Timeout: m.probeTimeout()}
	resp, err := client.Get(m.healthURL())
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// WaitReady polls the health endpoint until it answers or the bounded
// wait expires.
func (m *Manager) WaitReady() bool {
	deadline := time.Now().Add(m.readyTimeout())
	for time.Now().Before(deadline) {
		if m.Ping() {
			return true
		}
		time.Sleep(m.pollInterval())
	}
	return false
}

// Ensure brings a provider backend up for the session: container-backed
// when Docker and the plugin preconditions hold, browser-backed otherwise.
// Returns ErrUnavailable when both paths fail.
func (m *Manager) Ensure() (Backend, error) {
	m.state = StateStarting

	if !m.ensureContainerPlugin() {
		return m.browserFallback("yt-dlp or its provider plugin is not ready for the container backend")
	}

	// A provider left running by an earlier session is reused as-is.
	if m.Ping() {
		m.state = StateReady
		return BackendContainer, nil
	}

	if !m.Docker.Available() {
		return m.browserFallback("Docker is not available")
	}
	if !m.Docker.DaemonReady() {
		return m.browserFallback("Docker daemon is not running")
	}

	if m.Docker.ContainerExists(ContainerName) {
		if err := m.Docker.StartContainer(ContainerName); err != nil {
			return m.browserFallback("provider container failed to start")
		}
	} else if err := m.createContainer(); err != nil {
		return m.browserFallback("provider container failed to start")
	}

	if m.WaitReady() {
		m.state = StateReady
		return BackendContainer, nil
	}

	// Started but never answered: one recreate-and-reprobe before giving
	// up on the container path.
	if err := m.Restart(); err == nil && m.Ping() {
		m.state = StateReady
		return BackendContainer, nil
	}
	return m.browserFallback("container-backed provider did not become ready")
}

// Restart force-recreates the sidecar container and waits for readiness.
// The retry engine calls this when a running provider stops answering.
func (m *Manager) Restart() error {
	if !m.Docker.Available() || !m.Docker.DaemonReady() {
		return errors.New("docker unavailable for provider restart")
	}
	if m.Docker.ContainerExists(ContainerName) {
		_ = m.Docker.RemoveContainer(ContainerName)
	}
	if err := m.createContainer(); err != nil {
		return err
	}
	if !m.WaitReady() {
		m.state = StateFailed
		return errors.New("provider did not become ready after restart")
	}
	m.state = StateReady
	return nil
}

// Stop removes the sidecar container. Used by the provider subcommand;
// download sessions leave the sidecar running.
func (m *Manager) Stop() error {
	if !m.Docker.Available() || !m.Docker.DaemonReady() {
		return errors.New("docker unavailable")
	}
	if !m.Docker.ContainerExists(ContainerName) {
		return nil
	}
	if err := m.Docker.RemoveContainer(ContainerName); err != nil {
		return fmt.Errorf("remove container %s: %w", ContainerName, err)
	}
	m.state = StateNotStarted
	return nil
}

// createContainer runs a fresh sidecar, forwarding proxy settings. A
// loopback proxy keeps its address under host networking; if host
// networking fails, one retry rewrites the proxy to the container-to-host
// alias on the default network.
func (m *Manager) createContainer() error {
	useHostNetwork := false
	containerProxy := m.ProxyURL
	if m.ProxyURL != "" {
		useHostNetwork = IsLoopbackProxy(m.ProxyURL)
		if !useHostNetwork {
			containerProxy = RewriteProxyForContainer(m.ProxyURL)
		}
	}

	if err := m.runContainer(containerProxy, useHostNetwork); err != nil {
		if useHostNetwork && m.ProxyURL != "" {
			rewritten := RewriteProxyForContainer(m.ProxyURL)
			return m.runContainer(rewritten, false)
		}
		return err
	}
	return nil
}

func (m *Manager) runContainer(containerProxy string, hostNetwork bool) error {
	args := []string{"-d", "--name", ContainerName}
	if hostNetwork {
		args = append(args, "--network", "host")
	}
	args = append(args, "-p", "4416:4416")
	args = append(args, proxyEnvArgs(containerProxy, m.NoProxy)...)
	args = append(args, "--init", Image)
	if err := m.Docker.RunContainer(args); err != nil {
		return fmt.Errorf("run container %s: %w", ContainerName, err)
	}
	return nil
}

func (m *Manager) ensureContainerPlugin() bool {
	version, err := m.Inspector.ExtractorVersion()
	if err != nil || !ytdlp.VersionAtLeast(version, minContainerPluginVersion) {
		m.warnf("yt-dlp needs to be updated before enabling the PO-token provider")
		return false
	}
	if m.Inspector.IsPackageInstalled(containerPluginPackage) {
		return true
	}
	m.warnf("installing PO-token provider plugin (one-time setup)...")
	return m.Inspector.InstallPackage(containerPluginPackage, false, m.ProxyURL) == nil
}

// EnsureBrowser prepares the browser-backed provider plugin. The retry
// engine also calls this directly when escalating away from a failing
// container backend.
func (m *Manager) EnsureBrowser() bool {
	version, err := m.Inspector.ExtractorVersion()
	if err != nil || !ytdlp.VersionAtLeast(version, minBrowserPluginVersion) {
		m.warnf("yt-dlp needs to be updated before enabling the browser-based provider")
		return false
	}
	if m.Inspector.IsPackageInstalled(browserPluginPackage) {
		return true
	}
	m.warnf("installing browser-based PO-token provider (one-time setup)...")
	return m.Inspector.InstallPackage(browserPluginPackage, true, m.ProxyURL) == nil
}

func (m *Manager) browserFallback(reason string) (Backend, error) {
	m.warnf("%s; switching to browser-based PO-token provider...", reason)
	if m.EnsureBrowser() {
		m.state = StateReady
		return BackendBrowser, nil
	}
	m.state = StateFailed
	return BackendNone, ErrUnavailable
}
