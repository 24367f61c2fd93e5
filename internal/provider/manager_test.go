package provider

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type fakeDocker struct {
	available   bool
	daemonReady bool
	exists      bool

	startErr error
	runErr   error

	calls []string
}

func (d *fakeDocker) Available() bool {
	d.calls = append(d.calls, "available")
	return d.available
}

func (d *fakeDocker) DaemonReady() bool {
	d.calls = append(d.calls, "daemon")
	return d.daemonReady
}

func (d *fakeDocker) ContainerExists(name string) bool {
	d.calls = append(d.calls, "exists:"+name)
	return d.exists
}

func (d *fakeDocker) StartContainer(name string) error {
	d.calls = append(d.calls, "start:"+name)
	return d.startErr
}

func (d *fakeDocker) RunContainer(args []string) error {
	d.calls = append(d.calls, "run:"+strings.Join(args, " "))
	return d.runErr
}

func (d *fakeDocker) RemoveContainer(name string) error {
	d.calls = append(d.calls, "remove:"+name)
	return nil
}

type fakeInspector struct {
	version    string
	versionErr error
	installed  map[string]bool
	installErr error
	installs   []string
}

func (i *fakeInspector) ExtractorVersion() (string, error) {
	return i.version, i.versionErr
}

func (i *fakeInspector) IsPackageInstalled(name string) bool {
	return i.installed[name]
}

func (i *fakeInspector) InstallPackage(name string, upgrade bool, proxyURL string) error {
	i.installs = append(i.installs, name)
	return i.installErr
}

func healthServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestManager(docker *fakeDocker, inspector *fakeInspector, healthURL string) *Manager {
	return &Manager{
		Docker:       docker,
		Inspector:    inspector,
		HealthURL:    healthURL,
		ProbeTimeout: 200 * time.Millisecond,
		ReadyTimeout: 300 * time.Millisecond,
		PollInterval: 50 * time.Millisecond,
	}
}

func TestEnsureReusesRunningProvider(t *testing.T) {
	srv := healthServer(t, http.StatusOK)
	docker := &fakeDocker{}
	inspector := &fakeInspector{
		version:   "2025.06.01",
		installed: map[string]bool{"bgutil-ytdlp-pot-provider": true},
	}
	m := newTestManager(docker, inspector, srv.URL)

	backend, err := m.Ensure()
	if err != nil {
		t.Fatal(err)
	}
	if backend != BackendContainer {
		t.Fatalf("expected container backend, got %q", backend)
	}
	if m.State() != StateReady {
		t.Fatalf("expected ready state, got %q", m.State())
	}
	// A healthy provider must not trigger any docker calls.
	if len(docker.calls) != 0 {
		t.Fatalf("unexpected docker calls: %v", docker.calls)
	}
}

func TestEnsureFallsBackToBrowserWithoutDocker(t *testing.T) {
	srv := healthServer(t, http.StatusServiceUnavailable)
	docker := &fakeDocker{available: false}
	inspector := &fakeInspector{
		version: "2025.12.01",
		installed: map[string]bool{
			"bgutil-ytdlp-pot-provider": true,
			"yt-dlp-getpot-wpc":         true,
		},
	}
	m := newTestManager(docker, inspector, srv.URL)

	backend, err := m.Ensure()
	if err != nil {
		t.Fatal(err)
	}
	if backend != BackendBrowser {
		t.Fatalf("expected browser backend, got %q", backend)
	}
	// Only the availability check may touch docker; no container lifecycle
	// subprocesses are issued.
	for _, call := range docker.calls {
		if call != "available" {
			t.Fatalf("unexpected docker call %q (all: %v)", call, docker.calls)
		}
	}
}

func TestEnsureBothBackendsFail(t *testing.T) {
	srv := healthServer(t, http.StatusServiceUnavailable)
	docker := &fakeDocker{available: false}
	inspector := &fakeInspector{
		version:    "2025.06.01", // too old for the browser plugin
		installed:  map[string]bool{"bgutil-ytdlp-pot-provider": true},
		installErr: errors.New("network down"),
	}
	m := newTestManager(docker, inspector, srv.URL)

	backend, err := m.Ensure()
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if backend != BackendNone {
		t.Fatalf("expected no backend, got %q", backend)
	}
	if m.State() != StateFailed {
		t.Fatalf("expected failed state, got %q", m.State())
	}
}

func TestEnsureStartsExistingContainer(t *testing.T) {
	// First probe misses (provider not yet running) so Ensure walks the
	// docker path; probes after the start call succeed.
	probes := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probes++
		if probes == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	docker := &fakeDocker{available: true, daemonReady: true, exists: true}
	inspector := &fakeInspector{
		version:   "2025.06.01",
		installed: map[string]bool{"bgutil-ytdlp-pot-provider": true},
	}
	m := newTestManager(docker, inspector, srv.URL)

	backend, err := m.Ensure()
	if err != nil {
		t.Fatal(err)
	}
	if backend != BackendContainer {
		t.Fatalf("expected container backend, got %q", backend)
	}
	wantCalls := []string{"available", "daemon", "exists:" + ContainerName, "start:" + ContainerName}
	if len(docker.calls) != len(wantCalls) {
		t.Fatalf("unexpected docker calls: %v", docker.calls)
	}
	for i, want := range wantCalls {
		if docker.calls[i] != want {
			t.Fatalf("call %d = %q, want %q (all: %v)", i, docker.calls[i], want, docker.calls)
		}
	}
}

func TestCreateContainerForwardsProxyEnv(t *testing.T) {
	srv := healthServer(t, http.StatusOK)
	docker := &fakeDocker{available: true, daemonReady: true}
	inspector := &fakeInspector{version: "2025.06.01", installed: map[string]bool{"bgutil-ytdlp-pot-provider": true}}
	m := newTestManager(docker, inspector, srv.URL)
	m.ProxyURL = "http://proxy.corp:3128"
	m.NoProxy = "internal.example"

	if err := m.createContainer(); err != nil {
		t.Fatal(err)
	}
	if len(docker.calls) != 1 {
		t.Fatalf("expected one run call, got %v", docker.calls)
	}
	run := docker.calls[0]
	if !strings.Contains(run, "HTTPS_PROXY=http://proxy.corp:3128") {
		t.Fatalf("proxy env not forwarded: %q", run)
	}
	if !strings.Contains(run, "NO_PROXY=internal.example") {
		t.Fatalf("no-proxy env not forwarded: %q", run)
	}
	if strings.Contains(run, "--network host") {
		t.Fatalf("remote proxy must not force host networking: %q", run)
	}
	if !strings.Contains(run, "--init "+Image) {
		t.Fatalf("expected init flag and image: %q", run)
	}
}

func TestCreateContainerLoopbackProxyUsesHostNetwork(t *testing.T) {
	docker := &fakeDocker{available: true, daemonReady: true}
	inspector := &fakeInspector{}
	m := newTestManager(docker, inspector, "http://127.0.0.1:1/ping")
	m.ProxyURL = "http://127.0.0.1:1082"

	if err := m.createContainer(); err != nil {
		t.Fatal(err)
	}
	run := docker.calls[0]
	if !strings.Contains(run, "--network host") {
		t.Fatalf("loopback proxy must use host networking: %q", run)
	}
	if !strings.Contains(run, "ALL_PROXY=http://127.0.0.1:1082") {
		t.Fatalf("loopback proxy must be forwarded unrewritten under host networking: %q", run)
	}
}

func TestCreateContainerHostNetworkFailureRewritesProxy(t *testing.T) {
	docker := &fakeDocker{available: true, daemonReady: true, runErr: errors.New("host network unsupported")}
	inspector := &fakeInspector{}
	m := newTestManager(docker, inspector, "http://127.0.0.1:1/ping")
	m.ProxyURL = "http://127.0.0.1:1082"

	// First run fails; the retry must drop host networking and rewrite the
	// proxy host. The fake keeps failing, so createContainer errors, but
	// both invocations are recorded.
	if err := m.createContainer(); err == nil {
		t.Fatal("expected error from persistent run failure")
	}
	if len(docker.calls) != 2 {
		t.Fatalf("expected two run attempts, got %v", docker.calls)
	}
	retry := docker.calls[1]
	if strings.Contains(retry, "--network host") {
		t.Fatalf("retry must not use host networking: %q", retry)
	}
	if !strings.Contains(retry, "ALL_PROXY=http://host.docker.internal:1082") {
		t.Fatalf("retry must rewrite the loopback proxy: %q", retry)
	}
}

func TestRestartRecreatesContainer(t *testing.T) {
	srv := healthServer(t, http.StatusOK)
	docker := &fakeDocker{available: true, daemonReady: true, exists: true}
	inspector := &fakeInspector{}
	m := newTestManager(docker, inspector, srv.URL)

	if err := m.Restart(); err != nil {
		t.Fatal(err)
	}
	joined := strings.Join(docker.calls, "|")
	if !strings.Contains(joined, "remove:"+ContainerName) {
		t.Fatalf("restart must remove the old container: %v", docker.calls)
	}
	if !strings.Contains(joined, "run:") {
		t.Fatalf("restart must recreate the container: %v", docker.calls)
	}
	if m.State() != StateReady {
		t.Fatalf("expected ready after restart, got %q", m.State())
	}
}

func TestEnsureBrowserInstallsPlugin(t *testing.T) {
	inspector := &fakeInspector{version: "2025.10.01", installed: map[string]bool{}}
	m := newTestManager(&fakeDocker{}, inspector, "http://127.0.0.1:1/ping")

	if !m.EnsureBrowser() {
		t.Fatal("expected browser plugin install to succeed")
	}
	if len(inspector.installs) != 1 || inspector.installs[0] != "yt-dlp-getpot-wpc" {
		t.Fatalf("expected wpc plugin install, got %v", inspector.installs)
	}
}
