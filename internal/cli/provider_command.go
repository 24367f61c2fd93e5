package cli

import (
	"flag"
	"fmt"

	"yt-fetch/internal/provider"
)

func runProvider(args []string) error {
	if len(args) == 0 {
		printProviderUsage()
		return usageError{fmt.Errorf("provider requires a subcommand")}
	}
	action := args[0]

	fs := flag.NewFlagSet("provider "+action, flag.ContinueOnError)
	proxy := fs.String("proxy", "", "proxy URL (defaults to proxy environment variables)")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args[1:]); err != nil {
		return usageError{err}
	}

	proxyURL, noProxy := provider.ProxySettings(*proxy)
	mgr := &provider.Manager{
		Docker:    provider.CLIDocker{},
		Inspector: provider.PipInspector{},
		ProxyURL:  proxyURL,
		NoProxy:   noProxy,
		Warnf:     printWarn,
	}

	switch action {
	case "status":
		if mgr.Ping() {
			printOK("provider is running (%s)", provider.DefaultHealthURL)
			return nil
		}
		printWarn("provider is not answering on %s", provider.DefaultHealthURL)
		if !mgr.Docker.Available() {
			printInfo("docker is not installed; only the browser backend is possible")
		} else if mgr.Docker.ContainerExists(provider.ContainerName) {
			printInfo("container %s exists but is not healthy", provider.ContainerName)
		}
		return nil
	case "start":
		backend, err := mgr.Ensure()
		if err != nil {
			return err
		}
		printOK("provider ready (backend: %s)", backend)
		return nil
	case "restart":
		if err := mgr.Restart(); err != nil {
			return err
		}
		printOK("provider restarted")
		return nil
	case "stop":
		if err := mgr.Stop(); err != nil {
			return err
		}
		printOK("provider container removed")
		return nil
	default:
		printProviderUsage()
		return usageError{fmt.Errorf("unknown provider subcommand %q", action)}
	}
}

func printProviderUsage() {
	fmt.Println("usage: yt-fetch provider <status|start|restart|stop> [--proxy <url>]")
}
