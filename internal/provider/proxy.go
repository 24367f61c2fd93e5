package provider

import (
	"net/url"
	"os"
)

// containerHostAlias is the hostname containers use to reach the host's
// loopback interface.
const containerHostAlias = "host.docker.internal"

// ProxySettings resolves the session proxy: an explicit flag wins, else the
// standard environment variables in precedence order. NO_PROXY is read from
// the environment regardless.
func ProxySettings(explicit string) (proxyURL, noProxy string) {
	proxyURL = explicit
	if proxyURL == "" {
		for _, key := range []string{"ALL_PROXY", "all_proxy", "HTTPS_PROXY", "https_proxy", "HTTP_PROXY", "http_proxy"} {
			if v := os.Getenv(key); v != "" {
				proxyURL = v
				break
			}
		}
	}
	noProxy = os.Getenv("NO_PROXY")
	if noProxy == "" {
		noProxy = os.Getenv("no_proxy")
	}
	return proxyURL, noProxy
}

// IsLoopbackProxy reports whether the proxy host is the local machine.
// Loopback proxies are unreachable from inside a container without host
// networking or a host-alias rewrite.
func IsLoopbackProxy(proxyURL string) bool {
	parsed, err := url.Parse(proxyURL)
	if err != nil {
		return false
	}
	host := parsed.Hostname()
	return host == "127.0.0.1" || host == "localhost"
}

// RewriteProxyForContainer replaces a loopback proxy host with the
// container-to-host alias, preserving scheme, userinfo, and port.
// Non-loopback proxies pass through unchanged.
func RewriteProxyForContainer(proxyURL string) string {
	parsed, err := url.Parse(proxyURL)
	if err != nil {
		return proxyURL
	}
	host := parsed.Hostname()
	if host != "127.0.0.1" && host != "localhost" {
		return proxyURL
	}
	if port := parsed.Port(); port != "" {
		parsed.Host = containerHostAlias + ":" + port
	} else {
		parsed.Host = containerHostAlias
	}
	return parsed.String()
}

// proxyEnvArgs builds the repeated -e flags that forward proxy settings
// into a container.
func proxyEnvArgs(proxyURL, noProxy string) []string {
	var args []string
	if proxyURL != "" {
		for _, key := range []string{"HTTP_PROXY", "HTTPS_PROXY", "ALL_PROXY", "http_proxy", "https_proxy", "all_proxy"} {
			args = append(args, "-e", key+"="+proxyURL)
		}
	}
	if noProxy != "" {
		for _, key := range []string{"NO_PROXY", "no_proxy"} {
			args = append(args, "-e", key+"="+noProxy)
		}
	}
	return args
}
