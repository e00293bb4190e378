package pkg

import (
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"
)

// addresses coming through the local docker bridge
var dockerBridgeAddrRegex = regexp.MustCompile(`^172\.\d{1,3}\.0\.1:\d{1,5}`)

// IPIsLocal reports whether the remote address belongs to the machine the
// service runs on, directly or through the docker bridge network.
func IPIsLocal(ipAddr string) bool {
	if strings.HasPrefix(ipAddr, "127.0.0.1:") {
		return true
	}
	return dockerBridgeAddrRegex.MatchString(ipAddr)
}

// ReadUserIP resolves the client address of a request, preferring the
// reverse proxy headers over the raw connection address.
func ReadUserIP(r *http.Request) (string, error) {
	ipAddr := r.Header.Get("X-Real-Ip")
	if ipAddr == "" {
		ipAddr = r.Header.Get("X-Forwarded-For")
	}
	if ipAddr == "" {
		ipAddr = r.RemoteAddr
	}

	if IPIsLocal(ipAddr) {
		return "localhost", nil
	}

	if host, _, err := net.SplitHostPort(ipAddr); err == nil {
		ipAddr = host
	}
	if net.ParseIP(ipAddr) == nil {
		return "", fmt.Errorf("invalid ip address %q", ipAddr)
	}

	return ipAddr, nil
}
