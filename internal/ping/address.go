package ping

import (
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"
)

const (
	DefaultJavaPort    = 25565
	DefaultBedrockPort = 19132
)

type Endpoint struct {
	Host string
	Port int
}

func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

func DefaultPort(edition Edition) int {
	if edition == EditionBedrock {
		return DefaultBedrockPort
	}
	return DefaultJavaPort
}

// ParsePort accepts a decimal port in [0, 65535].
func ParsePort(value string) (int, error) {
	port, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid port %q", ErrBadAddress, value)
	}
	if port < 0 || port > 65535 {
		return 0, fmt.Errorf("%w: port %d out of range (0-65535)", ErrBadAddress, port)
	}
	return port, nil
}

// ParseEndpoint splits "host[:port]" or "[ipv6][:port]". The boolean reports
// whether an SRV lookup may redirect the endpoint: only a bare host name
// without an explicit port qualifies.
func ParseEndpoint(input string, defaultPort int) (Endpoint, bool, error) {
	if strings.Contains(input, "]") {
		endpoint, err := parseBracketed(input, defaultPort)
		return endpoint, false, err
	}

	endpoint := Endpoint{Host: input, Port: defaultPort}
	srvAllowed := true
	if idx := strings.LastIndexByte(input, ':'); idx >= 0 {
		port, err := ParsePort(input[idx+1:])
		if err != nil {
			return Endpoint{}, false, err
		}
		endpoint.Host = input[:idx]
		endpoint.Port = port
		srvAllowed = false
	}
	if endpoint.Host == "" {
		return Endpoint{}, false, fmt.Errorf("%w: empty host", ErrBadAddress)
	}
	if isDottedQuad(endpoint.Host) {
		srvAllowed = false
	}
	return endpoint, srvAllowed, nil
}

func parseBracketed(input string, defaultPort int) (Endpoint, error) {
	if !strings.HasPrefix(input, "[") {
		return Endpoint{}, fmt.Errorf("%w: %q does not start with '['", ErrBadAddress, input)
	}
	end := strings.IndexByte(input, ']')
	addr, err := netip.ParseAddr(input[1:end])
	if err != nil || !addr.Is6() {
		return Endpoint{}, fmt.Errorf("%w: %q is not an IPv6 address", ErrBadAddress, input[1:end])
	}

	endpoint := Endpoint{Host: input[1:end], Port: defaultPort}
	rest := input[end+1:]
	if rest == "" {
		return endpoint, nil
	}
	if rest[0] != ':' {
		return Endpoint{}, fmt.Errorf("%w: unexpected %q after ']'", ErrBadAddress, rest)
	}
	port, err := ParsePort(rest[1:])
	if err != nil {
		return Endpoint{}, err
	}
	endpoint.Port = port
	return endpoint, nil
}

func isDottedQuad(host string) bool {
	addr, err := netip.ParseAddr(host)
	return err == nil && addr.Is4()
}
