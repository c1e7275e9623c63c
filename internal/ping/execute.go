package ping

import (
	"context"
	"fmt"
	"net"
	"time"

	"mcping/internal/logging"
)

type Config struct {
	// ProtocolVersion is advertised in the modern Java handshake.
	ProtocolVersion  int32
	ConnectTimeout   time.Duration
	ReadTimeout      time.Duration
	BedrockLocalPort int
	SRV              SRVResolver
}

func DefaultConfig() Config {
	return Config{
		ProtocolVersion: DefaultProtocolVersion,
		ConnectTimeout:  DefaultConnectTimeout,
		ReadTimeout:     DefaultReadTimeout,
		SRV:             &DNSResolver{},
	}
}

// Client runs single status probes. Probes share no state and may run concurrently.
type Client struct {
	config Config
	dial   func(ctx context.Context, endpoint Endpoint, timeout time.Duration) (net.Conn, error)
}

func NewClient(config Config) *Client {
	defaults := DefaultConfig()
	if config.ProtocolVersion == 0 {
		config.ProtocolVersion = defaults.ProtocolVersion
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = defaults.ConnectTimeout
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = defaults.ReadTimeout
	}
	if config.SRV == nil {
		config.SRV = defaults.SRV
	}
	return &Client{config: config, dial: dialTCP}
}

// ProbeJavaModern parses input with the Java default port and runs the status
// exchange. When useSRV is set and input is a bare host name, the SRV target is
// tried first and the original endpoint is the fallback.
func (c *Client) ProbeJavaModern(ctx context.Context, input string, useSRV bool) (*Status, error) {
	endpoint, srvAllowed, err := ParseEndpoint(input, DefaultJavaPort)
	if err != nil {
		return nil, err
	}

	if useSRV && srvAllowed {
		if target, ok := c.config.SRV.LookupSRV(ctx, endpoint.Host); ok {
			status, err := c.pingJava(ctx, target)
			if err == nil {
				status.SRVRedirect = target.String()
				status.set(FieldSRVRedirect)
				return status, nil
			}
			logging.Logger().Debug("srv target failed, falling back", "target", target.String(), "err", err)
		}
	}
	return c.pingJava(ctx, endpoint)
}

func (c *Client) ProbeJavaLegacy(ctx context.Context, endpoint Endpoint) (*Status, error) {
	return c.pingLegacy(ctx, endpoint)
}

func (c *Client) ProbeBedrock(ctx context.Context, endpoint Endpoint) (*Status, error) {
	return c.pingBedrock(ctx, endpoint)
}

func ProbeJavaModern(ctx context.Context, input string, useSRV bool) (*Status, error) {
	return NewClient(DefaultConfig()).ProbeJavaModern(ctx, input, useSRV)
}

func ProbeJavaLegacy(ctx context.Context, endpoint Endpoint) (*Status, error) {
	return NewClient(DefaultConfig()).ProbeJavaLegacy(ctx, endpoint)
}

func ProbeBedrock(ctx context.Context, endpoint Endpoint) (*Status, error) {
	return NewClient(DefaultConfig()).ProbeBedrock(ctx, endpoint)
}

func Execute(ctx context.Context, config ExecuteConfig) (*Status, error) {
	return NewClient(DefaultConfig()).Execute(ctx, config)
}

type ExecuteConfig struct {
	Edition   Edition
	Address   string
	EnableSRV bool
}

// Execute probes Address with the dialect named by Edition, applying that
// dialect's default port.
func (c *Client) Execute(ctx context.Context, config ExecuteConfig) (*Status, error) {
	switch config.Edition {
	case EditionJava:
		return c.ProbeJavaModern(ctx, config.Address, config.EnableSRV)
	case EditionLegacy, EditionBedrock:
		endpoint, _, err := ParseEndpoint(config.Address, DefaultPort(config.Edition))
		if err != nil {
			return nil, err
		}
		if config.Edition == EditionLegacy {
			return c.ProbeJavaLegacy(ctx, endpoint)
		}
		return c.ProbeBedrock(ctx, endpoint)
	default:
		return nil, fmt.Errorf("unknown edition: %s", config.Edition)
	}
}
