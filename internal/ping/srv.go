package ping

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"

	"mcping/internal/logging"
)

const (
	srvService        = "_minecraft._tcp."
	resolvConfPath    = "/etc/resolv.conf"
	defaultDNSTimeout = 5 * time.Second
)

// SRVResolver maps a host name to the endpoint named by its Minecraft SRV record.
type SRVResolver interface {
	LookupSRV(ctx context.Context, host string) (Endpoint, bool)
}

type SRVFunc func(ctx context.Context, host string) (Endpoint, bool)

func (f SRVFunc) LookupSRV(ctx context.Context, host string) (Endpoint, bool) {
	return f(ctx, host)
}

// SRVSelector picks one record out of an SRV answer.
type SRVSelector func(records []*dns.SRV) *dns.SRV

// FirstSRV returns the first answer and ignores priority and weight.
func FirstSRV(records []*dns.SRV) *dns.SRV {
	if len(records) == 0 {
		return nil
	}
	return records[0]
}

type DNSResolver struct {
	// Servers are "host:port" nameserver addresses. Empty means /etc/resolv.conf.
	Servers []string
	Select  SRVSelector
	Timeout time.Duration
}

func (r *DNSResolver) LookupSRV(ctx context.Context, host string) (Endpoint, bool) {
	log := logging.Logger()
	name := dns.Fqdn(srvService + host)

	servers := r.Servers
	if len(servers) == 0 {
		conf, err := dns.ClientConfigFromFile(resolvConfPath)
		if err != nil {
			log.Debug("no resolver config, using system SRV lookup", "err", err)
			return systemSRV(ctx, host)
		}
		for _, server := range conf.Servers {
			servers = append(servers, net.JoinHostPort(server, conf.Port))
		}
	}

	msg := new(dns.Msg)
	msg.SetQuestion(name, dns.TypeSRV)
	msg.Question[0].Qclass = dns.ClassINET

	for _, server := range servers {
		resp, err := r.exchange(ctx, msg, server)
		if err != nil {
			log.Warn("srv query failed", "name", name, "server", server, "err", err)
			continue
		}
		if resp.Rcode != dns.RcodeSuccess {
			log.Debug("srv query answered", "name", name, "rcode", dns.RcodeToString[resp.Rcode])
			return Endpoint{}, false
		}

		var records []*dns.SRV
		for _, rr := range resp.Answer {
			if srv, ok := rr.(*dns.SRV); ok {
				records = append(records, srv)
			}
		}
		selected := r.selector()(records)
		if selected == nil {
			log.Debug("no srv record", "name", name)
			return Endpoint{}, false
		}
		endpoint := Endpoint{Host: strings.TrimSuffix(selected.Target, "."), Port: int(selected.Port)}
		log.Debug("srv record found", "name", name, "target", endpoint.String())
		return endpoint, true
	}
	return Endpoint{}, false
}

func (r *DNSResolver) exchange(ctx context.Context, msg *dns.Msg, server string) (*dns.Msg, error) {
	client := &dns.Client{Net: "udp", Timeout: r.timeout()}
	resp, _, err := client.ExchangeContext(ctx, msg, server)
	if err != nil {
		return nil, err
	}
	if resp.Truncated {
		client.Net = "tcp"
		resp, _, err = client.ExchangeContext(ctx, msg, server)
	}
	return resp, err
}

func (r *DNSResolver) selector() SRVSelector {
	if r.Select != nil {
		return r.Select
	}
	return FirstSRV
}

func (r *DNSResolver) timeout() time.Duration {
	if r.Timeout > 0 {
		return r.Timeout
	}
	return defaultDNSTimeout
}

// systemSRV is used where no resolv.conf exists. The system resolver orders
// answers by priority and weight.
func systemSRV(ctx context.Context, host string) (Endpoint, bool) {
	_, records, err := net.DefaultResolver.LookupSRV(ctx, "minecraft", "tcp", host)
	if err != nil || len(records) == 0 {
		logging.Logger().Debug("system srv lookup found nothing", "host", host, "err", err)
		return Endpoint{}, false
	}
	return Endpoint{Host: strings.TrimSuffix(records[0].Target, "."), Port: int(records[0].Port)}, true
}
