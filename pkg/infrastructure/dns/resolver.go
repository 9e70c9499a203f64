package dns

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/WangYihang/Sitemap-Generator/pkg/domain/entity"
	"github.com/miekg/dns"
)

// DefaultServers are queried when no server is configured
var DefaultServers = []string{
	"8.8.8.8:53",
	"1.1.1.1:53",
}

// Resolver implements service.HostResolver
type Resolver struct {
	servers []string
	timeout time.Duration
	client  *dns.Client
}

// Config holds DNS resolver configuration
type Config struct {
	Servers []string
	Timeout time.Duration
}

// NewResolver creates a new DNS resolver
func NewResolver(config Config) *Resolver {
	if len(config.Servers) == 0 {
		config.Servers = DefaultServers
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}

	return &Resolver{
		servers: config.Servers,
		timeout: config.Timeout,
		client: &dns.Client{
			Timeout: config.Timeout,
		},
	}
}

// CheckHost implements service.HostResolver. A host exists when any server
// answers without NXDOMAIN for either an A or an AAAA question.
func (r *Resolver) CheckHost(ctx context.Context, host string) error {
	var lastErr error
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		rcode, err := r.exchange(ctx, host, qtype)
		if err != nil {
			lastErr = err
			continue
		}
		if rcode != dns.RcodeNameError {
			return nil
		}
		lastErr = fmt.Errorf("%s: %w", host, entity.ErrHostNotFound)
	}
	return lastErr
}

func (r *Resolver) exchange(ctx context.Context, host string, qtype uint16) (int, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), qtype)
	msg.RecursionDesired = true

	var errs []error
	// Try each DNS server
	for _, server := range r.servers {
		ctx, cancel := context.WithTimeout(ctx, r.timeout)
		resp, _, err := r.client.ExchangeContext(ctx, msg, server)
		cancel()

		if err == nil && resp != nil {
			return resp.Rcode, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", server, err))
	}
	return 0, fmt.Errorf("no response from any DNS server: %w", errors.Join(errs...))
}
