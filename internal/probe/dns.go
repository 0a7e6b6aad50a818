package probe

import (
	"context"
	"fmt"
	"net"
)

// Resolver is satisfied by *net.Resolver.
type Resolver interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
}

type DNSReport struct {
	Valid  bool
	Reason string
}

type DNSValidator struct {
	Resolver Resolver
}

func NewDNSValidator() *DNSValidator {
	return &DNSValidator{Resolver: net.DefaultResolver}
}

// Validate checks that the hostname resolves to at least one A or AAAA record.
// Literal IP addresses are valid without a lookup.
func (v *DNSValidator) Validate(ctx context.Context, host string) DNSReport {
	if net.ParseIP(host) != nil {
		return DNSReport{Valid: true}
	}

	var firstErr error
	for _, network := range []string{"ip4", "ip6"} {
		ips, err := v.Resolver.LookupIP(ctx, network, host)
		if err == nil && len(ips) > 0 {
			return DNSReport{Valid: true}
		}
		if firstErr == nil {
			if err == nil {
				err = fmt.Errorf("no %s addresses for %s", network, host)
			}
			firstErr = err
		}
	}

	return DNSReport{Reason: firstErr.Error()}
}
