package config

import (
	"fmt"
	"net"
	"strings"
)

// ForwardRule routes requests whose path starts with PathPrefix to an upstream host.
type ForwardRule struct {
	Host       string
	Port       string
	PathPrefix string
	Secure     bool
}

// ParseForwardRule parses a rule of the form host[:port]/prefix.
// A rule without a path segment forwards everything ("/").
func ParseForwardRule(raw string, secure bool) (ForwardRule, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ForwardRule{}, fmt.Errorf("empty forward rule")
	}

	hostPort, prefix, _ := strings.Cut(raw, "/")
	host, port, hasPort := strings.Cut(hostPort, ":")
	if host == "" {
		return ForwardRule{}, fmt.Errorf("forward rule %q: missing host", raw)
	}
	if hasPort && port == "" {
		return ForwardRule{}, fmt.Errorf("forward rule %q: empty port", raw)
	}
	if strings.ContainsAny(port, ":/") {
		return ForwardRule{}, fmt.Errorf("forward rule %q: invalid port %q", raw, port)
	}

	return ForwardRule{
		Host:       host,
		Port:       port,
		PathPrefix: "/" + prefix,
		Secure:     secure,
	}, nil
}

// ParseForwardRules builds the forwarding table. HTTP rules come first, then
// HTTPS rules, each in declaration order.
func ParseForwardRules(httpRules, httpsRules []string) ([]ForwardRule, error) {
	rules := make([]ForwardRule, 0, len(httpRules)+len(httpsRules))
	for _, raw := range httpRules {
		r, err := ParseForwardRule(raw, false)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	for _, raw := range httpsRules {
		r, err := ParseForwardRule(raw, true)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// Scheme returns "https" for secure rules and "http" otherwise.
func (r ForwardRule) Scheme() string {
	if r.Secure {
		return "https"
	}
	return "http"
}

// Authority returns host[:port] for the upstream.
func (r ForwardRule) Authority() string {
	if r.Port == "" {
		return r.Host
	}
	return net.JoinHostPort(r.Host, r.Port)
}

// Origin returns scheme://host[:port].
func (r ForwardRule) Origin() string {
	return r.Scheme() + "://" + r.Authority()
}

func (r ForwardRule) String() string {
	return r.Origin() + r.PathPrefix
}
