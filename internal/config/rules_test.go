package config

import (
	"testing"
)

func TestParseForwardRule(t *testing.T) {
	tests := []struct {
		raw   string
		secure bool
		want   ForwardRule
	}{
		{"localhost:3000/api", false, ForwardRule{Host: "localhost", Port: "3000", PathPrefix: "/api"}},
		{"api.example.com/v1/users", true, ForwardRule{Host: "api.example.com", PathPrefix: "/v1/users", Secure: true}},
		{"backend", false, ForwardRule{Host: "backend", PathPrefix: "/"}},
		{"backend:8081", false, ForwardRule{Host: "backend", Port: "8081", PathPrefix: "/"}},
		{"backend/", false, ForwardRule{Host: "backend", PathPrefix: "/"}},
	}

	for _, tc := range tests {
		got, err := ParseForwardRule(tc.raw, tc.secure)
		if err != nil {
			t.Errorf("ParseForwardRule(%q) unexpected error: %v", tc.raw, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseForwardRule(%q) = %+v, want %+v", tc.raw, got, tc.want)
		}
	}
}

func TestParseForwardRuleErrors(t *testing.T) {
	for _, raw := range []string{"", "   ", ":3000/api", "host:/api", "host:1:2/api"} {
		if _, err := ParseForwardRule(raw, false); err == nil {
			t.Errorf("ParseForwardRule(%q) expected error", raw)
		}
	}
}

func TestParseForwardRulesOrdersHTTPBeforeHTTPS(t *testing.T) {
	rules, err := ParseForwardRules(
		[]string{"a.local/a", "b.local/b"},
		[]string{"c.local/c"},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rules) != 3 {
		t.Fatalf("expected 3 rules, got %d", len(rules))
	}
	wantHosts := []string{"a.local", "b.local", "c.local"}
	for i, r := range rules {
		if r.Host != wantHosts[i] {
			t.Errorf("rules[%d].Host = %q, want %q", i, r.Host, wantHosts[i])
		}
	}
	if rules[0].Secure || rules[1].Secure || !rules[2].Secure {
		t.Errorf("unexpected secure flags: %+v", rules)
	}
}

func TestForwardRuleOrigin(t *testing.T) {
	tests := []struct {
		rule ForwardRule
		want string
	}{
		{ForwardRule{Host: "localhost", Port: "3000"}, "http://localhost:3000"},
		{ForwardRule{Host: "api.example.com", Secure: true}, "https://api.example.com"},
	}
	for _, tc := range tests {
		if got := tc.rule.Origin(); got != tc.want {
			t.Errorf("Origin() = %q, want %q", got, tc.want)
		}
	}
}

func TestPathPrefixAlwaysStartsWithSlash(t *testing.T) {
	for _, raw := range []string{"h", "h/", "h/x", "h:1/x/y", "h:1"} {
		r, err := ParseForwardRule(raw, false)
		if err != nil {
			t.Fatalf("ParseForwardRule(%q): %v", raw, err)
		}
		if r.PathPrefix == "" || r.PathPrefix[0] != '/' {
			t.Errorf("ParseForwardRule(%q).PathPrefix = %q", raw, r.PathPrefix)
		}
	}
}
