package server

import "strings"

// RewriteSetCookie adapts one Set-Cookie value from an upstream so the
// browser keeps it under the proxy's origin: every segment keyed secure is
// dropped, the leading name=value pair included, and a Domain attribute is
// replaced by Domain=domain, appended after the remaining attributes.
// Cookies without a Domain stay host-only.
func RewriteSetCookie(value, domain string) string {
	parts := strings.Split(value, ";")
	out := make([]string, 0, len(parts)+1)
	hadDomain := false
	for i, part := range parts {
		attr := strings.TrimSpace(part)
		if attr == "" {
			continue
		}
		name, _, _ := strings.Cut(attr, "=")
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "secure":
			continue
		case "domain":
			if i > 0 {
				hadDomain = true
				continue
			}
		}
		out = append(out, attr)
	}
	if hadDomain {
		out = append(out, "Domain="+domain)
	}
	return strings.Join(out, "; ")
}
