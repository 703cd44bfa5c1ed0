package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"strings"

	"github.com/rathix/devserve/internal/config"
	"github.com/rathix/devserve/internal/metrics"
)

// OriginalHostHeader names the host the browser used, when devserve itself
// sits behind another proxy. It becomes the Domain of rewritten cookies.
const OriginalHostHeader = "X-Original-Host"

const defaultCookieDomain = "localhost"

var forwardedHeaders = []string{"X-Forwarded-For", "X-Forwarded-Host", "X-Forwarded-Proto"}

// Forwarder relays requests to upstream services according to an ordered
// rule table.
type Forwarder struct {
	rules     []config.ForwardRule
	handlers  []http.Handler
	transport http.RoundTripper
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// ForwarderOption configures a Forwarder.
type ForwarderOption func(*Forwarder)

// WithTransport sets the RoundTripper used for upstream requests.
func WithTransport(rt http.RoundTripper) ForwarderOption {
	return func(f *Forwarder) {
		f.transport = rt
	}
}

// WithForwardMetrics records forwarded requests on m.
func WithForwardMetrics(m *metrics.Metrics) ForwarderOption {
	return func(f *Forwarder) {
		f.metrics = m
	}
}

// WithForwardLogger sets the logger.
func WithForwardLogger(l *slog.Logger) ForwarderOption {
	return func(f *Forwarder) {
		f.logger = l
	}
}

// NewForwarder builds one reverse proxy per rule.
func NewForwarder(rules []config.ForwardRule, opts ...ForwarderOption) *Forwarder {
	f := &Forwarder{
		rules:  append([]config.ForwardRule(nil), rules...),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.transport == nil {
		f.transport = http.DefaultTransport
	}
	f.handlers = make([]http.Handler, len(f.rules))
	for i, rule := range f.rules {
		f.handlers[i] = f.newProxy(rule)
	}
	return f
}

// Rules returns the rule table in match order.
func (f *Forwarder) Rules() []config.ForwardRule {
	return append([]config.ForwardRule(nil), f.rules...)
}

// Match returns the rule index for the first rule whose prefix starts
// urlPath, or -1.
func (f *Forwarder) Match(urlPath string) int {
	for i, rule := range f.rules {
		if strings.HasPrefix(urlPath, rule.PathPrefix) {
			return i
		}
	}
	return -1
}

// Handler returns the proxy for the first matching rule, or nil.
func (f *Forwarder) Handler(urlPath string) http.Handler {
	if i := f.Match(urlPath); i >= 0 {
		return f.handlers[i]
	}
	return nil
}

func (f *Forwarder) newProxy(rule config.ForwardRule) http.Handler {
	scheme, authority, label := rule.Scheme(), rule.Authority(), rule.String()

	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.Out.URL.Scheme = scheme
			pr.Out.URL.Host = authority
			pr.Out.Host = authority
			for _, h := range forwardedHeaders {
				if v := pr.In.Header.Values(h); len(v) > 0 {
					pr.Out.Header[h] = v
				}
			}
		},
		Transport: f.transport,
		ModifyResponse: func(resp *http.Response) error {
			domain := resp.Request.Header.Get(OriginalHostHeader)
			if domain == "" {
				domain = defaultCookieDomain
			}
			if cookies := resp.Header["Set-Cookie"]; len(cookies) > 0 {
				rewritten := make([]string, len(cookies))
				for i, c := range cookies {
					rewritten[i] = RewriteSetCookie(c, domain)
				}
				resp.Header["Set-Cookie"] = rewritten
			}
			f.metrics.ObserveForward(label, nil)
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			f.logger.Warn("forward failed", "rule", label, "path", r.URL.Path, "error", err)
			f.metrics.ObserveForward(label, err)
			w.WriteHeader(http.StatusInternalServerError)
			io.WriteString(w, err.Error())
		},
	}
}
