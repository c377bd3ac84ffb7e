package github

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/rs/dnscache"
	"golang.org/x/oauth2"
)

// NewTransport returns a tuned *http.Transport with connection pooling and
// optional DNS caching.
func NewTransport(resolver *dnscache.Resolver) *http.Transport {
	t := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: 32,
		MaxConnsPerHost:     64,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	if resolver != nil {
		t.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}
			ips, err := resolver.LookupHost(ctx, host)
			if err != nil {
				return nil, err
			}
			var d net.Dialer
			return d.DialContext(ctx, network, net.JoinHostPort(ips[0], port))
		}
	}
	return t
}

// NewHTTPClient builds the client used for GitHub calls. When token is set,
// every request carries "Authorization: Bearer <token>" via oauth2.Transport;
// otherwise requests are anonymous. base may be nil.
func NewHTTPClient(base http.RoundTripper, token string, timeout time.Duration) *http.Client {
	if base == nil {
		base = http.DefaultTransport
	}
	rt := base
	if token != "" {
		rt = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
			Base:   base,
		}
	}
	return &http.Client{Transport: rt, Timeout: timeout}
}
