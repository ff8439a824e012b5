package resolver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	_ "github.com/bdandy/go-socks4"
	"golang.org/x/net/proxy"

	"schedule-bot/pkg/logx"
)

// NewHTTPClient returns a client that goes through proxyStr when set.
// Supported schemes are http, https, socks5 and socks4. An unusable proxy
// is logged and the client connects directly.
func NewHTTPClient(proxyStr string, timeout time.Duration, log logx.Logger) *http.Client {
	client := &http.Client{Timeout: timeout}
	proxyStr = strings.TrimSpace(proxyStr)
	if proxyStr == "" {
		return client
	}

	transport, err := proxyTransport(proxyStr)
	if err != nil {
		log.Warn("proxy ignored, connecting directly", logx.String("proxy", redact(proxyStr)), logx.Err(err))
		return client
	}
	log.Info("using proxy", logx.String("proxy", redact(proxyStr)))
	client.Transport = transport
	return client
}

func proxyTransport(proxyStr string) (*http.Transport, error) {
	proxyURL, err := url.Parse(proxyStr)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy: %w", err)
	}

	switch proxyURL.Scheme {
	case "http", "https":
		return &http.Transport{Proxy: http.ProxyURL(proxyURL)}, nil
	case "socks5", "socks4":
		// socks4 is registered with x/net/proxy by go-socks4.
		dialer, err := proxy.FromURL(proxyURL, &net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 10 * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("%s dialer: %w", proxyURL.Scheme, err)
		}
		return &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				if cd, ok := dialer.(proxy.ContextDialer); ok {
					return cd.DialContext(ctx, network, addr)
				}
				return dialer.Dial(network, addr)
			},
		}, nil
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q", proxyURL.Scheme)
	}
}

func redact(proxyStr string) string {
	u, err := url.Parse(proxyStr)
	if err != nil || u.User == nil {
		return proxyStr
	}
	return u.Redacted()
}
