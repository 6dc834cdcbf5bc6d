package http

import (
	"crypto/tls"
	nethttp "net/http"
	"os"

	"golang.org/x/net/http2"

	"github.com/sfextract/sf-attachments/internal/config"
)

// CreateTransferClient creates the client used for attachment body
// downloads and archive uploads.
//
// It starts from ConfigureHTTPClient so proxy settings apply, then drops the
// overall timeout (bodies can be large; callers bound requests with their
// context) and enables HTTP/2. Set DISABLE_HTTP2=true to force HTTP/1.1.
// HTTP/2 is also disabled behind a proxy unless FORCE_HTTP2=true.
func CreateTransferClient(cfg *config.Config) (*nethttp.Client, error) {
	baseClient, err := ConfigureHTTPClient(cfg)
	if err != nil {
		return nil, err
	}

	tr, ok := baseClient.Transport.(*nethttp.Transport)
	if !ok {
		// NTLM wraps the transport in a Negotiator; leave it as is.
		baseClient.Timeout = 0
		return baseClient, nil
	}

	// Bodies are usually already compressed (pdf, zip, images).
	tr.DisableCompression = true
	tr.ForceAttemptHTTP2 = true

	_ = http2.ConfigureTransport(tr)

	if os.Getenv("DISABLE_HTTP2") == "true" || (proxyActive(cfg) && os.Getenv("FORCE_HTTP2") != "true") {
		tr.ForceAttemptHTTP2 = false
		tr.TLSNextProto = make(map[string]func(string, *tls.Conn) nethttp.RoundTripper)
	}

	baseClient.Transport = tr
	baseClient.Timeout = 0

	return baseClient, nil
}

// proxyActive reports whether requests will go through a proxy.
func proxyActive(cfg *config.Config) bool {
	switch cfg.ProxyMode {
	case "no-proxy", "":
		return false
	case "system":
		return os.Getenv("HTTP_PROXY") != "" || os.Getenv("HTTPS_PROXY") != "" ||
			os.Getenv("http_proxy") != "" || os.Getenv("https_proxy") != ""
	default:
		return true
	}
}
