package llm

import (
	"net"
	"net/http"
	"time"
)

// newHTTPClient creates an HTTP client for content-generation calls.
// There is no overall client timeout: the caller's context bounds each request.
func newHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		IdleConnTimeout:     90 * time.Second,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 5,
		MaxConnsPerHost:     10,
		ForceAttemptHTTP2:   true,
	}

	return &http.Client{
		Transport: transport,
	}
}
