// Package httpx builds the HTTP clients used to fetch pages and media from third-party hosts.
package httpx

import (
	"errors"
	"net/http"
	"time"
)

const (
	DefaultRetryMax = 2
	// DesktopUserAgent is sent by default, since several hosts refuse obvious non-browser clients.
	DesktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	// MobileUserAgent is the user agent presented to YouTube.
	MobileUserAgent = "Mozilla/5.0 (Android 12; Mobile; rv:68.0) Gecko/68.0 Firefox/96.0"
)

// Transport sets a default User-Agent and retries idempotent requests that fail before a response arrives.
type Transport struct {
	Base http.RoundTripper
	// UserAgent is set on requests that don't carry one.
	UserAgent string
	// RetryMax is the number of retries after the first attempt.
	RetryMax int
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	// Only requests that can be replayed are retried.
	retries := t.RetryMax
	if retries < 0 || (req.Method != http.MethodGet && req.Method != http.MethodHead) || req.Body != nil {
		retries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		r := req.Clone(req.Context())
		if r.Header.Get("User-Agent") == "" && t.UserAgent != "" {
			r.Header.Set("User-Agent", t.UserAgent)
		}
		resp, err := base.RoundTrip(r)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if req.Context().Err() != nil {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

type Option func(*http.Client, *Transport)

func WithUserAgent(ua string) Option {
	return func(_ *http.Client, t *Transport) {
		t.UserAgent = ua
	}
}

func WithRetries(n int) Option {
	return func(_ *http.Client, t *Transport) {
		t.RetryMax = n
	}
}

func WithBase(base http.RoundTripper) Option {
	return func(_ *http.Client, t *Transport) {
		t.Base = base
	}
}

// NewClient builds a client with a desktop User-Agent and bounded retries.
func NewClient(opts ...Option) *http.Client {
	tr := &Transport{
		Base: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
		},
		UserAgent: DesktopUserAgent,
		RetryMax:  DefaultRetryMax,
	}
	client := &http.Client{Transport: tr}
	for _, opt := range opts {
		opt(client, tr)
	}
	return client
}
