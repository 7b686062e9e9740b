package httpx

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
	require_ "github.com/stretchr/testify/require"
)

type flakyTransport struct {
	failures int
	calls    int
}

func (f *flakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("connection reset")
	}
	return http.DefaultTransport.RoundTrip(req)
}

func TestDefaultUserAgent(t *testing.T) {
	assert := assert_.New(t)
	require := require_.New(t)
	var got []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get("User-Agent"))
	}))
	defer server.Close()

	client := NewClient(WithUserAgent("ua-test"))
	resp, err := client.Get(server.URL)
	require.NoError(err)
	resp.Body.Close()

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	req.Header.Set("User-Agent", "explicit")
	resp, err = client.Do(req)
	require.NoError(err)
	resp.Body.Close()

	assert.Equal([]string{"ua-test", "explicit"}, got)
}

func TestRetry(t *testing.T) {
	assert := assert_.New(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	flaky := &flakyTransport{failures: 2}
	resp, err := NewClient(WithBase(flaky)).Get(server.URL)
	if assert.NoError(err) {
		resp.Body.Close()
	}
	assert.Equal(3, flaky.calls)

	flaky = &flakyTransport{failures: 5}
	_, err = NewClient(WithBase(flaky), WithRetries(1)).Get(server.URL)
	assert.Error(err)
	assert.Equal(2, flaky.calls)
}

func TestNoRetryForPost(t *testing.T) {
	assert := assert_.New(t)
	flaky := &flakyTransport{failures: 1}
	_, err := NewClient(WithBase(flaky)).Post("http://127.0.0.1:1", "text/plain", nil)
	assert.Error(err)
	assert.Equal(1, flaky.calls)
}
