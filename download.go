package neobyte

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// HTTPStatusError is returned when a media URL answers with a non-2xx status.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// A Download writes media streams to local files, tracking progress.
type Download interface {
	// AddDownloadedBytes increases how many bytes have been successfully downloaded so far.
	AddDownloadedBytes(n int)

	// AddExpectedBytes increases how many bytes are expected to be downloaded.
	AddExpectedBytes(n int)

	// Context is the context of this Download; cancelling it stops any in-progress I/O.
	Context() context.Context

	// CreateFile creates the file at path, and any missing parent directories.
	CreateFile(path string) (io.WriteCloser, error)

	// Progress returns the downloaded and expected bytes of the download.
	Progress() (int, int)

	// SaveHTTPRequest will execute the http.Request with Context() and then download the resulting stream like
	// SaveStream. A non-2xx response is an *HTTPStatusError.
	SaveHTTPRequest(path string, req *http.Request) error

	// SaveStream will download the stream to the file at path, calling AddDownloadedBytes as necessary.
	SaveStream(path string, stream io.Reader) error

	// SaveURL will make a GET request to the URL and then download the resulting stream like SaveStream.
	SaveURL(path string, url string) error

	// Write will ignore the data but will send the byte count to AddDownloadedBytes. Allows progress tracking using
	// io.MultiWriter (but ensure the Download is the last writer to avoid counting failed writes).
	Write(p []byte) (n int, err error)
}

type download struct {
	ctx              context.Context
	client           *http.Client
	header           http.Header
	progressCallback func(int, int)
	expectedBytes    int
	downloadedBytes  int
}

func (d *download) AddDownloadedBytes(n int) {
	d.downloadedBytes += n
	if d.progressCallback != nil {
		d.progressCallback(d.Progress())
	}
}

func (d *download) AddExpectedBytes(n int) {
	if n <= 0 {
		return
	}
	d.expectedBytes += n
	if d.progressCallback != nil {
		d.progressCallback(d.Progress())
	}
}

func (d *download) Context() context.Context {
	return d.ctx
}

func (d *download) CreateFile(path string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0775); err != nil {
		return nil, err
	}
	return os.Create(path)
}

func (d *download) Progress() (int, int) {
	return d.downloadedBytes, d.expectedBytes
}

func (d *download) SaveHTTPRequest(path string, req *http.Request) error {
	if req == nil {
		return fmt.Errorf("nil request")
	}
	req = req.WithContext(d.Context())
	for key, values := range d.header {
		if req.Header.Get(key) == "" {
			req.Header[key] = values
		}
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPStatusError{URL: req.URL.String(), StatusCode: resp.StatusCode}
	}
	d.AddExpectedBytes(int(resp.ContentLength))
	return d.SaveStream(path, resp.Body)
}

func (d *download) SaveStream(path string, stream io.Reader) error {
	f, err := d.CreateFile(path)
	if err != nil {
		return fmt.Errorf("failed to open target file: %w", err)
	}
	defer f.Close()

	_, err = io.Copy(io.MultiWriter(f, d), ContextReader(d.ctx, stream))
	if err != nil {
		return fmt.Errorf("failed to save stream: %w", err)
	}
	return f.Close()
}

func (d *download) SaveURL(path string, url string) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return d.SaveHTTPRequest(path, req)
}

func (d *download) Write(p []byte) (n int, err error) {
	n = len(p)
	d.AddDownloadedBytes(n)
	return n, nil
}

type DownloadBuilder interface {
	Build() (Download, error)
	WithContext(ctx context.Context) DownloadBuilder
	// WithHTTPClient sets the client used by SaveURL and SaveHTTPRequest.
	WithHTTPClient(client *http.Client) DownloadBuilder
	// WithHeader adds a header to requests that don't already set it.
	WithHeader(key string, value string) DownloadBuilder
	WithProgressCallback(f func(downloaded int, expected int)) DownloadBuilder
}

type downloadBuilder struct {
	ctx              context.Context
	client           *http.Client
	header           http.Header
	progressCallback func(int, int)
}

func NewDownloadBuilder() DownloadBuilder {
	return &downloadBuilder{
		ctx:    context.Background(),
		client: http.DefaultClient,
		header: make(http.Header),
	}
}

func (b *downloadBuilder) Build() (Download, error) {
	if b.ctx == nil {
		return nil, fmt.Errorf("nil context")
	}
	d := download{}
	d.ctx = b.ctx
	d.client = b.client
	d.header = b.header.Clone()
	d.progressCallback = b.progressCallback
	return &d, nil
}

func (b *downloadBuilder) WithContext(ctx context.Context) DownloadBuilder {
	b.ctx = ctx
	return b
}

func (b *downloadBuilder) WithHTTPClient(client *http.Client) DownloadBuilder {
	if client != nil {
		b.client = client
	}
	return b
}

func (b *downloadBuilder) WithHeader(key string, value string) DownloadBuilder {
	b.header.Set(key, value)
	return b
}

func (b *downloadBuilder) WithProgressCallback(f func(int, int)) DownloadBuilder {
	b.progressCallback = f
	return b
}

// NewRequestDownload builds a Download bound to ctx that reports progress to the request's callback.
func NewRequestDownload(ctx context.Context, req *Request, client *http.Client) (Download, error) {
	return NewDownloadBuilder().
		WithContext(ctx).
		WithHTTPClient(client).
		WithProgressCallback(req.Progress).
		Build()
}
