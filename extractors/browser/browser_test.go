package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	assert_ "github.com/stretchr/testify/assert"
	require_ "github.com/stretchr/testify/require"

	"github.com/alanbriolat/neobyte"
	"github.com/alanbriolat/neobyte/scratch"
)

type fakeRenderer struct {
	html    string
	err     error
	url     string
	waitFor []string
	settle  time.Duration
}

func (f *fakeRenderer) Render(ctx context.Context, url string, waitFor []string, settle time.Duration) (string, error) {
	f.url, f.waitFor, f.settle = url, waitFor, settle
	return f.html, f.err
}

const mirrorPage = `<html><body>
<div class="media-info-title"> Some: Video? </div>
<div class="download-item">
  <span class="download-quality">360p</span><span class="download-type">MP4</span>
  <span class="download-size">12.5 MB</span><a class="download-btn" href="%[1]s/360.mp4">Download</a>
</div>
<div class="download-item">
  <span class="download-quality">720p</span><span class="download-type">MP4</span>
  <span class="download-size">40 MB</span><a class="download-btn" href="%[1]s/720.mp4">Download</a>
</div>
<div class="download-item">
  <span class="download-quality">1080p</span><span class="download-type">MP4</span>
  <span class="download-size">90 MB</span><a class="download-btn" href="javascript:void(0)">Convert</a>
</div>
<div class="download-item">
  <span class="download-quality">128kbps</span><span class="download-type">MP3</span>
  <span class="download-size">3 MB</span><a class="download-btn" href="%[1]s/audio.mp3">Download</a>
</div>
</body></html>`

func mediaServer(t *testing.T) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/gone.mp4" {
			http.NotFound(w, r)
			return
		}
		_, _ = fmt.Fprintf(w, "media:%s:%s", r.URL.Path, r.Header.Get("Referer"))
	}))
	t.Cleanup(server.Close)
	return server
}

func newLease(t *testing.T) *scratch.Lease {
	lease, err := scratch.New(t.TempDir()).Acquire()
	require_.NoError(t, err)
	t.Cleanup(lease.Release)
	return lease
}

func TestParseMirrorPage(t *testing.T) {
	assert := assert_.New(t)
	page, err := ParseMirrorPage(strings.NewReader(fmt.Sprintf(mirrorPage, "https://cdn.example")))
	require_.NoError(t, err)
	assert.Equal("Some: Video?", page.Title)
	if assert.Len(page.Formats, 3) {
		assert.Equal("360p_MP4", page.Formats[0].Key())
		assert.Equal("https://cdn.example/360.mp4", page.Formats[0].Locator)
		assert.Equal(int64(12_500_000), page.Formats[0].Size)
		assert.Equal("128kbps_MP3", page.Formats[2].Key())
	}
}

func TestMirrorAttempt(t *testing.T) {
	assert := assert_.New(t)
	require := require_.New(t)
	server := mediaServer(t)
	renderer := &fakeRenderer{html: fmt.Sprintf(mirrorPage, server.URL)}
	mirror := NewMirror(renderer, server.Client(), "", nil)
	lease := newLease(t)

	req := &neobyte.Request{URL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", Content: neobyte.ContentVideo, Quality: "highest"}
	res, err := mirror.Attempt(context.Background(), req, lease)
	require.NoError(err)
	assert.Equal("https://9xbuddy.xyz/process?url=https%3A%2F%2Fwww.youtube.com%2Fwatch%3Fv%3DdQw4w9WgXcQ", renderer.url)
	assert.Equal(mirrorSelectors, renderer.waitFor)
	assert.Equal("Some: Video?", res.Title)
	assert.Equal(lease.File("mp4"), res.Path)
	data, err := os.ReadFile(res.Path)
	require.NoError(err)
	assert.Equal("media:/720.mp4:", string(data))

	req.Content = neobyte.ContentAudio
	res, err = mirror.Attempt(context.Background(), req, lease)
	require.NoError(err)
	assert.Equal(".mp3", res.Ext())
}

func TestMirrorAttemptFailures(t *testing.T) {
	assert := assert_.New(t)
	server := mediaServer(t)
	req := &neobyte.Request{URL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", Quality: "720p"}

	renderErr := neobyte.NewError(neobyte.KindFailed, errors.New("timeout"))
	_, err := NewMirror(&fakeRenderer{err: renderErr}, server.Client(), "", nil).Attempt(context.Background(), req, newLease(t))
	assert.ErrorIs(err, renderErr)

	_, err = NewMirror(&fakeRenderer{html: "<html></html>"}, server.Client(), "", nil).Attempt(context.Background(), req, newLease(t))
	assert.Equal(neobyte.KindNoMedia, neobyte.KindOf(err))

	gone := `<div class="media-info-title">t</div><div class="download-item"><span class="download-quality">720p</span>` +
		`<span class="download-type">MP4</span><a class="download-btn" href="` + server.URL + `/gone.mp4">x</a></div>`
	_, err = NewMirror(&fakeRenderer{html: gone}, server.Client(), "", nil).Attempt(context.Background(), req, newLease(t))
	var statusErr *neobyte.HTTPStatusError
	assert.ErrorAs(err, &statusErr)

	_, err = NewMirror(&fakeRenderer{}, server.Client(), "", nil).Attempt(context.Background(), &neobyte.Request{URL: "https://vimeo.com/1"}, newLease(t))
	assert.Equal(neobyte.KindInvalidInput, neobyte.KindOf(err))
}

func TestParseInstagramPage(t *testing.T) {
	assert := assert_.New(t)
	page, err := ParseInstagramPage(strings.NewReader(`<html><head><title>Someone on Instagram: "hello" • Instagram</title></head>
<body><video src="blob:https://www.instagram.com/abc"></video><video><source src="https://cdn.example/v.mp4"></video></body></html>`))
	require_.NoError(t, err)
	assert.Equal(`Someone on Instagram: "hello"`, page.Title)
	assert.Equal("https://cdn.example/v.mp4", page.VideoURL)

	page, err = ParseInstagramPage(strings.NewReader(`<html><body><form><input name="username"></form></body></html>`))
	require_.NoError(t, err)
	assert.True(page.LoginWall)
	assert.Empty(page.VideoURL)
}

func TestInstagramAttempt(t *testing.T) {
	assert := assert_.New(t)
	require := require_.New(t)
	server := mediaServer(t)
	renderer := &fakeRenderer{html: `<title>Reel • Instagram</title><video src="` + server.URL + `/reel.mp4"></video>`}
	lease := newLease(t)

	res, err := NewInstagram(renderer, server.Client(), 0, nil).Attempt(context.Background(), &neobyte.Request{URL: "https://www.instagram.com/reel/abc/"}, lease)
	require.NoError(err)
	assert.Equal("https://www.instagram.com/reel/abc/", renderer.url)
	assert.Equal("Reel", res.Title)
	data, err := os.ReadFile(res.Path)
	require.NoError(err)
	assert.Equal("media:/reel.mp4:"+InstagramReferer, string(data))
}

func TestInstagramAttemptNoVideo(t *testing.T) {
	assert := assert_.New(t)
	cases := map[string]neobyte.ErrorKind{
		`<body>nothing here</body>`:                           neobyte.KindNoMedia,
		`<body><input name="username"></body>`:                neobyte.KindLoginRequired,
		`<body><h2>This account is private</h2></body>`:       neobyte.KindPrivate,
		`<body><video src="blob:https://x/1"></video></body>`: neobyte.KindNoMedia,
	}
	for html, kind := range cases {
		_, err := NewInstagram(&fakeRenderer{html: html}, nil, 0, nil).Attempt(context.Background(), &neobyte.Request{URL: "https://www.instagram.com/p/abc/"}, newLease(t))
		assert.Equal(kind, neobyte.KindOf(err), html)
	}
}

func TestMediaExtensions(t *testing.T) {
	assert := assert_.New(t)
	assert.Equal("mp3", mirrorExt(&neobyte.MediaFormat{Type: "MP3", Locator: "https://cdn.example/a.webm"}))
	assert.Equal("webm", mirrorExt(&neobyte.MediaFormat{Type: "HD", Locator: "https://cdn.example/a.webm?sig=1"}))
	assert.Equal("mp4", mirrorExt(&neobyte.MediaFormat{Type: "HD", Locator: "https://cdn.example/download.php"}))
	assert.Equal("mp4", urlExt("https://cdn.example/", "mp4"))
	assert.Equal("mov", urlExt("https://scontent.cdninstagram.com/v/t50/clip.MOV?efg=1", "mp4"))
}
