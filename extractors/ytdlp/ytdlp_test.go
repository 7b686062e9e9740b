package ytdlp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
	require_ "github.com/stretchr/testify/require"

	"github.com/alanbriolat/neobyte"
)

func TestYouTubeFormat(t *testing.T) {
	assert := assert_.New(t)
	assert.Equal("bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best", YouTubeFormat("highest", false))
	assert.Equal("worstvideo[ext=mp4]+worstaudio[ext=m4a]/worst[ext=mp4]/worst", YouTubeFormat("lowest", false))
	assert.Equal("bestvideo[height<=480][ext=mp4]+bestaudio[ext=m4a]/best[height<=480][ext=mp4]/best", YouTubeFormat("480p", false))
	assert.Equal("bestvideo[height<=720][ext=mp4]+bestaudio[ext=m4a]/best[height<=720][ext=mp4]/best", YouTubeFormat("whatever", false))
	assert.Equal("bestaudio/best", YouTubeFormat("highest", true))
}

func TestProfiles(t *testing.T) {
	assert := assert_.New(t)
	video := &neobyte.Request{Content: neobyte.ContentVideo}
	audio := &neobyte.Request{Content: neobyte.ContentAudio}
	assert.Equal("best[height<=1080]/best", Instagram.Format(video))
	assert.Equal("best", Twitter.Format(video))
	assert.Equal("bestaudio/best", Twitter.Format(audio))

	for _, site := range neobyte.Sites {
		p, ok := ProfileFor(site)
		assert.True(ok, site.Name)
		assert.Same(site, p.Site)
	}
	_, ok := ProfileFor(&neobyte.Site{Name: "other"})
	assert.False(ok)
}

func TestClassify(t *testing.T) {
	assert := assert_.New(t)
	exit := errors.New("exit status 1")
	cases := map[string]neobyte.ErrorKind{
		"WARNING: something\nERROR: Unsupported URL: https://twitter.com/home\n":                                              neobyte.KindUnsupported,
		"ERROR: [twitter] 123: NSFW tweet requires authentication. Use --cookies\n":                                           neobyte.KindAuthRequired,
		"ERROR: [Instagram] abc: Requested content is not available, rate-limit reached or login required\n":                  neobyte.KindLoginRequired,
		"ERROR: [twitter] 123: Tweet does not exist\n":                                                                        neobyte.KindNotFound,
		"ERROR: [twitter] 1784040123456789012: Requested tweet is unavailable\n":                                              neobyte.KindFailed,
		"ERROR: [Instagram] C404private: Unable to extract data\nERROR: [Instagram] C404private: HTTP Error 404: Not Found\n": neobyte.KindNotFound,
		"": neobyte.KindFailed,
	}
	for stderr, kind := range cases {
		err := classify(exit, stderr)
		assert.Equal(kind, neobyte.KindOf(err), stderr)
	}
	assert.EqualError(classify(exit, "noise\nERROR: Unsupported URL: x\n"), "ERROR: Unsupported URL: x")
	assert.EqualError(classify(exit, ""), "exit status 1")
	assert.ErrorIs(classify(context.Canceled, "ERROR: Unsupported URL"), context.Canceled)
}

func TestPickOutput(t *testing.T) {
	assert := assert_.New(t)
	dir := t.TempDir()
	small := filepath.Join(dir, "id.jpg")
	large := filepath.Join(dir, "id.mp4")
	require_.NoError(t, os.WriteFile(small, []byte("x"), 0644))
	require_.NoError(t, os.WriteFile(large, []byte("xxxxxxxx"), 0644))

	path, err := pickOutput([]string{small, large}, "")
	assert.NoError(err)
	assert.Equal(large, path)

	path, err = pickOutput([]string{small, large}, "/elsewhere/id.jpg")
	assert.NoError(err)
	assert.Equal(small, path)

	_, err = pickOutput(nil, "")
	assert.Equal(neobyte.KindNoMedia, neobyte.KindOf(err))
}
