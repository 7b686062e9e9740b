package neobyte

import (
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert := assert_.New(t)
	cases := []struct {
		site     *Site
		in       string
		expected string
	}{
		{Twitter, "https://x.com/user/status/123", "https://twitter.com/user/status/123"},
		{Twitter, "https://mobile.x.com/user/status/123?s=20", "https://mobile.twitter.com/user/status/123?s=20"},
		{Twitter, "twitter.com/user/status/123", "https://twitter.com/user/status/123"},
		{Instagram, "https://instagr.am/p/Cabc123/", "https://www.instagram.com/p/Cabc123/"},
		{Instagram, "https://www.instagram.com/reel/Cabc123/", "https://www.instagram.com/reel/Cabc123/"},
		{YouTube, "https://youtu.be/dQw4w9WgXcQ?t=10", "https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
		{YouTube, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
	}
	for _, c := range cases {
		out, err := c.site.Normalize(c.in)
		if assert.NoError(err, c.in) {
			assert.Equal(c.expected, out)
		}
	}
}

func TestNormalizeRejects(t *testing.T) {
	assert := assert_.New(t)
	for _, c := range []struct {
		site *Site
		in   string
	}{
		{Twitter, ""},
		{Twitter, "https://www.instagram.com/p/abc/"},
		{Twitter, "https://notx.com/user/status/1"},
		{Instagram, "https://twitter.com/user/status/1"},
		{YouTube, "https://vimeo.com/123"},
		{YouTube, "ftp://www.youtube.com/watch?v=abc"},
	} {
		_, err := c.site.Normalize(c.in)
		assert.Equal(KindInvalidInput, KindOf(err), c.in)
	}
}

func TestFallbackTitle(t *testing.T) {
	assert := assert_.New(t)
	id := "0123456789abcdef"
	assert.Equal("youtube_"+id, YouTube.FallbackTitle(&Request{}, id, ""))
	assert.Equal("Instagram_Reel_01234567", Instagram.FallbackTitle(&Request{URL: "https://www.instagram.com/reel/x/"}, id, ""))
	assert.Equal("Instagram_Story_01234567", Instagram.FallbackTitle(&Request{URL: "https://www.instagram.com/stories/x/1/"}, id, ""))
	assert.Equal("Instagram_Post_01234567", Instagram.FallbackTitle(&Request{URL: "https://www.instagram.com/p/x/"}, id, ""))
	assert.Equal("X_Video_someone_012345", Twitter.FallbackTitle(&Request{}, id, "someone"))
	assert.Equal("X_Video_01234567", Twitter.FallbackTitle(&Request{}, id, ""))
	assert.Equal("Real title", Twitter.Title(&Request{}, &Result{Title: " Real title "}, id))
}

func TestPostID(t *testing.T) {
	assert := assert_.New(t)
	cases := []struct {
		site     *Site
		url      string
		expected string
	}{
		{YouTube, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{YouTube, "https://www.youtube.com/feed", "lease"},
		{Instagram, "https://www.instagram.com/p/Cxyz123/", "Cxyz123"},
		{Instagram, "https://www.instagram.com/someone/", "someone"},
		{Twitter, "https://twitter.com/someone/status/42?s=20", "42"},
		{Twitter, "https://twitter.com/", "lease"},
	}
	for _, c := range cases {
		assert.Equal(c.expected, c.site.PostID(c.url, "lease"), c.url)
	}
}

func TestHosts(t *testing.T) {
	assert := assert_.New(t)
	assert.Equal([]string{"mobile.twitter.com", "mobile.x.com", "twitter.com", "www.twitter.com", "www.x.com", "x.com"}, Twitter.Hosts())
	for _, site := range Sites {
		for _, host := range site.Hosts() {
			_, err := site.Normalize("https://" + host + "/p/abc")
			assert.NoError(err, host)
		}
	}
}
