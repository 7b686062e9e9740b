package ytdlp

import (
	"fmt"
	"strings"

	"github.com/lrstanley/go-ytdlp"

	"github.com/alanbriolat/neobyte"
	"github.com/alanbriolat/neobyte/format"
	"github.com/alanbriolat/neobyte/internal/httpx"
)

// A Profile is the per-site yt-dlp setup: which format expression to ask for and what to configure to avoid being
// blocked.
type Profile struct {
	Site *neobyte.Site
	// Format returns a yt-dlp format selection expression for the request.
	Format func(req *neobyte.Request) string
	// Configure applies site-specific options.
	Configure func(cmd *ytdlp.Command, req *neobyte.Request)
}

const audioFormat = "bestaudio/best"

// YouTubeFormat builds the format expression for a quality token, preferring MP4 video with M4A audio.
func YouTubeFormat(quality string, audio bool) string {
	if audio {
		return audioFormat
	}
	switch strings.ToLower(strings.TrimSpace(quality)) {
	case format.QualityHighest:
		return "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"
	case format.QualityLowest:
		return "worstvideo[ext=mp4]+worstaudio[ext=m4a]/worst[ext=mp4]/worst"
	}
	h := format.ParseQuality(quality)
	return fmt.Sprintf("bestvideo[height<=%[1]d][ext=mp4]+bestaudio[ext=m4a]/best[height<=%[1]d][ext=mp4]/best", h)
}

var YouTube = Profile{
	Site: neobyte.YouTube,
	Format: func(req *neobyte.Request) string {
		return YouTubeFormat(req.Quality, req.Audio())
	},
	Configure: func(cmd *ytdlp.Command, req *neobyte.Request) {
		cmd.ExtractorArgs("youtube:player_client=android,web;player_skip=js,configs,webpage").
			AddHeaders("User-Agent:" + httpx.MobileUserAgent).
			AddHeaders("Accept-Language:en-US,en;q=0.5")
	},
}

var Instagram = Profile{
	Site: neobyte.Instagram,
	Format: func(req *neobyte.Request) string {
		if req.Audio() {
			return audioFormat
		}
		return "best[height<=1080]/best"
	},
	Configure: func(cmd *ytdlp.Command, req *neobyte.Request) {
		cmd.NoCheckCertificates().
			AddHeaders("User-Agent:" + httpx.DesktopUserAgent).
			AddHeaders("Referer:https://www.instagram.com/").
			AddHeaders("Accept:text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
			AddHeaders("Accept-Language:en-US,en;q=0.5")
		if req.CookieFile != "" {
			cmd.Cookies(req.CookieFile)
		}
	},
}

var Twitter = Profile{
	Site: neobyte.Twitter,
	Format: func(req *neobyte.Request) string {
		if req.Audio() {
			return audioFormat
		}
		return "best"
	},
	Configure: func(cmd *ytdlp.Command, req *neobyte.Request) {
		if req.CookieFile != "" {
			cmd.Cookies(req.CookieFile)
		}
	},
}

// ProfileFor gets the profile of a site.
func ProfileFor(site *neobyte.Site) (Profile, bool) {
	for _, p := range []Profile{YouTube, Instagram, Twitter} {
		if p.Site == site {
			return p, true
		}
	}
	return Profile{}, false
}
