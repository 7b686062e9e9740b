package server

import (
	"fmt"
	"net/http"

	"github.com/alanbriolat/neobyte"
)

type response struct {
	status  int
	message string
}

// A policy decides what a site's handler tells the client about a failure. Only the error's kind is consulted;
// message text never is.
type policy struct {
	missing string
	invalid string
	kinds   map[neobyte.ErrorKind]response
	// fallback handles any kind without an entry in kinds.
	fallback func(url string, err error) response
}

func (p *policy) respond(url string, err error) response {
	if r, ok := p.kinds[neobyte.KindOf(err)]; ok {
		return r
	}
	return p.fallback(url, err)
}

var youtubePolicy = &policy{
	missing: "Please enter a YouTube URL",
	invalid: "Please enter a valid YouTube URL",
	fallback: func(url string, err error) response {
		return response{http.StatusInternalServerError, fmt.Sprintf("Error downloading %s: %v", url, neobyte.Cause(err))}
	},
}

var instagramPolicy = func() *policy {
	login := response{http.StatusBadRequest, "This Instagram content requires authentication. Please try with a public post or reel."}
	return &policy{
		missing: "Please enter an Instagram URL",
		invalid: "Please enter a valid Instagram URL",
		kinds: map[neobyte.ErrorKind]response{
			neobyte.KindLoginRequired: login,
			neobyte.KindAuthRequired:  login,
			neobyte.KindPrivate:       {http.StatusBadRequest, "This Instagram account or post is private and cannot be downloaded."},
			neobyte.KindNotFound:      {http.StatusNotFound, "Instagram content not found. The post may have been deleted or the URL is incorrect."},
			neobyte.KindNoMedia:       {http.StatusInternalServerError, "Failed to download file. Content may be protected or unavailable."},
		},
		fallback: func(string, error) response {
			return response{http.StatusInternalServerError, "Failed to download Instagram content. Please try again or check if the content is publicly accessible."}
		},
	}
}()

var twitterPolicy = func() *policy {
	auth := response{http.StatusForbidden, "This content is private and requires authentication. Please try uploading a cookies.txt file from a browser where you are logged in."}
	return &policy{
		missing: "Please enter an X (Twitter) URL",
		invalid: "Please enter a valid X or Twitter post URL",
		kinds: map[neobyte.ErrorKind]response{
			neobyte.KindUnsupported:   {http.StatusBadRequest, "This URL is not supported or does not contain media content"},
			neobyte.KindAuthRequired:  auth,
			neobyte.KindLoginRequired: auth,
			neobyte.KindNotFound:      {http.StatusNotFound, "The requested content does not exist"},
			neobyte.KindPrivate:       {http.StatusInternalServerError, "Could not download content. The post may be private, not exist, or contain no media."},
			neobyte.KindNoMedia:       {http.StatusInternalServerError, "Failed to download file. The post may not contain downloadable media."},
		},
		fallback: func(_ string, err error) response {
			return response{http.StatusInternalServerError, fmt.Sprintf("Error downloading content: %v", neobyte.Cause(err))}
		},
	}
}()

const cookieFailure = "Failed to process cookie file. Please try again."
