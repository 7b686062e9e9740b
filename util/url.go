package util

import (
	"errors"
	"net/url"
	"strings"
)

var (
	ErrNoFilename = errors.New("cannot extract valid filename")
	ErrNoVideoID  = errors.New("could not extract video ID")
)

func FilenameFromURL(url *url.URL) (string, error) {
	if url == nil {
		return "", ErrNoFilename
	}
	path := strings.Trim(url.Path, "/")
	if path == "" {
		return "", ErrNoFilename
	}
	pathElements := strings.Split(path, "/")
	filename := pathElements[len(pathElements)-1]
	if filename == "" {
		return "", ErrNoFilename
	}
	// Don't allow "filenames" that are just ".", "..", etc.
	if strings.ReplaceAll(filename, ".", "") == "" {
		return "", ErrNoFilename
	}
	return filename, nil
}

func FilenameFromURLString(s string) (string, error) {
	if parsedURL, err := url.Parse(s); err != nil {
		return "", err
	} else {
		return FilenameFromURL(parsedURL)
	}
}

// YouTubeVideoID extracts the video ID from a YouTube URL.
//
// Allowed URL formats:
//
//	http(s?)://(www|m|music.)youtube.com/(watch|details)?v={VIDEO_ID}
//	http(s?)://(www|m|music.)youtube.com/(v|embed|shorts|live)/{VIDEO_ID}
//	http(s?)://youtu.be/{VIDEO_ID}
func YouTubeVideoID(u *url.URL) (string, error) {
	if u == nil {
		return "", ErrNoVideoID
	}
	var id string
	switch strings.ToLower(u.Hostname()) {
	case "youtube.com", "www.youtube.com", "m.youtube.com", "music.youtube.com":
		if u.Path == "/watch" || u.Path == "/details" {
			id = u.Query().Get("v")
		} else {
			for _, prefix := range []string{"/v/", "/embed/", "/shorts/", "/live/"} {
				if strings.HasPrefix(u.Path, prefix) {
					id = strings.SplitN(strings.TrimPrefix(u.Path, prefix), "/", 2)[0]
					break
				}
			}
		}
	case "youtu.be":
		id = strings.SplitN(strings.Trim(u.Path, "/"), "/", 2)[0]
	default:
		return "", errors.New("unrecognised hostname")
	}
	if id == "" {
		return "", ErrNoVideoID
	}
	return id, nil
}

// YouTubeVideoIDString is YouTubeVideoID for an unparsed URL.
func YouTubeVideoIDString(s string) (string, error) {
	if parsedURL, err := url.Parse(s); err != nil {
		return "", err
	} else {
		return YouTubeVideoID(parsedURL)
	}
}
