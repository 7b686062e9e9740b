package neobyte

import (
	"fmt"
	"mime"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Content is the kind of media the caller wants back.
type Content string

const (
	ContentVideo Content = "video"
	ContentAudio Content = "audio"
)

// ParseContent reads a download_type form value. Anything but "audio" is video.
func ParseContent(s string) Content {
	if strings.EqualFold(strings.TrimSpace(s), string(ContentAudio)) {
		return ContentAudio
	}
	return ContentVideo
}

// A Request is everything an extractor needs to fetch one piece of media.
type Request struct {
	// URL is the normalized post URL.
	URL  string
	Site *Site
	// Content selects video or audio.
	Content Content
	// Quality is a token like "highest", "lowest" or "720p". Ignored for audio.
	Quality string
	// CookieFile is an optional Netscape cookie jar used for authenticated fetches.
	CookieFile string
	// Progress, if set, is called with downloaded and expected byte counts.
	Progress func(downloaded int, expected int)
}

func (r *Request) Audio() bool {
	return r.Content == ContentAudio
}

func (r *Request) String() string {
	return fmt.Sprintf("%s %s [%s]", r.Content, r.URL, r.Quality)
}

// A MediaFormat is one downloadable rendition of a post.
type MediaFormat struct {
	// Quality label, e.g. "720p" or "128kbps".
	Quality string
	// Type is a container or codec tag, e.g. "MP4", "audio/webm" or "MP3".
	Type string
	// Size is an approximate byte size, 0 if unknown.
	Size int64
	// Locator is a direct URL to the media, if there is one.
	Locator string
	// Handle is an opaque value owned by whichever extractor produced the format.
	Handle any
}

// Key is the "{quality}_{type}" lookup key used by mirror pages.
func (f MediaFormat) Key() string {
	return f.Quality + "_" + f.Type
}

// Height parses the vertical resolution from the quality label.
func (f MediaFormat) Height() (int, bool) {
	return ParseHeight(f.Quality)
}

var heightPattern = regexp.MustCompile(`(?i)(\d{2,4})p`)

// ParseHeight extracts N from labels like "720p", "1080p60" or "HD 720p". A label that is only digits is also
// accepted.
func ParseHeight(label string) (int, bool) {
	label = strings.TrimSpace(label)
	if m := heightPattern.FindStringSubmatch(label); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return n, true
		}
	}
	if n, err := strconv.Atoi(label); err == nil && n > 0 {
		return n, true
	}
	return 0, false
}

// A Result is a file produced by a successful extraction.
type Result struct {
	// Path of the file on disk, inside the request's scratch lease.
	Path     string
	Title    string
	Uploader string
	// ContentType overrides the type otherwise derived from the file extension.
	ContentType string
	// Extractor is the name of the strategy that produced the file.
	Extractor string
}

// Ext is the extension of the file actually on disk, including the dot.
func (r *Result) Ext() string {
	return strings.ToLower(filepath.Ext(r.Path))
}

func (r *Result) MIMEType() string {
	if r.ContentType != "" {
		return r.ContentType
	}
	return MIMETypeForExt(r.Ext())
}

var mediaTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".mov":  "video/quicktime",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".opus": "audio/opus",
	".ogg":  "audio/ogg",
}

// MIMETypeForExt maps a file extension to a content type, defaulting to application/octet-stream.
func MIMETypeForExt(ext string) string {
	ext = strings.ToLower(ext)
	if t, ok := mediaTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

// ExtensionForMIME picks a file extension (without dot) for a mime type such as `video/mp4; codecs="avc1"`.
func ExtensionForMIME(mimeType string) string {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
	}
	switch strings.ToLower(mediaType) {
	case "audio/mp4":
		return "m4a"
	case "audio/mpeg":
		return "mp3"
	case "video/x-matroska":
		return "mkv"
	case "video/quicktime":
		return "mov"
	}
	if parts := strings.SplitN(mediaType, "/", 2); len(parts) == 2 && parts[1] != "" {
		return strings.ToLower(parts[1])
	}
	return "bin"
}
