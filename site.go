package neobyte

import (
	"net/url"
	"sort"
	"strings"
	"text/template"

	"github.com/alanbriolat/neobyte/generic"
	"github.com/alanbriolat/neobyte/util"
)

// A Site is one of the supported platforms, knowing which hosts belong to it and how to canonicalize its URLs.
type Site struct {
	// Name is the stable identifier, used in logs and history.
	Name string
	// Label is the human name used in error messages.
	Label string
	hosts generic.Set[string]
	// canonical rewrites an accepted URL in place, e.g. to collapse host aliases.
	canonical func(u *url.URL)
	fallback  *template.Template
}

var funcs = template.FuncMap{
	"short": func(s string, n int) string {
		if len(s) > n {
			return s[:n]
		}
		return s
	},
}

func newSite(name string, label string, hosts []string, canonical func(*url.URL), fallback string) *Site {
	return &Site{
		Name:      name,
		Label:     label,
		hosts:     generic.NewSet(hosts...),
		canonical: canonical,
		fallback:  template.Must(template.New(name).Funcs(funcs).Parse(fallback)),
	}
}

var (
	YouTube = newSite(
		"youtube", "YouTube",
		[]string{"youtube.com", "www.youtube.com", "m.youtube.com", "music.youtube.com", "youtu.be"},
		func(u *url.URL) {
			if u.Hostname() == "youtu.be" {
				if id, err := util.YouTubeVideoID(u); err == nil {
					*u = url.URL{Scheme: "https", Host: "www.youtube.com", Path: "/watch", RawQuery: url.Values{"v": {id}}.Encode()}
				}
			}
		},
		"youtube_{{.ID}}",
	)
	Instagram = newSite(
		"instagram", "Instagram",
		[]string{"instagram.com", "www.instagram.com", "m.instagram.com", "instagr.am", "www.instagr.am"},
		func(u *url.URL) {
			if strings.HasSuffix(u.Hostname(), "instagr.am") {
				u.Host = "www.instagram.com"
			}
		},
		"Instagram_{{.Kind}}_{{short .ID 8}}",
	)
	Twitter = newSite(
		"twitter", "X (Twitter)",
		[]string{"twitter.com", "www.twitter.com", "mobile.twitter.com", "x.com", "www.x.com", "mobile.x.com"},
		func(u *url.URL) {
			host := u.Hostname()
			if host == "x.com" || strings.HasSuffix(host, ".x.com") {
				u.Host = strings.TrimSuffix(host, "x.com") + "twitter.com"
			}
		},
		"{{if .Uploader}}X_Video_{{.Uploader}}_{{short .ID 6}}{{else}}X_Video_{{short .ID 8}}{{end}}",
	)
)

// Sites lists every supported site.
var Sites = []*Site{YouTube, Instagram, Twitter}

func (s *Site) String() string {
	return s.Name
}

// Hosts lists the host names of the site, sorted.
func (s *Site) Hosts() []string {
	hosts := s.hosts.ToSlice()
	sort.Strings(hosts)
	return hosts
}

// Accepts reports whether the URL belongs to this site.
func (s *Site) Accepts(u *url.URL) bool {
	if u == nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	return s.hosts.Contains(strings.ToLower(u.Hostname()))
}

// Normalize validates raw as a URL of this site and returns its canonical form. Host aliases are collapsed, e.g.
// x.com becomes twitter.com. Any other URL gives a KindInvalidInput error.
func (s *Site) Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", Errorf(KindInvalidInput, "missing %s URL", s.Label)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", NewError(KindInvalidInput, err)
	}
	u.Host = strings.ToLower(u.Host)
	if !s.Accepts(u) {
		return "", Errorf(KindInvalidInput, "not a %s URL: %s", s.Label, raw)
	}
	if s.canonical != nil {
		s.canonical(u)
	}
	return u.String(), nil
}

type fallbackArgs struct {
	ID       string
	Uploader string
	Kind     string
}

// FallbackTitle names a result when the extractor could not find a title, based on the request ID and whatever
// else is known.
func (s *Site) FallbackTitle(req *Request, id string, uploader string) string {
	args := fallbackArgs{
		ID:       id,
		Uploader: uploader,
		Kind:     postKind(req),
	}
	builder := strings.Builder{}
	if err := s.fallback.Execute(&builder, &args); err != nil {
		return s.Name + "_" + id
	}
	return builder.String()
}

// Title is the result's own title, or the site's fallback title.
func (s *Site) Title(req *Request, result *Result, id string) string {
	if title := strings.TrimSpace(result.Title); title != "" {
		return title
	}
	return s.FallbackTitle(req, id, strings.TrimSpace(result.Uploader))
}

// PostID identifies the post a URL points at: the YouTube video ID, the Instagram shortcode or the tweet ID. Any
// other URL gives its last path segment, or fallback if it has none.
func (s *Site) PostID(rawURL string, fallback string) string {
	if s == YouTube {
		if id, err := util.YouTubeVideoIDString(rawURL); err == nil {
			return id
		}
		return fallback
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fallback
	}
	segments := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	for i := 0; i+1 < len(segments); i++ {
		switch segments[i] {
		case "p", "reel", "reels", "tv", "status", "statuses":
			return segments[i+1]
		}
	}
	if len(segments) > 0 {
		return segments[len(segments)-1]
	}
	return fallback
}

func postKind(req *Request) string {
	if req == nil {
		return "Post"
	}
	switch {
	case strings.Contains(req.URL, "/reel/") || strings.Contains(req.URL, "/reels/"):
		return "Reel"
	case strings.Contains(req.URL, "/stories/"):
		return "Story"
	default:
		return "Post"
	}
}
