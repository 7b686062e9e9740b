package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/alanbriolat/neobyte"
	"github.com/alanbriolat/neobyte/format"
	"github.com/alanbriolat/neobyte/scratch"
	"github.com/alanbriolat/neobyte/transcode"
	"github.com/alanbriolat/neobyte/util"
)

const (
	MirrorName = "mirror"
	// DefaultMirrorURL is the processing page of the mirror service; %s is the escaped video URL.
	DefaultMirrorURL = "https://9xbuddy.xyz/process?url=%s"
)

var mirrorSelectors = []string{".media-info-title", ".download-item"}

// MirrorPage is what can be scraped from a rendered mirror page.
type MirrorPage struct {
	Title   string
	Formats []neobyte.MediaFormat
}

// ParseMirrorPage reads the title and the download items of a mirror page. Items without an absolute link are
// skipped, and a later item with the same quality and type replaces an earlier one.
func ParseMirrorPage(r io.Reader) (*MirrorPage, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mirror page: %w", err)
	}
	page := &MirrorPage{
		Title: strings.TrimSpace(doc.Find(".media-info-title").First().Text()),
	}
	seen := make(map[string]int)
	doc.Find(".download-item").Each(func(_ int, item *goquery.Selection) {
		href, ok := item.Find(".download-btn").Attr("href")
		if !ok || !strings.Contains(href, "http") {
			return
		}
		f := neobyte.MediaFormat{
			Quality: strings.TrimSpace(item.Find(".download-quality").Text()),
			Type:    strings.TrimSpace(item.Find(".download-type").Text()),
			Locator: strings.TrimSpace(href),
		}
		if size, err := humanize.ParseBytes(strings.TrimSpace(item.Find(".download-size").Text())); err == nil {
			f.Size = int64(size)
		}
		if i, ok := seen[f.Key()]; ok {
			page.Formats[i] = f
		} else {
			seen[f.Key()] = len(page.Formats)
			page.Formats = append(page.Formats, f)
		}
	})
	return page, nil
}

// Mirror fetches YouTube media through a third-party mirror page, which has to be rendered by a browser before it
// lists its direct download links.
type Mirror struct {
	renderer   Renderer
	client     *http.Client
	mirrorURL  string
	transcoder *transcode.Transcoder
}

func NewMirror(renderer Renderer, client *http.Client, mirrorURL string, transcoder *transcode.Transcoder) *Mirror {
	if mirrorURL == "" {
		mirrorURL = DefaultMirrorURL
	}
	return &Mirror{
		renderer:   renderer,
		client:     client,
		mirrorURL:  mirrorURL,
		transcoder: transcoder,
	}
}

func (m *Mirror) Extractor(priority int16) neobyte.Extractor {
	return neobyte.Extractor{Name: MirrorName, Attempt: m.Attempt, Priority: priority}
}

func (m *Mirror) Attempt(ctx context.Context, req *neobyte.Request, lease *scratch.Lease) (*neobyte.Result, error) {
	logger := neobyte.Logger(ctx).Named(MirrorName)

	videoID, err := util.YouTubeVideoIDString(req.URL)
	if err != nil {
		return nil, neobyte.NewError(neobyte.KindInvalidInput, err)
	}
	watchURL := "https://www.youtube.com/watch?v=" + videoID
	pageURL := fmt.Sprintf(m.mirrorURL, url.QueryEscape(watchURL))

	html, err := m.renderer.Render(ctx, pageURL, mirrorSelectors, 0)
	if err != nil {
		return nil, err
	}
	page, err := ParseMirrorPage(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	logger.Info("scraped mirror page", zap.String("title", page.Title), zap.Int("formats", len(page.Formats)))

	chosen, err := format.Select(page.Formats, req.Quality, req.Audio())
	if err != nil {
		return nil, neobyte.NewError(neobyte.KindNoMedia, err)
	}
	logger.Info("selected format",
		zap.String("key", chosen.Key()),
		zap.String("size", humanize.Bytes(uint64(chosen.Size))),
	)

	d, err := neobyte.NewRequestDownload(ctx, req, m.client)
	if err != nil {
		return nil, err
	}
	path := lease.File(mirrorExt(chosen))
	if err := d.SaveURL(path, chosen.Locator); err != nil {
		return nil, err
	}
	if req.Audio() && m.transcoder != nil {
		path, _ = m.transcoder.ToAudio(ctx, path)
	}
	return &neobyte.Result{Path: path, Title: page.Title}, nil
}

// mirrorExt picks a file extension for a mirror format: its type label if that is a known container, else the
// extension of its URL, else MP4.
func mirrorExt(f *neobyte.MediaFormat) string {
	switch ext := strings.ToLower(strings.TrimSpace(f.Type)); ext {
	case "mp4", "mp3", "m4a", "webm":
		return ext
	}
	return urlExt(f.Locator, "mp4")
}

// urlExt is the extension of the filename in a media URL, if it names a known media type.
func urlExt(locator string, fallback string) string {
	name, err := util.FilenameFromURLString(locator)
	if err != nil {
		return fallback
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" || !strings.HasPrefix(neobyte.MIMETypeForExt(ext), "video/") && !strings.HasPrefix(neobyte.MIMETypeForExt(ext), "audio/") {
		return fallback
	}
	return strings.TrimPrefix(ext, ".")
}
