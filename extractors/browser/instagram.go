package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/alanbriolat/neobyte"
	"github.com/alanbriolat/neobyte/scratch"
	"github.com/alanbriolat/neobyte/transcode"
)

const (
	InstagramName     = "browser"
	InstagramReferer  = "https://www.instagram.com/"
	DefaultSettleTime = 3 * time.Second
)

// InstagramPage is what can be scraped from a rendered Instagram post.
type InstagramPage struct {
	Title    string
	VideoURL string
	// LoginWall is set if Instagram served its login form instead of the post.
	LoginWall bool
	Private   bool
}

// ParseInstagramPage finds the first playable <video> of a rendered post and the page title.
func ParseInstagramPage(r io.Reader) (*InstagramPage, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse instagram page: %w", err)
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	title = strings.TrimSpace(strings.TrimSuffix(title, "• Instagram"))
	page := &InstagramPage{
		Title:     title,
		LoginWall: doc.Find(`input[name="username"]`).Length() > 0,
		Private:   strings.Contains(doc.Find("body").Text(), "This account is private"),
	}
	doc.Find("video").EachWithBreak(func(_ int, video *goquery.Selection) bool {
		src, ok := video.Attr("src")
		if !ok || src == "" {
			src, ok = video.Find("source").Attr("src")
		}
		// blob: sources are fed by MediaSource and can't be fetched directly
		if ok && strings.HasPrefix(src, "http") {
			page.VideoURL = src
			return false
		}
		return true
	})
	return page, nil
}

// Instagram fetches Instagram videos by rendering the post in a browser and downloading its <video> source.
type Instagram struct {
	renderer   Renderer
	client     *http.Client
	settle     time.Duration
	transcoder *transcode.Transcoder
}

func NewInstagram(renderer Renderer, client *http.Client, settle time.Duration, transcoder *transcode.Transcoder) *Instagram {
	if settle < 0 {
		settle = DefaultSettleTime
	}
	return &Instagram{
		renderer:   renderer,
		client:     client,
		settle:     settle,
		transcoder: transcoder,
	}
}

func (i *Instagram) Extractor(priority int16) neobyte.Extractor {
	return neobyte.Extractor{Name: InstagramName, Attempt: i.Attempt, Priority: priority}
}

func (i *Instagram) Attempt(ctx context.Context, req *neobyte.Request, lease *scratch.Lease) (*neobyte.Result, error) {
	logger := neobyte.Logger(ctx).Named(InstagramName)

	html, err := i.renderer.Render(ctx, req.URL, nil, i.settle)
	if err != nil {
		return nil, err
	}
	page, err := ParseInstagramPage(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	if page.VideoURL == "" {
		switch {
		case page.Private:
			return nil, neobyte.Errorf(neobyte.KindPrivate, "account is private")
		case page.LoginWall:
			return nil, neobyte.Errorf(neobyte.KindLoginRequired, "login required")
		default:
			return nil, neobyte.NewError(neobyte.KindNoMedia, errors.New("no video found on page"))
		}
	}
	logger.Info("found video", zap.String("title", page.Title))

	d, err := neobyte.NewDownloadBuilder().
		WithContext(ctx).
		WithHTTPClient(i.client).
		WithHeader("Referer", InstagramReferer).
		WithProgressCallback(req.Progress).
		Build()
	if err != nil {
		return nil, err
	}
	path := lease.File(urlExt(page.VideoURL, "mp4"))
	if err := d.SaveURL(path, page.VideoURL); err != nil {
		return nil, err
	}
	if req.Audio() && i.transcoder != nil {
		path, _ = i.transcoder.ToAudio(ctx, path)
	}
	return &neobyte.Result{Path: path, Title: page.Title}, nil
}
