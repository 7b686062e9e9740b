// Package browser holds extractors that drive a headless Chrome to render pages, then scrape the rendered HTML for
// direct media links.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/alanbriolat/neobyte"
	"github.com/alanbriolat/neobyte/internal/httpx"
)

const DefaultTimeout = 30 * time.Second

// A Renderer loads a page in a browser and returns its HTML once it has settled.
type Renderer interface {
	// Render navigates to url, waits until every waitFor selector is visible, then waits a further settle duration
	// before returning the document's outer HTML.
	Render(ctx context.Context, url string, waitFor []string, settle time.Duration) (string, error)
}

type ChromeConfig struct {
	// ExecPath overrides the Chrome executable, otherwise it is searched for in the usual places.
	ExecPath  string
	UserAgent string
	// Timeout bounds a whole Render call.
	Timeout time.Duration
}

// Chrome is a Renderer backed by a fresh headless Chrome process per call.
type Chrome struct {
	config ChromeConfig
	logger *zap.Logger
}

func NewChrome(config ChromeConfig, logger *zap.Logger) *Chrome {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.UserAgent == "" {
		config.UserAgent = httpx.DesktopUserAgent
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chrome{config: config, logger: logger}
}

func (c *Chrome) Render(ctx context.Context, url string, waitFor []string, settle time.Duration) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(c.config.UserAgent),
	)
	if c.config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.config.ExecPath))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	taskCtx, cancelTask := chromedp.NewContext(allocCtx, chromedp.WithLogf(c.logger.Sugar().Debugf))
	defer cancelTask()
	taskCtx, cancelTimeout := context.WithTimeout(taskCtx, c.config.Timeout)
	defer cancelTimeout()

	var html string
	actions := []chromedp.Action{chromedp.Navigate(url)}
	for _, selector := range waitFor {
		actions = append(actions, chromedp.WaitVisible(selector, chromedp.ByQuery))
	}
	if settle > 0 {
		actions = append(actions, chromedp.Sleep(settle))
	}
	actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))

	start := time.Now()
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return "", neobyte.NewError(neobyte.KindFailed, fmt.Errorf("render %s: %w", url, err))
	}
	c.logger.Debug("rendered page", zap.String("url", url), zap.Duration("elapsed", time.Since(start)), zap.Int("bytes", len(html)))
	return html, nil
}
