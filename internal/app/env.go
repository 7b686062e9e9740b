// Package app wires configuration into the long-lived services a running server needs.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/alanbriolat/neobyte"
	"github.com/alanbriolat/neobyte/extractors/browser"
	"github.com/alanbriolat/neobyte/extractors/youtube"
	"github.com/alanbriolat/neobyte/extractors/ytdlp"
	"github.com/alanbriolat/neobyte/internal/config"
	"github.com/alanbriolat/neobyte/internal/history"
	"github.com/alanbriolat/neobyte/internal/httpx"
	"github.com/alanbriolat/neobyte/scratch"
	"github.com/alanbriolat/neobyte/transcode"
)

// Extractor priorities within a site's chain.
const (
	PriorityBrowser int16 = -10
	PriorityNative  int16 = 0
	PriorityYtdlp   int16 = 10
)

type Env interface {
	Context() context.Context
	Logger() *zap.Logger
	Config() *config.Config
	// Registry is the extractor chain for a site.
	Registry(site *neobyte.Site) *neobyte.ExtractorRegistry
	// Downloads is the scratch dir of the YouTube handler, which is swept before every request.
	Downloads() *scratch.Dir
	// Temp is the scratch dir of the other handlers, swept on demand.
	Temp() *scratch.Dir
	History() history.Store
	Close()
}

type env struct {
	ctx        context.Context
	log        *zap.Logger
	config     *config.Config
	registries map[*neobyte.Site]*neobyte.ExtractorRegistry
	downloads  *scratch.Dir
	temp       *scratch.Dir
	history    history.Store
}

func (e *env) Context() context.Context {
	return e.ctx
}

func (e *env) Logger() *zap.Logger {
	return e.log
}

func (e *env) Config() *config.Config {
	return e.config
}

func (e *env) Registry(site *neobyte.Site) *neobyte.ExtractorRegistry {
	if r, ok := e.registries[site]; ok {
		return r
	}
	return &neobyte.ExtractorRegistry{}
}

func (e *env) Downloads() *scratch.Dir {
	return e.downloads
}

func (e *env) Temp() *scratch.Dir {
	return e.temp
}

func (e *env) History() history.Store {
	return e.history
}

func (e *env) Close() {
	if err := e.history.Close(); err != nil {
		e.log.Error("failed to close history", zap.Error(err))
	}
}

type EnvBuilder interface {
	Build() (Env, error)
	Context(ctx context.Context) EnvBuilder
	Logger(l *zap.Logger) EnvBuilder
	Config(cfg *config.Config) EnvBuilder
	// Renderer replaces the headless Chrome used by browser extractors.
	Renderer(r browser.Renderer) EnvBuilder
	// Registry replaces the extractor chain of a site.
	Registry(site *neobyte.Site, r *neobyte.ExtractorRegistry) EnvBuilder
	// History replaces the history store that would be opened from the config.
	History(store history.Store) EnvBuilder
}

type envBuilder struct {
	env
	renderer browser.Renderer
}

func NewEnvBuilder() EnvBuilder {
	return &envBuilder{
		env: env{
			ctx:        context.Background(),
			log:        zap.L(),
			config:     config.Default(),
			registries: make(map[*neobyte.Site]*neobyte.ExtractorRegistry),
		},
	}
}

func (b *envBuilder) Build() (_ Env, err error) {
	if err = b.config.Validate(); err != nil {
		return nil, err
	}
	env := b.env
	env.registries = make(map[*neobyte.Site]*neobyte.ExtractorRegistry)
	for site, r := range b.registries {
		env.registries[site] = r
	}
	cfg := env.config

	env.downloads = scratch.New(cfg.DownloadsDir, scratch.WithLogger(env.log.Named("downloads")))
	env.temp = scratch.New(cfg.TempDir, scratch.WithLogger(env.log.Named("temp")))

	if env.history == nil {
		if cfg.HistoryPath == "" {
			env.history = history.NilStore{}
		} else if env.history, err = history.Open(cfg.HistoryPath); err != nil {
			return nil, err
		}
	}

	transcoder := transcode.New(
		transcode.WithLocalPath(cfg.FFmpegPath),
		transcode.WithBitrate(cfg.AudioBitrate),
		transcode.WithLogger(env.log.Named("transcode")),
	)
	ytdlpOpts := []ytdlp.Option{ytdlp.WithTranscoder(transcoder)}
	if ffmpeg, err := transcoder.Locate(); err == nil {
		ytdlpOpts = append(ytdlpOpts, ytdlp.WithFFmpeg(ffmpeg))
	} else {
		env.log.Warn("ffmpeg not found, audio will be served unconverted", zap.Error(err))
	}
	if cfg.Ytdlp.Executable != "" {
		ytdlpOpts = append(ytdlpOpts, ytdlp.WithExecutable(cfg.Ytdlp.Executable))
	} else if cfg.Ytdlp.Install {
		if err := ytdlp.Install(env.ctx, env.log); err != nil {
			env.log.Warn("yt-dlp install failed, relying on $PATH", zap.Error(err))
		}
	}

	renderer := b.renderer
	if renderer == nil && cfg.Browser.Enabled {
		renderer = browser.NewChrome(browser.ChromeConfig{
			ExecPath: cfg.Browser.ExecPath,
			Timeout:  cfg.Browser.Timeout,
		}, env.log.Named("chrome"))
	}
	client := httpx.NewClient()

	chains := map[*neobyte.Site][]neobyte.Extractor{
		neobyte.YouTube: {
			youtube.New(client, transcoder).Extractor(PriorityNative),
			ytdlp.New(ytdlp.YouTube, ytdlpOpts...).Extractor(PriorityYtdlp),
		},
		neobyte.Instagram: {
			ytdlp.New(ytdlp.Instagram, ytdlpOpts...).Extractor(PriorityYtdlp),
		},
		neobyte.Twitter: {
			ytdlp.New(ytdlp.Twitter, ytdlpOpts...).Extractor(PriorityYtdlp),
		},
	}
	if renderer != nil {
		chains[neobyte.YouTube] = append(chains[neobyte.YouTube],
			browser.NewMirror(renderer, client, cfg.Browser.MirrorURL, transcoder).Extractor(PriorityBrowser))
		chains[neobyte.Instagram] = append(chains[neobyte.Instagram],
			browser.NewInstagram(renderer, client, cfg.Browser.Settle, transcoder).Extractor(PriorityBrowser))
	}
	for site, extractors := range chains {
		if _, ok := env.registries[site]; ok {
			continue
		}
		r := &neobyte.ExtractorRegistry{}
		for _, e := range extractors {
			if err := r.Add(e); err != nil {
				return nil, fmt.Errorf("failed to register %v extractor %v: %w", site, e.Name, err)
			}
		}
		env.registries[site] = r
		env.log.Info("extractor chain", zap.String("site", site.Name), zap.Strings("extractors", r.List()))
	}

	return &env, nil
}

func (b *envBuilder) Context(ctx context.Context) EnvBuilder {
	b.ctx = ctx
	return b
}

func (b *envBuilder) Logger(l *zap.Logger) EnvBuilder {
	b.log = l
	return b
}

func (b *envBuilder) Config(cfg *config.Config) EnvBuilder {
	b.config = cfg
	return b
}

func (b *envBuilder) Renderer(r browser.Renderer) EnvBuilder {
	b.renderer = r
	return b
}

func (b *envBuilder) Registry(site *neobyte.Site, r *neobyte.ExtractorRegistry) EnvBuilder {
	b.registries[site] = r
	return b
}

func (b *envBuilder) History(store history.Store) EnvBuilder {
	b.history = store
	return b
}
