package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/alanbriolat/neobyte"
	"github.com/alanbriolat/neobyte/async"
	"github.com/alanbriolat/neobyte/generic"
	"github.com/alanbriolat/neobyte/internal/app"
	"github.com/alanbriolat/neobyte/internal/config"
	"github.com/alanbriolat/neobyte/internal/server"
	"github.com/alanbriolat/neobyte/scratch"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cliApp := &cli.App{
		Name:  "neobyte",
		Usage: "download videos and audio from YouTube, Instagram and X",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "neobyte.toml",
				Usage:   "load settings from `FILE`",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "log at debug level",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the web front-end",
				Action: func(c *cli.Context) error { return serve(ctx, c) },
			},
			{
				Name:      "fetch",
				Usage:     "download one or more URLs from the command line",
				ArgsUsage: "URL...",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "target", Value: ".", Usage: "save downloads to `DIR`"},
					&cli.StringFlag{Name: "type", Value: string(neobyte.ContentVideo), Usage: "video or audio"},
					&cli.StringFlag{Name: "resolution", Value: "highest", Usage: "highest, lowest or e.g. 720p"},
					&cli.StringFlag{Name: "cookies", Usage: "Netscape cookies.txt `FILE` for authenticated fetches"},
				},
				Action: func(c *cli.Context) error { return fetch(ctx, c) },
			},
		},
		DefaultCommand:  "serve",
		HideHelpCommand: true,
	}

	result := async.Run(func() error { return cliApp.Run(os.Args) })
	if err := <-result; err != nil {
		log.Fatal(err)
	}
}

// setup loads the config and builds the logger and environment every command runs in.
func setup(ctx context.Context, c *cli.Context, logFile bool) (app.Env, *zap.Logger, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, err
	}
	if c.Bool("debug") {
		cfg.Debug = true
	}

	zapConfig := zap.NewDevelopmentConfig()
	zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if !cfg.Debug {
		zapConfig.Level.SetLevel(zap.InfoLevel)
	}
	if logFile && cfg.LogFile != "" {
		zapConfig.OutputPaths = append(zapConfig.OutputPaths, cfg.LogFile)
	}
	logger, err := zapConfig.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("can't initialize zap logger: %w", err)
	}
	zap.RedirectStdLog(logger)
	zap.ReplaceGlobals(logger)

	env, err := app.NewEnvBuilder().
		Context(neobyte.WithLogger(ctx, logger)).
		Logger(logger).
		Config(cfg).
		Build()
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	return env, logger, nil
}

func serve(ctx context.Context, c *cli.Context) error {
	env, logger, err := setup(ctx, c, true)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer env.Close()
	return server.New(env).Run(ctx, env.Config().Addr)
}

func fetch(ctx context.Context, c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("at least one URL is required", 1)
	}
	env, logger, err := setup(ctx, c, false)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer env.Close()

	target := c.String("target")
	if err := os.MkdirAll(target, 0755); err != nil {
		return err
	}
	for _, raw := range c.Args().Slice() {
		req, err := request(raw, c)
		if err != nil {
			return err
		}
		if err := fetchOne(neobyte.WithLogger(ctx, logger), env, req, target); err != nil {
			return fmt.Errorf("%v: %w", raw, err)
		}
	}
	return nil
}

// request finds the site a URL belongs to.
func request(raw string, c *cli.Context) (*neobyte.Request, error) {
	for _, site := range neobyte.Sites {
		normalized, err := site.Normalize(raw)
		if err != nil {
			continue
		}
		return &neobyte.Request{
			URL:        normalized,
			Site:       site,
			Content:    neobyte.ParseContent(c.String("type")),
			Quality:    c.String("resolution"),
			CookieFile: c.String("cookies"),
		}, nil
	}
	return nil, neobyte.Errorf(neobyte.KindInvalidInput, "not a supported URL: %v", raw)
}

func fetchOne(ctx context.Context, env app.Env, req *neobyte.Request, target string) error {
	logger := neobyte.Logger(ctx).Sugar()
	logger.Infof("Downloading %v into %v", req, target)

	bar := progressbar.DefaultBytes(-1, "downloading")
	req.Progress = func(downloaded int, expected int) {
		if expected > 0 && bar.GetMax() != expected {
			bar.ChangeMax(expected)
		}
		generic.Unwrap_(bar.Set(downloaded))
	}
	defer bar.Close()

	return env.Temp().WithLease(func(lease *scratch.Lease) error {
		res, err := env.Registry(req.Site).Resolve(ctx, req, lease)
		if err != nil {
			return err
		}
		_ = bar.Finish()
		name := neobyte.DisplayName(req.Site.Title(req, res, req.Site.PostID(req.URL, lease.ID)), res.Ext())
		dest := filepath.Join(target, name)
		if err := copyFile(res.Path, dest); err != nil {
			return err
		}
		logger.Infof("Saved %v (via %v)", dest, res.Extractor)
		return nil
	})
}

func copyFile(src string, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
