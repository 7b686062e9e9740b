// Package server is the HTTP front-end: one form page per site, one download endpoint per site, and a couple of
// administrative endpoints.
package server

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/alanbriolat/neobyte"
	"github.com/alanbriolat/neobyte/async"
	"github.com/alanbriolat/neobyte/generic"
	"github.com/alanbriolat/neobyte/internal/app"
)

//go:embed templates/*.html static/*
var assets embed.FS

const shutdownTimeout = 10 * time.Second

// Resolutions offered on the YouTube form, between "highest" and "lowest".
var Resolutions = []string{"1080p", "720p", "480p", "360p", "240p", "144p"}

type Server struct {
	env    app.Env
	log    *zap.Logger
	engine *gin.Engine
}

func New(env app.Env) *Server {
	s := &Server{
		env: env,
		log: env.Logger().Named("server"),
	}
	s.engine = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(s.log))
	engine.SetHTMLTemplate(template.Must(template.ParseFS(assets, "templates/*.html")))
	engine.StaticFS("/static", http.FS(generic.Unwrap(fs.Sub(assets, "static"))))

	engine.GET("/", s.page("index.html", "NeoByte", nil))
	engine.GET("/youtube", s.page("youtube.html", "YouTube Downloader",
		formData(neobyte.YouTube, youtubePolicy, gin.H{"Resolutions": Resolutions})))
	engine.GET("/instagram", s.page("instagram.html", "Instagram Downloader",
		formData(neobyte.Instagram, instagramPolicy, nil)))
	engine.GET("/twitter", s.page("twitter.html", "X (Twitter) Downloader",
		formData(neobyte.Twitter, twitterPolicy, nil)))

	engine.POST("/download", s.handleYouTube)
	engine.POST("/instagram_download", s.handleInstagram)
	engine.POST("/twitter_download", s.handleTwitter)

	engine.GET("/cleanup", s.handleCleanup)
	engine.GET("/history", s.handleHistory)
	return engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.engine,
	}
	s.log.Info("listening", zap.String("addr", addr))
	result := async.Run(srv.ListenAndServe)

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		s.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-result; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) page(name string, title string, extra gin.H) gin.HandlerFunc {
	return func(c *gin.Context) {
		data := gin.H{"Title": title}
		for k, v := range extra {
			data[k] = v
		}
		c.HTML(http.StatusOK, name, data)
	}
}

// formData is what a download form needs to check its URL before submitting.
func formData(site *neobyte.Site, p *policy, extra gin.H) gin.H {
	data := gin.H{
		"Hosts":   strings.Join(site.Hosts(), " "),
		"Missing": p.missing,
		"Invalid": p.invalid,
	}
	for k, v := range extra {
		data[k] = v
	}
	return data
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Int("size", c.Writer.Size()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("client", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch status := c.Writer.Status(); {
		case status >= 500:
			log.Error("request", fields...)
		case status >= 400:
			log.Warn("request", fields...)
		default:
			log.Debug("request", fields...)
		}
	}
}
