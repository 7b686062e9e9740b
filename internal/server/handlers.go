package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/alanbriolat/neobyte"
	"github.com/alanbriolat/neobyte/format"
	"github.com/alanbriolat/neobyte/internal/history"
	"github.com/alanbriolat/neobyte/scratch"
)

// A prepareFunc runs with the request's lease before the extractor chain, e.g. to store uploaded files.
type prepareFunc func(c *gin.Context, req *neobyte.Request, lease *scratch.Lease) bool

func (s *Server) handleYouTube(c *gin.Context) {
	// Anything left in the downloads dir is from a request that never cleaned up after itself.
	if _, err := s.env.Downloads().Sweep(); err != nil && !errors.Is(err, scratch.ErrNoDir) {
		s.log.Warn("failed to sweep downloads", zap.Error(err))
	}
	req, ok := s.request(c, neobyte.YouTube, youtubePolicy)
	if !ok {
		return
	}
	req.Quality = c.DefaultPostForm("resolution", format.QualityHighest)
	s.fetch(c, s.env.Downloads(), req, youtubePolicy, nil)
}

func (s *Server) handleInstagram(c *gin.Context) {
	req, ok := s.request(c, neobyte.Instagram, instagramPolicy)
	if !ok {
		return
	}
	s.fetch(c, s.env.Temp(), req, instagramPolicy, nil)
}

func (s *Server) handleTwitter(c *gin.Context) {
	req, ok := s.request(c, neobyte.Twitter, twitterPolicy)
	if !ok {
		return
	}
	s.fetch(c, s.env.Temp(), req, twitterPolicy, s.saveCookies)
}

// saveCookies stores an uploaded cookie jar as an aux file of the lease. No upload is fine.
func (s *Server) saveCookies(c *gin.Context, req *neobyte.Request, lease *scratch.Lease) bool {
	header, err := c.FormFile("cookie_file")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return true
	} else if err != nil {
		s.log.Error("failed to read cookie upload", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": cookieFailure})
		return false
	}
	if header.Filename == "" || header.Size == 0 {
		return true
	}
	if limit := s.env.Config().MaxCookieBytes; limit > 0 && header.Size > limit {
		s.log.Warn("cookie upload too large", zap.Int64("size", header.Size), zap.Int64("limit", limit))
		c.JSON(http.StatusInternalServerError, gin.H{"error": cookieFailure})
		return false
	}
	path := lease.Aux("cookies.txt")
	if err := c.SaveUploadedFile(header, path); err != nil {
		s.log.Error("failed to save cookie upload", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": cookieFailure})
		return false
	}
	req.CookieFile = path
	return true
}

// request builds a Request from the form, responding with 400 if the URL is missing or not one of the site's.
func (s *Server) request(c *gin.Context, site *neobyte.Site, p *policy) (*neobyte.Request, bool) {
	raw := strings.TrimSpace(c.PostForm("url"))
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": p.missing})
		return nil, false
	}
	normalized, err := site.Normalize(raw)
	if err != nil {
		s.log.Debug("rejected url", zap.String("site", site.Name), zap.String("url", raw), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": p.invalid})
		return nil, false
	}
	return &neobyte.Request{
		URL:     normalized,
		Site:    site,
		Content: neobyte.ParseContent(c.PostForm("download_type")),
	}, true
}

// fetch runs the site's extractor chain under a fresh lease and delivers the result. Whatever happens, the lease's
// files are gone once fetch returns.
func (s *Server) fetch(c *gin.Context, dir *scratch.Dir, req *neobyte.Request, p *policy, prepare prepareFunc) {
	lease, err := dir.Acquire()
	if err != nil {
		s.log.Error("failed to acquire scratch lease", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": p.respond(req.URL, err).message})
		return
	}
	defer lease.Release()

	log := s.log.With(zap.String("lease", lease.ID), zap.String("site", req.Site.Name))
	if prepare != nil && !prepare(c, req, lease) {
		return
	}

	record := &history.Record{
		ID:        lease.ID,
		Site:      req.Site.Name,
		URL:       req.URL,
		Content:   string(req.Content),
		Quality:   req.Quality,
		StartedAt: time.Now(),
	}
	log.Info("resolving", zap.Stringer("request", req))
	ctx := neobyte.WithLogger(c.Request.Context(), log)
	res, err := s.env.Registry(req.Site).Resolve(ctx, req, lease)
	record.Elapsed = time.Since(record.StartedAt)
	if err != nil {
		log.Error("all extractors failed", zap.Error(err))
		record.Status, record.Error = history.StatusFailed, err.Error()
		s.remember(record)
		r := p.respond(req.URL, err)
		c.JSON(r.status, gin.H{"error": r.message})
		return
	}
	record.Status, record.Extractor = history.StatusOK, res.Extractor
	s.remember(record)

	name := neobyte.DisplayName(req.Site.Title(req, res, req.Site.PostID(req.URL, lease.ID)), res.Ext())
	log.Info("delivering", zap.String("extractor", res.Extractor), zap.String("name", name))
	if err := deliver(c, res, name); err != nil {
		log.Error("failed to deliver", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": p.respond(req.URL, neobyte.NewError(neobyte.KindNoMedia, err)).message})
	}
}

func (s *Server) remember(record *history.Record) {
	if err := s.env.History().Put(record); err != nil {
		s.log.Warn("failed to record history", zap.Error(err))
	}
}

func (s *Server) handleCleanup(c *gin.Context) {
	count, err := s.env.Temp().Sweep()
	if errors.Is(err, scratch.ErrNoDir) {
		c.JSON(http.StatusOK, gin.H{"message": "No temporary directory found"})
		return
	} else if err != nil {
		s.log.Error("cleanup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cleaned " + strconv.Itoa(count) + " temporary files"})
}

const (
	historyDefault = 50
	historyMax     = 500
)

func (s *Server) handleHistory(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(historyDefault)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a number"})
		return
	}
	if limit <= 0 {
		limit = historyDefault
	} else if limit > historyMax {
		limit = historyMax
	}
	records, err := s.env.History().List(limit)
	if err != nil {
		s.log.Error("failed to list history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if records == nil {
		records = []history.Record{}
	}
	c.JSON(http.StatusOK, records)
}
