// Package ytdlp fetches media by running yt-dlp through github.com/lrstanley/go-ytdlp.
package ytdlp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"go.uber.org/zap"

	"github.com/alanbriolat/neobyte"
	"github.com/alanbriolat/neobyte/scratch"
	"github.com/alanbriolat/neobyte/transcode"
)

const Name = "ytdlp"

type Option func(*Extractor)

// WithExecutable uses a specific yt-dlp binary instead of the one found on $PATH or installed by Install.
func WithExecutable(path string) Option {
	return func(e *Extractor) {
		e.executable = path
	}
}

// WithFFmpeg tells yt-dlp where ffmpeg is, for merging separate video and audio streams.
func WithFFmpeg(path string) Option {
	return func(e *Extractor) {
		e.ffmpeg = path
	}
}

func WithTranscoder(t *transcode.Transcoder) Option {
	return func(e *Extractor) {
		e.transcoder = t
	}
}

type Extractor struct {
	profile    Profile
	executable string
	ffmpeg     string
	transcoder *transcode.Transcoder
}

func New(profile Profile, opts ...Option) *Extractor {
	e := &Extractor{profile: profile}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Extractor) Extractor(priority int16) neobyte.Extractor {
	return neobyte.Extractor{Name: Name, Attempt: e.Attempt, Priority: priority}
}

// Command builds the yt-dlp invocation for a request, writing into the lease.
func (e *Extractor) Command(req *neobyte.Request, lease *scratch.Lease) *ytdlp.Command {
	cmd := ytdlp.New().
		Format(e.profile.Format(req)).
		Output(lease.File("%(ext)s")).
		NoPlaylist().
		ForceOverwrites().
		PrintJSON().
		NoSimulate()
	if e.executable != "" {
		cmd.SetExecutable(e.executable)
	}
	if e.ffmpeg != "" {
		cmd.FFmpegLocation(e.ffmpeg)
	}
	if req.Progress != nil {
		cmd.ProgressFunc(500*time.Millisecond, func(update ytdlp.ProgressUpdate) {
			req.Progress(update.DownloadedBytes, update.TotalBytes)
		})
	}
	if e.profile.Configure != nil {
		e.profile.Configure(cmd, req)
	}
	return cmd
}

func (e *Extractor) Attempt(ctx context.Context, req *neobyte.Request, lease *scratch.Lease) (*neobyte.Result, error) {
	logger := neobyte.Logger(ctx).Named(Name)

	start := time.Now()
	res, err := e.Command(req, lease).Run(ctx, req.URL)
	if err != nil {
		stderr := ""
		if res != nil {
			stderr = res.Stderr
		}
		return nil, classify(err, stderr)
	}
	logger.Info("yt-dlp finished", zap.Duration("elapsed", time.Since(start)))

	result := &neobyte.Result{}
	var reported string
	if infos, err := res.GetExtractedInfo(); err != nil {
		logger.Warn("failed to read yt-dlp metadata", zap.Error(err))
	} else if len(infos) > 0 {
		info := infos[len(infos)-1]
		result.Title = deref(info.Title)
		result.Uploader = deref(info.Uploader)
		reported = deref(info.Filename)
	}

	outputs, err := lease.Outputs()
	if err != nil {
		return nil, err
	}
	path, err := pickOutput(outputs, reported)
	if err != nil {
		return nil, err
	}
	if req.Audio() && e.transcoder != nil {
		path, _ = e.transcoder.ToAudio(ctx, path)
	}
	result.Path = path
	return result, nil
}

// pickOutput chooses the finished file: the one yt-dlp reported if it exists, otherwise the largest.
func pickOutput(outputs []string, reported string) (string, error) {
	if len(outputs) == 0 {
		return "", neobyte.Errorf(neobyte.KindNoMedia, "yt-dlp produced no file")
	}
	if reported != "" {
		for _, path := range outputs {
			if filepath.Base(path) == filepath.Base(reported) {
				return path, nil
			}
		}
	}
	best, bestSize := "", int64(-1)
	for _, path := range outputs {
		if info, err := os.Stat(path); err == nil && info.Size() > bestSize {
			best, bestSize = path, info.Size()
		}
	}
	if best == "" {
		return "", neobyte.Errorf(neobyte.KindNoMedia, "yt-dlp produced no file")
	}
	return best, nil
}

// classify turns a yt-dlp failure into a classified error carrying yt-dlp's own ERROR lines.
func classify(err error, stderr string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return neobyte.NewError(neobyte.KindFailed, err)
	}
	lines := errorLines(stderr)
	if len(lines) == 0 {
		return neobyte.NewError(neobyte.ClassifyMessage(err.Error()), err)
	}
	kind := neobyte.ClassifyMessage(strings.Join(append(lines, err.Error()), "\n"))
	return neobyte.NewError(kind, errors.New(strings.Join(lines, "; ")))
}

func errorLines(stderr string) []string {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(stderr))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); strings.HasPrefix(line, "ERROR:") {
			lines = append(lines, line)
		}
	}
	return lines
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// Install makes sure a yt-dlp binary is available, downloading it into the user cache if necessary.
func Install(ctx context.Context, logger *zap.Logger) error {
	resolved, err := ytdlp.Install(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to install yt-dlp: %w", err)
	}
	logger.Info("yt-dlp available", zap.String("path", resolved.Executable), zap.String("version", resolved.Version))
	return nil
}
