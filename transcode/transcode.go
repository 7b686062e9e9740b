// Package transcode converts fetched media to MP3 with ffmpeg. Conversion is best-effort: on any failure the
// original file is kept and returned as-is.
package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"
)

const (
	FFmpegCommand     = "ffmpeg"
	DefaultBitrate    = "192k"
	DefaultSampleRate = "44100"
)

var ErrNotFound = errors.New("ffmpeg not found")

type Option func(*Transcoder)

// WithLocalPath sets a conventional location for a bundled ffmpeg, used in preference to $PATH if it exists.
func WithLocalPath(path string) Option {
	return func(t *Transcoder) {
		t.localPath = path
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(t *Transcoder) {
		t.logger = logger
	}
}

func WithBitrate(bitrate string) Option {
	return func(t *Transcoder) {
		t.bitrate = bitrate
	}
}

type Transcoder struct {
	localPath  string
	bitrate    string
	sampleRate string
	logger     *zap.Logger
	lookPath   func(string) (string, error)
}

func New(opts ...Option) *Transcoder {
	t := &Transcoder{
		bitrate:    DefaultBitrate,
		sampleRate: DefaultSampleRate,
		logger:     zap.NewNop(),
		lookPath:   exec.LookPath,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Locate finds the ffmpeg executable: the local path if it exists, otherwise whatever is on $PATH.
func (t *Transcoder) Locate() (string, error) {
	if t.localPath != "" {
		candidates := []string{t.localPath}
		if runtime.GOOS == "windows" && filepath.Ext(t.localPath) == "" {
			candidates = append(candidates, t.localPath+".exe")
		}
		for _, candidate := range candidates {
			if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
				return candidate, nil
			}
		}
	}
	if path, err := t.lookPath(FFmpegCommand); err == nil {
		return path, nil
	}
	return "", ErrNotFound
}

// Args builds the ffmpeg arguments that strip video from input and encode its audio to output.
func (t *Transcoder) Args(input string, output string) []string {
	return []string{
		"-i", input,
		"-vn",
		"-ab", t.bitrate,
		"-ar", t.sampleRate,
		"-y",
		output,
	}
}

// ToAudio converts input to an MP3 alongside it. On success the input is deleted and the MP3's path is returned with
// converted=true. On failure any partial output is deleted, the failure is logged, and input is returned unchanged.
func (t *Transcoder) ToAudio(ctx context.Context, input string) (output string, converted bool) {
	if !NeedsAudio(input) {
		return input, false
	}
	output = strings.TrimSuffix(input, filepath.Ext(input)) + ".mp3"
	logger := t.logger.With(zap.String("input", input), zap.String("output", output))

	if err := t.run(ctx, input, output); err != nil {
		logger.Warn("audio conversion failed, keeping original file", zap.Error(err))
		if err := os.Remove(output); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Error("failed to remove partial output", zap.Error(err))
		}
		return input, false
	}

	if err := os.Remove(input); err != nil {
		logger.Error("failed to remove converted input", zap.Error(err))
	}
	logger.Info("converted to audio")
	return output, true
}

func (t *Transcoder) run(ctx context.Context, input string, output string) error {
	bin, err := t.Locate()
	if err != nil {
		return err
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, t.Args(input, output)...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", bin, err, tail(stderr.String(), 512))
	}
	if info, err := os.Stat(output); err != nil {
		return fmt.Errorf("missing output: %w", err)
	} else if info.Size() == 0 {
		return errors.New("empty output")
	}
	return nil
}

// NeedsAudio reports whether a file still has to be converted to get an MP3.
func NeedsAudio(path string) bool {
	return !strings.EqualFold(filepath.Ext(path), ".mp3")
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) > n {
		return "..." + s[len(s)-n:]
	}
	return s
}
