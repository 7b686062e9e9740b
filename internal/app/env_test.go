package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	assert_ "github.com/stretchr/testify/assert"
	require_ "github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alanbriolat/neobyte"
	"github.com/alanbriolat/neobyte/internal/config"
	"github.com/alanbriolat/neobyte/internal/history"
)

type nopRenderer struct{}

func (nopRenderer) Render(context.Context, string, []string, time.Duration) (string, error) {
	return "", nil
}

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DownloadsDir = filepath.Join(dir, "downloads")
	cfg.TempDir = filepath.Join(dir, "temp")
	cfg.HistoryPath = filepath.Join(dir, "history.db")
	cfg.FFmpegPath = filepath.Join(dir, "no-ffmpeg")
	return cfg
}

func TestBuildChains(t *testing.T) {
	assert := assert_.New(t)
	env, err := NewEnvBuilder().
		Logger(zap.NewNop()).
		Config(testConfig(t)).
		Renderer(nopRenderer{}).
		Build()
	require_.NoError(t, err)
	defer env.Close()

	assert.Equal([]string{"mirror", "youtube", "ytdlp"}, env.Registry(neobyte.YouTube).List())
	assert.Equal([]string{"browser", "ytdlp"}, env.Registry(neobyte.Instagram).List())
	assert.Equal([]string{"ytdlp"}, env.Registry(neobyte.Twitter).List())
	assert.NotEqual(env.Downloads().Path(), env.Temp().Path())
}

func TestBuildWithoutBrowser(t *testing.T) {
	assert := assert_.New(t)
	cfg := testConfig(t)
	cfg.Browser.Enabled = false
	cfg.HistoryPath = ""
	env, err := NewEnvBuilder().Logger(zap.NewNop()).Config(cfg).Build()
	require_.NoError(t, err)
	defer env.Close()

	assert.Equal([]string{"youtube", "ytdlp"}, env.Registry(neobyte.YouTube).List())
	assert.Equal([]string{"ytdlp"}, env.Registry(neobyte.Instagram).List())
	assert.IsType(history.NilStore{}, env.History())
}

func TestBuildOverrides(t *testing.T) {
	assert := assert_.New(t)
	custom := &neobyte.ExtractorRegistry{}
	env, err := NewEnvBuilder().
		Logger(zap.NewNop()).
		Config(testConfig(t)).
		Registry(neobyte.Twitter, custom).
		History(history.NilStore{}).
		Build()
	require_.NoError(t, err)
	defer env.Close()
	assert.Same(custom, env.Registry(neobyte.Twitter))
	assert.IsType(history.NilStore{}, env.History())
}

func TestBuildInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.TempDir = ""
	_, err := NewEnvBuilder().Logger(zap.NewNop()).Config(cfg).Build()
	assert_.Error(t, err)
}
