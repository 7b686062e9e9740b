// Package config loads server settings from an optional TOML file, then from NEOBYTE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "NEOBYTE"

type Browser struct {
	// Enabled turns on the headless-browser extractors.
	Enabled  bool          `toml:"enabled" envconfig:"enabled"`
	ExecPath string        `toml:"exec_path" envconfig:"exec_path"`
	Timeout  time.Duration `toml:"timeout" envconfig:"timeout"`
	// Settle is how long to let a page run its scripts before scraping it.
	Settle    time.Duration `toml:"settle" envconfig:"settle"`
	MirrorURL string        `toml:"mirror_url" envconfig:"mirror_url"`
}

type Ytdlp struct {
	// Install downloads yt-dlp into the user cache at startup if it can't be found.
	Install    bool   `toml:"install" envconfig:"install"`
	Executable string `toml:"executable" envconfig:"executable"`
}

type Config struct {
	Addr         string `toml:"addr" envconfig:"addr"`
	DownloadsDir string `toml:"downloads_dir" envconfig:"downloads_dir"`
	TempDir      string `toml:"temp_dir" envconfig:"temp_dir"`
	LogFile      string `toml:"log_file" envconfig:"log_file"`
	Debug        bool   `toml:"debug" envconfig:"debug"`
	// FFmpegPath is a bundled ffmpeg, used if it exists; otherwise ffmpeg is looked up on $PATH.
	FFmpegPath string `toml:"ffmpeg_path" envconfig:"ffmpeg_path"`
	// AudioBitrate is the MP3 bitrate for audio downloads, in ffmpeg's notation.
	AudioBitrate string `toml:"audio_bitrate" envconfig:"audio_bitrate"`
	// HistoryPath is the bbolt database of past requests. Empty disables history.
	HistoryPath    string  `toml:"history_path" envconfig:"history_path"`
	MaxCookieBytes int64   `toml:"max_cookie_bytes" envconfig:"max_cookie_bytes"`
	Browser        Browser `toml:"browser" envconfig:"browser"`
	Ytdlp          Ytdlp   `toml:"ytdlp" envconfig:"ytdlp"`
}

func Default() *Config {
	return &Config{
		Addr:           ":5000",
		DownloadsDir:   "downloads",
		TempDir:        "temp",
		LogFile:        "neobyte.log",
		FFmpegPath:     "YoutubeDownloaderApp/ffmpeg",
		AudioBitrate:   "192k",
		HistoryPath:    "neobyte.db",
		MaxCookieBytes: 1 << 20,
		Browser: Browser{
			Enabled:   true,
			Timeout:   30 * time.Second,
			Settle:    3 * time.Second,
			MirrorURL: "https://9xbuddy.xyz/process?url=%s",
		},
	}
}

// Load reads the config file at path over the defaults, then applies environment overrides. A missing file is not an
// error; an empty path skips the file entirely.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading config: %w", err)
		} else if err == nil {
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %v: %w", path, err)
			}
		}
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var bitratePattern = regexp.MustCompile(`^\d{2,3}k$`)

func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Addr) == "" {
		problems = append(problems, "addr must not be empty")
	}
	if strings.TrimSpace(c.DownloadsDir) == "" {
		problems = append(problems, "downloads_dir must not be empty")
	}
	if strings.TrimSpace(c.TempDir) == "" {
		problems = append(problems, "temp_dir must not be empty")
	}
	if !bitratePattern.MatchString(c.AudioBitrate) {
		problems = append(problems, "audio_bitrate must look like 192k")
	}
	if c.MaxCookieBytes <= 0 {
		problems = append(problems, "max_cookie_bytes must be positive")
	}
	if c.Browser.Timeout <= 0 {
		problems = append(problems, "browser.timeout must be positive")
	}
	if c.Browser.Settle < 0 {
		problems = append(problems, "browser.settle must not be negative")
	}
	if c.Browser.MirrorURL != "" && !strings.Contains(c.Browser.MirrorURL, "%s") {
		problems = append(problems, "browser.mirror_url must contain %s")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
