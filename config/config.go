// Package config loads chatpulse settings from defaults, an optional YAML
// file and environment variables (in that order of precedence, lowest
// first). Command-line flags are applied on top by the cli package.
// Use ValidateAnalyze before running the pipeline and ValidateCaptureReady
// before a live capture.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/onnwee/chatpulse/fsio"
	"github.com/onnwee/chatpulse/report"
	"github.com/onnwee/chatpulse/window"
)

// Defaults for the file-based pipeline.
const (
	DefaultChatFile     = "chat.txt"
	DefaultKeywordsFile = "keywords.txt"
	DefaultTimeInterval = "4T"
	DefaultHTTPAddr     = ":8080"
)

type Config struct {
	// Analysis
	ChatFile        string `yaml:"chat_file"`
	KeywordsFile    string `yaml:"keywords_file"`
	OutputCSV       string `yaml:"output_csv"`
	TimeInterval    string `yaml:"time_interval"`
	TimestampFormat string `yaml:"timestamp_format"`
	Timezone        string `yaml:"timezone"`
	StrictLines     bool   `yaml:"strict_lines"`

	// Live capture
	YouTubeID        string        `yaml:"youtube_id"`
	YouTubeOutput    string        `yaml:"youtube_output"`
	TwitchChannel    string        `yaml:"twitch_channel"`
	CaptureDuration  time.Duration `yaml:"capture_duration"`
	ChatPollInterval time.Duration `yaml:"chat_poll_interval"`

	// Twitch
	TwitchBotUsername  string `yaml:"twitch_bot_username"`
	TwitchOAuthToken   string `yaml:"-"`
	TwitchClientID     string `yaml:"twitch_client_id"`
	TwitchClientSecret string `yaml:"-"`

	// YouTube
	YTAPIKey       string `yaml:"-"`
	YTClientID     string `yaml:"yt_client_id"`
	YTClientSecret string `yaml:"-"`
	YTRedirectURI  string `yaml:"yt_redirect_uri"`
	YTScopes       string `yaml:"yt_scopes"`

	// Database
	DBDsn string `yaml:"db_dsn"`
	// TokenEncryptionKey (base64, 32 bytes) encrypts stored OAuth tokens.
	TokenEncryptionKey string `yaml:"-"`

	// HTTP API
	HTTPAddr             string        `yaml:"http_addr"`
	OAuthRefreshInterval time.Duration `yaml:"oauth_refresh_interval"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	return &Config{
		ChatFile:             DefaultChatFile,
		KeywordsFile:         DefaultKeywordsFile,
		TimeInterval:         DefaultTimeInterval,
		TimestampFormat:      report.DefaultTimestampPattern,
		ChatPollInterval:     30 * time.Second,
		HTTPAddr:             DefaultHTTPAddr,
		OAuthRefreshInterval: 5 * time.Minute,
	}
}

// Load applies the YAML file named by CHATPULSE_CONFIG (if any) and the
// environment over the defaults.
func Load() (*Config, error) {
	return LoadFile(fsio.OS, os.Getenv("CHATPULSE_CONFIG"))
}

// LoadFile is Load with an explicit config file path; an empty path skips
// the file. A named file that does not exist is an error.
func LoadFile(fsys afero.Fs, path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		b, err := afero.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	envString(&c.ChatFile, "CHAT_FILE")
	envString(&c.KeywordsFile, "KEYWORDS_FILE")
	envString(&c.OutputCSV, "OUTPUT_CSV")
	envString(&c.TimeInterval, "TIME_INTERVAL")
	envString(&c.TimestampFormat, "TIMESTAMP_FORMAT")
	envString(&c.Timezone, "TZ_NAME")
	envString(&c.YouTubeID, "YOUTUBE_ID")
	envString(&c.YouTubeOutput, "YOUTUBE_OUTPUT")
	envString(&c.TwitchChannel, "TWITCH_CHANNEL")
	envString(&c.TwitchBotUsername, "TWITCH_BOT_USERNAME")
	envString(&c.TwitchOAuthToken, "TWITCH_OAUTH_TOKEN")
	envString(&c.TwitchClientID, "TWITCH_CLIENT_ID")
	envString(&c.TwitchClientSecret, "TWITCH_CLIENT_SECRET")
	envString(&c.YTAPIKey, "YT_API_KEY")
	envString(&c.YTClientID, "YT_CLIENT_ID")
	envString(&c.YTClientSecret, "YT_CLIENT_SECRET")
	envString(&c.YTRedirectURI, "YT_REDIRECT_URI")
	envString(&c.YTScopes, "YT_SCOPES")
	envString(&c.DBDsn, "DB_DSN")
	envString(&c.TokenEncryptionKey, "TOKEN_ENCRYPTION_KEY")
	envString(&c.HTTPAddr, "HTTP_ADDR")

	var errs []error
	errs = append(errs,
		envBool(&c.StrictLines, "STRICT_LINES"),
		envDuration(&c.CaptureDuration, "CAPTURE_DURATION"),
		envDuration(&c.ChatPollInterval, "CHAT_AUTO_POLL_INTERVAL"),
		envDuration(&c.OAuthRefreshInterval, "OAUTH_REFRESH_INTERVAL"),
	)
	return errors.Join(errs...)
}

func envString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func envBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s (bool): %w", key, err)
	}
	*dst = b
	return nil
}

func envDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return fmt.Errorf("invalid %s (duration): %q", key, v)
	}
	*dst = d
	return nil
}

// Interval parses TimeInterval.
func (c *Config) Interval() (window.Interval, error) {
	return window.ParseInterval(c.TimeInterval)
}

// Location resolves Timezone; empty means UTC.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TZ_NAME %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// ValidateAnalyze checks everything the file pipeline needs before it reads
// any input: a valid interval and timezone, and existing transcript and
// keyword files. Failures wrap window.ErrInvalidInterval or fsio.ErrMissingFile.
func (c *Config) ValidateAnalyze(fsys afero.Fs) error {
	return c.validate(fsys, true)
}

// ValidateSessionAnalyze is ValidateAnalyze for stored sessions, where no
// transcript file is read.
func (c *Config) ValidateSessionAnalyze(fsys afero.Fs) error {
	return c.validate(fsys, false)
}

func (c *Config) validate(fsys afero.Fs, needTranscript bool) error {
	if _, err := c.Interval(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if needTranscript {
		if err := fsio.RequireFile(fsys, c.ChatFile); err != nil {
			return fmt.Errorf("chat file: %w", err)
		}
	}
	if err := fsio.RequireFile(fsys, c.KeywordsFile); err != nil {
		return fmt.Errorf("keywords file: %w", err)
	}
	return nil
}

// ValidateCaptureReady checks that exactly one live source is selected and
// that it has the credentials it needs. Twitch chat reads anonymously, so
// only YouTube requires credentials.
func (c *Config) ValidateCaptureReady() error {
	switch {
	case c.YouTubeID == "" && c.TwitchChannel == "":
		return errors.New("no live source: set YOUTUBE_ID or TWITCH_CHANNEL")
	case c.YouTubeID != "" && c.TwitchChannel != "":
		return errors.New("choose one live source: YOUTUBE_ID and TWITCH_CHANNEL are both set")
	case c.YouTubeID != "" && c.YTAPIKey == "" && c.YTClientID == "":
		return errors.New("missing youtube env: require YT_API_KEY or YT_CLIENT_ID/YT_CLIENT_SECRET")
	}
	if (c.TwitchBotUsername == "") != (c.TwitchOAuthToken == "") {
		return errors.New("twitch bot login needs both TWITCH_BOT_USERNAME and TWITCH_OAUTH_TOKEN")
	}
	return nil
}

// HelixEnabled reports whether Twitch app credentials are configured for
// live status checks.
func (c *Config) HelixEnabled() bool {
	return c.TwitchClientID != "" && c.TwitchClientSecret != ""
}

// YouTubeOAuthEnabled reports whether the YouTube OAuth flow can run.
func (c *Config) YouTubeOAuthEnabled() bool {
	return c.YTClientID != "" && c.YTClientSecret != "" && c.YTRedirectURI != ""
}
