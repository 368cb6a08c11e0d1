// Package config provides YAML-based configuration loading for pcremote.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/zulandar/pcremote/internal/actions"
	"github.com/zulandar/pcremote/internal/filebrowser"
	"gopkg.in/yaml.v3"
)

// Supported chat platforms.
const (
	PlatformTelegram = "telegram"
	PlatformDiscord  = "discord"
	PlatformSlack    = "slack"
)

// Supported storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// DefaultFile is the config file name looked up by the CLI.
const DefaultFile = "pcremote.yaml"

// Config is the top-level pcremote configuration, loaded from pcremote.yaml.
type Config struct {
	Platform      string                     `yaml:"platform"`
	AllowedUserID string                     `yaml:"allowed_user_id"`
	Telegram      TelegramConfig             `yaml:"telegram"`
	Discord       DiscordConfig              `yaml:"discord"`
	Slack         SlackConfig                `yaml:"slack"`
	State         StateConfig                `yaml:"state"`
	Files         FilesConfig                `yaml:"files"`
	Storage       StorageConfig              `yaml:"storage"`
	Exec          ExecConfig                 `yaml:"exec"`
	Commands      map[string]actions.Command `yaml:"commands"`
	Capture       CaptureConfig              `yaml:"capture"`
	Monitoring    MonitoringConfig           `yaml:"monitoring"`
	HTTP          HTTPConfig                 `yaml:"http"`
	Log           LogConfig                  `yaml:"log"`
}

// TelegramConfig holds Bot API settings.
type TelegramConfig struct {
	Token       string        `yaml:"token"`
	APIURL      string        `yaml:"api_url"`
	PollTimeout time.Duration `yaml:"poll_timeout"`
}

// DiscordConfig holds Discord bot settings.
type DiscordConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// SlackConfig holds Slack Socket Mode settings.
type SlackConfig struct {
	AppToken  string `yaml:"app_token"`
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// StateConfig controls conversation state eviction.
type StateConfig struct {
	Inactivity    time.Duration `yaml:"inactivity"`
	EvictInterval time.Duration `yaml:"evict_interval"`
}

// FilesConfig confines file access and names the agent's own directories.
type FilesConfig struct {
	AllowedRoots []string `yaml:"allowed_roots"`
	DownloadDir  string   `yaml:"download_dir"`
	RecentDir    string   `yaml:"recent_dir"`
	HostsPath    string   `yaml:"hosts_path"`
	SendLimitMB  int64    `yaml:"send_limit_mb"`
}

// SendLimit returns the transport file limit in bytes.
func (f FilesConfig) SendLimit() int64 { return f.SendLimitMB * 1024 * 1024 }

// StorageConfig selects the database backing history, tasks and the action
// log.
type StorageConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"` // sqlite file
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// ExecConfig bounds external processes.
type ExecConfig struct {
	Timeout         time.Duration `yaml:"timeout"`
	OutputCapKB     int           `yaml:"output_cap_kb"`
	Shell           []string      `yaml:"shell"`
	AllowedCommands []string      `yaml:"allowed_commands"`
}

// CaptureConfig configures ffmpeg capture.
type CaptureConfig struct {
	FFmpeg       string          `yaml:"ffmpeg"`
	OutputDir    string          `yaml:"output_dir"`
	WebcamDevice string          `yaml:"webcam_device"`
	Codecs       []actions.Codec `yaml:"codecs"`
}

// MonitoringConfig configures the background monitors and samplers.
type MonitoringConfig struct {
	DeviceDir        string                   `yaml:"device_dir"`
	PingHost         string                   `yaml:"ping_host"`
	BatteryThreshold int                      `yaml:"battery_threshold"`
	CPUThreshold     float64                  `yaml:"cpu_threshold"`
	CPUMinutes       int                      `yaml:"cpu_minutes"`
	Intervals        actions.MonitorIntervals `yaml:"intervals"`
	ActivityInterval time.Duration            `yaml:"activity_interval"`
	SampleInterval   time.Duration            `yaml:"sample_interval"`
}

// HTTPConfig configures the status listener. Empty Listen disables it.
type HTTPConfig struct {
	Listen string `yaml:"listen"`
}

// LogConfig configures the log sink.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads a YAML config file from path and returns a validated Config.
// A .env file next to it is loaded first; variables already set in the
// environment win.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := LoadEnvFile(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}
	return Parse(data)
}

// LoadEnvFile loads KEY=VALUE pairs into the environment. A missing file is
// not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: env file %s: %w", path, err)
	}
	return nil
}

// Parse unmarshals YAML bytes into a validated Config, applying environment
// overrides.
func Parse(data []byte) (*Config, error) {
	return parse(data, os.LookupEnv)
}

func parse(data []byte, lookup func(string) (string, bool)) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyEnv(lookup)
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv lets secrets live outside the YAML file.
func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(&c.Platform, "PCR_PLATFORM")
	set(&c.AllowedUserID, "ALLOWED_USER_ID")
	set(&c.Telegram.Token, "TELEGRAM_TOKEN")
	set(&c.Discord.BotToken, "DISCORD_BOT_TOKEN")
	set(&c.Slack.AppToken, "SLACK_APP_TOKEN")
	set(&c.Slack.BotToken, "SLACK_BOT_TOKEN")
	set(&c.Log.Level, "PCR_LOG_LEVEL")
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	c.Platform = strings.ToLower(strings.TrimSpace(c.Platform))
	if c.Platform == "" {
		c.Platform = PlatformTelegram
	}
	if c.Telegram.APIURL == "" {
		c.Telegram.APIURL = "https://api.telegram.org"
	}
	if c.Telegram.PollTimeout == 0 {
		c.Telegram.PollTimeout = 30 * time.Second
	}
	if c.State.Inactivity == 0 {
		c.State.Inactivity = 24 * time.Hour
	}
	if c.State.EvictInterval == 0 {
		c.State.EvictInterval = time.Hour
	}

	home, _ := os.UserHomeDir()
	if c.Files.DownloadDir == "" {
		c.Files.DownloadDir = filepath.Join(home, "Downloads", "pcremote")
	}
	if len(c.Files.AllowedRoots) == 0 {
		if home != "" {
			c.Files.AllowedRoots = append(c.Files.AllowedRoots, home)
		}
		c.Files.AllowedRoots = append(c.Files.AllowedRoots, filebrowser.VolumeRoots()...)
		c.Files.AllowedRoots = append(c.Files.AllowedRoots, c.Files.DownloadDir)
	}
	if c.Files.HostsPath == "" {
		c.Files.HostsPath = actions.DefaultHostsPath()
	}
	if c.Files.SendLimitMB == 0 {
		c.Files.SendLimitMB = 50
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverSQLite
	}
	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.Path == "" {
			c.Storage.Path = "pcremote.db"
		}
	case DriverMySQL:
		if c.Storage.Host == "" {
			c.Storage.Host = "127.0.0.1"
		}
		if c.Storage.Port == 0 {
			c.Storage.Port = 3306
		}
	case DriverPostgres:
		if c.Storage.Host == "" {
			c.Storage.Host = "127.0.0.1"
		}
		if c.Storage.Port == 0 {
			c.Storage.Port = 5432
		}
		if c.Storage.SSLMode == "" {
			c.Storage.SSLMode = "disable"
		}
	}
	if c.Storage.Database == "" && c.Storage.Driver != DriverSQLite {
		c.Storage.Database = "pcremote"
	}

	if c.Exec.Timeout == 0 {
		c.Exec.Timeout = actions.DefaultTimeout
	}
	if c.Exec.OutputCapKB == 0 {
		c.Exec.OutputCapKB = actions.DefaultOutputCap / 1024
	}
	if len(c.Exec.AllowedCommands) == 0 {
		c.Exec.AllowedCommands = actions.DefaultAllowedCommands()
	}

	if c.Capture.FFmpeg == "" {
		c.Capture.FFmpeg = "ffmpeg"
	}
	if c.Capture.OutputDir == "" {
		c.Capture.OutputDir = filepath.Join(os.TempDir(), "pcremote")
	}
	if len(c.Capture.Codecs) == 0 {
		c.Capture.Codecs = actions.DefaultCodecs()
	}

	if c.Monitoring.DeviceDir == "" {
		c.Monitoring.DeviceDir = actions.DefaultDeviceDir()
	}
	if c.Monitoring.PingHost == "" {
		c.Monitoring.PingHost = actions.DefaultPingHost
	}
	if c.Monitoring.BatteryThreshold == 0 {
		c.Monitoring.BatteryThreshold = actions.DefaultBatteryThreshold
	}
	if c.Monitoring.CPUThreshold == 0 {
		c.Monitoring.CPUThreshold = actions.DefaultCPUThreshold
	}
	if c.Monitoring.CPUMinutes == 0 {
		c.Monitoring.CPUMinutes = actions.DefaultCPUMinutes
	}
	if c.Monitoring.ActivityInterval == 0 {
		c.Monitoring.ActivityInterval = actions.ActivityInterval
	}
	if c.Monitoring.SampleInterval == 0 {
		c.Monitoring.SampleInterval = actions.DefaultSampleInterval
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// validate collects every problem so one run reports them all.
func (c *Config) validate() error {
	var errs *multierror.Error
	add := func(format string, args ...any) {
		errs = multierror.Append(errs, fmt.Errorf(format, args...))
	}

	if c.AllowedUserID == "" {
		add("allowed_user_id is required")
	}
	switch c.Platform {
	case PlatformTelegram:
		if c.Telegram.Token == "" {
			add("telegram.token is required")
		}
		if c.AllowedUserID != "" {
			if _, err := strconv.ParseInt(c.AllowedUserID, 10, 64); err != nil {
				add("allowed_user_id must be a number for telegram")
			}
		}
	case PlatformDiscord:
		if c.Discord.BotToken == "" {
			add("discord.bot_token is required")
		}
		if c.Discord.ChannelID == "" {
			add("discord.channel_id is required")
		}
	case PlatformSlack:
		if c.Slack.AppToken == "" {
			add("slack.app_token is required")
		}
		if c.Slack.BotToken == "" {
			add("slack.bot_token is required")
		}
		if c.Slack.ChannelID == "" {
			add("slack.channel_id is required")
		}
	default:
		add("platform %q is not supported (telegram, discord, slack)", c.Platform)
	}

	switch c.Storage.Driver {
	case DriverSQLite:
	case DriverMySQL, DriverPostgres:
		if c.Storage.User == "" {
			add("storage.user is required for %s", c.Storage.Driver)
		}
	default:
		add("storage.driver %q is not supported (sqlite, mysql, postgres)", c.Storage.Driver)
	}

	if c.State.Inactivity < 0 || c.State.EvictInterval < 0 {
		add("state durations must not be negative")
	}
	if c.Files.SendLimitMB < 0 {
		add("files.send_limit_mb must not be negative")
	}
	for i, codec := range c.Capture.Codecs {
		if codec.Name == "" {
			add("capture.codecs[%d].name is required", i)
		}
		if len(codec.Args) == 0 {
			add("capture.codecs[%d].args is required", i)
		}
	}
	if c.Monitoring.BatteryThreshold < 0 || c.Monitoring.BatteryThreshold > 100 {
		add("monitoring.battery_threshold must be between 0 and 100")
	}
	if c.Monitoring.CPUThreshold < 0 || c.Monitoring.CPUThreshold > 100 {
		add("monitoring.cpu_threshold must be between 0 and 100")
	}

	if err := errs.ErrorOrNil(); err != nil {
		return fmt.Errorf("config: validation failed: %w", err)
	}
	return nil
}

// Settings renders the operator-facing settings summary. Secrets are only
// reported as set or unset.
func (c *Config) Settings() string {
	defined := func(s string) string {
		if s != "" {
			return "Tanımlı"
		}
		return "Tanımsız"
	}
	var sb strings.Builder
	sb.WriteString("*PC Remote Ayarları*\n\n")
	fmt.Fprintf(&sb, "*Platform:* %s\n", c.Platform)
	switch c.Platform {
	case PlatformTelegram:
		fmt.Fprintf(&sb, "• Bot Token: %s\n", defined(c.Telegram.Token))
	case PlatformDiscord:
		fmt.Fprintf(&sb, "• Bot Token: %s\n", defined(c.Discord.BotToken))
	case PlatformSlack:
		fmt.Fprintf(&sb, "• Bot Token: %s\n", defined(c.Slack.BotToken))
	}
	fmt.Fprintf(&sb, "• Yetkili Kullanıcı: %s\n\n", c.AllowedUserID)
	sb.WriteString("*Dosyalar:*\n")
	fmt.Fprintf(&sb, "• İndirme Klasörü: `%s`\n", c.Files.DownloadDir)
	fmt.Fprintf(&sb, "• İzinli Kök Sayısı: %d\n", len(c.Files.AllowedRoots))
	fmt.Fprintf(&sb, "• Gönderim Limiti: %d MB\n\n", c.Files.SendLimitMB)
	sb.WriteString("*Sistem:*\n")
	fmt.Fprintf(&sb, "• Veritabanı: %s\n", c.Storage.Driver)
	fmt.Fprintf(&sb, "• Komut Zaman Aşımı: %s\n", c.Exec.Timeout)
	fmt.Fprintf(&sb, "• LOG_LEVEL: %s\n", c.Log.Level)
	return sb.String()
}

// Starter returns a commented starter file for `pcr init`.
func Starter(platform, token, userID string) []byte {
	var sb strings.Builder
	sb.WriteString("# pcremote configuration. Secrets may also come from .env or the environment.\n")
	fmt.Fprintf(&sb, "platform: %s\n", platform)
	fmt.Fprintf(&sb, "allowed_user_id: %q\n\n", userID)
	switch platform {
	case PlatformDiscord:
		fmt.Fprintf(&sb, "discord:\n  bot_token: %q\n  channel_id: \"\"\n\n", token)
	case PlatformSlack:
		fmt.Fprintf(&sb, "slack:\n  app_token: \"\"\n  bot_token: %q\n  channel_id: \"\"\n\n", token)
	default:
		fmt.Fprintf(&sb, "telegram:\n  token: %q\n\n", token)
	}
	sb.WriteString("storage:\n  driver: sqlite\n  path: pcremote.db\n\n")
	sb.WriteString("files:\n  send_limit_mb: 50\n\n")
	sb.WriteString("http:\n  listen: \"127.0.0.1:8765\"\n\n")
	sb.WriteString("log:\n  level: info\n")
	return []byte(sb.String())
}
