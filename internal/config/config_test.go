package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const fullYAML = `
platform: telegram
allowed_user_id: "123456789"

telegram:
  token: "123:abc"
  api_url: http://localhost:8081
  poll_timeout: 5s

state:
  inactivity: 2h
  evict_interval: 10m

files:
  allowed_roots: ["/srv/share", "/home/alice"]
  download_dir: /srv/share/incoming
  send_limit_mb: 20

storage:
  driver: mysql
  host: 10.0.0.5
  port: 3307
  database: pcr_alice
  user: pcr

exec:
  timeout: 30s
  allowed_commands: [dir, ls]

commands:
  network.ping:
    run: "ping -c 2 {{.Args.host}}"

capture:
  ffmpeg: /opt/ffmpeg/bin/ffmpeg
  codecs:
    - name: libx264
      framerate: 24
      args: ["-c:v", "libx264", "-preset", "fast"]

monitoring:
  ping_host: 1.1.1.1
  battery_threshold: 15
  intervals:
    usb: 5s

http:
  listen: 127.0.0.1:9000

log:
  level: debug
`

const minimalYAML = `
allowed_user_id: "42"
telegram:
  token: "1:x"
`

func noEnv(string) (string, bool) { return "", false }

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestParse_FullConfig(t *testing.T) {
	cfg, err := parse([]byte(fullYAML), noEnv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Platform != PlatformTelegram {
		t.Errorf("Platform = %q, want %q", cfg.Platform, PlatformTelegram)
	}
	if cfg.AllowedUserID != "123456789" {
		t.Errorf("AllowedUserID = %q, want %q", cfg.AllowedUserID, "123456789")
	}
	if cfg.Telegram.APIURL != "http://localhost:8081" {
		t.Errorf("Telegram.APIURL = %q", cfg.Telegram.APIURL)
	}
	if cfg.Telegram.PollTimeout != 5*time.Second {
		t.Errorf("Telegram.PollTimeout = %v, want 5s", cfg.Telegram.PollTimeout)
	}
	if cfg.State.Inactivity != 2*time.Hour {
		t.Errorf("State.Inactivity = %v, want 2h", cfg.State.Inactivity)
	}
	if len(cfg.Files.AllowedRoots) != 2 {
		t.Fatalf("len(Files.AllowedRoots) = %d, want 2", len(cfg.Files.AllowedRoots))
	}
	if got := cfg.Files.SendLimit(); got != 20*1024*1024 {
		t.Errorf("Files.SendLimit() = %d, want %d", got, 20*1024*1024)
	}
	if cfg.Storage.Driver != DriverMySQL || cfg.Storage.Port != 3307 {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Storage.Database != "pcr_alice" {
		t.Errorf("Storage.Database = %q, want %q", cfg.Storage.Database, "pcr_alice")
	}
	if cfg.Exec.Timeout != 30*time.Second {
		t.Errorf("Exec.Timeout = %v, want 30s", cfg.Exec.Timeout)
	}
	if len(cfg.Exec.AllowedCommands) != 2 {
		t.Errorf("Exec.AllowedCommands = %v", cfg.Exec.AllowedCommands)
	}
	if c, ok := cfg.Commands["network.ping"]; !ok || !strings.Contains(c.Run, "-c 2") {
		t.Errorf("Commands[network.ping] = %+v", c)
	}
	if len(cfg.Capture.Codecs) != 1 || cfg.Capture.Codecs[0].Framerate != 24 {
		t.Errorf("Capture.Codecs = %+v", cfg.Capture.Codecs)
	}
	if cfg.Monitoring.PingHost != "1.1.1.1" {
		t.Errorf("Monitoring.PingHost = %q", cfg.Monitoring.PingHost)
	}
	if cfg.Monitoring.BatteryThreshold != 15 {
		t.Errorf("Monitoring.BatteryThreshold = %d, want 15", cfg.Monitoring.BatteryThreshold)
	}
	if cfg.Monitoring.Intervals.USB != 5*time.Second {
		t.Errorf("Monitoring.Intervals.USB = %v, want 5s", cfg.Monitoring.Intervals.USB)
	}
	if cfg.HTTP.Listen != "127.0.0.1:9000" {
		t.Errorf("HTTP.Listen = %q", cfg.HTTP.Listen)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
}

func TestParse_MinimalConfig_AppliesDefaults(t *testing.T) {
	cfg, err := parse([]byte(minimalYAML), noEnv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Platform != PlatformTelegram {
		t.Errorf("Platform = %q, want default %q", cfg.Platform, PlatformTelegram)
	}
	if cfg.Telegram.APIURL != "https://api.telegram.org" {
		t.Errorf("Telegram.APIURL = %q", cfg.Telegram.APIURL)
	}
	if cfg.Telegram.PollTimeout != 30*time.Second {
		t.Errorf("Telegram.PollTimeout = %v, want 30s", cfg.Telegram.PollTimeout)
	}
	if cfg.State.Inactivity != 24*time.Hour || cfg.State.EvictInterval != time.Hour {
		t.Errorf("State = %+v", cfg.State)
	}
	if cfg.Storage.Driver != DriverSQLite || cfg.Storage.Path != "pcremote.db" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Files.SendLimitMB != 50 {
		t.Errorf("Files.SendLimitMB = %d, want 50", cfg.Files.SendLimitMB)
	}
	if len(cfg.Files.AllowedRoots) == 0 {
		t.Error("Files.AllowedRoots is empty, want defaults")
	}
	if cfg.Files.HostsPath == "" {
		t.Error("Files.HostsPath is empty, want platform default")
	}
	if len(cfg.Exec.AllowedCommands) == 0 {
		t.Error("Exec.AllowedCommands is empty, want defaults")
	}
	if len(cfg.Capture.Codecs) != 5 {
		t.Errorf("len(Capture.Codecs) = %d, want 5", len(cfg.Capture.Codecs))
	}
	if cfg.Monitoring.CPUThreshold != 90 || cfg.Monitoring.CPUMinutes != 5 {
		t.Errorf("Monitoring = %+v", cfg.Monitoring)
	}
	if cfg.HTTP.Listen != "" {
		t.Errorf("HTTP.Listen = %q, want empty", cfg.HTTP.Listen)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
}

func TestParse_PostgresDefaults(t *testing.T) {
	yaml := minimalYAML + `
storage:
  driver: postgres
  user: pcr
`
	cfg, err := parse([]byte(yaml), noEnv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Storage.Port != 5432 {
		t.Errorf("Storage.Port = %d, want 5432", cfg.Storage.Port)
	}
	if cfg.Storage.SSLMode != "disable" {
		t.Errorf("Storage.SSLMode = %q, want disable", cfg.Storage.SSLMode)
	}
	if cfg.Storage.Database != "pcremote" {
		t.Errorf("Storage.Database = %q, want pcremote", cfg.Storage.Database)
	}
}

func TestParse_EnvOverridesYAML(t *testing.T) {
	env := envMap(map[string]string{
		"TELEGRAM_TOKEN":  "from-env",
		"ALLOWED_USER_ID": "777",
		"PCR_LOG_LEVEL":   "warn",
	})
	cfg, err := parse([]byte(minimalYAML), env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Telegram.Token != "from-env" {
		t.Errorf("Telegram.Token = %q, want from-env", cfg.Telegram.Token)
	}
	if cfg.AllowedUserID != "777" {
		t.Errorf("AllowedUserID = %q, want 777", cfg.AllowedUserID)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want warn", cfg.Log.Level)
	}
}

func TestParse_EmptyEnvIgnored(t *testing.T) {
	cfg, err := parse([]byte(minimalYAML), envMap(map[string]string{"TELEGRAM_TOKEN": ""}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Telegram.Token != "1:x" {
		t.Errorf("Telegram.Token = %q, want 1:x", cfg.Telegram.Token)
	}
}

func TestParse_EnvOnly(t *testing.T) {
	env := envMap(map[string]string{"TELEGRAM_TOKEN": "t", "ALLOWED_USER_ID": "1"})
	if _, err := parse([]byte("{}"), env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParse_MissingUserID(t *testing.T) {
	_, err := parse([]byte("telegram:\n  token: t\n"), noEnv)
	if err == nil {
		t.Fatal("expected error for missing allowed_user_id")
	}
	if !strings.Contains(err.Error(), "allowed_user_id is required") {
		t.Errorf("error = %q, want mention of allowed_user_id", err)
	}
}

func TestParse_NonNumericTelegramUser(t *testing.T) {
	_, err := parse([]byte("allowed_user_id: bob\ntelegram:\n  token: t\n"), noEnv)
	if err == nil {
		t.Fatal("expected error for non-numeric user id")
	}
	if !strings.Contains(err.Error(), "must be a number") {
		t.Errorf("error = %q", err)
	}
}

func TestParse_SlackAllowsTextUserID(t *testing.T) {
	yaml := `
platform: Slack
allowed_user_id: U024BE7LH
slack:
  app_token: xapp-1
  bot_token: xoxb-1
  channel_id: C1
`
	cfg, err := parse([]byte(yaml), noEnv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Platform != PlatformSlack {
		t.Errorf("Platform = %q, want slack", cfg.Platform)
	}
}

func TestParse_DiscordMissingChannel(t *testing.T) {
	yaml := `
platform: discord
allowed_user_id: "1"
discord:
  bot_token: abc
`
	_, err := parse([]byte(yaml), noEnv)
	if err == nil {
		t.Fatal("expected error for missing channel")
	}
	if !strings.Contains(err.Error(), "discord.channel_id is required") {
		t.Errorf("error = %q", err)
	}
}

func TestParse_UnknownPlatform(t *testing.T) {
	_, err := parse([]byte("platform: irc\nallowed_user_id: \"1\"\n"), noEnv)
	if err == nil {
		t.Fatal("expected error for unknown platform")
	}
	if !strings.Contains(err.Error(), `platform "irc" is not supported`) {
		t.Errorf("error = %q", err)
	}
}

func TestParse_MultipleValidationErrors(t *testing.T) {
	yaml := `
storage:
  driver: oracle
monitoring:
  battery_threshold: 150
`
	_, err := parse([]byte(yaml), noEnv)
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	for _, want := range []string{
		"allowed_user_id is required",
		"telegram.token is required",
		`storage.driver "oracle"`,
		"battery_threshold must be between 0 and 100",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("error missing %q: %s", want, msg)
		}
	}
}

func TestParse_MySQLRequiresUser(t *testing.T) {
	_, err := parse([]byte(minimalYAML+"storage:\n  driver: mysql\n"), noEnv)
	if err == nil {
		t.Fatal("expected error for mysql without user")
	}
	if !strings.Contains(err.Error(), "storage.user is required for mysql") {
		t.Errorf("error = %q", err)
	}
}

func TestParse_CodecWithoutArgs(t *testing.T) {
	yaml := minimalYAML + `
capture:
  codecs:
    - name: broken
`
	_, err := parse([]byte(yaml), noEnv)
	if err == nil {
		t.Fatal("expected error for codec without args")
	}
	if !strings.Contains(err.Error(), "capture.codecs[0].args is required") {
		t.Errorf("error = %q", err)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := parse([]byte(":::not yaml"), noEnv)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "config: parse") {
		t.Errorf("error = %q, want config: parse prefix", err)
	}
}

func TestLoad_ValidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFile)
	if err := os.WriteFile(path, []byte(fullYAML), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Storage.Host != "10.0.0.5" {
		t.Errorf("Storage.Host = %q, want 10.0.0.5", cfg.Storage.Host)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/pcremote.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "config: read") {
		t.Errorf("error = %q, want config: read prefix", err)
	}
}

func TestLoad_EnvFileBesideConfig(t *testing.T) {
	// Register restoration, then clear so the .env value is picked up.
	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("ALLOWED_USER_ID", "")
	os.Unsetenv("TELEGRAM_TOKEN")
	os.Unsetenv("ALLOWED_USER_ID")

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("TELEGRAM_TOKEN=dotenv-token\nALLOWED_USER_ID=99\n"), 0600); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, DefaultFile)
	if err := os.WriteFile(path, []byte("log:\n  level: info\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Telegram.Token != "dotenv-token" {
		t.Errorf("Telegram.Token = %q, want dotenv-token", cfg.Telegram.Token)
	}
	if cfg.AllowedUserID != "99" {
		t.Errorf("AllowedUserID = %q, want 99", cfg.AllowedUserID)
	}
}

func TestLoadEnvFile_Missing(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Errorf("missing env file should be ignored, got %v", err)
	}
}

func TestSettings_HidesSecrets(t *testing.T) {
	cfg, err := parse([]byte(fullYAML), noEnv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := cfg.Settings()
	if strings.Contains(out, "123:abc") {
		t.Error("Settings leaked the bot token")
	}
	for _, want := range []string{"*PC Remote Ayarları*", "Bot Token: Tanımlı", "Veritabanı: mysql", "20 MB"} {
		if !strings.Contains(out, want) {
			t.Errorf("Settings missing %q:\n%s", want, out)
		}
	}
}

func TestStarter_RoundTrips(t *testing.T) {
	data := Starter(PlatformTelegram, "5:tok", "321")
	cfg, err := parse(data, noEnv)
	if err != nil {
		t.Fatalf("starter config does not parse: %v\n%s", err, data)
	}
	if cfg.Telegram.Token != "5:tok" || cfg.AllowedUserID != "321" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.HTTP.Listen != "127.0.0.1:8765" {
		t.Errorf("HTTP.Listen = %q", cfg.HTTP.Listen)
	}
}
