package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zulandar/pcremote/internal/config"
)

func stubLookPath(t *testing.T, missing ...string) {
	t.Helper()
	orig := lookPath
	lookPath = func(name string) (string, error) {
		for _, m := range missing {
			if m == name {
				return "", errors.New("not found")
			}
		}
		return "/usr/bin/" + name, nil
	}
	t.Cleanup(func() { lookPath = orig })
}

func runDoctorCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append([]string{"doctor"}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

// --- doctor command tests ---

func TestDoctor_AllGood(t *testing.T) {
	stubLookPath(t)
	path, dir := writeConfig(t, "127.0.0.1:8765")
	if err := os.MkdirAll(filepath.Join(dir, "downloads"), 0o755); err != nil {
		t.Fatal(err)
	}

	out, err := runDoctorCmd(t, "--config", path)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	for _, want := range []string{"PC Remote Doctor", "Config file", "telegram bot 123456", "Storage", "sqlite", "ffmpeg", "http://127.0.0.1:8765", "0 failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "secret") {
		t.Error("doctor output leaked the token secret")
	}
}

func TestDoctor_MissingConfig(t *testing.T) {
	stubLookPath(t)
	out, err := runDoctorCmd(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected failure without a config")
	}
	if !strings.Contains(err.Error(), "3 check(s) failed") {
		t.Errorf("err = %v", err)
	}
	if !strings.Contains(out, "skipped (no config)") {
		t.Errorf("output = %s", out)
	}
}

func TestDoctor_MissingBinariesWarn(t *testing.T) {
	stubLookPath(t, "ffmpeg")
	path, _ := writeConfig(t, "")

	out, err := runDoctorCmd(t, "--config", path)
	if err != nil {
		t.Fatalf("missing helpers must not fail doctor: %v", err)
	}
	if !strings.Contains(out, "not found in PATH") {
		t.Errorf("output = %s", out)
	}
	if !strings.Contains(out, "disabled") {
		t.Errorf("expected status API warning, got %s", out)
	}
}

func TestCheckToken(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{"telegram ok", config.Config{Platform: config.PlatformTelegram, Telegram: config.TelegramConfig{Token: "1:x"}}, statusPass},
		{"telegram malformed", config.Config{Platform: config.PlatformTelegram, Telegram: config.TelegramConfig{Token: "nocolon"}}, statusWarn},
		{"slack ok", config.Config{Platform: config.PlatformSlack, Slack: config.SlackConfig{BotToken: "xoxb-1", AppToken: "xapp-1"}}, statusPass},
		{"slack bot prefix", config.Config{Platform: config.PlatformSlack, Slack: config.SlackConfig{BotToken: "xoxp-1", AppToken: "xapp-1"}}, statusWarn},
		{"slack app prefix", config.Config{Platform: config.PlatformSlack, Slack: config.SlackConfig{BotToken: "xoxb-1", AppToken: "x"}}, statusWarn},
		{"discord ok", config.Config{Platform: config.PlatformDiscord, Discord: config.DiscordConfig{BotToken: "a.b.c"}}, statusPass},
		{"discord malformed", config.Config{Platform: config.PlatformDiscord, Discord: config.DiscordConfig{BotToken: "abc"}}, statusWarn},
		{"unknown", config.Config{Platform: "irc"}, statusFail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checkToken(&tt.cfg); got.status != tt.want {
				t.Errorf("status = %s (%s), want %s", got.status, got.detail, tt.want)
			}
		})
	}
}

func TestCheckBinary(t *testing.T) {
	stubLookPath(t, "xdotool")
	if r := checkBinary("pactl", "volume"); r.status != statusPass || r.detail != "/usr/bin/pactl" {
		t.Errorf("found binary = %+v", r)
	}
	r := checkBinary("xdotool", "keyboard")
	if r.status != statusWarn || !strings.Contains(r.detail, "keyboard") {
		t.Errorf("missing binary = %+v", r)
	}
}

func TestHelperBinaries(t *testing.T) {
	for _, goos := range []string{"linux", "darwin", "windows"} {
		if len(helperBinaries(goos)) == 0 {
			t.Errorf("%s: no helper binaries listed", goos)
		}
	}
	if got := helperBinaries("plan9"); got != nil {
		t.Errorf("plan9 = %v, want nil", got)
	}
}

func TestCheckRoots(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(file, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	if r := checkRoots(nil); len(r) != 1 || r[0].status != statusFail {
		t.Errorf("no roots = %+v", r)
	}
	got := checkRoots([]string{dir, file, filepath.Join(dir, "missing")})
	want := []string{statusPass, statusWarn, statusWarn}
	for i, r := range got {
		if r.status != want[i] {
			t.Errorf("root %d = %+v, want %s", i, r, want[i])
		}
	}
}

func TestCheckDownloadDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	if err := os.WriteFile(file, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		path string
		want string
	}{
		{dir, statusPass},
		{filepath.Join(dir, "later"), statusWarn},
		{file, statusFail},
	}
	for _, tt := range tests {
		if r := checkDownloadDir(tt.path); r.status != tt.want {
			t.Errorf("%s = %+v, want %s", tt.path, r, tt.want)
		}
	}
}

func TestColorStatus(t *testing.T) {
	for _, s := range []string{statusPass, statusFail, statusWarn} {
		if !strings.Contains(colorStatus(s), s) {
			t.Errorf("colorStatus(%s) lost the label", s)
		}
	}
	if colorStatus("SKIP") != "SKIP" {
		t.Error("unknown status should pass through")
	}
}
