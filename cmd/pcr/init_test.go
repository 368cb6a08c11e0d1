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

// stubTerminal makes readToken take the no-echo path with the given result.
func stubTerminal(t *testing.T, secret string, err error) {
	t.Helper()
	origTerm, origSecret := isTerminal, readSecret
	isTerminal = func(int) bool { return true }
	readSecret = func(int) ([]byte, error) { return []byte(secret), err }
	t.Cleanup(func() { isTerminal, readSecret = origTerm, origSecret })
}

func stubPipe(t *testing.T) {
	t.Helper()
	orig := isTerminal
	isTerminal = func(int) bool { return false }
	t.Cleanup(func() { isTerminal = orig })
}

func runInitCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"init"}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

// --- init command tests ---

func TestInit_FromPipe(t *testing.T) {
	clearEnv(t)
	stubPipe(t)
	path := filepath.Join(t.TempDir(), config.DefaultFile)

	out, err := runInitCmd(t, "42\n123456:secret\n", "--config", path)
	if err != nil {
		t.Fatalf("init: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Wrote "+path) {
		t.Errorf("output = %q", out)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("written config does not load: %v", err)
	}
	if cfg.Platform != config.PlatformTelegram || cfg.AllowedUserID != "42" || cfg.Telegram.Token != "123456:secret" {
		t.Errorf("cfg = platform %q user %q token %q", cfg.Platform, cfg.AllowedUserID, cfg.Telegram.Token)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		t.Errorf("config mode = %v, want owner-only", perm)
	}
}

func TestInit_TerminalToken(t *testing.T) {
	clearEnv(t)
	stubTerminal(t, "  987:xyz  ", nil)
	path := filepath.Join(t.TempDir(), config.DefaultFile)

	if out, err := runInitCmd(t, "", "--config", path, "--user", "7"); err != nil {
		t.Fatalf("init: %v\n%s", err, out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `token: "987:xyz"`) {
		t.Errorf("config = %s", data)
	}
}

func TestInit_TerminalError(t *testing.T) {
	stubTerminal(t, "", errors.New("no tty"))
	path := filepath.Join(t.TempDir(), config.DefaultFile)

	_, err := runInitCmd(t, "", "--config", path, "--user", "7")
	if err == nil || !strings.Contains(err.Error(), "read token") {
		t.Errorf("err = %v", err)
	}
	if _, statErr := os.Stat(path); statErr == nil {
		t.Error("config written despite token error")
	}
}

func TestInit_SlackHint(t *testing.T) {
	stubPipe(t)
	path := filepath.Join(t.TempDir(), config.DefaultFile)

	out, err := runInitCmd(t, "xoxb-1\n", "--config", path, "--platform", "Slack", "--user", "U1")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if !strings.Contains(out, "slack.app_token") {
		t.Errorf("expected slack follow-up hint, got %q", out)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "platform: slack") {
		t.Errorf("config = %s", data)
	}
}

func TestInit_Errors(t *testing.T) {
	tests := []struct {
		name   string
		stdin  string
		args   []string
		exists bool
		want   string
	}{
		{"bad platform", "", []string{"--platform", "irc"}, false, "unsupported platform"},
		{"existing file", "", []string{"--user", "1"}, true, "already exists"},
		{"empty user", "\n", nil, false, "user id is required"},
		{"empty token", "\n", []string{"--user", "1"}, false, "bot token is required"},
		{"no input", "", nil, false, "read user id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubPipe(t)
			path := filepath.Join(t.TempDir(), config.DefaultFile)
			if tt.exists {
				if err := os.WriteFile(path, []byte("keep"), 0o600); err != nil {
					t.Fatal(err)
				}
			}
			_, err := runInitCmd(t, tt.stdin, append([]string{"--config", path}, tt.args...)...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want to contain %q", err.Error(), tt.want)
			}
			if tt.exists {
				data, _ := os.ReadFile(path)
				if string(data) != "keep" {
					t.Error("existing config was overwritten")
				}
			}
		})
	}
}

func TestInit_Force(t *testing.T) {
	stubPipe(t)
	path := filepath.Join(t.TempDir(), config.DefaultFile)
	if err := os.WriteFile(path, []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := runInitCmd(t, "123:abc\n", "--config", path, "--user", "5", "--force"); err != nil {
		t.Fatalf("init --force: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `allowed_user_id: "5"`) {
		t.Errorf("config = %s", data)
	}
}
