package actions

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"
	"time"
)

// ErrCommandBlocked is matched by errors returned from Programs.Check.
var ErrCommandBlocked = errors.New("command blocked")

// BlockedError carries the operator-facing reason a command was refused.
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string        { return "actions: " + ErrCommandBlocked.Error() + ": " + e.Reason }
func (e *BlockedError) Is(target error) bool { return target == ErrCommandBlocked }

// CommandTimeout bounds operator commands.
const CommandTimeout = 30 * time.Second

const dangerousChars = ";&|`$(){}[]<>"

var dangerousParams = []string{"/c", "-c", "/k", "del", "rm", "format", "rmdir", "rd"}

// DefaultAllowedCommands returns the read-only command verbs for this
// platform.
func DefaultAllowedCommands() []string {
	if runtime.GOOS == "windows" {
		return []string{
			"ipconfig", "whoami", "systeminfo", "tasklist", "hostname", "ver", "date", "time",
			"netstat", "route", "arp", "getmac", "set", "path", "wmic", "powershell",
		}
	}
	return []string{
		"ip", "ifconfig", "whoami", "uname", "uptime", "hostname", "date", "df", "free",
		"ps", "netstat", "ss", "arp", "route", "env", "id", "lsblk", "lsusb", "sw_vers",
	}
}

// Programs runs operator commands behind a verb allowlist and launches or
// kills programs.
type Programs struct {
	runner  Runner
	inv     *Invoker
	allowed []string
}

// NewPrograms creates a Programs. An empty allowlist uses the platform
// default.
func NewPrograms(runner Runner, inv *Invoker, allowed []string) (*Programs, error) {
	if runner == nil {
		return nil, fmt.Errorf("actions: programs: runner is required")
	}
	if inv == nil {
		return nil, fmt.Errorf("actions: programs: invoker is required")
	}
	if len(allowed) == 0 {
		allowed = DefaultAllowedCommands()
	}
	norm := make([]string, 0, len(allowed))
	for _, a := range allowed {
		norm = append(norm, strings.ToLower(strings.TrimSpace(a)))
	}
	return &Programs{runner: runner, inv: inv, allowed: norm}, nil
}

// Allowed returns the command allowlist.
func (p *Programs) Allowed() []string { return slices.Clone(p.allowed) }

// Check validates an operator command line. Parameters are compared as
// whole words.
func (p *Programs) Check(command string) error {
	cmd := strings.ToLower(strings.TrimSpace(command))
	if len([]rune(cmd)) < 2 {
		return &BlockedError{Reason: "Geçersiz komut."}
	}
	if strings.ContainsAny(cmd, dangerousChars) {
		return &BlockedError{Reason: "Güvenlik nedeniyle bu komut engellenmiştir. Tehlikeli karakterler içeriyor."}
	}
	fields := strings.Fields(cmd)
	if !slices.Contains(p.allowed, fields[0]) {
		return &BlockedError{Reason: "Bu komut güvenlik nedeniyle engellendi.\n\nİzin verilen komutlar:\n" + strings.Join(p.allowed, ", ")}
	}
	for _, f := range fields[1:] {
		if slices.Contains(dangerousParams, f) {
			return &BlockedError{Reason: "Güvenlik nedeniyle bu parametreler engellenmiştir."}
		}
	}
	return nil
}

// RunCommand validates and runs command, returning its formatted output.
func (p *Programs) RunCommand(ctx context.Context, command string) (string, error) {
	if err := p.Check(command); err != nil {
		var be *BlockedError
		if errors.As(err, &be) {
			return be.Reason, nil
		}
		return "", err
	}

	res, err := p.runner.Shell(ctx, strings.TrimSpace(command), CommandTimeout)
	if err != nil && res.Stdout == "" && res.Stderr == "" {
		return "Komut başarısız:\n```\n" + err.Error() + "\n```", nil
	}
	var sb strings.Builder
	sb.WriteString("*Komut Çıktısı:*\n\n")
	if res.Stdout != "" {
		fmt.Fprintf(&sb, "```\n%s\n```", Truncate(res.Stdout, 3000, ""))
	}
	if res.Stderr != "" {
		fmt.Fprintf(&sb, "\n*Hatalar:*\n```\n%s\n```", Truncate(res.Stderr, 1000, ""))
	}
	if res.Stdout == "" && res.Stderr == "" {
		sb.WriteString("Komut çıktı üretmedi.")
	}
	return sb.String(), nil
}

// checkName rejects program names that would break out of the command
// line.
func checkName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, dangerousChars+"\"'\n") {
		return &BlockedError{Reason: "Geçersiz program adı."}
	}
	return nil
}

// Launch starts a program detached.
func (p *Programs) Launch(ctx context.Context, name string) (string, error) {
	if err := checkName(name); err != nil {
		return "Program başlatılamadı: Geçersiz program adı.", nil
	}
	return p.inv.Invoke(ctx, CmdLaunch, Args{"name": strings.TrimSpace(name)})
}

// Kill terminates processes by name.
func (p *Programs) Kill(ctx context.Context, name string) (string, error) {
	if err := checkName(name); err != nil {
		return "Program sonlandırılamadı: Geçersiz program adı.", nil
	}
	return p.inv.Invoke(ctx, CmdKill, Args{"name": strings.TrimSpace(name)})
}
