package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/zulandar/pcremote/internal/config"
	"github.com/zulandar/pcremote/internal/db"
)

func newDoctorCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check system prerequisites and configuration",
		Long:  "Runs diagnostic checks on PC Remote prerequisites: config, bot token, storage, helper binaries and allowed roots.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultFile, "path to PC Remote config file")
	return cmd
}

const (
	statusPass = "PASS"
	statusFail = "FAIL"
	statusWarn = "WARN"
)

type checkResult struct {
	name   string
	status string // statusPass, statusFail, statusWarn
	detail string
}

// lookPath resolves helper binaries. Tests swap it out.
var lookPath = exec.LookPath

func runDoctor(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "PC Remote Doctor")
	fmt.Fprintln(out, "================")

	var results []checkResult

	cfg, cfgResult := checkConfig(configPath)
	results = append(results, cfgResult)

	if cfg != nil {
		results = append(results, checkToken(cfg))
		results = append(results, checkStorage(cfg.Storage))
	} else {
		results = append(results,
			checkResult{"Bot token", statusFail, "skipped (no config)"},
			checkResult{"Storage", statusFail, "skipped (no config)"},
		)
	}

	ffmpeg := "ffmpeg"
	if cfg != nil {
		ffmpeg = cfg.Capture.FFmpeg
	}
	results = append(results, checkBinary(ffmpeg, "screenshots, webcam and recordings"))
	for _, bin := range helperBinaries(runtime.GOOS) {
		results = append(results, checkBinary(bin.name, bin.purpose))
	}

	if cfg != nil {
		results = append(results, checkRoots(cfg.Files.AllowedRoots)...)
		results = append(results, checkDownloadDir(cfg.Files.DownloadDir))
		results = append(results, checkStatusAPI(cfg.HTTP.Listen))
	}

	renderResults(out, results)

	passed, failed, warned := 0, 0, 0
	for _, r := range results {
		switch r.status {
		case statusPass:
			passed++
		case statusFail:
			failed++
		case statusWarn:
			warned++
		}
	}
	fmt.Fprintf(out, "\n%d passed, %d failed, %d warning\n", passed, failed, warned)

	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}

func renderResults(out io.Writer, results []checkResult) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Check", "Status", "Detail"})
	for _, r := range results {
		t.AppendRow(table.Row{r.name, colorStatus(r.status), r.detail})
	}
	t.Render()
}

var statusColors = map[string]*color.Color{
	statusPass: color.New(color.FgGreen),
	statusFail: color.New(color.FgRed, color.Bold),
	statusWarn: color.New(color.FgYellow),
}

func colorStatus(status string) string {
	if c, ok := statusColors[status]; ok {
		return c.Sprint(status)
	}
	return status
}

func checkConfig(path string) (*config.Config, checkResult) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, checkResult{"Config file", statusFail, fmt.Sprintf("%s: %v", path, err)}
	}
	return cfg, checkResult{"Config file", statusPass, fmt.Sprintf("%s (%s)", path, cfg.Platform)}
}

// checkToken looks for the prefixes each platform issues. A mismatch is a
// warning since the platform is the final judge.
func checkToken(cfg *config.Config) checkResult {
	const name = "Bot token"
	switch cfg.Platform {
	case config.PlatformTelegram:
		id, _, ok := strings.Cut(cfg.Telegram.Token, ":")
		if !ok || id == "" {
			return checkResult{name, statusWarn, "telegram token should look like <bot id>:<secret>"}
		}
		return checkResult{name, statusPass, "telegram bot " + id}
	case config.PlatformSlack:
		if !strings.HasPrefix(cfg.Slack.BotToken, "xoxb-") {
			return checkResult{name, statusWarn, "slack bot token should start with xoxb-"}
		}
		if !strings.HasPrefix(cfg.Slack.AppToken, "xapp-") {
			return checkResult{name, statusWarn, "slack app token should start with xapp- (Socket Mode)"}
		}
		return checkResult{name, statusPass, "slack bot and app tokens set"}
	case config.PlatformDiscord:
		if strings.Count(cfg.Discord.BotToken, ".") != 2 {
			return checkResult{name, statusWarn, "discord token should have three dot-separated parts"}
		}
		return checkResult{name, statusPass, "discord bot token set"}
	}
	return checkResult{name, statusFail, fmt.Sprintf("unknown platform %q", cfg.Platform)}
}

func checkStorage(cfg config.StorageConfig) checkResult {
	gormDB, err := db.Connect(cfg)
	if err != nil {
		return checkResult{"Storage", statusFail, err.Error()}
	}
	defer db.Close(gormDB)
	sqlDB, err := gormDB.DB()
	if err != nil {
		return checkResult{"Storage", statusFail, fmt.Sprintf("get sql.DB: %v", err)}
	}
	if err := sqlDB.Ping(); err != nil {
		return checkResult{"Storage", statusFail, fmt.Sprintf("%s ping failed: %v", cfg.Driver, err)}
	}
	detail := cfg.Driver
	if cfg.Driver == config.DriverSQLite {
		detail += " " + cfg.Path
	} else {
		detail += fmt.Sprintf(" %s:%d/%s", cfg.Host, cfg.Port, cfg.Database)
	}
	return checkResult{"Storage", statusPass, detail}
}

type helperBinary struct {
	name    string
	purpose string
}

// helperBinaries lists the tools the default command table shells out to.
func helperBinaries(goos string) []helperBinary {
	switch goos {
	case "linux":
		return []helperBinary{
			{"xdotool", "keyboard, mouse and idle time"},
			{"pactl", "volume control"},
			{"playerctl", "media keys"},
			{"notify-send", "desktop notifications"},
			{"loginctl", "session lock"},
		}
	case "darwin":
		return []helperBinary{
			{"osascript", "keyboard, volume and notifications"},
			{"pmset", "sleep and battery"},
		}
	case "windows":
		return []helperBinary{
			{"powershell", "system commands"},
		}
	}
	return nil
}

// checkBinary reports a missing helper as a warning: only the features that
// need it stop working.
func checkBinary(name, purpose string) checkResult {
	path, err := lookPath(name)
	if err != nil {
		return checkResult{name, statusWarn, fmt.Sprintf("not found in PATH (needed for %s)", purpose)}
	}
	return checkResult{name, statusPass, path}
}

func checkRoots(roots []string) []checkResult {
	if len(roots) == 0 {
		return []checkResult{{"Allowed roots", statusFail, "none configured"}}
	}
	var results []checkResult
	for _, root := range roots {
		info, err := os.Stat(root)
		switch {
		case err != nil:
			results = append(results, checkResult{"Allowed root", statusWarn, fmt.Sprintf("%s: %v", root, err)})
		case !info.IsDir():
			results = append(results, checkResult{"Allowed root", statusWarn, root + " is not a directory"})
		default:
			results = append(results, checkResult{"Allowed root", statusPass, root})
		}
	}
	return results
}

func checkDownloadDir(dir string) checkResult {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return checkResult{"Download dir", statusWarn, dir + " will be created on first upload"}
		}
		return checkResult{"Download dir", statusFail, fmt.Sprintf("%s: %v", dir, err)}
	}
	if !info.IsDir() {
		return checkResult{"Download dir", statusFail, dir + " is not a directory"}
	}
	return checkResult{"Download dir", statusPass, dir}
}

func checkStatusAPI(listen string) checkResult {
	if listen == "" {
		return checkResult{"Status API", statusWarn, "disabled (set http.listen to enable `pcr status`)"}
	}
	return checkResult{"Status API", statusPass, "http://" + listen}
}
