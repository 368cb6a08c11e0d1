package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/zulandar/pcremote/internal/actions"
	"github.com/zulandar/pcremote/internal/config"
	"github.com/zulandar/pcremote/internal/db"
	"github.com/zulandar/pcremote/internal/filebrowser"
	"github.com/zulandar/pcremote/internal/logger"
	"github.com/zulandar/pcremote/internal/models"
	"github.com/zulandar/pcremote/internal/state"
	"github.com/zulandar/pcremote/internal/statusapi"
	"github.com/zulandar/pcremote/internal/telegraph"
	discordadapter "github.com/zulandar/pcremote/internal/telegraph/discord"
	slackadapter "github.com/zulandar/pcremote/internal/telegraph/slack"
	telegramadapter "github.com/zulandar/pcremote/internal/telegraph/telegram"
)

func newStartCmd() *cobra.Command {
	var configPath, logLevel string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the PC Remote agent",
		Long:  "Connects to the configured chat platform and serves the authorized operator until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd, configPath, logLevel)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultFile, "path to PC Remote config file")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	return cmd
}

func runStart(cmd *cobra.Command, configPath, logLevel string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if logLevel == "" {
		logLevel = cfg.Log.Level
	}
	if err := logger.Configure(logLevel, cfg.Log.File); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}

	gormDB, err := db.Open(cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close(gormDB)

	// Monitors and the scheduler report through the daemon, which is built
	// after them; nothing fires before Run starts.
	var daemon *telegraph.Daemon
	svc, err := buildServices(cfg, gormDB,
		func(text string) { daemon.Notify(text) },
		func(task models.AutomationTask, output string) { daemon.TaskRan(task, output) },
	)
	if err != nil {
		return err
	}

	adapter, err := createAdapter(cfg)
	if err != nil {
		return err
	}

	store := state.NewStore()
	reg := newRegistry()

	var httpRunner telegraph.Runner
	if cfg.HTTP.Listen != "" {
		srv, err := statusapi.NewServer(statusapi.ServerOpts{
			Listen:   cfg.HTTP.Listen,
			Store:    store,
			Tasks:    svc.Automation,
			Actions:  telegraph.NewActionRecorder(gormDB),
			Samples:  svc.Sampler,
			Gatherer: reg,
			Version:  Version,
			Out:      cmd.OutOrStdout(),
		})
		if err != nil {
			return err
		}
		httpRunner = srv
	}

	daemon, err = telegraph.NewDaemon(telegraph.DaemonOpts{
		DB:         gormDB,
		Config:     cfg,
		Adapter:    adapter,
		Services:   svc,
		Store:      store,
		Registerer: reg,
		HTTP:       httpRunner,
		Version:    Version,
		Out:        cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle OS signals for graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return daemon.Run(ctx)
}

// newRegistry returns a registry carrying the Go runtime and process
// collectors; the daemon adds its own metrics on top.
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// buildServices wires every action service from the config.
func buildServices(cfg *config.Config, gormDB *gorm.DB, alert actions.AlertFunc, onRun actions.TaskRunFunc) (telegraph.Services, error) {
	var svc telegraph.Services

	runner := &actions.ExecRunner{
		Timeout:   cfg.Exec.Timeout,
		OutputCap: cfg.Exec.OutputCapKB * 1024,
		ShellArgv: cfg.Exec.Shell,
	}
	inv, err := actions.NewInvoker(runner, cfg.Commands)
	if err != nil {
		return svc, fmt.Errorf("build command table: %w", err)
	}

	if svc.Controls, err = actions.NewControls(inv); err != nil {
		return svc, err
	}
	if svc.System, err = actions.NewSystem(inv, cfg.Capture.OutputDir); err != nil {
		return svc, err
	}
	svc.Sampler = actions.NewSampler(cfg.Monitoring.SampleInterval)
	if svc.Programs, err = actions.NewPrograms(runner, inv, cfg.Exec.AllowedCommands); err != nil {
		return svc, err
	}
	if svc.Clipboard, err = actions.NewClipboard(&actions.SystemClipboard{}, gormDB); err != nil {
		return svc, err
	}
	if svc.Sites, err = actions.NewSites(cfg.Files.HostsPath, inv); err != nil {
		return svc, err
	}
	if svc.Capture, err = actions.NewCapture(actions.CaptureOpts{
		Runner:       runner,
		FFmpeg:       cfg.Capture.FFmpeg,
		OutputDir:    cfg.Capture.OutputDir,
		WebcamDevice: cfg.Capture.WebcamDevice,
		Codecs:       cfg.Capture.Codecs,
		SendLimit:    cfg.Files.SendLimit(),
	}); err != nil {
		return svc, err
	}
	if svc.Automation, err = actions.NewAutomation(gormDB, svc.Programs, onRun); err != nil {
		return svc, err
	}
	if svc.Monitoring, err = actions.NewMonitoring(actions.MonitoringOpts{
		Invoker:          inv,
		Alert:            alert,
		DeviceDir:        cfg.Monitoring.DeviceDir,
		PingHost:         cfg.Monitoring.PingHost,
		BatteryThreshold: cfg.Monitoring.BatteryThreshold,
		CPUThreshold:     cfg.Monitoring.CPUThreshold,
		CPUMinutes:       cfg.Monitoring.CPUMinutes,
		Intervals:        cfg.Monitoring.Intervals,
	}); err != nil {
		return svc, err
	}
	if svc.Activity, err = actions.NewActivity(inv, cfg.Monitoring.ActivityInterval); err != nil {
		return svc, err
	}

	validator, err := filebrowser.NewRootValidator(cfg.Files.AllowedRoots)
	if err != nil {
		return svc, fmt.Errorf("allowed roots: %w", err)
	}
	if svc.Browser, err = filebrowser.NewBrowser(filebrowser.BrowserOpts{
		Validator: validator,
		RecentDir: cfg.Files.RecentDir,
		SendLimit: cfg.Files.SendLimit(),
	}); err != nil {
		return svc, err
	}
	return svc, nil
}

// createAdapter builds a platform adapter from the config.
func createAdapter(cfg *config.Config) (telegraph.Adapter, error) {
	switch cfg.Platform {
	case config.PlatformTelegram:
		// The operator's private chat id equals their user id.
		return telegramadapter.New(telegramadapter.AdapterOpts{
			Token:       cfg.Telegram.Token,
			APIURL:      cfg.Telegram.APIURL,
			ChatID:      cfg.AllowedUserID,
			PollTimeout: cfg.Telegram.PollTimeout,
		})
	case config.PlatformDiscord:
		return discordadapter.New(discordadapter.AdapterOpts{
			BotToken:  cfg.Discord.BotToken,
			ChannelID: cfg.Discord.ChannelID,
		})
	case config.PlatformSlack:
		return slackadapter.New(slackadapter.AdapterOpts{
			AppToken:  cfg.Slack.AppToken,
			BotToken:  cfg.Slack.BotToken,
			ChannelID: cfg.Slack.ChannelID,
		})
	default:
		return nil, fmt.Errorf("unsupported platform %q", cfg.Platform)
	}
}
