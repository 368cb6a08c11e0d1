package telegraph

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/zulandar/pcremote/internal/actions"
	"github.com/zulandar/pcremote/internal/config"
	"github.com/zulandar/pcremote/internal/db"
	"github.com/zulandar/pcremote/internal/logger"
	"github.com/zulandar/pcremote/internal/models"
	"github.com/zulandar/pcremote/internal/state"
)

// ActionLogKeep is how many action log rows survive each prune.
const ActionLogKeep = 5000

// Runner is a background component with a blocking Run.
type Runner interface {
	Run(ctx context.Context) error
}

// Daemon is the main pcremote process. It connects to a chat platform via
// an Adapter, routes inbound messages through per-sender queues and pushes
// monitoring alerts to the operator.
type Daemon struct {
	db       *gorm.DB
	cfg      *config.Config
	adapter  Adapter
	svc      Services
	store    *state.Store
	reg      prometheus.Registerer
	http     Runner
	version  string
	out      io.Writer
	metrics  *Metrics
	hostname func() (string, error)
}

// DaemonOpts holds parameters for creating a new Daemon.
type DaemonOpts struct {
	DB         *gorm.DB // optional; enables the action log
	Config     *config.Config
	Adapter    Adapter
	Services   Services
	Store      *state.Store          // defaults to a fresh store
	Registerer prometheus.Registerer // optional; enables metrics
	HTTP       Runner                // optional status listener
	Version    string
	Out        io.Writer // defaults to os.Stdout
}

// NewDaemon creates a Daemon with the given options.
func NewDaemon(opts DaemonOpts) (*Daemon, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("telegraph: config is required")
	}
	if opts.Adapter == nil {
		return nil, fmt.Errorf("telegraph: adapter is required")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	store := opts.Store
	if store == nil {
		store = state.NewStore()
	}
	d := &Daemon{
		db:       opts.DB,
		cfg:      opts.Config,
		adapter:  opts.Adapter,
		svc:      opts.Services,
		store:    store,
		reg:      opts.Registerer,
		http:     opts.HTTP,
		version:  opts.Version,
		out:      out,
		hostname: os.Hostname,
	}
	if d.reg != nil {
		m, err := NewMetrics(d.reg)
		if err != nil {
			return nil, fmt.Errorf("telegraph: metrics: %w", err)
		}
		d.metrics = m
	}
	return d, nil
}

// Run connects the adapter, starts the background services and routes
// messages until ctx is cancelled or the adapter closes its inbound
// channel. Shutdown stops every service and closes the adapter.
func (d *Daemon) Run(ctx context.Context) error {
	fmt.Fprintf(d.out, "pcremote connecting to %s...\n", d.cfg.Platform)
	if err := d.adapter.Connect(ctx); err != nil {
		return fmt.Errorf("telegraph: connect: %w", err)
	}

	var botUserID string
	if bui, ok := d.adapter.(BotUserIDer); ok {
		botUserID = bui.BotUserID()
	}
	var searchRoot string
	if len(d.cfg.Files.AllowedRoots) > 0 {
		searchRoot = d.cfg.Files.AllowedRoots[0]
	}

	router, err := NewRouter(RouterOpts{
		Store:       d.store,
		Services:    d.svc,
		Adapter:     d.adapter,
		Principal:   d.cfg.AllowedUserID,
		BotUserID:   botUserID,
		StartedAt:   time.Now(),
		DownloadDir: d.cfg.Files.DownloadDir,
		SearchRoot:  searchRoot,
		Settings:    d.cfg.Settings,
		BotInfo:     d.BotInfo,
		Recorder:    NewActionRecorder(d.db),
		Metrics:     d.metrics,
		Out:         d.out,
	})
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("telegraph: build router: %w", err)
	}

	inbound, err := d.adapter.Listen(ctx)
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("telegraph: listen: %w", err)
	}

	queue, err := NewQueue(QueueOpts{Handle: router.Handle, Out: d.out})
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("telegraph: build queue: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return d.evictLoop(gctx) })
	if d.svc.Sampler != nil {
		g.Go(func() error { return d.svc.Sampler.Run(gctx) })
	}
	if d.http != nil {
		g.Go(func() error { return d.http.Run(gctx) })
	}
	if d.svc.Automation != nil {
		if err := d.svc.Automation.Start(runCtx); err != nil {
			logger.Error("automation start failed", "err", err)
		}
	}

	fmt.Fprintf(d.out, "pcremote online\n")
	d.sendStartup(ctx)

	// The queue returns on cancellation or when the adapter closes inbound;
	// either way the rest of the group stops with it.
	g.Go(func() error {
		defer cancel()
		return queue.Run(gctx, inbound)
	})
	err = g.Wait()

	fmt.Fprintf(d.out, "pcremote shutting down...\n")
	d.shutdown()
	fmt.Fprintf(d.out, "pcremote stopped\n")
	if err != nil {
		return fmt.Errorf("telegraph: %w", err)
	}
	return nil
}

// evictLoop drops idle conversation state and trims the action log.
func (d *Daemon) evictLoop(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.State.EvictInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := d.store.EvictInactive(d.cfg.State.Inactivity); n > 0 {
				logger.Debug("evicted idle conversations", "count", n)
			}
			if d.db == nil {
				continue
			}
			if n, err := db.PruneActionLog(d.db.WithContext(ctx), ActionLogKeep); err != nil {
				logger.Warn("prune action log", "err", err)
			} else if n > 0 {
				logger.Debug("pruned action log", "rows", n)
			}
		}
	}
}

// sendStartup announces the agent to the operator and opens the main menu.
func (d *Daemon) sendStartup(ctx context.Context) {
	text := fmt.Sprintf("🖥 *PC Açıldı*\n\n⏰ Saat: %s\n💻 Bilgisayar: %s\n\n✅ PC Remote aktif ve hazır!",
		time.Now().Format("02.01.2006 15:04:05"), d.host())
	if err := d.adapter.Send(ctx, OutboundMessage{Text: text, ParseMode: ParseMarkdown}); err != nil {
		logger.Error("send startup notice", "err", err)
		return
	}
	if err := d.adapter.Send(ctx, menuMessage(MainMenu(false, time.Now()))); err != nil {
		logger.Warn("send main menu", "err", err)
	}
	logger.Info("startup notice sent")
}

// shutdown stops every service and posts a best-effort notice.
func (d *Daemon) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.adapter.Send(ctx, OutboundMessage{Text: "🔌 PC Remote kapatılıyor."}); err != nil {
		logger.Warn("send shutdown notice", "err", err)
	}

	if m := d.svc.Monitoring; m != nil {
		m.StopAll()
	}
	if a := d.svc.Activity; a != nil {
		a.Stop()
	}
	if c := d.svc.Clipboard; c != nil {
		c.StopWatch()
	}
	if c := d.svc.Capture; c != nil {
		c.Close()
	}
	if a := d.svc.Automation; a != nil {
		a.Stop()
	}
	if err := d.adapter.Close(); err != nil {
		logger.Warn("close adapter", "err", err)
	}
}

// Notify pushes an unsolicited message to the operator's chat. It is safe
// to call on a nil *Daemon, which drops the message.
func (d *Daemon) Notify(text string) {
	if d == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	d.metrics.alert()
	if err := d.adapter.Send(ctx, OutboundMessage{Text: text, ParseMode: ParseMarkdown}); err != nil {
		logger.Warn("send notice", "err", err)
	}
}

// TaskRan reports a scheduled task run to the operator.
func (d *Daemon) TaskRan(task models.AutomationTask, output string) {
	d.Notify(FormatTaskRun(task, output))
}

// FormatTaskRun renders the notice for one scheduled task run.
func FormatTaskRun(task models.AutomationTask, output string) string {
	output = strings.TrimSpace(output)
	if output == "" {
		output = "(çıktı yok)"
	}
	return fmt.Sprintf("⏰ *Görev #%d çalıştı*\n\nKomut: `%s`\n\n```\n%s\n```",
		task.ID, markdownCode(task.Command), strings.ReplaceAll(actions.Truncate(output, 3000, "..."), "```", "'''"))
}

// BotInfo renders the "Bot Bilgisi" reply.
func (d *Daemon) BotInfo() string {
	version := d.version
	if version == "" {
		version = "dev"
	}
	var sb strings.Builder
	sb.WriteString("*PC Remote Bilgileri*\n\n")
	fmt.Fprintf(&sb, "*Versiyon:* %s\n", version)
	sb.WriteString("*İsim:* PC Remote\n")
	sb.WriteString("*Açıklama:* Bilgisayar uzaktan kontrol ajanı\n\n")
	sb.WriteString("*Sistem:*\n")
	fmt.Fprintf(&sb, "• Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&sb, "• Go: %s\n", runtime.Version())
	fmt.Fprintf(&sb, "• Hostname: %s\n", d.host())
	fmt.Fprintf(&sb, "• Sohbet Platformu: %s", d.cfg.Platform)
	return sb.String()
}

func (d *Daemon) host() string {
	h, err := d.hostname()
	if err != nil || h == "" {
		return "bilinmiyor"
	}
	return h
}

func menuMessage(m Menu) OutboundMessage {
	return OutboundMessage{Text: m.Text, ParseMode: m.ParseMode, Keyboard: m.Keyboard}
}
