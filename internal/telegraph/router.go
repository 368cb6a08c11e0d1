package telegraph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/zulandar/pcremote/internal/actions"
	"github.com/zulandar/pcremote/internal/filebrowser"
	"github.com/zulandar/pcremote/internal/logger"
	"github.com/zulandar/pcremote/internal/state"
)

// Fixed replies of the routing pipeline.
const (
	unauthorizedText   = "⛔ *Yetkisiz Erişim!*\n\nBu botu kullanma yetkiniz bulunmamaktadır."
	unknownCommandText = "Bilinmeyen komut. Lütfen menüden bir seçenek seçin."
	errorPrefix        = "Bir hata oluştu: "
)

// errUnavailable is returned by handlers whose service is not configured on
// this host (for example no clipboard without a display server).
var errUnavailable = errors.New("bu özellik bu sistemde kullanılamıyor")

// Services bundles the host control services the router dispatches to.
// Controls, System and Browser are required; the rest are optional and
// their menu entries answer with an error when missing.
type Services struct {
	Controls   *actions.Controls
	System     *actions.System
	Browser    *filebrowser.Browser
	Sampler    *actions.Sampler
	Programs   *actions.Programs
	Clipboard  *actions.Clipboard
	Sites      *actions.Sites
	Capture    *actions.Capture
	Automation *actions.Automation
	Monitoring *actions.Monitoring
	Activity   *actions.Activity
}

// Router interprets one inbound message against the sender's conversation
// state and dispatches it to exactly one action.
type Router struct {
	store       *state.Store
	svc         Services
	adapter     Adapter
	principal   string
	botUserID   string
	startedAt   time.Time
	downloadDir string
	searchRoot  string
	settings    func() string
	botInfo     func() string
	recorder    *ActionRecorder
	metrics     *Metrics
	out         io.Writer
	now         func() time.Time

	branches []branch
	menu     map[string]handler
}

// RouterOpts holds parameters for creating a Router.
type RouterOpts struct {
	Store     *state.Store
	Services  Services
	Adapter   Adapter
	Principal string    // the one authorized user ID
	BotUserID string    // bot's user ID for self-message filtering
	StartedAt time.Time // messages sent before this are dropped; defaults to now
	// DownloadDir receives uploads sent outside upload mode.
	DownloadDir string
	// SearchRoot is searched when no folder is being browsed.
	SearchRoot string
	Settings   func() string   // renders "Tüm Ayarlar"; optional
	BotInfo    func() string   // renders "Bot Bilgisi"; optional
	Recorder   *ActionRecorder // optional action log
	Metrics    *Metrics        // optional
	Out        io.Writer       // defaults to os.Stdout
}

// NewRouter creates a Router.
func NewRouter(opts RouterOpts) (*Router, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("telegraph: router: state store is required")
	}
	if opts.Adapter == nil {
		return nil, fmt.Errorf("telegraph: router: adapter is required")
	}
	if opts.Principal == "" {
		return nil, fmt.Errorf("telegraph: router: principal is required")
	}
	if opts.Services.Controls == nil || opts.Services.System == nil || opts.Services.Browser == nil {
		return nil, fmt.Errorf("telegraph: router: controls, system and browser services are required")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	started := opts.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	r := &Router{
		store:       opts.Store,
		svc:         opts.Services,
		adapter:     opts.Adapter,
		principal:   opts.Principal,
		botUserID:   opts.BotUserID,
		startedAt:   started,
		downloadDir: opts.DownloadDir,
		searchRoot:  opts.SearchRoot,
		settings:    opts.Settings,
		botInfo:     opts.BotInfo,
		recorder:    opts.Recorder,
		metrics:     opts.Metrics,
		out:         out,
		now:         time.Now,
	}
	r.branches = r.awaitBranches()
	r.menu = r.menuHandlers()
	return r, nil
}

// request is one message being routed.
type request struct {
	msg  InboundMessage
	text string
	st   *state.ConversationState
}

func (req *request) principal() string { return req.msg.UserID }

// handler runs one action and sends its replies.
type handler func(ctx context.Context, req *request) error

// Handle routes a single inbound message. Routing order:
//  1. Bot self-message → ignore
//  2. Attachment → upload handler
//  3. Sent before the process started → drop silently
//  4. Not the authorized principal → fixed notice, stop
//  5. Global overrides (/start, Ana Menü, Kapatmayı İptal Et)
//  6. Awaited input, in fixed priority
//  7. Menu label → action or sub-menu
//  8. Everything else → unknown command reply
func (r *Router) Handle(ctx context.Context, msg InboundMessage) {
	if r.botUserID != "" && msg.UserID == r.botUserID {
		return
	}
	if msg.Attachment != nil {
		r.handleUpload(ctx, msg)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	fmt.Fprintf(r.out, "telegraph: router: recv [ch=%s user=%s] %q\n",
		msg.ChannelID, msg.UserName, truncate(text, 80))

	if r.isStale(msg) {
		fmt.Fprintf(r.out, "telegraph: router: → stale, dropped\n")
		r.metrics.routed("stale")
		return
	}
	if !r.authorized(msg) {
		fmt.Fprintf(r.out, "telegraph: router: → unauthorized [user=%s]\n", msg.UserID)
		logger.Warn("unauthorized access attempt", "user", msg.UserID, "name", msg.UserName)
		r.metrics.routed("unauthorized")
		// Delivery errors are swallowed: the sender may have blocked the bot.
		_ = r.adapter.Send(ctx, OutboundMessage{ChannelID: msg.ChannelID, Text: unauthorizedText, ParseMode: ParseMarkdown})
		return
	}

	req := &request{msg: msg, text: text, st: r.store.GetOrCreate(msg.UserID)}
	r.store.Update(msg.UserID, func(*state.ConversationState) {})

	if h, ok := r.global(text); ok {
		fmt.Fprintf(r.out, "telegraph: router: → global %q\n", text)
		r.metrics.routed("global")
		r.run(ctx, req, text, h)
		return
	}

	for _, b := range r.branches {
		if !req.st.Awaiting(b.kind) {
			continue
		}
		start := r.now()
		handled, err := b.handle(ctx, req)
		if !handled && err == nil {
			fmt.Fprintf(r.out, "telegraph: router: await %s fell through\n", b.kind)
			continue
		}
		fmt.Fprintf(r.out, "telegraph: router: → await %s\n", b.kind)
		r.metrics.routed("await")
		r.finish(ctx, req, "await:"+b.kind.String(), start, err)
		return
	}

	if h, ok := r.lookup(text); ok {
		fmt.Fprintf(r.out, "telegraph: router: → menu %q\n", text)
		r.metrics.routed("menu")
		r.run(ctx, req, text, h)
		return
	}

	fmt.Fprintf(r.out, "telegraph: router: → unknown\n")
	r.metrics.routed("unknown")
	if err := r.reply(ctx, req, unknownCommandText); err != nil {
		logger.Warn("send unknown command reply", "err", err)
	}
}

// isStale reports whether msg was sent before the process started. Both
// sides are compared at second precision.
func (r *Router) isStale(msg InboundMessage) bool {
	if msg.Timestamp.IsZero() {
		return false
	}
	return msg.Timestamp.Unix() < r.startedAt.Unix()
}

func (r *Router) authorized(msg InboundMessage) bool {
	return msg.UserID == r.principal
}

// global returns the handlers that win over any awaited input.
func (r *Router) global(text string) (handler, bool) {
	switch text {
	case "/start":
		return r.showMain, true
	case LabelMainMenu:
		return func(ctx context.Context, req *request) error {
			r.store.ClearAllAwaiting(req.principal())
			return r.showMain(ctx, req)
		}, true
	case LabelCancelShutoff:
		return r.do(actions.CmdCancelShutdown), true
	}
	return nil, false
}

// lookup finds the menu handler for text. Labels carrying the website
// block and unblock phrases also match.
func (r *Router) lookup(text string) (handler, bool) {
	if h, ok := r.menu[text]; ok {
		return h, true
	}
	switch {
	case strings.Contains(text, "Website Engelle"):
		return r.menu["Website Engelle"], true
	case strings.Contains(text, "Engeli Kaldır"):
		return r.menu["Engeli Kaldır"], true
	}
	return nil, false
}

// run executes h and reports its outcome.
func (r *Router) run(ctx context.Context, req *request, action string, h handler) {
	start := r.now()
	err := h(ctx, req)
	r.finish(ctx, req, action, start, err)
}

// finish records the action and turns an error into the generic error
// reply. Errors never stop the event loop.
func (r *Router) finish(ctx context.Context, req *request, action string, start time.Time, err error) {
	elapsed := r.now().Sub(start)
	r.metrics.action(action, err, elapsed)
	r.recorder.Record(ctx, req.msg, action, err, elapsed)
	if err == nil {
		return
	}
	logger.Error("action failed", "action", action, "err", err)
	if sendErr := r.reply(ctx, req, errorPrefix+err.Error()); sendErr != nil {
		logger.Warn("send error reply", "err", sendErr)
	}
}

// --- reply helpers ---

func (r *Router) send(ctx context.Context, req *request, msg OutboundMessage) error {
	msg.ChannelID = req.msg.ChannelID
	return r.adapter.Send(ctx, msg)
}

func (r *Router) reply(ctx context.Context, req *request, text string) error {
	return r.send(ctx, req, OutboundMessage{Text: text})
}

func (r *Router) replyMarkdown(ctx context.Context, req *request, text string) error {
	return r.send(ctx, req, OutboundMessage{Text: text, ParseMode: ParseMarkdown})
}

func (r *Router) replyMenu(ctx context.Context, req *request, m Menu) error {
	return r.send(ctx, req, OutboundMessage{Text: m.Text, ParseMode: m.ParseMode, Keyboard: m.Keyboard})
}

func (r *Router) sendFile(ctx context.Context, req *request, path string, kind FileKind, caption string) error {
	return r.send(ctx, req, OutboundMessage{File: &OutboundFile{Path: path, Kind: kind, Caption: caption}})
}

func (r *Router) showMain(ctx context.Context, req *request) error {
	return r.replyMenu(ctx, req, MainMenu(req.st.IsLocked, r.now()))
}

// arm makes kind the awaited input and sends the prompt.
func (r *Router) arm(ctx context.Context, req *request, kind state.AwaitKind, prompt string, mode ParseMode) error {
	r.store.Arm(req.principal(), kind)
	return r.send(ctx, req, OutboundMessage{Text: prompt, ParseMode: mode})
}
