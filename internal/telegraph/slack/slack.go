// Package slack implements the telegraph Adapter for Slack using Socket Mode.
package slack

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	slackapi "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/zulandar/pcremote/internal/logger"
	"github.com/zulandar/pcremote/internal/telegraph"
)

const (
	// maxRetries is the max number of retries for rate-limited API calls.
	maxRetries = 3
	// baseBackoff is the initial backoff duration for reconnection.
	baseBackoff = 2 * time.Second
	// maxBackoff caps the exponential backoff for reconnection.
	maxBackoff = 2 * time.Minute
	// maxReconnectAttempts limits reconnection retries before giving up.
	maxReconnectAttempts = 10
	// sectionLimit is the longest text a section block accepts.
	sectionLimit = 3000
	// maxButtonText is the longest button label Slack accepts.
	maxButtonText = 75
	// actionPrefix marks action IDs of keyboard buttons.
	actionPrefix = "kb_"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	AuthTest() (*slackapi.AuthTestResponse, error)
	PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error)
	GetUserInfo(userID string) (*slackapi.User, error)
	GetUploadURLExternalContext(ctx context.Context, params slackapi.GetUploadURLExternalParameters) (*slackapi.GetUploadURLExternalResponse, error)
	CompleteUploadExternalContext(ctx context.Context, params slackapi.CompleteUploadExternalParameters) (*slackapi.CompleteUploadExternalResponse, error)
	GetFileContext(ctx context.Context, downloadURL string, writer io.Writer) error
}

// socketClient abstracts the Socket Mode client methods we use.
type socketClient interface {
	Run() error
	EventsChan() chan socketmode.Event
	Ack(req socketmode.Request, payload ...interface{})
}

// realSocketClient wraps *socketmode.Client to implement socketClient.
type realSocketClient struct {
	client *socketmode.Client
}

func (r *realSocketClient) Run() error                        { return r.client.Run() }
func (r *realSocketClient) EventsChan() chan socketmode.Event { return r.client.Events }
func (r *realSocketClient) Ack(req socketmode.Request, payload ...interface{}) {
	r.client.Ack(req, payload...)
}

// Adapter implements telegraph.Adapter for Slack Socket Mode. Reply
// keyboards become Block Kit buttons; a button press arrives as an inbound
// message carrying the button label.
type Adapter struct {
	client       slackClient
	socket       socketClient
	http         *http.Client // uploads file bytes to the external upload URL
	botUserID    string
	appToken     string
	botToken     string
	channelID    string // default channel for messages without explicit channel
	mu           sync.Mutex
	connected    bool
	closed       bool
	inbound      chan telegraph.InboundMessage
	cancelFunc   context.CancelFunc
	names        map[string]string // user ID -> display name
	baseBackoff  time.Duration     // reconnection base backoff (default: baseBackoff const)
	maxBackoff   time.Duration     // reconnection max backoff (default: maxBackoff const)
	maxReconnect int               // max reconnection attempts (default: maxReconnectAttempts)
}

// AdapterOpts holds parameters for creating a Slack Adapter.
type AdapterOpts struct {
	AppToken  string // xapp-... Slack app-level token for Socket Mode
	BotToken  string // xoxb-... Slack bot token
	ChannelID string // default channel to post to
	// For testing: inject mock clients instead of real Slack API.
	Client     slackClient
	Socket     socketClient
	HTTPClient *http.Client
}

// New creates a Slack Adapter.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.Client == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("slack: bot token is required")
	}
	if opts.Socket == nil && opts.AppToken == "" {
		return nil, fmt.Errorf("slack: app token is required for socket mode")
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}

	a := &Adapter{
		http:         client,
		appToken:     opts.AppToken,
		botToken:     opts.BotToken,
		channelID:    opts.ChannelID,
		inbound:      make(chan telegraph.InboundMessage, 100),
		names:        make(map[string]string),
		baseBackoff:  baseBackoff,
		maxBackoff:   maxBackoff,
		maxReconnect: maxReconnectAttempts,
	}
	if opts.Client != nil {
		a.client = opts.Client
	}
	if opts.Socket != nil {
		a.socket = opts.Socket
	}
	return a, nil
}

// Connect establishes the Socket Mode WebSocket connection.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("slack: adapter already closed")
	}
	if a.connected {
		return nil
	}

	// Create real clients if not injected (production path).
	if a.client == nil {
		api := slackapi.New(a.botToken, slackapi.OptionAppLevelToken(a.appToken))
		a.client = api
		a.socket = &realSocketClient{client: socketmode.New(api)}
	}

	// Get bot user ID for self-message filtering.
	auth, err := a.client.AuthTest()
	if err != nil {
		return fmt.Errorf("slack: auth test: %w", err)
	}
	a.botUserID = auth.UserID

	a.connected = true
	return nil
}

// Listen returns a channel of inbound messages. Starts the Socket Mode
// event pump in a background goroutine. Must be called after Connect.
func (a *Adapter) Listen(ctx context.Context) (<-chan telegraph.InboundMessage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return nil, fmt.Errorf("slack: not connected")
	}
	if a.cancelFunc != nil {
		return a.inbound, nil
	}

	listenCtx, cancel := context.WithCancel(ctx)
	a.cancelFunc = cancel

	go a.runWithReconnect(listenCtx)
	go a.pumpEvents(listenCtx)

	return a.inbound, nil
}

// Send delivers a message to Slack. Text goes out as mrkdwn sections and
// the keyboard as button rows on the last piece.
func (a *Adapter) Send(ctx context.Context, msg telegraph.OutboundMessage) error {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return fmt.Errorf("slack: not connected")
	}
	a.mu.Unlock()

	channelID := msg.ChannelID
	if channelID == "" {
		channelID = a.channelID
	}
	if channelID == "" {
		return fmt.Errorf("slack: no channel specified")
	}

	if msg.File != nil {
		if err := a.uploadFile(ctx, channelID, msg.File); err != nil {
			return fmt.Errorf("slack: upload file: %w", err)
		}
	}

	for _, options := range buildMessageOptions(msg) {
		err := retryOnRateLimit(ctx, func() error {
			_, _, postErr := a.client.PostMessage(channelID, options...)
			return postErr
		})
		if err != nil {
			return fmt.Errorf("slack: post message: %w", err)
		}
	}
	return nil
}

// uploadFile runs the external upload flow: reserve an upload URL, POST the
// bytes there, then share the file into the channel.
func (a *Adapter) uploadFile(ctx context.Context, channelID string, f *telegraph.OutboundFile) error {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return err
	}
	name := filepath.Base(f.Path)

	var reserved *slackapi.GetUploadURLExternalResponse
	err = retryOnRateLimit(ctx, func() error {
		var apiErr error
		reserved, apiErr = a.client.GetUploadURLExternalContext(ctx, slackapi.GetUploadURLExternalParameters{
			FileName: name,
			FileSize: len(data),
		})
		return apiErr
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reserved.UploadURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upload url: http %d", resp.StatusCode)
	}

	return retryOnRateLimit(ctx, func() error {
		_, apiErr := a.client.CompleteUploadExternalContext(ctx, slackapi.CompleteUploadExternalParameters{
			Files:          []slackapi.FileSummary{{ID: reserved.FileID, Title: name}},
			Channel:        channelID,
			InitialComment: f.Caption,
		})
		return apiErr
	})
}

// Download fetches a shared file through the authenticated private URL.
func (a *Adapter) Download(ctx context.Context, att telegraph.Attachment, dest string) (int64, error) {
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	cw := &countingWriter{w: out}
	err = a.client.GetFileContext(ctx, att.ID, cw)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dest)
		return 0, fmt.Errorf("slack: download: %w", err)
	}
	return cw.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Close shuts down the adapter and closes the inbound channel.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	a.connected = false
	if a.cancelFunc != nil {
		a.cancelFunc()
	}
	close(a.inbound)
	return nil
}

// BotUserID returns the bot's Slack user ID (available after Connect).
func (a *Adapter) BotUserID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.botUserID
}

// runWithReconnect runs the Socket Mode client and retries with exponential
// backoff when Run() returns an error (e.g., reconnection failure).
func (a *Adapter) runWithReconnect(ctx context.Context) {
	for attempt := 0; attempt < a.maxReconnect; attempt++ {
		err := a.socket.Run()
		if err == nil {
			return // clean shutdown
		}

		select {
		case <-ctx.Done():
			return
		default:
		}

		wait := time.Duration(math.Pow(2, float64(attempt))) * a.baseBackoff
		if wait > a.maxBackoff {
			wait = a.maxBackoff
		}
		logger.Warn("slack socket mode disconnected", "attempt", attempt+1, "max", a.maxReconnect, "err", err, "retry_in", wait)

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
	logger.Error("slack socket mode exhausted reconnection attempts", "attempts", a.maxReconnect)
}

// pumpEvents reads Socket Mode events and converts them to InboundMessages.
func (a *Adapter) pumpEvents(ctx context.Context) {
	events := a.socket.EventsChan()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			a.handleSocketEvent(evt)
		}
	}
}

// handleSocketEvent processes a single Socket Mode event.
func (a *Adapter) handleSocketEvent(evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeEventsAPI:
		eventsAPIEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		if evt.Request != nil {
			a.socket.Ack(*evt.Request)
		}
		a.handleEventsAPI(eventsAPIEvent)

	case socketmode.EventTypeInteractive:
		callback, ok := evt.Data.(slackapi.InteractionCallback)
		if !ok {
			return
		}
		if evt.Request != nil {
			a.socket.Ack(*evt.Request)
		}
		a.handleInteraction(callback)

	case socketmode.EventTypeConnecting:
		logger.Debug("slack connecting to socket mode")

	case socketmode.EventTypeConnected:
		logger.Info("slack connected to socket mode")

	case socketmode.EventTypeConnectionError:
		logger.Warn("slack connection error", "data", evt.Data)

	case socketmode.EventTypeDisconnect:
		logger.Warn("slack server requested disconnect, will reconnect")
	}
}

// handleEventsAPI processes Events API callbacks.
func (a *Adapter) handleEventsAPI(event slackevents.EventsAPIEvent) {
	if event.Type != slackevents.CallbackEvent {
		return
	}
	switch ev := event.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		a.handleMessage(ev)
	case *slackevents.AppMentionEvent:
		a.handleAppMention(ev)
	}
}

// deliver pushes msg unless the adapter has been closed.
func (a *Adapter) deliver(msg telegraph.InboundMessage) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	select {
	case a.inbound <- msg:
	default:
		logger.Warn("slack inbound buffer full, message dropped", "user", msg.UserID)
	}
}

// handleMessage converts a Slack message event to an InboundMessage.
func (a *Adapter) handleMessage(ev *slackevents.MessageEvent) {
	if ev.User == "" || ev.User == a.BotUserID() {
		return
	}
	// Edits, deletes and other subtypes are ignored; file shares are uploads.
	if ev.BotID != "" || (ev.SubType != "" && ev.SubType != "file_share") {
		return
	}

	msg := telegraph.InboundMessage{
		Platform:  "slack",
		ChannelID: ev.Channel,
		UserID:    ev.User,
		UserName:  a.resolveUserName(ev.User),
		Text:      ev.Text,
		Timestamp: parseSlackTimestamp(ev.TimeStamp),
	}
	if ev.Message != nil && len(ev.Message.Files) > 0 {
		f := ev.Message.Files[0]
		msg.Attachment = &telegraph.Attachment{
			ID:   f.URLPrivateDownload,
			Name: f.Name,
			Kind: kindOf(f.Mimetype),
			Size: int64(f.Size),
		}
	}
	if msg.Text == "" && msg.Attachment == nil {
		return
	}
	a.deliver(msg)
}

// handleAppMention converts a Slack @mention event to an InboundMessage,
// stripping the leading mention so menu labels still match.
func (a *Adapter) handleAppMention(ev *slackevents.AppMentionEvent) {
	if ev.User == a.BotUserID() {
		return
	}
	text := strings.TrimSpace(strings.Replace(ev.Text, "<@"+a.BotUserID()+">", "", 1))
	if text == "" {
		return
	}
	a.deliver(telegraph.InboundMessage{
		Platform:  "slack",
		ChannelID: ev.Channel,
		UserID:    ev.User,
		UserName:  a.resolveUserName(ev.User),
		Text:      text,
		Timestamp: parseSlackTimestamp(ev.TimeStamp),
	})
}

// handleInteraction turns a keyboard button press into an inbound message.
func (a *Adapter) handleInteraction(cb slackapi.InteractionCallback) {
	if cb.Type != slackapi.InteractionTypeBlockActions {
		return
	}
	for _, action := range cb.ActionCallback.BlockActions {
		if action == nil || !strings.HasPrefix(action.ActionID, actionPrefix) {
			continue
		}
		name := cb.User.Name
		if name == "" {
			name = a.resolveUserName(cb.User.ID)
		}
		a.deliver(telegraph.InboundMessage{
			Platform:  "slack",
			ChannelID: cb.Channel.ID,
			UserID:    cb.User.ID,
			UserName:  name,
			Text:      action.Value,
			Timestamp: parseSlackTimestamp(action.ActionTs),
		})
	}
}

// resolveUserName looks up a user's display name, caching hits. Falls back
// to the user ID.
func (a *Adapter) resolveUserName(userID string) string {
	if userID == "" {
		return ""
	}
	a.mu.Lock()
	name, ok := a.names[userID]
	a.mu.Unlock()
	if ok {
		return name
	}

	user, err := a.client.GetUserInfo(userID)
	if err != nil {
		return userID
	}
	name = user.Profile.DisplayName
	if name == "" {
		name = user.RealName
	}
	if name == "" {
		name = userID
	}
	a.mu.Lock()
	a.names[userID] = name
	a.mu.Unlock()
	return name
}

func kindOf(mimetype string) telegraph.FileKind {
	switch {
	case strings.HasPrefix(mimetype, "image/"):
		return telegraph.FilePhoto
	case strings.HasPrefix(mimetype, "video/"):
		return telegraph.FileVideo
	}
	return telegraph.FileDocument
}

// buildMessageOptions translates an OutboundMessage into one MsgOption set
// per posted message.
func buildMessageOptions(msg telegraph.OutboundMessage) [][]slackapi.MsgOption {
	limit := telegraph.SlackTextLimit
	if msg.Keyboard != nil {
		limit = sectionLimit
	}
	if msg.Text == "" && msg.Keyboard == nil {
		return nil
	}
	chunks := telegraph.Chunk(msg.Text, limit)

	markdown := msg.ParseMode != telegraph.ParsePlain
	var out [][]slackapi.MsgOption
	for i, text := range chunks {
		opts := []slackapi.MsgOption{slackapi.MsgOptionText(text, !markdown)}
		if i == len(chunks)-1 && msg.Keyboard != nil {
			opts = append(opts, slackapi.MsgOptionBlocks(buildBlocks(text, markdown, msg.Keyboard)...))
		}
		out = append(out, opts)
	}
	return out
}

// buildBlocks renders text as a section followed by one actions block per
// keyboard row.
func buildBlocks(text string, markdown bool, keyboard [][]string) []slackapi.Block {
	var blocks []slackapi.Block
	if text != "" {
		kind := slackapi.PlainTextType
		if markdown {
			kind = slackapi.MarkdownType
		}
		blocks = append(blocks, slackapi.NewSectionBlock(slackapi.NewTextBlockObject(kind, text, false, false), nil, nil))
	}
	for r, row := range keyboard {
		var elements []slackapi.BlockElement
		for c, label := range row {
			elements = append(elements, slackapi.NewButtonBlockElement(
				actionPrefix+strconv.Itoa(r)+"_"+strconv.Itoa(c),
				label,
				slackapi.NewTextBlockObject(slackapi.PlainTextType, truncateLabel(label), true, false),
			))
		}
		if len(elements) > 0 {
			blocks = append(blocks, slackapi.NewActionBlock("", elements...))
		}
	}
	return blocks
}

func truncateLabel(s string) string {
	r := []rune(s)
	if len(r) <= maxButtonText {
		return s
	}
	return string(r[:maxButtonText-3]) + "..."
}

// retryOnRateLimit calls fn and retries with backoff on Slack rate limit errors.
// It respects context cancellation and the RetryAfter duration from Slack.
func retryOnRateLimit(ctx context.Context, fn func() error) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		var rle *slackapi.RateLimitedError
		if !errors.As(err, &rle) {
			return err // not a rate limit error, don't retry
		}
		if attempt == maxRetries {
			return err
		}

		wait := rle.RetryAfter
		if wait <= 0 {
			wait = time.Duration(math.Pow(2, float64(attempt))) * time.Second
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil // unreachable
}

// parseSlackTimestamp converts a Slack timestamp (e.g., "1234567890.123456")
// to a time.Time.
func parseSlackTimestamp(ts string) time.Time {
	sec, _, _ := strings.Cut(ts, ".")
	n, err := strconv.ParseInt(sec, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(n, 0)
}
