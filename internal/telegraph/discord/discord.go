// Package discord implements the telegraph Adapter for Discord using the Gateway WebSocket.
package discord

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/zulandar/pcremote/internal/logger"
	"github.com/zulandar/pcremote/internal/telegraph"
)

const (
	// maxRetries is the max number of retries for rate-limited API calls.
	maxRetries = 3
	// baseBackoff is the initial backoff duration for rate-limit retries.
	baseBackoff = 2 * time.Second
	// maxBackoff caps the exponential backoff.
	maxBackoff = 2 * time.Minute
	// Discord allows five action rows of five buttons each.
	maxRows       = 5
	maxRowButtons = 5
	// maxLabel is the longest button label Discord accepts.
	maxLabel = 80
)

// session abstracts the discordgo.Session methods we use, enabling test mocks.
type session interface {
	Open() error
	Close() error
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	AddHandler(handler interface{}) func()
}

// realSession wraps *discordgo.Session to implement the session interface.
type realSession struct {
	s *discordgo.Session
}

func (r *realSession) Open() error  { return r.s.Open() }
func (r *realSession) Close() error { return r.s.Close() }
func (r *realSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return r.s.ChannelMessageSendComplex(channelID, data, options...)
}
func (r *realSession) InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error {
	return r.s.InteractionRespond(interaction, resp, options...)
}
func (r *realSession) AddHandler(handler interface{}) func() {
	return r.s.AddHandler(handler)
}

// Adapter implements telegraph.Adapter for Discord via the Gateway WebSocket.
// Reply keyboards become message buttons; a button press arrives as an
// inbound message carrying the button label.
type Adapter struct {
	sess           session
	http           *http.Client
	botToken       string
	channelID      string // default channel for messages
	botUserID      string
	mu             sync.Mutex
	connected      bool
	closed         bool
	inbound        chan telegraph.InboundMessage
	cancelFunc     context.CancelFunc
	removeHandlers []func()
	baseBackoff    time.Duration
	maxBackoff     time.Duration
}

// AdapterOpts holds parameters for creating a Discord Adapter.
type AdapterOpts struct {
	BotToken  string // Discord bot token
	ChannelID string // default channel to post to
	// For testing: inject a mock session instead of real Discord API.
	Session session
	// HTTPClient fetches inbound attachments; defaults to a 2 minute client.
	HTTPClient *http.Client
}

// New creates a Discord Adapter.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.Session == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("discord: bot token is required")
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}

	a := &Adapter{
		http:        client,
		botToken:    opts.BotToken,
		channelID:   opts.ChannelID,
		inbound:     make(chan telegraph.InboundMessage, 100),
		baseBackoff: baseBackoff,
		maxBackoff:  maxBackoff,
	}
	if opts.Session != nil {
		a.sess = opts.Session
	}
	return a, nil
}

// Connect establishes the Discord Gateway WebSocket connection.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("discord: adapter already closed")
	}
	if a.connected {
		return nil
	}

	// Create real session if not injected (production path).
	if a.sess == nil {
		dg, err := discordgo.New("Bot " + a.botToken)
		if err != nil {
			return fmt.Errorf("discord: create session: %w", err)
		}
		dg.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent
		a.sess = &realSession{s: dg}
	}

	// Capture the bot user ID on connect and reconnect.
	a.sess.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		a.mu.Lock()
		a.botUserID = r.User.ID
		a.mu.Unlock()
		logger.Info("discord connected", "user", r.User.Username, "id", r.User.ID)
	})

	// discordgo reconnects on its own; these only log.
	a.sess.AddHandler(func(_ *discordgo.Session, d *discordgo.Disconnect) {
		logger.Warn("discord gateway disconnected, discordgo will auto-reconnect")
	})
	a.sess.AddHandler(func(_ *discordgo.Session, r *discordgo.Resumed) {
		logger.Info("discord gateway session resumed")
	})

	if err := a.sess.Open(); err != nil {
		return fmt.Errorf("discord: open gateway: %w", err)
	}

	a.connected = true
	return nil
}

// Listen returns a channel of inbound messages from Discord. Registers
// message and button handlers on the Gateway session. Must be called after
// Connect.
func (a *Adapter) Listen(ctx context.Context) (<-chan telegraph.InboundMessage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return nil, fmt.Errorf("discord: not connected")
	}
	if a.cancelFunc != nil {
		return a.inbound, nil
	}

	_, cancel := context.WithCancel(ctx)
	a.cancelFunc = cancel

	a.removeHandlers = append(a.removeHandlers,
		a.sess.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
			a.handleMessage(m)
		}),
		a.sess.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
			a.handleInteraction(i)
		}),
	)
	return a.inbound, nil
}

// Send delivers a message to Discord. Long text is split at the Discord
// limit; the file rides on the first piece and the buttons on the last.
func (a *Adapter) Send(ctx context.Context, msg telegraph.OutboundMessage) error {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return fmt.Errorf("discord: not connected")
	}
	a.mu.Unlock()

	channelID := msg.ChannelID
	if channelID == "" {
		channelID = a.channelID
	}
	if channelID == "" {
		return fmt.Errorf("discord: no channel specified")
	}

	parts, err := buildMessageSends(msg)
	if err != nil {
		return fmt.Errorf("discord: build message: %w", err)
	}
	defer closeFiles(parts)

	for _, data := range parts {
		err := a.retryOnRateLimit(ctx, func() error {
			_, sendErr := a.sess.ChannelMessageSendComplex(channelID, data)
			return sendErr
		})
		if err != nil {
			return fmt.Errorf("discord: send message: %w", err)
		}
	}
	return nil
}

// Download fetches an inbound attachment from its CDN URL.
func (a *Adapter) Download(ctx context.Context, att telegraph.Attachment, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, att.ID, nil)
	if err != nil {
		return 0, fmt.Errorf("discord: download: %w", err)
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("discord: download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("discord: download: http %d", resp.StatusCode)
	}

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dest)
		return 0, fmt.Errorf("discord: download: %w", err)
	}
	return n, nil
}

// Close gracefully shuts down the adapter connection.
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
	for _, remove := range a.removeHandlers {
		remove()
	}
	close(a.inbound)
	if a.sess != nil {
		return a.sess.Close()
	}
	return nil
}

// BotUserID returns the bot's Discord user ID (available after the Ready event).
func (a *Adapter) BotUserID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.botUserID
}

// SetBotUserID sets the bot user ID (used for self-message filtering).
func (a *Adapter) SetBotUserID(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.botUserID = id
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
		logger.Warn("discord inbound buffer full, message dropped", "user", msg.UserID)
	}
}

// handleMessage converts a Discord message event to an InboundMessage.
func (a *Adapter) handleMessage(m *discordgo.MessageCreate) {
	if m.Author == nil {
		return
	}

	a.mu.Lock()
	botID := a.botUserID
	a.mu.Unlock()
	if m.Author.ID == botID || m.Author.Bot {
		return
	}

	ts, _ := discordgo.SnowflakeTimestamp(m.ID)
	msg := telegraph.InboundMessage{
		Platform:  "discord",
		ChannelID: m.ChannelID,
		UserID:    m.Author.ID,
		UserName:  m.Author.Username,
		Text:      m.Content,
		Timestamp: ts,
	}
	if len(m.Attachments) > 0 {
		att := m.Attachments[0]
		msg.Attachment = &telegraph.Attachment{
			ID:   att.URL,
			Name: att.Filename,
			Kind: kindOf(att.ContentType),
			Size: int64(att.Size),
		}
	}
	if msg.Text == "" && msg.Attachment == nil {
		return
	}
	a.deliver(msg)
}

// handleInteraction turns a button press into an inbound message carrying
// the button label and acknowledges the press.
func (a *Adapter) handleInteraction(i *discordgo.InteractionCreate) {
	if i.Interaction == nil || i.Type != discordgo.InteractionMessageComponent {
		return
	}
	u := i.User
	if i.Member != nil && i.Member.User != nil {
		u = i.Member.User
	}
	if u == nil {
		return
	}

	// Acknowledge without a visible reply; the router answers with a new message.
	err := a.sess.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
	if err != nil {
		logger.Warn("discord interaction ack failed", "err", err)
	}

	ts, _ := discordgo.SnowflakeTimestamp(i.ID)
	a.deliver(telegraph.InboundMessage{
		Platform:  "discord",
		ChannelID: i.ChannelID,
		UserID:    u.ID,
		UserName:  u.Username,
		Text:      i.MessageComponentData().CustomID,
		Timestamp: ts,
	})
}

func kindOf(contentType string) telegraph.FileKind {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return telegraph.FilePhoto
	case strings.HasPrefix(contentType, "video/"):
		return telegraph.FileVideo
	}
	return telegraph.FileDocument
}

// buildMessageSends translates an OutboundMessage into one or more Discord
// MessageSends. The caller must close any attached file readers.
func buildMessageSends(msg telegraph.OutboundMessage) ([]*discordgo.MessageSend, error) {
	components, overflow := buildComponents(msg.Keyboard)
	text := msg.Text
	if overflow != "" {
		text = strings.TrimRight(text, "\n") + "\n\n" + overflow
	}

	var parts []*discordgo.MessageSend
	for _, chunk := range telegraph.Chunk(text, telegraph.DiscordTextLimit) {
		parts = append(parts, &discordgo.MessageSend{Content: chunk})
	}
	if msg.File != nil {
		fh, err := os.Open(msg.File.Path)
		if err != nil {
			return nil, err
		}
		file := &discordgo.MessageSend{
			Content: msg.File.Caption,
			Files:   []*discordgo.File{{Name: filepath.Base(msg.File.Path), Reader: fh}},
		}
		parts = append([]*discordgo.MessageSend{file}, parts...)
	}
	if len(parts) == 0 {
		parts = append(parts, &discordgo.MessageSend{})
	}
	parts[len(parts)-1].Components = components
	return parts, nil
}

func closeFiles(parts []*discordgo.MessageSend) {
	for _, p := range parts {
		for _, f := range p.Files {
			if c, ok := f.Reader.(io.Closer); ok {
				c.Close()
			}
		}
	}
}

// buildComponents lays keyboard labels out as button rows. Discord caps a
// message at five rows of five, so rows are repacked when needed and any
// labels that still do not fit are returned as a text list.
func buildComponents(keyboard [][]string) ([]discordgo.MessageComponent, string) {
	if len(keyboard) == 0 {
		return nil, ""
	}

	rows := keyboard
	fits := len(rows) <= maxRows
	for _, row := range rows {
		if len(row) > maxRowButtons {
			fits = false
		}
	}
	if !fits {
		var flat []string
		for _, row := range keyboard {
			flat = append(flat, row...)
		}
		rows = nil
		for len(flat) > 0 {
			n := min(maxRowButtons, len(flat))
			rows = append(rows, flat[:n])
			flat = flat[n:]
		}
	}

	var components []discordgo.MessageComponent
	var overflow strings.Builder
	for i, row := range rows {
		if i >= maxRows {
			for _, label := range row {
				fmt.Fprintf(&overflow, "• %s\n", label)
			}
			continue
		}
		var buttons []discordgo.MessageComponent
		for _, label := range row {
			buttons = append(buttons, discordgo.Button{
				Label:    truncateLabel(label),
				Style:    discordgo.SecondaryButton,
				CustomID: label,
			})
		}
		components = append(components, discordgo.ActionsRow{Components: buttons})
	}
	return components, strings.TrimRight(overflow.String(), "\n")
}

func truncateLabel(s string) string {
	r := []rune(s)
	if len(r) <= maxLabel {
		return s
	}
	return string(r[:maxLabel-3]) + "..."
}

// retryOnRateLimit calls fn and retries with exponential backoff on Discord
// rate limit errors. It respects context cancellation.
func (a *Adapter) retryOnRateLimit(ctx context.Context, fn func() error) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		restErr, ok := err.(*discordgo.RESTError)
		if !ok || restErr.Response == nil || restErr.Response.StatusCode != http.StatusTooManyRequests {
			return err
		}
		if attempt == maxRetries {
			return err
		}

		wait := time.Duration(math.Pow(2, float64(attempt))) * a.baseBackoff
		if wait > a.maxBackoff {
			wait = a.maxBackoff
		}
		logger.Warn("discord rate limited", "attempt", attempt+1, "max", maxRetries, "retry_in", wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil // unreachable
}
