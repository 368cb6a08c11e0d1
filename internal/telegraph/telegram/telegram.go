// Package telegram implements the telegraph Adapter for the Telegram Bot API
// using long polling.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/zulandar/pcremote/internal/logger"
	"github.com/zulandar/pcremote/internal/telegraph"
)

const (
	// DefaultAPIURL is the public Bot API endpoint.
	DefaultAPIURL = "https://api.telegram.org"
	// defaultPollTimeout is the long-poll wait passed to getUpdates.
	defaultPollTimeout = 30 * time.Second
	// baseBackoff is the initial wait after a failed poll.
	baseBackoff = 2 * time.Second
	// maxBackoff caps the exponential backoff between failed polls.
	maxBackoff = time.Minute
	// maxDownload is the Bot API getFile ceiling.
	maxDownload = 20 * 1024 * 1024
)

// Adapter implements telegraph.Adapter for Telegram.
type Adapter struct {
	http        *http.Client
	baseURL     string
	token       string
	chatID      string // default chat: the operator's private chat
	pollTimeout time.Duration
	baseBackoff time.Duration
	maxBackoff  time.Duration

	mu         sync.Mutex
	connected  bool
	closed     bool
	botUserID  string
	inbound    chan telegraph.InboundMessage
	cancelFunc context.CancelFunc
	done       chan struct{}
}

// AdapterOpts holds parameters for creating a Telegram Adapter.
type AdapterOpts struct {
	Token       string        // bot token from BotFather
	APIURL      string        // defaults to DefaultAPIURL
	ChatID      string        // default chat for messages without a ChannelID
	PollTimeout time.Duration // getUpdates long-poll wait; defaults to 30s
	// For testing: inject an HTTP client pointed at a fake server.
	HTTPClient *http.Client
}

// New creates a Telegram Adapter.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.Token == "" {
		return nil, fmt.Errorf("telegram: bot token is required")
	}
	if opts.APIURL == "" {
		opts.APIURL = DefaultAPIURL
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = defaultPollTimeout
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.PollTimeout + 30*time.Second}
	}
	return &Adapter{
		http:        client,
		baseURL:     strings.TrimRight(opts.APIURL, "/"),
		token:       opts.Token,
		chatID:      opts.ChatID,
		pollTimeout: opts.PollTimeout,
		baseBackoff: baseBackoff,
		maxBackoff:  maxBackoff,
		inbound:     make(chan telegraph.InboundMessage, 100),
	}, nil
}

// --- Bot API wire types ---

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after,omitempty"`
	} `json:"parameters,omitempty"`
}

// APIError is a Bot API call that returned ok=false.
type APIError struct {
	Method      string
	Code        int
	Description string
	RetryAfter  time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %d %s", e.Method, e.Code, e.Description)
}

type user struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot,omitempty"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type chat struct {
	ID int64 `json:"id"`
}

type document struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`
}

type photoSize struct {
	FileID   string `json:"file_id"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`
}

type message struct {
	MessageID int64       `json:"message_id"`
	From      *user       `json:"from,omitempty"`
	Chat      chat        `json:"chat"`
	Date      int64       `json:"date"`
	Text      string      `json:"text,omitempty"`
	Caption   string      `json:"caption,omitempty"`
	Document  *document   `json:"document,omitempty"`
	Video     *document   `json:"video,omitempty"`
	Photo     []photoSize `json:"photo,omitempty"`
}

type update struct {
	UpdateID int64    `json:"update_id"`
	Message  *message `json:"message,omitempty"`
}

type file struct {
	FileID   string `json:"file_id"`
	FileSize int64  `json:"file_size,omitempty"`
	FilePath string `json:"file_path,omitempty"`
}

type keyboardButton struct {
	Text string `json:"text"`
}

type replyKeyboard struct {
	Keyboard       [][]keyboardButton `json:"keyboard"`
	ResizeKeyboard bool               `json:"resize_keyboard"`
}

type sendMessageRequest struct {
	ChatID      string         `json:"chat_id"`
	Text        string         `json:"text"`
	ParseMode   string         `json:"parse_mode,omitempty"`
	ReplyMarkup *replyKeyboard `json:"reply_markup,omitempty"`
}

// --- Adapter ---

// Connect verifies the token with getMe and records the bot's user ID.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return fmt.Errorf("telegram: adapter already closed")
	}
	if a.connected {
		a.mu.Unlock()
		return nil
	}
	a.mu.Unlock()

	var me user
	if err := a.call(ctx, "getMe", nil, &me); err != nil {
		return fmt.Errorf("telegram: connect: %w", err)
	}
	logger.Info("telegram connected", "bot", me.Username, "id", me.ID)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.botUserID = strconv.FormatInt(me.ID, 10)
	a.connected = true
	return nil
}

// Listen starts the long-poll loop. The returned channel is closed by Close.
func (a *Adapter) Listen(ctx context.Context) (<-chan telegraph.InboundMessage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return nil, fmt.Errorf("telegram: not connected")
	}
	if a.cancelFunc != nil {
		return a.inbound, nil
	}
	pollCtx, cancel := context.WithCancel(ctx)
	a.cancelFunc = cancel
	a.done = make(chan struct{})
	go a.poll(pollCtx)
	return a.inbound, nil
}

// poll fetches updates until ctx is cancelled, backing off exponentially
// after failures.
func (a *Adapter) poll(ctx context.Context) {
	defer close(a.done)
	var offset int64
	failures := 0
	for {
		if ctx.Err() != nil {
			return
		}
		updates, err := a.getUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			wait := time.Duration(math.Pow(2, float64(failures))) * a.baseBackoff
			if wait > a.maxBackoff {
				wait = a.maxBackoff
			}
			failures++
			logger.Warn("telegram poll failed", "err", err, "retry_in", wait)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			continue
		}
		failures = 0
		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			msg, ok := a.convert(u)
			if !ok {
				continue
			}
			select {
			case a.inbound <- msg:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (a *Adapter) getUpdates(ctx context.Context, offset int64) ([]update, error) {
	params := url.Values{}
	params.Set("timeout", strconv.Itoa(int(a.pollTimeout.Seconds())))
	params.Set("allowed_updates", `["message"]`)
	if offset > 0 {
		params.Set("offset", strconv.FormatInt(offset, 10))
	}
	var updates []update
	if err := a.call(ctx, "getUpdates?"+params.Encode(), nil, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// convert maps a Bot API update to an InboundMessage. Updates without a
// message or sender are skipped.
func (a *Adapter) convert(u update) (telegraph.InboundMessage, bool) {
	m := u.Message
	if m == nil || m.From == nil {
		return telegraph.InboundMessage{}, false
	}
	a.mu.Lock()
	botID := a.botUserID
	a.mu.Unlock()
	userID := strconv.FormatInt(m.From.ID, 10)
	if userID == botID {
		return telegraph.InboundMessage{}, false
	}

	msg := telegraph.InboundMessage{
		Platform:  "telegram",
		ChannelID: strconv.FormatInt(m.Chat.ID, 10),
		UserID:    userID,
		UserName:  displayName(m.From),
		Text:      m.Text,
		Timestamp: time.Unix(m.Date, 0),
	}
	switch {
	case m.Document != nil:
		msg.Attachment = &telegraph.Attachment{ID: m.Document.FileID, Name: m.Document.FileName, Kind: telegraph.FileDocument, Size: m.Document.FileSize}
	case m.Video != nil:
		msg.Attachment = &telegraph.Attachment{ID: m.Video.FileID, Name: m.Video.FileName, Kind: telegraph.FileVideo, Size: m.Video.FileSize}
	case len(m.Photo) > 0:
		// Sizes are ascending; the last one is the original.
		p := m.Photo[len(m.Photo)-1]
		msg.Attachment = &telegraph.Attachment{ID: p.FileID, Kind: telegraph.FilePhoto, Size: p.FileSize}
	}
	if msg.Attachment != nil && msg.Text == "" {
		msg.Text = m.Caption
	}
	if msg.Text == "" && msg.Attachment == nil {
		return telegraph.InboundMessage{}, false
	}
	return msg, true
}

func displayName(u *user) string {
	first := strings.TrimSpace(u.FirstName)
	last := strings.TrimSpace(u.LastName)
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	case u.Username != "":
		return "@" + u.Username
	}
	return strconv.FormatInt(u.ID, 10)
}

// Send delivers msg. Long texts are split at the Telegram limit; the reply
// keyboard rides on the last piece. Rejected formatting falls back to plain
// text.
func (a *Adapter) Send(ctx context.Context, msg telegraph.OutboundMessage) error {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return fmt.Errorf("telegram: not connected")
	}
	a.mu.Unlock()

	chatID := msg.ChannelID
	if chatID == "" {
		chatID = a.chatID
	}
	if chatID == "" {
		return fmt.Errorf("telegram: no chat specified")
	}

	if msg.File != nil {
		if err := a.sendFile(ctx, chatID, msg.File); err != nil {
			return fmt.Errorf("telegram: send file: %w", err)
		}
		if msg.Text == "" {
			return nil
		}
	}

	chunks := telegraph.Chunk(msg.Text, telegraph.TelegramTextLimit)
	for i, text := range chunks {
		req := sendMessageRequest{ChatID: chatID, Text: text, ParseMode: string(msg.ParseMode)}
		if i == len(chunks)-1 && msg.Keyboard != nil {
			req.ReplyMarkup = buildKeyboard(msg.Keyboard)
		}
		if err := a.sendMessage(ctx, req); err != nil {
			return fmt.Errorf("telegram: send message: %w", err)
		}
	}
	return nil
}

func (a *Adapter) sendMessage(ctx context.Context, req sendMessageRequest) error {
	err := a.retryOnRateLimit(ctx, func() error {
		return a.call(ctx, "sendMessage", req, nil)
	})
	if apiErr, ok := err.(*APIError); ok && apiErr.Code == http.StatusBadRequest && req.ParseMode != "" {
		logger.Debug("telegram rejected formatting, resending as plain text", "err", apiErr.Description)
		req.ParseMode = ""
		return a.retryOnRateLimit(ctx, func() error {
			return a.call(ctx, "sendMessage", req, nil)
		})
	}
	return err
}

func buildKeyboard(rows [][]string) *replyKeyboard {
	kb := &replyKeyboard{Keyboard: make([][]keyboardButton, 0, len(rows)), ResizeKeyboard: true}
	for _, row := range rows {
		buttons := make([]keyboardButton, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, keyboardButton{Text: label})
		}
		kb.Keyboard = append(kb.Keyboard, buttons)
	}
	return kb
}

// sendFile uploads a local file with sendPhoto, sendVideo or sendDocument.
func (a *Adapter) sendFile(ctx context.Context, chatID string, f *telegraph.OutboundFile) error {
	method, field := "sendDocument", "document"
	switch f.Kind {
	case telegraph.FilePhoto:
		method, field = "sendPhoto", "photo"
	case telegraph.FileVideo:
		method, field = "sendVideo", "video"
	}

	fh, err := os.Open(f.Path)
	if err != nil {
		return err
	}
	defer fh.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("chat_id", chatID)
	if f.Caption != "" {
		_ = mw.WriteField("caption", f.Caption)
	}
	part, err := mw.CreateFormFile(field, filepath.Base(f.Path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, fh); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	return a.retryOnRateLimit(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.methodURL(method), bytes.NewReader(body.Bytes()))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return a.do(req, method, nil)
	})
}

// Download fetches an inbound attachment via getFile and writes it to dest.
func (a *Adapter) Download(ctx context.Context, att telegraph.Attachment, dest string) (int64, error) {
	var f file
	if err := a.call(ctx, "getFile?file_id="+url.QueryEscape(att.ID), nil, &f); err != nil {
		return 0, fmt.Errorf("telegram: get file: %w", err)
	}
	if f.FilePath == "" {
		return 0, fmt.Errorf("telegram: get file: missing file_path")
	}

	fileURL := fmt.Sprintf("%s/file/bot%s/%s", a.baseURL, a.token, strings.TrimLeft(f.FilePath, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("telegram: download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, fmt.Errorf("telegram: download: http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, io.LimitReader(resp.Body, maxDownload+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > maxDownload {
		err = fmt.Errorf("telegram: download: file exceeds %d bytes", maxDownload)
	}
	if err != nil {
		os.Remove(dest)
		return 0, err
	}
	return n, nil
}

// Close stops polling and closes the inbound channel.
func (a *Adapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.connected = false
	cancel, done := a.cancelFunc, a.done
	a.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	close(a.inbound)
	return nil
}

// BotUserID returns the bot's Telegram user ID (available after Connect).
func (a *Adapter) BotUserID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.botUserID
}

// --- HTTP plumbing ---

func (a *Adapter) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", a.baseURL, a.token, method)
}

// call invokes a Bot API method. A nil body sends a GET; result, when
// non-nil, receives the decoded result field.
func (a *Adapter) call(ctx context.Context, method string, body any, result any) error {
	httpMethod := http.MethodGet
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		httpMethod = http.MethodPost
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, httpMethod, a.methodURL(method), reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	name, _, _ := strings.Cut(method, "?")
	return a.do(req, name, result)
}

func (a *Adapter) do(req *http.Request, method string, result any) error {
	resp, err := a.http.Do(req)
	if err != nil {
		// The URL carries the token; keep it out of logs and replies.
		if uerr, ok := err.(*url.Error); ok {
			err = uerr.Err
		}
		return fmt.Errorf("%s: %w", method, err)
	}
	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("%s: read response: %w", method, err)
	}

	var out apiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("%s: http %d: %w", method, resp.StatusCode, err)
	}
	if !out.OK {
		apiErr := &APIError{Method: method, Code: out.ErrorCode, Description: out.Description}
		if apiErr.Code == 0 {
			apiErr.Code = resp.StatusCode
		}
		if out.Parameters != nil && out.Parameters.RetryAfter > 0 {
			apiErr.RetryAfter = time.Duration(out.Parameters.RetryAfter) * time.Second
		}
		return apiErr
	}
	if result != nil {
		if err := json.Unmarshal(out.Result, result); err != nil {
			return fmt.Errorf("%s: decode result: %w", method, err)
		}
	}
	return nil
}

// retryOnRateLimit calls fn and retries on 429 responses, waiting for the
// server's retry_after hint or an exponential backoff.
func (a *Adapter) retryOnRateLimit(ctx context.Context, fn func() error) error {
	const maxRetries = 3
	for attempt := 0; ; attempt++ {
		err := fn()
		apiErr, ok := err.(*APIError)
		if !ok || apiErr.Code != http.StatusTooManyRequests || attempt == maxRetries {
			return err
		}
		wait := apiErr.RetryAfter
		if wait <= 0 {
			wait = time.Duration(math.Pow(2, float64(attempt))) * a.baseBackoff
		}
		if wait > a.maxBackoff {
			wait = a.maxBackoff
		}
		logger.Warn("telegram rate limited", "attempt", attempt+1, "retry_in", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
