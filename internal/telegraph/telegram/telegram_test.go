package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zulandar/pcremote/internal/telegraph"
)

// Compile-time interface checks.
var (
	_ telegraph.Adapter        = (*Adapter)(nil)
	_ telegraph.FileDownloader = (*Adapter)(nil)
	_ telegraph.BotUserIDer    = (*Adapter)(nil)
)

const testToken = "123:abc"

// fakeAPI is a minimal Bot API server.
type fakeAPI struct {
	t   *testing.T
	srv *httptest.Server

	mu        sync.Mutex
	calls     []string
	sent      []sendMessageRequest
	uploads   []upload
	updates   []update
	rejectMD  bool // answer 400 to messages with a parse mode
	rateLimit int  // number of 429 responses before success
	files     map[string]string
}

type upload struct {
	method  string
	chatID  string
	caption string
	name    string
	body    string
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{t: t, files: map[string]string{}}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	if rest, ok := strings.CutPrefix(r.URL.Path, "/file/bot"+testToken+"/"); ok {
		f.mu.Lock()
		body, found := f.files[rest]
		f.mu.Unlock()
		if !found {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, body)
		return
	}

	method, ok := strings.CutPrefix(r.URL.Path, "/bot"+testToken+"/")
	if !ok {
		writeErr(w, http.StatusUnauthorized, "Unauthorized", 0)
		return
	}
	f.mu.Lock()
	f.calls = append(f.calls, method)
	f.mu.Unlock()

	switch method {
	case "getMe":
		writeOK(w, user{ID: 999, IsBot: true, Username: "pcremote_bot"})
	case "getUpdates":
		f.mu.Lock()
		pending := f.updates
		f.updates = nil
		f.mu.Unlock()
		if len(pending) == 0 {
			// Short wait instead of a real long poll.
			select {
			case <-r.Context().Done():
				return
			case <-time.After(20 * time.Millisecond):
			}
		}
		if pending == nil {
			pending = []update{}
		}
		writeOK(w, pending)
	case "sendMessage":
		var req sendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, err.Error(), 0)
			return
		}
		f.mu.Lock()
		if f.rateLimit > 0 {
			f.rateLimit--
			f.mu.Unlock()
			writeErr(w, http.StatusTooManyRequests, "Too Many Requests", 0)
			return
		}
		reject := f.rejectMD && req.ParseMode != ""
		if !reject {
			f.sent = append(f.sent, req)
		}
		f.mu.Unlock()
		if reject {
			writeErr(w, http.StatusBadRequest, "Bad Request: can't parse entities", 0)
			return
		}
		writeOK(w, message{MessageID: 1})
	case "sendPhoto", "sendVideo", "sendDocument":
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			writeErr(w, http.StatusBadRequest, err.Error(), 0)
			return
		}
		field := map[string]string{"sendPhoto": "photo", "sendVideo": "video", "sendDocument": "document"}[method]
		fh, hdr, err := r.FormFile(field)
		if err != nil {
			writeErr(w, http.StatusBadRequest, err.Error(), 0)
			return
		}
		data, _ := io.ReadAll(fh)
		fh.Close()
		f.mu.Lock()
		f.uploads = append(f.uploads, upload{
			method:  method,
			chatID:  r.FormValue("chat_id"),
			caption: r.FormValue("caption"),
			name:    hdr.Filename,
			body:    string(data),
		})
		f.mu.Unlock()
		writeOK(w, message{MessageID: 2})
	case "getFile":
		id := r.URL.Query().Get("file_id")
		writeOK(w, file{FileID: id, FilePath: "documents/" + id})
	default:
		writeErr(w, http.StatusNotFound, "Not Found", 0)
	}
}

func writeOK(w http.ResponseWriter, result any) {
	raw, _ := json.Marshal(result)
	json.NewEncoder(w).Encode(apiResponse{OK: true, Result: raw})
}

func writeErr(w http.ResponseWriter, code int, desc string, retryAfter int) {
	w.WriteHeader(code)
	resp := map[string]any{"ok": false, "error_code": code, "description": desc}
	if retryAfter > 0 {
		resp["parameters"] = map[string]int{"retry_after": retryAfter}
	}
	json.NewEncoder(w).Encode(resp)
}

func (f *fakeAPI) push(u update) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, u)
}

func (f *fakeAPI) sentMessages() []sendMessageRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sendMessageRequest(nil), f.sent...)
}

func newTestAdapter(t *testing.T, f *fakeAPI) *Adapter {
	t.Helper()
	a, err := New(AdapterOpts{
		Token:       testToken,
		APIURL:      f.srv.URL,
		ChatID:      "42",
		PollTimeout: time.Second,
		HTTPClient:  f.srv.Client(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a.baseBackoff = time.Millisecond
	a.maxBackoff = 5 * time.Millisecond
	t.Cleanup(func() { a.Close() })
	return a
}

func connected(t *testing.T, f *fakeAPI) *Adapter {
	t.Helper()
	a := newTestAdapter(t, f)
	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return a
}

func TestNew_RequiresToken(t *testing.T) {
	if _, err := New(AdapterOpts{}); err == nil {
		t.Fatal("expected error for missing token")
	}
}

func TestNew_Defaults(t *testing.T) {
	a, err := New(AdapterOpts{Token: testToken})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.baseURL != DefaultAPIURL {
		t.Errorf("baseURL = %q, want %q", a.baseURL, DefaultAPIURL)
	}
	if a.pollTimeout != defaultPollTimeout {
		t.Errorf("pollTimeout = %v, want %v", a.pollTimeout, defaultPollTimeout)
	}
}

func TestConnect_RecordsBotUserID(t *testing.T) {
	f := newFakeAPI(t)
	a := connected(t, f)
	if got := a.BotUserID(); got != "999" {
		t.Errorf("BotUserID = %q, want 999", got)
	}
	// Second Connect is a no-op.
	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("second Connect: %v", err)
	}
}

func TestConnect_BadToken(t *testing.T) {
	f := newFakeAPI(t)
	a, err := New(AdapterOpts{Token: "wrong", APIURL: f.srv.URL, HTTPClient: f.srv.Client()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = a.Connect(context.Background())
	if err == nil {
		t.Fatal("expected error for bad token")
	}
	if strings.Contains(err.Error(), "wrong") {
		t.Errorf("error leaks token: %v", err)
	}
}

func TestConnect_AfterClose(t *testing.T) {
	f := newFakeAPI(t)
	a := newTestAdapter(t, f)
	a.Close()
	if err := a.Connect(context.Background()); err == nil {
		t.Fatal("expected error connecting a closed adapter")
	}
}

func TestListen_NotConnected(t *testing.T) {
	f := newFakeAPI(t)
	a := newTestAdapter(t, f)
	if _, err := a.Listen(context.Background()); err == nil {
		t.Fatal("expected error listening before Connect")
	}
}

func TestListen_DeliversMessages(t *testing.T) {
	f := newFakeAPI(t)
	a := connected(t, f)

	f.push(update{UpdateID: 10, Message: &message{
		MessageID: 1,
		From:      &user{ID: 42, FirstName: "Ada", LastName: "Lovelace"},
		Chat:      chat{ID: 42},
		Date:      1700000000,
		Text:      "Ana Menü",
	}})
	f.push(update{UpdateID: 11, Message: &message{
		From:    &user{ID: 42, Username: "ada"},
		Chat:    chat{ID: 42},
		Date:    1700000001,
		Caption: "rapor",
		Document: &document{FileID: "doc1", FileName: "report.pdf", FileSize: 2048},
	}})

	inbound, err := a.Listen(context.Background())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	first := recv(t, inbound)
	if first.Platform != "telegram" || first.UserID != "42" || first.ChannelID != "42" {
		t.Errorf("first = %+v", first)
	}
	if first.UserName != "Ada Lovelace" {
		t.Errorf("UserName = %q", first.UserName)
	}
	if first.Text != "Ana Menü" {
		t.Errorf("Text = %q", first.Text)
	}
	if !first.Timestamp.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("Timestamp = %v", first.Timestamp)
	}

	second := recv(t, inbound)
	if second.Attachment == nil {
		t.Fatal("expected attachment")
	}
	if second.Attachment.Kind != telegraph.FileDocument || second.Attachment.Name != "report.pdf" || second.Attachment.Size != 2048 {
		t.Errorf("Attachment = %+v", second.Attachment)
	}
	if second.Text != "rapor" {
		t.Errorf("caption not used as text: %q", second.Text)
	}
	if second.UserName != "@ada" {
		t.Errorf("UserName = %q", second.UserName)
	}
}

func TestListen_Idempotent(t *testing.T) {
	f := newFakeAPI(t)
	a := connected(t, f)
	ch1, err := a.Listen(context.Background())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	ch2, err := a.Listen(context.Background())
	if err != nil {
		t.Fatalf("second Listen: %v", err)
	}
	if ch1 != ch2 {
		t.Error("second Listen returned a different channel")
	}
}

func TestClose_ClosesInbound(t *testing.T) {
	f := newFakeAPI(t)
	a := connected(t, f)
	inbound, err := a.Listen(context.Background())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	select {
	case _, ok := <-inbound:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("inbound not closed")
	}
	// Double close is safe.
	if err := a.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestConvert(t *testing.T) {
	a := &Adapter{botUserID: "999"}
	tests := []struct {
		name     string
		u        update
		wantOK   bool
		wantKind telegraph.FileKind
		wantID   string
	}{
		{name: "no message", u: update{UpdateID: 1}},
		{name: "no sender", u: update{Message: &message{Chat: chat{ID: 1}, Text: "x"}}},
		{name: "from self", u: update{Message: &message{From: &user{ID: 999}, Text: "x"}}},
		{name: "empty", u: update{Message: &message{From: &user{ID: 1}}}},
		{name: "text", u: update{Message: &message{From: &user{ID: 1}, Text: "merhaba"}}, wantOK: true},
		{
			name: "photo picks largest",
			u: update{Message: &message{From: &user{ID: 1}, Photo: []photoSize{
				{FileID: "small", Width: 90}, {FileID: "mid", Width: 320}, {FileID: "big", Width: 1280},
			}}},
			wantOK: true, wantKind: telegraph.FilePhoto, wantID: "big",
		},
		{
			name:   "video",
			u:      update{Message: &message{From: &user{ID: 1}, Video: &document{FileID: "v1", FileName: "clip.mp4"}}},
			wantOK: true, wantKind: telegraph.FileVideo, wantID: "v1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, ok := a.convert(tt.u)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if tt.wantID == "" {
				return
			}
			if msg.Attachment == nil {
				t.Fatal("expected attachment")
			}
			if msg.Attachment.Kind != tt.wantKind || msg.Attachment.ID != tt.wantID {
				t.Errorf("Attachment = %+v", msg.Attachment)
			}
		})
	}
}

func TestSend_NotConnected(t *testing.T) {
	f := newFakeAPI(t)
	a := newTestAdapter(t, f)
	if err := a.Send(context.Background(), telegraph.OutboundMessage{Text: "x"}); err == nil {
		t.Fatal("expected error sending before Connect")
	}
}

func TestSend_DefaultChatAndKeyboard(t *testing.T) {
	f := newFakeAPI(t)
	a := connected(t, f)
	err := a.Send(context.Background(), telegraph.OutboundMessage{
		Text:      "*Ana Menü*",
		ParseMode: telegraph.ParseMarkdown,
		Keyboard:  [][]string{{"Sistem", "Ekran"}, {"Geri"}},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	sent := f.sentMessages()
	if len(sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sent))
	}
	got := sent[0]
	if got.ChatID != "42" {
		t.Errorf("ChatID = %q, want default 42", got.ChatID)
	}
	if got.ParseMode != "Markdown" {
		t.Errorf("ParseMode = %q", got.ParseMode)
	}
	if got.ReplyMarkup == nil || !got.ReplyMarkup.ResizeKeyboard {
		t.Fatalf("ReplyMarkup = %+v", got.ReplyMarkup)
	}
	if len(got.ReplyMarkup.Keyboard) != 2 || got.ReplyMarkup.Keyboard[0][1].Text != "Ekran" {
		t.Errorf("Keyboard = %+v", got.ReplyMarkup.Keyboard)
	}
}

func TestSend_ExplicitChat(t *testing.T) {
	f := newFakeAPI(t)
	a := connected(t, f)
	if err := a.Send(context.Background(), telegraph.OutboundMessage{ChannelID: "77", Text: "hi"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := f.sentMessages()[0].ChatID; got != "77" {
		t.Errorf("ChatID = %q, want 77", got)
	}
}

func TestSend_NoChat(t *testing.T) {
	f := newFakeAPI(t)
	a, err := New(AdapterOpts{Token: testToken, APIURL: f.srv.URL, HTTPClient: f.srv.Client()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := a.Send(context.Background(), telegraph.OutboundMessage{Text: "x"}); err == nil {
		t.Fatal("expected error with no chat")
	}
}

func TestSend_ChunksLongText(t *testing.T) {
	f := newFakeAPI(t)
	a := connected(t, f)
	text := strings.Repeat("a", telegraph.TelegramTextLimit+100)
	err := a.Send(context.Background(), telegraph.OutboundMessage{Text: text, Keyboard: [][]string{{"Geri"}}})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	sent := f.sentMessages()
	if len(sent) != 2 {
		t.Fatalf("sent %d chunks, want 2", len(sent))
	}
	if sent[0].ReplyMarkup != nil {
		t.Error("keyboard should ride on the last chunk only")
	}
	if sent[1].ReplyMarkup == nil {
		t.Error("last chunk missing keyboard")
	}
}

func TestSend_FallsBackToPlainText(t *testing.T) {
	f := newFakeAPI(t)
	f.rejectMD = true
	a := connected(t, f)
	err := a.Send(context.Background(), telegraph.OutboundMessage{Text: "bad *markdown", ParseMode: telegraph.ParseMarkdown})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	sent := f.sentMessages()
	if len(sent) != 1 || sent[0].ParseMode != "" {
		t.Fatalf("sent = %+v, want one plain message", sent)
	}
}

func TestSend_RetriesRateLimit(t *testing.T) {
	f := newFakeAPI(t)
	f.rateLimit = 2
	a := connected(t, f)
	if err := a.Send(context.Background(), telegraph.OutboundMessage{Text: "x"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if n := len(f.sentMessages()); n != 1 {
		t.Errorf("sent %d, want 1", n)
	}
}

func TestSend_RateLimitExhausted(t *testing.T) {
	f := newFakeAPI(t)
	f.rateLimit = 10
	a := connected(t, f)
	err := a.Send(context.Background(), telegraph.OutboundMessage{Text: "x"})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}

func TestSend_Files(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shot.png")
	if err := os.WriteFile(path, []byte("PNGDATA"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		kind   telegraph.FileKind
		method string
	}{
		{telegraph.FilePhoto, "sendPhoto"},
		{telegraph.FileVideo, "sendVideo"},
		{telegraph.FileDocument, "sendDocument"},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			f := newFakeAPI(t)
			a := connected(t, f)
			err := a.Send(context.Background(), telegraph.OutboundMessage{
				File: &telegraph.OutboundFile{Path: path, Kind: tt.kind, Caption: "Ekran görüntüsü"},
			})
			if err != nil {
				t.Fatalf("Send: %v", err)
			}
			f.mu.Lock()
			defer f.mu.Unlock()
			if len(f.uploads) != 1 {
				t.Fatalf("uploads = %d, want 1", len(f.uploads))
			}
			up := f.uploads[0]
			if up.method != tt.method || up.chatID != "42" || up.caption != "Ekran görüntüsü" {
				t.Errorf("upload = %+v", up)
			}
			if up.name != "shot.png" || up.body != "PNGDATA" {
				t.Errorf("file = %q %q", up.name, up.body)
			}
			if len(f.sent) != 0 {
				t.Errorf("unexpected text messages: %+v", f.sent)
			}
		})
	}
}

func TestSend_FileWithText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	os.WriteFile(path, []byte("x"), 0o644)

	f := newFakeAPI(t)
	a := connected(t, f)
	err := a.Send(context.Background(), telegraph.OutboundMessage{
		Text:     "Dosya gönderildi",
		Keyboard: [][]string{{"Geri"}},
		File:     &telegraph.OutboundFile{Path: path, Kind: telegraph.FileDocument},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if n := len(f.sentMessages()); n != 1 {
		t.Errorf("text messages = %d, want 1", n)
	}
}

func TestSend_MissingFile(t *testing.T) {
	f := newFakeAPI(t)
	a := connected(t, f)
	err := a.Send(context.Background(), telegraph.OutboundMessage{
		File: &telegraph.OutboundFile{Path: filepath.Join(t.TempDir(), "nope"), Kind: telegraph.FileDocument},
	})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDownload(t *testing.T) {
	f := newFakeAPI(t)
	f.files["documents/doc1"] = "hello world"
	a := connected(t, f)

	dest := filepath.Join(t.TempDir(), "out.txt")
	n, err := a.Download(context.Background(), telegraph.Attachment{ID: "doc1"}, dest)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if n != int64(len("hello world")) {
		t.Errorf("n = %d", n)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello world" {
		t.Errorf("data = %q", data)
	}
}

func TestDownload_NotFound(t *testing.T) {
	f := newFakeAPI(t)
	a := connected(t, f)
	dest := filepath.Join(t.TempDir(), "out.txt")
	if _, err := a.Download(context.Background(), telegraph.Attachment{ID: "missing"}, dest); err == nil {
		t.Fatal("expected error")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("partial file left behind")
	}
}

func TestAPIError(t *testing.T) {
	err := &APIError{Method: "sendMessage", Code: 400, Description: "Bad Request"}
	if got := err.Error(); got != "sendMessage: 400 Bad Request" {
		t.Errorf("Error() = %q", got)
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		u    user
		want string
	}{
		{user{ID: 1, FirstName: "Ada", LastName: "Lovelace"}, "Ada Lovelace"},
		{user{ID: 1, FirstName: "Ada"}, "Ada"},
		{user{ID: 1, Username: "ada"}, "@ada"},
		{user{ID: 7}, "7"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.want), func(t *testing.T) {
			if got := displayName(&tt.u); got != tt.want {
				t.Errorf("displayName = %q, want %q", got, tt.want)
			}
		})
	}
}

func recv(t *testing.T, ch <-chan telegraph.InboundMessage) telegraph.InboundMessage {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatal("inbound closed")
		}
		return msg
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	return telegraph.InboundMessage{}
}
