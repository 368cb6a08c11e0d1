package telegraph

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Compile-time interface compliance checks.
var _ Adapter = (*MockAdapter)(nil)
var _ BotUserIDer = (*MockAdapter)(nil)
var _ FileDownloader = (*MockAdapter)(nil)

func TestMockAdapter_InterfaceCompliance(t *testing.T) {
	var a Adapter = NewMockAdapter()
	if a == nil {
		t.Fatal("MockAdapter should implement Adapter")
	}
}

func TestMockAdapter_ConnectAndClose(t *testing.T) {
	m := NewMockAdapter()
	ctx := context.Background()

	if err := m.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Connect after close should fail.
	if err := m.Connect(ctx); err == nil {
		t.Fatal("Connect after Close should fail")
	}

	// Double close should be safe.
	if err := m.Close(); err != nil {
		t.Fatalf("double Close should succeed: %v", err)
	}
}

func TestMockAdapter_ListenRequiresConnect(t *testing.T) {
	m := NewMockAdapter()
	ctx := context.Background()

	_, err := m.Listen(ctx)
	if err == nil {
		t.Fatal("Listen before Connect should fail")
	}
}

func TestMockAdapter_SendRequiresConnect(t *testing.T) {
	m := NewMockAdapter()
	ctx := context.Background()

	err := m.Send(ctx, OutboundMessage{Text: "hello"})
	if err == nil {
		t.Fatal("Send before Connect should fail")
	}
}

func TestMockAdapter_SimulateInbound(t *testing.T) {
	m := NewMockAdapter()
	ctx := context.Background()

	if err := m.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	ch, err := m.Listen(ctx)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	m.SimulateInbound(InboundMessage{
		Platform:  "test",
		ChannelID: "C123",
		UserID:    "U456",
		UserName:  "alice",
		Text:      "hello world",
	})

	select {
	case msg := <-ch:
		if msg.Text != "hello world" {
			t.Errorf("Text = %q, want %q", msg.Text, "hello world")
		}
		if msg.Platform != "test" {
			t.Errorf("Platform = %q, want %q", msg.Platform, "test")
		}
		if msg.UserName != "alice" {
			t.Errorf("UserName = %q, want %q", msg.UserName, "alice")
		}
		if msg.Timestamp.IsZero() {
			t.Error("Timestamp should be set automatically")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for inbound message")
	}
}

func TestMockAdapter_SendAndLastSent(t *testing.T) {
	m := NewMockAdapter()
	ctx := context.Background()

	if err := m.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	// No messages sent yet.
	_, ok := m.LastSent()
	if ok {
		t.Fatal("LastSent should return false when no messages sent")
	}
	if m.SentCount() != 0 {
		t.Errorf("SentCount = %d, want 0", m.SentCount())
	}

	// Send first message.
	msg1 := OutboundMessage{ChannelID: "C1", Text: "first"}
	if err := m.Send(ctx, msg1); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if m.SentCount() != 1 {
		t.Errorf("SentCount = %d, want 1", m.SentCount())
	}
	last, ok := m.LastSent()
	if !ok {
		t.Fatal("LastSent should return true")
	}
	if last.Text != "first" {
		t.Errorf("LastSent.Text = %q, want %q", last.Text, "first")
	}

	// Send second message.
	msg2 := OutboundMessage{ChannelID: "C1", Text: "second"}
	if err := m.Send(ctx, msg2); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if m.SentCount() != 2 {
		t.Errorf("SentCount = %d, want 2", m.SentCount())
	}
	last, _ = m.LastSent()
	if last.Text != "second" {
		t.Errorf("LastSent.Text = %q, want %q", last.Text, "second")
	}
}

func TestMockAdapter_AllSent(t *testing.T) {
	m := NewMockAdapter()
	ctx := context.Background()

	if err := m.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	m.Send(ctx, OutboundMessage{Text: "a"})
	m.Send(ctx, OutboundMessage{Text: "b"})
	m.Send(ctx, OutboundMessage{Text: "c"})

	all := m.AllSent()
	if len(all) != 3 {
		t.Fatalf("AllSent len = %d, want 3", len(all))
	}
	if all[0].Text != "a" || all[1].Text != "b" || all[2].Text != "c" {
		t.Errorf("AllSent = %v", all)
	}

	// Verify returned slice is a copy (modifying it doesn't affect internal state).
	all[0].Text = "modified"
	orig := m.AllSent()
	if orig[0].Text != "a" {
		t.Error("AllSent should return a copy")
	}
}

func TestMockAdapter_Download(t *testing.T) {
	m := NewMockAdapter()
	ctx := context.Background()
	m.SetFile("F1", []byte("hello"))

	dest := filepath.Join(t.TempDir(), "a.txt")
	n, err := m.Download(ctx, Attachment{ID: "F1", Kind: FileDocument}, dest)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if n != 5 {
		t.Errorf("n = %d, want 5", n)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("content = %q", data)
	}

	if _, err := m.Download(ctx, Attachment{ID: "missing"}, dest); err == nil {
		t.Error("expected error for unknown file")
	}
}

func TestMockAdapter_SendErrorStillRecords(t *testing.T) {
	m := NewMockAdapter()
	ctx := context.Background()
	if err := m.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	m.SetSendError(errors.New("blocked"))

	if err := m.Send(ctx, OutboundMessage{Text: "x"}); err == nil {
		t.Fatal("expected send error")
	}
	if m.SentCount() != 1 {
		t.Errorf("SentCount = %d, want 1", m.SentCount())
	}
}

func TestMockAdapter_SendWithKeyboardAndFile(t *testing.T) {
	m := NewMockAdapter()
	ctx := context.Background()

	if err := m.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	msg := OutboundMessage{
		ChannelID: "C1",
		Text:      "Ana Menü",
		ParseMode: ParseMarkdown,
		Keyboard:  [][]string{{"Sistem Bilgisi", "Güç Yönetimi"}},
		File:      &OutboundFile{Path: "/tmp/shot.png", Kind: FilePhoto, Caption: "shot"},
	}
	if err := m.Send(ctx, msg); err != nil {
		t.Fatalf("Send: %v", err)
	}

	last, ok := m.LastSent()
	if !ok {
		t.Fatal("expected sent message")
	}
	if len(last.Keyboard) != 1 || len(last.Keyboard[0]) != 2 {
		t.Fatalf("Keyboard = %v", last.Keyboard)
	}
	if last.File == nil || last.File.Kind != FilePhoto {
		t.Errorf("File = %+v", last.File)
	}

	m.Reset()
	if m.SentCount() != 0 {
		t.Errorf("SentCount after Reset = %d", m.SentCount())
	}
}

func TestMockAdapter_CloseClosesInbound(t *testing.T) {
	m := NewMockAdapter()
	ctx := context.Background()

	if err := m.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	ch, err := m.Listen(ctx)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Channel should be closed.
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("channel should be closed after Close()")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}
