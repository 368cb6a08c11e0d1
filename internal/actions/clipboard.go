package actions

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/zulandar/pcremote/internal/logger"
	"github.com/zulandar/pcremote/internal/models"
	"golang.design/x/clipboard"
	"gorm.io/gorm"
)

// Clipboard history limits.
const (
	MaxClipboardHistory  = 10
	MaxClipboardEntry    = 10000
	ClipboardWatchPeriod = 2 * time.Second
	maxWatchErrors       = 5
)

// ClipboardBackend reads and writes the system clipboard as text.
type ClipboardBackend interface {
	ReadText() (string, error)
	WriteText(text string) error
}

// SystemClipboard is the ClipboardBackend of the running desktop session.
type SystemClipboard struct {
	once sync.Once
	err  error
}

func (s *SystemClipboard) init() error {
	s.once.Do(func() { s.err = clipboard.Init() })
	if s.err != nil {
		return fmt.Errorf("actions: clipboard: %w", s.err)
	}
	return nil
}

// ReadText implements ClipboardBackend.
func (s *SystemClipboard) ReadText() (string, error) {
	if err := s.init(); err != nil {
		return "", err
	}
	return string(clipboard.Read(clipboard.FmtText)), nil
}

// WriteText implements ClipboardBackend.
func (s *SystemClipboard) WriteText(text string) error {
	if err := s.init(); err != nil {
		return err
	}
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

// Clipboard implements the clipboard menu: read, write, clear, a persisted
// history and a background watcher that records every copy.
type Clipboard struct {
	backend ClipboardBackend
	db      *gorm.DB

	watch     loop
	watchMu   sync.Mutex
	last      string
	errStreak int
}

// NewClipboard creates a Clipboard over backend with history stored in db.
func NewClipboard(backend ClipboardBackend, db *gorm.DB) (*Clipboard, error) {
	if backend == nil {
		return nil, fmt.Errorf("actions: clipboard: backend is required")
	}
	if db == nil {
		return nil, fmt.Errorf("actions: clipboard: db is required")
	}
	return &Clipboard{backend: backend, db: db}, nil
}

// Read shows the clipboard text.
func (c *Clipboard) Read(ctx context.Context) (string, error) {
	text, err := c.backend.ReadText()
	if err != nil {
		return "Pano okunamadı: " + err.Error(), nil
	}
	if strings.TrimSpace(text) == "" {
		return "*Pano:* Boş", nil
	}
	return "*Panoda:*\n```\n" + Truncate(text, 500, "") + "\n```", nil
}

// Write replaces the clipboard text and records it in the history.
func (c *Clipboard) Write(ctx context.Context, text string) (string, error) {
	if err := c.backend.WriteText(text); err != nil {
		return "Panoya yazılamadı: " + err.Error(), nil
	}
	if err := c.remember(ctx, text); err != nil {
		return "", err
	}
	return "Panoya yazıldı: " + Truncate(text, 50, "..."), nil
}

// Clear empties the clipboard.
func (c *Clipboard) Clear(ctx context.Context) (string, error) {
	if err := c.backend.WriteText(""); err != nil {
		return "Pano temizlenemedi: " + err.Error(), nil
	}
	return "Pano temizlendi.", nil
}

func hashText(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// remember adds text to the history: short texts are skipped, long ones
// truncated, duplicates ignored and only the newest entries kept.
func (c *Clipboard) remember(ctx context.Context, text string) error {
	if len([]rune(strings.TrimSpace(text))) < 2 {
		return nil
	}
	text = Truncate(text, MaxClipboardEntry, "... (kesildi)")
	hash := hashText(text)

	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.ClipboardEntry{}).Where("hash = ?", hash).Count(&n).Error; err != nil {
			return fmt.Errorf("actions: clipboard: lookup: %w", err)
		}
		if n > 0 {
			return nil
		}
		if err := tx.Create(&models.ClipboardEntry{Content: text, Hash: hash, CreatedAt: time.Now()}).Error; err != nil {
			return fmt.Errorf("actions: clipboard: save: %w", err)
		}
		var stale []uint
		if err := tx.Model(&models.ClipboardEntry{}).Order("created_at DESC, id DESC").
			Offset(MaxClipboardHistory).Pluck("id", &stale).Error; err != nil {
			return fmt.Errorf("actions: clipboard: trim: %w", err)
		}
		if len(stale) > 0 {
			if err := tx.Delete(&models.ClipboardEntry{}, stale).Error; err != nil {
				return fmt.Errorf("actions: clipboard: trim: %w", err)
			}
		}
		return nil
	})
}

// Entries returns the history, newest first.
func (c *Clipboard) Entries(ctx context.Context) ([]models.ClipboardEntry, error) {
	var out []models.ClipboardEntry
	err := c.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(MaxClipboardHistory).Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("actions: clipboard: history: %w", err)
	}
	return out, nil
}

// History renders the remembered entries.
func (c *Clipboard) History(ctx context.Context) (string, error) {
	entries, err := c.Entries(ctx)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "*Pano Geçmişi:* Boş", nil
	}
	var sb strings.Builder
	sb.WriteString("*Pano Geçmişi* (Son 10)\n\n")
	for i, e := range entries {
		preview := strings.ReplaceAll(Truncate(e.Content, 50, "..."), "\n", " ")
		fmt.Fprintf(&sb, "%d. %s\n   %s\n\n", i+1, preview, e.CreatedAt.Local().Format(trDateTime))
	}
	return sb.String(), nil
}

// Select copies history entry index (1-based) back to the clipboard.
func (c *Clipboard) Select(ctx context.Context, index int) (string, error) {
	entries, err := c.Entries(ctx)
	if err != nil {
		return "", err
	}
	if index < 1 || index > len(entries) {
		return fmt.Sprintf("Geçersiz index. 1-%d arası bir sayı girin.", len(entries)), nil
	}
	text := entries[index-1].Content
	if err := c.backend.WriteText(text); err != nil {
		return "Geçmişten seçim başarısız: " + err.Error(), nil
	}
	return fmt.Sprintf("Panoya yazıldı (Geçmiş #%d):\n%s", index, Truncate(text, 100, "...")), nil
}

// ClearHistory forgets every entry.
func (c *Clipboard) ClearHistory(ctx context.Context) (string, error) {
	if err := c.db.WithContext(ctx).Where("1 = 1").Delete(&models.ClipboardEntry{}).Error; err != nil {
		return "", fmt.Errorf("actions: clipboard: clear history: %w", err)
	}
	return "Pano geçmişi temizlendi.", nil
}

// StartWatch polls the clipboard and records every new text.
func (c *Clipboard) StartWatch() (string, error) {
	return c.startWatch(ClipboardWatchPeriod)
}

func (c *Clipboard) startWatch(period time.Duration) (string, error) {
	if c.watch.active() {
		return "Pano izleme zaten aktif.", nil
	}
	first, err := c.backend.ReadText()
	if err != nil {
		return "Pano izleme başlatılamadı: " + err.Error(), nil
	}
	c.watchMu.Lock()
	c.last, c.errStreak = first, 0
	c.watchMu.Unlock()

	if !c.watch.start(period, c.watchTick) {
		return "Pano izleme zaten aktif.", nil
	}
	return "Pano izleme başlatıldı. Her kopyalama işlemi geçmişe kaydedilecek.", nil
}

func (c *Clipboard) watchTick(ctx context.Context) bool {
	text, err := c.backend.ReadText()
	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	if err != nil {
		c.errStreak++
		logger.Warn("clipboard watch read failed", "err", err, "streak", c.errStreak)
		if c.errStreak >= maxWatchErrors {
			logger.Error("clipboard watch stopped after repeated errors", "errors", c.errStreak)
			c.errStreak = 0
			return false
		}
		return true
	}
	c.errStreak = 0
	if text != "" && text != c.last {
		c.last = text
		if err := c.remember(ctx, text); err != nil {
			logger.Warn("clipboard history save failed", "err", err)
		}
	}
	return true
}

// StopWatch stops the watcher.
func (c *Clipboard) StopWatch() string {
	if !c.watch.stop() {
		return "Pano izleme zaten pasif."
	}
	return "Pano izleme durduruldu."
}

// Watching reports whether the watcher runs.
func (c *Clipboard) Watching() bool { return c.watch.active() }
