package actions

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zulandar/pcremote/internal/models"
	"go.uber.org/goleak"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// database/sql keeps one opener goroutine per handle for its lifetime.
var ignoreSQLOpener = goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener")

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	// One connection so every query sees the same in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.ClipboardEntry{}, &models.AutomationTask{}))
	return db
}

type fakeClipboard struct {
	mu   sync.Mutex
	text string
	err  error
}

func (f *fakeClipboard) ReadText() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text, f.err
}

func (f *fakeClipboard) WriteText(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.text = text
	return nil
}

func (f *fakeClipboard) set(text string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text, f.err = text, err
}

func setupClipboard(t *testing.T) (*Clipboard, *fakeClipboard) {
	t.Helper()
	fb := &fakeClipboard{}
	c, err := NewClipboard(fb, openTestDB(t))
	require.NoError(t, err)
	return c, fb
}

func TestNewClipboard_RequiresDeps(t *testing.T) {
	_, err := NewClipboard(nil, nil)
	assert.Error(t, err)
	_, err = NewClipboard(&fakeClipboard{}, nil)
	assert.Error(t, err)
}

func TestClipboard_ReadWriteClear(t *testing.T) {
	c, fb := setupClipboard(t)
	ctx := context.Background()

	got, err := c.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "*Pano:* Boş", got)

	got, err = c.Write(ctx, "merhaba dünya")
	require.NoError(t, err)
	assert.Equal(t, "Panoya yazıldı: merhaba dünya", got)
	assert.Equal(t, "merhaba dünya", fb.text)

	got, err = c.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "*Panoda:*\n```\nmerhaba dünya\n```", got)

	got, err = c.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Pano temizlendi.", got)
	assert.Empty(t, fb.text)
}

func TestClipboard_HistoryDedupAndCap(t *testing.T) {
	c, _ := setupClipboard(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		_, err := c.Write(ctx, "entry "+string(rune('a'+i)))
		require.NoError(t, err)
	}
	_, err := c.Write(ctx, "entry l") // duplicate of the newest
	require.NoError(t, err)
	_, err = c.Write(ctx, "x") // too short to remember
	require.NoError(t, err)

	entries, err := c.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, MaxClipboardHistory)
	assert.Equal(t, "entry l", entries[0].Content)
	assert.Equal(t, "entry c", entries[len(entries)-1].Content)
}

func TestClipboard_LongEntryTruncated(t *testing.T) {
	c, _ := setupClipboard(t)
	ctx := context.Background()
	_, err := c.Write(ctx, strings.Repeat("a", MaxClipboardEntry+50))
	require.NoError(t, err)

	entries, err := c.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Content, "... (kesildi)"))
	assert.Len(t, entries[0].Content, MaxClipboardEntry+len("... (kesildi)"))
}

func TestClipboard_SelectAndClearHistory(t *testing.T) {
	c, fb := setupClipboard(t)
	ctx := context.Background()
	_, _ = c.Write(ctx, "first")
	_, _ = c.Write(ctx, "second")

	got, err := c.Select(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Panoya yazıldı (Geçmiş #2):\nfirst", got)
	assert.Equal(t, "first", fb.text)

	got, err = c.Select(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "Geçersiz index. 1-2 arası bir sayı girin.", got)

	got, err = c.ClearHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Pano geçmişi temizlendi.", got)

	got, err = c.History(ctx)
	require.NoError(t, err)
	assert.Equal(t, "*Pano Geçmişi:* Boş", got)
}

func TestClipboard_BackendErrorsBecomeReplies(t *testing.T) {
	c, fb := setupClipboard(t)
	fb.set("", errors.New("no display"))
	got, err := c.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Pano okunamadı: no display", got)
}

// --- watcher tests ---

func TestClipboard_WatchRecordsCopies(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent(), ignoreSQLOpener)
	c, fb := setupClipboard(t)
	ctx := context.Background()
	fb.set("initial", nil)

	got, err := c.startWatch(5 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "Pano izleme başlatıldı. Her kopyalama işlemi geçmişe kaydedilecek.", got)
	assert.True(t, c.Watching())

	got, err = c.startWatch(5 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "Pano izleme zaten aktif.", got)

	fb.set("copied text", nil)
	require.Eventually(t, func() bool {
		entries, err := c.Entries(ctx)
		return err == nil && len(entries) == 1 && entries[0].Content == "copied text"
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, "Pano izleme durduruldu.", c.StopWatch())
	assert.Equal(t, "Pano izleme zaten pasif.", c.StopWatch())
	assert.False(t, c.Watching())
}

func TestClipboard_WatchStopsAfterRepeatedErrors(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent(), ignoreSQLOpener)
	c, fb := setupClipboard(t)
	fb.set("seed", nil)
	_, err := c.startWatch(2 * time.Millisecond)
	require.NoError(t, err)

	fb.set("", errors.New("gone"))
	require.Eventually(t, func() bool { return !c.Watching() }, time.Second, 2*time.Millisecond)
	assert.Equal(t, "Pano izleme zaten pasif.", c.StopWatch())
}
