package actions

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/zulandar/pcremote/internal/logger"
)

// Activity sampling defaults.
const (
	ActivityInterval = 30 * time.Second
	MaxActivityLog   = 100
)

// WindowActivity is one sample of the foreground window.
type WindowActivity struct {
	At    time.Time
	Title string
	Owner string
}

// ParseActiveWindow reads the title= and owner= lines of the active-window
// command.
func ParseActiveWindow(out string) (WindowActivity, bool) {
	var w WindowActivity
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "title="):
			w.Title = strings.TrimPrefix(line, "title=")
		case strings.HasPrefix(line, "owner="):
			w.Owner = strings.TrimPrefix(line, "owner=")
		}
	}
	return w, w.Title != "" || w.Owner != ""
}

// Activity records the foreground window periodically.
type Activity struct {
	inv      *Invoker
	interval time.Duration
	sampler  loop

	mu  sync.Mutex
	log []WindowActivity
	now func() time.Time
}

// NewActivity creates an Activity sampling every interval.
func NewActivity(inv *Invoker, interval time.Duration) (*Activity, error) {
	if inv == nil {
		return nil, fmt.Errorf("actions: activity: invoker is required")
	}
	if interval <= 0 {
		interval = ActivityInterval
	}
	return &Activity{inv: inv, interval: interval, now: time.Now}, nil
}

func (a *Activity) current(ctx context.Context) (WindowActivity, bool) {
	out, err := a.inv.Output(ctx, CmdActiveWindow, nil)
	if err != nil {
		logger.Debug("active window probe failed", "err", err)
		return WindowActivity{}, false
	}
	w, ok := ParseActiveWindow(out)
	w.At = a.now()
	return w, ok
}

func (a *Activity) record(w WindowActivity) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.log = append(a.log, w)
	if len(a.log) > MaxActivityLog {
		a.log = a.log[len(a.log)-MaxActivityLog:]
	}
}

// Start begins sampling.
func (a *Activity) Start() string {
	ok := a.sampler.start(a.interval, func(ctx context.Context) bool {
		if w, ok := a.current(ctx); ok {
			a.record(w)
		}
		return true
	})
	if !ok {
		return "İzleme zaten aktif."
	}
	return "Aktivite izleme başlatıldı."
}

// Stop ends sampling.
func (a *Activity) Stop() string {
	if !a.sampler.stop() {
		return "İzleme zaten durmuş."
	}
	return "Aktivite izleme durduruldu."
}

// Running reports whether sampling is active.
func (a *Activity) Running() bool { return a.sampler.active() }

// Entries returns a copy of the log, oldest first.
func (a *Activity) Entries() []WindowActivity {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]WindowActivity(nil), a.log...)
}

// Report shows the ten most recent samples.
func (a *Activity) Report() string {
	entries := a.Entries()
	if len(entries) == 0 {
		return "Henüz aktivite kaydı yok. Önce izlemeyi başlatın."
	}
	state := "Durmuş"
	if a.Running() {
		state = "Aktif"
	}
	var sb strings.Builder
	sb.WriteString("*Aktivite Raporu*\n\n")
	fmt.Fprintf(&sb, "Toplam Kayıt: %d\n", len(entries))
	fmt.Fprintf(&sb, "İzleme Durumu: %s\n\n", state)
	sb.WriteString("*Son 10 Aktivite:*\n\n")
	for i := 0; i < 10 && i < len(entries); i++ {
		e := entries[len(entries)-1-i]
		fmt.Fprintf(&sb, "%d. [%s] %s\n", i+1, e.At.Local().Format("15:04:05"), e.Title)
		fmt.Fprintf(&sb, "   Program: %s\n\n", e.Owner)
	}
	return sb.String()
}

// Clear forgets the log.
func (a *Activity) Clear() string {
	a.mu.Lock()
	a.log = nil
	a.mu.Unlock()
	return "Aktivite geçmişi temizlendi."
}

// Current describes the foreground window right now.
func (a *Activity) Current(ctx context.Context) (string, error) {
	w, ok := a.current(ctx)
	if !ok {
		return "Aktif pencere bulunamadı.", nil
	}
	return fmt.Sprintf("*Şu Anki Aktivite*\n\n*Pencere:* %s\n*Program:* %s\n", w.Title, w.Owner), nil
}
