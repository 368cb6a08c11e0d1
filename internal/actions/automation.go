package actions

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/zulandar/pcremote/internal/logger"
	"github.com/zulandar/pcremote/internal/models"
	"gorm.io/gorm"
)

// ErrTaskNotFound is returned when a task id does not exist.
var ErrTaskNotFound = errors.New("task not found")

// cronParser accepts 5-field expressions with an optional leading seconds
// field and the @every/@daily descriptors.
var cronParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// onceSchedule fires a single time at a fixed instant.
type onceSchedule struct{ at time.Time }

func (s onceSchedule) Next(t time.Time) time.Time {
	if t.Before(s.at) {
		return s.at
	}
	return time.Time{}
}

// ParseTaskInput splits "command|number".
func ParseTaskInput(text string) (string, int, bool) {
	parts := strings.Split(text, "|")
	if len(parts) != 2 {
		return "", 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return "", 0, false
	}
	return strings.TrimSpace(parts[0]), n, true
}

// TaskRunFunc receives the output of every task run.
type TaskRunFunc func(task models.AutomationTask, output string)

// Automation persists operator tasks and runs them on a cron scheduler.
// Commands go through the same allow-list as interactive commands.
type Automation struct {
	db       *gorm.DB
	programs *Programs
	cron     *cron.Cron
	onRun    TaskRunFunc

	mu      sync.Mutex
	entries map[uint]cron.EntryID
	started bool
	now     func() time.Time
}

// NewAutomation creates an Automation. onRun may be nil.
func NewAutomation(db *gorm.DB, programs *Programs, onRun TaskRunFunc) (*Automation, error) {
	if db == nil {
		return nil, fmt.Errorf("actions: automation: db is required")
	}
	if programs == nil {
		return nil, fmt.Errorf("actions: automation: programs is required")
	}
	return &Automation{
		db:       db,
		programs: programs,
		cron:     cron.New(cron.WithParser(cronParser)),
		onRun:    onRun,
		entries:  make(map[uint]cron.EntryID),
		now:      time.Now,
	}, nil
}

// Start loads active tasks and starts the scheduler. One-shot tasks whose
// time passed while the agent was down are marked inactive.
func (a *Automation) Start(ctx context.Context) error {
	var tasks []models.AutomationTask
	if err := a.db.WithContext(ctx).Where("active = ?", true).Order("id").Find(&tasks).Error; err != nil {
		return fmt.Errorf("actions: automation: load: %w", err)
	}
	for _, t := range tasks {
		if t.Kind == models.TaskOnce && t.RunAt != nil && !t.RunAt.After(a.now()) {
			if err := a.db.WithContext(ctx).Model(&t).Update("active", false).Error; err != nil {
				return fmt.Errorf("actions: automation: expire task %d: %w", t.ID, err)
			}
			continue
		}
		if err := a.schedule(t); err != nil {
			logger.Warn("skipping unschedulable task", "id", t.ID, "err", err)
		}
	}
	a.mu.Lock()
	a.started = true
	a.mu.Unlock()
	a.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for running jobs.
func (a *Automation) Stop() {
	a.mu.Lock()
	started := a.started
	a.started = false
	a.mu.Unlock()
	if started {
		<-a.cron.Stop().Done()
	}
}

func (a *Automation) scheduleFor(t models.AutomationTask) (cron.Schedule, error) {
	switch t.Kind {
	case models.TaskOnce:
		if t.RunAt == nil {
			return nil, fmt.Errorf("actions: automation: task %d has no run time", t.ID)
		}
		return onceSchedule{at: *t.RunAt}, nil
	case models.TaskRecurring:
		if t.IntervalMinutes <= 0 {
			return nil, fmt.Errorf("actions: automation: task %d has no interval", t.ID)
		}
		return cron.Every(time.Duration(t.IntervalMinutes) * time.Minute), nil
	case models.TaskCron:
		return cronParser.Parse(t.CronSpec)
	}
	return nil, fmt.Errorf("actions: automation: unknown task kind %q", t.Kind)
}

func (a *Automation) schedule(t models.AutomationTask) error {
	sched, err := a.scheduleFor(t)
	if err != nil {
		return err
	}
	id := t.ID
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries[id] = a.cron.Schedule(sched, cron.FuncJob(func() { a.run(id) }))
	return nil
}

func (a *Automation) run(id uint) {
	ctx, cancel := context.WithTimeout(context.Background(), CommandTimeout+5*time.Second)
	defer cancel()

	var t models.AutomationTask
	if err := a.db.WithContext(ctx).First(&t, id).Error; err != nil {
		logger.Warn("scheduled task vanished", "id", id, "err", err)
		return
	}
	out, err := a.programs.RunCommand(ctx, t.Command)
	if err != nil {
		out = "Görev çalıştırılamadı: " + err.Error()
	}
	now := a.now()
	updates := map[string]any{
		"last_run_at": now,
		"last_result": Truncate(out, 2000, "..."),
		"run_count":   gorm.Expr("run_count + 1"),
	}
	if t.Kind == models.TaskOnce {
		updates["active"] = false
		a.mu.Lock()
		delete(a.entries, id)
		a.mu.Unlock()
	}
	if err := a.db.WithContext(ctx).Model(&t).Updates(updates).Error; err != nil {
		logger.Warn("recording task run failed", "id", id, "err", err)
	}
	if a.onRun != nil {
		a.onRun(t, out)
	}
}

func (a *Automation) add(ctx context.Context, t models.AutomationTask) (models.AutomationTask, string, error) {
	if err := a.programs.Check(t.Command); err != nil {
		var be *BlockedError
		if errors.As(err, &be) {
			return t, be.Reason, nil
		}
		return t, "", err
	}
	if _, err := a.scheduleFor(t); err != nil {
		return t, "Görev zamanlanamadı. Cron formatı hatalı olabilir.", nil
	}
	t.Active = true
	t.CreatedAt = a.now()
	if err := a.db.WithContext(ctx).Create(&t).Error; err != nil {
		return t, "", fmt.Errorf("actions: automation: save: %w", err)
	}
	if err := a.schedule(t); err != nil {
		return t, "", err
	}
	return t, "", nil
}

// AddOnce runs command once after minutes.
func (a *Automation) AddOnce(ctx context.Context, command string, minutes int) (string, error) {
	if minutes < 0 {
		return "Geçersiz süre.", nil
	}
	// A zero delay still needs an instant the scheduler has not passed yet.
	at := a.now().Add(max(time.Duration(minutes)*time.Minute, time.Second))
	t, msg, err := a.add(ctx, models.AutomationTask{Command: command, Kind: models.TaskOnce, RunAt: &at})
	if msg != "" || err != nil {
		return msg, err
	}
	return fmt.Sprintf("Görev zamanlandı (ID: %d)\nKomut: %s\nZaman: %s (%d dakika sonra)",
		t.ID, command, at.Local().Format(trDateTime), minutes), nil
}

// AddRecurring runs command every interval minutes.
func (a *Automation) AddRecurring(ctx context.Context, command string, interval int) (string, error) {
	if interval < 1 {
		return "Geçersiz süre. Tekrar aralığı en az 1 dakika olmalı.", nil
	}
	t, msg, err := a.add(ctx, models.AutomationTask{Command: command, Kind: models.TaskRecurring, IntervalMinutes: interval})
	if msg != "" || err != nil {
		return msg, err
	}
	return fmt.Sprintf("Tekrarlı görev eklendi (ID: %d)\nKomut: %s\nAralık: her %d dakikada bir", t.ID, command, interval), nil
}

// AddCron runs command on a cron expression.
func (a *Automation) AddCron(ctx context.Context, command, spec string) (string, error) {
	spec = strings.TrimSpace(spec)
	t, msg, err := a.add(ctx, models.AutomationTask{Command: command, Kind: models.TaskCron, CronSpec: spec})
	if msg != "" || err != nil {
		return msg, err
	}
	return fmt.Sprintf("Görev zamanlandı (ID: %d)\nKomut: %s\nZaman: %s", t.ID, command, spec), nil
}

// Tasks returns the active tasks ordered by id.
func (a *Automation) Tasks(ctx context.Context) ([]models.AutomationTask, error) {
	var tasks []models.AutomationTask
	if err := a.db.WithContext(ctx).Where("active = ?", true).Order("id").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("actions: automation: list: %w", err)
	}
	return tasks, nil
}

// Next returns the next fire time of a scheduled task.
func (a *Automation) Next(id uint) (time.Time, bool) {
	a.mu.Lock()
	entry, ok := a.entries[id]
	a.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	e := a.cron.Entry(entry)
	if !e.Valid() {
		return time.Time{}, false
	}
	if e.Next.IsZero() {
		// The scheduler fills Next only once running.
		next := e.Schedule.Next(a.now())
		return next, !next.IsZero()
	}
	return e.Next, true
}

// List renders the active tasks.
func (a *Automation) List(ctx context.Context) (string, error) {
	tasks, err := a.Tasks(ctx)
	if err != nil {
		return "", err
	}
	if len(tasks) == 0 {
		return "Zamanlanmış görev bulunmuyor.", nil
	}
	var sb strings.Builder
	sb.WriteString("*Zamanlanmış Görevler*\n\n")
	for _, t := range tasks {
		fmt.Fprintf(&sb, "%d. *%s*\n", t.ID, t.Command)
		switch t.Kind {
		case models.TaskRecurring:
			fmt.Fprintf(&sb, "   Tekrar: her %d dakika\n", t.IntervalMinutes)
		case models.TaskCron:
			fmt.Fprintf(&sb, "   Cron: `%s`\n", t.CronSpec)
		}
		next := "Bilinmiyor"
		if at, ok := a.Next(t.ID); ok {
			next = at.Local().Format(trDateTime)
		}
		fmt.Fprintf(&sb, "   Sonraki Çalışma: %s\n", next)
		if t.RunCount > 0 {
			fmt.Fprintf(&sb, "   Çalışma Sayısı: %d\n", t.RunCount)
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// Remove deletes task id and unschedules it.
func (a *Automation) Remove(ctx context.Context, id uint) (string, error) {
	res := a.db.WithContext(ctx).Model(&models.AutomationTask{}).
		Where("id = ? AND active = ?", id, true).Update("active", false)
	if res.Error != nil {
		return "", fmt.Errorf("actions: automation: remove: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Sprintf("Görev bulunamadı: %d", id), nil
	}
	a.unschedule(id)
	return fmt.Sprintf("Görev iptal edildi: %d", id), nil
}

func (a *Automation) unschedule(id uint) {
	a.mu.Lock()
	entry, ok := a.entries[id]
	delete(a.entries, id)
	a.mu.Unlock()
	if ok {
		a.cron.Remove(entry)
	}
}

// CancelAll deactivates every task.
func (a *Automation) CancelAll(ctx context.Context) (string, error) {
	res := a.db.WithContext(ctx).Model(&models.AutomationTask{}).Where("active = ?", true).Update("active", false)
	if res.Error != nil {
		return "", fmt.Errorf("actions: automation: cancel all: %w", res.Error)
	}
	a.mu.Lock()
	ids := make([]uint, 0, len(a.entries))
	for id := range a.entries {
		ids = append(ids, id)
	}
	a.mu.Unlock()
	for _, id := range ids {
		a.unschedule(id)
	}
	return fmt.Sprintf("%d görev iptal edildi.", res.RowsAffected), nil
}

// CronHelp explains the cron expression format.
func CronHelp() string {
	return "*Cron Format Yardımı*\n\n" +
		"Cron formatı: `* * * * * *`\n" +
		"               ┬ ┬ ┬ ┬ ┬ ┬\n" +
		"               │ │ │ │ │ │\n" +
		"               │ │ │ │ │ └─ gün (haftanın) (0-7, 0/7=Pazar)\n" +
		"               │ │ │ │ └─── ay (1-12)\n" +
		"               │ │ │ └───── gün (ayın) (1-31)\n" +
		"               │ │ └─────── saat (0-23)\n" +
		"               │ └───────── dakika (0-59)\n" +
		"               └─────────── saniye (0-59, opsiyonel)\n\n" +
		"**Örnekler:**\n" +
		"• Her gün saat 09:00: `0 9 * * *`\n" +
		"• Her saat başı: `0 * * * *`\n" +
		"• Her 5 dakikada: `*/5 * * * *`\n" +
		"• Pazartesi saat 08:00: `0 8 * * 1`\n" +
		"• Her gece yarısı: `0 0 * * *`\n"
}
