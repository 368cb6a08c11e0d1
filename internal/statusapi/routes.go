package statusapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zulandar/pcremote/internal/logger"
	"github.com/zulandar/pcremote/internal/models"
	"github.com/zulandar/pcremote/internal/state"
)

const (
	defaultActionLimit = 50
	maxActionLimit     = 500
)

// registerRoutes sets up all status routes on the Gin router.
func (s *Server) registerRoutes(router *gin.Engine) {
	router.GET("/healthz", s.handleHealth)

	api := router.Group("/api")
	api.GET("/status", s.handleStatus)
	api.GET("/tasks", s.handleTasks)
	api.GET("/actions", s.handleActions)
	api.GET("/events", s.handleEvents)

	if s.gatherer != nil {
		router.GET("/metrics", metricsHandler(s.gatherer))
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// SampleView is the latest resource sample.
type SampleView struct {
	At  time.Time `json:"at"`
	CPU float64   `json:"cpu_percent"`
	RAM float64   `json:"ram_percent"`
}

// StatusView is the body of GET /api/status.
type StatusView struct {
	Version       string           `json:"version"`
	StartedAt     time.Time        `json:"started_at"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Conversations int              `json:"conversations"`
	States        []state.Snapshot `json:"states"`
	LastSample    *SampleView      `json:"last_sample,omitempty"`
}

func (s *Server) handleStatus(c *gin.Context) {
	view := StatusView{
		Version:       s.version,
		StartedAt:     s.startedAt,
		UptimeSeconds: int64(s.now().Sub(s.startedAt).Seconds()),
		Conversations: s.store.Len(),
		States:        s.store.Snapshots(),
	}
	if s.samples != nil {
		if smp := s.samples.Samples(); len(smp) > 0 {
			last := smp[len(smp)-1]
			view.LastSample = &SampleView{At: last.At, CPU: last.CPU, RAM: last.RAM}
		}
	}
	c.JSON(http.StatusOK, view)
}

// TaskView is one scheduled task in GET /api/tasks.
type TaskView struct {
	ID              uint       `json:"id"`
	Command         string     `json:"command"`
	Kind            string     `json:"kind"`
	IntervalMinutes int        `json:"interval_minutes,omitempty"`
	CronSpec        string     `json:"cron_spec,omitempty"`
	RunCount        int        `json:"run_count"`
	LastRunAt       *time.Time `json:"last_run_at,omitempty"`
	NextRunAt       *time.Time `json:"next_run_at,omitempty"`
}

func (s *Server) handleTasks(c *gin.Context) {
	if s.tasks == nil {
		c.JSON(http.StatusOK, gin.H{"tasks": []TaskView{}})
		return
	}
	tasks, err := s.tasks.Tasks(c.Request.Context())
	if err != nil {
		logger.Warn("status api: list tasks", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list tasks"})
		return
	}
	views := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		v := TaskView{
			ID:              t.ID,
			Command:         t.Command,
			Kind:            t.Kind,
			IntervalMinutes: t.IntervalMinutes,
			CronSpec:        t.CronSpec,
			RunCount:        t.RunCount,
			LastRunAt:       t.LastRunAt,
		}
		if next, ok := s.tasks.Next(t.ID); ok {
			v.NextRunAt = &next
		}
		views = append(views, v)
	}
	c.JSON(http.StatusOK, gin.H{"tasks": views})
}

// ActionView is one action log row in GET /api/actions.
type ActionView struct {
	RequestID  string    `json:"request_id"`
	Principal  string    `json:"principal"`
	Platform   string    `json:"platform"`
	Action     string    `json:"action"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	At         time.Time `json:"at"`
}

func (s *Server) handleActions(c *gin.Context) {
	limit := defaultActionLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxActionLimit)
	}
	if s.actions == nil {
		c.JSON(http.StatusOK, gin.H{"actions": []ActionView{}})
		return
	}
	rows, err := s.actions.Recent(c.Request.Context(), limit)
	if err != nil {
		logger.Warn("status api: recent actions", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read action log"})
		return
	}
	views := make([]ActionView, 0, len(rows))
	for _, r := range rows {
		views = append(views, toActionView(r))
	}
	c.JSON(http.StatusOK, gin.H{"actions": views})
}

func toActionView(r models.ActionLog) ActionView {
	return ActionView{
		RequestID:  r.RequestID,
		Principal:  r.Principal,
		Platform:   r.Platform,
		Action:     r.Action,
		Outcome:    r.Outcome,
		Error:      r.Error,
		DurationMs: r.DurationMs,
		At:         r.CreatedAt,
	}
}
