package statusapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zulandar/pcremote/internal/logger"
	"github.com/zulandar/pcremote/internal/models"
)

// eventBatch bounds how many new action rows one poll can emit.
const eventBatch = 50

// handleEvents streams newly recorded actions as server-sent events. Only
// rows written after the client connects are sent.
func (s *Server) handleEvents(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	ctx := c.Request.Context()
	var lastSeen uint
	if s.actions != nil {
		if rows, err := s.actions.Recent(ctx, 1); err == nil && len(rows) > 0 {
			lastSeen = rows[0].ID
		}
	}

	writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
	c.Writer.Flush()

	if s.actions == nil {
		return
	}

	poll := time.NewTicker(s.pollEvery)
	heartbeat := time.NewTicker(s.heartbeatEvery)
	defer poll.Stop()
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			writeSSE(c.Writer, "heartbeat", map[string]string{
				"timestamp": s.now().UTC().Format(time.RFC3339),
			})
			c.Writer.Flush()
		case <-poll.C:
			rows, err := s.actions.Recent(ctx, eventBatch)
			if err != nil {
				logger.Debug("status api: poll actions", "err", err)
				continue
			}
			fresh := newerThan(rows, lastSeen)
			if len(fresh) == 0 {
				continue
			}
			for _, r := range fresh {
				writeSSE(c.Writer, "action", toActionView(r))
			}
			lastSeen = fresh[len(fresh)-1].ID
			c.Writer.Flush()
		}
	}
}

// newerThan returns the rows with an ID above last, oldest first. Recent
// returns rows newest first.
func newerThan(rows []models.ActionLog, last uint) []models.ActionLog {
	var out []models.ActionLog
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].ID > last {
			out = append(out, rows[i])
		}
	}
	return out
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData)
}
