package telegraph

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/zulandar/pcremote/internal/logger"
)

// Queue defaults.
const (
	DefaultLaneDepth = 32
	DefaultLaneIdle  = 5 * time.Minute
)

// HandleFunc processes one inbound message.
type HandleFunc func(ctx context.Context, msg InboundMessage)

// Queue runs messages from the same sender strictly one after another
// while different senders proceed in parallel. Each sender gets a lane
// goroutine that exits after sitting idle.
type Queue struct {
	handle HandleFunc
	depth  int
	idle   time.Duration
	out    io.Writer

	mu    sync.Mutex
	lanes map[string]chan InboundMessage
	wg    sync.WaitGroup
}

// QueueOpts holds parameters for creating a Queue.
type QueueOpts struct {
	Handle HandleFunc
	Depth  int           // per-sender buffer; defaults to DefaultLaneDepth
	Idle   time.Duration // lane lifetime without messages; defaults to DefaultLaneIdle
	Out    io.Writer     // defaults to os.Stdout
}

// NewQueue creates a Queue.
func NewQueue(opts QueueOpts) (*Queue, error) {
	if opts.Handle == nil {
		return nil, fmt.Errorf("telegraph: queue: handle func is required")
	}
	if opts.Depth <= 0 {
		opts.Depth = DefaultLaneDepth
	}
	if opts.Idle <= 0 {
		opts.Idle = DefaultLaneIdle
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &Queue{
		handle: opts.Handle,
		depth:  opts.Depth,
		idle:   opts.Idle,
		out:    opts.Out,
		lanes:  make(map[string]chan InboundMessage),
	}, nil
}

// Run pumps inbound into per-sender lanes until ctx is cancelled or inbound
// is closed, then waits for in-flight messages to finish.
func (q *Queue) Run(ctx context.Context, inbound <-chan InboundMessage) error {
	defer q.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-inbound:
			if !ok {
				fmt.Fprintf(q.out, "telegraph: queue: inbound channel closed\n")
				return nil
			}
			q.Enqueue(ctx, msg)
		}
	}
}

// Enqueue appends msg to its sender's lane. A full lane drops the message.
func (q *Queue) Enqueue(ctx context.Context, msg InboundMessage) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	lane, ok := q.lanes[msg.UserID]
	if !ok {
		lane = make(chan InboundMessage, q.depth)
		q.lanes[msg.UserID] = lane
		q.wg.Add(1)
		go q.drain(ctx, msg.UserID, lane)
	}
	select {
	case lane <- msg:
		return true
	default:
		logger.Warn("sender queue full, message dropped", "user", msg.UserID)
		return false
	}
}

// Lanes returns the number of live sender lanes.
func (q *Queue) Lanes() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lanes)
}

func (q *Queue) drain(ctx context.Context, key string, lane chan InboundMessage) {
	defer q.wg.Done()
	timer := time.NewTimer(q.idle)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			q.remove(key)
			return
		case msg := <-lane:
			q.handle(ctx, msg)
			timer.Reset(q.idle)
		case <-timer.C:
			// Enqueue sends under q.mu, so an empty lane seen here stays empty.
			q.mu.Lock()
			if len(lane) == 0 {
				delete(q.lanes, key)
				q.mu.Unlock()
				return
			}
			q.mu.Unlock()
			timer.Reset(q.idle)
		}
	}
}

func (q *Queue) remove(key string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.lanes, key)
}
