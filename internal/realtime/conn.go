package realtime

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"restaurant-ops/internal/domain"
	"restaurant-ops/internal/logger"
)

const writeTimeout = 5 * time.Second

// Conn is one live client connection. A single writer goroutine drains the
// bounded outbound queue, so broadcasts never block on a slow peer: when the
// queue is full the frame is dropped for that recipient only.
type Conn struct {
	id       string
	identity domain.Identity

	nc        net.Conn
	out       chan []byte
	done      chan struct{}
	closing   chan struct{}
	once      sync.Once
	drainOnce sync.Once

	lastActivity atomic.Int64 // unix nanos of the last inbound application message

	mu       sync.Mutex
	channels map[string]struct{}

	lg *logger.Logger
}

func newConn(nc net.Conn, queueSize int, lg *logger.Logger) *Conn {
	c := &Conn{
		id:       uuid.NewString(),
		nc:       nc,
		out:      make(chan []byte, queueSize),
		done:     make(chan struct{}),
		closing:  make(chan struct{}),
		channels: make(map[string]struct{}),
	}
	c.lg = lg.With(map[string]any{"conn_id": c.id})
	c.Touch()
	go c.writeLoop()
	return c
}

func (c *Conn) writeLoop() {
	for {
		select {
		case b := <-c.out:
			if !c.write(b) {
				return
			}
		case <-c.closing:
			// Flush whatever is queued, then tear down.
			for {
				select {
				case b := <-c.out:
					if !c.write(b) {
						return
					}
				default:
					c.Close()
					return
				}
			}
		case <-c.done:
			return
		}
	}
}

func (c *Conn) write(b []byte) bool {
	_ = c.nc.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := c.nc.Write(b); err != nil {
		c.lg.Debug("write_failed", map[string]any{"reason": err.Error()})
		c.Close()
		return false
	}
	return true
}

// Send enqueues one outbound frame without blocking. Returns false when the
// frame was dropped (closed connection, full queue, or marshal failure).
func (c *Conn) Send(typ string, data any) bool {
	if c.Closed() {
		return false
	}
	b, err := EncodeFrame(typ, data)
	if err != nil {
		c.lg.Error("encode_frame_failed", err, map[string]any{"type": typ})
		return false
	}
	select {
	case c.out <- b:
		return true
	default:
		c.lg.Debug("outbound_queue_full", map[string]any{"type": typ, "user_id": c.identity.UserID})
		return false
	}
}

// Close is idempotent and immediate.
func (c *Conn) Close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.nc.Close()
	})
}

// CloseAfterDrain asks the writer to flush already-queued frames and then
// close. Frames enqueued after the call may not be delivered. Idempotent.
func (c *Conn) CloseAfterDrain() {
	c.drainOnce.Do(func() { close(c.closing) })
}

func (c *Conn) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Conn) ID() string                { return c.id }
func (c *Conn) Identity() domain.Identity { return c.identity }

// Touch refreshes the activity timestamp; called for every inbound
// application message, not for transport-level traffic.
func (c *Conn) Touch() {
	c.lastActivity.Store(time.Now().UnixNano())
}

func (c *Conn) LastActivity() time.Time {
	return time.Unix(0, c.lastActivity.Load())
}

func (c *Conn) subscribe(channel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channels[channel] = struct{}{}
}

func (c *Conn) unsubscribe(channel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.channels, channel)
}

func (c *Conn) Subscribed(channel string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.channels[channel]
	return ok
}
