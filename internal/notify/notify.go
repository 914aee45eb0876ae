package notify

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/containrrr/shoutrrr"

	"github.com/Wikid82/gatekeeper/internal/logger"
	"github.com/Wikid82/gatekeeper/internal/metrics"
	"github.com/Wikid82/gatekeeper/internal/util"
)

const (
	queueSize    = 64
	closeTimeout = 5 * time.Second
)

// Event describes a rejected request worth telling an operator about.
type Event struct {
	Reason    string
	ClientIP  string
	Country   string
	Method    string
	Path      string
	Timestamp time.Time
}

// Notifier delivers security events to a shoutrrr service URL from a single
// background worker. A nil Notifier or an empty URL disables delivery.
type Notifier struct {
	url     string
	send    func(url, message string) error
	queue   chan string
	done    chan struct{}
	timeout time.Duration

	mu      sync.RWMutex
	closed  bool
	once    sync.Once
	dropped atomic.Uint64
}

func New(url string) *Notifier {
	if url == "" {
		return nil
	}
	return newNotifier(url, func(u, msg string) error { return shoutrrr.Send(u, msg) }, queueSize, closeTimeout)
}

func newNotifier(url string, send func(url, message string) error, size int, timeout time.Duration) *Notifier {
	n := &Notifier{
		url:     url,
		send:    send,
		queue:   make(chan string, size),
		done:    make(chan struct{}),
		timeout: timeout,
	}
	go n.run()
	return n
}

func (n *Notifier) run() {
	defer close(n.done)
	for msg := range n.queue {
		if err := n.send(n.url, msg); err != nil {
			logger.Source("notify").WithError(err).Warn("Failed to send security notification")
		}
	}
}

// SecurityEvent queues one message. It never blocks the caller: when the
// queue is full or the notifier is closed the event is dropped and counted.
func (n *Notifier) SecurityEvent(ev Event) {
	if n == nil {
		return
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		n.drop()
		return
	}
	select {
	case n.queue <- formatEvent(ev):
	default:
		n.drop()
	}
}

func (n *Notifier) drop() {
	n.dropped.Add(1)
	metrics.IncNotificationDropped()
}

// Dropped reports how many events were discarded.
func (n *Notifier) Dropped() uint64 {
	if n == nil {
		return 0
	}
	return n.dropped.Load()
}

// Close stops accepting events and waits for the queue to drain, giving up
// after the close timeout.
func (n *Notifier) Close() {
	if n == nil {
		return
	}
	n.once.Do(func() {
		n.mu.Lock()
		n.closed = true
		close(n.queue)
		n.mu.Unlock()
	})

	select {
	case <-n.done:
	case <-time.After(n.timeout):
		logger.Source("notify").WithField("pending", len(n.queue)).Warn("Gave up waiting for security notifications")
	}
}

func formatEvent(ev Event) string {
	msg := fmt.Sprintf("Gatekeeper: request denied\n\nReason: %s\nClient: %s\nRequest: %s %s\nTime: %s",
		ev.Reason,
		util.SanitizeForLog(ev.ClientIP),
		util.SanitizeForLog(ev.Method),
		util.SanitizeForLog(ev.Path),
		ev.Timestamp.UTC().Format(time.RFC3339),
	)
	if ev.Country != "" {
		msg += "\nCountry: " + ev.Country
	}
	return msg
}
