// Package ratelog emits a message at info level at most once per key and
// wall-clock window; repeats inside the window go to debug level.
package ratelog

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a rate-limited wrapper around a zerolog logger. Safe for concurrent use.
type Logger struct {
	log    zerolog.Logger
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	last map[string]time.Time // key -> window start of last info emission
}

// Options configures a Logger.
type Options struct {
	Window time.Duration    // defaults to 15 minutes
	Now    func() time.Time // defaults to time.Now
}

// New creates a rate-limited logger.
func New(log zerolog.Logger, opts Options) *Logger {
	if opts.Window <= 0 {
		opts.Window = 15 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Logger{
		log:    log,
		window: opts.Window,
		now:    opts.Now,
		last:   make(map[string]time.Time),
	}
}

// Event returns an info event the first time key is seen in the current window,
// and a debug event otherwise.
func (l *Logger) Event(key string) *zerolog.Event {
	if l.allow(key) {
		return l.log.Info()
	}
	return l.log.Debug()
}

// Msg logs msg under its own text as key.
func (l *Logger) Msg(msg string) {
	l.Event(msg).Msg(msg)
}

func (l *Logger) allow(key string) bool {
	slot := l.now().Truncate(l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	if prev, ok := l.last[key]; ok && prev.Equal(slot) {
		return false
	}
	l.last[key] = slot
	return true
}
