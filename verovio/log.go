package verovio

import (
	"errors"
	"strings"
	"sync"
)

// ErrInterceptorInstalled is returned when a log interceptor is installed
// while another one is.
var ErrInterceptorInstalled = errors.New("log interceptor already installed")

// LogFunc receives one log line of a toolkit call. It runs while the
// toolkit is locked and must not call back into the same toolkit.
type LogFunc func(level LogLevel, message string)

// The toolkit's log settings are process global.
var logState struct {
	mu       sync.Mutex
	buffered bool
	fn       LogFunc
}

// EnableLog turns console logging of every toolkit on or off.
func EnableLog(on bool) error {
	b, err := loaded()
	if err != nil {
		return err
	}
	b.enableLog(on)
	return nil
}

// EnableLogToBuffer makes toolkits keep their log for Toolkit.Log instead
// of printing it. While an interceptor is installed the setting is
// recorded and applied when the interceptor is removed.
func EnableLogToBuffer(on bool) error {
	b, err := loaded()
	if err != nil {
		return err
	}

	logState.mu.Lock()
	defer logState.mu.Unlock()

	logState.buffered = on
	if logState.fn == nil {
		b.enableLogToBuffer(on)
	}
	return nil
}

// LogGuard removes an installed interceptor.
type LogGuard struct {
	once sync.Once
	b    backend
}

// InstallLogInterceptor routes the log of every toolkit call to fn until
// the returned guard is closed.
//
//	guard, err := verovio.InstallLogInterceptor(fn)
//	if err != nil {
//		return err
//	}
//	defer guard.Close()
func InstallLogInterceptor(fn LogFunc) (*LogGuard, error) {
	if fn == nil {
		return nil, errors.New("nil log interceptor")
	}
	b, err := loaded()
	if err != nil {
		return nil, err
	}

	logState.mu.Lock()
	defer logState.mu.Unlock()

	if logState.fn != nil {
		return nil, ErrInterceptorInstalled
	}
	logState.fn = fn
	b.enableLogToBuffer(true)

	return &LogGuard{b: b}, nil
}

// Close removes the interceptor and restores the buffer setting in effect
// before it was installed. Only the first call has an effect.
func (g *LogGuard) Close() error {
	g.once.Do(func() {
		logState.mu.Lock()
		defer logState.mu.Unlock()

		logState.fn = nil
		g.b.enableLogToBuffer(logState.buffered)
	})
	return nil
}

func interceptorInstalled() bool {
	logState.mu.Lock()
	defer logState.mu.Unlock()
	return logState.fn != nil
}

// deliverLog passes the lines added to the log buffer since delivered to
// the installed interceptor and returns the buffer content. The toolkit
// keeps its buffer until it resets it, so a buffer that no longer starts
// with delivered is delivered in full.
func deliverLog(b backend, h uintptr, delivered string) string {
	logState.mu.Lock()
	fn := logState.fn
	logState.mu.Unlock()

	if fn == nil {
		return ""
	}
	log := b.getLog(h)
	fresh, ok := strings.CutPrefix(log, delivered)
	if !ok {
		fresh = log
	}
	for _, line := range strings.Split(fresh, "\n") {
		if line == "" {
			continue
		}
		fn(parseLogLine(line))
	}
	return log
}

var logPrefixes = []struct {
	prefix string
	level  LogLevel
}{
	{"[Error] ", LogError},
	{"[Warning] ", LogWarning},
	{"[Info] ", LogInfo},
	{"[Debug] ", LogDebug},
}

// parseLogLine splits the level prefix off a buffered log line. Lines
// without one are informational.
func parseLogLine(line string) (LogLevel, string) {
	for _, p := range logPrefixes {
		if msg, ok := strings.CutPrefix(line, p.prefix); ok {
			return p.level, msg
		}
	}
	return LogInfo, line
}
