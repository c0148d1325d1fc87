package runtime

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

var (
	ansiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)
	urlPattern  = regexp.MustCompile(`https?://(?:localhost|127\.0\.0\.1|0\.0\.0\.0|\[::1?\])(?::(\d+))?[^\s"'<>]*`)
)

// DetectReady extracts a local server URL from a line of process output.
// Wildcard hosts are rewritten to localhost.
func DetectReady(line string) (ReadyEvent, bool) {
	line = ansiPattern.ReplaceAllString(line, "")
	m := urlPattern.FindStringSubmatch(line)
	if m == nil {
		return ReadyEvent{}, false
	}

	url := strings.TrimRight(m[0], ".,;)")
	url = strings.Replace(url, "0.0.0.0", "localhost", 1)

	port := 80
	if strings.HasPrefix(url, "https") {
		port = 443
	}
	if m[1] != "" {
		if p, err := strconv.Atoi(m[1]); err == nil {
			port = p
		}
	}
	return ReadyEvent{Port: port, URL: url}, true
}

// readyBus fans server-ready events out to registered listeners.
type readyBus struct {
	mu        sync.Mutex
	next      int
	listeners map[int]func(ReadyEvent)
}

func (b *readyBus) subscribe(fn func(ReadyEvent)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listeners == nil {
		b.listeners = make(map[int]func(ReadyEvent))
	}
	id := b.next
	b.next++
	b.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners, id)
			b.mu.Unlock()
		})
	}
}

func (b *readyBus) publish(ev ReadyEvent) {
	b.mu.Lock()
	fns := make([]func(ReadyEvent), 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (b *readyBus) clear() {
	b.mu.Lock()
	b.listeners = nil
	b.mu.Unlock()
}

// lineWriter calls fn for each complete line written to it.
type lineWriter struct {
	buf []byte
	fn  func(string)
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.fn(strings.TrimRight(string(w.buf[:i]), "\r"))
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}
