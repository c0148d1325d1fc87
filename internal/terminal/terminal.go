// Package terminal provides sinks for sandbox process output and status
// messages.
package terminal

import (
	"io"
	"strings"
	"sync"
)

// clearScreen resets an ANSI terminal and homes the cursor.
const clearScreen = "\x1b[2J\x1b[H"

// Sink receives output chunks. Chunks may contain ANSI sequences and "\r\n"
// line endings; implementations must be safe for concurrent use.
type Sink interface {
	Write(chunk string)
	Clear()
	Focus()
}

// WriterSink forwards chunks to an io.Writer.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink returns a sink writing to w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Write(chunk string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = io.WriteString(s.w, chunk)
}

func (s *WriterSink) Clear() { s.Write(clearScreen) }

// Focus is a no-op; a plain writer has nothing to focus.
func (s *WriterSink) Focus() {}

// Recorder keeps everything written to it. Clear discards the history.
type Recorder struct {
	mu      sync.Mutex
	chunks  []string
	clears  int
	focused int
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Write(chunk string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks = append(r.chunks, chunk)
}

func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks = nil
	r.clears++
}

func (r *Recorder) Focus() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.focused++
}

// Chunks returns the chunks written since the last Clear.
func (r *Recorder) Chunks() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.chunks...)
}

// String returns the concatenated output since the last Clear.
func (r *Recorder) String() string {
	return strings.Join(r.Chunks(), "")
}

// Lines returns the recorded output split into lines, without "\r".
func (r *Recorder) Lines() []string {
	s := strings.ReplaceAll(r.String(), "\r", "")
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// Clears returns how many times Clear was called.
func (r *Recorder) Clears() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clears
}

// Multi fans chunks out to every sink.
type Multi []Sink

func (m Multi) Write(chunk string) {
	for _, s := range m {
		s.Write(chunk)
	}
}

func (m Multi) Clear() {
	for _, s := range m {
		s.Clear()
	}
}

func (m Multi) Focus() {
	for _, s := range m {
		s.Focus()
	}
}

// Discard drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) Write(string) {}
func (discard) Clear()       {}
func (discard) Focus()       {}
