package logs

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

type Level string

const (
	INFO  Level = "INFO"
	WARN  Level = "WARN"
	ERROR Level = "ERROR"
	DEBUG Level = "DEBUG"
)

// levelPriority defines the priority of each log level
// higher value = more severe
var levelPriority = map[Level]int{
	DEBUG: 1,
	INFO:  2,
	WARN:  3,
	ERROR: 4,
}

// ParseLevel maps a case-insensitive level name to a Level.
func ParseLevel(s string) (Level, error) {
	lvl := Level(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := levelPriority[lvl]; !ok {
		return "", fmt.Errorf("unknown log level %q", s)
	}
	return lvl, nil
}

type Entry struct {
	TimeStamp time.Time `json:"timestamp"`
	Level     Level     `json:"level"`
	Source    string    `json:"source,omitempty"`
	Message   string    `json:"message"`
}

// Logger keeps the most recent entries in memory and optionally mirrors
// every recorded entry to a writer.
type Logger struct {
	mu      sync.Mutex
	entries []Entry
	maxSize int
	level   Level
	out     io.Writer
}

// level: minimum log level to record (e.g., INFO, WARN, ERROR, DEBUG)
//
// maxSize: maximum number of log entries kept in memory
func NewLogger(maxSize int, level Level) *Logger {
	return &Logger{
		entries: make([]Entry, 0, maxSize),
		maxSize: maxSize,
		level:   level,
	}
}

// SetOutput mirrors recorded entries to w. A nil writer disables mirroring.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = w
}

// log applies level filtering and ring buffer behavior
func (l *Logger) log(level Level, source, msg string) {
	if levelPriority[level] < levelPriority[l.level] {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.maxSize > 0 && len(l.entries) >= l.maxSize {
		// remove oldest entry (ring behavior)
		l.entries = l.entries[1:]
	}

	entry := Entry{
		TimeStamp: time.Now(),
		Level:     level,
		Source:    source,
		Message:   msg,
	}
	if l.maxSize > 0 {
		l.entries = append(l.entries, entry)
	}

	if l.out != nil {
		if source != "" {
			fmt.Fprintf(l.out, "%s [%s] %s: %s\n", entry.TimeStamp.Format(time.RFC3339), level, source, msg)
		} else {
			fmt.Fprintf(l.out, "%s [%s] %s\n", entry.TimeStamp.Format(time.RFC3339), level, msg)
		}
	}
}

func (l *Logger) Debug(msg string) {
	l.log(DEBUG, "", msg)
}

func (l *Logger) Info(msg string) {
	l.log(INFO, "", msg)
}

func (l *Logger) Warn(msg string) {
	l.log(WARN, "", msg)
}

func (l *Logger) Error(msg string) {
	l.log(ERROR, "", msg)
}

// With returns a logger that tags every entry with source.
func (l *Logger) With(source string) *Scoped {
	return &Scoped{parent: l, source: source}
}

func (l *Logger) GetLast(n int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n <= 0 {
		return []Entry{}
	}

	if n > len(l.entries) {
		out := make([]Entry, len(l.entries))
		copy(out, l.entries)
		return out
	}

	start := len(l.entries) - n
	out := make([]Entry, n)
	copy(out, l.entries[start:])
	return out
}

// Scoped writes into its parent's buffer under a fixed source tag.
type Scoped struct {
	parent *Logger
	source string
}

func (s *Scoped) Debug(msg string) { s.parent.log(DEBUG, s.source, msg) }
func (s *Scoped) Info(msg string)  { s.parent.log(INFO, s.source, msg) }
func (s *Scoped) Warn(msg string)  { s.parent.log(WARN, s.source, msg) }
func (s *Scoped) Error(msg string) { s.parent.log(ERROR, s.source, msg) }
