// Package notify shows short user-visible outcome messages. Notifications are
// fire-and-forget: they never block the caller and never fail it.
package notify

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"mermaidcopy/pkg/logger"

	"github.com/fatih/color"
)

type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

type Notifier interface {
	Notify(level Level, message string)
}

// Console prints notifications to a terminal stream.
type Console struct {
	mu     sync.Mutex
	writer io.Writer
}

func NewConsole() *Console {
	return &Console{writer: os.Stderr}
}

// SetWriter sets a custom writer (used in tests)
func (c *Console) SetWriter(w io.Writer) {
	c.mu.Lock()
	c.writer = w
	c.mu.Unlock()
}

func (c *Console) Notify(level Level, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch level {
	case LevelSuccess:
		_, _ = color.New(color.FgGreen, color.Bold).Fprint(c.writer, "✓ ")
	case LevelError:
		_, _ = color.New(color.FgRed, color.Bold).Fprint(c.writer, "✗ ")
	default:
		_, _ = color.New(color.FgCyan).Fprint(c.writer, "• ")
	}
	fmt.Fprintln(c.writer, message)
}

// Desktop raises a desktop notification through notify-send. It is silently
// disabled when the tool is missing.
type Desktop struct {
	App     string
	Timeout int // milliseconds

	once sync.Once
	path string
}

func NewDesktop() *Desktop {
	return &Desktop{App: "mermaidcopy", Timeout: 2000}
}

func (d *Desktop) Notify(level Level, message string) {
	d.once.Do(func() {
		d.path, _ = exec.LookPath("notify-send")
	})
	if d.path == "" {
		return
	}

	urgency := "low"
	if level == LevelError {
		urgency = "normal"
	}
	cmd := exec.Command(d.path,
		"--app-name", d.App,
		"--urgency", urgency,
		"--expire-time", fmt.Sprint(d.Timeout),
		d.App, message)
	if err := cmd.Start(); err != nil {
		logger.Debug().Err(err).Msg("desktop notification failed")
		return
	}
	go cmd.Wait() //nolint:errcheck
}

// Multi fans a notification out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(level Level, message string) {
	for _, n := range m {
		if n != nil {
			n.Notify(level, message)
		}
	}
}

// Entry is one recorded notification.
type Entry struct {
	Level   Level
	Message string
}

// Recorder keeps notifications in memory.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

func (r *Recorder) Notify(level Level, message string) {
	r.mu.Lock()
	r.entries = append(r.entries, Entry{Level: level, Message: message})
	r.mu.Unlock()
}

func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}
