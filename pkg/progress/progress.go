// Package progress draws spinners and progress bars on stderr. Both stay
// silent when the stream is not a terminal so piped output remains clean.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// Spinner represents a progress spinner
type Spinner struct {
	mu         sync.Mutex
	writer     io.Writer
	enabled    bool
	frames     []string
	frameIndex int
	message    string
	running    bool
	stopChan   chan struct{}
	wg         sync.WaitGroup
}

// NewSpinner creates a new spinner with default frames
func NewSpinner(message string) *Spinner {
	return &Spinner{
		writer:  os.Stderr,
		enabled: IsTerminal(os.Stderr),
		frames:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		message: message,
	}
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// SetWriter sets a custom writer for the spinner. Custom writers are always
// drawn to.
func (s *Spinner) SetWriter(w io.Writer) {
	s.writer = w
	s.enabled = true
}

// Start starts the spinner animation
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.running || !s.enabled {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	s.wg.Add(1)
	go s.animate()
}

// Stop stops the spinner animation
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)
	s.mu.Unlock()

	s.wg.Wait()
	// Clear the line
	fmt.Fprint(s.writer, "\r\033[K")
}

// SetMessage updates the spinner message
func (s *Spinner) SetMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

func (s *Spinner) animate() {
	defer s.wg.Done()

	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.mu.Lock()
			frame := s.frames[s.frameIndex%len(s.frames)]
			message := s.message
			s.frameIndex++
			s.mu.Unlock()

			fmt.Fprintf(s.writer, "\r%s %s", frame, message)
		}
	}
}

// Bar counts finished items out of a known total.
type Bar struct {
	mu      sync.Mutex
	writer  io.Writer
	enabled bool
	width   int
	current int
	total   int
	message string
}

func NewBar(total int, message string) *Bar {
	return &Bar{
		writer:  os.Stderr,
		enabled: IsTerminal(os.Stderr),
		width:   30,
		total:   total,
		message: message,
	}
}

// SetWriter sets a custom writer
func (b *Bar) SetWriter(w io.Writer) {
	b.writer = w
	b.enabled = true
}

// Increment advances the bar by one item.
func (b *Bar) Increment() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current < b.total {
		b.current++
	}
	b.draw("")
}

// Finish completes the line.
func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.draw("\n")
}

func (b *Bar) draw(suffix string) {
	if !b.enabled || b.total <= 0 {
		return
	}
	filled := b.current * b.width / b.total
	bar := strings.Repeat("█", filled) + strings.Repeat("░", b.width-filled)
	fmt.Fprintf(b.writer, "\r%s [%s] %d/%d%s", b.message, bar, b.current, b.total, suffix)
}

// WithSpinner runs fn while a spinner shows message.
func WithSpinner(message string, fn func() error) error {
	spinner := NewSpinner(message)
	spinner.Start()
	err := fn()
	spinner.Stop()
	return err
}
