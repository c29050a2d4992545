// Package watch keeps rendered documents under observation, announces every
// diagram that appears in them and runs copy triggers on request.
//
// A Session mirrors the lifecycle of an editor plugin: Register starts the
// observer, the periodic re-scan and the first pass over the documents;
// Unregister tears all of it down again, including the injected controls.
package watch

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"mermaidcopy/pkg/document"
	"mermaidcopy/pkg/errors"
	"mermaidcopy/pkg/logger"
	"mermaidcopy/pkg/svgexport"
	"mermaidcopy/pkg/trigger"

	"github.com/fsnotify/fsnotify"
)

const (
	DefaultDebounce    = 300 * time.Millisecond
	DefaultRevertAfter = 2 * time.Second
)

// Options configures a Session.
type Options struct {
	Paths    []string
	Debounce time.Duration // zero selects DefaultDebounce
	Interval time.Duration // periodic re-scan, zero disables it
	// Inject writes copy controls into the watched files and removes them
	// again on Unregister.
	Inject      bool
	RevertAfter time.Duration // zero selects DefaultRevertAfter
}

// Entry is an announced diagram.
type Entry struct {
	Number int
	Path   string
	Hash   string
	Kind   document.Kind
	ID     string
}

type entry struct {
	Entry
	block document.Block
}

// Session is the state of one watch run.
type Session struct {
	// OnNew is called for each diagram seen for the first time.
	OnNew func(Entry)

	opts   Options
	copier *trigger.Copier

	mu         sync.Mutex
	registered bool
	watcher    *fsnotify.Watcher
	debounce   *time.Timer
	ticker     *time.Ticker
	stop       chan struct{}
	done       chan struct{} // closed once teardown has finished
	entries    []*entry
	byHash     map[string]*entry
	copied     map[int]bool
	reverts    map[int]*time.Timer
	scans      int

	wg        sync.WaitGroup
	processMu sync.Mutex
	triggerMu sync.Mutex
}

// NewSession creates an unregistered session.
func NewSession(opts Options, copier *trigger.Copier) *Session {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.RevertAfter <= 0 {
		opts.RevertAfter = DefaultRevertAfter
	}
	return &Session{
		opts:    opts,
		copier:  copier,
		byHash:  make(map[string]*entry),
		copied:  make(map[int]bool),
		reverts: make(map[int]*time.Timer),
	}
}

// Register processes the documents once and starts observing them. The
// session unregisters itself when ctx is cancelled.
func (s *Session) Register(ctx context.Context) error {
	s.mu.Lock()
	if s.registered {
		s.mu.Unlock()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.mu.Unlock()
		return errors.NewWithError(errors.ExitCodeGeneral, "failed to start file observer", err)
	}
	for _, dir := range watchDirs(s.opts.Paths) {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			s.mu.Unlock()
			return errors.NewWithError(errors.ExitCodeFileOperation, fmt.Sprintf("failed to watch %s", dir), err)
		}
	}

	stop := make(chan struct{})
	var ticker *time.Ticker
	if s.opts.Interval > 0 {
		ticker = time.NewTicker(s.opts.Interval)
	}
	s.watcher = watcher
	s.stop = stop
	s.ticker = ticker
	s.done = make(chan struct{})
	s.registered = true
	s.wg.Add(1)
	s.mu.Unlock()

	s.ProcessAll()

	go s.observe(watcher, ticker, stop)

	go func() {
		select {
		case <-ctx.Done():
			s.Unregister()
		case <-stop:
		}
	}()

	logger.Info().Strs("paths", s.opts.Paths).Dur("debounce", s.opts.Debounce).Msg("watch session registered")
	return nil
}

// Unregister stops the observer and every timer the session owns. It is safe
// to call more than once and before Register; every call returns only after
// the teardown, including the removal of injected controls, has finished.
func (s *Session) Unregister() {
	s.mu.Lock()
	done := s.done
	if !s.registered {
		s.mu.Unlock()
		if done != nil {
			<-done
		}
		return
	}
	s.registered = false
	defer close(done)
	close(s.stop)
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
	if s.debounce != nil {
		s.debounce.Stop()
		s.debounce = nil
	}
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	for n, t := range s.reverts {
		t.Stop()
		delete(s.reverts, n)
	}
	s.mu.Unlock()

	s.wg.Wait()

	// wait for an in-flight conversion
	s.triggerMu.Lock()
	s.triggerMu.Unlock() //nolint:staticcheck

	// wait for a running scan; later ones see the session unregistered
	s.processMu.Lock()
	if s.opts.Inject {
		for _, path := range s.opts.Paths {
			if err := rewrite(path, (*document.Document).RemoveTriggers); err != nil {
				logger.Warn().Err(err).Str("path", path).Msg("failed to remove copy controls")
			}
		}
	}
	s.processMu.Unlock()

	logger.Info().Msg("watch session unregistered")
}

// ScheduleProcess runs ProcessAll once the debounce delay has passed without
// another call.
func (s *Session) ScheduleProcess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.registered {
		return
	}
	if s.debounce != nil {
		s.debounce.Stop()
	}
	s.debounce = time.AfterFunc(s.opts.Debounce, func() {
		s.processMu.Lock()
		defer s.processMu.Unlock()
		s.mu.Lock()
		active := s.registered
		s.mu.Unlock()
		if active {
			s.process()
		}
	})
}

// ProcessAll re-reads every watched document and announces new diagrams.
func (s *Session) ProcessAll() {
	s.processMu.Lock()
	defer s.processMu.Unlock()
	s.process()
}

func (s *Session) process() {
	var fresh []Entry
	for _, path := range s.opts.Paths {
		fresh = append(fresh, s.processFile(path)...)
	}

	s.mu.Lock()
	s.scans++
	s.mu.Unlock()

	if s.OnNew != nil {
		for _, e := range fresh {
			s.OnNew(e)
		}
	}
}

func (s *Session) processFile(path string) []Entry {
	if s.opts.Inject {
		if err := rewrite(path, (*document.Document).InjectTriggers); err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("failed to inject copy controls")
		}
	}

	doc, err := readDocument(path)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("skipping document")
		return nil
	}

	var fresh []Entry
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range doc.Blocks() {
		hash, err := s.identity(b)
		if err != nil {
			logger.Debug().Err(err).Str("path", path).Int("block", b.Index).Msg("unreadable block")
			continue
		}
		if e, ok := s.byHash[hash]; ok {
			e.block = b
			e.Path = path
			e.ID = b.ID
			continue
		}
		e := &entry{
			Entry: Entry{Number: len(s.entries) + 1, Path: path, Hash: hash, Kind: b.Kind, ID: b.ID},
			block: b,
		}
		s.entries = append(s.entries, e)
		s.byHash[hash] = e
		fresh = append(fresh, e.Entry)
		logger.Debug().Int("number", e.Number).Str("path", path).Str("kind", b.Kind.String()).Msg("new diagram")
	}
	return fresh
}

// identity is the SHA-256 of the serialized diagram.
func (s *Session) identity(b document.Block) (string, error) {
	var layout svgexport.Layout
	if s.copier != nil {
		layout = s.copier.Layout
	}
	g, err := svgexport.NewGraphic(b.SVG, layout)
	if err != nil {
		return "", err
	}
	return trigger.Identity(svgexport.Serialize(g)), nil
}

// Trigger copies announced diagram n and marks it copied for a short while.
func (s *Session) Trigger(n int) (trigger.Result, error) {
	s.mu.Lock()
	if n < 1 || n > len(s.entries) {
		count := len(s.entries)
		s.mu.Unlock()
		return trigger.Result{}, errors.NewWithSuggestion(errors.ExitCodeValidation,
			fmt.Sprintf("no diagram number %d", n),
			fmt.Sprintf("%d diagram(s) announced so far", count))
	}
	svg := s.entries[n-1].block.SVG
	s.mu.Unlock()

	s.triggerMu.Lock()
	res, err := s.copier.Copy(svg)
	s.triggerMu.Unlock()
	if err != nil {
		return res, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.registered {
		// torn down while copying: no timers may outlive Unregister
		return res, nil
	}
	if t, ok := s.reverts[n]; ok {
		t.Stop()
	}
	s.copied[n] = true
	var t *time.Timer
	t = time.AfterFunc(s.opts.RevertAfter, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.reverts[n] == t {
			delete(s.reverts, n)
			s.copied[n] = false
		}
	})
	s.reverts[n] = t
	return res, nil
}

// Copied reports whether diagram n was copied within the revert window.
func (s *Session) Copied(n int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copied[n]
}

// Entries returns the announced diagrams in announcement order.
func (s *Session) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Entry
	}
	return out
}

// Scans returns how many times the documents were processed.
func (s *Session) Scans() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scans
}

func (s *Session) observe(w *fsnotify.Watcher, ticker *time.Ticker, stop chan struct{}) {
	defer s.wg.Done()

	var tick <-chan time.Time
	if ticker != nil {
		tick = ticker.C
	}
	watched := make(map[string]bool, len(s.opts.Paths))
	for _, p := range s.opts.Paths {
		watched[filepath.Clean(p)] = true
	}

	for {
		select {
		case <-stop:
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if watched[filepath.Clean(ev.Name)] && !ev.Has(fsnotify.Chmod) {
				s.ScheduleProcess()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Warn().Err(err).Msg("file observer error")
		case <-tick:
			s.ScheduleProcess()
		}
	}
}

// watchDirs returns the parent directories of paths. Directories are watched
// instead of files so that editors replacing a file by rename stay visible.
func watchDirs(paths []string) []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, p := range paths {
		dir := filepath.Dir(filepath.Clean(p))
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

func readDocument(path string) (*document.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return document.Parse(f)
}

// rewrite applies edit to the document at path and writes it back when edit
// reports a change.
func rewrite(path string, edit func(*document.Document) int) error {
	doc, err := readDocument(path)
	if err != nil {
		return err
	}
	if edit(doc) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := doc.Render(&buf); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), info.Mode().Perm())
}
