package program

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after which a burst of file events is
// reported as one change.
const DefaultDebounce = 100 * time.Millisecond

// Change describes a modification of a watched program file.
type Change struct {
	// Path is the absolute path of the program file.
	Path string
	// Op is the file operation ("write", "create", "remove", "rename").
	Op string
}

// Watcher reports changes to a program file on disk. A loaded graph is never
// reloaded underneath a running session; callers are only notified.
type Watcher struct {
	fsw  *fsnotify.Watcher
	path string

	onChange func(Change)
	onError  func(error)
	debounce *debouncer

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Watch starts watching path. The containing directory is watched so that
// editors which replace the file by rename are still seen.
func Watch(path string, onChange func(Change), onError func(error)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		path:     abs,
		onChange: onChange,
		onError:  onError,
	}
	w.debounce = newDebouncer(DefaultDebounce, w.emit)

	w.wg.Add(1)
	go w.loop()

	return w, nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			op := opName(ev.Op)
			if op == "" || w.onChange == nil {
				continue
			}
			w.debounce.call(op)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if w.onError != nil {
				w.onError(err)
			}
		}
	}
}

func opName(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Write):
		return "write"
	case op.Has(fsnotify.Create):
		return "create"
	case op.Has(fsnotify.Remove):
		return "remove"
	case op.Has(fsnotify.Rename):
		return "rename"
	default:
		return ""
	}
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.fsw.Close()
		w.wg.Wait()
		w.debounce.cancel()
	})
	return err
}

func (w *Watcher) emit(op string) {
	w.onChange(Change{Path: w.path, Op: op})
}

// debouncer groups rapid successive calls into one callback after a quiet
// period. The callback receives the op of the last call and never runs
// concurrently with itself.
type debouncer struct {
	mu       sync.Mutex
	delay    time.Duration
	timer    *time.Timer
	seq      uint64 // detects stale timer callbacks
	op       string
	callback func(op string)
}

func newDebouncer(delay time.Duration, callback func(op string)) *debouncer {
	return &debouncer{delay: delay, callback: callback}
}

func (d *debouncer) call(op string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	seq := d.seq
	d.op = op

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if d.seq != seq {
			d.mu.Unlock()
			return
		}
		op := d.op
		d.mu.Unlock()
		d.callback(op)
	})
}

func (d *debouncer) cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
}
