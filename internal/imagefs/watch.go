package imagefs

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports changes to the set of files under a folder. Bursts of
// events are coalesced into a single onChange call after delay.
type Watcher struct {
	fw       *fsnotify.Watcher
	delay    time.Duration
	onChange func()
	onError  func(error)

	done      chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once
}

// Watch starts watching dir and all of its subdirectories. onError may be nil.
func Watch(dir string, delay time.Duration, onChange func(), onError func(error)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fw:       fw,
		delay:    delay,
		onChange: onChange,
		onError:  onError,
		done:     make(chan struct{}),
	}
	if err := w.addTree(dir); err != nil {
		_ = fw.Close()
		return nil, err
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			return filepath.SkipDir
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fw.Add(p); err != nil && p == root {
			return err
		}
		return nil
	})
}

func (w *Watcher) loop() {
	defer close(w.done)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = w.addTree(ev.Name)
				}
			}
			if timer == nil {
				timer = time.AfterFunc(w.delay, w.fire)
			} else {
				timer.Reset(w.delay)
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			if w.onError != nil {
				w.onError(err)
			}
		}
	}
}

func (w *Watcher) fire() {
	if !w.closed.Load() {
		w.onChange()
	}
}

// Close stops the watcher. Pending change notifications are dropped: no
// onChange call starts after Close returns, though one already running
// may still be finishing.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.closed.Store(true)
		err = w.fw.Close()
		<-w.done
	})
	return err
}
