package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/openpdpa/internal/logger"
)

// ErrConnectorClosed is returned by Watch after Close.
var ErrConnectorClosed = errors.New("connector is closed")

// Watch signals on the returned channel once file changes below the root
// have been quiet for the debounce period. Hidden paths and files of
// unsupported types are ignored. Directory events count only when a watched
// directory is removed or renamed.
func (c *Connector) Watch(ctx context.Context) (<-chan struct{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrConnectorClosed
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	dirs := make(map[string]bool)
	if err := c.addTree(watcher, c.rootPath, dirs); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", c.rootPath, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancels = append(c.cancels, cancel)

	changes := make(chan struct{}, 1)
	go c.watchLoop(ctx, watcher, dirs, changes)
	return changes, nil
}

// watchLoop owns dirs, the set of watched directories, once started.
func (c *Connector) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, dirs map[string]bool, changes chan<- struct{}) {
	defer close(changes)
	defer watcher.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !c.hiddenPath(event.Name) {
					if err := c.addTree(watcher, event.Name, dirs); err != nil {
						logger.Warn("Cannot watch %s: %v", event.Name, err)
					}
				}
			}
			if !c.handleFsEvent(event, dirs) {
				continue
			}
			logger.Debug("Corpus change: %s %s", event.Op, event.Name)
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(c.debounce)
			fire = timer.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Watcher error: %v", err)

		case <-fire:
			fire = nil
			select {
			case changes <- struct{}{}:
			default:
			}
		}
	}
}

// handleFsEvent reports whether event may change the corpus. A watched
// directory that is removed or renamed is dropped from dirs.
func (c *Connector) handleFsEvent(event fsnotify.Event, dirs map[string]bool) bool {
	if c.hiddenPath(event.Name) {
		return false
	}
	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil || info.IsDir() {
			return false
		}
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		if dirs[event.Name] {
			forgetTree(dirs, event.Name)
			return true
		}
	default:
		return false
	}
	return c.accepts(detectMIMEType(event.Name))
}

// forgetTree removes dir and every directory below it from dirs.
func forgetTree(dirs map[string]bool, dir string) {
	prefix := dir + string(filepath.Separator)
	for path := range dirs {
		if path == dir || strings.HasPrefix(path, prefix) {
			delete(dirs, path)
		}
	}
}

func (c *Connector) hiddenPath(path string) bool {
	rel, err := filepath.Rel(c.rootPath, path)
	if err != nil {
		return isHidden(path)
	}
	return rel != "." && isHidden(rel)
}

// addTree watches dir and every non-hidden directory below it, recording each in dirs.
func (c *Connector) addTree(watcher *fsnotify.Watcher, dir string, dirs map[string]bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != c.rootPath && c.hiddenPath(path) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return err
		}
		dirs[path] = true
		return nil
	})
}
