package watcher

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ritzau/depscope/pkg/cmake"
	"github.com/ritzau/depscope/pkg/logging"
)

// ChangeType represents the type of file change detected
type ChangeType int

const (
	// ChangeTypeIndex is a new or rewritten index-*.json in the reply directory
	ChangeTypeIndex ChangeType = iota
	// ChangeTypeReplyDir is the reply directory (or one of its parents) appearing
	ChangeTypeReplyDir
)

func (t ChangeType) String() string {
	switch t {
	case ChangeTypeIndex:
		return "index"
	case ChangeTypeReplyDir:
		return "reply-dir"
	}
	return fmt.Sprintf("ChangeType(%d)", int(t))
}

// ChangeEvent represents a batch of file system changes
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

// FileWatcher watches a build tree's File API reply directory. Directories
// on the way to it are watched too, so a reply directory that only appears
// after the first configure is picked up.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	buildDir string
	chain    []string // buildDir, .cmake, .cmake/api, .cmake/api/v1, reply
	events   chan ChangeEvent
	done     chan struct{}
	stopOnce sync.Once
	mu       sync.Mutex
	watched  map[string]bool
}

// NewFileWatcher creates a new file system watcher for a build tree
func NewFileWatcher(buildDir string) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	chain := []string{buildDir}
	rel := ""
	for _, part := range strings.Split(cmake.ReplyDir, "/") {
		rel = path.Join(rel, part)
		chain = append(chain, filepath.Join(buildDir, filepath.FromSlash(rel)))
	}

	return &FileWatcher{
		watcher:  watcher,
		buildDir: buildDir,
		chain:    chain,
		events:   make(chan ChangeEvent, 100),
		done:     make(chan struct{}),
		watched:  make(map[string]bool),
	}, nil
}

// Start begins watching for file changes
func (fw *FileWatcher) Start(ctx context.Context) error {
	if added := fw.watchChain(); added == 0 {
		fw.watcher.Close()
		return fmt.Errorf("failed to watch %s", fw.buildDir)
	}

	logging.Info("started watching build tree", "path", fw.buildDir)

	go fw.processEvents(ctx)
	return nil
}

// watchChain adds every existing directory between the build tree and the
// reply directory. Returns the number of directories being watched.
func (fw *FileWatcher) watchChain() int {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	for _, dir := range fw.chain {
		if fw.watched[dir] {
			continue
		}
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			break
		}
		if err := fw.watcher.Add(dir); err != nil {
			logging.Warn("failed to watch directory", "path", dir, "error", err)
			break
		}
		fw.watched[dir] = true
		logging.Debug("watching directory", "path", dir)
	}
	return len(fw.watched)
}

// forget drops the watch state of a removed chain directory and of every
// directory below it. Returns false when name is not a watched directory.
func (fw *FileWatcher) forget(name string) bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	clean := filepath.Clean(name)
	for i, dir := range fw.chain {
		if dir != clean {
			continue
		}
		if !fw.watched[dir] {
			return false
		}
		for _, gone := range fw.chain[i:] {
			if fw.watched[gone] {
				// The kernel already dropped the watch, so errors are expected
				_ = fw.watcher.Remove(gone)
				delete(fw.watched, gone)
			}
		}
		logging.Debug("directory removed, watch dropped", "path", clean)
		return true
	}
	return false
}

// isWatched reports whether dir currently has a watch
func (fw *FileWatcher) isWatched(dir string) bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.watched[filepath.Clean(dir)]
}

// Classify maps a changed path to a change type. Only index documents in the
// reply directory and the directories leading to it are relevant.
func (fw *FileWatcher) Classify(name string) (ChangeType, bool) {
	replyDir := fw.chain[len(fw.chain)-1]
	clean := filepath.Clean(name)

	if filepath.Dir(clean) == replyDir {
		if ok, _ := path.Match(cmake.IndexPattern, filepath.Base(clean)); ok {
			return ChangeTypeIndex, true
		}
		return 0, false
	}
	for _, dir := range fw.chain[1:] {
		if clean == dir {
			return ChangeTypeReplyDir, true
		}
	}
	return 0, false
}

// processEvents forwards relevant file system events
func (fw *FileWatcher) processEvents(ctx context.Context) {
	defer close(fw.events)
	defer fw.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-fw.done:
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			// A removed directory loses its watch; re-adding covers a quick recreate
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 && fw.forget(event.Name) {
				fw.watchChain()
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}

			changeType, relevant := fw.Classify(event.Name)
			if !relevant {
				continue
			}
			logging.Trace("file change", "path", event.Name, "op", event.Op.String(), "type", changeType.String())
			if !fw.emit(ctx, ChangeEvent{Type: changeType, Paths: []string{event.Name}, Timestamp: time.Now()}) {
				return
			}

			// Index files written before the new watch was in place would be missed
			if changeType == ChangeTypeReplyDir {
				fw.watchChain()
				if existing := fw.existingIndexes(); len(existing) > 0 {
					if !fw.emit(ctx, ChangeEvent{Type: ChangeTypeIndex, Paths: existing, Timestamp: time.Now()}) {
						return
					}
				}
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

func (fw *FileWatcher) emit(ctx context.Context, event ChangeEvent) bool {
	select {
	case fw.events <- event:
		return true
	case <-ctx.Done():
		return false
	case <-fw.done:
		return false
	}
}

func (fw *FileWatcher) existingIndexes() []string {
	matches, err := filepath.Glob(filepath.Join(fw.chain[len(fw.chain)-1], cmake.IndexPattern))
	if err != nil {
		return nil
	}
	return matches
}

// Events returns the channel of change events
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

// Stop stops the file watcher. It is safe to call more than once.
func (fw *FileWatcher) Stop() {
	fw.stopOnce.Do(func() {
		close(fw.done)
	})
}
