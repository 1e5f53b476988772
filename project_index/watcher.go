package project_index

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reports changes to indexed files of an on-disk project.
// OnChange receives the slash-separated path relative to the project root.
type Watcher struct {
	watcher  *fsnotify.Watcher
	root     string
	onChange func(relativePath string)
	logger   *zap.Logger
	wg       sync.WaitGroup
	once     sync.Once
}

// NewWatcher watches root and each of dirs (relative to root).
func NewWatcher(root string, dirs []string, onChange func(relativePath string), logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	for _, dir := range dirs {
		full := filepath.Join(root, filepath.FromSlash(dir))
		if err := fw.Add(full); err != nil {
			logger.Warn("directory not watched", zap.String("dir", dir), zap.Error(err))
		}
	}

	w := &Watcher{watcher: fw, root: root, onChange: onChange, logger: logger}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Remove) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Chmod) {
				continue
			}
			rel, err := filepath.Rel(w.root, event.Name)
			if err != nil {
				continue
			}
			rel = filepath.ToSlash(rel)
			w.logger.Debug("file changed", zap.String("path", rel), zap.String("op", event.Op.String()))
			w.onChange(rel)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", zap.Error(err))
		}
	}
}

// Close stops watching and waits for the event loop to exit.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}
