package classifier

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the model whenever its file changes on disk. It blocks until
// the context is cancelled; reload failures keep the current model and are
// logged. The directory is watched rather than the file so atomic
// write-and-rename deploys are picked up.
func (s *Service) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("classifier: create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("classifier: watch %q: %w", dir, err)
	}

	target := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, open := <-watcher.Events:
			if !open {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if err := s.Reload(); err != nil {
				s.logger.Warn("classifier: reload after change failed", "path", s.path, "error", err)
			}
		case err, open := <-watcher.Errors:
			if !open {
				return nil
			}
			s.logger.Warn("classifier: watcher error", "error", err)
		}
	}
}
