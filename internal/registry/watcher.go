package registry

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/logging"
	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/types"
)

// RequirementsWatcher watches the requirements files of registered
// environments. When a file changes outside the engine, the owning
// environment is marked stale so the next operation re-syncs instead of
// trusting a package collection the file no longer describes.
type RequirementsWatcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	envs     *Environments
	byPath   map[string]string // cleaned requirements path -> env id
	debounce map[string]time.Time
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
}

// NewRequirementsWatcher creates a watcher tied to the environment catalog.
func NewRequirementsWatcher(envs *Environments) (*RequirementsWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &RequirementsWatcher{
		watcher:  watcher,
		envs:     envs,
		byPath:   make(map[string]string),
		debounce: make(map[string]time.Time),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Watch registers an environment's requirements path. No-op when the
// environment has no requirements file.
func (w *RequirementsWatcher) Watch(env *types.Environment) error {
	if env == nil || env.RequirementsPath == "" {
		return nil
	}
	path := filepath.Clean(env.RequirementsPath)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.byPath[path] = env.ID
	// Watch the directory: editors replace files by rename, which drops
	// per-file watches.
	if err := w.watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}
	logging.RegistryDebug("Watching requirements file %s for env %s", path, env.Name)
	return nil
}

// Start begins the event loop. Non-blocking.
func (w *RequirementsWatcher) Start() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	go w.loop()
}

func (w *RequirementsWatcher) loop() {
	defer close(w.doneCh)
	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.handleChange(filepath.Clean(event.Name))
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryRegistry).Warn("Requirements watcher error: %v", err)
		}
	}
}

func (w *RequirementsWatcher) handleChange(path string) {
	w.mu.Lock()
	envID, tracked := w.byPath[path]
	if tracked {
		// Editors fire bursts of events per save; collapse them.
		if last, ok := w.debounce[path]; ok && time.Since(last) < 500*time.Millisecond {
			tracked = false
		} else {
			w.debounce[path] = time.Now()
		}
	}
	w.mu.Unlock()

	if !tracked {
		return
	}
	logging.Registry("Requirements file %s changed externally", path)
	if err := w.envs.MarkStale(envID); err != nil {
		logging.Get(logging.CategoryRegistry).Warn("Failed to mark env %s stale: %v", envID, err)
	}
}

// Stop shuts the watcher down and waits for the loop to exit. The fsnotify
// descriptor is released even when Start was never called.
func (w *RequirementsWatcher) Stop() {
	w.mu.Lock()
	running := w.running
	w.running = false
	w.mu.Unlock()

	if running {
		close(w.stopCh)
	}
	_ = w.watcher.Close()
	if running {
		<-w.doneCh
	}
}
