package config

import (
	"context"
	"log"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Manager serves the live configuration to the daemon and swaps it in place
// when the file on disk changes. A bad edit never displaces a good running
// config.
type Manager struct {
	mu      sync.RWMutex
	current *Config

	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
}

func NewManager() (*Manager, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("config: loaded with warnings: %v", err)
	}
	return &Manager{current: cfg}, nil
}

// GetConfig returns a snapshot. Callers keep the values they started with;
// later reloads are only visible through a fresh call.
func (m *Manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snapshot := *m.current
	return &snapshot
}

// StartWatching begins hot-reloading the config file. The watch covers the
// directory, not the file, because most editors replace the file on save
// rather than writing in place.
func (m *Manager) StartWatching(ctx context.Context) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return err
	}
	m.watcher = w

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.watch(ctx, path)
	}()

	log.Printf("config: hot reload active for %s", path)
	return nil
}

func (m *Manager) Stop() {
	if m.watcher != nil {
		m.watcher.Close()
	}
	m.wg.Wait()
}

func (m *Manager) watch(ctx context.Context, path string) {
	name := filepath.Base(path)

	for {
		select {
		case ev, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) {
				continue
			}
			m.reload()

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("config: watch error: %v", err)

		case <-ctx.Done():
			return
		}
	}
}

// reload swaps in the file's current contents. An unreadable or invalid
// file is reported and ignored.
func (m *Manager) reload() {
	cfg, err := Load()
	if err != nil {
		log.Printf("config: reload skipped: %v", err)
		return
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("config: reload rejected: %v", err)
		return
	}

	m.mu.Lock()
	m.current = cfg
	m.mu.Unlock()
	log.Printf("config: reloaded")
}
