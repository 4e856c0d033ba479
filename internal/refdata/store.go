package refdata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/glowlab/glowlab-backend/internal/logger"
)

// Store hands out immutable Tables snapshots and swaps them atomically on
// reload. Rules can change without redeploying the binary.
type Store struct {
	mu     sync.RWMutex
	tables *Tables
	log    *logger.Logger
}

func NewStore(log *logger.Logger) *Store {
	return &Store{
		tables: Defaults(),
		log:    log.With("service", "RefdataStore"),
	}
}

// Tables returns the current snapshot. Callers must not mutate it.
func (s *Store) Tables() *Tables {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tables
}

// LoadFile replaces the current snapshot with the parsed file. Fields
// absent from the file fall back to the compiled-in defaults.
func (s *Store) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read refdata file: %w", err)
	}
	loaded := Defaults()
	if err := yaml.Unmarshal(raw, loaded); err != nil {
		return fmt.Errorf("parse refdata file: %w", err)
	}
	if err := validate(loaded); err != nil {
		return fmt.Errorf("invalid refdata file: %w", err)
	}
	s.mu.Lock()
	s.tables = loaded
	s.mu.Unlock()
	s.log.Info("Reference tables loaded", "path", path, "version", loaded.Version)
	return nil
}

// Watch reloads the file whenever it changes, keeping the previous
// snapshot when a reload fails. Returns after the watcher is running.
func (s *Store) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory: editors replace files on save, which drops
	// per-file watches.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		var timer *time.Timer
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				// Debounce bursts from editors writing in chunks.
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(200*time.Millisecond, func() {
					if err := s.LoadFile(path); err != nil {
						s.log.Warn("Refdata reload failed, keeping previous snapshot", "error", err)
					}
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.log.Warn("Refdata watcher error", "error", err)
			}
		}
	}()
	return nil
}

func validate(t *Tables) error {
	if t.DefaultPosition <= 0 {
		return fmt.Errorf("default_position must be positive")
	}
	for _, r := range t.WaitRules {
		if len(r.Triggers) == 0 {
			return fmt.Errorf("wait rule %q has no triggers", r.Name)
		}
		if r.Minutes <= 0 {
			return fmt.Errorf("wait rule %q has non-positive minutes", r.Name)
		}
	}
	for _, r := range t.StepRules {
		if r.Importance != ImportanceRequired && r.Importance != ImportanceRecommended {
			return fmt.Errorf("step rule %q has unknown importance %q", r.Label, r.Importance)
		}
		if len(r.Categories) == 0 {
			return fmt.Errorf("step rule %q has no categories", r.Label)
		}
	}
	return nil
}
