// Package configwatch watches a local directory of per-community override
// config files and applies them directly to the config store. It exists
// for development and testing against a fixed set of configs without a
// live wiki connection; a production deployment runs the config ingestor
// (C3) instead.
package configwatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/flair-helper/flairhelper/internal/configschema"
	"github.com/flair-helper/flairhelper/internal/configstore"
	"github.com/flair-helper/flairhelper/internal/ingestor"
	"github.com/flair-helper/flairhelper/pkg/logger"
)

var log = logger.New("configwatch")

// Service applies every <community>.json/.yml/.yaml file under Dir to
// Store, once at startup and again on every write.
type Service struct {
	Dir   string
	Store *configstore.Store
}

// New constructs a Service.
func New(dir string, store *configstore.Store) *Service {
	return &Service{Dir: dir, Store: store}
}

// Run applies every file already in Dir, then blocks watching for changes
// until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", s.Dir, err)
	}

	s.applyAll(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher closed unexpectedly")
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := s.applyFile(ctx, event.Name); err != nil {
				log.Printf("apply %s failed: %v", event.Name, err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher closed unexpectedly")
			}
			log.Printf("watch error: %v", err)
		}
	}
}

// applyAll scans Dir once, logging but not failing on per-file problems —
// one bad override file shouldn't block the rest from loading.
func (s *Service) applyAll(ctx context.Context) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		log.Printf("read %s failed: %v", s.Dir, err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(s.Dir, entry.Name())
		if err := s.applyFile(ctx, path); err != nil {
			log.Printf("apply %s failed: %v", path, err)
		}
	}
}

// applyFile loads path as a community config, named after its basename
// minus extension, and stores it. Files without a recognized extension
// are ignored.
func (s *Service) applyFile(ctx context.Context, path string) error {
	name := filepath.Base(path)
	ext := filepath.Ext(name)
	if ext != ".json" && ext != ".yml" && ext != ".yaml" {
		return nil
	}
	community := strings.TrimSuffix(name, ext)

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	cfg, _, err := ingestor.ParseDocument(string(content))
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	canonical, err := cfg.MarshalCanonical()
	if err != nil {
		return fmt.Errorf("serialize: %w", err)
	}
	if err := configschema.Validate(canonical); err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	if err := s.Store.Put(ctx, community, cfg); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	log.Printf("applied local override: community=%s file=%s", community, name)
	return nil
}
