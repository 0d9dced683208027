package capability

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ManifestWatcher hot-reloads capability manifest packs from a set of
// directories into a Marketplace (spec §9 Open Question "require_attestation
// vs. hot-reload", resolved to allow file-watcher-driven reloads as long as
// require_attestation rejects anything without a valid Attestation at
// Register time). Mirrors the teacher's processor/ast.Watcher: fsnotify
// events are debounced and coalesced before each file is (re)loaded.
type ManifestWatcher struct {
	mp        *Marketplace
	validator *ManifestSchemaValidator // optional; nil skips schema validation
	logger    *slog.Logger
	debounce  time.Duration

	fsw *fsnotify.Watcher

	pendingMu sync.Mutex
	pending   map[string]struct{}
}

// NewManifestWatcher builds a watcher over paths, registering each loaded
// manifest onto mp. validator may be nil to skip JSON-schema validation of
// manifest documents before registration.
func NewManifestWatcher(mp *Marketplace, validator *ManifestSchemaValidator, logger *slog.Logger) (*ManifestWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ManifestWatcher{
		mp:        mp,
		validator: validator,
		logger:    logger,
		debounce:  200 * time.Millisecond,
		fsw:       fsw,
		pending:   make(map[string]struct{}),
	}, nil
}

// LoadAll performs a one-time synchronous load of every manifest file under
// paths, logging (not failing) on a per-file parse error.
func (w *ManifestWatcher) LoadAll(paths []string) {
	for _, dir := range paths {
		_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil || info == nil || info.IsDir() {
				return nil
			}
			if !isManifestFile(path) {
				return nil
			}
			w.loadOne(path)
			return nil
		})
	}
}

// Watch begins watching paths for create/write/remove events until ctx is
// cancelled. LoadAll should be called first to populate the initial state.
func (w *ManifestWatcher) Watch(ctx context.Context, paths []string) error {
	for _, dir := range paths {
		if err := w.fsw.Add(dir); err != nil {
			w.logger.Warn("failed to watch capability pack directory", "path", dir, "error", err)
		}
	}

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return w.fsw.Close()
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !isManifestFile(ev.Name) {
				continue
			}
			w.pendingMu.Lock()
			w.pending[ev.Name] = struct{}{}
			w.pendingMu.Unlock()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("capability pack watcher error", "error", err)
		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *ManifestWatcher) flush() {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	toLoad := make([]string, 0, len(w.pending))
	for path := range w.pending {
		toLoad = append(toLoad, path)
	}
	w.pending = make(map[string]struct{})
	w.pendingMu.Unlock()

	for _, path := range toLoad {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			w.logger.Info("capability pack file removed; leaving prior registration in place", "path", path)
			continue
		}
		w.loadOne(path)
	}
}

func (w *ManifestWatcher) loadOne(path string) {
	fm, err := ParseManifestFile(path)
	if err != nil {
		w.logger.Warn("failed to load capability manifest", "path", path, "error", err)
		return
	}

	if w.validator != nil {
		doc, err := fm.JSON()
		if err != nil {
			w.logger.Warn("failed to encode capability manifest for validation", "path", path, "error", err)
			return
		}
		if err := w.validator.Validate(doc); err != nil {
			w.logger.Warn("capability manifest failed schema validation", "path", path, "id", fm.ID, "error", err)
			return
		}
	}

	m := fm.ToManifest(path)
	if err := w.mp.Register(m); err != nil {
		w.logger.Warn("failed to register capability manifest", "path", path, "id", m.ID, "error", err)
		return
	}
	w.logger.Info("registered capability manifest", "path", path, "id", m.ID)
}

func isManifestFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml" || ext == ".json"
}
