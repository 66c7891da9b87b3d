package engine

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/ggoodman/lsp-server-go/internal/outbound"
	"github.com/ggoodman/lsp-server-go/lsp"
	"github.com/ggoodman/lsp-server-go/server"
)

const watcherRegistrationID = "workspace/didChangeWatchedFiles"

// clientCanWatch reports whether the client accepts dynamic registration of
// workspace/didChangeWatchedFiles.
func clientCanWatch(s server.Session) bool {
	b, err := json.Marshal(s.ClientCapabilities)
	if err != nil {
		return false
	}
	var probe struct {
		Workspace struct {
			DidChangeWatchedFiles struct {
				DynamicRegistration bool `json:"dynamicRegistration"`
			} `json:"didChangeWatchedFiles"`
		} `json:"workspace"`
	}
	if err := json.Unmarshal(b, &probe); err != nil {
		return false
	}
	return probe.Workspace.DidChangeWatchedFiles.DynamicRegistration
}

// registerClientWatchers asks the client to watch the roots. The response is
// routed back by the main loop, so the call runs on its own goroutine.
func (e *Engine) registerClientWatchers(ctx context.Context, wg *sync.WaitGroup, log *slog.Logger, d *outbound.Dispatcher, roots []string) {
	watchers := make([]lsp.FileSystemWatcher, len(roots))
	for i, root := range roots {
		watchers[i] = lsp.FileSystemWatcher{GlobPattern: filepath.ToSlash(root) + "/**/*"}
	}
	params := lsp.RegistrationParams{Registrations: []lsp.Registration{{
		ID:              watcherRegistrationID,
		Method:          string(lsp.DidChangeWatchedFilesNotificationMethod),
		RegisterOptions: lsp.DidChangeWatchedFilesRegistrationOptions{Watchers: watchers},
	}}}

	wg.Add(1)
	go func() {
		defer wg.Done()
		// The dispatcher is closed when the session ends; no $/cancelRequest
		// should follow the shutdown response.
		err := d.CallResult(context.WithoutCancel(ctx), string(lsp.RegisterCapabilityMethod), params, nil)
		if err != nil {
			if !errors.Is(err, errSessionEnded) {
				log.WarnContext(ctx, "failed to register file watchers", slog.String("err", err.Error()))
			}
			return
		}
		log.InfoContext(ctx, "registered file watchers with client", slog.Int("roots", len(roots)))
	}()
}

// excludeMatcher matches paths under the roots against doublestar globs,
// relative to the root and slash-separated. A glob without a slash also
// matches the base name at any depth; "dir/**" also matches dir itself.
type excludeMatcher struct {
	roots []string
	globs []string
}

func newExcludeMatcher(ctx context.Context, log *slog.Logger, roots, globs []string) excludeMatcher {
	m := excludeMatcher{roots: roots}
	for _, g := range globs {
		if !doublestar.ValidatePattern(g) {
			log.WarnContext(ctx, "ignoring invalid exclude glob", slog.String("glob", g))
			continue
		}
		m.globs = append(m.globs, g)
	}
	return m
}

func matchGlob(g, rel, base string) bool {
	if ok, _ := doublestar.Match(g, rel); ok {
		return true
	}
	if dir, ok := strings.CutSuffix(g, "/**"); ok {
		if ok, _ := doublestar.Match(dir, rel); ok {
			return true
		}
	}
	if !strings.Contains(g, "/") {
		ok, _ := doublestar.Match(g, base)
		return ok
	}
	return false
}

func (m excludeMatcher) excluded(p string) bool {
	if len(m.globs) == 0 {
		return false
	}
	base := filepath.Base(p)
	for _, root := range m.roots {
		rel, err := filepath.Rel(root, p)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		rel = filepath.ToSlash(rel)
		for _, g := range m.globs {
			if matchGlob(g, rel, base) {
				return true
			}
		}
	}
	return false
}

// watchRoots watches every non-excluded directory under roots. fsnotify is
// not recursive, so directories created later are added as they appear. The
// initial walk runs on the watcher goroutine and stops when ctx is done.
func (e *Engine) watchRoots(ctx context.Context, wg *sync.WaitGroup, log *slog.Logger, roots, excludeGlobs []string) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		log.WarnContext(ctx, "file watching unavailable", slog.String("err", err.Error()))
		return
	}
	m := newExcludeMatcher(ctx, log, roots, excludeGlobs)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer w.Close()
		for _, root := range roots {
			addTree(ctx, log, w, m, root)
		}
		if ctx.Err() != nil {
			return
		}
		log.DebugContext(ctx, "watching workspace roots", slog.Int("dirs", len(w.WatchList())))
		if e.watchReady != nil {
			e.watchReady()
		}
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if m.excluded(ev.Name) {
					continue
				}
				if ev.Has(fsnotify.Create) {
					addTree(ctx, log, w, m, ev.Name)
				}
				log.DebugContext(ctx, "workspace file changed", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
				if e.onChange != nil {
					e.onChange(ev)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.WarnContext(ctx, "file watcher error", slog.String("err", err.Error()))
			}
		}
	}()
}

func addTree(ctx context.Context, log *slog.Logger, w *fsnotify.Watcher, m excludeMatcher, root string) {
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err != nil {
			if p == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && m.excluded(p) {
			return filepath.SkipDir
		}
		if err := w.Add(p); err != nil {
			log.DebugContext(ctx, "cannot watch directory", slog.String("path", p), slog.String("err", err.Error()))
		}
		return nil
	})
	if err != nil {
		log.DebugContext(ctx, "cannot watch root", slog.String("path", root), slog.String("err", err.Error()))
	}
}
