// Package slides generates the deck section of a document in stages:
// one foundation call for theme and outline, batched calls for slide
// content, and one finalize call for notes and summary.
package slides

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed templates/*.yaml
var defaultTemplates embed.FS

// Template describes the deck structure for one document kind.
type Template struct {
	Kind     string    `yaml:"kind" json:"kind"`
	Name     string    `yaml:"name" json:"name"`
	Sections []Section `yaml:"sections" json:"sections"`
}

// Section is one deck section with a slide budget.
type Section struct {
	Name   string `yaml:"name" json:"name"`
	Layout string `yaml:"layout" json:"layout"`
	Slides int    `yaml:"slides" json:"slides"`
}

// SlideCount returns the template's total slide budget.
func (t *Template) SlideCount() int {
	var n int
	for _, s := range t.Sections {
		n += s.Slides
	}
	return n
}

// Library holds the effective deck templates: embedded defaults,
// optionally overridden per kind by YAML files in a directory.
type Library struct {
	overrideDir string
	logger      *zap.Logger

	mu        sync.RWMutex
	templates map[string]*Template

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewLibrary loads the embedded defaults and, when overrideDir is
// non-empty, applies any overrides found there.
func NewLibrary(overrideDir string, logger *zap.Logger) (*Library, error) {
	lib := &Library{
		overrideDir: overrideDir,
		logger:      logger.Named("slides"),
		templates:   map[string]*Template{},
	}
	if err := lib.reload(); err != nil {
		return nil, err
	}
	return lib, nil
}

// Get returns the template for a document kind.
func (l *Library) Get(kind string) (*Template, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	tmpl, ok := l.templates[kind]
	if !ok {
		return nil, fmt.Errorf("no deck template for kind %q", kind)
	}
	return tmpl, nil
}

// Templates returns the effective templates keyed by kind.
func (l *Library) Templates() map[string]*Template {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]*Template, len(l.templates))
	for k, v := range l.templates {
		out[k] = v
	}
	return out
}

// reload rebuilds the template map from embedded defaults plus the
// override directory.
func (l *Library) reload() error {
	templates := map[string]*Template{}

	entries, err := fs.Glob(defaultTemplates, "templates/*.yaml")
	if err != nil {
		return fmt.Errorf("failed to list embedded templates: %w", err)
	}
	for _, name := range entries {
		data, err := defaultTemplates.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read embedded template %s: %w", name, err)
		}
		tmpl, err := parseTemplate(data)
		if err != nil {
			return fmt.Errorf("embedded template %s: %w", name, err)
		}
		templates[tmpl.Kind] = tmpl
	}

	if l.overrideDir != "" {
		overrides, err := loadDir(l.overrideDir)
		if err != nil {
			return err
		}
		for kind, tmpl := range overrides {
			templates[kind] = tmpl
			l.logger.Info("deck template overridden",
				zap.String("kind", kind),
				zap.Int("slides", tmpl.SlideCount()))
		}
	}

	l.mu.Lock()
	l.templates = templates
	l.mu.Unlock()
	return nil
}

func loadDir(dir string) (map[string]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read template dir: %w", err)
	}

	out := map[string]*Template{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", entry.Name(), err)
		}
		tmpl, err := parseTemplate(data)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", entry.Name(), err)
		}
		out[tmpl.Kind] = tmpl
	}
	return out, nil
}

func parseTemplate(data []byte) (*Template, error) {
	var tmpl Template
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("invalid template YAML: %w", err)
	}
	if tmpl.Kind == "" {
		return nil, fmt.Errorf("template has no kind")
	}
	if len(tmpl.Sections) == 0 {
		return nil, fmt.Errorf("template %q has no sections", tmpl.Kind)
	}
	for i := range tmpl.Sections {
		if tmpl.Sections[i].Slides < 1 {
			tmpl.Sections[i].Slides = 1
		}
	}
	return &tmpl, nil
}

// Watch hot-reloads the override directory on change. Rapid editor
// saves are debounced; a broken override keeps the last good set.
func (l *Library) Watch() error {
	if l.overrideDir == "" {
		return fmt.Errorf("no override directory to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(l.overrideDir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch template dir: %w", err)
	}

	l.watcher = watcher
	l.stopCh = make(chan struct{})
	l.doneCh = make(chan struct{})

	go l.watchLoop()
	l.logger.Info("watching deck templates", zap.String("dir", l.overrideDir))
	return nil
}

func (l *Library) watchLoop() {
	defer close(l.doneCh)

	const debounce = 300 * time.Millisecond
	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-l.stopCh:
			return
		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".yaml") {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			timerCh = timer.C
		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.logger.Warn("template watcher error", zap.Error(err))
		case <-timerCh:
			timerCh = nil
			if err := l.reload(); err != nil {
				l.logger.Warn("template reload failed, keeping previous set", zap.Error(err))
				continue
			}
			l.logger.Info("deck templates reloaded")
		}
	}
}

// Close stops the watcher if one is running.
func (l *Library) Close() error {
	if l.watcher == nil {
		return nil
	}
	close(l.stopCh)
	err := l.watcher.Close()
	<-l.doneCh
	l.watcher = nil
	return err
}
