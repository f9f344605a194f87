package project

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/vcrobe/tplc/console"
)

// Watch builds every template once, then rebuilds a template whenever it or
// its manifest is written. Each result is passed to onBuild. Watch returns
// when ctx is done.
//
// Templates created after Watch started are not picked up.
func (b *Builder) Watch(ctx context.Context, onBuild func(*Report, error)) error {
	sources, err := b.discover(b.cfg.In, b.cfg.Extensions)
	if err != nil {
		return fmt.Errorf("failed to discover templates: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Editors often replace files instead of writing them in place, so the
	// directories are watched rather than the files.
	byFile := make(map[string]Source)
	dirs := make(map[string]bool)
	for _, src := range sources {
		byFile[filepath.Clean(src.Path)] = src
		byFile[filepath.Clean(src.Manifest)] = src

		dir := filepath.Dir(src.Path)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	for _, src := range sources {
		onBuild(b.BuildSource(src))
	}
	console.Debug("watching %d director(ies)", len(dirs))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			src, ok := byFile[filepath.Clean(event.Name)]
			if !ok {
				continue
			}
			console.Debug("%s changed", event.Name)
			onBuild(b.BuildSource(src))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			console.Error(err)
		}
	}
}
