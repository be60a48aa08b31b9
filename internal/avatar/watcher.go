// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package avatar

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses bursts of file events into one restart.
const DefaultDebounce = 150 * time.Millisecond

// Watch restarts playback whenever the avatar file is created or rewritten
// and stops it when the file is removed. It watches the file's directory,
// so the file need not exist yet. Watch returns once the watcher is set up;
// events are handled on a background goroutine until ctx ends.
func (p *Player) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dir := filepath.Dir(p.path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return err
	}

	go p.processEvents(ctx, w)
	return nil
}

func (p *Player) processEvents(ctx context.Context, w *fsnotify.Watcher) {
	defer w.Close()

	target := filepath.Clean(p.path)
	var (
		timer   *time.Timer
		pending <-chan time.Time
		removed bool
	)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}

			switch {
			case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
				removed = true
			case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
				removed = false
			default:
				continue
			}

			if timer == nil {
				timer = time.NewTimer(DefaultDebounce)
			} else {
				timer.Reset(DefaultDebounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			if removed {
				p.stopWithStatus(StatusNotFound)
				continue
			}
			p.Stop()
			if err := p.Start(ctx); err != nil {
				log.Printf("AVATAR_RELOAD_ERROR | path=%s error=%v", p.path, err)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Printf("AVATAR_WATCH_ERROR | path=%s error=%v", p.path, err)
		}
	}
}
