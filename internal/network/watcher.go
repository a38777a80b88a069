package network

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/redoxflux/internal/checksum"
)

// ReloadCallback is called after the holder has been swapped to a new revision.
type ReloadCallback func(s *Snapshot)

const reloadDebounce = 200 * time.Millisecond

// Watch observes dir for changes to the network file name and reloads it
// into h until ctx is cancelled. The directory is watched rather than the
// file so that editors replacing the file through a rename are seen.
// A revision that fails to decode or validate is logged and the previous
// snapshot stays in place.
func Watch(ctx context.Context, h *Holder, src Source, dir, name string, logger *slog.Logger, cb ReloadCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("dir", dir), slog.String("file", name))

	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(reloadDebounce)
			fire = timer.C
			return
		}
		timer.Reset(reloadDebounce)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-fire:
			reload(h, src, name, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				schedule()
			}

		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", werr.Error()))
		}
	}
}

func reload(h *Holder, src Source, name string, logger *slog.Logger, cb ReloadCallback) {
	m, sum, err := LoadFrom(src, name)
	if err != nil {
		logger.Warn("watcher: reload failed, keeping previous network", slog.String("error", err.Error()))
		return
	}
	if cur := h.Load(); cur != nil && cur.Checksum == sum {
		return
	}
	h.Store(m, sum)
	logger.Info("watcher: network reloaded",
		slog.String("model", m.ID),
		slog.Int("reactions", len(m.Reactions)),
		slog.String("checksum", checksum.Short(sum)))
	if cb != nil {
		cb(h.Load())
	}
}
