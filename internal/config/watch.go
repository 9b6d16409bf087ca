package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/marketmind-ai/marketmind/internal/logging"
)

// Watch reloads the config whenever path changes and hands the result
// to onChange. It returns a stop function. The watch is best-effort: a
// reload failure keeps the previous configuration.
func Watch(path string, onChange func(*Config)) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory; editors replace files on save, which drops
	// a watch registered on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	target, _ := filepath.Abs(path)

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				abs, _ := filepath.Abs(ev.Name)
				if abs != target {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				cfg := Default()
				if err := loadFile(path, cfg); err != nil {
					logging.Warn().Err(err).Str("path", path).Msg("config reload failed")
					continue
				}
				applyEnvOverrides(cfg)
				logging.Info().Str("path", path).Msg("config reloaded")
				onChange(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.Warn().Err(err).Msg("config watcher error")
			}
		}
	}()

	return func() { watcher.Close() }, nil
}
