package folio

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch calls fn after the content directory changes, coalescing bursts of
// events within debounce. It blocks until ctx is cancelled.
//
// fn runs on the watching goroutine, so calls never overlap and Watch does
// not return while fn is running. Changes made during a call schedule one
// more call.
func (a *App) Watch(ctx context.Context, debounce time.Duration, fn func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("folio: watch: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(a.Config.ContentDir); err != nil {
		return fmt.Errorf("folio: watch %s: %w", a.Config.ContentDir, err)
	}
	a.Logger.Info("watching content", zap.String("dir", a.Config.ContentDir))

	var timer *time.Timer
	fire := make(chan struct{}, 1)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			a.Logger.Debug("content changed", zap.String("file", event.Name), zap.String("op", event.Op.String()))
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			fn()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.Logger.Warn("watch error", zap.Error(err))
		}
	}
}
