package watch

import (
	"context"
	"log/slog"
	"os"

	"github.com/starford/qarchive/internal/settings"
)

// Supervise runs Watch on root and restarts it on every root received from
// roots. A failed watcher is logged and stays down until the next root.
func Supervise(ctx context.Context, root settings.DataRoot, roots <-chan settings.DataRoot, logger *slog.Logger, cb EventCallback) error {
	for {
		wctx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func(r settings.DataRoot) {
			if err := os.MkdirAll(r.Dir, 0o755); err != nil {
				done <- err
				return
			}
			done <- Watch(wctx, r, logger, cb)
		}(root)

		select {
		case <-ctx.Done():
			cancel()
			<-done
			return nil
		case next := <-roots:
			cancel()
			<-done
			root = next
		case err := <-done:
			cancel()
			if err != nil {
				logger.Error("watcher: failed", slog.String("root", root.Dir), slog.String("error", err.Error()))
			}
			select {
			case <-ctx.Done():
				return nil
			case root = <-roots:
			}
		}
	}
}
