package infra

import (
	"context"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
)

const executableCheckInterval = 5 * time.Second

// MonitorExecutable signals once when the running binary changes on disk,
// which is how in-place deploys ask the daemon to restart. The channel
// closes without firing when monitoring is impossible or the context ends.
func MonitorExecutable(ctx context.Context) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		defer close(ch)

		path, err := os.Executable()
		if err != nil {
			log.WithError(err).Warn("cant resolve executable path, monitor disabled")
			return
		}
		stat, err := os.Stat(path)
		if err != nil {
			log.WithError(err).Warn("cant stat executable, monitor disabled")
			return
		}
		originalTime := stat.ModTime()

		ticker := time.NewTicker(executableCheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stat, err := os.Stat(path)
				if err != nil {
					continue
				}
				if !originalTime.Equal(stat.ModTime()) {
					select {
					case ch <- struct{}{}:
					case <-ctx.Done():
					}
					return
				}
			}
		}
	}()
	return ch
}
