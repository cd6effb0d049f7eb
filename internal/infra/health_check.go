package infra

import (
	"context"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
)

const binaryCheckPeriod = 5 * time.Second

// MonitorExecutable signals on the returned channel when the binary on disk
// is replaced, e.g. by a deploy, so the process can exit and be restarted.
func MonitorExecutable(ctx context.Context) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		defer close(ch)

		binPath, err := os.Executable()
		if err != nil {
			log.WithError(err).Warn("binary watch disabled, cant resolve own path")
			return
		}
		baseline, err := modTime(binPath)
		if err != nil {
			log.WithError(err).Warn("binary watch disabled, cant stat binary")
			return
		}

		ticker := time.NewTicker(binaryCheckPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				current, err := modTime(binPath)
				if err != nil {
					log.WithError(err).Warn("cant stat binary, skipping check")
					continue
				}
				if !current.Equal(baseline) {
					ch <- struct{}{}
					return
				}
			}
		}
	}()
	return ch
}

func modTime(path string) (time.Time, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return stat.ModTime(), nil
}
